package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"strings"
)

// Clean deletes what Generate would write for the current source tree and
// any date directories left empty by that. If confirm is non-nil it is
// asked first, and a no aborts with CleanAborted.
func (s *Site) Clean(confirm func(files []string) (bool, error)) ([]string, error) {
	files, dirs, err := s.outputs()
	if err != nil {
		return nil, err
	}

	var static string
	if s.conf.StaticDir != "" {
		if _, err := os.Stat(s.conf.StaticDir); err == nil {
			static = s.conf.staticDest()
		}
	}

	var existing []string
	for _, f := range append(files, static) {
		if f == "" {
			continue
		}
		if _, err := os.Lstat(f); err == nil {
			existing = append(existing, f)
		}
	}
	if len(existing) == 0 {
		s.log.Infof("nothing to clean")
		return nil, nil
	}

	if confirm != nil {
		ok, err := confirm(existing)
		if err != nil {
			return nil, &Error{Kind: CleanAborted, Err: err}
		}
		if !ok {
			return nil, newError(CleanAborted, "", "declined")
		}
	}

	var removed []string
	for _, f := range existing {
		var err error
		if f == static {
			err = os.RemoveAll(f)
		} else {
			err = os.Remove(f)
		}
		if err != nil && !errors.Is(err, fs.ErrNotExist) {
			return removed, err
		}
		s.log.Infof("removed %v", f)
		removed = append(removed, f)
	}

	// Only empty directories go; anything else in them stays.
	for _, d := range dirs {
		if err := os.Remove(d); err == nil {
			s.log.Debugf("removed %v", d)
		}
	}
	return removed, nil
}

// promptConfirm asks on out and reads a yes or no from in.
func promptConfirm(in io.Reader, out io.Writer) func([]string) (bool, error) {
	return func(files []string) (bool, error) {
		reader := bufio.NewReader(in)
		fmt.Fprintf(out, "This deletes %d generated file(s):\n", len(files))
		for _, f := range files {
			fmt.Fprintf(out, "  %s\n", f)
		}
		for {
			fmt.Fprint(out, "Continue? [y/N]: ")
			text, err := reader.ReadString('\n')
			if err != nil && !(errors.Is(err, io.EOF) && text != "") {
				if errors.Is(err, io.EOF) {
					return false, nil
				}
				return false, err
			}
			switch strings.ToLower(strings.TrimSpace(text)) {
			case "y", "yes":
				return true, nil
			case "", "n", "no":
				return false, nil
			}
			fmt.Fprintln(out, "please answer y or n")
		}
	}
}
