package main

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

const dateStampFormat = "2006-01-02"

type entryKind int

const (
	entryOther entryKind = iota
	entryPage
	entryStylesheet
	entryBlogDir
	entryDir
)

// A direct child of the source root or the blog directory.
type sourceEntry struct {
	Path  string
	Name  string
	Ext   string
	IsDir bool
}

func isMarkdownExt(ext string) bool {
	switch strings.ToLower(ext) {
	case ".md", ".markdown":
		return true
	}
	return false
}

func isPageExt(ext string) bool {
	return isMarkdownExt(ext) || strings.EqualFold(ext, ".html")
}

func isStylesheetExt(ext string) bool {
	return strings.EqualFold(ext, ".css")
}

// Returns the name with a Markdown extension replaced by .html.
func htmlName(name string) string {
	ext := filepath.Ext(name)
	if isMarkdownExt(ext) {
		return strings.TrimSuffix(name, ext) + ".html"
	}
	return name
}

// parsePostFilename splits a YYYY-MM-DD-slug.ext name on hyphens. The first
// three segments are the date, everything after is the slug.
func parsePostFilename(name string) (postMetadata, error) {
	segments := strings.Split(name, "-")
	if len(segments) < 4 {
		return postMetadata{}, newError(MalformedFilename, name,
			"want YYYY-MM-DD-slug, got %d hyphen-separated segments", len(segments))
	}

	m := postMetadata{
		Year:  segments[0],
		Month: segments[1],
		Day:   segments[2],
		Slug:  htmlName(strings.Join(segments[3:], "-")),
	}
	if m.Slug == "" || strings.HasPrefix(m.Slug, ".") {
		return postMetadata{}, newError(MalformedFilename, name, "empty slug")
	}

	date, err := time.Parse(dateStampFormat, m.DateString())
	if err != nil {
		return postMetadata{}, newError(InvalidDate, name, "%q is not a %s date", m.DateString(), dateStampFormat)
	}
	m.Date = date
	return m, nil
}

// readSourceEntries lists the direct children of dir, sorted by name.
func readSourceEntries(dir string) ([]sourceEntry, error) {
	des, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("reading %v: %w", dir, err)
	}

	entries := make([]sourceEntry, 0, len(des))
	for _, de := range des {
		name := de.Name()
		isDir := de.IsDir()
		if de.Type()&os.ModeSymlink != 0 {
			if info, err := os.Stat(filepath.Join(dir, name)); err == nil {
				isDir = info.IsDir()
			}
		}
		entries = append(entries, sourceEntry{
			Path:  filepath.Join(dir, name),
			Name:  name,
			Ext:   filepath.Ext(name),
			IsDir: isDir,
		})
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name < entries[j].Name })
	return entries, nil
}

// classify decides what the walker does with a root-level entry.
func (s *Site) classify(e sourceEntry) entryKind {
	if e.IsDir {
		if e.Name == s.conf.BlogDir {
			return entryBlogDir
		}
		return entryDir
	}
	if s.isTemplate(e.Path) {
		return entryOther
	}
	switch {
	case isPageExt(e.Ext):
		return entryPage
	case isStylesheetExt(e.Ext):
		return entryStylesheet
	}
	return entryOther
}

func (s *Site) isTemplate(path string) bool {
	return sameFile(path, s.conf.PageTemplate) || sameFile(path, s.conf.PostTemplate)
}

func sameFile(a, b string) bool {
	absA, errA := filepath.Abs(a)
	absB, errB := filepath.Abs(b)
	if errA != nil || errB != nil {
		return filepath.Clean(a) == filepath.Clean(b)
	}
	return absA == absB
}

// within reports whether path is dir or lies below it.
func within(path, dir string) bool {
	absPath, errP := filepath.Abs(path)
	absDir, errD := filepath.Abs(dir)
	if errP != nil || errD != nil {
		return false
	}
	rel, err := filepath.Rel(absDir, absPath)
	if err != nil {
		return false
	}
	return rel == "." || rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}
