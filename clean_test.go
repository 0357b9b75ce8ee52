package main

import (
	"bytes"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func cleanTree(t *testing.T) (string, *SiteConf) {
	t.Helper()
	root := t.TempDir()
	writeTree(t, root, baseTree())
	writeTree(t, root, map[string]string{
		"_src/about.md":                  "# About\nHello.",
		"_src/style.css":                 "p { color: red; }",
		"_src/static/robots.txt":         "User-agent: *",
		"_src/blog/2024-03-07-second.md": "# Second\n\nMore.",
	})
	conf := testConf(t, root)
	generate(t, conf)
	writeTree(t, root, map[string]string{
		"out/keep.txt":          "mine",
		"out/2024/03/notes.txt": "mine too",
	})
	return root, conf
}

func TestClean(t *testing.T) {
	_, conf := cleanTree(t)
	s := NewSite(conf, testLogger(), testNow)

	removed, err := s.Clean(nil)
	if err != nil {
		t.Fatalf("Clean() error = %v", err)
	}
	if len(removed) != 5 {
		t.Errorf("removed %d paths, want 5: %v", len(removed), removed)
	}

	want := map[string]string{
		"keep.txt":          "mine",
		"2024/03/notes.txt": "mine too",
	}
	if diff := cmp.Diff(want, snapshot(t, conf.OutDir)); diff != "" {
		t.Errorf("remaining output mismatch (-want +got):\n%s", diff)
	}
	for _, dir := range []string{"2024/01", "assets", "static"} {
		if _, err := os.Stat(filepath.Join(conf.OutDir, filepath.FromSlash(dir))); !errors.Is(err, fs.ErrNotExist) {
			t.Errorf("%s still exists", dir)
		}
	}
	if _, err := os.Stat(filepath.Join(conf.SourceDir, "about.md")); err != nil {
		t.Errorf("source touched: %v", err)
	}
}

func TestCleanDeclined(t *testing.T) {
	_, conf := cleanTree(t)
	before := snapshot(t, conf.OutDir)
	s := NewSite(conf, testLogger(), testNow)

	var asked []string
	_, err := s.Clean(func(files []string) (bool, error) {
		asked = files
		return false, nil
	})
	if !IsKind(err, CleanAborted) {
		t.Fatalf("Clean() error = %v, want CleanAborted", err)
	}
	if len(asked) != 5 {
		t.Errorf("asked about %v", asked)
	}
	if diff := cmp.Diff(before, snapshot(t, conf.OutDir)); diff != "" {
		t.Errorf("output changed (-before +after):\n%s", diff)
	}
}

func TestCleanNothingGenerated(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, baseTree())
	conf := testConf(t, root)
	s := NewSite(conf, testLogger(), testNow)

	removed, err := s.Clean(func([]string) (bool, error) {
		t.Error("asked for confirmation with nothing to remove")
		return false, nil
	})
	if err != nil || len(removed) != 0 {
		t.Errorf("Clean() = %v, %v", removed, err)
	}
}

func TestPromptConfirm(t *testing.T) {
	tests := []struct {
		input string
		want  bool
	}{
		{"y\n", true},
		{"YES\n", true},
		{"n\n", false},
		{"\n", false},
		{"", false},
		{"maybe\ny\n", true},
		{"y", true},
	}
	for _, tt := range tests {
		var out bytes.Buffer
		got, err := promptConfirm(strings.NewReader(tt.input), &out)([]string{"out/a.html"})
		if err != nil {
			t.Errorf("input %q: error = %v", tt.input, err)
			continue
		}
		if got != tt.want {
			t.Errorf("input %q: got %v, want %v", tt.input, got, tt.want)
		}
		if !strings.Contains(out.String(), "out/a.html") {
			t.Errorf("prompt does not list the files: %q", out.String())
		}
	}
}

func TestCleanRefusesToRemoveSources(t *testing.T) {
	tests := []struct {
		name string
		conf func(root string, c *SiteConf)
	}{
		{"output is source", func(_ string, c *SiteConf) { c.OutDir = c.SourceDir }},
		{"static copy is the source", func(root string, c *SiteConf) {
			c.StaticDir = c.SourceDir
			c.OutDir = root
		}},
		{"static copy contains the source", func(root string, c *SiteConf) {
			c.StaticDir = filepath.Join(c.SourceDir, filepath.Base(root))
			c.OutDir = filepath.Dir(root)
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			root := t.TempDir()
			writeTree(t, root, baseTree())
			writeTree(t, root, map[string]string{"_src/index.html": "<h1>Home</h1>"})
			conf := testConf(t, root)
			tt.conf(root, conf)
			before := snapshot(t, root)

			removed, err := NewSite(conf, testLogger(), testNow).Clean(nil)
			if !IsKind(err, ConfigurationError) {
				t.Errorf("Clean() = %v, %v, want ConfigurationError", removed, err)
			}
			if diff := cmp.Diff(before, snapshot(t, root)); diff != "" {
				t.Errorf("sources changed (-before +after):\n%s", diff)
			}
		})
	}
}

// A stylesheet whose output would be the stylesheet itself is not an output.
func TestCleanKeepsConflictingSource(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, baseTree())
	writeTree(t, root, map[string]string{"_src/style.css": "p { color: red; }"})
	conf := testConf(t, root)
	conf.CssOutDir = conf.SourceDir
	generate(t, conf)

	if _, err := NewSite(conf, testLogger(), testNow).Clean(nil); err != nil {
		t.Fatalf("Clean() error = %v", err)
	}
	if _, err := os.Stat(filepath.Join(conf.SourceDir, "style.css")); err != nil {
		t.Errorf("style.css removed: %v", err)
	}
}
