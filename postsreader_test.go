package main

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

func TestParsePostFilename(t *testing.T) {
	tests := []struct {
		name     string
		wantDate string
		wantSlug string
		wantPath string
	}{
		{"2024-03-07-hello-world.md", "2024-03-07", "hello-world.html", "2024/03/07/hello-world.html"},
		{"2024-01-02-launch.md", "2024-01-02", "launch.html", "2024/01/02/launch.html"},
		{"2024-01-02-launch.markdown", "2024-01-02", "launch.html", "2024/01/02/launch.html"},
		{"2023-12-31-kept.html", "2023-12-31", "kept.html", "2023/12/31/kept.html"},
		{"2020-02-29-top-10-of-2020.md", "2020-02-29", "top-10-of-2020.html", "2020/02/29/top-10-of-2020.html"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, err := parsePostFilename(tt.name)
			if err != nil {
				t.Fatalf("parsePostFilename() error = %v", err)
			}
			if got := m.DateString(); got != tt.wantDate {
				t.Errorf("DateString() = %q, want %q", got, tt.wantDate)
			}
			if m.Slug != tt.wantSlug {
				t.Errorf("Slug = %q, want %q", m.Slug, tt.wantSlug)
			}
			if got := m.RelPath(); got != tt.wantPath {
				t.Errorf("RelPath() = %q, want %q", got, tt.wantPath)
			}
		})
	}
}

func TestParsePostFilenameDate(t *testing.T) {
	m, err := parsePostFilename("2024-03-07-hello.md")
	if err != nil {
		t.Fatal(err)
	}
	want := time.Date(2024, time.March, 7, 0, 0, 0, 0, time.UTC)
	if !m.Date.Equal(want) {
		t.Errorf("Date = %v, want %v", m.Date, want)
	}
	if m.Year != "2024" || m.Month != "03" || m.Day != "07" {
		t.Errorf("got %s/%s/%s", m.Year, m.Month, m.Day)
	}
}

func TestParsePostFilenameErrors(t *testing.T) {
	tests := []struct {
		name string
		kind ErrorKind
	}{
		{"launch.md", MalformedFilename},
		{"2024-01-launch.md", MalformedFilename},
		{"2024-01-02.md", MalformedFilename},
		{"2024-01-02-.md", MalformedFilename},
		{"2024-13-02-launch.md", InvalidDate},
		{"2023-02-29-launch.md", InvalidDate},
		{"yyyy-01-02-launch.md", InvalidDate},
		{"2024-1-2-launch.md", InvalidDate},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := parsePostFilename(tt.name)
			if !IsKind(err, tt.kind) {
				t.Errorf("parsePostFilename(%q) error = %v, want %v", tt.name, err, tt.kind)
			}
		})
	}
}

func TestHtmlName(t *testing.T) {
	for in, want := range map[string]string{
		"about.md":       "about.html",
		"about.markdown": "about.html",
		"about.MD":       "about.html",
		"about.html":     "about.html",
		"style.css":      "style.css",
	} {
		if got := htmlName(in); got != want {
			t.Errorf("htmlName(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestClassify(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, baseTree())
	writeTree(t, root, map[string]string{
		"_src/notes.txt":       "x",
		"_src/drafts/later.md": "# Later",
	})
	conf := testConf(t, root)
	s := NewSite(conf, testLogger(), testNow)

	entries, err := readSourceEntries(conf.SourceDir)
	if err != nil {
		t.Fatal(err)
	}
	got := make(map[string]entryKind)
	for _, e := range entries {
		got[e.Name] = s.classify(e)
	}
	want := map[string]entryKind{
		"blog":      entryBlogDir,
		"drafts":    entryDir,
		"notes.txt": entryOther,
		"page.tmpl": entryOther,
		"post.tmpl": entryOther,
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("classify() mismatch (-want +got):\n%s", diff)
	}
}

func TestClassifyTemplateWithPageExtension(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, baseTree())
	writeTree(t, root, map[string]string{
		"_src/layout.html": "<html><$BODY></html>",
		"_src/index.html":  "<h1>Home</h1>",
	})
	conf := testConf(t, root)
	conf.PageTemplate = filepath.Join(conf.SourceDir, "layout.html")
	s := NewSite(conf, testLogger(), testNow)

	for name, want := range map[string]entryKind{"layout.html": entryOther, "index.html": entryPage} {
		e := sourceEntry{Path: filepath.Join(conf.SourceDir, name), Name: name, Ext: filepath.Ext(name)}
		if got := s.classify(e); got != want {
			t.Errorf("classify(%s) = %v, want %v", name, got, want)
		}
	}
}

func TestReadSourceEntriesSorted(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"c.md", "a.md", "b.css"} {
		if err := os.WriteFile(filepath.Join(dir, name), nil, 0644); err != nil {
			t.Fatal(err)
		}
	}
	entries, err := readSourceEntries(dir)
	if err != nil {
		t.Fatal(err)
	}
	var names []string
	for _, e := range entries {
		names = append(names, e.Name)
	}
	if diff := cmp.Diff([]string{"a.md", "b.css", "c.md"}, names); diff != "" {
		t.Errorf("mismatch (-want +got):\n%s", diff)
	}
}
