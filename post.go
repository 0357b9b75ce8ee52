package main

import (
	"fmt"
	"path"
	"time"
)

// Derived from a post's file name, YYYY-MM-DD-slug.ext.
type postMetadata struct {
	Year, Month, Day string
	Date             time.Time
	Slug             string
}

func (m postMetadata) DateString() string {
	return m.Year + "-" + m.Month + "-" + m.Day
}

// Output path of the post relative to the output root, with forward slashes.
func (m postMetadata) RelPath() string {
	return path.Join(m.Year, m.Month, m.Day, m.Slug)
}

// A rendered post, kept around after writing only for the feed.
type post struct {
	Title      string
	Meta       postMetadata
	SourcePath string
	OutPath    string
	Body       string
}

// One line for the debug log.
func (p *post) String() string {
	return fmt.Sprintf("post %s %q from %s (%d bytes)", p.Meta.DateString(), p.Title, p.SourcePath, len(p.Body))
}

type posts []*post

func (ps posts) Len() int      { return len(ps) }
func (ps posts) Swap(i, j int) { ps[i], ps[j] = ps[j], ps[i] }

// Newest first; posts of the same day by slug so output is stable.
func (ps posts) Less(i, j int) bool {
	if !ps[i].Meta.Date.Equal(ps[j].Meta.Date) {
		return ps[i].Meta.Date.After(ps[j].Meta.Date)
	}
	return ps[i].Meta.Slug < ps[j].Meta.Slug
}

func (ps posts) latestDate() time.Time {
	var t time.Time
	for _, p := range ps {
		if p.Meta.Date.After(t) {
			t = p.Meta.Date
		}
	}
	return t
}
