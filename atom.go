package main

import (
	"os"
	"path/filepath"
	"strings"

	atom "github.com/thomas11/atomgenerator"
)

func (s *Site) feedPath() string {
	return filepath.Join(s.conf.OutDir, "index.xml")
}

// RenderAtom writes index.xml listing the given posts.
func (s *Site) RenderAtom(ps posts) (string, error) {
	atomXml, err := s.renderFeed(s.conf.SiteTitle, ps)
	if err != nil {
		return "", err
	}

	filePath := s.feedPath()
	if err := os.WriteFile(filePath, atomXml, os.FileMode(0664)); err != nil {
		return "", err
	}
	return filePath, nil
}

func (s *Site) baseUrl() string {
	if strings.HasSuffix(s.conf.BaseUrl, "/") {
		return s.conf.BaseUrl
	}
	return s.conf.BaseUrl + "/"
}

// The feed date is the newest post's, so unchanged sources give an
// unchanged feed.
func (s *Site) renderFeed(title string, ps posts) ([]byte, error) {
	feed := atom.Feed{
		Title:   title,
		Link:    s.baseUrl(),
		PubDate: ps.latestDate(),
	}

	author := s.conf.Author
	if author == "" {
		author = title
	}
	feed.AddAuthor(atom.Author{
		Name: author,
		Uri:  s.conf.AuthorUri,
	})

	for _, p := range ps {
		feed.AddEntry(s.entryForPost(p))
	}

	errs := feed.Validate()
	if len(errs) > 0 {
		s.log.Errorf("atom feed is not valid")
		for _, e := range errs {
			s.log.Errorf("%v", e)
		}
		return nil, errs[0]
	}

	return feed.GenXml()
}

func (s *Site) entryForPost(p *post) *atom.Entry {
	return &atom.Entry{
		Title:       p.Title,
		Description: p.Title,
		Link:        s.baseUrl() + p.Meta.RelPath(),
		PubDate:     p.Meta.Date,
		Content:     p.Body,
	}
}
