package main

import (
	"github.com/tdewolff/minify/v2"
	"github.com/tdewolff/minify/v2/css"
	"github.com/tdewolff/minify/v2/html"
)

const (
	htmlMediaType = "text/html"
	cssMediaType  = "text/css"
)

type minifier struct {
	m *minify.M
}

func newMinifier() *minifier {
	m := minify.New()
	m.Add(htmlMediaType, &html.Minifier{
		KeepDocumentTags: true,
		KeepEndTags:      true,
		KeepQuotes:       true,
	})
	m.AddFunc(cssMediaType, css.Minify)
	return &minifier{m: m}
}

func (mf *minifier) html(text string) (string, error) {
	return mf.m.String(htmlMediaType, text)
}

func (mf *minifier) css(text string) (string, error) {
	return mf.m.String(cssMediaType, text)
}
