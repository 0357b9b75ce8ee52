package main

import (
	"bufio"
	"bytes"
	"fmt"
	"io"

	"github.com/russross/blackfriday/v2"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/renderer/html"
)

// renderer turns Markdown into HTML.
type renderer interface {
	render(in []byte) (string, error)
}

func newMarkdownRenderer(name string) (renderer, error) {
	switch name {
	case "", "blackfriday":
		return newBlackfridayRenderer(), nil
	case "goldmark":
		return newGoldmarkRenderer(), nil
	}
	return nil, newError(ConfigurationError, "", "unknown markdown renderer %q", name)
}

const htmlFlags = blackfriday.UseXHTML |
	blackfriday.Smartypants |
	blackfriday.SmartypantsFractions |
	blackfriday.SmartypantsLatexDashes

const extensions = blackfriday.NoIntraEmphasis |
	blackfriday.Tables |
	blackfriday.FencedCode |
	blackfriday.Autolink |
	blackfriday.Strikethrough

type blackfridayHtmlRenderer struct {
	extensions blackfriday.Extensions
	params     blackfriday.HTMLRendererParameters
}

func newBlackfridayRenderer() renderer {
	return &blackfridayHtmlRenderer{
		extensions: extensions,
		params:     blackfriday.HTMLRendererParameters{Flags: htmlFlags},
	}
}

func (b *blackfridayHtmlRenderer) render(in []byte) (string, error) {
	// The HTML renderer keeps state between runs, so build one per call.
	r := blackfriday.NewHTMLRenderer(b.params)
	out := blackfriday.Run(stripHighlightDirectives(in),
		blackfriday.WithRenderer(r),
		blackfriday.WithExtensions(b.extensions))
	return string(out), nil
}

type goldmarkHtmlRenderer struct {
	md goldmark.Markdown
}

func newGoldmarkRenderer() renderer {
	return &goldmarkHtmlRenderer{
		md: goldmark.New(
			goldmark.WithExtensions(extension.GFM, extension.Typographer),
			goldmark.WithRendererOptions(
				html.WithXHTML(),
				html.WithUnsafe(),
			),
		),
	}
}

func (g *goldmarkHtmlRenderer) render(in []byte) (string, error) {
	var b bytes.Buffer
	if err := g.md.Convert(stripHighlightDirectives(in), &b); err != nil {
		return "", fmt.Errorf("rendering markdown: %w", err)
	}
	return b.String(), nil
}

// For now, just strip the highlighting directives.
func stripHighlightDirectives(text []byte) []byte {
	newText := bytes.NewBuffer(make([]byte, 0, len(text)))
	r := bufio.NewReader(bytes.NewReader(text))

	for {
		line, err := r.ReadBytes('\n')
		if !bytes.HasPrefix(bytes.TrimSpace(line), []byte("!highlight")) {
			newText.Write(line)
		}
		if err == io.EOF {
			break
		}
	}

	return newText.Bytes()
}
