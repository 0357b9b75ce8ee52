package main

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// Placeholder names understood by the templates.
const (
	keyBody  = "BODY"
	keyTitle = "TITLE"
	keyDate  = "DATE"
	keyYear  = "YEAR"
)

// Placeholders are written <$KEY> in templates. Keys never contain '>',
// so no token is a prefix of another.
func placeholder(key string) string {
	return "<$" + key + ">"
}

func validPlaceholderKey(key string) bool {
	if key == "" {
		return false
	}
	for _, r := range key {
		if !(r == '_' || r >= 'A' && r <= 'Z' || r >= 'a' && r <= 'z' || r >= '0' && r <= '9') {
			return false
		}
	}
	return true
}

// Maps placeholder keys to their replacement text.
type substitutions map[string]string

// with returns a copy of s extended by the given key/value pairs.
func (s substitutions) with(kv ...string) substitutions {
	out := make(substitutions, len(s)+len(kv)/2)
	for k, v := range s {
		out[k] = v
	}
	for i := 0; i+1 < len(kv); i += 2 {
		out[kv[i]] = kv[i+1]
	}
	return out
}

func (s substitutions) keys() []string {
	keys := make([]string, 0, len(s))
	for k := range s {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// universalSubstitutions are the values every page and post gets. Computed
// once per run; extra overrides the computed ones.
func universalSubstitutions(now time.Time, extra map[string]string) substitutions {
	s := substitutions{keyYear: strconv.Itoa(now.Year())}
	for k, v := range extra {
		s[k] = v
	}
	return s
}

// substitute replaces every <$KEY> token in template with values[KEY] in a
// single pass over the template. Replacement text is never rescanned, and
// tokens with no value are left as they are.
func substitute(template string, values substitutions) string {
	if len(values) == 0 {
		return template
	}
	oldnew := make([]string, 0, 2*len(values))
	for _, k := range values.keys() {
		oldnew = append(oldnew, placeholder(k), values[k])
	}
	return strings.NewReplacer(oldnew...).Replace(template)
}

// extractTitle finds the first <h1> in doc and returns its text along with
// doc minus that element. The title is plain text with entities decoded;
// escape it before putting it into markup.
func extractTitle(doc string) (title, body string, err error) {
	context := &html.Node{Type: html.ElementNode, Data: "body", DataAtom: atom.Body}
	nodes, err := html.ParseFragment(strings.NewReader(doc), context)
	if err != nil {
		return "", "", fmt.Errorf("parsing html: %w", err)
	}

	var h1 *html.Node
	index := -1
	for i, n := range nodes {
		if h1 = findElement(n, atom.H1); h1 != nil {
			index = i
			break
		}
	}
	if h1 == nil {
		return "", "", newError(MissingTitle, "", "no <h1> element")
	}

	title = strings.TrimSpace(textContent(h1))
	if h1.Parent != nil {
		h1.Parent.RemoveChild(h1)
	} else {
		nodes = append(nodes[:index], nodes[index+1:]...)
	}

	var b bytes.Buffer
	for _, n := range nodes {
		if err := html.Render(&b, n); err != nil {
			return "", "", fmt.Errorf("rendering html: %w", err)
		}
	}
	return title, b.String(), nil
}

// Depth-first, document order.
func findElement(n *html.Node, a atom.Atom) *html.Node {
	if n.Type == html.ElementNode && n.DataAtom == a {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if found := findElement(c, a); found != nil {
			return found
		}
	}
	return nil
}

func textContent(n *html.Node) string {
	if n.Type == html.TextNode {
		return n.Data
	}
	var b strings.Builder
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		b.WriteString(textContent(c))
	}
	return b.String()
}

// The minified output of one render and where it went.
type artifact struct {
	Path string
	Text string
}

type templateEngine struct {
	toHtml       renderer
	minify       *minifier
	outDir       string
	pageTemplate string
	postTemplate string
}

// newTemplateEngine reads both templates. A missing template is a
// configuration error for the whole run.
func newTemplateEngine(r renderer, m *minifier, conf *SiteConf) (*templateEngine, error) {
	pageText, err := readTemplate(conf.PageTemplate)
	if err != nil {
		return nil, err
	}
	postText, err := readTemplate(conf.PostTemplate)
	if err != nil {
		return nil, err
	}
	return &templateEngine{
		toHtml:       r,
		minify:       m,
		outDir:       conf.OutDir,
		pageTemplate: pageText,
		postTemplate: postText,
	}, nil
}

func readTemplate(path string) (string, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return "", &Error{Kind: ConfigurationError, Path: path, Err: err}
	}
	return string(b), nil
}

// content reads a source file, renders it to HTML if it is Markdown and
// splits off the title.
func (te *templateEngine) content(sourcePath string, isMarkdown bool) (title, body string, err error) {
	raw, err := os.ReadFile(sourcePath)
	if err != nil {
		return "", "", fmt.Errorf("reading %v: %w", sourcePath, err)
	}

	doc := string(raw)
	if isMarkdown {
		doc, err = te.toHtml.render(raw)
		if err != nil {
			return "", "", fmt.Errorf("%v: %w", sourcePath, err)
		}
	}

	title, body, err = extractTitle(doc)
	if err != nil {
		if e, ok := err.(*Error); ok {
			e.Path = sourcePath
			return "", "", e
		}
		return "", "", fmt.Errorf("%v: %w", sourcePath, err)
	}
	return title, body, nil
}

func (te *templateEngine) finish(template string, values substitutions, dest string) (artifact, error) {
	text, err := te.minify.html(substitute(template, values))
	if err != nil {
		return artifact{}, fmt.Errorf("minifying %v: %w", dest, err)
	}
	if err := os.WriteFile(dest, []byte(text), os.FileMode(0664)); err != nil {
		return artifact{}, err
	}
	return artifact{Path: dest, Text: text}, nil
}

func pageDestination(outDir, sourceName string) string {
	return filepath.Join(outDir, htmlName(sourceName))
}

func postDestination(outDir string, m postMetadata) string {
	return filepath.Join(outDir, filepath.FromSlash(m.RelPath()))
}

// renderPage writes a standalone page next to the other top-level output.
func (te *templateEngine) renderPage(sourcePath string, isMarkdown bool, universal substitutions) (artifact, error) {
	title, body, err := te.content(sourcePath, isMarkdown)
	if err != nil {
		return artifact{}, err
	}

	values := universal.with(keyBody, body, keyTitle, html.EscapeString(title))
	return te.finish(te.pageTemplate, values, pageDestination(te.outDir, filepath.Base(sourcePath)))
}

// renderPost writes a post to <year>/<month>/<day>/<slug>, creating the
// date directories as needed.
func (te *templateEngine) renderPost(sourcePath string, isMarkdown bool, universal substitutions) (artifact, *post, error) {
	meta, err := parsePostFilename(filepath.Base(sourcePath))
	if err != nil {
		if e, ok := err.(*Error); ok {
			e.Path = sourcePath
		}
		return artifact{}, nil, err
	}

	title, body, err := te.content(sourcePath, isMarkdown)
	if err != nil {
		return artifact{}, nil, err
	}

	dest := postDestination(te.outDir, meta)
	if err := os.MkdirAll(filepath.Dir(dest), os.FileMode(0775)); err != nil {
		return artifact{}, nil, err
	}

	values := universal.with(keyBody, body, keyTitle, html.EscapeString(title), keyDate, meta.DateString())
	a, err := te.finish(te.postTemplate, values, dest)
	if err != nil {
		return artifact{}, nil, err
	}

	return a, &post{
		Title:      title,
		Meta:       meta,
		SourcePath: sourcePath,
		OutPath:    dest,
		Body:       body,
	}, nil
}
