// Command muaddib is a static blog generator for a single author. It
// wraps the pages of a source tree in a page template, the posts of its
// blog directory in a post template, and writes minified HTML into a
// date-partitioned output tree.
//
// Templates use <$TITLE>, <$BODY>, <$DATE> (posts only) and <$YEAR>
// placeholders. Posts are named YYYY-MM-DD-slug.md or .html.
//
// HTML sources are body fragments, not documents. They are parsed as the
// content of <body>, so <html>, <head> and <body> tags are dropped and
// head elements such as <title> end up in the body. Titles come from the
// first <h1> only.
package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/otiai10/copy"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

type Site struct {
	conf      *SiteConf
	log       *zap.SugaredLogger
	universal substitutions
}

// NewSite prepares a generation run. now fixes the universal substitutions
// for every file of the run.
func NewSite(conf *SiteConf, logger *zap.SugaredLogger, now time.Time) *Site {
	return &Site{
		conf:      conf,
		log:       logger,
		universal: universalSubstitutions(now, conf.Substitutions),
	}
}

// Result of a generation run.
type Result struct {
	Written  []string
	Skipped  []string
	Failures []error
	Posts    posts
}

func (r *Result) Failed() bool { return len(r.Failures) > 0 }

// One unit of work found while walking the source tree.
type job struct {
	kind  entryKind
	entry sourceEntry
	dest  string

	// Set when the job must not run; reported as its failure.
	err error
}

// checkSources fails with a ConfigurationError unless the source root, the
// blog directory and both templates exist.
func (s *Site) checkSources() error {
	if err := requireDir(s.conf.SourceDir); err != nil {
		return err
	}
	if err := requireDir(s.conf.BlogPath()); err != nil {
		return err
	}
	for _, path := range []string{s.conf.PageTemplate, s.conf.PostTemplate} {
		info, err := os.Stat(path)
		if err != nil {
			return &Error{Kind: ConfigurationError, Path: path, Err: err}
		}
		if info.IsDir() {
			return newError(ConfigurationError, path, "template is a directory")
		}
	}
	return nil
}

func requireDir(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return &Error{Kind: ConfigurationError, Path: path, Err: err}
	}
	if !info.IsDir() {
		return newError(ConfigurationError, path, "not a directory")
	}
	return nil
}

// plan walks the source root and the blog directory and returns what a
// generation run would do, in a stable order. Nothing is written.
func (s *Site) plan() ([]job, []string, error) {
	entries, err := readSourceEntries(s.conf.SourceDir)
	if err != nil {
		return nil, nil, err
	}

	var jobs []job
	var skipped []string
	for _, e := range entries {
		switch s.classify(e) {
		case entryPage:
			jobs = append(jobs, job{kind: entryPage, entry: e, dest: pageDestination(s.conf.OutDir, e.Name)})
		case entryStylesheet:
			jobs = append(jobs, job{kind: entryStylesheet, entry: e, dest: filepath.Join(s.conf.CssOutDir, e.Name)})
		case entryBlogDir:
			postJobs, postSkipped, err := s.planBlog(e.Path)
			if err != nil {
				return nil, nil, err
			}
			jobs = append(jobs, postJobs...)
			skipped = append(skipped, postSkipped...)
		case entryDir:
			if !sameFile(e.Path, s.conf.StaticDir) {
				skipped = append(skipped, e.Path)
			}
		default:
			if !s.isTemplate(e.Path) {
				skipped = append(skipped, e.Path)
			}
		}
	}
	claimDestinations(jobs)
	return jobs, skipped, nil
}

// claimDestinations gives every destination to the first job that wants
// it. Later claimants, and jobs that would overwrite their own source,
// get an OutputConflict instead.
func claimDestinations(jobs []job) {
	owner := make(map[string]string, len(jobs))
	for i := range jobs {
		j := &jobs[i]
		if j.dest == "" {
			continue
		}
		if sameFile(j.dest, j.entry.Path) {
			j.err = newError(OutputConflict, j.entry.Path, "output would overwrite the source")
			continue
		}
		key := filepath.Clean(j.dest)
		if first, ok := owner[key]; ok {
			j.err = newError(OutputConflict, j.entry.Path, "%v is already written from %v", j.dest, first)
			continue
		}
		owner[key] = j.entry.Path
	}
}

func (s *Site) planBlog(dir string) ([]job, []string, error) {
	entries, err := readSourceEntries(dir)
	if err != nil {
		return nil, nil, err
	}

	var jobs []job
	var skipped []string
	for _, e := range entries {
		if e.IsDir || !isPageExt(e.Ext) {
			skipped = append(skipped, e.Path)
			continue
		}
		// A malformed name still gets a job; rendering reports the error.
		j := job{kind: entryBlogDir, entry: e}
		if meta, err := parsePostFilename(e.Name); err == nil {
			j.dest = postDestination(s.conf.OutDir, meta)
		}
		jobs = append(jobs, j)
	}
	return jobs, skipped, nil
}

// Generate renders the whole site. Configuration errors are returned
// before anything is written. A file that fails to render is recorded in
// Result.Failures and the walk goes on.
func (s *Site) Generate(ctx context.Context) (*Result, error) {
	if err := s.checkSources(); err != nil {
		return nil, err
	}
	if err := s.conf.checkOutput(); err != nil {
		return nil, err
	}

	toHtml, err := newMarkdownRenderer(s.conf.Markdown)
	if err != nil {
		return nil, err
	}
	mf := newMinifier()
	engine, err := newTemplateEngine(toHtml, mf, s.conf)
	if err != nil {
		return nil, err
	}

	jobs, skipped, err := s.plan()
	if err != nil {
		return nil, err
	}
	for _, path := range skipped {
		s.log.Debugf("skipping %v", path)
	}

	if err := os.MkdirAll(s.conf.OutDir, os.FileMode(0775)); err != nil {
		return nil, err
	}

	written := make([]string, len(jobs))
	rendered := make([]*post, len(jobs))
	failures := make([]error, len(jobs))

	group, groupctx := errgroup.WithContext(ctx)
	group.SetLimit(max(s.conf.Workers, 1))
	for i, j := range jobs {
		i, j := i, j
		group.Go(func() error {
			if err := groupctx.Err(); err != nil {
				return err
			}
			if j.err != nil {
				s.log.Errorf("%v", j.err)
				failures[i] = j.err
				return nil
			}
			var a artifact
			var err error
			isMarkdown := isMarkdownExt(j.entry.Ext)
			switch j.kind {
			case entryPage:
				a, err = engine.renderPage(j.entry.Path, isMarkdown, s.universal)
			case entryStylesheet:
				a, err = s.processCss(mf, j.entry.Path, j.dest)
			case entryBlogDir:
				a, rendered[i], err = engine.renderPost(j.entry.Path, isMarkdown, s.universal)
			}
			if err != nil {
				s.log.Errorf("%v", err)
				failures[i] = err
				return nil
			}
			s.log.Infof("wrote %v", a.Path)
			if rendered[i] != nil {
				s.log.Debugf("%v", rendered[i])
			}
			written[i] = a.Path
			return nil
		})
	}
	if err := group.Wait(); err != nil {
		return nil, err
	}

	result := &Result{Skipped: skipped}
	for i := range jobs {
		if failures[i] != nil {
			result.Failures = append(result.Failures, failures[i])
			continue
		}
		result.Written = append(result.Written, written[i])
		if rendered[i] != nil {
			result.Posts = append(result.Posts, rendered[i])
		}
	}
	sort.Sort(result.Posts)

	if err := s.CopyStaticFiles(); err != nil {
		result.Failures = append(result.Failures, err)
	}

	if s.conf.BaseUrl != "" && len(result.Posts) > 0 {
		path, err := s.RenderAtom(result.Posts)
		if err != nil {
			result.Failures = append(result.Failures, err)
		} else {
			s.log.Infof("wrote %v", path)
			result.Written = append(result.Written, path)
		}
	}

	return result, nil
}

func (s *Site) processCss(mf *minifier, sourcePath, dest string) (artifact, error) {
	raw, err := os.ReadFile(sourcePath)
	if err != nil {
		return artifact{}, err
	}
	text, err := mf.css(string(raw))
	if err != nil {
		return artifact{}, fmt.Errorf("minifying %v: %w", sourcePath, err)
	}
	if err := os.MkdirAll(filepath.Dir(dest), os.FileMode(0775)); err != nil {
		return artifact{}, err
	}
	if err := os.WriteFile(dest, []byte(text), os.FileMode(0664)); err != nil {
		return artifact{}, err
	}
	return artifact{Path: dest, Text: text}, nil
}

// CopyStaticFiles copies the static directory, if there is one, into the
// output root.
func (s *Site) CopyStaticFiles() error {
	srcDir := s.conf.StaticDir
	if srcDir == "" {
		return nil
	}
	if _, err := os.Stat(srcDir); errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	dest := s.conf.staticDest()
	s.log.Infof("recursively copying %v to %v", srcDir, dest)
	return copy.Copy(srcDir, dest)
}

// outputs lists the files and directories a generation run over the
// current source tree would create. Directories come deepest first.
func (s *Site) outputs() ([]string, []string, error) {
	var files, dirs []string
	if _, err := os.Stat(s.conf.SourceDir); err != nil {
		return nil, nil, &Error{Kind: ConfigurationError, Path: s.conf.SourceDir, Err: err}
	}
	if err := s.conf.checkOutput(); err != nil {
		return nil, nil, err
	}

	jobs, _, err := s.plan()
	if err != nil {
		return nil, nil, err
	}
	seen := make(map[string]bool)
	hasPosts := false
	for _, j := range jobs {
		if j.dest == "" || j.err != nil {
			continue
		}
		files = append(files, j.dest)
		switch j.kind {
		case entryBlogDir:
			hasPosts = true
			day := filepath.Dir(j.dest)
			month := filepath.Dir(day)
			year := filepath.Dir(month)
			for _, d := range []string{day, month, year} {
				if !seen[d] {
					seen[d] = true
					dirs = append(dirs, d)
				}
			}
		case entryStylesheet:
			if !seen[s.conf.CssOutDir] {
				seen[s.conf.CssOutDir] = true
				dirs = append(dirs, s.conf.CssOutDir)
				if parent := filepath.Dir(s.conf.CssOutDir); !sameFile(parent, s.conf.OutDir) {
					dirs = append(dirs, parent)
				}
			}
		}
	}
	if hasPosts && s.conf.BaseUrl != "" {
		files = append(files, s.feedPath())
	}

	// Children before parents, so emptied directories can go too.
	sort.SliceStable(dirs, func(i, j int) bool {
		return strings.Count(dirs[i], string(filepath.Separator)) > strings.Count(dirs[j], string(filepath.Separator))
	})
	return files, dirs, nil
}
