package main

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"time"

	"github.com/radovskyb/watcher"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/term"
)

type options struct {
	cfgFile string
	clean   bool
	yes     bool
	serve   bool
	watch   bool
	verbose bool
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	code := run(ctx, os.Args[1:], os.Stdin, os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

// run executes the command line args and returns the process exit code.
func run(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	cmd := newRootCmd(stdin, stdout, stderr)
	cmd.SetArgs(args)
	return report(cmd.ExecuteContext(ctx), cmd, stderr)
}

func newRootCmd(stdin io.Reader, stdout, stderr io.Writer) *cobra.Command {
	var opts options
	cmd := &cobra.Command{
		Use:   "muaddib",
		Short: "muaddib builds a static blog",
		Long: `muaddib wraps the pages of the source directory in its page template
and the posts of the blog directory in its post template, minifies the
result and writes pages to the output directory and posts to
<year>/<month>/<day>/<slug>.html below it.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		Args: func(cmd *cobra.Command, args []string) error {
			if len(args) > 0 {
				return newError(InvalidCommand, "", "unexpected arguments %q", args)
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return execute(cmd, opts, stdin, stdout, stderr)
		},
	}
	cmd.SetIn(stdin)
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)
	cmd.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return &Error{Kind: InvalidCommand, Err: err}
	})

	flags := cmd.Flags()
	flags.StringVar(&opts.cfgFile, "config", "", "config file (default is ./muaddib.json)")
	flags.StringP("source", "s", "_src", "source directory")
	flags.StringP("blog", "b", "blog", "name of the blog directory inside the source directory")
	flags.BoolVarP(&opts.clean, "clean", "c", false, "delete the generated output")
	flags.BoolVarP(&opts.yes, "yes", "y", false, "clean without asking for confirmation")
	flags.BoolVar(&opts.serve, "serve", false, "serve the output directory on localhost after generating")
	flags.BoolVar(&opts.watch, "watch", false, "keep running and regenerate on changes to the source directory")
	flags.BoolVarP(&opts.verbose, "verbose", "v", false, "also log skipped files")
	return cmd
}

// report prints err the way the user should see it and maps it to an exit
// code.
func report(err error, cmd *cobra.Command, stderr io.Writer) int {
	if err == nil {
		return 0
	}
	switch {
	case IsKind(err, CleanAborted):
		fmt.Fprintln(stderr, "clean failed:", err)
		return 0
	case IsKind(err, InvalidCommand):
		fmt.Fprintln(stderr, "The arguments you entered are invalid:", err)
		fmt.Fprint(stderr, cmd.UsageString())
		return 2
	case IsKind(err, ConfigurationError):
		fmt.Fprintln(stderr, err)
		fmt.Fprint(stderr, cmd.UsageString())
		return 2
	}
	fmt.Fprintln(stderr, err)
	return 1
}

func execute(cmd *cobra.Command, opts options, stdin io.Reader, stdout, stderr io.Writer) error {
	if opts.clean && (opts.serve || opts.watch) {
		return newError(InvalidCommand, "", "--clean cannot be combined with --serve or --watch")
	}
	if opts.yes && !opts.clean {
		return newError(InvalidCommand, "", "--yes only applies to --clean")
	}

	log := newLogger(stderr, opts.verbose)
	defer log.Sync()

	conf, err := readConf(opts.cfgFile, cmd.Flags(), log)
	if err != nil {
		return err
	}

	if opts.clean {
		return cleanSite(conf, log, opts.yes, stdin, stdout)
	}

	ctx := cmd.Context()
	if err := renderSite(ctx, conf, log); err != nil {
		return err
	}

	if opts.watch && opts.serve {
		// Run watcher in background while serving
		go rerenderOnChange(ctx, conf, log)
	}

	if opts.serve {
		return serveSite(ctx, conf.OutDir, conf.Port, log)
	} else if opts.watch {
		return rerenderOnChange(ctx, conf, log)
	}
	return nil
}

type failedFilesError struct {
	failures []error
}

func (e *failedFilesError) Error() string {
	return fmt.Sprintf("%d file(s) could not be generated", len(e.failures))
}

func renderSite(ctx context.Context, conf *SiteConf, log *zap.SugaredLogger) error {
	site := NewSite(conf, log, time.Now())

	log.Infof("writing site to %v", conf.OutDir)
	result, err := site.Generate(ctx)
	if err != nil {
		return err
	}
	log.Infof("%d file(s) written, %d skipped", len(result.Written), len(result.Skipped))
	if result.Failed() {
		return &failedFilesError{failures: result.Failures}
	}
	return nil
}

func cleanSite(conf *SiteConf, log *zap.SugaredLogger, yes bool, stdin io.Reader, stdout io.Writer) error {
	var confirm func([]string) (bool, error)
	if !yes {
		if f, ok := stdin.(*os.File); ok && !term.IsTerminal(int(f.Fd())) {
			return newError(CleanAborted, "", "stdin is not a terminal, pass --yes to clean without confirmation")
		}
		confirm = promptConfirm(stdin, stdout)
	}

	site := NewSite(conf, log, time.Now())
	removed, err := site.Clean(confirm)
	if err != nil {
		return err
	}
	log.Infof("%d file(s) removed", len(removed))
	return nil
}

func serveSite(ctx context.Context, dir string, port int, log *zap.SugaredLogger) error {
	mux := http.NewServeMux()
	mux.Handle("/", http.FileServer(http.Dir(dir)))
	server := &http.Server{
		Addr:    "localhost:" + strconv.Itoa(port),
		Handler: mux,
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		server.Shutdown(shutdownCtx)
	}()

	log.Infof("serving %v on %v", dir, server.Addr)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// rerenderOnChange blocks until ctx is done. Render failures are logged, not
// returned. Output written below the source directory is not watched.
func rerenderOnChange(ctx context.Context, conf *SiteConf, log *zap.SugaredLogger) error {
	w, err := newSourceWatcher(conf)
	if err != nil {
		return err
	}
	log.Infof("watching %v for changes...", conf.SourceDir)

	go func() {
		for {
			select {
			case <-w.Event:
				if err := renderSite(ctx, conf, log); err != nil {
					log.Errorf("%v", err)
				}
			case err := <-w.Error:
				log.Errorf("%v", err)
			case <-w.Closed:
				return
			}
		}
	}()

	go func() {
		w.Wait()
		<-ctx.Done()
		w.Close()
	}()

	return w.Start(time.Millisecond * 200)
}

// newSourceWatcher watches the source tree minus any output directory
// inside it, so our own writes do not trigger another render.
func newSourceWatcher(conf *SiteConf) (*watcher.Watcher, error) {
	w := watcher.New()
	w.SetMaxEvents(1)
	if err := w.AddRecursive(conf.SourceDir); err != nil {
		return nil, err
	}
	for _, dir := range []string{conf.OutDir, conf.CssOutDir} {
		if within(dir, conf.SourceDir) && !sameFile(dir, conf.SourceDir) {
			if err := w.Ignore(dir); err != nil {
				return nil, err
			}
		}
	}
	return w, nil
}
