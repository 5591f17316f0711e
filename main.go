package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/alecthomas/kong"
	"github.com/charmbracelet/log"
	"github.com/mattn/go-isatty"

	"github.com/mcncl/jsonview/internal/analyzer"
	"github.com/mcncl/jsonview/internal/config"
	"github.com/mcncl/jsonview/internal/errors"
	"github.com/mcncl/jsonview/internal/formatter"
	"github.com/mcncl/jsonview/internal/logging"
	"github.com/mcncl/jsonview/internal/parser"
	"github.com/mcncl/jsonview/internal/search"
	"github.com/mcncl/jsonview/internal/session"
	"github.com/mcncl/jsonview/internal/tree"
	"github.com/mcncl/jsonview/internal/tui"
	"github.com/mcncl/jsonview/internal/watch"
	"github.com/mcncl/jsonview/internal/web"
)

// CLI defines the command-line interface
var CLI struct {
	Input  string `help:"Path to input JSON file. If not specified, reads from stdin when piped." short:"i" type:"path"`
	Config string `help:"Path to config file. Defaults to the nearest .jsonview.yml." short:"c" type:"path"`
	Output string `help:"Write --format output to this file instead of stdout." short:"o" type:"path"`

	Debug   bool `help:"Enable debug logging." short:"d"`
	Version bool `help:"Show version information." short:"v"`

	Web   bool   `help:"Serve the viewer over HTTP instead of the terminal UI."`
	Addr  string `help:"Listen address for --web (default :8080)."`
	Watch bool   `help:"Reload the input file whenever it changes."`

	Print    bool   `help:"Print the tree and exit."`
	Format   bool   `help:"Pretty-print the input with a two-space indent and exit."`
	Validate bool   `help:"Check that the input is valid JSON and exit."`
	Search   string `help:"Print the paths of nodes matching this text and exit."`
	Stats    bool   `help:"Print document statistics and exit."`

	Theme         string `help:"Color theme: light, dark or original-dark."`
	AllowComments bool   `help:"Accept comments and trailing commas in the input." name:"allow-comments"`
	RevealLimit   int    `help:"Number of array elements shown before 'Show more'." name:"reveal-limit"`
}

// Context holds the runtime context
type Context struct {
	Debug  bool
	Config *config.Config
	Logger *log.Logger

	// Stdin is nil unless the document is piped in.
	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer
	// Color enables syntax highlighting on Stdout.
	Color bool
}

// Version information
const (
	Version = "0.1.0"
)

func main() {
	app := kong.Must(&CLI,
		kong.Name("jsonview"),
		kong.Description("An interactive JSON tree viewer"),
		kong.UsageOnError(),
	)

	if _, err := app.Parse(os.Args[1:]); err != nil {
		app.FatalIfErrorf(err)
	}

	if CLI.Version {
		fmt.Printf("jsonview version %s\n", Version)
		return
	}

	configPath := CLI.Config
	if configPath == "" {
		configPath = config.FindConfigFile()
	}
	cfg, err := config.LoadConfigWithCLI(configPath, cliConfig())
	if err != nil {
		fail(err)
	}

	logOpts := logging.Options{Level: cfg.Log.Level, Debug: CLI.Debug, File: cfg.Log.File}
	if batchMode() || CLI.Web {
		// The terminal UI owns the screen; everything else can log to stderr.
		logOpts.Fallback = os.Stderr
	}
	logger, closeLog, err := logging.Open(logOpts)
	if err != nil {
		fail(errors.NewConfigError(err.Error(), err))
	}
	defer func() { _ = closeLog() }()

	ctx := &Context{
		Debug:  CLI.Debug,
		Config: cfg,
		Logger: logger,
		Stdout: os.Stdout,
		Stderr: os.Stderr,
		Color:  isTerminal(os.Stdout) && os.Getenv("NO_COLOR") == "",
	}
	if !isTerminal(os.Stdin) {
		ctx.Stdin = os.Stdin
	}

	if err := run(ctx); err != nil {
		_ = closeLog()
		fail(err)
	}
}

func fail(err error) {
	fmt.Fprintf(os.Stderr, "%s\n", errors.UserFriendlyError(err))
	fmt.Fprintf(os.Stderr, "\nFor help, run: jsonview --help\n")
	os.Exit(1)
}

func isTerminal(f *os.File) bool {
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

// cliConfig collects the flags that override config file settings.
func cliConfig() *config.Config {
	c := &config.Config{
		RevealLimit: CLI.RevealLimit,
		Theme:       CLI.Theme,
	}
	c.Parser.AllowComments = CLI.AllowComments
	c.Web.Addr = CLI.Addr
	if CLI.Debug {
		c.Log.Level = "debug"
	}
	return c
}

func batchMode() bool {
	return CLI.Print || CLI.Format || CLI.Validate || CLI.Stats || CLI.Search != ""
}

// run executes the main program logic
func run(ctx *Context) error {
	text, err := readInput(ctx)
	if err != nil {
		return err
	}

	switch {
	case CLI.Validate:
		return runValidate(ctx, text)
	case CLI.Format:
		return runFormat(ctx, text)
	case CLI.Search != "":
		return runSearch(ctx, text, CLI.Search)
	case CLI.Stats:
		return runStats(ctx, text)
	case CLI.Print:
		return runPrint(ctx, text)
	case CLI.Web:
		return runWeb(ctx, text)
	default:
		return runTUI(ctx, text)
	}
}

// readInput reads the document from the input file or piped stdin. It
// returns "" when neither is given.
func readInput(ctx *Context) (string, error) {
	if CLI.Input != "" {
		data, err := os.ReadFile(CLI.Input)
		if err != nil {
			if os.IsNotExist(err) {
				return "", errors.NewInputError(fmt.Sprintf("file '%s' not found", CLI.Input), errors.ErrFileNotFound)
			}
			return "", errors.NewInputError(fmt.Sprintf("failed to read file '%s'", CLI.Input), err)
		}
		ctx.Logger.Debug("read input file", "path", CLI.Input, "bytes", len(data))
		return string(data), nil
	}

	if ctx.Stdin == nil {
		return "", nil
	}
	data, err := io.ReadAll(ctx.Stdin)
	if err != nil {
		return "", errors.NewInputError("failed to read from stdin", err)
	}
	return string(data), nil
}

func requireInput(text string) error {
	if strings.TrimSpace(text) == "" {
		return errors.NewInputError("no input provided", errors.ErrEmptyInput)
	}
	return nil
}

func newParser(ctx *Context) *parser.Parser {
	return parser.New(parser.Options{AllowComments: ctx.Config.Parser.AllowComments})
}

func sessionOptions(ctx *Context) session.Options {
	return session.Options{
		Debounce:      ctx.Config.Debounce(),
		RevealLimit:   ctx.Config.RevealLimit,
		AllowComments: ctx.Config.Parser.AllowComments,
		DownloadName:  ctx.Config.Download.FileName,
		Logger:        ctx.Logger,
	}
}

func runValidate(ctx *Context, text string) error {
	if err := requireInput(text); err != nil {
		return err
	}
	if _, err := newParser(ctx).ParseString(text); err != nil {
		return errors.NewValidateError(errors.Reason(err), err)
	}
	_, err := fmt.Fprintln(ctx.Stdout, session.MsgValid)
	return err
}

func runFormat(ctx *Context, text string) error {
	if err := requireInput(text); err != nil {
		return err
	}
	f := formatter.NewFormatter(formatter.WithParser(newParser(ctx)))
	out, err := f.FormatText(text)
	if err != nil {
		return err
	}
	return writeOutput(ctx, out)
}

// writeOutput writes formatted JSON to the output file, or to stdout with
// highlighting when stdout is a terminal.
func writeOutput(ctx *Context, out string) error {
	if CLI.Output != "" {
		if err := os.WriteFile(CLI.Output, []byte(out), 0o644); err != nil {
			return errors.NewOutputError(fmt.Sprintf("failed to write to file '%s'", CLI.Output), err)
		}
		fmt.Fprintf(ctx.Stderr, "Formatted JSON written to %s\n", CLI.Output)
		return nil
	}

	if ctx.Color {
		if err := formatter.Highlight(ctx.Stdout, out, formatter.StyleFor(ctx.Config.Theme)); err != nil {
			return errors.NewOutputError("failed to write to stdout", err)
		}
		_, err := fmt.Fprintln(ctx.Stdout)
		return err
	}
	if _, err := fmt.Fprintln(ctx.Stdout, out); err != nil {
		return errors.NewOutputError("failed to write to stdout", err)
	}
	return nil
}

func buildTree(ctx *Context, text string) (*tree.Node, error) {
	if err := requireInput(text); err != nil {
		return nil, err
	}
	doc, err := newParser(ctx).ParseString(text)
	if err != nil {
		return nil, err
	}
	p := logging.Start(ctx.Logger)
	root := tree.NewBuilder(tree.Options{RevealLimit: ctx.Config.RevealLimit}).Root(doc.Root)
	p.Done("built tree", "nodes", tree.Count(root))
	return root, nil
}

func runPrint(ctx *Context, text string) error {
	root, err := buildTree(ctx, text)
	if err != nil {
		return err
	}
	for _, row := range tree.Visible(root) {
		line := row.Node.Header()
		if row.More {
			line = tree.MoreText(row.Node.Hidden())
		}
		if _, err := fmt.Fprintf(ctx.Stdout, "%s%s\n", strings.Repeat("  ", row.Depth), line); err != nil {
			return errors.NewOutputError("failed to write to stdout", err)
		}
	}
	return nil
}

func runSearch(ctx *Context, text, query string) error {
	root, err := buildTree(ctx, text)
	if err != nil {
		return err
	}
	c := search.Search(root, query)
	for _, n := range c.Matches() {
		fmt.Fprintf(ctx.Stdout, "%s\t%s\n", tree.DisplayPath(n), n.Header())
	}
	if c.Len() == 0 {
		fmt.Fprintln(ctx.Stderr, c.Status())
	}
	return nil
}

func runStats(ctx *Context, text string) error {
	if err := requireInput(text); err != nil {
		return err
	}
	doc, err := newParser(ctx).ParseString(text)
	if err != nil {
		return err
	}
	stats := analyzer.NewAnalyzer(ctx.Config.RevealLimit).Analyze(doc.Root)
	for _, line := range stats.Lines() {
		if _, err := fmt.Fprintln(ctx.Stdout, line); err != nil {
			return errors.NewOutputError("failed to write to stdout", err)
		}
	}
	return nil
}

func runWeb(ctx *Context, text string) error {
	sigCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	runCtx := logging.WithLogger(sigCtx, ctx.Logger)

	srv := web.NewServer(web.Options{
		Addr:       ctx.Config.Web.Addr,
		Theme:      ctx.Config.Theme,
		Session:    sessionOptions(ctx),
		Initial:    text,
		SessionTTL: ctx.Config.SessionTTL(),
		Logger:     logging.FromContext(runCtx),
	})
	fmt.Fprintf(ctx.Stderr, "Serving jsonview at http://localhost%s\n", srv.Addr())
	return srv.ListenAndServe(runCtx)
}

func runTUI(ctx *Context, text string) error {
	sess := session.New(sessionOptions(ctx))
	defer sess.Close()

	if text != "" {
		sess.SetInput(text)
	} else {
		sess.LoadSample()
	}

	if CLI.Watch {
		if CLI.Input == "" {
			return errors.NewInputError("--watch needs --input", errors.ErrInvalidFilePath)
		}
		w, err := watch.New(CLI.Input, sess, ctx.Logger)
		if err != nil {
			return errors.NewInputError(fmt.Sprintf("cannot watch '%s'", CLI.Input), err)
		}
		watchCtx, cancel := context.WithCancel(context.Background())
		defer cancel()
		go w.Start(watchCtx)
	}

	return tui.Run(sess, tui.Options{
		Theme:       ctx.Config.Theme,
		DownloadDir: ctx.Config.Download.Dir,
		Logger:      ctx.Logger,
		InputTTY:    ctx.Stdin != nil,
	})
}
