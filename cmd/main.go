// ctfscores encodes CTF scoreboards as tagged documents and decodes them
// back.
//
// Usage:
//
//	ctfscores [flags] [demo|reencode|generate]
//
// demo prints the encode/decode round-trip of a challenge, an event and a
// scores document. reencode reads a tagged document (--input or stdin) and
// writes it in --format. generate writes a random scores document.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/pflag"

	"github.com/okian/ctfscores/internal/adapters/repository"
	app "github.com/okian/ctfscores/internal/app"
	"github.com/okian/ctfscores/internal/codec"
	"github.com/okian/ctfscores/internal/config"
	"github.com/okian/ctfscores/internal/sample"
	"github.com/okian/ctfscores/pkg/logger"
	"github.com/okian/ctfscores/pkg/metrics"
)

// Commands.
const (
	cmdDemo     = "demo"
	cmdReencode = "reencode"
	cmdGenerate = "generate"
)

var errUsage = errors.New("usage")

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stdin, os.Stdout, os.Stderr); err != nil {
		if !errors.Is(err, pflag.ErrHelp) {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
		}
		stop()
		os.Exit(exitCode(err))
	}
}

func exitCode(err error) int {
	switch {
	case err == nil, errors.Is(err, pflag.ErrHelp):
		return 0
	case errors.Is(err, errUsage), errors.Is(err, config.ErrInvalidConfig):
		return 2
	default:
		return 1
	}
}

// flags holds the command line; zero values mean "not given" and are
// checked with FlagSet.Changed before overriding configuration.
type flags struct {
	format     string
	from       string
	indent     string
	input      string
	output     string
	events     int
	challenges int
	seed       int64
	metrics    bool
	logLevel   string
}

func newFlagSet(stderr io.Writer, f *flags) *pflag.FlagSet {
	fs := pflag.NewFlagSet("ctfscores", pflag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.StringVar(&f.format, "format", "", "output format: json, yaml or cbor")
	fs.StringVar(&f.from, "from", "", "input format for reencode (default: --format)")
	fs.StringVar(&f.indent, "indent", "", "indent string for pretty-printed JSON/YAML")
	fs.StringVarP(&f.input, "input", "i", "", "read the document from this file instead of stdin")
	fs.StringVarP(&f.output, "output", "o", "", "write to this file instead of stdout")
	fs.IntVar(&f.events, "events", 0, "events in a generated document")
	fs.IntVar(&f.challenges, "challenges", 0, "maximum challenges per generated event")
	fs.Int64Var(&f.seed, "seed", 0, "generator seed (0: time-based)")
	fs.BoolVar(&f.metrics, "metrics", false, "dump metrics to stderr on exit")
	fs.StringVar(&f.logLevel, "log-level", "", "debug, info, warn or error")
	fs.Usage = func() {
		fmt.Fprintf(stderr, "Usage: ctfscores [flags] [%s|%s|%s]\n\nFlags:\n", cmdDemo, cmdReencode, cmdGenerate)
		fs.PrintDefaults()
	}
	return fs
}

// apply overrides cfg with every flag given on the command line.
func (f *flags) apply(fs *pflag.FlagSet, cfg *config.Config) error {
	if fs.Changed("format") {
		cfg.Format = f.format
	}
	if fs.Changed("from") {
		cfg.InputFormat = f.from
	}
	if fs.Changed("indent") {
		cfg.Indent = f.indent
	}
	if fs.Changed("input") {
		cfg.Input = f.input
	}
	if fs.Changed("output") {
		cfg.Output = f.output
	}
	if fs.Changed("events") {
		cfg.Events = f.events
	}
	if fs.Changed("challenges") {
		cfg.Challenges = f.challenges
	}
	if fs.Changed("seed") {
		cfg.Seed = f.seed
	}
	if fs.Changed("metrics") {
		cfg.PrintMetrics = f.metrics
	}
	if fs.Changed("log-level") {
		cfg.LogLevel = f.logLevel
	}
	return cfg.Validate()
}

func run(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer) (err error) {
	var f flags
	fs := newFlagSet(stderr, &f)
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return err
		}
		return fmt.Errorf("%w: %w", errUsage, err)
	}

	command := cmdDemo
	switch rest := fs.Args(); len(rest) {
	case 0:
	case 1:
		command = rest[0]
	default:
		return fmt.Errorf("%w: unexpected argument %q", errUsage, rest[1])
	}
	switch command {
	case cmdDemo, cmdReencode, cmdGenerate:
	default:
		return fmt.Errorf("%w: unknown command %q", errUsage, command)
	}

	if err := logger.InitWithWriter(stderr); err != nil {
		return err
	}
	log := logger.Named("ctfscores")

	// Load configuration (defaults -> optional file -> env -> flags)
	cfg, err := config.Load(ctx)
	if err != nil {
		return err
	}
	if err := f.apply(fs, cfg); err != nil {
		return err
	}

	// Apply configured log level (fallback to info on invalid input)
	if err := logger.SetLevelString(cfg.LogLevel); err != nil {
		log.Warn(ctx, "invalid log_level; falling back to info", logger.String("log_level", cfg.LogLevel), logger.Error(err))
		_ = logger.SetLevelString("info")
	}

	start := time.Now()
	defer func() {
		result := "ok"
		if err != nil {
			result = "error"
		}
		metrics.RecordCommandRun(command, result)
		log.Debug(ctx, "command finished",
			logger.String("command", command),
			logger.String("result", result),
			logger.Duration("elapsed", time.Since(start)),
		)
		if cfg.PrintMetrics {
			if werr := metrics.WriteText(stderr); werr != nil {
				log.Warn(ctx, "metrics dump failed", logger.Error(werr))
			}
		}
	}()

	svc, err := newService(cfg, log, command)
	if err != nil {
		return err
	}
	defer func() {
		log.Debug(ctx, "service stats", logger.Any("stats", svc.Stats()))
	}()

	switch command {
	case cmdReencode:
		data, err := readInput(cfg.Input, stdin)
		if err != nil {
			return err
		}
		return svc.Reencode(ctx, data, stdout)
	case cmdGenerate:
		return svc.Generate(ctx, stdout)
	default:
		return runDemo(ctx, svc, cfg.Output, stdout)
	}
}

// newService wires the codecs, generator and, for commands that write a
// scores document to --output, the file store.
func newService(cfg *config.Config, log logger.Logger, command string) (*app.Service, error) {
	codecLog := log.Named("codec")
	out := codec.New(
		codec.WithFormat(codec.Format(cfg.Format)),
		codec.WithIndent(cfg.Indent),
		codec.WithLogger(codecLog),
	)
	in := codec.New(codec.WithFormat(codec.Format(cfg.SourceFormat())), codec.WithLogger(codecLog))

	genOpts := []sample.Option{
		sample.WithEvents(cfg.Events),
		sample.WithChallenges(cfg.Challenges),
	}
	if cfg.Seed != 0 {
		genOpts = append(genOpts, sample.WithSeed(cfg.Seed))
	}

	opts := []app.Option{
		app.WithLogger(log.Named("service")),
		app.WithCodec(out),
		app.WithInputCodec(in),
		app.WithGenerator(sample.NewGenerator(genOpts...)),
	}
	if cfg.Output != "" && command != cmdDemo {
		store, err := repository.NewFileStore(cfg.Output, repository.WithCodec(out))
		if err != nil {
			return nil, err
		}
		opts = append(opts, app.WithStore(store))
	}
	return app.New(opts...), nil
}

func runDemo(ctx context.Context, svc *app.Service, output string, stdout io.Writer) error {
	if output == "" {
		return svc.Demo(ctx, stdout)
	}
	f, err := os.Create(output)
	if err != nil {
		return err
	}
	if err := svc.Demo(ctx, f); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}

func readInput(path string, stdin io.Reader) ([]byte, error) {
	if path == "" {
		data, err := io.ReadAll(stdin)
		if err != nil {
			return nil, fmt.Errorf("read stdin: %w", err)
		}
		return data, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read input: %w", err)
	}
	return data, nil
}
