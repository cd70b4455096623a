// Package main provides the albumsplit command line tool.
//
//	albumsplit analyze [-min-silence MS] [-threshold DB] [-detector NAME] FILE
//	albumsplit split [-points FILE|-] [-format FMT] [-min-segment MS] [-out DIR] FILE
//
// analyze prints suggested split points as editable "MM:SS " lines. split
// reads "MM:SS label" lines and writes one track per segment.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/maauso/albumsplit/internal/album"
	"github.com/maauso/albumsplit/internal/bootstrap"
	"github.com/maauso/albumsplit/internal/config"
)

// errUsage is returned for malformed command lines.
var errUsage = errors.New("usage: albumsplit analyze|split [flags] FILE")

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stdin, os.Stdout, os.Stderr); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		if errors.Is(err, errUsage) || errors.Is(err, flag.ErrHelp) {
			os.Exit(2)
		}
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer) error {
	if len(args) == 0 {
		return errUsage
	}

	if err := config.LoadDotEnv(); err != nil {
		return err
	}
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	switch args[0] {
	case "analyze":
		return analyze(ctx, cfg, args[1:], stdout, stderr)
	case "split":
		return split(ctx, cfg, args[1:], stdin, stdout, stderr)
	default:
		return fmt.Errorf("%w: unknown command %q", errUsage, args[0])
	}
}

func analyze(ctx context.Context, cfg *config.Config, args []string, stdout, stderr io.Writer) error {
	fs := flag.NewFlagSet("analyze", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.IntVar(&cfg.SilenceMinMs, "min-silence", cfg.SilenceMinMs, "minimum silence length in milliseconds")
	fs.Float64Var(&cfg.SilenceThresholdDB, "threshold", cfg.SilenceThresholdDB, "silence threshold in dBFS")
	fs.StringVar(&cfg.SilenceDetector, "detector", cfg.SilenceDetector, "silence detector: amplitude or ffmpeg")

	path, err := parseFile(fs, args)
	if err != nil {
		return err
	}

	albums, err := newAlbumService(ctx, cfg, stderr)
	if err != nil {
		return err
	}

	a, err := albums.Load(ctx, path)
	if err != nil {
		return err
	}
	out, err := albums.Analyze(ctx, a)
	if err != nil {
		return err
	}

	if out.Text != "" {
		_, err = fmt.Fprintln(stdout, out.Text)
	}
	return err
}

func split(ctx context.Context, cfg *config.Config, args []string, stdin io.Reader, stdout, stderr io.Writer) error {
	var pointsPath, outDir string

	fs := flag.NewFlagSet("split", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.StringVar(&pointsPath, "points", "-", `file with "MM:SS label" lines, "-" for stdin`)
	fs.StringVar(&cfg.OutputFormat, "format", cfg.OutputFormat, "output format")
	fs.IntVar(&cfg.MinSegmentMs, "min-segment", cfg.MinSegmentMs, "shortest segment kept, in milliseconds")
	fs.StringVar(&outDir, "out", "", "output directory (default: next to FILE, named after the album)")

	path, err := parseFile(fs, args)
	if err != nil {
		return err
	}

	text, err := readPoints(pointsPath, stdin)
	if err != nil {
		return err
	}

	albums, err := newAlbumService(ctx, cfg, stderr)
	if err != nil {
		return err
	}

	a, err := albums.Load(ctx, path)
	if err != nil {
		return err
	}
	out, err := albums.Split(ctx, a, album.SplitInput{Text: text, OutputDir: outDir})
	if out != nil {
		for _, t := range out.Tracks {
			if t.URL != "" {
				fmt.Fprintf(stdout, "%s\t%s\n", t.Path, t.URL)
				continue
			}
			fmt.Fprintln(stdout, t.Path)
		}
	}
	return err
}

// parseFile parses flags and returns the single positional FILE.
func parseFile(fs *flag.FlagSet, args []string) (string, error) {
	if err := fs.Parse(args); err != nil {
		return "", err
	}
	if fs.NArg() != 1 {
		return "", fmt.Errorf("%w: %s expects exactly one FILE", errUsage, fs.Name())
	}
	return fs.Arg(0), nil
}

func readPoints(path string, stdin io.Reader) (string, error) {
	if path == "-" {
		data, err := io.ReadAll(stdin)
		if err != nil {
			return "", fmt.Errorf("read points: %w", err)
		}
		return string(data), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read points: %w", err)
	}
	return string(data), nil
}

// newAlbumService validates flag overrides and wires the album service.
// Logs go to stderr so stdout stays machine readable.
func newAlbumService(ctx context.Context, cfg *config.Config, stderr io.Writer) (*album.Service, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	deps, err := bootstrap.NewDependencies(ctx, cfg, cfg.NewLoggerTo(stderr))
	if err != nil {
		return nil, fmt.Errorf("initialize dependencies: %w", err)
	}
	return deps.AlbumService, nil
}
