// Command modstrings extracts translatable strings from game mod files.
//
// Usage:
//
//	modstrings scan [flags] PATH|URL...
//	modstrings datadir [flags] DIR
//	modstrings list [flags] ARCHIVE|URL
//	modstrings extract [flags] ARCHIVE|URL PATTERN...
//
// scan and datadir print one JSON object per extracted string. Archives
// may be given as http(s) URLs and are then read with range requests.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"text/tabwriter"

	"golang.org/x/text/encoding/ianaindex"

	"github.com/meigma/modstrings"
)

const usage = `usage: modstrings <command> [flags] [args]

commands:
  scan      extract strings from plugins, scripts, translation files, and archives
  datadir   extract strings from a game data directory
  list      list the members of an archive
  extract   write archive members matching glob patterns to a directory
`

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	err := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	if err != nil {
		fmt.Fprintln(os.Stderr, "modstrings:", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	if len(args) == 0 {
		fmt.Fprint(stderr, usage)
		return errors.New("missing command")
	}
	cmd, rest := args[0], args[1:]
	switch cmd {
	case "scan":
		return runScan(ctx, rest, stdout, stderr)
	case "datadir":
		return runDataDir(ctx, rest, stdout, stderr)
	case "list":
		return runList(ctx, rest, stdout, stderr)
	case "extract":
		return runExtract(ctx, rest, stdout, stderr)
	case "help", "-h", "--help":
		fmt.Fprint(stdout, usage)
		return nil
	default:
		fmt.Fprint(stderr, usage)
		return fmt.Errorf("unknown command %q", cmd)
	}
}

// common holds the flags shared by every command.
type common struct {
	verbose bool
	remote  remoteConfig
}

func (c *common) register(fs *flag.FlagSet) {
	fs.BoolVar(&c.verbose, "v", false, "log debug output to stderr")
	c.remote.register(fs)
}

func (c *common) logger(stderr io.Writer) *slog.Logger {
	level := slog.LevelWarn
	if c.verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: level}))
}

// scanFlags holds the flags of the scanning commands.
type scanFlags struct {
	common
	workers  int
	lang     string
	cacheDir string
	codepage string
	patterns string
	profile  profileConfig
}

func (f *scanFlags) register(fs *flag.FlagSet) {
	f.common.register(fs)
	fs.IntVar(&f.workers, "workers", 0, "files scanned at once: <0 serial, 0 auto, >0 fixed")
	fs.StringVar(&f.lang, "lang", modstrings.DefaultLanguage, "language of translation files to scan")
	fs.StringVar(&f.cacheDir, "cache-dir", "", "cache extracted strings in this directory")
	fs.StringVar(&f.codepage, "codepage", "", "legacy code page for non-UTF-8 text (e.g. windows-1252)")
	fs.StringVar(&f.patterns, "patterns", "", "comma-separated globs selecting archive members (default *.pex and translation files)")
	f.profile.register(fs)
}

func (f *scanFlags) scanner(stderr io.Writer) (*modstrings.Scanner, error) {
	opts := []modstrings.Option{
		modstrings.WithLogger(f.logger(stderr)),
		modstrings.WithWorkers(f.workers),
		modstrings.WithLanguage(f.lang),
	}
	if f.cacheDir != "" {
		opts = append(opts, modstrings.WithCacheDir(f.cacheDir))
	}
	if f.codepage != "" {
		enc, err := ianaindex.IANA.Encoding(f.codepage)
		if err != nil || enc == nil {
			return nil, fmt.Errorf("unsupported code page %q", f.codepage)
		}
		opts = append(opts, modstrings.WithLegacyEncoding(enc))
	}
	if f.patterns != "" {
		opts = append(opts, modstrings.WithArchivePatterns(strings.Split(f.patterns, ",")...))
	}
	return modstrings.New(opts...)
}

// record is one line of scan output.
type record struct {
	Path string `json:"path"`
	modstrings.String
}

// emit writes the strings of results as JSON lines and reports failures
// on stderr. It returns an error when any result failed.
func emit(results []modstrings.Result, stdout, stderr io.Writer) error {
	enc := json.NewEncoder(stdout)
	enc.SetEscapeHTML(false)
	failed := 0
	for _, r := range results {
		if r.Err != nil {
			failed++
			fmt.Fprintf(stderr, "%s: %v\n", r.Path, r.Err)
			continue
		}
		for _, s := range r.Strings {
			if err := enc.Encode(record{Path: r.Path, String: s}); err != nil {
				return err
			}
		}
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d files failed", failed, len(results))
	}
	return nil
}

func runScan(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	fs := flag.NewFlagSet("scan", flag.ContinueOnError)
	fs.SetOutput(stderr)
	var f scanFlags
	f.register(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() == 0 {
		return errors.New("scan: no paths given")
	}
	s, err := f.scanner(stderr)
	if err != nil {
		return err
	}
	stopProfile, err := f.profile.start()
	if err != nil {
		return err
	}
	defer func() {
		if err := stopProfile(); err != nil {
			f.logger(stderr).Warn("stop profile", "error", err)
		}
	}()

	// Runs of local paths are scanned together; results keep argument order.
	var local []string
	var results []modstrings.Result
	flush := func() error {
		if len(local) == 0 {
			return nil
		}
		scanned, err := s.ScanAll(ctx, local)
		results = append(results, scanned...)
		local = nil
		return err
	}
	for _, target := range fs.Args() {
		if !isURL(target) {
			local = append(local, target)
			continue
		}
		if err := flush(); err != nil {
			return err
		}
		results = append(results, scanRemote(ctx, s, &f, target, stderr)...)
	}
	if err := flush(); err != nil {
		return err
	}
	return emit(results, stdout, stderr)
}

// scanRemote scans the archive at url. A failure to open or parse it is
// returned as a failed Result.
func scanRemote(ctx context.Context, s *modstrings.Scanner, f *scanFlags, url string, stderr io.Writer) []modstrings.Result {
	src, err := f.remote.open(ctx, url, f.logger(stderr))
	if err != nil {
		return []modstrings.Result{{Path: url, Format: modstrings.FormatArchive, Err: err}}
	}
	members, err := s.ScanArchive(ctx, url, src.ReadSeeker())
	if err != nil {
		return append(members, modstrings.Result{Path: url, Format: modstrings.FormatArchive, Err: err})
	}
	return members
}

func runDataDir(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	fs := flag.NewFlagSet("datadir", flag.ContinueOnError)
	fs.SetOutput(stderr)
	var f scanFlags
	f.register(fs)
	loadOrder := fs.String("loadorder", "", "loadorder.txt listing the plugins to scan (default: every plugin)")
	skipBase := fs.Bool("skip-base", true, "skip the base game's plugins")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return errors.New("datadir: expected one data directory")
	}
	s, err := f.scanner(stderr)
	if err != nil {
		return err
	}
	stopProfile, err := f.profile.start()
	if err != nil {
		return err
	}
	defer func() {
		if err := stopProfile(); err != nil {
			f.logger(stderr).Warn("stop profile", "error", err)
		}
	}()

	var plugins []string
	if *loadOrder != "" {
		lo, err := os.Open(*loadOrder)
		if err != nil {
			return err
		}
		plugins, err = modstrings.ReadLoadOrder(lo)
		_ = lo.Close() //nolint:errcheck // read-only handle
		if err != nil {
			return err
		}
	}
	dir := fs.Arg(0)
	paths, err := s.DataDirPaths(dir, plugins)
	if err != nil {
		return err
	}
	if *skipBase {
		kept := paths[:0]
		for _, p := range paths {
			if !modstrings.IsBasePlugin(p) {
				kept = append(kept, p)
			}
		}
		paths = kept
	}

	results, err := s.ScanAll(ctx, paths)
	if err != nil {
		return err
	}
	return emit(results, stdout, stderr)
}

func runList(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	fs := flag.NewFlagSet("list", flag.ContinueOnError)
	fs.SetOutput(stderr)
	var c common
	c.register(fs)
	pattern := fs.String("pattern", "*", "only list members matching this glob")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return errors.New("list: expected one archive")
	}

	a, closeArchive, err := openArchive(ctx, fs.Arg(0), &c, stderr)
	if err != nil {
		return err
	}
	defer closeArchive()

	matched := make(map[string]struct{})
	for _, name := range a.Glob(*pattern) {
		matched[name] = struct{}{}
	}
	tw := tabwriter.NewWriter(stdout, 0, 4, 2, ' ', 0)
	for f := range a.Files() {
		if _, ok := matched[f.Path]; !ok {
			continue
		}
		compressed := "-"
		if f.Compressed {
			compressed = "compressed"
		}
		fmt.Fprintf(tw, "%s\t%d\t%s\t%016x\n", f.Path, f.Size, compressed, f.Hash)
	}
	return tw.Flush()
}

func runExtract(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	fs := flag.NewFlagSet("extract", flag.ContinueOnError)
	fs.SetOutput(stderr)
	var c common
	c.register(fs)
	dest := fs.String("o", ".", "destination directory")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() < 2 {
		return errors.New("extract: expected an archive and at least one pattern")
	}

	a, closeArchive, err := openArchive(ctx, fs.Arg(0), &c, stderr)
	if err != nil {
		return err
	}
	defer closeArchive()

	seen := make(map[string]struct{})
	for _, pattern := range fs.Args()[1:] {
		for _, name := range a.Glob(pattern) {
			if _, ok := seen[name]; ok {
				continue
			}
			seen[name] = struct{}{}
			if err := ctx.Err(); err != nil {
				return err
			}
			out, err := a.Extract(name, *dest)
			if err != nil {
				return err
			}
			fmt.Fprintln(stdout, out)
		}
	}
	if len(seen) == 0 {
		return errors.New("extract: no members matched")
	}
	return nil
}
