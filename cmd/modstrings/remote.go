package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	nethttp "net/http"
	"strconv"
	"strings"
	"time"

	"github.com/meigma/modstrings/bsa"
	modhttp "github.com/meigma/modstrings/http"
)

// remoteConfig holds the flags for archives read over HTTP.
type remoteConfig struct {
	headers   headerFlag
	timeout   time.Duration
	readAhead int64
	rate      string
}

func (c *remoteConfig) register(fs *flag.FlagSet) {
	fs.Var(&c.headers, "header", "extra request header for remote archives, as \"Name: value\" (repeatable)")
	fs.DurationVar(&c.timeout, "http-timeout", 30*time.Second, "timeout per range request")
	fs.Int64Var(&c.readAhead, "read-ahead", modhttp.DefaultReadAhead, "minimum bytes fetched per range request")
	fs.StringVar(&c.rate, "rate", "", "download rate limit for remote archives (e.g. 10MBps)")
}

func isURL(target string) bool {
	return strings.HasPrefix(target, "http://") || strings.HasPrefix(target, "https://")
}

// open probes a remote archive.
func (c *remoteConfig) open(ctx context.Context, url string, logger *slog.Logger) (*modhttp.Source, error) {
	client, err := c.client()
	if err != nil {
		return nil, err
	}
	opts := []modhttp.Option{
		modhttp.WithClient(client),
		modhttp.WithReadAhead(c.readAhead),
		modhttp.WithLogger(logger),
	}
	for _, h := range c.headers {
		name, value, _ := strings.Cut(h, ":")
		opts = append(opts, modhttp.WithHeader(strings.TrimSpace(name), strings.TrimSpace(value)))
	}
	return modhttp.NewSource(ctx, url, opts...)
}

func (c *remoteConfig) client() (*nethttp.Client, error) {
	transport := nethttp.DefaultTransport
	if base, ok := transport.(*nethttp.Transport); ok {
		transport = base.Clone()
	}
	if c.rate != "" {
		bps, err := parseBytesPerSecond(c.rate)
		if err != nil {
			return nil, err
		}
		transport = &throttleRoundTripper{base: transport, bytesPerSecond: bps}
	}
	return &nethttp.Client{Transport: transport, Timeout: c.timeout}, nil
}

// openArchive parses a local or remote archive. The returned function
// releases it.
func openArchive(ctx context.Context, target string, c *common, stderr io.Writer) (*bsa.Archive, func(), error) {
	logger := c.logger(stderr)
	if !isURL(target) {
		a, err := bsa.Open(target, bsa.WithLogger(logger))
		if err != nil {
			return nil, nil, err
		}
		return a, func() { _ = a.Close() }, nil //nolint:errcheck // read-only handle
	}
	src, err := c.remote.open(ctx, target, logger)
	if err != nil {
		return nil, nil, err
	}
	a, err := bsa.Parse(src.ReadSeeker(), bsa.WithLogger(logger))
	if err != nil {
		return nil, nil, fmt.Errorf("%s: %w", target, err)
	}
	return a, func() {}, nil
}

// headerFlag collects repeated -header values.
type headerFlag []string

func (h *headerFlag) String() string {
	return strings.Join(*h, ", ")
}

func (h *headerFlag) Set(value string) error {
	if !strings.Contains(value, ":") {
		return fmt.Errorf("header %q: expected \"Name: value\"", value)
	}
	*h = append(*h, value)
	return nil
}

// throttleRoundTripper limits how fast response bodies are read.
type throttleRoundTripper struct {
	base           nethttp.RoundTripper
	bytesPerSecond int64
}

func (rt *throttleRoundTripper) RoundTrip(req *nethttp.Request) (*nethttp.Response, error) {
	resp, err := rt.base.RoundTrip(req)
	if err != nil {
		return nil, err
	}
	if resp.Body != nil {
		resp.Body = &throttleReadCloser{
			rc:             resp.Body,
			bytesPerSecond: rt.bytesPerSecond,
			start:          time.Now(),
		}
	}
	return resp, nil
}

type throttleReadCloser struct {
	rc             io.ReadCloser
	bytesPerSecond int64
	start          time.Time
	readBytes      int64
}

func (tr *throttleReadCloser) Read(p []byte) (int, error) {
	n, err := tr.rc.Read(p)
	if n > 0 {
		tr.readBytes += int64(n)
		expected := time.Duration(float64(tr.readBytes) / float64(tr.bytesPerSecond) * float64(time.Second))
		if elapsed := time.Since(tr.start); expected > elapsed {
			time.Sleep(expected - elapsed)
		}
	}
	return n, err
}

func (tr *throttleReadCloser) Close() error {
	return tr.rc.Close()
}

// parseBytesPerSecond parses rates such as "512k", "10MBps", or "1g/s".
func parseBytesPerSecond(value string) (int64, error) {
	text := strings.TrimSpace(value)
	for _, suffix := range []string{"Bps", "bps", "/s"} {
		text = strings.TrimSuffix(text, suffix)
	}
	text = strings.TrimSpace(text)

	lower := strings.ToLower(text)
	multiplier := int64(1)
	for _, unit := range []struct {
		suffix string
		scale  int64
	}{
		{"kb", 1 << 10}, {"k", 1 << 10},
		{"mb", 1 << 20}, {"m", 1 << 20},
		{"gb", 1 << 30}, {"g", 1 << 30},
	} {
		if strings.HasSuffix(lower, unit.suffix) {
			multiplier = unit.scale
			text = text[:len(text)-len(unit.suffix)]
			break
		}
	}

	raw, err := strconv.ParseInt(strings.TrimSpace(text), 10, 64)
	if err != nil || raw <= 0 {
		return 0, fmt.Errorf("invalid bytes-per-second %q", value)
	}
	return raw * multiplier, nil
}
