// Package http reads remote archives through HTTP range requests.
//
// A Source is an io.ReaderAt over a URL. Its ReadSeeker view can be handed
// to bsa.Parse, so an archive's index and individual members are fetched
// without downloading the whole file.
package http //nolint:revive // intentional naming for domain clarity

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	nethttp "net/http"
	"strconv"
	"strings"
	"sync"
)

// DefaultReadAhead is the minimum span fetched per range request (256KB).
const DefaultReadAhead = 256 << 10

var (
	// ErrRangeUnsupported is returned when the server ignores range requests.
	ErrRangeUnsupported = errors.New("http: range requests not supported")

	// ErrModified is returned when the remote content changed after the
	// source was opened.
	ErrModified = errors.New("http: remote content modified")
)

// Source implements random access reads via HTTP range requests.
//
// Reads are widened to at least the read-ahead size and the last window is
// kept, so the many small sequential reads of an index parse cost few
// requests. A Source is safe for concurrent use.
type Source struct {
	ctx          context.Context
	url          string
	client       *nethttp.Client
	headers      nethttp.Header
	readAhead    int64
	logger       *slog.Logger
	size         int64
	etag         string
	lastModified string

	mu     sync.Mutex
	window []byte
	winOff int64
}

// Option configures a Source.
type Option func(*Source)

// WithClient sets the HTTP client used for requests.
func WithClient(client *nethttp.Client) Option {
	return func(s *Source) {
		s.client = client
	}
}

// WithHeader sets a header on each request, such as an authorization token.
func WithHeader(key, value string) Option {
	return func(s *Source) {
		if s.headers == nil {
			s.headers = make(nethttp.Header)
		}
		s.headers.Set(key, value)
	}
}

// WithReadAhead sets the minimum number of bytes fetched per request.
// Use 0 to fetch exactly what each read asks for.
func WithReadAhead(n int64) Option {
	return func(s *Source) {
		s.readAhead = max(n, 0)
	}
}

// WithLogger sets the logger for range requests.
// If not set, logging is disabled.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Source) {
		s.logger = logger
	}
}

// NewSource probes url for its size and validators. Later reads use ctx
// and fail with ErrModified if the content changes.
func NewSource(ctx context.Context, url string, opts ...Option) (*Source, error) {
	s := &Source{
		ctx:       ctx,
		url:       url,
		client:    nethttp.DefaultClient,
		readAhead: DefaultReadAhead,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.client == nil {
		s.client = nethttp.DefaultClient
	}
	if s.logger == nil {
		s.logger = slog.New(slog.DiscardHandler)
	}
	if err := s.probe(); err != nil {
		return nil, fmt.Errorf("probe %s: %w", url, err)
	}
	return s, nil
}

// Size returns the total size of the remote content.
func (s *Source) Size() int64 {
	return s.size
}

// ETag returns the entity tag reported by the server, if any.
func (s *Source) ETag() string {
	return s.etag
}

// ReadSeeker returns a seekable view over the whole remote content.
func (s *Source) ReadSeeker() io.ReadSeeker {
	return io.NewSectionReader(s, 0, s.size)
}

// ReadAt reads len(p) bytes at off. It implements io.ReaderAt: if fewer
// bytes are available it returns the count read along with io.EOF.
func (s *Source) ReadAt(p []byte, off int64) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}
	if off < 0 {
		return 0, fmt.Errorf("read at %d: negative offset", off)
	}
	if off >= s.size {
		return 0, io.EOF
	}
	want := min(int64(len(p)), s.size-off)

	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.covers(off, want) {
		length := min(max(want, s.readAhead), s.size-off)
		data, err := s.fetch(off, length)
		if err != nil {
			return 0, err
		}
		s.window, s.winOff = data, off
	}
	n := copy(p, s.window[off-s.winOff:])
	if int64(n) < int64(len(p)) {
		return n, io.EOF
	}
	return n, nil
}

func (s *Source) covers(off, length int64) bool {
	return s.window != nil && off >= s.winOff && off+length <= s.winOff+int64(len(s.window))
}

// fetch performs one range request for [off, off+length).
func (s *Source) fetch(off, length int64) ([]byte, error) {
	req, err := s.newRequest(nethttp.MethodGet)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Range", fmt.Sprintf("bytes=%d-%d", off, off+length-1))
	if s.etag != "" {
		req.Header.Set("If-Match", s.etag)
	} else if s.lastModified != "" {
		req.Header.Set("If-Unmodified-Since", s.lastModified)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer drain(resp)

	switch resp.StatusCode {
	case nethttp.StatusPartialContent:
	case nethttp.StatusPreconditionFailed:
		return nil, ErrModified
	case nethttp.StatusRequestedRangeNotSatisfiable:
		return nil, io.EOF
	case nethttp.StatusOK:
		return nil, ErrRangeUnsupported
	default:
		return nil, fmt.Errorf("range request failed: %s", resp.Status)
	}

	s.logger.Debug("range request", "url", s.url, "offset", off, "length", length)
	buf := make([]byte, length)
	if _, err := io.ReadFull(resp.Body, buf); err != nil {
		return nil, fmt.Errorf("read range body: %w", err)
	}
	return buf, nil
}

// probe learns the content size from a one-byte range request, which
// every range-capable server answers with a Content-Range total.
func (s *Source) probe() error {
	req, err := s.newRequest(nethttp.MethodGet)
	if err != nil {
		return err
	}
	req.Header.Set("Range", "bytes=0-0")

	resp, err := s.client.Do(req)
	if err != nil {
		return err
	}
	defer drain(resp)

	switch resp.StatusCode {
	case nethttp.StatusPartialContent:
	case nethttp.StatusOK:
		return ErrRangeUnsupported
	default:
		return fmt.Errorf("range probe failed: %s", resp.Status)
	}

	size, err := parseContentRange(resp.Header.Get("Content-Range"))
	if err != nil {
		return err
	}
	s.size = size
	s.etag = resp.Header.Get("ETag")
	s.lastModified = resp.Header.Get("Last-Modified")
	return nil
}

func (s *Source) newRequest(method string) (*nethttp.Request, error) {
	ctx := s.ctx
	if ctx == nil {
		ctx = context.Background()
	}
	req, err := nethttp.NewRequestWithContext(ctx, method, s.url, nil)
	if err != nil {
		return nil, err
	}
	for key, values := range s.headers {
		for _, value := range values {
			req.Header.Add(key, value)
		}
	}
	if req.Header.Get("Accept-Encoding") == "" {
		req.Header.Set("Accept-Encoding", "identity")
	}
	return req, nil
}

func drain(resp *nethttp.Response) {
	_, _ = io.Copy(io.Discard, resp.Body) //nolint:errcheck // best-effort drain for connection reuse
	_ = resp.Body.Close()                 //nolint:errcheck // best-effort cleanup
}

// parseContentRange returns the total size from a "bytes a-b/total" header.
func parseContentRange(value string) (int64, error) {
	rest, ok := strings.CutPrefix(strings.TrimSpace(value), "bytes ")
	if !ok {
		return 0, fmt.Errorf("invalid Content-Range %q", value)
	}
	_, total, ok := strings.Cut(rest, "/")
	if !ok || total == "*" {
		return 0, fmt.Errorf("invalid Content-Range %q", value)
	}
	size, err := strconv.ParseInt(total, 10, 64)
	if err != nil || size < 0 {
		return 0, fmt.Errorf("invalid Content-Range %q", value)
	}
	return size, nil
}
