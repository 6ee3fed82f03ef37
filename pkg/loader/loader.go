// Package loader acquires the bytes of a store image or JSON export from a
// file, a reader or a URL, unwrapping compressed containers on the way.
// Acquisition failures are the only errors the recovery pipeline reports.
package loader

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"go.uber.org/zap"
)

// DefaultMaxBytes caps how much input is read, before and after
// decompression.
const DefaultMaxBytes int64 = 256 << 20

// Errors returned by the loader.
var (
	ErrEmptyInput = errors.New("input is empty")
	ErrTooLarge   = errors.New("input exceeds size limit")
	ErrFetch      = errors.New("fetch failed")
)

// Config configures a Loader.
type Config struct {
	MaxBytes int64
	Timeout  time.Duration
	Client   *http.Client
	Logger   *zap.Logger
}

// Loader reads inputs.
type Loader struct {
	maxBytes int64
	client   *http.Client
	logger   *zap.Logger
}

// Input is an acquired buffer and what was learned while reading it.
type Input struct {
	Data        []byte
	Source      string
	Compression Compression
	Kind        Kind
}

// New creates a loader.
func New(config Config) *Loader {
	if config.MaxBytes <= 0 {
		config.MaxBytes = DefaultMaxBytes
	}
	if config.Client == nil {
		timeout := config.Timeout
		if timeout <= 0 {
			timeout = 60 * time.Second
		}
		config.Client = &http.Client{Timeout: timeout}
	}
	if config.Logger == nil {
		config.Logger = zap.NewNop()
	}
	return &Loader{
		maxBytes: config.MaxBytes,
		client:   config.Client,
		logger:   config.Logger,
	}
}

// Load reads src, which is a path, "-" for standard input, or an http(s)
// URL.
func (l *Loader) Load(ctx context.Context, src string) (*Input, error) {
	switch {
	case src == "-":
		return l.Read(os.Stdin, "stdin")
	case strings.HasPrefix(src, "http://"), strings.HasPrefix(src, "https://"):
		return l.Fetch(ctx, src)
	default:
		return l.ReadFile(src)
	}
}

// ReadFile reads the file at path.
func (l *Loader) ReadFile(path string) (*Input, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open input: %w", err)
	}
	defer f.Close()

	return l.Read(f, path)
}

// Read reads r to the end. name labels the input in logs.
func (l *Loader) Read(r io.Reader, name string) (*Input, error) {
	raw, err := readLimited(r, l.maxBytes)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", name, err)
	}
	return l.finish(raw, name)
}

// Fetch downloads url.
func (l *Loader) Fetch(ctx context.Context, url string) (*Input, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFetch, err)
	}

	resp, err := l.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFetch, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: %s returned %s", ErrFetch, url, resp.Status)
	}
	if resp.ContentLength > l.maxBytes {
		return nil, fmt.Errorf("%w: %d bytes", ErrTooLarge, resp.ContentLength)
	}

	return l.Read(resp.Body, url)
}

func (l *Loader) finish(raw []byte, name string) (*Input, error) {
	if len(raw) == 0 {
		return nil, fmt.Errorf("%s: %w", name, ErrEmptyInput)
	}

	data, kind, err := Decompress(raw, l.maxBytes)
	if err != nil {
		return nil, err
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("%s: %w", name, ErrEmptyInput)
	}

	in := &Input{
		Data:        data,
		Source:      name,
		Compression: kind,
		Kind:        Sniff(data),
	}
	l.logger.Debug("input loaded",
		zap.String("source", name),
		zap.Int("raw_bytes", len(raw)),
		zap.Int("bytes", len(data)),
		zap.String("compression", string(kind)),
		zap.String("kind", in.Kind.String()))
	return in, nil
}

func readLimited(r io.Reader, limit int64) ([]byte, error) {
	var buf bytes.Buffer
	n, err := io.Copy(&buf, io.LimitReader(r, limit+1))
	if err != nil {
		return nil, err
	}
	if n > limit {
		return nil, fmt.Errorf("%w: more than %d bytes", ErrTooLarge, limit)
	}
	return buf.Bytes(), nil
}
