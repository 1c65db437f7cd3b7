package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/ppiankov/ticketscan/internal/extract"
	"github.com/ppiankov/ticketscan/internal/worker"
)

// StdinSource names standard input as a source
const StdinSource = "-"

// ErrInputTooLarge is returned when an input is longer than the byte limit.
// Inputs are never truncated.
var ErrInputTooLarge = errors.New("input too large")

// readLimited reads all of r, failing if it holds more than maxBytes
func readLimited(r io.Reader, maxBytes int64) ([]byte, error) {
	data, err := io.ReadAll(io.LimitReader(r, maxBytes+1))
	if err != nil {
		return nil, err
	}
	if int64(len(data)) > maxBytes {
		return nil, fmt.Errorf("%w: exceeds %d bytes", ErrInputTooLarge, maxBytes)
	}
	return data, nil
}

// Loader reads puzzle input from a file, stdin or a remote URL. Remote
// HTML pages are reduced to the first block of notes they contain.
type Loader struct {
	fetcher  *Fetcher
	notes    *extract.NotesExtractor
	stdin    io.Reader
	maxBytes int64
}

// NewLoader creates a loader; fetcher may be nil when remote inputs are
// not needed
func NewLoader(fetcher *Fetcher, stdin io.Reader, maxBytes int64) *Loader {
	if stdin == nil {
		stdin = os.Stdin
	}
	if maxBytes <= 0 {
		maxBytes = 2_000_000
	}
	return &Loader{fetcher: fetcher, notes: extract.NewNotesExtractor(), stdin: stdin, maxBytes: maxBytes}
}

// Load returns the raw bytes of source
func (l *Loader) Load(ctx context.Context, source string) ([]byte, error) {
	switch {
	case source == StdinSource:
		data, err := readLimited(l.stdin, l.maxBytes)
		if err != nil {
			return nil, fmt.Errorf("read stdin: %w", err)
		}
		return data, nil

	case worker.IsRemote(source):
		if l.fetcher == nil {
			return nil, fmt.Errorf("remote input %s: no fetcher configured", source)
		}
		result, err := l.fetcher.FetchWithRetry(ctx, source)
		if err != nil {
			return nil, fmt.Errorf("fetch %s: %w", source, err)
		}
		if !extract.IsHTML(result.ContentType, result.Body) {
			return result.Body, nil
		}
		notes, err := l.notes.Extract(string(result.Body), 0)
		if err != nil {
			return nil, fmt.Errorf("extract notes from %s: %w", source, err)
		}
		return []byte(notes), nil

	default:
		f, err := os.Open(source)
		if err != nil {
			return nil, fmt.Errorf("open input: %w", err)
		}
		defer func() { _ = f.Close() }()

		data, err := readLimited(f, l.maxBytes)
		if err != nil {
			return nil, fmt.Errorf("read input: %w", err)
		}
		return data, nil
	}
}
