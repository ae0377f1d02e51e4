package analysis

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"
)

var (
	// ErrBusy is returned while a previous submission is still in flight.
	ErrBusy = errors.New("analysis: a submission is already in flight")

	// ErrClosed is returned once the uploader is closed. A response arriving
	// after Close is discarded with this error.
	ErrClosed = errors.New("analysis: uploader closed")
)

// Analyzer turns a recording into a report. *Client satisfies it.
type Analyzer interface {
	Analyze(ctx context.Context, filename string, video io.Reader) (*Report, error)
}

// Result is a successfully applied report together with its joined series.
type Result struct {
	Filename    string    `json:"filename"`
	CompletedAt time.Time `json:"completedAt"`
	Report      *Report   `json:"report"`
	Records     []Record  `json:"records"`
}

// Uploader is the upload flow behind the analysis view. It is the only
// writer of the current result.
//
// Safe for concurrent use.
type Uploader struct {
	analyzer Analyzer
	now      func() time.Time

	mu      sync.Mutex
	busy    bool
	closed  bool
	current *Result
}

// NewUploader creates an Uploader submitting through a.
func NewUploader(a Analyzer) *Uploader {
	return &Uploader{analyzer: a, now: time.Now}
}

// Submit sends video for analysis and, on success, replaces the current
// result. On failure the current result is left untouched. Only one
// submission may be in flight; concurrent calls fail fast with [ErrBusy].
func (u *Uploader) Submit(ctx context.Context, filename string, video io.Reader) (*Result, error) {
	u.mu.Lock()
	switch {
	case u.closed:
		u.mu.Unlock()
		return nil, ErrClosed
	case u.busy:
		u.mu.Unlock()
		return nil, ErrBusy
	}
	u.busy = true
	u.mu.Unlock()

	rep, err := u.analyzer.Analyze(ctx, filename, video)
	var records []Record
	if err == nil {
		records, err = rep.Records()
		if err != nil {
			err = fmt.Errorf("%w: malformed report: %w", ErrTransport, err)
		}
	}

	u.mu.Lock()
	defer u.mu.Unlock()
	u.busy = false

	if u.closed {
		slog.Debug("analysis: discarding response after close", "filename", filename)
		return nil, ErrClosed
	}
	if err != nil {
		slog.Warn("analysis: submission failed; keeping previous report", "filename", filename, "err", err)
		return nil, err
	}

	u.current = &Result{
		Filename:    filename,
		CompletedAt: u.now(),
		Report:      rep,
		Records:     records,
	}
	slog.Info("analysis: report updated", "filename", filename, "segments", len(rep.Segments), "points", len(records))
	return u.current, nil
}

// Current returns the latest applied result, or nil before the first success.
func (u *Uploader) Current() *Result {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.current
}

// Busy reports whether a submission is in flight.
func (u *Uploader) Busy() bool {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.busy
}

// Close stops accepting submissions. An in-flight call still completes but
// its response is discarded.
func (u *Uploader) Close() {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.closed = true
}
