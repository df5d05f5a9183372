// Package download implements the file-export side channel. An export is
// requested as a plain URL carrying a client-generated download id; the
// server signals completion by setting a cookie named after that id, which
// the client observes by polling.
package download

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"time"

	"github.com/google/uuid"
)

const (
	// PollInterval is the delay between cookie checks.
	PollInterval = time.Second
	// MaxAttempts bounds the polling loop, one hour at the default
	// interval.
	MaxAttempts = 3600
)

// CookieSource exposes the client-visible cookie jar. The browser document
// (or the HTTP client's jar against the stub server) satisfies this.
type CookieSource interface {
	Cookie(name string) (string, bool)
}

// TimeoutError reports that a download never signaled completion.
type TimeoutError struct {
	DownloadID string
	Attempts   int
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("download %s not confirmed after %d checks", e.DownloadID, e.Attempts)
}

// Options select the export representation.
type Options struct {
	Format          string
	UseVocabularies bool
	UseTitles       bool
	RawLists        bool
}

// Request is one pending export.
type Request struct {
	URL        string
	DownloadID string
}

// NewRequest builds the export URL for base with the representation
// options and a fresh download id appended.
func NewRequest(base string, opts Options) (*Request, error) {
	u, err := url.Parse(base)
	if err != nil {
		return nil, fmt.Errorf("parsing download url %q: %w", base, err)
	}
	id := uuid.NewString()
	q := u.Query()
	if opts.Format != "" {
		q.Set("format", opts.Format)
	}
	q.Set("use_vocabularies", strconv.FormatBool(opts.UseVocabularies))
	q.Set("use_titles", strconv.FormatBool(opts.UseTitles))
	q.Set("raw_lists", strconv.FormatBool(opts.RawLists))
	q.Set("downloadID", id)
	u.RawQuery = q.Encode()
	return &Request{URL: u.String(), DownloadID: id}, nil
}

// CookieName is the completion-cookie name for a download id.
func (r *Request) CookieName() string {
	return "downloadID_" + r.DownloadID
}

// Watcher polls a cookie source for download-completion cookies.
type Watcher struct {
	Cookies  CookieSource
	Interval time.Duration
	Attempts int
}

// NewWatcher returns a watcher with the default interval and attempt
// bound.
func NewWatcher(cookies CookieSource) *Watcher {
	return &Watcher{Cookies: cookies, Interval: PollInterval, Attempts: MaxAttempts}
}

// Wait blocks until the completion cookie for req appears, the attempt
// bound is exhausted, or ctx is canceled.
func (w *Watcher) Wait(ctx context.Context, req *Request) error {
	ticker := time.NewTicker(w.Interval)
	defer ticker.Stop()
	for attempt := 0; attempt < w.Attempts; attempt++ {
		if _, ok := w.Cookies.Cookie(req.CookieName()); ok {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
	return &TimeoutError{DownloadID: req.DownloadID, Attempts: w.Attempts}
}
