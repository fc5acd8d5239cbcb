// Package artifact obtains the OpenGenes store and usage document, preferring
// a fresh remote copy and falling back to files already on disk.
package artifact

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"
)

// ErrUnavailable means no copy of a required artifact could be obtained.
var ErrUnavailable = errors.New("artifact unavailable")

// Fetcher returns the bytes of one file of a dataset.
type Fetcher interface {
	Fetch(ctx context.Context, dataset string, name string) ([]byte, error)
}

// Remote downloads files laid out as <BaseURL>/<dataset>/<name>.
type Remote struct {
	BaseURL    string
	Token      string
	Client     *http.Client
	MaxRetries uint8
	// Backoff is multiplied by the attempt number between retries.
	Backoff time.Duration
}

type statusError struct {
	code int
	url  string
}

func (e *statusError) Error() string {
	return fmt.Sprintf("GET %s: unexpected status %d", e.url, e.code)
}

func (r *Remote) Fetch(ctx context.Context, dataset string, name string) ([]byte, error) {
	target, err := url.JoinPath(r.BaseURL, dataset, name)
	if err != nil {
		return nil, fmt.Errorf("invalid artifact url: %w", err)
	}

	attempts := max(int(r.MaxRetries), 1)

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		body, err := r.get(ctx, target)
		if err == nil {
			return body, nil
		}
		lastErr = err

		var se *statusError
		if errors.As(err, &se) && se.code < 500 {
			break
		}

		slog.WarnContext(ctx, "Artifact download failed",
			"url", target,
			"attempt", attempt,
			"max_attempts", attempts,
			"error", err,
		)

		if attempt < attempts {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(r.Backoff * time.Duration(attempt)):
			}
		}
	}

	return nil, fmt.Errorf("%w: %s: %w", ErrUnavailable, name, lastErr)
}

func (r *Remote) get(ctx context.Context, target string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, err
	}
	if r.Token != "" {
		req.Header.Set("Authorization", "Bearer "+r.Token)
	}

	client := r.Client
	if client == nil {
		client = http.DefaultClient
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		io.Copy(io.Discard, resp.Body)
		return nil, &statusError{code: resp.StatusCode, url: target}
	}

	return io.ReadAll(resp.Body)
}
