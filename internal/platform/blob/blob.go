// Package blob stores uploaded files (application documents, payment receipts)
// and returns the URL recorded on the owning row.
package blob

import (
	"context"
	"fmt"
	"path"
	"regexp"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"
)

// Object is one file to store.
type Object struct {
	Bucket      string
	Prefix      string
	Filename    string
	ContentType string
	Body        []byte
}

// Uploader stores an object and returns its public URL.
type Uploader interface {
	Upload(ctx context.Context, obj Object) (string, error)
}

var unsafeChars = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

// Key builds "<prefix>/<unix-ms>-<short-uuid>-<sanitized filename>", so two
// uploads of the same filename never overwrite each other.
func Key(prefix, filename string, now time.Time) string {
	name := unsafeChars.ReplaceAllString(path.Base(strings.TrimSpace(filename)), "_")
	name = strings.Trim(name, "._")
	if name == "" {
		name = "file"
	}
	if len(name) > 100 {
		name = name[len(name)-100:]
	}
	return path.Join(prefix, fmt.Sprintf("%d-%s-%s", now.UnixMilli(), uuid.NewString()[:8], name))
}

// Retrying wraps an uploader with bounded exponential backoff: at most
// attempts tries within maxElapsed.
type Retrying struct {
	next       Uploader
	attempts   uint64
	maxElapsed time.Duration
}

// WithRetry wraps next; three attempts within thirty seconds by default.
func WithRetry(next Uploader, attempts uint64, maxElapsed time.Duration) *Retrying {
	if attempts == 0 {
		attempts = 3
	}
	if maxElapsed <= 0 {
		maxElapsed = 30 * time.Second
	}
	return &Retrying{next: next, attempts: attempts, maxElapsed: maxElapsed}
}

func (r *Retrying) Upload(ctx context.Context, obj Object) (string, error) {
	eb := backoff.NewExponentialBackOff()
	eb.InitialInterval = 200 * time.Millisecond
	eb.MaxElapsedTime = r.maxElapsed
	policy := backoff.WithContext(backoff.WithMaxRetries(eb, r.attempts-1), ctx)

	var url string
	err := backoff.Retry(func() error {
		u, err := r.next.Upload(ctx, obj)
		if err != nil {
			return err
		}
		url = u
		return nil
	}, policy)
	if err != nil {
		return "", err
	}
	return url, nil
}

// PermanentError marks a failure retrying cannot fix (bad request, auth).
func PermanentError(err error) error {
	return backoff.Permanent(err)
}
