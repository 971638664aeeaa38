package blob

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Local writes objects under a directory served at baseURL.
type Local struct {
	dir     string
	baseURL string
	now     func() time.Time
}

// NewLocal creates a filesystem uploader.
func NewLocal(dir, baseURL string) *Local {
	return &Local{dir: dir, baseURL: strings.TrimRight(baseURL, "/"), now: time.Now}
}

func (l *Local) Upload(ctx context.Context, obj Object) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	key := Key(obj.Prefix, obj.Filename, l.now())
	full := filepath.Join(l.dir, obj.Bucket, filepath.FromSlash(key))
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		return "", PermanentError(fmt.Errorf("create upload dir: %w", err))
	}
	if err := os.WriteFile(full, obj.Body, 0o644); err != nil {
		return "", fmt.Errorf("write upload: %w", err)
	}
	return l.baseURL + "/" + obj.Bucket + "/" + key, nil
}
