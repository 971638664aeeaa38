package blob

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// Supabase uploads through the Supabase Storage REST API.
type Supabase struct {
	baseURL    string
	serviceKey string
	client     *http.Client
	now        func() time.Time
}

// NewSupabase creates a Storage uploader for the project at baseURL.
func NewSupabase(baseURL, serviceKey string, client *http.Client) *Supabase {
	if client == nil {
		client = &http.Client{Timeout: 20 * time.Second}
	}
	return &Supabase{
		baseURL:    strings.TrimRight(baseURL, "/"),
		serviceKey: serviceKey,
		client:     client,
		now:        time.Now,
	}
}

func (s *Supabase) Upload(ctx context.Context, obj Object) (string, error) {
	key := Key(obj.Prefix, obj.Filename, s.now())
	endpoint := fmt.Sprintf("%s/storage/v1/object/%s/%s", s.baseURL, obj.Bucket, key)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(obj.Body))
	if err != nil {
		return "", PermanentError(fmt.Errorf("build upload request: %w", err))
	}
	contentType := obj.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	req.Header.Set("Authorization", "Bearer "+s.serviceKey)
	req.Header.Set("apikey", s.serviceKey)
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("x-upsert", "false")

	resp, err := s.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("upload %s: %w", key, err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		return fmt.Sprintf("%s/storage/v1/object/public/%s/%s", s.baseURL, obj.Bucket, key), nil
	case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
		return "", fmt.Errorf("upload %s: status %d: %s", key, resp.StatusCode, body)
	default:
		return "", PermanentError(fmt.Errorf("upload %s: status %d: %s", key, resp.StatusCode, body))
	}
}
