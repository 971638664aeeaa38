package blob

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKeySanitizesFilename(t *testing.T) {
	now := time.UnixMilli(1700000000000)
	key := Key("applications/abc", "../../etc/pass wd?.pdf", now)
	assert.True(t, strings.HasPrefix(key, "applications/abc/1700000000000-"))
	assert.True(t, strings.HasSuffix(key, "-pass_wd_.pdf"))
	assert.NotContains(t, key, "..")

	assert.True(t, strings.HasSuffix(Key("p", "   ", now), "-file"))
}

func TestLocalUpload(t *testing.T) {
	dir := t.TempDir()
	up := NewLocal(dir, "/uploads/")
	url, err := up.Upload(context.Background(), Object{
		Bucket: "idb-student-documents", Prefix: "applications/lead-1", Filename: "passport.pdf", Body: []byte("pdf"),
	})
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(url, "/uploads/idb-student-documents/applications/lead-1/"))

	rel := strings.TrimPrefix(url, "/uploads/")
	data, err := os.ReadFile(filepath.Join(dir, filepath.FromSlash(rel)))
	require.NoError(t, err)
	assert.Equal(t, "pdf", string(data))
}

type flakyUploader struct {
	failures int32
	calls    atomic.Int32
	err      error
}

func (f *flakyUploader) Upload(context.Context, Object) (string, error) {
	n := f.calls.Add(1)
	if n <= f.failures {
		return "", f.err
	}
	return "https://files/ok", nil
}

func TestRetryingUploader(t *testing.T) {
	t.Run("retries transient failures", func(t *testing.T) {
		f := &flakyUploader{failures: 2, err: errors.New("503")}
		url, err := WithRetry(f, 3, 5*time.Second).Upload(context.Background(), Object{})
		require.NoError(t, err)
		assert.Equal(t, "https://files/ok", url)
		assert.Equal(t, int32(3), f.calls.Load())
	})

	t.Run("gives up after max attempts", func(t *testing.T) {
		f := &flakyUploader{failures: 10, err: errors.New("503")}
		_, err := WithRetry(f, 3, 5*time.Second).Upload(context.Background(), Object{})
		require.Error(t, err)
		assert.Equal(t, int32(3), f.calls.Load())
	})

	t.Run("permanent errors are not retried", func(t *testing.T) {
		f := &flakyUploader{failures: 10, err: PermanentError(errors.New("403"))}
		_, err := WithRetry(f, 3, 5*time.Second).Upload(context.Background(), Object{})
		require.Error(t, err)
		assert.Equal(t, int32(1), f.calls.Load())
	})
}

func TestSupabaseUpload(t *testing.T) {
	var gotPath, gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotAuth = r.Header.Get("Authorization")
		if strings.Contains(r.URL.Path, "forbidden") {
			w.WriteHeader(http.StatusForbidden)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	up := NewSupabase(srv.URL, "service-key", srv.Client())
	url, err := up.Upload(context.Background(), Object{Bucket: "idb-student-documents", Prefix: "applications/x", Filename: "sop.pdf"})
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(gotPath, "/storage/v1/object/idb-student-documents/applications/x/"))
	assert.Equal(t, "Bearer service-key", gotAuth)
	assert.Contains(t, url, "/storage/v1/object/public/idb-student-documents/applications/x/")

	_, err = up.Upload(context.Background(), Object{Bucket: "forbidden", Filename: "a"})
	require.Error(t, err)
}
