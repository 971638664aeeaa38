package metadata

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	"idbcrm/pkg/requestcontext"
)

func TestClientIPFromRequest(t *testing.T) {
	t.Run("first forwarded address wins", func(t *testing.T) {
		r := httptest.NewRequest(http.MethodGet, "/", nil)
		r.Header.Set("X-Forwarded-For", "203.0.113.7, 10.0.0.2")
		assert.Equal(t, "203.0.113.7", ClientIPFromRequest(r))
	})

	t.Run("real ip header", func(t *testing.T) {
		r := httptest.NewRequest(http.MethodGet, "/", nil)
		r.Header.Set("X-Real-IP", " 198.51.100.4 ")
		assert.Equal(t, "198.51.100.4", ClientIPFromRequest(r))
	})

	t.Run("remote addr strips port", func(t *testing.T) {
		r := httptest.NewRequest(http.MethodGet, "/", nil)
		r.RemoteAddr = "[::1]:5050"
		assert.Equal(t, "::1", ClientIPFromRequest(r))
	})
}

func TestClientKind(t *testing.T) {
	assert.Equal(t, "unknown", ClientKind(""))
	assert.Equal(t, "bot", ClientKind("Googlebot/2.1 (+http://www.google.com/bot.html)"))
	kind := ClientKind("Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36")
	assert.Contains(t, kind, "Chrome")
}

func TestClientMetadataMiddleware(t *testing.T) {
	var ip, ua string
	h := ClientMetadata(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ip = requestcontext.ClientIP(r.Context())
		ua = requestcontext.UserAgent(r.Context())
	}))
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.Header.Set("User-Agent", "curl/8.4.0")
	r.RemoteAddr = "192.0.2.1:1234"
	h.ServeHTTP(httptest.NewRecorder(), r)
	assert.Equal(t, "192.0.2.1", ip)
	assert.Equal(t, "curl/8.4.0", ua)
}
