package httputil

import (
	"net/http"
	"strconv"
	"strings"

	dErrors "idbcrm/pkg/domain-errors"
	pstrings "idbcrm/pkg/platform/strings"
)

// QueryInt reads a non-negative integer query parameter, returning def when absent.
func QueryInt(r *http.Request, key string, def int) (int, error) {
	raw := strings.TrimSpace(r.URL.Query().Get(key))
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, dErrors.Newf(dErrors.CodeBadRequest, "%s must be a non-negative integer", key)
	}
	return n, nil
}

// QueryBool reads a boolean query parameter; anything but a true value is false.
func QueryBool(r *http.Request, key string) bool {
	v, _ := strconv.ParseBool(strings.TrimSpace(r.URL.Query().Get(key)))
	return v
}

// QueryList collects a repeated or comma-separated query parameter.
func QueryList(r *http.Request, key string) []string {
	return pstrings.SplitCSV(r.URL.Query()[key])
}
