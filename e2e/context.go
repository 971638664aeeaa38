// Package e2e drives a running idbcrm server through Gherkin scenarios.
package e2e

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"
)

// TestContext carries one scenario's HTTP state.
type TestContext struct {
	BaseURL       string
	AdminEmail    string
	AdminPassword string

	client     *http.Client
	token      string
	lastStatus int
	lastBody   []byte
	vars       map[string]string
}

// NewTestContext reads E2E_BASE_URL, E2E_ADMIN_EMAIL and E2E_ADMIN_PASSWORD.
func NewTestContext() *TestContext {
	return &TestContext{
		BaseURL:       strings.TrimRight(os.Getenv("E2E_BASE_URL"), "/"),
		AdminEmail:    os.Getenv("E2E_ADMIN_EMAIL"),
		AdminPassword: os.Getenv("E2E_ADMIN_PASSWORD"),
		client:        &http.Client{Timeout: 10 * time.Second},
		vars:          map[string]string{},
	}
}

// Reset clears per-scenario state.
func (tc *TestContext) Reset() {
	tc.token = ""
	tc.lastStatus = 0
	tc.lastBody = nil
	tc.vars = map[string]string{}
}

func (tc *TestContext) GetAdminCredentials() (string, string) {
	return tc.AdminEmail, tc.AdminPassword
}

func (tc *TestContext) SetAccessToken(token string) { tc.token = token }

func (tc *TestContext) GetAccessToken() string { return tc.token }

func (tc *TestContext) Set(name, value string) { tc.vars[name] = value }

// Expand replaces {name} placeholders with saved values.
func (tc *TestContext) Expand(s string) string {
	for k, v := range tc.vars {
		s = strings.ReplaceAll(s, "{"+k+"}", v)
	}
	return s
}

func (tc *TestContext) GET(path string) error {
	return tc.Do(http.MethodGet, path, nil)
}

func (tc *TestContext) POST(path string, body any) error {
	return tc.Do(http.MethodPost, path, body)
}

// Do sends body as JSON. A string body is sent verbatim after expansion.
func (tc *TestContext) Do(method, path string, body any) error {
	var r io.Reader
	switch b := body.(type) {
	case nil:
	case string:
		r = strings.NewReader(tc.Expand(b))
	default:
		raw, err := json.Marshal(b)
		if err != nil {
			return err
		}
		r = bytes.NewReader(raw)
	}
	req, err := http.NewRequestWithContext(context.Background(), method, tc.BaseURL+"/api/v1"+tc.Expand(path), r)
	if err != nil {
		return err
	}
	if r != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if tc.token != "" {
		req.Header.Set("Authorization", "Bearer "+tc.token)
	}
	resp, err := tc.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	tc.lastStatus = resp.StatusCode
	tc.lastBody, err = io.ReadAll(resp.Body)
	return err
}

func (tc *TestContext) GetLastStatus() int { return tc.lastStatus }

func (tc *TestContext) GetLastBody() []byte { return tc.lastBody }

// GetResponseField walks a dotted path through the last JSON body. Numeric
// segments index arrays.
func (tc *TestContext) GetResponseField(path string) (any, error) {
	var v any
	if err := json.Unmarshal(tc.lastBody, &v); err != nil {
		return nil, fmt.Errorf("response is not JSON: %w", err)
	}
	for _, seg := range strings.Split(path, ".") {
		switch node := v.(type) {
		case map[string]any:
			next, ok := node[seg]
			if !ok {
				return nil, fmt.Errorf("field %q missing in %s", seg, tc.lastBody)
			}
			v = next
		case []any:
			var i int
			if _, err := fmt.Sscanf(seg, "%d", &i); err != nil || i < 0 || i >= len(node) {
				return nil, fmt.Errorf("index %q out of range in %s", seg, tc.lastBody)
			}
			v = node[i]
		default:
			return nil, fmt.Errorf("cannot descend into %q", seg)
		}
	}
	return v, nil
}
