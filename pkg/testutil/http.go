// Package testutil provides helpers shared by transport and integration
// tests.
package testutil

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

// Client drives a test server's JSON API. Helpers fail the test instead of
// returning errors, so call sites stay assertion-only.
type Client struct {
	t      *testing.T
	server *httptest.Server
}

func NewClient(t *testing.T, server *httptest.Server) *Client {
	return &Client{t: t, server: server}
}

// Do issues a request with a JSON-encoded body. An empty token leaves the
// request unauthenticated.
func (c *Client) Do(method, path, token string, body any) *http.Response {
	c.t.Helper()

	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		require.NoError(c.t, err, "marshal request body")
		reader = bytes.NewReader(encoded)
	}
	req, err := http.NewRequest(method, c.server.URL+path, reader)
	require.NoError(c.t, err)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := c.server.Client().Do(req)
	require.NoError(c.t, err)
	return resp
}

// DecodeJSON drains and closes the response body into a generic map.
func DecodeJSON(t *testing.T, resp *http.Response) map[string]any {
	t.Helper()
	defer resp.Body.Close()
	var decoded map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&decoded), "decode response body")
	return decoded
}
