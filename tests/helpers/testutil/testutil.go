// Package testutil provides HTTP helpers for engine tests.
package testutil

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"
)

// DoJSON performs a request with an optional JSON body and returns the
// status code and raw response body.
func DoJSON(t *testing.T, method, url string, body interface{}) (int, []byte) {
	t.Helper()

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequest(method, url, reader)
	require.NoError(t, err)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, data
}

// Decode unmarshals a JSON response body into out, failing the test
// with the raw body on error.
func Decode(t *testing.T, data []byte, out interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(data, out), "body: %s", string(data))
}

// GetJSON performs a GET, requires the given status, and decodes the
// body into out when out is non-nil.
func GetJSON(t *testing.T, url string, wantStatus int, out interface{}) {
	t.Helper()
	status, data := DoJSON(t, http.MethodGet, url, nil)
	require.Equal(t, wantStatus, status, "GET %s: %s", url, string(data))
	if out != nil {
		Decode(t, data, out)
	}
}

// PostJSON performs a POST, requires the given status, and decodes the
// body into out when out is non-nil.
func PostJSON(t *testing.T, url string, body interface{}, wantStatus int, out interface{}) {
	t.Helper()
	status, data := DoJSON(t, http.MethodPost, url, body)
	require.Equal(t, wantStatus, status, "POST %s: %s", url, string(data))
	if out != nil {
		Decode(t, data, out)
	}
}

// DeleteJSON performs a DELETE, requires the given status, and decodes
// the body into out when out is non-nil.
func DeleteJSON(t *testing.T, url string, wantStatus int, out interface{}) {
	t.Helper()
	status, data := DoJSON(t, http.MethodDelete, url, nil)
	require.Equal(t, wantStatus, status, "DELETE %s: %s", url, string(data))
	if out != nil {
		Decode(t, data, out)
	}
}
