// Package testutil provides HTTP test helpers for the ledgerviz server.
package testutil

import (
	"bytes"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

// SampleLedger is a small three-month ledger export
const SampleLedger = `Date,Account,Amount,Description
2024-01-05,Income:Salary,-1000,Pay
2024-01-05,Assets:Checking,1000,Pay
2024-02-10,Expenses:Rent,400,Rent
2024-02-10,Assets:Checking,-400,Rent
2024-03-20,Expenses:Food,100,Groceries
2024-03-20,Assets:Checking,-100,Groceries
`

// TestServer wraps httptest.Server with convenience methods
type TestServer struct {
	Server  *httptest.Server
	BaseURL string
	client  *http.Client
	t       *testing.T
}

// NewTestServer starts router on a local port. Redirects are not followed.
func NewTestServer(t *testing.T, router http.Handler) *TestServer {
	t.Helper()

	server := httptest.NewServer(router)
	t.Cleanup(server.Close)

	return &TestServer{
		Server:  server,
		BaseURL: server.URL,
		client: &http.Client{
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
		t: t,
	}
}

// WriteDataFile writes a fixture into dir
func WriteDataFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

// TestEnv points the LEDGERVIZ_* environment at dataDir for the test
func TestEnv(t *testing.T, dataDir string) {
	t.Helper()
	t.Setenv("LEDGERVIZ_DATA_DIR", dataDir)
	t.Setenv("LEDGERVIZ_LISTEN_ADDR", ":0")
	t.Setenv("LEDGERVIZ_DEBUG", "true")
	t.Setenv("LEDGERVIZ_LOG_LEVEL", "error")
}

func (ts *TestServer) do(req *http.Request) *http.Response {
	ts.t.Helper()
	resp, err := ts.client.Do(req)
	require.NoError(ts.t, err, "%s %s", req.Method, req.URL.Path)
	return resp
}

func (ts *TestServer) request(method, path, contentType string, body io.Reader) *http.Response {
	ts.t.Helper()
	req, err := http.NewRequest(method, ts.BaseURL+path, body)
	require.NoError(ts.t, err)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	return ts.do(req)
}

// GET performs a GET request to the given path
func (ts *TestServer) GET(path string) *http.Response {
	ts.t.Helper()
	return ts.request(http.MethodGet, path, "", nil)
}

// GETWithQuery performs a GET request with encoded query parameters
func (ts *TestServer) GETWithQuery(path string, query url.Values) *http.Response {
	ts.t.Helper()
	if len(query) > 0 {
		path += "?" + query.Encode()
	}
	return ts.GET(path)
}

// POST performs a POST request to the given path
func (ts *TestServer) POST(path, contentType string, body io.Reader) *http.Response {
	ts.t.Helper()
	return ts.request(http.MethodPost, path, contentType, body)
}

// PostForm posts URL-encoded form values
func (ts *TestServer) PostForm(path string, values url.Values) *http.Response {
	ts.t.Helper()
	return ts.POST(path, "application/x-www-form-urlencoded", strings.NewReader(values.Encode()))
}

// PostJSON posts v encoded as JSON
func (ts *TestServer) PostJSON(path string, v interface{}) *http.Response {
	ts.t.Helper()
	data, err := json.Marshal(v)
	require.NoError(ts.t, err)
	return ts.POST(path, "application/json", bytes.NewReader(data))
}

// Upload posts content as the multipart file field "file"
func (ts *TestServer) Upload(path, filename string, content []byte) *http.Response {
	ts.t.Helper()

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("file", filename)
	require.NoError(ts.t, err)
	_, err = part.Write(content)
	require.NoError(ts.t, err)
	require.NoError(ts.t, mw.Close())

	return ts.POST(path, mw.FormDataContentType(), &buf)
}

// DELETE performs a DELETE request to the given path
func (ts *TestServer) DELETE(path string) *http.Response {
	ts.t.Helper()
	return ts.request(http.MethodDelete, path, "", nil)
}

// Close shuts down the test server
func (ts *TestServer) Close() {
	ts.Server.Close()
}

// ReadBody reads and returns the response body as a string
func ReadBody(t *testing.T, resp *http.Response) string {
	t.Helper()
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return string(body)
}
