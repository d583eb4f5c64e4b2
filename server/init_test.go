package main

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/esimov/facecam-gl/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHandlerServesRoot(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "index.html"), []byte("<canvas></canvas>"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "main.wasm"), []byte("\x00asm"), 0o644))

	srv := httptest.NewServer(newHandler(&httpParams{prefix: "/", root: root}))
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/index.html")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, err = http.Get(srv.URL + "/main.wasm")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "application/wasm", resp.Header.Get("Content-Type"))

	resp, err = http.Get(srv.URL + "/missing.png")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestHandlerPrefix(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "config.toml"), []byte("log_level = \"info\"\n"), 0o644))

	srv := httptest.NewServer(newHandler(&httpParams{prefix: "/demo/", root: root}))
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/demo/config.toml")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

// syncBuffer guards a buffer written by the server goroutine.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func TestRequestsLoggedAtDefaultLevel(t *testing.T) {
	var buf syncBuffer
	log.SetPlainSink(&buf)
	defer log.SetSink(os.Stderr)
	log.SetLevel(log.Notice)
	defer log.SetLevel(log.Info)

	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "index.html"), []byte("<video></video>"), 0o644))

	srv := httptest.NewServer(newHandler(&httpParams{prefix: "/", root: root}))
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/index.html")
	require.NoError(t, err)
	resp.Body.Close()

	assert.Contains(t, buf.String(), "GET /index.html")
}
