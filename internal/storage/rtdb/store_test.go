package rtdb_test

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JakeFAU/feed-snapshot/internal/snapshot"
	"github.com/JakeFAU/feed-snapshot/internal/storage/rtdb"
)

func TestNewValidation(t *testing.T) {
	_, err := rtdb.New(rtdb.Config{})
	assert.Error(t, err)
	_, err = rtdb.New(rtdb.Config{BaseURL: "ftp://db.example.com"})
	assert.Error(t, err)
	store, err := rtdb.New(rtdb.Config{BaseURL: "https://db.example.com/"})
	require.NoError(t, err)
	assert.Equal(t, "https://db.example.com/eluniverso/2026-02-07.json", store.URL("eluniverso/2026-02-07.json"))
}

func TestPutObjectReplacesNode(t *testing.T) {
	var (
		method      string
		path        string
		contentType string
		received    []byte
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		method = r.Method
		path = r.URL.Path
		contentType = r.Header.Get("Content-Type")
		received, _ = io.ReadAll(r.Body)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write(received)
	}))
	t.Cleanup(srv.Close)

	store, err := rtdb.New(rtdb.Config{BaseURL: srv.URL}, rtdb.WithHTTPClient(srv.Client()))
	require.NoError(t, err)

	payload := []byte(`{"createdAt":"2026-02-07T15:30:00.000Z","source":"eluniverso","sections":[]}`)
	ack, err := store.PutObject(context.Background(), "eluniverso/2026-02-07.json", "application/json", bytes.NewReader(payload))
	require.NoError(t, err)

	assert.Equal(t, http.MethodPut, method)
	assert.Equal(t, "/eluniverso/2026-02-07.json", path)
	assert.Equal(t, "application/json", contentType)
	assert.JSONEq(t, string(payload), string(received))
	assert.Equal(t, srv.URL+"/eluniverso/2026-02-07.json", ack.URI)
	assert.JSONEq(t, string(payload), string(ack.Body))
}

func TestPutObjectRejected(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`  {"error" : "Permission denied"}` + strings.Repeat(" ", 300)))
	}))
	t.Cleanup(srv.Close)

	store, err := rtdb.New(rtdb.Config{BaseURL: srv.URL}, rtdb.WithHTTPClient(srv.Client()))
	require.NoError(t, err)

	_, err = store.PutObject(context.Background(), "eluniverso/2026-02-07.json", "", bytes.NewReader([]byte(`{}`)))
	var perr *snapshot.PersistenceError
	require.True(t, errors.As(err, &perr))
	assert.Equal(t, "eluniverso/2026-02-07.json", perr.Path)
	assert.Equal(t, http.StatusUnauthorized, perr.StatusCode)
	assert.Equal(t, "Unauthorized", perr.Reason)
	assert.Equal(t, `{"error" : "Permission denied"}`, perr.Body)
}

func TestPutObjectTransportFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	base := srv.URL
	srv.Close()

	store, err := rtdb.New(rtdb.Config{BaseURL: base})
	require.NoError(t, err)

	_, err = store.PutObject(context.Background(), "eluniverso/2026-02-07.json", "", bytes.NewReader([]byte(`{}`)))
	var perr *snapshot.PersistenceError
	require.True(t, errors.As(err, &perr))
	assert.Zero(t, perr.StatusCode)
	assert.Contains(t, err.Error(), "eluniverso/2026-02-07.json")
}
