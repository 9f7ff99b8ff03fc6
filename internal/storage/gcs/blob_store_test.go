package gcs_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"testing"

	"cloud.google.com/go/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/option"

	"github.com/JakeFAU/feed-snapshot/internal/storage/gcs"
)

type roundTripperFunc func(req *http.Request) (*http.Response, error)

func (f roundTripperFunc) RoundTrip(req *http.Request) (*http.Response, error) {
	return f(req)
}

func newTestClient(t *testing.T, fn roundTripperFunc) *storage.Client {
	t.Helper()
	client, err := storage.NewClient(
		context.Background(),
		option.WithoutAuthentication(),
		option.WithHTTPClient(&http.Client{Transport: fn}),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })
	return client
}

func TestNewValidation(t *testing.T) {
	_, err := gcs.New(nil, gcs.Config{Bucket: "b"})
	assert.Error(t, err)

	client := newTestClient(t, func(r *http.Request) (*http.Response, error) {
		return nil, io.EOF
	})
	_, err = gcs.New(client, gcs.Config{Bucket: " "})
	assert.Error(t, err)
}

func TestPutObject(t *testing.T) {
	var (
		gotPath string
		gotName string
		gotBody string
	)
	client := newTestClient(t, func(r *http.Request) (*http.Response, error) {
		gotPath = r.URL.Path
		gotName = r.URL.Query().Get("name")
		body, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		gotBody = string(body)
		return &http.Response{
			StatusCode: http.StatusOK,
			Body: io.NopCloser(strings.NewReader(
				`{"bucket":"snapshots","name":"feeds/eluniverso/2026-02-07.json","generation":"42","size":"12"}`,
			)),
			Header:  http.Header{"Content-Type": []string{"application/json"}},
			Request: r,
		}, nil
	})

	store, err := gcs.New(client, gcs.Config{Bucket: "snapshots", Prefix: "/feeds/"})
	require.NoError(t, err)

	ack, err := store.PutObject(context.Background(), "eluniverso/2026-02-07.json", "application/json",
		bytes.NewReader([]byte(`{"sections":[]}`)))
	require.NoError(t, err)

	assert.Contains(t, gotPath, "/upload/storage/v1/b/snapshots/o")
	assert.Equal(t, "feeds/eluniverso/2026-02-07.json", gotName)
	assert.Contains(t, gotBody, `{"sections":[]}`)
	assert.Equal(t, "gs://snapshots/feeds/eluniverso/2026-02-07.json", ack.URI)

	var body map[string]any
	require.NoError(t, json.Unmarshal(ack.Body, &body))
	assert.EqualValues(t, 42, body["generation"])
}

func TestPutObjectError(t *testing.T) {
	client := newTestClient(t, func(r *http.Request) (*http.Response, error) {
		return &http.Response{
			StatusCode: http.StatusForbidden,
			Body:       io.NopCloser(strings.NewReader(`{"error":{"code":403,"message":"denied"}}`)),
			Header:     http.Header{"Content-Type": []string{"application/json"}},
			Request:    r,
		}, nil
	})
	store, err := gcs.New(client, gcs.Config{Bucket: "snapshots"})
	require.NoError(t, err)

	_, err = store.PutObject(context.Background(), "eluniverso/2026-02-07.json", "application/json",
		bytes.NewReader([]byte(`{}`)))
	assert.Error(t, err)

	_, err = store.PutObject(context.Background(), "", "application/json", bytes.NewReader(nil))
	assert.Error(t, err)
}
