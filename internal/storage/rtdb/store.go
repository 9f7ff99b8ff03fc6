// Package rtdb writes snapshots to a JSON document store over its REST interface
// (Firebase Realtime Database style: PUT {base}/{path} replaces the node).
package rtdb

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/JakeFAU/feed-snapshot/internal/snapshot"
)

// maxAckBytes caps how much of a success response is kept as the ack body.
const maxAckBytes = 1 << 20

// Config describes the target database.
type Config struct {
	// BaseURL is the database root, e.g. https://example-default-rtdb.firebaseio.com.
	BaseURL string
	Timeout time.Duration
}

// Store performs full-replace writes against the database.
type Store struct {
	base   *url.URL
	client *http.Client
}

// Option customises a Store.
type Option func(*Store)

// WithHTTPClient overrides the HTTP client used for writes.
func WithHTTPClient(client *http.Client) Option {
	return func(s *Store) {
		if client != nil {
			s.client = client
		}
	}
}

// New validates cfg and returns a Store.
func New(cfg Config, opts ...Option) (*Store, error) {
	raw := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if raw == "" {
		return nil, errors.New("base url is required")
	}
	base, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}
	if base.Scheme != "http" && base.Scheme != "https" {
		return nil, fmt.Errorf("unsupported base url scheme %q", base.Scheme)
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	s := &Store{
		base:   base,
		client: &http.Client{Timeout: timeout},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// URL returns the address a write to path targets.
func (s *Store) URL(path string) string {
	u := *s.base
	u.Path = strings.TrimRight(u.Path, "/") + "/" + strings.TrimLeft(path, "/")
	return u.String()
}

// PutObject replaces the node at path with the reader's JSON content. Non-2xx
// responses are returned as *snapshot.PersistenceError.
func (s *Store) PutObject(ctx context.Context, path string, contentType string, r io.Reader) (snapshot.Ack, error) {
	if strings.TrimSpace(path) == "" {
		return snapshot.Ack{}, errors.New("path is required")
	}
	target := s.URL(path)
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, target, r)
	if err != nil {
		return snapshot.Ack{}, &snapshot.PersistenceError{Path: path, Err: err}
	}
	if contentType == "" {
		contentType = snapshot.ContentTypeJSON
	}
	req.Header.Set("Content-Type", contentType)

	resp, err := s.client.Do(req)
	if err != nil {
		return snapshot.Ack{}, &snapshot.PersistenceError{Path: path, Err: err}
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxAckBytes))
	if err != nil {
		return snapshot.Ack{}, &snapshot.PersistenceError{Path: path, Err: fmt.Errorf("read response: %w", err)}
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return snapshot.Ack{}, &snapshot.PersistenceError{
			Path:       path,
			StatusCode: resp.StatusCode,
			Reason:     http.StatusText(resp.StatusCode),
			Body:       snapshot.Snippet(body),
		}
	}

	ack := snapshot.Ack{URI: target}
	if len(body) > 0 && json.Valid(body) {
		ack.Body = json.RawMessage(body)
	}
	return ack, nil
}
