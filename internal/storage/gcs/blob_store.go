// Package gcs provides a snapshot store backed by Google Cloud Storage.
package gcs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"

	"cloud.google.com/go/storage"

	"github.com/JakeFAU/feed-snapshot/internal/snapshot"
)

// Config captures the parameters required to write to GCS.
type Config struct {
	Bucket string
	// Prefix is prepended to every object path.
	Prefix string
	// CacheControl is set on written objects when non-empty.
	CacheControl string
}

// BlobStore writes envelopes to a configured GCS bucket. Object writes replace
// any existing object at the same name.
type BlobStore struct {
	client *storage.Client
	cfg    Config
}

// New creates a GCS-backed store.
func New(client *storage.Client, cfg Config) (*BlobStore, error) {
	if client == nil {
		return nil, errors.New("storage client is required")
	}
	if strings.TrimSpace(cfg.Bucket) == "" {
		return nil, errors.New("bucket name is required")
	}
	cfg.Prefix = strings.Trim(cfg.Prefix, "/")
	return &BlobStore{client: client, cfg: cfg}, nil
}

type objectAck struct {
	Bucket     string `json:"bucket"`
	Name       string `json:"name"`
	Generation int64  `json:"generation"`
	Size       int64  `json:"size"`
}

// PutObject uploads data to the configured bucket and returns a gs:// URI along
// with the written object's generation.
func (s *BlobStore) PutObject(ctx context.Context, objectPath string, contentType string, r io.Reader) (snapshot.Ack, error) {
	if strings.TrimSpace(objectPath) == "" {
		return snapshot.Ack{}, errors.New("path is required")
	}
	name := objectPath
	if s.cfg.Prefix != "" {
		name = path.Join(s.cfg.Prefix, objectPath)
	}

	writer := s.client.Bucket(s.cfg.Bucket).Object(name).NewWriter(ctx)
	if contentType != "" {
		writer.ContentType = contentType
	}
	if s.cfg.CacheControl != "" {
		writer.CacheControl = s.cfg.CacheControl
	}
	if _, err := io.Copy(writer, r); err != nil {
		if closeErr := writer.Close(); closeErr != nil {
			return snapshot.Ack{}, fmt.Errorf("copy object: %w (close writer: %v)", err, closeErr)
		}
		return snapshot.Ack{}, fmt.Errorf("copy object: %w", err)
	}
	if err := writer.Close(); err != nil {
		return snapshot.Ack{}, fmt.Errorf("close writer: %w", err)
	}

	ack := snapshot.Ack{URI: fmt.Sprintf("gs://%s/%s", s.cfg.Bucket, name)}
	if attrs := writer.Attrs(); attrs != nil {
		body, err := json.Marshal(objectAck{
			Bucket:     attrs.Bucket,
			Name:       attrs.Name,
			Generation: attrs.Generation,
			Size:       attrs.Size,
		})
		if err == nil {
			ack.Body = body
		}
	}
	return ack, nil
}
