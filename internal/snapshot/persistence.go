package snapshot

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
)

// ContentTypeJSON is the content type of persisted envelopes.
const ContentTypeJSON = "application/json"

// DateKey formats t as a zero-padded YYYY-MM-DD in t's own location.
func DateKey(t time.Time) string {
	return t.Format(time.DateOnly)
}

// PersistenceConfig controls where envelopes are written.
type PersistenceConfig struct {
	Collection string
	// ByDate writes to {collection}/{date}.json; otherwise the whole collection
	// object {collection}.json is replaced.
	ByDate bool
}

// Persistence serializes envelopes and upserts them into a Store.
type Persistence struct {
	store  Store
	cfg    PersistenceConfig
	logger *zap.Logger
}

// NewPersistence constructs a Persistence.
func NewPersistence(store Store, cfg PersistenceConfig, logger *zap.Logger) *Persistence {
	if logger == nil {
		logger = zap.NewNop()
	}
	cfg.Collection = strings.Trim(cfg.Collection, "/")
	return &Persistence{store: store, cfg: cfg, logger: logger}
}

// Path returns the object path for dateKey.
func (p *Persistence) Path(dateKey string) string {
	if !p.cfg.ByDate {
		return p.cfg.Collection + ".json"
	}
	if p.cfg.Collection == "" {
		return dateKey + ".json"
	}
	return fmt.Sprintf("%s/%s.json", p.cfg.Collection, dateKey)
}

// Write marshals payload and performs one full-replace write at the path for dateKey.
// It returns the path, the serialized bytes and the store acknowledgement. Every
// failure is a *PersistenceError.
func (p *Persistence) Write(ctx context.Context, dateKey string, payload any) (string, []byte, Ack, error) {
	path := p.Path(dateKey)
	body, err := json.Marshal(payload)
	if err != nil {
		return path, nil, Ack{}, &PersistenceError{Path: path, Err: fmt.Errorf("marshal payload: %w", err)}
	}

	ack, err := p.store.PutObject(ctx, path, ContentTypeJSON, bytes.NewReader(body))
	if err != nil {
		var perr *PersistenceError
		if !errors.As(err, &perr) {
			err = &PersistenceError{Path: path, Err: err}
		}
		p.logger.Warn("envelope write failed", zap.String("path", path), zap.Error(err))
		return path, body, Ack{}, err
	}
	p.logger.Info("envelope written",
		zap.String("path", path),
		zap.String("uri", ack.URI),
		zap.Int("bytes", len(body)),
	)
	return path, body, ack, nil
}
