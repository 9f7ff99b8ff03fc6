package snapshot

import (
	"context"
	"io"
	"time"

	"github.com/JakeFAU/feed-snapshot/internal/document"
)

// Fetcher retrieves a URL and returns the body plus metadata. Non-2xx responses are
// returned as responses, not errors; only transport failures are errors.
type Fetcher interface {
	Fetch(ctx context.Context, request FetchRequest) (FetchResponse, error)
}

// Converter turns a markup body into a document.
type Converter interface {
	Convert(data []byte) (document.Value, error)
}

// Store performs a full-replace write of one object.
type Store interface {
	PutObject(ctx context.Context, path string, contentType string, r io.Reader) (Ack, error)
}

// Publisher pushes run notifications to Pub/Sub (or similar).
type Publisher interface {
	Publish(ctx context.Context, topic string, payload any) (string, error)
}

// RunRecorder appends run outcomes to a ledger.
type RunRecorder interface {
	RecordRun(ctx context.Context, record RunRecord) error
}

// RunLister returns the most recent ledger entries, newest first.
type RunLister interface {
	ListRuns(ctx context.Context, limit int) ([]RunRecord, error)
}

// Hasher computes digests of persisted payloads.
type Hasher interface {
	Hash(data []byte) (string, error)
}

// Clock returns the current time (useful for testing).
type Clock interface {
	Now() time.Time
}

// IDGenerator produces run IDs.
type IDGenerator interface {
	NewID() (string, error)
}
