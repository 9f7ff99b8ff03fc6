package memory

import (
	"bytes"
	"context"
	"testing"
)

func TestBlobStorePutObjectReplaces(t *testing.T) {
	t.Parallel()

	store := NewBlobStore()
	ack, err := store.PutObject(context.Background(), "eluniverso/2026-02-07.json", "application/json", bytes.NewReader([]byte(`{"v":1}`)))
	if err != nil {
		t.Fatalf("PutObject() error = %v", err)
	}
	if ack.URI != "memory://eluniverso/2026-02-07.json" {
		t.Fatalf("unexpected uri %s", ack.URI)
	}
	if _, err := store.PutObject(context.Background(), "eluniverso/2026-02-07.json", "application/json", bytes.NewReader([]byte(`{"v":2}`))); err != nil {
		t.Fatalf("PutObject() error = %v", err)
	}

	if store.Len() != 1 {
		t.Fatalf("expected a single object, got %d", store.Len())
	}
	got, ok := store.GetObject("eluniverso/2026-02-07.json")
	if !ok || string(got) != `{"v":2}` {
		t.Fatalf("expected second write to replace the first, got %q", got)
	}
	got[0] = 'X'
	again, _ := store.GetObject("eluniverso/2026-02-07.json")
	if string(again) != `{"v":2}` {
		t.Fatalf("expected GetObject to return a copy, got %q", again)
	}
}

func TestBlobStoreGetMissing(t *testing.T) {
	t.Parallel()

	if _, ok := NewBlobStore().GetObject("missing.json"); ok {
		t.Fatal("expected missing object")
	}
}
