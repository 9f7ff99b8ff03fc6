package snapshot

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/JakeFAU/feed-snapshot/internal/document"
)

// FetchRequest captures everything needed to retrieve one URL.
type FetchRequest struct {
	URL     string
	Headers http.Header
}

// FetchResponse is the raw result returned by a Fetcher implementation.
type FetchResponse struct {
	URL        string
	StatusCode int
	Headers    http.Header
	Body       []byte
	Duration   time.Duration
}

// FetchResult pairs a section with the address it was retrieved from and the
// converted document.
type FetchResult struct {
	Section  string         `json:"section"`
	URL      string         `json:"url"`
	Document document.Value `json:"document"`
}

// Envelope is the unit of persistence for one run.
type Envelope struct {
	CreatedAt string        `json:"createdAt"`
	Source    string        `json:"source"`
	Sections  []FetchResult `json:"sections"`
}

// Ack is the store's acknowledgement of a write.
type Ack struct {
	URI  string          `json:"uri"`
	Body json.RawMessage `json:"body,omitempty"`
}

// SectionRef identifies one fetched section in a Report.
type SectionRef struct {
	Section string `json:"section"`
	URL     string `json:"url"`
}

// Report describes a successful run.
type Report struct {
	RunID     string       `json:"run_id"`
	DateKey   string       `json:"date_key"`
	Path      string       `json:"path"`
	CreatedAt time.Time    `json:"created_at"`
	Digest    string       `json:"digest"`
	Ack       Ack          `json:"ack"`
	Sections  []SectionRef `json:"sections"`
}

// RunStatus is the terminal state of a run.
type RunStatus string

// Run status values persisted in the run ledger.
const (
	RunStatusSucceeded RunStatus = "succeeded"
	RunStatusFailed    RunStatus = "failed"
)

// RunRecord is written to the run ledger once per run.
type RunRecord struct {
	ID        string    `json:"id"`
	DateKey   string    `json:"date_key"`
	CreatedAt time.Time `json:"created_at"`
	Status    RunStatus `json:"status"`
	Stage     Stage     `json:"stage,omitempty"`
	ErrorText string    `json:"error_text,omitempty"`
	Sections  int       `json:"sections"`
	Path      string    `json:"path,omitempty"`
	Digest    string    `json:"digest,omitempty"`
}

// Notification is published after a successful write.
type Notification struct {
	RunID     string    `json:"run_id"`
	DateKey   string    `json:"date_key"`
	Path      string    `json:"path"`
	URI       string    `json:"uri"`
	Sections  []string  `json:"sections"`
	Digest    string    `json:"digest"`
	CreatedAt time.Time `json:"created_at"`
}
