package snapshot

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

// bodySnippetLimit bounds the response body excerpt carried by errors.
const bodySnippetLimit = 200

// Stage names the pipeline step that produced a run failure.
type Stage string

// Pipeline stages.
const (
	StageFetch   Stage = "fetch"
	StagePersist Stage = "persist"
)

// RetrievalError reports a failed section retrieval: either a transport error (Err
// set, StatusCode zero) or a non-2xx response.
type RetrievalError struct {
	Section    string
	URL        string
	StatusCode int
	Reason     string
	Body       string
	Err        error
}

func (e *RetrievalError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("retrieve section %q from %s: %v", e.Section, e.URL, e.Err)
	}
	return fmt.Sprintf("retrieve section %q: status %d (%s). Body: %s", e.Section, e.StatusCode, e.Reason, e.Body)
}

func (e *RetrievalError) Unwrap() error { return e.Err }

// PersistenceError reports a rejected or failed store write.
type PersistenceError struct {
	Path       string
	StatusCode int
	Reason     string
	Body       string
	Err        error
}

func (e *PersistenceError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("persist %s: %v", e.Path, e.Err)
	}
	return fmt.Sprintf("persist %s: status %d (%s). Body: %s", e.Path, e.StatusCode, e.Reason, e.Body)
}

func (e *PersistenceError) Unwrap() error { return e.Err }

// StageError is the single terminal failure of a run.
type StageError struct {
	Stage   Stage
	Section string
	Err     error
}

func (e *StageError) Error() string {
	if e.Section != "" {
		return fmt.Sprintf("%s stage failed for section %q: %v", e.Stage, e.Section, e.Err)
	}
	return fmt.Sprintf("%s stage failed: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error { return e.Err }

// Snippet returns at most the first 200 characters of body, trimmed.
func Snippet(body []byte) string {
	s := strings.ToValidUTF8(string(body), "�")
	if utf8.RuneCountInString(s) <= bodySnippetLimit {
		return strings.TrimSpace(s)
	}
	runes := []rune(s)
	return strings.TrimSpace(string(runes[:bodySnippetLimit]))
}

// sectionError attaches the section name to a conversion failure.
type sectionError struct {
	section string
	err     error
}

func (e *sectionError) Error() string {
	return fmt.Sprintf("section %q: %v", e.section, e.err)
}

func (e *sectionError) Unwrap() error { return e.err }
