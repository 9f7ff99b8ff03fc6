// Package snapshot implements the daily feed snapshot pipeline.
//
// A run fetches every configured feed section concurrently, converts each XML body
// into a document tree, rewrites mapping keys the document store would reject, wraps
// the results in a timestamped Envelope and writes it under the current local date.
// Any failing section fails the whole run before anything is written.
//
// The package only defines the pipeline and the interfaces it depends on; transports
// and stores live in internal/fetcher and internal/storage.
package snapshot
