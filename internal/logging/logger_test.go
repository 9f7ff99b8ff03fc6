// Package logging includes tests for the zap logger helpers.
package logging

import (
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

// TestNewDevelopmentLogger confirms the development logger builds and logs.
func TestNewDevelopmentLogger(t *testing.T) {
	t.Parallel()

	logger, err := New(true)
	if err != nil {
		t.Fatalf("New(true) error = %v", err)
	}
	if logger == nil {
		t.Fatal("expected logger to be non-nil")
	}
	if !logger.Core().Enabled(zapcore.DebugLevel) {
		t.Fatal("expected debug level to be enabled in development")
	}
	logger.Info("development logger ready")
	_ = Sync(logger)
}

// TestNewProductionLogger ensures the production logger configuration succeeds.
func TestNewProductionLogger(t *testing.T) {
	t.Parallel()

	logger, err := New(false)
	if err != nil {
		t.Fatalf("New(false) error = %v", err)
	}
	if logger.Core().Enabled(zapcore.DebugLevel) {
		t.Fatal("expected debug level to be disabled in production")
	}
	logger.Info("production logger ready")
	_ = Sync(logger)
}

// TestNewAppliesOptions checks options reach the built logger.
func TestNewAppliesOptions(t *testing.T) {
	t.Parallel()

	core, logs := observer.New(zapcore.InfoLevel)
	logger, err := New(false, zap.WrapCore(func(zapcore.Core) zapcore.Core { return core }),
		zap.Fields(zap.String("service", "feed-snapshot")))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	logger.Info("hello")

	entries := logs.All()
	if len(entries) != 1 {
		t.Fatalf("expected one entry, got %d", len(entries))
	}
	if entries[0].ContextMap()["service"] != "feed-snapshot" {
		t.Fatalf("expected service field, got %v", entries[0].ContextMap())
	}
	if err := Sync(nil); err != nil {
		t.Fatalf("Sync(nil) error = %v", err)
	}
}
