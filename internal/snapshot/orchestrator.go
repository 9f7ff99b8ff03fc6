package snapshot

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/JakeFAU/feed-snapshot/internal/document"
	"github.com/JakeFAU/feed-snapshot/internal/metrics"
)

// createdAtLayout matches JavaScript's Date.toISOString output.
const createdAtLayout = "2006-01-02T15:04:05.000Z"

// OrchestratorConfig holds the fixed per-deployment settings of a run.
type OrchestratorConfig struct {
	Sections []string
	Provider string
	Topic    string
}

// Orchestrator composes fetch, sanitize, wrap and persist into one operation.
// It keeps no state between runs; concurrent runs on the same date race and the
// last write wins.
type Orchestrator struct {
	aggregator  *Aggregator
	persistence *Persistence
	clock       Clock
	idGen       IDGenerator
	hasher      Hasher
	publisher   Publisher
	recorder    RunRecorder
	cfg         OrchestratorConfig
	logger      *zap.Logger
}

// NewOrchestrator constructs an Orchestrator. publisher and recorder are optional.
func NewOrchestrator(
	aggregator *Aggregator,
	persistence *Persistence,
	clock Clock,
	idGen IDGenerator,
	hasher Hasher,
	publisher Publisher,
	recorder RunRecorder,
	cfg OrchestratorConfig,
	logger *zap.Logger,
) *Orchestrator {
	if logger == nil {
		logger = zap.NewNop()
	}
	cfg.Sections = append([]string(nil), cfg.Sections...)
	return &Orchestrator{
		aggregator:  aggregator,
		persistence: persistence,
		clock:       clock,
		idGen:       idGen,
		hasher:      hasher,
		publisher:   publisher,
		recorder:    recorder,
		cfg:         cfg,
		logger:      logger,
	}
}

// Run performs one snapshot: fetch every section, sanitize, wrap and persist.
// On failure the returned error is a *StageError naming the stage (and section,
// when one is responsible); nothing is written unless every section succeeded.
func (o *Orchestrator) Run(ctx context.Context) (Report, error) {
	start := time.Now()
	runID, err := o.idGen.NewID()
	if err != nil {
		return Report{}, fmt.Errorf("generate run id: %w", err)
	}
	ctx, span := tracer.Start(ctx, "snapshot.run", trace.WithAttributes(
		attribute.String("run_id", runID),
		attribute.Int("sections", len(o.cfg.Sections)),
	))
	defer span.End()
	logger := o.logger.With(zap.String("run_id", runID))
	logger.Info("run started", zap.Int("sections", len(o.cfg.Sections)))

	results, err := o.aggregator.FetchAll(ctx, o.cfg.Sections)
	// A single reading stamps createdAt and picks the date key for every output.
	now := o.clock.Now()
	dateKey := DateKey(now)
	span.SetAttributes(attribute.String("date_key", dateKey))
	logger = logger.With(zap.String("date_key", dateKey))
	if err != nil {
		stageErr := &StageError{Stage: StageFetch, Section: failedSection(err), Err: err}
		failSpan(span, stageErr)
		o.finish(ctx, logger, RunRecord{ID: runID, DateKey: dateKey, CreatedAt: now}, stageErr, start)
		return Report{}, stageErr
	}

	sections := make([]FetchResult, len(results))
	refs := make([]SectionRef, len(results))
	for i, r := range results {
		sections[i] = FetchResult{Section: r.Section, URL: r.URL, Document: document.Sanitize(r.Document)}
		refs[i] = SectionRef{Section: r.Section, URL: r.URL}
	}
	envelope := Envelope{
		CreatedAt: now.UTC().Format(createdAtLayout),
		Source:    o.cfg.Provider,
		Sections:  sections,
	}

	path, body, ack, err := o.persistence.Write(ctx, dateKey, envelope)
	record := RunRecord{ID: runID, DateKey: dateKey, CreatedAt: now, Sections: len(sections), Path: path}
	if err != nil {
		stageErr := &StageError{Stage: StagePersist, Err: err}
		failSpan(span, stageErr)
		o.finish(ctx, logger, record, stageErr, start)
		return Report{}, stageErr
	}

	digest, err := o.hasher.Hash(body)
	if err != nil {
		logger.Warn("payload digest failed", zap.Error(err))
	}
	record.Digest = digest
	span.SetAttributes(attribute.String("path", path))
	report := Report{
		RunID:     runID,
		DateKey:   dateKey,
		Path:      path,
		CreatedAt: now,
		Digest:    digest,
		Ack:       ack,
		Sections:  refs,
	}
	o.notify(ctx, logger, report)
	o.finish(ctx, logger, record, nil, start)
	return report, nil
}

func (o *Orchestrator) notify(ctx context.Context, logger *zap.Logger, report Report) {
	if o.publisher == nil || o.cfg.Topic == "" {
		return
	}
	names := make([]string, len(report.Sections))
	for i, s := range report.Sections {
		names[i] = s.Section
	}
	msgID, err := o.publisher.Publish(ctx, o.cfg.Topic, Notification{
		RunID:     report.RunID,
		DateKey:   report.DateKey,
		Path:      report.Path,
		URI:       report.Ack.URI,
		Sections:  names,
		Digest:    report.Digest,
		CreatedAt: report.CreatedAt,
	})
	if err != nil {
		logger.Warn("publish notification failed", zap.Error(err))
		return
	}
	logger.Debug("notification published", zap.String("message_id", msgID))
}

func (o *Orchestrator) finish(ctx context.Context, logger *zap.Logger, record RunRecord, runErr *StageError, start time.Time) {
	record.Status = RunStatusSucceeded
	if runErr != nil {
		record.Status = RunStatusFailed
		record.Stage = runErr.Stage
		record.ErrorText = runErr.Error()
	}
	metrics.ObserveRun(string(record.Status), time.Since(start))

	if runErr != nil {
		logger.Error("run failed", zap.String("stage", string(runErr.Stage)), zap.Error(runErr.Err))
	} else {
		logger.Info("run succeeded", zap.String("path", record.Path), zap.Int("sections", record.Sections))
	}

	if o.recorder == nil {
		return
	}
	if err := o.recorder.RecordRun(context.WithoutCancel(ctx), record); err != nil {
		logger.Warn("record run failed", zap.Error(err))
	}
}

func failedSection(err error) string {
	var retrievalErr *RetrievalError
	if errors.As(err, &retrievalErr) {
		return retrievalErr.Section
	}
	var sectionErr *sectionError
	if errors.As(err, &sectionErr) {
		return sectionErr.section
	}
	return ""
}
