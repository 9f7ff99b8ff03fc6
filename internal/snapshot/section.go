package snapshot

import (
	"context"
	"net/http"
	"net/url"
	"strings"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/JakeFAU/feed-snapshot/internal/metrics"
)

// SectionPlaceholder is replaced in the URL template by the escaped section name.
const SectionPlaceholder = "{section}"

// DefaultAccept prefers XML content types.
const DefaultAccept = "application/xml,text/xml;q=0.9,*/*;q=0.8"

// SectionFetcherConfig controls how section URLs are built and requested.
type SectionFetcherConfig struct {
	URLTemplate string
	Accept      string
}

// SectionFetcher retrieves one named feed section and converts it to a document.
type SectionFetcher struct {
	fetcher   Fetcher
	converter Converter
	cfg       SectionFetcherConfig
	logger    *zap.Logger
}

// NewSectionFetcher constructs a SectionFetcher.
func NewSectionFetcher(fetcher Fetcher, converter Converter, cfg SectionFetcherConfig, logger *zap.Logger) *SectionFetcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Accept == "" {
		cfg.Accept = DefaultAccept
	}
	return &SectionFetcher{
		fetcher:   fetcher,
		converter: converter,
		cfg:       cfg,
		logger:    logger,
	}
}

// BuildURL substitutes the path-escaped section into the URL template, so a "/" in
// the section stays inside a single path segment.
func (s *SectionFetcher) BuildURL(section string) string {
	return strings.Replace(s.cfg.URLTemplate, SectionPlaceholder, url.PathEscape(section), 1)
}

// FetchSection performs a single GET for section. A non-2xx status yields a
// *RetrievalError; a body that is not well-formed XML yields the converter's error
// wrapped with the section name.
func (s *SectionFetcher) FetchSection(ctx context.Context, section string) (FetchResult, error) {
	target := s.BuildURL(section)
	ctx, span := tracer.Start(ctx, "snapshot.fetch_section",
		trace.WithAttributes(attribute.String("section", section), attribute.String("url", target)))
	defer span.End()
	logger := s.logger.With(zap.String("section", section), zap.String("url", target))

	resp, err := s.fetcher.Fetch(ctx, FetchRequest{
		URL:     target,
		Headers: http.Header{"Accept": {s.cfg.Accept}},
	})
	if err != nil {
		metrics.ObserveSectionFetch(section, "error", 0)
		logger.Warn("section fetch failed", zap.Error(err))
		retrievalErr := &RetrievalError{Section: section, URL: target, Err: err}
		failSpan(span, retrievalErr)
		return FetchResult{}, retrievalErr
	}
	logger = logger.With(zap.Int("status", resp.StatusCode), zap.Duration("duration", resp.Duration))
	span.SetAttributes(attribute.Int("http.status_code", resp.StatusCode), attribute.Int("bytes", len(resp.Body)))

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		metrics.ObserveSectionFetch(section, "http_error", len(resp.Body))
		logger.Warn("section fetch rejected")
		retrievalErr := &RetrievalError{
			Section:    section,
			URL:        target,
			StatusCode: resp.StatusCode,
			Reason:     http.StatusText(resp.StatusCode),
			Body:       Snippet(resp.Body),
		}
		failSpan(span, retrievalErr)
		return FetchResult{}, retrievalErr
	}

	doc, err := s.converter.Convert(resp.Body)
	if err != nil {
		metrics.ObserveSectionFetch(section, "parse_error", len(resp.Body))
		logger.Warn("section markup invalid", zap.Error(err))
		failSpan(span, err)
		return FetchResult{}, &sectionError{section: section, err: err}
	}

	metrics.ObserveSectionFetch(section, "ok", len(resp.Body))
	logger.Debug("section fetched", zap.Int("bytes", len(resp.Body)))
	return FetchResult{Section: section, URL: target, Document: doc}, nil
}
