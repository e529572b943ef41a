// Package report runs the fetch, normalize, aggregate and detect pipeline
// behind every user-facing command.
package report

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"time"

	"github.com/google/uuid"

	"github.com/j-veylop/newapi-usage-tui/internal/advisory"
	"github.com/j-veylop/newapi-usage-tui/internal/anomaly"
	"github.com/j-veylop/newapi-usage-tui/internal/apperr"
	"github.com/j-veylop/newapi-usage-tui/internal/config"
	"github.com/j-veylop/newapi-usage-tui/internal/fallback"
	"github.com/j-veylop/newapi-usage-tui/internal/logger"
	"github.com/j-veylop/newapi-usage-tui/internal/models"
	"github.com/j-veylop/newapi-usage-tui/internal/normalize"
	"github.com/j-veylop/newapi-usage-tui/internal/stats"
	"github.com/j-veylop/newapi-usage-tui/internal/upstream"
)

const logWindow = 24 * time.Hour

// Fetcher is the upstream surface the service needs.
type Fetcher interface {
	Fetch(ctx context.Context, endpoint string, query url.Values) (*upstream.Response, error)
}

// Source describes where a result's data came from.
type Source struct {
	CapturedAt time.Time
	LiveErr    error
	Path       normalize.Path
	Fallback   bool
	Anchored   bool
}

// StatsResult is the outcome of a stats run.
type StatsResult struct {
	Report    *models.StatsReport
	Anomalies *models.AnomalyReport
	RunID     string
	Source    Source
}

// LogsResult is the outcome of a logs run.
type LogsResult struct {
	Anomalies *models.AnomalyReport
	RunID     string
	Entries   []models.LogEntry
	Source    Source
}

// UserResult is the outcome of a user info run.
type UserResult struct {
	RunID  string
	User   models.UserInfo
	Source Source
}

// AdviceResult is the outcome of an advisory run. Err is informational; the
// text is always printable.
type AdviceResult struct {
	Err   error
	Stats *StatsResult
	RunID string
	Text  string
}

// Service orchestrates the report pipeline.
type Service struct {
	cfg     *config.Config
	client  Fetcher
	store   fallback.Store
	advisor *advisory.Generator
	records *normalize.Normalizer
	logs    *normalize.Normalizer
	now     func() time.Time
}

// NewService wires the pipeline. advisor may be nil.
func NewService(cfg *config.Config, client Fetcher, store fallback.Store, advisor *advisory.Generator) *Service {
	return &Service{
		cfg:     cfg,
		client:  client,
		store:   store,
		advisor: advisor,
		records: normalize.FromStrings(cfg.RecordPaths(), normalize.DefaultRecordPaths),
		logs:    normalize.FromStrings(cfg.LogPaths(), normalize.DefaultLogPaths),
		now:     time.Now,
	}
}

// SetClock replaces the time source.
func (s *Service) SetClock(now func() time.Time) {
	s.now = now
}

// Config returns the configuration the service was built with.
func (s *Service) Config() *config.Config {
	return s.cfg
}

// AdvisoryConfigured reports whether Advise can reach a model.
func (s *Service) AdvisoryConfigured() bool {
	return s.advisor.Configured()
}

// Stats aggregates usage over the last hours (0 uses the configured window).
func (s *Service) Stats(ctx context.Context, hours int) (*StatsResult, error) {
	runID := uuid.NewString()
	log := logger.With("run_id", runID, "command", "stats")

	length := s.cfg.WindowFromHours(hours)
	window := stats.WindowEndingAt(s.now().Add(s.cfg.WindowLead), length)

	items, src, err := s.loadList(ctx, log, upstream.EndpointUsage, s.usageQuery(window), s.records)
	if err != nil {
		return nil, err
	}
	records := models.RecordsFromList(items)

	// A snapshot describes the window it was fetched for.
	if src.Fallback && !src.CapturedAt.IsZero() {
		window = stats.WindowEndingAt(src.CapturedAt.Add(s.cfg.WindowLead), length)
	}

	if s.cfg.AnchorToLatest && !anyInWindow(records, window) {
		if src.Fallback {
			// Snapshots saved by an anchored run end at their latest record.
			if latest, ok := stats.LatestCreatedAt(records); ok {
				window = stats.WindowEndingAt(latest.Add(time.Second), length)
				src.Anchored = true
			}
		} else if anchored, anchoredRecords, ok := s.anchor(ctx, log, length); ok {
			window = anchored
			records = anchoredRecords
			src.Anchored = true
		}
	}

	report, err := stats.Aggregate(records, window, s.cfg.TopN)
	if err != nil {
		return nil, err
	}

	inWindow := make([]models.UsageRecord, 0, len(records))
	for _, r := range records {
		if window.Contains(r.CreatedAt) {
			inWindow = append(inWindow, r)
		}
	}
	anomalies := anomaly.FromRecords(inWindow, s.anomalyOptions())

	log.Info("stats computed",
		"records", len(records),
		"requests", report.TotalRequests,
		"tokens", report.TotalTokens,
		"fallback", src.Fallback,
		"anchored", src.Anchored,
	)

	return &StatsResult{RunID: runID, Report: report, Anomalies: anomalies, Source: src}, nil
}

// Logs fetches the first page of recent log entries. pageSize 0 uses the
// configured page size.
func (s *Service) Logs(ctx context.Context, pageSize int) (*LogsResult, error) {
	runID := uuid.NewString()
	log := logger.With("run_id", runID, "command", "logs")

	if pageSize <= 0 {
		pageSize = s.cfg.LogPageSize
	}
	end := s.now()
	query := upstream.LogQuery(end.Add(-logWindow), end, pageSize)

	items, src, err := s.loadList(ctx, log, upstream.EndpointLogs, query, s.logs)
	if err != nil {
		return nil, err
	}

	entries := models.LogEntriesFromList(items, s.cfg.LatencyUnit)
	// A zero page size leaves the upstream default in charge.
	if pageSize > 0 && len(entries) > pageSize {
		entries = entries[:pageSize]
	}
	anomalies := anomaly.FromLogs(entries, s.anomalyOptions())

	log.Info("logs fetched",
		"entries", len(entries),
		"errors", anomalies.ErrorCount,
		"slow", anomalies.SlowCount,
		"fallback", src.Fallback,
	)

	return &LogsResult{RunID: runID, Entries: entries, Anomalies: anomalies, Source: src}, nil
}

// User fetches the account summary.
func (s *Service) User(ctx context.Context) (*UserResult, error) {
	runID := uuid.NewString()
	log := logger.With("run_id", runID, "command", "user")

	parse := func(payload any) (models.UserInfo, error) {
		if ok, present, message := normalize.Envelope(payload); present && !ok {
			return models.UserInfo{}, rejected(message)
		}
		data, ok := normalize.Object(payload, "data")
		if !ok {
			return models.UserInfo{}, apperr.New(apperr.CodeNormalization, "no user object in payload")
		}
		return models.UserInfoFromMap(data), nil
	}

	resp, liveErr := s.client.Fetch(ctx, upstream.EndpointUser, nil)
	if liveErr == nil {
		user, err := parse(resp.Payload)
		if err == nil {
			s.save(ctx, log, upstream.EndpointUser, resp)
			return &UserResult{RunID: runID, User: user, Source: Source{Path: "data"}}, nil
		}
		liveErr = err
	}

	log.Warn("live user fetch failed, trying fallback", "error", liveErr)
	payload, snap, err := s.loadSnapshot(ctx, upstream.EndpointUser)
	if err != nil {
		return nil, diagnose(upstream.EndpointUser, liveErr, err)
	}
	user, err := parse(payload)
	if err != nil {
		return nil, diagnose(upstream.EndpointUser, liveErr, err)
	}
	src := Source{Fallback: true, CapturedAt: snap.CapturedAt, LiveErr: liveErr, Path: "data"}

	return &UserResult{RunID: runID, User: user, Source: src}, nil
}

// Advise computes stats for the window, enriches anomalies from the log
// endpoint when reachable and asks the advisory model for a summary. Without
// a model it returns NotConfiguredText and fetches nothing. Otherwise it only
// returns an error when the stats themselves cannot be produced.
func (s *Service) Advise(ctx context.Context, hours int) (*AdviceResult, error) {
	if !s.advisor.Configured() {
		text, genErr := s.advisor.Generate(ctx, advisory.Input{})
		return &AdviceResult{
			RunID: uuid.NewString(),
			Text:  advisory.Render(text, genErr),
			Err:   genErr,
		}, nil
	}

	st, err := s.Stats(ctx, hours)
	if err != nil {
		return nil, err
	}

	anomalies := st.Anomalies
	if lr, err := s.Logs(ctx, 0); err == nil {
		anomalies = lr.Anomalies
	} else {
		logger.Debug("log anomalies unavailable for advisory", "run_id", st.RunID, "error", err)
	}

	text, genErr := s.advisor.Generate(ctx, advisory.Input{
		Stats:     st.Report,
		Anomalies: anomalies,
		Location:  s.cfg.DisplayLocation,
		Fallback:  st.Source.Fallback,
	})

	return &AdviceResult{
		RunID: st.RunID,
		Stats: st,
		Text:  advisory.Render(text, genErr),
		Err:   genErr,
	}, nil
}

func (s *Service) anomalyOptions() anomaly.Options {
	return anomaly.Options{
		SlowThresholdMs: s.cfg.SlowThresholdMs,
		SampleLimit:     s.cfg.AnomalySamples,
	}
}

func (s *Service) usageQuery(w stats.Window) url.Values {
	return upstream.UsageQuery(w.Start, w.End, s.cfg.UsernameFilter)
}

// loadList fetches and normalizes endpoint, falling back to the stored
// snapshot when either step fails.
func (s *Service) loadList(ctx context.Context, log *slog.Logger, endpoint string, query url.Values, n *normalize.Normalizer) ([]any, Source, error) {
	resp, liveErr := s.client.Fetch(ctx, endpoint, query)
	if liveErr == nil {
		items, path, err := extract(n, resp.Payload)
		if err == nil {
			s.save(ctx, log, endpoint, resp)
			return items, Source{Path: path}, nil
		}
		liveErr = err
	}

	log.Warn("live fetch failed, trying fallback", "endpoint", endpoint, "error", liveErr)

	payload, snap, err := s.loadSnapshot(ctx, endpoint)
	if err != nil {
		return nil, Source{}, diagnose(endpoint, liveErr, err)
	}
	items, path, err := extract(n, payload)
	if err != nil {
		return nil, Source{}, diagnose(endpoint, liveErr, err)
	}

	log.Info("serving fallback snapshot", "endpoint", endpoint, "captured_at", snap.CapturedAt, "age", snap.Age(s.now()).Round(time.Second))
	return items, Source{Fallback: true, CapturedAt: snap.CapturedAt, LiveErr: liveErr, Path: path}, nil
}

func (s *Service) loadSnapshot(ctx context.Context, endpoint string) (any, *models.FallbackSnapshot, error) {
	snap, err := s.store.Get(ctx, endpoint)
	if err != nil {
		return nil, nil, err
	}
	payload, err := upstream.Decode(snap.RawPayload)
	if err != nil {
		return nil, nil, err
	}
	return payload, snap, nil
}

func (s *Service) save(ctx context.Context, log *slog.Logger, endpoint string, resp *upstream.Response) {
	if err := s.store.Put(ctx, endpoint, resp.Raw, s.now()); err != nil {
		log.Warn("failed to store fallback snapshot", "endpoint", endpoint, "error", err)
	}
}

// anchor refetches without a window to find the newest record, then fetches
// the window ending there.
func (s *Service) anchor(ctx context.Context, log *slog.Logger, length time.Duration) (stats.Window, []models.UsageRecord, bool) {
	probe, err := s.client.Fetch(ctx, upstream.EndpointUsage, nil)
	if err != nil {
		log.Debug("anchor probe failed", "error", err)
		return stats.Window{}, nil, false
	}
	items, _, err := extract(s.records, probe.Payload)
	if err != nil {
		return stats.Window{}, nil, false
	}
	latest, ok := stats.LatestCreatedAt(models.RecordsFromList(items))
	if !ok {
		return stats.Window{}, nil, false
	}

	// End one second past the newest record so it falls inside [start, end).
	window := stats.WindowEndingAt(latest.Add(time.Second), length)
	resp, err := s.client.Fetch(ctx, upstream.EndpointUsage, s.usageQuery(window))
	if err != nil {
		log.Debug("anchored fetch failed", "error", err)
		return stats.Window{}, nil, false
	}
	items, _, err = extract(s.records, resp.Payload)
	if err != nil {
		return stats.Window{}, nil, false
	}

	s.save(ctx, log, upstream.EndpointUsage, resp)
	log.Info("anchored window to latest record", "latest", latest)
	return window, models.RecordsFromList(items), true
}

func extract(n *normalize.Normalizer, payload any) ([]any, normalize.Path, error) {
	if ok, present, message := normalize.Envelope(payload); present && !ok {
		return nil, "", rejected(message)
	}
	return n.Extract(payload)
}

func rejected(message string) error {
	if message == "" {
		message = "success=false"
	}
	return apperr.Wrap(errors.New(message), apperr.CodeNormalization, "upstream rejected the request")
}

func anyInWindow(records []models.UsageRecord, w stats.Window) bool {
	for _, r := range records {
		if w.Contains(r.CreatedAt) {
			return true
		}
	}
	return false
}

// DiagnosticError reports that neither the live endpoint nor the fallback
// snapshot could serve a request.
type DiagnosticError struct {
	Live     error
	Fallback error
	Endpoint string
}

func diagnose(endpoint string, live, fb error) *DiagnosticError {
	return &DiagnosticError{Endpoint: endpoint, Live: live, Fallback: fb}
}

func (e *DiagnosticError) Error() string {
	return fmt.Sprintf("%s unavailable: live: %v; fallback: %v", e.Endpoint, e.Live, e.Fallback)
}

// Unwrap exposes both causes to errors.Is and errors.As.
func (e *DiagnosticError) Unwrap() []error {
	return []error{e.Live, e.Fallback}
}

// Hint names the likely cause of the live failure.
func (e *DiagnosticError) Hint() string {
	return apperr.Hint(e.Live)
}

// Message is the user-facing diagnostic text.
func (e *DiagnosticError) Message() string {
	return fmt.Sprintf("Could not load %s and no usable snapshot exists.\nCause: %v\nHint: %s",
		e.Endpoint, e.Live, e.Hint())
}
