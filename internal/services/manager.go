// Package services provides service orchestration for the TUI.
package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/gen2brain/beeep"

	"github.com/j-veylop/newapi-usage-tui/internal/advisory"
	"github.com/j-veylop/newapi-usage-tui/internal/config"
	"github.com/j-veylop/newapi-usage-tui/internal/db"
	"github.com/j-veylop/newapi-usage-tui/internal/fallback"
	"github.com/j-veylop/newapi-usage-tui/internal/logger"
	"github.com/j-veylop/newapi-usage-tui/internal/services/report"
	"github.com/j-veylop/newapi-usage-tui/internal/upstream"
)

type (
	// StatsUpdatedEvent is emitted after a stats run.
	StatsUpdatedEvent struct {
		Result *report.StatsResult
	}

	// LogsUpdatedEvent is emitted after a logs run.
	LogsUpdatedEvent struct {
		Result *report.LogsResult
	}

	// UserUpdatedEvent is emitted after the account summary is fetched.
	UserUpdatedEvent struct {
		Result *report.UserResult
	}

	// AdviceReadyEvent is emitted when an advisory run finishes.
	AdviceReadyEvent struct {
		Result *report.AdviceResult
		Err    error
	}

	// ConfigReloadedEvent is emitted when the YAML config file changes.
	ConfigReloadedEvent struct {
		Provider   string
		Configured bool
	}

	// ErrorEvent is emitted when a service operation fails.
	ErrorEvent struct {
		Error  error
		Source string
	}
)

// ServiceEvent is the interface for all service events.
type ServiceEvent interface {
	isServiceEvent()
}

func (StatsUpdatedEvent) isServiceEvent()   {}
func (LogsUpdatedEvent) isServiceEvent()    {}
func (UserUpdatedEvent) isServiceEvent()    {}
func (AdviceReadyEvent) isServiceEvent()    {}
func (ConfigReloadedEvent) isServiceEvent() {}
func (ErrorEvent) isServiceEvent()          {}

// notify is swapped out in tests.
var notify = beeep.Notify

// Manager owns the report pipeline and fans its results out to subscribers.
type Manager struct {
	cfg     *config.Config
	client  report.Fetcher
	store   fallback.Store
	service *report.Service
	watcher *config.Watcher
	now     func() time.Time

	lastStats *report.StatsResult
	lastLogs  *report.LogsResult
	lastUser  *report.UserResult

	stopChan    chan struct{}
	subscribers []chan ServiceEvent

	previousAnomalies int
	mu                sync.RWMutex
	refreshing        atomic.Bool
	closeOnce         sync.Once
}

// NewManager opens the fallback store, builds the upstream client and starts
// polling and config watching.
func NewManager(cfg *config.Config) (*Manager, error) {
	store, err := fallback.Open(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to open fallback store: %w", err)
	}

	m := NewManagerWithFetcher(cfg, upstream.NewClient(cfg), store)

	if cfg.ConfigFile != "" {
		w, err := config.Watch(cfg.ConfigFile, m.reloadFile, func(err error) {
			m.broadcast(ErrorEvent{Error: err, Source: "config"})
		})
		if err != nil {
			logger.Warn("config file watching disabled", "path", cfg.ConfigFile, "error", err)
		} else {
			m.watcher = w
		}
	}

	m.Start()
	return m, nil
}

// NewManagerWithFetcher creates a Manager around an existing fetcher and
// store. Polling does not start until Start is called.
func NewManagerWithFetcher(cfg *config.Config, client report.Fetcher, store fallback.Store) *Manager {
	m := &Manager{
		cfg:               cfg,
		client:            client,
		store:             store,
		stopChan:          make(chan struct{}),
		previousAnomalies: -1,
	}
	m.service = report.NewService(cfg, client, store, advisory.New(cfg, nil))
	return m
}

// SetClock replaces the time source of the pipeline.
func (m *Manager) SetClock(now func() time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.now = now
	m.service.SetClock(now)
}

// Start begins periodic refreshes. A non-positive RefreshInterval disables
// polling.
func (m *Manager) Start() {
	interval := m.Config().RefreshInterval
	if interval <= 0 {
		return
	}
	go m.poll(interval)
}

func (m *Manager) poll(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			// Reloads swap the config, so read it once per tick.
			ctx, cancel := context.WithTimeout(context.Background(), 3*m.Config().RequestTimeout+time.Second)
			if err := m.Refresh(ctx); err != nil {
				logger.Debug("periodic refresh finished with errors", "error", err)
			}
			cancel()
		case <-m.stopChan:
			return
		}
	}
}

// Service returns the current report service.
func (m *Manager) Service() *report.Service {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.service
}

// Config returns the active configuration.
func (m *Manager) Config() *config.Config {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.cfg
}

// Refresh runs stats, logs and user info and broadcasts each result. Errors
// are broadcast as ErrorEvent and joined into the return value. A refresh
// that starts while another is running is skipped.
func (m *Manager) Refresh(ctx context.Context) error {
	if !m.refreshing.CompareAndSwap(false, true) {
		return nil
	}
	defer m.refreshing.Store(false)

	svc := m.Service()
	var errs []error

	if st, err := svc.Stats(ctx, 0); err != nil {
		errs = append(errs, err)
		m.broadcast(ErrorEvent{Error: err, Source: "stats"})
	} else {
		m.mu.Lock()
		m.lastStats = st
		m.mu.Unlock()
		m.broadcast(StatsUpdatedEvent{Result: st})
	}

	if lr, err := svc.Logs(ctx, 0); err != nil {
		errs = append(errs, err)
		m.broadcast(ErrorEvent{Error: err, Source: "logs"})
	} else {
		m.mu.Lock()
		m.lastLogs = lr
		m.mu.Unlock()
		m.checkNotifications(lr)
		m.broadcast(LogsUpdatedEvent{Result: lr})
	}

	if ur, err := svc.User(ctx); err != nil {
		errs = append(errs, err)
		m.broadcast(ErrorEvent{Error: err, Source: "user"})
	} else {
		m.mu.Lock()
		m.lastUser = ur
		m.mu.Unlock()
		m.broadcast(UserUpdatedEvent{Result: ur})
	}

	return errors.Join(errs...)
}

// GenerateAdvice runs an advisory over the last hours and broadcasts the
// outcome.
func (m *Manager) GenerateAdvice(ctx context.Context, hours int) (*report.AdviceResult, error) {
	res, err := m.Service().Advise(ctx, hours)
	if err != nil {
		m.broadcast(ErrorEvent{Error: err, Source: "advice"})
		return nil, err
	}
	m.broadcast(AdviceReadyEvent{Result: res, Err: res.Err})
	return res, nil
}

// checkNotifications sends a desktop notification when the number of
// failed or slow calls grows between two log refreshes.
func (m *Manager) checkNotifications(lr *report.LogsResult) {
	if lr == nil || lr.Anomalies == nil {
		return
	}
	count := lr.Anomalies.ErrorCount + lr.Anomalies.SlowCount

	m.mu.Lock()
	previous := m.previousAnomalies
	m.previousAnomalies = count
	enabled := m.cfg.NotifyAnomalies
	m.mu.Unlock()

	if !enabled || previous < 0 || count <= previous {
		return
	}

	title := "API anomalies detected"
	body := fmt.Sprintf("%d failed and %d slow calls in the latest %d log entries",
		lr.Anomalies.ErrorCount, lr.Anomalies.SlowCount, lr.Anomalies.Scanned)
	if err := notify(title, body, ""); err != nil {
		logger.Debug("desktop notification failed", "error", err)
	}
}

// reloadFile swaps in a service built from the new YAML overrides.
func (m *Manager) reloadFile(f *config.File) {
	m.mu.Lock()
	next := *m.cfg
	next.File = f
	advisor := advisory.New(&next, nil)
	svc := report.NewService(&next, m.client, m.store, advisor)
	if m.now != nil {
		svc.SetClock(m.now)
	}
	m.cfg = &next
	m.service = svc
	m.mu.Unlock()

	m.broadcast(ConfigReloadedEvent{Provider: advisor.Provider(), Configured: advisor.Configured()})
}

// broadcast sends an event to all subscribers without blocking.
func (m *Manager) broadcast(event ServiceEvent) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, sub := range m.subscribers {
		select {
		case sub <- event:
		default:
			logger.Debug("dropping event for slow subscriber", "event", fmt.Sprintf("%T", event))
		}
	}
}

// Subscribe returns a channel receiving service events and a command that
// waits for the first one.
func (m *Manager) Subscribe() (chan ServiceEvent, tea.Cmd) {
	ch := make(chan ServiceEvent, 100)

	m.mu.Lock()
	m.subscribers = append(m.subscribers, ch)
	m.mu.Unlock()

	return ch, waitForEvent(ch)
}

func waitForEvent(ch <-chan ServiceEvent) tea.Cmd {
	return func() tea.Msg {
		return <-ch
	}
}

// WaitForEvent returns a command that waits for the next event on ch.
func WaitForEvent(ch <-chan ServiceEvent) tea.Cmd {
	return waitForEvent(ch)
}

// Unsubscribe removes and closes a subscriber channel.
func (m *Manager) Unsubscribe(ch chan ServiceEvent) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for i, sub := range m.subscribers {
		if sub == ch {
			m.subscribers = append(m.subscribers[:i], m.subscribers[i+1:]...)
			close(ch)
			return
		}
	}
}

// Latest returns the most recent results. Any of them may be nil.
func (m *Manager) Latest() (*report.StatsResult, *report.LogsResult, *report.UserResult) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.lastStats, m.lastLogs, m.lastUser
}

// Snapshots lists the stored fallback snapshots.
func (m *Manager) Snapshots(ctx context.Context) ([]db.SnapshotInfo, error) {
	lister, ok := m.store.(fallback.Lister)
	if !ok {
		return nil, nil
	}
	return lister.List(ctx)
}

// Close stops polling and watching, closes subscribers and the store.
func (m *Manager) Close() error {
	var errs []error
	m.closeOnce.Do(func() {
		if m.stopChan != nil {
			close(m.stopChan)
		}

		if m.watcher != nil {
			if err := m.watcher.Close(); err != nil {
				errs = append(errs, fmt.Errorf("config watcher: %w", err))
			}
		}

		m.mu.Lock()
		for _, sub := range m.subscribers {
			close(sub)
		}
		m.subscribers = nil
		m.mu.Unlock()

		if m.store != nil {
			if err := m.store.Close(); err != nil {
				errs = append(errs, fmt.Errorf("fallback store: %w", err))
			}
		}
	})
	return errors.Join(errs...)
}
