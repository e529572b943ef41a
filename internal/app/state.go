// Package app provides the main Bubble Tea application model and state management.
package app

import (
	"fmt"
	"sync"
	"time"

	"github.com/j-veylop/newapi-usage-tui/internal/db"
	"github.com/j-veylop/newapi-usage-tui/internal/services/report"
)

// NotificationType defines the type of notification.
type NotificationType int

const (
	// NotificationSuccess represents a success notification.
	NotificationSuccess NotificationType = iota
	// NotificationError represents an error notification.
	NotificationError
	// NotificationWarning represents a warning notification.
	NotificationWarning
	// NotificationInfo represents an informational notification.
	NotificationInfo
	// NotificationLoading represents a loading notification with spinner.
	NotificationLoading
)

const (
	// LoadingNotificationID is the fixed ID for loading notifications.
	LoadingNotificationID = "__loading__"

	maxNotifications = 10
)

// Loadable resources.
const (
	ResourceInitial = "initial"
	ResourceRefresh = "refresh"
	ResourceAdvice  = "advice"
)

// String returns the string representation of a NotificationType.
func (n NotificationType) String() string {
	switch n {
	case NotificationSuccess:
		return "success"
	case NotificationError:
		return "error"
	case NotificationWarning:
		return "warning"
	case NotificationInfo:
		return "info"
	case NotificationLoading:
		return "loading"
	default:
		return "unknown"
	}
}

// Notification represents a user-facing notification message.
type Notification struct {
	CreatedAt time.Time
	ID        string
	Message   string
	Type      NotificationType
	Duration  time.Duration
}

// IsExpired returns true if the notification has expired.
func (n *Notification) IsExpired() bool {
	if n.Duration <= 0 {
		return false
	}
	return time.Since(n.CreatedAt) > n.Duration
}

// LoadingState tracks loading states for different resources.
type LoadingState struct {
	Initial bool
	Refresh bool
	Advice  bool
}

// State is shared between the root model and the tabs.
type State struct {
	LastUpdated time.Time

	Stats     *report.StatsResult
	Logs      *report.LogsResult
	User      *report.UserResult
	Advice    *report.AdviceResult
	Snapshots []db.SnapshotInfo
	LastError error

	notifications   []Notification
	Loading         LoadingState
	notificationSeq int
	mu              sync.RWMutex
}

// NewState creates an empty state with the initial load pending.
func NewState() *State {
	return &State{
		notifications: make([]Notification, 0),
		Loading:       LoadingState{Initial: true},
	}
}

// SetLoading sets the loading state for a specific resource.
func (s *State) SetLoading(resource string, loading bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch resource {
	case ResourceInitial:
		s.Loading.Initial = loading
	case ResourceRefresh:
		s.Loading.Refresh = loading
	case ResourceAdvice:
		s.Loading.Advice = loading
	}
}

// AnyLoading returns true if any resource is currently loading.
func (s *State) AnyLoading() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.Loading.Initial || s.Loading.Refresh || s.Loading.Advice
}

// IsInitialLoading returns true if initial data is still loading.
func (s *State) IsInitialLoading() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.Loading.Initial
}

// IsLoading reports whether resource is loading.
func (s *State) IsLoading(resource string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	switch resource {
	case ResourceInitial:
		return s.Loading.Initial
	case ResourceRefresh:
		return s.Loading.Refresh
	case ResourceAdvice:
		return s.Loading.Advice
	}
	return false
}

// GetLoadingResources returns a list of currently loading resources.
func (s *State) GetLoadingResources() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var resources []string
	if s.Loading.Initial {
		resources = append(resources, ResourceInitial)
	}
	if s.Loading.Refresh {
		resources = append(resources, ResourceRefresh)
	}
	if s.Loading.Advice {
		resources = append(resources, ResourceAdvice)
	}
	return resources
}

// SetStats stores the latest stats result.
func (s *State) SetStats(res *report.StatsResult) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Stats = res
	s.LastUpdated = time.Now()
}

// GetStats returns the latest stats result or nil.
func (s *State) GetStats() *report.StatsResult {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.Stats
}

// SetLogs stores the latest logs result.
func (s *State) SetLogs(res *report.LogsResult) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Logs = res
	s.LastUpdated = time.Now()
}

// GetLogs returns the latest logs result or nil.
func (s *State) GetLogs() *report.LogsResult {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.Logs
}

// SetUser stores the latest account summary.
func (s *State) SetUser(res *report.UserResult) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.User = res
	s.LastUpdated = time.Now()
}

// GetUser returns the latest account summary or nil.
func (s *State) GetUser() *report.UserResult {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.User
}

// SetAdvice stores the latest advisory result.
func (s *State) SetAdvice(res *report.AdviceResult) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Advice = res
}

// GetAdvice returns the latest advisory result or nil.
func (s *State) GetAdvice() *report.AdviceResult {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.Advice
}

// SetSnapshots stores the fallback snapshot listing.
func (s *State) SetSnapshots(infos []db.SnapshotInfo) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Snapshots = infos
}

// GetSnapshots returns a copy of the snapshot listing.
func (s *State) GetSnapshots() []db.SnapshotInfo {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]db.SnapshotInfo, len(s.Snapshots))
	copy(out, s.Snapshots)
	return out
}

// SetLastError records the most recent service error. nil clears it.
func (s *State) SetLastError(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.LastError = err
}

// GetLastError returns the most recent service error.
func (s *State) GetLastError() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.LastError
}

// AnomalyCount returns failed plus slow calls from the latest logs.
func (s *State) AnomalyCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.Logs == nil || s.Logs.Anomalies == nil {
		return 0
	}
	return s.Logs.Anomalies.ErrorCount + s.Logs.Anomalies.SlowCount
}

// AddNotification adds a new notification and returns its ID.
func (s *State) AddNotification(notifType NotificationType, message string, duration time.Duration) string {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.notificationSeq++
	id := fmt.Sprintf("%s-%d", time.Now().Format("20060102150405"), s.notificationSeq)

	s.notifications = append(s.notifications, Notification{
		ID:        id,
		Type:      notifType,
		Message:   message,
		CreatedAt: time.Now(),
		Duration:  duration,
	})

	if len(s.notifications) > maxNotifications {
		s.notifications = s.notifications[len(s.notifications)-maxNotifications:]
	}

	return id
}

// RemoveNotification removes a notification by ID.
func (s *State) RemoveNotification(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i, n := range s.notifications {
		if n.ID == id {
			s.notifications = append(s.notifications[:i], s.notifications[i+1:]...)
			return
		}
	}
}

// ClearExpiredNotifications removes all expired notifications.
func (s *State) ClearExpiredNotifications() {
	s.mu.Lock()
	defer s.mu.Unlock()

	active := make([]Notification, 0, len(s.notifications))
	for _, n := range s.notifications {
		if !n.IsExpired() {
			active = append(active, n)
		}
	}
	s.notifications = active
}

// GetNotifications returns a copy of all active notifications.
func (s *State) GetNotifications() []Notification {
	s.mu.RLock()
	defer s.mu.RUnlock()

	active := make([]Notification, 0, len(s.notifications))
	for _, n := range s.notifications {
		if !n.IsExpired() {
			active = append(active, n)
		}
	}
	return active
}

// ClearAllNotifications removes all notifications.
func (s *State) ClearAllNotifications() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.notifications = make([]Notification, 0)
}

// SetLoadingNotification sets a loading notification message.
func (s *State) SetLoadingNotification(message string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i, n := range s.notifications {
		if n.ID == LoadingNotificationID {
			s.notifications[i].Message = message
			return
		}
	}

	s.notifications = append(s.notifications, Notification{
		ID:        LoadingNotificationID,
		Type:      NotificationLoading,
		Message:   message,
		CreatedAt: time.Now(),
	})
}

// ClearLoadingNotification removes the loading notification.
func (s *State) ClearLoadingNotification() {
	s.RemoveNotification(LoadingNotificationID)
}

// GetLastUpdated returns the last time the state was updated.
func (s *State) GetLastUpdated() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.LastUpdated
}

// TimeSinceUpdate returns the duration since the last update.
func (s *State) TimeSinceUpdate() time.Duration {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.LastUpdated.IsZero() {
		return 0
	}
	return time.Since(s.LastUpdated)
}
