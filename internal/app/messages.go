package app

import (
	"time"

	"github.com/j-veylop/newapi-usage-tui/internal/db"
	"github.com/j-veylop/newapi-usage-tui/internal/services"
)

// TickMsg is sent periodically to expire notifications.
type TickMsg struct {
	Time time.Time
}

// StartLoadingMsg signals that a resource is starting to load.
type StartLoadingMsg struct {
	Resource string
}

// StopLoadingMsg signals that a resource has finished loading.
type StopLoadingMsg struct {
	Resource string
}

// RefreshMsg requests a refresh of stats, logs and the account summary.
type RefreshMsg struct{}

// RefreshDoneMsg reports that a manual refresh finished. Results arrive as
// service events.
type RefreshDoneMsg struct {
	Error error
}

// GenerateAdviceMsg requests an advisory run over the last Hours (0 uses the
// configured window).
type GenerateAdviceMsg struct {
	Hours int
}

// AdviceDoneMsg reports that an advisory run finished.
type AdviceDoneMsg struct {
	Error error
}

// SnapshotsLoadedMsg carries the fallback snapshot listing.
type SnapshotsLoadedMsg struct {
	Error     error
	Snapshots []db.SnapshotInfo
}

// AddNotificationMsg requests adding a new notification.
type AddNotificationMsg struct {
	Message  string
	Type     NotificationType
	Duration time.Duration
}

// RemoveNotificationMsg requests removal of a notification.
type RemoveNotificationMsg struct {
	ID string
}

// ClearExpiredNotificationsMsg triggers clearing of expired notifications.
type ClearExpiredNotificationsMsg struct{}

// ServiceEventMsg wraps a service event from the service manager.
type ServiceEventMsg struct {
	Event services.ServiceEvent
}

// SubscriptionEventMsg is the callback wrapper for service subscription.
type SubscriptionEventMsg struct {
	Channel chan services.ServiceEvent
}

// ErrorMsg represents a general error.
type ErrorMsg struct {
	Error   error
	Context string
}

// TabSwitchMsg requests switching to a specific tab.
type TabSwitchMsg struct {
	Tab TabID
}

// ToggleHelpMsg toggles the help display.
type ToggleHelpMsg struct{}
