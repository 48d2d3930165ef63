package realtime

import (
	"fmt"
	"sync"
	"time"

	"github.com/renewloop/ewaste-repair-api/models"
)

// DisplayWindow is how long an alert stays in the active set before it is
// removed automatically.
const DisplayWindow = 5 * time.Second

// Alert severities
const (
	AlertSuccess = "success"
	AlertInfo    = "info"
	AlertError   = "error"
)

// statusAlerts maps a target status to its fixed alert template. Unmapped
// statuses fall back to a generic message.
var statusAlerts = map[string]string{
	models.StatusAssigned:   "A technician has accepted your repair request",
	models.StatusDiagnosing: "Diagnosis of your device has started",
	models.StatusRepairing:  "Repair of your device has started",
	models.StatusCompleted:  "Your device has been repaired",
	models.StatusCancelled:  "Your repair request has been cancelled",
}

// Alert is a short-lived, human-readable notification derived from a
// lifecycle transition. Alerts are session-local and never persisted.
type Alert struct {
	ID        int64     `json:"id"`
	Message   string    `json:"message"`
	Type      string    `json:"type"` // "success", "info" or "error"
	CreatedAt time.Time `json:"created_at"`
}

// Clock abstracts time for the notifier so expiry can be driven by a
// simulated clock in tests.
type Clock interface {
	Now() time.Time
	AfterFunc(d time.Duration, f func()) (cancel func())
}

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }

func (realClock) AfterFunc(d time.Duration, f func()) func() {
	t := time.AfterFunc(d, f)
	return func() { t.Stop() }
}

// Notifier translates lifecycle transitions into stacked, auto-expiring
// alerts. There is no dedup: rapid transitions produce one alert each, kept
// in arrival order until their display window elapses.
type Notifier struct {
	mu     sync.Mutex
	clock  Clock
	nextID int64
	active []Alert
}

// NewNotifier creates a notifier using the wall clock
func NewNotifier() *Notifier {
	return NewNotifierWithClock(realClock{})
}

// NewNotifierWithClock creates a notifier driven by the given clock
func NewNotifierWithClock(clock Clock) *Notifier {
	return &Notifier{clock: clock}
}

// StatusChanged emits the alert for a transition to newStatus. Cancellation
// is an error alert; everything else is a success.
func (n *Notifier) StatusChanged(newStatus string) Alert {
	message, ok := statusAlerts[newStatus]
	if !ok {
		message = fmt.Sprintf("Status updated to %s", newStatus)
	}

	severity := AlertSuccess
	if newStatus == models.StatusCancelled {
		severity = AlertError
	}
	return n.push(message, severity)
}

// ThreadActivity emits the informational alert for new message-thread activity
func (n *Notifier) ThreadActivity() Alert {
	return n.push("New update on your repair request", AlertInfo)
}

// Failure emits an error alert for a failed remote call
func (n *Notifier) Failure(message string) Alert {
	return n.push(message, AlertError)
}

// NewRequest emits the alert technicians see when a fresh request arrives
func (n *Notifier) NewRequest(deviceType string) Alert {
	return n.push(fmt.Sprintf("New repair request: %s", deviceType), AlertInfo)
}

// Active returns the alerts currently within their display window, oldest first
func (n *Notifier) Active() []Alert {
	n.mu.Lock()
	defer n.mu.Unlock()

	alerts := make([]Alert, len(n.active))
	copy(alerts, n.active)
	return alerts
}

func (n *Notifier) push(message, severity string) Alert {
	n.mu.Lock()
	n.nextID++
	alert := Alert{
		ID:        n.nextID,
		Message:   message,
		Type:      severity,
		CreatedAt: n.clock.Now(),
	}
	n.active = append(n.active, alert)
	n.mu.Unlock()

	// Deferred removal keeps the window fixed per alert regardless of how
	// many newer alerts arrive in the meantime.
	n.clock.AfterFunc(DisplayWindow, func() {
		n.remove(alert.ID)
	})
	return alert
}

func (n *Notifier) remove(id int64) {
	n.mu.Lock()
	defer n.mu.Unlock()

	for i, alert := range n.active {
		if alert.ID == id {
			n.active = append(n.active[:i], n.active[i+1:]...)
			return
		}
	}
}
