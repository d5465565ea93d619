package client

// Severity classifies a notification for the presentation layer.
type Severity string

const (
	SeveritySuccess Severity = "success"
	SeverityWarning Severity = "warning"
	SeverityError   Severity = "error"
)

// Notification is one user-facing message produced by an action runner.
type Notification struct {
	Severity Severity
	Message  string
}

// Notifier is a bounded notification queue. Publishing never blocks:
// when the queue is full the oldest notification is dropped, so a stalled
// consumer sees the most recent outcomes.
type Notifier struct {
	ch chan Notification
}

// NewNotifier creates a Notifier holding at most capacity notifications.
func NewNotifier(capacity int) *Notifier {
	if capacity < 1 {
		capacity = 16
	}
	return &Notifier{ch: make(chan Notification, capacity)}
}

// Publish enqueues a notification, evicting the oldest one when full.
func (n *Notifier) Publish(sev Severity, msg string) {
	note := Notification{Severity: sev, Message: msg}
	for {
		select {
		case n.ch <- note:
			return
		default:
		}
		select {
		case <-n.ch:
		default:
		}
	}
}

// C returns the receive side of the queue.
func (n *Notifier) C() <-chan Notification {
	return n.ch
}
