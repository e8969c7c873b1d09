package state

// NotificationKind classifies a user-facing notification.
type NotificationKind int

const (
	NotifySuccess NotificationKind = iota
	NotifyError
)

func (k NotificationKind) String() string {
	if k == NotifyError {
		return "error"
	}
	return "success"
}

// Notifier receives user-facing outcomes. The store never renders anything
// itself.
type Notifier interface {
	Notify(kind NotificationKind, message string)
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(kind NotificationKind, message string)

// Notify calls f.
func (f NotifierFunc) Notify(kind NotificationKind, message string) { f(kind, message) }

type discardNotifier struct{}

func (discardNotifier) Notify(NotificationKind, string) {}

// notification is queued under the store lock and delivered after unlock.
type notification struct {
	kind    NotificationKind
	message string
}
