package session

// Level is the severity of a notification
type Level string

const (
	LevelInfo    Level = "info"
	LevelSuccess Level = "success"
	LevelWarning Level = "warning"
	LevelError   Level = "error"
)

// Notification kinds
const (
	KindLoginSucceeded = "login_succeeded"
	KindLoginFailed    = "login_failed"
	KindLoggedOut      = "logged_out"
	KindLogoutFailed   = "logout_failed"
	KindSessionExpired = "session_expired"
)

// Notification is a one-shot message for the view layer: shown once, never stored
type Notification struct {
	Kind     string `json:"type"`
	Level    Level  `json:"level"`
	Title    string `json:"title"`
	Message  string `json:"message,omitempty"`
	Redirect string `json:"redirect,omitempty"`
}

// Notifier delivers notifications to whoever renders them
type Notifier interface {
	Notify(n Notification)
}

// NotifierFunc adapts a function to Notifier
type NotifierFunc func(Notification)

func (f NotifierFunc) Notify(n Notification) { f(n) }

type nopNotifier struct{}

func (nopNotifier) Notify(Notification) {}
