package core

// Logger is any leveled logger that can report errors to an external tracker.
// Implementations may interpret extra args (eg. a logged-in user) as context.
type Logger interface {
	Debug(msg string, args ...interface{})
	Info(msg string, args ...interface{})
	Warn(msg string, args ...interface{})
	Error(msg string, args ...interface{})
	Fatal(msg string, args ...interface{})
}
