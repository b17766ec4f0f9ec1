package core

// Logger is implemented by the app's logging services.
// Implementations may inspect args for well-known types (eg. a logged-in
// user) and forward the rest to their backend.
type Logger interface {
	Debug(msg string, args ...interface{})
	Info(msg string, args ...interface{})
	Warn(msg string, args ...interface{})
	Error(msg string, args ...interface{})
	Fatal(msg string, args ...interface{})
}
