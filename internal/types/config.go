package types

// RunMode is the deployment mode of the application
type RunMode string

const (
	// ModeLocal runs the API server and the message consumer together
	ModeLocal RunMode = "local"
	// ModeAPI runs only the HTTP API server
	ModeAPI RunMode = "api"
	// ModeConsumer runs only the outbound-message log consumer
	ModeConsumer RunMode = "consumer"
)

// LogLevel is the logging verbosity
type LogLevel string

const (
	LogLevelDebug LogLevel = "debug"
	LogLevelInfo  LogLevel = "info"
	LogLevelWarn  LogLevel = "warn"
	LogLevelError LogLevel = "error"
)
