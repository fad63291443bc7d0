package types

type RunMode string

const (
	// ModeLocal is the mode for running the API server and the sweeper together
	ModeLocal RunMode = "local"
	// ModeAPI is the mode for running just the API server
	ModeAPI RunMode = "api"
	// ModeSweeper is the mode for running just the lifecycle sweeper
	ModeSweeper RunMode = "sweeper"
)

type LogLevel string

const (
	LogLevelDebug LogLevel = "debug"
	LogLevelInfo  LogLevel = "info"
)
