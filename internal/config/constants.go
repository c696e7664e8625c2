package config

// Common constants shared between daemon and client
const (
	// ConfigDirName is the name of the config directory within XDG_CONFIG_HOME
	ConfigDirName = "sunrised"

	// DaemonConfigFilename is the base filename for daemon config
	DaemonConfigFilename = "sunrised.yaml"

	// ClientConfigFilename is the base filename for client config
	ClientConfigFilename = "sunrisectl.yaml"

	// SocketFilename is the base filename for the Unix socket
	SocketFilename = "sunrised.sock"
)

// Schedule defaults
const (
	// DefaultMode is the default schedule mode
	DefaultMode = "sunrise"

	// DefaultStaticTime is the default static-mode start time
	DefaultStaticTime = "07:30"

	// DefaultSunriseOffsetMinutes starts the ramp this many minutes
	// relative to sunrise (negative = before)
	DefaultSunriseOffsetMinutes = -30

	// DefaultRampDurationMinutes is the default ramp length
	DefaultRampDurationMinutes = 30

	// DefaultPollIntervalSeconds is how often the scheduling loop checks
	// the clock
	DefaultPollIntervalSeconds = 10

	// MinPollIntervalSeconds is the minimum allowed poll interval
	MinPollIntervalSeconds = 1
)

// API defaults
const (
	// DefaultRateLimitPerMinute is the per-IP request budget for the HTTP API
	DefaultRateLimitPerMinute = 120
)

// Device constraints
const (
	// LocalKeyLength is the required length of a Tuya local key
	LocalKeyLength = 16

	// DefaultDeviceVersion is the only supported protocol version
	DefaultDeviceVersion = "3.3"
)

// Logging constants
const (
	// LogLevelDebug represents debug log level
	LogLevelDebug = "debug"

	// LogLevelInfo represents info log level
	LogLevelInfo = "info"

	// LogLevelWarn represents warning log level
	LogLevelWarn = "warn"

	// LogLevelError represents error log level
	LogLevelError = "error"

	// LogFormatText represents text log format
	LogFormatText = "text"

	// LogFormatJSON represents JSON log format
	LogFormatJSON = "json"
)
