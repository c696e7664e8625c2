package config

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"sunrised/internal/curve"
	"sunrised/internal/schedule"
	"sunrised/pkg/tuya"
)

// Config represents the application configuration
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	API       APIConfig       `mapstructure:"api"`
	Logging   LoggingConfig   `mapstructure:"logging"`
	Location  LocationConfig  `mapstructure:"location"`
	Schedule  ScheduleConfig  `mapstructure:"schedule"`
	Discovery DiscoveryConfig `mapstructure:"discovery"`

	// DevicesFile optionally holds the device descriptors (and local keys)
	// in a separate YAML file outside the main config.
	DevicesFile string         `mapstructure:"devices_file"`
	Devices     []DeviceConfig `mapstructure:"devices"`
	Curve       curve.Curve    `mapstructure:"curve"`

	// Internal viper instance
	v *viper.Viper
}

// ServerConfig represents the control socket configuration
type ServerConfig struct {
	UnixSocket string `mapstructure:"unix_socket"`
}

// APIConfig represents the optional HTTP API configuration. The API is only
// started when ListenAddress is set.
type APIConfig struct {
	ListenAddress string `mapstructure:"listen_address"`
	AuthToken     string `mapstructure:"auth_token"`
	RateLimit     int    `mapstructure:"rate_limit"`
}

// LoggingConfig represents the logging configuration
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// LocationConfig holds the coordinates used for sunrise lookups
type LocationConfig struct {
	Latitude  float64 `mapstructure:"latitude"`
	Longitude float64 `mapstructure:"longitude"`
}

// ScheduleConfig represents the ramp schedule configuration
type ScheduleConfig struct {
	Mode                 string `mapstructure:"mode"`
	StaticTime           string `mapstructure:"static_time"`
	SunriseOffsetMinutes int    `mapstructure:"sunrise_offset_minutes"`
	RampDurationMinutes  int    `mapstructure:"ramp_duration_minutes"`
	PollIntervalSeconds  int    `mapstructure:"poll_interval"`
}

// DiscoveryConfig represents the UDP discovery configuration
type DiscoveryConfig struct {
	Enabled bool `mapstructure:"enabled"`
}

// DeviceConfig is the on-disk form of a device descriptor. Enabled is a
// pointer so an omitted flag defaults to true.
type DeviceConfig struct {
	ID      string `mapstructure:"id" yaml:"id"`
	Name    string `mapstructure:"name" yaml:"name"`
	Host    string `mapstructure:"host" yaml:"host"`
	Key     string `mapstructure:"key" yaml:"key"`
	Version string `mapstructure:"version" yaml:"version"`
	Enabled *bool  `mapstructure:"enabled" yaml:"enabled"`
}

// ToDevice converts the on-disk form to a runtime descriptor.
func (d DeviceConfig) ToDevice() tuya.Device {
	enabled := true
	if d.Enabled != nil {
		enabled = *d.Enabled
	}
	version := d.Version
	if version == "" {
		version = DefaultDeviceVersion
	}
	return tuya.Device{
		ID:      d.ID,
		Name:    d.Name,
		Host:    d.Host,
		Key:     d.Key,
		Version: version,
		Enabled: enabled,
	}
}

// TuyaDevices returns all configured devices as runtime descriptors.
func (c *Config) TuyaDevices() []tuya.Device {
	out := make([]tuya.Device, 0, len(c.Devices))
	for _, d := range c.Devices {
		out = append(out, d.ToDevice())
	}
	return out
}

// StaticStartSeconds parses the static start time ("HH:MM" or "HH:MM:SS")
// into seconds of day.
func (s ScheduleConfig) StaticStartSeconds() (int, error) {
	var h, m, sec int
	if _, err := fmt.Sscanf(s.StaticTime, "%d:%d:%d", &h, &m, &sec); err != nil {
		sec = 0
		if _, err := fmt.Sscanf(s.StaticTime, "%d:%d", &h, &m); err != nil {
			return 0, fmt.Errorf("invalid static_time %q: %w", s.StaticTime, err)
		}
	}
	if h < 0 || h > 23 || m < 0 || m > 59 || sec < 0 || sec > 59 {
		return 0, fmt.Errorf("invalid static_time %q", s.StaticTime)
	}
	return h*3600 + m*60 + sec, nil
}

// ScheduleParams converts the schedule configuration into evaluator
// parameters. Assumes the config was validated.
func (c *Config) ScheduleParams() schedule.Params {
	start, _ := c.Schedule.StaticStartSeconds()
	return schedule.Params{
		Mode:               schedule.Mode(c.Schedule.Mode),
		StaticStartSeconds: start,
		OffsetMinutes:      c.Schedule.SunriseOffsetMinutes,
		DurationSeconds:    c.Schedule.RampDurationMinutes * 60,
	}
}

// Load loads configuration from a file and environment variables
func Load(configName, configFile string) (*Config, error) {
	v := viper.New()
	v.SetConfigName(configName)
	v.SetConfigType("yaml")

	setDefaults(v)

	if configFile != "" {
		v.SetConfigFile(configFile)
		slog.Info("Using config file from command line", "path", configFile)
	} else {
		configPath := GetConfigPath(configName)
		v.SetConfigFile(configPath)

		if err := os.MkdirAll(GetConfigBaseDir(), 0755); err != nil {
			return nil, fmt.Errorf("error creating config directory: %w", err)
		}
		if _, err := os.Stat(configPath); err == nil {
			slog.Info("Using default config file", "path", configPath)
		}
	}

	// Viper falls back to defaults when the file is absent.
	v.ReadInConfig()

	v.SetEnvPrefix("SUNRISED")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	cfg := &Config{v: v}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	if cfg.DevicesFile != "" {
		devices, err := loadDevicesFile(cfg.DevicesFile)
		if err != nil {
			return nil, err
		}
		cfg.Devices = append(cfg.Devices, devices...)
	}

	if len(cfg.Curve) == 0 {
		cfg.Curve = curve.Default()
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.unix_socket", GetRuntimeSocketPath())
	v.SetDefault("api.listen_address", "")
	v.SetDefault("api.auth_token", "")
	v.SetDefault("api.rate_limit", DefaultRateLimitPerMinute)
	v.SetDefault("logging.level", LogLevelInfo)
	v.SetDefault("logging.format", LogFormatText)
	v.SetDefault("schedule.mode", DefaultMode)
	v.SetDefault("schedule.static_time", DefaultStaticTime)
	v.SetDefault("schedule.sunrise_offset_minutes", DefaultSunriseOffsetMinutes)
	v.SetDefault("schedule.ramp_duration_minutes", DefaultRampDurationMinutes)
	v.SetDefault("schedule.poll_interval", DefaultPollIntervalSeconds)
	v.SetDefault("discovery.enabled", true)
}

// loadDevicesFile reads device descriptors from a standalone YAML file with
// a top-level "devices" list.
func loadDevicesFile(path string) ([]DeviceConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("error reading devices file %s: %w", path, err)
	}
	var parsed struct {
		Devices []DeviceConfig `yaml:"devices"`
	}
	if err := yaml.Unmarshal(data, &parsed); err != nil {
		return nil, fmt.Errorf("error parsing devices file %s: %w", path, err)
	}
	return parsed.Devices, nil
}

// Validate checks the configuration for errors that must be fatal at load
// time: malformed curve, bad device descriptors, unknown schedule mode.
func (c *Config) Validate() error {
	switch c.Schedule.Mode {
	case string(schedule.ModeStatic):
		if _, err := c.Schedule.StaticStartSeconds(); err != nil {
			return err
		}
	case string(schedule.ModeSunrise):
		// Coordinates default to (0,0) which is a valid, if wet, location.
	default:
		return fmt.Errorf("invalid schedule mode %q: must be %q or %q", c.Schedule.Mode, schedule.ModeStatic, schedule.ModeSunrise)
	}

	if c.Schedule.RampDurationMinutes <= 0 {
		return fmt.Errorf("ramp_duration_minutes must be positive, got %d", c.Schedule.RampDurationMinutes)
	}

	if err := c.Curve.Validate(); err != nil {
		return fmt.Errorf("invalid curve: %w", err)
	}

	seen := make(map[string]bool, len(c.Devices))
	for i, d := range c.Devices {
		if d.ID == "" {
			return fmt.Errorf("device %d: missing id", i)
		}
		if seen[d.ID] {
			return fmt.Errorf("device %d: duplicate id %q", i, d.ID)
		}
		seen[d.ID] = true
		if d.Host == "" {
			return fmt.Errorf("device %s: missing host", d.ID)
		}
		if len(d.Key) != LocalKeyLength {
			return fmt.Errorf("device %s: key must be %d bytes, got %d", d.ID, LocalKeyLength, len(d.Key))
		}
		if d.Version != "" && d.Version != DefaultDeviceVersion {
			return fmt.Errorf("device %s: unsupported protocol version %q", d.ID, d.Version)
		}
	}
	return nil
}

// Watch re-loads the configuration whenever the file changes and hands the
// result to onChange. Invalid edits are logged and skipped, keeping the
// running config intact.
func (c *Config) Watch(logger *slog.Logger, onChange func(*Config)) {
	c.v.OnConfigChange(func(e fsnotify.Event) {
		logger.Info("config file changed, reloading", "path", e.Name, "op", e.Op.String())
		fresh := &Config{v: c.v}
		if err := c.v.Unmarshal(fresh); err != nil {
			logger.Error("config reload failed, keeping previous config", "error", err)
			return
		}
		if fresh.DevicesFile != "" {
			devices, err := loadDevicesFile(fresh.DevicesFile)
			if err != nil {
				logger.Error("config reload failed, keeping previous config", "error", err)
				return
			}
			fresh.Devices = append(fresh.Devices, devices...)
		}
		if len(fresh.Curve) == 0 {
			fresh.Curve = curve.Default()
		}
		if err := fresh.Validate(); err != nil {
			logger.Error("config reload failed, keeping previous config", "error", err)
			return
		}
		onChange(fresh)
	})
	c.v.WatchConfig()
}

// Get retrieves a value from the configuration
func (c *Config) Get(key string) interface{} {
	if c.v == nil {
		return nil
	}
	return c.v.Get(key)
}

// Save saves the configuration to file
func (c *Config) Save(filename string) error {
	logger := slog.Default()
	configPath := GetConfigPath(filename)

	logger.Info("Saving configuration", "path", configPath)

	if err := os.MkdirAll(GetConfigBaseDir(), 0755); err != nil {
		return fmt.Errorf("error creating config directory: %w", err)
	}

	c.v.SetConfigFile(configPath)
	if err := c.v.WriteConfig(); err != nil {
		return fmt.Errorf("error writing config file: %w", err)
	}

	logger.Info("Configuration saved successfully", "path", configPath)
	return nil
}
