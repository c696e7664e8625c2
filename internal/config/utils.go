package config

import (
	"os"
	"path/filepath"
	"strconv"
)

// GetRuntimeDir returns the XDG runtime directory
func GetRuntimeDir() string {
	if dir := os.Getenv("XDG_RUNTIME_DIR"); dir != "" {
		return dir
	}
	uid := os.Getuid()
	return filepath.Join("/run/user", strconv.Itoa(uid))
}

// GetRuntimeSocketPath returns the full path to the Unix socket.
// It checks the user's runtime directory first, then falls back to the
// system socket for a systemd service.
func GetRuntimeSocketPath() string {
	userSocket := filepath.Join(GetRuntimeDir(), SocketFilename)

	if _, err := os.Stat(userSocket); err == nil {
		return userSocket
	}

	systemSocket := filepath.Join("/run/sunrised", SocketFilename)
	if _, err := os.Stat(systemSocket); err == nil {
		return systemSocket
	}

	return userSocket
}

// GetConfigBaseDir returns the base directory for configuration files
func GetConfigBaseDir() string {
	if dir := os.Getenv("XDG_CONFIG_HOME"); dir != "" {
		// For a system service XDG_CONFIG_HOME is set to /etc/sunrised,
		// so return it directly without appending ConfigDirName
		if dir == "/etc/sunrised" {
			return dir
		}
		return filepath.Join(dir, ConfigDirName)
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".config", ConfigDirName)
}

// GetConfigPath returns the full path to a configuration file
func GetConfigPath(filename string) string {
	return filepath.Join(GetConfigBaseDir(), filename)
}

// GetDaemonConfigPath returns the full path to the daemon configuration file
func GetDaemonConfigPath() string {
	return GetConfigPath(DaemonConfigFilename)
}

// ValidatePollInterval clamps the scheduling poll interval to the minimum
// allowed value
func ValidatePollInterval(intervalSeconds int) int {
	if intervalSeconds < MinPollIntervalSeconds {
		return MinPollIntervalSeconds
	}
	return intervalSeconds
}
