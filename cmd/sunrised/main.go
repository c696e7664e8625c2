package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"sunrised/internal/config"
	"sunrised/internal/schedule"
	"sunrised/internal/server"
	"sunrised/internal/sunrise"
	"sunrised/pkg/tuya"
)

var (
	version   = "dev"
	commit    = "unknown"
	buildDate = "unknown"
)

func main() {
	// Set up Viper for configuration
	v := viper.New()
	v.SetEnvPrefix("SUNRISED")
	v.AutomaticEnv()

	// Set up command line flags
	pflag.String("log-level", "info", "Log level (debug, info, warn, error)")
	pflag.String("log-format", "text", "Log format (text, json)")
	pflag.String("config", "", "Path to config file")
	pflag.Int("poll-interval", config.DefaultPollIntervalSeconds, "Schedule poll interval in seconds")
	pflag.Parse()

	// Bind flags to Viper - this ensures flags take precedence
	v.BindPFlag("logging.level", pflag.Lookup("log-level"))
	v.BindPFlag("logging.format", pflag.Lookup("log-format"))
	v.BindPFlag("schedule.poll_interval", pflag.Lookup("poll-interval"))

	// Load configuration
	cfg, err := config.Load(config.DaemonConfigFilename, v.GetString("config"))
	if err != nil {
		logger := config.SetupErrorLogger()
		logger.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	// Set up logging with configured level - Viper will use flag value if set
	logger := config.SetupLogger(v.GetString("logging.level"), v.GetString("logging.format"))
	slog.SetDefault(logger)

	logger.Info("Starting sunrised",
		"version", version,
		"commit", commit,
		"buildDate", buildDate,
	)

	devices := tuya.NewManager(logger, cfg.TuyaDevices())
	logger.Info("devices configured", "count", len(cfg.Devices))

	// The provider is always constructed so a config reload can switch the
	// mode to sunrise without a restart.
	source := sunrise.NewProvider(logger, cfg.Location.Latitude, cfg.Location.Longitude)
	evaluator := schedule.New(logger, schedule.SystemClock{}, source, cfg.ScheduleParams())

	srv := server.New(logger, cfg, devices, evaluator, version)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if cfg.Discovery.Enabled {
		go func() {
			if err := devices.Listen(ctx); err != nil && ctx.Err() == nil {
				logger.Error("Device discovery stopped", "error", err)
			}
		}()
	}

	// Re-apply schedule parameters when the config file changes.
	cfg.Watch(logger, srv.ApplyConfig)

	if err := srv.Start(); err != nil {
		logger.Error("Failed to start server", "error", err)
		return
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan
	logger.Info("Shutting down...")
	cancel()

	srv.Stop()
}
