package main

import (
	"context"
	"os"

	"github.com/spf13/viper"

	"sunrised/cmd/sunrisectl/commands"
	"sunrised/internal/config"
	"sunrised/pkg/client"
)

var (
	version   = "dev"
	commit    = "unknown"
	buildDate = "unknown"
)

func main() {
	// Load client configuration; missing file just means defaults.
	cfg, err := config.Load(config.ClientConfigFilename, "")
	if err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			logger := config.SetupErrorLogger()
			logger.Error("failed to load configuration", "error", err)
			os.Exit(1)
		}
		cfg = &config.Config{
			Logging: config.LoggingConfig{
				Level:  config.LogLevelInfo,
				Format: config.LogFormatText,
			},
		}
	}

	logger := config.SetupLogger(cfg.Logging.Level, cfg.Logging.Format)

	socket := config.GetRuntimeSocketPath()
	if cfg.Server.UnixSocket != "" {
		socket = cfg.Server.UnixSocket
	}

	rootCmd := commands.NewRootCommand(logger, version, commit, buildDate)

	// Check for socket flag override
	if socketFlag, _ := rootCmd.PersistentFlags().GetString("socket"); socketFlag != "" {
		socket = socketFlag
	}

	apiClient := client.New(logger, socket)

	ctx := rootCmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	ctx = context.WithValue(ctx, commands.ClientContextKey, apiClient)

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}
