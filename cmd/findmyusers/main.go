package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"findmyusers/internal/domain/config"
	domainerr "findmyusers/internal/domain/errors"
	"findmyusers/internal/logging"
)

var (
	configPath string
	logLevel   string
	logFormat  string

	cfg    config.Config
	logger *zap.Logger
)

var rootCmd = &cobra.Command{
	Use:           "findmyusers",
	Short:         "Build and serve the bilingual sites and articles catalogs",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
		var err error
		cfg, err = config.Load(configPath)
		if err != nil {
			return err
		}
		if logLevel != "" {
			cfg.Log.Level = logLevel
		}
		if logFormat != "" {
			cfg.Log.Format = logFormat
		}
		logger, err = logging.New(cfg.Log.Level, cfg.Log.Format)
		return err
	},
	PersistentPostRun: func(*cobra.Command, []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "findmyusers.yaml", "Config file path")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Override log level (debug|info|warn|error)")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "", "Override log format (console|json)")
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintln(os.Stderr, "error:", err.Error())
		os.Exit(exitCode(err))
	}
}

// exitCode: 2 for invalid configuration, 1 for everything else including
// structural failures.
func exitCode(err error) int {
	if errors.Is(err, domainerr.ErrInvalid) {
		return 2
	}
	return 1
}

func catalogNames(only string) []string {
	if only != "" {
		return []string{only}
	}
	names := make([]string, 0, len(cfg.Catalogs))
	for _, c := range cfg.Catalogs {
		names = append(names, c.Name)
	}
	return names
}
