package main

import (
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/statichost/statichost/internal/config"
	"github.com/statichost/statichost/internal/mount"
	"github.com/statichost/statichost/internal/serve"
)

var version = "0.1.0-dev"

func main() {
	var (
		port      int
		logLevel  string
		logFormat string
	)

	rootCmd := &cobra.Command{
		Use:   "statichost [config]",
		Short: "Static file and reverse proxy server",
		Long: `statichost serves content from configured mount points under one listener.

The optional argument is either a JSON config file mapping URL prefixes to
local directories or proxy upstreams, or a directory to serve at /. With no
argument, ./statichost.json is used if present, otherwise the current
directory is served.`,
		Version: version,
		Args:    cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(args)
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("port") {
				cfg.Listen.Port = port
			}
			if cmd.Flags().Changed("log-level") {
				cfg.Logging.Level = logLevel
			}
			if cmd.Flags().Changed("log-format") {
				cfg.Logging.Format = logFormat
			}

			logger := newLogger(cfg.Logging)
			slog.SetDefault(logger)

			srv, err := serve.New(cfg, logger)
			if err != nil {
				return err
			}
			logMounts(logger, srv.Table())

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return srv.Run(ctx)
		},
	}

	rootCmd.Flags().IntVar(&port, "port", config.DefaultPort, "listen port")
	rootCmd.Flags().StringVar(&logLevel, "log-level", "info", "log level (debug, info, warn, error)")
	rootCmd.Flags().StringVar(&logFormat, "log-format", "text", "log format (text, json)")
	rootCmd.AddCommand(checkCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// checkCmd validates the configuration and prints the resulting mount table
// without starting the server.
func checkCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "check [config]",
		Short: "Validate the configuration and exit",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(args)
			if err != nil {
				return err
			}
			points, err := cfg.MountPoints()
			if err != nil {
				return err
			}
			table, err := mount.Build(points)
			if err != nil {
				return err
			}
			fmt.Println("Configuration OK. Mounts (match order):")
			for _, p := range table.Points() {
				switch p.Kind {
				case mount.KindLocal:
					fmt.Printf("  %s -> dir %s (index=%s, listing=%v)\n",
						p.Prefix, p.Local.Root, p.Local.Index, p.Local.ListDirectory)
				case mount.KindRemote:
					fmt.Printf("  %s -> proxy %s\n", p.Prefix, p.Remote.BaseURL)
				}
			}
			return nil
		},
	}
}

func loadConfig(args []string) (*config.Config, error) {
	arg := ""
	if len(args) > 0 {
		arg = args[0]
	}
	return config.Load(arg)
}

func newLogger(cfg config.LoggingConfig) *slog.Logger {
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	} else {
		handler = slog.NewTextHandler(os.Stderr, opts)
	}
	return slog.New(handler)
}

func logMounts(logger *slog.Logger, table *mount.Table) {
	for _, p := range table.Points() {
		switch p.Kind {
		case mount.KindLocal:
			logger.Info("mount", "prefix", p.Prefix, "dir", p.Local.Root, "listing", p.Local.ListDirectory)
		case mount.KindRemote:
			logger.Info("mount", "prefix", p.Prefix, "proxy_to", p.Remote.BaseURL.String())
		}
	}
}
