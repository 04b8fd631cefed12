// Command chatlinkd keeps a chat session connected and joined to its rooms.
//
// Subcommands:
//
//	run      connect, join the configured rooms, and stay online (default)
//	send     deliver a message batch to a user or room and exit
//	rooms    list the rooms under the group domain and exit
//	version  print build information
package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/urfave/cli/v3"

	"github.com/rickgao/chatlink/internal/config"
	"github.com/rickgao/chatlink/internal/version"
)

func main() {
	if err := newApp().Run(context.Background(), os.Args); err != nil {
		slog.Error("chatlinkd failed", "error", err)
		os.Exit(1)
	}
}

// newApp builds the command tree.
func newApp() *cli.Command {
	return &cli.Command{
		Name:           "chatlinkd",
		Usage:          "chat session connection manager",
		Version:        version.String(),
		DefaultCommand: "run",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Value:   "configs/chatlink.local.yaml",
				Usage:   "path to config file",
				Sources: cli.EnvVars("CHATLINK_CONFIG"),
			},
			&cli.StringFlag{
				Name:  "env-file",
				Value: ".env",
				Usage: "dotenv file loaded before the config is read",
			},
			&cli.StringFlag{
				Name:    "log-level",
				Value:   "info",
				Usage:   "debug, info, warn, or error",
				Sources: cli.EnvVars("CHATLINK_LOG_LEVEL"),
			},
		},
		Before: setup,
		Commands: []*cli.Command{
			{
				Name:   "run",
				Usage:  "connect, join rooms, and stay online until interrupted",
				Action: runAction,
			},
			{
				Name:      "send",
				Usage:     "send messages to a target and exit",
				ArgsUsage: "MESSAGE...",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "to",
						Usage:    "target as user:NAME or room:NAME",
						Required: true,
					},
				},
				Action: sendAction,
			},
			{
				Name:   "rooms",
				Usage:  "list rooms under the group domain and exit",
				Action: roomsAction,
			},
			{
				Name:  "version",
				Usage: "print build information",
				Action: func(_ context.Context, cmd *cli.Command) error {
					fmt.Fprintln(cmd.Root().Writer, version.String())
					return nil
				},
			},
		},
	}
}

// setup loads the dotenv file and installs the process logger.
func setup(ctx context.Context, cmd *cli.Command) (context.Context, error) {
	if path := cmd.String("env-file"); path != "" {
		if err := godotenv.Load(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return ctx, fmt.Errorf("load env file %s: %w", path, err)
		}
	}

	level, err := parseLevel(cmd.String("log-level"))
	if err != nil {
		return ctx, err
	}

	// Set up structured logging
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(logger)

	return ctx, nil
}

func parseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug, nil
	case "info", "":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return 0, fmt.Errorf("unknown log level %q", s)
	}
}

// loadConfig reads and validates the config named by the --config flag.
func loadConfig(cmd *cli.Command) (*config.Config, error) {
	path := cmd.String("config")
	cfg, err := config.LoadAndValidate(path)
	if err != nil {
		return nil, fmt.Errorf("load config %s: %w", path, err)
	}
	return cfg, nil
}
