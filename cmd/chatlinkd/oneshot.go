package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/urfave/cli/v3"

	"github.com/rickgao/chatlink/internal/connection"
	"github.com/rickgao/chatlink/internal/events"
	"github.com/rickgao/chatlink/internal/model"
)

func sendAction(ctx context.Context, cmd *cli.Command) error {
	target, err := model.ParseTarget(cmd.String("to"))
	if err != nil {
		return err
	}

	messages := cmd.Args().Slice()
	if len(messages) == 0 {
		return errors.New("at least one message is required")
	}

	return withSession(ctx, cmd, func(ctx context.Context, mgr connection.Manager) error {
		if err := mgr.Send(ctx, target, messages); err != nil {
			return err
		}
		slog.Info("messages sent", "target", target, "count", len(messages))
		return nil
	})
}

func roomsAction(ctx context.Context, cmd *cli.Command) error {
	return withSession(ctx, cmd, func(ctx context.Context, mgr connection.Manager) error {
		rooms, err := mgr.ListRooms(ctx)
		if err != nil {
			return err
		}
		for _, r := range rooms {
			fmt.Fprintln(cmd.Root().Writer, r)
		}
		return nil
	})
}

// withSession connects without joining rooms, runs fn, and shuts the session down.
func withSession(ctx context.Context, cmd *cli.Command, fn func(context.Context, connection.Manager) error) error {
	logger := slog.Default()

	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	// One-shot sessions never reconnect
	cfg.Session.ReconnectionDelay = 0

	mgr, err := newManager(cfg, events.NewLogNotifier(logger), logger)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, cfg.ShutdownTimeout)
	defer cancel()

	if err := mgr.Connect(ctx); err != nil {
		return err
	}

	runErr := fn(ctx, mgr)

	if err := mgr.Shutdown(context.WithoutCancel(ctx)); err != nil {
		logger.Warn("shutdown finished with errors", "error", err)
	}

	return runErr
}
