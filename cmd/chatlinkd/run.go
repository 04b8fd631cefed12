package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/urfave/cli/v3"
	"golang.org/x/sync/errgroup"

	"github.com/rickgao/chatlink/internal/config"
	"github.com/rickgao/chatlink/internal/connection"
	"github.com/rickgao/chatlink/internal/database"
	"github.com/rickgao/chatlink/internal/events"
	"github.com/rickgao/chatlink/internal/health"
	"github.com/rickgao/chatlink/internal/version"
)

func runAction(ctx context.Context, cmd *cli.Command) error {
	logger := slog.Default()

	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	logger.Info("starting chatlinkd",
		"version", version.Version,
		"commit", version.Commit,
		"config", cmd.String("config"),
	)
	logger.Info("configuration loaded",
		"identity", cfg.Session.Identity,
		"server", cfg.Session.Server,
		"rooms", cfg.Session.Rooms.String(),
		"reconnection_delay", cfg.Session.Delay(),
	)

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	tracker := events.NewTracker()
	notifiers := events.Multi{events.NewLogNotifier(logger), tracker}

	var pool *pgxpool.Pool
	if cfg.Journal.Enabled() {
		logger.Info("connecting to journal database",
			"host", cfg.Journal.Host,
			"port", cfg.Journal.Port,
			"database", cfg.Journal.Name,
		)
		pool, err = database.Connect(ctx, cfg.Journal)
		if err != nil {
			return fmt.Errorf("connect journal: %w", err)
		}
		defer pool.Close()

		journal := events.NewJournal(pool, logger)
		if err := journal.EnsureSchema(ctx); err != nil {
			return err
		}
		notifiers = append(notifiers, journal)
		logger.Info("journal connected")
	}

	mgr, err := newManager(cfg, notifiers, logger)
	if err != nil {
		return err
	}

	g, gctx := errgroup.WithContext(ctx)

	if cfg.Health.Port > 0 {
		var pinger health.Pinger
		if pool != nil {
			pinger = pool
		}
		srv := &http.Server{
			Addr:              fmt.Sprintf(":%d", cfg.Health.Port),
			Handler:           health.NewHandler(tracker, mgr, pinger, logger).Mux(),
			ReadHeaderTimeout: 5 * time.Second,
		}

		g.Go(func() error {
			logger.Info("starting health server", "port", cfg.Health.Port)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("health server: %w", err)
			}
			return nil
		})
		g.Go(func() error {
			<-gctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		})
	}

	g.Go(func() error {
		return mgr.Run(gctx)
	})

	if err := g.Wait(); err != nil {
		return err
	}

	logger.Info("chatlinkd stopped")
	return nil
}

// newManager builds a connection manager wired to the WebSocket connector.
func newManager(cfg *config.Config, notifier events.Notifier, logger *slog.Logger) (connection.Manager, error) {
	clientCfg := connection.ClientConfig{
		URL:            cfg.Connector.URL,
		RequestTimeout: cfg.Connector.RequestTimeout,
		PingTimeout:    cfg.Connector.PingTimeout,
		WriteTimeout:   cfg.Connector.WriteTimeout,
	}

	mgrCfg := connection.ManagerConfig{
		Session:         sessionConfig(cfg.Session),
		ShutdownTimeout: cfg.ShutdownTimeout,
	}

	return connection.NewManager(mgrCfg, connection.NewDialer(clientCfg, logger), notifier, logger)
}

func sessionConfig(s config.SessionConfig) connection.SessionConfig {
	return connection.SessionConfig{
		Identity:           s.Identity,
		Secret:             s.Secret,
		Server:             s.Server,
		GroupDomain:        s.GroupDomain,
		Debug:              s.Debug,
		IgnoreUnknownUsers: s.IgnoreUnknownUsers,
		Rooms:              s.Rooms,
		ReconnectionDelay:  s.Delay(),
	}
}
