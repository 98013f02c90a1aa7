package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-co-op/gocron/v2"
	"github.com/joho/godotenv"

	"github.com/iliyamo/cinema-invitations/internal/config"
	"github.com/iliyamo/cinema-invitations/internal/database"
	"github.com/iliyamo/cinema-invitations/internal/handler"
	"github.com/iliyamo/cinema-invitations/internal/logging"
	"github.com/iliyamo/cinema-invitations/internal/mailer"
	"github.com/iliyamo/cinema-invitations/internal/queue"
	"github.com/iliyamo/cinema-invitations/internal/repository"
	"github.com/iliyamo/cinema-invitations/internal/router"
	"github.com/iliyamo/cinema-invitations/internal/service"
)

func main() {
	_ = godotenv.Load() // .env is optional outside dev

	cfg := config.Load()
	log := logging.New(os.Stdout, cfg.Env, cfg.LogLevel)
	slog.SetDefault(log)

	if err := run(cfg, log); err != nil {
		log.Error("server stopped", "err", err)
		os.Exit(1)
	}
}

func run(cfg config.Config, log *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := database.Open(ctx, cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	if cfg.MigrateOnStart {
		if err := database.Migrate(ctx, db); err != nil {
			return err
		}
		log.Info("schema applied")
	}

	rdb := config.NewRedisClient(config.LoadRedisConfig())
	if rdb == nil {
		log.Warn("redis unavailable; rate limiting and session cache disabled")
	} else {
		defer rdb.Close()
	}

	qcfg := config.LoadQueueConfig()
	var notifier service.Notifier = service.NopNotifier{}
	if qcfg.Enabled {
		notifier = queue.NewPublisher(qcfg.URL, qcfg.Queue, log)
	}

	if qcfg.Enabled && qcfg.ConsumerEnabled {
		m, err := mailer.New(config.LoadMailConfig(), log)
		if err != nil {
			return err
		}
		consumer := queue.NewConsumer(qcfg.URL, qcfg.Queue, qcfg.Prefetch, m, log)
		go func() {
			if err := consumer.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				log.Error("notification consumer stopped", "err", err)
			}
		}()
	}

	reservations := service.NewReservationService(db, notifier, log)
	invitations := service.NewInvitationService(db, notifier, log)
	sessions := service.NewSessionService(db, invitations, log)

	rc := config.LoadReconcileConfig()
	if rc.Enabled {
		sched, err := gocron.NewScheduler()
		if err != nil {
			return err
		}
		if _, err := service.NewReconciler(db, rc.Grace, log).Schedule(sched, rc.Interval); err != nil {
			return err
		}
		sched.Start()
		defer func() {
			if err := sched.Shutdown(); err != nil {
				log.Warn("scheduler shutdown", "err", err)
			}
		}()
	}

	e := router.New(router.Deps{
		Cfg:          cfg,
		RateLimit:    config.LoadRateLimitConfig(),
		Cache:        config.LoadCacheConfig(),
		Redis:        rdb,
		Log:          log,
		Health:       db,
		Auth:         handler.NewAuthHandler(cfg, repository.NewUserRepo(db), repository.NewTokenRepo(db)),
		Reservations: handler.NewReservationHandler(reservations),
		Invitations:  handler.NewInvitationHandler(invitations),
		Sessions:     handler.NewSessionHandler(sessions),
	})

	addr := ":" + cfg.Port
	errCh := make(chan error, 1)
	go func() {
		log.Info("listening", "addr", addr, "env", cfg.Env)
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return err
		}
	case <-ctx.Done():
	}

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return e.Shutdown(shutdownCtx)
}
