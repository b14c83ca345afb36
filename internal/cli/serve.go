package cli

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/spf13/cobra"

	"github.com/iliyamo/table-reservation/internal/database"
	"github.com/iliyamo/table-reservation/internal/handler"
	"github.com/iliyamo/table-reservation/internal/middleware"
	"github.com/iliyamo/table-reservation/internal/queue"
	"github.com/iliyamo/table-reservation/internal/repository"
	"github.com/iliyamo/table-reservation/internal/router"
	"github.com/iliyamo/table-reservation/internal/service/reports"
)

const shutdownTimeout = 15 * time.Second

func newServeCmd() *cobra.Command {
	var migrate bool
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API, the maintenance scheduler and the audit consumer",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, log, err := loadConfig()
			if err != nil {
				return err
			}
			a, err := newApp(cfg, log)
			if err != nil {
				return err
			}
			defer a.close()
			return a.serve(cmd.Context(), migrate)
		},
	}
	cmd.Flags().BoolVar(&migrate, "migrate", false, "apply the schema before serving")
	return cmd
}

func (a *app) newEcho() *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Use(echomw.Recover())
	e.Use(middleware.RequestLogger(a.log))

	reg := handler.NewRegistryHandler(a.tables, a.clients, a.hours, a.log)
	res := handler.NewReservationHandler(a.engine, a.log)
	auth := handler.NewAuthHandler(a.cfg.Auth,
		repository.NewOperatorRepo(a.db), repository.NewTokenRepo(a.db), a.log)
	rep := handler.NewReportHandler(
		reports.New(repository.NewReportRepo(a.db), a.cfg.Location, nil), a.log)

	router.RegisterRoutes(e, a.db)
	router.RegisterAuth(e, auth, a.cfg.Auth.JWTSecret)
	router.RegisterPublic(e, reg, res, middleware.NewTokenBucket(a.cfg.RateLimit, a.rdb, a.log))
	router.RegisterOperator(e, router.Operator{
		Registry:     reg,
		Reservations: res,
		Reports:      rep,
		Events:       handler.NewEventsHandler(a.hub, a.log),
	}, a.cfg.Auth.JWTSecret, middleware.NewRedisCache(a.cfg.Cache, a.rdb, a.log))
	return e
}

func (a *app) serve(parent context.Context, migrate bool) error {
	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if migrate {
		if err := database.Migrate(ctx, a.db); err != nil {
			return err
		}
	}

	var consumer *queue.Consumer
	consumerDone := make(chan struct{})
	if a.cfg.Broker.Enabled {
		consumer = queue.NewConsumer(a.cfg.Broker.URL, a.cfg.Broker.Queue, a.cfg.Broker.AuditLog, a.log)
		go func() {
			defer close(consumerDone)
			if err := consumer.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				a.log.Error("audit consumer stopped", slog.Any("err", err))
			}
		}()
	} else {
		close(consumerDone)
	}

	a.sched.Start()

	e := a.newEcho()
	addr := ":" + a.cfg.Port
	srvErr := make(chan error, 1)
	go func() {
		a.log.Info("listening", slog.String("addr", addr), slog.String("env", a.cfg.Env))
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			srvErr <- err
		}
		close(srvErr)
	}()

	var runErr error
	select {
	case <-ctx.Done():
		a.log.Info("shutting down")
	case runErr = <-srvErr:
		stop()
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		a.log.Warn("http shutdown", slog.Any("err", err))
	}
	a.sched.Stop(shutdownCtx)
	<-consumerDone
	if consumer != nil {
		_ = consumer.Close()
	}
	return runErr
}
