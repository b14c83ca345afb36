package cli

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"

	"github.com/iliyamo/table-reservation/internal/config"
	"github.com/iliyamo/table-reservation/internal/database"
	"github.com/iliyamo/table-reservation/internal/notify"
	"github.com/iliyamo/table-reservation/internal/queue"
	"github.com/iliyamo/table-reservation/internal/repository"
	"github.com/iliyamo/table-reservation/internal/scheduler"
	"github.com/iliyamo/table-reservation/internal/service/registry"
	"github.com/iliyamo/table-reservation/internal/service/reservation"
)

// Job names accepted by the scheduler and the maintenance command.
const (
	jobReminders = "reminders"
	jobCleanup   = "cleanup"
	jobArchive   = "archive"
)

// app holds the components shared by serve and maintenance.
type app struct {
	cfg config.Config
	log *slog.Logger
	db  *database.DB
	rdb *redis.Client

	hub     *notify.Hub
	tables  *registry.Tables
	clients *registry.Clients
	hours   *registry.Hours
	engine  *reservation.Engine
	sched   *scheduler.Scheduler
}

func newApp(cfg config.Config, log *slog.Logger) (*app, error) {
	db, err := database.Open(cfg.DB)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	a := &app{
		cfg: cfg,
		log: log,
		db:  db,
		rdb: config.NewRedisClient(),
		hub: notify.NewHub(log),
	}
	if a.rdb == nil {
		log.Warn("redis unavailable; rate limiting, report cache and redis fan-out disabled")
	}

	a.tables = registry.NewTables(repository.NewTableRepo(db), log)
	a.clients = registry.NewClients(repository.NewClientRepo(db), cfg.PhoneRegion, log)
	a.hours = registry.NewHours(repository.NewHoursRepo(db), log)

	deps := reservation.Deps{
		Store:     repository.NewReservationRepo(db),
		Tables:    a.tables,
		Clients:   a.clients,
		Hours:     a.hours,
		Publisher: a.hub,
		Location:  cfg.Location,
		Logger:    log,
	}
	if cfg.Mail.Enabled {
		deps.Mailer = notify.NewMailer(cfg.Mail, cfg.Location)
	}
	a.engine = reservation.New(deps)

	a.subscribeForwarders()
	if err := a.registerJobs(); err != nil {
		a.close()
		return nil, err
	}
	return a, nil
}

// subscribeForwarders mirrors hub events to the broker and Redis.
func (a *app) subscribeForwarders() {
	if a.cfg.Broker.Enabled {
		pub := queue.NewPublisher(a.cfg.Broker.URL, a.cfg.Broker.Queue)
		a.hub.Subscribe("amqp", notify.BrokerForwarder(pub))
	}
	if a.rdb != nil {
		a.hub.Subscribe("redis", notify.NewRedisForwarder(a.rdb, notify.DefaultRedisChannel))
	}
}

func (a *app) registerJobs() error {
	a.sched = scheduler.New(a.cfg.Location, a.cfg.Schedule.Timeout, a.log)
	jobs := []struct {
		name, spec string
		fn         scheduler.Job
	}{
		{jobReminders, a.cfg.Schedule.Reminders, func(ctx context.Context) error {
			_, err := a.engine.SendReminders(ctx)
			return err
		}},
		{jobCleanup, a.cfg.Schedule.Cleanup, func(ctx context.Context) error {
			_, err := a.engine.CompleteExpired(ctx)
			return err
		}},
		{jobArchive, a.cfg.Schedule.Archive, func(ctx context.Context) error {
			_, err := a.engine.ArchiveAndPurge(ctx)
			return err
		}},
	}
	for _, j := range jobs {
		if err := a.sched.Register(j.name, j.spec, j.fn); err != nil {
			return err
		}
	}
	return nil
}

// close waits for pending side effects and releases connections.
func (a *app) close() {
	a.engine.Wait()
	if a.rdb != nil {
		_ = a.rdb.Close()
	}
	_ = a.db.Close()
}
