package main

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/hamed0406/statechecker/internal/backup"
	"github.com/hamed0406/statechecker/internal/config"
	"github.com/hamed0406/statechecker/internal/liveness"
	"github.com/hamed0406/statechecker/internal/metrics"
	"github.com/hamed0406/statechecker/internal/notify"
	"github.com/hamed0406/statechecker/internal/probe"
	"github.com/hamed0406/statechecker/internal/registry"
	"github.com/hamed0406/statechecker/internal/repo"
	"github.com/hamed0406/statechecker/internal/repo/memory"
	"github.com/hamed0406/statechecker/internal/repo/postgres"
	"github.com/hamed0406/statechecker/internal/scheduler"
	"github.com/hamed0406/statechecker/internal/transition"
)

// stateStore is what both the memory and the postgres store provide.
type stateStore interface {
	repo.Store
	repo.Registry
}

type app struct {
	store   stateStore
	metrics *metrics.Prometheus
	sched   *scheduler.Scheduler
	closers []func()
}

func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
}

// newApp wires every component from the resolved config. The caller owns
// Close.
func newApp(ctx context.Context, cfg *config.Config, log *zap.Logger) (_ *app, err error) {
	a := &app{}
	defer func() {
		if err != nil {
			a.Close()
		}
	}()

	if cfg.Database.URL != "" {
		pg, err := postgres.New(ctx, cfg.Database.URL, log)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, pg.Close)
		if err := pg.Migrate(ctx); err != nil {
			return nil, err
		}
		a.store = pg
	} else {
		log.Warn("database_url_empty_using_memory_store")
		a.store = memory.New()
	}

	prom, err := metrics.NewPrometheus()
	if err != nil {
		return nil, fmt.Errorf("metrics: %w", err)
	}
	a.metrics = prom
	a.closers = append(a.closers, func() {
		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = prom.Shutdown(sctx)
	})

	channels, err := buildChannels(cfg)
	if err != nil {
		return nil, err
	}
	dispatcher := notify.NewDispatcher(channels...)
	if !dispatcher.Enabled() {
		log.Warn("no_notification_channels_enabled")
	}

	scanner, err := buildScanner(ctx, cfg, log)
	if err != nil {
		return nil, err
	}

	if cfg.Heartbeat.SeedFile != "" {
		seed, err := registry.Load(cfg.Heartbeat.SeedFile)
		if err != nil {
			return nil, err
		}
		if err := seed.Apply(ctx, a.store, time.Now().UTC(), log); err != nil {
			return nil, err
		}
	}

	a.sched = scheduler.New(log,
		scheduler.Config{
			BaseIntervalSeconds:    cfg.Scheduler.BaseIntervalSeconds,
			OffsetPercent:          cfg.Scheduler.OffsetPercent,
			ProbeEveryMinutes:      cfg.Scheduler.ProbeEveryMinutes,
			BackupScanEveryMinutes: cfg.Scheduler.BackupScanEveryMinutes,
			ProgressEvery:          cfg.Scheduler.ProgressEvery,
			ProbeURLs:              cfg.Probe.URLs,
		},
		a.store,
		buildEvaluator(cfg, log),
		transition.Detector{},
		dispatcher,
	)
	a.sched.Metrics = prom.Recorder
	if scanner != nil {
		a.sched.Scanner = scanner
	}
	return a, nil
}

func buildEvaluator(cfg *config.Config, log *zap.Logger) *liveness.Evaluator {
	var checker probe.Checker = probe.NewHTTPChecker(cfg.Probe.Timeout, cfg.Probe.Method)
	if cfg.Probe.RetryAttempts > 1 {
		checker = &probe.RetryChecker{
			Inner:    checker,
			Attempts: cfg.Probe.RetryAttempts,
			Backoff:  cfg.Probe.RetryBackoff,
		}
	}
	prober := &liveness.Prober{Checker: checker, Log: log}
	if cfg.Probe.DNSDiagnostics {
		prober.DNS = probe.NewDNSDiagnoser()
	}
	return &liveness.Evaluator{
		Prober:                  prober,
		DefaultToleranceSeconds: cfg.Heartbeat.ToleranceSeconds,
	}
}

func buildChannels(cfg *config.Config) ([]notify.Channel, error) {
	var channels []notify.Channel
	if cfg.Telegram.Enabled {
		channels = append(channels, notify.Channel{
			Name:               "telegram",
			Notifier:           notify.NewTelegram(cfg.Telegram.Token, cfg.Telegram.ErrorChatIDs, cfg.Telegram.InfoChatIDs),
			StatusEveryMinutes: cfg.Telegram.StatusEveryMinutes,
		})
	}
	if cfg.Email.Enabled {
		e := cfg.Email
		mail, err := notify.NewEmail(e.Host, e.Port, e.User, e.Password, e.From, e.ErrorTo, e.InfoTo)
		if err != nil {
			return nil, err
		}
		channels = append(channels, notify.Channel{
			Name:               "email",
			Notifier:           mail,
			StatusEveryMinutes: e.StatusEveryMinutes,
			// one mail per message
			Limit: 1 << 20,
		})
	}
	if cfg.Slack.Enabled {
		if s := notify.NewSlack(cfg.Slack.ErrorWebhook, cfg.Slack.InfoWebhook); s != nil {
			channels = append(channels, notify.Channel{
				Name:               "slack",
				Notifier:           s,
				StatusEveryMinutes: cfg.Slack.StatusEveryMinutes,
			})
		}
	}
	return channels, nil
}

// buildScanner returns nil when no backup folder is configured.
func buildScanner(ctx context.Context, cfg *config.Config, log *zap.Logger) (*backup.Scanner, error) {
	if len(cfg.Backup.Folders) == 0 {
		return nil, nil
	}
	sources := make(map[string]backup.Source)
	if s3 := cfg.Backup.S3; s3.Endpoint != "" {
		src, err := backup.NewS3Source(backup.S3Config{
			Endpoint:  s3.Endpoint,
			AccessKey: s3.AccessKey,
			SecretKey: s3.SecretKey,
			Region:    s3.Region,
			UseSSL:    s3.UseSSL,
		})
		if err != nil {
			return nil, fmt.Errorf("backup s3 source: %w", err)
		}
		sources[backup.SourceS3] = src
	}
	if file := cfg.Backup.GoogleDrive.CredentialsFile; file != "" {
		src, err := backup.NewDriveSource(ctx, file)
		if err != nil {
			return nil, fmt.Errorf("backup gdrive source: %w", err)
		}
		sources[backup.SourceGoogleDrive] = src
	}
	return &backup.Scanner{Sources: sources, Folders: cfg.Backup.Folders, Log: log}, nil
}
