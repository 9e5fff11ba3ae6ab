package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/hamed0406/statechecker/internal/heartbeat"
	"github.com/hamed0406/statechecker/internal/httpapi"
	apimw "github.com/hamed0406/statechecker/internal/httpapi/middleware"
)

func init() {
	rootCmd.AddCommand(runCmd)
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the check loop, the push API and the NATS subscriber",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer cancel()

		a, err := newApp(ctx, cfg, logger)
		if err != nil {
			return err
		}
		defer a.Close()

		api := httpapi.NewServer(logger, a.store, a.sched)
		if p, ok := a.store.(httpapi.Pinger); ok {
			api.Health = p
		}
		api.Metrics = a.metrics.Handler
		api.Keys = apimw.Keys{Public: cfg.API.PublicKeys, Admin: cfg.API.AdminKeys}
		api.Limits = httpapi.Limits{
			PublicRPM:   cfg.API.PublicRPM,
			PublicBurst: cfg.API.PublicBurst,
			AdminRPM:    cfg.API.AdminRPM,
			AdminBurst:  cfg.API.AdminBurst,
		}
		srv := &http.Server{
			Addr:              cfg.API.Addr,
			Handler:           api.Router(),
			ReadHeaderTimeout: 10 * time.Second,
		}

		g, gctx := errgroup.WithContext(ctx)

		g.Go(func() error {
			return a.sched.Run(gctx)
		})

		g.Go(func() error {
			logger.Info("api_listen", zap.String("addr", cfg.API.Addr))
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		})
		g.Go(func() error {
			<-gctx.Done()
			sctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			return srv.Shutdown(sctx)
		})

		if cfg.NATS.URL != "" {
			g.Go(func() error {
				nc, err := heartbeat.Connect(gctx, cfg.NATS.URL, "statechecker", logger)
				if err != nil {
					if gctx.Err() != nil {
						return nil
					}
					return err
				}
				defer nc.Drain()
				sub := &heartbeat.Subscriber{Registry: a.store, Prefix: cfg.NATS.Prefix, Log: logger}
				return sub.Run(gctx, nc)
			})
		}

		err = g.Wait()
		logger.Info("statechecker_stopped", zap.Error(err))
		return err
	},
}
