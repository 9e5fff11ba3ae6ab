package heartbeat

import (
	"context"
	"time"

	"github.com/nats-io/nats.go"
	"go.uber.org/zap"
)

const maxConnectBackoff = 30 * time.Second

// Connect dials NATS and keeps retrying the initial connect with
// exponential backoff until it succeeds or ctx ends. Once connected the
// client reconnects on its own.
func Connect(ctx context.Context, url, name string, log *zap.Logger) (*nats.Conn, error) {
	backoff := time.Second
	for {
		nc, err := nats.Connect(
			url,
			nats.Name(name),
			nats.MaxReconnects(-1),
			nats.ReconnectWait(2*time.Second),
			nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
				log.Warn("nats_disconnected", zap.Error(err))
			}),
			nats.ReconnectHandler(func(nc *nats.Conn) {
				log.Info("nats_reconnected", zap.String("url", nc.ConnectedUrl()))
			}),
			nats.ClosedHandler(func(_ *nats.Conn) {
				log.Info("nats_closed")
			}),
		)
		if err == nil {
			return nc, nil
		}
		log.Warn("nats_connect_failed", zap.Error(err), zap.Duration("retry_in", backoff))

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(backoff):
		}
		backoff = min(backoff*2, maxConnectBackoff)
	}
}
