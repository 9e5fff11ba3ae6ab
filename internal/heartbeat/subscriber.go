package heartbeat

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/nats-io/nats.go"
	"go.uber.org/zap"

	"github.com/hamed0406/statechecker/internal/domain"
	"github.com/hamed0406/statechecker/internal/repo"
)

// Subscriber advances lastSeenAt for every heartbeat received on
// <prefix>.>. It only touches registered subjects.
type Subscriber struct {
	Registry repo.Registry
	Prefix   string
	Log      *zap.Logger
	Now      func() time.Time
}

// Run subscribes and blocks until ctx is done.
func (s *Subscriber) Run(ctx context.Context, nc *nats.Conn) error {
	if nc == nil {
		return errors.New("nats connection is required")
	}
	subject := Subject(s.Prefix, ">")
	sub, err := nc.Subscribe(subject, func(msg *nats.Msg) {
		if err := s.Handle(ctx, msg.Subject, msg.Data); err != nil {
			s.Log.Warn("heartbeat_rejected", zap.String("subject", msg.Subject), zap.Error(err))
		}
	})
	if err != nil {
		return fmt.Errorf("subscribe %s: %w", subject, err)
	}
	defer sub.Unsubscribe()
	s.Log.Info("heartbeat_subscribed", zap.String("subject", subject))

	<-ctx.Done()
	return nil
}

// Handle records one heartbeat. The receive time is stored, not the
// sender's clock.
func (s *Subscriber) Handle(ctx context.Context, subject string, data []byte) error {
	msg, err := Unmarshal(data)
	if err != nil {
		return fmt.Errorf("decode: %w", err)
	}
	if want := Subject(s.Prefix, msg.Name); want != subject {
		return fmt.Errorf("name %q does not match subject", msg.Name)
	}
	now := time.Now
	if s.Now != nil {
		now = s.Now
	}
	if err := s.Registry.TouchHeartbeat(ctx, msg.Name, now().UTC()); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return fmt.Errorf("unregistered tool %q", strings.TrimSpace(msg.Name))
		}
		return err
	}
	s.Log.Debug("heartbeat_received", zap.String("name", msg.Name), zap.String("host", msg.Host))
	return nil
}
