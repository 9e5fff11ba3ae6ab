package heartbeat

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/nats-io/nats.go"
)

// Publisher sends heartbeat messages to NATS with a subject prefix.
type Publisher struct {
	nc     *nats.Conn
	prefix string
}

var hostname = os.Hostname

func NewPublisher(nc *nats.Conn, prefix string) *Publisher {
	return &Publisher{nc: nc, prefix: strings.TrimSuffix(prefix, ".")}
}

func (p *Publisher) Publish(ctx context.Context, msg Message) error {
	if msg.GeneratedAt.IsZero() {
		msg.GeneratedAt = time.Now().UTC()
	}
	if msg.Host == "" {
		if h, err := hostname(); err == nil {
			msg.Host = h
		}
	}
	payload, err := msg.Marshal()
	if err != nil {
		return err
	}
	if err := p.nc.Publish(Subject(p.prefix, msg.Name), payload); err != nil {
		return fmt.Errorf("publish heartbeat: %w", err)
	}
	return p.nc.FlushWithContext(ctx)
}

// Subject joins prefix and name the way subscribers expect.
func Subject(prefix, name string) string {
	prefix = strings.TrimSuffix(prefix, ".")
	if prefix == "" {
		return name
	}
	return prefix + "." + name
}
