package notify

import (
	"context"
	"fmt"

	"go.uber.org/multierr"

	"github.com/hamed0406/statechecker/internal/domain"
)

// Channel is one configured transport.
type Channel struct {
	Name     string
	Notifier Notifier
	// StatusEveryMinutes is the status summary cadence in ticks; 0 disables it.
	StatusEveryMinutes int
	// Limit overrides DefaultMessageLimit for this channel.
	Limit int
}

// Dispatcher splits messages and hands the chunks to each channel in order.
type Dispatcher struct {
	Channels []Channel
}

func NewDispatcher(channels ...Channel) *Dispatcher {
	return &Dispatcher{Channels: channels}
}

// Send delivers message to the audience on every channel.
func (d *Dispatcher) Send(ctx context.Context, audience Audience, message string) error {
	return d.Deliver(ctx, d.Channels, audience, message)
}

// Deliver delivers message on the given channels only. Failures are
// collected and returned as one ErrDispatch; delivery goes on regardless.
func (d *Dispatcher) Deliver(ctx context.Context, channels []Channel, audience Audience, message string) error {
	var errs error
	for _, ch := range channels {
		for _, chunk := range Split(message, ch.Limit) {
			if err := ch.Notifier.Send(ctx, audience, chunk); err != nil {
				errs = multierr.Append(errs, fmt.Errorf("%s: %w", ch.Name, err))
			}
		}
	}
	if errs != nil {
		return fmt.Errorf("%w: %w", domain.ErrDispatch, errs)
	}
	return nil
}

// StatusDue returns the channels whose status cadence divides tick.
func (d *Dispatcher) StatusDue(tick int) []Channel {
	var due []Channel
	for _, ch := range d.Channels {
		if ch.StatusEveryMinutes > 0 && tick%ch.StatusEveryMinutes == 0 {
			due = append(due, ch)
		}
	}
	return due
}

// Enabled reports whether any channel is configured.
func (d *Dispatcher) Enabled() bool {
	return d != nil && len(d.Channels) > 0
}
