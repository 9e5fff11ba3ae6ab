package notify

import "context"

// Audience selects the recipients of a message on every channel.
type Audience string

const (
	// AudienceError receives transitions and tick failures.
	AudienceError Audience = "error"
	// AudienceInfo receives the periodic status summary.
	AudienceInfo Audience = "info"
)

// Notifier delivers one already-split chunk to every recipient of the
// audience. A failure for one recipient must not stop the others.
type Notifier interface {
	Send(ctx context.Context, audience Audience, text string) error
}
