package transition

import (
	"context"
	"fmt"

	"github.com/hamed0406/statechecker/internal/domain"
	"github.com/hamed0406/statechecker/internal/repo"
)

// Decision is the outcome of comparing an evaluation with the persisted
// dedup flag. When Emit is false nothing is persisted or sent.
type Decision struct {
	Emit      bool
	Direction domain.Direction
	// Notified is the flag value to persist when Emit is set.
	Notified bool
}

// Decide applies the transition table:
//
//	Down, not notified -> BecameDown, persist true
//	Down, notified     -> nothing
//	Up,   notified     -> BecameUp, persist false
//	Up,   not notified -> nothing
func Decide(s domain.Subject, ev domain.Evaluation) Decision {
	switch {
	case !ev.Up && !s.DownNotified:
		return Decision{Emit: true, Direction: domain.BecameDown, Notified: true}
	case ev.Up && s.DownNotified:
		return Decision{Emit: true, Direction: domain.BecameUp, Notified: false}
	default:
		return Decision{}
	}
}

// Detector persists transitions and renders their messages.
type Detector struct{}

// Process decides on ev and, for an edge, writes the new flag (and probe
// state) before returning the event. The caller dispatches the event; a
// failed dispatch does not undo the write. A nil event means steady state.
func (Detector) Process(ctx context.Context, st repo.StateStore, s domain.Subject, ev domain.Evaluation) (*domain.TransitionEvent, error) {
	d := Decide(s, ev)
	if !d.Emit {
		return nil, nil
	}
	if err := persist(ctx, st, s, d); err != nil {
		return nil, fmt.Errorf("%w: %s %q: %w", domain.ErrPersistence, s.Kind, s.Name, err)
	}
	return &domain.TransitionEvent{
		Kind:      s.Kind,
		Name:      s.Name,
		Direction: d.Direction,
		Message:   Render(d.Direction, ev),
	}, nil
}

func persist(ctx context.Context, st repo.StateStore, s domain.Subject, d Decision) error {
	switch s.Kind {
	case domain.KindHeartbeat:
		return st.SetHeartbeatNotified(ctx, s.Name, d.Notified)
	case domain.KindBackup:
		return st.SetBackupNotified(ctx, s.Name, d.Notified)
	case domain.KindProbe:
		state := domain.StateUp
		if d.Direction == domain.BecameDown {
			state = domain.StateDown
		}
		if tr, ok := st.(repo.ProbeTransitioner); ok {
			return tr.SetProbeTransition(ctx, s.Name, state, d.Notified)
		}
		if err := st.SetProbeState(ctx, s.Name, state); err != nil {
			return err
		}
		return st.SetProbeNotified(ctx, s.Name, d.Notified)
	default:
		return fmt.Errorf("unknown subject kind %q", s.Kind)
	}
}
