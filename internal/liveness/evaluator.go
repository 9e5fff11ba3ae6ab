package liveness

import (
	"context"
	"fmt"
	"time"

	"github.com/hamed0406/statechecker/internal/domain"
)

// Evaluator picks the liveness strategy for a subject by its kind.
type Evaluator struct {
	Prober *Prober

	// DefaultToleranceSeconds applies to heartbeat subjects stored without
	// their own tolerance.
	DefaultToleranceSeconds int
}

func (e *Evaluator) Evaluate(ctx context.Context, s domain.Subject, now time.Time) (domain.Evaluation, error) {
	switch s.Kind {
	case domain.KindHeartbeat:
		if s.Heartbeat == nil {
			return domain.Evaluation{}, fmt.Errorf("heartbeat subject %q has no facts", s.Name)
		}
		if s.Heartbeat.ToleranceSeconds == 0 && e.DefaultToleranceSeconds > 0 {
			facts := *s.Heartbeat
			facts.ToleranceSeconds = e.DefaultToleranceSeconds
			s.Heartbeat = &facts
		}
		return Heartbeat(s, now), nil
	case domain.KindBackup:
		if s.Backup == nil {
			return domain.Evaluation{}, fmt.Errorf("backup subject %q has no facts", s.Name)
		}
		return Backup(s, now), nil
	case domain.KindProbe:
		if e.Prober == nil {
			return domain.Evaluation{}, fmt.Errorf("probe subject %q: no prober configured", s.Name)
		}
		return e.Prober.Probe(ctx, s, now), nil
	default:
		return domain.Evaluation{}, fmt.Errorf("unknown subject kind %q", s.Kind)
	}
}
