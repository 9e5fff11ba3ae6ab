package liveness

import (
	"time"

	"github.com/hamed0406/statechecker/internal/domain"
)

// Heartbeat is Down once now is strictly past
// lastSeenAt + frequency + tolerance.
func Heartbeat(s domain.Subject, now time.Time) domain.Evaluation {
	h := s.Heartbeat
	deadline := h.LastSeenAt.
		Add(time.Duration(h.FrequencyMinutes) * time.Minute).
		Add(time.Duration(h.ToleranceSeconds) * time.Second)
	if now.After(deadline) {
		return domain.Down(s, "", now)
	}
	return domain.Up(s, "", now)
}
