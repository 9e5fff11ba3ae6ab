package liveness

import (
	"time"

	"github.com/hamed0406/statechecker/internal/domain"
)

// BackupSlackSecondsPerMinute scales a backup's frequency into its staleness
// threshold. It is 65 rather than 60; keep it until the slack is revisited.
const BackupSlackSecondsPerMinute = 65

// Backup is Down once now is strictly past
// mostRecentArtifactAt + frequency*BackupSlackSecondsPerMinute seconds.
func Backup(s domain.Subject, now time.Time) domain.Evaluation {
	b := s.Backup
	threshold := time.Duration(b.FrequencyMinutes*BackupSlackSecondsPerMinute) * time.Second
	if now.After(b.MostRecentArtifactAt.Add(threshold)) {
		return domain.Down(s, "", now)
	}
	return domain.Up(s, "", now)
}
