package domain

import "time"

// Kind tags which liveness strategy applies to a Subject.
type Kind string

const (
	KindHeartbeat Kind = "heartbeat"
	KindProbe     Kind = "probe"
	KindBackup    Kind = "backup"
)

// ProbeState is the last live state persisted for a probed URL.
type ProbeState string

const (
	StateUp   ProbeState = "Up"
	StateDown ProbeState = "Down"
)

// HeartbeatSubject is a tool that pushes its own alive message.
// LastSeenAt is only ever advanced by the push side.
type HeartbeatSubject struct {
	Name             string    `json:"name"`
	Description      string    `json:"description"`
	LastSeenAt       time.Time `json:"last_seen_at"`
	FrequencyMinutes int       `json:"frequency_minutes"`
	ToleranceSeconds int       `json:"tolerance_seconds"`
	DownNotified     bool      `json:"down_notified"`
}

// ProbeSubject is a URL the checker calls itself. Rows are created lazily
// on first probe.
type ProbeSubject struct {
	URL          string     `json:"url"`
	State        ProbeState `json:"state"`
	DownNotified bool       `json:"down_notified"`
}

// BackupSubject tracks the newest artifact seen in a backup folder.
type BackupSubject struct {
	Name                       string    `json:"name"`
	SourceToken                string    `json:"source_token"`
	FrequencyMinutes           int       `json:"frequency_minutes"`
	MostRecentArtifactAt       time.Time `json:"most_recent_artifact_at"`
	MostRecentArtifactChecksum string    `json:"most_recent_artifact_checksum"`
	Description                string    `json:"description"`
	DownNotified               bool      `json:"down_notified"`
}

type HeartbeatFacts struct {
	LastSeenAt       time.Time
	FrequencyMinutes int
	ToleranceSeconds int
}

type ProbeFacts struct {
	State ProbeState
}

type BackupFacts struct {
	SourceToken                string
	FrequencyMinutes           int
	MostRecentArtifactAt       time.Time
	MostRecentArtifactChecksum string
}

// Subject is the tagged variant the evaluators and the transition detector
// work on. Exactly one of the fact blocks is set, matching Kind.
type Subject struct {
	Kind         Kind
	Name         string
	Description  string
	DownNotified bool

	Heartbeat *HeartbeatFacts
	Probe     *ProbeFacts
	Backup    *BackupFacts
}

func (h HeartbeatSubject) Subject() Subject {
	return Subject{
		Kind:         KindHeartbeat,
		Name:         h.Name,
		Description:  h.Description,
		DownNotified: h.DownNotified,
		Heartbeat: &HeartbeatFacts{
			LastSeenAt:       h.LastSeenAt,
			FrequencyMinutes: h.FrequencyMinutes,
			ToleranceSeconds: h.ToleranceSeconds,
		},
	}
}

// Subject converts the stored row. A probe only counts as "down notified"
// while its persisted state is also Down.
func (p ProbeSubject) Subject() Subject {
	return Subject{
		Kind:         KindProbe,
		Name:         p.URL,
		DownNotified: p.State == StateDown && p.DownNotified,
		Probe:        &ProbeFacts{State: p.State},
	}
}

func (b BackupSubject) Subject() Subject {
	return Subject{
		Kind:         KindBackup,
		Name:         b.Name,
		Description:  b.Description,
		DownNotified: b.DownNotified,
		Backup: &BackupFacts{
			SourceToken:                b.SourceToken,
			FrequencyMinutes:           b.FrequencyMinutes,
			MostRecentArtifactAt:       b.MostRecentArtifactAt,
			MostRecentArtifactChecksum: b.MostRecentArtifactChecksum,
		},
	}
}

// CheckingEveryMinutes returns the configured cadence for kinds that have
// one, nil otherwise.
func (s Subject) CheckingEveryMinutes() *int {
	switch {
	case s.Heartbeat != nil:
		v := s.Heartbeat.FrequencyMinutes
		return &v
	case s.Backup != nil:
		v := s.Backup.FrequencyMinutes
		return &v
	}
	return nil
}
