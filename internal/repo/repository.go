package repo

import (
	"context"
	"time"

	"github.com/hamed0406/statechecker/internal/domain"
)

// Ports (interfaces); memory and postgres implement them.

type HeartbeatStore interface {
	ListHeartbeatSubjects(ctx context.Context) ([]domain.HeartbeatSubject, error)
	SetHeartbeatNotified(ctx context.Context, name string, notified bool) error
}

type BackupStore interface {
	ListBackupSubjects(ctx context.Context) ([]domain.BackupSubject, error)
	SetBackupNotified(ctx context.Context, name string, notified bool) error
	// UpsertBackupSubject refreshes the definition and newest artifact of a
	// backup. An existing row keeps its DownNotified flag.
	UpsertBackupSubject(ctx context.Context, b domain.BackupSubject) error
}

type ProbeStore interface {
	// UpsertProbeSubjectIfAbsent creates the row with the given initial
	// values and leaves an existing row untouched.
	UpsertProbeSubjectIfAbsent(ctx context.Context, url string, state domain.ProbeState, notified bool) error
	// GetProbeSubject returns domain.ErrNotFound for an unknown url.
	GetProbeSubject(ctx context.Context, url string) (domain.ProbeSubject, error)
	SetProbeState(ctx context.Context, url string, state domain.ProbeState) error
	SetProbeNotified(ctx context.Context, url string, notified bool) error
}

// ProbeTransitioner is implemented by stores that can write a probe's state
// and flag as one unit. Callers fall back to the two setters otherwise.
type ProbeTransitioner interface {
	SetProbeTransition(ctx context.Context, url string, state domain.ProbeState, notified bool) error
}

// StateStore is everything one tick reads and writes.
type StateStore interface {
	HeartbeatStore
	BackupStore
	ProbeStore
}

// Session is a StateStore scoped to one tick. Release must be called once
// the tick is done with it.
type Session interface {
	StateStore
	Release()
}

// Store hands out sessions. A failed Acquire aborts the tick.
type Store interface {
	Acquire(ctx context.Context) (Session, error)
}

// Registry is the push side: it creates heartbeat subjects, advances their
// lastSeenAt and takes backup reports.
type Registry interface {
	// RegisterHeartbeat creates the subject with LastSeenAt as given, or
	// updates description, frequency and tolerance of an existing one.
	RegisterHeartbeat(ctx context.Context, h domain.HeartbeatSubject) error
	// TouchHeartbeat advances LastSeenAt to at, never backwards. Unknown
	// names yield domain.ErrNotFound.
	TouchHeartbeat(ctx context.Context, name string, at time.Time) error
	// ReportBackup upserts a pushed backup report. Unlike UpsertBackupSubject
	// it never moves MostRecentArtifactAt backwards.
	ReportBackup(ctx context.Context, b domain.BackupSubject) error
}
