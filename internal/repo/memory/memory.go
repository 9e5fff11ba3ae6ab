package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/hamed0406/statechecker/internal/domain"
	"github.com/hamed0406/statechecker/internal/repo"
)

var (
	_ repo.Store             = (*Store)(nil)
	_ repo.Session           = (*Store)(nil)
	_ repo.Registry          = (*Store)(nil)
	_ repo.ProbeTransitioner = (*Store)(nil)
)

// Store keeps all state in maps. It serves as its own session.
type Store struct {
	mu         sync.RWMutex
	heartbeats map[string]*domain.HeartbeatSubject
	backups    map[string]*domain.BackupSubject
	probes     map[string]*domain.ProbeSubject
}

func New() *Store {
	return &Store{
		heartbeats: make(map[string]*domain.HeartbeatSubject),
		backups:    make(map[string]*domain.BackupSubject),
		probes:     make(map[string]*domain.ProbeSubject),
	}
}

func (m *Store) Acquire(ctx context.Context) (repo.Session, error) { return m, nil }
func (m *Store) Release() {}

// ---- heartbeats ----

func (m *Store) ListHeartbeatSubjects(ctx context.Context) ([]domain.HeartbeatSubject, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]domain.HeartbeatSubject, 0, len(m.heartbeats))
	for _, h := range m.heartbeats {
		out = append(out, *h)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (m *Store) SetHeartbeatNotified(ctx context.Context, name string, notified bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	h, ok := m.heartbeats[name]
	if !ok {
		return fmt.Errorf("heartbeat %q: %w", name, domain.ErrNotFound)
	}
	h.DownNotified = notified
	return nil
}

func (m *Store) RegisterHeartbeat(ctx context.Context, h domain.HeartbeatSubject) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if cur, ok := m.heartbeats[h.Name]; ok {
		cur.Description = h.Description
		cur.FrequencyMinutes = h.FrequencyMinutes
		cur.ToleranceSeconds = h.ToleranceSeconds
		return nil
	}
	if h.LastSeenAt.IsZero() {
		h.LastSeenAt = time.Now().UTC()
	}
	h.DownNotified = false
	m.heartbeats[h.Name] = &h
	return nil
}

func (m *Store) TouchHeartbeat(ctx context.Context, name string, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	h, ok := m.heartbeats[name]
	if !ok {
		return fmt.Errorf("heartbeat %q: %w", name, domain.ErrNotFound)
	}
	if at.After(h.LastSeenAt) {
		h.LastSeenAt = at
	}
	return nil
}

// ---- backups ----

func (m *Store) ListBackupSubjects(ctx context.Context) ([]domain.BackupSubject, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]domain.BackupSubject, 0, len(m.backups))
	for _, b := range m.backups {
		out = append(out, *b)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (m *Store) SetBackupNotified(ctx context.Context, name string, notified bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.backups[name]
	if !ok {
		return fmt.Errorf("backup %q: %w", name, domain.ErrNotFound)
	}
	b.DownNotified = notified
	return nil
}

func (m *Store) UpsertBackupSubject(ctx context.Context, b domain.BackupSubject) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if cur, ok := m.backups[b.Name]; ok {
		b.DownNotified = cur.DownNotified
	}
	m.backups[b.Name] = &b
	return nil
}

func (m *Store) ReportBackup(ctx context.Context, b domain.BackupSubject) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if cur, ok := m.backups[b.Name]; ok {
		b.DownNotified = cur.DownNotified
		if b.MostRecentArtifactAt.Before(cur.MostRecentArtifactAt) {
			b.MostRecentArtifactAt = cur.MostRecentArtifactAt
			b.MostRecentArtifactChecksum = cur.MostRecentArtifactChecksum
		}
	}
	m.backups[b.Name] = &b
	return nil
}

// ---- probes ----

func (m *Store) UpsertProbeSubjectIfAbsent(ctx context.Context, url string, state domain.ProbeState, notified bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.probes[url]; !ok {
		m.probes[url] = &domain.ProbeSubject{URL: url, State: state, DownNotified: notified}
	}
	return nil
}

func (m *Store) GetProbeSubject(ctx context.Context, url string) (domain.ProbeSubject, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.probes[url]
	if !ok {
		return domain.ProbeSubject{}, fmt.Errorf("probe %q: %w", url, domain.ErrNotFound)
	}
	return *p, nil
}

func (m *Store) SetProbeState(ctx context.Context, url string, state domain.ProbeState) error {
	return m.updateProbe(url, func(p *domain.ProbeSubject) { p.State = state })
}

func (m *Store) SetProbeNotified(ctx context.Context, url string, notified bool) error {
	return m.updateProbe(url, func(p *domain.ProbeSubject) { p.DownNotified = notified })
}

func (m *Store) SetProbeTransition(ctx context.Context, url string, state domain.ProbeState, notified bool) error {
	return m.updateProbe(url, func(p *domain.ProbeSubject) {
		p.State = state
		p.DownNotified = notified
	})
}

func (m *Store) updateProbe(url string, fn func(*domain.ProbeSubject)) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.probes[url]
	if !ok {
		return fmt.Errorf("probe %q: %w", url, domain.ErrNotFound)
	}
	fn(p)
	return nil
}
