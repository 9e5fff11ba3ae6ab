package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/hamed0406/statechecker/internal/domain"
	"github.com/hamed0406/statechecker/internal/repo"
)

var (
	_ repo.Store    = (*Store)(nil)
	_ repo.Registry = (*Store)(nil)
)

type Store struct {
	pool *pgxpool.Pool
	log  *zap.Logger
}

func New(ctx context.Context, dsn string, log *zap.Logger) (*Store, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("pgxpool.New: %w", err)
	}
	ctxPing, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := pool.Ping(ctxPing); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping: %w", err)
	}
	return &Store{pool: pool, log: log}, nil
}

func (s *Store) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

// Ping backs /healthz.
func (s *Store) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// Acquire checks a connection out of the pool for one tick. A connection
// the server dropped while idle is replaced by the pool on checkout.
func (s *Store) Acquire(ctx context.Context) (repo.Session, error) {
	conn, err := s.pool.Acquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("acquire connection: %w", err)
	}
	return &session{conn: conn}, nil
}

// ---- Registry ----

func (s *Store) RegisterHeartbeat(ctx context.Context, h domain.HeartbeatSubject) error {
	if h.LastSeenAt.IsZero() {
		h.LastSeenAt = time.Now().UTC()
	}
	_, err := s.pool.Exec(ctx, `
		INSERT INTO heartbeat_subjects
		  (name, description, last_seen_at, frequency_minutes, tolerance_seconds, down_notified)
		VALUES ($1, $2, $3, $4, $5, FALSE)
		ON CONFLICT (name)
		DO UPDATE SET description=EXCLUDED.description,
		              frequency_minutes=EXCLUDED.frequency_minutes,
		              tolerance_seconds=EXCLUDED.tolerance_seconds`,
		h.Name, h.Description, h.LastSeenAt, h.FrequencyMinutes, h.ToleranceSeconds)
	if err != nil {
		return fmt.Errorf("register heartbeat: %w", err)
	}
	return nil
}

func (s *Store) TouchHeartbeat(ctx context.Context, name string, at time.Time) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE heartbeat_subjects SET last_seen_at = GREATEST(last_seen_at, $2) WHERE name = $1`,
		name, at)
	if err != nil {
		return fmt.Errorf("touch heartbeat: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("heartbeat %q: %w", name, domain.ErrNotFound)
	}
	return nil
}

// ReportBackup is the push path. Late or replayed reports keep the newer
// artifact already stored.
func (s *Store) ReportBackup(ctx context.Context, b domain.BackupSubject) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO backup_subjects
		  (name, source_token, frequency_minutes, most_recent_artifact_at,
		   most_recent_artifact_checksum, description, down_notified)
		VALUES ($1, $2, $3, $4, $5, $6, FALSE)
		ON CONFLICT (name)
		DO UPDATE SET source_token=EXCLUDED.source_token,
		              frequency_minutes=EXCLUDED.frequency_minutes,
		              most_recent_artifact_at=GREATEST(backup_subjects.most_recent_artifact_at, EXCLUDED.most_recent_artifact_at),
		              most_recent_artifact_checksum=CASE
		                WHEN EXCLUDED.most_recent_artifact_at >= backup_subjects.most_recent_artifact_at
		                THEN EXCLUDED.most_recent_artifact_checksum
		                ELSE backup_subjects.most_recent_artifact_checksum END,
		              description=EXCLUDED.description`,
		b.Name, b.SourceToken, b.FrequencyMinutes, b.MostRecentArtifactAt,
		b.MostRecentArtifactChecksum, b.Description)
	if err != nil {
		return fmt.Errorf("report backup: %w", err)
	}
	return nil
}

// querier is satisfied by both *pgxpool.Pool and *pgxpool.Conn.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

func upsertBackup(ctx context.Context, q querier, b domain.BackupSubject) error {
	_, err := q.Exec(ctx, `
		INSERT INTO backup_subjects
		  (name, source_token, frequency_minutes, most_recent_artifact_at,
		   most_recent_artifact_checksum, description, down_notified)
		VALUES ($1, $2, $3, $4, $5, $6, FALSE)
		ON CONFLICT (name)
		DO UPDATE SET source_token=EXCLUDED.source_token,
		              frequency_minutes=EXCLUDED.frequency_minutes,
		              most_recent_artifact_at=EXCLUDED.most_recent_artifact_at,
		              most_recent_artifact_checksum=EXCLUDED.most_recent_artifact_checksum,
		              description=EXCLUDED.description`,
		b.Name, b.SourceToken, b.FrequencyMinutes, b.MostRecentArtifactAt,
		b.MostRecentArtifactChecksum, b.Description)
	if err != nil {
		return fmt.Errorf("upsert backup: %w", err)
	}
	return nil
}

// session runs every statement of one tick on a single connection. Each
// statement commits on its own so a flag flip survives a later failure in
// the same tick.
type session struct {
	conn *pgxpool.Conn
}

var (
	_ repo.Session           = (*session)(nil)
	_ repo.ProbeTransitioner = (*session)(nil)
)

func (s *session) Release() { s.conn.Release() }

func (s *session) ListHeartbeatSubjects(ctx context.Context) ([]domain.HeartbeatSubject, error) {
	rows, err := s.conn.Query(ctx, `
		SELECT name, description, last_seen_at, frequency_minutes, tolerance_seconds, down_notified
		  FROM heartbeat_subjects
		 ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("list heartbeats: %w", err)
	}
	defer rows.Close()

	var out []domain.HeartbeatSubject
	for rows.Next() {
		var h domain.HeartbeatSubject
		if err := rows.Scan(&h.Name, &h.Description, &h.LastSeenAt, &h.FrequencyMinutes, &h.ToleranceSeconds, &h.DownNotified); err != nil {
			return nil, fmt.Errorf("scan heartbeat: %w", err)
		}
		out = append(out, h)
	}
	return out, rows.Err()
}

func (s *session) SetHeartbeatNotified(ctx context.Context, name string, notified bool) error {
	return execOne(ctx, s.conn, "heartbeat "+name,
		`UPDATE heartbeat_subjects SET down_notified=$2 WHERE name=$1`, name, notified)
}

func (s *session) ListBackupSubjects(ctx context.Context) ([]domain.BackupSubject, error) {
	rows, err := s.conn.Query(ctx, `
		SELECT name, source_token, frequency_minutes, most_recent_artifact_at,
		       most_recent_artifact_checksum, description, down_notified
		  FROM backup_subjects
		 ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("list backups: %w", err)
	}
	defer rows.Close()

	var out []domain.BackupSubject
	for rows.Next() {
		var b domain.BackupSubject
		if err := rows.Scan(&b.Name, &b.SourceToken, &b.FrequencyMinutes, &b.MostRecentArtifactAt,
			&b.MostRecentArtifactChecksum, &b.Description, &b.DownNotified); err != nil {
			return nil, fmt.Errorf("scan backup: %w", err)
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

func (s *session) SetBackupNotified(ctx context.Context, name string, notified bool) error {
	return execOne(ctx, s.conn, "backup "+name,
		`UPDATE backup_subjects SET down_notified=$2 WHERE name=$1`, name, notified)
}

func (s *session) UpsertBackupSubject(ctx context.Context, b domain.BackupSubject) error {
	return upsertBackup(ctx, s.conn, b)
}

func (s *session) UpsertProbeSubjectIfAbsent(ctx context.Context, url string, state domain.ProbeState, notified bool) error {
	_, err := s.conn.Exec(ctx, `
		INSERT INTO probe_subjects (url, state, down_notified)
		VALUES ($1, $2, $3)
		ON CONFLICT (url) DO NOTHING`,
		url, string(state), notified)
	if err != nil {
		return fmt.Errorf("upsert probe: %w", err)
	}
	return nil
}

func (s *session) GetProbeSubject(ctx context.Context, url string) (domain.ProbeSubject, error) {
	p := domain.ProbeSubject{URL: url}
	var state string
	err := s.conn.QueryRow(ctx,
		`SELECT state, down_notified FROM probe_subjects WHERE url=$1`, url).
		Scan(&state, &p.DownNotified)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.ProbeSubject{}, fmt.Errorf("probe %q: %w", url, domain.ErrNotFound)
	}
	if err != nil {
		return domain.ProbeSubject{}, fmt.Errorf("get probe: %w", err)
	}
	p.State = domain.ProbeState(state)
	return p, nil
}

func (s *session) SetProbeState(ctx context.Context, url string, state domain.ProbeState) error {
	return execOne(ctx, s.conn, "probe "+url,
		`UPDATE probe_subjects SET state=$2 WHERE url=$1`, url, string(state))
}

func (s *session) SetProbeNotified(ctx context.Context, url string, notified bool) error {
	return execOne(ctx, s.conn, "probe "+url,
		`UPDATE probe_subjects SET down_notified=$2 WHERE url=$1`, url, notified)
}

func (s *session) SetProbeTransition(ctx context.Context, url string, state domain.ProbeState, notified bool) error {
	return execOne(ctx, s.conn, "probe "+url,
		`UPDATE probe_subjects SET state=$2, down_notified=$3 WHERE url=$1`, url, string(state), notified)
}

func execOne(ctx context.Context, q querier, what, sql string, args ...any) error {
	tag, err := q.Exec(ctx, sql, args...)
	if err != nil {
		return fmt.Errorf("update %s: %w", what, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%s: %w", what, domain.ErrNotFound)
	}
	return nil
}
