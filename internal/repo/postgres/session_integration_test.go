//go:build integration

package postgres

// go test -tags=integration ./internal/repo/postgres -run ProbeAndBackup -count=1

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/hamed0406/statechecker/internal/domain"
	"github.com/hamed0406/statechecker/internal/repo"
)

func TestPostgresStore_ProbeAndBackup(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()
	sess, err := store.Acquire(ctx)
	if err != nil {
		t.Fatalf("acquire: %v", err)
	}
	defer sess.Release()

	url := fmt.Sprintf("https://example.com/test-%d", time.Now().UTC().UnixNano())
	if err := sess.UpsertProbeSubjectIfAbsent(ctx, url, domain.StateUp, false); err != nil {
		t.Fatalf("upsert probe: %v", err)
	}
	tr, ok := sess.(repo.ProbeTransitioner)
	if !ok {
		t.Fatal("postgres session should write probe transitions atomically")
	}
	if err := tr.SetProbeTransition(ctx, url, domain.StateDown, true); err != nil {
		t.Fatalf("transition: %v", err)
	}
	if err := sess.UpsertProbeSubjectIfAbsent(ctx, url, domain.StateUp, false); err != nil {
		t.Fatalf("second upsert: %v", err)
	}
	p, err := sess.GetProbeSubject(ctx, url)
	if err != nil || p.State != domain.StateDown || !p.DownNotified {
		t.Fatalf("probe row: %+v err=%v", p, err)
	}

	name := fmt.Sprintf("db-%d", time.Now().UTC().UnixNano())
	b := domain.BackupSubject{
		Name: name, SourceToken: "folder", FrequencyMinutes: 60,
		MostRecentArtifactAt: time.Unix(0, 0).UTC(), MostRecentArtifactChecksum: "no items",
	}
	if err := sess.UpsertBackupSubject(ctx, b); err != nil {
		t.Fatalf("upsert backup: %v", err)
	}
	if err := sess.SetBackupNotified(ctx, name, true); err != nil {
		t.Fatalf("backup notified: %v", err)
	}
	b.MostRecentArtifactAt = time.Date(2025, 8, 18, 3, 0, 0, 0, time.UTC)
	b.MostRecentArtifactChecksum = "abc"
	if err := store.ReportBackup(ctx, b); err != nil {
		t.Fatalf("report backup: %v", err)
	}
	// a late report of an older artifact is ignored
	stale := b
	stale.MostRecentArtifactAt = b.MostRecentArtifactAt.Add(-24 * time.Hour)
	stale.MostRecentArtifactChecksum = "old"
	if err := store.ReportBackup(ctx, stale); err != nil {
		t.Fatalf("report stale backup: %v", err)
	}
	all, err := sess.ListBackupSubjects(ctx)
	if err != nil {
		t.Fatalf("list backups: %v", err)
	}
	for _, got := range all {
		if got.Name == name {
			if !got.DownNotified || got.MostRecentArtifactChecksum != "abc" ||
				!got.MostRecentArtifactAt.Equal(b.MostRecentArtifactAt) {
				t.Fatalf("backup row: %+v", got)
			}
			return
		}
	}
	t.Fatalf("backup %s not listed", name)
}
