package backup

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/hamed0406/statechecker/internal/domain"
	"github.com/hamed0406/statechecker/internal/repo"
)

// EmptyFolderChecksum marks a folder that had no artifacts at scan time.
const EmptyFolderChecksum = "no items"

// Folder is a configured backup location.
type Folder struct {
	Name             string `yaml:"name" mapstructure:"name" json:"name"`
	Source           string `yaml:"source" mapstructure:"source" json:"source"`
	Token            string `yaml:"token" mapstructure:"token" json:"token"`
	FrequencyMinutes int    `yaml:"frequency_minutes" mapstructure:"frequency_minutes" json:"frequency_minutes"`
	Description      string `yaml:"description" mapstructure:"description" json:"description"`
}

// Scanner refreshes backup subjects from their sources.
type Scanner struct {
	Sources map[string]Source
	Folders []Folder
	Log     *zap.Logger
}

// Scan lists every folder and upserts its newest artifact. A folder whose
// listing fails is logged and skipped so its subject goes stale on its own.
// Only store failures are returned.
func (s *Scanner) Scan(ctx context.Context, store repo.BackupStore) error {
	for _, f := range s.Folders {
		art, err := s.newest(ctx, f)
		if err != nil {
			s.Log.Warn("backup_scan_failed",
				zap.String("folder", f.Name),
				zap.String("source", f.Source),
				zap.Error(err),
			)
			continue
		}
		sub := domain.BackupSubject{
			Name:                       f.Name,
			SourceToken:                f.Token,
			FrequencyMinutes:           f.FrequencyMinutes,
			MostRecentArtifactAt:       art.CreatedAt,
			MostRecentArtifactChecksum: art.Checksum,
			Description:                f.Description,
		}
		if err := store.UpsertBackupSubject(ctx, sub); err != nil {
			return fmt.Errorf("%w: backup %q: %w", domain.ErrPersistence, f.Name, err)
		}
		s.Log.Debug("backup_scanned",
			zap.String("folder", f.Name),
			zap.Time("most_recent", art.CreatedAt),
		)
	}
	return nil
}

func (s *Scanner) newest(ctx context.Context, f Folder) (Artifact, error) {
	src, ok := s.Sources[f.Source]
	if !ok {
		return Artifact{}, fmt.Errorf("%w: unknown source %q", domain.ErrBackupSource, f.Source)
	}
	items, err := src.ListArtifacts(ctx, f.Token)
	if err != nil {
		return Artifact{}, fmt.Errorf("%w: %w", domain.ErrBackupSource, err)
	}
	art, ok := Newest(items)
	if !ok {
		return Artifact{CreatedAt: time.Unix(0, 0).UTC(), Checksum: EmptyFolderChecksum}, nil
	}
	return art, nil
}
