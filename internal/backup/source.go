package backup

import (
	"context"
	"time"
)

// Artifact is one file in a backup folder.
type Artifact struct {
	CreatedAt time.Time
	Checksum  string
}

// Source lists the artifacts of a folder. folderToken is opaque to the
// scanner and meaningful only to the source.
type Source interface {
	ListArtifacts(ctx context.Context, folderToken string) ([]Artifact, error)
}

// Newest returns the artifact with the latest CreatedAt. Ties keep the
// first one seen.
func Newest(items []Artifact) (Artifact, bool) {
	if len(items) == 0 {
		return Artifact{}, false
	}
	best := items[0]
	for _, a := range items[1:] {
		if a.CreatedAt.After(best.CreatedAt) {
			best = a
		}
	}
	return best, true
}
