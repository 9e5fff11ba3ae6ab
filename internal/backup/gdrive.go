package backup

import (
	"context"
	"fmt"
	"os"
	"time"

	"google.golang.org/api/drive/v3"
	"google.golang.org/api/option"
)

// SourceGoogleDrive is the Folder.Source name of DriveSource.
const SourceGoogleDrive = "gdrive"

// DriveSource lists the files of a Google Drive folder. The folder token is
// the folder id; the service account needs read access to it.
type DriveSource struct {
	svc *drive.Service
}

// NewDriveSource builds a read-only Drive client from a service account key
// file. Extra options are appended, which tests use to point at a fake.
func NewDriveSource(ctx context.Context, credentialsFile string, opts ...option.ClientOption) (*DriveSource, error) {
	base := []option.ClientOption{option.WithScopes(drive.DriveReadonlyScope)}
	if credentialsFile != "" {
		key, err := os.ReadFile(credentialsFile)
		if err != nil {
			return nil, fmt.Errorf("read drive credentials: %w", err)
		}
		base = append(base, option.WithCredentialsJSON(key))
	}
	svc, err := drive.NewService(ctx, append(base, opts...)...)
	if err != nil {
		return nil, fmt.Errorf("drive service: %w", err)
	}
	return &DriveSource{svc: svc}, nil
}

func (d *DriveSource) ListArtifacts(ctx context.Context, folderToken string) ([]Artifact, error) {
	var out []Artifact
	call := d.svc.Files.List().
		Q(fmt.Sprintf("'%s' in parents", folderToken)).
		PageSize(1000).
		Fields("nextPageToken, files(kind, id, name, createdTime, md5Checksum)")

	err := call.Pages(ctx, func(page *drive.FileList) error {
		for _, f := range page.Files {
			created, err := time.Parse(time.RFC3339, f.CreatedTime)
			if err != nil {
				return fmt.Errorf("file %s: bad createdTime %q: %w", f.Id, f.CreatedTime, err)
			}
			out = append(out, Artifact{CreatedAt: created, Checksum: f.Md5Checksum})
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("list drive folder %s: %w", folderToken, err)
	}
	return out, nil
}
