package backup

import (
	"context"
	"fmt"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// SourceS3 is the Folder.Source name of S3Source.
const SourceS3 = "s3"

type S3Config struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Region    string
	UseSSL    bool
}

// S3Source lists objects on any S3-compatible store. A folder token is
// "bucket" or "bucket/prefix".
type S3Source struct {
	mc *minio.Client
}

func NewS3Source(cfg S3Config) (*S3Source, error) {
	mc, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("s3 client: %w", err)
	}
	return &S3Source{mc: mc}, nil
}

func (s *S3Source) ListArtifacts(ctx context.Context, folderToken string) ([]Artifact, error) {
	bucket, prefix, err := splitS3Token(folderToken)
	if err != nil {
		return nil, err
	}
	var out []Artifact
	for obj := range s.mc.ListObjects(ctx, bucket, minio.ListObjectsOptions{Prefix: prefix, Recursive: true}) {
		if obj.Err != nil {
			return nil, fmt.Errorf("list %s: %w", folderToken, obj.Err)
		}
		if strings.HasSuffix(obj.Key, "/") {
			continue
		}
		out = append(out, Artifact{
			CreatedAt: obj.LastModified,
			Checksum:  strings.Trim(obj.ETag, `"`),
		})
	}
	return out, nil
}

func splitS3Token(token string) (bucket, prefix string, err error) {
	token = strings.TrimPrefix(strings.TrimSpace(token), "s3://")
	bucket, prefix, _ = strings.Cut(token, "/")
	if bucket == "" {
		return "", "", fmt.Errorf("s3 token %q has no bucket", token)
	}
	if prefix != "" && !strings.HasSuffix(prefix, "/") {
		prefix += "/"
	}
	return bucket, prefix, nil
}
