// Package archive keeps a copy of every processed source document, either in a
// local directory or in a MinIO bucket, under "<job id>/<filename>".
package archive

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"os"
	"path"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/joseph-ayodele/attendance-tracker/internal/common"
)

// New picks the MinIO store when an endpoint is configured, the local store when
// only a directory is, and returns nil when archiving is off.
func New(ctx context.Context, cfg common.ArchiveConfig, logger *slog.Logger) (Store, error) {
	switch {
	case cfg.Endpoint != "":
		s, err := NewMinio(cfg, logger)
		if err != nil {
			return nil, err
		}
		if err := s.EnsureBucket(ctx); err != nil {
			return nil, err
		}
		return s, nil
	case cfg.Dir != "":
		return NewLocal(cfg.Dir, logger), nil
	default:
		return nil, nil
	}
}

// Store archives a file for a job and returns where it went.
type Store interface {
	Archive(ctx context.Context, jobID uuid.UUID, src string) (string, error)
}

// ObjectName is the archive key for src within jobID.
func ObjectName(jobID uuid.UUID, src string) string {
	return path.Join(jobID.String(), filepath.Base(src))
}

func contentType(name string) string {
	if t := mime.TypeByExtension(filepath.Ext(name)); t != "" {
		return t
	}
	return "application/octet-stream"
}

// Local copies files below Dir.
type Local struct {
	Dir    string
	logger *slog.Logger
}

func NewLocal(dir string, logger *slog.Logger) *Local {
	if logger == nil {
		logger = slog.Default()
	}
	return &Local{Dir: dir, logger: logger}
}

func (l *Local) Archive(_ context.Context, jobID uuid.UUID, src string) (string, error) {
	dst := filepath.Join(l.Dir, filepath.FromSlash(ObjectName(jobID, src)))
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return "", fmt.Errorf("archive dir: %w", err)
	}

	in, err := os.Open(src)
	if err != nil {
		return "", err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return "", err
	}
	if _, err := io.Copy(out, in); err != nil {
		_ = out.Close()
		return "", fmt.Errorf("archive copy: %w", err)
	}
	if err := out.Close(); err != nil {
		return "", err
	}
	l.logger.Debug("archive.local.ok", "job_id", jobID.String(), "dst", dst)
	return dst, nil
}

// Minio uploads files to a bucket.
type Minio struct {
	client *minio.Client
	bucket string
	logger *slog.Logger
}

func NewMinio(cfg common.ArchiveConfig, logger *slog.Logger) (*Minio, error) {
	if logger == nil {
		logger = slog.Default()
	}
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create minio client: %w", err)
	}
	return &Minio{client: client, bucket: cfg.Bucket, logger: logger}, nil
}

// EnsureBucket creates the bucket if it doesn't exist
func (s *Minio) EnsureBucket(ctx context.Context) error {
	exists, err := s.client.BucketExists(ctx, s.bucket)
	if err != nil {
		return fmt.Errorf("failed to check bucket: %w", err)
	}
	if exists {
		return nil
	}
	if err := s.client.MakeBucket(ctx, s.bucket, minio.MakeBucketOptions{}); err != nil {
		return fmt.Errorf("failed to create bucket: %w", err)
	}
	s.logger.Info("archive.bucket.created", "bucket", s.bucket)
	return nil
}

func (s *Minio) Archive(ctx context.Context, jobID uuid.UUID, src string) (string, error) {
	f, err := os.Open(src)
	if err != nil {
		return "", err
	}
	defer f.Close()
	st, err := f.Stat()
	if err != nil {
		return "", err
	}

	name := ObjectName(jobID, src)
	_, err = s.client.PutObject(ctx, s.bucket, name, f, st.Size(), minio.PutObjectOptions{
		ContentType: contentType(src),
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload file: %w", err)
	}
	s.logger.Debug("archive.minio.ok", "job_id", jobID.String(), "bucket", s.bucket, "object", name, "bytes", st.Size())
	return "s3://" + s.bucket + "/" + name, nil
}
