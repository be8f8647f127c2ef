// Package ingest discovers attendance documents on disk and hands them to the
// processing queue.
package ingest

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/joseph-ayodele/attendance-tracker/internal/async"
	"github.com/joseph-ayodele/attendance-tracker/internal/common"
)

// IngestionResult is the per-file ingest outcome.
type IngestionResult struct {
	SourcePath   string
	Deduplicated bool
	HashHex      string
	QueuedAt     time.Time
	Err          string
}

// DirStats summarizes a directory ingest.
type DirStats struct {
	Scanned      uint32
	Matched      uint32
	Succeeded    uint32
	Deduplicated uint32
	Failed       uint32
}

// Ingestor hashes files and enqueues each distinct content once per process.
type Ingestor struct {
	queue  async.Queue
	logger *slog.Logger

	mu   sync.Mutex
	seen map[string]string // sha256 hex -> first path
}

func NewIngestor(queue async.Queue, logger *slog.Logger) *Ingestor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Ingestor{queue: queue, logger: logger, seen: map[string]string{}}
}

// IngestPath enqueues one file. A file whose content was already enqueued is
// reported as deduplicated unless force is set.
func (i *Ingestor) IngestPath(ctx context.Context, path string, force bool) (IngestionResult, error) {
	out := IngestionResult{SourcePath: path}

	abs, err := filepath.Abs(path)
	if err != nil {
		return out, err
	}
	out.SourcePath = abs

	if !AllowedExt(filepath.Ext(abs)) {
		return out, common.NewAppError("UNSUPPORTED", fmt.Sprintf("unsupported or missing extension: %q", filepath.Ext(abs)), common.ErrUnsupported)
	}

	sum, err := hashFile(abs)
	if err != nil {
		return out, err
	}
	out.HashHex = sum

	i.mu.Lock()
	first, dup := i.seen[sum]
	if !dup || force {
		i.seen[sum] = abs
	}
	i.mu.Unlock()
	if dup && !force {
		out.Deduplicated = true
		i.logger.Info("ingest.dedup", "path", abs, "first_path", first)
		return out, nil
	}

	out.QueuedAt = time.Now()
	if err := i.queue.Enqueue(ctx, async.Job{Path: abs, SubmittedAt: out.QueuedAt, TraceID: common.RequestIDFromContext(ctx)}); err != nil {
		return out, err
	}
	i.logger.Info("ingest.queued", "path", abs, "sha256", sum)
	return out, nil
}

// IngestDirectory walks root, skips hidden if requested,
// and calls IngestPath for each file. Returns per-file results + aggregate stats.
func (i *Ingestor) IngestDirectory(ctx context.Context, root string, skipHidden bool) ([]IngestionResult, DirStats, error) {
	if strings.TrimSpace(root) == "" {
		return nil, DirStats{}, errors.New("root path is required")
	}

	var results []IngestionResult
	var stats DirStats

	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, walkErr error) error {
		stats.Scanned++
		if walkErr != nil {
			results = append(results, IngestionResult{SourcePath: path, Err: walkErr.Error()})
			stats.Failed++
			return nil
		}
		if skipHidden && path != root && IsHidden(path) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() || !AllowedExt(filepath.Ext(path)) {
			return nil
		}
		stats.Matched++

		r, err := i.IngestPath(ctx, path, false)
		if err != nil {
			results = append(results, IngestionResult{SourcePath: path, Err: err.Error()})
			stats.Failed++
			return nil
		}
		results = append(results, r)
		stats.Succeeded++
		if r.Deduplicated {
			stats.Deduplicated++
		}
		return nil
	})
	if err != nil {
		return results, stats, fmt.Errorf("walk: %w", err)
	}
	return results, stats, nil
}

func hashFile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", fmt.Errorf("hash %s: %w", path, err)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}
