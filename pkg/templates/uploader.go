package templates

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"sync"
	"time"

	"mercator-hq/ropsim/pkg/remote"
)

// ErrNoTemplates is returned when the local template directory holds no files.
var ErrNoTemplates = errors.New("no template files found")

// UploadStats summarizes one upload run.
type UploadStats struct {
	Files    int
	Counts   map[Category]int
	Duration time.Duration
}

// UploadObserver is told about every upload run.
type UploadObserver interface {
	RecordUpload(stats UploadStats)
}

// Uploader copies the local template tree into the remote bin area and
// registers every uploaded file in a Pool.
type Uploader struct {
	store    remote.Store
	pool     *Pool
	localDir string
	baseDir  string
	binDir   string
	perm     os.FileMode
	logger   *slog.Logger
	observer UploadObserver

	mu   sync.Mutex
	done bool
}

// NewUploader creates an uploader publishing localDir into
// <baseDir>/<binSubdir> on store.
func NewUploader(store remote.Store, pool *Pool, localDir, baseDir, binSubdir string, perm os.FileMode, logger *slog.Logger) *Uploader {
	if logger == nil {
		logger = slog.Default()
	}
	return &Uploader{
		store:    store,
		pool:     pool,
		localDir: localDir,
		baseDir:  baseDir,
		binDir:   path.Join(baseDir, binSubdir),
		perm:     perm,
		logger:   logger.With("component", "templates.uploader"),
	}
}

// SetObserver registers o to receive upload stats.
func (u *Uploader) SetObserver(o UploadObserver) {
	u.observer = o
}

// Uploaded reports whether an upload run has completed successfully.
func (u *Uploader) Uploaded() bool {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.done
}

// Prepare uploads the templates unless a previous run succeeded. It lets a
// trigger retry an upload that failed at startup.
func (u *Uploader) Prepare(ctx context.Context) error {
	if u.Uploaded() {
		return nil
	}
	_, err := u.Upload(ctx)
	return err
}

// BinDir returns the remote directory templates are uploaded into.
func (u *Uploader) BinDir() string {
	return u.binDir
}

// BaseDir returns the remote directory node files are published under.
func (u *Uploader) BaseDir() string {
	return u.baseDir
}

// Upload walks the local directory in lexical order and uploads each regular
// file. The first failed upload aborts the run; files uploaded before it stay
// in the pool. Re-uploading a path replaces its pool entry.
func (u *Uploader) Upload(ctx context.Context) (UploadStats, error) {
	stats, err := u.upload(ctx)
	if u.observer != nil {
		u.observer.RecordUpload(stats)
	}
	if err == nil {
		u.mu.Lock()
		u.done = true
		u.mu.Unlock()
	}
	return stats, err
}

func (u *Uploader) upload(ctx context.Context) (UploadStats, error) {
	start := time.Now()
	stats := UploadStats{Counts: make(map[Category]int)}

	if _, err := os.Stat(u.localDir); err != nil {
		return stats, fmt.Errorf("template directory %q: %w", u.localDir, err)
	}

	u.logger.Info("uploading templates", "local_dir", u.localDir, "bin_dir", u.binDir)
	if err := u.store.MkdirAll(ctx, u.binDir, u.perm); err != nil {
		return stats, fmt.Errorf("create bin directory: %w", err)
	}

	err := filepath.WalkDir(u.localDir, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if d.IsDir() || !d.Type().IsRegular() {
			return nil
		}

		rel, err := filepath.Rel(u.localDir, p)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)
		remotePath := path.Join(u.binDir, rel)

		if err := u.store.Upload(ctx, p, remotePath, u.perm); err != nil {
			return fmt.Errorf("upload %s: %w", rel, err)
		}

		category := Classify(rel)
		u.pool.Add(Template{Path: remotePath, Category: category})
		stats.Files++
		stats.Counts[category]++

		u.logger.Debug("template uploaded", "path", remotePath, "category", category)
		return nil
	})
	stats.Duration = time.Since(start)
	if err != nil {
		u.logger.Error("template upload failed", "error", err, "uploaded", stats.Files)
		return stats, err
	}
	if stats.Files == 0 {
		return stats, fmt.Errorf("%w in %s", ErrNoTemplates, u.localDir)
	}

	u.logger.Info("templates uploaded",
		"files", stats.Files,
		"unknown", stats.Counts[Unknown],
		"duration_ms", stats.Duration.Milliseconds(),
	)
	return stats, nil
}
