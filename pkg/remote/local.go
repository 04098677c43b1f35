package remote

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
)

// LocalStore publishes into a directory on the local filesystem. Remote paths
// are resolved beneath Root, which makes it suitable for shared volumes and
// for running the simulator without an SFTP server.
type LocalStore struct {
	root   string
	logger *slog.Logger
}

// NewLocalStore creates a store rooted at root.
func NewLocalStore(root string, logger *slog.Logger) *LocalStore {
	if logger == nil {
		logger = slog.Default()
	}
	return &LocalStore{
		root:   root,
		logger: logger.With("component", "remote.local"),
	}
}

// Root returns the directory remote paths are resolved beneath.
func (s *LocalStore) Root() string {
	return s.root
}

func (s *LocalStore) resolve(p string) string {
	return filepath.Join(s.root, filepath.FromSlash(p))
}

// Connect creates the root directory if needed.
func (s *LocalStore) Connect(ctx context.Context) error {
	if err := os.MkdirAll(s.root, 0o755); err != nil {
		return NewStoreError("local", "connect", s.root, err)
	}
	return nil
}

// Connected reports whether the root directory exists.
func (s *LocalStore) Connected(ctx context.Context) bool {
	info, err := os.Stat(s.root)
	return err == nil && info.IsDir()
}

// Upload copies localPath to remotePath.
func (s *LocalStore) Upload(ctx context.Context, localPath, remotePath string, perm os.FileMode) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	dst := s.resolve(remotePath)
	if err := os.MkdirAll(filepath.Dir(dst), dirPerm(perm)); err != nil {
		return NewStoreError("local", "upload", remotePath, err)
	}

	in, err := os.Open(localPath)
	if err != nil {
		return NewStoreError("local", "upload", remotePath, err)
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, perm)
	if err != nil {
		return NewStoreError("local", "upload", remotePath, err)
	}

	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return NewStoreError("local", "upload", remotePath, err)
	}
	if err := out.Close(); err != nil {
		return NewStoreError("local", "upload", remotePath, err)
	}

	return s.Chmod(ctx, remotePath, perm)
}

// Symlink links target to source. Both are remote paths.
func (s *LocalStore) Symlink(ctx context.Context, source, target string, perm os.FileMode) (SymlinkResult, error) {
	if err := ctx.Err(); err != nil {
		return SymlinkFailed, err
	}

	dst := s.resolve(target)
	if _, err := os.Lstat(dst); err == nil {
		s.logger.Debug("symlink already exists", "target", target)
		return SymlinkExist, nil
	} else if !errors.Is(err, fs.ErrNotExist) {
		return SymlinkFailed, NewStoreError("local", "symlink", target, err)
	}

	if err := os.MkdirAll(filepath.Dir(dst), dirPerm(perm)); err != nil {
		return SymlinkFailed, NewStoreError("local", "symlink", target, err)
	}

	src, err := filepath.Abs(s.resolve(source))
	if err != nil {
		return SymlinkFailed, NewStoreError("local", "symlink", target, err)
	}
	if err := os.Symlink(src, dst); err != nil {
		return SymlinkFailed, NewStoreError("local", "symlink", target, err)
	}

	return SymlinkSuccess, nil
}

// Delete removes path.
func (s *LocalStore) Delete(ctx context.Context, path string) error {
	if err := os.Remove(s.resolve(path)); err != nil {
		return NewStoreError("local", "delete", path, err)
	}
	return nil
}

// List returns the sorted entry names of the directory at path.
func (s *LocalStore) List(ctx context.Context, path string) ([]string, error) {
	entries, err := os.ReadDir(s.resolve(path))
	if err != nil {
		return nil, NewStoreError("local", "list", path, err)
	}

	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.Name())
	}
	sort.Strings(names)
	return names, nil
}

// MkdirAll creates path and its parents.
func (s *LocalStore) MkdirAll(ctx context.Context, path string, perm os.FileMode) error {
	if err := os.MkdirAll(s.resolve(path), dirPerm(perm)); err != nil {
		return NewStoreError("local", "mkdir", path, err)
	}
	return nil
}

// Chmod sets permissions on path.
func (s *LocalStore) Chmod(ctx context.Context, path string, perm os.FileMode) error {
	if err := os.Chmod(s.resolve(path), perm); err != nil {
		return NewStoreError("local", "chmod", path, err)
	}
	return nil
}

// Close is a no-op.
func (s *LocalStore) Close() error {
	return nil
}

// dirPerm makes sure directories stay traversable by their owner.
func dirPerm(perm os.FileMode) os.FileMode {
	if perm == 0 {
		return 0o755
	}
	return perm | 0o700
}

var _ Store = (*LocalStore)(nil)

// String describes the store for log output.
func (s *LocalStore) String() string {
	return fmt.Sprintf("local(%s)", s.root)
}
