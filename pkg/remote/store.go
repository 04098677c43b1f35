package remote

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
)

// SymlinkResult is the outcome of a Symlink call.
type SymlinkResult int

const (
	// SymlinkFailed means the link could not be created.
	SymlinkFailed SymlinkResult = iota

	// SymlinkSuccess means a new link was created.
	SymlinkSuccess

	// SymlinkExist means the target already existed and was left untouched.
	SymlinkExist
)

// String returns the result name.
func (r SymlinkResult) String() string {
	switch r {
	case SymlinkSuccess:
		return "SUCCESS"
	case SymlinkExist:
		return "EXIST"
	default:
		return "FAILED"
	}
}

// Store is a remote file tree that generated files are published into.
// Paths are slash-separated and interpreted by the implementation.
type Store interface {
	// Connect establishes the session. It is a no-op when already connected.
	Connect(ctx context.Context) error

	// Connected reports whether the session is usable.
	Connected(ctx context.Context) bool

	// Upload copies a local file to remotePath, creating parent directories,
	// and applies perm to the uploaded file.
	Upload(ctx context.Context, localPath, remotePath string, perm os.FileMode) error

	// Symlink creates target pointing at source. An existing target yields
	// SymlinkExist and is not recreated.
	Symlink(ctx context.Context, source, target string, perm os.FileMode) (SymlinkResult, error)

	// Delete removes a single file or link.
	Delete(ctx context.Context, path string) error

	// List returns the entry names of a directory.
	List(ctx context.Context, path string) ([]string, error)

	// MkdirAll creates path and any missing parents with perm.
	MkdirAll(ctx context.Context, path string, perm os.FileMode) error

	// Chmod sets the permission bits of path.
	Chmod(ctx context.Context, path string, perm os.FileMode) error

	// Close releases the session.
	Close() error
}

var (
	// ErrNotConnected is returned by operations attempted without a session.
	ErrNotConnected = errors.New("remote store not connected")
)

// StoreError describes a failed remote operation.
type StoreError struct {
	Backend   string // "sftp", "local", "memory"
	Operation string // "upload", "symlink", "delete", ...
	Path      string
	Cause     error
}

// Error implements the error interface.
func (e *StoreError) Error() string {
	return fmt.Sprintf("remote error [backend=%s, operation=%s, path=%s]: %v", e.Backend, e.Operation, e.Path, e.Cause)
}

// Unwrap returns the underlying cause error.
func (e *StoreError) Unwrap() error {
	return e.Cause
}

// NewStoreError creates a new StoreError.
func NewStoreError(backend, operation, path string, cause error) *StoreError {
	return &StoreError{
		Backend:   backend,
		Operation: operation,
		Path:      path,
		Cause:     cause,
	}
}

// ParsePermissions parses an octal permission string such as "0755" or "755".
func ParsePermissions(s string) (os.FileMode, error) {
	v, err := strconv.ParseUint(s, 8, 32)
	if err != nil {
		return 0, fmt.Errorf("invalid octal permissions %q: %w", s, err)
	}
	if v > 0o7777 {
		return 0, fmt.Errorf("permissions %q out of range", s)
	}
	return os.FileMode(v), nil
}
