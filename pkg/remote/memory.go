package remote

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path"
	"sort"
	"strings"
	"sync"
)

// MemoryStore is an in-process Store. It keeps uploaded files and links in
// maps and supports failure injection, which makes it the store of choice for
// tests and for dry runs.
type MemoryStore struct {
	mu          sync.Mutex
	connected   bool
	connectable bool
	files       map[string]os.FileMode
	links       map[string]string
	dirs        map[string]os.FileMode
	deleted     []string

	failSymlink func(target string) bool
	failDelete  func(path string) bool
}

// NewMemoryStore returns a connected, empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		connected:   true,
		connectable: true,
		files:       make(map[string]os.FileMode),
		links:       make(map[string]string),
		dirs:        make(map[string]os.FileMode),
	}
}

// SetConnected forces the connection state. When connectable is false,
// Connect fails until it is set again.
func (m *MemoryStore) SetConnected(connected, connectable bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.connected = connected
	m.connectable = connectable
}

// FailSymlinkWhen makes Symlink report SymlinkFailed for matching targets.
func (m *MemoryStore) FailSymlinkWhen(fn func(target string) bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failSymlink = fn
}

// FailDeleteWhen makes Delete return an error for matching paths.
func (m *MemoryStore) FailDeleteWhen(fn func(path string) bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failDelete = fn
}

// Connect marks the store connected.
func (m *MemoryStore) Connect(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.connectable {
		return NewStoreError("memory", "connect", "", ErrNotConnected)
	}
	m.connected = true
	return nil
}

// Connected reports the connection state.
func (m *MemoryStore) Connected(ctx context.Context) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.connected
}

// Upload records remotePath as a regular file.
func (m *MemoryStore) Upload(ctx context.Context, localPath, remotePath string, perm os.FileMode) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.connected {
		return NewStoreError("memory", "upload", remotePath, ErrNotConnected)
	}
	if _, err := os.Stat(localPath); err != nil {
		return NewStoreError("memory", "upload", remotePath, err)
	}

	m.mkdirLocked(path.Dir(remotePath), perm)
	m.files[remotePath] = perm
	return nil
}

// AddFile records remotePath as an existing file without reading local data.
func (m *MemoryStore) AddFile(remotePath string, perm os.FileMode) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.mkdirLocked(path.Dir(remotePath), perm)
	m.files[remotePath] = perm
}

// Symlink records target -> source.
func (m *MemoryStore) Symlink(ctx context.Context, source, target string, perm os.FileMode) (SymlinkResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.connected {
		return SymlinkFailed, NewStoreError("memory", "symlink", target, ErrNotConnected)
	}
	if m.existsLocked(target) {
		return SymlinkExist, nil
	}
	if m.failSymlink != nil && m.failSymlink(target) {
		return SymlinkFailed, NewStoreError("memory", "symlink", target, errors.New("injected failure"))
	}

	m.mkdirLocked(path.Dir(target), perm)
	m.links[target] = source
	return SymlinkSuccess, nil
}

// Delete removes a file or link.
func (m *MemoryStore) Delete(ctx context.Context, p string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.connected {
		return NewStoreError("memory", "delete", p, ErrNotConnected)
	}
	if m.failDelete != nil && m.failDelete(p) {
		return NewStoreError("memory", "delete", p, errors.New("injected failure"))
	}
	if !m.existsLocked(p) {
		return NewStoreError("memory", "delete", p, fs.ErrNotExist)
	}

	delete(m.links, p)
	delete(m.files, p)
	m.deleted = append(m.deleted, p)
	return nil
}

// List returns the direct children of dir.
func (m *MemoryStore) List(ctx context.Context, dir string) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.connected {
		return nil, NewStoreError("memory", "list", dir, ErrNotConnected)
	}

	prefix := strings.TrimSuffix(dir, "/") + "/"
	seen := make(map[string]struct{})
	collect := func(p string) {
		if rest, ok := strings.CutPrefix(p, prefix); ok && rest != "" {
			name, _, _ := strings.Cut(rest, "/")
			seen[name] = struct{}{}
		}
	}
	for p := range m.files {
		collect(p)
	}
	for p := range m.links {
		collect(p)
	}
	for p := range m.dirs {
		collect(p)
	}

	names := make([]string, 0, len(seen))
	for name := range seen {
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

// MkdirAll records the directory.
func (m *MemoryStore) MkdirAll(ctx context.Context, dir string, perm os.FileMode) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.connected {
		return NewStoreError("memory", "mkdir", dir, ErrNotConnected)
	}
	m.mkdirLocked(dir, perm)
	return nil
}

// Chmod updates the recorded permissions of a file.
func (m *MemoryStore) Chmod(ctx context.Context, p string, perm os.FileMode) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.files[p]; ok {
		m.files[p] = perm
		return nil
	}
	if _, ok := m.dirs[p]; ok {
		m.dirs[p] = perm
		return nil
	}
	return NewStoreError("memory", "chmod", p, fs.ErrNotExist)
}

// Close marks the store disconnected.
func (m *MemoryStore) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.connected = false
	return nil
}

// Links returns a copy of the link table (target -> source).
func (m *MemoryStore) Links() map[string]string {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make(map[string]string, len(m.links))
	for k, v := range m.links {
		out[k] = v
	}
	return out
}

// Files returns the sorted paths of uploaded files.
func (m *MemoryStore) Files() []string {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]string, 0, len(m.files))
	for p := range m.files {
		out = append(out, p)
	}
	sort.Strings(out)
	return out
}

// Deleted returns the paths removed so far, in call order.
func (m *MemoryStore) Deleted() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.deleted...)
}

// Exists reports whether p is a file or link.
func (m *MemoryStore) Exists(p string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.existsLocked(p)
}

func (m *MemoryStore) existsLocked(p string) bool {
	if _, ok := m.links[p]; ok {
		return true
	}
	_, ok := m.files[p]
	return ok
}

func (m *MemoryStore) mkdirLocked(dir string, perm os.FileMode) {
	for dir != "/" && dir != "." && dir != "" {
		if _, ok := m.dirs[dir]; ok {
			return
		}
		m.dirs[dir] = perm
		dir = path.Dir(dir)
	}
}

var _ Store = (*MemoryStore)(nil)
