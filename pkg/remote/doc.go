// Package remote abstracts the file tree that generated PM files are published
// into.
//
// A Store uploads template files, creates symbolic links that stand in for
// per-node data files, and removes links once they leave the retention
// window. Three implementations are provided:
//
//   - SFTPStore talks to a collection point over SSH using github.com/pkg/sftp.
//   - LocalStore writes under a local directory, typically a shared volume.
//   - MemoryStore keeps everything in process and supports failure injection.
//
// Connector wraps a Store with bounded connection retries.
//
// Symlink never replaces an existing target; it reports SymlinkExist instead.
// Callers treat that as "already published".
package remote
