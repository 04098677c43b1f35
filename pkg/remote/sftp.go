package remote

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"net"
	"os"
	"path"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/pkg/sftp"
	"golang.org/x/crypto/ssh"
	"golang.org/x/crypto/ssh/knownhosts"
)

// SFTPConfig holds the connection settings for an SFTPStore.
type SFTPConfig struct {
	Host           string
	Port           int
	User           string
	Password       string
	PrivateKeyPath string
	KnownHostsPath string // empty disables host key verification
	Timeout        time.Duration
}

// Addr returns host:port.
func (c SFTPConfig) Addr() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}

// SFTPStore publishes files to a remote SFTP server. A single SSH session is
// shared by all calls and re-established by Connect.
type SFTPStore struct {
	cfg    SFTPConfig
	logger *slog.Logger

	mu     sync.Mutex
	conn   *ssh.Client
	client *sftp.Client
}

// NewSFTPStore creates an unconnected store.
func NewSFTPStore(cfg SFTPConfig, logger *slog.Logger) *SFTPStore {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Port == 0 {
		cfg.Port = 22
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 10 * time.Second
	}
	return &SFTPStore{
		cfg:    cfg,
		logger: logger.With("component", "remote.sftp", "addr", cfg.Addr()),
	}
}

func (s *SFTPStore) clientConfig() (*ssh.ClientConfig, error) {
	var auths []ssh.AuthMethod

	if s.cfg.PrivateKeyPath != "" {
		pem, err := os.ReadFile(s.cfg.PrivateKeyPath)
		if err != nil {
			return nil, fmt.Errorf("read private key: %w", err)
		}
		signer, err := ssh.ParsePrivateKey(pem)
		if err != nil {
			return nil, fmt.Errorf("parse private key: %w", err)
		}
		auths = append(auths, ssh.PublicKeys(signer))
	}
	if s.cfg.Password != "" {
		auths = append(auths, ssh.Password(s.cfg.Password))
	}
	if len(auths) == 0 {
		return nil, errors.New("no ssh authentication method configured")
	}

	hostKey := ssh.InsecureIgnoreHostKey()
	if s.cfg.KnownHostsPath != "" {
		cb, err := knownhosts.New(s.cfg.KnownHostsPath)
		if err != nil {
			return nil, fmt.Errorf("load known_hosts: %w", err)
		}
		hostKey = cb
	}

	return &ssh.ClientConfig{
		User:            s.cfg.User,
		Auth:            auths,
		HostKeyCallback: hostKey,
		Timeout:         s.cfg.Timeout,
	}, nil
}

// Connect dials the server if there is no live session.
func (s *SFTPStore) Connect(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.client != nil {
		if _, err := s.client.Getwd(); err == nil {
			return nil
		}
		s.closeLocked()
	}

	cfg, err := s.clientConfig()
	if err != nil {
		return NewStoreError("sftp", "connect", "", err)
	}

	dialer := net.Dialer{Timeout: s.cfg.Timeout}
	raw, err := dialer.DialContext(ctx, "tcp", s.cfg.Addr())
	if err != nil {
		return NewStoreError("sftp", "connect", "", err)
	}

	sshConn, chans, reqs, err := ssh.NewClientConn(raw, s.cfg.Addr(), cfg)
	if err != nil {
		raw.Close()
		return NewStoreError("sftp", "connect", "", err)
	}
	conn := ssh.NewClient(sshConn, chans, reqs)

	client, err := sftp.NewClient(conn)
	if err != nil {
		conn.Close()
		return NewStoreError("sftp", "connect", "", err)
	}

	s.conn = conn
	s.client = client
	s.logger.Info("sftp session established", "user", s.cfg.User)
	return nil
}

// Connected probes the session with a cheap round trip.
func (s *SFTPStore) Connected(ctx context.Context) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.client == nil {
		return false
	}
	_, err := s.client.Getwd()
	return err == nil
}

func (s *SFTPStore) session(op, p string) (*sftp.Client, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.client == nil {
		return nil, NewStoreError("sftp", op, p, ErrNotConnected)
	}
	return s.client, nil
}

// Upload streams localPath to remotePath.
func (s *SFTPStore) Upload(ctx context.Context, localPath, remotePath string, perm os.FileMode) error {
	c, err := s.session("upload", remotePath)
	if err != nil {
		return err
	}

	if err := c.MkdirAll(path.Dir(remotePath)); err != nil {
		return NewStoreError("sftp", "upload", remotePath, err)
	}

	in, err := os.Open(localPath)
	if err != nil {
		return NewStoreError("sftp", "upload", remotePath, err)
	}
	defer in.Close()

	out, err := c.Create(remotePath)
	if err != nil {
		return NewStoreError("sftp", "upload", remotePath, err)
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return NewStoreError("sftp", "upload", remotePath, err)
	}
	if err := out.Close(); err != nil {
		return NewStoreError("sftp", "upload", remotePath, err)
	}

	if err := c.Chmod(remotePath, perm); err != nil {
		return NewStoreError("sftp", "upload", remotePath, err)
	}
	return nil
}

// Symlink creates target pointing at source.
func (s *SFTPStore) Symlink(ctx context.Context, source, target string, perm os.FileMode) (SymlinkResult, error) {
	c, err := s.session("symlink", target)
	if err != nil {
		return SymlinkFailed, err
	}

	if _, err := c.Lstat(target); err == nil {
		return SymlinkExist, nil
	} else if !errors.Is(err, fs.ErrNotExist) {
		return SymlinkFailed, NewStoreError("sftp", "symlink", target, err)
	}

	dir := path.Dir(target)
	if err := c.MkdirAll(dir); err != nil {
		return SymlinkFailed, NewStoreError("sftp", "symlink", target, err)
	}
	if err := c.Chmod(dir, dirPerm(perm)); err != nil {
		s.logger.Debug("chmod on node directory failed", "dir", dir, "error", err)
	}

	if err := c.Symlink(source, target); err != nil {
		return SymlinkFailed, NewStoreError("sftp", "symlink", target, err)
	}
	return SymlinkSuccess, nil
}

// Delete removes path.
func (s *SFTPStore) Delete(ctx context.Context, p string) error {
	c, err := s.session("delete", p)
	if err != nil {
		return err
	}
	if err := c.Remove(p); err != nil {
		return NewStoreError("sftp", "delete", p, err)
	}
	return nil
}

// List returns the sorted entry names of a remote directory.
func (s *SFTPStore) List(ctx context.Context, p string) ([]string, error) {
	c, err := s.session("list", p)
	if err != nil {
		return nil, err
	}

	infos, err := c.ReadDir(p)
	if err != nil {
		return nil, NewStoreError("sftp", "list", p, err)
	}

	names := make([]string, 0, len(infos))
	for _, fi := range infos {
		names = append(names, fi.Name())
	}
	sort.Strings(names)
	return names, nil
}

// MkdirAll creates p and its parents, then applies perm to p.
func (s *SFTPStore) MkdirAll(ctx context.Context, p string, perm os.FileMode) error {
	c, err := s.session("mkdir", p)
	if err != nil {
		return err
	}
	if err := c.MkdirAll(p); err != nil {
		return NewStoreError("sftp", "mkdir", p, err)
	}
	if err := c.Chmod(p, dirPerm(perm)); err != nil {
		return NewStoreError("sftp", "mkdir", p, err)
	}
	return nil
}

// Chmod sets permissions on p.
func (s *SFTPStore) Chmod(ctx context.Context, p string, perm os.FileMode) error {
	c, err := s.session("chmod", p)
	if err != nil {
		return err
	}
	if err := c.Chmod(p, perm); err != nil {
		return NewStoreError("sftp", "chmod", p, err)
	}
	return nil
}

// Close tears down the session.
func (s *SFTPStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closeLocked()
}

func (s *SFTPStore) closeLocked() error {
	var errs []error
	if s.client != nil {
		errs = append(errs, s.client.Close())
		s.client = nil
	}
	if s.conn != nil {
		errs = append(errs, s.conn.Close())
		s.conn = nil
	}
	return errors.Join(errs...)
}

var _ Store = (*SFTPStore)(nil)
