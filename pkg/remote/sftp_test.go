package remote

import (
	"context"
	"crypto/ed25519"
	"crypto/rand"
	"encoding/binary"
	"errors"
	"net"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/pkg/sftp"
	"golang.org/x/crypto/ssh"
)

// startSFTPServer serves an in-memory SFTP file system for user "pm" with
// password "secret" and returns its port.
func startSFTPServer(t *testing.T) int {
	t.Helper()

	_, key, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		t.Fatal(err)
	}
	signer, err := ssh.NewSignerFromKey(key)
	if err != nil {
		t.Fatal(err)
	}
	cfg := &ssh.ServerConfig{
		PasswordCallback: func(c ssh.ConnMetadata, pass []byte) (*ssh.Permissions, error) {
			if c.User() == "pm" && string(pass) == "secret" {
				return nil, nil
			}
			return nil, errors.New("access denied")
		},
	}
	cfg.AddHostKey(signer)

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { ln.Close() })

	handlers := sftp.InMemHandler()
	go func() {
		for {
			nc, err := ln.Accept()
			if err != nil {
				return
			}
			go serveSSH(nc, cfg, handlers)
		}
	}()
	return ln.Addr().(*net.TCPAddr).Port
}

func serveSSH(nc net.Conn, cfg *ssh.ServerConfig, handlers sftp.Handlers) {
	conn, chans, reqs, err := ssh.NewServerConn(nc, cfg)
	if err != nil {
		nc.Close()
		return
	}
	defer conn.Close()
	go ssh.DiscardRequests(reqs)

	for nch := range chans {
		if nch.ChannelType() != "session" {
			nch.Reject(ssh.UnknownChannelType, "session only")
			continue
		}
		ch, in, err := nch.Accept()
		if err != nil {
			return
		}
		go func(in <-chan *ssh.Request) {
			for req := range in {
				req.Reply(isSFTPSubsystem(req), nil)
			}
		}(in)

		srv := sftp.NewRequestServer(ch, handlers)
		go func() {
			srv.Serve()
			srv.Close()
		}()
	}
}

func isSFTPSubsystem(req *ssh.Request) bool {
	if req.Type != "subsystem" || len(req.Payload) < 4 {
		return false
	}
	n := binary.BigEndian.Uint32(req.Payload)
	return int(n) == len(req.Payload)-4 && string(req.Payload[4:]) == "sftp"
}

func TestSFTPStore_Lifecycle(t *testing.T) {
	port := startSFTPServer(t)
	store := NewSFTPStore(SFTPConfig{
		Host:     "127.0.0.1",
		Port:     port,
		User:     "pm",
		Password: "secret",
		Timeout:  5 * time.Second,
	}, nil)
	defer store.Close()
	ctx := context.Background()

	if store.Connected(ctx) {
		t.Fatal("Connected() before Connect")
	}
	if _, err := store.List(ctx, "/"); !errors.Is(err, ErrNotConnected) {
		t.Errorf("List() before Connect error = %v, want ErrNotConnected", err)
	}
	if err := store.Connect(ctx); err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	if !store.Connected(ctx) {
		t.Fatal("Connected() = false after Connect")
	}

	local := filepath.Join(t.TempDir(), "statsfile.xml")
	if err := os.WriteFile(local, []byte("<measCollecFile/>"), 0o644); err != nil {
		t.Fatal(err)
	}
	const tpl = "/pm/bin/XML/NodeA0001/A20220412.1600+0100-1615+0100_NodeA0001_statsfile.xml"
	if err := store.Upload(ctx, local, tpl, 0o644); err != nil {
		t.Fatalf("Upload() error = %v", err)
	}

	const link = "/pm/XML/NodeA0002/A20220101.0000+0000-0015+0000_NodeA0002_statsfile.xml"
	res, err := store.Symlink(ctx, tpl, link, 0o755)
	if err != nil || res != SymlinkSuccess {
		t.Fatalf("Symlink() = %v, %v; want SUCCESS", res, err)
	}
	if res, _ := store.Symlink(ctx, tpl, link, 0o755); res != SymlinkExist {
		t.Errorf("second Symlink() = %v, want EXIST", res)
	}

	names, err := store.List(ctx, "/pm/XML/NodeA0002")
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if diff := cmp.Diff([]string{"A20220101.0000+0000-0015+0000_NodeA0002_statsfile.xml"}, names); diff != "" {
		t.Errorf("List() mismatch (-want +got):\n%s", diff)
	}

	if err := store.Delete(ctx, link); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if err := store.Delete(ctx, link); err == nil {
		t.Error("deleting a missing link should fail")
	}
}

func TestSFTPStore_ConnectErrors(t *testing.T) {
	port := startSFTPServer(t)

	tests := []struct {
		name string
		cfg  SFTPConfig
	}{
		{"wrong password", SFTPConfig{Host: "127.0.0.1", Port: port, User: "pm", Password: "guess"}},
		{"no credentials", SFTPConfig{Host: "127.0.0.1", Port: port, User: "pm"}},
		{"missing key file", SFTPConfig{Host: "127.0.0.1", Port: port, User: "pm", PrivateKeyPath: "/nonexistent/id_ed25519"}},
		{"missing known_hosts", SFTPConfig{Host: "127.0.0.1", Port: port, User: "pm", Password: "secret", KnownHostsPath: "/nonexistent/known_hosts"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.cfg.Timeout = 2 * time.Second
			store := NewSFTPStore(tt.cfg, nil)
			defer store.Close()

			err := store.Connect(context.Background())
			var serr *StoreError
			if !errors.As(err, &serr) || serr.Operation != "connect" {
				t.Fatalf("Connect() error = %v, want a connect StoreError", err)
			}
			if store.Connected(context.Background()) {
				t.Error("Connected() after a failed Connect")
			}
		})
	}
}
