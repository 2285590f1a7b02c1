// Package service opens and closes rdcd daemons on behalf of the CLI:
// spawning a detached child process and waiting for it to come up,
// attaching to one that's already listening, or connecting to one
// entirely remote. Readiness is polling-based; shutdown escalates from
// a cooperative RPC to SIGTERM then SIGKILL.
package service

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"net"
	"os"
	"os/exec"
	"path/filepath"
	"syscall"
	"time"

	"golang.org/x/time/rate"

	"github.com/bananasjim/rdc/internal/adapter"
	"github.com/bananasjim/rdc/internal/client"
	"github.com/bananasjim/rdc/internal/config"
	"github.com/bananasjim/rdc/internal/daemon"
	"github.com/bananasjim/rdc/internal/session"
)

// Mode selects how a daemon connection is established (§6.2).
type Mode int

const (
	// ModeSpawn starts a detached rdcd child process and polls until it
	// answers ping. This is the default.
	ModeSpawn Mode = iota
	// ModeListen starts an in-process daemon on the given address, used
	// by embedders and tests; the session record carries pid=0.
	ModeListen
	// ModeConnect attaches to an already-running daemon at a given
	// address with a caller-supplied token; nothing is spawned.
	ModeConnect
	// ModeProxy is like ModeConnect plus a remote-GPU routing hint.
	ModeProxy
)

// ErrSpawnTimeout is returned when a spawned daemon never becomes ready.
var ErrSpawnTimeout = errors.New("service: daemon did not become ready in time")

// ErrChildExited is returned when the spawned rdcd process exits before
// becoming ready.
var ErrChildExited = errors.New("service: daemon process exited before becoming ready")

// OpenOptions configures how a session is established.
type OpenOptions struct {
	Mode        Mode
	CapturePath string
	SessionName string

	// ListenAddr is the bind address for the in-process server in
	// ModeListen. ModeSpawn does not read it: the child is always bound
	// to an OS-assigned port on 127.0.0.1.
	ListenAddr string

	// ConnectAddr/Token are used by ModeConnect and ModeProxy.
	ConnectAddr string
	Token       string
	ProxyHint   string

	// ReadyTimeout bounds how long ModeSpawn polls for the child to
	// answer ping before giving up (§4.6: "total cap 30s"). Zero means
	// the default cap.
	ReadyTimeout time.Duration

	Config *config.Config
}

// defaultReadyTimeout is the §4.6 polling cap for a spawned daemon.
const defaultReadyTimeout = 30 * time.Second

// Open establishes a daemon connection per opts.Mode and persists a
// session record for it.
func Open(opts OpenOptions) (*session.Record, error) {
	store := session.NewStore(opts.Config.SessionsDir)

	switch opts.Mode {
	case ModeConnect, ModeProxy:
		host, port, err := splitHostPort(opts.ConnectAddr)
		if err != nil {
			return nil, err
		}
		rec := &session.Record{
			Capture:   opts.CapturePath,
			OpenedAt:  time.Now().UTC().Format(time.RFC3339),
			Host:      host,
			Port:      port,
			Token:     opts.Token,
			PID:       0,
			ProxyHint: opts.ProxyHint,
		}
		if err := store.Save(opts.SessionName, rec); err != nil {
			return nil, err
		}
		return rec, nil

	case ModeListen:
		return openListen(store, opts)

	default:
		return openSpawn(store, opts)
	}
}

func splitHostPort(addr string) (string, int, error) {
	host, portStr, err := net.SplitHostPort(addr)
	if err != nil {
		return "", 0, fmt.Errorf("service: invalid address %q: %w", addr, err)
	}
	var port int
	if _, err := fmt.Sscanf(portStr, "%d", &port); err != nil {
		return "", 0, fmt.Errorf("service: invalid port in %q", addr)
	}
	return host, port, nil
}

func newToken() (string, error) {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}

func openSpawn(store *session.Store, opts OpenOptions) (*session.Record, error) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return nil, err
	}
	addr := ln.Addr().(*net.TCPAddr)
	ln.Close()

	token, err := newToken()
	if err != nil {
		return nil, err
	}

	rdcdPath, err := resolveRdcdPath()
	if err != nil {
		return nil, err
	}

	logPath := filepath.Join(opts.Config.LogDir, opts.SessionName+".log")
	logFile, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0600)
	if err != nil {
		return nil, err
	}
	defer logFile.Close()

	cmd := exec.Command(rdcdPath,
		"--listen", fmt.Sprintf("127.0.0.1:%d", addr.Port),
		"--token", token,
		"--capture", opts.CapturePath,
	)
	cmd.Stdout = logFile
	cmd.Stderr = logFile
	cmd.Stdin = nil

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("service: spawn rdcd: %w", err)
	}

	exited := make(chan error, 1)
	go func() { exited <- cmd.Wait() }()

	timeout := opts.ReadyTimeout
	if timeout <= 0 {
		timeout = defaultReadyTimeout
	}
	daemonAddr := fmt.Sprintf("127.0.0.1:%d", addr.Port)
	if err := waitReady(daemonAddr, token, exited, timeout); err != nil {
		killOrphan(cmd.Process)
		return nil, err
	}

	rec := &session.Record{
		Capture:  opts.CapturePath,
		OpenedAt: time.Now().UTC().Format(time.RFC3339),
		Host:     "127.0.0.1",
		Port:     addr.Port,
		Token:    token,
		PID:      cmd.Process.Pid,
	}
	if err := store.Save(opts.SessionName, rec); err != nil {
		killOrphan(cmd.Process)
		return nil, err
	}
	return rec, nil
}

// waitReady polls ping with exponential backoff (§4.6), giving up if the
// child exits first or timeout elapses.
func waitReady(addr, token string, exited <-chan error, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	c := client.New(addr, token)
	backoff := 10 * time.Millisecond
	const maxBackoff = 1 * time.Second
	limiter := rate.NewLimiter(rate.Every(backoff), 1)

	for {
		select {
		case err := <-exited:
			return fmt.Errorf("%w: %v", ErrChildExited, err)
		case <-ctx.Done():
			return ErrSpawnTimeout
		default:
		}

		if pingErr := c.Ping(); pingErr == nil {
			return nil
		}

		if err := limiter.Wait(ctx); err != nil {
			return ErrSpawnTimeout
		}
		if backoff < maxBackoff {
			backoff *= 2
			limiter.SetLimit(rate.Every(backoff))
		}
	}
}

// killOrphan terminates a spawned rdcd child that never became ready, so
// a failed open (e.g. a timed-out diff leg) never leaves a daemon
// running with no session record pointing at it. Killing a process that
// already exited on its own (the ErrChildExited path) is a harmless
// no-op.
func killOrphan(proc *os.Process) {
	_ = proc.Kill()
}

func resolveRdcdPath() (string, error) {
	if p, err := exec.LookPath("rdcd"); err == nil {
		return p, nil
	}
	self, err := os.Executable()
	if err != nil {
		return "", err
	}
	candidate := filepath.Join(filepath.Dir(self), "rdcd")
	if _, err := os.Stat(candidate); err == nil {
		return candidate, nil
	}
	return "", fmt.Errorf("service: rdcd binary not found on PATH or next to %s", self)
}

// openListen makes the calling CLI process itself the daemon (§4.6 mode
// 2): it binds the requested address, opens the capture against a fresh
// adapter, writes the session record (pid=0, since there is no separate
// child to supervise), and then blocks in daemon.Server.Serve until the
// daemon is shut down (via RPC or the listener closing).
func openListen(store *session.Store, opts OpenOptions) (*session.Record, error) {
	host, _, err := splitHostPort(opts.ListenAddr)
	if err != nil {
		return nil, err
	}

	ln, err := net.Listen("tcp", opts.ListenAddr)
	if err != nil {
		return nil, err
	}

	token, err := newToken()
	if err != nil {
		ln.Close()
		return nil, err
	}

	capturePath, cleanup, err := adapter.MaybeDecompress(opts.CapturePath)
	if err != nil {
		ln.Close()
		return nil, err
	}
	defer cleanup()

	a := adapter.NewFake()
	if err := a.Open(capturePath); err != nil {
		ln.Close()
		return nil, err
	}

	port := ln.Addr().(*net.TCPAddr).Port
	rec := &session.Record{
		Capture:  opts.CapturePath,
		OpenedAt: time.Now().UTC().Format(time.RFC3339),
		Host:     host,
		Port:     port,
		Token:    token,
		PID:      0,
	}
	if err := store.Save(opts.SessionName, rec); err != nil {
		ln.Close()
		return nil, err
	}

	srv := daemon.New(ln, token, a, opts.CapturePath)
	if err := srv.Serve(); err != nil {
		return rec, err
	}
	return rec, nil
}

// Close shuts a session down: asks the daemon to shut down gracefully,
// then escalates to SIGTERM/SIGKILL if it owns the process (pid != 0)
// and it doesn't exit in time.
func Close(rec *session.Record) error {
	addr := fmt.Sprintf("%s:%d", rec.Host, rec.Port)
	c := client.New(addr, rec.Token)
	_ = c.Shutdown()

	if rec.PID == 0 {
		return nil
	}

	proc, err := os.FindProcess(rec.PID)
	if err != nil {
		return nil
	}

	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if err := proc.Signal(syscall.Signal(0)); err != nil {
			return nil
		}
		time.Sleep(100 * time.Millisecond)
	}

	if err := proc.Signal(syscall.SIGTERM); err != nil {
		return nil
	}

	deadline = time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if err := proc.Signal(syscall.Signal(0)); err != nil {
			return nil
		}
		time.Sleep(100 * time.Millisecond)
	}

	return proc.Signal(syscall.SIGKILL)
}
