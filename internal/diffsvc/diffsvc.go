// Package diffsvc orchestrates a pair of daemons for the diff command
// (§4.8): one per capture being compared, each tracked under a derived
// session name so ordinary open/close bookkeeping still applies to them.
// If the second daemon fails to start, the first is torn down rather
// than left orphaned, so a failed diff never leaves an orphaned process
// or session record behind.
package diffsvc

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/bananasjim/rdc/internal/config"
	"github.com/bananasjim/rdc/internal/service"
	"github.com/bananasjim/rdc/internal/session"
)

// ErrNotReady wraps a daemon readiness failure so callers (the CLI) can
// distinguish "missed the deadline" from other startup failures (§7:
// `diff A B --timeout 0.001` must surface daemon_a_not_ready /
// daemon_b_not_ready, not a generic error).
type ErrNotReady struct {
	Which string // "A" or "B"
	Err   error
}

func (e *ErrNotReady) Error() string {
	return fmt.Sprintf("daemon_%s_not_ready: %v", lowerLetter(e.Which), e.Err)
}

func (e *ErrNotReady) Unwrap() error { return e.Err }

func lowerLetter(s string) string {
	if s == "A" {
		return "a"
	}
	return "b"
}

// newDiffID mints a random 12-character hex session id (§4.8): a UUIDv4
// from google/uuid with its dashes stripped and truncated.
func newDiffID() (string, error) {
	u, err := uuid.NewRandom()
	if err != nil {
		return "", err
	}
	return strings.ReplaceAll(u.String(), "-", "")[:12], nil
}

// Context holds the two sessions opened for one diff invocation.
type Context struct {
	ID string
	A  *session.Record
	B  *session.Record

	nameA string
	nameB string
}

// openSession and closeSession are swapped out in tests to avoid
// spawning/signaling a real rdcd process; production code always goes
// through service.Open/service.Close.
var (
	openSession  = service.Open
	closeSession = service.Close
)

// Start opens daemons for captureA and captureB under derived session
// names "diff:<id>:A" and "diff:<id>:B". timeout bounds how long each
// daemon is given to answer ping (0 uses service's default cap); a
// missed deadline is reported as *ErrNotReady so callers can tell it
// apart from other startup failures. If B fails to start, A is stopped
// and its session file removed before returning the error, so a failed
// diff never leaves an orphaned daemon or session record behind.
func Start(cfg *config.Config, captureA, captureB string, timeout time.Duration) (*Context, error) {
	id, err := newDiffID()
	if err != nil {
		return nil, fmt.Errorf("diffsvc: %w", err)
	}
	nameA := fmt.Sprintf("diff:%s:A", id)
	nameB := fmt.Sprintf("diff:%s:B", id)

	recA, err := openSession(service.OpenOptions{
		Mode:         service.ModeSpawn,
		CapturePath:  captureA,
		SessionName:  nameA,
		ReadyTimeout: timeout,
		Config:       cfg,
	})
	if err != nil {
		if errors.Is(err, service.ErrSpawnTimeout) {
			return nil, &ErrNotReady{Which: "A", Err: err}
		}
		return nil, fmt.Errorf("diffsvc: daemon A failed to start: %w", err)
	}

	recB, err := openSession(service.OpenOptions{
		Mode:         service.ModeSpawn,
		CapturePath:  captureB,
		SessionName:  nameB,
		ReadyTimeout: timeout,
		Config:       cfg,
	})
	if err != nil {
		store := session.NewStore(cfg.SessionsDir)
		closeSession(recA)
		store.Delete(nameA)
		if errors.Is(err, service.ErrSpawnTimeout) {
			return nil, &ErrNotReady{Which: "B", Err: err}
		}
		return nil, fmt.Errorf("diffsvc: daemon B failed to start: %w", err)
	}

	return &Context{ID: id, A: recA, B: recB, nameA: nameA, nameB: nameB}, nil
}

// Stop closes both daemons and removes their session records, tolerating
// either already being gone.
func Stop(cfg *config.Config, ctx *Context) error {
	store := session.NewStore(cfg.SessionsDir)

	errA := closeSession(ctx.A)
	store.Delete(ctx.nameA)

	errB := closeSession(ctx.B)
	store.Delete(ctx.nameB)

	if errA != nil {
		return errA
	}
	return errB
}
