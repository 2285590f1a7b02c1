// Package adapter abstracts the native RenderDoc replay library behind a
// small capability interface, centralizing the cross-version method
// renaming between library releases (e.g. GetRootActions vs the older
// GetDrawcalls) in one place rather than scattering hasattr-style checks
// through every handler.
package adapter

import (
	"errors"
	"regexp"
	"strconv"
)

// ErrReplayLibraryUnavailable is returned by the native adapter: the
// actual RenderDoc Python/C replay library is a native dependency outside
// the scope of this module, so Open always fails this way in the real
// build. Tests and the daemon's dry paths use the fake adapter instead.
var ErrReplayLibraryUnavailable = errors.New("adapter: native replay library not available in this build")

// Version is a parsed (major, minor) pair identifying a replay-library
// release.
type Version struct {
	Major int
	Minor int
}

var versionPattern = regexp.MustCompile(`(\d+)\.(\d+)`)

// ParseVersion extracts the first "<major>.<minor>" pair found in value.
// ok is false if no such pair exists.
func ParseVersion(value string) (v Version, ok bool) {
	m := versionPattern.FindStringSubmatch(value)
	if m == nil {
		return Version{}, false
	}
	major, err1 := strconv.Atoi(m[1])
	minor, err2 := strconv.Atoi(m[2])
	if err1 != nil || err2 != nil {
		return Version{}, false
	}
	return Version{Major: major, Minor: minor}, true
}

// AtLeast reports whether v >= (major, minor).
func (v Version) AtLeast(major, minor int) bool {
	if v.Major != major {
		return v.Major > major
	}
	return v.Minor >= minor
}

// PipelineState is a minimal, version-independent view of the bound
// pipeline at the current event.
type PipelineState struct {
	API       string
	Shaders   map[string]string
	Resources []string
}

// Resource describes one resource in the capture's resource list.
type Resource struct {
	ID   string
	Name string
	Type string
}

// Texture describes one texture resource with dimensions.
type Texture struct {
	ID     string
	Width  int
	Height int
	Format string
}

// Buffer describes one buffer resource.
type Buffer struct {
	ID   string
	Size int
}

// Adapter is the capability surface the handler registry drives: every
// method a handler needs from the replay library, independent of which
// RenderDoc version is actually loaded.
type Adapter interface {
	Open(path string) error
	Close() error

	// SetFrameEvent repositions the controller to eid. force replays the
	// capture from the start even if eid is already current (§4.5/§6.4);
	// callers that just want "move here if not already there" pass false.
	SetFrameEvent(eid int, force bool) error
	CurrentEID() int
	MaxEID() int

	RootActions() ([]int, error)
	PipelineState(eid int) (PipelineState, error)
	Resources() ([]Resource, error)
	Textures() ([]Texture, error)
	Buffers() ([]Buffer, error)

	ReadBytes(resourceID string) ([]byte, error)
	Structured() (map[string]interface{}, error)

	// SetProxyHint configures remote-GPU routing for diff/proxy daemon
	// modes (§6.2); a no-op for adapters with no remote concept.
	SetProxyHint(hostPort string)
}

// nativeAdapter is the production adapter: it would drive the real
// RenderDoc replay library via cgo bindings, which are out of scope here.
type nativeAdapter struct {
	version Version
}

// NewNative returns an Adapter backed by the native replay library. Every
// method that returns an error fails with ErrReplayLibraryUnavailable
// since the native bindings are not part of this module; CurrentEID and
// MaxEID report 0 and SetProxyHint does nothing.
func NewNative(version Version) Adapter {
	return &nativeAdapter{version: version}
}

func (a *nativeAdapter) Open(string) error                          { return ErrReplayLibraryUnavailable }
func (a *nativeAdapter) Close() error                                { return ErrReplayLibraryUnavailable }
func (a *nativeAdapter) SetFrameEvent(int, bool) error               { return ErrReplayLibraryUnavailable }
func (a *nativeAdapter) CurrentEID() int                             { return 0 }
func (a *nativeAdapter) MaxEID() int                                 { return 0 }
func (a *nativeAdapter) RootActions() ([]int, error)                 { return nil, ErrReplayLibraryUnavailable }
func (a *nativeAdapter) PipelineState(int) (PipelineState, error)    { return PipelineState{}, ErrReplayLibraryUnavailable }
func (a *nativeAdapter) Resources() ([]Resource, error)              { return nil, ErrReplayLibraryUnavailable }
func (a *nativeAdapter) Textures() ([]Texture, error)                { return nil, ErrReplayLibraryUnavailable }
func (a *nativeAdapter) Buffers() ([]Buffer, error)                  { return nil, ErrReplayLibraryUnavailable }
func (a *nativeAdapter) ReadBytes(string) ([]byte, error)            { return nil, ErrReplayLibraryUnavailable }
func (a *nativeAdapter) Structured() (map[string]interface{}, error) { return nil, ErrReplayLibraryUnavailable }
func (a *nativeAdapter) SetProxyHint(string)                        {}

// RootActionsMethodName reports which native method name should be used
// for a given version: GetRootActions (>= 1.32) or the older GetDrawcalls.
func RootActionsMethodName(v Version) string {
	if v.AtLeast(1, 32) {
		return "GetRootActions"
	}
	return "GetDrawcalls"
}
