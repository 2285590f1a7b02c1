// Package vfs maps capture-content paths such as
// "/textures/<id>/image.png" or "/buffers/<id>/data" to the adapter calls
// that produce their bytes. Route matching uses doublestar glob patterns
// (as wired throughout the wider example pack for path-style routing);
// MIME detection on returned bytes uses mimetype. List and Resolve match
// paths against the known roots and route patterns and never join them
// onto a filesystem directory; SafeJoin separately offers a
// filepath-securejoin based join that cannot escape its root via "../".
// Unknown roots are refused
// outright rather than guessed at — an explicitly decided Open Question
// (see DESIGN.md).
package vfs

import (
	"errors"
	"fmt"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	securejoin "github.com/cyphar/filepath-securejoin"
	"github.com/gabriel-vasile/mimetype"
	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/bananasjim/rdc/internal/adapter"
)

// resolveCacheSize bounds how many resolved (path -> bytes) pairs Router
// keeps around: render targets and large textures are expensive to
// re-fetch from the adapter on every repeated vfs request (e.g. a client
// polling the same thumbnail), so a small LRU avoids refetching the most
// recently resolved paths.
const resolveCacheSize = 64

// ErrUnknownRoot is returned for any path whose leading segment isn't one
// of the known VFS roots (textures, draws, buffers).
var ErrUnknownRoot = errors.New("vfs: unknown path root")

// Node is one entry in a directory listing. Kind is one of "dir",
// "leaf_text", or "leaf_bin" (§4.10); leaves also carry the canonical
// path a second round-trip should target to fetch their bytes.
type Node struct {
	Name        string `json:"name"`
	IsDir       bool   `json:"is_dir"`
	Kind        string `json:"kind"`
	HandlerPath string `json:"handler_path,omitempty"`
}

const (
	KindDir     = "dir"
	KindText    = "leaf_text"
	KindBinary  = "leaf_bin"
)

// Route associates a glob pattern against a capture-content path with the
// handler that produces its payload.
type Route struct {
	Pattern string
	Handle  func(a adapter.Adapter, path string) ([]byte, string, error)
}

type resolvedContent struct {
	data     []byte
	mimeType string
}

// Router dispatches VFS paths to their producing routes.
type Router struct {
	routes []Route
	cache  *lru.Cache[string, resolvedContent]
}

// NewRouter builds the standard route table (§4.9).
func NewRouter() *Router {
	cache, _ := lru.New[string, resolvedContent](resolveCacheSize)
	return &Router{
		routes: []Route{
			{Pattern: "/textures/*/image.png", Handle: handleTextureImage},
			{Pattern: "/draws/*/targets/color*.png", Handle: handleDrawColorTarget},
			{Pattern: "/buffers/*/data", Handle: handleBufferData},
		},
		cache: cache,
	}
}

// List enumerates the children of path: the three top-level roots for
// "/", or the live resources under one root (backed by a, which may be
// nil only for the root listing).
func (r *Router) List(a adapter.Adapter, path string) ([]Node, error) {
	if path == "" || path == "/" {
		return []Node{
			{Name: "textures", IsDir: true, Kind: KindDir},
			{Name: "draws", IsDir: true, Kind: KindDir},
			{Name: "buffers", IsDir: true, Kind: KindDir},
		}, nil
	}

	root := leadingSegment(path)
	if root != "textures" && root != "draws" && root != "buffers" {
		return nil, ErrUnknownRoot
	}
	if strings.Trim(path, "/") != root {
		return nil, fmt.Errorf("vfs: no such directory %q", path)
	}
	if a == nil {
		return nil, fmt.Errorf("vfs: no capture is open")
	}

	switch root {
	case "textures":
		textures, err := a.Textures()
		if err != nil {
			return nil, err
		}
		nodes := make([]Node, 0, len(textures))
		for _, t := range textures {
			nodes = append(nodes, Node{
				Name: t.ID, IsDir: false, Kind: KindBinary,
				HandlerPath: fmt.Sprintf("/textures/%s/image.png", t.ID),
			})
		}
		return nodes, nil
	case "buffers":
		buffers, err := a.Buffers()
		if err != nil {
			return nil, err
		}
		nodes := make([]Node, 0, len(buffers))
		for _, b := range buffers {
			nodes = append(nodes, Node{
				Name: b.ID, IsDir: false, Kind: KindBinary,
				HandlerPath: fmt.Sprintf("/buffers/%s/data", b.ID),
			})
		}
		return nodes, nil
	case "draws":
		actions, err := a.RootActions()
		if err != nil {
			return nil, err
		}
		nodes := make([]Node, 0, len(actions))
		for _, eid := range actions {
			nodes = append(nodes, Node{Name: fmt.Sprintf("%d", eid), IsDir: true, Kind: KindDir})
		}
		return nodes, nil
	}
	return nil, ErrUnknownRoot
}

// Resolve matches path against the route table and returns its bytes and
// a detected/declared content type. Results are cached by path in an LRU
// of resolveCacheSize entries, since repeated requests for the same texture or
// render target are common (a client re-fetching a thumbnail it already
// saw) and the adapter call backing them can be expensive.
func (r *Router) Resolve(a adapter.Adapter, path string) ([]byte, string, error) {
	root := leadingSegment(path)
	if root != "textures" && root != "draws" && root != "buffers" {
		return nil, "", ErrUnknownRoot
	}

	if cached, ok := r.cache.Get(path); ok {
		return cached.data, cached.mimeType, nil
	}

	for _, route := range r.routes {
		matched, err := doublestar.Match(route.Pattern, path)
		if err != nil {
			return nil, "", err
		}
		if matched {
			data, mimeType, err := route.Handle(a, path)
			if err != nil {
				return nil, "", err
			}
			r.cache.Add(path, resolvedContent{data: data, mimeType: mimeType})
			return data, mimeType, nil
		}
	}
	return nil, "", fmt.Errorf("vfs: no route for path %q", path)
}

func leadingSegment(path string) string {
	trimmed := strings.TrimPrefix(path, "/")
	if idx := strings.IndexByte(trimmed, '/'); idx >= 0 {
		return trimmed[:idx]
	}
	return trimmed
}

// SafeJoin joins an untrusted relative path onto root without permitting
// it to escape via "..": used when a VFS handler needs to stage bytes on
// the real filesystem (e.g. a script's scratch output) rather than return
// them inline.
func SafeJoin(root, rel string) (string, error) {
	return securejoin.SecureJoin(root, rel)
}

func handleTextureImage(a adapter.Adapter, path string) ([]byte, string, error) {
	id, err := segmentAt(path, 1)
	if err != nil {
		return nil, "", err
	}
	data, err := a.ReadBytes(id)
	if err != nil {
		return nil, "", err
	}
	return data, detectType(data), nil
}

func handleDrawColorTarget(a adapter.Adapter, path string) ([]byte, string, error) {
	eid, err := segmentAt(path, 1)
	if err != nil {
		return nil, "", err
	}
	data, err := a.ReadBytes("draw:" + eid)
	if err != nil {
		return nil, "", err
	}
	return data, detectType(data), nil
}

func handleBufferData(a adapter.Adapter, path string) ([]byte, string, error) {
	id, err := segmentAt(path, 1)
	if err != nil {
		return nil, "", err
	}
	data, err := a.ReadBytes(id)
	if err != nil {
		return nil, "", err
	}
	return data, "application/octet-stream", nil
}

func segmentAt(path string, n int) (string, error) {
	parts := strings.Split(strings.Trim(path, "/"), "/")
	if n >= len(parts) {
		return "", fmt.Errorf("vfs: path %q missing segment %d", path, n)
	}
	return parts[n], nil
}

func detectType(data []byte) string {
	return mimetype.Detect(data).String()
}
