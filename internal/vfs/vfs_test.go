package vfs

import (
	"testing"

	"github.com/bananasjim/rdc/internal/adapter"
)

func TestList_Root(t *testing.T) {
	r := NewRouter()
	nodes, err := r.List(nil, "/")
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(nodes) != 3 {
		t.Fatalf("nodes = %v", nodes)
	}
	for _, n := range nodes {
		if n.Kind != KindDir {
			t.Fatalf("root node %q kind = %q, want dir", n.Name, n.Kind)
		}
	}
}

func TestList_UnknownRootRejected(t *testing.T) {
	r := NewRouter()
	if _, err := r.List(nil, "/sounds"); err != ErrUnknownRoot {
		t.Fatalf("err = %v, want ErrUnknownRoot", err)
	}
}

func TestList_TexturesWithNoCaptureOpen(t *testing.T) {
	r := NewRouter()
	if _, err := r.List(nil, "/textures"); err == nil {
		t.Fatalf("expected error listing /textures with no adapter")
	}
}

func TestList_TexturesEnumeratesResources(t *testing.T) {
	r := NewRouter()
	a := adapter.NewFake()
	a.Open("demo.rdc")

	nodes, err := r.List(a, "/textures")
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(nodes) == 0 {
		t.Fatalf("expected at least one texture node")
	}
	if nodes[0].Kind != KindBinary || nodes[0].HandlerPath == "" {
		t.Fatalf("node = %+v", nodes[0])
	}
}

func TestResolve_UnknownRootRefused(t *testing.T) {
	r := NewRouter()
	a := adapter.NewFake()
	a.Open("demo.rdc")

	_, _, err := r.Resolve(a, "/sounds/1/data")
	if err != ErrUnknownRoot {
		t.Fatalf("err = %v, want ErrUnknownRoot", err)
	}
}

func TestResolve_BufferData(t *testing.T) {
	r := NewRouter()
	a := adapter.NewFake()
	a.Open("demo.rdc")

	data, contentType, err := r.Resolve(a, "/buffers/res:2/data")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if contentType != "application/octet-stream" {
		t.Fatalf("contentType = %q", contentType)
	}
	if len(data) != 4096 {
		t.Fatalf("len(data) = %d", len(data))
	}
}

func TestResolve_TextureImage(t *testing.T) {
	r := NewRouter()
	a := adapter.NewFake()
	a.Open("demo.rdc")

	_, _, err := r.Resolve(a, "/textures/res:1/image.png")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
}

func TestResolve_CachesRepeatedPath(t *testing.T) {
	r := NewRouter()
	a := adapter.NewFake()
	a.Open("demo.rdc")

	data1, _, err := r.Resolve(a, "/buffers/res:2/data")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	data2, _, err := r.Resolve(a, "/buffers/res:2/data")
	if err != nil {
		t.Fatalf("Resolve (cached): %v", err)
	}
	if len(data1) != len(data2) {
		t.Fatalf("cached result length mismatch: %d vs %d", len(data1), len(data2))
	}
}

func TestSafeJoin_RejectsTraversal(t *testing.T) {
	root := t.TempDir()
	// SecureJoin clamps "../" components rather than erroring; assert the
	// result never leaves root.
	joined, err := SafeJoin(root, "../../etc/passwd")
	if err != nil {
		t.Fatalf("SafeJoin: %v", err)
	}
	if len(joined) < len(root) || joined[:len(root)] != root {
		t.Fatalf("joined path %q escaped root %q", joined, root)
	}
}
