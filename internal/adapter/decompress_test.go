package adapter

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	gzip "github.com/klauspost/compress/gzip"
)

func TestMaybeDecompress_PlainPathUnchanged(t *testing.T) {
	path, cleanup, err := MaybeDecompress("demo.rdc")
	defer cleanup()
	if err != nil {
		t.Fatalf("MaybeDecompress: %v", err)
	}
	if path != "demo.rdc" {
		t.Fatalf("path = %q, want unchanged", path)
	}
}

func TestMaybeDecompress_GzipExpandsContent(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "demo.rdc.gz")

	var buf bytes.Buffer
	gw := gzip.NewWriter(&buf)
	want := []byte("fake capture bytes")
	if _, err := gw.Write(want); err != nil {
		t.Fatal(err)
	}
	if err := gw.Close(); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(src, buf.Bytes(), 0600); err != nil {
		t.Fatal(err)
	}

	path, cleanup, err := MaybeDecompress(src)
	defer cleanup()
	if err != nil {
		t.Fatalf("MaybeDecompress: %v", err)
	}
	if path == src {
		t.Fatalf("expected a distinct temp path")
	}
	got, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if !bytes.Equal(got, want) {
		t.Fatalf("got %q, want %q", got, want)
	}
	cleanup()
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Fatalf("expected temp file removed after cleanup")
	}
}
