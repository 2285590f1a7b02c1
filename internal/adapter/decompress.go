package adapter

import (
	"io"
	"os"
	"strings"

	gzip "github.com/klauspost/compress/gzip"
)

// MaybeDecompress transparently unpacks a gzip-compressed capture file
// (path ending in ".gz") into a temporary file and returns the path to
// open instead, plus a cleanup func that removes the temporary file. For
// any other path it returns path unchanged and a no-op cleanup.
//
// Capture files can run into the hundreds of megabytes; klauspost's
// gzip reader decodes several times faster than compress/gzip on data
// this size, the same tradeoff that motivates its use for unpacking
// large layer blobs elsewhere in the pack.
func MaybeDecompress(path string) (string, func(), error) {
	noop := func() {}
	if !strings.HasSuffix(path, ".gz") {
		return path, noop, nil
	}

	src, err := os.Open(path)
	if err != nil {
		return "", noop, err
	}
	defer src.Close()

	gr, err := gzip.NewReader(src)
	if err != nil {
		return "", noop, err
	}
	defer gr.Close()

	dst, err := os.CreateTemp("", "rdc-capture-*.rdc")
	if err != nil {
		return "", noop, err
	}
	if _, err := io.Copy(dst, gr); err != nil {
		dst.Close()
		os.Remove(dst.Name())
		return "", noop, err
	}
	if err := dst.Close(); err != nil {
		os.Remove(dst.Name())
		return "", noop, err
	}

	tmpPath := dst.Name()
	cleanup := func() { os.Remove(tmpPath) }
	return tmpPath, cleanup, nil
}
