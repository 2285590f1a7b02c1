package script

import (
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
)

func writeShellScript(t *testing.T, body string) string {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("script dispatch tests assume a POSIX shell")
	}
	dir := t.TempDir()
	path := filepath.Join(dir, "script.sh")
	if err := os.WriteFile(path, []byte("#!/bin/sh\n"+body), 0755); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestRun_EnvVarsPassed(t *testing.T) {
	path := writeShellScript(t, `echo "$RDC_CAPTURE:$RDC_EID:$RDC_ARG_FOO"`)
	res, err := Run(Request{Path: path, CapturePath: "demo.rdc", EID: 7, Args: map[string]string{"foo": "bar"}})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	want := "demo.rdc:7:bar"
	if res.Stdout != want {
		t.Fatalf("stdout = %q, want %q", res.Stdout, want)
	}
}

func TestRun_ParsesResultLine(t *testing.T) {
	path := writeShellScript(t, `echo "hello"
echo 'RDC_RESULT={"ok":true,"n":3}'`)
	res, err := Run(Request{Path: path})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if res.Stdout != "hello" {
		t.Fatalf("stdout = %q, want just the non-result line", res.Stdout)
	}
	m, ok := res.ReturnValue.(map[string]interface{})
	if !ok || m["n"] != float64(3) {
		t.Fatalf("return_value = %#v", res.ReturnValue)
	}
}

// A script that starts but exits non-zero is not a Run error (§4.9): the
// daemon must report a normal RPC result with stderr populated and
// return_value nil, never a handler failure, so one misbehaving script
// can't be mistaken for a daemon malfunction.
func TestRun_NonZeroExitPopulatesStderrNotError(t *testing.T) {
	path := writeShellScript(t, `echo "boom" 1>&2
exit 1`)
	res, err := Run(Request{Path: path})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if res.ReturnValue != nil {
		t.Fatalf("return_value = %#v, want nil", res.ReturnValue)
	}
	if !strings.Contains(res.Stderr, "boom") {
		t.Fatalf("stderr = %q, want it to contain %q", res.Stderr, "boom")
	}
	if !strings.Contains(res.Stderr, "exit status 1") {
		t.Fatalf("stderr = %q, want it to mention the exit status", res.Stderr)
	}
}
