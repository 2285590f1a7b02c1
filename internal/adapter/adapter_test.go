package adapter

import "testing"

func TestParseVersion(t *testing.T) {
	cases := []struct {
		in        string
		wantMajor int
		wantMinor int
		wantOK    bool
	}{
		{"v1.32.0-stable", 1, 32, true},
		{"1.29", 1, 29, true},
		{"no version here", 0, 0, false},
	}
	for _, c := range cases {
		v, ok := ParseVersion(c.in)
		if ok != c.wantOK {
			t.Fatalf("ParseVersion(%q) ok = %v, want %v", c.in, ok, c.wantOK)
		}
		if ok && (v.Major != c.wantMajor || v.Minor != c.wantMinor) {
			t.Fatalf("ParseVersion(%q) = %+v, want {%d %d}", c.in, v, c.wantMajor, c.wantMinor)
		}
	}
}

func TestRootActionsMethodName(t *testing.T) {
	if got := RootActionsMethodName(Version{Major: 1, Minor: 32}); got != "GetRootActions" {
		t.Fatalf("1.32 => %q, want GetRootActions", got)
	}
	if got := RootActionsMethodName(Version{Major: 1, Minor: 40}); got != "GetRootActions" {
		t.Fatalf("1.40 => %q, want GetRootActions", got)
	}
	if got := RootActionsMethodName(Version{Major: 1, Minor: 31}); got != "GetDrawcalls" {
		t.Fatalf("1.31 => %q, want GetDrawcalls", got)
	}
	if got := RootActionsMethodName(Version{Major: 0, Minor: 9}); got != "GetDrawcalls" {
		t.Fatalf("0.9 => %q, want GetDrawcalls", got)
	}
}

func TestNativeAdapter_AlwaysUnavailable(t *testing.T) {
	a := NewNative(Version{Major: 1, Minor: 32})
	if err := a.Open("x.rdc"); err != ErrReplayLibraryUnavailable {
		t.Fatalf("Open err = %v", err)
	}
	if _, err := a.RootActions(); err != ErrReplayLibraryUnavailable {
		t.Fatalf("RootActions err = %v", err)
	}
}

func TestFakeAdapter_OpenAndEIDRange(t *testing.T) {
	a := NewFake()
	if err := a.Open(""); err == nil {
		t.Fatalf("expected error opening empty path")
	}
	if err := a.Open("demo.rdc"); err != nil {
		t.Fatalf("Open: %v", err)
	}

	if err := a.SetFrameEvent(50, false); err != nil {
		t.Fatalf("SetFrameEvent(50): %v", err)
	}
	if a.CurrentEID() != 50 {
		t.Fatalf("CurrentEID = %d", a.CurrentEID())
	}

	if err := a.SetFrameEvent(a.MaxEID()+1, false); err == nil {
		t.Fatalf("expected out-of-range error")
	}
	if err := a.SetFrameEvent(-1, false); err == nil {
		t.Fatalf("expected out-of-range error for negative eid")
	}
}

func TestFakeAdapter_ReadBytesUnknownResource(t *testing.T) {
	a := NewFake()
	if _, err := a.ReadBytes("nonexistent"); err == nil {
		t.Fatalf("expected error for unknown resource")
	}
}

func TestFakeAdapter_ReadBytesKnownResourceSize(t *testing.T) {
	a := NewFake()
	data, err := a.ReadBytes("res:2")
	if err != nil {
		t.Fatalf("ReadBytes: %v", err)
	}
	if len(data) != 4096 {
		t.Fatalf("len = %d, want 4096", len(data))
	}
}
