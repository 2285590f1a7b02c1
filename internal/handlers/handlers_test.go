package handlers

import (
	"testing"

	"github.com/bananasjim/rdc/internal/adapter"
	"github.com/bananasjim/rdc/internal/protocol"
)

func openState(t *testing.T) *State {
	t.Helper()
	a := adapter.NewFake()
	if err := a.Open("demo.rdc"); err != nil {
		t.Fatal(err)
	}
	return &State{Adapter: a, CapturePath: "demo.rdc"}
}

func TestPing_NoCaptureRequired(t *testing.T) {
	r := NewRegistry()
	res := r["ping"](1, nil, &State{})
	if res.Response["pong"] != true {
		t.Fatalf("pong response = %v", res.Response)
	}
	if !res.KeepRunning {
		t.Fatalf("ping must keep the daemon running")
	}
}

func TestShutdown_StopsLoop(t *testing.T) {
	r := NewRegistry()
	res := r["shutdown"](1, nil, &State{})
	if res.KeepRunning {
		t.Fatalf("shutdown must stop the daemon loop")
	}
}

func TestGoto_Valid(t *testing.T) {
	state := openState(t)
	r := NewRegistry()
	res := r["goto"](1, map[string]interface{}{"eid": float64(50)}, state)
	if res.Error != nil {
		t.Fatalf("unexpected error: %v", res.Error)
	}
	if state.Adapter.CurrentEID() != 50 {
		t.Fatalf("CurrentEID = %d", state.Adapter.CurrentEID())
	}
}

func TestGoto_OutOfRange(t *testing.T) {
	state := openState(t)
	r := NewRegistry()
	res := r["goto"](1, map[string]interface{}{"eid": float64(99999)}, state)
	if res.Error == nil {
		t.Fatalf("expected error response for out-of-range eid, got %v", res.Response)
	}
	if res.Error.Code != protocol.CodeInvalidParams {
		t.Fatalf("code = %d, want %d", res.Error.Code, protocol.CodeInvalidParams)
	}
}

func TestRequirePipe_NoCaptureOpen(t *testing.T) {
	_, errResult, ok := RequirePipe(nil, &State{})
	if ok {
		t.Fatalf("expected not ok with no capture open")
	}
	if errResult.Error == nil {
		t.Fatalf("expected error response, got %v", errResult.Response)
	}
}

func TestRequirePipe_DefaultsToCurrentEID(t *testing.T) {
	state := openState(t)
	state.Adapter.SetFrameEvent(30, false)
	eid, _, ok := RequirePipe(map[string]interface{}{}, state)
	if !ok {
		t.Fatalf("expected ok")
	}
	if eid != 30 {
		t.Fatalf("eid = %d, want 30 (current)", eid)
	}
}

func TestRequirePipe_RepositionsAdapterOnExplicitEID(t *testing.T) {
	state := openState(t)
	state.Adapter.SetFrameEvent(0, false)
	eid, _, ok := RequirePipe(map[string]interface{}{"eid": float64(42)}, state)
	if !ok {
		t.Fatalf("expected ok")
	}
	if eid != 42 {
		t.Fatalf("eid = %d, want 42", eid)
	}
	if state.Adapter.CurrentEID() != 42 {
		t.Fatalf("adapter was not repositioned: CurrentEID = %d, want 42", state.Adapter.CurrentEID())
	}
}

func TestCount_Draws(t *testing.T) {
	state := openState(t)
	r := NewRegistry()
	res := r["count"](1, map[string]interface{}{"what": "draws"}, state)
	if res.Error != nil {
		t.Fatalf("unexpected error: %v", res.Error)
	}
	if res.Response["count"].(int) <= 0 {
		t.Fatalf("count = %v", res.Response["count"])
	}
}

func TestBufferData_UnknownResource(t *testing.T) {
	state := openState(t)
	r := NewRegistry()
	res := r["buffer_data"](1, map[string]interface{}{"resource_id": "nope"}, state)
	if res.Error == nil {
		t.Fatalf("expected error for unknown resource")
	}
}

func TestBufferData_BinarySizeMatchesTail(t *testing.T) {
	state := openState(t)
	r := NewRegistry()
	res := r["buffer_data"](1, map[string]interface{}{"resource_id": "res:2"}, state)
	size, ok := res.Response["_binary_size"].(int)
	if !ok {
		t.Fatalf("_binary_size missing or wrong type: %v", res.Response)
	}
	if size != len(state.BinaryTail) {
		t.Fatalf("_binary_size = %d, len(tail) = %d", size, len(state.BinaryTail))
	}
}

func TestVFSLs_Root(t *testing.T) {
	r := NewRegistry()
	res := r["vfs_ls"](1, map[string]interface{}{"path": "/"}, &State{})
	entries, ok := res.Response["entries"].([]map[string]interface{})
	if !ok || len(entries) != 3 {
		t.Fatalf("entries = %v", res.Response["entries"])
	}
}
