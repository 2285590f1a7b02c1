package daemon

import (
	"bufio"
	"encoding/json"
	"net"
	"testing"

	"github.com/bananasjim/rdc/internal/adapter"
	"github.com/bananasjim/rdc/internal/protocol"
	"github.com/bananasjim/rdc/internal/transport"
)

func newTestServer(t *testing.T) (*Server, net.Listener) {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	a := adapter.NewFake()
	if err := a.Open("demo.rdc"); err != nil {
		t.Fatal(err)
	}
	s := New(ln, "test-token", a, "demo.rdc")
	return s, ln
}

func roundTrip(t *testing.T, addr string, req protocol.Request) protocol.Response {
	t.Helper()
	conn, err := net.Dial("tcp", addr)
	if err != nil {
		t.Fatal(err)
	}
	defer conn.Close()

	data, _ := json.Marshal(req)
	if err := transport.WriteLine(conn, data); err != nil {
		t.Fatal(err)
	}

	r := bufio.NewReader(conn)
	line, err := transport.ReadLine(r, 0)
	if err != nil {
		t.Fatal(err)
	}
	var resp protocol.Response
	if err := json.Unmarshal([]byte(line), &resp); err != nil {
		t.Fatalf("unmarshal response %q: %v", line, err)
	}
	return resp
}

func TestServe_PingNoToken(t *testing.T) {
	s, ln := newTestServer(t)
	defer ln.Close()
	go s.Serve()

	resp := roundTrip(t, ln.Addr().String(), protocol.PingRequest("wrong-token-does-not-matter", 1))
	if resp.Error != nil {
		t.Fatalf("ping should never require a token, got error: %v", resp.Error)
	}
}

func TestServe_UnauthorizedWrongToken(t *testing.T) {
	s, ln := newTestServer(t)
	defer ln.Close()
	go s.Serve()

	resp := roundTrip(t, ln.Addr().String(), protocol.StatusRequest("wrong", 1))
	if resp.Error == nil || resp.Error.Code != protocol.CodeUnauthorized {
		t.Fatalf("expected unauthorized error, got %+v", resp)
	}
}

func TestServe_AuthorizedStatus(t *testing.T) {
	s, ln := newTestServer(t)
	defer ln.Close()
	go s.Serve()

	resp := roundTrip(t, ln.Addr().String(), protocol.StatusRequest("test-token", 1))
	if resp.Error != nil {
		t.Fatalf("unexpected error: %v", resp.Error)
	}
}

func TestServe_UnknownMethod(t *testing.T) {
	s, ln := newTestServer(t)
	defer ln.Close()
	go s.Serve()

	req := protocol.NewRequest("no_such_method", 1, "test-token", nil)
	resp := roundTrip(t, ln.Addr().String(), req)
	if resp.Error == nil || resp.Error.Code != protocol.CodeMethodNotFound {
		t.Fatalf("expected method-not-found error, got %+v", resp)
	}
}

func TestServe_BinaryTailSizeMatchesActualBytes(t *testing.T) {
	s, ln := newTestServer(t)
	defer ln.Close()
	go s.Serve()

	conn, err := net.Dial("tcp", ln.Addr().String())
	if err != nil {
		t.Fatal(err)
	}
	defer conn.Close()

	req := protocol.BufferDataRequest("test-token", 1, "res:2")
	data, _ := json.Marshal(req)
	transport.WriteLine(conn, data)

	r := bufio.NewReader(conn)
	line, err := transport.ReadLine(r, 0)
	if err != nil {
		t.Fatal(err)
	}
	var resp protocol.Response
	json.Unmarshal([]byte(line), &resp)
	result, ok := resp.Result.(map[string]interface{})
	if !ok {
		t.Fatalf("result = %#v", resp.Result)
	}
	size, ok := result["_binary_size"].(float64)
	if !ok {
		t.Fatalf("_binary_size missing: %v", result)
	}

	tail, err := transport.ReadExact(r, int(size))
	if err != nil {
		t.Fatalf("ReadExact: %v", err)
	}
	if len(tail) != int(size) {
		t.Fatalf("tail length mismatch")
	}
}

func TestServe_ShutdownStopsAcceptLoop(t *testing.T) {
	s, ln := newTestServer(t)
	defer ln.Close()

	done := make(chan error, 1)
	go func() { done <- s.Serve() }()

	resp := roundTrip(t, ln.Addr().String(), protocol.ShutdownRequest("test-token", 1))
	if resp.Error != nil {
		t.Fatalf("unexpected error: %v", resp.Error)
	}

	if err := <-done; err != nil {
		t.Fatalf("Serve returned error after shutdown: %v", err)
	}
}
