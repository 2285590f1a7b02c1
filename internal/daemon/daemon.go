// Package daemon implements the single-threaded, sequential request loop
// that owns a replay-library handle for one capture. Exactly one request
// is serviced at a time: the native replay library behind adapter.Adapter
// is non-reentrant and CPU-bound, so this server intentionally does not
// spin up a goroutine per request.
package daemon

import (
	"bufio"
	"crypto/subtle"
	"encoding/json"
	"fmt"
	"net"
	"os"

	charmlog "github.com/charmbracelet/log"

	"github.com/bananasjim/rdc/internal/adapter"
	"github.com/bananasjim/rdc/internal/handlers"
	"github.com/bananasjim/rdc/internal/protocol"
	"github.com/bananasjim/rdc/internal/transport"
)

// Server owns the listener, the authentication token, and the handler
// registry it dispatches every request through.
type Server struct {
	Listener net.Listener
	Token    string
	Registry handlers.Registry
	State    *handlers.State
	Logger   *charmlog.Logger

	// ProxyHint, when set, is forwarded to the adapter for remote-GPU
	// routing (§6.2 diff/proxy modes).
	ProxyHint string
}

// New builds a Server bound to listener, wiring state around a. The
// caller owns opening/closing a and the listener.
func New(listener net.Listener, token string, a adapter.Adapter, capturePath string) *Server {
	return &Server{
		Listener: listener,
		Token:    token,
		Registry: handlers.NewRegistry(),
		State:    &handlers.State{Adapter: a, CapturePath: capturePath},
		Logger:   charmlog.NewWithOptions(os.Stderr, charmlog.Options{ReportTimestamp: true}),
	}
}

// Serve accepts connections one at a time and runs each to completion
// before accepting the next: the adapter is non-reentrant, so there is
// no worker pool and no per-connection goroutine.
func (s *Server) Serve() error {
	if s.ProxyHint != "" && s.State.Adapter != nil {
		s.State.Adapter.SetProxyHint(s.ProxyHint)
	}
	s.Logger.Info("accept loop starting", "addr", s.Listener.Addr().String())
	for {
		conn, err := s.Listener.Accept()
		if err != nil {
			return err
		}
		keepRunning := s.handleConnection(conn)
		conn.Close()
		if !keepRunning {
			s.Logger.Info("shutdown requested, accept loop exiting")
			return nil
		}
	}
}

// handleConnection services the single request-response exchange on conn
// (§4.4: "each connection serves one request-response and is closed"),
// returning whether the server should keep accepting further connections.
func (s *Server) handleConnection(conn net.Conn) bool {
	r := transport.NewReader(conn)
	line, err := transport.ReadLine(r, 0)
	if err != nil {
		s.Logger.Warn("read error", "err", err)
		return true
	}
	if line == "" {
		return true
	}
	return s.handleLine(conn, r, line)
}

func (s *Server) handleLine(conn net.Conn, r *bufio.Reader, line string) bool {
	var req protocol.Request
	if err := json.Unmarshal([]byte(line), &req); err != nil {
		s.writeError(conn, 0, protocol.CodeParseError, "invalid JSON-RPC request")
		return true
	}

	var params map[string]interface{}
	if len(req.Params) > 0 {
		if err := json.Unmarshal(req.Params, &params); err != nil {
			s.writeError(conn, req.ID, protocol.CodeInvalidParams, "invalid params")
			return true
		}
	}

	if req.Method != "ping" {
		token, _ := params["_token"].(string)
		if subtle.ConstantTimeCompare([]byte(token), []byte(s.Token)) != 1 {
			s.writeError(conn, req.ID, protocol.CodeUnauthorized, "unauthorized")
			return true
		}
	}

	fn, ok := s.Registry[req.Method]
	if !ok {
		s.writeError(conn, req.ID, protocol.CodeMethodNotFound, fmt.Sprintf("unknown method %q", req.Method))
		return true
	}

	s.Logger.Debug("dispatch", "method", req.Method, "id", req.ID, "params", redactTokens(params))

	s.State.BinaryTail = nil
	result := func() (res handlers.Result) {
		defer func() {
			if rec := recover(); rec != nil {
				res = handlers.Err("internal error: %v", rec)
			}
		}()
		return fn(req.ID, params, s.State)
	}()

	s.writeResult(conn, req.ID, result)
	return result.KeepRunning
}

// redactTokens returns a shallow copy of params with any "token"/"_token"
// value replaced, so request parameters can be logged at Debug without
// ever writing a live credential into the log file.
func redactTokens(params map[string]interface{}) map[string]interface{} {
	if params == nil {
		return nil
	}
	out := make(map[string]interface{}, len(params))
	for k, v := range params {
		if k == "token" || k == "_token" {
			out[k] = "***"
			continue
		}
		out[k] = v
	}
	return out
}

func (s *Server) writeResult(conn net.Conn, id int, result handlers.Result) {
	if result.Error != nil {
		s.Logger.Warn("handler error", "id", id, "code", result.Error.Code, "message", result.Error.Message)
		s.writeError(conn, id, result.Error.Code, result.Error.Message)
		return
	}

	body := result.Response
	if body == nil {
		body = map[string]interface{}{}
	}
	if s.State.BinaryTail != nil {
		body["_binary_size"] = len(s.State.BinaryTail)
	}

	resp := protocol.Response{JSONRPC: "2.0", ID: id, Result: body}
	data, err := json.Marshal(resp)
	if err != nil {
		s.Logger.Error("marshal response", "err", err)
		return
	}
	if err := transport.WriteLine(conn, data); err != nil {
		s.Logger.Error("write response", "err", err)
		return
	}
	if len(s.State.BinaryTail) > 0 {
		if err := transport.WriteExact(conn, s.State.BinaryTail); err != nil {
			s.Logger.Error("write binary tail", "err", err)
		}
	}
}

func (s *Server) writeError(conn net.Conn, id int, code int, message string) {
	resp := protocol.Response{JSONRPC: "2.0", ID: id, Error: &protocol.Error{Code: code, Message: message}}
	data, err := json.Marshal(resp)
	if err != nil {
		return
	}
	transport.WriteLine(conn, data)
}
