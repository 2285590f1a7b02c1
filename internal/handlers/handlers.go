// Package handlers implements the daemon's method dispatch table: one
// function per JSON-RPC method, each taking the decoded params and the
// daemon's mutable state and returning a result payload plus whether the
// daemon should keep running afterward.
package handlers

import (
	"fmt"

	"github.com/bananasjim/rdc/internal/adapter"
	"github.com/bananasjim/rdc/internal/protocol"
)

// State is the daemon's mutable state, one instance per Server shared by
// every connection and threaded through every handler call.
type State struct {
	Adapter     adapter.Adapter
	CapturePath string
	Token       string

	// BinaryTail, when non-nil, is appended after the JSON line as a raw
	// byte tail; its length is reported via the "_binary_size" field the
	// daemon server sets on the response before sending.
	BinaryTail []byte
}

// Result is what a handler produces: either a JSON-able response body or
// a JSON-RPC error (§7), plus whether the daemon's accept loop should
// keep serving requests afterward (false only for shutdown).
type Result struct {
	Response    map[string]interface{}
	Error       *protocol.Error
	KeepRunning bool
}

// Func is the uniform handler signature every method in the registry
// implements.
type Func func(id int, params map[string]interface{}, state *State) Result

// Registry maps method names to their handler.
type Registry map[string]Func

// NewRegistry builds the full method table (§4.2/§4.5).
func NewRegistry() Registry {
	r := Registry{
		"ping":                     handlePing,
		"status":                   handleStatus,
		"shutdown":                 handleShutdown,
		"goto":                     handleGoto,
		"count":                    handleCount,
		"shader_map":               handleShaderMap,
		"capture_thumbnail":        handleCaptureThumbnail,
		"capture_gpus":             handleCaptureGPUs,
		"capture_sections":         handleCaptureSections,
		"capture_section_content":  handleCaptureSectionContent,
		"pixel_history":            handlePixelHistory,
		"tex_stats":                handleTexStats,
		"search":                   handleSearch,
		"vfs_ls":                   handleVFSLs,
		"script":                   handleScript,
		"render_target":            handleRenderTarget,
		"buffer_data":              handleBufferData,
		"file_read":                handleFileRead,
	}
	return r
}

// Ok builds a successful keep-running result.
func Ok(body map[string]interface{}) Result {
	return Result{Response: body, KeepRunning: true}
}

// Err builds a JSON-RPC error result (§7 "Internal handler failure",
// code -32000) for an unhandled failure inside a handler — an adapter
// call that returned an error, or state that makes the request
// impossible to satisfy. Request-level errors are not fatal to the
// connection: the daemon keeps running afterward.
func Err(format string, args ...interface{}) Result {
	return ErrCode(protocol.CodeInternal, format, args...)
}

// InvalidParams builds a JSON-RPC error result for a malformed or
// out-of-range parameter (§7, code -32602).
func InvalidParams(format string, args ...interface{}) Result {
	return ErrCode(protocol.CodeInvalidParams, format, args...)
}

// ErrCode builds a JSON-RPC error result carrying an explicit code.
func ErrCode(code int, format string, args ...interface{}) Result {
	return Result{
		Error:       &protocol.Error{Code: code, Message: fmt.Sprintf(format, args...)},
		KeepRunning: true,
	}
}

// RequirePipe validates the eid a handler is about to operate on and, if
// one was explicitly given, repositions the adapter to it (SetFrameEvent
// with force=false, §4.5) before returning — reimplementing the source's
// require_pipe exception-for-early-return idiom as an explicit ok flag
// instead: callers check ok and return errResult verbatim on failure.
func RequirePipe(params map[string]interface{}, state *State) (eid int, errResult Result, ok bool) {
	if state.Adapter == nil {
		return 0, Err("no capture is open"), false
	}

	raw, present := params["eid"]
	if !present {
		return state.Adapter.CurrentEID(), Result{}, true
	}

	f, isNum := raw.(float64)
	if !isNum {
		return 0, InvalidParams("eid must be a number"), false
	}
	eid = int(f)

	if eid < 0 || eid > state.Adapter.MaxEID() {
		return 0, InvalidParams("eid %d out of range [0, %d]", eid, state.Adapter.MaxEID()), false
	}

	if err := state.Adapter.SetFrameEvent(eid, false); err != nil {
		return 0, Err("%s", err.Error()), false
	}

	return eid, Result{}, true
}

func paramString(params map[string]interface{}, key string) (string, bool) {
	v, ok := params[key]
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	return s, ok
}

func paramInt(params map[string]interface{}, key string) (int, bool) {
	v, ok := params[key]
	if !ok {
		return 0, false
	}
	f, ok := v.(float64)
	if !ok {
		return 0, false
	}
	return int(f), true
}
