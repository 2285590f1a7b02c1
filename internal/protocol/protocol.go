// Package protocol defines the JSON-RPC 2.0 request/response shapes used
// on the wire between rdc and rdcd, plus canonical request factories for
// the method catalog in §4.2.
package protocol

import "encoding/json"

// Standard JSON-RPC error codes (§7).
const (
	CodeParseError     = -32700
	CodeInvalidRequest = -32600
	CodeMethodNotFound = -32601
	CodeInvalidParams  = -32602
	CodeUnauthorized   = -32001
	CodeInternal       = -32000
)

// Request is a JSON-RPC 2.0 request object.
type Request struct {
	JSONRPC string          `json:"jsonrpc"`
	Method  string          `json:"method"`
	ID      int             `json:"id"`
	Params  json.RawMessage `json:"params,omitempty"`
}

// Response is a JSON-RPC 2.0 response object: exactly one of Result/Error
// is set.
type Response struct {
	JSONRPC string      `json:"jsonrpc"`
	ID      int         `json:"id"`
	Result  interface{} `json:"result,omitempty"`
	Error   *Error      `json:"error,omitempty"`
}

// Error is a JSON-RPC 2.0 error object. It also satisfies the Go error
// interface so client code can return it directly.
type Error struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (e *Error) Error() string {
	return e.Message
}

// NewRequest builds a well-formed request, injecting _token into params
// for every method except "ping" (the sole unauthenticated method, §4.2).
func NewRequest(method string, id int, token string, params map[string]interface{}) Request {
	p := withToken(method, token, params)
	raw, _ := json.Marshal(p)
	return Request{JSONRPC: "2.0", Method: method, ID: id, Params: raw}
}

func withToken(method, token string, params map[string]interface{}) map[string]interface{} {
	if params == nil {
		params = map[string]interface{}{}
	}
	if method != "ping" {
		params["_token"] = token
	}
	return params
}

// --- Canonical request factories (§4.2 method catalog) ---

func PingRequest(token string, id int) Request {
	return NewRequest("ping", id, token, nil)
}

func StatusRequest(token string, id int) Request {
	return NewRequest("status", id, token, nil)
}

func ShutdownRequest(token string, id int) Request {
	return NewRequest("shutdown", id, token, nil)
}

func GotoRequest(token string, id, eid int) Request {
	return NewRequest("goto", id, token, map[string]interface{}{"eid": eid})
}

func CountRequest(token string, id int, what string, passName string) Request {
	p := map[string]interface{}{"what": what}
	if passName != "" {
		p["pass"] = passName
	}
	return NewRequest("count", id, token, p)
}

func ShaderMapRequest(token string, id int) Request {
	return NewRequest("shader_map", id, token, nil)
}

func CaptureThumbnailRequest(token string, id, maxSize int) Request {
	return NewRequest("capture_thumbnail", id, token, map[string]interface{}{"maxsize": maxSize})
}

func CaptureGPUsRequest(token string, id int) Request {
	return NewRequest("capture_gpus", id, token, nil)
}

func CaptureSectionsRequest(token string, id int) Request {
	return NewRequest("capture_sections", id, token, nil)
}

func CaptureSectionContentRequest(token string, id int, name string) Request {
	return NewRequest("capture_section_content", id, token, map[string]interface{}{"name": name})
}

func PixelHistoryRequest(token string, id, eid, x, y int) Request {
	return NewRequest("pixel_history", id, token, map[string]interface{}{
		"eid": eid, "x": x, "y": y,
	})
}

func TexStatsRequest(token string, id int, resourceID string) Request {
	return NewRequest("tex_stats", id, token, map[string]interface{}{"resource_id": resourceID})
}

func SearchRequest(token string, id int, query string) Request {
	return NewRequest("search", id, token, map[string]interface{}{"query": query})
}

func VFSLsRequest(token string, id int, path string) Request {
	return NewRequest("vfs_ls", id, token, map[string]interface{}{"path": path})
}

func ScriptRequest(token string, id int, path string, args map[string]string) Request {
	return NewRequest("script", id, token, map[string]interface{}{
		"path": path, "args": args,
	})
}

// --- Binary-producing variants (§4.10) ---

func RenderTargetRequest(token string, id, eid, targetIndex int) Request {
	return NewRequest("render_target", id, token, map[string]interface{}{
		"eid": eid, "target_index": targetIndex,
	})
}

func BufferDataRequest(token string, id int, resourceID string) Request {
	return NewRequest("buffer_data", id, token, map[string]interface{}{"resource_id": resourceID})
}

func FileReadRequest(token string, id int, path string) Request {
	return NewRequest("file_read", id, token, map[string]interface{}{"path": path})
}
