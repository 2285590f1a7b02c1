package handlers

import "github.com/bananasjim/rdc/internal/vfs"

// router is one package-level vfs.Router shared by every handler call,
// so its resolve cache persists across requests.
var router = vfs.NewRouter()

func handleVFSLs(id int, params map[string]interface{}, state *State) Result {
	path, _ := paramString(params, "path")
	nodes, err := router.List(state.Adapter, path)
	if err != nil {
		return Err("%s", err.Error())
	}
	entries := make([]map[string]interface{}, 0, len(nodes))
	for _, n := range nodes {
		entry := map[string]interface{}{"name": n.Name, "is_dir": n.IsDir, "kind": n.Kind}
		if n.HandlerPath != "" {
			entry["handler_path"] = n.HandlerPath
		}
		entries = append(entries, entry)
	}
	return Ok(map[string]interface{}{"entries": entries})
}

func resolveVFSBinary(id int, params map[string]interface{}, state *State, pathKey string) Result {
	if state.Adapter == nil {
		return Err("no capture is open")
	}
	path, ok := paramString(params, pathKey)
	if !ok {
		return InvalidParams("%s is required", pathKey)
	}
	data, contentType, err := router.Resolve(state.Adapter, path)
	if err != nil {
		return Err("%s", err.Error())
	}
	state.BinaryTail = data
	return Ok(map[string]interface{}{
		"path": path, "content_type": contentType, "_binary_size": len(data),
	})
}
