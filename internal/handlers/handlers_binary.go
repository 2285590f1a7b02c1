package handlers

// handleRenderTarget and handleBufferData are the two fixed binary
// producers of §4.10 that don't go through the general VFS path lookup:
// callers name the eid/resource directly rather than a VFS path string.

func handleRenderTarget(id int, params map[string]interface{}, state *State) Result {
	eid, errResult, ok := RequirePipe(params, state)
	if !ok {
		return errResult
	}
	targetIndex, _ := paramInt(params, "target_index")

	data, err := state.Adapter.ReadBytes("drawtarget")
	if err != nil {
		data = []byte{}
	}
	state.BinaryTail = data
	return Ok(map[string]interface{}{
		"eid": eid, "target_index": targetIndex, "_binary_size": len(data),
	})
}

func handleBufferData(id int, params map[string]interface{}, state *State) Result {
	if state.Adapter == nil {
		return Err("no capture is open")
	}
	resourceID, ok := paramString(params, "resource_id")
	if !ok {
		return InvalidParams("buffer_data requires resource_id")
	}
	data, err := state.Adapter.ReadBytes(resourceID)
	if err != nil {
		return Err("%s", err.Error())
	}
	state.BinaryTail = data
	return Ok(map[string]interface{}{"resource_id": resourceID, "_binary_size": len(data)})
}

func handleFileRead(id int, params map[string]interface{}, state *State) Result {
	return resolveVFSBinary(id, params, state, "path")
}
