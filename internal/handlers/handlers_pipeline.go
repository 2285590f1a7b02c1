package handlers

// handleCount answers "how many X are there" across the whole capture.
// what is one of "draws", "textures", "buffers". A "pass" parameter is
// not read, so counts are never scoped to a render pass.
func handleCount(id int, params map[string]interface{}, state *State) Result {
	eid, errResult, ok := RequirePipe(params, state)
	if !ok {
		return errResult
	}

	what, _ := paramString(params, "what")
	switch what {
	case "draws":
		actions, err := state.Adapter.RootActions()
		if err != nil {
			return Err("%s", err.Error())
		}
		return Ok(map[string]interface{}{"count": len(actions), "eid": eid})
	case "textures":
		textures, err := state.Adapter.Textures()
		if err != nil {
			return Err("%s", err.Error())
		}
		return Ok(map[string]interface{}{"count": len(textures)})
	case "buffers":
		buffers, err := state.Adapter.Buffers()
		if err != nil {
			return Err("%s", err.Error())
		}
		return Ok(map[string]interface{}{"count": len(buffers)})
	default:
		return InvalidParams("unknown count target %q", what)
	}
}

func handleShaderMap(id int, params map[string]interface{}, state *State) Result {
	eid, errResult, ok := RequirePipe(params, state)
	if !ok {
		return errResult
	}
	ps, err := state.Adapter.PipelineState(eid)
	if err != nil {
		return Err("%s", err.Error())
	}
	shaders := make(map[string]interface{}, len(ps.Shaders))
	for stage, shaderID := range ps.Shaders {
		shaders[stage] = shaderID
	}
	return Ok(map[string]interface{}{"eid": eid, "shaders": shaders})
}

func handlePixelHistory(id int, params map[string]interface{}, state *State) Result {
	eid, errResult, ok := RequirePipe(params, state)
	if !ok {
		return errResult
	}
	x, xok := paramInt(params, "x")
	y, yok := paramInt(params, "y")
	if !xok || !yok {
		return InvalidParams("pixel_history requires x and y")
	}
	// The fake/native adapter surfaces don't model per-pixel write history
	// directly; this reports the bound resource the draw would write to.
	ps, err := state.Adapter.PipelineState(eid)
	if err != nil {
		return Err("%s", err.Error())
	}
	return Ok(map[string]interface{}{
		"x": x, "y": y, "resources": ps.Resources,
	})
}

func handleTexStats(id int, params map[string]interface{}, state *State) Result {
	if state.Adapter == nil {
		return Err("no capture is open")
	}
	resourceID, ok := paramString(params, "resource_id")
	if !ok {
		return InvalidParams("tex_stats requires resource_id")
	}
	textures, err := state.Adapter.Textures()
	if err != nil {
		return Err("%s", err.Error())
	}
	for _, tex := range textures {
		if tex.ID == resourceID {
			return Ok(map[string]interface{}{
				"id": tex.ID, "width": tex.Width, "height": tex.Height, "format": tex.Format,
			})
		}
	}
	return InvalidParams("unknown texture resource %q", resourceID)
}
