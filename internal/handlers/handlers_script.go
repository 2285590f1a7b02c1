package handlers

import "github.com/bananasjim/rdc/internal/script"

func handleScript(id int, params map[string]interface{}, state *State) Result {
	if state.Adapter == nil {
		return Err("no capture is open")
	}
	path, ok := paramString(params, "path")
	if !ok {
		return InvalidParams("script requires path")
	}

	args := map[string]string{}
	if raw, present := params["args"]; present {
		m, isMap := raw.(map[string]interface{})
		if !isMap {
			return InvalidParams("args must be an object of string values")
		}
		for k, v := range m {
			s, isStr := v.(string)
			if !isStr {
				return InvalidParams("args[%q] must be a string", k)
			}
			args[k] = s
		}
	}

	result, err := script.Run(script.Request{
		Path:        path,
		Args:        args,
		CapturePath: state.CapturePath,
		EID:         state.Adapter.CurrentEID(),
	})
	if err != nil {
		return Err("%s", err.Error())
	}

	return Ok(map[string]interface{}{
		"stdout":       result.Stdout,
		"stderr":       result.Stderr,
		"elapsed_ms":   result.ElapsedMS,
		"return_value": result.ReturnValue,
	})
}
