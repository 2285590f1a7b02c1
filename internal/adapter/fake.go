package adapter

import "fmt"

// NewFake returns an in-memory Adapter for use in tests and in the
// handler/daemon test suites, since the real native replay library is
// out of scope for this module. It behaves deterministically: a capture
// opens successfully unless its path is "", and exposes a small fixed
// scene.
func NewFake() Adapter {
	return &fakeAdapter{
		maxEID: 100,
		resources: []Resource{
			{ID: "res:1", Name: "ColorTarget", Type: "Texture"},
			{ID: "res:2", Name: "VertexBuffer", Type: "Buffer"},
		},
		textures: []Texture{
			{ID: "res:1", Width: 1920, Height: 1080, Format: "R8G8B8A8_UNORM"},
		},
		buffers: []Buffer{
			{ID: "res:2", Size: 4096},
		},
	}
}

type fakeAdapter struct {
	opened     bool
	path       string
	currentEID int
	maxEID     int
	proxyHint  string

	resources []Resource
	textures  []Texture
	buffers   []Buffer
}

func (f *fakeAdapter) Open(path string) error {
	if path == "" {
		return fmt.Errorf("adapter: empty capture path")
	}
	f.opened = true
	f.path = path
	return nil
}

func (f *fakeAdapter) Close() error {
	f.opened = false
	return nil
}

// SetFrameEvent repositions to eid. force has no effect on the fake
// adapter: there is no replay cost to amortize by skipping a reposition
// onto the already-current event.
func (f *fakeAdapter) SetFrameEvent(eid int, force bool) error {
	if eid < 0 || eid > f.maxEID {
		return fmt.Errorf("adapter: eid %d out of range [0, %d]", eid, f.maxEID)
	}
	f.currentEID = eid
	return nil
}

func (f *fakeAdapter) CurrentEID() int { return f.currentEID }
func (f *fakeAdapter) MaxEID() int     { return f.maxEID }

func (f *fakeAdapter) RootActions() ([]int, error) {
	actions := make([]int, 0, f.maxEID/10+1)
	for eid := 0; eid <= f.maxEID; eid += 10 {
		actions = append(actions, eid)
	}
	return actions, nil
}

func (f *fakeAdapter) PipelineState(eid int) (PipelineState, error) {
	if eid < 0 || eid > f.maxEID {
		return PipelineState{}, fmt.Errorf("adapter: eid %d out of range [0, %d]", eid, f.maxEID)
	}
	return PipelineState{
		API:       "Vulkan",
		Shaders:   map[string]string{"vertex": "shader:vs1", "pixel": "shader:ps1"},
		Resources: []string{"res:1", "res:2"},
	}, nil
}

func (f *fakeAdapter) Resources() ([]Resource, error) { return f.resources, nil }
func (f *fakeAdapter) Textures() ([]Texture, error)   { return f.textures, nil }
func (f *fakeAdapter) Buffers() ([]Buffer, error)     { return f.buffers, nil }

func (f *fakeAdapter) ReadBytes(resourceID string) ([]byte, error) {
	for _, b := range f.buffers {
		if b.ID == resourceID {
			return make([]byte, b.Size), nil
		}
	}
	for _, t := range f.textures {
		if t.ID == resourceID {
			return make([]byte, t.Width*t.Height*4), nil
		}
	}
	return nil, fmt.Errorf("adapter: unknown resource %q", resourceID)
}

func (f *fakeAdapter) Structured() (map[string]interface{}, error) {
	return map[string]interface{}{
		"capture": f.path,
		"max_eid": f.maxEID,
	}, nil
}

func (f *fakeAdapter) SetProxyHint(hostPort string) {
	f.proxyHint = hostPort
}
