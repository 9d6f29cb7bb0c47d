package scene

import (
	"encoding/json"
	"fmt"
)

// Export serialises the scene for transfer or storage.
func (s *Scene) Export() ([]byte, error) {
	data, err := json.Marshal(s)
	if err != nil {
		return nil, fmt.Errorf("export scene: %w", err)
	}
	return data, nil
}

// ImportScene decodes a serialised scene and rebinds it to the given
// allocator. Local ids are re-minted so the imported objects cannot collide
// with ids the allocator has already handed out.
func ImportScene(data []byte, alloc *Allocator) (*Scene, error) {
	var s Scene
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("import scene: %w", err)
	}
	if s.Layers == nil {
		s.Layers = make([]*Layer, 0)
	}
	if s.RemovedLayers == nil {
		s.RemovedLayers = make([]*Layer, 0)
	}
	s.RefreshLocalIDs(alloc)
	s.SortLayers()
	return &s, nil
}
