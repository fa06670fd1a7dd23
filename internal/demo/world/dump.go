package world

import (
	"fmt"

	"github.com/Faultbox/midgard-shadows/internal/engine/debug"
	"github.com/Faultbox/midgard-shadows/internal/engine/rendertarget"
	"github.com/Faultbox/midgard-shadows/internal/engine/shadow"
)

// Dump writes every shadow map to PNG files and returns their names. GL
// targets are read back first.
func (s *Shadows) Dump(d *debug.Dumper) ([]string, error) {
	type named struct {
		name string
		rt   rendertarget.RenderTarget
	}
	var targets []named
	for i, rt := range s.Directional.RenderTargets() {
		targets = append(targets, named{fmt.Sprintf("directional%d", i), rt})
	}
	for i, rt := range s.Point.RenderTargets() {
		targets = append(targets, named{fmt.Sprintf("point%d", i), rt})
	}
	for i, rt := range s.Spot.RenderTargets() {
		targets = append(targets, named{fmt.Sprintf("spot%d", i), rt})
	}
	for i, c := range s.CSM.Cascades() {
		targets = append(targets, named{fmt.Sprintf("cascade%d", i), c.Target})
	}
	if s.VSM.Blurred() != nil {
		targets = append(targets, named{"vsm", s.VSM.Blurred()})
	}

	files := make([]string, 0, len(targets))
	for _, t := range targets {
		m, err := rendertarget.Snapshot(t.rt)
		if err != nil {
			return files, fmt.Errorf("%w: %w", shadow.ErrUnsupportedTarget, err)
		}
		name, err := d.Save(t.name, m)
		if err != nil {
			return files, fmt.Errorf("dumping %s: %w", t.name, err)
		}
		files = append(files, name)
	}
	return files, nil
}
