package demo

import (
	"github.com/Faultbox/midgard-shadows/internal/demo/world"
	"github.com/Faultbox/midgard-shadows/internal/engine/renderer"
)

// RenderShadows draws the casters into every GL shadow target: the three
// light maps, the cascades, then the moments and their blur.
func RenderShadows(r *renderer.Renderer, s *world.Shadows, casters []world.Caster) (renderer.Stats, error) {
	models := world.Models(casters)
	r.Begin()

	for _, m := range s.Maps() {
		if err := r.RenderShadowMap(m, models); err != nil {
			return renderer.Stats{}, err
		}
	}
	if err := r.RenderCascades(s.CSM, models); err != nil {
		return renderer.Stats{}, err
	}

	vsmView := s.Directional.Camera().ViewProjectionMatrix()
	if err := r.RenderMoments(s.VSM, vsmView, models); err != nil {
		return renderer.Stats{}, err
	}
	if err := r.BlurMoments(s.VSM); err != nil {
		return renderer.Stats{}, err
	}
	return r.End(), nil
}
