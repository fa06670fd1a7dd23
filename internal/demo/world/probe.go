package world

import (
	"fmt"

	"github.com/Faultbox/midgard-shadows/internal/engine/rendertarget"
	"github.com/Faultbox/midgard-shadows/internal/engine/shadow"
	"github.com/Faultbox/midgard-shadows/pkg/math"
)

// pcfTaps is the Poisson table used by Probe.
const pcfTaps = 16

// Sample is the shadowing of one world point.
type Sample struct {
	Cascade int     // Cascade covering the point's view depth
	Blend   float32 // Cross-fade into the next cascade

	// Lit fractions in [0, 1], 1 meaning fully lit.
	Directional float32
	Cascaded    float32
	Variance    float32
}

// RenderHeadless fills every memory render target the way the GPU depth
// passes would: the per-light maps, the cascades and the variance moments,
// which are then blurred. Update must have run this frame.
func (s *Shadows) RenderHeadless(casters []Caster) error {
	for _, m := range s.Maps() {
		cams, targets := m.Cameras(), m.RenderTargets()
		if len(cams) != len(targets) {
			return fmt.Errorf("shadow map in state %s has %d targets for %d cameras", m.State(), len(targets), len(cams))
		}
		for i, cam := range cams {
			if err := fillDepth(targets[i], cam.ViewProjectionMatrix(), casters); err != nil {
				return err
			}
		}
	}

	for i, b := range s.CSM.Bindings() {
		if err := fillDepth(b.Target, b.ViewProjection, casters); err != nil {
			return fmt.Errorf("cascade %d: %w", i, err)
		}
	}

	opts := s.VSM.Options()
	depths := DepthImage(s.Directional.Camera().ViewProjectionMatrix(), opts.Width, opts.Height, casters)
	if err := s.VSM.WriteDepth(depths); err != nil {
		return err
	}
	return s.VSM.Blur()
}

func fillDepth(rt rendertarget.RenderTarget, viewProj math.Mat4, casters []Caster) error {
	m, ok := rt.(*rendertarget.Memory)
	if !ok || m.Disposed() {
		return fmt.Errorf("%w: %T is not a live memory target", shadow.ErrUnsupportedTarget, rt)
	}
	w, h := m.Size()
	copy(m.Texels(), DepthImage(viewProj, w, h, casters))
	return nil
}

// CascadeAt returns the cascade covering a world point seen from the view
// camera and the blend factor toward the next cascade.
func (s *Shadows) CascadeAt(p math.Vec3) (int, float32) {
	viewZ := s.world.View.ViewMatrix().TransformVec3(p).Z
	return s.CSM.GetCascadeIndex(viewZ), s.CSM.GetCascadeBlendFactor(viewZ)
}

// Probe samples the headless shadow maps at world point p. It fails until
// Update has allocated the targets.
func (s *Shadows) Probe(p math.Vec3) (Sample, error) {
	targets := s.Directional.RenderTargets()
	if len(targets) == 0 {
		return Sample{}, fmt.Errorf("%w: directional shadow map is %s", shadow.ErrInvalidArgument, s.Directional.State())
	}

	var out Sample
	out.Cascade, out.Blend = s.CascadeAt(p)

	opts := s.Directional.Settings()
	lit, err := pcf(targets[0], s.Directional.Matrix(), p, opts.Bias, opts.Radius)
	if err != nil {
		return Sample{}, err
	}
	out.Directional = lit

	cascades := s.CSM.Cascades()
	if out.Cascade < len(cascades) {
		c := cascades[out.Cascade]
		cm := s.CSM.Options()
		texMatrix := math.Mat4(s.CSM.MatrixUniforms()[16*out.Cascade : 16*out.Cascade+16])
		if out.Cascaded, err = pcf(c.Target, texMatrix, p, cm.Bias, opts.Radius); err != nil {
			return Sample{}, err
		}
	}

	uvz := s.Directional.Matrix().TransformVec3(p)
	vo := s.VSM.Options()
	x, y := int(uvz.X*float32(vo.Width)), int(uvz.Y*float32(vo.Height))
	if out.Variance, err = s.VSM.ShadowFactor(x, y, uvz.Z); err != nil {
		return Sample{}, err
	}
	return out, nil
}

// pcf returns the fraction of Poisson taps around p's texel that see p.
func pcf(rt rendertarget.RenderTarget, texMatrix math.Mat4, p math.Vec3, bias, radius float32) (float32, error) {
	m, ok := rt.(*rendertarget.Memory)
	if !ok || m.Disposed() {
		return 0, fmt.Errorf("%w: %T is not a live memory target", shadow.ErrUnsupportedTarget, rt)
	}
	w, h := m.Size()
	offsets, err := shadow.PCFOffsets(pcfTaps, radius, w)
	if err != nil {
		return 0, err
	}

	uvz := texMatrix.TransformVec3(p)
	var lit int
	for _, o := range offsets {
		x := int((uvz.X + o.X) * float32(w))
		y := int((uvz.Y + o.Y) * float32(h))
		if uvz.Z-bias <= m.At(x, y, 0) {
			lit++
		}
	}
	return float32(lit) / float32(len(offsets)), nil
}
