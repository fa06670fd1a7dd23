package world

import (
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/Faultbox/midgard-shadows/internal/config"
	"github.com/Faultbox/midgard-shadows/internal/engine/rendertarget"
	"github.com/Faultbox/midgard-shadows/internal/engine/shadow"
	"github.com/Faultbox/midgard-shadows/internal/logger"
)

// Shadows is every shadow the demo renders: one per light plus cascades and
// a variance map for the sun.
type Shadows struct {
	Directional *shadow.DirectionalShadow
	Point       *shadow.PointShadow
	Spot        *shadow.SpotShadow
	CSM         *shadow.DirectionalLightCSM
	VSM         *shadow.VSMShadowMap

	world   *World
	factory rendertarget.Factory
	cfg     config.ShadowConfig
}

// ShadowOptions converts the shared shadow settings.
func ShadowOptions(cfg config.ShadowConfig) shadow.Options {
	return shadow.Options{
		Resolution: cfg.Resolution,
		Bias:       cfg.Bias,
		NormalBias: cfg.NormalBias,
		Radius:     cfg.Radius,
		Near:       cfg.Near,
		Far:        cfg.Far,
	}
}

// CSMOptions converts the cascade settings.
func CSMOptions(cfg config.ShadowConfig) shadow.CSMOptions {
	c := cfg.CSM
	return shadow.CSMOptions{
		Cascades:      c.Cascades,
		MaxDistance:   c.MaxDistance,
		Lambda:        c.Lambda,
		Resolution:    c.Resolution,
		LightMargin:   c.LightMargin,
		BlendCascades: c.Blend,
		BlendRange:    c.BlendRange,
		Stabilize:     c.Stabilize,
		Bias:          cfg.Bias,
		NormalBias:    cfg.NormalBias,
	}
}

// VSMOptions converts the variance shadow settings. The map shares the
// directional shadow's resolution and camera.
func VSMOptions(cfg config.ShadowConfig) shadow.VSMOptions {
	v := cfg.VSM
	return shadow.VSMOptions{
		Width:                  cfg.Resolution,
		Height:                 cfg.Resolution,
		MinVariance:            v.MinVariance,
		LightBleedingReduction: v.LightBleedingReduction,
		BlurSize:               v.BlurSize,
		BlurSigma:              v.BlurSigma,
	}
}

// NewShadows creates the shadows of w's lights. Render targets come from
// factory and are allocated by Initialize.
func NewShadows(w *World, factory rendertarget.Factory, cfg config.ShadowConfig) (*Shadows, error) {
	opts := ShadowOptions(cfg)
	s := &Shadows{world: w, factory: factory, cfg: cfg}

	var err error
	if s.Directional, err = shadow.NewDirectionalShadow(w.Sun, factory, opts); err != nil {
		return nil, fmt.Errorf("directional shadow: %w", err)
	}
	s.Directional.CameraSize = cfg.Directional.CameraSize
	s.Directional.Distance = cfg.Directional.Distance

	if s.Point, err = shadow.NewPointShadow(w.Lamp, factory, opts); err != nil {
		return nil, fmt.Errorf("point shadow: %w", err)
	}
	if s.Spot, err = shadow.NewSpotShadow(w.Spot, factory, opts); err != nil {
		return nil, fmt.Errorf("spot shadow: %w", err)
	}
	if s.CSM, err = shadow.NewDirectionalLightCSM(w.Sun, w.View, factory, CSMOptions(cfg)); err != nil {
		return nil, fmt.Errorf("cascaded shadow: %w", err)
	}
	if s.VSM, err = shadow.NewVSMShadowMap(factory, VSMOptions(cfg)); err != nil {
		return nil, fmt.Errorf("variance shadow: %w", err)
	}
	return s, nil
}

// Maps returns the per-light shadow maps.
func (s *Shadows) Maps() []shadow.ShadowMap {
	return []shadow.ShadowMap{s.Directional, s.Point, s.Spot}
}

// Initialize allocates every render target that does not exist yet.
func (s *Shadows) Initialize() error {
	for _, m := range s.Maps() {
		if err := m.Initialize(); err != nil {
			return err
		}
	}
	return s.VSM.Initialize()
}

// Update positions every shadow camera and refits the cascades to the view.
// The world must be updated first.
func (s *Shadows) Update() error {
	if err := s.Initialize(); err != nil {
		return err
	}
	for _, m := range s.Maps() {
		m.UpdateShadowCamera()
	}
	return s.CSM.UpdateCascades(s.world.View)
}

// Apply switches to new settings. Targets whose size changed are released
// and reallocated by the next Update. Nothing changes when cfg is rejected.
func (s *Shadows) Apply(cfg config.ShadowConfig) error {
	opts, copts, vopts := ShadowOptions(cfg), CSMOptions(cfg), VSMOptions(cfg)
	if err := errors.Join(opts.Validate(), copts.Validate(), vopts.Validate()); err != nil {
		return err
	}

	cur := s.VSM.Options()
	rebuild := vopts.Width != cur.Width || vopts.Height != cur.Height || vopts.MinVariance != cur.MinVariance
	var vsm *shadow.VSMShadowMap
	if rebuild {
		var err error
		if vsm, err = shadow.NewVSMShadowMap(s.factory, vopts); err != nil {
			return err
		}
	}

	var errs []error
	for _, m := range []interface{ SetSettings(shadow.Options) error }{s.Directional, s.Point, s.Spot} {
		errs = append(errs, m.SetSettings(opts))
	}
	s.Directional.CameraSize = cfg.Directional.CameraSize
	s.Directional.Distance = cfg.Directional.Distance
	errs = append(errs, s.CSM.SetOptions(copts))

	if rebuild {
		s.VSM.Dispose()
		s.VSM = vsm
	} else {
		errs = append(errs,
			s.VSM.SetBlur(vopts.BlurSize, vopts.BlurSigma),
			s.VSM.SetLightBleedingReduction(vopts.LightBleedingReduction),
		)
	}

	// Validated above, so the setters cannot fail.
	if err := errors.Join(errs...); err != nil {
		return err
	}
	s.cfg = cfg
	logger.Named("world").Info("shadow settings applied",
		zap.Int("resolution", cfg.Resolution),
		zap.Int("cascades", cfg.CSM.Cascades),
		zap.Int("blur_size", cfg.VSM.BlurSize),
	)
	return nil
}

// Config returns the settings last applied.
func (s *Shadows) Config() config.ShadowConfig {
	return s.cfg
}

// Dispose releases every render target.
func (s *Shadows) Dispose() {
	for _, m := range s.Maps() {
		m.Dispose()
	}
	s.CSM.Dispose()
	s.VSM.Dispose()
}
