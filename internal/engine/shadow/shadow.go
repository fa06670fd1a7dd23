// Package shadow provides real-time shadow mapping: per-light shadow cameras,
// cascaded shadow maps for directional lights and variance shadow maps.
//
// Nothing in this package draws. It positions shadow cameras, owns the render
// targets they render into and hands both to the renderer. Call the scene
// root's UpdateWorldMatrix(false, true) before any UpdateShadowCamera or
// UpdateCascades in a frame.
package shadow

import (
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/Faultbox/midgard-shadows/internal/engine/camera"
	"github.com/Faultbox/midgard-shadows/internal/engine/rendertarget"
	"github.com/Faultbox/midgard-shadows/internal/logger"
	"github.com/Faultbox/midgard-shadows/pkg/math"
)

var (
	// ErrInvalidArgument is returned for out-of-range settings.
	ErrInvalidArgument = errors.New("shadow: invalid argument")

	// ErrUnsupportedTarget is returned when a CPU operation meets a render
	// target it cannot read.
	ErrUnsupportedTarget = errors.New("shadow: unsupported render target")
)

// Default shadow settings.
const (
	DefaultResolution = 1024
	DefaultBias       = 0.001
	DefaultRadius     = 1
	DefaultNear       = 0.5
	DefaultFar        = 500
	DefaultCameraSize = 20
	DefaultDistance   = 50
)

// State is the lifecycle stage of a shadow map.
type State int

const (
	// Uninitialized has no render targets.
	Uninitialized State = iota
	// Initialized has render targets but the camera was not positioned since.
	Initialized
	// CameraUpdated is ready for a depth pass.
	CameraUpdated
)

func (s State) String() string {
	switch s {
	case Uninitialized:
		return "uninitialized"
	case Initialized:
		return "initialized"
	case CameraUpdated:
		return "camera-updated"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Options holds the settings shared by every shadow map.
type Options struct {
	Resolution int     // Width and height of each render target
	Bias       float32 // Depth bias applied when sampling
	NormalBias float32 // Offset along the surface normal when sampling
	Radius     float32 // PCF filter radius in texels
	Near       float32
	Far        float32
}

// DefaultOptions returns the default shadow settings.
func DefaultOptions() Options {
	return Options{
		Resolution: DefaultResolution,
		Bias:       DefaultBias,
		Radius:     DefaultRadius,
		Near:       DefaultNear,
		Far:        DefaultFar,
	}
}

// Validate checks resolution and clip planes.
func (o Options) Validate() error {
	if o.Resolution <= 0 {
		return fmt.Errorf("%w: resolution %d", ErrInvalidArgument, o.Resolution)
	}
	if o.Near <= 0 || o.Far <= o.Near {
		return fmt.Errorf("%w: near %v far %v", ErrInvalidArgument, o.Near, o.Far)
	}
	return nil
}

// ShadowMap is a light's shadow: its shadow cameras and the render targets
// they render into. The implementations are DirectionalShadow, PointShadow
// and SpotShadow.
type ShadowMap interface {
	// Initialize allocates the render targets. It is a no-op once they exist.
	Initialize() error
	// UpdateShadowCamera positions the shadow cameras from the light's world
	// transform. Call it after every light movement and before every depth pass.
	UpdateShadowCamera()
	// Dispose releases the render targets. Calling it again is a no-op.
	Dispose()

	State() State
	Settings() Options
	Cameras() []camera.Camera
	RenderTargets() []rendertarget.RenderTarget

	isShadowMap()
}

// shadowBase holds the render targets and lifecycle shared by every shadow map.
type shadowBase struct {
	kind    string
	opts    Options
	factory rendertarget.Factory
	targets []rendertarget.RenderTarget
	state   State
}

func newShadowBase(kind string, factory rendertarget.Factory, opts Options) (shadowBase, error) {
	if factory == nil {
		return shadowBase{}, fmt.Errorf("%w: nil render target factory", ErrInvalidArgument)
	}
	if err := opts.Validate(); err != nil {
		return shadowBase{}, err
	}
	return shadowBase{kind: kind, opts: opts, factory: factory}, nil
}

func (b *shadowBase) isShadowMap() {}

// State returns the lifecycle stage.
func (b *shadowBase) State() State {
	return b.state
}

// Settings returns the shadow settings.
func (b *shadowBase) Settings() Options {
	return b.opts
}

// RenderTargets returns the render targets, one per shadow camera. It is
// empty until Initialize.
func (b *shadowBase) RenderTargets() []rendertarget.RenderTarget {
	return b.targets
}

// allocate creates count depth targets unless they already exist.
func (b *shadowBase) allocate(count int) error {
	if b.targets != nil {
		return nil
	}

	targets := make([]rendertarget.RenderTarget, 0, count)
	for i := 0; i < count; i++ {
		t, err := b.factory.NewRenderTarget(rendertarget.Options{
			Width:  b.opts.Resolution,
			Height: b.opts.Resolution,
			Format: rendertarget.FormatDepth,
			Label:  fmt.Sprintf("%s shadow %d", b.kind, i),
		})
		if err != nil {
			for _, t := range targets {
				t.Dispose()
			}
			return fmt.Errorf("allocating %s shadow target: %w", b.kind, err)
		}
		targets = append(targets, t)
	}

	b.targets = targets
	b.state = Initialized
	logger.Named("shadow").Debug("shadow map initialized",
		zap.String("kind", b.kind),
		zap.Int("targets", count),
		zap.Int("resolution", b.opts.Resolution),
	)
	return nil
}

// cameraUpdated advances the state once targets exist.
func (b *shadowBase) cameraUpdated() {
	if b.state == Initialized {
		b.state = CameraUpdated
	}
}

// Dispose releases the render targets. Calling it again is a no-op.
func (b *shadowBase) Dispose() {
	if b.targets == nil {
		return
	}
	for _, t := range b.targets {
		t.Dispose()
	}
	b.targets = nil
	b.state = Uninitialized
	logger.Named("shadow").Debug("shadow map disposed", zap.String("kind", b.kind))
}

// SetSettings replaces the settings. Changing the resolution releases the
// render targets; call Initialize again before the next depth pass.
func (b *shadowBase) SetSettings(opts Options) error {
	if err := opts.Validate(); err != nil {
		return err
	}
	if opts.Resolution != b.opts.Resolution {
		b.Dispose()
	}
	b.opts = opts
	return nil
}

// textureMatrix maps clip space [-1, 1] to texture space [0, 1].
var textureMatrix = math.Mat4{
	0.5, 0, 0, 0,
	0, 0.5, 0, 0,
	0, 0, 0.5, 0,
	0.5, 0.5, 0.5, 1,
}

// ShadowMatrix maps world positions to shadow-map texture coordinates and
// depth in [0, 1] for a shadow camera.
func ShadowMatrix(cam camera.Camera) math.Mat4 {
	return textureMatrix.Mul(cam.ViewProjectionMatrix())
}

var (
	_ ShadowMap = (*DirectionalShadow)(nil)
	_ ShadowMap = (*PointShadow)(nil)
	_ ShadowMap = (*SpotShadow)(nil)
)
