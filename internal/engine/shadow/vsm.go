package shadow

import (
	"fmt"

	"github.com/chewxy/math32"
	"go.uber.org/zap"

	"github.com/Faultbox/midgard-shadows/internal/engine/rendertarget"
	"github.com/Faultbox/midgard-shadows/internal/logger"
	"github.com/Faultbox/midgard-shadows/pkg/math"
)

// VSMOptions configures a variance shadow map.
type VSMOptions struct {
	Width  int
	Height int

	// MinVariance floors the variance so nearly flat moments never divide
	// by almost zero.
	MinVariance float32
	// LightBleedingReduction cuts off the low end of the Chebyshev bound,
	// in [0, 1].
	LightBleedingReduction float32

	BlurSize  int // Kernel half-size in texels
	BlurSigma float32
}

// DefaultVSMOptions returns the default variance shadow settings.
func DefaultVSMOptions() VSMOptions {
	return VSMOptions{
		Width:                  DefaultResolution,
		Height:                 DefaultResolution,
		MinVariance:            0.00002,
		LightBleedingReduction: 0.2,
		BlurSize:               2,
		BlurSigma:              1.5,
	}
}

// Validate checks sizes and ranges.
func (o VSMOptions) Validate() error {
	switch {
	case o.Width <= 0 || o.Height <= 0:
		return fmt.Errorf("%w: size %dx%d", ErrInvalidArgument, o.Width, o.Height)
	case o.MinVariance < 0:
		return fmt.Errorf("%w: min variance %v", ErrInvalidArgument, o.MinVariance)
	case o.LightBleedingReduction < 0 || o.LightBleedingReduction > 1:
		return fmt.Errorf("%w: light bleeding reduction %v outside [0, 1]", ErrInvalidArgument, o.LightBleedingReduction)
	case o.BlurSize < 0:
		return fmt.Errorf("%w: blur size %d", ErrInvalidArgument, o.BlurSize)
	}
	return nil
}

// VSMShadowMap stores depth moments, blurs them and evaluates shadowing with
// Chebyshev's inequality.
//
// The depth pass writes EncodeMoments into Moments. The blur runs
// horizontally into Intermediate and vertically into Blurred, which is the
// target sampled during shading.
type VSMShadowMap struct {
	opts    VSMOptions
	factory rendertarget.Factory
	weights []float32

	moments      rendertarget.RenderTarget
	intermediate rendertarget.RenderTarget
	blurred      rendertarget.RenderTarget
	state        State
}

// NewVSMShadowMap creates a variance shadow map. Targets are allocated by
// Initialize.
func NewVSMShadowMap(factory rendertarget.Factory, opts VSMOptions) (*VSMShadowMap, error) {
	if factory == nil {
		return nil, fmt.Errorf("%w: nil render target factory", ErrInvalidArgument)
	}
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	return &VSMShadowMap{
		opts:    opts,
		factory: factory,
		weights: CalculateGaussianWeights(opts.BlurSize, opts.BlurSigma),
	}, nil
}

// Options returns the current settings.
func (v *VSMShadowMap) Options() VSMOptions {
	return v.opts
}

// State returns the lifecycle stage. Blur moves an initialized map to
// CameraUpdated, meaning the blurred target is ready to sample.
func (v *VSMShadowMap) State() State {
	return v.state
}

// Initialize allocates the three moments targets. It is a no-op once they exist.
func (v *VSMShadowMap) Initialize() error {
	if v.moments != nil {
		return nil
	}

	var targets [3]rendertarget.RenderTarget
	for i, label := range [3]string{"vsm moments", "vsm blur intermediate", "vsm blurred"} {
		t, err := v.factory.NewRenderTarget(rendertarget.Options{
			Width:  v.opts.Width,
			Height: v.opts.Height,
			Format: rendertarget.FormatMoments,
			Label:  label,
		})
		if err != nil {
			for _, t := range targets[:i] {
				t.Dispose()
			}
			return fmt.Errorf("allocating %s: %w", label, err)
		}
		targets[i] = t
	}

	v.moments, v.intermediate, v.blurred = targets[0], targets[1], targets[2]
	v.state = Initialized
	logger.Named("shadow").Debug("variance shadow map initialized",
		zap.Int("width", v.opts.Width),
		zap.Int("height", v.opts.Height),
	)
	return nil
}

// Moments returns the target the depth pass renders into.
func (v *VSMShadowMap) Moments() rendertarget.RenderTarget {
	return v.moments
}

// Intermediate returns the horizontal blur target.
func (v *VSMShadowMap) Intermediate() rendertarget.RenderTarget {
	return v.intermediate
}

// Blurred returns the final blurred target.
func (v *VSMShadowMap) Blurred() rendertarget.RenderTarget {
	return v.blurred
}

// GaussianWeights returns the blur kernel for GPU upload. Callers must not
// modify it.
func (v *VSMShadowMap) GaussianWeights() []float32 {
	return v.weights
}

// SetBlur changes the kernel half-size and sigma.
func (v *VSMShadowMap) SetBlur(size int, sigma float32) error {
	if size < 0 {
		return fmt.Errorf("%w: blur size %d", ErrInvalidArgument, size)
	}
	v.opts.BlurSize, v.opts.BlurSigma = size, sigma
	v.weights = CalculateGaussianWeights(size, sigma)
	return nil
}

// SetLightBleedingReduction changes the light bleeding cutoff.
func (v *VSMShadowMap) SetLightBleedingReduction(r float32) error {
	if r < 0 || r > 1 {
		return fmt.Errorf("%w: light bleeding reduction %v outside [0, 1]", ErrInvalidArgument, r)
	}
	v.opts.LightBleedingReduction = r
	return nil
}

// CalculateGaussianWeights returns 2*size+1 normalized Gaussian weights
// centered on index size. A non-positive sigma gives a single center tap.
func CalculateGaussianWeights(size int, sigma float32) []float32 {
	size = max(size, 0)
	weights := make([]float32, 2*size+1)
	if sigma <= 0 {
		weights[size] = 1
		return weights
	}

	var sum float32
	twoSigmaSq := 2 * sigma * sigma
	for i := range weights {
		x := float32(i - size)
		weights[i] = math32.Exp(-x * x / twoSigmaSq)
		sum += weights[i]
	}
	for i := range weights {
		weights[i] /= sum
	}
	return weights
}

// EncodeMoments returns the two values the depth pass stores for a fragment:
// depth and depth squared plus a correction from the screen-space depth
// derivatives, which accounts for depth varying across the texel.
func EncodeMoments(depth, dx, dy float32) (m1, m2 float32) {
	return depth, depth*depth + 0.25*(dx*dx+dy*dy)
}

// ChebyshevUpperBound returns the fraction of light reaching depth d given the
// moments m1, m2. Depths at or in front of the mean are fully lit.
func ChebyshevUpperBound(m1, m2, d, minVariance, bleedReduction float32) float32 {
	if d <= m1 {
		return 1
	}
	variance := math32.Max(m2-m1*m1, minVariance)
	delta := d - m1
	p := variance / (variance + delta*delta)
	return linstep(bleedReduction, 1, p)
}

// linstep rescales v from [lo, hi] to [0, 1], clamped.
func linstep(lo, hi, v float32) float32 {
	if hi <= lo {
		if v >= hi {
			return 1
		}
		return 0
	}
	return math.Clamp((v-lo)/(hi-lo), 0, 1)
}

// Evaluate returns the light fraction for moments m1, m2 at depth d using the
// map's variance floor and light bleeding reduction.
func (v *VSMShadowMap) Evaluate(m1, m2, d float32) float32 {
	return ChebyshevUpperBound(m1, m2, d, v.opts.MinVariance, v.opts.LightBleedingReduction)
}

// memoryTargets returns the three targets as memory targets.
func (v *VSMShadowMap) memoryTargets() (src, mid, dst *rendertarget.Memory, err error) {
	if v.moments == nil {
		return nil, nil, nil, fmt.Errorf("%w: variance shadow map not initialized", ErrInvalidArgument)
	}
	src, ok1 := v.moments.(*rendertarget.Memory)
	mid, ok2 := v.intermediate.(*rendertarget.Memory)
	dst, ok3 := v.blurred.(*rendertarget.Memory)
	if !ok1 || !ok2 || !ok3 {
		return nil, nil, nil, fmt.Errorf("%w: CPU blur needs memory targets, got %T", ErrUnsupportedTarget, v.moments)
	}
	return src, mid, dst, nil
}

// WriteDepth fills the moments target from a row-major depth buffer of
// Width*Height values, estimating the derivatives with finite differences.
// Only memory targets are supported.
func (v *VSMShadowMap) WriteDepth(depths []float32) error {
	src, _, _, err := v.memoryTargets()
	if err != nil {
		return err
	}
	w, h := src.Size()
	if len(depths) != w*h {
		return fmt.Errorf("%w: %d depths for a %dx%d map", ErrInvalidArgument, len(depths), w, h)
	}

	at := func(x, y int) float32 {
		return depths[min(max(y, 0), h-1)*w+min(max(x, 0), w-1)]
	}
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			dx := (at(x+1, y) - at(x-1, y)) * 0.5
			dy := (at(x, y+1) - at(x, y-1)) * 0.5
			m1, m2 := EncodeMoments(at(x, y), dx, dy)
			src.Set(x, y, 0, m1)
			src.Set(x, y, 1, m2)
		}
	}
	return nil
}

// Blur runs the separable Gaussian blur on the CPU: moments to intermediate
// horizontally, then intermediate to blurred vertically. Edges clamp. GPU
// renderers run the same passes with GaussianWeights instead.
func (v *VSMShadowMap) Blur() error {
	src, mid, dst, err := v.memoryTargets()
	if err != nil {
		logger.Named("shadow").Warn("skipping variance shadow blur", zap.Error(err))
		return err
	}

	blurPass(src, mid, v.weights, 1, 0)
	blurPass(mid, dst, v.weights, 0, 1)

	v.state = CameraUpdated
	return nil
}

// blurPass convolves both channels of src along (stepX, stepY) into dst.
func blurPass(src, dst *rendertarget.Memory, weights []float32, stepX, stepY int) {
	w, h := src.Size()
	size := len(weights) / 2
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			var m1, m2 float32
			for k, wk := range weights {
				o := k - size
				m1 += wk * src.At(x+o*stepX, y+o*stepY, 0)
				m2 += wk * src.At(x+o*stepX, y+o*stepY, 1)
			}
			dst.Set(x, y, 0, m1)
			dst.Set(x, y, 1, m2)
		}
	}
}

// ShadowFactor evaluates the blurred moments at texel (x, y) for depth d.
// Only memory targets are supported; GPU renderers evaluate in the shader.
func (v *VSMShadowMap) ShadowFactor(x, y int, d float32) (float32, error) {
	_, _, dst, err := v.memoryTargets()
	if err != nil {
		return 0, err
	}
	return v.Evaluate(dst.At(x, y, 0), dst.At(x, y, 1), d), nil
}

// Dispose releases the three targets. Calling it again is a no-op.
func (v *VSMShadowMap) Dispose() {
	if v.moments == nil {
		return
	}
	v.moments.Dispose()
	v.intermediate.Dispose()
	v.blurred.Dispose()
	v.moments, v.intermediate, v.blurred = nil, nil, nil
	v.state = Uninitialized
	logger.Named("shadow").Debug("variance shadow map disposed")
}
