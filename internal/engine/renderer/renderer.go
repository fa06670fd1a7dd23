// Package renderer draws shadow casters into shadow render targets with
// OpenGL. It consumes the cameras, matrices and targets prepared by the
// shadow package and never decides where a shadow camera goes.
package renderer

import (
	"fmt"
	"unsafe"

	"github.com/go-gl/gl/v4.1-core/gl"
	"go.uber.org/zap"

	"github.com/Faultbox/midgard-shadows/internal/engine/framebuffer"
	"github.com/Faultbox/midgard-shadows/internal/engine/renderer/shaders"
	"github.com/Faultbox/midgard-shadows/internal/engine/rendertarget"
	"github.com/Faultbox/midgard-shadows/internal/engine/shader"
	"github.com/Faultbox/midgard-shadows/internal/engine/shadow"
	"github.com/Faultbox/midgard-shadows/internal/logger"
	"github.com/Faultbox/midgard-shadows/pkg/math"
)

// Config holds renderer configuration.
type Config struct {
	Width  int
	Height int
}

// Stats counts the work of one frame.
type Stats struct {
	DepthPasses int
	DrawCalls   int
	BlurPasses  int
}

// Renderer runs depth, moments and blur passes.
type Renderer struct {
	config Config
	stats  Stats

	depth   *shader.Program
	moments *shader.Program
	blur    *shader.Program

	cubeVAO  uint32
	cubeVBO  uint32
	emptyVAO uint32 // Bound for the fullscreen blur triangle
}

// New creates a renderer.
// IMPORTANT: Must be called AFTER OpenGL context is created!
func New(cfg Config) (*Renderer, error) {
	r := &Renderer{config: cfg}

	if err := gl.Init(); err != nil {
		return nil, fmt.Errorf("failed to initialize OpenGL: %w", err)
	}

	log := logger.Named("renderer")
	log.Info("OpenGL initialized",
		zap.String("version", gl.GoStr(gl.GetString(gl.VERSION))),
		zap.String("renderer", gl.GoStr(gl.GetString(gl.RENDERER))),
	)

	gl.Enable(gl.DEPTH_TEST)
	gl.DepthFunc(gl.LESS)
	gl.ClearColor(0.1, 0.1, 0.15, 1.0)

	var err error
	if r.depth, err = shader.Compile("depth", shaders.DepthVertexShader, shaders.DepthFragmentShader); err != nil {
		return nil, err
	}
	if r.moments, err = shader.Compile("moments", shaders.DepthVertexShader, shaders.MomentsFragmentShader); err != nil {
		r.Close()
		return nil, err
	}
	if r.blur, err = shader.Compile("blur", shaders.BlurVertexShader, shaders.BlurFragmentShader); err != nil {
		r.Close()
		return nil, err
	}

	r.createCube()
	gl.GenVertexArrays(1, &r.emptyVAO)

	return r, nil
}

// Close cleans up renderer resources.
func (r *Renderer) Close() {
	logger.Named("renderer").Info("closing renderer")
	if r.cubeVAO != 0 {
		gl.DeleteVertexArrays(1, &r.cubeVAO)
		r.cubeVAO = 0
	}
	if r.cubeVBO != 0 {
		gl.DeleteBuffers(1, &r.cubeVBO)
		r.cubeVBO = 0
	}
	if r.emptyVAO != 0 {
		gl.DeleteVertexArrays(1, &r.emptyVAO)
		r.emptyVAO = 0
	}
	for _, p := range []*shader.Program{r.depth, r.moments, r.blur} {
		if p != nil {
			p.Delete()
		}
	}
}

// Resize handles window resize.
func (r *Renderer) Resize(width, height int) {
	r.config.Width = width
	r.config.Height = height
	gl.Viewport(0, 0, int32(width), int32(height))
	logger.Named("renderer").Debug("renderer resized",
		zap.Int("width", width),
		zap.Int("height", height),
	)
}

// Begin starts a new frame.
func (r *Renderer) Begin() {
	r.stats = Stats{}
	gl.ClearColor(0.1, 0.1, 0.15, 1.0)
	gl.Clear(gl.COLOR_BUFFER_BIT | gl.DEPTH_BUFFER_BIT)
}

// End finishes the current frame and returns its counters.
func (r *Renderer) End() Stats {
	return r.stats
}

// glTarget unwraps a render target created by framebuffer.Factory.
func glTarget(rt rendertarget.RenderTarget) (*framebuffer.Target, error) {
	t, ok := rt.(*framebuffer.Target)
	if !ok || t.Disposed() {
		return nil, fmt.Errorf("%w: %T is not a live GL target", shadow.ErrUnsupportedTarget, rt)
	}
	return t, nil
}

// RenderDepth draws unit cubes transformed by models into a depth target as
// seen through viewProj.
func (r *Renderer) RenderDepth(rt rendertarget.RenderTarget, viewProj math.Mat4, models []math.Mat4) error {
	return r.drawCasters(r.depth, rt, viewProj, models)
}

// RenderShadowMap renders every camera of a shadow map into its target.
func (r *Renderer) RenderShadowMap(s shadow.ShadowMap, models []math.Mat4) error {
	cams, targets := s.Cameras(), s.RenderTargets()
	if len(targets) != len(cams) {
		return fmt.Errorf("shadow map in state %s has %d targets for %d cameras", s.State(), len(targets), len(cams))
	}
	for i, cam := range cams {
		if err := r.RenderDepth(targets[i], cam.ViewProjectionMatrix(), models); err != nil {
			return err
		}
	}
	return nil
}

// RenderCascades renders every cascade into its target.
func (r *Renderer) RenderCascades(csm *shadow.DirectionalLightCSM, models []math.Mat4) error {
	for i, b := range csm.Bindings() {
		if err := r.RenderDepth(b.Target, b.ViewProjection, models); err != nil {
			return fmt.Errorf("cascade %d: %w", i, err)
		}
	}
	return nil
}

// RenderMoments draws the casters into a variance shadow map's moments target.
func (r *Renderer) RenderMoments(vsm *shadow.VSMShadowMap, viewProj math.Mat4, models []math.Mat4) error {
	return r.drawCasters(r.moments, vsm.Moments(), viewProj, models)
}

// BlurMoments runs the separable Gaussian blur of a variance shadow map on
// the GPU: moments to intermediate horizontally, intermediate to blurred
// vertically.
func (r *Renderer) BlurMoments(vsm *shadow.VSMShadowMap) error {
	weights := vsm.GaussianWeights()
	if len(weights) > shaders.MaxBlurTaps {
		return fmt.Errorf("%w: %d blur taps, at most %d", shadow.ErrInvalidArgument, len(weights), shaders.MaxBlurTaps)
	}

	src, err := glTarget(vsm.Moments())
	if err != nil {
		return err
	}
	mid, err := glTarget(vsm.Intermediate())
	if err != nil {
		return err
	}
	dst, err := glTarget(vsm.Blurred())
	if err != nil {
		return err
	}

	w, h := src.Size()
	r.blurPass(src, mid, weights, 1/float32(w), 0)
	r.blurPass(mid, dst, weights, 0, 1/float32(h))
	return nil
}

func (r *Renderer) blurPass(src, dst *framebuffer.Target, weights []float32, stepX, stepY float32) {
	restore := dst.Bind()
	defer restore()

	gl.Disable(gl.DEPTH_TEST)
	defer gl.Enable(gl.DEPTH_TEST)

	r.blur.Use()
	src.BindTexture(gl.TEXTURE0)
	r.blur.SetInt("uSource", 0)
	r.blur.SetVec2("uStep", stepX, stepY)
	r.blur.SetFloats("uWeights", weights)
	r.blur.SetInt("uTaps", int32(len(weights)))

	gl.BindVertexArray(r.emptyVAO)
	gl.DrawArrays(gl.TRIANGLES, 0, 3)
	gl.BindVertexArray(0)

	r.stats.BlurPasses++
}

func (r *Renderer) drawCasters(p *shader.Program, rt rendertarget.RenderTarget, viewProj math.Mat4, models []math.Mat4) error {
	t, err := glTarget(rt)
	if err != nil {
		return err
	}

	restore := t.Bind()
	defer restore()

	p.Use()
	p.SetMat4("uLightViewProj", viewProj)

	gl.BindVertexArray(r.cubeVAO)
	for _, m := range models {
		p.SetMat4("uModel", m)
		gl.DrawArrays(gl.TRIANGLES, 0, int32(len(cubeVertices)/3))
		r.stats.DrawCalls++
	}
	gl.BindVertexArray(0)

	r.stats.DepthPasses++
	return nil
}

// cubeVertices is a unit cube centered on the origin, counter-clockwise
// outward faces.
var cubeVertices = []float32{
	// -Z
	-0.5, -0.5, -0.5, 0.5, 0.5, -0.5, 0.5, -0.5, -0.5,
	0.5, 0.5, -0.5, -0.5, -0.5, -0.5, -0.5, 0.5, -0.5,
	// +Z
	-0.5, -0.5, 0.5, 0.5, -0.5, 0.5, 0.5, 0.5, 0.5,
	0.5, 0.5, 0.5, -0.5, 0.5, 0.5, -0.5, -0.5, 0.5,
	// -X
	-0.5, 0.5, 0.5, -0.5, 0.5, -0.5, -0.5, -0.5, -0.5,
	-0.5, -0.5, -0.5, -0.5, -0.5, 0.5, -0.5, 0.5, 0.5,
	// +X
	0.5, 0.5, 0.5, 0.5, -0.5, -0.5, 0.5, 0.5, -0.5,
	0.5, -0.5, -0.5, 0.5, 0.5, 0.5, 0.5, -0.5, 0.5,
	// -Y
	-0.5, -0.5, -0.5, 0.5, -0.5, -0.5, 0.5, -0.5, 0.5,
	0.5, -0.5, 0.5, -0.5, -0.5, 0.5, -0.5, -0.5, -0.5,
	// +Y
	-0.5, 0.5, -0.5, 0.5, 0.5, 0.5, 0.5, 0.5, -0.5,
	0.5, 0.5, 0.5, -0.5, 0.5, -0.5, -0.5, 0.5, 0.5,
}

func (r *Renderer) createCube() {
	gl.GenVertexArrays(1, &r.cubeVAO)
	gl.BindVertexArray(r.cubeVAO)

	gl.GenBuffers(1, &r.cubeVBO)
	gl.BindBuffer(gl.ARRAY_BUFFER, r.cubeVBO)
	gl.BufferData(gl.ARRAY_BUFFER, len(cubeVertices)*4, unsafe.Pointer(&cubeVertices[0]), gl.STATIC_DRAW)

	gl.VertexAttribPointer(0, 3, gl.FLOAT, false, 3*4, nil)
	gl.EnableVertexAttribArray(0)

	gl.BindBuffer(gl.ARRAY_BUFFER, 0)
	gl.BindVertexArray(0)

	logger.Named("renderer").Debug("cube created",
		zap.Uint32("vao", r.cubeVAO),
		zap.Uint32("vbo", r.cubeVBO),
	)
}
