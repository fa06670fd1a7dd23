// Package framebuffer provides OpenGL-backed render targets for shadow passes.
package framebuffer

import (
	"fmt"

	"github.com/go-gl/gl/v4.1-core/gl"
	"go.uber.org/zap"

	"github.com/Faultbox/midgard-shadows/internal/engine/rendertarget"
	"github.com/Faultbox/midgard-shadows/internal/logger"
)

// Target is an offscreen framebuffer.
//
// A depth target has a single depth texture set up for sampler2DShadow
// comparison. A moments target renders depth and depth squared into an RG32F
// color texture, with a depth renderbuffer for the depth test.
type Target struct {
	fbo      uint32
	texture  uint32 // Depth texture or moments color texture
	depthRBO uint32
	width    int32
	height   int32
	format   rendertarget.Format
	label    string
}

// New creates a framebuffer target. A GL context must be current.
func New(opts rendertarget.Options) (*Target, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}

	t := &Target{
		width:  int32(opts.Width),
		height: int32(opts.Height),
		format: opts.Format,
		label:  opts.Label,
	}

	if err := t.create(); err != nil {
		return nil, fmt.Errorf("creating framebuffer %q: %w", opts.Label, err)
	}

	logger.Named("framebuffer").Debug("render target created",
		zap.String("label", t.label),
		zap.Int32("width", t.width),
		zap.Int32("height", t.height),
		zap.Stringer("format", t.format),
	)
	return t, nil
}

func (t *Target) create() error {
	gl.GenFramebuffers(1, &t.fbo)
	gl.BindFramebuffer(gl.FRAMEBUFFER, t.fbo)

	if t.format == rendertarget.FormatMoments {
		t.createMoments()
	} else {
		t.createDepth()
	}

	status := gl.CheckFramebufferStatus(gl.FRAMEBUFFER)
	gl.BindFramebuffer(gl.FRAMEBUFFER, 0)
	gl.BindTexture(gl.TEXTURE_2D, 0)

	if status != gl.FRAMEBUFFER_COMPLETE {
		t.Dispose()
		return fmt.Errorf("framebuffer incomplete: 0x%x", status)
	}
	return nil
}

func (t *Target) createDepth() {
	gl.GenTextures(1, &t.texture)
	gl.BindTexture(gl.TEXTURE_2D, t.texture)
	gl.TexImage2D(gl.TEXTURE_2D, 0, gl.DEPTH_COMPONENT24, t.width, t.height, 0, gl.DEPTH_COMPONENT, gl.FLOAT, nil)

	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_MIN_FILTER, gl.LINEAR)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_MAG_FILTER, gl.LINEAR)

	// Clamp to border with white (1.0) to avoid shadow outside frustum
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_WRAP_S, gl.CLAMP_TO_BORDER)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_WRAP_T, gl.CLAMP_TO_BORDER)
	borderColor := []float32{1.0, 1.0, 1.0, 1.0}
	gl.TexParameterfv(gl.TEXTURE_2D, gl.TEXTURE_BORDER_COLOR, &borderColor[0])

	// Hardware comparison for sampler2DShadow
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_COMPARE_MODE, gl.COMPARE_REF_TO_TEXTURE)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_COMPARE_FUNC, gl.LEQUAL)

	gl.FramebufferTexture2D(gl.FRAMEBUFFER, gl.DEPTH_ATTACHMENT, gl.TEXTURE_2D, t.texture, 0)

	// No color buffer for a depth pass
	gl.DrawBuffer(gl.NONE)
	gl.ReadBuffer(gl.NONE)
}

func (t *Target) createMoments() {
	gl.GenTextures(1, &t.texture)
	gl.BindTexture(gl.TEXTURE_2D, t.texture)
	gl.TexImage2D(gl.TEXTURE_2D, 0, gl.RG32F, t.width, t.height, 0, gl.RG, gl.FLOAT, nil)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_MIN_FILTER, gl.LINEAR)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_MAG_FILTER, gl.LINEAR)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_WRAP_S, gl.CLAMP_TO_EDGE)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_WRAP_T, gl.CLAMP_TO_EDGE)
	gl.FramebufferTexture2D(gl.FRAMEBUFFER, gl.COLOR_ATTACHMENT0, gl.TEXTURE_2D, t.texture, 0)

	gl.GenRenderbuffers(1, &t.depthRBO)
	gl.BindRenderbuffer(gl.RENDERBUFFER, t.depthRBO)
	gl.RenderbufferStorage(gl.RENDERBUFFER, gl.DEPTH_COMPONENT24, t.width, t.height)
	gl.FramebufferRenderbuffer(gl.FRAMEBUFFER, gl.DEPTH_ATTACHMENT, gl.RENDERBUFFER, t.depthRBO)
}

// Bind makes the target current, sets the viewport and clears it for a shadow
// pass. Depth targets cull front faces to reduce acne; moments targets clear
// to the far plane. The returned function restores the previous framebuffer,
// viewport and culling.
func (t *Target) Bind() func() {
	var prevFBO int32
	var prevViewport [4]int32
	gl.GetIntegerv(gl.FRAMEBUFFER_BINDING, &prevFBO)
	gl.GetIntegerv(gl.VIEWPORT, &prevViewport[0])

	gl.BindFramebuffer(gl.FRAMEBUFFER, t.fbo)
	gl.Viewport(0, 0, t.width, t.height)

	gl.Enable(gl.DEPTH_TEST)
	gl.DepthFunc(gl.LESS)

	if t.format == rendertarget.FormatMoments {
		gl.ClearColor(1, 1, 0, 0)
		gl.Clear(gl.COLOR_BUFFER_BIT | gl.DEPTH_BUFFER_BIT)
	} else {
		gl.Clear(gl.DEPTH_BUFFER_BIT)
		gl.Enable(gl.CULL_FACE)
		gl.CullFace(gl.FRONT)
	}

	return func() {
		gl.BindFramebuffer(gl.FRAMEBUFFER, uint32(prevFBO))
		gl.Viewport(prevViewport[0], prevViewport[1], prevViewport[2], prevViewport[3])
		gl.CullFace(gl.BACK)
	}
}

// BindTexture binds the shadow texture to the given texture unit for sampling.
func (t *Target) BindTexture(textureUnit uint32) {
	gl.ActiveTexture(textureUnit)
	gl.BindTexture(gl.TEXTURE_2D, t.texture)
}

// Texture returns the depth or moments texture ID.
func (t *Target) Texture() uint32 {
	return t.texture
}

// Size returns the target dimensions.
func (t *Target) Size() (width, height int) {
	return int(t.width), int(t.height)
}

// Format returns the texel format.
func (t *Target) Format() rendertarget.Format {
	return t.format
}

// ReadMoments reads back a moments target as interleaved depth/depth² pairs.
// Depth targets return nil.
func (t *Target) ReadMoments() []float32 {
	if t.format != rendertarget.FormatMoments || t.fbo == 0 {
		return nil
	}
	pixels := make([]float32, t.width*t.height*2)

	var prevFBO int32
	gl.GetIntegerv(gl.FRAMEBUFFER_BINDING, &prevFBO)
	gl.BindFramebuffer(gl.FRAMEBUFFER, t.fbo)

	gl.ReadPixels(0, 0, t.width, t.height, gl.RG, gl.FLOAT, gl.Ptr(pixels))

	gl.BindFramebuffer(gl.FRAMEBUFFER, uint32(prevFBO))
	return pixels
}

// ReadDepth reads back a depth target in [0, 1]. Moments targets return nil.
func (t *Target) ReadDepth() []float32 {
	if t.format != rendertarget.FormatDepth || t.fbo == 0 {
		return nil
	}
	pixels := make([]float32, t.width*t.height)

	var prevFBO int32
	gl.GetIntegerv(gl.FRAMEBUFFER_BINDING, &prevFBO)
	gl.BindFramebuffer(gl.FRAMEBUFFER, t.fbo)

	gl.ReadPixels(0, 0, t.width, t.height, gl.DEPTH_COMPONENT, gl.FLOAT, gl.Ptr(pixels))

	gl.BindFramebuffer(gl.FRAMEBUFFER, uint32(prevFBO))
	return pixels
}

// Snapshot copies the target into a memory target with the same layout.
// It implements rendertarget.Snapshotter.
func (t *Target) Snapshot() (*rendertarget.Memory, error) {
	if t.Disposed() {
		return nil, fmt.Errorf("framebuffer %q is disposed", t.label)
	}
	m, err := rendertarget.NewMemory(rendertarget.Options{
		Width:  int(t.width),
		Height: int(t.height),
		Format: t.format,
		Label:  t.label,
	})
	if err != nil {
		return nil, err
	}

	pixels := t.ReadMoments()
	if t.format == rendertarget.FormatDepth {
		pixels = t.ReadDepth()
	}
	copy(m.Texels(), pixels)
	return m, nil
}

// Disposed reports whether the GL objects were released.
func (t *Target) Disposed() bool {
	return t.fbo == 0
}

// Dispose releases all OpenGL resources. Calling it again is a no-op.
func (t *Target) Dispose() {
	if t.fbo != 0 {
		gl.DeleteFramebuffers(1, &t.fbo)
		t.fbo = 0
	}
	if t.texture != 0 {
		gl.DeleteTextures(1, &t.texture)
		t.texture = 0
	}
	if t.depthRBO != 0 {
		gl.DeleteRenderbuffers(1, &t.depthRBO)
		t.depthRBO = 0
	}
}

// Factory creates GL render targets on the current context.
type Factory struct{}

// NewFactory creates a GL factory.
func NewFactory() *Factory {
	return &Factory{}
}

// NewRenderTarget implements rendertarget.Factory.
func (f *Factory) NewRenderTarget(opts rendertarget.Options) (rendertarget.RenderTarget, error) {
	t, err := New(opts)
	if err != nil {
		return nil, err
	}
	return t, nil
}

var (
	_ rendertarget.RenderTarget = (*Target)(nil)
	_ rendertarget.Factory      = (*Factory)(nil)
)
