package rendertarget

import (
	"go.uber.org/zap"

	"github.com/Faultbox/midgard-shadows/internal/logger"
)

// Memory is a render target backed by a float32 slice. Texels are allocated
// on first access and stored row by row with interleaved channels.
type Memory struct {
	width    int
	height   int
	format   Format
	label    string
	texels   []float32
	disposed bool
}

// NewMemory creates a memory target.
func NewMemory(opts Options) (*Memory, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	return &Memory{
		width:  opts.Width,
		height: opts.Height,
		format: opts.Format,
		label:  opts.Label,
	}, nil
}

// Size returns the dimensions in texels.
func (m *Memory) Size() (width, height int) {
	return m.width, m.height
}

// Format returns the texel format.
func (m *Memory) Format() Format {
	return m.format
}

// Label returns the debug label.
func (m *Memory) Label() string {
	return m.label
}

// Allocated reports whether the texel storage exists.
func (m *Memory) Allocated() bool {
	return m.texels != nil
}

// Texels returns the texel storage, allocating it if needed. A disposed
// target returns nil.
func (m *Memory) Texels() []float32 {
	if m.disposed {
		return nil
	}
	if m.texels == nil {
		m.texels = make([]float32, m.width*m.height*m.format.Channels())
		logger.Named("rendertarget").Debug("memory target allocated",
			zap.String("label", m.label),
			zap.Int("width", m.width),
			zap.Int("height", m.height),
			zap.Stringer("format", m.format),
		)
	}
	return m.texels
}

// At returns channel c of the texel at (x, y). Coordinates are clamped to
// the edge.
func (m *Memory) At(x, y, c int) float32 {
	t := m.Texels()
	if t == nil {
		return 0
	}
	x = min(max(x, 0), m.width-1)
	y = min(max(y, 0), m.height-1)
	return t[(y*m.width+x)*m.format.Channels()+c]
}

// Set writes channel c of the texel at (x, y). Out of range writes are dropped.
func (m *Memory) Set(x, y, c int, v float32) {
	t := m.Texels()
	if t == nil || x < 0 || y < 0 || x >= m.width || y >= m.height {
		return
	}
	t[(y*m.width+x)*m.format.Channels()+c] = v
}

// Clear sets every channel of every texel to the given values. Missing
// values are zero.
func (m *Memory) Clear(values ...float32) {
	t := m.Texels()
	ch := m.format.Channels()
	for i := range t {
		if c := i % ch; c < len(values) {
			t[i] = values[c]
		} else {
			t[i] = 0
		}
	}
}

// Disposed reports whether Dispose was called.
func (m *Memory) Disposed() bool {
	return m.disposed
}

// Dispose releases the texel storage.
func (m *Memory) Dispose() {
	if m.disposed {
		return
	}
	m.disposed = true
	m.texels = nil
}

// MemoryFactory creates Memory targets and keeps track of them.
type MemoryFactory struct {
	targets []*Memory
}

// NewMemoryFactory creates an empty factory.
func NewMemoryFactory() *MemoryFactory {
	return &MemoryFactory{}
}

// NewRenderTarget implements Factory.
func (f *MemoryFactory) NewRenderTarget(opts Options) (RenderTarget, error) {
	m, err := NewMemory(opts)
	if err != nil {
		return nil, err
	}
	f.targets = append(f.targets, m)
	return m, nil
}

// Created returns the number of targets created so far.
func (f *MemoryFactory) Created() int {
	return len(f.targets)
}

// Live returns the number of created targets that are not disposed.
func (f *MemoryFactory) Live() int {
	n := 0
	for _, m := range f.targets {
		if !m.disposed {
			n++
		}
	}
	return n
}

var (
	_ RenderTarget = (*Memory)(nil)
	_ Factory      = (*MemoryFactory)(nil)
)
