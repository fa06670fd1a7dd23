// Package rendertarget defines the offscreen targets that shadow maps render
// into, together with a CPU-backed implementation.
package rendertarget

import (
	"errors"
	"fmt"
)

// ErrInvalidSize is returned when a target is requested with a non-positive size.
var ErrInvalidSize = errors.New("rendertarget: invalid size")

// Format describes what a target stores per texel.
type Format int

const (
	// FormatDepth stores a single depth value.
	FormatDepth Format = iota
	// FormatMoments stores depth and depth squared for variance shadow maps.
	FormatMoments
)

// Channels returns the number of float channels per texel.
func (f Format) Channels() int {
	if f == FormatMoments {
		return 2
	}
	return 1
}

func (f Format) String() string {
	switch f {
	case FormatDepth:
		return "depth"
	case FormatMoments:
		return "moments"
	default:
		return fmt.Sprintf("Format(%d)", int(f))
	}
}

// Options describes a render target to create.
type Options struct {
	Width  int
	Height int
	Format Format
	Label  string // For logs and debugging only
}

// Validate checks the size and format.
func (o Options) Validate() error {
	if o.Width <= 0 || o.Height <= 0 {
		return fmt.Errorf("%w: %dx%d", ErrInvalidSize, o.Width, o.Height)
	}
	if o.Format != FormatDepth && o.Format != FormatMoments {
		return fmt.Errorf("rendertarget: unknown format %v", o.Format)
	}
	return nil
}

// RenderTarget is an offscreen surface owned by a shadow map.
type RenderTarget interface {
	Size() (width, height int)
	Format() Format
	Disposed() bool
	// Dispose releases the target. Calling it again is a no-op.
	Dispose()
}

// Snapshotter is a render target whose texels can be copied into memory.
type Snapshotter interface {
	Snapshot() (*Memory, error)
}

// Snapshot returns the texels of rt as a memory target. Memory targets are
// returned as is.
func Snapshot(rt RenderTarget) (*Memory, error) {
	switch t := rt.(type) {
	case *Memory:
		return t, nil
	case Snapshotter:
		return t.Snapshot()
	default:
		return nil, fmt.Errorf("rendertarget: %T cannot be read back", rt)
	}
}

// Factory creates render targets.
type Factory interface {
	NewRenderTarget(opts Options) (RenderTarget, error)
}
