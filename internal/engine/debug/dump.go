// Package debug writes shadow map contents to PNG files for inspection.
package debug

import (
	"fmt"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/Faultbox/midgard-shadows/internal/engine/rendertarget"
	"github.com/Faultbox/midgard-shadows/internal/logger"
)

// Dumper saves render targets as grayscale PNG files named
// <prefix>_<name>.png in an output directory.
type Dumper struct {
	outputDir string
	prefix    string
}

// NewDumper creates a dumper. An empty outputDir writes to the working
// directory.
func NewDumper(outputDir, prefix string) *Dumper {
	return &Dumper{
		outputDir: outputDir,
		prefix:    prefix,
	}
}

// Filename returns the path a target with the given name is written to.
func (d *Dumper) Filename(name string) string {
	filename := fmt.Sprintf("%s_%s.png", d.prefix, name)
	if d.outputDir != "" {
		filename = filepath.Join(d.outputDir, filename)
	}
	return filename
}

// Gray converts one channel of a memory target to an image. Values are
// clamped to [0, 1]. The image is flipped vertically since texel row 0 is the
// bottom of the map.
func Gray(m *rendertarget.Memory, channel int) (*image.Gray, error) {
	if channel < 0 || channel >= m.Format().Channels() {
		return nil, fmt.Errorf("channel %d out of range for %s target", channel, m.Format())
	}
	if m.Disposed() {
		return nil, fmt.Errorf("target %q is disposed", m.Label())
	}

	w, h := m.Size()
	img := image.NewGray(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		srcY := h - 1 - y // Flip Y
		for x := 0; x < w; x++ {
			v := min(max(m.At(x, srcY, channel), 0), 1)
			img.SetGray(x, y, color.Gray{Y: uint8(v*255 + 0.5)})
		}
	}
	return img, nil
}

// Save writes channel 0 of a memory target and returns the file name.
func (d *Dumper) Save(name string, m *rendertarget.Memory) (string, error) {
	img, err := Gray(m, 0)
	if err != nil {
		return "", err
	}

	// Create output directory if needed
	if d.outputDir != "" {
		if err := os.MkdirAll(d.outputDir, 0755); err != nil {
			return "", fmt.Errorf("creating output dir: %w", err)
		}
	}

	filename := d.Filename(name)
	file, err := os.Create(filename)
	if err != nil {
		return "", fmt.Errorf("creating file: %w", err)
	}
	defer file.Close()

	if err := png.Encode(file, img); err != nil {
		return "", fmt.Errorf("encoding PNG: %w", err)
	}

	logger.Named("debug").Debug("render target dumped",
		zap.String("label", m.Label()),
		zap.String("file", filename),
	)
	return filename, nil
}
