// Package config handles shadow demo configuration loading and management.
package config

import (
	"errors"
	"fmt"
)

// ErrInvalid is wrapped by every validation failure.
var ErrInvalid = errors.New("invalid config")

// Config holds all demo settings.
type Config struct {
	Window  WindowConfig  `yaml:"window"`
	Sun     SunConfig     `yaml:"sun"`
	Shadows ShadowConfig  `yaml:"shadows"`
	Logging LoggingConfig `yaml:"logging"`
	Debug   DebugConfig   `yaml:"debug"`
}

// WindowConfig holds display settings and the frame budget of a run.
type WindowConfig struct {
	Width      int  `yaml:"width"`
	Height     int  `yaml:"height"`
	Fullscreen bool `yaml:"fullscreen"`
	VSync      bool `yaml:"vsync"`
	Headless   bool `yaml:"headless"` // Use CPU render targets, no window
	Frames     int  `yaml:"frames"`   // Frames to run, 0 = until closed
}

// SunConfig places the directional light. Angles are in degrees.
type SunConfig struct {
	Longitude float32 `yaml:"longitude"`
	Latitude  float32 `yaml:"latitude"`
}

// ShadowConfig holds settings shared by every shadow map plus per-technique blocks.
type ShadowConfig struct {
	Resolution  int               `yaml:"resolution"`
	Bias        float32           `yaml:"bias"`
	NormalBias  float32           `yaml:"normal_bias"`
	Radius      float32           `yaml:"radius"`
	Near        float32           `yaml:"near"`
	Far         float32           `yaml:"far"`
	Directional DirectionalConfig `yaml:"directional"`
	CSM         CSMConfig         `yaml:"csm"`
	VSM         VSMConfig         `yaml:"vsm"`
}

// DirectionalConfig sizes the fixed origin-centered directional shadow frustum.
type DirectionalConfig struct {
	CameraSize float32 `yaml:"camera_size"`
	Distance   float32 `yaml:"distance"`
}

// CSMConfig holds cascaded shadow map settings.
type CSMConfig struct {
	Cascades    int     `yaml:"cascades"`
	MaxDistance float32 `yaml:"max_distance"`
	Lambda      float32 `yaml:"lambda"`
	Resolution  int     `yaml:"resolution"`
	LightMargin float32 `yaml:"light_margin"`
	Blend       bool    `yaml:"blend"`
	BlendRange  float32 `yaml:"blend_range"`
	Stabilize   bool    `yaml:"stabilize"`
}

// VSMConfig holds variance shadow map settings.
type VSMConfig struct {
	MinVariance            float32 `yaml:"min_variance"`
	LightBleedingReduction float32 `yaml:"light_bleeding_reduction"`
	BlurSize               int     `yaml:"blur_size"`
	BlurSigma              float32 `yaml:"blur_sigma"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level   string `yaml:"level"`
	LogFile string `yaml:"log_file"`
}

// DebugConfig holds diagnostic output settings.
type DebugConfig struct {
	DumpDir string `yaml:"dump_dir"` // Write shadow maps here after the last frame
}

// Default returns a Config with sensible default values.
func Default() *Config {
	return &Config{
		Window: WindowConfig{
			Width:      1280,
			Height:     720,
			Fullscreen: false,
			VSync:      true,
			Headless:   false,
			Frames:     0,
		},
		Sun: SunConfig{
			Longitude: 45,
			Latitude:  50,
		},
		Shadows: ShadowConfig{
			Resolution: 1024,
			Bias:       0.001,
			NormalBias: 0,
			Radius:     1,
			Near:       0.5,
			Far:        500,
			Directional: DirectionalConfig{
				CameraSize: 20,
				Distance:   50,
			},
			CSM: CSMConfig{
				Cascades:    3,
				MaxDistance: 300,
				Lambda:      0.5,
				Resolution:  1024,
				LightMargin: 200,
				Blend:       true,
				BlendRange:  0.1,
				Stabilize:   false,
			},
			VSM: VSMConfig{
				MinVariance:            0.00002,
				LightBleedingReduction: 0.2,
				BlurSize:               2,
				BlurSigma:              1.5,
			},
		},
		Logging: LoggingConfig{
			Level:   "info",
			LogFile: "",
		},
	}
}

// Validate checks ranges that would otherwise surface as invalid-argument
// errors deep inside the shadow package.
func (c *Config) Validate() error {
	s := c.Shadows
	switch {
	case c.Window.Width <= 0 || c.Window.Height <= 0:
		return fmt.Errorf("%w: window size %dx%d", ErrInvalid, c.Window.Width, c.Window.Height)
	case s.Resolution <= 0:
		return fmt.Errorf("%w: shadows.resolution %d", ErrInvalid, s.Resolution)
	case s.Near <= 0 || s.Far <= s.Near:
		return fmt.Errorf("%w: shadows near/far %v/%v", ErrInvalid, s.Near, s.Far)
	case s.CSM.Cascades < 1:
		return fmt.Errorf("%w: shadows.csm.cascades %d", ErrInvalid, s.CSM.Cascades)
	case s.CSM.Lambda < 0 || s.CSM.Lambda > 1:
		return fmt.Errorf("%w: shadows.csm.lambda %v", ErrInvalid, s.CSM.Lambda)
	case s.CSM.BlendRange < 0 || s.CSM.BlendRange > 1:
		return fmt.Errorf("%w: shadows.csm.blend_range %v", ErrInvalid, s.CSM.BlendRange)
	case s.CSM.Resolution <= 0:
		return fmt.Errorf("%w: shadows.csm.resolution %d", ErrInvalid, s.CSM.Resolution)
	case s.VSM.LightBleedingReduction < 0 || s.VSM.LightBleedingReduction > 1:
		return fmt.Errorf("%w: shadows.vsm.light_bleeding_reduction %v", ErrInvalid, s.VSM.LightBleedingReduction)
	case s.VSM.BlurSize < 0:
		return fmt.Errorf("%w: shadows.vsm.blur_size %d", ErrInvalid, s.VSM.BlurSize)
	}
	return nil
}
