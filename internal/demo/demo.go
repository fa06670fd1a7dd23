// Package demo implements the shadow demo's frame loop and state management.
package demo

import (
	"fmt"
	"time"

	"github.com/veandco/go-sdl2/sdl"
	"go.uber.org/zap"

	"github.com/Faultbox/midgard-shadows/internal/config"
	"github.com/Faultbox/midgard-shadows/internal/demo/world"
	"github.com/Faultbox/midgard-shadows/internal/engine/debug"
	"github.com/Faultbox/midgard-shadows/internal/engine/framebuffer"
	"github.com/Faultbox/midgard-shadows/internal/engine/input"
	"github.com/Faultbox/midgard-shadows/internal/engine/renderer"
	"github.com/Faultbox/midgard-shadows/internal/engine/rendertarget"
	"github.com/Faultbox/midgard-shadows/internal/engine/window"
	"github.com/Faultbox/midgard-shadows/internal/logger"
	"github.com/Faultbox/midgard-shadows/pkg/math"
)

const title = "Midgard Shadows"

// sunStep is how far the arrow keys move the sun, in degrees.
const sunStep = 5

// sunKeys maps arrow keys to longitude and latitude steps.
var sunKeys = map[sdl.Scancode][2]float32{
	sdl.SCANCODE_LEFT:  {-sunStep, 0},
	sdl.SCANCODE_RIGHT: {sunStep, 0},
	sdl.SCANCODE_UP:    {0, sunStep},
	sdl.SCANCODE_DOWN:  {0, -sunStep},
}

// panKeys maps keys to orbit center moves as forward, right and up.
var panKeys = map[sdl.Scancode]math.Vec3{
	sdl.SCANCODE_W: {X: 1},
	sdl.SCANCODE_S: {X: -1},
	sdl.SCANCODE_D: {Y: 1},
	sdl.SCANCODE_A: {Y: -1},
	sdl.SCANCODE_E: {Z: 1},
	sdl.SCANCODE_Q: {Z: -1},
}

// probePoint is logged once a second in headless runs.
var probePoint = math.Vec3{X: 4, Z: 4}

// Demo is the main demo instance.
type Demo struct {
	cfg     *config.Config
	running bool
	frame   int

	world   *world.World
	shadows *world.Shadows
	watcher *config.Watcher

	// Nil in headless runs.
	window   *window.Window
	renderer *renderer.Renderer
	input    *input.Input
}

// New creates the demo. A non-empty configPath is watched for changes.
func New(cfg *config.Config, configPath string) (*Demo, error) {
	log := logger.Named("demo")
	log.Info("initializing demo",
		zap.Int("width", cfg.Window.Width),
		zap.Int("height", cfg.Window.Height),
		zap.Bool("headless", cfg.Window.Headless),
	)

	d := &Demo{cfg: cfg}

	var err error
	if d.world, err = world.New(cfg); err != nil {
		return nil, err
	}

	var factory rendertarget.Factory
	if cfg.Window.Headless {
		factory = rendertarget.NewMemoryFactory()
	} else {
		// Create window (this also creates OpenGL context)
		if d.window, err = window.New(title, cfg.Window); err != nil {
			return nil, fmt.Errorf("failed to create window: %w", err)
		}

		// Create renderer (AFTER window, since OpenGL context must exist)
		d.renderer, err = renderer.New(renderer.Config{
			Width:  cfg.Window.Width,
			Height: cfg.Window.Height,
		})
		if err != nil {
			d.window.Close()
			return nil, fmt.Errorf("failed to create renderer: %w", err)
		}
		d.input = input.New()
		factory = framebuffer.NewFactory()
	}

	if d.shadows, err = world.NewShadows(d.world, factory, cfg.Shadows); err != nil {
		d.Close()
		return nil, err
	}

	if configPath != "" {
		if d.watcher, err = config.Watch(configPath); err != nil {
			log.Warn("config hot reload disabled", zap.String("path", configPath), zap.Error(err))
		}
	}

	log.Info("demo initialized successfully")
	return d, nil
}

// Run starts the frame loop. It returns when the window is closed, Escape is
// pressed or the configured number of frames has run. A headless run without
// a frame budget renders a single frame.
func (d *Demo) Run() error {
	d.running = true
	log := logger.Named("demo")

	frames := d.cfg.Window.Frames
	if d.headless() && frames == 0 {
		frames = 1
	}

	// Timing
	lastTime := time.Now()
	frameCount := 0
	fpsTimer := time.Now()

	log.Info("starting frame loop", zap.Int("frames", frames))

	for d.running {
		now := time.Now()
		dt := now.Sub(lastTime).Seconds()
		lastTime = now

		if !d.headless() {
			if d.input.Update() {
				break
			}
			d.handleInput()
		}

		d.pollConfig()

		if err := d.update(float32(dt)); err != nil {
			return fmt.Errorf("update error: %w", err)
		}
		if err := d.render(); err != nil {
			return fmt.Errorf("render error: %w", err)
		}

		d.frame++
		if frames > 0 && d.frame >= frames {
			d.running = false
		}

		// FPS counter
		frameCount++
		if time.Since(fpsTimer) >= time.Second || !d.running {
			log.Debug("fps",
				zap.Int("count", frameCount),
				zap.String("dt", fmt.Sprintf("%.2fms", dt*1000)),
			)
			if d.headless() {
				d.logProbe()
			}
			frameCount = 0
			fpsTimer = time.Now()
		}
	}

	log.Info("frame loop stopped", zap.Int("frames", d.frame))

	if d.cfg.Debug.DumpDir != "" {
		files, err := d.shadows.Dump(debug.NewDumper(d.cfg.Debug.DumpDir, "frame"))
		if err != nil {
			return fmt.Errorf("dumping shadow maps: %w", err)
		}
		log.Info("shadow maps dumped", zap.Strings("files", files))
	}
	return nil
}

// Close releases shadow targets, the watcher, the renderer and the window.
func (d *Demo) Close() {
	logger.Named("demo").Info("closing demo")

	if d.watcher != nil {
		if err := d.watcher.Close(); err != nil {
			logger.Named("demo").Warn("closing config watcher", zap.Error(err))
		}
		d.watcher = nil
	}
	if d.shadows != nil {
		d.shadows.Dispose()
	}
	if d.renderer != nil {
		d.renderer.Close()
		d.renderer = nil
	}
	if d.window != nil {
		d.window.Close()
		d.window = nil
	}
}

func (d *Demo) headless() bool {
	return d.window == nil
}

func (d *Demo) handleInput() {
	for _, event := range d.input.Events() {
		switch event.Type {
		case input.EventWindowResize:
			d.renderer.Resize(event.Width, event.Height)
			d.world.SetAspect(event.Width, event.Height)
		case input.EventMouseDown:
			if event.Button == sdl.BUTTON_RIGHT {
				d.logCascadeAt(event.MouseX, event.MouseY)
			}
		}
	}

	if d.input.IsKeyPressed(sdl.SCANCODE_ESCAPE) {
		d.running = false
	}
	for key, step := range sunKeys {
		if d.input.IsKeyPressed(key) {
			d.moveSun(step[0], step[1])
		}
	}
	for key, move := range panKeys {
		if d.input.IsKeyPressed(key) {
			d.world.Orbit.HandleMovement(move.X, move.Y, move.Z)
		}
	}

	if dx, dy := d.input.Drag(sdl.BUTTON_LEFT); dx != 0 || dy != 0 {
		d.world.Orbit.HandleDrag(float32(dx), float32(dy))
	}
	if wheel := d.input.Wheel(); wheel != 0 {
		d.world.Orbit.HandleZoom(float32(wheel))
	}
}

// logCascadeAt reports which cascade covers the ground under the cursor.
func (d *Demo) logCascadeAt(x, y int) {
	w, h := d.window.GetSize()
	p, ok := d.world.PickGround(x, y, w, h)
	if !ok {
		return
	}
	cascade, blend := d.shadows.CascadeAt(p)
	logger.Named("demo").Info("picked ground",
		zap.Any("point", p),
		zap.Int("cascade", cascade),
		zap.Float32("blend", blend),
	)
}

func (d *Demo) moveSun(dLon, dLat float32) {
	sun := &d.cfg.Sun
	sun.Longitude += dLon
	sun.Latitude = math.Clamp(sun.Latitude+dLat, 1, 90)
	d.world.SetSun(sun.Longitude, sun.Latitude)
}

// pollConfig applies a reloaded config without blocking the frame.
func (d *Demo) pollConfig() {
	if d.watcher == nil {
		return
	}
	select {
	case cfg := <-d.watcher.Changes():
		d.applyConfig(cfg)
	default:
	}
}

func (d *Demo) applyConfig(cfg *config.Config) {
	log := logger.Named("demo")
	if err := d.shadows.Apply(cfg.Shadows); err != nil {
		log.Warn("rejected shadow settings", zap.Error(err))
		return
	}

	d.world.SetSun(cfg.Sun.Longitude, cfg.Sun.Latitude)
	if d.window != nil && cfg.Window.VSync != d.cfg.Window.VSync {
		d.window.SetVSync(cfg.Window.VSync)
	}

	// Size, mode and frame budget only apply at startup.
	vsync := cfg.Window.VSync
	cfg.Window = d.cfg.Window
	cfg.Window.VSync = vsync
	d.cfg = cfg
	log.Info("config reloaded",
		zap.Float32("sun_longitude", cfg.Sun.Longitude),
		zap.Float32("sun_latitude", cfg.Sun.Latitude),
	)
}

// update advances the scene and positions every shadow camera.
func (d *Demo) update(dt float32) error {
	d.world.Animate(dt)
	d.world.Update()
	return d.shadows.Update()
}

// render runs the shadow passes of the current frame.
func (d *Demo) render() error {
	casters := d.world.Casters()
	if d.headless() {
		return d.shadows.RenderHeadless(casters)
	}

	stats, err := RenderShadows(d.renderer, d.shadows, casters)
	if err != nil {
		return err
	}
	d.window.SwapBuffers()

	if d.frame == 0 {
		logger.Named("demo").Debug("first frame",
			zap.Int("depth_passes", stats.DepthPasses),
			zap.Int("draw_calls", stats.DrawCalls),
			zap.Int("blur_passes", stats.BlurPasses),
		)
	}
	return nil
}

func (d *Demo) logProbe() {
	s, err := d.shadows.Probe(probePoint)
	if err != nil {
		logger.Named("demo").Warn("shadow probe failed", zap.Error(err))
		return
	}
	logger.Named("demo").Info("shadow probe",
		zap.Any("point", probePoint),
		zap.Int("cascade", s.Cascade),
		zap.Float32("blend", s.Blend),
		zap.Float32("directional", s.Directional),
		zap.Float32("cascaded", s.Cascaded),
		zap.Float32("variance", s.Variance),
	)
}
