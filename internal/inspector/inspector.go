// Package inspector is an ImGui front end for tuning shadow settings live.
// The ImGui backend owns the window and the frame loop.
package inspector

import (
	"fmt"
	"time"

	"github.com/AllenDang/cimgui-go/backend"
	"github.com/AllenDang/cimgui-go/backend/sdlbackend"
	"github.com/AllenDang/cimgui-go/imgui"
	"github.com/sqweek/dialog"
	"go.uber.org/zap"

	"github.com/Faultbox/midgard-shadows/internal/config"
	"github.com/Faultbox/midgard-shadows/internal/demo"
	"github.com/Faultbox/midgard-shadows/internal/demo/world"
	"github.com/Faultbox/midgard-shadows/internal/engine/debug"
	"github.com/Faultbox/midgard-shadows/internal/engine/framebuffer"
	"github.com/Faultbox/midgard-shadows/internal/engine/renderer"
	"github.com/Faultbox/midgard-shadows/internal/logger"
)

const title = "Midgard Shadows Inspector"

// previewSize is the edge of the moments preview in pixels.
const previewSize = 256

// Inspector renders the demo scene's shadow maps and shows a settings panel.
type Inspector struct {
	cfg      *config.Config
	backend  backend.Backend[sdlbackend.SDLWindowFlags]
	renderer *renderer.Renderer
	world    *world.World
	shadows  *world.Shadows

	// Edited copies, applied on demand.
	settings config.ShadowConfig
	sun      config.SunConfig

	last   time.Time
	paused bool
	status string
	dumps  chan string // Directories picked in the file dialog
}

// New creates the inspector window and its GL resources.
func New(cfg *config.Config) (*Inspector, error) {
	log := logger.Named("inspector")
	in := &Inspector{
		cfg:      cfg,
		settings: cfg.Shadows,
		sun:      cfg.Sun,
		dumps:    make(chan string, 1),
	}

	var err error
	if in.world, err = world.New(cfg); err != nil {
		return nil, err
	}

	in.backend, err = backend.CreateBackend(sdlbackend.NewSDLBackend())
	if err != nil {
		return nil, fmt.Errorf("create backend: %w", err)
	}
	in.backend.SetBgColor(imgui.NewVec4(0.1, 0.1, 0.12, 1.0))
	in.backend.CreateWindow(title, cfg.Window.Width, cfg.Window.Height)

	// The backend leaves its GL context current.
	in.renderer, err = renderer.New(renderer.Config{
		Width:  cfg.Window.Width,
		Height: cfg.Window.Height,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create renderer: %w", err)
	}

	if in.shadows, err = world.NewShadows(in.world, framebuffer.NewFactory(), cfg.Shadows); err != nil {
		in.renderer.Close()
		return nil, err
	}

	log.Info("inspector initialized",
		zap.Int("width", cfg.Window.Width),
		zap.Int("height", cfg.Window.Height),
	)
	return in, nil
}

// Run blocks until the window is closed.
func (in *Inspector) Run() {
	in.last = time.Now()
	in.backend.Run(in.frame)
}

// Close releases the shadow targets and the renderer.
func (in *Inspector) Close() {
	logger.Named("inspector").Info("closing inspector")
	if in.shadows != nil {
		in.shadows.Dispose()
	}
	if in.renderer != nil {
		in.renderer.Close()
	}
}

func (in *Inspector) frame() {
	now := time.Now()
	dt := float32(now.Sub(in.last).Seconds())
	in.last = now

	size := imgui.MainViewport().WorkSize()
	in.world.SetAspect(int(size.X), int(size.Y))

	if !in.paused {
		in.world.Animate(dt)
	}
	in.world.Update()

	if err := in.shadows.Update(); err != nil {
		in.fail("shadow update failed", err)
	} else if _, err := demo.RenderShadows(in.renderer, in.shadows, in.world.Casters()); err != nil {
		in.fail("shadow render failed", err)
	}

	select {
	case dir := <-in.dumps:
		in.dump(dir)
	default:
	}

	in.drawPanel()
}

func (in *Inspector) fail(msg string, err error) {
	logger.Named("inspector").Warn(msg, zap.Error(err))
	in.status = fmt.Sprintf("%s: %v", msg, err)
}

// apply pushes the edited settings to the live shadow maps.
func (in *Inspector) apply() {
	if err := in.shadows.Apply(in.settings); err != nil {
		in.fail("rejected shadow settings", err)
		return
	}
	in.status = "settings applied"
}

// save writes the applied settings and the sun back to the config file. A
// running shadowdemo watching that file picks them up.
func (in *Inspector) save() {
	cfg := *in.cfg
	cfg.Shadows = in.shadows.Config()
	cfg.Sun = in.sun
	path, err := cfg.Save()
	if err != nil {
		in.fail("saving config failed", err)
		return
	}
	logger.Named("inspector").Info("config saved", zap.String("path", path))
	in.status = "saved " + path
}

// chooseDumpDir opens a native folder picker. The dialog blocks, so it runs
// off the render thread and hands the result back through a channel.
func (in *Inspector) chooseDumpDir() {
	go func() {
		dir, err := dialog.Directory().Title("Dump shadow maps").Browse()
		if err != nil {
			if err != dialog.ErrCancelled {
				logger.Named("inspector").Warn("folder dialog failed", zap.Error(err))
			}
			return
		}
		select {
		case in.dumps <- dir:
		default:
		}
	}()
}

func (in *Inspector) dump(dir string) {
	files, err := in.shadows.Dump(debug.NewDumper(dir, "inspect"))
	if err != nil {
		in.fail("dump failed", err)
		return
	}
	logger.Named("inspector").Info("shadow maps dumped", zap.Strings("files", files))
	in.status = fmt.Sprintf("wrote %d maps to %s", len(files), dir)
}
