package config

import "flag"

var (
	flagConfig   = flag.String("config", "", "Path to config file")
	flagDebug    = flag.Bool("debug", false, "Enable debug logging")
	flagHeadless = flag.Bool("headless", false, "Run without a window using CPU render targets")
	flagWidth    = flag.Int("width", 0, "Window width")
	flagHeight   = flag.Int("height", 0, "Window height")
	flagCascades = flag.Int("cascades", 0, "Number of shadow cascades")
	flagFrames   = flag.Int("frames", -1, "Frames to run (0 = until closed)")
	flagDump     = flag.String("dump", "", "Directory to write shadow maps to on exit")
)

// ParseFlags parses command-line flags. Call this early in main().
func ParseFlags() {
	flag.Parse()
}

// ConfigPath returns the explicit config path if provided via --config flag.
func ConfigPath() string {
	return *flagConfig
}

// applyFlags applies CLI flag overrides to the config.
func applyFlags(cfg *Config) {
	if *flagDebug {
		cfg.Logging.Level = "debug"
	}
	if *flagHeadless {
		cfg.Window.Headless = true
	}
	if *flagWidth > 0 {
		cfg.Window.Width = *flagWidth
	}
	if *flagHeight > 0 {
		cfg.Window.Height = *flagHeight
	}
	if *flagCascades > 0 {
		cfg.Shadows.CSM.Cascades = *flagCascades
	}
	if *flagFrames >= 0 {
		cfg.Window.Frames = *flagFrames
	}
	if *flagDump != "" {
		cfg.Debug.DumpDir = *flagDump
	}
}
