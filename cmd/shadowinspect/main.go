// Package main is the entry point for the shadow settings inspector.
package main

import (
	"fmt"
	"os"
	"runtime"

	"go.uber.org/zap"

	"github.com/Faultbox/midgard-shadows/internal/config"
	"github.com/Faultbox/midgard-shadows/internal/inspector"
	"github.com/Faultbox/midgard-shadows/internal/logger"
)

func init() {
	// SDL and OpenGL calls must stay on the main thread
	runtime.LockOSThread()
}

func main() {
	config.ParseFlags()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Config error: %v\n", err)
		os.Exit(1)
	}

	if err := logger.Init(cfg.Logging.Level, cfg.Logging.LogFile); err != nil {
		fmt.Fprintf(os.Stderr, "Logger error: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	if cfg.Window.Headless {
		logger.Error("the inspector needs a window; use shadowdemo -headless instead")
		os.Exit(1)
	}

	in, err := inspector.New(cfg)
	if err != nil {
		logger.Error("failed to create inspector", zap.Error(err))
		os.Exit(1)
	}
	defer in.Close()

	in.Run()
	logger.Info("inspector closed normally")
}
