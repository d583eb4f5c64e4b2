//go:build js && wasm

package main

import (
	"context"

	"github.com/esimov/facecam-gl/app"
	"github.com/esimov/facecam-gl/config"
	"github.com/esimov/facecam-gl/log"
)

var logger = log.New("facecam")

func main() {
	log.SetConsoleSink()

	page, err := app.LookupPage("input_video", "output_canvas")
	if err != nil {
		logger.Error(err)
		return
	}

	ctx := context.Background()
	cfg, err := app.LoadConfig(ctx, page)
	if err != nil {
		logger.Errorf("invalid config.toml, using defaults: %v", err)
		cfg = config.Default()
	}
	if level, err := log.ParseLevel(cfg.LogLevel); err == nil {
		log.SetLevel(level)
	}

	if err := app.Run(ctx, page, cfg); err != nil {
		logger.Error(err)
	}
}
