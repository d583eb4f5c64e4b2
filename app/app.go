// Package app wires the camera, the detector and the renderer together.
package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/esimov/facecam-gl/config"
	"github.com/esimov/facecam-gl/detector"
	"github.com/esimov/facecam-gl/frame"
	"github.com/esimov/facecam-gl/log"
	"github.com/esimov/facecam-gl/renderer"
)

// UnsupportedMessage is shown to the user when WebGL is not available.
const UnsupportedMessage = "Unable to initialise WebGL"

// Alerter shows a blocking notification to the user.
type Alerter interface {
	Alert(msg string)
}

// Detector is the landmark detector the camera frames are sent to.
type Detector interface {
	Load(ctx context.Context) error
	OnResults(fn detector.ResultsFunc)
	Send(ctx context.Context, in detector.Input) error
}

// Env holds the collaborators the app is built from.
type Env struct {
	Config   config.Config
	Surface  renderer.Surface
	Alerter  Alerter
	Images   ImageLoader
	Detector Detector
}

// App is the running demo.
type App struct {
	Renderer *renderer.Renderer
	Detector Detector
	Handler  *Handler
}

// Setup builds the renderer, loads the detector and registers the result
// handler. A missing WebGL context is reported to the user once; a shader
// or link failure is only logged. Neither stops the app: frames are still
// detected, nothing is drawn.
func Setup(ctx context.Context, env Env) (*App, error) {
	logger := log.New("app")

	var drawer Drawer
	r, err := renderer.New(env.Surface)
	switch {
	case errors.Is(err, renderer.ErrUnsupported):
		logger.Errorf("error: %v", err)
		env.Alerter.Alert(UnsupportedMessage)
	case err != nil:
		logger.Errorf("render pipeline unavailable: %v", err)
	default:
		drawer = r
	}

	if err := env.Detector.Load(ctx); err != nil {
		if r != nil {
			r.Release()
		}
		return nil, fmt.Errorf("app: load detector: %w", err)
	}

	h := NewHandler(env.Images, drawer, env.Config.Render)
	env.Detector.OnResults(h.OnResults)

	return &App{
		Renderer: r,
		Detector: env.Detector,
		Handler:  h,
	}, nil
}

// OnFrame submits a camera frame to the detector. It is the camera frame
// callback.
func (a *App) OnFrame(ctx context.Context, f *frame.Frame) error {
	return a.Detector.Send(ctx, detector.Input{Image: f})
}

// Close releases the GPU resources.
func (a *App) Close() {
	if a.Renderer != nil {
		a.Renderer.Release()
	}
}
