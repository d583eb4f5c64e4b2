//go:build js && wasm

package app

import (
	"bytes"
	"context"
	"fmt"
	"net/url"
	"syscall/js"

	"github.com/esimov/facecam-gl/camera"
	"github.com/esimov/facecam-gl/config"
	"github.com/esimov/facecam-gl/detector"
	"github.com/esimov/facecam-gl/gl"
	"github.com/esimov/facecam-gl/log"
	"github.com/esimov/facecam-gl/renderer"
)

// Page holds the DOM elements the demo works with. They are looked up once
// by the caller and passed in.
type Page struct {
	Window js.Value
	Video  js.Value
	Canvas js.Value
}

// LookupPage finds the video and canvas elements by id.
func LookupPage(videoID, canvasID string) (Page, error) {
	window := js.Global()
	doc := window.Get("document")

	p := Page{
		Window: window,
		Video:  doc.Call("getElementById", videoID),
		Canvas: doc.Call("getElementById", canvasID),
	}
	if p.Video.IsNull() {
		return p, fmt.Errorf("app: no video element #%s", videoID)
	}
	if p.Canvas.IsNull() {
		return p, fmt.Errorf("app: no canvas element #%s", canvasID)
	}
	return p, nil
}

// Alert calls the `alert` Javascript function
func (p Page) Alert(msg string) {
	p.Window.Get("alert").Invoke(msg)
}

// Origin returns the page URL, used to resolve relative asset paths.
func (p Page) Origin() string {
	return p.Window.Get("location").Get("href").String()
}

// Run starts the demo on the page and blocks until the camera stops.
func Run(ctx context.Context, page Page, cfg config.Config) error {
	logger := log.New("app")

	base, err := url.Parse(page.Origin())
	if err != nil {
		return err
	}
	cascades, err := base.Parse(cfg.Render.CascadeURL)
	if err != nil {
		return fmt.Errorf("app: cascade url: %w", err)
	}

	det, err := detector.New(&detector.HTTPLoader{BaseURL: cascades.String()}, cfg.Detector)
	if err != nil {
		return err
	}

	// The canvas matches the captured frame size.
	page.Canvas.Set("width", cfg.Camera.Width)
	page.Canvas.Set("height", cfg.Camera.Height)

	a, err := Setup(ctx, Env{
		Config: cfg,
		Surface: renderer.SurfaceFunc(func() (gl.Context, error) {
			return gl.FromCanvas(page.Canvas)
		}),
		Alerter:  page,
		Images:   HTTPImageLoader{&detector.HTTPLoader{BaseURL: base.String()}},
		Detector: det,
	})
	if err != nil {
		return err
	}
	defer a.Close()

	webcam, err := camera.Start(ctx, page.Video, camera.Options{
		Width:   cfg.Camera.Width,
		Height:  cfg.Camera.Height,
		OnFrame: a.OnFrame,
	})
	if err != nil {
		page.Alert("Webcam not detected!")
		return err
	}
	logger.Infof("camera started at %dx%d", cfg.Camera.Width, cfg.Camera.Height)

	return webcam.Wait()
}

// LoadConfig reads config.toml from the page origin. A missing file yields
// the defaults.
func LoadConfig(ctx context.Context, page Page) (config.Config, error) {
	l := &detector.HTTPLoader{BaseURL: page.Origin()}
	data, err := l.Load(ctx, "config.toml")
	if err != nil {
		log.New("app").Debugf("using default config: %v", err)
		return config.Default(), nil
	}
	return config.Decode(bytes.NewReader(data))
}
