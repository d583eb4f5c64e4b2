package app

import (
	"bytes"
	"context"
	"fmt"
	"sync/atomic"

	"github.com/esimov/facecam-gl/config"
	"github.com/esimov/facecam-gl/detector"
	"github.com/esimov/facecam-gl/frame"
	"github.com/esimov/facecam-gl/log"
)

// ImageLoader loads and decodes an image by path.
type ImageLoader interface {
	Load(ctx context.Context, path string) (*frame.Frame, error)
}

// Drawer draws a frame to the output surface.
type Drawer interface {
	Draw(f *frame.Frame) error
}

// HTTPImageLoader fetches images relative to the page and decodes them.
type HTTPImageLoader struct {
	*detector.HTTPLoader
}

// Load fetches and decodes the image at path.
func (l HTTPImageLoader) Load(ctx context.Context, path string) (*frame.Frame, error) {
	data, err := l.HTTPLoader.Load(ctx, path)
	if err != nil {
		return nil, err
	}
	return frame.Decode(bytes.NewReader(data))
}

// Handler is the detection result callback. On every result it loads the
// placeholder image and draws either the placeholder or the frame the
// result was computed from. Landmarks are not consulted.
type Handler struct {
	images      ImageLoader
	drawer      Drawer
	placeholder string
	source      string
	logger      log.Logger

	drawn   atomic.Uint64
	skipped atomic.Uint64
}

// NewHandler returns a result handler drawing through d. A nil drawer means
// no renderer could be built: results are accepted and nothing is drawn.
func NewHandler(images ImageLoader, d Drawer, cfg config.Render) *Handler {
	return &Handler{
		images:      images,
		drawer:      d,
		placeholder: cfg.Placeholder,
		source:      cfg.Source,
		logger:      log.New("app"),
	}
}

// OnResults implements detector.ResultsFunc.
func (h *Handler) OnResults(ctx context.Context, res detector.Results) error {
	img, err := h.images.Load(ctx, h.placeholder)
	if err != nil {
		return fmt.Errorf("app: load %s: %w", h.placeholder, err)
	}

	target := img
	if h.source == config.SourceCamera {
		target = res.Image
	}
	if h.drawer == nil {
		h.skipped.Add(1)
		return nil
	}
	if err := h.drawer.Draw(target); err != nil {
		return fmt.Errorf("app: draw: %w", err)
	}
	h.drawn.Add(1)

	return nil
}

// Drawn returns the number of frames drawn.
func (h *Handler) Drawn() uint64 {
	return h.drawn.Load()
}

// Skipped returns the number of results not drawn for lack of a renderer.
func (h *Handler) Skipped() uint64 {
	return h.skipped.Load()
}
