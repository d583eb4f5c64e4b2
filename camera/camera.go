// Package camera pumps webcam frames into a per-frame callback.
package camera

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/esimov/facecam-gl/frame"
	"github.com/esimov/facecam-gl/log"
)

// Default capture resolution.
const (
	DefaultWidth  = 1280
	DefaultHeight = 720
)

// FrameFunc is called once per captured frame. The next frame is not grabbed
// before it returns.
type FrameFunc func(ctx context.Context, f *frame.Frame) error

// GrabFunc reads the current frame from the capture device.
type GrabFunc func(ctx context.Context) (*frame.Frame, error)

// Options configures the camera source.
type Options struct {
	Width   int
	Height  int
	OnFrame FrameFunc
}

// Validate checks the capture size and the callback.
func (o Options) Validate() error {
	if o.Width <= 0 || o.Height <= 0 {
		return fmt.Errorf("camera: invalid capture size %dx%d", o.Width, o.Height)
	}
	if o.OnFrame == nil {
		return errors.New("camera: missing frame callback")
	}
	return nil
}

// Pump moves frames from a grabber to the frame callback, one at a time.
type Pump struct {
	grab    GrabFunc
	onFrame FrameFunc
	logger  log.Logger

	frames  atomic.Uint64
	dropped atomic.Uint64
}

// NewPump returns a pump reading from grab and feeding onFrame.
func NewPump(grab GrabFunc, onFrame FrameFunc) *Pump {
	return &Pump{
		grab:    grab,
		onFrame: onFrame,
		logger:  log.New("camera"),
	}
}

// Step grabs one frame and waits for the callback to finish with it.
// A callback error is logged and doesn't stop the pump; a grab error is
// returned.
func (p *Pump) Step(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	f, err := p.grab(ctx)
	if err != nil {
		return fmt.Errorf("camera: grab frame: %w", err)
	}
	p.frames.Add(1)

	if err := p.onFrame(ctx, f); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		p.dropped.Add(1)
		p.logger.Warningf("frame %d: %v", p.frames.Load(), err)
	}
	return nil
}

// Run steps the pump until the context is done or grabbing fails.
func (p *Pump) Run(ctx context.Context) error {
	for {
		if err := p.Step(ctx); err != nil {
			return err
		}
	}
}

// Frames returns the number of frames grabbed so far.
func (p *Pump) Frames() uint64 {
	return p.frames.Load()
}

// Dropped returns the number of frames whose callback failed.
func (p *Pump) Dropped() uint64 {
	return p.dropped.Load()
}

// settler runs its release functions once, when the first of a group of
// one-shot callbacks fires.
type settler struct {
	mu      sync.Mutex
	settled bool
	release []func()
}

func (s *settler) add(release ...func()) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.settled {
		for _, r := range release {
			r()
		}
		return
	}
	s.release = append(s.release, release...)
}

func (s *settler) done() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.settled {
		return
	}
	s.settled = true
	for _, r := range s.release {
		r()
	}
	s.release = nil
}
