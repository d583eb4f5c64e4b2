//go:build js && wasm

package camera

import (
	"context"
	"fmt"
	"sync"
	"syscall/js"

	"github.com/esimov/facecam-gl/frame"
)

// Webcam streams a user-media video element through a Pump, one
// requestAnimationFrame tick per frame.
type Webcam struct {
	window js.Value
	video  js.Value

	// Scratch canvas used to read back the video pixels.
	canvas js.Value
	ctx    js.Value

	width, height int
	pump          *Pump

	mu       sync.Mutex
	reqID    js.Value
	renderer js.Func
	done     chan struct{}
	stopOnce sync.Once
	err      error
}

// Start attaches the user's camera to the video element and starts pumping
// frames into opts.OnFrame. It returns once the stream is playing.
func Start(ctx context.Context, video js.Value, opts Options) (*Webcam, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	window := js.Global()
	doc := window.Get("document")

	w := &Webcam{
		window: window,
		video:  video,
		width:  opts.Width,
		height: opts.Height,
		done:   make(chan struct{}),
	}
	w.canvas = doc.Call("createElement", "canvas")
	w.canvas.Set("width", opts.Width)
	w.canvas.Set("height", opts.Height)
	w.ctx = w.canvas.Call("getContext", "2d")
	w.pump = NewPump(w.grab, opts.OnFrame)

	// If we don't do this, the stream will not be played.
	video.Set("autoplay", 1)
	video.Set("playsinline", 1) // important for iPhones

	succCh := make(chan struct{})
	errCh := make(chan error, 1)

	// The callbacks stay alive until the promise settles, even when Start
	// gives up on ctx before that.
	var settle settler
	success := js.FuncOf(func(this js.Value, args []js.Value) interface{} {
		settle.done()
		stream := args[0]
		go func() {
			select {
			case <-ctx.Done():
				stopTracks(stream)
			default:
				video.Set("srcObject", stream)
				video.Call("play")
				close(succCh)
			}
		}()
		return nil
	})
	failure := js.FuncOf(func(this js.Value, args []js.Value) interface{} {
		settle.done()
		errCh <- fmt.Errorf("camera: failed initialising the camera: %s", args[0].Call("toString").String())
		return nil
	})
	settle.add(success.Release, failure.Release)

	videoSize := js.Global().Get("Object").New()
	videoSize.Set("width", opts.Width)
	videoSize.Set("height", opts.Height)

	constraints := js.Global().Get("Object").New()
	constraints.Set("video", videoSize)
	constraints.Set("audio", false)

	mediaDevices := window.Get("navigator").Get("mediaDevices")
	if mediaDevices.IsUndefined() {
		settle.done()
		return nil, fmt.Errorf("camera: media devices are not available")
	}
	promise := mediaDevices.Call("getUserMedia", constraints)
	promise.Call("then", success, failure)

	select {
	case <-succCh:
	case err := <-errCh:
		return nil, err
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	w.renderer = js.FuncOf(func(this js.Value, args []js.Value) interface{} {
		go w.tick(ctx)
		return nil
	})
	w.schedule()

	return w, nil
}

// tick runs one pump step and only then requests the next animation frame,
// so that a frame is never submitted while the previous one is in flight.
func (w *Webcam) tick(ctx context.Context) {
	if err := w.pump.Step(ctx); err != nil {
		w.stop(err)
		return
	}
	w.schedule()
}

func (w *Webcam) schedule() {
	w.mu.Lock()
	defer w.mu.Unlock()

	select {
	case <-w.done:
		return
	default:
	}
	w.reqID = w.window.Call("requestAnimationFrame", w.renderer)
}

// grab draws the current video frame into the scratch canvas and copies the
// pixels into Go memory.
func (w *Webcam) grab(ctx context.Context) (*frame.Frame, error) {
	w.ctx.Call("drawImage", w.video, 0, 0, w.width, w.height)
	rgba := w.ctx.Call("getImageData", 0, 0, w.width, w.height).Get("data")

	// Convert the rgba value of type Uint8ClampedArray to Uint8Array in order to
	// be able to transfer it from Javascript to Go via the js.CopyBytesToGo function.
	uint8Arr := js.Global().Get("Uint8Array").New(rgba.Get("buffer"))

	// Every frame gets its own buffer; the consumer may still hold the previous one.
	pix := make([]byte, w.width*w.height*4)
	js.CopyBytesToGo(pix, uint8Arr)

	return frame.FromPixels(pix, w.width, w.height)
}

func (w *Webcam) stop(err error) {
	w.stopOnce.Do(func() {
		w.mu.Lock()
		w.window.Call("cancelAnimationFrame", w.reqID)
		w.err = err
		close(w.done)
		w.mu.Unlock()
	})
}

// Stop stops the frame loop and the camera tracks.
func (w *Webcam) Stop() {
	w.stop(nil)

	stopTracks(w.video.Get("srcObject"))
}

func stopTracks(stream js.Value) {
	if !stream.Truthy() {
		return
	}
	tracks := stream.Call("getTracks")
	for i := 0; i < tracks.Length(); i++ {
		tracks.Index(i).Call("stop")
	}
}

// Wait blocks until the loop stops and returns the error that stopped it.
func (w *Webcam) Wait() error {
	<-w.done
	w.renderer.Release()
	return w.err
}

// Pump exposes the frame counters.
func (w *Webcam) Pump() *Pump {
	return w.pump
}
