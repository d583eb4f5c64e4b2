// Package detector finds faces and facial landmarks in camera frames.
//
// It mirrors the interface of a landmark detector running alongside the
// camera: frames go in through Send, results come back through the callback
// registered with OnResults.
package detector

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/chewxy/math32"
	"github.com/esimov/facecam-gl/frame"
	"github.com/esimov/facecam-gl/log"
	pigo "github.com/esimov/pigo/core"
	"golang.org/x/sync/errgroup"
)

// ErrNotLoaded is returned by Send before the cascades have been loaded.
var ErrNotLoaded = errors.New("detector: cascades not loaded")

const (
	// qNorm maps the unbounded detection score onto a [0,1] confidence:
	// a score of qNorm gives a confidence of ~0.63.
	qNorm = 10
	// trackIoU is the overlap above which a face counts as tracked from the
	// previous frame, or as a duplicate of a face already kept.
	trackIoU = 0.3
)

// Options configures the detector.
type Options struct {
	MaxNumFaces            int     `toml:"max_num_faces"`
	RefineLandmarks        bool    `toml:"refine_landmarks"`
	MinDetectionConfidence float64 `toml:"min_detection_confidence"`
	MinTrackingConfidence  float64 `toml:"min_tracking_confidence"`
}

// DefaultOptions returns the settings used by the demo page.
func DefaultOptions() Options {
	return Options{
		MaxNumFaces:            1,
		RefineLandmarks:        true,
		MinDetectionConfidence: 0.5,
		MinTrackingConfidence:  0.5,
	}
}

// Validate checks the option ranges.
func (o Options) Validate() error {
	if o.MaxNumFaces < 1 {
		return fmt.Errorf("detector: max faces must be at least 1, got %d", o.MaxNumFaces)
	}
	if o.MinDetectionConfidence < 0 || o.MinDetectionConfidence > 1 {
		return fmt.Errorf("detector: min detection confidence %v out of [0,1]", o.MinDetectionConfidence)
	}
	if o.MinTrackingConfidence < 0 || o.MinTrackingConfidence > 1 {
		return fmt.Errorf("detector: min tracking confidence %v out of [0,1]", o.MinTrackingConfidence)
	}
	return nil
}

// Landmark is a named facial point, normalized to [0,1] by the image size.
type Landmark struct {
	Name string
	X, Y float64
}

// Face is a detected face region in pixels.
type Face struct {
	Row, Col   int
	Scale      int
	Confidence float64
}

// Input is a single frame submitted for detection.
type Input struct {
	Image *frame.Frame
}

// Results is handed to the result callback once per Send.
type Results struct {
	Image *frame.Frame
	Faces []Face
	// MultiFaceLandmarks has one entry per face in Faces; nil when no face
	// was found.
	MultiFaceLandmarks [][]Landmark
}

// ResultsFunc receives the detection results.
type ResultsFunc func(ctx context.Context, res Results) error

// engine is the detection backend. pigoEngine is the only production one.
type engine interface {
	detect(img pigo.ImageParams) []pigo.Detection
	// landmarks returns the points of one face in pixel coordinates.
	landmarks(det pigo.Detection, img pigo.ImageParams, refine bool) []Landmark
}

// Detector runs face and landmark detection on submitted frames.
type Detector struct {
	mu        sync.Mutex
	opts      Options
	loader    Loader
	engine    engine
	onResults ResultsFunc
	tracked   []Face
	logger    log.Logger
}

// New returns a detector fetching its cascades through loader.
func New(loader Loader, opts Options) (*Detector, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	return &Detector{
		opts:   opts,
		loader: loader,
		logger: log.New("detector"),
	}, nil
}

// Options returns the detector settings.
func (d *Detector) Options() Options {
	return d.opts
}

// Load fetches and unpacks the detection cascades.
func (d *Detector) Load(ctx context.Context) error {
	e, err := loadPigo(ctx, d.loader, d.opts.RefineLandmarks)
	if err != nil {
		return err
	}
	d.logger.Infof("cascades loaded (refine landmarks: %t)", d.opts.RefineLandmarks)

	d.mu.Lock()
	d.engine = e
	d.mu.Unlock()

	return nil
}

// OnResults registers the result callback, replacing any previous one.
func (d *Detector) OnResults(fn ResultsFunc) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.onResults = fn
}

// Send runs detection on the frame and calls the result callback before
// returning its error. Calls are serialized: a frame is not processed while
// a previous one is still in flight.
func (d *Detector) Send(ctx context.Context, in Input) error {
	if err := in.Image.Validate(); err != nil {
		return err
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	if d.engine == nil {
		return ErrNotLoaded
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	width, height := in.Image.Width, in.Image.Height
	img := pigo.ImageParams{
		Pixels: frame.Grayscale(in.Image),
		Rows:   height,
		Cols:   width,
		Dim:    width,
	}

	faces := d.selectFaces(d.engine.detect(img))
	d.tracked = faces

	res := Results{Image: in.Image, Faces: faces}
	if len(faces) > 0 {
		res.MultiFaceLandmarks = make([][]Landmark, len(faces))

		g, gctx := errgroup.WithContext(ctx)
		for i, face := range faces {
			i, face := i, face
			g.Go(func() error {
				if err := gctx.Err(); err != nil {
					return err
				}
				det := pigo.Detection{Row: face.Row, Col: face.Col, Scale: face.Scale}
				points := d.engine.landmarks(det, img, d.opts.RefineLandmarks)
				for j := range points {
					points[j].X /= float64(width)
					points[j].Y /= float64(height)
				}
				res.MultiFaceLandmarks[i] = points
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return err
		}
	}

	if d.onResults == nil {
		return nil
	}
	return d.onResults(ctx, res)
}

// selectFaces filters the raw detections by confidence, using the tracking
// threshold for faces overlapping one from the previous frame, and keeps the
// best MaxNumFaces that don't overlap each other.
func (d *Detector) selectFaces(dets []pigo.Detection) []Face {
	var faces []Face
	for _, det := range dets {
		face := Face{
			Row:        det.Row,
			Col:        det.Col,
			Scale:      det.Scale,
			Confidence: confidence(det.Q),
		}
		threshold := d.opts.MinDetectionConfidence
		if d.isTracked(face) {
			threshold = d.opts.MinTrackingConfidence
		}
		if face.Confidence >= threshold {
			faces = append(faces, face)
		}
	}

	sort.SliceStable(faces, func(i, j int) bool {
		return faces[i].Confidence > faces[j].Confidence
	})

	// Drop the weaker of two detections covering the same face.
	kept := faces[:0]
	for _, face := range faces {
		if len(kept) == d.opts.MaxNumFaces {
			break
		}
		if !overlaps(face, kept) {
			kept = append(kept, face)
		}
	}
	return kept
}

func overlaps(face Face, others []Face) bool {
	for _, o := range others {
		if iou(face, o) > trackIoU {
			return true
		}
	}
	return false
}

func (d *Detector) isTracked(face Face) bool {
	return overlaps(face, d.tracked)
}

// confidence maps a detection score to [0,1].
func confidence(q float32) float64 {
	if q <= 0 {
		return 0
	}
	return float64(1 - math32.Exp(-q/qNorm))
}

// iou computes the intersection over union of two square face regions.
func iou(a, b Face) float64 {
	ax1, ay1 := a.Col-a.Scale/2, a.Row-a.Scale/2
	bx1, by1 := b.Col-b.Scale/2, b.Row-b.Scale/2
	ax2, ay2 := ax1+a.Scale, ay1+a.Scale
	bx2, by2 := bx1+b.Scale, by1+b.Scale

	w := min(ax2, bx2) - max(ax1, bx1)
	h := min(ay2, by2) - max(ay1, by1)
	if w <= 0 || h <= 0 {
		return 0
	}
	inter := float64(w * h)
	union := float64(a.Scale*a.Scale+b.Scale*b.Scale) - inter

	return inter / union
}
