package detector

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/esimov/facecam-gl/frame"
	pigo "github.com/esimov/pigo/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeEngine returns the detections queued for each call in order.
type fakeEngine struct {
	frames  [][]pigo.Detection
	calls   int
	busy    int32
	delay   time.Duration
	overlap bool
}

func (e *fakeEngine) detect(img pigo.ImageParams) []pigo.Detection {
	if !atomic.CompareAndSwapInt32(&e.busy, 0, 1) {
		e.overlap = true
	}
	time.Sleep(e.delay)
	atomic.StoreInt32(&e.busy, 0)

	if e.calls >= len(e.frames) {
		return nil
	}
	dets := e.frames[e.calls]
	e.calls++
	return dets
}

func (e *fakeEngine) landmarks(det pigo.Detection, img pigo.ImageParams, refine bool) []Landmark {
	points := []Landmark{{Name: "face_center", X: float64(det.Col), Y: float64(det.Row)}}
	if refine {
		points = append(points, Landmark{Name: "lp93", X: float64(det.Col), Y: float64(det.Row + det.Scale/4)})
	}
	return points
}

// score returns the detection score that maps onto the given confidence.
func score(conf float64) float32 {
	for q := float32(0); q < 100; q += 0.01 {
		if confidence(q) >= conf {
			return q
		}
	}
	return 100
}

func newDetector(t *testing.T, opts Options, e engine) *Detector {
	t.Helper()
	d, err := New(nil, opts)
	require.NoError(t, err)
	d.engine = e
	return d
}

func TestOptionsValidate(t *testing.T) {
	assert.NoError(t, DefaultOptions().Validate())

	opts := DefaultOptions()
	opts.MaxNumFaces = 0
	assert.Error(t, opts.Validate())

	opts = DefaultOptions()
	opts.MinDetectionConfidence = 1.5
	assert.Error(t, opts.Validate())

	opts = DefaultOptions()
	opts.MinTrackingConfidence = -0.1
	assert.Error(t, opts.Validate())

	_, err := New(nil, opts)
	assert.Error(t, err)
}

func TestConfidence(t *testing.T) {
	assert.Equal(t, 0.0, confidence(-3))
	assert.Equal(t, 0.0, confidence(0))
	assert.InDelta(t, 0.632, confidence(qNorm), 1e-3)
	assert.Less(t, confidence(5), confidence(6))
	assert.Less(t, confidence(1000), 1.0+1e-9)
}

func TestIoU(t *testing.T) {
	a := Face{Row: 50, Col: 50, Scale: 20}
	assert.InDelta(t, 1.0, iou(a, a), 1e-9)
	assert.Equal(t, 0.0, iou(a, Face{Row: 200, Col: 200, Scale: 20}))

	// Half overlapping squares: 200 / (400 + 400 - 200).
	assert.InDelta(t, 1.0/3, iou(a, Face{Row: 50, Col: 60, Scale: 20}), 1e-9)
}

func TestSendNotLoaded(t *testing.T) {
	d, err := New(nil, DefaultOptions())
	require.NoError(t, err)

	err = d.Send(context.Background(), Input{Image: frame.New(4, 4)})
	assert.ErrorIs(t, err, ErrNotLoaded)

	err = d.Send(context.Background(), Input{})
	assert.ErrorIs(t, err, frame.ErrEmpty)
}

func TestSendDeliversResults(t *testing.T) {
	e := &fakeEngine{frames: [][]pigo.Detection{
		{{Row: 360, Col: 640, Scale: 200, Q: score(0.9)}},
	}}
	d := newDetector(t, DefaultOptions(), e)

	img := frame.New(1280, 720)
	var got Results
	d.OnResults(func(ctx context.Context, res Results) error {
		got = res
		return nil
	})
	require.NoError(t, d.Send(context.Background(), Input{Image: img}))

	assert.Same(t, img, got.Image)
	require.Len(t, got.Faces, 1)
	require.Len(t, got.MultiFaceLandmarks, 1)

	center := got.MultiFaceLandmarks[0][0]
	assert.Equal(t, "face_center", center.Name)
	assert.InDelta(t, 0.5, center.X, 1e-9)
	assert.InDelta(t, 0.5, center.Y, 1e-9)
	assert.Len(t, got.MultiFaceLandmarks[0], 2)
}

func TestSendWithoutFaces(t *testing.T) {
	d := newDetector(t, DefaultOptions(), &fakeEngine{})

	called := false
	d.OnResults(func(ctx context.Context, res Results) error {
		called = true
		assert.Nil(t, res.MultiFaceLandmarks)
		assert.Empty(t, res.Faces)
		return nil
	})
	require.NoError(t, d.Send(context.Background(), Input{Image: frame.New(8, 8)}))
	assert.True(t, called)
}

func TestSendReturnsCallbackError(t *testing.T) {
	d := newDetector(t, DefaultOptions(), &fakeEngine{})
	boom := errors.New("boom")
	d.OnResults(func(context.Context, Results) error { return boom })

	assert.ErrorIs(t, d.Send(context.Background(), Input{Image: frame.New(8, 8)}), boom)
}

func TestMaxNumFaces(t *testing.T) {
	e := &fakeEngine{frames: [][]pigo.Detection{{
		{Row: 100, Col: 100, Scale: 50, Q: score(0.6)},
		{Row: 100, Col: 400, Scale: 50, Q: score(0.95)},
		{Row: 100, Col: 700, Scale: 50, Q: score(0.8)},
		{Row: 400, Col: 400, Scale: 50, Q: score(0.1)},
	}}}
	opts := DefaultOptions()
	opts.MaxNumFaces = 2
	d := newDetector(t, opts, e)

	var faces []Face
	d.OnResults(func(ctx context.Context, res Results) error {
		faces = res.Faces
		return nil
	})
	require.NoError(t, d.Send(context.Background(), Input{Image: frame.New(800, 600)}))

	require.Len(t, faces, 2)
	assert.Equal(t, 400, faces[0].Col)
	assert.Equal(t, 700, faces[1].Col)
}

func TestOverlappingDetectionsReportOneFace(t *testing.T) {
	// Two clusters of the same face, as pigo returns for sample.jpg.
	e := &fakeEngine{frames: [][]pigo.Detection{{
		{Row: 210, Col: 300, Scale: 175, Q: 37},
		{Row: 215, Col: 300, Scale: 232, Q: 328},
		{Row: 100, Col: 700, Scale: 60, Q: score(0.9)},
	}}}
	opts := DefaultOptions()
	opts.MaxNumFaces = 5
	d := newDetector(t, opts, e)

	var got Results
	d.OnResults(func(ctx context.Context, res Results) error {
		got = res
		return nil
	})
	require.NoError(t, d.Send(context.Background(), Input{Image: frame.New(800, 600)}))

	require.Len(t, got.Faces, 2)
	require.Len(t, got.MultiFaceLandmarks, 2)
	assert.Equal(t, 232, got.Faces[0].Scale)
	assert.Equal(t, 700, got.Faces[1].Col)
}

func TestTrackingThreshold(t *testing.T) {
	face := func(q float32) pigo.Detection {
		return pigo.Detection{Row: 200, Col: 200, Scale: 100, Q: q}
	}
	e := &fakeEngine{frames: [][]pigo.Detection{
		{face(score(0.7))},
		// Below the detection threshold, above the tracking one.
		{face(score(0.45))},
		{face(score(0.45))},
	}}
	opts := DefaultOptions()
	opts.MinDetectionConfidence = 0.6
	opts.MinTrackingConfidence = 0.4
	d := newDetector(t, opts, e)

	var counts []int
	d.OnResults(func(ctx context.Context, res Results) error {
		counts = append(counts, len(res.Faces))
		return nil
	})
	for i := 0; i < 3; i++ {
		require.NoError(t, d.Send(context.Background(), Input{Image: frame.New(400, 400)}))
	}
	assert.Equal(t, []int{1, 1, 1}, counts)

	// A fresh detector has nothing to track.
	e = &fakeEngine{frames: [][]pigo.Detection{{face(score(0.45))}}}
	d = newDetector(t, opts, e)
	counts = nil
	d.OnResults(func(ctx context.Context, res Results) error {
		counts = append(counts, len(res.Faces))
		return nil
	})
	require.NoError(t, d.Send(context.Background(), Input{Image: frame.New(400, 400)}))
	assert.Equal(t, []int{0}, counts)
}

func TestSendIsSerialized(t *testing.T) {
	e := &fakeEngine{delay: 5 * time.Millisecond}
	d := newDetector(t, DefaultOptions(), e)

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, d.Send(context.Background(), Input{Image: frame.New(4, 4)}))
		}()
	}
	wg.Wait()
	assert.False(t, e.overlap)
}

func TestSendCanceled(t *testing.T) {
	d := newDetector(t, DefaultOptions(), &fakeEngine{})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	assert.ErrorIs(t, d.Send(ctx, Input{Image: frame.New(4, 4)}), context.Canceled)
}

func TestHTTPLoader(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/cascade/facefinder":
			w.Write([]byte("cascade"))
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	l := &HTTPLoader{BaseURL: srv.URL + "/cascade/"}
	data, err := l.Load(context.Background(), faceCascade)
	require.NoError(t, err)
	assert.Equal(t, []byte("cascade"), data)

	_, err = l.Load(context.Background(), "lps/lp93")
	assert.Error(t, err)
}

type failingLoader struct{ err error }

func (l failingLoader) Load(context.Context, string) ([]byte, error) { return nil, l.err }

func TestLoadPropagatesLoaderError(t *testing.T) {
	boom := errors.New("offline")
	d, err := New(failingLoader{boom}, DefaultOptions())
	require.NoError(t, err)

	assert.ErrorIs(t, d.Load(context.Background()), boom)
	assert.ErrorIs(t, d.Send(context.Background(), Input{Image: frame.New(4, 4)}), ErrNotLoaded)
}

func TestClamp(t *testing.T) {
	assert.Equal(t, 20, clamp(5, 20, 100))
	assert.Equal(t, 100, clamp(500, 20, 100))
	assert.Equal(t, 64, clamp(64, 20, 100))
	assert.Equal(t, 10, clamp(64, 20, 10))
}
