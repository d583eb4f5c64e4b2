package detector

import (
	"context"
	"fmt"
	"sync"

	pigo "github.com/esimov/pigo/core"
	"golang.org/x/exp/constraints"
	"golang.org/x/sync/errgroup"
)

// Cascade file names, relative to the loader base URL.
const (
	faceCascade  = "facefinder"
	pupilCascade = "puploc"

	// Landmark point cascades live in their own directory, the layout pigo
	// ships its cascade/ folder with.
	landmarkDir = "lps/"

	perturbs = 63
)

var (
	eyeCascades   = []string{"lp46", "lp44", "lp42", "lp38", "lp312"}
	mouthCascades = []string{"lp93", "lp84", "lp82", "lp81"}
)

// pigoEngine runs the pigo face, pupil and landmark point cascades.
type pigoEngine struct {
	face  *pigo.Pigo
	pupil *pigo.PuplocCascade
	flp   map[string]*pigo.FlpCascade
}

func loadPigo(ctx context.Context, loader Loader, refine bool) (*pigoEngine, error) {
	data, err := loader.Load(ctx, faceCascade)
	if err != nil {
		return nil, err
	}
	face, err := pigo.NewPigo().Unpack(data)
	if err != nil {
		return nil, fmt.Errorf("detector: unpack %s: %w", faceCascade, err)
	}

	data, err = loader.Load(ctx, pupilCascade)
	if err != nil {
		return nil, err
	}
	pupil, err := pigo.NewPuplocCascade().UnpackCascade(data)
	if err != nil {
		return nil, fmt.Errorf("detector: unpack %s: %w", pupilCascade, err)
	}

	e := &pigoEngine{
		face:  face,
		pupil: pupil,
		flp:   make(map[string]*pigo.FlpCascade),
	}
	if !refine {
		return e, nil
	}

	// Unpack the facial landmark points detection cascades.
	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	for _, name := range append(append([]string{}, eyeCascades...), mouthCascades...) {
		name := name
		g.Go(func() error {
			data, err := loader.Load(gctx, landmarkDir+name)
			if err != nil {
				return err
			}
			plc, err := pigo.NewPuplocCascade().UnpackCascade(data)
			if err != nil {
				return fmt.Errorf("detector: unpack %s: %w", name, err)
			}
			mu.Lock()
			e.flp[name] = &pigo.FlpCascade{PuplocCascade: plc}
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return e, nil
}

func (e *pigoEngine) detect(img pigo.ImageParams) []pigo.Detection {
	side := min(img.Rows, img.Cols)
	cParams := pigo.CascadeParams{
		MinSize:     clamp(side/10, 20, side),
		MaxSize:     clamp(side, 20, 1000),
		ShiftFactor: 0.1,
		ScaleFactor: 1.1,
		ImageParams: img,
	}
	dets := e.face.RunCascade(cParams, 0.0)

	return e.face.ClusterDetections(dets, 0.1)
}

func (e *pigoEngine) landmarks(det pigo.Detection, img pigo.ImageParams, refine bool) []Landmark {
	points := []Landmark{{Name: "face_center", X: float64(det.Col), Y: float64(det.Row)}}

	scale := float32(det.Scale)
	left := e.pupil.RunDetector(pigo.Puploc{
		Row:      det.Row - int(0.075*scale),
		Col:      det.Col - int(0.175*scale),
		Scale:    scale * 0.25,
		Perturbs: perturbs,
	}, img, 0.0, false)
	right := e.pupil.RunDetector(pigo.Puploc{
		Row:      det.Row - int(0.075*scale),
		Col:      det.Col + int(0.185*scale),
		Scale:    scale * 0.25,
		Perturbs: perturbs,
	}, img, 0.0, false)

	if !found(left) || !found(right) {
		return points
	}
	points = append(points, point("left_pupil", left), point("right_pupil", right))
	if !refine {
		return points
	}

	for _, name := range eyeCascades {
		flp, ok := e.flp[name]
		if !ok {
			continue
		}
		if p := flp.GetLandmarkPoint(left, right, img, perturbs, false); found(p) {
			points = append(points, point(name, p))
		}
		if p := flp.GetLandmarkPoint(left, right, img, perturbs, true); found(p) {
			points = append(points, point(name+"_flip", p))
		}
	}
	for _, name := range mouthCascades {
		flp, ok := e.flp[name]
		if !ok {
			continue
		}
		if p := flp.GetLandmarkPoint(left, right, img, perturbs, false); found(p) {
			points = append(points, point(name, p))
		}
		// Only lp84 has a mirrored counterpart among the mouth points.
		if name == "lp84" {
			if p := flp.GetLandmarkPoint(left, right, img, perturbs, true); found(p) {
				points = append(points, point(name+"_flip", p))
			}
		}
	}
	return points
}

func found(p *pigo.Puploc) bool {
	return p != nil && p.Row > 0 && p.Col > 0
}

func point(name string, p *pigo.Puploc) Landmark {
	return Landmark{Name: name, X: float64(p.Col), Y: float64(p.Row)}
}

// clamp limits v to the [lo, hi] range.
func clamp[T constraints.Ordered](v, lo, hi T) T {
	if hi < lo {
		return hi
	}
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
