package kinematics

import (
	"context"
	"runtime"
	"slices"

	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"
)

// SurveyRequest describes a horizontal grid of points at height Z to test for
// reachability, and the pitch range tried at each point.
type SurveyRequest struct {
	Z float64

	XMin, XMax, XStep float64
	YMin, YMax, YStep float64

	PitchLow, PitchHigh, PitchStep float64

	// Concurrency bounds the number of grid rows evaluated at once. Defaults to GOMAXPROCS.
	Concurrency int
}

// SurveyPoint is a grid point that can be reached, with the first pitch that reached it.
type SurveyPoint struct {
	Point    r3.Vector
	Solution Solution
}

// SurveyResult lists the reachable points of a survey in row-major order (y, then x).
type SurveyResult struct {
	Reachable []SurveyPoint
	Checked   int
}

func (req SurveyRequest) validate() error {
	for _, step := range []float64{req.XStep, req.YStep, req.PitchStep} {
		if step == 0 || !finite(step) {
			return ErrInvalidStep
		}
	}
	if !finite(req.Z, req.XMin, req.XMax, req.YMin, req.YMax, req.PitchLow, req.PitchHigh) {
		return errors.New("survey bounds must be finite")
	}
	return nil
}

// Survey tests every point of the grid described by req, scanning the pitch range
// from PitchLow to PitchHigh at each point. Rows are evaluated concurrently.
func Survey(ctx context.Context, req SurveyRequest, links LinkLengths) (SurveyResult, error) {
	if err := req.validate(); err != nil {
		return SurveyResult{}, err
	}
	if err := links.Validate(); err != nil {
		return SurveyResult{}, err
	}

	ys := slices.Collect(PitchSamples(req.YMin, req.YMax, req.YStep))
	xs := slices.Collect(PitchSamples(req.XMin, req.XMax, req.XStep))

	limit := req.Concurrency
	if limit <= 0 {
		limit = runtime.GOMAXPROCS(0)
	}

	rows := make([][]SurveyPoint, len(ys))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)
	for i, y := range ys {
		g.Go(func() error {
			for _, x := range xs {
				if err := gctx.Err(); err != nil {
					return err
				}
				point := r3.Vector{X: x, Y: y, Z: req.Z}
				if sol, ok := scan(point, req.PitchLow, req.PitchHigh, req.PitchStep, links).Solution(); ok {
					rows[i] = append(rows[i], SurveyPoint{Point: point, Solution: sol})
				}
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return SurveyResult{}, err
	}

	res := SurveyResult{Checked: len(xs) * len(ys)}
	for _, row := range rows {
		res.Reachable = append(res.Reachable, row...)
	}
	return res, nil
}
