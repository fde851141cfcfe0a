package kinematics

import (
	"iter"
	"math"

	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
)

// DefaultPitchStep is the pitch increment, in degrees, used when a caller has no preference.
const DefaultPitchStep = 1.0

// sampleTolerance absorbs float error when deciding whether a step lands on the end of a range.
const sampleTolerance = 1e-9

var (
	// ErrNotFound is returned when no pitch in the scanned range yields a solution.
	ErrNotFound = errors.New("no feasible pitch in range")
	// ErrInvalidStep is returned for a zero or non-finite pitch step.
	ErrInvalidStep = errors.New("pitch step must be finite and non-zero")
)

// Solution is a feasible pose found by a search, with the pitch that produced it.
type Solution struct {
	Angles JointAngles `json:"angles"`
	Pitch  float64     `json:"pitch"`
}

// SearchOutcome is either a found Solution or nothing.
type SearchOutcome struct {
	solution Solution
	found    bool
}

// Found wraps a solution.
func Found(s Solution) SearchOutcome {
	return SearchOutcome{solution: s, found: true}
}

// NotFound is the empty outcome.
func NotFound() SearchOutcome {
	return SearchOutcome{}
}

// Solution returns the wrapped solution and whether there is one.
func (o SearchOutcome) Solution() (Solution, bool) {
	return o.solution, o.found
}

// Result converts the outcome to the (Solution, error) form.
func (o SearchOutcome) Result() (Solution, error) {
	if !o.found {
		return Solution{}, ErrNotFound
	}
	return o.solution, nil
}

// Nearest picks whichever outcome has a pitch closer to preferred. Ties, and the
// case where only towardLow is found, go to towardLow.
func Nearest(preferred float64, towardLow, towardHigh SearchOutcome) SearchOutcome {
	switch {
	case towardLow.found && towardHigh.found:
		if math.Abs(towardHigh.solution.Pitch-preferred) < math.Abs(towardLow.solution.Pitch-preferred) {
			return towardHigh
		}
		return towardLow
	case towardLow.found:
		return towardLow
	default:
		return towardHigh
	}
}

// PitchSamples yields pitch values from start to end, both inclusive, spaced by step.
// The sign of step is corrected to point from start towards end. When the spacing does
// not land on end, end is yielded last. A zero or non-finite step yields nothing.
func PitchSamples(start, end, step float64) iter.Seq[float64] {
	return func(yield func(float64) bool) {
		if step == 0 || !finite(start, end, step) {
			return
		}
		if (start < end && step < 0) || (start > end && step > 0) {
			step = -step
		}
		n := math.Floor((end-start)/step + sampleTolerance)
		last := start
		for i := 0.0; i <= n; i++ {
			last = start + i*step
			if i == n && math.Abs(end-last) <= sampleTolerance*math.Abs(step) {
				last = end
			}
			if !yield(last) {
				return
			}
		}
		if last != end {
			yield(end)
		}
	}
}

func scan(point r3.Vector, start, end, step float64, links LinkLengths) SearchOutcome {
	for pitch := range PitchSamples(start, end, step) {
		angles, err := Solve(TargetPose{Point: point, Pitch: pitch}, links)
		if err == nil {
			return Found(Solution{Angles: angles, Pitch: pitch})
		}
	}
	return NotFound()
}

// SearchRange returns the first pitch, scanning from start to end, at which point
// can be reached. It is a first-fit search.
func SearchRange(point r3.Vector, start, end, step float64, links LinkLengths) (Solution, error) {
	if step == 0 || !finite(step) {
		return Solution{}, ErrInvalidStep
	}
	return scan(point, start, end, step, links).Result()
}

// SearchRangeFromPreference scans outwards from preferred towards low and towards
// high and returns the feasible pitch closest to preferred.
func SearchRangeFromPreference(point r3.Vector, preferred, low, high, step float64, links LinkLengths) (Solution, error) {
	if step == 0 || !finite(step) {
		return Solution{}, ErrInvalidStep
	}
	towardLow := scan(point, preferred, low, step, links)
	towardHigh := scan(point, preferred, high, step, links)
	return Nearest(preferred, towardLow, towardHigh).Result()
}
