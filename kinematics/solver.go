package kinematics

import (
	"fmt"
	"math"

	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/floats/scalar"
	rutils "go.viam.com/rdk/utils"
)

// boundaryPrecision is the number of decimal places values are rounded to before
// they are compared against a reachability boundary.
const boundaryPrecision = 4

// ErrUnreachable is wrapped by every *UnreachableError.
var ErrUnreachable = errors.New("target unreachable")

// UnreachableReason says which geometric check rejected a pose.
type UnreachableReason int

const (
	// BelowBaseFloor means the wrist would sit below the ground under the base.
	BelowBaseFloor UnreachableReason = iota + 1
	// OutOfReach means the shoulder-to-wrist distance exceeds l2+l3.
	OutOfReach
	// DegenerateTriangle means a law-of-cosines argument left [-1, 1].
	DegenerateTriangle
)

func (r UnreachableReason) String() string {
	switch r {
	case BelowBaseFloor:
		return "below_base_floor"
	case OutOfReach:
		return "out_of_reach"
	case DegenerateTriangle:
		return "degenerate_triangle"
	default:
		return "unknown"
	}
}

// UnreachableError is returned by Solve when no joint angles exist for a pose.
type UnreachableError struct {
	Reason UnreachableReason
	Detail string
}

func (e *UnreachableError) Error() string {
	return fmt.Sprintf("%s: %s (%s)", ErrUnreachable, e.Reason, e.Detail)
}

// Unwrap lets errors.Is match ErrUnreachable.
func (e *UnreachableError) Unwrap() error {
	return ErrUnreachable
}

func unreachable(reason UnreachableReason, format string, args ...interface{}) error {
	return &UnreachableError{Reason: reason, Detail: fmt.Sprintf(format, args...)}
}

// ReasonOf extracts the rejection reason from err, if it is an unreachable error.
func ReasonOf(err error) (UnreachableReason, bool) {
	var ue *UnreachableError
	if errors.As(err, &ue) {
		return ue.Reason, true
	}
	return 0, false
}

// TargetPose is a desired end effector position and the pitch of the last link,
// in degrees above the horizontal plane.
type TargetPose struct {
	Point r3.Vector
	Pitch float64
}

// JointAngles are the four joint rotations in degrees, base to tip.
// Theta2+Theta3+Theta4 equals the requested pitch.
type JointAngles struct {
	Theta1 float64 `json:"theta1"`
	Theta2 float64 `json:"theta2"`
	Theta3 float64 `json:"theta3"`
	Theta4 float64 `json:"theta4"`
}

// Degrees returns the angles as a slice ordered base to tip.
func (j JointAngles) Degrees() []float64 {
	return []float64{j.Theta1, j.Theta2, j.Theta3, j.Theta4}
}

// Radians returns the angles converted to radians, ordered base to tip.
func (j JointAngles) Radians() []float64 {
	out := j.Degrees()
	for i, d := range out {
		out[i] = rutils.DegToRad(d)
	}
	return out
}

func round4(v float64) float64 {
	return scalar.RoundEven(v, boundaryPrecision)
}

// Solve computes the joint angles placing the end effector at target.Point with
// the last link at target.Pitch. The base joint faces the target's azimuth and the
// remaining three joints are solved in the vertical plane through the base.
func Solve(target TargetPose, links LinkLengths) (JointAngles, error) {
	x, y, z := target.Point.X, target.Point.Y, target.Point.Z
	l1, l2, l3, l4 := links.L1, links.L2, links.L3, links.L4
	if !finite(x, y, z, target.Pitch) {
		return JointAngles{}, unreachable(OutOfReach, "non-finite target %v pitch %v", target.Point, target.Pitch)
	}

	theta1 := round4(rutils.RadToDeg(math.Atan2(y, x)))

	pitch := rutils.DegToRad(target.Pitch)
	horizontal := math.Sqrt(x*x + y*y)
	horizontalResidual := horizontal - l4*math.Cos(pitch)
	verticalResidual := z - l1 - l4*math.Sin(pitch)
	reach := math.Sqrt(horizontalResidual*horizontalResidual + verticalResidual*verticalResidual)

	if round4(verticalResidual) < -l1 {
		return JointAngles{}, unreachable(BelowBaseFloor, "wrist height %.4f below %.4f", verticalResidual, -l1)
	}
	if round4(reach) > l2+l3 {
		return JointAngles{}, unreachable(OutOfReach, "reach %.4f exceeds l2+l3=%.4f", reach, l2+l3)
	}

	cosElbow := round4((l2*l2 + l3*l3 - reach*reach) / (2 * l2 * l3))
	if math.Abs(cosElbow) > 1 {
		return JointAngles{}, unreachable(DegenerateTriangle, "elbow cosine %.4f", cosElbow)
	}
	cosShoulderWrist := round4((reach*reach + l2*l2 - l3*l3) / (2 * l2 * reach))
	if math.IsNaN(cosShoulderWrist) || math.Abs(cosShoulderWrist) > 1 {
		return JointAngles{}, unreachable(DegenerateTriangle, "shoulder-wrist cosine %.4f", cosShoulderWrist)
	}

	theta3 := 180 - rutils.RadToDeg(math.Acos(cosElbow))

	shoulderToHorizontal := math.Acos(clampUnit(horizontalResidual / reach))
	verticalSign := 1.0
	if verticalResidual < 0 {
		verticalSign = -1
	}
	theta2 := round4(rutils.RadToDeg(shoulderToHorizontal*verticalSign + math.Acos(cosShoulderWrist)))
	theta4 := round4(target.Pitch - theta2 - theta3)

	return JointAngles{Theta1: theta1, Theta2: theta2, Theta3: theta3, Theta4: theta4}, nil
}

func clampUnit(v float64) float64 {
	return math.Max(-1, math.Min(1, v))
}

func finite(vs ...float64) bool {
	for _, v := range vs {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}
