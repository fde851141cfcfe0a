// Package kinematics solves the inverse kinematics of a 4-DOF arm with a base yaw
// joint followed by three pitch-plane joints (shoulder, elbow, wrist).
//
// Angles produced by this package are in degrees. Lengths and coordinates may use
// any consistent unit; the defaults are centimeters.
package kinematics

import (
	"fmt"
	"math"
	"sync"

	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
	"go.uber.org/multierr"
	"go.viam.com/rdk/logging"
)

// ErrInvalidConfiguration is returned when link lengths are rejected.
var ErrInvalidConfiguration = errors.New("invalid link configuration")

// LinkLengths holds the four link lengths, ordered from the base.
type LinkLengths struct {
	L1 float64 `json:"l1"` // base to shoulder
	L2 float64 `json:"l2"` // shoulder to elbow
	L3 float64 `json:"l3"` // elbow to wrist
	L4 float64 `json:"l4"` // wrist to end effector
}

// DefaultLinkLengths are the dimensions of the reference arm, in centimeters.
var DefaultLinkLengths = LinkLengths{L1: 13.7, L2: 14.5, L3: 14.5, L4: 10}

// Validate reports every length that is not strictly positive.
func (l LinkLengths) Validate() error {
	var err error
	for i, v := range l.asSlice() {
		if !(v > 0) || math.IsInf(v, 0) {
			err = multierr.Append(err, errors.Wrapf(ErrInvalidConfiguration, "l%d must be positive, got %v", i+1, v))
		}
	}
	return err
}

// TotalLength is the distance from the ground to the tip with every joint straight.
func (l LinkLengths) TotalLength() float64 {
	return l.L1 + l.L2 + l.L3 + l.L4
}

func (l LinkLengths) String() string {
	return fmt.Sprintf("l1=%v l2=%v l3=%v l4=%v", l.L1, l.L2, l.L3, l.L4)
}

func (l LinkLengths) asSlice() []float64 {
	return []float64{l.L1, l.L2, l.L3, l.L4}
}

// Model is a configured arm. Its link lengths may be replaced as a whole between
// calls; every solve works on a snapshot taken at the start of the call.
type Model struct {
	logger logging.Logger

	mu    sync.RWMutex
	links LinkLengths
}

// NewModel validates links and returns a model using them.
func NewModel(links LinkLengths, logger logging.Logger) (*Model, error) {
	if err := links.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = logging.NewLogger("kinematics")
	}
	return &Model{links: links, logger: logger}, nil
}

// SetLinkLengths replaces all four lengths. On error the previous lengths are kept.
func (m *Model) SetLinkLengths(links LinkLengths) error {
	if err := links.Validate(); err != nil {
		return err
	}
	m.mu.Lock()
	m.links = links
	m.mu.Unlock()
	m.logger.Debugf("link lengths set to %v", links)
	return nil
}

// LinkLengths returns the current lengths.
func (m *Model) LinkLengths() LinkLengths {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.links
}

// Solve runs the closed-form solver against the current lengths.
func (m *Model) Solve(target TargetPose) (JointAngles, error) {
	angles, err := Solve(target, m.LinkLengths())
	if err != nil {
		m.logger.Debugf("no solution for %v at pitch %v: %v", target.Point, target.Pitch, err)
	}
	return angles, err
}

// SearchRange scans pitch values from start to end and returns the first feasible one.
func (m *Model) SearchRange(point r3.Vector, start, end, step float64) (Solution, error) {
	return SearchRange(point, start, end, step, m.LinkLengths())
}

// SearchRangeFromPreference returns the feasible pitch in [low, high] closest to preferred.
func (m *Model) SearchRangeFromPreference(point r3.Vector, preferred, low, high, step float64) (Solution, error) {
	sol, err := SearchRangeFromPreference(point, preferred, low, high, step, m.LinkLengths())
	if err != nil {
		m.logger.Debugf("no pitch in [%v, %v] reaches %v: %v", low, high, point, err)
		return Solution{}, err
	}
	m.logger.Debugf("reached %v at pitch %v (preferred %v)", point, sol.Pitch, preferred)
	return sol, nil
}
