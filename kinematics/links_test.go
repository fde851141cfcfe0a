package kinematics

import (
	"math"
	"sync"
	"testing"

	"github.com/golang/geo/r3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/multierr"
	"go.viam.com/rdk/logging"
)

func TestLinkLengthsValidate(t *testing.T) {
	tests := []struct {
		name    string
		links   LinkLengths
		invalid int
	}{
		{"defaults", DefaultLinkLengths, 0},
		{"zero base", LinkLengths{L1: 0, L2: 1, L3: 1, L4: 1}, 1},
		{"negative forearm", LinkLengths{L1: 1, L2: 1, L3: -2, L4: 1}, 1},
		{"all zero", LinkLengths{}, 4},
		{"nan", LinkLengths{L1: math.NaN(), L2: 1, L3: 1, L4: 1}, 1},
		{"infinite", LinkLengths{L1: 1, L2: math.Inf(1), L3: 1, L4: 1}, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.links.Validate()
			if tt.invalid == 0 {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, ErrInvalidConfiguration)
			assert.Len(t, multierr.Errors(err), tt.invalid)
		})
	}
}

func TestModelLinkLengths(t *testing.T) {
	logger := logging.NewTestLogger(t)

	_, err := NewModel(LinkLengths{L1: 1}, logger)
	assert.ErrorIs(t, err, ErrInvalidConfiguration)

	m, err := NewModel(DefaultLinkLengths, logger)
	require.NoError(t, err)
	assert.Equal(t, DefaultLinkLengths, m.LinkLengths())

	longer := LinkLengths{L1: 10, L2: 20, L3: 20, L4: 5}
	require.NoError(t, m.SetLinkLengths(longer))
	assert.Equal(t, longer, m.LinkLengths())

	err = m.SetLinkLengths(LinkLengths{L1: 10, L2: -1, L3: 20, L4: 5})
	assert.ErrorIs(t, err, ErrInvalidConfiguration)
	assert.Equal(t, longer, m.LinkLengths(), "rejected lengths must not be applied")
}

func TestModelUsesCurrentLengths(t *testing.T) {
	m, err := NewModel(DefaultLinkLengths, logging.NewTestLogger(t))
	require.NoError(t, err)

	point := r3.Vector{Y: 40, Z: 13.7}
	_, err = m.Solve(TargetPose{Point: point, Pitch: 0})
	reason, _ := ReasonOf(err)
	assert.Equal(t, OutOfReach, reason)

	require.NoError(t, m.SetLinkLengths(LinkLengths{L1: 13.7, L2: 20, L3: 20, L4: 10}))
	angles, err := m.Solve(TargetPose{Point: point, Pitch: 0})
	require.NoError(t, err)
	assert.InDelta(t, 90, angles.Theta1, 1e-9)

	sol, err := m.SearchRangeFromPreference(point, 0, -90, 90, DefaultPitchStep)
	require.NoError(t, err)
	assert.Equal(t, 0.0, sol.Pitch)

	sol, err = m.SearchRange(point, 0, 90, DefaultPitchStep)
	require.NoError(t, err)
	assert.Equal(t, 0.0, sol.Pitch)
}

func TestModelConcurrentAccess(t *testing.T) {
	m, err := NewModel(DefaultLinkLengths, logging.NewTestLogger(t))
	require.NoError(t, err)

	alternate := LinkLengths{L1: 12, L2: 15, L3: 15, L4: 9}
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				if i == 0 {
					links := DefaultLinkLengths
					if j%2 == 0 {
						links = alternate
					}
					assert.NoError(t, m.SetLinkLengths(links))
					continue
				}
				got := m.LinkLengths()
				assert.Contains(t, []LinkLengths{DefaultLinkLengths, alternate}, got)
				_, _ = m.SearchRangeFromPreference(r3.Vector{X: 20, Z: 10}, 0, -90, 90, 5)
			}
		}(i)
	}
	wg.Wait()
}
