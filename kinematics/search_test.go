package kinematics

import (
	"math"
	"slices"
	"testing"

	"github.com/golang/geo/r3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPitchSamples(t *testing.T) {
	tests := []struct {
		name             string
		start, end, step float64
		expected         []float64
	}{
		{"ascending", 0, 3, 1, []float64{0, 1, 2, 3}},
		{"step sign corrected for descending range", 3, 0, 1, []float64{3, 2, 1, 0}},
		{"step sign corrected for ascending range", -2, 0, -1, []float64{-2, -1, 0}},
		{"end appended when not on the grid", 0, 1, 0.4, []float64{0, 0.4, 0.8, 1}},
		{"fractional step landing on end", 0, 1, 0.25, []float64{0, 0.25, 0.5, 0.75, 1}},
		{"single point", 5, 5, 1, []float64{5}},
		{"zero step", 0, 5, 0, nil},
		{"nan step", 0, 5, math.NaN(), nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			samples := PitchSamples(tt.start, tt.end, tt.step)
			got := slices.Collect(samples)
			require.Len(t, got, len(tt.expected))
			for i := range got {
				assert.InDelta(t, tt.expected[i], got[i], 1e-12)
			}
			assert.Equal(t, got, slices.Collect(samples), "sequence should restart from the beginning")
		})
	}
}

func TestPitchSamplesStopsEarly(t *testing.T) {
	var seen []float64
	for p := range PitchSamples(0, 100, 1) {
		seen = append(seen, p)
		if p == 2 {
			break
		}
	}
	assert.Equal(t, []float64{0, 1, 2}, seen)
}

func TestSearchRange(t *testing.T) {
	point := r3.Vector{X: 0, Y: 33.775, Z: 33.2}

	t.Run("first fit towards the feasible pitch", func(t *testing.T) {
		sol, err := SearchRange(point, 20, 60, 1, DefaultLinkLengths)
		require.NoError(t, err)
		assert.Equal(t, 30.0, sol.Pitch)
		assertAngles(t, JointAngles{Theta1: 90, Theta2: 30, Theta3: 0, Theta4: 0}, sol.Angles)
	})

	t.Run("exhausted range", func(t *testing.T) {
		_, err := SearchRange(point, 20, 1, 1, DefaultLinkLengths)
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("first fit is not best fit", func(t *testing.T) {
		// Every pitch in [-90, 30] reaches this point; scanning from -90 stops at -90.
		sol, err := SearchRange(r3.Vector{X: 25, Z: 5}, -90, 30, 1, DefaultLinkLengths)
		require.NoError(t, err)
		assert.Equal(t, -90.0, sol.Pitch)
	})

	t.Run("zero step", func(t *testing.T) {
		_, err := SearchRange(point, 20, 60, 0, DefaultLinkLengths)
		assert.ErrorIs(t, err, ErrInvalidStep)
	})
}

func TestSearchRangeFromPreference(t *testing.T) {
	tests := []struct {
		name                 string
		point                r3.Vector
		preferred, low, high float64
		expectedPitch        float64
	}{
		{"reversed bounds find the only feasible pitch", r3.Vector{X: 0, Y: 33.775, Z: 33.2}, 20, 60, 1, 30},
		{"feasible only above the preference", r3.Vector{X: 5, Y: 5, Z: 40}, -20, -30, 0, -14},
		{"feasible only below the preference", r3.Vector{X: 25, Z: 5}, 40, 20, 90, 30},
		{"preference itself is feasible", r3.Vector{X: 25, Z: 5}, 0, -90, 90, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sol, err := SearchRangeFromPreference(tt.point, tt.preferred, tt.low, tt.high, DefaultPitchStep, DefaultLinkLengths)
			require.NoError(t, err)
			assert.Equal(t, tt.expectedPitch, sol.Pitch)
			assert.InDelta(t, sol.Pitch, sol.Angles.Theta2+sol.Angles.Theta3+sol.Angles.Theta4, angleTolerance)

			again, err := SearchRangeFromPreference(tt.point, tt.preferred, tt.low, tt.high, DefaultPitchStep, DefaultLinkLengths)
			require.NoError(t, err)
			assert.Equal(t, sol, again)
		})
	}
}

func TestSearchBeyondReach(t *testing.T) {
	far := DefaultLinkLengths.TotalLength() + 1
	_, err := SearchRangeFromPreference(r3.Vector{X: far}, 0, -90, 90, 1, DefaultLinkLengths)
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = SearchRange(r3.Vector{Z: DefaultLinkLengths.L1 + far}, -180, 180, 0.5, DefaultLinkLengths)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestNearest(t *testing.T) {
	at := func(pitch float64) SearchOutcome {
		return Found(Solution{Pitch: pitch})
	}
	tests := []struct {
		name      string
		low, high SearchOutcome
		expected  SearchOutcome
	}{
		{name: "high side closer", low: at(5), high: at(22), expected: at(22)},
		{name: "low side closer", low: at(18), high: at(30), expected: at(18)},
		{name: "tie goes low", low: at(15), high: at(25), expected: at(15)},
		{name: "only low", low: at(3), high: NotFound(), expected: at(3)},
		{name: "only high", low: NotFound(), high: at(40), expected: at(40)},
		{name: "neither", low: NotFound(), high: NotFound(), expected: NotFound()},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, Nearest(20, tt.low, tt.high))
		})
	}

	_, err := Nearest(20, NotFound(), NotFound()).Result()
	assert.ErrorIs(t, err, ErrNotFound)
}
