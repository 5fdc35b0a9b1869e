package numeric

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSafeDivide(t *testing.T) {
	tests := []struct {
		name        string
		numerator   float64
		denominator float64
		want        float64
	}{
		{"regular", 10, 4, 2.5},
		{"zero_denominator", 1, 0, 1 / Epsilon},
		{"negative_denominator", 1, -5, 1 / Epsilon},
		{"below_epsilon", 1, 1e-12, 1 / Epsilon},
		{"zero_numerator", 0, 0, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := SafeDivide(tt.numerator, tt.denominator, Epsilon)
			assert.InDelta(t, tt.want, got, 1e-6)
			assert.False(t, math.IsInf(got, 0))
		})
	}
}

func TestRound(t *testing.T) {
	assert.Equal(t, 692.5, Round(692.5, 2))
	assert.Equal(t, 20.536, Round(57.5/2.8, 3))
	assert.Equal(t, 0.1235, Round(0.123456, 4))
	assert.Equal(t, -1.24, Round(-1.235, 2))
	assert.Equal(t, 0.0, Round(0.0001, 3))
	assert.True(t, math.IsNaN(Round(math.NaN(), 2)))
}

func TestRound_ExactBinaryHalfEven(t *testing.T) {
	tests := []struct {
		v      float64
		places int32
		want   float64
	}{
		{2.675, 2, 2.67},     // stored below the tie
		{0.125, 2, 0.12},     // exact tie, even neighbour
		{0.375, 2, 0.38},     // exact tie, even neighbour above
		{692.125, 2, 692.12}, // exact tie
		{0.0625, 3, 0.062},   // exact tie
		{1.5, 0, 2},
		{2.5, 0, 2},
		{-2.5, 0, -2},
		{-0.125, 2, -0.12},
		{1e-300, 3, 0},
	}

	for _, tt := range tests {
		got := Round(tt.v, tt.places)
		assert.Equal(t, tt.want, got, "Round(%v, %d)", tt.v, tt.places)
	}
}
