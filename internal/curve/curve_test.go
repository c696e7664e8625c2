package curve

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testCurve() Curve {
	return Curve{
		{Percent: 0, Brightness: 10, ColorTemp: 0},
		{Percent: 50, Brightness: 400, ColorTemp: 300},
		{Percent: 100, Brightness: 1000, ColorTemp: 650},
	}
}

func TestInterpolateBoundaries(t *testing.T) {
	c := testCurve()

	b, ct := c.Interpolate(0)
	assert.Equal(t, 10, b)
	assert.Equal(t, 0, ct)

	b, ct = c.Interpolate(100)
	assert.Equal(t, 1000, b)
	assert.Equal(t, 650, ct)

	// Out-of-range progress clamps to the boundary keyframes
	b, ct = c.Interpolate(-5)
	assert.Equal(t, 10, b)
	assert.Equal(t, 0, ct)

	b, ct = c.Interpolate(150)
	assert.Equal(t, 1000, b)
	assert.Equal(t, 650, ct)
}

func TestInterpolateExactKeyframe(t *testing.T) {
	c := testCurve()

	// An interior keyframe's percent returns its values exactly
	b, ct := c.Interpolate(50)
	assert.Equal(t, 400, b)
	assert.Equal(t, 300, ct)
}

func TestInterpolateMidpoint(t *testing.T) {
	c := testCurve()

	// 25% sits halfway between (0,10,0) and (50,400,300)
	b, ct := c.Interpolate(25)
	assert.Equal(t, 205, b)
	assert.Equal(t, 150, ct)
}

func TestInterpolateTruncates(t *testing.T) {
	c := Curve{
		{Percent: 0, Brightness: 10, ColorTemp: 0},
		{Percent: 100, Brightness: 13, ColorTemp: 7},
	}

	// 33% of a 3-step span is 0.99, truncated not rounded
	b, ct := c.Interpolate(33)
	assert.Equal(t, 10, b)
	assert.Equal(t, 2, ct)
}

func TestInterpolateMonotonic(t *testing.T) {
	c := Default()

	lastB, lastC := c.Interpolate(0)
	for p := 1; p <= 100; p++ {
		b, ct := c.Interpolate(float64(p))
		assert.GreaterOrEqual(t, b, lastB, "brightness at %d%%", p)
		assert.GreaterOrEqual(t, ct, lastC, "color temp at %d%%", p)
		lastB, lastC = b, ct
	}
}

func TestInterpolateDeterministic(t *testing.T) {
	c := Default()

	for p := 0; p <= 100; p += 7 {
		b1, c1 := c.Interpolate(float64(p))
		b2, c2 := c.Interpolate(float64(p))
		assert.Equal(t, b1, b2)
		assert.Equal(t, c1, c2)
	}
}

func TestInterpolateDegenerateSpan(t *testing.T) {
	c := Curve{
		{Percent: 0, Brightness: 10, ColorTemp: 0},
		{Percent: 50, Brightness: 200, ColorTemp: 100},
		{Percent: 50, Brightness: 300, ColorTemp: 200},
		{Percent: 100, Brightness: 1000, ColorTemp: 650},
	}

	// Equal-percent keyframes must not divide by zero
	b, ct := c.Interpolate(50)
	assert.Equal(t, 200, b)
	assert.Equal(t, 100, ct)
}

func TestValidate(t *testing.T) {
	require.NoError(t, testCurve().Validate())
	require.NoError(t, Default().Validate())

	tests := []struct {
		name  string
		curve Curve
	}{
		{"empty", Curve{}},
		{"missing zero start", Curve{
			{Percent: 10, Brightness: 10, ColorTemp: 0},
			{Percent: 100, Brightness: 1000, ColorTemp: 650},
		}},
		{"missing hundred end", Curve{
			{Percent: 0, Brightness: 10, ColorTemp: 0},
			{Percent: 90, Brightness: 1000, ColorTemp: 650},
		}},
		{"unsorted", Curve{
			{Percent: 0, Brightness: 10, ColorTemp: 0},
			{Percent: 60, Brightness: 400, ColorTemp: 300},
			{Percent: 40, Brightness: 200, ColorTemp: 200},
			{Percent: 100, Brightness: 1000, ColorTemp: 650},
		}},
		{"brightness below floor", Curve{
			{Percent: 0, Brightness: 5, ColorTemp: 0},
			{Percent: 100, Brightness: 1000, ColorTemp: 650},
		}},
		{"brightness above ceiling", Curve{
			{Percent: 0, Brightness: 10, ColorTemp: 0},
			{Percent: 100, Brightness: 2000, ColorTemp: 650},
		}},
		{"color temp out of range", Curve{
			{Percent: 0, Brightness: 10, ColorTemp: 0},
			{Percent: 100, Brightness: 1000, ColorTemp: 1500},
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Error(t, tt.curve.Validate())
		})
	}
}
