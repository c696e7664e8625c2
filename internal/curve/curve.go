package curve

import (
	"sunrised/internal/errors"
)

// Brightness and color temperature bounds for Tuya white-mode dps values.
const (
	MinBrightness = 10
	MaxBrightness = 1000
	MinColorTemp  = 0
	MaxColorTemp  = 1000
)

// Keyframe is an anchor point on the sunrise curve: at Percent progress the
// bulb should show Brightness and ColorTemp (both on the device's 0-1000 dps
// scale, brightness floor 10).
type Keyframe struct {
	Percent    float64 `mapstructure:"percent" json:"percent" yaml:"percent"`
	Brightness int     `mapstructure:"brightness" json:"brightness" yaml:"brightness"`
	ColorTemp  int     `mapstructure:"color_temp" json:"color_temp" yaml:"color_temp"`
}

// Curve is an ordered sequence of keyframes sorted ascending by percent.
// The first keyframe must sit at percent 0 (the floor state) and the last at
// percent 100 (full daylight). Validate enforces this at configuration time;
// Interpolate assumes it.
type Curve []Keyframe

// Default returns the stock sunrise curve: deep red pre-dawn warming up to
// full daylight white.
func Default() Curve {
	return Curve{
		{Percent: 0, Brightness: 10, ColorTemp: 0},
		{Percent: 15, Brightness: 50, ColorTemp: 50},
		{Percent: 30, Brightness: 150, ColorTemp: 150},
		{Percent: 50, Brightness: 400, ColorTemp: 300},
		{Percent: 70, Brightness: 700, ColorTemp: 450},
		{Percent: 85, Brightness: 900, ColorTemp: 550},
		{Percent: 100, Brightness: 1000, ColorTemp: 650},
	}
}

// Validate checks the invariants a curve must hold before it is used for a
// ramp: endpoints at 0 and 100, non-decreasing percents, and values inside
// the device's dps ranges. A malformed curve is a configuration error and is
// rejected here, never at interpolation time.
func (c Curve) Validate() error {
	if len(c) == 0 {
		return errors.InvalidInputf("curve is empty")
	}
	if c[0].Percent != 0 {
		return errors.InvalidInputf("curve must start at percent 0, got %v", c[0].Percent)
	}
	if c[len(c)-1].Percent != 100 {
		return errors.InvalidInputf("curve must end at percent 100, got %v", c[len(c)-1].Percent)
	}
	for i, kf := range c {
		if i > 0 && kf.Percent < c[i-1].Percent {
			return errors.InvalidInputf("curve keyframe %d: percent %v is before previous %v", i, kf.Percent, c[i-1].Percent)
		}
		if kf.Brightness < MinBrightness || kf.Brightness > MaxBrightness {
			return errors.InvalidInputf("curve keyframe %d: brightness %d outside [%d,%d]", i, kf.Brightness, MinBrightness, MaxBrightness)
		}
		if kf.ColorTemp < MinColorTemp || kf.ColorTemp > MaxColorTemp {
			return errors.InvalidInputf("curve keyframe %d: color_temp %d outside [%d,%d]", i, kf.ColorTemp, MinColorTemp, MaxColorTemp)
		}
	}
	return nil
}

// Interpolate maps ramp progress to (brightness, colorTemp). Progress below
// the first keyframe or above the last clamps to the boundary keyframe.
// Between keyframes the values are interpolated linearly and truncated to
// integers. Pure function: identical inputs always produce identical outputs.
func (c Curve) Interpolate(percent float64) (brightness, colorTemp int) {
	if len(c) == 0 {
		return 0, 0
	}
	if percent <= c[0].Percent {
		return c[0].Brightness, c[0].ColorTemp
	}
	last := c[len(c)-1]
	if percent >= last.Percent {
		return last.Brightness, last.ColorTemp
	}

	// First keyframe at or past the requested percent is the upper bound,
	// its predecessor the lower.
	lower, upper := c[0], last
	for i, kf := range c {
		if kf.Percent >= percent {
			upper = kf
			if i > 0 {
				lower = c[i-1]
			}
			break
		}
	}

	// Exact hit or degenerate span: no division.
	if lower.Percent == upper.Percent {
		return upper.Brightness, upper.ColorTemp
	}

	frac := (percent - lower.Percent) / (upper.Percent - lower.Percent)
	brightness = lower.Brightness + int(float64(upper.Brightness-lower.Brightness)*frac)
	colorTemp = lower.ColorTemp + int(float64(upper.ColorTemp-lower.ColorTemp)*frac)
	return brightness, colorTemp
}
