// Package schedule decides when the daily ramp fires.
package schedule

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// Mode selects how the ramp start time is computed.
type Mode string

const (
	// ModeStatic starts the ramp at a fixed local time every day.
	ModeStatic Mode = "static"
	// ModeSunrise starts the ramp relative to the astronomical sunrise.
	ModeSunrise Mode = "sunrise"
)

const (
	// triggerWindow is how close (in seconds) the current time-of-day must
	// be to the computed start for the ramp to fire.
	triggerWindow = 30

	// fallbackStartSeconds is used when the sunrise fetch fails: 07:00:00.
	fallbackStartSeconds = 7 * 3600

	secondsPerDay = 86400
	noonSeconds   = 12 * 3600
)

// Clock supplies the current local time. Injected so trigger logic is
// testable without real clocks.
type Clock interface {
	Now() time.Time
}

// SystemClock is the real local clock.
type SystemClock struct{}

// Now returns the current local time.
func (SystemClock) Now() time.Time { return time.Now() }

// SunriseSource provides today's sunrise as local seconds-of-day.
type SunriseSource interface {
	SunriseSeconds(ctx context.Context) (int, error)
}

// Params are the schedule settings; they can be swapped at runtime when the
// configuration is reloaded.
type Params struct {
	Mode               Mode
	StaticStartSeconds int // seconds of day, static mode
	OffsetMinutes      int // signed offset from sunrise, sunrise mode
	DurationSeconds    int
}

// Status is a read-only snapshot of the schedule state for the control
// plane.
type Status struct {
	Mode            Mode   `json:"mode"`
	NextStart       string `json:"next_start"`
	NextStartSecs   int    `json:"next_start_seconds"`
	Triggered       bool   `json:"triggered_today"`
	SunriseSecs     int    `json:"sunrise_seconds,omitempty"`
	Sunrise         string `json:"sunrise,omitempty"`
	DurationSeconds int    `json:"duration_seconds"`
}

// Evaluator holds the daily trigger guard and the cached sunrise time. It
// is driven by a single scheduling loop; only Snapshot and SetParams are
// safe to call from other goroutines.
type Evaluator struct {
	mu     sync.Mutex
	logger *slog.Logger
	clock  Clock
	source SunriseSource
	params Params

	triggered   bool
	targetSecs  int
	sunriseSecs int
	fetchedDay  string // calendar day the cached sunrise belongs to
	lastDay     string
}

// New creates an evaluator. The source may be nil for static mode.
func New(logger *slog.Logger, clock Clock, source SunriseSource, params Params) *Evaluator {
	if logger == nil {
		logger = slog.Default()
	}
	if clock == nil {
		clock = SystemClock{}
	}
	return &Evaluator{
		logger:      logger,
		clock:       clock,
		source:      source,
		params:      params,
		sunriseSecs: -1,
	}
}

// SetParams swaps the schedule settings, e.g. after a config reload.
func (e *Evaluator) SetParams(p Params) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.params = p
}

// Params returns the current schedule settings.
func (e *Evaluator) Params() Params {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.params
}

// Evaluate computes the current target start time and reports whether the
// ramp should fire now. Called once per poll interval by the scheduling
// loop.
func (e *Evaluator) Evaluate(ctx context.Context) bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	now := e.clock.Now()
	day := now.Format("2006-01-02")
	nowSecs := now.Hour()*3600 + now.Minute()*60 + now.Second()

	// Date rollover resets the guard even if the sunrise refetch window
	// was missed.
	if e.lastDay != "" && e.lastDay != day {
		e.triggered = false
	}
	e.lastDay = day

	p := e.params
	switch p.Mode {
	case ModeStatic:
		e.targetSecs = p.StaticStartSeconds
	default:
		if e.fetchedDay != day {
			secs, err := e.sunriseFetch(ctx)
			if err != nil {
				e.logger.Warn("sunrise fetch failed, using fallback", "error", err, "fallback", formatSeconds(fallbackStartSeconds))
				secs = fallbackStartSeconds
			} else {
				e.logger.Info("sunrise refreshed", "sunrise", formatSeconds(secs))
			}
			e.sunriseSecs = secs
			e.fetchedDay = day
			e.triggered = false
		}
		target := e.sunriseSecs + p.OffsetMinutes*60
		e.targetSecs = ((target % secondsPerDay) + secondsPerDay) % secondsPerDay
	}

	// Past noon the guard resets for the next day, but only when the
	// target itself was a morning one: an afternoon static start must not
	// re-fire the same day.
	if nowSecs >= noonSeconds && e.targetSecs < noonSeconds {
		e.triggered = false
	}

	if !e.triggered && absInt(circularDiff(nowSecs, e.targetSecs)) < triggerWindow {
		e.triggered = true
		e.logger.Info("ramp triggered", "now", formatSeconds(nowSecs), "target", formatSeconds(e.targetSecs))
		return true
	}
	return false
}

// Snapshot returns the current schedule state.
func (e *Evaluator) Snapshot() Status {
	e.mu.Lock()
	defer e.mu.Unlock()

	st := Status{
		Mode:            e.params.Mode,
		NextStart:       formatSeconds(e.targetSecs),
		NextStartSecs:   e.targetSecs,
		Triggered:       e.triggered,
		DurationSeconds: e.params.DurationSeconds,
	}
	if e.params.Mode != ModeStatic && e.sunriseSecs >= 0 {
		st.SunriseSecs = e.sunriseSecs
		st.Sunrise = formatSeconds(e.sunriseSecs)
	}
	return st
}

func (e *Evaluator) sunriseFetch(ctx context.Context) (int, error) {
	if e.source == nil {
		return 0, fmt.Errorf("no sunrise source configured")
	}
	return e.source.SunriseSeconds(ctx)
}

// circularDiff returns a-b on the day circle, wrapped into
// [-43200, 43200) so a window around midnight still matches.
func circularDiff(a, b int) int {
	d := (a - b) % secondsPerDay
	if d < -secondsPerDay/2 {
		d += secondsPerDay
	}
	if d >= secondsPerDay/2 {
		d -= secondsPerDay
	}
	return d
}

func absInt(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

func formatSeconds(secs int) string {
	return fmt.Sprintf("%02d:%02d:%02d", secs/3600, (secs%3600)/60, secs%60)
}
