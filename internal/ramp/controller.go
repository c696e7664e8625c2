// Package ramp drives the timed brightness/color transition on one bulb.
package ramp

import (
	"context"
	"log/slog"
	"time"

	"sunrised/internal/curve"
	"sunrised/internal/errors"
)

// Session is the slice of a device session the controller needs. A
// transport failure surfaces as a non-nil error; a device-side rejection as
// ok == false with a nil error.
type Session interface {
	Open() error
	Close() error
	SetWhiteMode(brightness, colorTemp int) (bool, error)
}

// Controller runs one ramp per invocation: an initial floor set, one update
// per second for the ramp duration, then an explicit final set. Tick
// boundaries are anchored to the absolute start time so per-tick cost and
// retries never accumulate into drift.
type Controller struct {
	logger *slog.Logger

	// Seams for deterministic tests; default to the real clock.
	now   func() time.Time
	sleep func(ctx context.Context, d time.Duration)
}

// New creates a controller using the system clock.
func New(logger *slog.Logger) *Controller {
	if logger == nil {
		logger = slog.Default()
	}
	return &Controller{
		logger: logger,
		now:    time.Now,
		sleep:  sleepContext,
	}
}

func sleepContext(ctx context.Context, d time.Duration) {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}

// Run executes a ramp of durationSeconds over the given session. Per-tick
// failures are tolerated: a transport error triggers a single reconnect and
// the ramp continues, a rejected command is logged and skipped. Only a
// failure to open the initial connection or context cancellation ends the
// ramp early.
func (c *Controller) Run(ctx context.Context, sess Session, cv curve.Curve, durationSeconds int) error {
	if durationSeconds <= 0 {
		return errors.InvalidInputf("ramp duration must be positive, got %d", durationSeconds)
	}
	defer sess.Close()

	if err := sess.Open(); err != nil {
		return errors.WrapErrorf(err, "failed to open session")
	}

	// Turn the bulb on already at the floor state so it never flashes at
	// its previous brightness.
	c.apply(sess, cv, 0)

	start := c.now()
	for i := 0; i < durationSeconds; i++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		percent := float64(i) / float64(durationSeconds) * 100
		if err := c.apply(sess, cv, percent); err != nil {
			// Transport failure: reconnect once and move on. A missed
			// tick degrades smoothness but is not fatal.
			c.logger.Warn("tick failed, reconnecting", "tick", i, "error", err)
			if err := sess.Open(); err != nil {
				c.logger.Warn("reconnect failed", "tick", i, "error", err)
			}
		}

		target := start.Add(time.Duration(i+1) * time.Second)
		if d := target.Sub(c.now()); d > 0 {
			c.sleep(ctx, d)
		}
	}

	if err := ctx.Err(); err != nil {
		return err
	}

	// The loop measures progress at the start of each second and never
	// reaches 100 inside it; apply the full-daylight state explicitly.
	c.apply(sess, cv, 100)
	return nil
}

// apply interpolates the curve at percent and sends the values. Returns an
// error only for transport failures.
func (c *Controller) apply(sess Session, cv curve.Curve, percent float64) error {
	brightness, colorTemp := cv.Interpolate(percent)
	ok, err := sess.SetWhiteMode(brightness, colorTemp)
	if err != nil {
		return err
	}
	if !ok {
		c.logger.Warn("device rejected update", "percent", percent, "brightness", brightness, "color_temp", colorTemp)
	}
	return nil
}
