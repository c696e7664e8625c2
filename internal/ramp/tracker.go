package ramp

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// RunInfo describes one in-flight ramp.
type RunInfo struct {
	ID       string    `json:"id"`
	DeviceID string    `json:"device_id"`
	Started  time.Time `json:"started"`
	Duration int       `json:"duration_seconds"`
}

type run struct {
	info   RunInfo
	cancel context.CancelFunc
}

// Tracker registers active ramps so the control plane can report and cancel
// them. Safe for concurrent use.
type Tracker struct {
	mu   sync.Mutex
	runs map[string]*run
}

// NewTracker creates an empty tracker.
func NewTracker() *Tracker {
	return &Tracker{runs: make(map[string]*run)}
}

// Start registers a new run for a device and returns its ID along with a
// context the ramp should run under.
func (t *Tracker) Start(parent context.Context, deviceID string, durationSeconds int) (RunInfo, context.Context) {
	ctx, cancel := context.WithCancel(parent)
	info := RunInfo{
		ID:       uuid.NewString(),
		DeviceID: deviceID,
		Started:  time.Now(),
		Duration: durationSeconds,
	}

	t.mu.Lock()
	t.runs[info.ID] = &run{info: info, cancel: cancel}
	t.mu.Unlock()

	return info, ctx
}

// Finish removes a completed or aborted run.
func (t *Tracker) Finish(id string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if r, ok := t.runs[id]; ok {
		r.cancel()
		delete(t.runs, id)
	}
}

// Cancel aborts a run by ID. Returns false when no such run is active.
func (t *Tracker) Cancel(id string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	r, ok := t.runs[id]
	if !ok {
		return false
	}
	r.cancel()
	delete(t.runs, id)
	return true
}

// ActiveDevice reports whether a device already has a run in flight.
func (t *Tracker) ActiveDevice(deviceID string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	for _, r := range t.runs {
		if r.info.DeviceID == deviceID {
			return true
		}
	}
	return false
}

// Active returns the in-flight runs sorted by start time.
func (t *Tracker) Active() []RunInfo {
	t.mu.Lock()
	defer t.mu.Unlock()

	out := make([]RunInfo, 0, len(t.runs))
	for _, r := range t.runs {
		out = append(out, r.info)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Started.Before(out[j].Started) })
	return out
}
