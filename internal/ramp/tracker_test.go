package ramp

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTrackerStartAndFinish(t *testing.T) {
	tr := NewTracker()

	info, ctx := tr.Start(context.Background(), "dev-a", 1800)
	assert.NotEmpty(t, info.ID)
	assert.Equal(t, "dev-a", info.DeviceID)
	assert.Equal(t, 1800, info.Duration)
	assert.NoError(t, ctx.Err())

	assert.True(t, tr.ActiveDevice("dev-a"))
	assert.False(t, tr.ActiveDevice("dev-b"))

	tr.Finish(info.ID)
	assert.False(t, tr.ActiveDevice("dev-a"))
	assert.Empty(t, tr.Active())

	// Finishing twice is harmless
	tr.Finish(info.ID)
}

func TestTrackerCancelAbortsContext(t *testing.T) {
	tr := NewTracker()

	info, ctx := tr.Start(context.Background(), "dev-a", 600)
	require.True(t, tr.Cancel(info.ID))
	assert.ErrorIs(t, ctx.Err(), context.Canceled)
	assert.False(t, tr.ActiveDevice("dev-a"))

	assert.False(t, tr.Cancel(info.ID), "already cancelled")
	assert.False(t, tr.Cancel("no-such-run"))
}

func TestTrackerActiveSortedByStart(t *testing.T) {
	tr := NewTracker()

	a, _ := tr.Start(context.Background(), "dev-a", 60)
	b, _ := tr.Start(context.Background(), "dev-b", 60)
	c, _ := tr.Start(context.Background(), "dev-c", 60)

	active := tr.Active()
	require.Len(t, active, 3)
	assert.Equal(t, a.ID, active[0].ID)
	assert.Equal(t, b.ID, active[1].ID)
	assert.Equal(t, c.ID, active[2].ID)

	ids := map[string]bool{a.ID: true, b.ID: true, c.ID: true}
	assert.Len(t, ids, 3, "run IDs are unique")
}

func TestTrackerInheritsParentCancellation(t *testing.T) {
	tr := NewTracker()

	parent, cancel := context.WithCancel(context.Background())
	_, ctx := tr.Start(parent, "dev-a", 60)

	cancel()
	assert.ErrorIs(t, ctx.Err(), context.Canceled)
}
