package commands

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRampStartCommand(t *testing.T) {
	ctx := mockContext(&mockClient{})

	out := captureStdout(func() {
		cmd := newRampStartCommand()
		cmd.SetContext(ctx)
		cmd.SetArgs([]string{"--duration", "600"})
		require.NoError(t, cmd.Execute())
	})
	require.Contains(t, out, "Started 1 ramp(s)")
	require.Contains(t, out, "run-1")
	require.Contains(t, out, "dev-a")
}

func TestRampStartCommandParseable(t *testing.T) {
	ctx := mockContext(&mockClient{})

	out := captureStdout(func() {
		cmd := newRampStartCommand()
		cmd.SetContext(ctx)
		cmd.SetArgs([]string{"-d", "600", "--parseable"})
		require.NoError(t, cmd.Execute())
	})
	require.Contains(t, out, `id="run-1"`)
	require.Contains(t, out, `device="dev-a"`)
	require.Contains(t, out, "duration=600")
}

func TestRampCancelCommand(t *testing.T) {
	mock := &mockClient{}
	ctx := mockContext(mock)

	out := captureStdout(func() {
		cmd := newRampCancelCommand()
		cmd.SetContext(ctx)
		cmd.SetArgs([]string{"run-1"})
		require.NoError(t, cmd.Execute())
	})
	require.Contains(t, out, "cancelled")
	require.Equal(t, []string{"run-1"}, mock.cancelledIDs)
}
