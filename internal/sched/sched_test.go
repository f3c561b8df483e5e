package sched

import (
	"testing"

	"github.com/desertwitch/flatkern/internal/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestScheduler(t *testing.T, entries ...uint32) *Scheduler {
	t.Helper()

	s := NewScheduler(DefaultOptions())
	for i, entry := range entries {
		id, err := s.Create(entry)
		require.NoError(t, err)
		require.Equal(t, i, id)
	}

	return s
}

// TestCreate_Success_FirstFreeSlot tests slot claiming and reuse.
func TestCreate_Success_FirstFreeSlot(t *testing.T) {
	t.Parallel()

	s := newTestScheduler(t, 0x1000, 0x2000, 0x3000, 0x4000)

	_, err := s.Create(0x5000)
	require.ErrorIs(t, err, ErrNoFreeTask)

	s.tasks[2].Stack[100] = 0xFF
	_, err = s.Kill(2)
	require.NoError(t, err)

	id, err := s.Create(0x6000)
	require.NoError(t, err)
	assert.Equal(t, 2, id)
	assert.Equal(t, uint32(0x6000), s.tasks[2].Entry)
	assert.Equal(t, make([]byte, DefaultStackSize), s.tasks[2].Stack, "stack should be zeroed")
}

// TestYield_Success_Fairness tests round-robin order with an inactive
// slot and a task killing itself.
func TestYield_Success_Fairness(t *testing.T) {
	t.Parallel()

	s := newTestScheduler(t, 0xA000, 0xB000, 0xC000)

	_, err := s.Start(1)
	require.NoError(t, err)

	out, err := s.Kill(0)
	require.NoError(t, err)
	assert.Equal(t, schema.Resume, out.Kind, "killing another task resumes the caller")

	out = s.Yield()
	require.Equal(t, schema.Switch, out.Kind)
	assert.Equal(t, 2, out.Task)
	assert.Equal(t, uint32(0xC000), out.Frame.EIP)

	out, err = s.Kill(2)
	require.NoError(t, err)
	require.Equal(t, schema.Switch, out.Kind, "killing the current task yields")
	assert.Equal(t, 1, out.Task)

	out = s.Yield()
	require.Equal(t, schema.Switch, out.Kind)
	assert.Equal(t, 1, out.Task, "sole task re-enters itself")
	assert.Equal(t, uint32(0xB000), out.Frame.EIP)
}

// TestYield_Success_Halt tests that an empty pool halts.
func TestYield_Success_Halt(t *testing.T) {
	t.Parallel()

	s := newTestScheduler(t, 0x1000)

	_, err := s.Start(0)
	require.NoError(t, err)

	out := s.Exit()
	assert.Equal(t, schema.Halt, out.Kind)
	assert.NotEmpty(t, out.Reason)

	assert.Equal(t, schema.Halt, s.Yield().Kind)
}

// TestStart_Success_Frame tests the privilege transition frame.
func TestStart_Success_Frame(t *testing.T) {
	t.Parallel()

	s := newTestScheduler(t, 0x1000, 0x2000)

	out, err := s.Start(1)
	require.NoError(t, err)

	assert.Equal(t, schema.Outcome{
		Kind: schema.Switch,
		Task: 1,
		Frame: schema.IRetFrame{
			SS:     0x23,
			ESP:    DefaultStackBase + 2*DefaultStackSize,
			EFlags: 0x202,
			CS:     0x1B,
			EIP:    0x2000,
		},
	}, out)
	assert.Equal(t, 1, s.Current())
}

// TestStart_Fail_Table tests rejected first entries.
func TestStart_Fail_Table(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name    string
		id      int
		wantErr error
	}{
		{"Fail_Negative", -1, ErrInvalidTask},
		{"Fail_OutOfRange", DefaultTasks, ErrInvalidTask},
		{"Fail_Inactive", 3, ErrInactiveTask},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			s := newTestScheduler(t, 0x1000)

			_, err := s.Start(tc.id)
			require.ErrorIs(t, err, tc.wantErr)
			assert.Equal(t, 0, s.Current())
		})
	}
}

// TestKill_Fail_InvalidTask tests out-of-range kills.
func TestKill_Fail_InvalidTask(t *testing.T) {
	t.Parallel()

	s := newTestScheduler(t, 0x1000)

	out, err := s.Kill(7)
	require.ErrorIs(t, err, ErrInvalidTask)
	assert.Equal(t, schema.Resume, out.Kind)

	task, err := s.Task(0)
	require.NoError(t, err)
	assert.True(t, task.Active)
}

// TestCapture_Success tests that the trapped registers land on the current
// task.
func TestCapture_Success(t *testing.T) {
	t.Parallel()

	s := newTestScheduler(t, 0x1000, 0x2000)

	_, err := s.Start(1)
	require.NoError(t, err)

	regs := schema.Registers{EAX: 2, EBX: 0x3000, EIP: 0x2010}
	s.Capture(regs)

	task, err := s.Task(1)
	require.NoError(t, err)
	assert.True(t, task.HasSaved)
	assert.Equal(t, regs, task.Saved)

	snap := s.Snapshot()
	require.Len(t, snap, DefaultTasks)
	assert.True(t, snap[1].Current)
	assert.False(t, snap[0].Current)
	assert.Equal(t, regs, snap[1].Saved)
}
