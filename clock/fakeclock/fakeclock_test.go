package fakeclock_test

import (
	"testing"
	"time"

	"github.com/jrsteele09/go-auth-session/clock/fakeclock"
	"github.com/stretchr/testify/require"
)

func TestClock_AdvanceFiresInOrder(t *testing.T) {
	start := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	c := fakeclock.New(start)

	var fired []string
	c.AfterFunc(2*time.Second, func() { fired = append(fired, "b") })
	c.AfterFunc(time.Second, func() { fired = append(fired, "a") })
	c.AfterFunc(time.Minute, func() { fired = append(fired, "late") })

	c.Advance(3 * time.Second)

	require.Equal(t, []string{"a", "b"}, fired)
	require.Equal(t, 1, c.Pending())
	require.Equal(t, start.Add(3*time.Second), c.Now())
}

func TestClock_StopPreventsFire(t *testing.T) {
	c := fakeclock.New(time.Now())

	fired := false
	timer := c.AfterFunc(time.Second, func() { fired = true })
	require.True(t, timer.Stop())
	require.False(t, timer.Stop())

	c.Advance(time.Hour)
	require.False(t, fired)
	require.Equal(t, 1, c.Armed())
	require.Equal(t, 1, c.Stopped())
}

func TestClock_TimerArmedByCallback(t *testing.T) {
	c := fakeclock.New(time.Now())

	count := 0
	var tick func()
	tick = func() {
		count++
		c.AfterFunc(time.Second, tick)
	}
	c.AfterFunc(time.Second, tick)

	c.Advance(3500 * time.Millisecond)
	require.Equal(t, 3, count)
	require.Equal(t, []time.Duration{time.Second}, c.Delays())
}
