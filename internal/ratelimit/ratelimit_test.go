package ratelimit

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	now time.Time
}

func (f *fakeClock) Now() time.Time { return f.now }

func (f *fakeClock) Advance(d time.Duration) { f.now = f.now.Add(d) }

func TestAllowRejectsEleventhRequestInWindow(t *testing.T) {
	clock := &fakeClock{now: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
	limiter := New(DefaultLimit, DefaultWindow)
	limiter.SetClock(clock.Now)

	for i := 0; i < 10; i++ {
		require.Truef(t, limiter.Allow("203.0.113.7"), "request %d should be allowed", i+1)
		clock.Advance(time.Second)
	}
	require.False(t, limiter.Allow("203.0.113.7"))
	require.False(t, limiter.Allow("203.0.113.7"))
	require.Equal(t, 0, limiter.Remaining("203.0.113.7"))
}

func TestAllowTracksKeysIndependently(t *testing.T) {
	limiter := New(2, time.Minute)

	require.True(t, limiter.Allow("a"))
	require.True(t, limiter.Allow("a"))
	require.False(t, limiter.Allow("a"))
	require.True(t, limiter.Allow("b"))
	require.Equal(t, 1, limiter.Remaining("b"))
}

func TestAllowSlidesWindow(t *testing.T) {
	clock := &fakeClock{now: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
	limiter := New(2, time.Minute)
	limiter.SetClock(clock.Now)

	require.True(t, limiter.Allow("k"))
	clock.Advance(30 * time.Second)
	require.True(t, limiter.Allow("k"))
	require.False(t, limiter.Allow("k"))

	// the first hit leaves the window, the second one is still counted
	clock.Advance(31 * time.Second)
	require.True(t, limiter.Allow("k"))
	require.False(t, limiter.Allow("k"))

	clock.Advance(2 * time.Minute)
	require.Equal(t, 2, limiter.Remaining("k"))
}

func TestResetClearsState(t *testing.T) {
	limiter := New(1, time.Minute)
	require.True(t, limiter.Allow("k"))
	require.False(t, limiter.Allow("k"))

	limiter.Reset()
	require.True(t, limiter.Allow("k"))
}

func TestNewAppliesDefaults(t *testing.T) {
	limiter := New(0, 0)
	require.Equal(t, DefaultLimit, limiter.limit)
	require.Equal(t, DefaultWindow, limiter.window)
}
