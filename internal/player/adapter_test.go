package player

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	vlog "github.com/hpungsan/vodnote/internal/log"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

const waitFor = 2 * time.Second

func newTestAdapter(t *testing.T, b *fakeBackend, opts ...Option) *Adapter {
	t.Helper()
	opts = append([]Option{
		WithLogger(vlog.Discard()),
		WithPollInterval(5 * time.Millisecond),
	}, opts...)
	a := New(b, opts...)
	t.Cleanup(a.Close)
	return a
}

// readyAdapter returns an adapter whose backend is already available.
func readyAdapter(t *testing.T, b *fakeBackend) *Adapter {
	t.Helper()
	b.available.Store(true)
	a := newTestAdapter(t, b)
	a.Start(context.Background())
	require.Eventually(t, func() bool { return a.State() == StateAPIReady }, waitFor, time.Millisecond)
	return a
}

func TestStart_WaitsForBackend(t *testing.T) {
	b := &fakeBackend{}
	a := newTestAdapter(t, b)

	a.Load("dQw4w9WgXcQ")
	a.Start(context.Background())

	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, StateUninitialized, a.State())
	assert.Equal(t, 0, b.SessionCount())
	assert.Equal(t, "dQw4w9WgXcQ", a.VideoID())

	b.available.Store(true)
	require.Eventually(t, func() bool { return b.SessionCount() == 1 }, waitFor, time.Millisecond)
	assert.Equal(t, StateConstructing, a.State())

	b.Session(0).Ready()
	assert.Equal(t, StateLive, a.State())
	assert.True(t, a.Live())
}

func TestStart_TimeoutMarksUnavailable(t *testing.T) {
	b := &fakeBackend{}
	a := newTestAdapter(t, b, WithReadyTimeout(20*time.Millisecond))

	a.Start(context.Background())
	require.Eventually(t, func() bool { return a.State() == StateUnavailable }, waitFor, time.Millisecond)

	a.Load("dQw4w9WgXcQ")
	b.available.Store(true)
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, 0, b.SessionCount())
	assert.Equal(t, StateUnavailable, a.State())
}

func TestStart_ContextCancelStopsPolling(t *testing.T) {
	b := &fakeBackend{}
	a := newTestAdapter(t, b)

	ctx, cancel := context.WithCancel(context.Background())
	a.Start(ctx)
	cancel()

	time.Sleep(20 * time.Millisecond)
	b.available.Store(true)
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, StateUninitialized, a.State())
}

func TestLoad_DestroysPreviousBeforeConstructing(t *testing.T) {
	b := &fakeBackend{syncReady: true}
	a := readyAdapter(t, b)

	a.Load("aaaaaaaaaaa")
	a.Load("bbbbbbbbbbb")

	assert.Equal(t, []string{
		"new:aaaaaaaaaaa",
		"destroy:aaaaaaaaaaa",
		"new:bbbbbbbbbbb",
	}, b.Calls())
	assert.True(t, b.Session(0).Destroyed())
	assert.False(t, b.Session(1).Destroyed())
	assert.Equal(t, StateLive, a.State())
}

func TestLoad_EmptyIDTearsDown(t *testing.T) {
	b := &fakeBackend{syncReady: true}
	a := readyAdapter(t, b)

	a.Load("aaaaaaaaaaa")
	a.Load("")

	assert.True(t, b.Session(0).Destroyed())
	assert.Equal(t, StateDestroyed, a.State())
	assert.Equal(t, 1, b.SessionCount())

	a.Play()
	assert.NotContains(t, b.Calls(), "play:aaaaaaaaaaa")
}

func TestLoad_ConstructErrorFallsBack(t *testing.T) {
	b := &fakeBackend{newErr: fmt.Errorf("no display")}
	a := readyAdapter(t, b)

	a.Load("aaaaaaaaaaa")
	assert.Equal(t, StateAPIReady, a.State())
	assert.Equal(t, "aaaaaaaaaaa", a.VideoID())
}

func TestLoad_DestroyFailuresSwallowed(t *testing.T) {
	tests := []struct {
		name  string
		setup func(s *fakeSession)
	}{
		{"error", func(s *fakeSession) { s.destroyErr = fmt.Errorf("already detached") }},
		{"panic", func(s *fakeSession) { s.panicOnEnd = true }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := &fakeBackend{syncReady: true}
			a := readyAdapter(t, b)

			a.Load("aaaaaaaaaaa")
			tt.setup(b.Session(0))

			require.NotPanics(t, func() { a.Load("bbbbbbbbbbb") })
			assert.Equal(t, 2, b.SessionCount())
			assert.Equal(t, StateLive, a.State())
		})
	}
}

func TestReload_RebuildsSameVideo(t *testing.T) {
	b := &fakeBackend{syncReady: true}
	a := readyAdapter(t, b)

	a.Load("aaaaaaaaaaa")
	a.Reload()

	assert.Equal(t, []string{
		"new:aaaaaaaaaaa",
		"destroy:aaaaaaaaaaa",
		"new:aaaaaaaaaaa",
	}, b.Calls())
}

func TestStaleReadyIgnored(t *testing.T) {
	b := &fakeBackend{}
	a := readyAdapter(t, b)

	a.Load("aaaaaaaaaaa")
	a.Load("bbbbbbbbbbb")

	b.Session(0).Ready()
	assert.Equal(t, StateConstructing, a.State())

	b.Session(1).Ready()
	assert.Equal(t, StateLive, a.State())

	a.Play()
	assert.Contains(t, b.Calls(), "play:bbbbbbbbbbb")
	assert.NotContains(t, b.Calls(), "play:aaaaaaaaaaa")
}

func TestCommandsBeforeLiveAreDropped(t *testing.T) {
	b := &fakeBackend{}
	a := readyAdapter(t, b)
	a.Load("aaaaaaaaaaa")

	a.Play()
	a.Pause()
	a.SeekAbsolute(30)
	a.SeekRelative(5)

	b.Session(0).Ready()
	a.SeekAbsolute(60)

	assert.Equal(t, []string{"new:aaaaaaaaaaa", "seek:aaaaaaaaaaa:60"}, b.Calls())
}

func TestToggleZoom_DroppedBeforeLive(t *testing.T) {
	b := &fakeBackend{}
	a := readyAdapter(t, b)
	a.Load("aaaaaaaaaaa")

	assert.False(t, a.ToggleZoom())
	assert.False(t, a.Zoomed())

	b.Session(0).Ready()
	assert.True(t, a.ToggleZoom())
	assert.False(t, a.ToggleZoom())

	assert.Equal(t, []string{
		"new:aaaaaaaaaaa",
		"zoom:aaaaaaaaaaa:true",
		"zoom:aaaaaaaaaaa:false",
	}, b.Calls())
}

func TestToggleZoom_CarriesToNextSession(t *testing.T) {
	b := &fakeBackend{}
	a := readyAdapter(t, b)
	a.Load("aaaaaaaaaaa")
	b.Session(0).Ready()
	require.True(t, a.ToggleZoom())

	a.Load("bbbbbbbbbbb")
	assert.NotContains(t, b.Calls(), "zoom:bbbbbbbbbbb:true")

	b.Session(1).Ready()
	assert.True(t, a.Zoomed())
	assert.Equal(t, "zoom:bbbbbbbbbbb:true", b.Calls()[len(b.Calls())-1])
}

func TestSeekRelative_NoClamping(t *testing.T) {
	b := &fakeBackend{syncReady: true}
	a := readyAdapter(t, b)
	a.Load("aaaaaaaaaaa")
	b.Session(0).SetTime(2)

	a.SeekRelative(-5)

	assert.Contains(t, b.Calls(), "seek:aaaaaaaaaaa:-3")
}

func TestCurrentOffset_LastKnown(t *testing.T) {
	b := &fakeBackend{syncReady: true}
	a := readyAdapter(t, b)

	assert.Equal(t, float64(0), a.CurrentOffset())

	a.Load("aaaaaaaaaaa")
	b.Session(0).SetTime(42.5)
	assert.Equal(t, 42.5, a.CurrentOffset())

	b.Session(0).mu.Lock()
	b.Session(0).timeErr = fmt.Errorf("ipc closed")
	b.Session(0).mu.Unlock()
	assert.Equal(t, 42.5, a.CurrentOffset())

	a.Load("")
	assert.Equal(t, 42.5, a.CurrentOffset())
}

func TestPlaybackEvents(t *testing.T) {
	b := &fakeBackend{syncReady: true}
	a := readyAdapter(t, b)

	var mu sync.Mutex
	var seen []PlaybackState
	a.OnPlayback(func(ps PlaybackState) {
		mu.Lock()
		seen = append(seen, ps)
		mu.Unlock()
	})

	a.Load("aaaaaaaaaaa")
	assert.Equal(t, PlaybackUnstarted, a.Playback())

	b.Session(0).Emit(1)
	assert.True(t, a.Playback().Playing())

	a.Load("bbbbbbbbbbb")
	b.Session(0).Emit(2)
	b.Session(1).Emit(7)

	assert.Equal(t, PlaybackState(7), a.Playback())
	assert.Equal(t, 7, a.Playback().Code())
	assert.False(t, a.Playback().Playing())

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []PlaybackState{PlaybackPlaying, PlaybackState(7)}, seen)
}

func TestClose_IgnoresLateReady(t *testing.T) {
	b := &fakeBackend{}
	a := readyAdapter(t, b)
	a.Load("aaaaaaaaaaa")

	a.Close()
	assert.True(t, b.Session(0).Destroyed())

	b.Session(0).Ready()
	assert.Equal(t, StateDestroyed, a.State())

	a.Load("bbbbbbbbbbb")
	assert.Equal(t, 1, b.SessionCount())
}

func TestClose_StopsPendingPoll(t *testing.T) {
	b := &fakeBackend{}
	a := newTestAdapter(t, b)
	a.Start(context.Background())

	a.Close()
	a.Close()
	assert.Equal(t, StateDestroyed, a.State())
}

func TestStateStrings(t *testing.T) {
	assert.Equal(t, "live", StateLive.String())
	assert.Equal(t, "unavailable", StateUnavailable.String())
	assert.Equal(t, "cued", PlaybackCued.String())
	assert.Equal(t, "code(9)", PlaybackState(9).String())
}
