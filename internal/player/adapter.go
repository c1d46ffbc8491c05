package player

import (
	"context"
	stderrors "errors"
	"sync"
	"time"

	"github.com/rs/zerolog"

	vlog "github.com/hpungsan/vodnote/internal/log"
)

const (
	DefaultPollInterval = 100 * time.Millisecond
	DefaultReadyTimeout = 30 * time.Second
)

// Adapter owns at most one Session at a time and hides the player's
// asynchronous start-up from callers. Commands issued before the session is
// live are dropped.
type Adapter struct {
	backend      Backend
	pollInterval time.Duration
	readyTimeout time.Duration
	logger       zerolog.Logger

	// loadMu serialises teardown and construction so two sessions never coexist
	loadMu sync.Mutex

	mu         sync.Mutex
	state      State
	apiReady   bool
	closed     bool
	started    bool
	videoID    string
	session    Session
	generation uint64
	lastOffset float64
	playback   PlaybackState
	zoomed     bool
	onPlayback func(PlaybackState)
	cancel     context.CancelFunc
	done       chan struct{}
}

// Option configures an Adapter.
type Option func(*Adapter)

// WithPollInterval sets how often Available is polled.
func WithPollInterval(d time.Duration) Option {
	return func(a *Adapter) {
		if d > 0 {
			a.pollInterval = d
		}
	}
}

// WithReadyTimeout bounds how long Start waits for the backend.
func WithReadyTimeout(d time.Duration) Option {
	return func(a *Adapter) {
		if d > 0 {
			a.readyTimeout = d
		}
	}
}

// WithLogger replaces the component logger.
func WithLogger(l zerolog.Logger) Option {
	return func(a *Adapter) { a.logger = l }
}

// New returns an adapter over backend. Call Start to begin waiting for it.
func New(backend Backend, opts ...Option) *Adapter {
	a := &Adapter{
		backend:      backend,
		pollInterval: DefaultPollInterval,
		readyTimeout: DefaultReadyTimeout,
		logger:       vlog.WithComponent("player"),
		playback:     PlaybackUnstarted,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Start polls the backend until it is available, ctx is done, Close is
// called or the ready timeout elapses. A timeout leaves the adapter
// Unavailable. Start is a no-op after the first call.
func (a *Adapter) Start(ctx context.Context) {
	a.mu.Lock()
	if a.started || a.closed {
		a.mu.Unlock()
		return
	}
	a.started = true
	pollCtx, cancel := context.WithTimeout(ctx, a.readyTimeout)
	done := make(chan struct{})
	a.cancel = cancel
	a.done = done
	a.mu.Unlock()

	go a.poll(pollCtx, cancel, done)
}

func (a *Adapter) poll(ctx context.Context, cancel context.CancelFunc, done chan struct{}) {
	defer close(done)
	defer cancel()

	if a.backend.Available() {
		a.markAPIReady()
		return
	}

	ticker := time.NewTicker(a.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			if stderrors.Is(ctx.Err(), context.DeadlineExceeded) {
				a.markUnavailable()
			}
			return
		case <-ticker.C:
			if a.backend.Available() {
				a.markAPIReady()
				return
			}
		}
	}
}

func (a *Adapter) markAPIReady() {
	a.mu.Lock()
	if a.closed || a.apiReady {
		a.mu.Unlock()
		return
	}
	a.apiReady = true
	a.setState(StateAPIReady)
	videoID := a.videoID
	a.mu.Unlock()

	if videoID != "" {
		a.Load(videoID)
	}
}

func (a *Adapter) markUnavailable() {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.closed || a.apiReady {
		return
	}
	a.setState(StateUnavailable)
	a.logger.Warn().Dur("timeout", a.readyTimeout).Msg("player did not become available")
}

// Load makes videoID the active video. Once the backend is available the
// previous session is destroyed and a new one constructed; before that the
// identifier is only recorded. An empty identifier tears down without
// building anything.
func (a *Adapter) Load(videoID string) {
	a.loadMu.Lock()
	defer a.loadMu.Unlock()

	a.mu.Lock()
	if a.closed {
		a.mu.Unlock()
		return
	}
	a.videoID = videoID
	if !a.apiReady {
		a.mu.Unlock()
		return
	}
	old := a.session
	a.session = nil
	a.generation++
	gen := a.generation
	a.playback = PlaybackUnstarted
	if videoID == "" {
		a.setState(StateDestroyed)
	} else {
		a.setState(StateConstructing)
	}
	a.mu.Unlock()

	a.destroy(old)
	if videoID == "" {
		return
	}

	sess, err := a.backend.NewSession(Options{VideoID: videoID}, a.events(gen))

	a.mu.Lock()
	if err != nil {
		if gen == a.generation {
			a.setState(StateAPIReady)
		}
		a.mu.Unlock()
		a.logger.Warn().Err(err).Str(vlog.FieldVideoID, videoID).Msg("construct player failed")
		return
	}
	if gen != a.generation || a.closed {
		a.mu.Unlock()
		a.destroy(sess)
		return
	}
	a.session = sess
	a.mu.Unlock()
}

// Reload rebuilds the session for the current identifier.
func (a *Adapter) Reload() {
	a.Load(a.VideoID())
}

func (a *Adapter) events(gen uint64) Events {
	return Events{
		OnReady: func(s Session) {
			a.mu.Lock()
			if a.closed || gen != a.generation {
				a.mu.Unlock()
				return
			}
			a.session = s
			a.setState(StateLive)
			zoomed := a.zoomed
			a.mu.Unlock()

			// a new session starts unzoomed
			if zoomed {
				if err := s.SetZoom(true); err != nil {
					a.logger.Debug().Err(err).Str("command", "zoom").Msg("player command failed")
				}
			}
		},
		OnStateChange: func(code int) {
			a.mu.Lock()
			if a.closed || gen != a.generation {
				a.mu.Unlock()
				return
			}
			ps := PlaybackState(code)
			a.playback = ps
			cb := a.onPlayback
			a.mu.Unlock()

			if cb != nil {
				cb(ps)
			}
		},
	}
}

// Close stops the readiness poll and destroys the session.
func (a *Adapter) Close() {
	a.mu.Lock()
	if a.closed {
		a.mu.Unlock()
		return
	}
	a.closed = true
	cancel, done := a.cancel, a.done
	a.mu.Unlock()

	if cancel != nil {
		cancel()
		<-done
	}

	a.loadMu.Lock()
	defer a.loadMu.Unlock()

	a.mu.Lock()
	old := a.session
	a.session = nil
	a.generation++
	a.setState(StateDestroyed)
	a.mu.Unlock()

	a.destroy(old)
}

// destroy tears s down, discarding any error or panic from the player.
func (a *Adapter) destroy(s Session) {
	if s == nil {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			a.logger.Debug().Interface("panic", r).Msg("destroy player panicked")
		}
	}()
	if err := s.Destroy(); err != nil {
		a.logger.Debug().Err(err).Msg("destroy player failed")
	}
}

// setState records a transition. Caller holds mu.
func (a *Adapter) setState(next State) {
	if a.state == next {
		return
	}
	a.logger.Debug().
		Str(vlog.FieldOldState, a.state.String()).
		Str(vlog.FieldNewState, next.String()).
		Str(vlog.FieldVideoID, a.videoID).
		Msg("player state")
	a.state = next
}

// live returns the session when it accepts commands.
func (a *Adapter) live() Session {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.state != StateLive {
		return nil
	}
	return a.session
}

func (a *Adapter) command(name string, fn func(Session) error) {
	s := a.live()
	if s == nil {
		return
	}
	if err := fn(s); err != nil {
		a.logger.Debug().Err(err).Str("command", name).Msg("player command failed")
	}
}

// Play resumes playback. No-op unless live.
func (a *Adapter) Play() {
	a.command("play", Session.Play)
}

// Pause pauses playback. No-op unless live.
func (a *Adapter) Pause() {
	a.command("pause", Session.Pause)
}

// SeekAbsolute jumps to seconds. No-op unless live; the value is passed
// through as given.
func (a *Adapter) SeekAbsolute(seconds float64) {
	a.command("seek", func(s Session) error {
		return s.SeekTo(seconds)
	})
}

// SeekRelative moves by delta seconds from the current time. No-op unless live.
func (a *Adapter) SeekRelative(delta float64) {
	a.command("seek_relative", func(s Session) error {
		now, err := s.CurrentTime()
		if err != nil {
			return err
		}
		return s.SeekTo(now + delta)
	})
}

// ToggleZoom flips the corner zoom and returns the new setting. No-op unless
// live. The setting is reapplied to sessions built by later loads.
func (a *Adapter) ToggleZoom() bool {
	a.mu.Lock()
	if a.state != StateLive || a.session == nil {
		zoomed := a.zoomed
		a.mu.Unlock()
		return zoomed
	}
	a.zoomed = !a.zoomed
	s, zoomed := a.session, a.zoomed
	a.mu.Unlock()

	if err := s.SetZoom(zoomed); err != nil {
		a.logger.Debug().Err(err).Str("command", "zoom").Msg("player command failed")
	}
	return zoomed
}

// Zoomed reports the corner zoom setting.
func (a *Adapter) Zoomed() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.zoomed
}

// CurrentOffset returns the playback position. When the session is not live
// or cannot answer, the last known position is returned (0 initially).
func (a *Adapter) CurrentOffset() float64 {
	s := a.live()
	if s != nil {
		if t, err := s.CurrentTime(); err == nil {
			a.mu.Lock()
			a.lastOffset = t
			a.mu.Unlock()
			return t
		}
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.lastOffset
}

// OnPlayback registers fn to receive playback state changes of the current
// session. It replaces any earlier registration.
func (a *Adapter) OnPlayback(fn func(PlaybackState)) {
	a.mu.Lock()
	a.onPlayback = fn
	a.mu.Unlock()
}

// State returns the lifecycle state.
func (a *Adapter) State() State {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.state
}

// Live reports whether commands are currently forwarded to a session.
func (a *Adapter) Live() bool {
	return a.State() == StateLive
}

// Playback returns the last reported playback state.
func (a *Adapter) Playback() PlaybackState {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.playback
}

// VideoID returns the active identifier.
func (a *Adapter) VideoID() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.videoID
}
