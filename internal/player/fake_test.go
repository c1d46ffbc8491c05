package player

import (
	"fmt"
	"sync"
	"sync/atomic"
)

// fakeBackend records every call so tests can assert ordering.
type fakeBackend struct {
	available atomic.Bool

	mu        sync.Mutex
	syncReady bool
	newErr    error
	sessions  []*fakeSession
	calls     []string
}

func (b *fakeBackend) Available() bool { return b.available.Load() }

func (b *fakeBackend) NewSession(opts Options, ev Events) (Session, error) {
	b.mu.Lock()
	b.calls = append(b.calls, "new:"+opts.VideoID)
	if b.newErr != nil {
		err := b.newErr
		b.mu.Unlock()
		return nil, err
	}
	s := &fakeSession{backend: b, videoID: opts.VideoID, events: ev}
	b.sessions = append(b.sessions, s)
	syncReady := b.syncReady
	b.mu.Unlock()

	if syncReady {
		ev.OnReady(s)
	}
	return s, nil
}

func (b *fakeBackend) record(call string) {
	b.mu.Lock()
	b.calls = append(b.calls, call)
	b.mu.Unlock()
}

func (b *fakeBackend) Calls() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]string(nil), b.calls...)
}

func (b *fakeBackend) Session(i int) *fakeSession {
	b.mu.Lock()
	defer b.mu.Unlock()
	if i >= len(b.sessions) {
		return nil
	}
	return b.sessions[i]
}

func (b *fakeBackend) SessionCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.sessions)
}

type fakeSession struct {
	backend *fakeBackend
	videoID string
	events  Events

	mu         sync.Mutex
	time       float64
	timeErr    error
	destroyErr error
	panicOnEnd bool
	destroyed  bool
}

func (s *fakeSession) Ready() { s.events.OnReady(s) }

func (s *fakeSession) Emit(code int) { s.events.OnStateChange(code) }

func (s *fakeSession) SetTime(t float64) {
	s.mu.Lock()
	s.time = t
	s.mu.Unlock()
}

func (s *fakeSession) Play() error {
	s.backend.record("play:" + s.videoID)
	return nil
}

func (s *fakeSession) Pause() error {
	s.backend.record("pause:" + s.videoID)
	return nil
}

func (s *fakeSession) SeekTo(seconds float64) error {
	s.backend.record(fmt.Sprintf("seek:%s:%g", s.videoID, seconds))
	return nil
}

func (s *fakeSession) SetZoom(zoomed bool) error {
	s.backend.record(fmt.Sprintf("zoom:%s:%t", s.videoID, zoomed))
	return nil
}

func (s *fakeSession) CurrentTime() (float64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.time, s.timeErr
}

func (s *fakeSession) Destroy() error {
	s.backend.record("destroy:" + s.videoID)
	s.mu.Lock()
	s.destroyed = true
	panicking, err := s.panicOnEnd, s.destroyErr
	s.mu.Unlock()
	if panicking {
		panic("player already gone")
	}
	return err
}

func (s *fakeSession) Destroyed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.destroyed
}
