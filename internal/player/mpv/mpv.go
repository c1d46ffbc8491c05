// Package mpv is a player backend that drives an mpv process over its JSON
// IPC socket.
package mpv

import (
	"encoding/json"
	"fmt"
	"math"
	"net"
	"os"
	"os/exec"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	vlog "github.com/hpungsan/vodnote/internal/log"
	"github.com/hpungsan/vodnote/internal/player"
	"github.com/hpungsan/vodnote/internal/videoref"
)

const (
	defaultDialTimeout = 10 * time.Second
	defaultCallTimeout = 2 * time.Second
	dialRetry          = 50 * time.Millisecond
	quitGrace          = time.Second
)

// observed properties, keyed by the id passed to observe_property
var observed = []string{"pause", "eof-reached", "paused-for-cache"}

// Backend launches one mpv process per session.
type Backend struct {
	path        string
	socketDir   string
	dialTimeout time.Duration
	callTimeout time.Duration
	logger      zerolog.Logger
	lookPath    func(string) (string, error)

	seq atomic.Int64
}

// Option configures a Backend.
type Option func(*Backend)

// WithSocketDir sets where IPC sockets are created (default os.TempDir()).
func WithSocketDir(dir string) Option {
	return func(b *Backend) { b.socketDir = dir }
}

// WithDialTimeout bounds how long a new session waits for mpv's socket.
func WithDialTimeout(d time.Duration) Option {
	return func(b *Backend) { b.dialTimeout = d }
}

// WithLogger replaces the component logger.
func WithLogger(l zerolog.Logger) Option {
	return func(b *Backend) { b.logger = l }
}

// New returns a backend running the mpv executable at path.
func New(path string, opts ...Option) *Backend {
	if path == "" {
		path = "mpv"
	}
	b := &Backend{
		path:        path,
		socketDir:   os.TempDir(),
		dialTimeout: defaultDialTimeout,
		callTimeout: defaultCallTimeout,
		logger:      vlog.WithComponent("mpv"),
		lookPath:    exec.LookPath,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Available reports whether the mpv executable can be found.
func (b *Backend) Available() bool {
	_, err := b.lookPath(b.path)
	return err == nil
}

// args returns the command line for a session.
func (b *Backend) args(socket, videoID string) []string {
	return []string{
		"--input-ipc-server=" + socket,
		"--force-window=yes",
		"--keep-open=yes",
		videoref.WatchURL(videoID),
	}
}

// NewSession starts mpv for opts.VideoID. The IPC socket is dialled in the
// background; ev.OnReady fires once it is connected.
func (b *Backend) NewSession(opts player.Options, ev player.Events) (player.Session, error) {
	socket := filepath.Join(b.socketDir, fmt.Sprintf("vodnote-mpv-%d-%d.sock", os.Getpid(), b.seq.Add(1)))
	_ = os.Remove(socket)

	cmd := exec.Command(b.path, b.args(socket, opts.VideoID)...)
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("start mpv: %w", err)
	}

	s := &session{
		backend: b,
		cmd:     cmd,
		socket:  socket,
		events:  ev,
		logger:  b.logger.With().Str(vlog.FieldVideoID, opts.VideoID).Logger(),
		stop:    make(chan struct{}),
		exited:  make(chan struct{}),
		dialed:  make(chan struct{}),
	}
	go func() {
		_ = cmd.Wait()
		close(s.exited)
	}()
	go s.connect()

	return s, nil
}

type session struct {
	backend *Backend
	cmd     *exec.Cmd
	socket  string
	events  player.Events
	logger  zerolog.Logger

	mu   sync.Mutex
	conn *ipc

	stopOnce sync.Once
	stop     chan struct{}
	exited   chan struct{}
	dialed   chan struct{}
}

func (s *session) connect() {
	defer close(s.dialed)

	deadline := time.Now().Add(s.backend.dialTimeout)
	for {
		nc, err := net.Dial("unix", s.socket)
		if err == nil {
			s.attach(nc)
			return
		}
		if time.Now().After(deadline) {
			s.logger.Warn().Err(err).Str(vlog.FieldPath, s.socket).Msg("mpv ipc socket never came up")
			return
		}
		select {
		case <-s.stop:
			return
		case <-s.exited:
			s.logger.Warn().Msg("mpv exited before ipc was ready")
			return
		case <-time.After(dialRetry):
		}
	}
}

func (s *session) attach(rw net.Conn) {
	c := newIPC(rw, s.backend.callTimeout, s.handleEvent)

	s.mu.Lock()
	select {
	case <-s.stop:
		s.mu.Unlock()
		_ = c.close()
		return
	default:
	}
	s.conn = c
	s.mu.Unlock()

	for i, name := range observed {
		if _, err := c.call("observe_property", i+1, name); err != nil {
			s.logger.Debug().Err(err).Str("property", name).Msg("observe failed")
		}
	}

	if s.events.OnReady != nil {
		s.events.OnReady(s)
	}
}

// handleEvent maps mpv property changes onto playback codes.
func (s *session) handleEvent(msg message) {
	if s.events.OnStateChange == nil {
		return
	}
	if code, ok := playbackCode(msg); ok {
		s.events.OnStateChange(code)
	}
}

func playbackCode(msg message) (int, bool) {
	switch msg.Event {
	case "property-change":
		var on bool
		if err := json.Unmarshal(msg.Data, &on); err != nil {
			return 0, false
		}
		switch msg.Name {
		case "pause":
			if on {
				return int(player.PlaybackPaused), true
			}
			return int(player.PlaybackPlaying), true
		case "eof-reached":
			if on {
				return int(player.PlaybackEnded), true
			}
		case "paused-for-cache":
			if on {
				return int(player.PlaybackBuffering), true
			}
		}
	case "start-file":
		return int(player.PlaybackUnstarted), true
	case "file-loaded":
		return int(player.PlaybackCued), true
	}
	return 0, false
}

func (s *session) client() (*ipc, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.conn == nil {
		return nil, fmt.Errorf("mpv ipc not connected")
	}
	return s.conn, nil
}

func (s *session) Play() error {
	c, err := s.client()
	if err != nil {
		return err
	}
	_, err = c.call("set_property", "pause", false)
	return err
}

func (s *session) Pause() error {
	c, err := s.client()
	if err != nil {
		return err
	}
	_, err = c.call("set_property", "pause", true)
	return err
}

func (s *session) SeekTo(seconds float64) error {
	c, err := s.client()
	if err != nil {
		return err
	}
	_, err = c.call("seek", seconds, "absolute")
	return err
}

// SetZoom scales the picture towards the bottom-right corner. video-zoom is
// a log2 scale and video-align 1 pins the bottom-right edge.
func (s *session) SetZoom(zoomed bool) error {
	c, err := s.client()
	if err != nil {
		return err
	}
	zoom, align := 0.0, 0.0
	if zoomed {
		zoom, align = math.Log2(player.ZoomFactor), 1
	}
	for _, prop := range []struct {
		name  string
		value float64
	}{
		{"video-align-x", align},
		{"video-align-y", align},
		{"video-zoom", zoom},
	} {
		if _, err := c.call("set_property", prop.name, prop.value); err != nil {
			return err
		}
	}
	return nil
}

func (s *session) CurrentTime() (float64, error) {
	c, err := s.client()
	if err != nil {
		return 0, err
	}
	data, err := c.call("get_property", "time-pos")
	if err != nil {
		return 0, err
	}
	var pos *float64
	if err := json.Unmarshal(data, &pos); err != nil {
		return 0, fmt.Errorf("decode time-pos: %w", err)
	}
	if pos == nil {
		return 0, fmt.Errorf("time-pos unavailable")
	}
	return *pos, nil
}

// Destroy asks mpv to quit, then kills it if it lingers.
func (s *session) Destroy() error {
	s.stopOnce.Do(func() { close(s.stop) })
	<-s.dialed

	s.mu.Lock()
	c := s.conn
	s.conn = nil
	s.mu.Unlock()

	if c != nil {
		_ = c.notify("quit")
		_ = c.close()
	}

	select {
	case <-s.exited:
	case <-time.After(quitGrace):
		if s.cmd.Process != nil {
			_ = s.cmd.Process.Kill()
		}
		<-s.exited
	}

	_ = os.Remove(s.socket)
	return nil
}
