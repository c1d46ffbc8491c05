// Package player mediates between the review session and an external,
// asynchronously initialised playback session.
package player

import "fmt"

// Backend is the playback capability: it reports when the player runtime is
// usable and builds sessions for a video identifier.
type Backend interface {
	// Available reports whether sessions can be constructed yet.
	Available() bool
	// NewSession starts building a session. OnReady fires once the session
	// accepts commands, possibly before NewSession returns.
	NewSession(opts Options, ev Events) (Session, error)
}

// Session is one constructed player bound to one video.
type Session interface {
	Play() error
	Pause() error
	SeekTo(seconds float64) error
	CurrentTime() (float64, error)
	// SetZoom enlarges the picture ZoomFactor times anchored at the
	// bottom-right corner, or restores the normal view.
	SetZoom(zoomed bool) error
	Destroy() error
}

// ZoomFactor is the corner zoom magnification.
const ZoomFactor = 3

// Options configures a new session.
type Options struct {
	VideoID string
}

// Events are the callbacks a backend raises for a session.
type Events struct {
	OnReady       func(Session)
	OnStateChange func(code int)
}

// State is the adapter lifecycle.
type State int

const (
	StateUninitialized State = iota
	StateAPIReady
	StateConstructing
	StateLive
	StateDestroyed
	StateUnavailable
)

func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateAPIReady:
		return "api_ready"
	case StateConstructing:
		return "constructing"
	case StateLive:
		return "live"
	case StateDestroyed:
		return "destroyed"
	case StateUnavailable:
		return "unavailable"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// PlaybackState is the player-reported playback code. Codes outside the
// named set are kept as reported.
type PlaybackState int

const (
	PlaybackUnstarted PlaybackState = -1
	PlaybackEnded     PlaybackState = 0
	PlaybackPlaying   PlaybackState = 1
	PlaybackPaused    PlaybackState = 2
	PlaybackBuffering PlaybackState = 3
	PlaybackCued      PlaybackState = 5
)

// Code returns the raw code.
func (p PlaybackState) Code() int { return int(p) }

// Playing reports whether the player is currently playing.
func (p PlaybackState) Playing() bool { return p == PlaybackPlaying }

func (p PlaybackState) String() string {
	switch p {
	case PlaybackUnstarted:
		return "unstarted"
	case PlaybackEnded:
		return "ended"
	case PlaybackPlaying:
		return "playing"
	case PlaybackPaused:
		return "paused"
	case PlaybackBuffering:
		return "buffering"
	case PlaybackCued:
		return "cued"
	default:
		return fmt.Sprintf("code(%d)", int(p))
	}
}
