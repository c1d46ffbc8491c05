// Package review ties the note collection, the source URL and the player
// together into one viewing session.
package review

import (
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/hpungsan/vodnote/internal/clipboard"
	"github.com/hpungsan/vodnote/internal/config"
	"github.com/hpungsan/vodnote/internal/entry"
	"github.com/hpungsan/vodnote/internal/errors"
	"github.com/hpungsan/vodnote/internal/exportfile"
	"github.com/hpungsan/vodnote/internal/kv"
	vlog "github.com/hpungsan/vodnote/internal/log"
	"github.com/hpungsan/vodnote/internal/logstore"
	"github.com/hpungsan/vodnote/internal/logtext"
	"github.com/hpungsan/vodnote/internal/metrics"
	"github.com/hpungsan/vodnote/internal/player"
	"github.com/hpungsan/vodnote/internal/videoref"
)

// Player is the part of player.Adapter the session drives.
type Player interface {
	Load(videoID string)
	Reload()
	Play()
	Pause()
	SeekAbsolute(seconds float64)
	SeekRelative(delta float64)
	CurrentOffset() float64
	Playback() player.PlaybackState
	State() player.State
	ToggleZoom() bool
	Zoomed() bool
	OnPlayback(fn func(player.PlaybackState))
	Close()
}

// Session is one viewer reviewing one video.
type Session struct {
	store  *logstore.Store
	kv     kv.Store
	player Player
	sink   clipboard.Sink
	cfg    *config.Config
	logger zerolog.Logger
	now    func() time.Time

	storeOpts []logstore.Option

	mu        sync.Mutex
	sourceURL string
	videoID   string
}

// Option configures a Session.
type Option func(*Session)

// WithPlayer attaches a player. Without one, playback commands do nothing
// and AddNote reports PLAYER_NOT_READY.
func WithPlayer(p Player) Option {
	return func(s *Session) { s.player = p }
}

// WithClipboard sets the export sink.
func WithClipboard(sink clipboard.Sink) Option {
	return func(s *Session) { s.sink = sink }
}

// WithLogger replaces the component logger.
func WithLogger(l zerolog.Logger) Option {
	return func(s *Session) { s.logger = l }
}

// WithClock overrides the time source used for export headers.
func WithClock(now func() time.Time) Option {
	return func(s *Session) { s.now = now }
}

// WithStoreOptions passes options through to the log store.
func WithStoreOptions(opts ...logstore.Option) Option {
	return func(s *Session) { s.storeOpts = append(s.storeOpts, opts...) }
}

// Open restores the session persisted in backend: the note collection and
// the last source URL. When the URL resolves, the player is asked to load it.
func Open(backend kv.Store, cfg *config.Config, opts ...Option) *Session {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	s := &Session{
		kv:     backend,
		player: noPlayer{},
		sink:   clipboard.System{},
		cfg:    cfg,
		logger: vlog.WithComponent("review"),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.store = logstore.Open(backend, append([]logstore.Option{logstore.WithLogger(s.logger)}, s.storeOpts...)...)
	metrics.Entries.Set(float64(s.store.Len()))

	s.restoreSourceURL()
	return s
}

func (s *Session) restoreSourceURL() {
	data, err := s.kv.Get(kv.KeySourceURL)
	if err != nil {
		if !errors.Is(err, errors.ErrNotFound) {
			s.logger.Warn().Err(err).Str(vlog.FieldKey, kv.KeySourceURL).Msg("load source url failed")
		}
		return
	}

	s.mu.Lock()
	s.sourceURL = string(data)
	id, ok := videoref.Resolve(s.sourceURL)
	if ok {
		s.videoID = id
	}
	s.mu.Unlock()

	if ok {
		s.player.Load(id)
	}
}

// SourceURL returns the URL text as last entered.
func (s *Session) SourceURL() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sourceURL
}

// VideoID returns the active video identifier, or "".
func (s *Session) VideoID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.videoID
}

// SetSourceURL records text as the source URL and persists it as typed.
// When it resolves to a different identifier the player loads the new
// video. Text that does not resolve keeps the current video.
func (s *Session) SetSourceURL(text string) (videoID string, changed bool) {
	if err := s.kv.Put(kv.KeySourceURL, []byte(text)); err != nil {
		s.logger.Warn().Err(err).Str(vlog.FieldKey, kv.KeySourceURL).Msg("save source url failed")
	}

	s.mu.Lock()
	s.sourceURL = text
	id, ok := videoref.Resolve(text)
	if !ok || id == s.videoID {
		current := s.videoID
		s.mu.Unlock()
		return current, false
	}
	s.videoID = id
	s.mu.Unlock()

	s.logger.Info().Str(vlog.FieldVideoID, id).Msg("video changed")
	s.player.Load(id)
	return id, true
}

// Reload rebuilds the player for the current video.
func (s *Session) Reload() {
	s.player.Reload()
}

// PlayerState returns the player lifecycle state.
func (s *Session) PlayerState() player.State {
	return s.player.State()
}

// Playing reports whether the player says it is playing.
func (s *Session) Playing() bool {
	return s.player.Playback().Playing()
}

// CurrentOffset returns the player position (last known when not live).
func (s *Session) CurrentOffset() float64 {
	return s.player.CurrentOffset()
}

// AddNote records text at the player's current position.
func (s *Session) AddNote(text string) (entry.Entry, error) {
	if st := s.player.State(); st != player.StateLive {
		return entry.Entry{}, errors.NewPlayerNotReady(st.String())
	}
	return s.AddAt(s.player.CurrentOffset(), text)
}

// AddAt records text at an explicit offset.
func (s *Session) AddAt(seconds float64, text string) (entry.Entry, error) {
	e, ok := s.store.Add(seconds, text)
	if !ok {
		return entry.Entry{}, errors.NewInvalidRequest("text is required")
	}
	metrics.EntriesAddedTotal.Inc()
	metrics.Entries.Set(float64(s.store.Len()))
	s.logger.Debug().Str(vlog.FieldEntryID, e.ID).Float64("timestamp", e.Timestamp).Msg("entry added")
	return e, nil
}

// Update replaces the text of an entry.
func (s *Session) Update(id, text string) (entry.Entry, error) {
	if strings.TrimSpace(text) == "" {
		return entry.Entry{}, errors.NewInvalidRequest("text is required")
	}
	if !s.store.Update(id, text) {
		return entry.Entry{}, errors.NewNotFound(id)
	}
	e, _ := s.store.Get(id)
	return e, nil
}

// Delete removes an entry. Unknown ids report false.
func (s *Session) Delete(id string) bool {
	if !s.store.Delete(id) {
		return false
	}
	metrics.EntriesDeletedTotal.Inc()
	metrics.Entries.Set(float64(s.store.Len()))
	return true
}

// Clear removes every entry.
func (s *Session) Clear() int {
	n := s.store.Len()
	s.store.Clear()
	metrics.EntriesDeletedTotal.Add(float64(n))
	metrics.Entries.Set(0)
	s.logger.Info().Int(vlog.FieldCount, n).Msg("entries cleared")
	return n
}

// Entry returns one entry.
func (s *Session) Entry(id string) (entry.Entry, bool) {
	return s.store.Get(id)
}

// Entries returns the ordered collection.
func (s *Session) Entries() []entry.Entry {
	return s.store.Snapshot()
}

// HasEntries reports whether anything would be lost by leaving.
func (s *Session) HasEntries() bool {
	return s.store.Len() > 0
}

// JumpTo seeks to the entry's timestamp and resumes playback. It does
// nothing to the player unless it is live.
func (s *Session) JumpTo(id string) (entry.Entry, error) {
	e, ok := s.store.Get(id)
	if !ok {
		return entry.Entry{}, errors.NewNotFound(id)
	}
	s.player.SeekAbsolute(e.Timestamp)
	s.player.Play()
	return e, nil
}

// TogglePlay pauses when playing and plays otherwise.
func (s *Session) TogglePlay() {
	if s.player.Playback().Playing() {
		s.player.Pause()
		return
	}
	s.player.Play()
}

// Skip moves playback by steps times the configured seek step; negative
// steps go back.
func (s *Session) Skip(steps int) {
	s.player.SeekRelative(float64(steps) * s.cfg.SeekStepSeconds)
}

// ToggleZoom flips the corner zoom of the player and returns the new
// setting. It needs a live player.
func (s *Session) ToggleZoom() (bool, error) {
	if st := s.player.State(); st != player.StateLive {
		return s.player.Zoomed(), errors.NewPlayerNotReady(st.String())
	}
	return s.player.ToggleZoom(), nil
}

// Zoomed reports whether the corner zoom is on.
func (s *Session) Zoomed() bool {
	return s.player.Zoomed()
}

// OnPlayback forwards player playback changes to fn; nil stops forwarding.
func (s *Session) OnPlayback(fn func(player.PlaybackState)) {
	s.player.OnPlayback(fn)
}

// ImportText parses a timestamped block and adds every recognised line.
func (s *Session) ImportText(text string) ([]entry.Entry, error) {
	drafts, err := logtext.ParseBlock(text)
	if err != nil {
		metrics.ImportFailuresTotal.Inc()
		return nil, err
	}
	created := s.store.BulkImport(drafts)
	metrics.EntriesImportedTotal.Add(float64(len(created)))
	metrics.Entries.Set(float64(s.store.Len()))
	s.logger.Info().Int(vlog.FieldCount, len(created)).Msg("entries imported")
	return created, nil
}

// ExportText renders the collection for an LLM rewrite.
func (s *Session) ExportText() string {
	return logtext.FormatForRewrite(s.store.Snapshot(), s.cfg.RewritePreamble)
}

// CopyForRewrite writes ExportText to the clipboard and returns how many
// entries it contained.
func (s *Session) CopyForRewrite() (int, error) {
	entries := s.store.Snapshot()
	text := logtext.FormatForRewrite(entries, s.cfg.RewritePreamble)
	if err := s.sink.WriteAll(text); err != nil {
		return 0, errors.NewInternal(err)
	}
	metrics.IncExport(metrics.SinkClipboard)
	return len(entries), nil
}

// ExportFile writes the collection to a Markdown file in dir and returns
// its path and entry count. An empty name is derived from the video ID and
// the current time.
func (s *Session) ExportFile(dir, name string) (string, int, error) {
	entries := s.store.Snapshot()
	now := s.now().UTC()
	if strings.TrimSpace(name) == "" {
		name = exportfile.DefaultName(s.VideoID(), now.Format("20060102-150405"))
	}

	h := exportfile.Header{
		VideoID:    s.VideoID(),
		SourceURL:  s.SourceURL(),
		ExportedAt: now,
	}
	path, err := exportfile.Write(dir, name, h, entries)
	if err != nil {
		return "", 0, err
	}
	metrics.IncExport(metrics.SinkFile)
	s.logger.Info().Str(vlog.FieldPath, path).Int(vlog.FieldCount, len(entries)).Msg("entries exported")
	return path, len(entries), nil
}

// ImportFile imports the body of an export file from dir.
func (s *Session) ImportFile(dir, name string) ([]entry.Entry, error) {
	doc, err := exportfile.Read(dir, name)
	if err != nil {
		return nil, err
	}
	return s.ImportText(doc.Body)
}

// Close releases the player.
func (s *Session) Close() {
	s.player.Close()
}

// noPlayer stands in when no player is attached.
type noPlayer struct{}

func (noPlayer) Load(string)                           {}
func (noPlayer) Reload()                               {}
func (noPlayer) Play()                                 {}
func (noPlayer) Pause()                                {}
func (noPlayer) SeekAbsolute(float64)                  {}
func (noPlayer) SeekRelative(float64)                  {}
func (noPlayer) CurrentOffset() float64                { return 0 }
func (noPlayer) Playback() player.PlaybackState        { return player.PlaybackUnstarted }
func (noPlayer) State() player.State                   { return player.StateUnavailable }
func (noPlayer) ToggleZoom() bool                      { return false }
func (noPlayer) Zoomed() bool                          { return false }
func (noPlayer) OnPlayback(func(player.PlaybackState)) {}
func (noPlayer) Close()                                {}
