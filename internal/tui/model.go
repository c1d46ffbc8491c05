// Package tui is the terminal review screen: source URL, note input and the
// timestamped note list, driving the player through a review session.
package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/hpungsan/vodnote/internal/clipboard"
	"github.com/hpungsan/vodnote/internal/entry"
	"github.com/hpungsan/vodnote/internal/errors"
	"github.com/hpungsan/vodnote/internal/player"
	"github.com/hpungsan/vodnote/internal/review"
	"github.com/hpungsan/vodnote/internal/timecode"
)

const defaultTick = 100 * time.Millisecond

type focusArea int

const (
	focusMemo focusArea = iota
	focusURL
	focusList
)

type screenMode int

const (
	modeNormal screenMode = iota
	modeEdit
	modeConfirmDelete
	modeConfirmClear
	modeConfirmQuit
)

type tickMsg time.Time

// playbackMsg carries a playback change pushed by the player.
type playbackMsg player.PlaybackState

// urlAppliedMsg reports a finished SetSourceURL.
type urlAppliedMsg struct {
	videoID string
	changed bool
}

// reloadedMsg reports a finished player reload.
type reloadedMsg struct{}

// playbackBuffer bounds pushed playback changes waiting for the screen. The
// tick refresh covers anything dropped when it is full.
const playbackBuffer = 16

type model struct {
	session *review.Session
	source  clipboard.Source
	tick    time.Duration

	focus focusArea
	mode  screenMode
	url   textinput.Model
	memo  textinput.Model
	edit  textinput.Model

	entries []entry.Entry
	cursor  int
	pending string

	offset   float64
	playing  bool
	zoomed   bool
	state    player.State
	status   string
	isErr    bool
	quitting bool
	width    int
	height   int
}

// Options configures Run.
type Options struct {
	// Source feeds the import key; nil disables it.
	Source clipboard.Source
	// Tick is the player polling interval (default 100ms).
	Tick time.Duration
}

// Run shows the review screen until the user quits. Playback changes
// reported by the player are pushed to the screen as they happen.
func Run(session *review.Session, opts Options) error {
	m := newModel(session, opts)
	p := tea.NewProgram(m, tea.WithAltScreen())

	events := make(chan player.PlaybackState, playbackBuffer)
	done := make(chan struct{})
	// The callback runs on the player's event goroutine and must not block.
	session.OnPlayback(func(ps player.PlaybackState) {
		select {
		case events <- ps:
		default:
		}
	})
	go forwardPlayback(p, events, done)

	_, err := p.Run()
	session.OnPlayback(nil)
	close(done)
	return err
}

// forwardPlayback sends queued playback changes to p until done closes.
func forwardPlayback(p *tea.Program, events <-chan player.PlaybackState, done <-chan struct{}) {
	for {
		select {
		case <-done:
			return
		case ps := <-events:
			p.Send(playbackMsg(ps))
		}
	}
}

func newModel(session *review.Session, opts Options) model {
	tick := opts.Tick
	if tick <= 0 {
		tick = defaultTick
	}

	url := textinput.New()
	url.Prompt = "URL  > "
	url.Placeholder = "https://www.youtube.com/watch?v=..."
	url.CharLimit = 2048
	url.SetValue(session.SourceURL())

	memo := textinput.New()
	memo.Prompt = "Memo > "
	memo.Placeholder = "note at the current position"
	memo.CharLimit = 1024
	memo.Focus()

	edit := textinput.New()
	edit.Prompt = "Edit > "
	edit.CharLimit = 1024

	m := model{
		session: session,
		source:  opts.Source,
		tick:    tick,
		focus:   focusMemo,
		url:     url,
		memo:    memo,
		edit:    edit,
	}
	m.refresh()
	return m
}

func (m model) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, m.tickCmd())
}

func (m model) tickCmd() tea.Cmd {
	return tea.Tick(m.tick, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

// refresh pulls entries and player status from the session.
func (m *model) refresh() {
	m.entries = m.session.Entries()
	if m.cursor >= len(m.entries) {
		m.cursor = len(m.entries) - 1
	}
	if m.cursor < 0 {
		m.cursor = 0
	}
	m.offset = m.session.CurrentOffset()
	m.playing = m.session.Playing()
	m.state = m.session.PlayerState()
	m.zoomed = m.session.Zoomed()
}

func (m *model) setStatus(msg string) {
	m.status = msg
	m.isErr = false
}

func (m *model) setError(err error) {
	m.status = "error: " + err.Error()
	m.isErr = true
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil
	case tickMsg:
		m.refresh()
		return m, m.tickCmd()
	case playbackMsg:
		m.playing = player.PlaybackState(msg).Playing()
		return m, nil
	case urlAppliedMsg:
		m.urlApplied(msg)
		return m, nil
	case reloadedMsg:
		m.refresh()
		return m, nil
	}

	keyMsg, ok := msg.(tea.KeyMsg)
	if !ok {
		return m.updateInputs(msg)
	}

	switch m.mode {
	case modeConfirmDelete, modeConfirmClear, modeConfirmQuit:
		return m.updateConfirm(keyMsg)
	case modeEdit:
		return m.updateEdit(keyMsg)
	}
	return m.updateNormal(keyMsg)
}

func (m model) updateNormal(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c":
		return m.requestQuit()
	case "tab":
		m.setFocus((m.focus + 1) % 3)
		return m, nil
	case "shift+tab":
		m.setFocus((m.focus + 2) % 3)
		return m, nil
	case "ctrl+p":
		m.session.TogglePlay()
		return m, nil
	case "ctrl+left":
		m.session.Skip(-1)
		return m, nil
	case "ctrl+right":
		m.session.Skip(1)
		return m, nil
	case "ctrl+r":
		m.setStatus("reloading player")
		return m, m.reloadCmd()
	case "ctrl+f":
		m.toggleZoom()
		return m, nil
	case "ctrl+y":
		n, err := m.session.CopyForRewrite()
		if err != nil {
			m.setError(err)
			return m, nil
		}
		m.setStatus(fmt.Sprintf("copied %d notes for rewrite", n))
		return m, nil
	case "ctrl+o":
		m.importFromClipboard()
		return m, nil
	case "ctrl+x":
		if m.session.HasEntries() {
			m.mode = modeConfirmClear
		}
		return m, nil
	}

	switch m.focus {
	case focusURL:
		if msg.Type == tea.KeyEnter {
			return m, m.applyURL()
		}
	case focusMemo:
		if msg.Type == tea.KeyEnter {
			m.addNote()
			return m, nil
		}
	case focusList:
		return m.updateList(msg)
	}
	return m.updateInputs(msg)
}

func (m model) updateList(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q":
		return m.requestQuit()
	case "up", "k":
		if m.cursor > 0 {
			m.cursor--
		}
	case "down", "j":
		if m.cursor < len(m.entries)-1 {
			m.cursor++
		}
	case "enter":
		if e, ok := m.selected(); ok {
			if _, err := m.session.JumpTo(e.ID); err != nil {
				m.setError(err)
			} else {
				m.setStatus("jumped to " + timecode.Format(e.Timestamp))
			}
		}
	case " ", "space":
		m.session.TogglePlay()
	case "d", "delete":
		if e, ok := m.selected(); ok {
			m.pending = e.ID
			m.mode = modeConfirmDelete
		}
	case "e":
		if e, ok := m.selected(); ok {
			m.pending = e.ID
			m.mode = modeEdit
			m.edit.SetValue(e.Text)
			m.edit.CursorEnd()
			m.edit.Focus()
		}
	}
	return m, nil
}

func (m model) updateEdit(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEsc:
		m.mode = modeNormal
		m.pending = ""
		m.edit.Blur()
		return m, nil
	case tea.KeyEnter:
		if _, err := m.session.Update(m.pending, m.edit.Value()); err != nil {
			m.setError(err)
		} else {
			m.setStatus("note updated")
		}
		m.mode = modeNormal
		m.pending = ""
		m.edit.Blur()
		m.refresh()
		return m, nil
	}
	var cmd tea.Cmd
	m.edit, cmd = m.edit.Update(msg)
	return m, cmd
}

func (m model) updateConfirm(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "y", "Y", "enter":
		switch m.mode {
		case modeConfirmDelete:
			if m.session.Delete(m.pending) {
				m.setStatus("note deleted")
			}
		case modeConfirmClear:
			n := m.session.Clear()
			m.setStatus(fmt.Sprintf("cleared %d notes", n))
		case modeConfirmQuit:
			m.quitting = true
			return m, tea.Quit
		}
		m.mode = modeNormal
		m.pending = ""
		m.refresh()
		return m, nil
	case "n", "N", "esc":
		m.mode = modeNormal
		m.pending = ""
		return m, nil
	case "ctrl+c":
		if m.mode == modeConfirmQuit {
			m.quitting = true
			return m, tea.Quit
		}
	}
	return m, nil
}

// requestQuit leaves at once when there is nothing to lose, otherwise asks.
func (m model) requestQuit() (tea.Model, tea.Cmd) {
	if !m.session.HasEntries() {
		m.quitting = true
		return m, tea.Quit
	}
	m.mode = modeConfirmQuit
	return m, nil
}

func (m model) updateInputs(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	switch m.focus {
	case focusURL:
		m.url, cmd = m.url.Update(msg)
	case focusMemo:
		m.memo, cmd = m.memo.Update(msg)
	}
	return m, cmd
}

func (m *model) setFocus(f focusArea) {
	m.focus = f
	m.url.Blur()
	m.memo.Blur()
	switch f {
	case focusURL:
		m.url.Focus()
	case focusMemo:
		m.memo.Focus()
	}
}

// applyURL hands the URL to the session off the event loop: a video change
// tears down and rebuilds the player, which can take a while.
func (m *model) applyURL() tea.Cmd {
	text := strings.TrimSpace(m.url.Value())
	session := m.session
	m.setFocus(focusMemo)
	return func() tea.Msg {
		id, changed := session.SetSourceURL(text)
		return urlAppliedMsg{videoID: id, changed: changed}
	}
}

func (m *model) urlApplied(msg urlAppliedMsg) {
	switch {
	case msg.changed:
		m.setStatus("loading " + msg.videoID)
	case msg.videoID == "":
		m.setStatus("no video id found in URL")
		m.isErr = true
	default:
		m.setStatus("already on " + msg.videoID)
	}
	m.refresh()
}

func (m model) reloadCmd() tea.Cmd {
	session := m.session
	return func() tea.Msg {
		session.Reload()
		return reloadedMsg{}
	}
}

func (m *model) toggleZoom() {
	zoomed, err := m.session.ToggleZoom()
	m.zoomed = zoomed
	if err != nil {
		if errors.Is(err, errors.ErrPlayerNotReady) {
			m.setStatus("player is not ready yet")
			m.isErr = true
			return
		}
		m.setError(err)
		return
	}
	if zoomed {
		m.setStatus("zoomed into the bottom-right corner")
	} else {
		m.setStatus("zoom off")
	}
}

func (m *model) addNote() {
	text := m.memo.Value()
	if strings.TrimSpace(text) == "" {
		return
	}
	e, err := m.session.AddNote(text)
	if err != nil {
		if errors.Is(err, errors.ErrPlayerNotReady) {
			m.setStatus("player is not ready yet")
			m.isErr = true
			return
		}
		m.setError(err)
		return
	}
	m.memo.Reset()
	m.setStatus("added at " + timecode.Format(e.Timestamp))
	m.refresh()
}

func (m *model) importFromClipboard() {
	if m.source == nil {
		m.setStatus("import needs a clipboard")
		m.isErr = true
		return
	}
	text, err := m.source.ReadAll()
	if err != nil {
		m.setError(err)
		return
	}
	created, err := m.session.ImportText(text)
	if err != nil {
		if errors.Is(err, errors.ErrNothingRecognized) {
			m.setStatus("no timestamped lines found on the clipboard")
			m.isErr = true
			return
		}
		m.setError(err)
		return
	}
	m.setStatus(fmt.Sprintf("imported %d notes", len(created)))
	m.refresh()
}

func (m model) selected() (entry.Entry, bool) {
	if m.cursor < 0 || m.cursor >= len(m.entries) {
		return entry.Entry{}, false
	}
	return m.entries[m.cursor], true
}
