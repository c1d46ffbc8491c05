package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/hpungsan/vodnote/internal/entry"
	"github.com/hpungsan/vodnote/internal/player"
	"github.com/hpungsan/vodnote/internal/timecode"
)

var (
	titleStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("212"))
	mutedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	errorStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("203")).Bold(true)
	okStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("42")).Bold(true)
	panelStyle = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	selStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("230")).Background(lipgloss.Color("62")).Bold(true)
	stampStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("75"))
)

const helpLine = "tab: focus | enter: add/jump | ctrl+p: play/pause | ctrl+←/→: skip | ctrl+y: copy for rewrite | ctrl+o: import | ctrl+f: zoom | ctrl+r: reload | ctrl+x: clear | d/e: delete/edit | q: quit"

func (m model) View() string {
	if m.quitting {
		return ""
	}
	if m.mode == modeConfirmDelete || m.mode == modeConfirmClear || m.mode == modeConfirmQuit {
		return m.viewConfirm()
	}

	width := maxInt(m.width, 60)
	header := titleStyle.Render("vodnote") + "  " + m.viewPlayer()

	inputs := []string{m.url.View(), m.memo.View()}
	if m.mode == modeEdit {
		inputs = append(inputs, m.edit.View())
	}

	list := panelStyle.Width(width - 2).Render(m.viewList(width - 6))

	return lipgloss.JoinVertical(lipgloss.Left,
		header,
		strings.Join(inputs, "\n"),
		list,
		m.viewStatus(width),
		mutedStyle.Width(width).Render(helpLine),
	)
}

func (m model) viewPlayer() string {
	state := m.state.String()
	if m.state == player.StateLive {
		state = "paused"
		if m.playing {
			state = "playing"
		}
	}
	if m.zoomed {
		state += " zoom"
	}
	return mutedStyle.Render(fmt.Sprintf("[%s] %s", timecode.Format(m.offset), state))
}

func (m model) viewList(width int) string {
	if len(m.entries) == 0 {
		return mutedStyle.Render("no notes yet")
	}

	rows := m.visibleRange()
	lines := make([]string, 0, rows[1]-rows[0]+1)
	lines = append(lines, mutedStyle.Render(fmt.Sprintf("%d notes", len(m.entries))))
	for i := rows[0]; i < rows[1]; i++ {
		lines = append(lines, m.viewEntry(i, m.entries[i], width))
	}
	return strings.Join(lines, "\n")
}

func (m model) viewEntry(i int, e entry.Entry, width int) string {
	stamp := "[" + timecode.Format(e.Timestamp) + "]"
	text := entry.Preview(e.Text, maxInt(width-len(stamp)-3, 10))
	if m.focus == focusList && i == m.cursor {
		return selStyle.Render("> " + stamp + " " + text)
	}
	return "  " + stampStyle.Render(stamp) + " " + text
}

// visibleRange returns [start, end) of entries that fit on screen while
// keeping the cursor visible.
func (m model) visibleRange() [2]int {
	capacity := len(m.entries)
	if m.height > 0 {
		capacity = maxInt(m.height-12, 3)
	}
	if capacity >= len(m.entries) {
		return [2]int{0, len(m.entries)}
	}
	start := m.cursor - capacity/2
	if start < 0 {
		start = 0
	}
	if start+capacity > len(m.entries) {
		start = len(m.entries) - capacity
	}
	return [2]int{start, start + capacity}
}

func (m model) viewStatus(width int) string {
	if m.status == "" {
		return ""
	}
	style := okStyle
	if m.isErr {
		style = errorStyle
	}
	return style.Width(width).Render(m.status)
}

func (m model) viewConfirm() string {
	var text string
	switch m.mode {
	case modeConfirmDelete:
		preview := ""
		for _, e := range m.entries {
			if e.ID == m.pending {
				preview = fmt.Sprintf("[%s] %s", timecode.Format(e.Timestamp), entry.Preview(e.Text, 40))
			}
		}
		text = "Delete this note?\n\n" + preview
	case modeConfirmClear:
		text = fmt.Sprintf("Delete all %d notes?", len(m.entries))
	case modeConfirmQuit:
		text = fmt.Sprintf("%d notes are saved locally.\nQuit anyway?", len(m.entries))
	}
	text += "\n\nPress y or Enter to confirm, n or Esc to cancel."

	w := clampInt(m.width-8, 36, 80)
	panel := panelStyle.Width(w).Render(text)
	if m.width == 0 || m.height == 0 {
		return panel
	}
	return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, panel)
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
