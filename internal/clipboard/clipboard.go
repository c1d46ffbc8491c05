// Package clipboard is the system clipboard sink and source.
package clipboard

import (
	"errors"

	"github.com/atotto/clipboard"
)

// Sink receives exported text.
type Sink interface {
	WriteAll(text string) error
}

// Source supplies text to import.
type Source interface {
	ReadAll() (string, error)
}

// ErrUnsupported is returned when no clipboard utility is available.
var ErrUnsupported = errors.New("clipboard is not available on this system")

// System is the OS clipboard.
type System struct{}

// WriteAll copies text to the clipboard.
func (System) WriteAll(text string) error {
	if clipboard.Unsupported {
		return ErrUnsupported
	}
	return clipboard.WriteAll(text)
}

// ReadAll returns the clipboard text.
func (System) ReadAll() (string, error) {
	if clipboard.Unsupported {
		return "", ErrUnsupported
	}
	return clipboard.ReadAll()
}

// Memory is an in-process clipboard, used when the system one is missing
// and by tests.
type Memory struct {
	Text string
	Err  error
}

// WriteAll stores text.
func (m *Memory) WriteAll(text string) error {
	if m.Err != nil {
		return m.Err
	}
	m.Text = text
	return nil
}

// ReadAll returns the stored text.
func (m *Memory) ReadAll() (string, error) {
	if m.Err != nil {
		return "", m.Err
	}
	return m.Text, nil
}
