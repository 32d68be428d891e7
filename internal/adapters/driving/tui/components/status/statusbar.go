// Package status provides the status bar of the chat TUI.
package status

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/lipgloss"

	"github.com/custodia-labs/sea-rag/internal/adapters/driving/tui/keymap"
	"github.com/custodia-labs/sea-rag/internal/adapters/driving/tui/styles"
)

// State is what the status bar reports on its left side.
type State string

const (
	StateReady     State = "ready"
	StateStreaming State = "streaming"
	StateError     State = "error"
)

// Bar shows the chat state on the left and key hints on the right.
type Bar struct {
	styles  *styles.Styles
	keymap  *keymap.KeyMap
	state   State
	message string
	session string
	width   int
}

// NewBar creates a status bar for session.
func NewBar(s *styles.Styles, km *keymap.KeyMap, session string) *Bar {
	if s == nil {
		s = styles.DefaultStyles()
	}
	if km == nil {
		km = keymap.DefaultKeyMap()
	}

	return &Bar{
		styles:  s,
		keymap:  km,
		state:   StateReady,
		session: session,
		width:   80,
	}
}

// View renders the bar at its configured width.
func (b *Bar) View() string {
	left := b.renderLeft()
	right := b.renderRight()

	padding := b.width - lipgloss.Width(left) - lipgloss.Width(right) - 2
	if padding < 1 {
		padding = 1
	}

	return b.styles.StatusBar.Width(b.width).Render(
		left + strings.Repeat(" ", padding) + right,
	)
}

func (b *Bar) renderLeft() string {
	switch b.state {
	case StateStreaming:
		return b.styles.Muted.Render("Answering...")
	case StateError:
		if b.message != "" {
			return b.styles.Error.Render("Error: " + b.message)
		}
		return b.styles.Error.Render("Error")
	case StateReady:
	}
	if b.message != "" {
		return b.styles.Muted.Render(b.message)
	}
	return b.styles.Muted.Render(fmt.Sprintf("session %s", b.session))
}

func (b *Bar) renderRight() string {
	var bindings []key.Binding
	if b.state == StateStreaming {
		bindings = b.keymap.StreamingHelp()
	} else {
		bindings = b.keymap.ShortHelp()
	}

	hints := make([]string, 0, len(bindings))
	for _, binding := range bindings {
		h := binding.Help()
		hints = append(hints, fmt.Sprintf("%s: %s", h.Key, h.Desc))
	}
	return b.styles.Muted.Render(strings.Join(hints, " | "))
}

// SetState changes the reported state and clears any message.
func (b *Bar) SetState(state State) {
	b.state = state
	b.message = ""
}

// State returns the reported state.
func (b *Bar) State() State {
	return b.state
}

// SetMessage sets the text shown next to the state.
func (b *Bar) SetMessage(message string) {
	b.message = message
}

// Message returns the current message.
func (b *Bar) Message() string {
	return b.message
}

// SetWidth sets the rendered width.
func (b *Bar) SetWidth(width int) {
	b.width = width
}
