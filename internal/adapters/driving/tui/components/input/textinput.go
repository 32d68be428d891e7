// Package input provides the question prompt of the chat TUI.
package input

import (
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/custodia-labs/sea-rag/internal/adapters/driving/tui/styles"
)

const (
	defaultWidth = 60
	minWidth     = 20
	charLimit    = 2000
)

// Prompt wraps a bubbles textinput with the chat styling.
type Prompt struct {
	textinput textinput.Model
	styles    *styles.Styles
	width     int
}

// NewPrompt creates a focused prompt.
func NewPrompt(s *styles.Styles) *Prompt {
	if s == nil {
		s = styles.DefaultStyles()
	}

	ti := textinput.New()
	ti.Placeholder = "Ask a question about your documents..."
	ti.Prompt = "> "
	ti.CharLimit = charLimit
	ti.Width = defaultWidth
	ti.Focus()

	return &Prompt{
		textinput: ti,
		styles:    s,
		width:     defaultWidth,
	}
}

// Init starts the cursor blink.
func (p *Prompt) Init() tea.Cmd {
	return textinput.Blink
}

// Update forwards msg to the underlying textinput.
func (p *Prompt) Update(msg tea.Msg) (*Prompt, tea.Cmd) {
	var cmd tea.Cmd
	p.textinput, cmd = p.textinput.Update(msg)
	return p, cmd
}

// View renders the bordered prompt.
func (p *Prompt) View() string {
	return p.styles.InputField.Width(p.width - 2).Render(p.textinput.View())
}

// Height is the number of rows View occupies.
func (p *Prompt) Height() int {
	return lipgloss.Height(p.View())
}

// Value returns the trimmed question.
func (p *Prompt) Value() string {
	return strings.TrimSpace(p.textinput.Value())
}

// SetValue replaces the typed text.
func (p *Prompt) SetValue(value string) {
	p.textinput.SetValue(value)
}

// SetEnabled toggles whether the prompt accepts input.
func (p *Prompt) SetEnabled(enabled bool) tea.Cmd {
	if enabled {
		return p.textinput.Focus()
	}
	p.textinput.Blur()
	return nil
}

// Focused reports whether the prompt accepts input.
func (p *Prompt) Focused() bool {
	return p.textinput.Focused()
}

// SetWidth resizes the prompt, keeping room for the border and padding.
func (p *Prompt) SetWidth(width int) {
	if width < minWidth {
		width = minWidth
	}
	p.width = width
	p.textinput.Width = width - 8
}

// Reset clears the typed text.
func (p *Prompt) Reset() {
	p.textinput.Reset()
}
