package tui

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/custodia-labs/sea-rag/internal/adapters/driving/tui/components/input"
	"github.com/custodia-labs/sea-rag/internal/adapters/driving/tui/components/status"
	"github.com/custodia-labs/sea-rag/internal/adapters/driving/tui/keymap"
	"github.com/custodia-labs/sea-rag/internal/adapters/driving/tui/messages"
	"github.com/custodia-labs/sea-rag/internal/adapters/driving/tui/styles"
	"github.com/custodia-labs/sea-rag/internal/core/domain"
)

// streamBuffer bounds how far the chat goroutine may run ahead of rendering.
const streamBuffer = 64

// exchange is one question with its streamed answer.
type exchange struct {
	question  string
	answer    strings.Builder
	citations []domain.Citation
	errMsg    string
	done      bool
	noContext bool
}

// App is the chat TUI following the Elm architecture.
// It implements tea.Model for use with Bubbletea.
type App struct {
	ports  *Ports
	ctx    context.Context
	styles *styles.Styles
	keys   *keymap.KeyMap

	prompt   *input.Prompt
	viewport viewport.Model
	bar      *status.Bar

	sessionID string
	fileID    string

	transcript []*exchange
	stream     chan tea.Msg
	streamID   int
	cancel     context.CancelFunc

	width  int
	height int
	ready  bool
	err    error
}

// Option configures an App.
type Option func(*App)

// WithSessionID selects the conversation history the TUI writes to.
func WithSessionID(id string) Option {
	return func(a *App) {
		if id != "" {
			a.sessionID = id
		}
	}
}

// WithFileID restricts retrieval to one document.
func WithFileID(id string) Option {
	return func(a *App) {
		a.fileID = id
	}
}

// NewApp creates the chat TUI.
func NewApp(ports *Ports, opts ...Option) (*App, error) {
	if err := ports.Validate(); err != nil {
		return nil, err
	}

	s := styles.DefaultStyles()
	km := keymap.DefaultKeyMap()

	a := &App{
		ports:     ports,
		ctx:       context.Background(),
		styles:    s,
		keys:      km,
		prompt:    input.NewPrompt(s),
		viewport:  viewport.New(80, 20),
		sessionID: domain.DefaultSessionID,
	}
	for _, opt := range opts {
		opt(a)
	}
	a.bar = status.NewBar(s, km, a.sessionID)
	a.refresh()
	return a, nil
}

// WithContext sets the parent context of every chat call.
func (a *App) WithContext(ctx context.Context) *App {
	a.ctx = ctx
	return a
}

// Init implements tea.Model.
func (a *App) Init() tea.Cmd {
	return a.prompt.Init()
}

// Update implements tea.Model.
func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		a.SetDimensions(msg.Width, msg.Height)
		return a, nil

	case tea.KeyMsg:
		if cmd, handled := a.handleKey(msg); handled {
			return a, cmd
		}

	case tea.MouseMsg:
		var cmd tea.Cmd
		a.viewport, cmd = a.viewport.Update(msg)
		return a, cmd

	case messages.StreamEvent:
		if msg.Stream != a.streamID || a.stream == nil {
			return a, nil
		}
		a.applyEvent(msg.Event)
		a.refresh()
		return a, waitForStream(a.stream)

	case messages.StreamClosed:
		if msg.Stream != a.streamID {
			return a, nil
		}
		return a, a.finishStream(msg.Err)

	case messages.SessionCleared:
		if msg.Err != nil {
			a.err = msg.Err
			a.bar.SetState(status.StateError)
			a.bar.SetMessage(msg.Err.Error())
			return a, nil
		}
		a.transcript = nil
		a.err = nil
		a.bar.SetState(status.StateReady)
		a.bar.SetMessage("session cleared")
		a.refresh()
		return a, nil
	}

	var cmd tea.Cmd
	a.prompt, cmd = a.prompt.Update(msg)
	return a, cmd
}

func (a *App) handleKey(msg tea.KeyMsg) (tea.Cmd, bool) {
	k := msg.String()
	switch {
	case keymap.Matches(k, a.keys.Quit):
		a.cancelStream()
		return tea.Quit, true

	case keymap.Matches(k, a.keys.Clear):
		a.cancelStream()
		return a.clearSession(), true

	case keymap.Matches(k, a.keys.ScrollUp):
		a.viewport.LineUp(max(1, a.viewport.Height/2))
		return nil, true

	case keymap.Matches(k, a.keys.ScrollDown):
		a.viewport.LineDown(max(1, a.viewport.Height/2))
		return nil, true

	case keymap.Matches(k, a.keys.Send):
		if a.Streaming() {
			return nil, true
		}
		question := a.prompt.Value()
		if question == "" {
			return nil, true
		}
		a.prompt.Reset()
		return a.startStream(question), true
	}

	// Typing is ignored while an answer streams.
	if a.Streaming() {
		return nil, true
	}
	return nil, false
}

// startStream runs the chat call in a goroutine and returns the command
// that delivers its first event.
func (a *App) startStream(question string) tea.Cmd {
	a.transcript = append(a.transcript, &exchange{question: question})
	a.err = nil
	a.bar.SetState(status.StateStreaming)
	a.prompt.SetEnabled(false)
	a.refresh()

	ctx, cancel := context.WithCancel(a.ctx)
	ch := make(chan tea.Msg, streamBuffer)
	a.streamID++
	id := a.streamID
	a.stream = ch
	a.cancel = cancel

	req := domain.ChatRequest{
		Message:   question,
		SessionID: a.sessionID,
		FileID:    a.fileID,
	}

	go func() {
		defer close(ch)
		err := a.ports.Chat.Chat(ctx, req, func(ev domain.Event) error {
			select {
			case ch <- messages.StreamEvent{Stream: id, Event: ev}:
				return nil
			case <-ctx.Done():
				return ctx.Err()
			}
		})
		select {
		case ch <- messages.StreamClosed{Stream: id, Err: err}:
		case <-ctx.Done():
		}
	}()

	return waitForStream(ch)
}

// waitForStream reads the next message of ch. A closed channel yields a
// message no stream matches.
func waitForStream(ch <-chan tea.Msg) tea.Cmd {
	if ch == nil {
		return nil
	}
	return func() tea.Msg {
		msg, ok := <-ch
		if !ok {
			return messages.StreamClosed{Stream: -1}
		}
		return msg
	}
}

func (a *App) applyEvent(ev domain.Event) {
	cur := a.current()
	if cur == nil {
		return
	}
	switch e := ev.(type) {
	case domain.CitationEvent:
		cur.citations = append(cur.citations, e.Citation)
	case domain.TokenEvent:
		cur.answer.WriteString(e.Text)
	case domain.DoneEvent:
		cur.done = true
		cur.noContext = !e.UsedRetrieval
	case domain.ErrorEvent:
		cur.done = true
		cur.errMsg = e.Message
	}
}

func (a *App) finishStream(err error) tea.Cmd {
	if a.stream == nil {
		return nil
	}
	if a.cancel != nil {
		a.cancel()
	}
	a.stream = nil
	a.cancel = nil

	cur := a.current()
	switch {
	case err != nil && !errors.Is(err, context.Canceled):
		a.err = err
		if cur != nil && cur.errMsg == "" {
			cur.errMsg = err.Error()
		}
	case cur != nil && cur.errMsg != "":
		a.err = errors.New(cur.errMsg)
	}

	if a.err != nil {
		a.bar.SetState(status.StateError)
		a.bar.SetMessage(a.err.Error())
	} else {
		a.bar.SetState(status.StateReady)
	}
	a.refresh()
	return a.prompt.SetEnabled(true)
}

func (a *App) cancelStream() {
	if a.cancel != nil {
		a.cancel()
	}
	a.cancel = nil
	a.stream = nil
	a.prompt.SetEnabled(true)
}

func (a *App) clearSession() tea.Cmd {
	chat := a.ports.Chat
	ctx := a.ctx
	session := a.sessionID
	return func() tea.Msg {
		return messages.SessionCleared{Err: chat.ClearSession(ctx, session)}
	}
}

func (a *App) current() *exchange {
	if len(a.transcript) == 0 {
		return nil
	}
	return a.transcript[len(a.transcript)-1]
}

// refresh re-renders the transcript into the viewport and follows the tail.
func (a *App) refresh() {
	a.viewport.SetContent(a.renderTranscript())
	a.viewport.GotoBottom()
}

func (a *App) renderTranscript() string {
	if len(a.transcript) == 0 {
		return a.styles.Muted.Render("No messages yet. Type a question and press enter.")
	}

	wrap := lipgloss.NewStyle().Width(max(20, a.viewport.Width))
	var b strings.Builder
	for i, ex := range a.transcript {
		if i > 0 {
			b.WriteString("\n")
		}
		b.WriteString(a.styles.UserLabel.Render("You: "))
		b.WriteString(wrap.Render(ex.question))
		b.WriteString("\n")

		b.WriteString(a.styles.AssistantLabel.Render("Assistant: "))
		b.WriteString(a.styles.Answer.Inherit(wrap).Render(ex.answer.String()))
		b.WriteString("\n")

		if ex.errMsg != "" {
			b.WriteString(a.styles.Error.Render("error: " + ex.errMsg))
			b.WriteString("\n")
		}
		if len(ex.citations) > 0 {
			b.WriteString(a.styles.Muted.Render("Sources:"))
			b.WriteString("\n")
			for _, c := range ex.citations {
				b.WriteString(a.renderCitation(c))
				b.WriteString("\n")
			}
		} else if ex.done && ex.noContext && ex.errMsg == "" {
			b.WriteString(a.styles.Muted.Render("(answered without document context)"))
			b.WriteString("\n")
		}
	}
	return b.String()
}

func (a *App) renderCitation(c domain.Citation) string {
	name := c.SourceName
	if name == "" {
		name = c.SourceID
	}
	page := a.styles.CitationPage.Render(fmt.Sprintf("p.%d", c.Page))
	return a.styles.Citation.Render(fmt.Sprintf("[%d] %s %s (%.2f)", c.Rank, name, page, c.Score))
}

// View implements tea.Model.
func (a *App) View() string {
	if !a.ready {
		return "Loading..."
	}
	title := a.styles.Title.Render("sea-rag chat")
	if a.fileID != "" {
		title += a.styles.Muted.Render("  file " + a.fileID)
	}
	return lipgloss.JoinVertical(lipgloss.Left,
		title,
		a.viewport.View(),
		a.prompt.View(),
		a.bar.View(),
	)
}

// Run starts the Bubbletea program and blocks until the user quits.
func (a *App) Run() error {
	p := tea.NewProgram(a, tea.WithAltScreen(), tea.WithContext(a.ctx))
	_, err := p.Run()
	a.cancelStream()
	if errors.Is(err, tea.ErrProgramKilled) && a.ctx.Err() != nil {
		return nil
	}
	return err
}

// SetDimensions lays the view out for a terminal of width x height.
func (a *App) SetDimensions(width, height int) {
	a.width = width
	a.height = height
	a.ready = true

	a.prompt.SetWidth(width)
	a.bar.SetWidth(width)

	// title + prompt + status bar
	reserved := 1 + a.prompt.Height() + 1
	a.viewport.Width = max(20, width)
	a.viewport.Height = max(3, height-reserved)
	a.refresh()
}

// Streaming reports whether an answer is in flight.
func (a *App) Streaming() bool {
	return a.stream != nil
}

// Err returns the last chat error, if any.
func (a *App) Err() error {
	return a.err
}

// Ready reports whether the first window size has been received.
func (a *App) Ready() bool {
	return a.ready
}

// SessionID returns the session the TUI writes to.
func (a *App) SessionID() string {
	return a.sessionID
}

// Answer returns the answer text of the i-th exchange.
func (a *App) Answer(i int) string {
	if i < 0 || i >= len(a.transcript) {
		return ""
	}
	return a.transcript[i].answer.String()
}

// Citations returns the citations of the i-th exchange.
func (a *App) Citations(i int) []domain.Citation {
	if i < 0 || i >= len(a.transcript) {
		return nil
	}
	return a.transcript[i].citations
}

// Exchanges returns how many questions the transcript holds.
func (a *App) Exchanges() int {
	return len(a.transcript)
}
