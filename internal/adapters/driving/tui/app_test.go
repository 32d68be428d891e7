package tui

import (
	"errors"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/sea-rag/internal/adapters/driving/tui/components/status"
	"github.com/custodia-labs/sea-rag/internal/adapters/driving/tui/messages"
	"github.com/custodia-labs/sea-rag/internal/core/domain"
)

func newTestApp(t *testing.T, chat *mockChat, opts ...Option) *App {
	t.Helper()
	app, err := NewApp(&Ports{Chat: chat}, opts...)
	require.NoError(t, err)
	app.SetDimensions(100, 30)
	return app
}

// ask types question, presses enter and pumps the stream until it closes.
func ask(t *testing.T, app *App, question string) {
	t.Helper()
	app.prompt.SetValue(question)
	_, cmd := app.Update(tea.KeyMsg{Type: tea.KeyEnter})
	require.NotNil(t, cmd)
	require.True(t, app.Streaming())

	for i := 0; cmd != nil && i < 100; i++ {
		msg := cmd()
		_, cmd = app.Update(msg)
		if _, closed := msg.(messages.StreamClosed); closed {
			break
		}
	}
	require.False(t, app.Streaming())
}

func sampleCitation() domain.Citation {
	return domain.Citation{
		CitationID: "f_abc12345-c1",
		SourceID:   "f_abc12345",
		SourceName: "report.pdf",
		Rank:       1,
		Page:       7,
		Score:      0.81,
	}
}

func TestNewApp(t *testing.T) {
	t.Run("requires chat service", func(t *testing.T) {
		app, err := NewApp(&Ports{})
		assert.Nil(t, app)
		assert.ErrorIs(t, err, ErrMissingChatService)
		assert.ErrorIs(t, err, ErrInvalidPorts)
	})

	t.Run("nil ports", func(t *testing.T) {
		_, err := NewApp(nil)
		assert.ErrorIs(t, err, ErrInvalidPorts)
	})

	t.Run("defaults to the default session", func(t *testing.T) {
		app, err := NewApp(NewPorts(&mockChat{}))
		require.NoError(t, err)
		assert.Equal(t, domain.DefaultSessionID, app.SessionID())
		assert.False(t, app.Ready())
		assert.Equal(t, "Loading...", app.View())
	})

	t.Run("session option", func(t *testing.T) {
		app := newTestApp(t, &mockChat{}, WithSessionID("s1"), WithSessionID(""))
		assert.Equal(t, "s1", app.SessionID())
	})
}

func TestApp_StreamsAnswer(t *testing.T) {
	chat := &mockChat{events: []domain.Event{
		domain.CitationEvent{Citation: sampleCitation()},
		domain.TokenEvent{Text: "The answer "},
		domain.TokenEvent{Text: "is 42."},
		domain.DoneEvent{UsedRetrieval: true},
	}}
	app := newTestApp(t, chat, WithSessionID("s1"), WithFileID("f_abc12345"))

	ask(t, app, "  what is it?  ")

	require.Equal(t, 1, app.Exchanges())
	assert.Equal(t, "The answer is 42.", app.Answer(0))
	require.Len(t, app.Citations(0), 1)
	assert.Equal(t, 7, app.Citations(0)[0].Page)
	assert.NoError(t, app.Err())
	assert.Equal(t, status.StateReady, app.bar.State())

	require.Len(t, chat.requests, 1)
	assert.Equal(t, domain.ChatRequest{Message: "what is it?", SessionID: "s1", FileID: "f_abc12345"}, chat.requests[0])

	view := app.View()
	assert.Contains(t, view, "report.pdf")
	assert.Contains(t, view, "p.7")
	assert.Empty(t, app.prompt.Value())
}

func TestApp_EmptyQuestionIsIgnored(t *testing.T) {
	chat := &mockChat{}
	app := newTestApp(t, chat)

	app.prompt.SetValue("   ")
	_, cmd := app.Update(tea.KeyMsg{Type: tea.KeyEnter})

	assert.Nil(t, cmd)
	assert.False(t, app.Streaming())
	assert.Equal(t, 0, app.Exchanges())
}

func TestApp_ErrorEvent(t *testing.T) {
	chat := &mockChat{events: []domain.Event{
		domain.TokenEvent{Text: "partial"},
		domain.ErrorEvent{Message: "upstream failed"},
	}}
	app := newTestApp(t, chat)

	ask(t, app, "q")

	require.Error(t, app.Err())
	assert.Equal(t, "upstream failed", app.Err().Error())
	assert.Equal(t, status.StateError, app.bar.State())
	assert.Equal(t, "partial", app.Answer(0))
	assert.Contains(t, app.View(), "upstream failed")
}

func TestApp_ChatReturnsError(t *testing.T) {
	chat := &mockChat{err: errors.New("connection reset")}
	app := newTestApp(t, chat)

	ask(t, app, "q")

	assert.EqualError(t, app.Err(), "connection reset")
	assert.Equal(t, status.StateError, app.bar.State())
}

func TestApp_NoContextAnswer(t *testing.T) {
	chat := &mockChat{events: []domain.Event{
		domain.TokenEvent{Text: "hello"},
		domain.DoneEvent{UsedRetrieval: false},
	}}
	app := newTestApp(t, chat)

	ask(t, app, "hi")

	assert.Empty(t, app.Citations(0))
	assert.Contains(t, app.View(), "without document context")
}

func TestApp_ClearSession(t *testing.T) {
	t.Run("clears transcript", func(t *testing.T) {
		chat := &mockChat{events: []domain.Event{domain.DoneEvent{}}}
		app := newTestApp(t, chat, WithSessionID("s9"))
		ask(t, app, "q")
		require.Equal(t, 1, app.Exchanges())

		_, cmd := app.Update(tea.KeyMsg{Type: tea.KeyCtrlL})
		require.NotNil(t, cmd)
		_, next := app.Update(cmd())

		assert.Nil(t, next)
		assert.Equal(t, 0, app.Exchanges())
		assert.Equal(t, []string{"s9"}, chat.cleared)
		assert.Equal(t, "session cleared", app.bar.Message())
	})

	t.Run("keeps transcript on failure", func(t *testing.T) {
		chat := &mockChat{events: []domain.Event{domain.DoneEvent{}}, clearErr: errors.New("locked")}
		app := newTestApp(t, chat)
		ask(t, app, "q")

		_, cmd := app.Update(tea.KeyMsg{Type: tea.KeyCtrlL})
		app.Update(cmd())

		assert.Equal(t, 1, app.Exchanges())
		assert.EqualError(t, app.Err(), "locked")
	})
}

func TestApp_Quit(t *testing.T) {
	for _, key := range []tea.KeyType{tea.KeyEsc, tea.KeyCtrlC} {
		app := newTestApp(t, &mockChat{})
		_, cmd := app.Update(tea.KeyMsg{Type: key})
		require.NotNil(t, cmd)
		assert.IsType(t, tea.QuitMsg{}, cmd())
	}
}

func TestApp_StaleStreamMessagesAreDropped(t *testing.T) {
	app := newTestApp(t, &mockChat{})

	_, cmd := app.Update(messages.StreamEvent{Stream: 42, Event: domain.TokenEvent{Text: "x"}})
	assert.Nil(t, cmd)
	_, cmd = app.Update(messages.StreamClosed{Stream: -1})
	assert.Nil(t, cmd)
	assert.Equal(t, 0, app.Exchanges())
}

func TestApp_WindowSize(t *testing.T) {
	app, err := NewApp(NewPorts(&mockChat{}))
	require.NoError(t, err)

	app.Update(tea.WindowSizeMsg{Width: 120, Height: 40})

	assert.True(t, app.Ready())
	assert.Equal(t, 120, app.viewport.Width)
	assert.Less(t, app.viewport.Height, 40)
	assert.Contains(t, app.View(), "sea-rag chat")
}
