package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/custodia-labs/sea-rag/internal/core/domain"
	"github.com/custodia-labs/sea-rag/internal/core/ports/driven"
	"github.com/custodia-labs/sea-rag/internal/logger"
)

// Ensure Generator can take custom prompts.
var _ driven.PromptStoreAware = (*Generator)(nil)

// Generator drives the answer model and emits the ordered event stream:
// citations, then tokens, then a single done or error event.
type Generator struct {
	llm         driven.LLMService
	sessions    driven.SessionStore
	prompts     driven.PromptStore
	temperature *float64
}

// GeneratorOption configures a Generator.
type GeneratorOption func(*Generator)

// WithAnswerTemperature sets the sampling temperature for answers.
func WithAnswerTemperature(t float64) GeneratorOption {
	return func(g *Generator) {
		g.temperature = driven.Temperature(t)
	}
}

// NewGenerator creates an answer generator. The session store is optional;
// without it answers are stateless.
func NewGenerator(llm driven.LLMService, sessions driven.SessionStore, opts ...GeneratorOption) *Generator {
	g := &Generator{
		llm:      llm,
		sessions: sessions,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// SetPromptStore sets the prompt store for the system and answer prompts.
func (g *Generator) SetPromptStore(store driven.PromptStore) {
	g.prompts = store
}

// Stream generates an answer for req, delivering every event through emit.
// History is committed only after a complete pass. When emit fails or ctx
// is cancelled the stream stops without a done event.
func (g *Generator) Stream(ctx context.Context, req domain.AnswerRequest, emit func(domain.Event) error) error {
	logger.Section("Answer Generation")
	logger.Debug("Branch: %s, session: %q, citations: %d", req.Branch, req.SessionID, len(req.Citations))

	if req.Branch == domain.BranchWithContext {
		for _, c := range req.Citations {
			if err := emit(domain.CitationEvent{Citation: c}); err != nil {
				return err
			}
		}
	}

	messages, err := g.buildMessages(ctx, req)
	if err != nil {
		return g.fail(emit, err)
	}

	var parts []string
	streamErr := g.llm.ChatStream(ctx, messages, g.chatOptions(), func(delta string) error {
		if delta == "" {
			return nil
		}
		if err := emit(domain.TokenEvent{Text: delta}); err != nil {
			return &emitError{err: err}
		}
		parts = append(parts, delta)
		return nil
	})

	if streamErr != nil {
		var ee *emitError
		if errors.As(streamErr, &ee) {
			return ee.err
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}

		logger.Warn("%v: %v, falling back to a single call", domain.ErrGenerationStream, streamErr)
		text, err := g.llm.Chat(ctx, messages, g.chatOptions())
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return ctxErr
			}
			return g.fail(emit, fmt.Errorf("%w: stream: %v, fallback: %w", domain.ErrGenerationFatal, streamErr, err))
		}
		if rest := unsent(strings.Join(parts, ""), text); rest != "" {
			if err := emit(domain.TokenEvent{Text: rest}); err != nil {
				return err
			}
			parts = append(parts, rest)
		}
	}

	if err := ctx.Err(); err != nil {
		return err
	}

	if req.SessionID != "" && g.sessions != nil {
		err := g.sessions.AppendTurns(ctx, req.SessionID,
			domain.Turn{Role: domain.RoleUser, Content: req.Question},
			domain.Turn{Role: domain.RoleAssistant, Content: strings.Join(parts, "")},
		)
		if err != nil {
			logger.Warn("recording turns: %v", err)
		}
	}

	return emit(domain.DoneEvent{UsedRetrieval: req.Branch == domain.BranchWithContext})
}

// unsent returns the part of a fallback reply the client has not seen.
// When the reply continues the streamed prefix only the continuation is
// new; otherwise the whole reply is.
func unsent(streamed, reply string) string {
	if streamed != "" && strings.HasPrefix(reply, streamed) {
		return reply[len(streamed):]
	}
	return reply
}

// Answer runs Stream and collects the result.
func (g *Generator) Answer(ctx context.Context, req domain.AnswerRequest) (*domain.Answer, error) {
	answer := &domain.Answer{Citations: []domain.Citation{}}
	var b strings.Builder

	err := g.Stream(ctx, req, func(e domain.Event) error {
		switch ev := e.(type) {
		case domain.CitationEvent:
			answer.Citations = append(answer.Citations, ev.Citation)
		case domain.TokenEvent:
			b.WriteString(ev.Text)
		case domain.DoneEvent:
			answer.UsedRetrieval = ev.UsedRetrieval
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	answer.Text = b.String()
	return answer, nil
}

func (g *Generator) buildMessages(ctx context.Context, req domain.AnswerRequest) ([]driven.ChatMessage, error) {
	var user string
	if req.Branch == domain.BranchWithContext {
		user = renderPrompt(loadPrompt(g.prompts, driven.PromptAnswerWithContext), req.Question, req.ContextText)
	} else {
		user = renderPrompt(loadPrompt(g.prompts, driven.PromptAnswerNoContext), req.Question, "")
	}

	messages := []driven.ChatMessage{{Role: string(domain.RoleSystem), Content: loadPrompt(g.prompts, driven.PromptChatSystem)}}

	if req.SessionID != "" && g.sessions != nil {
		history, err := g.sessions.Get(ctx, req.SessionID)
		if err != nil {
			return nil, fmt.Errorf("loading history: %w", err)
		}
		for _, t := range history {
			messages = append(messages, driven.ChatMessage{Role: string(t.Role), Content: t.Content})
		}
	}

	return append(messages, driven.ChatMessage{Role: string(domain.RoleUser), Content: user}), nil
}

func (g *Generator) chatOptions() driven.ChatOptions {
	return driven.ChatOptions{Temperature: g.temperature}
}

// fail emits the terminal error event and returns err.
func (g *Generator) fail(emit func(domain.Event) error, err error) error {
	logger.Error("generation: %v", err)
	if emitErr := emit(domain.ErrorEvent{Message: err.Error()}); emitErr != nil {
		logger.Debug("emitting error event: %v", emitErr)
	}
	return err
}

// emitError marks a failure of the caller's emit function so that it is
// not mistaken for a model failure.
type emitError struct {
	err error
}

func (e *emitError) Error() string { return e.err.Error() }
func (e *emitError) Unwrap() error { return e.err }
