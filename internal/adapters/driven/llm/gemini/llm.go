// Package gemini provides an LLM service adapter for Google Gemini.
package gemini

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"

	"github.com/custodia-labs/sea-rag/internal/core/domain"
	"github.com/custodia-labs/sea-rag/internal/core/ports/driven"
)

// Ensure LLMService implements the interface.
var _ driven.LLMService = (*LLMService)(nil)

// DefaultModel is used when none is configured.
const DefaultModel = "gemini-1.5-flash"

// Config holds configuration for the Gemini LLM service.
type Config struct {
	APIKey string
	Model  string

	// Endpoint overrides the API host.
	Endpoint string

	// Temperature is used when a call does not set one.
	Temperature *float64
}

// LLMService runs chat sessions on a genai.Client.
type LLMService struct {
	client      *genai.Client
	model       string
	temperature *float64
}

// NewLLMService creates a Gemini client.
func NewLLMService(ctx context.Context, cfg Config) (*LLMService, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("gemini: API key: %w", domain.ErrNotConfigured)
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}

	opts := []option.ClientOption{option.WithAPIKey(cfg.APIKey)}
	if cfg.Endpoint != "" {
		opts = append(opts, option.WithEndpoint(cfg.Endpoint))
	}
	client, err := genai.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("gemini: create client: %w", err)
	}

	return &LLMService{client: client, model: cfg.Model, temperature: cfg.Temperature}, nil
}

// Chat sends the conversation and returns the reply text.
func (s *LLMService) Chat(ctx context.Context, messages []driven.ChatMessage, opts driven.ChatOptions) (string, error) {
	cs, last, err := s.session(messages, opts)
	if err != nil {
		return "", err
	}

	resp, err := cs.SendMessage(ctx, last...)
	if err != nil {
		return "", fmt.Errorf("gemini: %w", err)
	}
	return responseText(resp), nil
}

// ChatStream sends the conversation with SendMessageStream and forwards the
// text of every streamed response.
func (s *LLMService) ChatStream(
	ctx context.Context,
	messages []driven.ChatMessage,
	opts driven.ChatOptions,
	onDelta func(string) error,
) error {
	cs, last, err := s.session(messages, opts)
	if err != nil {
		return err
	}

	it := cs.SendMessageStream(ctx, last...)
	for {
		resp, err := it.Next()
		if errors.Is(err, iterator.Done) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("gemini: stream: %w", err)
		}
		if text := responseText(resp); text != "" {
			if err := onDelta(text); err != nil {
				return err
			}
		}
	}
}

// session builds a chat session whose history is every message but the
// last, which is returned as the parts to send.
func (s *LLMService) session(messages []driven.ChatMessage, opts driven.ChatOptions) (*genai.ChatSession, []genai.Part, error) {
	system, history, last, err := splitConversation(messages)
	if err != nil {
		return nil, nil, err
	}

	model := s.client.GenerativeModel(s.model)
	if system != "" {
		model.SystemInstruction = &genai.Content{Parts: []genai.Part{genai.Text(system)}}
	}
	temp := opts.Temperature
	if temp == nil {
		temp = s.temperature
	}
	if temp != nil {
		model.SetTemperature(float32(*temp))
	}
	if opts.MaxTokens > 0 {
		model.SetMaxOutputTokens(int32(opts.MaxTokens))
	}

	cs := model.StartChat()
	cs.History = history
	return cs, last, nil
}

// splitConversation maps roles onto Gemini's user/model pair and gathers
// system messages into one instruction.
func splitConversation(messages []driven.ChatMessage) (string, []*genai.Content, []genai.Part, error) {
	var (
		system []string
		turns  []*genai.Content
	)
	for _, m := range messages {
		switch m.Role {
		case string(domain.RoleSystem):
			system = append(system, m.Content)
		case string(domain.RoleAssistant):
			turns = append(turns, &genai.Content{Role: "model", Parts: []genai.Part{genai.Text(m.Content)}})
		default:
			turns = append(turns, &genai.Content{Role: "user", Parts: []genai.Part{genai.Text(m.Content)}})
		}
	}
	if len(turns) == 0 || turns[len(turns)-1].Role != "user" {
		return "", nil, nil, fmt.Errorf("gemini: conversation must end with a user message: %w", domain.ErrInvalidInput)
	}
	last := turns[len(turns)-1]
	return strings.Join(system, "\n\n"), turns[:len(turns)-1], last.Parts, nil
}

func responseText(resp *genai.GenerateContentResponse) string {
	if resp == nil {
		return ""
	}
	var b strings.Builder
	for _, c := range resp.Candidates {
		if c.Content == nil {
			continue
		}
		for _, p := range c.Content.Parts {
			if t, ok := p.(genai.Text); ok {
				b.WriteString(string(t))
			}
		}
	}
	return b.String()
}

// ModelName returns the name of the LLM model being used.
func (s *LLMService) ModelName() string {
	return s.model
}

// Ping lists one model page, which validates the key.
func (s *LLMService) Ping(ctx context.Context) error {
	it := s.client.ListModels(ctx)
	if _, err := it.Next(); err != nil && !errors.Is(err, iterator.Done) {
		return fmt.Errorf("gemini: ping: %w", err)
	}
	return nil
}

// Close closes the underlying client.
func (s *LLMService) Close() error {
	return s.client.Close()
}
