// Package openai provides an image captioner backed by an OpenAI-compatible
// vision chat model.
package openai

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/custodia-labs/sea-rag/internal/core/ports/driven"
	"github.com/custodia-labs/sea-rag/internal/logger"
)

// Ensure Captioner implements the interface.
var _ driven.ImageCaptioner = (*Captioner)(nil)

// Default configuration values.
const (
	DefaultBaseURL    = "https://api.siliconflow.cn/v1"
	DefaultModel      = "deepseek-ai/deepseek-vl2"
	DefaultTimeout    = 30 * time.Second
	DefaultMaxRetries = 3
	DefaultRetryBase  = 2 * time.Second

	temperature = 0.1
	maxTokens   = 512
)

// Fallback prompts used when the prompt store has none.
const (
	defaultSystemPrompt = "You are an expert in marine equipment documentation. Describe technical images precisely."
	defaultUserPrompt   = "Describe this image. For equipment parts name them and their condition; for charts extract the key values; for circuit diagrams explain the connections. State conclusions directly."
)

// UnavailableCaption is returned for every image when no key is configured.
const UnavailableCaption = "(image analysis unavailable: no API key configured)"

// Config holds configuration for the captioner.
type Config struct {
	APIKey  string
	BaseURL string
	Model   string

	// Timeout bounds each request.
	Timeout time.Duration

	// MaxRetries bounds retries after the first attempt.
	MaxRetries int

	// RetryBase is the first backoff; retry n waits RetryBase * 2^n.
	RetryBase time.Duration

	// RequestsPerSecond throttles requests. 0 disables throttling.
	RequestsPerSecond float64

	// Prompts supplies vlm_system and vlm_user. Optional.
	Prompts driven.PromptStore
}

// Captioner posts images as base64 data URLs to /chat/completions.
type Captioner struct {
	client     *http.Client
	baseURL    string
	apiKey     string
	model      string
	maxRetries int
	retryBase  time.Duration
	limiter    *rate.Limiter
	prompts    driven.PromptStore

	// sleep waits between retries. Replaced in tests.
	sleep func(ctx context.Context, d time.Duration) error
}

// NewCaptioner creates a captioner. A missing key is not an error: the
// captioner then answers every image with UnavailableCaption.
func NewCaptioner(cfg Config) *Captioner {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}
	if cfg.RetryBase <= 0 {
		cfg.RetryBase = DefaultRetryBase
	}

	c := &Captioner{
		client:     &http.Client{Timeout: cfg.Timeout},
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:     cfg.APIKey,
		model:      cfg.Model,
		maxRetries: cfg.MaxRetries,
		retryBase:  cfg.RetryBase,
		prompts:    cfg.Prompts,
		sleep:      sleepContext,
	}
	if cfg.RequestsPerSecond > 0 {
		c.limiter = rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), 1)
	}
	return c
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
	MaxTokens   int           `json:"max_tokens"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content any    `json:"content"`
}

type contentPart struct {
	Type     string    `json:"type"`
	Text     string    `json:"text,omitempty"`
	ImageURL *imageURL `json:"image_url,omitempty"`
}

type imageURL struct {
	URL string `json:"url"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// retryableError marks failures worth another attempt: transport errors,
// HTTP 429 and HTTP 5xx.
type retryableError struct {
	err error
}

func (e *retryableError) Error() string { return e.err.Error() }
func (e *retryableError) Unwrap() error { return e.err }

// Caption describes the image at imagePath. It never fails; errors become
// placeholder captions that end up in the document body.
func (c *Captioner) Caption(ctx context.Context, imagePath string) string {
	if c.apiKey == "" {
		return UnavailableCaption
	}

	body, err := c.requestBody(imagePath)
	if err != nil {
		logger.Warn("caption %s: %v", filepath.Base(imagePath), err)
		return fmt.Sprintf("(image analysis failed: %v)", err)
	}

	for attempt := 0; ; attempt++ {
		if attempt == 0 {
			logger.Debug("captioning %s", filepath.Base(imagePath))
		} else {
			logger.Debug("caption retry %d/%d: %s", attempt, c.maxRetries, filepath.Base(imagePath))
		}

		caption, err := c.attempt(ctx, body)
		if err == nil {
			return caption
		}

		var retryable *retryableError
		if !errors.As(err, &retryable) {
			logger.Warn("caption %s: %v", filepath.Base(imagePath), err)
			return fmt.Sprintf("(image analysis failed: %v)", err)
		}
		if attempt >= c.maxRetries {
			logger.Warn("caption %s failed after %d retries: %v", filepath.Base(imagePath), c.maxRetries, err)
			return fmt.Sprintf("(image analysis failed after %d retries: %v)", c.maxRetries, err)
		}

		wait := c.retryBase * time.Duration(1<<attempt)
		if err := c.sleep(ctx, wait); err != nil {
			return fmt.Sprintf("(image analysis failed: %v)", err)
		}
	}
}

func (c *Captioner) requestBody(imagePath string) ([]byte, error) {
	data, err := os.ReadFile(imagePath)
	if err != nil {
		return nil, fmt.Errorf("read image: %w", err)
	}
	dataURL := "data:" + mimeType(imagePath) + ";base64," + base64.StdEncoding.EncodeToString(data)

	req := chatRequest{
		Model: c.model,
		Messages: []chatMessage{
			{Role: "system", Content: c.prompt(driven.PromptVLMSystem, defaultSystemPrompt)},
			{Role: "user", Content: []contentPart{
				{Type: "image_url", ImageURL: &imageURL{URL: dataURL}},
				{Type: "text", Text: c.prompt(driven.PromptVLMUser, defaultUserPrompt)},
			}},
		},
		Temperature: temperature,
		MaxTokens:   maxTokens,
	}
	return json.Marshal(req)
}

func (c *Captioner) prompt(name, fallback string) string {
	if c.prompts == nil {
		return fallback
	}
	tpl, err := c.prompts.Load(name)
	if err != nil || strings.TrimSpace(tpl) == "" {
		return fallback
	}
	return tpl
}

func (c *Captioner) attempt(ctx context.Context, body []byte) (string, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return "", err
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		return "", &retryableError{err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		statusErr := fmt.Errorf("HTTP %d: %s", resp.StatusCode, strings.TrimSpace(string(msg)))
		if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
			return "", &retryableError{err: statusErr}
		}
		return "", statusErr
	}

	var decoded chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return "", fmt.Errorf("decode response: %w", err)
	}
	if len(decoded.Choices) == 0 {
		return "", errors.New("no choices returned")
	}
	return strings.TrimSpace(decoded.Choices[0].Message.Content), nil
}

func mimeType(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".png":
		return "image/png"
	case ".gif":
		return "image/gif"
	case ".webp":
		return "image/webp"
	default:
		return "image/jpeg"
	}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
