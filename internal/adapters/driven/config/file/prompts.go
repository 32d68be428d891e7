package file

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/custodia-labs/sea-rag/internal/core/domain"
	"github.com/custodia-labs/sea-rag/internal/core/ports/driven"
)

// Ensure PromptStore implements the interface.
var _ driven.PromptStore = (*PromptStore)(nil)

// PromptsFileName is the prompts file inside the config directory.
const PromptsFileName = "prompts.yaml"

// PromptStore reads prompt templates from a YAML map of name to template.
// The file is read lazily on first Load and again after Reload. When the
// file does not exist it is seeded with the store's defaults.
type PromptStore struct {
	mu       sync.RWMutex
	path     string
	defaults map[string]string
	prompts  map[string]string
	loaded   bool
}

// PromptOption configures a PromptStore.
type PromptOption func(*PromptStore)

// WithDefaultPrompts sets the templates written when the file is created.
func WithDefaultPrompts(defaults map[string]string) PromptOption {
	return func(s *PromptStore) {
		s.defaults = defaults
	}
}

// NewPromptStore creates a store for path. A path ending in .yaml or .yml
// names the file; anything else is a directory holding prompts.yaml.
// Empty selects ~/.sea-rag/prompts.yaml. No I/O happens until Load.
func NewPromptStore(path string, opts ...PromptOption) (*PromptStore, error) {
	if path == "" {
		dir, err := DefaultDir()
		if err != nil {
			return nil, err
		}
		path = dir
	}
	if ext := filepath.Ext(path); ext != ".yaml" && ext != ".yml" {
		path = filepath.Join(path, PromptsFileName)
	}

	s := &PromptStore{path: path}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Load returns the template stored under name. Names missing from the file
// return domain.ErrNotFound so callers can fall back to their own default.
func (s *PromptStore) Load(name string) (string, error) {
	if err := s.ensureLoaded(); err != nil {
		return "", err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	tpl, ok := s.prompts[name]
	if !ok || strings.TrimSpace(tpl) == "" {
		return "", fmt.Errorf("prompt %q: %w", name, domain.ErrNotFound)
	}
	return strings.TrimSpace(tpl), nil
}

// Reload drops the cached file so the next Load reads it again.
func (s *PromptStore) Reload() {
	s.mu.Lock()
	s.loaded = false
	s.prompts = nil
	s.mu.Unlock()
}

// Path returns the prompts file path.
func (s *PromptStore) Path() string {
	return s.path
}

func (s *PromptStore) ensureLoaded() error {
	s.mu.RLock()
	loaded := s.loaded
	s.mu.RUnlock()
	if loaded {
		return nil
	}

	prompts, err := s.read()
	if err != nil {
		return err
	}

	s.mu.Lock()
	if !s.loaded {
		s.prompts = prompts
		s.loaded = true
	}
	s.mu.Unlock()
	return nil
}

// read parses the file, seeding it first if it does not exist.
func (s *PromptStore) read() (map[string]string, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		if len(s.defaults) == 0 {
			return map[string]string{}, nil
		}
		if err := s.seed(); err != nil {
			return nil, err
		}
		return copyPrompts(s.defaults), nil
	}
	if err != nil {
		return nil, fmt.Errorf("read prompts: %w", err)
	}

	prompts := make(map[string]string)
	if err := yaml.Unmarshal(data, &prompts); err != nil {
		return nil, fmt.Errorf("parse %s: %w", s.path, err)
	}
	return prompts, nil
}

func (s *PromptStore) seed() error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0700); err != nil {
		return fmt.Errorf("create prompts directory: %w", err)
	}
	data, err := yaml.Marshal(s.defaults)
	if err != nil {
		return fmt.Errorf("encode prompts: %w", err)
	}
	header := "# Prompt templates. {question} and {context} are substituted at run time.\n"
	if err := os.WriteFile(s.path, append([]byte(header), data...), 0600); err != nil {
		return fmt.Errorf("write prompts: %w", err)
	}
	return nil
}

func copyPrompts(in map[string]string) map[string]string {
	out := make(map[string]string, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}
