// Package file provides file-backed configuration adapters.
//
//   - ConfigStore: settings in ~/.sea-rag/config.toml
//   - PromptStore: prompt templates in ~/.sea-rag/prompts.yaml
package file
