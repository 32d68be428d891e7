package services

import (
	"strings"

	"github.com/custodia-labs/sea-rag/internal/core/ports/driven"
	"github.com/custodia-labs/sea-rag/internal/logger"
)

// defaultPrompts are used when no prompt store is configured or the store
// has no entry for a name.
//
//nolint:lll // Prompt content is intentionally long and should not be wrapped.
var defaultPrompts = map[string]string{
	driven.PromptChatSystem: `You are a senior technical and academic expert in marine equipment.
You help users study the principles of marine equipment (uncrewed surface vessels, underwater vehicles, sensors and similar), maintain it, troubleshoot faults and read the research literature.
Rules:
1. Safety and rigour: for hands-on repairs, put safety notes first; for theory, keep an academic tone.
2. Stay grounded: answers must rest strictly on the retrieved context (equipment manuals, technical documents, papers).
3. Cite sources: mark every key conclusion, figure or claim with [filename (page)].
4. Use figures: when the context contains schematics, structure drawings, charts or fault indicator images, show them inline in the answer.
5. Never invent: if the retrieved context cannot answer the question, say plainly that nothing relevant was found in the knowledge base.`,

	driven.PromptAnswerWithContext: `Answer the user's question using the provided context from marine equipment technical documents or academic papers.

Question:
{question}

Context:
{context}

Requirements:
1. Expert voice: for practical questions focus on operation and troubleshooting; for theoretical questions focus on principles, methods and conclusions.
2. Clear structure: use lists and bold keywords where they help.
3. Always cite sources in the form [filename (page)].
4. If relevant images exist, show them inline.`,

	driven.PromptAnswerNoContext: `No document or paper excerpt directly related to your question was found in the current knowledge base.
Question:
{question}`,

	driven.PromptGrade: `Task: Assess the relevance of a retrieved document to a user question.
Retrieved document:
{context}

User question: {question}

Return 'yes' if relevant, otherwise 'no'.`,

	driven.PromptVLMSystem: `You are an expert in marine equipment documentation. Describe technical images precisely.`,

	driven.PromptVLMUser: `Describe this image from a marine equipment document. If it is a schematic, structure drawing or chart, explain the components, labels and the trend or relationship it shows. If it contains text, transcribe the key parts. Be concise.`,
}

// DefaultPrompts returns a copy of the built-in prompt templates.
func DefaultPrompts() map[string]string {
	out := make(map[string]string, len(defaultPrompts))
	for k, v := range defaultPrompts {
		out[k] = v
	}
	return out
}

// loadPrompt reads a template from the store, falling back to the default.
func loadPrompt(store driven.PromptStore, name string) string {
	if store != nil {
		if tpl, err := store.Load(name); err == nil && strings.TrimSpace(tpl) != "" {
			return tpl
		} else if err != nil {
			logger.Debug("prompt %q not loaded, using default: %v", name, err)
		}
	}
	return defaultPrompts[name]
}

// renderPrompt substitutes {question} and {context} placeholders.
func renderPrompt(tpl, question, context string) string {
	return strings.NewReplacer("{question}", question, "{context}", context).Replace(tpl)
}
