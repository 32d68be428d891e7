package driven

// PromptStore serves named prompt templates, usually from prompts.yaml.
type PromptStore interface {
	// Load returns the template for name, or an error wrapping
	// domain.ErrNotFound when neither the file nor the defaults have it.
	Load(name string) (string, error)

	// Reload drops cached templates so edits on disk take effect.
	Reload()
}

// Prompt names. Answer and grade templates are filled by replacing
// {question} and {context}.
const (
	PromptChatSystem        = "chat_system"
	PromptAnswerWithContext = "answer_with_context"
	PromptAnswerNoContext   = "answer_no_context" // {question} only
	PromptGrade             = "grade"

	// Image captioning.
	PromptVLMSystem = "vlm_system"
	PromptVLMUser   = "vlm_user"
)

// PromptStoreAware is implemented by services whose built-in prompts can
// be overridden after construction.
type PromptStoreAware interface {
	SetPromptStore(store PromptStore)
}
