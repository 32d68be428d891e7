package domain

// Role identifies the author of a conversation turn.
type Role string

// Conversation roles.
const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Turn is one message of a session's history.
type Turn struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// DefaultSessionID is used when a caller supplies no session.
const DefaultSessionID = "default"

// ChatRequest is a user message addressed to the chat surface.
type ChatRequest struct {
	// Message is the user's question.
	Message string

	// SessionID selects the conversation history. Empty means default.
	SessionID string

	// FileID restricts retrieval to one document when set.
	FileID string
}

// AnswerRequest drives one pass of the answer generator.
type AnswerRequest struct {
	// Question is recorded verbatim in history.
	Question string

	// Citations are emitted before any token on the with_context branch.
	Citations []Citation

	// ContextText is interpolated into the with_context prompt.
	ContextText string

	// Branch selects the prompt template.
	Branch Branch

	// SessionID enables history; empty means a stateless answer.
	SessionID string
}

// Answer is the collected result of a non-streaming answer.
type Answer struct {
	Text          string     `json:"answer"`
	Citations     []Citation `json:"citations"`
	UsedRetrieval bool       `json:"used_retrieval"`
}
