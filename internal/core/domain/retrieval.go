package domain

import "fmt"

// Citation is a retrieval result surfaced to the caller.
// Citations are built per retrieval and never persisted.
type Citation struct {
	CitationID string  `json:"citation_id"`
	SourceID   string  `json:"fileId"`
	SourceName string  `json:"sourceName"`
	Rank       int     `json:"rank"`
	Page       int     `json:"page"`
	Snippet    string  `json:"snippet"`
	Score      float64 `json:"score"`
	PreviewURL string  `json:"previewUrl"`
}

// CitationID formats the identifier of the rank-th hit of a source.
func CitationID(sourceID string, rank int) string {
	return fmt.Sprintf("%s-c%d", sourceID, rank)
}

// PreviewURL formats the page preview reference for a citation.
func PreviewURL(sourceID string, page int) string {
	return fmt.Sprintf("/api/v1/pdf/page?fileId=%s&page=%d&type=original", sourceID, page)
}

// RelevanceDecision is the outcome of the confidence gate.
type RelevanceDecision int

const (
	// DecisionNoHits means the search returned nothing.
	DecisionNoHits RelevanceDecision = iota

	// DecisionAcceptedByScore means the score gate accepted the hits.
	DecisionAcceptedByScore

	// DecisionAcceptedByGrader means the grader judged the hits relevant.
	DecisionAcceptedByGrader

	// DecisionRejected means the grader judged the hits irrelevant.
	DecisionRejected

	// DecisionAcceptedByDefault means the grader was unavailable and the
	// hits were kept anyway.
	DecisionAcceptedByDefault
)

// Accepted reports whether the hits should be used as context.
func (d RelevanceDecision) Accepted() bool {
	switch d {
	case DecisionAcceptedByScore, DecisionAcceptedByGrader, DecisionAcceptedByDefault:
		return true
	default:
		return false
	}
}

// String returns the string representation.
func (d RelevanceDecision) String() string {
	switch d {
	case DecisionNoHits:
		return "no_hits"
	case DecisionAcceptedByScore:
		return "accepted_by_score"
	case DecisionAcceptedByGrader:
		return "accepted_by_grader"
	case DecisionRejected:
		return "rejected"
	case DecisionAcceptedByDefault:
		return "accepted_by_default"
	default:
		return "unknown"
	}
}

// Branch selects the answer prompt.
type Branch string

const (
	// BranchWithContext grounds the answer in retrieved context.
	BranchWithContext Branch = "with_context"

	// BranchNoContext answers without retrieved context.
	BranchNoContext Branch = "no_context"
)

// Retrieval is the output of the confidence-gated retriever.
type Retrieval struct {
	// Citations are returned whatever the decision.
	Citations []Citation

	// ContextText is empty unless the decision accepted the hits.
	ContextText string

	// Decision records how relevance was decided.
	Decision RelevanceDecision
}

// Branch derives the answer branch from the decision.
func (r Retrieval) Branch() Branch {
	if r.Decision.Accepted() && r.ContextText != "" {
		return BranchWithContext
	}
	return BranchNoContext
}
