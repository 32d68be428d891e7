package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRelevanceDecision_Accepted(t *testing.T) {
	tests := []struct {
		decision RelevanceDecision
		accepted bool
	}{
		{DecisionNoHits, false},
		{DecisionAcceptedByScore, true},
		{DecisionAcceptedByGrader, true},
		{DecisionRejected, false},
		{DecisionAcceptedByDefault, true},
	}

	for _, tt := range tests {
		t.Run(tt.decision.String(), func(t *testing.T) {
			assert.Equal(t, tt.accepted, tt.decision.Accepted())
		})
	}
}

func TestRetrieval_Branch(t *testing.T) {
	t.Run("accepted with context", func(t *testing.T) {
		r := Retrieval{Decision: DecisionAcceptedByScore, ContextText: "Document: a (Page 1)\nContent: x"}
		assert.Equal(t, BranchWithContext, r.Branch())
	})

	t.Run("accepted by default keeps context", func(t *testing.T) {
		r := Retrieval{Decision: DecisionAcceptedByDefault, ContextText: "ctx"}
		assert.Equal(t, BranchWithContext, r.Branch())
	})

	t.Run("rejected", func(t *testing.T) {
		r := Retrieval{Decision: DecisionRejected, Citations: []Citation{{Rank: 1}}}
		assert.Equal(t, BranchNoContext, r.Branch())
	})

	t.Run("accepted without context text", func(t *testing.T) {
		r := Retrieval{Decision: DecisionAcceptedByScore}
		assert.Equal(t, BranchNoContext, r.Branch())
	})
}

func TestCitationFormatting(t *testing.T) {
	assert.Equal(t, "f_x1-c1", CitationID("f_x1", 1))
	assert.Equal(t, "/api/v1/pdf/page?fileId=f_x1&page=3&type=original", PreviewURL("f_x1", 3))
}
