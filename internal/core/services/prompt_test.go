package services

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/cvscreener/internal/core/domain"
)

func TestClassifyComplexity(t *testing.T) {
	var analyzer QueryAnalyzer

	tests := []struct {
		question string
		want     domain.QueryComplexity
	}{
		{"Who is Jane Doe?", domain.ComplexitySimple},
		{"Compare Jane and John", domain.ComplexityComplex},
		{"Why did John leave his last role?", domain.ComplexityComplex},
		{"Python vs Go experience", domain.ComplexityComplex},
		{"Explain the data pipeline work", domain.ComplexityComplex},
		{"Which candidates know Python?", domain.ComplexityModerate},
		{"What features does she list?", domain.ComplexityModerate},
		{"Skills", domain.ComplexitySimple},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, analyzer.ClassifyComplexity(tt.question), "question %q", tt.question)
	}
}

func TestAugmentShortQuery(t *testing.T) {
	var analyzer QueryAnalyzer
	history := []domain.ConversationTurn{
		{Question: "Who is Jane?", Answer: "Jane Doe has strong technical skills in Python [1]."},
	}

	augmented, ok := analyzer.AugmentShortQuery("details?", history)
	require.True(t, ok)
	assert.Equal(t, "details? about the candidate skills", augmented)
}

func TestAugmentShortQuery_NoHistory(t *testing.T) {
	var analyzer QueryAnalyzer

	augmented, ok := analyzer.AugmentShortQuery("details?", nil)
	assert.False(t, ok)
	assert.Equal(t, "details?", augmented)
}

func TestAugmentShortQuery_LongQuestionUnchanged(t *testing.T) {
	var analyzer QueryAnalyzer
	history := []domain.ConversationTurn{
		{Question: "q", Answer: "answer mentioning experience"},
	}

	augmented, ok := analyzer.AugmentShortQuery("tell me much more about that", history)
	assert.False(t, ok)
	assert.Equal(t, "tell me much more about that", augmented)
}

func TestAugmentShortQuery_NoTopicMatch(t *testing.T) {
	var analyzer QueryAnalyzer
	history := []domain.ConversationTurn{
		{Question: "q", Answer: "an answer about nothing in particular"},
	}

	_, ok := analyzer.AugmentShortQuery("more?", history)
	assert.False(t, ok)
}

func TestPromptBuild_CompositionOrder(t *testing.T) {
	builder := NewPromptBuilder(true)
	results := []domain.RetrievedResult{
		{ChunkID: "c1", Content: "5 years Python experience", Title: "CV Jane Doe",
			URL: "cv://cv-01-jane-doe", VectorScore: 0.9, HasVectorScore: true},
	}
	history := []domain.ConversationTurn{
		{Question: "hello", Answer: "Hi, ask me about the candidates."},
	}

	prompt, analysis := builder.Build(results, history, "What experience does Jane Doe have?")

	sections := []string{
		"# META-INSTRUCTIONS",
		"# DOMAIN KNOWLEDGE",
		"# TASK INSTRUCTIONS",
		"# EXAMPLE ANSWERS",
		"# RETRIEVED CONTEXT",
		"# CONVERSATION HISTORY",
		"# USER QUESTION",
		"# YOUR RESPONSE",
	}
	last := -1
	for _, section := range sections {
		idx := strings.Index(prompt, section)
		require.GreaterOrEqual(t, idx, 0, "missing section %s", section)
		assert.Greater(t, idx, last, "section %s out of order", section)
		last = idx
	}

	assert.Contains(t, prompt, "[Source 1]")
	assert.Contains(t, prompt, "CV Jane Doe")
	assert.Contains(t, prompt, "User: hello")
	assert.Contains(t, prompt, "What experience does Jane Doe have?")
	assert.Equal(t, domain.ComplexitySimple, analysis.Complexity)
	assert.Equal(t, len(prompt), analysis.PromptLength)
}

func TestPromptBuild_WithoutFewShot(t *testing.T) {
	builder := NewPromptBuilder(false)

	prompt, _ := builder.Build(nil, nil, "question")

	assert.NotContains(t, prompt, "# EXAMPLE ANSWERS")
	assert.Contains(t, prompt, "No relevant information was found in the database.")
	assert.Contains(t, prompt, "No prior conversation.")
}

func TestFormatContext_NumbersAllResultsInOrder(t *testing.T) {
	results := []domain.RetrievedResult{
		{ChunkID: "a", Content: "alpha text", Title: "A", VectorScore: 0.9, HasVectorScore: true},
		{ChunkID: "b", Content: "bravo text", Title: "B", VectorScore: 0.6, HasVectorScore: true},
		{ChunkID: "c", Content: "charlie text", Title: "C", VectorScore: 0.2, HasVectorScore: true},
	}

	context := FormatContext(results)

	first := strings.Index(context, "[Source 1]")
	second := strings.Index(context, "[Source 2]")
	third := strings.Index(context, "[Source 3]")
	require.GreaterOrEqual(t, first, 0)
	assert.Greater(t, second, first)
	assert.Greater(t, third, second)

	// Every result appears, including the weakest one.
	assert.Contains(t, context, "alpha text")
	assert.Contains(t, context, "bravo text")
	assert.Contains(t, context, "charlie text")
	assert.Contains(t, context, "## SOURCE USAGE RULES:")
}

func TestFormatContext_RelevanceLabels(t *testing.T) {
	results := []domain.RetrievedResult{
		{ChunkID: "a", Content: "one", VectorScore: 0.9, HasVectorScore: true},
		{ChunkID: "b", Content: "two", VectorScore: 0.6, HasVectorScore: true},
		{ChunkID: "c", Content: "three", VectorScore: 0.1, HasVectorScore: true},
	}

	context := FormatContext(results)

	assert.Contains(t, context, "(90.0% match)")
	assert.Contains(t, context, "(60.0% match - use with caution)")
	assert.Contains(t, context, "(10.0% background only, do not cite)")
}

func TestFormatContext_Empty(t *testing.T) {
	assert.Equal(t, "No relevant information was found in the database.", FormatContext(nil))
}
