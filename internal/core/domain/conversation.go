package domain

// ConversationTurn is a single question/answer exchange.
// Turns are owned by one conversation engine instance and kept in an
// ordered sequence capped at the engine's history limit.
type ConversationTurn struct {
	Question string
	Answer   string
}

// QueryComplexity classifies a question for prompt analysis.
// Complexity is informational only; it does not change prompt content.
type QueryComplexity string

const (
	ComplexitySimple   QueryComplexity = "simple"
	ComplexityModerate QueryComplexity = "moderate"
	ComplexityComplex  QueryComplexity = "complex"
)
