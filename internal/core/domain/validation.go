package domain

// ValidationResult is the outcome of running guardrail checks against a
// generated answer. Validation is advisory: a failed result is logged but
// the answer is still returned to the caller.
type ValidationResult struct {
	// Passed is true when no issues were found.
	Passed bool

	// Issues lists every failed check by name.
	Issues []string

	// Score is max(0, 1 - 0.15*len(Issues)), reduced by a further 0.3
	// when fabricated claims were detected.
	Score float64

	// InlineCitations is the number of [N] citations found.
	InlineCitations int

	// HasFooter reports whether a sources footer marker was present.
	HasFooter bool

	// FabricatedClaims lists suspicious numeric claims found in the answer.
	FabricatedClaims []string
}
