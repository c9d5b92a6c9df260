package services

import (
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/custodia-labs/cvscreener/internal/core/domain"
)

// Guardrail thresholds. Tuned against observed model output, not derived.
const (
	minAnswerLength    = 10
	copyRatioThreshold = 0.8
	stopWordFloor      = 0.08
	maxAnswerWords     = 700
	issuePenalty       = 0.15
	fabricationPenalty = 0.3
	minContextLength   = 50
)

// stopWords is the fixed English function-word list used by the
// wrong-language heuristic.
var stopWords = []string{"the", "is", "are", "of", "and", "to", "a", "in", "for", "with"}

// hallucinationPhrases are hedging markers that signal the model answered
// from its own knowledge instead of the retrieved context.
var hallucinationPhrases = []string{
	"in my knowledge", "as far as i know", "in my experience",
	"i think", "i imagine", "probably without",
}

var citationPattern = regexp.MustCompile(`\[\d+\]`)

// footerMarkers are the known renderings of the sources footer.
var footerMarkers = []string{"**Sources consulted:**"}

// fabricationPatterns flag numeric claims that should never appear without
// grounding: money, founding years, percentages, headcounts.
var fabricationPatterns = []struct {
	re    *regexp.Regexp
	claim string
}{
	{regexp.MustCompile(`\d+\s*€`), "specific price in euros"},
	{regexp.MustCompile(`\d+\s*\$`), "specific price in dollars"},
	{regexp.MustCompile(`founded in \d{4}`), "founding year"},
	{regexp.MustCompile(`costs.*\d+`), "cost statement"},
	{regexp.MustCompile(`price.*\d+`), "price statement"},
	{regexp.MustCompile(`\d+ employees`), "employee count"},
	{regexp.MustCompile(`\d+% of`), "specific percentage"},
}

// GuardrailConfig controls which checks run.
type GuardrailConfig struct {
	// StrictCitations enables the citation coverage checks (unused
	// sources and phantom citations). Disabled configurations still
	// require the presence of citations and a footer.
	StrictCitations bool
}

// GuardrailValidator checks generated answers for grounding failures:
// missing citations, verbatim copying, hedging language, fabricated numeric
// claims. Validation is advisory: callers log failures and return the
// answer anyway.
type GuardrailValidator struct {
	cfg GuardrailConfig
}

// NewGuardrailValidator creates a validator.
func NewGuardrailValidator(cfg GuardrailConfig) *GuardrailValidator {
	return &GuardrailValidator{cfg: cfg}
}

// Validate runs every check against the answer. context is the formatted
// context block the answer was generated from; sources are the retrieved
// results supplied to the prompt.
func (v *GuardrailValidator) Validate(answer, context string, sources []domain.RetrievedResult) *domain.ValidationResult {
	var issues []string

	if len(strings.TrimSpace(answer)) < minAnswerLength {
		issues = append(issues, "Response too short or empty")
	}

	citations := citationPattern.FindAllString(answer, -1)
	if len(sources) > 0 && len(citations) == 0 {
		issues = append(issues, "Missing inline citations [N]")
	}

	hasFooter := false
	for _, marker := range footerMarkers {
		if strings.Contains(answer, marker) {
			hasFooter = true
			break
		}
	}
	if len(sources) > 0 && !hasFooter {
		issues = append(issues, "Missing footnote section with sources")
	}

	if v.cfg.StrictCitations && len(sources) > 0 && len(citations) > 0 {
		issues = append(issues, v.coverageIssues(citations, len(sources))...)
	}

	if len(context) > minContextLength && copyRatio(answer, context) > copyRatioThreshold {
		issues = append(issues, "Response appears to copy context without synthesis")
	}

	if stopWordRatio(answer) < stopWordFloor {
		issues = append(issues, "Response may not be in expected language (en)")
	}

	if n := len(strings.Fields(answer)); n > maxAnswerWords {
		issues = append(issues, fmt.Sprintf("Response too long (%d words, max 600)", n))
	}

	lower := strings.ToLower(answer)
	var hedges []string
	for _, phrase := range hallucinationPhrases {
		if strings.Contains(lower, phrase) {
			hedges = append(hedges, phrase)
		}
	}
	if len(hedges) > 0 {
		issues = append(issues, fmt.Sprintf("Hallucination indicators found: %v", hedges))
	}

	score := 1.0 - float64(len(issues))*issuePenalty
	if score < 0 {
		score = 0
	}

	result := &domain.ValidationResult{
		Passed:          len(issues) == 0,
		Issues:          issues,
		Score:           score,
		InlineCitations: len(citations),
		HasFooter:       hasFooter,
	}

	fabricated := DetectFabricatedClaims(answer)
	if len(fabricated) > 0 {
		result.FabricatedClaims = fabricated
		result.Issues = append(result.Issues, fmt.Sprintf("Potential fabricated claims: %v", fabricated))
		result.Passed = false
		result.Score = score - fabricationPenalty
		if result.Score < 0 {
			result.Score = 0
		}
	}
	return result
}

// coverageIssues reports sources never cited and citations to sources that
// do not exist.
func (v *GuardrailValidator) coverageIssues(citations []string, sourceCount int) []string {
	cited := make(map[int]bool)
	for _, c := range citations {
		n, err := strconv.Atoi(strings.Trim(c, "[]"))
		if err != nil {
			continue
		}
		cited[n] = true
	}

	var unused, phantom []int
	for i := 1; i <= sourceCount; i++ {
		if !cited[i] {
			unused = append(unused, i)
		}
	}
	for n := range cited {
		if n < 1 || n > sourceCount {
			phantom = append(phantom, n)
		}
	}
	sort.Ints(phantom)

	var issues []string
	if len(unused) > 0 {
		issues = append(issues, fmt.Sprintf("Sources not cited: %v", unused))
	}
	if len(phantom) > 0 {
		issues = append(issues, fmt.Sprintf("Citations to non-existent sources: %v", phantom))
	}
	return issues
}

// DetectFabricatedClaims scans the answer for suspicious numeric patterns.
func DetectFabricatedClaims(answer string) []string {
	lower := strings.ToLower(answer)
	var claims []string
	for _, p := range fabricationPatterns {
		if matches := p.re.FindAllString(lower, -1); len(matches) > 0 {
			claims = append(claims, fmt.Sprintf("%s: %v", p.claim, matches))
		}
	}
	return claims
}

// copyRatio is the fraction of the answer's unique words that also appear
// in the context. High values suggest verbatim copying.
func copyRatio(answer, context string) float64 {
	answerWords := uniqueWords(answer)
	if len(answerWords) == 0 {
		return 0
	}
	contextWords := uniqueWords(context)
	common := 0
	for w := range answerWords {
		if contextWords[w] {
			common++
		}
	}
	return float64(common) / float64(len(answerWords))
}

func stopWordRatio(answer string) float64 {
	words := strings.Fields(strings.ToLower(answer))
	if len(words) == 0 {
		return 0
	}
	count := 0
	for _, w := range words {
		for _, sw := range stopWords {
			if w == sw {
				count++
				break
			}
		}
	}
	return float64(count) / float64(len(words))
}

func uniqueWords(text string) map[string]bool {
	words := make(map[string]bool)
	for _, w := range strings.Fields(strings.ToLower(text)) {
		words[w] = true
	}
	return words
}
