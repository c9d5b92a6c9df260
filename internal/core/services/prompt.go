package services

import (
	"fmt"
	"strings"

	"github.com/custodia-labs/cvscreener/internal/core/domain"
)

// Marker phrases for query complexity classification. Plain substring
// policies, kept as literal lists so operators can reason about them.
var (
	complexMarkers = []string{
		"compare", "difference", "pros and cons",
		"why", "how does", "process", "implement",
		"better than", "vs", "versus", "explain",
	}
	moderateMarkers = []string{
		"features", "capabilities", "includes", "offers",
		"types of", "which",
	}
)

// topicAugmentations maps topic keywords found in the previous answer to the
// clarifying phrase appended to a short follow-up question.
var topicAugmentations = []struct {
	topic  string
	phrase string
}{
	{"profile", "about the candidate profile"},
	{"experience", "about the professional experience"},
	{"skills", "about the candidate skills"},
	{"education", "about the education"},
}

// QueryAnalyzer classifies questions and disambiguates short follow-ups
// using the conversation history.
type QueryAnalyzer struct{}

// ClassifyComplexity buckets a question by the presence of marker phrases.
// Complexity is informational only; it does not change the prompt content.
func (QueryAnalyzer) ClassifyComplexity(question string) domain.QueryComplexity {
	q := strings.ToLower(question)
	for _, marker := range complexMarkers {
		if strings.Contains(q, marker) {
			return domain.ComplexityComplex
		}
	}
	for _, marker := range moderateMarkers {
		if strings.Contains(q, marker) {
			return domain.ComplexityModerate
		}
	}
	return domain.ComplexitySimple
}

// AugmentShortQuery appends a clarifying phrase to a question of at most two
// words when the most recent answer mentions a known topic. Returns the
// question unchanged for longer questions or without matching history.
func (QueryAnalyzer) AugmentShortQuery(question string, history []domain.ConversationTurn) (string, bool) {
	if len(strings.Fields(question)) > 2 || len(history) == 0 {
		return question, false
	}
	lastAnswer := strings.ToLower(history[len(history)-1].Answer)
	for _, t := range topicAugmentations {
		if strings.Contains(lastAnswer, t.topic) {
			return question + " " + t.phrase, true
		}
	}
	return question, false
}

const metaInstructions = `# META-INSTRUCTIONS (HIGHEST PRIORITY)
These rules override all other instructions:

1. **GROUNDING**: Only use information explicitly present in the retrieved CV context.
2. **TRANSPARENCY**: Always cite specific sources for factual claims using [N] format.
3. **UNCERTAINTY**: Make clear when information is missing or low relevance (<35%).
4. **BOUNDARIES**: Only respond to questions about the candidates and CVs in the database.
5. **PRIVACY**: Never invent contact details, salaries, dates, or personal data not present in the CVs.
6. **LANGUAGE**: Always respond in English.`

const domainKnowledge = `# DOMAIN KNOWLEDGE (Context for Understanding)
The knowledge base is built from CVs (PDF resumes) stored in the feed directory.

Common sections in a CV:
- Professional summary and current role
- Work experience (role, company, achievements, dates)
- Technical skills and tools
- Education and certifications
- Languages and soft skills
- Links to portfolios or profiles

When summarizing a profile, highlight the latest role, years of experience, industries, and key skills.`

const taskInstructions = `# TASK INSTRUCTIONS
Your goal is to answer questions and summarize information from the ingested CVs (experience, skills, education, achievements).

## Response Requirements:
1. **Structure**: Use markdown with clear sections when helpful.
2. **Citations**: Include inline [N] references and a **Sources consulted** section when sources have >=35% relevance.
3. **Clarity**: Synthesize; don't paste the CV verbatim. Call out missing data.
4. **Tone**: Professional and concise.
5. **Language**: Always respond in English.

## Handling Cases:
- **No useful context (<35%)**: "I couldn't find information about [topic] in the available CVs." Do not include sources.
- **Partial information**: "Based on what's available, [short answer] [1]. Details about [gap] are missing."
- **Off-topic**: "I can only answer about the loaded candidates (experience, skills, education)."
- **Sensitive data not present** (salary, phone, address): state the CV does not include it without inventing.

## Citation Format:
- Inline: [N] after each grounded claim.
- Footer:
  **Sources consulted:**
  1. [Title] - [URL] (Relevance: XX%)
  2. ...

## Length Guidance:
- Simple questions: 2-4 sentences.
- Skill/achievement lists: short bullets.
- Complex/comparative: 2-3 paragraphs with headings.
- Max 600 words; if more is needed, provide a summary and suggest a follow-up.

## Complex Queries:
1. Break the question down.
2. Cover each part with evidence.
3. Synthesize and cite the sources used.`

const fewShotExamples = `# EXAMPLE ANSWERS (Learn from these)

**Example 1** - General profile:

Available context:
[Source 1] (91.0% match)
Title: CV Evelyn Hamilton
URL: cv://cv-01-evelyn-hamilton
Content: Data engineer with 6 years of experience. Specializes in ingestion pipelines on AWS (Glue, Lambda), modeling in Redshift, and orchestration with Airflow.

Question: What is the profile of Evelyn Hamilton?

Correct answer:
Evelyn Hamilton is a data engineer with 6 years of experience building ingestion pipelines on AWS (Glue, Lambda) and models in Redshift [1].

**Sources consulted:**
1. CV Evelyn Hamilton - cv://cv-01-evelyn-hamilton (Relevance: 91%)

Incorrect answer (do NOT do this):
Evelyn works with data and technology.
Reason: Vague summary without citations or concrete facts.

**Example 2** - Missing data:

Available context:
[Source 1] (22.0% match)
Title: General extract
URL: cv://general
Content: Technical CVs with software and data experience.

Question: What is Caitlin Cannon's current salary?

Correct answer:
I couldn't find information about Caitlin Cannon's salary in the available CVs.

If you need details on her experience or skills, I can provide those.

Incorrect answer (do NOT do this):
She earns 70,000 a year.
Reason: Fabricated salary and cites no evidence.`

// PromptAnalysis reports how a question was processed during prompt
// composition.
type PromptAnalysis struct {
	Complexity        domain.QueryComplexity
	OriginalQuestion  string
	AugmentedQuestion string
	WasAugmented      bool
	PromptLength      int
}

// PromptBuilder composes the model input from retrieved context, the
// conversation history and the question. The composition order is fixed:
// meta-instructions, domain knowledge, task instructions, optional few-shot
// examples, retrieved context, history, question, response cue.
type PromptBuilder struct {
	includeFewShot bool
	analyzer       QueryAnalyzer
}

// NewPromptBuilder creates a builder. Few-shot examples are included unless
// disabled.
func NewPromptBuilder(includeFewShot bool) *PromptBuilder {
	return &PromptBuilder{includeFewShot: includeFewShot}
}

// Build composes the full prompt for one question.
func (b *PromptBuilder) Build(
	results []domain.RetrievedResult,
	history []domain.ConversationTurn,
	question string,
) (string, *PromptAnalysis) {
	analysis := &PromptAnalysis{
		Complexity:       b.analyzer.ClassifyComplexity(question),
		OriginalQuestion: question,
	}

	var sb strings.Builder
	sb.WriteString(metaInstructions)
	sb.WriteString("\n\n")
	sb.WriteString(domainKnowledge)
	sb.WriteString("\n\n")
	sb.WriteString(taskInstructions)
	sb.WriteString("\n\n")
	if b.includeFewShot {
		sb.WriteString(fewShotExamples)
		sb.WriteString("\n\n---\n\n")
	}
	sb.WriteString("# RETRIEVED CONTEXT\n")
	sb.WriteString("The following sources were retrieved for your query (ordered by relevance):\n\n")
	sb.WriteString(FormatContext(results))
	sb.WriteString("\n\n---\n\n")
	sb.WriteString("# CONVERSATION HISTORY\n")
	sb.WriteString(formatHistory(history))
	sb.WriteString("\n\n---\n\n")
	sb.WriteString("# USER QUESTION\n")
	sb.WriteString(question)
	sb.WriteString("\n\n---\n\n")
	sb.WriteString("# YOUR RESPONSE\n")
	sb.WriteString("Provide a well-structured, cited answer following the instructions above:")

	prompt := sb.String()
	analysis.PromptLength = len(prompt)
	return prompt, analysis
}

// Relevance boundaries for the per-source advisory label.
const (
	highRelevance   = 0.75
	mediumRelevance = 0.5
)

// relevanceLabel buckets a similarity for the source annotation. The label
// is advisory text for the model only; it never filters or reorders sources.
func relevanceLabel(sim float64) string {
	switch {
	case sim >= highRelevance:
		return "match"
	case sim >= mediumRelevance:
		return "match - use with caution"
	default:
		return "background only, do not cite"
	}
}

// FormatContext renders retrieved chunks as a numbered context block. Every
// result is included, numbered [Source 1], [Source 2], ... in retrieval
// order; the numbering is what inline [N] citations refer to.
func FormatContext(results []domain.RetrievedResult) string {
	if len(results) == 0 {
		return "No relevant information was found in the database."
	}

	var parts []string
	for i := range results {
		r := &results[i]
		parts = append(parts, formatSource(i+1, *r, relevanceLabel(r.Similarity()), r.Content))
	}

	parts = append(parts,
		"\n## SOURCE USAGE RULES:",
		"- Prioritize high-relevance sources (>=75%) for direct statements",
		"- Use medium-relevance sources (50-75%) for supporting details; mark medium confidence",
		"- Treat low-relevance sources (<50%) as background only, never for specific facts",
		"- If all sources have relevance < 35%, omit the 'Sources consulted' section and acknowledge lack of info",
		"- Be clear about gaps and avoid speculation")

	return strings.Join(parts, "\n")
}

func formatSource(index int, r domain.RetrievedResult, label, content string) string {
	title := r.Title
	if title == "" {
		title = "Untitled"
	}
	return fmt.Sprintf("[Source %d] (%.1f%% %s)\nTitle: %s\nURL: %s\nContent: %s\n",
		index, r.Similarity()*100, label, title, r.URL, content)
}

func formatHistory(history []domain.ConversationTurn) string {
	if len(history) == 0 {
		return "No prior conversation."
	}
	parts := make([]string, 0, len(history))
	for _, turn := range history {
		parts = append(parts, fmt.Sprintf("User: %s\nAssistant: %s", turn.Question, turn.Answer))
	}
	return strings.Join(parts, "\n\n")
}
