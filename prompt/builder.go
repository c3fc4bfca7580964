package prompt

import (
	"fmt"
	"strings"

	"github.com/cortexa-labs/ragserve/persona"
	"github.com/cortexa-labs/ragserve/rag"
)

// Fixed fallback lines the model is instructed to use verbatim.
const (
	NoInformationLine = "I'm sorry, I don't have that information."
	OffTopicLine      = "I'm sorry, I can only help with questions about our organization."
)

// Builder synthesizes the instruction prompt.
type Builder struct{}

// NewBuilder creates a prompt builder.
func NewBuilder() *Builder {
	return &Builder{}
}

// Build produces the full instruction block: role and forbidden terms,
// grounding rule, formatting rules, fallback lines, style directives,
// tenant instructions, source-tagged context, and the literal question.
func (b *Builder) Build(identity *persona.Identity, matches []rag.Match, question string) string {
	var sb strings.Builder

	// 1. Role statement.
	fmt.Fprintf(&sb, "You are the assistant for %s. Answer on their behalf.\n", identity.DisplayName)
	if len(identity.ForbiddenTerms) > 0 {
		fmt.Fprintf(&sb, "Never use the following terms: %s.\n", strings.Join(identity.ForbiddenTerms, ", "))
	}

	// 2. Grounding rule.
	sb.WriteString("Answer ONLY from the context below. Do not use outside knowledge, even if you know the answer.\n")

	// 3. Formatting rules.
	sb.WriteString("Write natural prose. Remove backslash escapes and literal \\n sequences from any text you quote.\n")

	// 4. Fixed fallback lines.
	fmt.Fprintf(&sb, "If the context does not contain the answer, reply exactly: %q\n", NoInformationLine)
	fmt.Fprintf(&sb, "If the question is unrelated to %s, reply exactly: %q\n", identity.DisplayName, OffTopicLine)

	// 5. Style directives.
	sb.WriteString("Style: ")
	sb.WriteString(strings.Join([]string{
		sliderDirective("warmth", identity.Friendliness, "cool and neutral", "warm and friendly"),
		sliderDirective("formality", identity.Formality, "casual", "formal"),
		sliderDirective("length", identity.Verbosity, "brief", "thorough"),
		sliderDirective("humor", identity.Humor, "serious", "lightly humorous"),
		sliderDirective("technicality", identity.TechnicalLevel, "plain-language", "technical"),
	}, "; "))
	sb.WriteString(".\n")
	if identity.PreferredGreeting != "" {
		fmt.Fprintf(&sb, "Open your answer with: %q\n", identity.PreferredGreeting)
	}
	if identity.SignatureClosing != "" {
		fmt.Fprintf(&sb, "Close your answer with: %q\n", identity.SignatureClosing)
	}

	// 6. Tenant-supplied instructions.
	if identity.Instructions != "" {
		fmt.Fprintf(&sb, "Additional instructions: %s\n", identity.Instructions)
	}

	// 7. Context passages with provenance.
	sb.WriteString("\nContext:\n")
	for _, m := range matches {
		fmt.Fprintf(&sb, "[%s] %s\n", m.Source, m.Passage)
	}

	// 8. The question, verbatim.
	fmt.Fprintf(&sb, "\nQuestion: %s\n", question)

	return sb.String()
}

// sliderDirective maps a 0-100 dial onto a low/mid/high phrasing.
func sliderDirective(name string, value int, low, high string) string {
	switch {
	case value < 34:
		return fmt.Sprintf("%s %s", low, name)
	case value > 66:
		return fmt.Sprintf("%s %s", high, name)
	default:
		return fmt.Sprintf("moderate %s", name)
	}
}
