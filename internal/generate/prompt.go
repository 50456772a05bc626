package generate

import (
	"fmt"
	"strings"

	"github.com/hyperjump/fuda/internal/models"
)

// SystemPrompt is sent as the system message of every model call.
const SystemPrompt = "You are an expert educator creating high-quality flashcards tailored to different learning speeds. " +
	"Your flashcards should be clear, focused, and based on specific content provided. " +
	"Each flashcard must have a substantive question that tests understanding and a comprehensive answer that provides valuable information."

var tierStyle = map[models.Tier]string{
	models.TierSlow:     "use simpler language, include clear examples, and add a helpful hint",
	models.TierModerate: "balance theory and application, include practical examples",
	models.TierFast:     "use advanced terminology, explore relationships between concepts, and focus on analysis",
}

var tierClosing = map[models.Tier]string{
	models.TierSlow:     "Include a helpful hint at the end of each answer",
	models.TierModerate: "Include a practical example at the end of each answer",
	models.TierFast:     "Include advanced implications or relationships at the end of each answer",
}

// BuildPrompt returns the user prompt asking for count cards about title.
func BuildPrompt(title, text string, tier models.Tier, count int) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Generate %d high-quality flashcards for the topic %q based on the following content:\n\n", count, title)
	b.WriteString(text)
	b.WriteString("\n\nIMPORTANT INSTRUCTIONS:\n")
	b.WriteString("1. Create substantive, educational flashcards with clear connections to the content\n")
	b.WriteString("2. Each flashcard should focus on a specific concept, definition, or application\n")
	b.WriteString("3. Structure questions to test understanding rather than just recall\n")
	b.WriteString("4. Answers should be informative, detailed, and directly address the question\n")
	fmt.Fprintf(&b, "5. For %s learners: %s\n", tier, tierStyle[tier])
	fmt.Fprintf(&b, "6. %s\n\n", tierClosing[tier])
	b.WriteString("AVOID generic questions, unclear answers, repetition across cards and vague phrasing.\n\n")
	b.WriteString("Format each flashcard as:\nQUESTION: [The question]\nANSWER: [Detailed answer with examples or hints as appropriate]\n\n")
	b.WriteString("Make sure each question is distinct and focuses on different aspects of the topic.")
	return b.String()
}
