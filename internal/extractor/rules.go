package extractor

import (
	"context"
	"regexp"
	"strings"

	"github.com/avoskan/profilevault/internal/models"
)

// Rules is a conservative, deterministic extractor used in development
// wiring and tests. It only picks up a few high-confidence phrasings and
// appends them as natural-language facts, never restating the raw
// question/answer. The production extractor replaces it.
type Rules struct{}

var factPatterns = []struct {
	re     *regexp.Regexp
	render func(groups []string) string
}{
	{
		re:     regexp.MustCompile(`\b(?i:i earn|i make|earning)\s+(\$\d[\d,]*(?:\.\d+)?)`),
		render: func(g []string) string { return "Earns " + g[1] + " annually." },
	},
	{
		re:     regexp.MustCompile(`\b(\d{1,2})-year-old\b`),
		render: func(g []string) string { return "Is " + g[1] + " years old." },
	},
	{
		re:     regexp.MustCompile(`\b(?i:i live in|living in)\s+([A-Z][a-z]+(?:\s+[A-Z][a-z]+)*,\s*[A-Z]{2})\b`),
		render: func(g []string) string { return "Lives in " + g[1] + "." },
	},
	{
		re:     regexp.MustCompile(`\b(?i:saving (?:up )?for a?n?)\s+([a-z][a-z ]+)`),
		render: func(g []string) string { return "Saving for " + strings.TrimSpace(g[1]) + "." },
	},
}

func (Rules) ExtractAndUpdateProfile(ctx context.Context, userID string, conversation *models.Conversation, existingProfileText string) (string, error) {
	if conversation == nil {
		return existingProfileText, nil
	}

	source := conversation.Question + "\n" + conversation.Answer

	var facts []string
	for _, p := range factPatterns {
		m := p.re.FindStringSubmatch(source)
		if m == nil {
			continue
		}
		fact := p.render(m)
		// skip facts the profile already records
		if strings.Contains(existingProfileText, fact) {
			continue
		}
		facts = append(facts, fact)
	}

	if len(facts) == 0 {
		return existingProfileText, nil
	}

	updated := existingProfileText
	if updated != "" {
		updated += "\n"
	}
	return updated + strings.Join(facts, " "), nil
}
