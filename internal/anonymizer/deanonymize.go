package anonymizer

import "regexp"

// reToken recognizes minted tokens by their type prefix. AGES precedes AGE
// in the alternation so the longer prefix wins.
var reToken = regexp.MustCompile(`\b(AMOUNT|INCOME|GOAL|RATE|LOCATION|PERSON|SPOUSE|AGES|AGE|INSTITUTION|CHILDREN)_[A-Za-z0-9_]+`)

var placeholders = map[string]string{
	TypeAmount:      "[Amount]",
	TypeIncome:      "[Income]",
	TypeGoal:        "[Savings Goal]",
	TypeRate:        "[Rate]",
	TypeLocation:    "[Location]",
	TypePerson:      "[Name]",
	TypeSpouse:      "[Spouse]",
	TypeAge:         "[Age]",
	TypeAges:        "[Ages]",
	TypeInstitution: "[Financial Institution]",
	TypeChildren:    "[Children]",
}

// ContainsAnonymizedTokens reports whether text carries minted tokens,
// meaning an anonymized string was stored where an original belonged.
func ContainsAnonymizedTokens(text string) bool {
	return reToken.MatchString(text)
}

// Deanonymize is the lossy reverse path: every token becomes a generic
// bracketed placeholder. It cannot restore original values (the tokenization
// map is never persisted) and exists only to sanitize display when tokens
// leaked into storage.
func Deanonymize(text string) string {
	return reToken.ReplaceAllStringFunc(text, func(m string) string {
		typ := reToken.FindStringSubmatch(m)[1]
		return placeholders[typ]
	})
}
