package anonymizer

import (
	"regexp"
	"strings"

	"github.com/shopspring/decimal"
)

// pass is one step of the cascade. The order of passes is part of the
// contract: each pass sees the partially anonymized output of the previous
// one and must not re-match spans a prior pass already tokenized.
type pass struct {
	name  string
	apply func(a *Anonymizer, text string) string
}

var passes = []pass{
	{"names", (*Anonymizer).passNames},
	{"ages", (*Anonymizer).passAges},
	{"family", (*Anonymizer).passFamily},
	{"income", (*Anonymizer).passIncome},
	{"goals", (*Anonymizer).passGoals},
	{"amounts", (*Anonymizer).passAmounts},
	{"locations", (*Anonymizer).passLocations},
	{"institutions", (*Anonymizer).passInstitutions},
}

const (
	namePat   = `[A-Z][a-z]+(?:\s+[A-Z][a-z]+)*`
	dollarPat = `\$\d[\d,]*(?:\.\d+)?`
)

var (
	reSelfName   = regexp.MustCompile(`\b((?i:i am|i['’]m|my name is)\s+)(` + namePat + `)`)
	reSpouseName = regexp.MustCompile(`\b((?i:my)\s+(?i:husband|wife|spouse)\s+)(` + namePat + `)`)
	// catch-all: a capitalized name directly before "earning" (second-party
	// income context), with an optional comma.
	reNameEarning = regexp.MustCompile(`\b(` + namePat + `)(\s*,?\s+(?i:earning)\b)`)

	reYearOld  = regexp.MustCompile(`\b(\d{1,2})([-\s]year[-\s]old)\b`)
	reParenAge = regexp.MustCompile(`\((\d{1,2})(\s*,\s*[a-z]+(?:\s+[a-z]+)*)?\)`)
	reAgeList  = regexp.MustCompile(`\b((?i:ages?)\s+)(\d{1,2}(?:\s*(?:,|(?i:and))\s*\d{1,2})+)`)
	reDigits   = regexp.MustCompile(`\d{1,2}`)

	reChildren = regexp.MustCompile(`\b((?i:(?:our|two|three|four|\d+)\s+)?(?i:children|kids))\s*\(([^)]*)\)`)

	// Income phrasings, most specific first. Each tokenizes only the dollar
	// figure and records it as consumed.
	incomeRules = []*regexp.Regexp{
		regexp.MustCompile(`((?i:income is)\s+)(` + dollarPat + `)((?:\s+(?i:annually))?)`),
		regexp.MustCompile(`\b((?:` + TypePerson + `|` + TypeSpouse + `)_\w+\s*,?\s+(?i:earning)\s+)(` + dollarPat + `)()`),
		regexp.MustCompile(`\b((?i:me earning)\s+)(` + dollarPat + `)()`),
		regexp.MustCompile(`\b((?i:earning)\s+)(` + dollarPat + `)((?:\s+(?i:as a)\b)?)`),
	}

	reGoal   = regexp.MustCompile(`(` + dollarPat + `)(\s+(?i:target|emergency fund|down payment))`)
	reDollar = regexp.MustCompile(dollarPat)
	reRate   = regexp.MustCompile(`(\d+(?:\.\d+)?)\s*%(\s+(?i:interest rate|rate))`)

	reLocation = regexp.MustCompile(`\b((?i:living in|live in|in)\s+)(` + namePat + `)\s*,\s*([A-Z]{2})\b`)

	// Closed list of well-known institutions, multi-word names first so the
	// leftmost-first alternation prefers them.
	reInstitution = regexp.MustCompile(`\b(?i:bank of america|wells fargo|charles schwab|goldman sachs|morgan stanley|merrill lynch|td ameritrade|american express|capital one|us bank|citibank|citi|chase|fidelity|vanguard|schwab|etrade|robinhood|ally|pnc|truist|betterment|wealthfront)\b`)
)

// replaceSubmatches rebuilds every match of re in text using repl, which
// receives the whole match at index 0 and submatches after it. Needed because
// RE2 has no lookaround and replacements keep parts of the match.
func replaceSubmatches(re *regexp.Regexp, text string, repl func(groups []string) string) string {
	matches := re.FindAllStringSubmatchIndex(text, -1)
	if matches == nil {
		return text
	}

	var b strings.Builder
	last := 0
	for _, m := range matches {
		b.WriteString(text[last:m[0]])
		groups := make([]string, len(m)/2)
		for i := range groups {
			if m[2*i] >= 0 {
				groups[i] = text[m[2*i] : m[2*i+1]]
			}
		}
		b.WriteString(repl(groups))
		last = m[1]
	}
	b.WriteString(text[last:])
	return b.String()
}

// canonicalAmount normalizes a dollar figure so "$80,000" and "$80000"
// compare equal.
func canonicalAmount(s string) string {
	s = strings.NewReplacer("$", "", ",", "", " ", "").Replace(s)
	d, err := decimal.NewFromString(s)
	if err != nil {
		return s
	}
	return d.String()
}

func (a *Anonymizer) passNames(text string) string {
	text = replaceSubmatches(reSelfName, text, func(g []string) string {
		return g[1] + a.getOrCreateToken(TypePerson+"_"+g[2], TypePerson)
	})
	text = replaceSubmatches(reSpouseName, text, func(g []string) string {
		return g[1] + a.getOrCreateToken(TypeSpouse+"_"+g[2], TypeSpouse)
	})
	text = replaceSubmatches(reNameEarning, text, func(g []string) string {
		return a.getOrCreateToken(TypePerson+"_"+g[1], TypePerson) + g[2]
	})
	return text
}

func (a *Anonymizer) passAges(text string) string {
	text = replaceSubmatches(reYearOld, text, func(g []string) string {
		return a.getOrCreateToken(TypeAge+"_"+g[1], TypeAge) + g[2]
	})
	text = replaceSubmatches(reParenAge, text, func(g []string) string {
		return "(" + a.getOrCreateToken(TypeAge+"_"+g[1], TypeAge) + g[2] + ")"
	})
	text = replaceSubmatches(reAgeList, text, func(g []string) string {
		key := TypeAges + "_" + strings.Join(reDigits.FindAllString(g[2], -1), "_")
		return g[1] + a.getOrCreateToken(key, TypeAges)
	})
	return text
}

// passFamily wraps "children (...)" parentheticals in one combined token.
// Ages inside were already tokenized by the previous pass, so the combined
// token covers them instead of re-tokenizing.
func (a *Anonymizer) passFamily(text string) string {
	return replaceSubmatches(reChildren, text, func(g []string) string {
		return g[1] + " (" + a.getOrCreateToken(TypeChildren+"_"+g[2], TypeChildren) + ")"
	})
}

func (a *Anonymizer) passIncome(text string) string {
	for _, re := range incomeRules {
		text = replaceSubmatches(re, text, func(g []string) string {
			canon := canonicalAmount(g[2])
			tok := a.getOrCreateToken(TypeIncome+"_"+canon, TypeIncome)
			a.consumed[canon] = tok
			return g[1] + tok + g[3]
		})
	}
	return text
}

func (a *Anonymizer) passGoals(text string) string {
	return replaceSubmatches(reGoal, text, func(g []string) string {
		canon := canonicalAmount(g[1])
		tok := a.getOrCreateToken(TypeGoal+"_"+canon, TypeGoal)
		a.consumed[canon] = tok
		return tok + g[2]
	})
}

// passAmounts tokenizes every remaining dollar figure. A figure whose value
// was already consumed by the income/goal passes reuses that token, so
// repeated mentions of the same amount collapse instead of leaking.
func (a *Anonymizer) passAmounts(text string) string {
	text = reDollar.ReplaceAllStringFunc(text, func(m string) string {
		canon := canonicalAmount(m)
		if tok, ok := a.consumed[canon]; ok {
			return tok
		}
		return a.getOrCreateToken(TypeAmount+"_"+canon, TypeAmount)
	})
	text = replaceSubmatches(reRate, text, func(g []string) string {
		return a.getOrCreateToken(TypeRate+"_"+g[1], TypeRate) + g[2]
	})
	return text
}

func (a *Anonymizer) passLocations(text string) string {
	return replaceSubmatches(reLocation, text, func(g []string) string {
		key := TypeLocation + "_" + g[2] + "_" + g[3]
		return g[1] + a.getOrCreateToken(key, TypeLocation)
	})
}

func (a *Anonymizer) passInstitutions(text string) string {
	return reInstitution.ReplaceAllStringFunc(text, func(m string) string {
		return a.getOrCreateToken(TypeInstitution+"_"+strings.ToLower(m), TypeInstitution)
	})
}
