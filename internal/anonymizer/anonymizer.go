// Package anonymizer replaces sensitive spans in profile text with opaque
// session-scoped tokens before the text leaves the process toward an AI
// model.
//
// Detection runs as an ordered cascade of pattern passes; each pass scans the
// already partially anonymized output of the previous one, so the ordering in
// passes is load-bearing (ages must run before amounts, income and goals
// before generic amounts, and so on).
//
// Tokens are minted per instance: the same fact mentioned twice in one
// profile collapses to one token, while two instances anonymizing identical
// text produce unrelated tokens. That keeps independent AI calls
// uncorrelatable.
package anonymizer

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/avoskan/profilevault/internal/common"
)

// Token type prefixes.
const (
	TypePerson      = "PERSON"
	TypeSpouse      = "SPOUSE"
	TypeAge         = "AGE"
	TypeAges        = "AGES"
	TypeChildren    = "CHILDREN"
	TypeIncome      = "INCOME"
	TypeGoal        = "GOAL"
	TypeAmount      = "AMOUNT"
	TypeRate        = "RATE"
	TypeLocation    = "LOCATION"
	TypeInstitution = "INSTITUTION"
)

// Anonymizer is cheap to construct and scoped to a single session: its
// tokenization map lives only as long as the instance and is never persisted.
// Instances must not be shared across concurrent requests.
type Anonymizer struct {
	sessionID string

	// tokens maps canonical keys (e.g. "PERSON_John") to minted tokens.
	tokens map[string]string

	// consumed records canonical dollar figures already tokenized by the
	// income/goal passes, keyed by canonical amount, so the generic-amount
	// pass can reuse the existing token instead of minting an AMOUNT one.
	consumed map[string]string
}

// Result carries the anonymized text together with a copy of the
// tokenization map built while producing it.
type Result struct {
	Text   string
	Tokens map[string]string
}

// New creates an Anonymizer with a fresh random session id.
func New() *Anonymizer {
	return NewWithSession(strings.ReplaceAll(uuid.NewString(), "-", "")[:12])
}

// NewWithSession creates an Anonymizer bound to an explicit session id.
// Intended for tests; production callers should use New.
func NewWithSession(sessionID string) *Anonymizer {
	return &Anonymizer{
		sessionID: sessionID,
		tokens:    map[string]string{},
		consumed:  map[string]string{},
	}
}

// Anonymize runs the pass cascade over text. Empty input is a no-op, not an
// error. Running the same input twice through one instance yields
// byte-identical output because minted tokens are cached by canonical key.
func (a *Anonymizer) Anonymize(text string) *Result {
	if text == "" {
		return &Result{Text: "", Tokens: map[string]string{}}
	}

	for _, p := range passes {
		text = p.apply(a, text)
	}

	tokens := make(map[string]string, len(a.tokens))
	for k, v := range a.tokens {
		tokens[k] = v
	}

	return &Result{Text: text, Tokens: tokens}
}

// getOrCreateToken returns the token already minted for canonicalKey, or
// mints TYPE_sessionId_timestamp_random and remembers it.
func (a *Anonymizer) getOrCreateToken(canonicalKey, tokenType string) string {
	if tok, ok := a.tokens[canonicalKey]; ok {
		return tok
	}

	random, err := common.MakeRandHexString(2)
	if err != nil {
		random = fmt.Sprintf("%04x", len(a.tokens))
	}

	tok := fmt.Sprintf("%s_%s_%d_%s", tokenType, a.sessionID, time.Now().Unix(), random)
	a.tokens[canonicalKey] = tok
	return tok
}
