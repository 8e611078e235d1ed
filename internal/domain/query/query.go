package query

import (
	"errors"
	"strings"
	"unicode"
	"unicode/utf8"
)

// Length bounds in runes, applied to the trimmed query.
const (
	MinLength = 3
	MaxLength = 500
)

// ErrRejected is the sentinel wrapped by every *Rejection.
var ErrRejected = errors.New("query rejected")

// Reason is a stable rejection code.
type Reason string

// Rejection reasons, in the order the rules are applied.
const (
	ReasonEmpty         Reason = "empty query"
	ReasonTooShort      Reason = "too short"
	ReasonNoWordContent Reason = "only numbers or symbols"
	ReasonTooLong       Reason = "too long"
	ReasonOnlyNumbers   Reason = "only numbers"
	ReasonOnlySymbols   Reason = "only symbols"
)

var messages = map[Reason]string{
	ReasonEmpty:         "Please enter a search query.",
	ReasonTooShort:      "Search query must be at least 3 characters long.",
	ReasonNoWordContent: "Please enter meaningful text, not just numbers or symbols.",
	ReasonTooLong:       "Search query is too long. Please keep it under 500 characters.",
	ReasonOnlyNumbers:   "Please enter meaningful text, not just numbers.",
	ReasonOnlySymbols:   "Please enter meaningful text, not just symbols.",
}

// Rejection describes why a query was refused before search.
type Rejection struct {
	Reason  Reason
	Message string // user-facing
}

func (r *Rejection) Error() string { return string(r.Reason) }

// Unwrap makes errors.Is(err, ErrRejected) hold.
func (r *Rejection) Unwrap() error { return ErrRejected }

func reject(reason Reason) *Rejection {
	return &Rejection{Reason: reason, Message: messages[reason]}
}

// Query is a validated, trimmed search query.
type Query struct {
	text string
}

// Text returns the trimmed query text.
func (q Query) Text() string { return q.text }

// Parse validates raw user input and returns the trimmed query.
// The error, when non-nil, is always a *Rejection.
func Parse(raw string) (Query, error) {
	if r := check(raw); r != nil {
		return Query{}, r
	}
	return Query{text: strings.TrimSpace(raw)}, nil
}

// Validate applies the rejection rules without building a Query.
func Validate(raw string) error {
	if r := check(raw); r != nil {
		return r
	}
	return nil
}

// check applies the rules in order; the first match wins.
func check(raw string) *Rejection {
	q := strings.TrimSpace(raw)
	if q == "" {
		return reject(ReasonEmpty)
	}

	n := utf8.RuneCountInString(q)
	if n < MinLength {
		return reject(ReasonTooShort)
	}
	if !hasWordContent(q) {
		return reject(ReasonNoWordContent)
	}
	if n > MaxLength {
		return reject(ReasonTooLong)
	}
	if allRunes(q, unicode.IsDigit) {
		return reject(ReasonOnlyNumbers)
	}
	if allRunes(q, isSymbol) {
		return reject(ReasonOnlySymbols)
	}
	return nil
}

// hasWordContent reports whether q has a rune that is a word character
// but not a decimal digit. Whitespace is never a word character.
func hasWordContent(q string) bool {
	for _, r := range q {
		if isWord(r) && !unicode.IsDigit(r) {
			return true
		}
	}
	return false
}

func isWord(r rune) bool {
	return r == '_' || unicode.IsLetter(r) || unicode.IsNumber(r)
}

const symbols = `!@#$%^&*()_+-=[]{};':"\|,.<>/?`

func isSymbol(r rune) bool {
	return strings.ContainsRune(symbols, r)
}

func allRunes(s string, fn func(rune) bool) bool {
	for _, r := range s {
		if !fn(r) {
			return false
		}
	}
	return true
}
