package tokenize

import (
	"fmt"

	"github.com/cognicore/plantag/pkg/plantag/internalerr"
	"github.com/cognicore/plantag/pkg/plantag/token"
)

// Result is the outcome of tokenizing one raw tag. It is always fully
// initialised, even when the tag was rejected.
type Result struct {
	RawInput        string         `json:"rawInput"`
	NormalizedInput string         `json:"normalizedInput"`
	Segments        []string       `json:"segments"`
	Tokens          *token.Set     `json:"tokens"`
	ExcludedTokens  *token.Set     `json:"excludedTokens"`
	TokenScores     map[string]int `json:"tokenScores"`
	TotalScore      int            `json:"totalScore"`
	Score0to100     int            `json:"score"`

	// HasSectionToken is set when a section-level exception marker was seen,
	// whether or not it was applied.
	HasSectionToken bool `json:"hasSectionToken"`

	Messages []string `json:"messages"`
	Warnings []string `json:"warnings"`
	Errors   []string `json:"errors"`

	IsValid              bool `json:"isValid"`
	IsConsistencyChecked bool `json:"isConsistencyChecked"`

	findings []error
}

func newResult(raw string) *Result {
	return &Result{
		RawInput:       raw,
		Segments:       []string{},
		Tokens:         token.NewSet(),
		ExcludedTokens: token.NewSet(),
		TokenScores:    make(map[string]int),
		Messages:       []string{},
		Warnings:       []string{},
		Errors:         []string{},
	}
}

// Lookup finds key among the valid tokens, then the excluded ones.
func (r *Result) Lookup(key string) (token.Token, bool) {
	if t, ok := r.Tokens.Get(key); ok {
		return t, true
	}
	return r.ExcludedTokens.Get(key)
}

// HasErrors reports whether a hard error was recorded.
func (r *Result) HasErrors() bool { return len(r.Errors) > 0 }

// HasWarnings reports whether a warning was recorded.
func (r *Result) HasWarnings() bool { return len(r.Warnings) > 0 }

func (r *Result) addScore(key string, delta int) {
	if delta == 0 {
		return
	}
	r.TokenScores[key] += delta
	r.TotalScore += delta
}

func (r *Result) message(format string, args ...any) {
	r.Messages = append(r.Messages, fmt.Sprintf(format, args...))
}

func (r *Result) warn(format string, args ...any) {
	r.Warnings = append(r.Warnings, fmt.Sprintf(format, args...))
}

// Findings returns the structural findings behind the warnings. Each wraps
// internalerr.ErrStructural.
func (r *Result) Findings() []error { return r.findings }

// structural records a recoverable structural finding as a warning.
func (r *Result) structural(format string, args ...any) {
	err := fmt.Errorf("%w: "+format, append([]any{internalerr.ErrStructural}, args...)...)
	r.findings = append(r.findings, err)
	r.Warnings = append(r.Warnings, err.Error())
}

func (r *Result) fail(msg string) {
	r.Errors = append(r.Errors, msg)
}
