// Package sanitize implements the lexical screening layer for inbound build
// requests. It is the fail-closed half of request safety: three ordered
// checks run against the raw text, short-circuiting on the first failure,
// and only then is the surviving text normalized for downstream use.
//
// Layer order is cheapest-first: injection patterns, then content-policy
// patterns, then normalization with a minimum-length floor. The package is
// pure; it never reads configuration from the environment and never touches
// the store.
package sanitize

import (
	"fmt"
	"strings"
)

// Rejection categories.
const (
	CategoryInvalid   = "invalid"
	CategoryInjection = "injection"
	CategoryNSFW      = "nsfw"
	CategoryViolence  = "violence"
	CategoryIllegal   = "illegal"
	CategoryHacking   = "hacking"
	CategoryPhishing  = "phishing"
	CategoryFraud     = "fraud"
	CategoryMalware   = "malware"
	CategoryDataTheft = "data_theft"
)

// Result is the outcome of screening one request.
type Result struct {
	Safe     bool
	Cleaned  string // normalized text, set only when Safe
	Reason   string // human-readable cause, set only when !Safe
	Category string // rejection category, set only when !Safe
}

// Sanitizer screens raw build requests. The zero value is not usable;
// construct with New.
type Sanitizer struct {
	maxLen int
}

// DefaultMaxLen is the request length ceiling applied when New is given a
// non-positive limit.
const DefaultMaxLen = 500

// New returns a Sanitizer enforcing the given raw-length ceiling.
func New(maxLen int) *Sanitizer {
	if maxLen <= 0 {
		maxLen = DefaultMaxLen
	}
	return &Sanitizer{maxLen: maxLen}
}

// Check screens text and returns either the cleaned request or the first
// rejection encountered.
func (s *Sanitizer) Check(text string) Result {
	if strings.TrimSpace(text) == "" {
		return Result{Reason: "empty input", Category: CategoryInvalid}
	}
	if len(text) > s.maxLen {
		return Result{
			Reason:   fmt.Sprintf("input too long (%d > %d)", len(text), s.maxLen),
			Category: CategoryInvalid,
		}
	}

	// Layer 1: prompt-injection patterns.
	for _, re := range injectionPatterns {
		if re.MatchString(text) {
			return Result{
				Reason:   "prompt injection detected: " + re.String(),
				Category: CategoryInjection,
			}
		}
	}

	// Layer 2: content-policy patterns.
	for _, p := range contentPatterns {
		if p.re.MatchString(text) {
			return Result{
				Reason:   "blocked content: " + p.category,
				Category: p.category,
			}
		}
	}

	// Layer 3: pipeline secret/environment probes.
	for _, re := range pipelinePatterns {
		if re.MatchString(text) {
			return Result{
				Reason:   "pipeline injection pattern: " + re.String(),
				Category: CategoryInjection,
			}
		}
	}

	// Normalization: strip markup, drop characters outside the allowed
	// alphabet, trim.
	cleaned := htmlTagRE.ReplaceAllString(text, "")
	cleaned = disallowedRE.ReplaceAllString(cleaned, "")
	cleaned = strings.TrimSpace(cleaned)

	if len(cleaned) < 5 {
		return Result{Reason: "cleaned input too short", Category: CategoryInvalid}
	}

	return Result{Safe: true, Cleaned: cleaned}
}
