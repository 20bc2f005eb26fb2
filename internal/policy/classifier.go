// Package policy implements the model-assisted content-policy layer that
// runs after lexical screening. It asks a small classification model to
// judge the request against the platform terms and parses a strict
// two-shape reply.
//
// This layer fails open on purpose: a provider outage, timeout, or garbled
// reply degrades to "allow" with a warning log, because the sanitizer has
// already fail-closed on the cheap lexical checks. Blocking every build on
// classifier availability would turn a best-effort refinement into a hard
// dependency.
package policy

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/forgebay/go-build-backend/internal/llm"
)

const classifierPrompt = `You are a content safety classifier for ForgeBay, a service that auto-builds web apps from user descriptions.

TERMS OF SERVICE - Users may NOT request apps that:
1. Facilitate illegal activity (drug dealing, weapons trafficking, fraud, hacking tools)
2. Contain NSFW/pornographic content
3. Are designed to harm, harass, stalk, or doxx individuals
4. Attempt to phish, scam, or steal credentials/data
5. Generate malware, ransomware, keyloggers, or crypto miners
6. Scrape, exfiltrate, or harvest user data without consent
7. Impersonate real people, brands, or government entities
8. Facilitate gambling with real money (without proper licensing)
9. Build surveillance or tracking tools targeting individuals
10. Generate content that promotes violence, terrorism, or self-harm

ALLOWED:
- Games (including gambling-themed games with no real money)
- Productivity tools, dashboards, calculators
- Creative tools, art generators, music players
- Social apps, chat interfaces, forums
- Developer tools, code formatters, API testers
- Educational content, quizzes, learning apps
- Fun/silly/meme apps

Classify this build request. Respond with EXACTLY one line:
SAFE - if the request is allowed
VIOLATION:<category> - <brief reason> if it violates TOS

Build request: "%s"`

// Verdict is the classifier's judgment of one request.
type Verdict struct {
	Safe     bool
	Reason   string // set only on violations
	Category string // "tos_<category>" label, set only on violations
}

// Classifier screens requests through a completion model.
type Classifier struct {
	Client  llm.Client // nil disables the layer (always safe)
	Log     zerolog.Logger
	Timeout time.Duration
}

// New constructs a Classifier. A nil client is allowed and turns Check into
// an immediate allow.
func New(client llm.Client, log zerolog.Logger) *Classifier {
	return &Classifier{Client: client, Log: log, Timeout: 15 * time.Second}
}

// Check classifies text that already passed lexical screening.
func (c *Classifier) Check(ctx context.Context, text string) Verdict {
	if c.Client == nil {
		c.Log.Warn().Msg("no classifier client configured, skipping policy layer")
		return Verdict{Safe: true}
	}

	if c.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.Timeout)
		defer cancel()
	}

	reply, err := c.Client.Complete(ctx, "", fmt.Sprintf(classifierPrompt, text), 50)
	if err != nil {
		c.Log.Warn().Err(err).Msg("policy check failed, allowing request")
		return Verdict{Safe: true}
	}

	reply = strings.TrimSpace(reply)
	switch {
	case strings.HasPrefix(reply, "SAFE"):
		return Verdict{Safe: true}
	case strings.HasPrefix(reply, "VIOLATION:"):
		return parseViolation(reply)
	default:
		c.Log.Warn().Str("reply", reply).Msg("ambiguous policy response, allowing request")
		return Verdict{Safe: true}
	}
}

func parseViolation(reply string) Verdict {
	rest := strings.TrimSpace(strings.TrimPrefix(reply, "VIOLATION:"))
	category := "tos"
	reason := rest
	if idx := strings.Index(rest, " - "); idx > 0 {
		category = strings.ToLower(strings.TrimSpace(rest[:idx]))
		reason = strings.TrimSpace(rest[idx+3:])
	}
	return Verdict{
		Safe:     false,
		Reason:   "policy violation: " + reason,
		Category: "tos_" + category,
	}
}
