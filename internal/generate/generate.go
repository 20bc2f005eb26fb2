// Package generate turns a sanitized build request into a single-file web
// application via an LLM provider.
package generate

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/forgebay/go-build-backend/internal/llm"
)

// ErrNoDocument is returned when the model reply contains no complete HTML
// document.
var ErrNoDocument = errors.New("generate: no html document in model output")

const systemPrompt = `You are the ForgeBay app builder. You turn a short build request into a complete, working, single-file web application.

Rules:
- Output exactly one complete HTML document: <!DOCTYPE html> through </html>. No explanations before or after.
- Everything inline: all CSS in a <style> tag, all JavaScript in <script> tags. No external resources, no CDN links, no imports.
- The app must work offline except for its own data. For persistence a ForgeDB storage client is injected into the page automatically; call db.get(key), db.set(key, value), db.delete(key) and db.list(). Do not define the ForgeDB class yourself and do not call fetch directly.
- No eval, no dynamic code execution, no cookies, no redirects, no access to anything outside the page.
- Make it look good: a polished, modern dark theme unless the request asks otherwise.
- Keep it under roughly 800 lines.`

var (
	doctypeRE  = regexp.MustCompile(`(?is)<!DOCTYPE html>.*</html>`)
	htmlOnlyRE = regexp.MustCompile(`(?is)<html[\s>].*</html>`)
)

// Builder produces app documents from build requests.
type Builder struct {
	Client    llm.Client
	Log       zerolog.Logger
	MaxTokens int
	Timeout   time.Duration
}

// NewBuilder wires a Builder around the given provider client.
func NewBuilder(client llm.Client, log zerolog.Logger, maxTokens int, timeout time.Duration) *Builder {
	if maxTokens <= 0 {
		maxTokens = 16000
	}
	if timeout <= 0 {
		timeout = 2 * time.Minute
	}
	return &Builder{Client: client, Log: log, MaxTokens: maxTokens, Timeout: timeout}
}

// Build asks the model for an app implementing request and extracts the HTML
// document from its reply.
func (b *Builder) Build(ctx context.Context, request string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, b.Timeout)
	defer cancel()

	prompt := fmt.Sprintf("Build request: %s", request)

	start := time.Now()
	reply, err := b.Client.Complete(ctx, systemPrompt, prompt, b.MaxTokens)
	if err != nil {
		return "", fmt.Errorf("generate: %w", err)
	}

	doc, err := ExtractDocument(reply)
	if err != nil {
		b.Log.Warn().
			Str("provider", b.Client.Name()).
			Int("reply_len", len(reply)).
			Msg("model reply had no html document")
		return "", err
	}

	b.Log.Info().
		Str("provider", b.Client.Name()).
		Int("size", len(doc)).
		Dur("elapsed", time.Since(start)).
		Msg("app generated")
	return doc, nil
}

// ExtractDocument pulls the HTML document out of a model reply, tolerating
// markdown fences and prose around it. A doctype-led document wins; a bare
// <html> element is accepted as a fallback.
func ExtractDocument(reply string) (string, error) {
	if m := doctypeRE.FindString(reply); m != "" {
		return strings.TrimSpace(m), nil
	}
	if m := htmlOnlyRE.FindString(reply); m != "" {
		return strings.TrimSpace(m), nil
	}
	return "", ErrNoDocument
}
