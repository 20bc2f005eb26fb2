// Package llm provides minimal completion clients for the model providers
// the platform can generate with. Each provider implements the same small
// Client interface; the registry maps an adapter name to a constructor so
// the active model is a configuration choice, not a code change.
package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strings"
	"time"
)

// Client is a single-shot completion client.
type Client interface {
	// Name identifies the adapter ("claude", "grok", "gpt").
	Name() string
	// Complete sends one system+user prompt pair and returns the text of
	// the first completion choice.
	Complete(ctx context.Context, system, prompt string, maxTokens int) (string, error)
}

// Config carries the provider settings shared by all adapters.
type Config struct {
	APIKey  string
	Timeout time.Duration // fallback bound when ctx carries no deadline
}

// ErrNoAPIKey is returned by constructors when the provider key is missing.
var ErrNoAPIKey = errors.New("llm: missing API key")

// constructors for the known adapters.
var registry = map[string]func(Config) (Client, error){
	"claude": newAnthropic,
	"grok":   newGrok,
	"gpt":    newGPT,
}

// New returns the client registered under name (case-insensitive).
func New(name string, cfg Config) (Client, error) {
	ctor, ok := registry[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return nil, fmt.Errorf("llm: unknown adapter %q (valid: %s)", name, strings.Join(Names(), ", "))
	}
	return ctor(cfg)
}

// Names lists the registered adapter names, sorted.
func Names() []string {
	out := make([]string, 0, len(registry))
	for k := range registry {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

func newHTTPClient(timeout time.Duration) *http.Client {
	if timeout <= 0 {
		timeout = 2 * time.Minute
	}
	return &http.Client{Timeout: timeout}
}
