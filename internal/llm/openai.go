package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
)

// openAIClient talks to any OpenAI-compatible chat-completions endpoint.
// Both the GPT and Grok adapters are this type with different endpoints.
type openAIClient struct {
	name   string
	apiKey string
	url    string
	model  string
	http   *http.Client
}

func newGPT(cfg Config) (Client, error) {
	if cfg.APIKey == "" {
		return nil, ErrNoAPIKey
	}
	return &openAIClient{
		name:   "gpt",
		apiKey: cfg.APIKey,
		url:    "https://api.openai.com/v1/chat/completions",
		model:  "gpt-4o",
		http:   newHTTPClient(cfg.Timeout),
	}, nil
}

func newGrok(cfg Config) (Client, error) {
	if cfg.APIKey == "" {
		return nil, ErrNoAPIKey
	}
	return &openAIClient{
		name:   "grok",
		apiKey: cfg.APIKey,
		url:    "https://api.x.ai/v1/chat/completions",
		model:  "grok-3",
		http:   newHTTPClient(cfg.Timeout),
	}, nil
}

func (c *openAIClient) Name() string { return c.name }

type chatRequest struct {
	Model     string        `json:"model"`
	MaxTokens int           `json:"max_tokens"`
	Messages  []chatMessage `json:"messages"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error"`
}

func (c *openAIClient) Complete(ctx context.Context, system, prompt string, maxTokens int) (string, error) {
	if maxTokens <= 0 {
		maxTokens = 16000
	}
	body, err := json.Marshal(chatRequest{
		Model:     c.model,
		MaxTokens: maxTokens,
		Messages: []chatMessage{
			{Role: "system", Content: system},
			{Role: "user", Content: prompt},
		},
	})
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	res, err := c.http.Do(req)
	if err != nil {
		return "", err
	}
	defer res.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(res.Body, 10<<20))
	if err != nil {
		return "", err
	}

	var out chatResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		return "", fmt.Errorf("%s: decode response: %w", c.name, err)
	}
	if res.StatusCode != http.StatusOK {
		msg := res.Status
		if out.Error != nil {
			msg = out.Error.Message
		}
		return "", fmt.Errorf("%s: %s", c.name, msg)
	}
	if len(out.Choices) == 0 || out.Choices[0].Message.Content == "" {
		return "", fmt.Errorf("%s: empty completion", c.name)
	}
	return out.Choices[0].Message.Content, nil
}
