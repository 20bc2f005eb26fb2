// Package deploy publishes validated app documents to their hosting target.
package deploy

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog"
)

// Publisher pushes a finished document and returns its public URL.
type Publisher interface {
	Publish(ctx context.Context, appID, html string) (string, error)
}

// PagesPublisher commits each app as apps/<appID>/index.html to a GitHub
// repository served through GitHub Pages.
type PagesPublisher struct {
	Token   string
	Repo    string // owner/name
	BaseURL string // public pages base, no trailing slash
	APIBase string // override for tests; defaults to api.github.com
	HTTP    *http.Client
	Log     zerolog.Logger
}

// NewPagesPublisher builds a publisher for the given repository.
func NewPagesPublisher(token, repo, pagesBaseURL string, log zerolog.Logger) *PagesPublisher {
	return &PagesPublisher{
		Token:   token,
		Repo:    repo,
		BaseURL: pagesBaseURL,
		APIBase: "https://api.github.com",
		HTTP:    &http.Client{Timeout: 30 * time.Second},
		Log:     log,
	}
}

type contentsRequest struct {
	Message string `json:"message"`
	Content string `json:"content"`
	Branch  string `json:"branch"`
}

// Publish commits the document to main and returns the pages URL it will be
// served from. Pages deployment itself is asynchronous on GitHub's side.
func (p *PagesPublisher) Publish(ctx context.Context, appID, html string) (string, error) {
	endpoint := fmt.Sprintf("%s/repos/%s/contents/apps/%s/index.html", p.APIBase, p.Repo, appID)

	body, err := json.Marshal(contentsRequest{
		Message: "deploy " + appID,
		Content: base64.StdEncoding.EncodeToString([]byte(html)),
		Branch:  "main",
	})
	if err != nil {
		return "", fmt.Errorf("deploy: encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPut, endpoint, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("deploy: build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+p.Token)
	req.Header.Set("Accept", "application/vnd.github+json")
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.HTTP.Do(req)
	if err != nil {
		return "", fmt.Errorf("deploy: push to github: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated && resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4<<10))
		return "", fmt.Errorf("deploy: github returned %d: %s", resp.StatusCode, msg)
	}

	url := fmt.Sprintf("%s/apps/%s/", p.BaseURL, appID)
	p.Log.Info().Str("app_id", appID).Str("url", url).Int("size", len(html)).Msg("app deployed")
	return url, nil
}
