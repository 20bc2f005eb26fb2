package channel

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/rs/zerolog"

	"github.com/forgebay/go-build-backend/internal/domain"
)

// Social watches the X recent-search API for posts mentioning the trigger
// keyword and posts queued replies back as threaded responses.
type Social struct {
	BearerToken string
	Keyword     string // e.g. "@forgebay build"
	Owner       string // posts by the owner handle are never build requests
	APIBase     string // override for tests; defaults to api.x.com
	HTTP        *http.Client
	Log         zerolog.Logger
}

// NewSocial builds the social channel.
func NewSocial(bearerToken, keyword, owner string, log zerolog.Logger) *Social {
	return &Social{
		BearerToken: bearerToken,
		Keyword:     keyword,
		Owner:       owner,
		APIBase:     "https://api.x.com",
		HTTP:        &http.Client{Timeout: 15 * time.Second},
		Log:         log,
	}
}

func (s *Social) Name() string { return domain.SourceSocial }

type searchResponse struct {
	Data []struct {
		ID        string    `json:"id"`
		Text      string    `json:"text"`
		AuthorID  string    `json:"author_id"`
		CreatedAt time.Time `json:"created_at"`
	} `json:"data"`
	Includes struct {
		Users []struct {
			ID       string `json:"id"`
			Username string `json:"username"`
		} `json:"users"`
	} `json:"includes"`
	Meta struct {
		NewestID string `json:"newest_id"`
	} `json:"meta"`
}

// FetchEvents pulls posts newer than sinceID that carry a parseable build
// request. Non-trigger mentions and the owner's own posts are skipped
// without error; they still advance the cursor.
func (s *Social) FetchEvents(ctx context.Context, sinceID string) ([]domain.BuildEvent, string, error) {
	q := url.Values{}
	q.Set("query", fmt.Sprintf("%q -is:retweet", s.Keyword))
	q.Set("max_results", "50")
	q.Set("tweet.fields", "author_id,created_at")
	q.Set("expansions", "author_id")
	q.Set("user.fields", "username")
	if sinceID != "" {
		q.Set("since_id", sinceID)
	}

	endpoint := s.APIBase + "/2/tweets/search/recent?" + q.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, "", fmt.Errorf("social: build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+s.BearerToken)

	resp, err := s.HTTP.Do(req)
	if err != nil {
		return nil, "", fmt.Errorf("social: search: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4<<10))
		return nil, "", fmt.Errorf("social: search returned %d: %s", resp.StatusCode, msg)
	}

	var sr searchResponse
	if err := json.NewDecoder(resp.Body).Decode(&sr); err != nil {
		return nil, "", fmt.Errorf("social: decode search response: %w", err)
	}

	usernames := make(map[string]string, len(sr.Includes.Users))
	for _, u := range sr.Includes.Users {
		usernames[u.ID] = u.Username
	}

	// The API returns newest first; process oldest first.
	var events []domain.BuildEvent
	for i := len(sr.Data) - 1; i >= 0; i-- {
		post := sr.Data[i]
		username := usernames[post.AuthorID]
		if username == "" || strings.EqualFold(username, s.Owner) {
			continue
		}
		request := ExtractRequest(post.Text)
		if request == "" {
			s.Log.Debug().Str("post_id", post.ID).Msg("mention without build trigger")
			continue
		}
		events = append(events, domain.BuildEvent{
			Source:    domain.SourceSocial,
			EventID:   post.ID,
			Username:  username,
			Text:      request,
			CreatedAt: post.CreatedAt,
		})
	}
	return events, sr.Meta.NewestID, nil
}

// FormatReply trims the reply to the post length ceiling. The ceiling is
// counted in characters, not bytes, so the cut never lands inside a
// multi-byte sequence.
func (s *Social) FormatReply(n domain.ReplyNotice) string {
	text := n.Text
	if utf8.RuneCountInString(text) > 280 {
		text = string([]rune(text)[:277]) + "..."
	}
	return text
}

type postRequest struct {
	Text  string `json:"text"`
	Reply struct {
		InReplyTo string `json:"in_reply_to_tweet_id"`
	} `json:"reply"`
}

// SendReply posts the notice as a threaded reply to the originating post.
func (s *Social) SendReply(ctx context.Context, n domain.ReplyNotice) error {
	var pr postRequest
	pr.Text = s.FormatReply(n)
	pr.Reply.InReplyTo = n.EventID

	body, err := json.Marshal(pr)
	if err != nil {
		return fmt.Errorf("social: encode reply: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.APIBase+"/2/tweets", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("social: build reply request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+s.BearerToken)
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.HTTP.Do(req)
	if err != nil {
		return fmt.Errorf("social: post reply: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated && resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4<<10))
		return fmt.Errorf("social: post reply returned %d: %s", resp.StatusCode, msg)
	}
	return nil
}
