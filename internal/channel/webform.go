package channel

import (
	"context"
	"strings"

	"github.com/forgebay/go-build-backend/internal/domain"
)

// Webform represents builds submitted through the site's form. Events enter
// synchronously via the HTTP handler, so polling yields nothing, and the
// requester sees the outcome in the response, so delivery is a no-op that
// just lets queued notices drain.
type Webform struct{}

func (Webform) Name() string { return domain.SourceWeb }

func (Webform) FetchEvents(context.Context, string) ([]domain.BuildEvent, string, error) {
	return nil, "", nil
}

// FormatReply drops the social-style @mention; the web form shows the text
// directly to the requester.
func (Webform) FormatReply(n domain.ReplyNotice) string {
	return strings.TrimSpace(strings.TrimPrefix(n.Text, "@"+n.Username))
}

func (Webform) SendReply(context.Context, domain.ReplyNotice) error { return nil }
