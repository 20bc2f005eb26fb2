// Package channel adapts inbound sources of build requests (the social
// feed, the web form) to a common event shape.
package channel

import (
	"context"
	"regexp"
	"strings"

	"github.com/forgebay/go-build-backend/internal/domain"
)

// Channel is one source of build events. FetchEvents returns events newer
// than sinceID in oldest-first order together with the new cursor; an empty
// cursor means nothing new was seen.
type Channel interface {
	Name() string
	FetchEvents(ctx context.Context, sinceID string) ([]domain.BuildEvent, string, error)
	FormatReply(n domain.ReplyNotice) string
}

// ReplySender is implemented by channels that can deliver queued reply
// notices back to their source.
type ReplySender interface {
	SendReply(ctx context.Context, n domain.ReplyNotice) error
}

// buildTriggerRE pulls the requested app out of a "build me a ..." phrase.
var buildTriggerRE = regexp.MustCompile(`(?i)\bbuild\s+(?:me\s+)?(?:an?\s+)?(.+)`)

// ExtractRequest returns the build request embedded in text, or "" when the
// text carries no trigger phrase.
func ExtractRequest(text string) string {
	m := buildTriggerRE.FindStringSubmatch(text)
	if m == nil {
		return ""
	}
	return strings.TrimSpace(m[1])
}
