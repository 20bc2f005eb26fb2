package domain

import (
	"fmt"
	"time"
)

// BuildEvent is one inbound build request as seen by a channel, before any
// screening. Source identifies the channel ("social", "web"); EventID is the
// channel-scoped unique id used for deduplication.
type BuildEvent struct {
	Source    string    `json:"source"`
	EventID   string    `json:"event_id"`
	Username  string    `json:"username"`
	Text      string    `json:"text"`
	CreatedAt time.Time `json:"created_at"`
}

// Channel source identifiers.
const (
	SourceSocial = "social"
	SourceWeb    = "web"
)

// Build statuses recorded in the _builds ledger.
const (
	BuildStatusCompleted = "completed"
	BuildStatusRejected  = "rejected"
	BuildStatusFailed    = "failed"
)

// BuildRecord is the ledger entry written for every terminally processed
// event, keyed by EventID in the _builds namespace. Its mere existence marks
// the event as handled, so rejections and validation failures are written
// too; provider outages are not, which leaves the event retryable.
type BuildRecord struct {
	EventID     string    `json:"event_id"`
	Source      string    `json:"source"`
	Username    string    `json:"username"`
	Query       string    `json:"query"`
	Status      string    `json:"status"`
	AppID       string    `json:"app_id,omitempty"`
	URL         string    `json:"url,omitempty"`
	Coolness    int       `json:"coolness,omitempty"`
	Reason      string    `json:"reason,omitempty"`
	CompletedAt time.Time `json:"completed_at"`
}

// ShowcaseEntry is a published app listed on the gallery, keyed by AppID in
// the _showcase namespace.
type ShowcaseEntry struct {
	AppID     string    `json:"app_id"`
	Name      string    `json:"name"`
	Query     string    `json:"query"`
	URL       string    `json:"url"`
	Username  string    `json:"username"`
	Coolness  int       `json:"coolness"`
	CreatedAt time.Time `json:"created_at"`
}

// Reply notice statuses.
const (
	ReplyStatusPending = "pending"
	ReplyStatusSent    = "sent"
	ReplyStatusFailed  = "failed"
)

// ReplyNotice is an outbound reply queued in _reply_queue until the owning
// channel delivers it. Keys are "<unix_ms>-<event_id>" so a lexicographic
// listing yields delivery order.
type ReplyNotice struct {
	EventID   string    `json:"event_id"`
	Source    string    `json:"source"`
	Username  string    `json:"username"`
	Text      string    `json:"text"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
}

// ReplyQueueKey builds the _reply_queue key for an event queued at t.
func ReplyQueueKey(t time.Time, eventID string) string {
	return fmt.Sprintf("%d-%s", t.UnixMilli(), eventID)
}

// RejectionEntry is the audit row written to _rejections when screening
// refuses a request. Category carries the matched rule or policy label.
type RejectionEntry struct {
	EventID   string    `json:"event_id"`
	Username  string    `json:"username"`
	Query     string    `json:"query"`
	Category  string    `json:"category"`
	Reason    string    `json:"reason"`
	CreatedAt time.Time `json:"created_at"`
}

// RateCounter is the per-user daily build counter stored in _rate_limits
// under the key "<username>:<YYYY-MM-DD>".
type RateCounter struct {
	Count int `json:"count"`
}

// RateLimitKey builds the _rate_limits key for a user on the given day (UTC).
func RateLimitKey(username string, day time.Time) string {
	return username + ":" + day.UTC().Format("2006-01-02")
}
