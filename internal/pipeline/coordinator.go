// Package pipeline runs build events through the full safety and deployment
// flow: dedup, rate limiting, sanitization, policy classification, code
// generation, output validation, CSP hardening and publication.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/rs/zerolog"

	"github.com/forgebay/go-build-backend/internal/artifact"
	"github.com/forgebay/go-build-backend/internal/deploy"
	"github.com/forgebay/go-build-backend/internal/domain"
	"github.com/forgebay/go-build-backend/internal/generate"
	"github.com/forgebay/go-build-backend/internal/policy"
	"github.com/forgebay/go-build-backend/internal/sanitize"
	"github.com/forgebay/go-build-backend/internal/services"
)

// Coordinator wires the stages together. Every stage outcome, including
// rejections and failures, leaves a durable trace in the store so a build
// event is never silently dropped.
type Coordinator struct {
	Store      *services.StoreService
	Sanitizer  *sanitize.Sanitizer
	Classifier *policy.Classifier
	Builder    *generate.Builder
	Scanner    *artifact.Scanner
	Synth      *artifact.Synthesizer
	Publisher  deploy.Publisher
	Log        zerolog.Logger

	Owner    string // username exempt from the daily cap
	DailyCap int

	// SideWriteTimeout bounds best-effort writes (reply queue, rejection
	// log) so a slow store cannot stall the build flow. Zero means the
	// default.
	SideWriteTimeout time.Duration

	Now func() time.Time // test hook
}

const defaultSideWriteTimeout = 3 * time.Second

func (c *Coordinator) sideCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	d := c.SideWriteTimeout
	if d <= 0 {
		d = defaultSideWriteTimeout
	}
	return context.WithTimeout(ctx, d)
}

func (c *Coordinator) now() time.Time {
	if c.Now != nil {
		return c.Now()
	}
	return time.Now()
}

func (c *Coordinator) isOwner(username string) bool {
	return c.Owner != "" && strings.EqualFold(username, c.Owner)
}

// acceptableViolation reports whether a validator finding is expected in a
// legitimate page: the injected storage client's own network use, and
// innerHTML rendering of app state.
func acceptableViolation(v string) bool {
	return strings.Contains(v, "fetch") || strings.Contains(v, "innerHTML")
}

// Process runs one build event end to end and returns its build record.
// Terminal non-success outcomes are reported through the sentinel errors in
// the services package.
func (c *Coordinator) Process(ctx context.Context, ev domain.BuildEvent) (*domain.BuildRecord, error) {
	log := c.Log.With().Str("source", ev.Source).Str("event_id", ev.EventID).Str("username", ev.Username).Logger()

	// Dedup on the source event id. Check-then-act: a concurrent worker
	// could slip a duplicate through, but events arrive from a single
	// poller per channel so the window is theoretical.
	var existing domain.BuildRecord
	err := c.Store.GetJSON(ctx, domain.NamespaceBuilds, ev.EventID, &existing)
	if err == nil {
		return &existing, services.ErrAlreadyBuilt
	}
	if !errors.Is(err, services.ErrRecordNotFound) {
		return nil, fmt.Errorf("pipeline: dedup check: %w", err)
	}

	if !c.isOwner(ev.Username) {
		count, err := c.rateCount(ctx, ev.Username)
		if err != nil {
			return nil, fmt.Errorf("pipeline: rate check: %w", err)
		}
		if count >= c.DailyCap {
			log.Info().Int("count", count).Msg("daily build cap reached")
			c.queueReply(ctx, ev, fmt.Sprintf("@%s you've hit today's limit of %d builds. Come back tomorrow!", ev.Username, c.DailyCap))
			return nil, services.ErrRateLimited
		}
	}

	res := c.Sanitizer.Check(ev.Text)
	if !res.Safe {
		return c.reject(ctx, ev, res.Category, res.Reason)
	}

	verdict := c.Classifier.Check(ctx, res.Cleaned)
	if !verdict.Safe {
		return c.reject(ctx, ev, verdict.Category, verdict.Reason)
	}

	// Provider failures leave no build record: the event id stays unmarked
	// so a redelivery retries cleanly once the provider recovers.
	html, err := c.Builder.Build(ctx, res.Cleaned)
	if err != nil {
		log.Error().Err(err).Msg("generation failed")
		return nil, fmt.Errorf("%w: %v", services.ErrGenerationFailed, err)
	}

	appID := c.appID(ev, res.Cleaned)
	page := c.Synth.Inject(html, appID)

	scan := c.Scanner.Scan(page)
	var fatal []string
	for _, v := range scan.Violations {
		if !acceptableViolation(v) {
			fatal = append(fatal, v)
		}
	}
	if len(fatal) > 0 {
		reason := "unsafe output: " + strings.Join(fatal, "; ")
		log.Warn().Strs("violations", fatal).Msg("generated page failed validation")
		rec := c.record(ctx, ev, res.Cleaned, domain.BuildStatusFailed, appID, "", 0, reason)
		c.queueReply(ctx, ev, fmt.Sprintf("@%s that build didn't pass the safety check. Try a different idea!", ev.Username))
		return rec, fmt.Errorf("%w: %s", services.ErrGenerationFailed, reason)
	}

	url, err := c.Publisher.Publish(ctx, appID, page)
	if err != nil {
		log.Error().Err(err).Str("app_id", appID).Msg("deploy failed")
		return nil, fmt.Errorf("pipeline: deploy: %w", err)
	}

	cool := RateCoolness(res.Cleaned, len(page))
	rec := c.record(ctx, ev, res.Cleaned, domain.BuildStatusCompleted, appID, url, cool, "")

	entry := domain.ShowcaseEntry{
		AppID:     appID,
		Name:      DisplayName(res.Cleaned),
		Query:     res.Cleaned,
		URL:       url,
		Username:  ev.Username,
		Coolness:  cool,
		CreatedAt: c.now(),
	}
	if err := c.Store.PutJSON(ctx, domain.NamespaceShowcase, appID, entry); err != nil {
		log.Warn().Err(err).Msg("showcase write failed")
	}

	c.queueReply(ctx, ev, fmt.Sprintf("@%s your app is live: %s", ev.Username, url))
	c.bumpRate(ctx, ev.Username)

	log.Info().Str("app_id", appID).Str("url", url).Int("coolness", cool).Msg("build completed")
	return rec, nil
}

func (c *Coordinator) appID(ev domain.BuildEvent, request string) string {
	if ev.Source == domain.SourceWeb {
		return WebAppID(request, c.now())
	}
	return EventAppID(ev.Username, request, ev.EventID)
}

// reject logs the abuse attempt, queues the canned reply for the category
// and records the build as rejected.
func (c *Coordinator) reject(ctx context.Context, ev domain.BuildEvent, category, reason string) (*domain.BuildRecord, error) {
	c.Log.Info().
		Str("event_id", ev.EventID).
		Str("username", ev.Username).
		Str("category", category).
		Str("reason", reason).
		Msg("build request rejected")

	entry := domain.RejectionEntry{
		EventID:   ev.EventID,
		Username:  ev.Username,
		Query:     truncateRunes(ev.Text, 200),
		Category:  category,
		Reason:    reason,
		CreatedAt: c.now(),
	}
	wctx, cancel := c.sideCtx(ctx)
	if err := c.Store.PutJSON(wctx, domain.NamespaceRejections, ev.EventID, entry); err != nil {
		c.Log.Warn().Err(err).Msg("rejection log write failed")
	}
	cancel()

	if text := sanitize.ReplyFor(ev.Username, category); text != "" {
		c.queueReply(ctx, ev, text)
	}

	rec := c.record(ctx, ev, ev.Text, domain.BuildStatusRejected, "", "", 0, category+": "+reason)
	return rec, fmt.Errorf("%w: %s", services.ErrRequestRejected, reason)
}

// record writes the build record keyed by source event id; failures to
// persist are logged, not fatal, so the caller still gets the outcome.
func (c *Coordinator) record(ctx context.Context, ev domain.BuildEvent, query, status, appID, url string, cool int, reason string) *domain.BuildRecord {
	rec := domain.BuildRecord{
		EventID:     ev.EventID,
		Source:      ev.Source,
		Username:    ev.Username,
		Query:       query,
		Status:      status,
		AppID:       appID,
		URL:         url,
		Coolness:    cool,
		Reason:      reason,
		CompletedAt: c.now(),
	}
	if err := c.Store.PutJSON(ctx, domain.NamespaceBuilds, ev.EventID, rec); err != nil {
		c.Log.Warn().Err(err).Str("event_id", ev.EventID).Msg("build record write failed")
	}
	return &rec
}

func (c *Coordinator) queueReply(ctx context.Context, ev domain.BuildEvent, text string) {
	notice := domain.ReplyNotice{
		EventID:   ev.EventID,
		Source:    ev.Source,
		Username:  ev.Username,
		Text:      text,
		Status:    domain.ReplyStatusPending,
		CreatedAt: c.now(),
	}
	key := domain.ReplyQueueKey(c.now(), ev.EventID)
	wctx, cancel := c.sideCtx(ctx)
	defer cancel()
	if err := c.Store.PutJSON(wctx, domain.NamespaceReplyQueue, key, notice); err != nil {
		c.Log.Warn().Err(err).Str("event_id", ev.EventID).Msg("reply enqueue failed")
	}
}

// truncateRunes caps s to max characters without splitting a UTF-8 sequence.
func truncateRunes(s string, max int) string {
	if utf8.RuneCountInString(s) <= max {
		return s
	}
	return string([]rune(s)[:max])
}

func (c *Coordinator) rateCount(ctx context.Context, username string) (int, error) {
	key := domain.RateLimitKey(username, c.now())
	var counter domain.RateCounter
	err := c.Store.GetJSON(ctx, domain.NamespaceRateLimits, key, &counter)
	if errors.Is(err, services.ErrRecordNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return counter.Count, nil
}

// bumpRate increments the caller's daily counter. Read-modify-write is fine
// here: counters are advisory and each channel runs a single poller.
func (c *Coordinator) bumpRate(ctx context.Context, username string) {
	if c.isOwner(username) {
		return
	}
	count, err := c.rateCount(ctx, username)
	if err != nil {
		c.Log.Warn().Err(err).Msg("rate counter read failed")
		return
	}
	key := domain.RateLimitKey(username, c.now())
	if err := c.Store.PutJSON(ctx, domain.NamespaceRateLimits, key, domain.RateCounter{Count: count + 1}); err != nil {
		c.Log.Warn().Err(err).Msg("rate counter write failed")
	}
}
