package pipeline

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"github.com/forgebay/go-build-backend/internal/channel"
	"github.com/forgebay/go-build-backend/internal/domain"
	"github.com/forgebay/go-build-backend/internal/services"
)

// Poller periodically pulls new events from every channel, runs them through
// the coordinator and delivers queued replies. Cursors live in the _system
// namespace so a restart resumes where the last run stopped.
type Poller struct {
	Coordinator *Coordinator
	Store       *services.StoreService
	Channels    []channel.Channel
	Interval    time.Duration
	Log         zerolog.Logger
}

func cursorKey(name string) string { return "last_processed_" + name }

// Run polls until ctx is cancelled.
func (p *Poller) Run(ctx context.Context) error {
	interval := p.Interval
	if interval <= 0 {
		interval = 2 * time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	p.Tick(ctx)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			p.Tick(ctx)
		}
	}
}

// Tick runs one full pass: every channel, then the reply queue.
func (p *Poller) Tick(ctx context.Context) {
	for _, ch := range p.Channels {
		p.pollChannel(ctx, ch)
	}
	p.drainReplies(ctx)
}

func (p *Poller) pollChannel(ctx context.Context, ch channel.Channel) {
	log := p.Log.With().Str("channel", ch.Name()).Logger()

	var cursor string
	err := p.Store.GetJSON(ctx, domain.NamespaceSystem, cursorKey(ch.Name()), &cursor)
	if err != nil && !errors.Is(err, services.ErrRecordNotFound) {
		log.Error().Err(err).Msg("cursor read failed")
		return
	}

	events, newCursor, err := ch.FetchEvents(ctx, cursor)
	if err != nil {
		log.Error().Err(err).Msg("fetch failed")
		return
	}

	for _, ev := range events {
		_, err := p.Coordinator.Process(ctx, ev)
		switch {
		case err == nil:
		case errors.Is(err, services.ErrAlreadyBuilt):
			log.Debug().Str("event_id", ev.EventID).Msg("event already processed")
		case errors.Is(err, services.ErrRateLimited),
			errors.Is(err, services.ErrRequestRejected):
			// Terminal and already recorded; keep going.
		default:
			log.Error().Err(err).Str("event_id", ev.EventID).Msg("event processing failed")
		}
	}

	// The cursor advances past every fetched event, including skipped and
	// failed ones; a poisonous event must not wedge the channel.
	if newCursor != "" && newCursor != cursor {
		if err := p.Store.PutJSON(ctx, domain.NamespaceSystem, cursorKey(ch.Name()), newCursor); err != nil {
			log.Error().Err(err).Msg("cursor write failed")
		}
	}
}

func (p *Poller) drainReplies(ctx context.Context) {
	entries, err := p.Store.List(ctx, domain.NamespaceReplyQueue)
	if err != nil {
		p.Log.Error().Err(err).Msg("reply queue list failed")
		return
	}

	senders := make(map[string]channel.ReplySender, len(p.Channels))
	for _, ch := range p.Channels {
		if s, ok := ch.(channel.ReplySender); ok {
			senders[ch.Name()] = s
		}
	}

	for _, e := range entries {
		var n domain.ReplyNotice
		if err := p.Store.GetJSON(ctx, domain.NamespaceReplyQueue, e.Key, &n); err != nil {
			p.Log.Warn().Err(err).Str("key", e.Key).Msg("undecodable reply notice")
			continue
		}
		if n.Status != domain.ReplyStatusPending {
			continue
		}
		sender, ok := senders[n.Source]
		if !ok {
			continue
		}

		if err := sender.SendReply(ctx, n); err != nil {
			p.Log.Warn().Err(err).Str("key", e.Key).Msg("reply delivery failed")
			n.Status = domain.ReplyStatusFailed
		} else {
			n.Status = domain.ReplyStatusSent
		}
		if err := p.Store.PutJSON(ctx, domain.NamespaceReplyQueue, e.Key, n); err != nil {
			p.Log.Warn().Err(err).Str("key", e.Key).Msg("reply status write failed")
		}
	}
}
