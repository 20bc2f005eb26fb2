// Package services – ShowcaseService
//
// This file implements the ShowcaseService, the read side of the public
// gallery. It enumerates the _showcase namespace, decodes the entries, and
// applies search, sorting, and pagination in memory. The showcase is small
// by construction (one entry per published build), so in-memory shaping is
// cheaper than pushing these concerns into SQL against a JSON column.
package services

import (
	"context"
	"sort"
	"strings"

	"github.com/rs/zerolog"

	"github.com/forgebay/go-build-backend/internal/domain"
	"github.com/forgebay/go-build-backend/internal/search"
)

// ShowcaseService lists and fetches published apps.
type ShowcaseService struct {
	Store *StoreService
	Log   zerolog.Logger

	// PageSizeCap bounds per_page on listing requests.
	PageSizeCap int
}

// NewShowcaseService constructs a ShowcaseService with a 100-entry page cap.
func NewShowcaseService(store *StoreService, log zerolog.Logger) *ShowcaseService {
	return &ShowcaseService{Store: store, Log: log, PageSizeCap: 100}
}

// SortCoolness orders results by descending coolness score instead of recency.
const SortCoolness = "coolness"

// List returns one page of showcase entries. sortBy selects "coolness"
// (descending score) or anything else for recency (newest first). A
// non-empty search term keeps only entries whose name, query, or username
// shares at least one token with it, ranked by overlap before the sort
// order is applied as a tiebreak.
func (s *ShowcaseService) List(ctx context.Context, page, pageSize int, sortBy, search string) ([]domain.ShowcaseEntry, int64, error) {
	if page < 1 {
		page = 1
	}
	if pageSize <= 0 {
		pageSize = 20
	}
	if pageSize > s.PageSizeCap {
		pageSize = s.PageSizeCap
	}

	raw, err := s.Store.List(ctx, domain.NamespaceShowcase)
	if err != nil {
		return nil, 0, err
	}

	entries := make([]domain.ShowcaseEntry, 0, len(raw))
	for _, e := range raw {
		var sc domain.ShowcaseEntry
		if err := decodeEntry(e, &sc); err != nil {
			// A malformed row should not take the whole gallery down.
			s.Log.Warn().Str("key", e.Key).Err(err).Msg("skipping undecodable showcase entry")
			continue
		}
		if sc.AppID == "" {
			sc.AppID = e.Key
		}
		entries = append(entries, sc)
	}

	if q := strings.TrimSpace(search); q != "" {
		entries = rankByOverlap(entries, q)
	}

	switch sortBy {
	case SortCoolness:
		sort.SliceStable(entries, func(i, j int) bool {
			return entries[i].Coolness > entries[j].Coolness
		})
	default:
		sort.SliceStable(entries, func(i, j int) bool {
			return entries[i].CreatedAt.After(entries[j].CreatedAt)
		})
	}

	total := int64(len(entries))
	start := (page - 1) * pageSize
	if start >= len(entries) {
		return []domain.ShowcaseEntry{}, total, nil
	}
	end := start + pageSize
	if end > len(entries) {
		end = len(entries)
	}
	return entries[start:end], total, nil
}

// Get fetches a single showcase entry by app id, or ErrRecordNotFound.
func (s *ShowcaseService) Get(ctx context.Context, appID string) (*domain.ShowcaseEntry, error) {
	var sc domain.ShowcaseEntry
	if err := s.Store.GetJSON(ctx, domain.NamespaceShowcase, appID, &sc); err != nil {
		return nil, err
	}
	if sc.AppID == "" {
		sc.AppID = appID
	}
	return &sc, nil
}

func decodeEntry(e Entry, out *domain.ShowcaseEntry) error {
	r := domain.Record{Value: string(e.Value)}
	return r.DecodeValue(out)
}

// rankByOverlap keeps the entries sharing at least one token with the query,
// ordered by the number of shared tokens. Ties keep their incoming order so
// the caller's sort acts as the tiebreak.
func rankByOverlap(entries []domain.ShowcaseEntry, query string) []domain.ShowcaseEntry {
	docs := make([]string, len(entries))
	for i, e := range entries {
		docs[i] = e.Name + " " + e.Query + " " + e.Username
	}
	matches := search.Rank(query, docs)
	out := make([]domain.ShowcaseEntry, len(matches))
	for i, m := range matches {
		out[i] = entries[m.Index]
	}
	return out
}
