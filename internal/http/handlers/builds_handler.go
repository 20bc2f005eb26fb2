// Showcase gallery HTTP handlers.
//
// This file exposes the read-only gallery of published apps:
//   - GET /builds        (list, paginated, sortable, searchable)
//   - GET /builds/{id}   (fetch one entry)
package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/forgebay/go-build-backend/internal/domain"
	"github.com/forgebay/go-build-backend/internal/utils"
)

// ShowcaseService defines gallery operations consumed by HTTP handlers.
//
// Implementations should be safe for concurrent use and must honor the
// provided context for cancellation and timeouts.
type ShowcaseService interface {
	// List returns one page of showcase entries and the total count.
	List(ctx context.Context, page, pageSize int, sortBy, search string) ([]domain.ShowcaseEntry, int64, error)
	// Get fetches a single entry by app id.
	Get(ctx context.Context, appID string) (*domain.ShowcaseEntry, error)
}

// ListBuildsResponse wraps a page of showcase entries.
type ListBuildsResponse struct {
	Builds  []domain.ShowcaseEntry `json:"builds"`
	Total   int64                  `json:"total"`
	Page    int                    `json:"page"`
	PerPage int                    `json:"per_page"`
}

// clampPagination parses and bounds the page and per_page query params to
// sane defaults and limits, returning (page, perPage).
func clampPagination(c *gin.Context) (page, perPage int) {
	const (
		defaultPage    = 1
		defaultPerPage = 20
		maxPerPage     = 100
	)
	page = utils.AtoiDefault(c.Query("page"), defaultPage)
	if page < 1 {
		page = 1
	}
	perPage = utils.AtoiDefault(c.Query("per_page"), defaultPerPage)
	if perPage < 1 {
		perPage = 1
	}
	if perPage > maxPerPage {
		perPage = maxPerPage
	}
	return
}

// ListBuilds godoc
// @ID          listBuilds
// @Summary     List published apps (paginated)
// @Description Returns a page of gallery entries. sort=coolness orders by score descending; anything else orders by recency. A search term ranks entries by token overlap with their name, query, and builder.
// @Tags        Builds
// @Produce     json
//
// @Param       page      query  int     false  "Page number"     minimum(1) default(1)
// @Param       per_page  query  int     false  "Items per page"  minimum(1) maximum(100) default(20)
// @Param       sort      query  string  false  "Sort order"      Enums(coolness, recent)
// @Param       search    query  string  false  "Search term"     example(snake game)
//
// @Success     200  {object}  handlers.ListBuildsResponse
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /builds [get]
func (h *Handlers) ListBuilds(c *gin.Context) {
	page, perPage := clampPagination(c)

	entries, total, err := h.showcaseSvc.List(c.Request.Context(), page, perPage, c.Query("sort"), c.Query("search"))
	if err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeListFailed, err.Error())
		return
	}
	if entries == nil {
		entries = []domain.ShowcaseEntry{}
	}
	ok(c, http.StatusOK, ListBuildsResponse{
		Builds:  entries,
		Total:   total,
		Page:    page,
		PerPage: perPage,
	})
}

// GetBuild godoc
// @ID          getBuild
// @Summary     Fetch one published app
// @Description Returns the gallery entry for a single app id.
// @Tags        Builds
// @Produce     json
//
// @Param       id  path  string  true  "App ID"  example(alice-snake-game-1a2b3c)
//
// @Success     200  {object}  domain.ShowcaseEntry
// @Failure     404  {object}  handlers.ErrorResponse  "Unknown app id"
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /builds/{id} [get]
func (h *Handlers) GetBuild(c *gin.Context) {
	entry, err := h.showcaseSvc.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		failStore(c, err)
		return
	}
	ok(c, http.StatusOK, entry)
}
