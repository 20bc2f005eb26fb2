// Web build intake handler.
//
// POST /build accepts a build prompt from the web form and runs the full
// pipeline synchronously: screening, generation, hardening, scanning, and
// deployment. The caller gets the finished app URL or a terminal error.
package handlers

import (
	"context"
	"crypto/subtle"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/forgebay/go-build-backend/internal/domain"
	"github.com/forgebay/go-build-backend/internal/services"
)

// buildTokenHeader carries the shared secret that guards the web intake.
const buildTokenHeader = "X-Build-Token"

// Prompt length bounds for the web form.
const (
	minPromptLen = 3
	maxPromptLen = 200
)

// BuildService runs one build event through the pipeline and returns its
// terminal record. Implementations must honor the provided context.
type BuildService interface {
	Process(ctx context.Context, ev domain.BuildEvent) (*domain.BuildRecord, error)
}

// BuildRequest is the JSON payload for submitting a web build.
type BuildRequest struct {
	// Prompt describes the app to generate (3-200 chars).
	Prompt string `json:"prompt" binding:"required"`
}

// BuildResponse reports a completed build.
type BuildResponse struct {
	AppID    string `json:"app_id"`
	URL      string `json:"url"`
	Coolness int    `json:"coolness"`
	Status   string `json:"status"`
}

// SubmitBuild godoc
// @ID          submitBuild
// @Summary     Build an app from a prompt
// @Description Runs the whole build pipeline synchronously and returns the deployed app. Guarded by a shared token; prompts are screened before generation.
// @Tags        Builds
// @Accept      json
// @Produce     json
//
// @Param       X-Build-Token  header  string                 true  "Shared intake token"
// @Param       body           body    handlers.BuildRequest  true  "Build prompt"
//
// @Success     200  {object}  handlers.BuildResponse
// @Failure     400  {object}  handlers.ErrorResponse  "Prompt missing or out of bounds"
// @Failure     401  {object}  handlers.ErrorResponse  "Missing or wrong token"
// @Failure     422  {object}  handlers.ErrorResponse  "Prompt rejected by screening"
// @Failure     429  {object}  handlers.ErrorResponse  "Daily build limit reached"
// @Failure     502  {object}  handlers.ErrorResponse  "Generation or deployment failed"
// @Router      /build [post]
func (h *Handlers) SubmitBuild(c *gin.Context) {
	if h.buildToken != "" {
		got := c.GetHeader(buildTokenHeader)
		if subtle.ConstantTimeCompare([]byte(got), []byte(h.buildToken)) != 1 {
			fail(c, http.StatusUnauthorized, ErrCodeUnauthorized, "missing or invalid build token")
			return
		}
	}

	var req BuildRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "body must be JSON with a \"prompt\" field")
		return
	}
	prompt := strings.TrimSpace(req.Prompt)
	if len(prompt) < minPromptLen || len(prompt) > maxPromptLen {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "prompt must be 3-200 characters")
		return
	}

	ev := domain.BuildEvent{
		Source:    domain.SourceWeb,
		EventID:   uuid.NewString(),
		Username:  "web",
		Text:      prompt,
		CreatedAt: time.Now().UTC(),
	}

	rec, err := h.buildSvc.Process(c.Request.Context(), ev)
	if err != nil {
		failBuild(c, rec, err)
		return
	}
	ok(c, http.StatusOK, BuildResponse{
		AppID:    rec.AppID,
		URL:      rec.URL,
		Coolness: rec.Coolness,
		Status:   rec.Status,
	})
}

// failBuild maps pipeline sentinel errors onto HTTP responses. Rejections
// carry the recorded reason when one exists so the form can show it.
func failBuild(c *gin.Context, rec *domain.BuildRecord, err error) {
	switch {
	case errors.Is(err, services.ErrRequestRejected):
		msg := "prompt rejected by safety screening"
		if rec != nil && rec.Reason != "" {
			msg = rec.Reason
		}
		fail(c, http.StatusUnprocessableEntity, ErrCodePolicyViolation, msg)
	case errors.Is(err, services.ErrRateLimited):
		fail(c, http.StatusTooManyRequests, ErrCodeRateLimited, "daily build limit reached, try again tomorrow")
	case errors.Is(err, services.ErrGenerationFailed):
		fail(c, http.StatusBadGateway, ErrCodeBuildFailed, "the build did not produce a deployable app")
	default:
		fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
	}
}
