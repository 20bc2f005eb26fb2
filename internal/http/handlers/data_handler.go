// Data-plane HTTP handlers.
//
// This file exposes the namespaced key-value store consumed by generated
// apps via their injected storage client:
//   - GET    /data/{ns}/{key}   (read one value, unwrapped)
//   - PUT    /data/{ns}/{key}   (write, public surface)
//   - DELETE /data/{ns}/{key}   (delete, public surface)
//   - GET    /data/{ns}         (list a namespace, optional prefix filter)
//
// Handlers are transport-thin: they validate input, call application services,
// and translate results into HTTP responses. Namespace protection (the "_"
// prefix rule) lives in the service layer; handlers only map its sentinel
// errors onto status codes.
package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/forgebay/go-build-backend/internal/services"
)

//
// Service contracts (context-aware)
//

// StoreService defines the record-store operations consumed by HTTP handlers.
//
// Implementations should be safe for concurrent use and must honor the
// provided context for cancellation and timeouts.
type StoreService interface {
	// Get returns the unwrapped value at (ns, key).
	Get(ctx context.Context, ns, key string) (json.RawMessage, error)
	// PublicPut writes a value, refusing protected namespaces.
	PublicPut(ctx context.Context, ns, key string, value json.RawMessage) error
	// PublicDelete removes a value, refusing protected namespaces.
	PublicDelete(ctx context.Context, ns, key string) error
	// List returns every entry in a namespace.
	List(ctx context.Context, ns string) ([]services.Entry, error)
	// Query returns entries in a namespace whose key starts with prefix.
	Query(ctx context.Context, ns, prefix string) ([]services.Entry, error)
}

//
// Handler wiring
//

// Handlers groups the HTTP endpoints for the data plane, the showcase
// gallery, and the web build intake. It depends on abstract service
// interfaces to keep transport concerns separate from business logic.
type Handlers struct {
	storeSvc    StoreService
	showcaseSvc ShowcaseService
	buildSvc    BuildService

	// buildToken guards POST /build; empty disables the endpoint check.
	buildToken string
}

// New constructs and returns a Handlers instance bound to the given services.
func New(store StoreService, showcase ShowcaseService, build BuildService, buildToken string) *Handlers {
	return &Handlers{
		storeSvc:    store,
		showcaseSvc: showcase,
		buildSvc:    build,
		buildToken:  buildToken,
	}
}

//
// DTOs
//

// PutValueRequest is the JSON payload for writing a record. The value may be
// any JSON type; it is stored verbatim and returned unwrapped on reads.
type PutValueRequest struct {
	Value json.RawMessage `json:"value" binding:"required"`
}

// AckResponse confirms a successful write or delete.
type AckResponse struct {
	OK bool `json:"ok"`
}

// ListDataResponse wraps the entries of one namespace.
type ListDataResponse struct {
	Namespace string           `json:"namespace"`
	Entries   []services.Entry `json:"entries"`
}

//
// Handlers
//

// GetValue godoc
// @ID          getValue
// @Summary     Read one stored value
// @Description Returns the raw JSON value stored at (namespace, key). Reads succeed on any namespace, including protected ones.
// @Tags        Data
// @Produce     json
//
// @Param       ns   path  string  true  "Namespace"  example(guestbook)
// @Param       key  path  string  true  "Key"        example(entries)
//
// @Success     200  {object}  any
// @Failure     404  {object}  handlers.ErrorResponse  "No value at this key"
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /data/{ns}/{key} [get]
func (h *Handlers) GetValue(c *gin.Context) {
	ns, key := c.Param("ns"), c.Param("key")

	val, err := h.storeSvc.Get(c.Request.Context(), ns, key)
	if err != nil {
		failStore(c, err)
		return
	}
	c.Data(http.StatusOK, "application/json; charset=utf-8", val)
}

// PutValue godoc
// @ID          putValue
// @Summary     Write one value
// @Description Stores the request's `value` at (namespace, key), overwriting any previous value. Protected ("_"-prefixed) namespaces are rejected.
// @Tags        Data
// @Accept      json
// @Produce     json
//
// @Param       ns    path  string                     true  "Namespace"  example(guestbook)
// @Param       key   path  string                     true  "Key"        example(entries)
// @Param       body  body  handlers.PutValueRequest   true  "Value payload"
//
// @Success     200  {object}  handlers.AckResponse
// @Failure     400  {object}  handlers.ErrorResponse  "Missing or invalid value"
// @Failure     403  {object}  handlers.ErrorResponse  "Protected namespace"
// @Failure     413  {object}  handlers.ErrorResponse  "Value exceeds size limit"
// @Router      /data/{ns}/{key} [put]
func (h *Handlers) PutValue(c *gin.Context) {
	ns, key := c.Param("ns"), c.Param("key")

	var req PutValueRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "body must be JSON with a \"value\" field")
		return
	}

	if err := h.storeSvc.PublicPut(c.Request.Context(), ns, key, req.Value); err != nil {
		failStore(c, err)
		return
	}
	ok(c, http.StatusOK, AckResponse{OK: true})
}

// DeleteValue godoc
// @ID          deleteValue
// @Summary     Delete one value
// @Description Removes the value at (namespace, key). Deleting a missing key still succeeds, so clients can retry safely. Protected namespaces are rejected.
// @Tags        Data
// @Produce     json
//
// @Param       ns   path  string  true  "Namespace"  example(guestbook)
// @Param       key  path  string  true  "Key"        example(entries)
//
// @Success     200  {object}  handlers.AckResponse
// @Failure     403  {object}  handlers.ErrorResponse  "Protected namespace"
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /data/{ns}/{key} [delete]
func (h *Handlers) DeleteValue(c *gin.Context) {
	ns, key := c.Param("ns"), c.Param("key")

	if err := h.storeSvc.PublicDelete(c.Request.Context(), ns, key); err != nil {
		failStore(c, err)
		return
	}
	ok(c, http.StatusOK, AckResponse{OK: true})
}

// ListData godoc
// @ID          listData
// @Summary     List a namespace
// @Description Returns every entry in the namespace, each with its key, raw value, and last update time. An optional `prefix` query narrows the result by key prefix.
// @Tags        Data
// @Produce     json
//
// @Param       ns      path   string  true   "Namespace"   example(guestbook)
// @Param       prefix  query  string  false  "Key prefix"  example(user-)
//
// @Success     200  {object}  handlers.ListDataResponse
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /data/{ns} [get]
func (h *Handlers) ListData(c *gin.Context) {
	ns := c.Param("ns")
	ctx := c.Request.Context()

	var (
		entries []services.Entry
		err     error
	)
	if prefix := c.Query("prefix"); prefix != "" {
		entries, err = h.storeSvc.Query(ctx, ns, prefix)
	} else {
		entries, err = h.storeSvc.List(ctx, ns)
	}
	if err != nil {
		failStore(c, err)
		return
	}
	if entries == nil {
		entries = []services.Entry{}
	}
	ok(c, http.StatusOK, ListDataResponse{Namespace: ns, Entries: entries})
}

// failStore maps store-service sentinel errors onto HTTP responses.
func failStore(c *gin.Context, err error) {
	switch {
	case errors.Is(err, services.ErrRecordNotFound):
		fail(c, http.StatusNotFound, ErrCodeNotFound, "no value stored at this key")
	case errors.Is(err, services.ErrProtectedNamespace):
		fail(c, http.StatusForbidden, ErrCodeForbidden, "namespace is reserved")
	case errors.Is(err, services.ErrValueTooLarge):
		fail(c, http.StatusRequestEntityTooLarge, ErrCodeTooLarge, "value exceeds the 100 KiB limit")
	case errors.Is(err, services.ErrInvalidValue):
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "value is not valid JSON")
	case errors.Is(err, services.ErrInvalidName):
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid namespace or key")
	default:
		fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
	}
}
