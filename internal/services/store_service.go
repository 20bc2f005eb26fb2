// Package services – StoreService
//
// This file implements the StoreService, the single gateway to the
// namespaced record store. It validates namespace and key names, enforces
// the serialized value size cap, guards the platform-reserved namespaces on
// the public path, and applies legacy payload unwrapping on reads.
//
// Two write paths exist on purpose. Internal writers (the build pipeline,
// channel cursors, rate counters) call Put/Delete directly and may touch any
// namespace. The public HTTP handlers call PublicPut/PublicDelete, which
// reject every "_"-prefixed namespace with ErrProtectedNamespace. Reads are
// not restricted: deployed apps and the gallery UI read _showcase freely.
//
// Legacy unwrapping: earlier clients stored payloads double-wrapped as
// {"value": X}. A read that finds an object with exactly one property named
// "value" returns that property's value instead of the object. Objects with
// more keys, or whose single key is anything else, are returned verbatim.
package services

import (
	"context"
	"encoding/json"
	"errors"
	"regexp"
	"time"

	"gorm.io/gorm"

	"github.com/forgebay/go-build-backend/internal/domain"
	"github.com/forgebay/go-build-backend/internal/repo"
)

// RecordRepo defines the repository contract required by StoreService.
type RecordRepo interface {
	GetRecord(ctx context.Context, db *gorm.DB, ns, key string) (*domain.Record, error)
	PutRecord(ctx context.Context, db *gorm.DB, ns, key, value string) (*domain.Record, error)
	DeleteRecord(ctx context.Context, db *gorm.DB, ns, key string) (bool, error)
	ListRecords(ctx context.Context, db *gorm.DB, ns string) ([]domain.Record, error)
	ListRecordsByPrefix(ctx context.Context, db *gorm.DB, ns, prefix string) ([]domain.Record, error)
}

// Entry is one listed record with its unwrapped value.
type Entry struct {
	Key       string          `json:"key"`
	Value     json.RawMessage `json:"value"`
	UpdatedAt time.Time       `json:"updatedAt"`
}

// StoreService provides validated access to the record store.
type StoreService struct {
	// DB is the GORM handle used for persistence.
	DB *gorm.DB
	// Repo is the record repository used by this service.
	Repo RecordRepo

	// MaxValueBytes caps the serialized value size.
	MaxValueBytes int
}

// NewStoreService constructs a StoreService with the default 100 KiB cap.
func NewStoreService(db *gorm.DB, r RecordRepo) *StoreService {
	return &StoreService{
		DB:            db,
		Repo:          r,
		MaxValueBytes: 100 << 10,
	}
}

var (
	nsRE  = regexp.MustCompile(`^[A-Za-z0-9_-]{1,64}$`)
	keyRE = regexp.MustCompile(`^[A-Za-z0-9._:-]{1,128}$`)
)

func validNames(ns, key string) error {
	if !nsRE.MatchString(ns) || !keyRE.MatchString(key) {
		return ErrInvalidName
	}
	return nil
}

// Get returns the unwrapped value stored at (ns, key), or ErrRecordNotFound.
func (s *StoreService) Get(ctx context.Context, ns, key string) (json.RawMessage, error) {
	if err := validNames(ns, key); err != nil {
		return nil, ErrRecordNotFound
	}
	rec, err := s.Repo.GetRecord(ctx, s.DB, ns, key)
	if errors.Is(err, repo.ErrNotFound) {
		return nil, ErrRecordNotFound
	}
	if err != nil {
		return nil, err
	}
	return unwrapLegacy(json.RawMessage(rec.Value)), nil
}

// Put stores value at (ns, key), overwriting any previous value. This is the
// trusted path: it accepts any namespace, including reserved ones.
func (s *StoreService) Put(ctx context.Context, ns, key string, value json.RawMessage) error {
	if err := validNames(ns, key); err != nil {
		return err
	}
	if !json.Valid(value) {
		return ErrInvalidValue
	}
	if len(value) > s.MaxValueBytes {
		return ErrValueTooLarge
	}
	_, err := s.Repo.PutRecord(ctx, s.DB, ns, key, string(value))
	return err
}

// PublicPut is Put with the protected-namespace rule applied. Handlers on
// the data-plane API must use this variant.
func (s *StoreService) PublicPut(ctx context.Context, ns, key string, value json.RawMessage) error {
	if domain.IsSystemNamespace(ns) {
		return ErrProtectedNamespace
	}
	return s.Put(ctx, ns, key, value)
}

// Delete removes the record at (ns, key). Deleting an absent key succeeds.
func (s *StoreService) Delete(ctx context.Context, ns, key string) error {
	if err := validNames(ns, key); err != nil {
		return err
	}
	_, err := s.Repo.DeleteRecord(ctx, s.DB, ns, key)
	return err
}

// PublicDelete is Delete with the protected-namespace rule applied.
func (s *StoreService) PublicDelete(ctx context.Context, ns, key string) error {
	if domain.IsSystemNamespace(ns) {
		return ErrProtectedNamespace
	}
	return s.Delete(ctx, ns, key)
}

// List returns every record in ns as {key, value, updatedAt} entries with
// legacy unwrapping applied per item. An empty namespace yields an empty
// slice, not an error.
func (s *StoreService) List(ctx context.Context, ns string) ([]Entry, error) {
	if !nsRE.MatchString(ns) {
		return []Entry{}, nil
	}
	recs, err := s.Repo.ListRecords(ctx, s.DB, ns)
	if err != nil {
		return nil, err
	}
	return toEntries(recs), nil
}

// Query returns the entries in ns whose keys start with prefix. Used by the
// rate-limit lookups and showcase enumeration.
func (s *StoreService) Query(ctx context.Context, ns, prefix string) ([]Entry, error) {
	if !nsRE.MatchString(ns) {
		return []Entry{}, nil
	}
	if prefix == "" {
		return s.List(ctx, ns)
	}
	recs, err := s.Repo.ListRecordsByPrefix(ctx, s.DB, ns, prefix)
	if err != nil {
		return nil, err
	}
	return toEntries(recs), nil
}

// GetJSON fetches (ns, key) and unmarshals the unwrapped value into out.
func (s *StoreService) GetJSON(ctx context.Context, ns, key string, out any) error {
	raw, err := s.Get(ctx, ns, key)
	if err != nil {
		return err
	}
	return json.Unmarshal(raw, out)
}

// PutJSON serializes v and stores it at (ns, key) via the trusted path.
func (s *StoreService) PutJSON(ctx context.Context, ns, key string, v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return s.Put(ctx, ns, key, b)
}

func toEntries(recs []domain.Record) []Entry {
	out := make([]Entry, 0, len(recs))
	for _, r := range recs {
		out = append(out, Entry{
			Key:       r.Key,
			Value:     unwrapLegacy(json.RawMessage(r.Value)),
			UpdatedAt: r.UpdatedAt,
		})
	}
	return out
}

// unwrapLegacy undoes the historical {"value": X} double-wrapping. Only an
// object with exactly one property, named "value", is unwrapped; anything
// else is returned as stored.
func unwrapLegacy(raw json.RawMessage) json.RawMessage {
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(raw, &obj); err != nil {
		return raw
	}
	if len(obj) != 1 {
		return raw
	}
	inner, ok := obj["value"]
	if !ok {
		return raw
	}
	return inner
}
