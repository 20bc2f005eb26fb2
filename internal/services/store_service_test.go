package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"testing"
	"time"

	"gorm.io/gorm"

	"github.com/forgebay/go-build-backend/internal/domain"
	"github.com/forgebay/go-build-backend/internal/repo"
)

// ----- Fake repo -----

// fakeRecordRepo is an in-memory RecordRepo keyed by "ns\x00key".
type fakeRecordRepo struct {
	rows map[string]domain.Record

	putErr  error
	getErr  error
	listErr error
}

func newFakeRecordRepo() *fakeRecordRepo {
	return &fakeRecordRepo{rows: make(map[string]domain.Record)}
}

func rowKey(ns, key string) string { return ns + "\x00" + key }

func (r *fakeRecordRepo) GetRecord(ctx context.Context, db *gorm.DB, ns, key string) (*domain.Record, error) {
	if r.getErr != nil {
		return nil, r.getErr
	}
	rec, ok := r.rows[rowKey(ns, key)]
	if !ok {
		return nil, repo.ErrNotFound
	}
	return &rec, nil
}

func (r *fakeRecordRepo) PutRecord(ctx context.Context, db *gorm.DB, ns, key, value string) (*domain.Record, error) {
	if r.putErr != nil {
		return nil, r.putErr
	}
	now := time.Now().UTC()
	rec := domain.Record{Namespace: ns, Key: key, Value: value, CreatedAt: now, UpdatedAt: now}
	if old, ok := r.rows[rowKey(ns, key)]; ok {
		rec.CreatedAt = old.CreatedAt
	}
	r.rows[rowKey(ns, key)] = rec
	return &rec, nil
}

func (r *fakeRecordRepo) DeleteRecord(ctx context.Context, db *gorm.DB, ns, key string) (bool, error) {
	_, ok := r.rows[rowKey(ns, key)]
	delete(r.rows, rowKey(ns, key))
	return ok, nil
}

func (r *fakeRecordRepo) ListRecords(ctx context.Context, db *gorm.DB, ns string) ([]domain.Record, error) {
	return r.ListRecordsByPrefix(ctx, db, ns, "")
}

func (r *fakeRecordRepo) ListRecordsByPrefix(ctx context.Context, db *gorm.DB, ns, prefix string) ([]domain.Record, error) {
	if r.listErr != nil {
		return nil, r.listErr
	}
	var out []domain.Record
	for _, rec := range r.rows {
		if rec.Namespace == ns && strings.HasPrefix(rec.Key, prefix) {
			out = append(out, rec)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out, nil
}

func newTestStore() (*StoreService, *fakeRecordRepo) {
	fr := newFakeRecordRepo()
	return NewStoreService(nil, fr), fr
}

// ----- Tests -----

func TestStore_PutGet_RoundTrip(t *testing.T) {
	s, _ := newTestStore()
	ctx := context.Background()

	cases := []string{
		`"hello"`,
		`42`,
		`true`,
		`null`,
		`{"nested":{"a":[1,2,3]}}`,
		`[` + strings.Repeat(`0,`, 99) + `0]`, // 100 elements
		`{"value":1,"other":2}`,               // wrapper-shaped but 2 keys: kept verbatim
	}
	for i, v := range cases {
		key := fmt.Sprintf("k%d", i)
		if err := s.Put(ctx, "app", key, json.RawMessage(v)); err != nil {
			t.Fatalf("Put(%s): %v", v, err)
		}
		got, err := s.Get(ctx, "app", key)
		if err != nil {
			t.Fatalf("Get(%s): %v", key, err)
		}
		if string(got) != v {
			t.Fatalf("round-trip mismatch for %s: got %s", v, got)
		}
	}
}

func TestStore_Get_UnwrapsLegacyWrapper(t *testing.T) {
	s, fr := newTestStore()
	ctx := context.Background()

	fr.rows[rowKey("app", "wrapped")] = domain.Record{
		Namespace: "app", Key: "wrapped", Value: `{"value":{"theme":"dark"}}`,
	}
	got, err := s.Get(ctx, "app", "wrapped")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if string(got) != `{"theme":"dark"}` {
		t.Fatalf("expected unwrapped value, got %s", got)
	}
}

func TestStore_Get_NotFound(t *testing.T) {
	s, _ := newTestStore()
	if _, err := s.Get(context.Background(), "app", "nope"); !errors.Is(err, ErrRecordNotFound) {
		t.Fatalf("expected ErrRecordNotFound, got %v", err)
	}
}

func TestStore_Put_RejectsOversizedAndInvalid(t *testing.T) {
	s, _ := newTestStore()
	s.MaxValueBytes = 16
	ctx := context.Background()

	big := json.RawMessage(`"` + strings.Repeat("x", 32) + `"`)
	if err := s.Put(ctx, "app", "k", big); !errors.Is(err, ErrValueTooLarge) {
		t.Fatalf("expected ErrValueTooLarge, got %v", err)
	}
	if err := s.Put(ctx, "app", "k", json.RawMessage(`{bad`)); !errors.Is(err, ErrInvalidValue) {
		t.Fatalf("expected ErrInvalidValue, got %v", err)
	}
	if err := s.Put(ctx, "bad ns!", "k", json.RawMessage(`1`)); !errors.Is(err, ErrInvalidName) {
		t.Fatalf("expected ErrInvalidName, got %v", err)
	}
}

func TestStore_PublicPut_RejectsReservedNamespaces(t *testing.T) {
	s, _ := newTestStore()
	ctx := context.Background()

	for _, ns := range []string{domain.NamespaceSystem, domain.NamespaceBuilds, domain.NamespaceShowcase, "_anything"} {
		if err := s.PublicPut(ctx, ns, "k", json.RawMessage(`1`)); !errors.Is(err, ErrProtectedNamespace) {
			t.Fatalf("PublicPut(%s) should be forbidden, got %v", ns, err)
		}
		if err := s.PublicDelete(ctx, ns, "k"); !errors.Is(err, ErrProtectedNamespace) {
			t.Fatalf("PublicDelete(%s) should be forbidden, got %v", ns, err)
		}
	}

	// Trusted path still reaches reserved namespaces.
	if err := s.Put(ctx, domain.NamespaceBuilds, "ev1", json.RawMessage(`{}`)); err != nil {
		t.Fatalf("trusted Put into reserved namespace: %v", err)
	}
}

func TestStore_Delete_Idempotent(t *testing.T) {
	s, _ := newTestStore()
	ctx := context.Background()

	if err := s.Put(ctx, "app", "k", json.RawMessage(`1`)); err != nil {
		t.Fatalf("Put: %v", err)
	}
	if err := s.Delete(ctx, "app", "k"); err != nil {
		t.Fatalf("first Delete: %v", err)
	}
	if err := s.Delete(ctx, "app", "k"); err != nil {
		t.Fatalf("second Delete should succeed: %v", err)
	}
	if _, err := s.Get(ctx, "app", "k"); !errors.Is(err, ErrRecordNotFound) {
		t.Fatalf("expected ErrRecordNotFound after delete, got %v", err)
	}
}

func TestStore_List_UnwrapsPerItem(t *testing.T) {
	s, _ := newTestStore()
	ctx := context.Background()

	if err := s.Put(ctx, "app", "k1", json.RawMessage(`{"value":"a"}`)); err != nil {
		t.Fatalf("Put k1: %v", err)
	}
	if err := s.Put(ctx, "app", "k2", json.RawMessage(`42`)); err != nil {
		t.Fatalf("Put k2: %v", err)
	}

	entries, err := s.List(ctx, "app")
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(entries))
	}
	if entries[0].Key != "k1" || string(entries[0].Value) != `"a"` {
		t.Fatalf("k1 not unwrapped: %+v", entries[0])
	}
	if entries[1].Key != "k2" || string(entries[1].Value) != `42` {
		t.Fatalf("k2 unexpected: %+v", entries[1])
	}
	if entries[0].UpdatedAt.IsZero() || entries[1].UpdatedAt.IsZero() {
		t.Fatalf("entries must carry timestamps")
	}
}

func TestStore_Query_PrefixOnly(t *testing.T) {
	s, _ := newTestStore()
	ctx := context.Background()

	day := time.Date(2025, 1, 2, 0, 0, 0, 0, time.UTC)
	for _, u := range []string{"ada", "bob"} {
		key := domain.RateLimitKey(u, day)
		if err := s.PutJSON(ctx, domain.NamespaceRateLimits, key, domain.RateCounter{Count: 1}); err != nil {
			t.Fatalf("PutJSON: %v", err)
		}
	}

	entries, err := s.Query(ctx, domain.NamespaceRateLimits, "ada:")
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if len(entries) != 1 || entries[0].Key != "ada:2025-01-02" {
		t.Fatalf("unexpected query result: %+v", entries)
	}
}

func TestStore_GetJSON_PutJSON(t *testing.T) {
	s, _ := newTestStore()
	ctx := context.Background()

	in := domain.BuildRecord{EventID: "ev1", Status: domain.BuildStatusCompleted, AppID: "ada-todo-x1"}
	if err := s.PutJSON(ctx, domain.NamespaceBuilds, "ev1", in); err != nil {
		t.Fatalf("PutJSON: %v", err)
	}
	var out domain.BuildRecord
	if err := s.GetJSON(ctx, domain.NamespaceBuilds, "ev1", &out); err != nil {
		t.Fatalf("GetJSON: %v", err)
	}
	if out.EventID != in.EventID || out.Status != in.Status || out.AppID != in.AppID {
		t.Fatalf("round-trip mismatch: %+v", out)
	}
}
