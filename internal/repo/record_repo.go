// Package repo implements the data persistence layer for the record store,
// backed by GORM. This file provides repository functions for the Record
// model.
//
// All functions are context-aware and accept a *gorm.DB handle, making them
// safe for use within transactions or connection-scoped operations.
// They follow the "thin repository" approach: no business logic, only CRUD
// persistence and query composition.
//
// Error semantics:
//   - When a record is not found, functions return gorm.ErrRecordNotFound
//     (also exported here as ErrNotFound for convenience).
//   - On DB errors (constraint violations, connectivity issues, etc.),
//     the raw gorm error is propagated.
//
// This repository is designed to be wrapped by a higher-level service
// (see services.StoreService) which enforces namespace protection, value
// size caps, and legacy payload unwrapping.
package repo

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/forgebay/go-build-backend/internal/domain"
)

// ErrNotFound is returned when a requested record does not exist.
// It aliases gorm.ErrRecordNotFound for convenience and consistency
// across the service layer and handlers.
var ErrNotFound = gorm.ErrRecordNotFound

// GetRecord fetches a single record by namespace and key, or ErrNotFound.
func GetRecord(ctx context.Context, db *gorm.DB, ns, key string) (*domain.Record, error) {
	var r domain.Record
	err := db.WithContext(ctx).
		Where("namespace = ? AND key = ?", ns, key).
		First(&r).Error
	if err != nil {
		return nil, err
	}
	return &r, nil
}

// PutRecord inserts or overwrites the record at (ns, key). Upserts keep
// CreatedAt from the original row and bump UpdatedAt.
func PutRecord(ctx context.Context, db *gorm.DB, ns, key, value string) (*domain.Record, error) {
	now := time.Now().UTC()
	r := &domain.Record{
		Namespace: ns,
		Key:       key,
		Value:     value,
		CreatedAt: now,
		UpdatedAt: now,
	}
	err := db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "namespace"}, {Name: "key"}},
			DoUpdates: clause.Assignments(map[string]any{"value": value, "updated_at": now}),
		}).
		Create(r).Error
	if err != nil {
		return nil, err
	}
	return r, nil
}

// DeleteRecord removes the record at (ns, key). It reports whether a row was
// actually deleted; deleting a missing record is not an error.
func DeleteRecord(ctx context.Context, db *gorm.DB, ns, key string) (bool, error) {
	res := db.WithContext(ctx).
		Where("namespace = ? AND key = ?", ns, key).
		Delete(&domain.Record{})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

// ListRecords returns all records in a namespace, ordered by key ascending.
// It returns an empty slice if the namespace holds nothing.
func ListRecords(ctx context.Context, db *gorm.DB, ns string) ([]domain.Record, error) {
	var out []domain.Record
	err := db.WithContext(ctx).
		Where("namespace = ?", ns).
		Order("key asc").
		Find(&out).Error
	return out, err
}

// ListRecordsByPrefix returns the records in a namespace whose keys start
// with prefix, ordered by key ascending.
func ListRecordsByPrefix(ctx context.Context, db *gorm.DB, ns, prefix string) ([]domain.Record, error) {
	var out []domain.Record
	err := db.WithContext(ctx).
		Where("namespace = ? AND key LIKE ? ESCAPE '\\'", ns, escapeLike(prefix)+"%").
		Order("key asc").
		Find(&out).Error
	return out, err
}

// CountRecords returns the number of records stored in a namespace.
func CountRecords(ctx context.Context, db *gorm.DB, ns string) (int64, error) {
	var total int64
	err := db.WithContext(ctx).
		Model(&domain.Record{}).
		Where("namespace = ?", ns).
		Count(&total).Error
	return total, err
}

// escapeLike neutralizes LIKE metacharacters in user-supplied prefixes.
// Callers must pair the result with an ESCAPE '\' clause.
func escapeLike(s string) string {
	out := make([]byte, 0, len(s))
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '%', '_':
			out = append(out, '\\', s[i])
		default:
			out = append(out, s[i])
		}
	}
	return string(out)
}
