// Package domain defines the persistence model and the shared value types
// of the build platform. The store is deliberately schemaless: every
// application-level object is a JSON document filed under a namespace and a
// key, and a single GORM-mapped Record row carries it.
package domain

import (
	"encoding/json"
	"time"
)

// Record is one entry of the namespaced key/value store. The (namespace, key)
// pair is the composite primary key; Value holds the serialized JSON document.
//
// Fields:
//   - Namespace: logical bucket, e.g. an app id or a reserved "_" bucket.
//   - Key: unique name within the namespace.
//   - Value: raw JSON payload as written by the client or the pipeline.
//   - CreatedAt / UpdatedAt: timestamps managed by GORM.
type Record struct {
	Namespace string    `json:"namespace" gorm:"type:TEXT NOT NULL;primaryKey;index:idx_ns_updated,priority:1"`
	Key       string    `json:"key"       gorm:"type:TEXT NOT NULL;primaryKey"`
	Value     string    `json:"value"     gorm:"type:TEXT NOT NULL"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at" gorm:"index:idx_ns_updated,priority:2"`
}

// TableName returns the database table name for Record.
func (Record) TableName() string { return "records" }

// DecodeValue unmarshals the record's JSON payload into v.
func (r Record) DecodeValue(v any) error {
	return json.Unmarshal([]byte(r.Value), v)
}

// EncodeValue serializes v and stores it as the record's payload.
func (r *Record) EncodeValue(v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	r.Value = string(b)
	return nil
}
