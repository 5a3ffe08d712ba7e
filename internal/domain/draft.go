// File: internal/domain/draft.go
package domain

import "time"

// DraftRecord mirrors in-progress field values, keyed by field name.
type DraftRecord map[string]string

// Clone returns an independent copy of the record.
func (d DraftRecord) Clone() DraftRecord {
	out := make(DraftRecord, len(d))
	for k, v := range d {
		out[k] = v
	}
	return out
}

// StoredItem is one key/value entry of a client's durable storage.
// Owner scopes entries the way a browser origin scopes its local storage.
type StoredItem struct {
	Owner     string `gorm:"primaryKey;size:64"`
	Key       string `gorm:"primaryKey;size:128"`
	Value     string `gorm:"type:text;not null"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

// TableName keeps the table name stable regardless of naming strategy.
func (StoredItem) TableName() string { return "stored_items" }
