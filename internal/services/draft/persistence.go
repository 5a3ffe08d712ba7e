// File: internal/services/draft/persistence.go
package draft

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/iyunix/go-loanform/internal/domain"
	"github.com/iyunix/go-loanform/internal/rules"
	"github.com/iyunix/go-loanform/internal/services"
)

// DefaultKey is the storage key the draft blob lives under.
const DefaultKey = "loanFormData"

// Storage is durable key/value storage already scoped to one client.
type Storage interface {
	GetItem(ctx context.Context, key string) (string, bool, error)
	SetItem(ctx context.Context, key, value string) error
	RemoveItem(ctx context.Context, key string) error
}

// Persistence mirrors tracked field values into Storage as one JSON blob.
// It is not safe for concurrent use; the owning form serializes calls.
type Persistence struct {
	store   Storage
	key     string
	tracked map[string]bool
	logger  services.Logger

	record domain.DraftRecord
	loaded bool
}

// NewPersistence tracks the fields the rule set marks as persisted.
func NewPersistence(store Storage, rs *rules.RuleSet, key string, logger services.Logger) *Persistence {
	if key == "" {
		key = DefaultKey
	}
	tracked := make(map[string]bool)
	for _, name := range rs.PersistedFields() {
		tracked[name] = true
	}
	return &Persistence{
		store:   store,
		key:     key,
		tracked: tracked,
		logger:  logger,
		record:  domain.DraftRecord{},
	}
}

// Key returns the storage key of the draft blob.
func (p *Persistence) Key() string { return p.key }

// Tracks reports whether edits to name are mirrored.
func (p *Persistence) Tracks(name string) bool { return p.tracked[name] }

// OnFieldChange merges {name: value} into the draft and writes the whole
// record back, overwriting the previous snapshot. Untracked fields are ignored.
func (p *Persistence) OnFieldChange(ctx context.Context, name, value string) error {
	if !p.tracked[name] {
		return nil
	}
	// an edit that lands before LoadDraft must not clobber the stored draft
	if !p.loaded {
		if _, err := p.LoadDraft(ctx); err != nil {
			return err
		}
	}

	p.record[name] = value
	blob, err := json.Marshal(p.record)
	if err != nil {
		return fmt.Errorf("draft: encode: %w", err)
	}
	if err := p.store.SetItem(ctx, p.key, string(blob)); err != nil {
		p.logger.Error("failed to save draft", "field", name, "error", err)
		return fmt.Errorf("draft: save: %w", err)
	}
	return nil
}

// LoadDraft reads the stored draft. A missing or unreadable blob yields an
// empty record. Only tracked fields are returned.
func (p *Persistence) LoadDraft(ctx context.Context) (domain.DraftRecord, error) {
	raw, ok, err := p.store.GetItem(ctx, p.key)
	if err != nil {
		p.logger.Error("failed to read draft", "error", err)
		return nil, fmt.Errorf("draft: load: %w", err)
	}

	record := domain.DraftRecord{}
	if ok && raw != "" {
		var stored map[string]string
		if err := json.Unmarshal([]byte(raw), &stored); err != nil {
			p.logger.Warn("discarding malformed draft", "key", p.key, "error", err)
		}
		for name, value := range stored {
			if p.tracked[name] {
				record[name] = value
			}
		}
	}

	p.record = record
	p.loaded = true
	return record.Clone(), nil
}

// Clear removes the stored draft and forgets the in-memory copy.
func (p *Persistence) Clear(ctx context.Context) error {
	if err := p.store.RemoveItem(ctx, p.key); err != nil {
		return fmt.Errorf("draft: clear: %w", err)
	}
	p.record = domain.DraftRecord{}
	p.loaded = true
	return nil
}
