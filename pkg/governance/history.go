package governance

import (
	"fmt"

	"gorm.io/gorm"
)

// HistoryStore provides append-only access to the per-category version
// history ledger. Entries are never updated or deleted; a category's ledger,
// read in order, reconstructs the full default-version timeline.
type HistoryStore struct {
	db *gorm.DB
}

// NewHistoryStore creates a new HistoryStore.
func NewHistoryStore(db *gorm.DB) *HistoryStore {
	return &HistoryStore{db: db}
}

// AutoMigrate creates or updates the version_history table.
func (s *HistoryStore) AutoMigrate() error {
	if err := s.db.AutoMigrate(&HistoryEntryRecord{}); err != nil {
		return fmt.Errorf("auto-migrate version_history: %w", err)
	}
	return nil
}

// Append creates a new immutable ledger entry.
func (s *HistoryStore) Append(entry *HistoryEntryRecord) error {
	if err := s.db.Create(entry).Error; err != nil {
		return fmt.Errorf("append history entry: %w", err)
	}
	return nil
}

// appendTx appends an entry within an existing transaction.
func (s *HistoryStore) appendTx(tx *gorm.DB, entry *HistoryEntryRecord) error {
	if err := tx.Create(entry).Error; err != nil {
		return fmt.Errorf("append history entry: %w", err)
	}
	return nil
}

// List returns a category's ledger in commit order (oldest first).
func (s *HistoryStore) List(category TemplateCategory) ([]HistoryEntryRecord, error) {
	var records []HistoryEntryRecord
	err := s.db.Where("category = ?", string(category)).Order("created_at ASC").Find(&records).Error
	if err != nil {
		return nil, fmt.Errorf("list history: %w", err)
	}
	return records, nil
}

// Latest returns the most recent ledger entry for a category,
// or nil, nil if the ledger is empty.
func (s *HistoryStore) Latest(category TemplateCategory) (*HistoryEntryRecord, error) {
	var record HistoryEntryRecord
	err := s.db.Where("category = ?", string(category)).Order("created_at DESC").First(&record).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, fmt.Errorf("latest history entry: %w", err)
	}
	return &record, nil
}
