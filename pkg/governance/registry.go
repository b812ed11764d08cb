package governance

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// VersionRegistry stores registered template versions and the per-category
// current-default pointers.
type VersionRegistry struct {
	db *gorm.DB
}

// NewVersionRegistry creates a new VersionRegistry.
func NewVersionRegistry(db *gorm.DB) *VersionRegistry {
	return &VersionRegistry{db: db}
}

// AutoMigrate creates or updates the version and default-pointer tables.
func (r *VersionRegistry) AutoMigrate() error {
	if err := r.db.AutoMigrate(&TemplateVersionRecord{}); err != nil {
		return fmt.Errorf("auto-migrate template_versions: %w", err)
	}
	if err := r.db.AutoMigrate(&TemplateDefaultRecord{}); err != nil {
		return fmt.Errorf("auto-migrate template_defaults: %w", err)
	}
	return nil
}

// RegisterVersion inserts a new immutable template version record.
// Fails if a version with the same version id is already registered.
func (r *VersionRegistry) RegisterVersion(record *TemplateVersionRecord) error {
	if !TemplateCategory(record.Category).Valid() {
		return fmt.Errorf("unknown template category: %s", record.Category)
	}
	if record.VersionID == "" {
		return fmt.Errorf("version id is required")
	}
	if record.ID == "" {
		record.ID = uuid.New().String()
	}
	existing, err := r.GetVersion(record.VersionID)
	if err != nil {
		return err
	}
	if existing != nil {
		return fmt.Errorf("version %s is already registered", record.VersionID)
	}
	if err := r.db.Create(record).Error; err != nil {
		return fmt.Errorf("register version: %w", err)
	}
	return nil
}

// GetVersion retrieves a version record by its version id.
// Returns nil, nil if no record exists.
func (r *VersionRegistry) GetVersion(versionID string) (*TemplateVersionRecord, error) {
	var record TemplateVersionRecord
	err := r.db.Where("version_id = ?", versionID).First(&record).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("get version: %w", err)
	}
	return &record, nil
}

// ListVersions returns all registered versions for a category, oldest first.
func (r *VersionRegistry) ListVersions(category TemplateCategory) ([]TemplateVersionRecord, error) {
	var records []TemplateVersionRecord
	err := r.db.Where("category = ?", string(category)).Order("created_at ASC").Find(&records).Error
	if err != nil {
		return nil, fmt.Errorf("list versions: %w", err)
	}
	return records, nil
}

// CurrentDefault returns the category's current default version id,
// or "" if no default has been set.
func (r *VersionRegistry) CurrentDefault(category TemplateCategory) (string, error) {
	var record TemplateDefaultRecord
	err := r.db.Where("category = ?", string(category)).First(&record).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", nil
		}
		return "", fmt.Errorf("get current default: %w", err)
	}
	return record.VersionID, nil
}

// SetInitialDefault sets the default pointer for a category that has none and
// reports whether it did. It is a no-op if a default already exists.
func (r *VersionRegistry) SetInitialDefault(category TemplateCategory, versionID, actor string) (bool, error) {
	current, err := r.CurrentDefault(category)
	if err != nil {
		return false, err
	}
	if current != "" {
		return false, nil
	}
	record := &TemplateDefaultRecord{
		Category:  string(category),
		VersionID: versionID,
		UpdatedBy: actor,
	}
	if err := r.db.Create(record).Error; err != nil {
		return false, fmt.Errorf("set initial default: %w", err)
	}
	return true, nil
}

// SwapDefault atomically updates the category's default pointer from one
// version to another. The swap only succeeds if the pointer still equals
// fromVersion at the moment of the update; this is the registry's own
// compare-and-swap guard, independent of the orchestrator's serialization.
// Returns false with no error when the pointer no longer matches.
func (r *VersionRegistry) SwapDefault(category TemplateCategory, fromVersion, toVersion, actor string) (bool, error) {
	result := r.db.Model(&TemplateDefaultRecord{}).
		Where("category = ? AND version_id = ?", string(category), fromVersion).
		Updates(map[string]any{
			"version_id": toVersion,
			"updated_by": actor,
		})
	if result.Error != nil {
		return false, fmt.Errorf("swap default: %w", result.Error)
	}
	return result.RowsAffected == 1, nil
}

// ForceDefault unconditionally sets the category's default pointer.
// This is the emergency rollback path; normal changes go through SwapDefault.
func (r *VersionRegistry) ForceDefault(category TemplateCategory, versionID, actor string) error {
	result := r.db.Model(&TemplateDefaultRecord{}).
		Where("category = ?", string(category)).
		Updates(map[string]any{
			"version_id": versionID,
			"updated_by": actor,
		})
	if result.Error != nil {
		return fmt.Errorf("force default: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		record := &TemplateDefaultRecord{
			Category:  string(category),
			VersionID: versionID,
			UpdatedBy: actor,
		}
		if err := r.db.Create(record).Error; err != nil {
			return fmt.Errorf("force default create: %w", err)
		}
	}
	return nil
}
