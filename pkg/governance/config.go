package governance

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// AuditRetention controls how long audit events are kept.
type AuditRetention struct {
	Days int `yaml:"days" json:"days"`
}

// Config is the governance service configuration, loaded from a YAML file.
type Config struct {
	// Stakeholders maps approval roles to the person holding each role.
	Stakeholders map[StakeholderRole]Stakeholder `yaml:"stakeholders" json:"stakeholders"`

	// EmergencyContact is paged synchronously when an emergency rollback
	// fails and the registry is left in an ambiguous state.
	EmergencyContact Stakeholder `yaml:"emergencyContact" json:"emergencyContact"`

	// AuditRetention bounds the audit table; events older than Days are
	// swept. Zero disables the sweep.
	AuditRetention AuditRetention `yaml:"auditRetention" json:"auditRetention"`

	// MinPerformanceScore is the render-performance threshold below which a
	// safety warning is raised. Zero disables the check.
	MinPerformanceScore float64 `yaml:"minPerformanceScore" json:"minPerformanceScore"`

	// InitialDefaults seeds per-category default pointers on startup for
	// categories that have none yet. Existing pointers are never overwritten.
	InitialDefaults map[TemplateCategory]string `yaml:"initialDefaults" json:"initialDefaults"`
}

// DefaultConfig returns the configuration used when no config file is given.
func DefaultConfig() *Config {
	return &Config{
		Stakeholders:        make(map[StakeholderRole]Stakeholder),
		AuditRetention:      AuditRetention{Days: 365},
		MinPerformanceScore: 0.8,
		InitialDefaults:     make(map[TemplateCategory]string),
	}
}

// LoadConfig reads the YAML config at path. An empty path returns the
// defaults.
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

// Validate checks role names and category names in the config.
func (c *Config) Validate() error {
	for role := range c.Stakeholders {
		switch role {
		case RoleTechnicalLead, RoleDesignLead, RoleProductOwner, RoleBusinessOwner:
		default:
			return fmt.Errorf("unknown stakeholder role: %s", role)
		}
	}
	for category := range c.InitialDefaults {
		if !category.Valid() {
			return fmt.Errorf("unknown template category: %s", category)
		}
	}
	if c.AuditRetention.Days < 0 {
		return fmt.Errorf("auditRetention.days must not be negative")
	}
	return nil
}
