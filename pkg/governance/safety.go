package governance

import (
	"context"
	"fmt"
	"time"
)

// ValidationReport is the result of validating a template artifact.
type ValidationReport struct {
	Passed bool     `json:"passed"`
	Checks []string `json:"checks,omitempty"`
	Score  float64  `json:"score"`
}

// TemplateValidationService validates a template artifact identified by
// version id. It is an external collaborator; calls may involve I/O latency
// and should honor the context.
type TemplateValidationService interface {
	Validate(ctx context.Context, category TemplateCategory, versionID string) (*ValidationReport, error)
}

// MetadataValidationService validates against the metadata recorded at
// version registration time. It stands in for a full rendering validator in
// deployments that pre-validate artifacts before registering them.
type MetadataValidationService struct {
	registry *VersionRegistry
}

// NewMetadataValidationService creates a validator over registry metadata.
func NewMetadataValidationService(registry *VersionRegistry) *MetadataValidationService {
	return &MetadataValidationService{registry: registry}
}

// Validate implements TemplateValidationService.
func (v *MetadataValidationService) Validate(ctx context.Context, category TemplateCategory, versionID string) (*ValidationReport, error) {
	record, err := v.registry.GetVersion(versionID)
	if err != nil {
		return nil, err
	}
	if record == nil {
		return nil, fmt.Errorf("version %s is not registered", versionID)
	}
	return &ValidationReport{
		Passed: record.ValidationStatus == "passed",
		Checks: []string{"metadata.validation_status"},
		Score:  record.PerformanceScore,
	}, nil
}

// SafetyRunner executes the safety checks gating a default-template change.
// Checks are recomputed on every run; results are never cached across
// attempts.
type SafetyRunner struct {
	registry  *VersionRegistry
	validator TemplateValidationService
	minScore  float64
}

// NewSafetyRunner creates a runner. minScore is the performance score below
// which a warning (non-blocking) is raised; zero disables the score check.
func NewSafetyRunner(registry *VersionRegistry, validator TemplateValidationService, minScore float64) *SafetyRunner {
	return &SafetyRunner{
		registry:  registry,
		validator: validator,
		minScore:  minScore,
	}
}

// Run executes all safety checks for a from/to change and returns their
// results. Individual check failures are reported in the results, not as an
// error; an error return means the runner itself could not execute.
func (r *SafetyRunner) Run(ctx context.Context, category TemplateCategory, fromVersion, toVersion string) []SafetyCheckResult {
	results := make([]SafetyCheckResult, 0, 4)

	results = append(results, r.runCheck("target_version_registered", SeverityBlocking, func() (bool, error) {
		record, err := r.registry.GetVersion(toVersion)
		if err != nil {
			return false, err
		}
		if record == nil {
			return false, fmt.Errorf("version %s is not registered", toVersion)
		}
		return true, nil
	}))

	results = append(results, r.runCheck("rollback_target_available", SeverityBlocking, func() (bool, error) {
		record, err := r.registry.GetVersion(fromVersion)
		if err != nil {
			return false, err
		}
		if record == nil {
			return false, fmt.Errorf("rollback target %s is not registered", fromVersion)
		}
		return true, nil
	}))

	var report *ValidationReport
	results = append(results, r.runCheck("template_validation", SeverityBlocking, func() (bool, error) {
		var err error
		report, err = r.validator.Validate(ctx, category, toVersion)
		if err != nil {
			return false, err
		}
		if !report.Passed {
			return false, fmt.Errorf("template validation failed for %s", toVersion)
		}
		return true, nil
	}))

	if r.minScore > 0 {
		results = append(results, r.runCheck("render_performance", SeverityWarning, func() (bool, error) {
			if report == nil {
				return false, fmt.Errorf("no validation report available")
			}
			if report.Score < r.minScore {
				return false, fmt.Errorf("performance score %.2f below threshold %.2f", report.Score, r.minScore)
			}
			return true, nil
		}))
	}

	return results
}

// runCheck executes one automated check and times it.
func (r *SafetyRunner) runCheck(name string, severity CheckSeverity, fn func() (bool, error)) SafetyCheckResult {
	start := time.Now()
	passed, err := fn()
	result := SafetyCheckResult{
		Name:           name,
		Type:           "automated",
		Severity:       severity,
		Passed:         passed,
		DurationMillis: time.Since(start).Milliseconds(),
	}
	if err != nil {
		result.Error = err.Error()
	}
	return result
}

// BlockingFailure returns the first failed blocking check, or nil when all
// blocking checks passed.
func BlockingFailure(results []SafetyCheckResult) *SafetyCheckResult {
	for i := range results {
		if results[i].Severity == SeverityBlocking && !results[i].Passed {
			return &results[i]
		}
	}
	return nil
}

// CheckWarnings collects the messages of failed non-blocking checks.
// Warnings never gate a change but must be surfaced to the confirmer.
func CheckWarnings(results []SafetyCheckResult) []string {
	var warnings []string
	for _, result := range results {
		if result.Severity != SeverityBlocking && !result.Passed {
			msg := result.Name
			if result.Error != "" {
				msg = fmt.Sprintf("%s: %s", result.Name, result.Error)
			}
			warnings = append(warnings, msg)
		}
	}
	return warnings
}
