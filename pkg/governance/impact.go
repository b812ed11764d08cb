package governance

import "fmt"

// rollbackEstimateMinutes maps risk level to the estimated time to roll the
// default pointer back and verify the previous version.
var rollbackEstimateMinutes = map[RiskLevel]int{
	RiskLow:      5,
	RiskMedium:   10,
	RiskHigh:     15,
	RiskCritical: 30,
}

// ImpactAssessor classifies the impact of switching a category's default
// from one registered version to another. Assessment is a pure function of
// the target version's metadata; it has no side effects and is safe to call
// repeatedly and speculatively (e.g. for a UI preview).
type ImpactAssessor struct {
	registry *VersionRegistry
}

// NewImpactAssessor creates an assessor reading version metadata from the registry.
func NewImpactAssessor(registry *VersionRegistry) *ImpactAssessor {
	return &ImpactAssessor{registry: registry}
}

// Assess computes the risk level, breaking changes, and rollback estimate for
// a from/to version change within a category.
//
// Risk derivation: a major change is high risk, or critical when it also
// requires a data migration; a minor change is medium risk; anything else is
// low risk.
func (a *ImpactAssessor) Assess(category TemplateCategory, fromVersion, toVersion string) (*ImpactAssessment, error) {
	target, err := a.registry.GetVersion(toVersion)
	if err != nil {
		return nil, err
	}
	if target == nil {
		return nil, fmt.Errorf("target version %s is not registered", toVersion)
	}
	if target.Category != string(category) {
		return nil, fmt.Errorf("version %s belongs to category %s, not %s", toVersion, target.Category, category)
	}

	risk := RiskLow
	switch ChangeType(target.ChangeType) {
	case ChangeMajor:
		risk = RiskHigh
		if target.DataMigrationRequired {
			risk = RiskCritical
		}
	case ChangeMinor:
		risk = RiskMedium
	}

	return &ImpactAssessment{
		RiskLevel:               risk,
		BreakingChanges:         []string(target.BreakingChanges),
		UserImpactSummary:       impactSummary(category, risk, len(target.BreakingChanges)),
		RollbackEstimateMinutes: rollbackEstimateMinutes[risk],
		DataMigrationRequired:   target.DataMigrationRequired,
		UserTrainingRequired:    target.UserTrainingRequired,
	}, nil
}

// impactSummary builds a one-line description of the expected user impact.
func impactSummary(category TemplateCategory, risk RiskLevel, breakingCount int) string {
	switch {
	case breakingCount > 0:
		return fmt.Sprintf("%s documents generated after the change will use the new default template; %d breaking change(s) affect existing workflows", category, breakingCount)
	case risk == RiskLow:
		return fmt.Sprintf("%s documents generated after the change will use the new default template; no workflow impact expected", category)
	default:
		return fmt.Sprintf("%s documents generated after the change will use the new default template; layout or field changes may be visible to users", category)
	}
}
