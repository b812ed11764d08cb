package governance

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestImpactAssessor_RiskDerivation(t *testing.T) {
	registry := NewVersionRegistry(newTestDB(t))
	assessor := NewImpactAssessor(registry)

	versions := []*TemplateVersionRecord{
		testVersion("inv-patch", CategoryInvoice, ChangePatch),
		testVersion("inv-minor", CategoryInvoice, ChangeMinor),
		testVersion("inv-major", CategoryInvoice, ChangeMajor),
	}
	migrating := testVersion("inv-major-mig", CategoryInvoice, ChangeMajor)
	migrating.DataMigrationRequired = true
	migrating.BreakingChanges = JSONStringSlice{"line item column removed"}
	versions = append(versions, migrating)
	for _, v := range versions {
		require.NoError(t, registry.RegisterVersion(v))
	}

	cases := []struct {
		name            string
		toVersion       string
		wantRisk        RiskLevel
		wantRollbackMin int
	}{
		{"patch is low", "inv-patch", RiskLow, 5},
		{"minor is medium", "inv-minor", RiskMedium, 10},
		{"major is high", "inv-major", RiskHigh, 15},
		{"major with migration is critical", "inv-major-mig", RiskCritical, 30},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			impact, err := assessor.Assess(CategoryInvoice, "inv-v0", tc.toVersion)
			require.NoError(t, err)
			assert.Equal(t, tc.wantRisk, impact.RiskLevel)
			assert.Equal(t, tc.wantRollbackMin, impact.RollbackEstimateMinutes)
			assert.NotEmpty(t, impact.UserImpactSummary)
		})
	}
}

func TestImpactAssessor_CarriesVersionMetadata(t *testing.T) {
	registry := NewVersionRegistry(newTestDB(t))
	assessor := NewImpactAssessor(registry)

	v := testVersion("est-v2", CategoryEstimate, ChangeMajor)
	v.DataMigrationRequired = true
	v.UserTrainingRequired = true
	v.BreakingChanges = JSONStringSlice{"tax field renamed", "footer removed"}
	require.NoError(t, registry.RegisterVersion(v))

	impact, err := assessor.Assess(CategoryEstimate, "est-v1", "est-v2")
	require.NoError(t, err)
	assert.Equal(t, RiskCritical, impact.RiskLevel)
	assert.Equal(t, []string{"tax field renamed", "footer removed"}, impact.BreakingChanges)
	assert.True(t, impact.DataMigrationRequired)
	assert.True(t, impact.UserTrainingRequired)
}

func TestImpactAssessor_RejectsUnknownOrForeignVersions(t *testing.T) {
	registry := NewVersionRegistry(newTestDB(t))
	assessor := NewImpactAssessor(registry)

	require.NoError(t, registry.RegisterVersion(testVersion("rec-v2", CategoryReceipt, ChangePatch)))

	_, err := assessor.Assess(CategoryReceipt, "rec-v1", "missing")
	assert.Error(t, err)

	// Version registered under a different category.
	_, err = assessor.Assess(CategoryInvoice, "inv-v1", "rec-v2")
	assert.Error(t, err)
}
