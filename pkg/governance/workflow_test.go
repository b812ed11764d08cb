package governance

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRequiredRoles(t *testing.T) {
	assert.Equal(t, []StakeholderRole{RoleTechnicalLead}, RequiredRoles(RiskLow))
	assert.Equal(t, []StakeholderRole{RoleTechnicalLead, RoleDesignLead}, RequiredRoles(RiskMedium))
	assert.Equal(t, []StakeholderRole{RoleTechnicalLead, RoleDesignLead, RoleProductOwner}, RequiredRoles(RiskHigh))
	assert.Equal(t, []StakeholderRole{RoleTechnicalLead, RoleDesignLead, RoleProductOwner, RoleBusinessOwner}, RequiredRoles(RiskCritical))

	// Callers get a copy, not the shared matrix.
	roles := RequiredRoles(RiskMedium)
	roles[0] = RoleBusinessOwner
	assert.Equal(t, RoleTechnicalLead, RequiredRoles(RiskMedium)[0])
}

func TestQuorumReached(t *testing.T) {
	approvals := []StakeholderApprovalRecord{
		{Role: "technical_lead", Required: true},
		{Role: "design_lead", Required: true},
		{Role: "product_owner", Required: true},
	}
	assert.False(t, QuorumReached(approvals))

	// Approvals in arbitrary order; quorum only at the full set.
	approvals[2].Approved = true
	assert.False(t, QuorumReached(approvals))
	approvals[0].Approved = true
	assert.False(t, QuorumReached(approvals))
	approvals[1].Approved = true
	assert.True(t, QuorumReached(approvals))

	// An empty approval set never satisfies quorum.
	assert.False(t, QuorumReached(nil))
}

func TestStaticDirectory_Resolve(t *testing.T) {
	dir := NewStaticDirectory(map[StakeholderRole]Stakeholder{
		RoleTechnicalLead: {Name: "ted", Email: "ted@example.com"},
	})

	s, err := dir.Resolve(RoleTechnicalLead)
	require.NoError(t, err)
	assert.Equal(t, "ted", s.Name)

	_, err = dir.Resolve(RoleBusinessOwner)
	assert.Error(t, err)
}
