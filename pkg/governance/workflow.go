package governance

import "fmt"

// approvalMatrix maps risk level to the set of roles whose approval is
// required before a change can be confirmed. Approvals may arrive in any
// order; quorum is a set-membership check, not a sequence check.
var approvalMatrix = map[RiskLevel][]StakeholderRole{
	RiskLow:      {RoleTechnicalLead},
	RiskMedium:   {RoleTechnicalLead, RoleDesignLead},
	RiskHigh:     {RoleTechnicalLead, RoleDesignLead, RoleProductOwner},
	RiskCritical: {RoleTechnicalLead, RoleDesignLead, RoleProductOwner, RoleBusinessOwner},
}

// RequiredRoles returns the roles required to approve a change at the given
// risk level. The returned slice is a copy.
func RequiredRoles(risk RiskLevel) []StakeholderRole {
	roles := approvalMatrix[risk]
	out := make([]StakeholderRole, len(roles))
	copy(out, roles)
	return out
}

// ApprovalMatrix returns the full risk-to-roles mapping, for API consumers
// that preview approval requirements.
func ApprovalMatrix() map[RiskLevel][]StakeholderRole {
	out := make(map[RiskLevel][]StakeholderRole, len(approvalMatrix))
	for risk := range approvalMatrix {
		out[risk] = RequiredRoles(risk)
	}
	return out
}

// Stakeholder is a resolved approver identity.
type Stakeholder struct {
	Name  string `yaml:"name" json:"name"`
	Email string `yaml:"email" json:"email"`
}

// StakeholderDirectory resolves an approval role to exactly one stakeholder
// identity. Implementations are injected; tests use a fixed in-memory
// directory.
type StakeholderDirectory interface {
	Resolve(role StakeholderRole) (Stakeholder, error)
}

// StaticDirectory is a fixed role-to-stakeholder mapping, typically loaded
// from the governance config file.
type StaticDirectory struct {
	entries map[StakeholderRole]Stakeholder
}

// NewStaticDirectory creates a directory over a fixed mapping.
func NewStaticDirectory(entries map[StakeholderRole]Stakeholder) *StaticDirectory {
	if entries == nil {
		entries = make(map[StakeholderRole]Stakeholder)
	}
	return &StaticDirectory{entries: entries}
}

// Resolve implements StakeholderDirectory.
func (d *StaticDirectory) Resolve(role StakeholderRole) (Stakeholder, error) {
	s, ok := d.entries[role]
	if !ok {
		return Stakeholder{}, fmt.Errorf("no stakeholder configured for role %s", role)
	}
	return s, nil
}

// QuorumReached reports whether every required approval entry has been
// approved. Partial approval sets never satisfy quorum.
func QuorumReached(approvals []StakeholderApprovalRecord) bool {
	for _, a := range approvals {
		if a.Required && !a.Approved {
			return false
		}
	}
	return len(approvals) > 0
}
