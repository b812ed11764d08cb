package governance

import (
	"fmt"
	"strings"
	"time"
)

// BuildConfirmationText builds the exact confirmation string a confirmer must
// later reproduce to finalize a change. The text is deterministic for a given
// input and is generated exactly once, at request creation; the confirm step
// only compares against the stored value, never regenerates it.
func BuildConfirmationText(category TemplateCategory, fromVersion, toVersion, requester string, impact *ImpactAssessment, date time.Time) string {
	var b strings.Builder

	fmt.Fprintf(&b, "I confirm changing the default %s template from version %s to version %s.",
		category, fromVersion, toVersion)

	if impact.RiskLevel == RiskHigh || impact.RiskLevel == RiskCritical {
		fmt.Fprintf(&b, " I understand this is a %s-risk change and may impact active business operations.",
			impact.RiskLevel)
	}

	if len(impact.BreakingChanges) > 0 {
		fmt.Fprintf(&b, " I acknowledge the following breaking changes: %s.",
			strings.Join(impact.BreakingChanges, "; "))
	}

	if impact.DataMigrationRequired {
		b.WriteString(" I confirm that the required data migration has been completed and verified.")
	}

	if impact.UserTrainingRequired {
		b.WriteString(" I confirm that user training for the new template has been completed.")
	}

	fmt.Fprintf(&b, " I understand that rollback to version %s is available and is estimated to take %d minutes.",
		fromVersion, impact.RollbackEstimateMinutes)

	fmt.Fprintf(&b, " Requested by %s on %s.", requester, date.UTC().Format("2006-01-02"))

	return b.String()
}

// ConfirmationMatches compares a submitted confirmation text against the
// stored one. Leading and trailing whitespace is ignored; any other
// deviation, including case, fails the match.
func ConfirmationMatches(submitted, stored string) bool {
	return strings.TrimSpace(submitted) == strings.TrimSpace(stored)
}
