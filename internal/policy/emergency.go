package policy

import (
	"context"

	"github.com/opensource-finance/warden/internal/domain"
)

// RequiredActionGeniusSLA asks disbursement to complete within the GENIUS Act four-hour window.
const RequiredActionGeniusSLA = "GENIUS_ACT_4H_SLA"

// Emergency never denies. It tags the decision so downstream disbursement
// meets the four-hour settlement requirement.
type Emergency struct {
	program string
}

// NewEmergency creates the emergency policy for one program code.
func NewEmergency(program string) *Emergency {
	return &Emergency{program: program}
}

func (p *Emergency) Program() string { return p.program }

func (p *Emergency) Check(ctx context.Context, tx *domain.TransactionContext) (domain.CheckResult, error) {
	return domain.CheckResult{Allowed: true, RequiredActions: []string{RequiredActionGeniusSLA}}, nil
}
