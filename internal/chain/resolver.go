// Package chain computes the ordered list of approver roles a request must
// pass through. Resolution is a pure function of (variant, payload): no
// randomness and no external state, so a chain can be recomputed and
// asserted in tests.
package chain

import "github.com/campusfound/custody-workflow/internal/domain/request"

// Thresholds holds the value boundaries that drive chain escalation. Both
// boundaries are inclusive.
type Thresholds struct {
	HighValue     float64
	VeryHighValue float64
}

// DefaultThresholds returns the standard escalation boundaries
func DefaultThresholds() Thresholds {
	return Thresholds{
		HighValue:     500,
		VeryHighValue: 2000,
	}
}

// Resolver computes approval chains
type Resolver struct {
	thresholds Thresholds
}

// NewResolver creates a Resolver with the given escalation thresholds
func NewResolver(t Thresholds) *Resolver {
	return &Resolver{thresholds: t}
}

var baseChains = map[request.Variant][]request.Role{
	request.VariantClaim: {
		request.RoleCampusCoordinator,
	},
	request.VariantCampusTransfer: {
		request.RoleCampusCoordinator,
		request.RolePropertyManager,
	},
	request.VariantTransitTransfer: {
		request.RoleTransitSupervisor,
		request.RoleCampusCoordinator,
	},
	request.VariantAirportTransfer: {
		request.RoleAirportSecurityOfficer,
		request.RoleCampusCoordinator,
	},
	request.VariantPoliceEvidence: {
		request.RoleCampusCoordinator,
		request.RoleEvidenceCustodian,
	},
	request.VariantEmergencyTransit: {
		request.RoleTransitSupervisor,
		request.RoleAirportSecurityOfficer,
	},
	request.VariantEnterpriseDispute: {
		request.RoleCampusCoordinator,
		request.RoleDisputeArbiter,
		request.RoleEnterpriseAdministrator,
	},
}

// Resolve returns the ordered approval chain for a validated request.
//
// Escalation rules:
//   - item value >= HighValue inserts the high-value verifier immediately
//     after the base approver
//   - a secure-area find inserts the enhanced-security reviewer after the
//     verifier block
//   - item value >= VeryHighValue appends the law-enforcement liaison at
//     the end of the chain
func (r *Resolver) Resolve(variant request.Variant, payload request.Payload) []request.Role {
	base, ok := baseChains[variant]
	if !ok {
		return nil
	}

	value := payload.ItemValue()

	out := make([]request.Role, 0, len(base)+3)
	out = append(out, base[0])
	if value >= r.thresholds.HighValue {
		out = append(out, request.RoleHighValueVerifier)
	}
	if payload.FoundInSecureArea() {
		out = append(out, request.RoleEnhancedSecurityReviewer)
	}
	out = append(out, base[1:]...)
	if value >= r.thresholds.VeryHighValue {
		out = append(out, request.RoleLawEnforcementLiaison)
	}
	return out
}
