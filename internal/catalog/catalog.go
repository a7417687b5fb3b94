// Package catalog defines the structural shape of each request variant and
// rejects invalid payloads before any state is created.
package catalog

import (
	"strings"

	"github.com/campusfound/custody-workflow/internal/domain/request"
)

// DefaultMinProofLength is the minimum proof-description length required
// for claims at or above the high-value threshold.
const DefaultMinProofLength = 40

// Catalog validates variant payloads. Pure and stateless: validation never
// creates or mutates records.
type Catalog struct {
	highValue      float64
	minProofLength int
}

// New creates a Catalog. highValue is the inclusive threshold above which a
// claim must carry a substantive proof description.
func New(highValue float64, minProofLength int) *Catalog {
	if minProofLength <= 0 {
		minProofLength = DefaultMinProofLength
	}
	return &Catalog{highValue: highValue, minProofLength: minProofLength}
}

// Validate checks the payload against the rules for the given variant.
// Returns a *request.ValidationError describing the first failing field.
func (c *Catalog) Validate(variant request.Variant, payload request.Payload) error {
	if !variant.IsValid() {
		return request.NewValidationError("variant", "unknown request variant")
	}

	switch variant {
	case request.VariantClaim:
		return c.validateClaim(payload)
	case request.VariantCampusTransfer, request.VariantTransitTransfer,
		request.VariantAirportTransfer, request.VariantEmergencyTransit:
		return c.validateTransfer(payload)
	case request.VariantPoliceEvidence:
		return c.validatePoliceEvidence(payload)
	case request.VariantEnterpriseDispute:
		return c.validateDispute(payload)
	}
	return nil
}

func (c *Catalog) validateClaim(p request.Payload) error {
	if p.Item == nil {
		return request.NewValidationError("item", "claim requires item details")
	}
	if p.Claim == nil {
		return request.NewValidationError("claim", "claim requires supporting details")
	}
	if strings.TrimSpace(p.Claim.SupportingDetail) == "" {
		return request.NewValidationError("claim.supporting_detail", "supporting detail must not be empty")
	}
	// High-value claims (inclusive boundary) need substantive proof; thin
	// proof is rejected outright rather than accepted and flagged later.
	if p.Item.Value >= c.highValue {
		if len(strings.TrimSpace(p.Claim.ProofDescription)) < c.minProofLength {
			return request.NewValidationError("claim.proof_description", "high-value claim requires a detailed proof description")
		}
	}
	return nil
}

func (c *Catalog) validateTransfer(p request.Payload) error {
	if p.Item == nil {
		return request.NewValidationError("item", "transfer requires item details")
	}
	if p.Transfer == nil {
		return request.NewValidationError("transfer", "transfer requires origin and destination scopes")
	}
	if strings.TrimSpace(p.Transfer.OriginScope) == "" {
		return request.NewValidationError("transfer.origin_scope", "origin scope is required")
	}
	if strings.TrimSpace(p.Transfer.DestinationScope) == "" {
		return request.NewValidationError("transfer.destination_scope", "destination scope is required")
	}
	return nil
}

func (c *Catalog) validatePoliceEvidence(p request.Payload) error {
	if p.Item == nil {
		return request.NewValidationError("item", "evidence request requires item details")
	}
	if p.Police == nil {
		return request.NewValidationError("police", "evidence request requires case details")
	}
	if strings.TrimSpace(p.Police.CaseNumber) == "" {
		return request.NewValidationError("police.case_number", "case number is required")
	}
	if p.Police.StolenCheck {
		if strings.TrimSpace(p.Police.SerialNumber) == "" &&
			strings.TrimSpace(p.Police.IMEI) == "" &&
			strings.TrimSpace(p.Police.OtherIdentifier) == "" {
			return request.NewValidationError("police", "stolen-property check requires a serial number, IMEI, or other identifier")
		}
	}
	return nil
}

func (c *Catalog) validateDispute(p request.Payload) error {
	if p.Item == nil {
		return request.NewValidationError("item", "dispute requires item details")
	}
	if p.Dispute == nil {
		return request.NewValidationError("dispute", "dispute requires claimant details")
	}
	if len(p.Dispute.Claimants) < 2 {
		return request.NewValidationError("dispute.claimants", "dispute requires at least two claimants")
	}
	return nil
}
