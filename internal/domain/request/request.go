package request

import "time"

// Status represents the lifecycle status of a work request
type Status string

const (
	StatusPending    Status = "PENDING"
	StatusInProgress Status = "IN_PROGRESS"
	StatusApproved   Status = "APPROVED"
	StatusRejected   Status = "REJECTED"
	StatusCancelled  Status = "CANCELLED"
	StatusCompleted  Status = "COMPLETED"
)

var terminalStatuses = map[Status]bool{
	StatusRejected:  true,
	StatusCancelled: true,
	StatusCompleted: true,
}

// IsTerminal returns true if no further lifecycle mutation is permitted
func (s Status) IsTerminal() bool {
	return terminalStatuses[s]
}

// String returns the string representation of the status
func (s Status) String() string {
	return string(s)
}

// Priority determines the SLA window applied to a request
type Priority string

const (
	PriorityLow    Priority = "LOW"
	PriorityNormal Priority = "NORMAL"
	PriorityHigh   Priority = "HIGH"
	PriorityUrgent Priority = "URGENT"
)

var validPriorities = map[Priority]bool{
	PriorityLow:    true,
	PriorityNormal: true,
	PriorityHigh:   true,
	PriorityUrgent: true,
}

// IsValid returns true if the priority is a known priority level
func (p Priority) IsValid() bool {
	return validPriorities[p]
}

// Variant identifies the kind of custody request
type Variant string

const (
	VariantClaim             Variant = "CLAIM"
	VariantCampusTransfer    Variant = "CAMPUS_TRANSFER"
	VariantTransitTransfer   Variant = "TRANSIT_TRANSFER"
	VariantAirportTransfer   Variant = "AIRPORT_TRANSFER"
	VariantPoliceEvidence    Variant = "POLICE_EVIDENCE"
	VariantEmergencyTransit  Variant = "EMERGENCY_TRANSIT"
	VariantEnterpriseDispute Variant = "ENTERPRISE_DISPUTE"
)

var validVariants = map[Variant]bool{
	VariantClaim:             true,
	VariantCampusTransfer:    true,
	VariantTransitTransfer:   true,
	VariantAirportTransfer:   true,
	VariantPoliceEvidence:    true,
	VariantEmergencyTransit:  true,
	VariantEnterpriseDispute: true,
}

// IsValid returns true if the variant is one of the supported request kinds
func (v Variant) IsValid() bool {
	return validVariants[v]
}

// String returns the string representation of the variant
func (v Variant) String() string {
	return string(v)
}

// Role is an abstract approver role resolved to a concrete individual at
// routing time
type Role string

const (
	RoleCampusCoordinator        Role = "campus-coordinator"
	RolePropertyManager          Role = "property-manager"
	RoleTransitSupervisor        Role = "transit-supervisor"
	RoleAirportSecurityOfficer   Role = "airport-security-officer"
	RoleEvidenceCustodian        Role = "evidence-custodian"
	RoleHighValueVerifier        Role = "high-value-verifier"
	RoleLawEnforcementLiaison    Role = "law-enforcement-liaison"
	RoleEnhancedSecurityReviewer Role = "enhanced-security-reviewer"
	RoleDisputeArbiter           Role = "dispute-arbiter"
	RoleEnterpriseAdministrator  Role = "enterprise-administrator"
)

// WorkRequest is the central entity: a cross-organization custody action
// requiring sequential role approvals before the physical handoff is
// authorized.
type WorkRequest struct {
	ID      string  `json:"id"`
	Variant Variant `json:"variant"`
	Status  Status  `json:"status"`

	Priority Priority `json:"priority"`

	RequesterID         string `json:"requester_id"`
	RequesterOrg        string `json:"requester_org"`
	RequesterEnterprise string `json:"requester_enterprise"`
	TargetOrg           string `json:"target_org"`
	TargetEnterprise    string `json:"target_enterprise"`

	// Chain is the resolved approval chain. Immutable after creation.
	Chain []Role `json:"chain"`

	// StepIndex is the 0-based position of the step currently awaiting
	// approval. Equals len(Chain) only when all steps are consumed.
	StepIndex int `json:"step_index"`

	// ApproverID is the individual assigned to the current step. Nil means
	// the step is awaiting a routing assignment.
	ApproverID *string `json:"approver_id,omitempty"`

	Payload Payload `json:"payload"`

	// Version supports optimistic concurrency at the persistence boundary.
	Version int64 `json:"version"`

	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

// CurrentRole returns the role required at the current step, or false when
// every step has been consumed.
func (r *WorkRequest) CurrentRole() (Role, bool) {
	if r.StepIndex < 0 || r.StepIndex >= len(r.Chain) {
		return "", false
	}
	return r.Chain[r.StepIndex], true
}

// ChainExhausted returns true once every chain position has been consumed
func (r *WorkRequest) ChainExhausted() bool {
	return r.StepIndex >= len(r.Chain)
}
