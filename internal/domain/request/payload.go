package request

// Payload carries the variant-specific fields of a work request. The
// workflow engine treats it as opaque except for the fields that feed
// chain resolution (item value, secure-area flag, stolen-check flag).
type Payload struct {
	Item     *ItemDetails     `json:"item,omitempty"`
	Claim    *ClaimDetails    `json:"claim,omitempty"`
	Transfer *TransferDetails `json:"transfer,omitempty"`
	Police   *PoliceDetails   `json:"police,omitempty"`
	Dispute  *DisputeDetails  `json:"dispute,omitempty"`
}

// ItemDetails describes the physical item whose custody is in question
type ItemDetails struct {
	ItemID        string  `json:"item_id"`
	Name          string  `json:"name"`
	Value         float64 `json:"value"`
	FoundLocation string  `json:"found_location,omitempty"`

	// SecureArea marks items found in secure or controlled zones
	// (e.g. airside at the airport); it triggers an enhanced-security
	// review step in the approval chain.
	SecureArea bool `json:"secure_area,omitempty"`
}

// ClaimDetails carries the claimant's supporting evidence
type ClaimDetails struct {
	SupportingDetail string `json:"supporting_detail"`
	ProofDescription string `json:"proof_description,omitempty"`
}

// TransferDetails identifies the custody endpoints of a transfer
type TransferDetails struct {
	OriginScope      string `json:"origin_scope"`
	DestinationScope string `json:"destination_scope"`
	Reason           string `json:"reason,omitempty"`
}

// PoliceDetails carries evidence-request fields. When StolenCheck is set,
// at least one identifying value must be present.
type PoliceDetails struct {
	CaseNumber      string `json:"case_number"`
	StolenCheck     bool   `json:"stolen_check"`
	SerialNumber    string `json:"serial_number,omitempty"`
	IMEI            string `json:"imei,omitempty"`
	OtherIdentifier string `json:"other_identifier,omitempty"`
}

// DisputeDetails lists the parties contesting custody of the same item
type DisputeDetails struct {
	Claimants []string `json:"claimants"`
	Summary   string   `json:"summary,omitempty"`
}

// ItemValue returns the declared item value, or 0 when no item is attached
func (p Payload) ItemValue() float64 {
	if p.Item == nil {
		return 0
	}
	return p.Item.Value
}

// FoundInSecureArea reports whether the item was recovered in a
// secure/controlled zone
func (p Payload) FoundInSecureArea() bool {
	return p.Item != nil && p.Item.SecureArea
}
