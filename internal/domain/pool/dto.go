// internal/domain/pool/dto.go
package pool

// UnitAssignment identifies a precious-item unit submitted on approval,
// optionally overwriting its system serial number.
type UnitAssignment struct {
	ID                 int64   `json:"id" binding:"required"`
	SystemSerialNumber *string `json:"system_serial_number,omitempty"`
}

// ContributionDecisionRequest is the admin decision payload for a pool
// contribution. Units and asset contribution ids are required only for the
// final (approved) decision.
type ContributionDecisionRequest struct {
	Status               ContributionStatus `json:"status" binding:"required"`
	PreciousItemUnits    []UnitAssignment   `json:"precious_item_units,omitempty"`
	AssetContributionIDs []int64            `json:"asset_contribution,omitempty"`
}

// PoolDetailsResponse renders a pool together with its computed remainders.
type PoolDetailsResponse struct {
	Pool                   *Pool           `json:"pool"`
	RemainingTarget        RemainingTarget `json:"remaining_target"`
	ActualRemainingForUser *SimpleTarget   `json:"actual_remaining_for_user,omitempty"`
}
