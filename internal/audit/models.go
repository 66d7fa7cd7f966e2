package audit

import (
	"time"

	id "agriproof/pkg/domain"
)

// Action names a registry event. These mirror the on-chain contract events so
// downstream consumers see the same vocabulary regardless of deployment
// target.
type Action string

const (
	ActionFarmerEnrolled       Action = "farmer_enrolled"
	ActionClaimSubmitted       Action = "claim_submitted"
	ActionClaimVerified        Action = "claim_verified"
	ActionVerifierAdded        Action = "verifier_added"
	ActionVerifierRemoved      Action = "verifier_removed"
	ActionCredentialRegistered Action = "credential_registered"
	ActionTokenIssued          Action = "token_issued"
)

// Category classifies events for routing and retention.
type Category string

const (
	// CategoryCompliance covers registry state changes with evidentiary
	// significance: the record downstream insurers and auditors consume.
	CategoryCompliance Category = "compliance"

	// CategoryOperations covers routine activity useful for debugging;
	// shorter retention, may be sampled.
	CategoryOperations Category = "operations"
)

var actionCategories = map[Action]Category{
	ActionFarmerEnrolled:       CategoryCompliance,
	ActionClaimSubmitted:       CategoryCompliance,
	ActionClaimVerified:        CategoryCompliance,
	ActionVerifierAdded:        CategoryCompliance,
	ActionVerifierRemoved:      CategoryCompliance,
	ActionCredentialRegistered: CategoryOperations,
	ActionTokenIssued:          CategoryOperations,
}

// Category returns the category for this action. Unknown actions default to
// operations.
func (a Action) Category() Category {
	if cat, ok := actionCategories[a]; ok {
		return cat
	}
	return CategoryOperations
}

// Event is emitted from domain logic after a successful state change. Keep it
// transport-agnostic so stores and sinks can fan out.
type Event struct {
	ID        string     `json:"id"`
	Action    Action     `json:"action"`
	Category  Category   `json:"category"`
	Timestamp time.Time  `json:"timestamp"`
	Actor     id.Address `json:"actor"`             // who performed the action
	Subject   id.Address `json:"subject,omitempty"` // who the action affected, when different
	Decision  string     `json:"decision,omitempty"`
	Reason    string     `json:"reason,omitempty"`
	RequestID string     `json:"request_id,omitempty"`
}
