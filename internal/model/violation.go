package model

// ViolationKind is the closed taxonomy of compliance violations the engine
// can inject.
type ViolationKind string

const (
	ViolationStructuring      ViolationKind = "structuring"
	ViolationLargeAmount      ViolationKind = "large_amount"
	ViolationRapidFire        ViolationKind = "rapid_fire"
	ViolationMissingKYCField  ViolationKind = "missing_kyc_field"
	ViolationInvalidEmail     ViolationKind = "invalid_email"
	ViolationMissingCardData  ViolationKind = "missing_card_data"
	ViolationInvalidAmount    ViolationKind = "invalid_amount"
	ViolationStatusMismatch   ViolationKind = "status_mismatch"
	ViolationOrphanRefund     ViolationKind = "orphan_refund"
	ViolationCurrencyMismatch ViolationKind = "currency_mismatch"
)

// ViolationKinds lists every kind in the taxonomy.
var ViolationKinds = []ViolationKind{
	ViolationStructuring,
	ViolationLargeAmount,
	ViolationRapidFire,
	ViolationMissingKYCField,
	ViolationInvalidEmail,
	ViolationMissingCardData,
	ViolationInvalidAmount,
	ViolationStatusMismatch,
	ViolationOrphanRefund,
	ViolationCurrencyMismatch,
}

// Severity classifies how serious a violation is.
type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

// Violation is one compliance finding attached to a transaction.
type Violation struct {
	Kind        ViolationKind `json:"kind"`
	Severity    Severity      `json:"severity"`
	Description string        `json:"description"`
}
