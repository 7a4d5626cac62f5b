package compliance

import (
	"github.com/jamesenki/payments-ingestion-sub001/internal/model"
)

// severityFor maps (kind, magnitude) to a severity. The mapping is a total,
// deterministic function: two engines given the same transaction and scenario
// always agree. Magnitude matters for large_amount (ratio of amount to
// threshold) and rapid_fire (windowed count over the scenario's min_count).
// Kinds without a meaningful magnitude carry the fixed severities below:
//
//	structuring        high     (deliberate sub-threshold layering)
//	rapid_fire         medium, high once the windowed count reaches min_count
//	missing_kyc_field  medium
//	invalid_email      low
//	missing_card_data  high     (PCI-scope data loss)
//	invalid_amount     medium
//	status_mismatch    medium
//	orphan_refund      high
//	currency_mismatch  medium
func severityFor(kind model.ViolationKind, magnitude float64) model.Severity {
	switch kind {
	case model.ViolationLargeAmount:
		switch {
		case magnitude >= 3:
			return model.SeverityCritical
		case magnitude >= 2:
			return model.SeverityHigh
		default:
			return model.SeverityMedium
		}
	case model.ViolationRapidFire:
		if magnitude >= 1 {
			return model.SeverityHigh
		}
		return model.SeverityMedium
	case model.ViolationStructuring, model.ViolationMissingCardData, model.ViolationOrphanRefund:
		return model.SeverityHigh
	case model.ViolationInvalidEmail:
		return model.SeverityLow
	default:
		return model.SeverityMedium
	}
}
