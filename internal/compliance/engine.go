package compliance

import (
	"fmt"
	"math/rand"
	"strings"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/jamesenki/payments-ingestion-sub001/internal/model"
)

// History sizing. Pattern rules only need a shallow recent window.
const (
	historyMaxCustomers = 1024
	historyDepth        = 16
)

// Engine evaluates configured scenarios against transactions, mutating them
// to create the violating condition and attaching the matching violation.
// Scenario application is idempotent: re-firing a scenario whose corruption
// is already present neither re-corrupts nor duplicates the violation.
//
// The engine owns the per-customer history and must only be used from a
// single goroutine.
type Engine struct {
	rng     *rand.Rand
	history *customerHistory
	logger  *zap.Logger
}

// NewEngine builds an engine around an injected random source. Passing the
// source explicitly keeps runs reproducible under a fixed seed.
func NewEngine(rng *rand.Rand, logger *zap.Logger) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{
		rng:     rng,
		history: newCustomerHistory(historyMaxCustomers, historyDepth),
		logger:  logger,
	}
}

// Apply evaluates every scenario in declaration order against an independent
// Bernoulli draw and returns the violations attached during this call.
// Multiple scenarios may fire on the same transaction. Errors in one
// transaction's evaluation never abort the batch; malformed scenarios are
// rejected at configuration load, not here.
func (e *Engine) Apply(tx *model.Transaction, scenarios []ScenarioConfig) []model.Violation {
	before := len(tx.Violations)
	for _, sc := range scenarios {
		if sc.Probability <= 0 {
			continue
		}
		if sc.Probability < 1 && e.rng.Float64() >= sc.Probability {
			continue
		}
		e.inject(tx, sc)
	}
	// Record after mutation so pattern rules see the amounts that were
	// actually published.
	e.history.Record(tx.Customer.ID, tx.Timestamp, tx.Amount)
	return tx.Violations[before:]
}

func (e *Engine) inject(tx *model.Transaction, sc ScenarioConfig) {
	switch sc.Kind {
	case model.ViolationStructuring:
		e.injectStructuring(tx, sc)
	case model.ViolationLargeAmount:
		e.injectLargeAmount(tx, sc)
	case model.ViolationRapidFire:
		e.injectRapidFire(tx, sc)
	case model.ViolationMissingKYCField:
		e.injectMissingKYC(tx)
	case model.ViolationInvalidEmail:
		e.injectInvalidEmail(tx)
	case model.ViolationMissingCardData:
		e.injectMissingCardData(tx)
	case model.ViolationInvalidAmount:
		e.injectInvalidAmount(tx)
	case model.ViolationStatusMismatch:
		e.injectStatusMismatch(tx)
	case model.ViolationOrphanRefund:
		e.injectOrphanRefund(tx)
	case model.ViolationCurrencyMismatch:
		e.injectCurrencyMismatch(tx)
	}
}

// injectStructuring forces the amount just under the reporting threshold and
// flags the sub-threshold pattern seen for this customer.
func (e *Engine) injectStructuring(tx *model.Transaction, sc ScenarioConfig) {
	threshold := decimal.NewFromFloat(sc.threshold())
	if tx.Amount.GreaterThanOrEqual(threshold) {
		// 85-99% of threshold, so repeated hits cluster just below it.
		factor := 0.85 + 0.14*e.rng.Float64()
		tx.Amount = threshold.Mul(decimal.NewFromFloat(factor)).Round(2)
	}
	prior := e.history.CountBelowWithin(tx.Customer.ID, threshold, sc.window(), tx.Timestamp)
	tx.AddViolation(model.Violation{
		Kind:     model.ViolationStructuring,
		Severity: severityFor(model.ViolationStructuring, 0),
		Description: fmt.Sprintf("amount %s just below threshold %s; %d prior sub-threshold transactions within %s",
			tx.Amount, threshold, prior, sc.window()),
	})
}

// injectLargeAmount guarantees the amount exceeds the threshold and grades
// severity by how far above it landed.
func (e *Engine) injectLargeAmount(tx *model.Transaction, sc ScenarioConfig) {
	threshold := decimal.NewFromFloat(sc.threshold())
	if tx.Amount.LessThanOrEqual(threshold) {
		factor := 2 + e.rng.Float64()
		tx.Amount = threshold.Mul(decimal.NewFromFloat(factor)).Round(2)
	}
	magnitude, _ := tx.Amount.Div(threshold).Float64()
	tx.AddViolation(model.Violation{
		Kind:     model.ViolationLargeAmount,
		Severity: severityFor(model.ViolationLargeAmount, magnitude),
		Description: fmt.Sprintf("amount %s is %.1fx the %s threshold",
			tx.Amount, magnitude, threshold),
	})
}

// injectRapidFire flags burst activity. Severity escalates once the
// customer's windowed count reaches the scenario's min_count.
func (e *Engine) injectRapidFire(tx *model.Transaction, sc ScenarioConfig) {
	recent := e.history.CountWithin(tx.Customer.ID, sc.window(), tx.Timestamp) + 1
	magnitude := float64(recent) / float64(sc.minCount())
	tx.AddViolation(model.Violation{
		Kind:     model.ViolationRapidFire,
		Severity: severityFor(model.ViolationRapidFire, magnitude),
		Description: fmt.Sprintf("%d transactions for customer %s within %s (flagging minimum: %d)",
			recent, tx.Customer.ID, sc.window(), sc.minCount()),
	})
}

func (e *Engine) injectMissingKYC(tx *model.Transaction) {
	if tx.Customer.Name != "" || tx.Customer.Country != "" {
		tx.Customer.Name = ""
		tx.Customer.Country = ""
	}
	tx.AddViolation(model.Violation{
		Kind:        model.ViolationMissingKYCField,
		Severity:    severityFor(model.ViolationMissingKYCField, 0),
		Description: "customer name and country stripped from KYC record",
	})
}

func (e *Engine) injectInvalidEmail(tx *model.Transaction) {
	if strings.Contains(tx.Customer.Email, "@") {
		tx.Customer.Email = strings.Replace(tx.Customer.Email, "@", "-at-", 1)
	}
	tx.AddViolation(model.Violation{
		Kind:        model.ViolationInvalidEmail,
		Severity:    severityFor(model.ViolationInvalidEmail, 0),
		Description: fmt.Sprintf("customer email %q fails address validation", tx.Customer.Email),
	})
}

func (e *Engine) injectMissingCardData(tx *model.Transaction) {
	if tx.Metadata != nil {
		delete(tx.Metadata, model.MetaCardLastFour)
	}
	tx.AddViolation(model.Violation{
		Kind:        model.ViolationMissingCardData,
		Severity:    severityFor(model.ViolationMissingCardData, 0),
		Description: "card data absent for a card payment",
	})
}

func (e *Engine) injectInvalidAmount(tx *model.Transaction) {
	if tx.Amount.IsPositive() {
		tx.Amount = tx.Amount.Neg()
	}
	tx.AddViolation(model.Violation{
		Kind:        model.ViolationInvalidAmount,
		Severity:    severityFor(model.ViolationInvalidAmount, 0),
		Description: fmt.Sprintf("non-positive amount %s", tx.Amount),
	})
}

// injectStatusMismatch reports success while the gateway outcome says
// otherwise.
func (e *Engine) injectStatusMismatch(tx *model.Transaction) {
	tx.Status = model.StatusCompleted
	if tx.Metadata == nil {
		tx.Metadata = make(map[string]string)
	}
	tx.Metadata["gateway_status"] = "declined"
	tx.AddViolation(model.Violation{
		Kind:        model.ViolationStatusMismatch,
		Severity:    severityFor(model.ViolationStatusMismatch, 0),
		Description: "status completed but gateway reported declined",
	})
}

// injectOrphanRefund marks the record refunded with no originating reference.
func (e *Engine) injectOrphanRefund(tx *model.Transaction) {
	tx.Status = model.StatusRefunded
	if tx.Metadata != nil {
		delete(tx.Metadata, model.MetaReferenceID)
	}
	tx.AddViolation(model.Violation{
		Kind:        model.ViolationOrphanRefund,
		Severity:    severityFor(model.ViolationOrphanRefund, 0),
		Description: "refund without an originating transaction reference",
	})
}

func (e *Engine) injectCurrencyMismatch(tx *model.Transaction) {
	mismatched := "USD"
	if tx.Currency == "USD" {
		mismatched = "INR"
	}
	if tx.Currency != mismatched {
		tx.Currency = mismatched
	}
	tx.AddViolation(model.Violation{
		Kind:     model.ViolationCurrencyMismatch,
		Severity: severityFor(model.ViolationCurrencyMismatch, 0),
		Description: fmt.Sprintf("currency %s inconsistent with merchant country %s",
			tx.Currency, tx.Merchant.Country),
	})
}

// TrackedCustomers exposes the current history population for diagnostics.
func (e *Engine) TrackedCustomers() int { return e.history.Len() }
