// Package model holds the wire-stable payment record types shared by the
// generator, compliance engine and publishers. Downstream schema consumers
// depend on the JSON field set staying fixed.
package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Customer identity fields attached to a transaction.
type Customer struct {
	ID      string `json:"customer_id"`
	Name    string `json:"customer_name"`
	Email   string `json:"customer_email"`
	Country string `json:"customer_country"`
}

// Merchant identity fields attached to a transaction.
type Merchant struct {
	ID       string `json:"merchant_id"`
	Name     string `json:"merchant_name"`
	Category string `json:"merchant_category"`
	Country  string `json:"merchant_country"`
}

// Transaction is one generated payment record. The generator creates it, the
// compliance engine may mutate it to attach violations or corrupt fields, and
// it is immutable from publish onward.
type Transaction struct {
	ID            string            `json:"transaction_id"`
	Timestamp     time.Time         `json:"timestamp"`
	Amount        decimal.Decimal   `json:"amount"`
	Currency      string            `json:"currency"`
	PaymentMethod string            `json:"payment_method"`
	Status        string            `json:"status"`
	Customer      Customer          `json:"customer"`
	Merchant      Merchant          `json:"merchant"`
	Metadata      map[string]string `json:"metadata,omitempty"`
	Violations    []Violation       `json:"violations,omitempty"`
}

// HasViolation reports whether a violation of the given kind is already
// attached. Used to keep scenario application idempotent.
func (t *Transaction) HasViolation(kind ViolationKind) bool {
	for _, v := range t.Violations {
		if v.Kind == kind {
			return true
		}
	}
	return false
}

// AddViolation appends a violation unless one of the same kind is present.
func (t *Transaction) AddViolation(v Violation) {
	if t.HasViolation(v.Kind) {
		return
	}
	t.Violations = append(t.Violations, v)
}

// Batch is the unit of generation and publishing: an ordered, finite set of
// transactions produced by one generation cycle.
type Batch []*Transaction

// IDs returns the transaction identifiers in batch order.
func (b Batch) IDs() []string {
	ids := make([]string, len(b))
	for i, tx := range b {
		ids[i] = tx.ID
	}
	return ids
}

// Payment status values.
const (
	StatusCompleted = "completed"
	StatusPending   = "pending"
	StatusFailed    = "failed"
	StatusRefunded  = "refunded"
)

// Metadata keys written by the generator.
const (
	MetaRiskScore    = "risk_score"
	MetaIPAddress    = "ip_address"
	MetaCardLastFour = "card_last_four"
	MetaReferenceID  = "reference_id"
)
