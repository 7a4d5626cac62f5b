package compliance

import (
	"fmt"
	"math/rand"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/jamesenki/payments-ingestion-sub001/internal/model"
)

func newTestTx(amount float64) *model.Transaction {
	return &model.Transaction{
		ID:            "tx-test-0001",
		Timestamp:     time.Now(),
		Amount:        decimal.NewFromFloat(amount),
		Currency:      "INR",
		PaymentMethod: "card",
		Status:        model.StatusCompleted,
		Customer: model.Customer{
			ID:      "cust-0001",
			Name:    "Asha Rao",
			Email:   "asha.rao@example.com",
			Country: "IN",
		},
		Merchant: model.Merchant{ID: "merch-0001", Name: "Test Mart", Category: "retail", Country: "IN"},
		Metadata: map[string]string{
			model.MetaCardLastFour: "4242",
			model.MetaReferenceID:  "ref-0001",
		},
	}
}

func TestApply_probabilityOneAlwaysFires(t *testing.T) {
	for _, kind := range model.ViolationKinds {
		kind := kind
		t.Run(string(kind), func(t *testing.T) {
			eng := NewEngine(rand.New(rand.NewSource(1)), nil)
			scenarios := []ScenarioConfig{{Kind: kind, Probability: 1.0, Threshold: 500}}

			for i := 0; i < 20; i++ {
				tx := newTestTx(100)
				tx.ID = fmt.Sprintf("tx-%04d", i)
				added := eng.Apply(tx, scenarios)
				require.NotEmpty(t, added)
				require.True(t, tx.HasViolation(kind), "expected violation of kind %s", kind)
			}
		})
	}
}

func TestApply_probabilityZeroNeverFires(t *testing.T) {
	eng := NewEngine(rand.New(rand.NewSource(1)), nil)
	scenarios := []ScenarioConfig{}
	for _, kind := range model.ViolationKinds {
		scenarios = append(scenarios, ScenarioConfig{Kind: kind, Probability: 0})
	}

	for i := 0; i < 100; i++ {
		tx := newTestTx(100)
		added := eng.Apply(tx, scenarios)
		require.Empty(t, added)
		require.Empty(t, tx.Violations)
	}
}

func TestApply_idempotentPerKind(t *testing.T) {
	eng := NewEngine(rand.New(rand.NewSource(1)), nil)
	sc := ScenarioConfig{Kind: model.ViolationInvalidEmail, Probability: 1.0}

	tx := newTestTx(100)
	eng.Apply(tx, []ScenarioConfig{sc})
	corrupted := tx.Customer.Email
	require.NotContains(t, corrupted, "@")

	// Re-applying the same scenario must not duplicate the violation nor
	// re-corrupt the field.
	eng.Apply(tx, []ScenarioConfig{sc})
	require.Len(t, tx.Violations, 1)
	require.Equal(t, corrupted, tx.Customer.Email)
}

func TestLargeAmount_severityScalesWithMagnitude(t *testing.T) {
	cases := []struct {
		amount   float64
		severity model.Severity
	}{
		{600, model.SeverityMedium},   // 1.2x
		{1000, model.SeverityHigh},    // 2.0x
		{1500, model.SeverityCritical}, // 3.0x
	}
	for _, tc := range cases {
		eng := NewEngine(rand.New(rand.NewSource(1)), nil)
		tx := newTestTx(tc.amount)
		eng.Apply(tx, []ScenarioConfig{{Kind: model.ViolationLargeAmount, Probability: 1.0, Threshold: 500}})

		require.Len(t, tx.Violations, 1)
		require.Equal(t, model.ViolationLargeAmount, tx.Violations[0].Kind)
		require.Equal(t, tc.severity, tx.Violations[0].Severity, "amount %v", tc.amount)
	}
}

func TestLargeAmount_inflatesSubThresholdAmounts(t *testing.T) {
	eng := NewEngine(rand.New(rand.NewSource(1)), nil)
	tx := newTestTx(100)
	eng.Apply(tx, []ScenarioConfig{{Kind: model.ViolationLargeAmount, Probability: 1.0, Threshold: 500}})

	require.True(t, tx.Amount.GreaterThan(decimal.NewFromInt(500)),
		"amount %s should exceed threshold after injection", tx.Amount)
}

func TestStructuring_forcesAmountBelowThreshold(t *testing.T) {
	eng := NewEngine(rand.New(rand.NewSource(2)), nil)
	threshold := decimal.NewFromInt(10000)

	for i := 0; i < 5; i++ {
		tx := newTestTx(25000)
		tx.Timestamp = time.Now()
		eng.Apply(tx, []ScenarioConfig{{Kind: model.ViolationStructuring, Probability: 1.0, Threshold: 10000}})
		require.True(t, tx.Amount.LessThan(threshold))
		require.True(t, tx.HasViolation(model.ViolationStructuring))
	}
}

func TestRapidFire_severityEscalatesAtMinCount(t *testing.T) {
	eng := NewEngine(rand.New(rand.NewSource(5)), nil)
	sc := ScenarioConfig{Kind: model.ViolationRapidFire, Probability: 1.0, Window: time.Hour, MinCount: 3}
	base := time.Now()

	var severities []model.Severity
	for i := 0; i < 4; i++ {
		tx := newTestTx(100)
		tx.Timestamp = base.Add(time.Duration(i) * time.Second)
		eng.Apply(tx, []ScenarioConfig{sc})
		require.Len(t, tx.Violations, 1)
		severities = append(severities, tx.Violations[0].Severity)
	}

	// The third transaction is the min_count-th inside the window.
	require.Equal(t, []model.Severity{
		model.SeverityMedium,
		model.SeverityMedium,
		model.SeverityHigh,
		model.SeverityHigh,
	}, severities)
}

func TestApply_multipleScenariosMayFireTogether(t *testing.T) {
	eng := NewEngine(rand.New(rand.NewSource(1)), nil)
	tx := newTestTx(100)
	eng.Apply(tx, []ScenarioConfig{
		{Kind: model.ViolationInvalidEmail, Probability: 1.0},
		{Kind: model.ViolationMissingCardData, Probability: 1.0},
	})
	require.Len(t, tx.Violations, 2)
	require.Equal(t, model.ViolationInvalidEmail, tx.Violations[0].Kind)
	require.Equal(t, model.ViolationMissingCardData, tx.Violations[1].Kind)
}

func TestApply_deterministicUnderFixedSeed(t *testing.T) {
	scenarios := []ScenarioConfig{
		{Kind: model.ViolationInvalidEmail, Probability: 0.5},
		{Kind: model.ViolationLargeAmount, Probability: 0.3, Threshold: 500},
	}

	run := func() []int {
		eng := NewEngine(rand.New(rand.NewSource(77)), nil)
		var counts []int
		for i := 0; i < 50; i++ {
			tx := newTestTx(100)
			counts = append(counts, len(eng.Apply(tx, scenarios)))
		}
		return counts
	}
	require.Equal(t, run(), run())
}

func TestCustomerHistory_oldestEvictedFirst(t *testing.T) {
	h := newCustomerHistory(2, 3)
	now := time.Now()
	amt := decimal.NewFromInt(10)

	h.Record("a", now.Add(-3*time.Minute), amt)
	h.Record("b", now.Add(-2*time.Minute), amt)
	require.Equal(t, 2, h.Len())

	// Third customer evicts "a", whose activity is stalest.
	h.Record("c", now.Add(-time.Minute), amt)
	require.Equal(t, 2, h.Len())
	require.Zero(t, h.CountWithin("a", time.Hour, now))
	require.Equal(t, 1, h.CountWithin("b", time.Hour, now))

	// Deque depth is bounded; oldest entries fall off.
	for i := 0; i < 5; i++ {
		h.Record("c", now.Add(time.Duration(i)*time.Second), amt)
	}
	require.Equal(t, 3, h.CountWithin("c", time.Hour, now.Add(time.Minute)))
}

func TestCustomerHistory_windowFiltering(t *testing.T) {
	h := newCustomerHistory(8, 8)
	now := time.Now()

	h.Record("a", now.Add(-10*time.Minute), decimal.NewFromInt(100))
	h.Record("a", now.Add(-2*time.Minute), decimal.NewFromInt(100))
	h.Record("a", now.Add(-time.Minute), decimal.NewFromInt(20000))

	require.Equal(t, 2, h.CountWithin("a", 5*time.Minute, now))
	require.Equal(t, 1, h.CountBelowWithin("a", decimal.NewFromInt(10000), 5*time.Minute, now))
}

func TestScenarioConfigValidate(t *testing.T) {
	require.NoError(t, ScenarioConfig{Kind: model.ViolationLargeAmount, Probability: 0.5, Threshold: 100}.Validate())
	require.Error(t, ScenarioConfig{Kind: "made_up", Probability: 0.5}.Validate())
	require.Error(t, ScenarioConfig{Kind: model.ViolationLargeAmount, Probability: 1.5}.Validate())
	require.Error(t, ScenarioConfig{Kind: model.ViolationLargeAmount, Probability: -0.1}.Validate())
	require.Error(t, ScenarioConfig{Kind: model.ViolationLargeAmount, Probability: 0.5, Threshold: -5}.Validate())
}
