package compliance

import (
	"time"

	"github.com/shopspring/decimal"
)

// historyEntry is one observed transaction for pattern detection.
type historyEntry struct {
	at     time.Time
	amount decimal.Decimal
}

// customerHistory keeps a bounded per-customer window of recent transactions
// for structuring and rapid-fire detection. It is a fixed-capacity map of
// bounded deques: each deque evicts its oldest entry on overflow, and when
// the map itself overflows the customer whose activity is stalest is dropped.
//
// The history is owned by the Engine and only touched from the single
// generation loop, so it carries no lock.
type customerHistory struct {
	maxCustomers int
	depth        int
	buckets      map[string]*historyBucket
}

type historyBucket struct {
	entries  []historyEntry
	lastSeen time.Time
}

func newCustomerHistory(maxCustomers, depth int) *customerHistory {
	return &customerHistory{
		maxCustomers: maxCustomers,
		depth:        depth,
		buckets:      make(map[string]*historyBucket, maxCustomers),
	}
}

// Record appends an observation for the customer, evicting oldest-first on
// either bound.
func (h *customerHistory) Record(customerID string, at time.Time, amount decimal.Decimal) {
	b, ok := h.buckets[customerID]
	if !ok {
		if len(h.buckets) >= h.maxCustomers {
			h.evictStalest()
		}
		b = &historyBucket{}
		h.buckets[customerID] = b
	}
	if len(b.entries) >= h.depth {
		b.entries = b.entries[1:]
	}
	b.entries = append(b.entries, historyEntry{at: at, amount: amount})
	if at.After(b.lastSeen) {
		b.lastSeen = at
	}
}

func (h *customerHistory) evictStalest() {
	var stalest string
	var stalestAt time.Time
	first := true
	for id, b := range h.buckets {
		if first || b.lastSeen.Before(stalestAt) {
			stalest = id
			stalestAt = b.lastSeen
			first = false
		}
	}
	if !first {
		delete(h.buckets, stalest)
	}
}

// CountWithin returns how many recorded transactions for the customer fall
// inside the window ending at now.
func (h *customerHistory) CountWithin(customerID string, window time.Duration, now time.Time) int {
	return h.count(customerID, window, now, func(historyEntry) bool { return true })
}

// CountBelowWithin returns how many recorded transactions for the customer
// fall inside the window and stay under the threshold.
func (h *customerHistory) CountBelowWithin(customerID string, threshold decimal.Decimal, window time.Duration, now time.Time) int {
	return h.count(customerID, window, now, func(e historyEntry) bool {
		return e.amount.LessThan(threshold)
	})
}

func (h *customerHistory) count(customerID string, window time.Duration, now time.Time, match func(historyEntry) bool) int {
	b, ok := h.buckets[customerID]
	if !ok {
		return 0
	}
	cutoff := now.Add(-window)
	n := 0
	for _, e := range b.entries {
		if e.at.Before(cutoff) {
			continue
		}
		if match(e) {
			n++
		}
	}
	return n
}

// Len reports how many customers are currently tracked.
func (h *customerHistory) Len() int { return len(h.buckets) }
