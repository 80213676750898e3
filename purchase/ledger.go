package purchase

import (
	"sync"
	"time"
)

type TokenState string

const (
	StateNoRequest           TokenState = "no_request"
	StateInvoiced            TokenState = "invoiced"
	StatePreCheckoutApproved TokenState = "precheckout_approved"
	StatePreCheckoutDeclined TokenState = "precheckout_declined"
	StateDelivered           TokenState = "delivered"
	StateRejected            TokenState = "rejected"
)

// terminal states are never left once entered.
func (s TokenState) terminal() bool {
	return s == StateDelivered || s == StatePreCheckoutDeclined
}

type ledgerEntry struct {
	state     TokenState
	updatedAt time.Time
}

// ledger tracks the in-process lifecycle of each payload token. Entries
// older than the retention window are dropped on the next write.
type ledger struct {
	mu        sync.Mutex
	entries   map[string]ledgerEntry
	retention time.Duration
	now       func() time.Time
	lastPrune time.Time
}

func newLedger(retention time.Duration, now func() time.Time) *ledger {
	return &ledger{
		entries:   make(map[string]ledgerEntry),
		retention: retention,
		now:       now,
	}
}

func (l *ledger) state(token string) TokenState {
	l.mu.Lock()
	defer l.mu.Unlock()

	e, ok := l.entries[token]
	if !ok {
		return StateNoRequest
	}
	return e.state
}

// advance moves token to next unless it already sits in a terminal state.
// It returns the state the token ends up in.
func (l *ledger) advance(token string, next TokenState) TokenState {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	l.pruneLocked(now)

	if e, ok := l.entries[token]; ok && e.state.terminal() {
		return e.state
	}
	l.entries[token] = ledgerEntry{state: next, updatedAt: now}
	return next
}

func (l *ledger) pruneLocked(now time.Time) {
	if l.retention <= 0 || now.Sub(l.lastPrune) < l.retention/24 {
		return
	}
	l.lastPrune = now
	for token, e := range l.entries {
		if now.Sub(e.updatedAt) > l.retention {
			delete(l.entries, token)
		}
	}
}
