package amqp

import (
	"encoding/json"
	"time"

	"finance/internal/core"
)

// Routing keys for ledger events.
const (
	KindTransactionRecorded = "transaction.recorded"
	KindLedgerReset         = "ledger.reset"
)

// LedgerEvent is published after every ledger mutation. Transaction fields
// are empty for ledger.reset.
type LedgerEvent struct {
	Kind        string    `json:"kind"`
	Type        string    `json:"type,omitempty"`
	AmountCents int64     `json:"amount_cents,omitempty"`
	Category    string    `json:"category,omitempty"`
	Date        string    `json:"date,omitempty"`
	Ref         string    `json:"ref,omitempty"`
	Timestamp   time.Time `json:"timestamp"`
}

func NewTransactionRecordedEvent(tx core.Transaction, ref string) *LedgerEvent {
	return &LedgerEvent{
		Kind:        KindTransactionRecorded,
		Type:        tx.Type.String(),
		AmountCents: tx.Amount.Cents,
		Category:    tx.Category,
		Date:        tx.Date.String(),
		Ref:         ref,
		Timestamp:   time.Now(),
	}
}

func NewLedgerResetEvent() *LedgerEvent {
	return &LedgerEvent{Kind: KindLedgerReset, Timestamp: time.Now()}
}

// ToJSON converts the message to JSON bytes
func (m *LedgerEvent) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}
