package ledger

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

const (
	EventPayerRegistered  = "PayerRegistered"
	EventLiabilityUpdated = "LiabilityUpdated"
	EventPaymentRecorded  = "PaymentRecorded"
)

// Event is the payload of every ledger notification. Only handles are
// published, never ciphertext values.
type Event struct {
	Identity   string `json:"identity"`
	Liability  string `json:"liability,omitempty"`
	Paid       string `json:"paid,omitempty"`
	Settlement string `json:"settlement,omitempty"` // ebool handle of the post-payment check
	Time       string `json:"time"`
}

// txTime returns the transaction timestamp as RFC3339 UTC.
func (l *Ledger) txTime() (string, error) {
	ts, err := l.host.GetTxTimestamp()
	if err != nil {
		return "", fmt.Errorf("tx timestamp: %w", err)
	}
	if ts == nil {
		return "", errors.New("tx timestamp: missing")
	}
	return ts.AsTime().UTC().Format(time.RFC3339), nil
}

// emit sets the transaction's event. Fabric keeps one event per transaction,
// so each operation calls this at most once.
func (l *Ledger) emit(p Params, name string, ev Event) error {
	if !p.EmitEvents {
		return nil
	}
	b, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	return l.host.SetEvent(name, b)
}
