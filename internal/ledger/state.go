package ledger

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/hyperledger/fabric-chaincode-go/v2/shim"
	"google.golang.org/protobuf/types/known/timestamppb"

	"github.com/Gere321123/FHETaxSystem/internal/fhe"
)

/* World state keys */

const (
	keyAuthority   = "AUTHORITY"        // AUTHORITY → {"authority": <identity>}
	keyPayerPrefix = "PAYER::"          // PAYER::<identity> → PayerRecord JSON
	keySeqPrefix   = "PAYERSEQ::"       // PAYERSEQ::<seq> → JSON identity (insertion order)
	keySeqNext     = "PAYERSEQ_NEXT"    // Next sequence number (decimal)
	keyParams      = "PARAMS"           // Params JSON
	seqEnd         = keySeqPrefix + "~" // Range end for PAYERSEQ:: scans
)

func payerKey(identity string) string { return keyPayerPrefix + identity }
func seqKey(n uint64) string          { return fmt.Sprintf("%s%020d", keySeqPrefix, n) }

// Host is the ledger host environment as seen by the ledger. The Fabric
// chaincode stub satisfies it.
type Host interface {
	GetState(key string) ([]byte, error)
	PutState(key string, value []byte) error
	GetStateByRange(startKey, endKey string) (shim.StateQueryIteratorInterface, error)
	SetEvent(name string, payload []byte) error
	GetTxTimestamp() (*timestamppb.Timestamp, error)
}

// PayerRecord is the confidential liability/payment pair of one payer.
type PayerRecord struct {
	Identity  string     `json:"identity"`
	Liability fhe.Handle `json:"liability"`
	Paid      fhe.Handle `json:"paid"`
}

type authorityRecord struct {
	Authority string `json:"authority"`
}

// State is the durable ledger store: the authority, payer records and the
// insertion-ordered list of registered payers.
type State struct {
	host Host
}

// NewState wraps a host's world state.
func NewState(host Host) *State { return &State{host: host} }

// Initialized reports whether an authority has been recorded.
func (s *State) Initialized() (bool, error) {
	raw, err := s.host.GetState(keyAuthority)
	if err != nil {
		return false, fmt.Errorf("get authority: %w", err)
	}
	return raw != nil, nil
}

// Authority returns the current authority identity.
func (s *State) Authority() (string, error) {
	raw, err := s.host.GetState(keyAuthority)
	if err != nil {
		return "", fmt.Errorf("get authority: %w", err)
	}
	if raw == nil {
		return "", ErrNotInitialized
	}
	var a authorityRecord
	if err := json.Unmarshal(raw, &a); err != nil {
		return "", fmt.Errorf("authority json: %w", err)
	}
	return a.Authority, nil
}

// SetAuthority replaces the authority unconditionally.
func (s *State) SetAuthority(identity string) error {
	b, err := json.Marshal(authorityRecord{Authority: identity})
	if err != nil {
		return err
	}
	return s.host.PutState(keyAuthority, b)
}

// Record loads the payer record for identity. found is false when none was
// ever written; the returned record is then the implicit zero record.
func (s *State) Record(identity string) (rec PayerRecord, found bool, err error) {
	raw, err := s.host.GetState(payerKey(identity))
	if err != nil {
		return PayerRecord{}, false, fmt.Errorf("get payer: %w", err)
	}
	if raw == nil {
		return PayerRecord{Identity: identity}, false, nil
	}
	if err := json.Unmarshal(raw, &rec); err != nil {
		return PayerRecord{}, false, fmt.Errorf("payer json: %w", err)
	}
	return rec, true, nil
}

// PutRecord overwrites the payer record.
func (s *State) PutRecord(rec PayerRecord) error {
	b, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	return s.host.PutState(payerKey(rec.Identity), b)
}

// AppendPayer adds identity to the known payers, even if already present.
func (s *State) AppendPayer(identity string) error {
	var next uint64
	raw, err := s.host.GetState(keySeqNext)
	if err != nil {
		return fmt.Errorf("get payer seq: %w", err)
	}
	if raw != nil {
		if next, err = strconv.ParseUint(string(raw), 10, 64); err != nil {
			return fmt.Errorf("payer seq: %w", err)
		}
	}
	// JSON-quoted so an empty identity is still a non-empty value.
	v, err := json.Marshal(identity)
	if err != nil {
		return err
	}
	if err := s.host.PutState(seqKey(next), v); err != nil {
		return err
	}
	return s.host.PutState(keySeqNext, []byte(strconv.FormatUint(next+1, 10)))
}

// Payers returns the known payers in insertion order, duplicates included.
func (s *State) Payers() ([]string, error) {
	it, err := s.host.GetStateByRange(keySeqPrefix, seqEnd)
	if err != nil {
		return nil, err
	}
	defer it.Close()

	out := []string{}
	for it.HasNext() {
		kv, err := it.Next()
		if err != nil {
			return nil, err
		}
		if !strings.HasPrefix(kv.Key, keySeqPrefix) {
			continue
		}
		var id string
		if err := json.Unmarshal(kv.Value, &id); err != nil {
			return nil, fmt.Errorf("payer seq %s: %w", kv.Key, err)
		}
		out = append(out, id)
	}
	return out, nil
}
