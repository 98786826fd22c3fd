// Package ledger implements the confidential tax ledger: payer records with
// encrypted liabilities and payments, an authority gate, and a settlement
// check evaluated under encryption.
//
// A Ledger is built per transaction from the host world state and an
// encrypted-arithmetic engine session. Every operation validates first and
// writes last: engine writes are committed, records are stored and the single
// event is set only after all checks have passed.
package ledger

import (
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/Gere321123/FHETaxSystem/internal/fhe"
)

//go:generate mockgen -destination=../fakes/mock_engine.go -package=fakes github.com/Gere321123/FHETaxSystem/internal/ledger Engine

// Engine is the encrypted-arithmetic algebra the ledger is allowed to use.
// The zero handle behaves as an encrypted zero.
type Engine interface {
	ImportCiphertext(in fhe.Input, user string) (fhe.Handle, error)
	EncryptConstant(v uint32) (fhe.Handle, error)
	Add(a, b fhe.Handle) (fhe.Handle, error)
	LessOrEqual(a, b fhe.Handle) (fhe.Handle, error)
	IsInitialized(h fhe.Handle) bool
	GrantSelfAccess(h fhe.Handle) error
	GrantAccess(h fhe.Handle, principal string) error
	IsAllowed(h fhe.Handle, principal string) (bool, error)
	Record(h fhe.Handle) (*fhe.Record, error)
	Commit() error
}

// Ledger is the operation set over one transaction's world state.
type Ledger struct {
	host    Host
	state   *State
	engine  Engine
	gate    Gate
	checker Checker
	log     zerolog.Logger
}

// Option configures a Ledger.
type Option func(*Ledger)

// WithLogger sets the logger used for per-operation debug lines.
func WithLogger(log zerolog.Logger) Option {
	return func(l *Ledger) { l.log = log }
}

// New binds a ledger to host and an engine session.
func New(host Host, eng Engine, opts ...Option) *Ledger {
	st := NewState(host)
	l := &Ledger{
		host:    host,
		state:   st,
		engine:  eng,
		gate:    Gate{state: st},
		checker: Checker{engine: eng},
		log:     zerolog.Nop(),
	}
	for _, o := range opts {
		o(l)
	}
	return l
}

// Initialize records caller as the authority and stores the engine
// configuration. It runs once per channel.
func Initialize(host Host, caller, publicKeyJSON, verifierKeyHex string) error {
	st := NewState(host)
	ok, err := st.Initialized()
	if err != nil {
		return err
	}
	if ok {
		return ErrAlreadyInitialized
	}
	if err := fhe.Configure(host, publicKeyJSON, verifierKeyHex); err != nil {
		return err
	}
	return st.SetAuthority(caller)
}

func (l *Ledger) requireInit() error {
	ok, err := l.state.Initialized()
	if err != nil {
		return err
	}
	if !ok {
		return ErrNotInitialized
	}
	return nil
}

// grant persists access for the ledger context and identity.
func (l *Ledger) grant(identity string, hs ...fhe.Handle) error {
	for _, h := range hs {
		if err := l.engine.GrantSelfAccess(h); err != nil {
			return err
		}
		if err := l.engine.GrantAccess(h, identity); err != nil {
			return err
		}
	}
	return nil
}

// load returns the record for identity, applying the registration policy.
func (l *Ledger) load(p Params, identity string) (PayerRecord, error) {
	rec, found, err := l.state.Record(identity)
	if err != nil {
		return PayerRecord{}, err
	}
	if !found && p.RequireRegistration {
		return PayerRecord{}, fmt.Errorf("%w: %q", ErrUnknownIdentity, identity)
	}
	return rec, nil
}

/* Ledger Store */

// RegisterPayer creates or overwrites the record for identity with the given
// liability and a fresh encrypted zero payment. The proof must be bound to
// the caller. identity is appended to the known payers every time.
func (l *Ledger) RegisterPayer(caller, identity string, liability fhe.Input) error {
	if err := l.gate.Require(caller); err != nil {
		return err
	}
	p, err := l.state.Params()
	if err != nil {
		return err
	}
	now, err := l.txTime()
	if err != nil {
		return err
	}
	liab, err := l.engine.ImportCiphertext(liability, caller)
	if err != nil {
		return fmt.Errorf("liability: %w", err)
	}
	paid, err := l.engine.EncryptConstant(0)
	if err != nil {
		return err
	}
	if err := l.grant(identity, liab, paid); err != nil {
		return err
	}
	if err := l.engine.Commit(); err != nil {
		return err
	}
	rec := PayerRecord{Identity: identity, Liability: liab, Paid: paid}
	if err := l.state.PutRecord(rec); err != nil {
		return err
	}
	if err := l.state.AppendPayer(identity); err != nil {
		return err
	}
	l.log.Debug().Str("op", "RegisterPayer").Str("identity", identity).Msg("committed")
	return l.emit(p, EventPayerRegistered, Event{
		Identity:  identity,
		Liability: liab.String(),
		Paid:      paid.String(),
		Time:      now,
	})
}

// SetLiability overwrites the liability of identity. Payments are kept.
func (l *Ledger) SetLiability(caller, identity string, amount fhe.Input) error {
	if err := l.gate.Require(caller); err != nil {
		return err
	}
	p, err := l.state.Params()
	if err != nil {
		return err
	}
	now, err := l.txTime()
	if err != nil {
		return err
	}
	rec, err := l.load(p, identity)
	if err != nil {
		return err
	}
	liab, err := l.engine.ImportCiphertext(amount, caller)
	if err != nil {
		return fmt.Errorf("liability: %w", err)
	}
	if err := l.grant(identity, liab); err != nil {
		return err
	}
	if err := l.engine.Commit(); err != nil {
		return err
	}
	rec.Liability = liab
	if err := l.state.PutRecord(rec); err != nil {
		return err
	}
	l.log.Debug().Str("op", "SetLiability").Str("identity", identity).Msg("committed")
	return l.emit(p, EventLiabilityUpdated, Event{
		Identity:  identity,
		Liability: liab.String(),
		Time:      now,
	})
}

// RecordPayment adds an encrypted amount to the payments of identity, which
// must be the caller. The settlement check runs but its result is only
// published as a handle in the event.
func (l *Ledger) RecordPayment(caller, identity string, amount fhe.Input) error {
	if identity != caller {
		return fmt.Errorf("%w: payments are recorded by the payer only", ErrUnauthorized)
	}
	if err := l.requireInit(); err != nil {
		return err
	}
	p, err := l.state.Params()
	if err != nil {
		return err
	}
	now, err := l.txTime()
	if err != nil {
		return err
	}
	rec, err := l.load(p, identity)
	if err != nil {
		return err
	}
	amt, err := l.engine.ImportCiphertext(amount, caller)
	if err != nil {
		return fmt.Errorf("payment: %w", err)
	}
	paid, err := l.engine.Add(rec.Paid, amt)
	if err != nil {
		return err
	}
	rec.Paid = paid
	settled, _, err := l.checker.Evaluate(rec)
	if err != nil {
		return err
	}
	if err := l.grant(identity, paid); err != nil {
		return err
	}
	if err := l.engine.Commit(); err != nil {
		return err
	}
	if err := l.state.PutRecord(rec); err != nil {
		return err
	}
	l.log.Debug().Str("op", "RecordPayment").Str("identity", identity).Msg("committed")
	return l.emit(p, EventPaymentRecorded, Event{
		Identity:   identity,
		Paid:       paid.String(),
		Settlement: settled.String(),
		Time:       now,
	})
}

// PayTax records a payment by the caller on their own record.
func (l *Ledger) PayTax(caller string, amount fhe.Input) error {
	return l.RecordPayment(caller, caller, amount)
}

// ListPayers returns the known payers in registration order.
func (l *Ledger) ListPayers(caller string) ([]string, error) {
	if err := l.gate.Require(caller); err != nil {
		return nil, err
	}
	return l.state.Payers()
}

// SetAuthority hands the authority role to identity.
func (l *Ledger) SetAuthority(caller, identity string) error {
	if err := l.gate.Require(caller); err != nil {
		return err
	}
	if err := l.state.SetAuthority(identity); err != nil {
		return err
	}
	l.log.Debug().Str("op", "SetAuthority").Str("identity", identity).Msg("committed")
	return nil
}

// Authority returns the current authority.
func (l *Ledger) Authority() (string, error) { return l.state.Authority() }

// Payer returns the record of identity to the authority or to the payer.
func (l *Ledger) Payer(caller, identity string) (PayerRecord, error) {
	auth, err := l.state.Authority()
	if err != nil {
		return PayerRecord{}, err
	}
	if caller != auth && caller != identity {
		return PayerRecord{}, fmt.Errorf("%w: record of %q", ErrUnauthorized, identity)
	}
	rec, found, err := l.state.Record(identity)
	if err != nil {
		return PayerRecord{}, err
	}
	if !found {
		return PayerRecord{}, fmt.Errorf("%w: %q", ErrUnknownIdentity, identity)
	}
	return rec, nil
}

// Ciphertext returns the stored record behind h if caller holds a grant on it.
func (l *Ledger) Ciphertext(caller string, h fhe.Handle) (*fhe.Record, error) {
	if err := l.requireInit(); err != nil {
		return nil, err
	}
	ok, err := l.engine.IsAllowed(h, caller)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrAccessDenied, h)
	}
	return l.engine.Record(h)
}

/* Settlement Checker */

// CheckCompliance runs the encrypted comparison liability <= paid for
// identity and reports whether it produced a value.
func (l *Ledger) CheckCompliance(identity string) (bool, error) {
	if err := l.requireInit(); err != nil {
		return false, err
	}
	p, err := l.state.Params()
	if err != nil {
		return false, err
	}
	rec, err := l.load(p, identity)
	if err != nil {
		return false, err
	}
	_, ok, err := l.checker.Evaluate(rec)
	if err != nil {
		return false, err
	}
	if err := l.engine.Commit(); err != nil {
		return false, err
	}
	return ok, nil
}

// VerifySettlement is CheckCompliance restricted to the authority.
func (l *Ledger) VerifySettlement(caller, identity string) (bool, error) {
	if err := l.gate.Require(caller); err != nil {
		return false, err
	}
	return l.CheckCompliance(identity)
}

/* Params */

// Params returns the runtime parameters.
func (l *Ledger) Params() (Params, error) {
	if err := l.requireInit(); err != nil {
		return Params{}, err
	}
	return l.state.Params()
}

// SetParams merges paramsJSON into the stored parameters.
func (l *Ledger) SetParams(caller, paramsJSON string) error {
	if err := l.gate.Require(caller); err != nil {
		return err
	}
	cur, err := l.state.Params()
	if errors.Is(err, ErrCorruptParams) {
		l.log.Warn().Err(err).Msg("replacing unreadable params")
	} else if err != nil {
		return err
	}
	_, canon, err := mergeParams(cur, paramsJSON)
	if err != nil {
		return err
	}
	if err := l.host.PutState(keyParams, canon); err != nil {
		return err
	}
	l.log.Debug().Str("op", "SetParams").RawJSON("params", canon).Msg("committed")
	return nil
}
