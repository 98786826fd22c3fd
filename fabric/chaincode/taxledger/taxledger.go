/*
taxledger.go: Hyperledger Fabric chaincode for the confidential tax ledger.

A tax authority registers payers with an encrypted liability; payers submit
encrypted payments which are added homomorphically to their running total.
Settlement (liability <= paid) is evaluated under encryption and never
decrypted on-chain.

- Payer records live under PAYER::<identity>, registrations under PAYERSEQ::<n>.
- Ciphertexts live under CT::<handle>, decryption grants under ACL::<handle>::<principal>.
- Every encrypted input carries an input proof bound to the submitting
  principal and to <channel>/taxledger.

The chaincode does not expose any HTTP endpoints. A gateway/KMS is expected to
invoke these functions, produce input proofs and subscribe to emitted events.
*/
package main

//go:generate mockgen -destination=../../../internal/fakes/mock_txcontext.go -package=fakes github.com/hyperledger/fabric-contract-api-go/v2/contractapi TransactionContextInterface

import (
	"errors"
	"fmt"

	"github.com/hyperledger/fabric-contract-api-go/v2/contractapi"
	"github.com/rs/zerolog"

	"github.com/Gere321123/FHETaxSystem/internal/fhe"
	"github.com/Gere321123/FHETaxSystem/internal/inputproof"
	"github.com/Gere321123/FHETaxSystem/internal/ledger"
)

/* Constants */

const (
	contractName = "taxledger"
	// Principal of the ledger's own execution context in ACL entries. Client
	// IDs are base64 x509 identities and cannot collide with it.
	selfPrincipal = "taxledger"
)

/* Types */

// TaxLedgerContract implements the Fabric contract for the confidential tax ledger.
//
// Responsibilities:
// - Resolve the caller from the transaction creator.
// - Open one encryption engine session per transaction.
// - Route every operation through internal/ledger, which owns all state.
type TaxLedgerContract struct {
	contractapi.Contract
	log *zerolog.Logger
}

// PayerView is the public shape of a payer record: handles only.
type PayerView struct {
	Identity  string `json:"identity"`
	Liability string `json:"liability"`
	Paid      string `json:"paid"`
}

// CiphertextView is a stored ciphertext as returned to an authorized caller.
type CiphertextView struct {
	Handle   string   `json:"handle"`
	Type     string   `json:"type"`
	Value    string   `json:"value"`
	Op       string   `json:"op"`
	Operands []string `json:"operands"`
}

func newContract(log zerolog.Logger) *TaxLedgerContract {
	return &TaxLedgerContract{log: &log}
}

/* Small helpers */

func (c *TaxLedgerContract) logger() zerolog.Logger {
	if c.log == nil {
		return zerolog.Nop()
	}
	return *c.log
}

// callerID returns the unique ID of the submitting client.
func callerID(ctx contractapi.TransactionContextInterface) (string, error) {
	ci := ctx.GetClientIdentity()
	if ci == nil {
		return "", fmt.Errorf("client identity unavailable")
	}
	id, err := ci.GetID()
	if err != nil {
		return "", fmt.Errorf("client id: %w", err)
	}
	return id, nil
}

// open binds a ledger to this transaction.
func (c *TaxLedgerContract) open(ctx contractapi.TransactionContextInterface) (*ledger.Ledger, error) {
	stub := ctx.GetStub()
	sess, err := fhe.Open(stub, selfPrincipal, inputproof.Domain(stub.GetChannelID(), contractName))
	if errors.Is(err, fhe.ErrNotConfigured) {
		return nil, ledger.ErrNotInitialized
	}
	if err != nil {
		return nil, err
	}
	log := c.logger().With().Str("txID", stub.GetTxID()).Logger()
	return ledger.New(stub, sess, ledger.WithLogger(log)), nil
}

// openAs is open plus the caller ID.
func (c *TaxLedgerContract) openAs(ctx contractapi.TransactionContextInterface) (*ledger.Ledger, string, error) {
	caller, err := callerID(ctx)
	if err != nil {
		return nil, "", err
	}
	l, err := c.open(ctx)
	if err != nil {
		return nil, "", err
	}
	return l, caller, nil
}

func input(ciphertextHex, proofHex string) fhe.Input {
	return fhe.Input{Ciphertext: ciphertextHex, Proof: proofHex}
}

/* Lifecycle */

// InitLedger records the caller as tax authority and stores the Paillier
// public key and input verifier key. It can run only once.
func (c *TaxLedgerContract) InitLedger(ctx contractapi.TransactionContextInterface, publicKeyJSON string, verifierKeyHex string) error {
	caller, err := callerID(ctx)
	if err != nil {
		return err
	}
	if err := ledger.Initialize(ctx.GetStub(), caller, publicKeyJSON, verifierKeyHex); err != nil {
		return err
	}
	log := c.logger()
	log.Info().Str("txID", ctx.GetStub().GetTxID()).Msg("ledger initialized")
	return nil
}

/* Ledger Store */

// RegisterPayer (authority) creates or resets the record of identity.
func (c *TaxLedgerContract) RegisterPayer(ctx contractapi.TransactionContextInterface, identity string, encLiability string, proof string) error {
	l, caller, err := c.openAs(ctx)
	if err != nil {
		return err
	}
	return l.RegisterPayer(caller, identity, input(encLiability, proof))
}

// SetLiability (authority) overwrites the liability of identity.
func (c *TaxLedgerContract) SetLiability(ctx contractapi.TransactionContextInterface, identity string, encAmount string, proof string) error {
	l, caller, err := c.openAs(ctx)
	if err != nil {
		return err
	}
	return l.SetLiability(caller, identity, input(encAmount, proof))
}

// PayTax adds an encrypted payment to the caller's own record.
func (c *TaxLedgerContract) PayTax(ctx contractapi.TransactionContextInterface, encAmount string, proof string) error {
	l, caller, err := c.openAs(ctx)
	if err != nil {
		return err
	}
	return l.PayTax(caller, input(encAmount, proof))
}

// ListPayers (authority) returns registered identities in registration order.
func (c *TaxLedgerContract) ListPayers(ctx contractapi.TransactionContextInterface) ([]string, error) {
	l, caller, err := c.openAs(ctx)
	if err != nil {
		return nil, err
	}
	return l.ListPayers(caller)
}

// SetAuthority (authority) transfers the authority role.
func (c *TaxLedgerContract) SetAuthority(ctx contractapi.TransactionContextInterface, identity string) error {
	l, caller, err := c.openAs(ctx)
	if err != nil {
		return err
	}
	return l.SetAuthority(caller, identity)
}

/* Settlement */

// CheckCompliance runs the encrypted settlement comparison for identity.
func (c *TaxLedgerContract) CheckCompliance(ctx contractapi.TransactionContextInterface, identity string) (bool, error) {
	l, err := c.open(ctx)
	if err != nil {
		return false, err
	}
	return l.CheckCompliance(identity)
}

// VerifySettlement is CheckCompliance for the authority.
func (c *TaxLedgerContract) VerifySettlement(ctx contractapi.TransactionContextInterface, identity string) (bool, error) {
	l, caller, err := c.openAs(ctx)
	if err != nil {
		return false, err
	}
	return l.VerifySettlement(caller, identity)
}

/* Queries */

// GetAuthority returns the current authority ID.
func (c *TaxLedgerContract) GetAuthority(ctx contractapi.TransactionContextInterface) (string, error) {
	l, err := c.open(ctx)
	if err != nil {
		return "", err
	}
	return l.Authority()
}

// WhoAmI returns the caller's ID as the ledger sees it. Input proofs must be
// requested for this value.
func (c *TaxLedgerContract) WhoAmI(ctx contractapi.TransactionContextInterface) (string, error) {
	return callerID(ctx)
}

// GetPayer returns the handles of a payer record (authority or the payer).
func (c *TaxLedgerContract) GetPayer(ctx contractapi.TransactionContextInterface, identity string) (*PayerView, error) {
	l, caller, err := c.openAs(ctx)
	if err != nil {
		return nil, err
	}
	rec, err := l.Payer(caller, identity)
	if err != nil {
		return nil, err
	}
	return &PayerView{Identity: rec.Identity, Liability: rec.Liability.String(), Paid: rec.Paid.String()}, nil
}

// GetCiphertext returns a stored ciphertext to a caller holding a grant on it.
func (c *TaxLedgerContract) GetCiphertext(ctx contractapi.TransactionContextInterface, handle string) (*CiphertextView, error) {
	h, err := fhe.ParseHandle(handle)
	if err != nil {
		return nil, err
	}
	l, caller, err := c.openAs(ctx)
	if err != nil {
		return nil, err
	}
	rec, err := l.Ciphertext(caller, h)
	if err != nil {
		return nil, err
	}
	ops := make([]string, 0, len(rec.Operands))
	for _, o := range rec.Operands {
		ops = append(ops, o.String())
	}
	return &CiphertextView{Handle: h.String(), Type: string(rec.Type), Value: rec.Value, Op: rec.Op, Operands: ops}, nil
}

/* Params */

// GetParams reads back the stored runtime parameters.
func (c *TaxLedgerContract) GetParams(ctx contractapi.TransactionContextInterface) (*ledger.Params, error) {
	l, err := c.open(ctx)
	if err != nil {
		return nil, err
	}
	p, err := l.Params()
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// SetParams (authority) merges a JSON object into the runtime parameters.
func (c *TaxLedgerContract) SetParams(ctx contractapi.TransactionContextInterface, paramsJSON string) error {
	l, caller, err := c.openAs(ctx)
	if err != nil {
		return err
	}
	return l.SetParams(caller, paramsJSON)
}

/* Health */

// Ping is a simple health check used by deployment tooling and test harnesses.
func (c *TaxLedgerContract) Ping(ctx contractapi.TransactionContextInterface) (string, error) {
	return "OK:" + ctx.GetStub().GetTxID(), nil
}
