// Package fhe is the encrypted-arithmetic engine used by the tax ledger.
//
// Values are opaque Handles. The engine exposes a small algebra over them:
// import (with an input proof), addition, less-or-equal comparison, constant
// encryption and access grants. Nothing else can touch a ciphertext.
//
// Unsigned 32-bit values are Paillier ciphertexts, so addition is evaluated
// on-chain as a product modulo n^2. Comparisons cannot be evaluated under an
// additive scheme; they yield a symbolic encrypted boolean (the operation and
// its operands) that an off-chain coprocessor evaluates later.
//
// A Session lives for one transaction. All writes are buffered and flushed in
// key order by Commit, so a failed transaction leaves no trace.
package fhe

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"sort"
	"sync"

	"github.com/Gere321123/FHETaxSystem/internal/inputproof"
	"github.com/Gere321123/FHETaxSystem/internal/paillier"
)

var (
	// ErrInvalidCiphertextProof is returned when an input ciphertext is
	// malformed or its proof does not verify.
	ErrInvalidCiphertextProof = errors.New("invalid ciphertext proof")
	// ErrAccessDenied is returned when the principal holds no grant on a handle.
	ErrAccessDenied = errors.New("access denied on handle")
	// ErrUnknownHandle is returned for malformed, zero or unstored handles.
	ErrUnknownHandle = errors.New("unknown handle")
	// ErrTypeMismatch is returned when an operand has the wrong encrypted type.
	ErrTypeMismatch = errors.New("operand type mismatch")
	// ErrNotConfigured is returned by Open before Configure has run.
	ErrNotConfigured = errors.New("encryption engine not configured")
)

// Type is the encrypted type carried by a handle.
type Type string

const (
	EUint32 Type = "euint32"
	EBool   Type = "ebool"
)

const (
	opInput   = "input"
	opTrivial = "trivial"
	opAdd     = "add"
	opLe      = "le"
)

const (
	keyConfig    = "FHE::CONFIG"
	keyCTPrefix  = "CT::"
	keyACLPrefix = "ACL::"
)

func ctKey(h Handle) string                   { return keyCTPrefix + h.String() }
func aclKey(h Handle, principal string) string { return keyACLPrefix + h.String() + "::" + principal }

// Store is the subset of the ledger host's key-value storage the engine needs.
type Store interface {
	GetState(key string) ([]byte, error)
	PutState(key string, value []byte) error
}

// Record is the stored form of a ciphertext. Value is set for evaluated
// euint32 values; Op and Operands describe a symbolic result.
type Record struct {
	Type     Type     `json:"type"`
	Value    string   `json:"value,omitempty"`
	Op       string   `json:"op,omitempty"`
	Operands []Handle `json:"operands,omitempty"`
}

// Input is a client-supplied ciphertext with its proof, both hex.
type Input struct {
	Ciphertext string
	Proof      string
}

// Config is the on-chain engine configuration.
type Config struct {
	PublicKey   paillier.PublicKey `json:"publicKey"`
	VerifierKey string             `json:"verifierKey"`
}

type keys struct {
	pk       *paillier.PublicKey
	verifier *inputproof.Verifier
}

// Parsed keys per stored config (thread-safe). Keyed by config digest so a
// reconfiguration never reads stale material.
var keyCache sync.Map

// Configure validates and stores the engine configuration.
func Configure(store Store, publicKeyJSON, verifierKeyHex string) error {
	var pk paillier.PublicKey
	if err := json.Unmarshal([]byte(publicKeyJSON), &pk); err != nil {
		return fmt.Errorf("bad public key json: %w", err)
	}
	v, err := inputproof.ParseVerifier(verifierKeyHex)
	if err != nil {
		return err
	}
	raw, err := json.Marshal(Config{PublicKey: pk, VerifierKey: v.Hex()})
	if err != nil {
		return err
	}
	return store.PutState(keyConfig, raw)
}

// LoadConfig reads back the stored configuration.
func LoadConfig(store Store) (*Config, error) {
	raw, err := store.GetState(keyConfig)
	if err != nil {
		return nil, fmt.Errorf("get engine config: %w", err)
	}
	if raw == nil {
		return nil, ErrNotConfigured
	}
	var cfg Config
	if err := json.Unmarshal(raw, &cfg); err != nil {
		return nil, fmt.Errorf("engine config json: %w", err)
	}
	return &cfg, nil
}

func loadKeys(store Store) (*keys, error) {
	raw, err := store.GetState(keyConfig)
	if err != nil {
		return nil, fmt.Errorf("get engine config: %w", err)
	}
	if raw == nil {
		return nil, ErrNotConfigured
	}
	digest := sha256.Sum256(raw)
	if k, ok := keyCache.Load(digest); ok {
		return k.(*keys), nil
	}
	var cfg Config
	if err := json.Unmarshal(raw, &cfg); err != nil {
		return nil, fmt.Errorf("engine config json: %w", err)
	}
	v, err := inputproof.ParseVerifier(cfg.VerifierKey)
	if err != nil {
		return nil, err
	}
	k := &keys{pk: &cfg.PublicKey, verifier: v}
	keyCache.Store(digest, k)
	return k, nil
}

// Session evaluates engine operations for a single transaction.
type Session struct {
	store     Store
	keys      *keys
	self      string
	domain    string
	writes    map[string][]byte
	transient map[Handle]struct{}
}

// Open starts a session. self is the principal of the ledger's own execution
// context; domain is mixed into input-proof verification.
func Open(store Store, self, domain string) (*Session, error) {
	k, err := loadKeys(store)
	if err != nil {
		return nil, err
	}
	return &Session{
		store:     store,
		keys:      k,
		self:      self,
		domain:    domain,
		writes:    make(map[string][]byte),
		transient: make(map[Handle]struct{}),
	}, nil
}

// Self returns the ledger context principal.
func (s *Session) Self() string { return s.self }

func (s *Session) get(key string) ([]byte, error) {
	if v, ok := s.writes[key]; ok {
		return v, nil
	}
	return s.store.GetState(key)
}

func (s *Session) put(key string, val []byte) { s.writes[key] = val }

func (s *Session) putRecord(h Handle, rec Record) error {
	b, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	s.put(ctKey(h), b)
	s.transient[h] = struct{}{}
	return nil
}

// Record returns the stored ciphertext record for h.
func (s *Session) Record(h Handle) (*Record, error) {
	if h.IsZero() {
		return nil, fmt.Errorf("%w: uninitialized", ErrUnknownHandle)
	}
	raw, err := s.get(ctKey(h))
	if err != nil {
		return nil, err
	}
	if raw == nil {
		return nil, fmt.Errorf("%w: %s", ErrUnknownHandle, h)
	}
	var rec Record
	if err := json.Unmarshal(raw, &rec); err != nil {
		return nil, fmt.Errorf("ciphertext record %s: %w", h, err)
	}
	return &rec, nil
}

// IsAllowed reports whether principal may use or decrypt h. Handles produced
// in this session are implicitly allowed to the ledger context.
func (s *Session) IsAllowed(h Handle, principal string) (bool, error) {
	if h.IsZero() {
		return false, nil
	}
	if principal == s.self {
		if _, ok := s.transient[h]; ok {
			return true, nil
		}
	}
	raw, err := s.get(aclKey(h, principal))
	if err != nil {
		return false, err
	}
	return raw != nil, nil
}

func (s *Session) requireSelf(h Handle) error {
	ok, err := s.IsAllowed(h, s.self)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%w: %s", ErrAccessDenied, h)
	}
	return nil
}

// uint32Value resolves h to a Paillier ciphertext, treating the zero handle
// as Enc(0).
func (s *Session) uint32Value(h Handle) (*big.Int, error) {
	if h.IsZero() {
		return s.keys.pk.Trivial(0), nil
	}
	if err := s.requireSelf(h); err != nil {
		return nil, err
	}
	rec, err := s.Record(h)
	if err != nil {
		return nil, err
	}
	if rec.Type != EUint32 || rec.Value == "" {
		return nil, fmt.Errorf("%w: %s is %s", ErrTypeMismatch, h, rec.Type)
	}
	return paillier.ParseInt(rec.Value)
}

// ImportCiphertext validates a client ciphertext against its proof for user
// and returns a handle usable by the ledger in this transaction.
func (s *Session) ImportCiphertext(in Input, user string) (Handle, error) {
	c, err := paillier.ParseInt(in.Ciphertext)
	if err != nil {
		return Handle{}, fmt.Errorf("%w: %v", ErrInvalidCiphertextProof, err)
	}
	if err := s.keys.pk.Validate(c); err != nil {
		return Handle{}, fmt.Errorf("%w: %v", ErrInvalidCiphertextProof, err)
	}
	canon := paillier.FormatInt(c)
	if err := s.keys.verifier.Verify(s.domain, user, canon, in.Proof); err != nil {
		return Handle{}, fmt.Errorf("%w: %v", ErrInvalidCiphertextProof, err)
	}
	h := derive(opInput, []byte(EUint32), c.Bytes())
	if err := s.putRecord(h, Record{Type: EUint32, Value: canon}); err != nil {
		return Handle{}, err
	}
	return h, nil
}

// EncryptConstant returns a handle to the trivial encryption of v.
func (s *Session) EncryptConstant(v uint32) (Handle, error) {
	var b [4]byte
	binary.BigEndian.PutUint32(b[:], v)
	h := derive(opTrivial, []byte(EUint32), b[:])
	c := s.keys.pk.Trivial(uint64(v))
	if err := s.putRecord(h, Record{Type: EUint32, Value: paillier.FormatInt(c)}); err != nil {
		return Handle{}, err
	}
	return h, nil
}

// Add returns a handle to Enc(a + b).
func (s *Session) Add(a, b Handle) (Handle, error) {
	ca, err := s.uint32Value(a)
	if err != nil {
		return Handle{}, err
	}
	cb, err := s.uint32Value(b)
	if err != nil {
		return Handle{}, err
	}
	h := derive(opAdd, a[:], b[:])
	sum := s.keys.pk.Add(ca, cb)
	if err := s.putRecord(h, Record{Type: EUint32, Value: paillier.FormatInt(sum)}); err != nil {
		return Handle{}, err
	}
	return h, nil
}

// LessOrEqual returns a handle to the encrypted boolean a <= b. The result is
// symbolic; its truth value is only known to the coprocessor.
func (s *Session) LessOrEqual(a, b Handle) (Handle, error) {
	if _, err := s.uint32Value(a); err != nil {
		return Handle{}, err
	}
	if _, err := s.uint32Value(b); err != nil {
		return Handle{}, err
	}
	h := derive(opLe, a[:], b[:])
	if err := s.putRecord(h, Record{Type: EBool, Op: opLe, Operands: []Handle{a, b}}); err != nil {
		return Handle{}, err
	}
	return h, nil
}

// IsInitialized reports whether h refers to a produced value.
func (s *Session) IsInitialized(h Handle) bool { return !h.IsZero() }

// GrantAccess persistently allows principal to use and decrypt h. The ledger
// context must itself be allowed on h.
func (s *Session) GrantAccess(h Handle, principal string) error {
	if h.IsZero() {
		return fmt.Errorf("%w: cannot grant on uninitialized handle", ErrUnknownHandle)
	}
	if err := s.requireSelf(h); err != nil {
		return err
	}
	s.put(aclKey(h, principal), []byte("1"))
	return nil
}

// GrantSelfAccess persists the ledger context's own access to h so later
// transactions can keep operating on it.
func (s *Session) GrantSelfAccess(h Handle) error { return s.GrantAccess(h, s.self) }

// Commit flushes buffered writes in key order.
func (s *Session) Commit() error {
	ks := make([]string, 0, len(s.writes))
	for k := range s.writes {
		ks = append(ks, k)
	}
	sort.Strings(ks)
	for _, k := range ks {
		if err := s.store.PutState(k, s.writes[k]); err != nil {
			return fmt.Errorf("commit %s: %w", k, err)
		}
	}
	s.writes = make(map[string][]byte)
	return nil
}
