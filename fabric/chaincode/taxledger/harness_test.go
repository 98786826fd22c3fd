// harness_test.go
//
// Purpose: Minimal, deterministic test harness for the tax ledger chaincode.
// Role: Provides an in-memory world state, a partial Fabric stub backed by it,
// real client identities (self-signed x509 creators parsed by pkg/cid) and
// key material for encrypting and proving inputs. Tests drive the contract
// without peers, orderers or a gateway.
// Notes:
// - The stub embeds shim.ChaincodeStubInterface; only the methods the contract
// touches are implemented, anything else panics.
// - Byte slices are copied in and out of the world state.

package main

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/json"
	"encoding/pem"
	"fmt"
	"math/big"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/hyperledger/fabric-chaincode-go/v2/pkg/cid"
	"github.com/hyperledger/fabric-chaincode-go/v2/shim"
	"github.com/hyperledger/fabric-contract-api-go/v2/contractapi"
	"github.com/hyperledger/fabric-protos-go-apiv2/ledger/queryresult"
	"github.com/hyperledger/fabric-protos-go-apiv2/msp"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/timestamppb"

	"github.com/Gere321123/FHETaxSystem/internal/inputproof"
	"github.com/Gere321123/FHETaxSystem/internal/paillier"
)

const (
	testChannel   = "statechan-01"
	testMSP       = "TaxOrgMSP"
	testAuthority = "tax-authority"
	testPayerA    = "payer-a"
	testPayerB    = "payer-b"
	testTxSeconds = 1763173800
)

var testDomain = inputproof.Domain(testChannel, contractName)

/* in-memory WS harness */

type event struct {
	name    string
	payload []byte
}

// memWorld is a tiny in-memory ledger used by the fake stub.
type memWorld struct {
	ws        map[string][]byte
	events    []event
	opsCounts struct {
		getState, putState, setEvent int
	}
}

func newMemWorld() *memWorld { return &memWorld{ws: make(map[string][]byte)} }

func (m *memWorld) getState(key string) ([]byte, error) {
	m.opsCounts.getState++
	if v, ok := m.ws[key]; ok {
		return append([]byte(nil), v...), nil
	}
	return nil, nil
}

func (m *memWorld) putState(key string, val []byte) error {
	m.opsCounts.putState++
	m.ws[key] = append([]byte(nil), val...)
	return nil
}

func (m *memWorld) setEvent(name string, payload []byte) error {
	m.opsCounts.setEvent++
	m.events = append(m.events, event{name: name, payload: append([]byte(nil), payload...)})
	return nil
}

// memIter is an iterator over a pre-materialized KV slice.
type memIter struct {
	kvs []*queryresult.KV
	i   int
}

func (it *memIter) HasNext() bool { return it.i < len(it.kvs) }

func (it *memIter) Next() (*queryresult.KV, error) {
	if !it.HasNext() {
		return nil, fmt.Errorf("iterator exhausted")
	}
	kv := it.kvs[it.i]
	it.i++
	return kv, nil
}

func (it *memIter) Close() error { return nil }

// iterWSRange materializes a [start, end) scan in key order, matching Fabric.
func (m *memWorld) iterWSRange(start, end string) *memIter {
	var keys []string
	for k := range m.ws {
		if (start == "" || k >= start) && (end == "" || k < end) {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	it := &memIter{}
	for _, k := range keys {
		it.kvs = append(it.kvs, &queryresult.KV{Key: k, Value: append([]byte(nil), m.ws[k]...)})
	}
	return it
}

/* fake stub */

// fakeStub implements the part of shim.ChaincodeStubInterface the contract uses.
type fakeStub struct {
	shim.ChaincodeStubInterface
	mem     *memWorld
	txID    string
	creator []byte
}

func (s *fakeStub) GetState(key string) ([]byte, error)     { return s.mem.getState(key) }
func (s *fakeStub) PutState(key string, value []byte) error { return s.mem.putState(key, value) }
func (s *fakeStub) SetEvent(name string, payload []byte) error {
	return s.mem.setEvent(name, payload)
}
func (s *fakeStub) GetStateByRange(start, end string) (shim.StateQueryIteratorInterface, error) {
	return s.mem.iterWSRange(start, end), nil
}
func (s *fakeStub) GetTxTimestamp() (*timestamppb.Timestamp, error) {
	return &timestamppb.Timestamp{Seconds: testTxSeconds}, nil
}
func (s *fakeStub) GetTxID() string             { return s.txID }
func (s *fakeStub) GetChannelID() string        { return testChannel }
func (s *fakeStub) GetCreator() ([]byte, error) { return s.creator, nil }

/* tx context */

// simpleTxCtx adapts a stub and client identity to a contractapi TransactionContext.
type simpleTxCtx struct {
	s  shim.ChaincodeStubInterface
	ci cid.ClientIdentity
}

func (c *simpleTxCtx) GetStub() shim.ChaincodeStubInterface  { return c.s }
func (c *simpleTxCtx) GetClientIdentity() cid.ClientIdentity { return c.ci }

// devSerializedIdentity builds a creator for a self-signed certificate with
// the given common name.
func devSerializedIdentity(ms, cn string) []byte {
	key, _ := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	tpl := &x509.Certificate{
		SerialNumber: big.NewInt(1),
		Subject:      pkix.Name{CommonName: cn, Organization: []string{ms}},
		NotBefore:    time.Now().Add(-time.Hour),
		NotAfter:     time.Now().Add(time.Hour),
	}
	der, _ := x509.CreateCertificate(rand.Reader, tpl, tpl, &key.PublicKey, key)
	pemCert := pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: der})
	b, _ := proto.Marshal(&msp.SerializedIdentity{Mspid: ms, IdBytes: pemCert})
	return b
}

/* key material */

var (
	keysOnce   sync.Once
	testKey    *paillier.PrivateKey
	testSigner *inputproof.Signer
	keysErr    error
)

/* test harness */

// testHarness bundles the world state, the contract under test and the
// identities of the named test principals.
type testHarness struct {
	t        *testing.T
	mem      *memWorld
	cc       *TaxLedgerContract
	sk       *paillier.PrivateKey
	signer   *inputproof.Signer
	creators map[string][]byte
	lastTx   string
}

func newHarness(t *testing.T) *testHarness {
	t.Helper()
	keysOnce.Do(func() {
		if testKey, keysErr = paillier.GenerateKey(rand.Reader, 512); keysErr != nil {
			return
		}
		testSigner, keysErr = inputproof.GenerateSigner(rand.Reader)
	})
	requireNoErr(t, keysErr)
	return &testHarness{
		t:        t,
		mem:      newMemWorld(),
		cc:       new(TaxLedgerContract),
		sk:       testKey,
		signer:   testSigner,
		creators: make(map[string][]byte),
	}
}

// as returns a fresh transaction context submitted by the named principal.
func (h *testHarness) as(name string) contractapi.TransactionContextInterface {
	h.t.Helper()
	creator, ok := h.creators[name]
	if !ok {
		creator = devSerializedIdentity(testMSP, name)
		h.creators[name] = creator
	}
	h.lastTx = uuid.NewString()
	stub := &fakeStub{mem: h.mem, txID: h.lastTx, creator: creator}
	ci, err := cid.New(stub)
	requireNoErr(h.t, err)
	return &simpleTxCtx{s: stub, ci: ci}
}

// id is the client ID the ledger sees for the named principal.
func (h *testHarness) id(name string) string {
	h.t.Helper()
	out, err := h.cc.WhoAmI(h.as(name))
	requireNoErr(h.t, err)
	return out
}

// initLedger runs InitLedger as the authority.
func (h *testHarness) initLedger() {
	h.t.Helper()
	pkJSON, err := json.Marshal(h.sk.PublicKey)
	requireNoErr(h.t, err)
	requireNoErr(h.t, h.cc.InitLedger(h.as(testAuthority), string(pkJSON), h.signer.Verifier().Hex()))
}

// encrypt returns a ciphertext of m with a proof for the named submitter.
func (h *testHarness) encrypt(submitter string, m int64) (string, string) {
	h.t.Helper()
	c, err := h.sk.Encrypt(rand.Reader, big.NewInt(m))
	requireNoErr(h.t, err)
	ct := paillier.FormatInt(c)
	proof, err := h.signer.Sign(testDomain, h.id(submitter), ct)
	requireNoErr(h.t, err)
	return ct, proof
}

func (h *testHarness) decryptHex(v string) int64 {
	h.t.Helper()
	c, err := paillier.ParseInt(v)
	requireNoErr(h.t, err)
	m, err := h.sk.Decrypt(c)
	requireNoErr(h.t, err)
	return m.Int64()
}

func (h *testHarness) lastEvent() event {
	h.t.Helper()
	if len(h.mem.events) == 0 {
		h.t.Fatalf("no events emitted")
	}
	return h.mem.events[len(h.mem.events)-1]
}

/* assertions */

func requireNoErr(t *testing.T, err error) {
	t.Helper()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func requireErrContains(t *testing.T, err error, substr string) {
	t.Helper()
	if err == nil {
		t.Fatalf("expected error containing %q, got nil", substr)
	}
	if !strings.Contains(err.Error(), substr) {
		t.Fatalf("expected error containing %q, got %v", substr, err)
	}
}
