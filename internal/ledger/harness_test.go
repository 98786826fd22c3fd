package ledger

import (
	"crypto/rand"
	"encoding/json"
	"fmt"
	"math/big"
	"sort"
	"sync"
	"testing"

	"github.com/hyperledger/fabric-chaincode-go/v2/shim"
	"github.com/hyperledger/fabric-protos-go-apiv2/ledger/queryresult"
	"github.com/stretchr/testify/require"
	"google.golang.org/protobuf/types/known/timestamppb"

	"github.com/Gere321123/FHETaxSystem/internal/fhe"
	"github.com/Gere321123/FHETaxSystem/internal/inputproof"
	"github.com/Gere321123/FHETaxSystem/internal/paillier"
)

const (
	testSelf      = "taxledger"
	testDomain    = "statechan-01/taxledger"
	testAuthority = "authority"
	testPayerA    = "payer-a"
	testPayerB    = "payer-b"
	testTxSeconds = 1763173800
)

/* in-memory world state */

type event struct {
	name    string
	payload []byte
}

// memWorld is a tiny in-memory world state implementing Host.
type memWorld struct {
	ws        map[string][]byte
	events    []event
	tsErr     error // returned by GetTxTimestamp when set
	opsCounts struct {
		getState, putState, setEvent int
	}
}

func newMemWorld() *memWorld { return &memWorld{ws: make(map[string][]byte)} }

func (m *memWorld) GetState(key string) ([]byte, error) {
	m.opsCounts.getState++
	if v, ok := m.ws[key]; ok {
		return append([]byte(nil), v...), nil
	}
	return nil, nil
}

func (m *memWorld) PutState(key string, val []byte) error {
	m.opsCounts.putState++
	m.ws[key] = append([]byte(nil), val...)
	return nil
}

func (m *memWorld) SetEvent(name string, payload []byte) error {
	m.opsCounts.setEvent++
	m.events = append(m.events, event{name: name, payload: append([]byte(nil), payload...)})
	return nil
}

func (m *memWorld) GetTxTimestamp() (*timestamppb.Timestamp, error) {
	if m.tsErr != nil {
		return nil, m.tsErr
	}
	return &timestamppb.Timestamp{Seconds: testTxSeconds}, nil
}

// GetStateByRange honors [start, end) bounds and returns keys sorted.
func (m *memWorld) GetStateByRange(start, end string) (shim.StateQueryIteratorInterface, error) {
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
	return it, nil
}

// snapshot copies the world state for before/after comparisons.
func (m *memWorld) snapshot() map[string]string {
	out := make(map[string]string, len(m.ws))
	for k, v := range m.ws {
		out[k] = string(v)
	}
	return out
}

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

/* key material */

var (
	keysOnce   sync.Once
	testKey    *paillier.PrivateKey
	testSigner *inputproof.Signer
	keysErr    error
)

func loadTestKeys(t *testing.T) (*paillier.PrivateKey, *inputproof.Signer) {
	t.Helper()
	keysOnce.Do(func() {
		if testKey, keysErr = paillier.GenerateKey(rand.Reader, 512); keysErr != nil {
			return
		}
		testSigner, keysErr = inputproof.GenerateSigner(rand.Reader)
	})
	require.NoError(t, keysErr)
	return testKey, testSigner
}

/* test harness */

type testHarness struct {
	t      *testing.T
	mem    *memWorld
	sk     *paillier.PrivateKey
	signer *inputproof.Signer
}

// newHarness returns a world initialized with testAuthority as authority.
func newHarness(t *testing.T) *testHarness {
	t.Helper()
	sk, signer := loadTestKeys(t)
	h := &testHarness{t: t, mem: newMemWorld(), sk: sk, signer: signer}
	pkJSON, err := json.Marshal(sk.PublicKey)
	require.NoError(t, err)
	require.NoError(t, Initialize(h.mem, testAuthority, string(pkJSON), signer.Verifier().Hex()))
	return h
}

// tx starts a new transaction: a fresh engine session over the same world.
func (h *testHarness) tx() *Ledger {
	h.t.Helper()
	s, err := fhe.Open(h.mem, testSelf, testDomain)
	require.NoError(h.t, err)
	return New(h.mem, s)
}

// input encrypts m and signs it for user.
func (h *testHarness) input(user string, m int64) fhe.Input {
	h.t.Helper()
	c, err := h.sk.Encrypt(rand.Reader, big.NewInt(m))
	require.NoError(h.t, err)
	ct := paillier.FormatInt(c)
	proof, err := h.signer.Sign(testDomain, user, ct)
	require.NoError(h.t, err)
	return fhe.Input{Ciphertext: ct, Proof: proof}
}

// decrypt reads the committed ciphertext behind handle and decrypts it.
func (h *testHarness) decrypt(handle fhe.Handle) int64 {
	h.t.Helper()
	raw, ok := h.mem.ws["CT::"+handle.String()]
	require.True(h.t, ok, "missing ciphertext %s", handle)
	var rec fhe.Record
	require.NoError(h.t, json.Unmarshal(raw, &rec))
	require.Equal(h.t, fhe.EUint32, rec.Type)
	c, err := paillier.ParseInt(rec.Value)
	require.NoError(h.t, err)
	m, err := h.sk.Decrypt(c)
	require.NoError(h.t, err)
	return m.Int64()
}

// record loads the stored payer record.
func (h *testHarness) record(identity string) PayerRecord {
	h.t.Helper()
	rec, found, err := NewState(h.mem).Record(identity)
	require.NoError(h.t, err)
	require.True(h.t, found, "no record for %s", identity)
	return rec
}

// allowed reports whether principal holds a persisted grant on handle.
func (h *testHarness) allowed(handle fhe.Handle, principal string) bool {
	_, ok := h.mem.ws["ACL::"+handle.String()+"::"+principal]
	return ok
}

func (h *testHarness) register(identity string, liability int64) {
	h.t.Helper()
	require.NoError(h.t, h.tx().RegisterPayer(testAuthority, identity, h.input(testAuthority, liability)))
}

func (h *testHarness) lastEvent() event {
	h.t.Helper()
	require.NotEmpty(h.t, h.mem.events)
	return h.mem.events[len(h.mem.events)-1]
}
