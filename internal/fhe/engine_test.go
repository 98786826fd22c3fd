package fhe

import (
	"crypto/rand"
	"encoding/json"
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Gere321123/FHETaxSystem/internal/inputproof"
	"github.com/Gere321123/FHETaxSystem/internal/paillier"
)

const (
	testSelf   = "taxledger"
	testDomain = "statechan-01/taxledger"
	testUser   = "payer-1"
)

type memStore struct {
	kv   map[string][]byte
	puts int
}

func newMemStore() *memStore { return &memStore{kv: make(map[string][]byte)} }

func (m *memStore) GetState(key string) ([]byte, error) {
	if v, ok := m.kv[key]; ok {
		return append([]byte(nil), v...), nil
	}
	return nil, nil
}

func (m *memStore) PutState(key string, val []byte) error {
	m.puts++
	m.kv[key] = append([]byte(nil), val...)
	return nil
}

type fixture struct {
	store  *memStore
	sk     *paillier.PrivateKey
	signer *inputproof.Signer
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	sk, err := paillier.GenerateKey(rand.Reader, 512)
	require.NoError(t, err)
	signer, err := inputproof.GenerateSigner(rand.Reader)
	require.NoError(t, err)
	store := newMemStore()
	pkJSON, err := json.Marshal(sk.PublicKey)
	require.NoError(t, err)
	require.NoError(t, Configure(store, string(pkJSON), signer.Verifier().Hex()))
	return &fixture{store: store, sk: sk, signer: signer}
}

func (f *fixture) session(t *testing.T) *Session {
	t.Helper()
	s, err := Open(f.store, testSelf, testDomain)
	require.NoError(t, err)
	return s
}

func (f *fixture) input(t *testing.T, user string, m int64) Input {
	t.Helper()
	c, err := f.sk.Encrypt(rand.Reader, big.NewInt(m))
	require.NoError(t, err)
	ct := paillier.FormatInt(c)
	proof, err := f.signer.Sign(testDomain, user, ct)
	require.NoError(t, err)
	return Input{Ciphertext: ct, Proof: proof}
}

func (f *fixture) decrypt(t *testing.T, s *Session, h Handle) int64 {
	t.Helper()
	rec, err := s.Record(h)
	require.NoError(t, err)
	require.Equal(t, EUint32, rec.Type)
	c, err := paillier.ParseInt(rec.Value)
	require.NoError(t, err)
	m, err := f.sk.Decrypt(c)
	require.NoError(t, err)
	return m.Int64()
}

func TestOpenRequiresConfig(t *testing.T) {
	_, err := Open(newMemStore(), testSelf, testDomain)
	assert.ErrorIs(t, err, ErrNotConfigured)
}

func TestConfigureRejectsBadKeys(t *testing.T) {
	store := newMemStore()
	assert.Error(t, Configure(store, `{"n":"ca1"}`, "00"))
	assert.Error(t, Configure(store, `{"n":"ca1","g":"ca2"}`, "zz"))
	assert.Empty(t, store.kv)
}

func TestLoadConfig(t *testing.T) {
	f := newFixture(t)
	cfg, err := LoadConfig(f.store)
	require.NoError(t, err)
	assert.Equal(t, 0, cfg.PublicKey.N.Cmp(f.sk.N))
	assert.Equal(t, f.signer.Verifier().Hex(), cfg.VerifierKey)
}

func TestImportAndAdd(t *testing.T) {
	f := newFixture(t)
	s := f.session(t)

	a, err := s.ImportCiphertext(f.input(t, testUser, 40), testUser)
	require.NoError(t, err)
	b, err := s.ImportCiphertext(f.input(t, testUser, 60), testUser)
	require.NoError(t, err)

	sum, err := s.Add(a, b)
	require.NoError(t, err)
	assert.Equal(t, int64(100), f.decrypt(t, s, sum))
}

func TestImportRejectsProofForOtherUser(t *testing.T) {
	f := newFixture(t)
	s := f.session(t)
	_, err := s.ImportCiphertext(f.input(t, testUser, 5), "payer-2")
	assert.ErrorIs(t, err, ErrInvalidCiphertextProof)
}

func TestImportRejectsMalformedCiphertext(t *testing.T) {
	f := newFixture(t)
	s := f.session(t)
	in := f.input(t, testUser, 5)

	_, err := s.ImportCiphertext(Input{Ciphertext: "nothex!", Proof: in.Proof}, testUser)
	assert.ErrorIs(t, err, ErrInvalidCiphertextProof)
	_, err = s.ImportCiphertext(Input{Ciphertext: "1", Proof: in.Proof}, testUser)
	assert.ErrorIs(t, err, ErrInvalidCiphertextProof)
	_, err = s.ImportCiphertext(Input{Ciphertext: in.Ciphertext, Proof: "beef"}, testUser)
	assert.ErrorIs(t, err, ErrInvalidCiphertextProof)
}

func TestZeroHandleActsAsZero(t *testing.T) {
	f := newFixture(t)
	s := f.session(t)
	a, err := s.ImportCiphertext(f.input(t, testUser, 9), testUser)
	require.NoError(t, err)

	sum, err := s.Add(Handle{}, a)
	require.NoError(t, err)
	assert.Equal(t, int64(9), f.decrypt(t, s, sum))

	le, err := s.LessOrEqual(Handle{}, Handle{})
	require.NoError(t, err)
	assert.True(t, s.IsInitialized(le))
}

func TestEncryptConstant(t *testing.T) {
	f := newFixture(t)
	s := f.session(t)
	z, err := s.EncryptConstant(0)
	require.NoError(t, err)
	assert.False(t, z.IsZero())
	assert.Equal(t, int64(0), f.decrypt(t, s, z))

	again, err := s.EncryptConstant(0)
	require.NoError(t, err)
	assert.Equal(t, z, again)
}

func TestLessOrEqualIsSymbolic(t *testing.T) {
	f := newFixture(t)
	s := f.session(t)
	a, _ := s.ImportCiphertext(f.input(t, testUser, 100), testUser)
	b, _ := s.ImportCiphertext(f.input(t, testUser, 1), testUser)

	le, err := s.LessOrEqual(a, b)
	require.NoError(t, err)
	assert.True(t, s.IsInitialized(le))
	assert.False(t, s.IsInitialized(Handle{}))

	rec, err := s.Record(le)
	require.NoError(t, err)
	assert.Equal(t, EBool, rec.Type)
	assert.Equal(t, "le", rec.Op)
	assert.Equal(t, []Handle{a, b}, rec.Operands)
	assert.Empty(t, rec.Value)

	_, err = s.Add(le, a)
	assert.ErrorIs(t, err, ErrTypeMismatch)
}

func TestWritesAreBufferedUntilCommit(t *testing.T) {
	f := newFixture(t)
	s := f.session(t)
	before := f.store.puts

	a, err := s.ImportCiphertext(f.input(t, testUser, 3), testUser)
	require.NoError(t, err)
	require.NoError(t, s.GrantSelfAccess(a))
	require.NoError(t, s.GrantAccess(a, testUser))
	assert.Equal(t, before, f.store.puts)

	require.NoError(t, s.Commit())
	assert.Equal(t, before+3, f.store.puts)
	assert.Contains(t, f.store.kv, "ACL::"+a.String()+"::"+testUser)
	assert.Contains(t, f.store.kv, "ACL::"+a.String()+"::"+testSelf)
	assert.Contains(t, f.store.kv, "CT::"+a.String())
}

func TestTransientAccessDoesNotOutliveSession(t *testing.T) {
	f := newFixture(t)
	s := f.session(t)
	a, err := s.ImportCiphertext(f.input(t, testUser, 3), testUser)
	require.NoError(t, err)
	require.NoError(t, s.Commit())

	next := f.session(t)
	_, err = next.Add(a, a)
	assert.ErrorIs(t, err, ErrAccessDenied)
	assert.ErrorIs(t, next.GrantAccess(a, testUser), ErrAccessDenied)
}

func TestPersistedAccessAcrossSessions(t *testing.T) {
	f := newFixture(t)
	s := f.session(t)
	a, _ := s.ImportCiphertext(f.input(t, testUser, 3), testUser)
	require.NoError(t, s.GrantSelfAccess(a))
	require.NoError(t, s.GrantAccess(a, testUser))
	require.NoError(t, s.Commit())

	next := f.session(t)
	ok, err := next.IsAllowed(a, testUser)
	require.NoError(t, err)
	assert.True(t, ok)
	ok, err = next.IsAllowed(a, "intruder")
	require.NoError(t, err)
	assert.False(t, ok)

	sum, err := next.Add(a, a)
	require.NoError(t, err)
	assert.Equal(t, int64(6), f.decrypt(t, next, sum))
}

func TestGrantOnZeroHandle(t *testing.T) {
	f := newFixture(t)
	s := f.session(t)
	assert.ErrorIs(t, s.GrantAccess(Handle{}, testUser), ErrUnknownHandle)
	_, err := s.Record(Handle{})
	assert.ErrorIs(t, err, ErrUnknownHandle)
}

func TestHandleText(t *testing.T) {
	h := derive("x", []byte("y"))
	p, err := ParseHandle("0x" + h.String())
	require.NoError(t, err)
	assert.Equal(t, h, p)

	z, err := ParseHandle("")
	require.NoError(t, err)
	assert.True(t, z.IsZero())

	_, err = ParseHandle("abcd")
	assert.ErrorIs(t, err, ErrUnknownHandle)
	_, err = ParseHandle("zz")
	assert.ErrorIs(t, err, ErrUnknownHandle)

	b, err := json.Marshal(struct{ H Handle }{h})
	require.NoError(t, err)
	assert.JSONEq(t, `{"H":"`+h.String()+`"}`, string(b))
}
