// Package paillier implements the additively homomorphic Paillier scheme used
// for confidential ledger amounts.
//
// Ciphertexts live in Z*_{n^2}. Multiplying two ciphertexts modulo n^2 yields
// an encryption of the sum of their plaintexts, which is what lets the ledger
// accumulate payments without ever seeing them. Only the holder of the
// PrivateKey (an off-chain key service) can decrypt.
package paillier

import (
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math/big"
	"strings"
)

var (
	// ErrMessageRange is returned when a plaintext is negative or >= n.
	ErrMessageRange = errors.New("paillier: message out of range")
	// ErrCiphertextRange is returned for ciphertexts outside (1, n^2).
	ErrCiphertextRange = errors.New("paillier: ciphertext out of range")
	// ErrNotInvertible is returned when gcd(c, n^2) != 1.
	ErrNotInvertible = errors.New("paillier: ciphertext not invertible mod n^2")
)

var one = big.NewInt(1)

// PublicKey holds the Paillier parameters (n, g, n^2).
type PublicKey struct {
	N  *big.Int
	G  *big.Int
	N2 *big.Int
}

// PrivateKey holds λ = lcm(p-1, q-1) and μ = L(g^λ mod n^2)^-1 mod n.
type PrivateKey struct {
	PublicKey
	Lambda *big.Int
	Mu     *big.Int
}

// GenerateKey creates a key pair whose modulus n has the given bit length.
// g is fixed to n+1.
func GenerateKey(random io.Reader, bits int) (*PrivateKey, error) {
	if bits < 128 {
		return nil, fmt.Errorf("paillier: modulus of %d bits is too small", bits)
	}
	for {
		p, err := randPrime(random, bits/2)
		if err != nil {
			return nil, err
		}
		q, err := randPrime(random, bits-bits/2)
		if err != nil {
			return nil, err
		}
		if p.Cmp(q) == 0 {
			continue
		}
		n := new(big.Int).Mul(p, q)
		pm1 := new(big.Int).Sub(p, one)
		qm1 := new(big.Int).Sub(q, one)
		phi := new(big.Int).Mul(pm1, qm1)
		if new(big.Int).GCD(nil, nil, n, phi).Cmp(one) != 0 {
			continue
		}
		gcd := new(big.Int).GCD(nil, nil, pm1, qm1)
		lambda := new(big.Int).Div(phi, gcd)

		pk := PublicKey{N: n, G: new(big.Int).Add(n, one), N2: new(big.Int).Mul(n, n)}
		sk, err := NewPrivateKey(pk, lambda)
		if err != nil {
			continue
		}
		return sk, nil
	}
}

// NewPrivateKey derives μ from the public key and λ.
func NewPrivateKey(pk PublicKey, lambda *big.Int) (*PrivateKey, error) {
	if pk.N2 == nil {
		pk.N2 = new(big.Int).Mul(pk.N, pk.N)
	}
	u := new(big.Int).Exp(pk.G, lambda, pk.N2)
	mu := new(big.Int).ModInverse(lFunc(u, pk.N), pk.N)
	if mu == nil {
		return nil, errors.New("paillier: g does not yield an invertible L(g^λ)")
	}
	return &PrivateKey{PublicKey: pk, Lambda: lambda, Mu: mu}, nil
}

func randPrime(random io.Reader, bits int) (*big.Int, error) {
	p, err := rand.Prime(random, bits)
	if err != nil {
		return nil, fmt.Errorf("paillier: prime generation: %w", err)
	}
	return p, nil
}

// lFunc is L(x) = (x - 1) / n.
func lFunc(x, n *big.Int) *big.Int {
	t := new(big.Int).Sub(x, one)
	return t.Div(t, n)
}

// mulMod returns (x*y) mod m.
func mulMod(x, y, m *big.Int) *big.Int {
	z := new(big.Int).Mul(x, y)
	return z.Mod(z, m)
}

func (pk *PublicKey) checkMessage(m *big.Int) error {
	if m.Sign() < 0 || m.Cmp(pk.N) >= 0 {
		return ErrMessageRange
	}
	return nil
}

// Encrypt returns g^m * r^n mod n^2 for a fresh random r in Z*_n.
func (pk *PublicKey) Encrypt(random io.Reader, m *big.Int) (*big.Int, error) {
	if err := pk.checkMessage(m); err != nil {
		return nil, err
	}
	for {
		r, err := rand.Int(random, pk.N)
		if err != nil {
			return nil, fmt.Errorf("paillier: nonce: %w", err)
		}
		if r.Sign() == 0 || new(big.Int).GCD(nil, nil, r, pk.N).Cmp(one) != 0 {
			continue
		}
		return pk.EncryptWithNonce(m, r), nil
	}
}

// EncryptWithNonce is the deterministic core of Encrypt. The caller is
// responsible for range-checking m and picking r.
func (pk *PublicKey) EncryptWithNonce(m, r *big.Int) *big.Int {
	gm := new(big.Int).Exp(pk.G, m, pk.N2)
	rn := new(big.Int).Exp(r, pk.N, pk.N2)
	return mulMod(gm, rn, pk.N2)
}

// Trivial returns the nonce-free encryption g^m mod n^2 of a public constant.
// Trivial(0) is 1, the multiplicative identity.
func (pk *PublicKey) Trivial(m uint64) *big.Int {
	return new(big.Int).Exp(pk.G, new(big.Int).SetUint64(m), pk.N2)
}

// Add returns an encryption of the sum of the plaintexts of c1 and c2.
func (pk *PublicKey) Add(c1, c2 *big.Int) *big.Int {
	return mulMod(c1, c2, pk.N2)
}

// Validate applies the cheap structural checks for a submitted ciphertext:
// 1 < c < n^2 and gcd(c, n^2) = 1.
func (pk *PublicKey) Validate(c *big.Int) error {
	if c == nil || c.Cmp(one) <= 0 || c.Cmp(pk.N2) >= 0 {
		return ErrCiphertextRange
	}
	if new(big.Int).GCD(nil, nil, c, pk.N2).Cmp(one) != 0 {
		return ErrNotInvertible
	}
	return nil
}

// Decrypt recovers the plaintext of c.
func (sk *PrivateKey) Decrypt(c *big.Int) (*big.Int, error) {
	if c == nil || c.Sign() <= 0 || c.Cmp(sk.N2) >= 0 {
		return nil, ErrCiphertextRange
	}
	u := new(big.Int).Exp(c, sk.Lambda, sk.N2)
	return mulMod(lFunc(u, sk.N), sk.Mu, sk.N), nil
}

// ParseInt parses a hex string, with or without 0x. Digit-only input is hex
// too: "10" is 16.
func ParseInt(s string) (*big.Int, error) {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "0x") || strings.HasPrefix(s, "0X") {
		s = s[2:]
	}
	if s == "" {
		return nil, errors.New("empty integer")
	}
	h := s
	if len(h)%2 == 1 {
		h = "0" + h
	}
	b, err := hex.DecodeString(h)
	if err != nil {
		return nil, fmt.Errorf("bad hex integer: %q", s)
	}
	return new(big.Int).SetBytes(b), nil
}

// FormatInt encodes x as lowercase hex without 0x and without leading zeros.
func FormatInt(x *big.Int) string {
	if x == nil || x.Sign() == 0 {
		return "0"
	}
	return x.Text(16)
}

// Canonical normalises a hex integer string to FormatInt form. Invalid input
// is returned unchanged.
func Canonical(s string) string {
	x, err := ParseInt(s)
	if err != nil {
		return s
	}
	return FormatInt(x)
}

type publicKeyJSON struct {
	N  string `json:"n"`
	G  string `json:"g"`
	N2 string `json:"n2,omitempty"`
}

// MarshalJSON encodes the key as {"n","g","n2"} hex strings.
func (pk PublicKey) MarshalJSON() ([]byte, error) {
	return json.Marshal(publicKeyJSON{N: FormatInt(pk.N), G: FormatInt(pk.G), N2: FormatInt(pk.N2)})
}

// UnmarshalJSON accepts hex n and g; n2 is derived when absent.
func (pk *PublicKey) UnmarshalJSON(b []byte) error {
	var raw publicKeyJSON
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	if raw.N == "" || raw.G == "" {
		return errors.New("paillier: public key must include n and g")
	}
	n, err := ParseInt(raw.N)
	if err != nil {
		return fmt.Errorf("pk.n: %w", err)
	}
	g, err := ParseInt(raw.G)
	if err != nil {
		return fmt.Errorf("pk.g: %w", err)
	}
	if n.Cmp(one) <= 0 {
		return errors.New("paillier: n must be > 1")
	}
	n2 := new(big.Int).Mul(n, n)
	if raw.N2 != "" {
		got, err := ParseInt(raw.N2)
		if err != nil {
			return fmt.Errorf("pk.n2: %w", err)
		}
		if got.Cmp(n2) != 0 {
			return errors.New("paillier: n2 does not match n*n")
		}
	}
	pk.N, pk.G, pk.N2 = n, g, n2
	return nil
}
