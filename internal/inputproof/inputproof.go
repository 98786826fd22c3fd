// Package inputproof binds a submitted ciphertext to the principal submitting
// it and to the channel it is submitted on.
//
// An input verifier (the gateway that accepts encrypted amounts from clients)
// signs the binding with EdDSA over the BN254 twisted Edwards curve, hashing
// with MiMC. The chaincode only holds the verifier's public key, and a
// ciphertext is accepted only with a signature for exactly that
// (domain, user, ciphertext) triple.
package inputproof

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/consensys/gnark-crypto/ecc/bn254/fr"
	"github.com/consensys/gnark-crypto/ecc/bn254/fr/mimc"
	"github.com/consensys/gnark-crypto/ecc/bn254/twistededwards/eddsa"
)

// ErrBadProof is returned when a proof does not verify.
var ErrBadProof = errors.New("input proof does not verify")

const messageTag = "taxledger/input/v1"

// Domain names the scope an input is valid in: one contract on one channel.
func Domain(channelID, contract string) string { return channelID + "/" + contract }

// Message computes the 32-byte field element that is signed for an input.
// ciphertextHex must already be in canonical form.
func Message(domain, user, ciphertextHex string) []byte {
	h := sha256.New()
	h.Write([]byte(messageTag))
	for _, part := range []string{domain, user, ciphertextHex} {
		h.Write([]byte{0})
		h.Write([]byte(part))
	}
	var e fr.Element
	e.SetBytes(h.Sum(nil))
	b := e.Bytes()
	return b[:]
}

// Signer issues input proofs.
type Signer struct {
	key *eddsa.PrivateKey
}

// GenerateSigner creates a fresh input-verifier key.
func GenerateSigner(random io.Reader) (*Signer, error) {
	key, err := eddsa.GenerateKey(random)
	if err != nil {
		return nil, fmt.Errorf("generate eddsa key: %w", err)
	}
	return &Signer{key: key}, nil
}

// ParseSigner restores a signer from the hex encoding produced by Bytes.
func ParseSigner(s string) (*Signer, error) {
	b, err := hex.DecodeString(strings.TrimPrefix(strings.TrimSpace(s), "0x"))
	if err != nil {
		return nil, fmt.Errorf("signer key hex: %w", err)
	}
	key := new(eddsa.PrivateKey)
	if _, err := key.SetBytes(b); err != nil {
		return nil, fmt.Errorf("signer key: %w", err)
	}
	return &Signer{key: key}, nil
}

// Hex returns the private key encoding.
func (s *Signer) Hex() string { return hex.EncodeToString(s.key.Bytes()) }

// Verifier returns the matching public verifier.
func (s *Signer) Verifier() *Verifier {
	return &Verifier{key: s.key.PublicKey}
}

// Sign returns the hex-encoded proof for (domain, user, ciphertextHex).
func (s *Signer) Sign(domain, user, ciphertextHex string) (string, error) {
	sig, err := s.key.Sign(Message(domain, user, ciphertextHex), mimc.NewMiMC())
	if err != nil {
		return "", fmt.Errorf("sign input: %w", err)
	}
	return hex.EncodeToString(sig), nil
}

// Verifier checks input proofs against the verifier public key.
type Verifier struct {
	key eddsa.PublicKey
}

// ParseVerifier decodes a compressed public key from hex.
func ParseVerifier(s string) (*Verifier, error) {
	b, err := hex.DecodeString(strings.TrimPrefix(strings.TrimSpace(s), "0x"))
	if err != nil {
		return nil, fmt.Errorf("verifier key hex: %w", err)
	}
	var v Verifier
	if _, err := v.key.SetBytes(b); err != nil {
		return nil, fmt.Errorf("verifier key: %w", err)
	}
	return &v, nil
}

// Hex returns the compressed public key in hex.
func (v *Verifier) Hex() string { return hex.EncodeToString(v.key.Bytes()) }

// Verify returns nil iff proofHex is a valid signature over the input.
func (v *Verifier) Verify(domain, user, ciphertextHex, proofHex string) error {
	sig, err := hex.DecodeString(strings.TrimPrefix(strings.TrimSpace(proofHex), "0x"))
	if err != nil || len(sig) == 0 {
		return fmt.Errorf("%w: proof is not hex", ErrBadProof)
	}
	ok, err := v.key.Verify(sig, Message(domain, user, ciphertextHex), mimc.NewMiMC())
	if err != nil {
		return fmt.Errorf("%w: %v", ErrBadProof, err)
	}
	if !ok {
		return ErrBadProof
	}
	return nil
}
