package fhe

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"strings"
)

// Handle is an opaque reference to a ciphertext held by the engine. The zero
// handle is "uninitialized" and behaves as an encryption of zero.
type Handle [32]byte

// IsZero reports whether h is the uninitialized handle.
func (h Handle) IsZero() bool { return h == Handle{} }

// String returns the lowercase hex form of h.
func (h Handle) String() string { return hex.EncodeToString(h[:]) }

// MarshalText implements encoding.TextMarshaler.
func (h Handle) MarshalText() ([]byte, error) { return []byte(h.String()), nil }

// UnmarshalText implements encoding.TextUnmarshaler.
func (h *Handle) UnmarshalText(b []byte) error {
	p, err := ParseHandle(string(b))
	if err != nil {
		return err
	}
	*h = p
	return nil
}

// ParseHandle decodes a 32-byte hex handle. An empty string is the zero handle.
func ParseHandle(s string) (Handle, error) {
	var h Handle
	s = strings.TrimPrefix(strings.TrimSpace(s), "0x")
	if s == "" {
		return h, nil
	}
	b, err := hex.DecodeString(s)
	if err != nil {
		return h, fmt.Errorf("%w: %q is not hex", ErrUnknownHandle, s)
	}
	if len(b) != len(h) {
		return h, fmt.Errorf("%w: want %d bytes, got %d", ErrUnknownHandle, len(h), len(b))
	}
	copy(h[:], b)
	return h, nil
}

// derive computes handles deterministically so every endorsing peer assigns
// the same handle to the same operation.
func derive(op string, parts ...[]byte) Handle {
	d := sha256.New()
	d.Write([]byte(op))
	for _, p := range parts {
		var n [4]byte
		binary.BigEndian.PutUint32(n[:], uint32(len(p)))
		d.Write(n[:])
		d.Write(p)
	}
	var h Handle
	copy(h[:], d.Sum(nil))
	return h
}
