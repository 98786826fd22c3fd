package ledger

import (
	"errors"

	"github.com/Gere321123/FHETaxSystem/internal/fhe"
)

var (
	// ErrUnauthorized is returned when the caller is not the authority.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrInvalidCiphertextProof is returned when an imported ciphertext does
	// not validate against its proof.
	ErrInvalidCiphertextProof = fhe.ErrInvalidCiphertextProof
	// ErrUnknownIdentity is returned for a missing payer record when
	// REQUIRE_REGISTRATION is on, and by record lookups.
	ErrUnknownIdentity = errors.New("unknown identity")
	// ErrNotInitialized is returned by every operation before InitLedger.
	ErrNotInitialized = errors.New("ledger not initialized")
	// ErrAlreadyInitialized is returned by a second InitLedger.
	ErrAlreadyInitialized = errors.New("ledger already initialized")
	// ErrCorruptParams is returned when the stored PARAMS value cannot be
	// decoded. SetParams can still overwrite it.
	ErrCorruptParams = errors.New("corrupt params")
	// ErrAccessDenied is returned when the caller holds no grant on a handle.
	ErrAccessDenied = fhe.ErrAccessDenied
)
