package address

import (
	"crypto/sha256"
	"errors"
	"fmt"

	"filippo.io/edwards25519"
	"github.com/tonkeeper/tongo/ton"
)

const (
	MaxSeeds      = 16
	MaxSeedLength = 32
)

var (
	ErrMaxSeedLengthExceeded = errors.New("address: seed longer than 32 bytes")
	ErrTooManySeeds          = errors.New("address: more than 16 seeds")
	ErrOnCurve               = errors.New("address: derived address lies on the ed25519 curve")
	ErrNoViableBump          = errors.New("address: unable to find a viable bump seed")
	ErrInvalidProof          = errors.New("address: derivation proof does not match address")
)

var derivationMarker = []byte("ProgramDerivedAddress")

// Address is a 32-byte account identity. Signer addresses are ed25519 public
// keys; derived addresses are guaranteed to be off the curve so nobody holds
// a private key for them.
type Address [32]byte

var Zero Address

// AccountID renders the address in the basechain account form.
func (a Address) AccountID() ton.AccountID {
	return ton.AccountID{Workchain: 0, Address: a}
}

func (a Address) String() string {
	return a.AccountID().ToRaw()
}

func (a Address) Bytes() []byte {
	return a[:]
}

func (a Address) IsZero() bool {
	return a == Zero
}

func (a Address) MarshalText() ([]byte, error) {
	return []byte(a.String()), nil
}

func (a *Address) UnmarshalText(text []byte) error {
	parsed, err := Parse(string(text))
	if err != nil {
		return err
	}
	*a = parsed
	return nil
}

// Parse accepts both the raw "0:<hex>" form and user-friendly account forms.
func Parse(s string) (Address, error) {
	accountID, err := ton.ParseAccountID(s)
	if err != nil {
		return Zero, fmt.Errorf("address: parse %q: %w", s, err)
	}
	return Address(accountID.Address), nil
}

func MustParse(s string) Address {
	a, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return a
}

// IsOnCurve reports whether the bytes decode to a valid ed25519 point.
func IsOnCurve(b []byte) bool {
	_, err := new(edwards25519.Point).SetBytes(b)
	return err == nil
}

// Create computes the address for an exact seed list (bump already appended).
func Create(programID Address, seeds ...[]byte) (Address, error) {
	if len(seeds) > MaxSeeds {
		return Zero, ErrTooManySeeds
	}

	hash := sha256.New()
	for _, seed := range seeds {
		if len(seed) > MaxSeedLength {
			return Zero, ErrMaxSeedLengthExceeded
		}
		hash.Write(seed)
	}
	hash.Write(programID[:])
	hash.Write(derivationMarker)

	var derived Address
	copy(derived[:], hash.Sum(nil))
	if IsOnCurve(derived[:]) {
		return Zero, ErrOnCurve
	}

	return derived, nil
}

// Derive searches bumps from 255 downwards and returns the first off-curve
// address together with the proof that reproduces it.
func Derive(programID Address, seeds ...[]byte) (Address, Proof, error) {
	if len(seeds) >= MaxSeeds {
		return Zero, Proof{}, ErrTooManySeeds
	}

	withBump := make([][]byte, len(seeds)+1)
	copy(withBump, seeds)

	for bump := 255; bump >= 0; bump-- {
		withBump[len(seeds)] = []byte{uint8(bump)}
		derived, err := Create(programID, withBump...)
		if errors.Is(err, ErrOnCurve) {
			continue
		}
		if err != nil {
			return Zero, Proof{}, err
		}

		proof := Proof{Seeds: cloneSeeds(seeds), Bump: uint8(bump)}
		return derived, proof, nil
	}

	return Zero, Proof{}, ErrNoViableBump
}
