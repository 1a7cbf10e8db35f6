package auth

import (
	"crypto/ed25519"
	"errors"
	"fmt"

	"raffle-escrow/internal/address"
)

var ErrInvalidSignature = errors.New("auth: invalid signature")

type Signature struct {
	Signer address.Address `json:"signer"`
	Value  []byte          `json:"value"`
}

// Envelope carries an encoded operation together with the signatures of
// every party that authorized it.
type Envelope struct {
	Payload    []byte      `json:"payload"`
	Signatures []Signature `json:"signatures"`
}

func Seal(payload []byte, signers ...*Signer) *Envelope {
	envelope := &Envelope{Payload: payload}
	for _, signer := range signers {
		envelope.Signatures = append(envelope.Signatures, Signature{
			Signer: signer.Address(),
			Value:  signer.Sign(payload),
		})
	}
	return envelope
}

// Verify checks every attached signature and returns the authenticated set.
// A single bad signature rejects the whole envelope.
func (e *Envelope) Verify() (SignerSet, error) {
	signers := make(SignerSet, len(e.Signatures))
	for _, signature := range e.Signatures {
		if !ed25519.Verify(signature.Signer[:], e.Payload, signature.Value) {
			return nil, fmt.Errorf("%w: %s", ErrInvalidSignature, signature.Signer)
		}
		signers[signature.Signer] = struct{}{}
	}
	return signers, nil
}

// SignerSet is the set of addresses that proved authorization of a call.
type SignerSet map[address.Address]struct{}

func NewSignerSet(addresses ...address.Address) SignerSet {
	set := make(SignerSet, len(addresses))
	for _, a := range addresses {
		set[a] = struct{}{}
	}
	return set
}

func (s SignerSet) Contains(a address.Address) bool {
	_, ok := s[a]
	return ok
}

func (s SignerSet) Addresses() []address.Address {
	addresses := make([]address.Address, 0, len(s))
	for a := range s {
		addresses = append(addresses, a)
	}
	return addresses
}
