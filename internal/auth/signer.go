package auth

import (
	"crypto/ed25519"
	"crypto/rand"
	"encoding/hex"
	"fmt"

	"raffle-escrow/internal/address"

	"github.com/tonkeeper/tongo/wallet"
)

// Signer holds an ed25519 key pair; its public key is its address.
type Signer struct {
	private ed25519.PrivateKey
}

func NewSigner() (*Signer, error) {
	_, private, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return nil, err
	}
	return &Signer{private: private}, nil
}

// SignerFromMnemonic derives the key the same way TON wallets do.
func SignerFromMnemonic(mnemonic string) (*Signer, error) {
	private, err := wallet.SeedToPrivateKey(mnemonic)
	if err != nil {
		return nil, fmt.Errorf("auth: mnemonic: %w", err)
	}
	return &Signer{private: private}, nil
}

// SignerFromSeedHex loads a signer from a hex encoded 32-byte ed25519 seed.
func SignerFromSeedHex(seedHex string) (*Signer, error) {
	seed, err := hex.DecodeString(seedHex)
	if err != nil {
		return nil, fmt.Errorf("auth: seed: %w", err)
	}
	if len(seed) != ed25519.SeedSize {
		return nil, fmt.Errorf("auth: seed must be %d bytes, got %d", ed25519.SeedSize, len(seed))
	}
	return &Signer{private: ed25519.NewKeyFromSeed(seed)}, nil
}

func (s *Signer) Address() address.Address {
	var a address.Address
	copy(a[:], s.private.Public().(ed25519.PublicKey))
	return a
}

func (s *Signer) SeedHex() string {
	return hex.EncodeToString(s.private.Seed())
}

func (s *Signer) Sign(message []byte) []byte {
	return ed25519.Sign(s.private, message)
}
