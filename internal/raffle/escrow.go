package raffle

import (
	"fmt"
	"math/bits"

	"raffle-escrow/internal/address"
	"raffle-escrow/internal/host"
)

const EscrowSeed = "vault"

// Escrow is the custodian holding the pot of one raffle. It has no data of
// its own; its address is derived from the raffle and only a holder of the
// derivation proof can move funds out of it.
type Escrow struct {
	Address address.Address
	proof   address.Proof
}

func DeriveEscrowAddress(programID, raffle address.Address) (address.Address, address.Proof, error) {
	return address.Derive(programID, []byte(EscrowSeed), raffle[:])
}

func escrowFor(inv *host.Invocation, raffle address.Address) (*Escrow, error) {
	escrowAddress, proof, err := DeriveEscrowAddress(inv.ProgramID(), raffle)
	if err != nil {
		return nil, fmt.Errorf("derive escrow: %w", err)
	}
	return &Escrow{Address: escrowAddress, proof: proof}, nil
}

// RetainedMinimum is the balance a data-less account keeps to stay valid.
// Claim and close both read it from the same rent schedule.
func RetainedMinimum(inv *host.Invocation) uint64 {
	return inv.Rent().MinimumBalance(0)
}

func (e *Escrow) Balance(inv *host.Invocation) (uint64, error) {
	return inv.Balance(e.Address)
}

// Available is the balance above the retained minimum, never negative.
func (e *Escrow) Available(inv *host.Invocation) (uint64, error) {
	balance, err := e.Balance(inv)
	if err != nil {
		return 0, err
	}
	return saturatingSub(balance, RetainedMinimum(inv)), nil
}

func (e *Escrow) Deposit(inv *host.Invocation, from address.Address, lamports uint64) error {
	return inv.Transfer(from, e.Address, lamports, nil)
}

// Release pays out of the escrow. The escrow never drops below the retained
// minimum through a release.
func (e *Escrow) Release(inv *host.Invocation, to address.Address, lamports uint64) error {
	available, err := e.Available(inv)
	if err != nil {
		return err
	}
	if lamports > available {
		return fmt.Errorf("%w: releasing %d, available %d", ErrEscrowBelowMinimum, lamports, available)
	}
	return inv.Transfer(e.Address, to, lamports, &e.proof)
}

// PrizeShare is floor(available * 9 / 10) without intermediate overflow.
func PrizeShare(available uint64) uint64 {
	hi, lo := bits.Mul64(available, 9)
	quotient, _ := bits.Div64(hi, lo, 10)
	return quotient
}

func saturatingSub(a, b uint64) uint64 {
	if a < b {
		return 0
	}
	return a - b
}
