package record

import (
	"raffle-escrow/internal/address"
)

// Raffle is the current schema of a raffle record.
type Raffle struct {
	Creator      address.Address
	TicketPrice  uint64
	TicketCount  uint32
	EndTs        int64
	Winner       *uint32
	PrizeClaimed bool
	Bump         uint8
}

// RaffleMaxSize is the record length with a drawn winner.
const RaffleMaxSize = DiscriminatorSize + 32 + 8 + 4 + 8 + 1 + 4 + 1 + 1

// Size is the exact encoded length including the discriminator.
func (r *Raffle) Size() int {
	if r.Winner == nil {
		return RaffleMaxSize - 4
	}
	return RaffleMaxSize
}

func (r *Raffle) HasWinner() bool {
	return r.Winner != nil
}

func (r *Raffle) Encode() []byte {
	w := &writer{buf: make([]byte, 0, RaffleMaxSize)}
	w.bytes(RaffleDiscriminator[:])
	w.bytes(r.Creator[:])
	w.u64(r.TicketPrice)
	w.u32(r.TicketCount)
	w.i64(r.EndTs)
	w.optionU32(r.Winner)
	w.boolean(r.PrizeClaimed)
	w.u8(r.Bump)
	return w.buf
}

// DecodeRaffle parses a raffle record. Trailing bytes after the bump are
// ignored; a prize_claimed byte other than 0 or 1 is rejected.
func DecodeRaffle(data []byte) (*Raffle, error) {
	if err := RaffleDiscriminator.Check(data); err != nil {
		return nil, err
	}

	r := &reader{buf: data, offset: DiscriminatorSize}
	raffle := &Raffle{
		Creator:     r.address(),
		TicketPrice: r.u64(),
		TicketCount: r.u32(),
		EndTs:       r.i64(),
		Winner:      r.optionU32(),
	}
	raffle.PrizeClaimed = r.boolean()
	raffle.Bump = r.u8()

	if r.err != nil {
		return nil, r.err
	}
	return raffle, nil
}
