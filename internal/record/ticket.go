package record

import (
	"encoding/binary"

	"raffle-escrow/internal/address"
)

// Ticket is immutable once written.
type Ticket struct {
	Buyer        address.Address
	TicketNumber uint32
	Raffle       address.Address
	Bump         uint8
}

const TicketSize = DiscriminatorSize + 32 + 4 + 32 + 1

func (t *Ticket) Encode() []byte {
	w := &writer{buf: make([]byte, 0, TicketSize)}
	w.bytes(TicketDiscriminator[:])
	w.bytes(t.Buyer[:])
	w.u32(t.TicketNumber)
	w.bytes(t.Raffle[:])
	w.u8(t.Bump)
	return w.buf
}

func DecodeTicket(data []byte) (*Ticket, error) {
	if err := TicketDiscriminator.Check(data); err != nil {
		return nil, err
	}

	r := &reader{buf: data, offset: DiscriminatorSize}
	ticket := &Ticket{
		Buyer:        r.address(),
		TicketNumber: r.u32(),
		Raffle:       r.address(),
		Bump:         r.u8(),
	}

	if r.err != nil {
		return nil, r.err
	}
	return ticket, nil
}

// TicketSeed encodes a ticket number the way it enters address derivation.
func TicketSeed(number uint32) []byte {
	return binary.LittleEndian.AppendUint32(nil, number)
}
