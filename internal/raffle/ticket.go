package raffle

import (
	"errors"
	"fmt"

	"raffle-escrow/internal/address"
	"raffle-escrow/internal/host"
	"raffle-escrow/internal/record"
)

const TicketSeed = "ticket_v2"

func DeriveTicketAddress(programID, raffle address.Address, number uint32) (address.Address, address.Proof, error) {
	return address.Derive(programID, []byte(TicketSeed), raffle[:], record.TicketSeed(number))
}

// issueTicket appends the ticket record for the next sequence number. The
// buyer pays its storage deposit.
func issueTicket(inv *host.Invocation, raffle, buyer address.Address, number uint32) (address.Address, error) {
	ticketAddress, proof, err := DeriveTicketAddress(inv.ProgramID(), raffle, number)
	if err != nil {
		return address.Zero, fmt.Errorf("derive ticket: %w", err)
	}

	ticket := &record.Ticket{
		Buyer:        buyer,
		TicketNumber: number,
		Raffle:       raffle,
		Bump:         proof.Bump,
	}
	if err := inv.CreateRecord(ticketAddress, buyer, ticket.Encode()); err != nil {
		return address.Zero, err
	}

	return ticketAddress, nil
}

// loadTicket reads a ticket of the given raffle and checks it sits at the
// address derived from its own number.
func loadTicket(inv *host.Invocation, raffle, ticketAddress address.Address) (*record.Ticket, error) {
	data, err := inv.LoadRecord(ticketAddress)
	if err != nil {
		return nil, err
	}

	ticket, err := record.DecodeTicket(data)
	if err != nil {
		return nil, fmt.Errorf("ticket %s: %w", ticketAddress, err)
	}
	if ticket.Raffle != raffle {
		return nil, fmt.Errorf("%w: %s", ErrForeignTicket, ticketAddress)
	}

	expected, proof, err := DeriveTicketAddress(inv.ProgramID(), raffle, ticket.TicketNumber)
	if err != nil {
		return nil, err
	}
	if expected != ticketAddress || proof.Bump != ticket.Bump {
		return nil, fmt.Errorf("%w: ticket %s", ErrAddressMismatch, ticketAddress)
	}

	return ticket, nil
}

// tickets lists the tickets of a raffle in sequence order.
func tickets(inv *host.Invocation, raffle address.Address, count uint32) ([]*record.Ticket, error) {
	issued := make([]*record.Ticket, 0, count)
	for number := uint32(0); number < count; number++ {
		ticketAddress, _, err := DeriveTicketAddress(inv.ProgramID(), raffle, number)
		if err != nil {
			return nil, err
		}

		ticket, err := loadTicket(inv, raffle, ticketAddress)
		if errors.Is(err, host.ErrAccountNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		issued = append(issued, ticket)
	}
	return issued, nil
}
