package raffle

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"slices"

	"raffle-escrow/internal/address"
	"raffle-escrow/internal/auth"
	"raffle-escrow/internal/host"
	"raffle-escrow/internal/logger"
	"raffle-escrow/internal/migration"
	"raffle-escrow/internal/record"

	"go.uber.org/zap"
)

// Program is the single entry point of the raffle state machine.
type Program struct {
	runtime *host.Runtime
}

func NewProgram(runtime *host.Runtime) *Program {
	return &Program{runtime: runtime}
}

// Result carries whatever the executed instruction produced.
type Result struct {
	Instruction  Kind             `json:"instruction"`
	Raffle       address.Address  `json:"raffle"`
	Ticket       *address.Address `json:"ticket,omitempty"`
	TicketNumber *uint32          `json:"ticket_number,omitempty"`
	Winner       *uint32          `json:"winner,omitempty"`
	Amount       *uint64          `json:"amount,omitempty"`
	Migrated     *record.Raffle   `json:"migrated,omitempty"`
}

// Submit authenticates the envelope, decodes its instruction and executes it
// atomically. Each envelope is accepted once; resubmitting it fails with
// host.ErrReplayedOperation.
func (p *Program) Submit(ctx context.Context, envelope *auth.Envelope) (*Result, error) {
	signers, err := envelope.Verify()
	if err != nil {
		return nil, err
	}

	instruction, nonce, err := DecodeInstruction(envelope.Payload)
	if err != nil {
		return nil, err
	}

	var result *Result
	err = p.runtime.InvokeOnce(ctx, string(instruction.Kind()), nonce, signers, func(inv *host.Invocation) error {
		var err error
		result, err = execute(inv, instruction)
		return err
	})
	if err != nil {
		var raffleErr *Error
		if errors.As(err, &raffleErr) {
			logger.Warn("instruction refused", zap.String("instruction", string(instruction.Kind())), zap.String("error", raffleErr.Name))
		}
		return nil, err
	}

	return result, nil
}

func execute(inv *host.Invocation, instruction Instruction) (*Result, error) {
	result := &Result{Instruction: instruction.Kind()}

	switch instruction := instruction.(type) {
	case InitializeRaffle:
		raffleAddress, err := Initialize(inv, instruction.Creator, instruction.TicketPrice, instruction.EndTs)
		if err != nil {
			return nil, err
		}
		result.Raffle = raffleAddress

	case BuyTicket:
		number, ticketAddress, err := Buy(inv, instruction.Raffle, instruction.Buyer)
		if err != nil {
			return nil, err
		}
		result.Raffle = instruction.Raffle
		result.Ticket = &ticketAddress
		result.TicketNumber = &number

	case DrawWinner:
		winner, err := Draw(inv, instruction.Raffle, instruction.Creator)
		if err != nil {
			return nil, err
		}
		result.Raffle = instruction.Raffle
		result.Winner = &winner

	case ClaimPrize:
		prize, err := Claim(inv, instruction.Raffle, instruction.Ticket, instruction.Winner)
		if err != nil {
			return nil, err
		}
		result.Raffle = instruction.Raffle
		result.Ticket = &instruction.Ticket
		result.Amount = &prize

	case CloseRaffle:
		swept, err := Close(inv, instruction.Raffle, instruction.Creator)
		if err != nil {
			return nil, err
		}
		result.Raffle = instruction.Raffle
		result.Amount = &swept

	case MigrateRaffle:
		migrated, err := migration.Migrate(inv, instruction.Authority, instruction.Raffle)
		if err != nil {
			return nil, err
		}
		result.Raffle = instruction.Raffle
		result.Migrated = migrated

	default:
		return nil, fmt.Errorf("%w: %T", ErrUnknownInstruction, instruction)
	}

	return result, nil
}

func (p *Program) RaffleAddress(creator address.Address) (address.Address, error) {
	raffleAddress, _, err := DeriveRaffleAddress(p.runtime.ProgramID(), creator)
	return raffleAddress, err
}

func (p *Program) TicketAddress(raffle address.Address, number uint32) (address.Address, error) {
	ticketAddress, _, err := DeriveTicketAddress(p.runtime.ProgramID(), raffle, number)
	return ticketAddress, err
}

func (p *Program) EscrowAddress(raffle address.Address) (address.Address, error) {
	escrowAddress, _, err := DeriveEscrowAddress(p.runtime.ProgramID(), raffle)
	return escrowAddress, err
}

func (p *Program) Raffle(ctx context.Context, raffleAddress address.Address) (*record.Raffle, error) {
	var raffle *record.Raffle
	err := p.runtime.View(ctx, func(inv *host.Invocation) error {
		var err error
		raffle, err = loadRaffle(inv, raffleAddress)
		return err
	})
	return raffle, err
}

func (p *Program) Ticket(ctx context.Context, raffle address.Address, number uint32) (*record.Ticket, error) {
	var ticket *record.Ticket
	err := p.runtime.View(ctx, func(inv *host.Invocation) error {
		ticketAddress, _, err := DeriveTicketAddress(inv.ProgramID(), raffle, number)
		if err != nil {
			return err
		}
		ticket, err = loadTicket(inv, raffle, ticketAddress)
		return err
	})
	return ticket, err
}

// Tickets returns every issued ticket of a raffle in number order.
func (p *Program) Tickets(ctx context.Context, raffleAddress address.Address) ([]*record.Ticket, error) {
	var issued []*record.Ticket
	err := p.runtime.View(ctx, func(inv *host.Invocation) error {
		raffle, err := loadRaffle(inv, raffleAddress)
		if err != nil {
			return err
		}
		issued, err = tickets(inv, raffleAddress, raffle.TicketCount)
		return err
	})
	return issued, err
}

func (p *Program) EscrowBalance(ctx context.Context, raffle address.Address) (uint64, error) {
	var balance uint64
	err := p.runtime.View(ctx, func(inv *host.Invocation) error {
		escrow, err := escrowFor(inv, raffle)
		if err != nil {
			return err
		}
		balance, err = escrow.Balance(inv)
		return err
	})
	return balance, err
}

func (p *Program) Balance(ctx context.Context, a address.Address) (uint64, error) {
	var balance uint64
	err := p.runtime.View(ctx, func(inv *host.Invocation) error {
		var err error
		balance, err = inv.Balance(a)
		return err
	})
	return balance, err
}

// Phase reports Closed for a raffle whose record no longer exists.
func (p *Program) Phase(ctx context.Context, raffleAddress address.Address) (Phase, error) {
	raffle, err := p.Raffle(ctx, raffleAddress)
	if errors.Is(err, host.ErrAccountNotFound) {
		return Closed, nil
	}
	if err != nil {
		return Closed, err
	}
	return PhaseOf(raffle), nil
}

// Listing is a raffle found by FindRaffles.
type Listing struct {
	Address address.Address `json:"address"`
	Raffle  *record.Raffle  `json:"raffle"`
}

// FindRaffles scans program records and returns those that decode as current
// raffles. Tickets and legacy records that no longer decode are skipped.
func (p *Program) FindRaffles(ctx context.Context) ([]Listing, error) {
	var listings []Listing
	err := p.runtime.View(ctx, func(inv *host.Invocation) error {
		records, err := inv.Records()
		if err != nil {
			return err
		}

		for raffleAddress, data := range records {
			raffle, err := record.DecodeRaffle(data)
			if err != nil {
				logger.Debug("skipping undecodable record", zap.String("address", raffleAddress.String()), zap.Error(err))
				continue
			}
			listings = append(listings, Listing{Address: raffleAddress, Raffle: raffle})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	slices.SortFunc(listings, func(a, b Listing) int {
		return bytes.Compare(a.Address[:], b.Address[:])
	})
	return listings, nil
}
