package raffle

import (
	"fmt"
	"math"

	"raffle-escrow/internal/address"
	"raffle-escrow/internal/host"
	"raffle-escrow/internal/logger"
	"raffle-escrow/internal/record"

	"go.uber.org/zap"
)

const RaffleSeed = "raffle_v2"

// Phase is derived from the raffle record; a closed raffle has no record.
type Phase int

const (
	Selling Phase = iota
	Drawn
	Claimed
	Closed
)

func (p Phase) String() string {
	switch p {
	case Selling:
		return "selling"
	case Drawn:
		return "drawn"
	case Claimed:
		return "claimed"
	case Closed:
		return "closed"
	}
	return fmt.Sprintf("phase(%d)", int(p))
}

func PhaseOf(raffle *record.Raffle) Phase {
	switch {
	case raffle == nil:
		return Closed
	case raffle.PrizeClaimed:
		return Claimed
	case raffle.HasWinner():
		return Drawn
	}
	return Selling
}

// DeriveRaffleAddress gives each creator exactly one live raffle.
func DeriveRaffleAddress(programID, creator address.Address) (address.Address, address.Proof, error) {
	return address.Derive(programID, []byte(RaffleSeed), creator[:])
}

// Initialize opens a raffle in the selling phase. The creator pays the
// record's storage deposit; the escrow starts out empty.
func Initialize(inv *host.Invocation, creator address.Address, ticketPrice uint64, endTs int64) (address.Address, error) {
	if err := inv.RequireSigner(creator); err != nil {
		return address.Zero, err
	}

	raffleAddress, proof, err := DeriveRaffleAddress(inv.ProgramID(), creator)
	if err != nil {
		return address.Zero, fmt.Errorf("derive raffle: %w", err)
	}

	raffle := &record.Raffle{
		Creator:     creator,
		TicketPrice: ticketPrice,
		EndTs:       endTs,
		Bump:        proof.Bump,
	}
	if err := inv.CreateRecord(raffleAddress, creator, raffle.Encode()); err != nil {
		return address.Zero, err
	}

	// ticket addresses depend on the raffle address only, so tickets left by
	// an earlier raffle of this creator would collide with the first sale
	firstTicket, _, err := DeriveTicketAddress(inv.ProgramID(), raffleAddress, 0)
	if err != nil {
		return address.Zero, fmt.Errorf("derive ticket: %w", err)
	}
	if stale, err := inv.Exists(firstTicket); err != nil {
		return address.Zero, err
	} else if stale {
		return address.Zero, fmt.Errorf("%w: %s", ErrStaleTickets, raffleAddress)
	}

	logger.Info("raffle initialized",
		zap.String("raffle", raffleAddress.String()),
		zap.String("creator", creator.String()),
		zap.Uint64("ticket price", ticketPrice),
		zap.Int64("end ts", endTs),
	)
	return raffleAddress, nil
}

// Buy moves the ticket price into escrow and issues the next ticket.
func Buy(inv *host.Invocation, raffleAddress, buyer address.Address) (uint32, address.Address, error) {
	if err := inv.RequireSigner(buyer); err != nil {
		return 0, address.Zero, err
	}

	raffle, err := loadRaffle(inv, raffleAddress)
	if err != nil {
		return 0, address.Zero, err
	}

	if inv.Now() >= raffle.EndTs {
		return 0, address.Zero, ErrRaffleEnded
	}
	if raffle.TicketCount == math.MaxUint32 {
		return 0, address.Zero, ErrTicketCountOverflow
	}

	escrow, err := escrowFor(inv, raffleAddress)
	if err != nil {
		return 0, address.Zero, err
	}
	if err := escrow.Deposit(inv, buyer, raffle.TicketPrice); err != nil {
		return 0, address.Zero, err
	}

	number := raffle.TicketCount
	ticketAddress, err := issueTicket(inv, raffleAddress, buyer, number)
	if err != nil {
		return 0, address.Zero, err
	}

	raffle.TicketCount++
	if err := saveRaffle(inv, raffleAddress, raffle, buyer); err != nil {
		return 0, address.Zero, err
	}

	logger.Debug("ticket sold",
		zap.String("raffle", raffleAddress.String()),
		zap.String("buyer", buyer.String()),
		zap.Uint32("ticket number", number),
	)
	return number, ticketAddress, nil
}

// Draw picks the winning ticket number once sales are over. The draw
// uses WeakRandom and is therefore only as fair as the clock is honest.
func Draw(inv *host.Invocation, raffleAddress, caller address.Address) (uint32, error) {
	raffle, err := loadRaffle(inv, raffleAddress)
	if err != nil {
		return 0, err
	}

	if inv.Now() < raffle.EndTs {
		return 0, ErrRaffleNotEnded
	}
	if err := requireCreator(inv, raffle, caller); err != nil {
		return 0, err
	}
	if raffle.TicketCount == 0 {
		return 0, ErrNoTicketsSold
	}
	if raffle.HasWinner() {
		return 0, ErrWinnerAlreadyDrawn
	}

	winner := WeakRandom(inv.Slot(), inv.Now()) % raffle.TicketCount
	raffle.Winner = &winner
	if err := saveRaffle(inv, raffleAddress, raffle, caller); err != nil {
		return 0, err
	}

	logger.Info("winner drawn",
		zap.String("raffle", raffleAddress.String()),
		zap.Uint32("winner ticket number", winner),
		zap.Uint32("ticket count", raffle.TicketCount),
	)
	return winner, nil
}

// Claim pays the owner of the winning ticket nine tenths of the escrow
// above the retained minimum. The rest stays for the creator.
func Claim(inv *host.Invocation, raffleAddress, ticketAddress, claimant address.Address) (uint64, error) {
	raffle, err := loadRaffle(inv, raffleAddress)
	if err != nil {
		return 0, err
	}

	ticket, err := loadTicket(inv, raffleAddress, ticketAddress)
	if err != nil {
		return 0, err
	}

	if !raffle.HasWinner() {
		return 0, ErrWinnerNotDrawn
	}
	if *raffle.Winner != ticket.TicketNumber {
		return 0, ErrNotWinner
	}
	if ticket.Buyer != claimant {
		return 0, ErrNotTicketOwner
	}
	if err := inv.RequireSigner(claimant); err != nil {
		return 0, err
	}
	if raffle.PrizeClaimed {
		return 0, ErrPrizeAlreadyClaimed
	}

	escrow, err := escrowFor(inv, raffleAddress)
	if err != nil {
		return 0, err
	}
	available, err := escrow.Available(inv)
	if err != nil {
		return 0, err
	}

	prize := PrizeShare(available)
	if err := escrow.Release(inv, claimant, prize); err != nil {
		return 0, err
	}

	raffle.PrizeClaimed = true
	if err := saveRaffle(inv, raffleAddress, raffle, claimant); err != nil {
		return 0, err
	}

	logger.Info("prize claimed",
		zap.String("raffle", raffleAddress.String()),
		zap.String("winner", claimant.String()),
		zap.Uint64("prize", prize),
	)
	return prize, nil
}

// Close sweeps whatever the escrow holds above the retained minimum to the
// creator and destroys the raffle record, returning its deposit as well.
// Neither a draw nor a claim is required first.
func Close(inv *host.Invocation, raffleAddress, caller address.Address) (uint64, error) {
	raffle, err := loadRaffle(inv, raffleAddress)
	if err != nil {
		return 0, err
	}

	if inv.Now() < raffle.EndTs {
		return 0, ErrRaffleNotEnded
	}
	if err := requireCreator(inv, raffle, caller); err != nil {
		return 0, err
	}

	escrow, err := escrowFor(inv, raffleAddress)
	if err != nil {
		return 0, err
	}
	swept, err := escrow.Available(inv)
	if err != nil {
		return 0, err
	}
	if swept > 0 {
		if err := escrow.Release(inv, caller, swept); err != nil {
			return 0, err
		}
	}

	deposit, err := inv.CloseRecord(raffleAddress, caller)
	if err != nil {
		return 0, err
	}

	logger.Info("raffle closed",
		zap.String("raffle", raffleAddress.String()),
		zap.Uint64("swept", swept),
		zap.Uint64("deposit returned", deposit),
		zap.String("phase", PhaseOf(raffle).String()),
	)
	return swept, nil
}

func requireCreator(inv *host.Invocation, raffle *record.Raffle, caller address.Address) error {
	if raffle.Creator != caller {
		return ErrNotCreator
	}
	return inv.RequireSigner(caller)
}

// loadRaffle reads a raffle and checks it sits at the address derived from
// its creator.
func loadRaffle(inv *host.Invocation, raffleAddress address.Address) (*record.Raffle, error) {
	data, err := inv.LoadRecord(raffleAddress)
	if err != nil {
		return nil, err
	}

	raffle, err := record.DecodeRaffle(data)
	if err != nil {
		return nil, fmt.Errorf("raffle %s: %w", raffleAddress, err)
	}

	expected, proof, err := DeriveRaffleAddress(inv.ProgramID(), raffle.Creator)
	if err != nil {
		return nil, err
	}
	if expected != raffleAddress || proof.Bump != raffle.Bump {
		return nil, fmt.Errorf("%w: raffle %s", ErrAddressMismatch, raffleAddress)
	}

	return raffle, nil
}

// saveRaffle writes the record at its exact encoded size; growth is paid by
// payer.
func saveRaffle(inv *host.Invocation, raffleAddress address.Address, raffle *record.Raffle, payer address.Address) error {
	data := raffle.Encode()
	if err := inv.ResizeRecord(raffleAddress, payer, len(data)); err != nil {
		return err
	}
	return inv.WriteRecord(raffleAddress, data)
}
