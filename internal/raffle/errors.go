package raffle

import (
	"errors"
	"fmt"
)

// Error is a raffle rule violation. Codes follow declaration order starting
// at 6000 so clients can match on either the code or the name.
type Error struct {
	Code    uint32
	Name    string
	Message string
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s (%d): %s", e.Name, e.Code, e.Message)
}

var (
	ErrRaffleEnded         = &Error{Code: 6000, Name: "RaffleEnded", Message: "The raffle has already ended"}
	ErrRaffleNotEnded      = &Error{Code: 6001, Name: "RaffleNotEnded", Message: "The raffle has not ended yet"}
	ErrNotCreator          = &Error{Code: 6002, Name: "NotCreator", Message: "Only creator can call this"}
	ErrNoTicketsSold       = &Error{Code: 6003, Name: "NoTicketsSold", Message: "No tickets were sold"}
	ErrWinnerAlreadyDrawn  = &Error{Code: 6004, Name: "WinnerAlreadyDrawn", Message: "Winner has already been drawn"}
	ErrWinnerNotDrawn      = &Error{Code: 6005, Name: "WinnerNotDrawn", Message: "Winner has not been drawn yet"}
	ErrNotWinner           = &Error{Code: 6006, Name: "NotWinner", Message: "You are not the winner"}
	ErrNotTicketOwner      = &Error{Code: 6007, Name: "NotTicketOwner", Message: "You do not own this ticket"}
	ErrPrizeAlreadyClaimed = &Error{Code: 6008, Name: "PrizeAlreadyClaimed", Message: "Prize has already been claimed"}
)

var (
	ErrTicketCountOverflow = errors.New("raffle: ticket count overflow")
	ErrAddressMismatch     = errors.New("raffle: record is not stored at its derived address")
	ErrForeignTicket       = errors.New("raffle: ticket belongs to another raffle")
	ErrEscrowBelowMinimum  = errors.New("raffle: release would leave escrow below the retained minimum")
	ErrUnknownInstruction  = errors.New("raffle: unknown instruction")
	ErrInvalidNonce        = errors.New("raffle: instruction nonce is not a uuid")
	ErrStaleTickets        = errors.New("raffle: tickets of a closed raffle still occupy this raffle's ticket addresses")
)
