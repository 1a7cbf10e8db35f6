// Package migration repairs raffle records persisted before prize_claimed was
// guaranteed to hold a valid boolean.
package migration

import (
	"encoding/binary"
	"errors"
	"fmt"

	"raffle-escrow/internal/address"
	"raffle-escrow/internal/record"
)

var ErrRecordTooShort = errors.New("migration: record too short")

// Legacy V1 layout, after the 8-byte header:
//
//	creator[32] ticket_price[8] ticket_count[4] end_ts[8]
//	winner_tag[1] (winner[4] when tag != 0) prize_claimed[1] ... bump[1]
//
// prize_claimed may hold any byte and is never read. The bump is the last
// byte of the buffer.
const (
	creatorOffset     = record.DiscriminatorSize
	ticketPriceOffset = creatorOffset + 32
	ticketCountOffset = ticketPriceOffset + 8
	endTsOffset       = ticketCountOffset + 4
	winnerTagOffset   = endTsOffset + 8
	winnerOffset      = winnerTagOffset + 1
)

// LegacyRaffleV1 holds the fields that survive from a legacy record.
type LegacyRaffleV1 struct {
	Creator     address.Address
	TicketPrice uint64
	TicketCount uint32
	EndTs       int64
	Winner      *uint32
	Bump        uint8
}

// minimumLength covers every parsed field plus the prize_claimed slot and
// the trailing bump.
func minimumLength(hasWinner bool) int {
	if hasWinner {
		return winnerOffset + 4 + 2
	}
	return winnerOffset + 2
}

// ParseLegacyV1 reads a legacy raffle record. Nothing is interpreted beyond
// the fields listed in the layout.
func ParseLegacyV1(data []byte) (*LegacyRaffleV1, error) {
	if len(data) < minimumLength(false) {
		return nil, fmt.Errorf("%w: %d bytes, need at least %d", ErrRecordTooShort, len(data), minimumLength(false))
	}
	if err := record.RaffleDiscriminator.Check(data); err != nil {
		return nil, err
	}

	legacy := &LegacyRaffleV1{
		TicketPrice: binary.LittleEndian.Uint64(data[ticketPriceOffset:ticketCountOffset]),
		TicketCount: binary.LittleEndian.Uint32(data[ticketCountOffset:endTsOffset]),
		EndTs:       int64(binary.LittleEndian.Uint64(data[endTsOffset:winnerTagOffset])),
		Bump:        data[len(data)-1],
	}
	copy(legacy.Creator[:], data[creatorOffset:ticketPriceOffset])

	if data[winnerTagOffset] != 0 {
		if len(data) < minimumLength(true) {
			return nil, fmt.Errorf("%w: %d bytes, need at least %d with a winner", ErrRecordTooShort, len(data), minimumLength(true))
		}
		winner := binary.LittleEndian.Uint32(data[winnerOffset : winnerOffset+4])
		legacy.Winner = &winner
	}

	return legacy, nil
}

// Upgrade converts a legacy record into the current schema with
// prize_claimed forced to false.
func (l *LegacyRaffleV1) Upgrade() *record.Raffle {
	raffle := &record.Raffle{
		Creator:      l.Creator,
		TicketPrice:  l.TicketPrice,
		TicketCount:  l.TicketCount,
		EndTs:        l.EndTs,
		PrizeClaimed: false,
		Bump:         l.Bump,
	}
	if l.Winner != nil {
		winner := *l.Winner
		raffle.Winner = &winner
	}
	return raffle
}

// Transform is the pure legacy-to-current rewrite of a whole record buffer.
func Transform(data []byte) ([]byte, *record.Raffle, error) {
	legacy, err := ParseLegacyV1(data)
	if err != nil {
		return nil, nil, err
	}

	raffle := legacy.Upgrade()
	return raffle.Encode(), raffle, nil
}
