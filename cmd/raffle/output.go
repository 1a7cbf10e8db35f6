package main

import (
	"context"
	"fmt"
	"math/big"
	"os"
	"time"

	"raffle-escrow/internal/address"
	"raffle-escrow/internal/raffle"
	"raffle-escrow/internal/record"

	"github.com/goccy/go-json"
	"github.com/shopspring/decimal"
)

// solDecimals is the number of lamport digits in one SOL.
const solDecimals = 9

func toSol(lamports uint64) decimal.Decimal {
	return decimal.NewFromBigInt(new(big.Int).SetUint64(lamports), -solDecimals)
}

// parseSol converts a SOL amount to lamports, rejecting fractions of a
// lamport and negative values.
func parseSol(s string) (uint64, error) {
	amount, err := decimal.NewFromString(s)
	if err != nil {
		return 0, fmt.Errorf("amount %q: %w", s, err)
	}

	lamports := amount.Shift(solDecimals)
	if lamports.IsNegative() || !lamports.IsInteger() {
		return 0, fmt.Errorf("amount %q is not a whole number of lamports", s)
	}

	value := lamports.BigInt()
	if !value.IsUint64() {
		return 0, fmt.Errorf("amount %q is too large", s)
	}
	return value.Uint64(), nil
}

type raffleView struct {
	Address      string          `json:"address"`
	Creator      string          `json:"creator"`
	TicketPrice  decimal.Decimal `json:"ticket_price_sol"`
	TicketsSold  uint32          `json:"tickets_sold"`
	EndTime      string          `json:"end_time"`
	Winner       string          `json:"winner"`
	PrizeClaimed bool            `json:"prize_claimed"`
	Phase        string          `json:"phase"`
	Escrow       decimal.Decimal `json:"escrow_sol"`
}

func (a *app) describe(ctx context.Context, raffleAddress address.Address, current *record.Raffle) (*raffleView, error) {
	escrow, err := a.program.EscrowBalance(ctx, raffleAddress)
	if err != nil {
		return nil, err
	}

	winner := "not drawn"
	if current.Winner != nil {
		winner = fmt.Sprintf("ticket #%d", *current.Winner)
	}

	return &raffleView{
		Address:      raffleAddress.String(),
		Creator:      current.Creator.String(),
		TicketPrice:  toSol(current.TicketPrice),
		TicketsSold:  current.TicketCount,
		EndTime:      time.Unix(current.EndTs, 0).UTC().Format(time.RFC3339),
		Winner:       winner,
		PrizeClaimed: current.PrizeClaimed,
		Phase:        raffle.PhaseOf(current).String(),
		Escrow:       toSol(escrow),
	}, nil
}

type resultView struct {
	Instruction  raffle.Kind      `json:"instruction"`
	Raffle       string           `json:"raffle"`
	Ticket       string           `json:"ticket,omitempty"`
	TicketNumber *uint32          `json:"ticket_number,omitempty"`
	Winner       *uint32          `json:"winner,omitempty"`
	Amount       *decimal.Decimal `json:"amount_sol,omitempty"`
	Migrated     *record.Raffle   `json:"migrated,omitempty"`
}

func newResultView(result *raffle.Result) *resultView {
	view := &resultView{
		Instruction:  result.Instruction,
		Raffle:       result.Raffle.String(),
		TicketNumber: result.TicketNumber,
		Winner:       result.Winner,
		Migrated:     result.Migrated,
	}
	if result.Ticket != nil {
		view.Ticket = result.Ticket.String()
	}
	if result.Amount != nil {
		amount := toSol(*result.Amount)
		view.Amount = &amount
	}
	return view
}

func printJSON(v any) error {
	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	return encoder.Encode(v)
}
