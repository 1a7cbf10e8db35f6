package raffle

import (
	"fmt"

	"raffle-escrow/internal/address"
	"raffle-escrow/internal/auth"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
)

type Kind string

const (
	KindInitializeRaffle Kind = "initialize_raffle"
	KindBuyTicket        Kind = "buy_ticket"
	KindDrawWinner       Kind = "draw_winner"
	KindClaimPrize       Kind = "claim_prize"
	KindCloseRaffle      Kind = "close_raffle"
	KindMigrateRaffle    Kind = "migrate_raffle"
)

// Instruction is one operation of the raffle program. Every record an
// instruction touches is named explicitly.
type Instruction interface {
	Kind() Kind
}

type InitializeRaffle struct {
	Creator     address.Address `json:"creator"`
	TicketPrice uint64          `json:"ticket_price"`
	EndTs       int64           `json:"end_ts"`
}

type BuyTicket struct {
	Buyer  address.Address `json:"buyer"`
	Raffle address.Address `json:"raffle"`
}

type DrawWinner struct {
	Creator address.Address `json:"creator"`
	Raffle  address.Address `json:"raffle"`
}

type ClaimPrize struct {
	Winner address.Address `json:"winner"`
	Raffle address.Address `json:"raffle"`
	Ticket address.Address `json:"ticket"`
}

type CloseRaffle struct {
	Creator address.Address `json:"creator"`
	Raffle  address.Address `json:"raffle"`
}

// MigrateRaffle rewrites a legacy raffle record. The authority only has to
// sign; nothing ties it to the raffle, so this must stay an operator tool.
type MigrateRaffle struct {
	Authority address.Address `json:"authority"`
	Raffle    address.Address `json:"raffle"`
}

func (InitializeRaffle) Kind() Kind { return KindInitializeRaffle }
func (BuyTicket) Kind() Kind        { return KindBuyTicket }
func (DrawWinner) Kind() Kind       { return KindDrawWinner }
func (ClaimPrize) Kind() Kind       { return KindClaimPrize }
func (CloseRaffle) Kind() Kind      { return KindCloseRaffle }
func (MigrateRaffle) Kind() Kind    { return KindMigrateRaffle }

type wireInstruction struct {
	Kind   Kind            `json:"kind"`
	Nonce  string          `json:"nonce"`
	Params json.RawMessage `json:"params"`
}

// EncodeInstruction serializes an instruction with a fresh nonce. The program
// accepts each nonce once, so a signed payload cannot be submitted twice.
func EncodeInstruction(instruction Instruction) ([]byte, error) {
	params, err := json.Marshal(instruction)
	if err != nil {
		return nil, err
	}

	return json.Marshal(wireInstruction{
		Kind:   instruction.Kind(),
		Nonce:  uuid.NewString(),
		Params: params,
	})
}

// DecodeInstruction returns the instruction carried by payload together with
// its nonce.
func DecodeInstruction(payload []byte) (Instruction, string, error) {
	var wire wireInstruction
	if err := json.Unmarshal(payload, &wire); err != nil {
		return nil, "", fmt.Errorf("decode instruction: %w", err)
	}

	nonce, err := uuid.Parse(wire.Nonce)
	if err != nil {
		return nil, "", fmt.Errorf("%w: %q", ErrInvalidNonce, wire.Nonce)
	}

	var instruction Instruction
	switch wire.Kind {
	case KindInitializeRaffle:
		instruction, err = decodeParams[InitializeRaffle](wire.Params)
	case KindBuyTicket:
		instruction, err = decodeParams[BuyTicket](wire.Params)
	case KindDrawWinner:
		instruction, err = decodeParams[DrawWinner](wire.Params)
	case KindClaimPrize:
		instruction, err = decodeParams[ClaimPrize](wire.Params)
	case KindCloseRaffle:
		instruction, err = decodeParams[CloseRaffle](wire.Params)
	case KindMigrateRaffle:
		instruction, err = decodeParams[MigrateRaffle](wire.Params)
	default:
		return nil, "", fmt.Errorf("%w: %q", ErrUnknownInstruction, wire.Kind)
	}
	if err != nil {
		return nil, "", err
	}

	return instruction, nonce.String(), nil
}

func decodeParams[T Instruction](params json.RawMessage) (Instruction, error) {
	var instruction T
	if err := json.Unmarshal(params, &instruction); err != nil {
		return nil, fmt.Errorf("decode %s params: %w", instruction.Kind(), err)
	}
	return instruction, nil
}

// NewEnvelope encodes the instruction and signs it by every signer given.
func NewEnvelope(instruction Instruction, signers ...*auth.Signer) (*auth.Envelope, error) {
	payload, err := EncodeInstruction(instruction)
	if err != nil {
		return nil, err
	}
	return auth.Seal(payload, signers...), nil
}
