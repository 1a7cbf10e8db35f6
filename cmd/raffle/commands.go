package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"math"
	"time"

	"raffle-escrow/internal/address"
	"raffle-escrow/internal/auth"
	"raffle-escrow/internal/logger"
	"raffle-escrow/internal/raffle"

	"go.uber.org/zap"
)

func runKeygen(_ context.Context, _ *app, args []string) error {
	fs := flag.NewFlagSet("keygen", flag.ContinueOnError)
	if err := fs.Parse(args); err != nil {
		return err
	}

	signer, err := auth.NewSigner()
	if err != nil {
		return err
	}
	return printJSON(map[string]string{
		"address": signer.Address().String(),
		"seed":    signer.SeedHex(),
	})
}

func runFund(ctx context.Context, a *app, args []string) error {
	fs := flag.NewFlagSet("fund", flag.ContinueOnError)
	seed := fs.String("seed", "", "hex seed of the signer to fund when -to is empty")
	to := fs.String("to", "", "address to credit")
	amount := fs.String("sol", "1", "amount in SOL")
	if err := fs.Parse(args); err != nil {
		return err
	}

	lamports, err := parseSol(*amount)
	if err != nil {
		return err
	}

	var recipient address.Address
	if *to != "" {
		if recipient, err = address.Parse(*to); err != nil {
			return err
		}
	} else {
		signer, err := a.signer(*seed)
		if err != nil {
			return err
		}
		recipient = signer.Address()
	}

	if err := a.runtime.Fund(ctx, recipient, lamports); err != nil {
		return err
	}

	balance, err := a.program.Balance(ctx, recipient)
	if err != nil {
		return err
	}
	return printJSON(map[string]any{
		"address": recipient.String(),
		"funded":  toSol(lamports),
		"balance": toSol(balance),
	})
}

func runInit(ctx context.Context, a *app, args []string) error {
	fs := flag.NewFlagSet("init", flag.ContinueOnError)
	seed := fs.String("seed", "", "hex seed of the creator, defaults to the configured signer")
	price := fs.String("price", "0.1", "ticket price in SOL")
	duration := fs.Duration("duration", 24*time.Hour, "how long tickets are sold")
	end := fs.Int64("end", 0, "explicit end as unix seconds, overrides -duration")
	if err := fs.Parse(args); err != nil {
		return err
	}

	creator, err := a.signer(*seed)
	if err != nil {
		return err
	}
	ticketPrice, err := parseSol(*price)
	if err != nil {
		return err
	}

	endTs := *end
	if endTs == 0 {
		endTs = time.Now().Add(*duration).Unix()
	}

	return a.submit(ctx, raffle.InitializeRaffle{
		Creator:     creator.Address(),
		TicketPrice: ticketPrice,
		EndTs:       endTs,
	}, creator)
}

func runBuy(ctx context.Context, a *app, args []string) error {
	fs := flag.NewFlagSet("buy", flag.ContinueOnError)
	seed := fs.String("seed", "", "hex seed of the buyer, defaults to the configured signer")
	raffleFlag := fs.String("raffle", "", "raffle address")
	creatorFlag := fs.String("creator", "", "creator address, instead of -raffle")
	if err := fs.Parse(args); err != nil {
		return err
	}

	buyer, err := a.signer(*seed)
	if err != nil {
		return err
	}
	raffleAddress, err := a.raffleAddress(*raffleFlag, *creatorFlag, nil)
	if err != nil {
		return err
	}

	return a.submit(ctx, raffle.BuyTicket{Buyer: buyer.Address(), Raffle: raffleAddress}, buyer)
}

func runDraw(ctx context.Context, a *app, args []string) error {
	fs := flag.NewFlagSet("draw", flag.ContinueOnError)
	seed := fs.String("seed", "", "hex seed of the creator, defaults to the configured signer")
	if err := fs.Parse(args); err != nil {
		return err
	}

	creator, err := a.signer(*seed)
	if err != nil {
		return err
	}
	raffleAddress, err := a.raffleAddress("", "", creator)
	if err != nil {
		return err
	}

	return a.submit(ctx, raffle.DrawWinner{Creator: creator.Address(), Raffle: raffleAddress}, creator)
}

func runClaim(ctx context.Context, a *app, args []string) error {
	fs := flag.NewFlagSet("claim", flag.ContinueOnError)
	seed := fs.String("seed", "", "hex seed of the winner, defaults to the configured signer")
	raffleFlag := fs.String("raffle", "", "raffle address")
	creatorFlag := fs.String("creator", "", "creator address, instead of -raffle")
	ticket := fs.Uint("ticket", 0, "winning ticket number")
	if err := fs.Parse(args); err != nil {
		return err
	}

	number, err := ticketNumber(*ticket)
	if err != nil {
		return err
	}
	winner, err := a.signer(*seed)
	if err != nil {
		return err
	}
	raffleAddress, err := a.raffleAddress(*raffleFlag, *creatorFlag, nil)
	if err != nil {
		return err
	}
	ticketAddress, err := a.program.TicketAddress(raffleAddress, number)
	if err != nil {
		return err
	}

	return a.submit(ctx, raffle.ClaimPrize{Winner: winner.Address(), Raffle: raffleAddress, Ticket: ticketAddress}, winner)
}

// ticketNumber narrows a -ticket flag value to a ticket number.
func ticketNumber(value uint) (uint32, error) {
	if uint64(value) > math.MaxUint32 {
		return 0, fmt.Errorf("ticket number %d is out of range", value)
	}
	return uint32(value), nil
}

// runClose closes the raffle of every creator seed given as an argument, or
// of the configured signer. One failing creator does not stop the others.
func runClose(ctx context.Context, a *app, args []string) error {
	fs := flag.NewFlagSet("close", flag.ContinueOnError)
	fs.Usage = func() {
		fmt.Fprintln(fs.Output(), "usage: raffle close [creator-seed-hex ...]")
	}
	if err := fs.Parse(args); err != nil {
		return err
	}

	seeds := fs.Args()
	if len(seeds) == 0 {
		seeds = []string{""}
	}

	type outcome struct {
		Creator string `json:"creator"`
		Raffle  string `json:"raffle,omitempty"`
		Swept   string `json:"swept_sol,omitempty"`
		Error   string `json:"error,omitempty"`
	}

	var failed int
	outcomes := make([]outcome, 0, len(seeds))
	for _, seed := range seeds {
		creator, err := a.signer(seed)
		if err != nil {
			failed++
			outcomes = append(outcomes, outcome{Error: err.Error()})
			continue
		}

		o := outcome{Creator: creator.Address().String()}
		result, err := a.closeRaffle(ctx, creator)
		if err != nil {
			failed++
			o.Error = err.Error()
			logger.Warn("cannot close raffle", zap.String("creator", o.Creator), zap.Error(err))
		} else {
			o.Raffle = result.Raffle.String()
			o.Swept = toSol(*result.Amount).String()
		}
		outcomes = append(outcomes, o)
	}

	if err := printJSON(outcomes); err != nil {
		return err
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d raffles not closed", failed, len(seeds))
	}
	return nil
}

func (a *app) closeRaffle(ctx context.Context, creator *auth.Signer) (*raffle.Result, error) {
	raffleAddress, err := a.program.RaffleAddress(creator.Address())
	if err != nil {
		return nil, err
	}

	envelope, err := raffle.NewEnvelope(raffle.CloseRaffle{Creator: creator.Address(), Raffle: raffleAddress}, creator)
	if err != nil {
		return nil, err
	}
	return a.program.Submit(ctx, envelope)
}

func runMigrate(ctx context.Context, a *app, args []string) error {
	fs := flag.NewFlagSet("migrate", flag.ContinueOnError)
	seed := fs.String("seed", "", "hex seed of the authority, defaults to the configured signer")
	raffleFlag := fs.String("raffle", "", "raffle address")
	creatorFlag := fs.String("creator", "", "creator address, instead of -raffle")
	if err := fs.Parse(args); err != nil {
		return err
	}

	authority, err := a.signer(*seed)
	if err != nil {
		return err
	}
	raffleAddress, err := a.raffleAddress(*raffleFlag, *creatorFlag, nil)
	if err != nil {
		return err
	}

	return a.submit(ctx, raffle.MigrateRaffle{Authority: authority.Address(), Raffle: raffleAddress}, authority)
}

func runShow(ctx context.Context, a *app, args []string) error {
	fs := flag.NewFlagSet("show", flag.ContinueOnError)
	raffleFlag := fs.String("raffle", "", "raffle address")
	creatorFlag := fs.String("creator", "", "creator address, instead of -raffle")
	if err := fs.Parse(args); err != nil {
		return err
	}

	if *raffleFlag == "" && *creatorFlag == "" {
		listings, err := a.program.FindRaffles(ctx)
		if err != nil {
			return err
		}

		views := make([]*raffleView, 0, len(listings))
		for _, listing := range listings {
			view, err := a.describe(ctx, listing.Address, listing.Raffle)
			if err != nil {
				return err
			}
			views = append(views, view)
		}
		return printJSON(views)
	}

	raffleAddress, err := a.raffleAddress(*raffleFlag, *creatorFlag, nil)
	if err != nil {
		return err
	}
	current, err := a.program.Raffle(ctx, raffleAddress)
	if err != nil {
		return err
	}
	view, err := a.describe(ctx, raffleAddress, current)
	if err != nil {
		return err
	}
	return printJSON(view)
}

// signer returns the signer for seedHex, or the configured one when empty.
func (a *app) signer(seedHex string) (*auth.Signer, error) {
	if seedHex != "" {
		return auth.SignerFromSeedHex(seedHex)
	}
	return a.config.OperatorSigner()
}

// raffleAddress resolves a raffle from an explicit address, a creator
// address or the creator signer, in that order.
func (a *app) raffleAddress(raffleFlag, creatorFlag string, creator *auth.Signer) (address.Address, error) {
	switch {
	case raffleFlag != "":
		return address.Parse(raffleFlag)
	case creatorFlag != "":
		creatorAddress, err := address.Parse(creatorFlag)
		if err != nil {
			return address.Zero, err
		}
		return a.program.RaffleAddress(creatorAddress)
	case creator != nil:
		return a.program.RaffleAddress(creator.Address())
	}
	return address.Zero, errors.New("either -raffle or -creator is required")
}

func (a *app) submit(ctx context.Context, instruction raffle.Instruction, signers ...*auth.Signer) error {
	envelope, err := raffle.NewEnvelope(instruction, signers...)
	if err != nil {
		return err
	}

	result, err := a.program.Submit(ctx, envelope)
	if err != nil {
		return err
	}
	return printJSON(newResultView(result))
}
