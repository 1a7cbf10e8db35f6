package raffle

import (
	"math"
	"testing"

	"raffle-escrow/internal/address"
	"raffle-escrow/internal/auth"
	"raffle-escrow/internal/host"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRaffleEndToEnd(t *testing.T) {
	f := newFixture(t)
	retained := testRent.MinimumBalance(0)

	creator := f.signer(10_000)
	alice := f.signer(1_000)
	bob := f.signer(1_000)

	raffleAddress := f.openRaffle(creator, 100, 1)
	phase, err := f.program.Phase(f.ctx, raffleAddress)
	require.NoError(t, err)
	assert.Equal(t, Selling, phase)

	aliceTicket := f.buy(raffleAddress, alice)
	bobTicket := f.buy(raffleAddress, bob)
	assert.Equal(t, uint32(0), *aliceTicket.TicketNumber)
	assert.Equal(t, uint32(1), *bobTicket.TicketNumber)

	escrowBalance, err := f.program.EscrowBalance(f.ctx, raffleAddress)
	require.NoError(t, err)
	assert.Equal(t, uint64(200), escrowBalance)

	f.clock.Advance(1)
	expected := f.expectedWinner(2)
	drawn := f.mustSubmit(DrawWinner{Creator: creator.Address(), Raffle: raffleAddress}, creator)
	require.Contains(t, []uint32{0, 1}, *drawn.Winner)
	assert.Equal(t, expected, *drawn.Winner)

	phase, err = f.program.Phase(f.ctx, raffleAddress)
	require.NoError(t, err)
	assert.Equal(t, Drawn, phase)

	winner, winningTicket := alice, aliceTicket
	if *drawn.Winner == 1 {
		winner, winningTicket = bob, bobTicket
	}

	before := f.balance(winner.Address())
	claimed := f.mustSubmit(ClaimPrize{Winner: winner.Address(), Raffle: raffleAddress, Ticket: *winningTicket.Ticket}, winner)
	prize := (200 - retained) * 9 / 10
	assert.Equal(t, prize, *claimed.Amount)
	assert.Equal(t, before+prize, f.balance(winner.Address()))

	phase, err = f.program.Phase(f.ctx, raffleAddress)
	require.NoError(t, err)
	assert.Equal(t, Claimed, phase)

	creatorBefore := f.balance(creator.Address())
	raffleDeposit := f.balance(raffleAddress)
	closed := f.mustSubmit(CloseRaffle{Creator: creator.Address(), Raffle: raffleAddress}, creator)
	assert.Equal(t, 200-prize-retained, *closed.Amount)
	assert.Equal(t, creatorBefore+*closed.Amount+raffleDeposit, f.balance(creator.Address()))

	escrowBalance, err = f.program.EscrowBalance(f.ctx, raffleAddress)
	require.NoError(t, err)
	assert.Equal(t, retained, escrowBalance)

	phase, err = f.program.Phase(f.ctx, raffleAddress)
	require.NoError(t, err)
	assert.Equal(t, Closed, phase)

	_, err = f.program.Raffle(f.ctx, raffleAddress)
	assert.ErrorIs(t, err, host.ErrAccountNotFound)
}

func TestTicketNumbersAreSequential(t *testing.T) {
	f := newFixture(t)

	creator := f.signer(10_000)
	buyers := []*auth.Signer{f.signer(10_000), f.signer(10_000), f.signer(10_000)}
	raffleAddress := f.openRaffle(creator, 50, 60)

	const sold = 7
	for i := 0; i < sold; i++ {
		result := f.buy(raffleAddress, buyers[i%len(buyers)])
		assert.Equal(t, uint32(i), *result.TicketNumber)

		expected, err := f.program.TicketAddress(raffleAddress, uint32(i))
		require.NoError(t, err)
		assert.Equal(t, expected, *result.Ticket)
	}

	raffle, err := f.program.Raffle(f.ctx, raffleAddress)
	require.NoError(t, err)
	assert.Equal(t, uint32(sold), raffle.TicketCount)

	issued, err := f.program.Tickets(f.ctx, raffleAddress)
	require.NoError(t, err)
	require.Len(t, issued, sold)
	for i, ticket := range issued {
		assert.Equal(t, uint32(i), ticket.TicketNumber)
		assert.Equal(t, buyers[i%len(buyers)].Address(), ticket.Buyer)
		assert.Equal(t, raffleAddress, ticket.Raffle)
	}

	escrowBalance, err := f.program.EscrowBalance(f.ctx, raffleAddress)
	require.NoError(t, err)
	assert.Equal(t, uint64(sold*50), escrowBalance)
}

func TestBuyTicket(t *testing.T) {
	t.Run("at the deadline", func(t *testing.T) {
		f := newFixture(t)
		creator, buyer := f.signer(10_000), f.signer(10_000)
		raffleAddress := f.openRaffle(creator, 10, 5)

		f.clock.Advance(5)
		_, err := f.submit(BuyTicket{Buyer: buyer.Address(), Raffle: raffleAddress}, buyer)
		assert.ErrorIs(t, err, ErrRaffleEnded)
	})

	t.Run("insufficient funds", func(t *testing.T) {
		f := newFixture(t)
		creator, buyer := f.signer(10_000), f.signer(99)
		raffleAddress := f.openRaffle(creator, 100, 5)

		_, err := f.submit(BuyTicket{Buyer: buyer.Address(), Raffle: raffleAddress}, buyer)
		assert.ErrorIs(t, err, host.ErrInsufficientFunds)

		raffle, err := f.program.Raffle(f.ctx, raffleAddress)
		require.NoError(t, err)
		assert.Equal(t, uint32(0), raffle.TicketCount)
		assert.Equal(t, uint64(99), f.balance(buyer.Address()))
	})

	t.Run("buyer did not sign", func(t *testing.T) {
		f := newFixture(t)
		creator, buyer := f.signer(10_000), f.signer(10_000)
		raffleAddress := f.openRaffle(creator, 10, 5)

		_, err := f.submit(BuyTicket{Buyer: buyer.Address(), Raffle: raffleAddress}, creator)
		assert.ErrorIs(t, err, host.ErrMissingSignature)
	})

	t.Run("unknown raffle", func(t *testing.T) {
		f := newFixture(t)
		buyer := f.signer(10_000)
		stray, err := f.program.RaffleAddress(buyer.Address())
		require.NoError(t, err)

		_, err = f.submit(BuyTicket{Buyer: buyer.Address(), Raffle: stray}, buyer)
		assert.ErrorIs(t, err, host.ErrAccountNotFound)
	})
}

func TestInitializeTwiceFails(t *testing.T) {
	f := newFixture(t)
	creator := f.signer(10_000)
	f.openRaffle(creator, 10, 5)

	_, err := f.submit(InitializeRaffle{Creator: creator.Address(), TicketPrice: 10, EndTs: testStart + 5}, creator)
	assert.ErrorIs(t, err, host.ErrAccountInUse)
}

func TestDrawWinner(t *testing.T) {
	t.Run("before the deadline regardless of caller", func(t *testing.T) {
		f := newFixture(t)
		creator, buyer, stranger := f.signer(10_000), f.signer(10_000), f.signer(10_000)
		raffleAddress := f.openRaffle(creator, 10, 5)
		f.buy(raffleAddress, buyer)

		for _, caller := range []*auth.Signer{creator, stranger} {
			_, err := f.submit(DrawWinner{Creator: caller.Address(), Raffle: raffleAddress}, caller)
			assert.ErrorIs(t, err, ErrRaffleNotEnded)
		}

		raffle, err := f.program.Raffle(f.ctx, raffleAddress)
		require.NoError(t, err)
		assert.Nil(t, raffle.Winner)
	})

	t.Run("not the creator", func(t *testing.T) {
		f := newFixture(t)
		creator, buyer := f.signer(10_000), f.signer(10_000)
		raffleAddress := f.openRaffle(creator, 10, 5)
		f.buy(raffleAddress, buyer)
		f.clock.Advance(5)

		_, err := f.submit(DrawWinner{Creator: buyer.Address(), Raffle: raffleAddress}, buyer)
		assert.ErrorIs(t, err, ErrNotCreator)
	})

	t.Run("creator did not sign", func(t *testing.T) {
		f := newFixture(t)
		creator, buyer := f.signer(10_000), f.signer(10_000)
		raffleAddress := f.openRaffle(creator, 10, 5)
		f.buy(raffleAddress, buyer)
		f.clock.Advance(5)

		_, err := f.submit(DrawWinner{Creator: creator.Address(), Raffle: raffleAddress}, buyer)
		assert.ErrorIs(t, err, host.ErrMissingSignature)
	})

	t.Run("no tickets sold", func(t *testing.T) {
		f := newFixture(t)
		creator := f.signer(10_000)
		raffleAddress := f.openRaffle(creator, 10, 5)
		f.clock.Advance(5)

		_, err := f.submit(DrawWinner{Creator: creator.Address(), Raffle: raffleAddress}, creator)
		assert.ErrorIs(t, err, ErrNoTicketsSold)
	})

	t.Run("twice", func(t *testing.T) {
		f := newFixture(t)
		creator, buyer := f.signer(10_000), f.signer(10_000)
		raffleAddress := f.openRaffle(creator, 10, 5)
		for i := 0; i < 3; i++ {
			f.buy(raffleAddress, buyer)
		}
		f.clock.Advance(5)

		first := f.mustSubmit(DrawWinner{Creator: creator.Address(), Raffle: raffleAddress}, creator)

		f.clock.Advance(7)
		_, err := f.submit(DrawWinner{Creator: creator.Address(), Raffle: raffleAddress}, creator)
		assert.ErrorIs(t, err, ErrWinnerAlreadyDrawn)

		raffle, err := f.program.Raffle(f.ctx, raffleAddress)
		require.NoError(t, err)
		require.NotNil(t, raffle.Winner)
		assert.Equal(t, *first.Winner, *raffle.Winner)
	})
}

func TestWinnerIsWithinSoldTickets(t *testing.T) {
	f := newFixture(t)
	buyer := f.signer(1_000_000)

	for sold := 1; sold <= 9; sold++ {
		creator := f.signer(10_000)
		raffleAddress := f.openRaffle(creator, 1, 1)
		for i := 0; i < sold; i++ {
			f.buy(raffleAddress, buyer)
		}

		f.clock.Advance(int64(sold))
		drawn := f.mustSubmit(DrawWinner{Creator: creator.Address(), Raffle: raffleAddress}, creator)
		assert.Less(t, *drawn.Winner, uint32(sold))
	}
}

func TestWeakRandom(t *testing.T) {
	assert.Equal(t, uint32(30), WeakRandom(3, 10))
	assert.Equal(t, uint32(3310065417), WeakRandom(7, 1_700_000_001))
	assert.Equal(t, uint32(4294967294), WeakRandom(math.MaxUint64, 2))
	assert.Equal(t, uint32(0), WeakRandom(0, 1_700_000_001))
}

func TestClaimPrize(t *testing.T) {
	type drawnRaffle struct {
		f       *fixture
		raffle  address.Address
		winner  *auth.Signer
		loser   *auth.Signer
		tickets map[*auth.Signer]address.Address
	}

	setup := func(t *testing.T, draw bool) drawnRaffle {
		f := newFixture(t)
		creator, alice, bob := f.signer(10_000), f.signer(10_000), f.signer(10_000)
		raffleAddress := f.openRaffle(creator, 300, 5)

		tickets := map[*auth.Signer]address.Address{
			alice: *f.buy(raffleAddress, alice).Ticket,
			bob:   *f.buy(raffleAddress, bob).Ticket,
		}
		f.clock.Advance(5)

		d := drawnRaffle{f: f, raffle: raffleAddress, winner: alice, loser: bob, tickets: tickets}
		if draw {
			drawn := f.mustSubmit(DrawWinner{Creator: creator.Address(), Raffle: raffleAddress}, creator)
			if *drawn.Winner == 1 {
				d.winner, d.loser = bob, alice
			}
		}
		return d
	}

	t.Run("winner not drawn", func(t *testing.T) {
		d := setup(t, false)
		_, err := d.f.submit(ClaimPrize{Winner: d.winner.Address(), Raffle: d.raffle, Ticket: d.tickets[d.winner]}, d.winner)
		assert.ErrorIs(t, err, ErrWinnerNotDrawn)
	})

	t.Run("losing ticket", func(t *testing.T) {
		d := setup(t, true)
		_, err := d.f.submit(ClaimPrize{Winner: d.loser.Address(), Raffle: d.raffle, Ticket: d.tickets[d.loser]}, d.loser)
		assert.ErrorIs(t, err, ErrNotWinner)
	})

	t.Run("winning ticket of someone else", func(t *testing.T) {
		d := setup(t, true)
		_, err := d.f.submit(ClaimPrize{Winner: d.loser.Address(), Raffle: d.raffle, Ticket: d.tickets[d.winner]}, d.loser)
		assert.ErrorIs(t, err, ErrNotTicketOwner)
	})

	t.Run("twice", func(t *testing.T) {
		d := setup(t, true)
		claim := ClaimPrize{Winner: d.winner.Address(), Raffle: d.raffle, Ticket: d.tickets[d.winner]}
		d.f.mustSubmit(claim, d.winner)

		before := d.f.balance(d.winner.Address())
		_, err := d.f.submit(claim, d.winner)
		assert.ErrorIs(t, err, ErrPrizeAlreadyClaimed)
		assert.Equal(t, before, d.f.balance(d.winner.Address()))
	})

	t.Run("pays nine tenths of the available balance", func(t *testing.T) {
		d := setup(t, true)
		retained := testRent.MinimumBalance(0)

		escrowAddress, err := d.f.program.EscrowAddress(d.raffle)
		require.NoError(t, err)
		escrowBefore := d.f.balance(escrowAddress)
		require.Greater(t, escrowBefore, retained)

		result := d.f.mustSubmit(ClaimPrize{Winner: d.winner.Address(), Raffle: d.raffle, Ticket: d.tickets[d.winner]}, d.winner)
		prize := (escrowBefore - retained) * 9 / 10
		assert.Equal(t, prize, *result.Amount)
		assert.Equal(t, escrowBefore-prize, d.f.balance(escrowAddress))
		assert.GreaterOrEqual(t, d.f.balance(escrowAddress), retained)
	})

	t.Run("ticket of another raffle", func(t *testing.T) {
		d := setup(t, true)
		otherCreator := d.f.signer(10_000)
		otherRaffle := d.f.openRaffle(otherCreator, 1, 5)
		otherTicket := *d.f.buy(otherRaffle, d.winner).Ticket

		_, err := d.f.submit(ClaimPrize{Winner: d.winner.Address(), Raffle: d.raffle, Ticket: otherTicket}, d.winner)
		assert.ErrorIs(t, err, ErrForeignTicket)
	})
}

func TestClaimWithPotBelowRetainedMinimum(t *testing.T) {
	f := newFixture(t)
	creator, buyer := f.signer(10_000), f.signer(10_000)
	raffleAddress := f.openRaffle(creator, 100, 5)
	ticket := f.buy(raffleAddress, buyer)
	f.clock.Advance(5)
	f.mustSubmit(DrawWinner{Creator: creator.Address(), Raffle: raffleAddress}, creator)

	result := f.mustSubmit(ClaimPrize{Winner: buyer.Address(), Raffle: raffleAddress, Ticket: *ticket.Ticket}, buyer)
	assert.Equal(t, uint64(0), *result.Amount)

	escrowBalance, err := f.program.EscrowBalance(f.ctx, raffleAddress)
	require.NoError(t, err)
	assert.Equal(t, uint64(100), escrowBalance)
}

func TestClose(t *testing.T) {
	t.Run("before the deadline regardless of caller", func(t *testing.T) {
		f := newFixture(t)
		creator, stranger := f.signer(10_000), f.signer(10_000)
		raffleAddress := f.openRaffle(creator, 10, 5)

		for _, caller := range []*auth.Signer{creator, stranger} {
			_, err := f.submit(CloseRaffle{Creator: caller.Address(), Raffle: raffleAddress}, caller)
			assert.ErrorIs(t, err, ErrRaffleNotEnded)
		}
	})

	t.Run("not the creator", func(t *testing.T) {
		f := newFixture(t)
		creator, stranger := f.signer(10_000), f.signer(10_000)
		raffleAddress := f.openRaffle(creator, 10, 5)
		f.clock.Advance(5)

		_, err := f.submit(CloseRaffle{Creator: stranger.Address(), Raffle: raffleAddress}, stranger)
		assert.ErrorIs(t, err, ErrNotCreator)
	})

	t.Run("without sales", func(t *testing.T) {
		f := newFixture(t)
		creator := f.signer(10_000)
		raffleAddress := f.openRaffle(creator, 10, 5)
		f.clock.Advance(5)

		result := f.mustSubmit(CloseRaffle{Creator: creator.Address(), Raffle: raffleAddress}, creator)
		assert.Equal(t, uint64(0), *result.Amount)
		assert.Equal(t, uint64(10_000), f.balance(creator.Address()))

		phase, err := f.program.Phase(f.ctx, raffleAddress)
		require.NoError(t, err)
		assert.Equal(t, Closed, phase)
	})

	t.Run("abandoned prize", func(t *testing.T) {
		f := newFixture(t)
		retained := testRent.MinimumBalance(0)
		creator, buyer := f.signer(10_000), f.signer(10_000)
		raffleAddress := f.openRaffle(creator, 1_000, 5)
		f.buy(raffleAddress, buyer)
		f.clock.Advance(5)
		f.mustSubmit(DrawWinner{Creator: creator.Address(), Raffle: raffleAddress}, creator)

		result := f.mustSubmit(CloseRaffle{Creator: creator.Address(), Raffle: raffleAddress}, creator)
		assert.Equal(t, 1_000-retained, *result.Amount)
	})

	t.Run("creator can open again", func(t *testing.T) {
		f := newFixture(t)
		creator := f.signer(10_000)
		raffleAddress := f.openRaffle(creator, 10, 5)
		f.clock.Advance(5)
		f.mustSubmit(CloseRaffle{Creator: creator.Address(), Raffle: raffleAddress}, creator)

		assert.Equal(t, raffleAddress, f.openRaffle(creator, 20, 5))

		buyer := f.signer(10_000)
		result := f.buy(raffleAddress, buyer)
		assert.Equal(t, uint32(0), *result.TicketNumber)
	})

	t.Run("reopening over sold tickets is refused", func(t *testing.T) {
		f := newFixture(t)
		creator, buyer := f.signer(10_000), f.signer(10_000)
		raffleAddress := f.openRaffle(creator, 10, 5)
		f.buy(raffleAddress, buyer)
		f.clock.Advance(5)
		f.mustSubmit(CloseRaffle{Creator: creator.Address(), Raffle: raffleAddress}, creator)
		before := f.balance(creator.Address())

		_, err := f.submit(InitializeRaffle{Creator: creator.Address(), TicketPrice: 20, EndTs: f.clock.Now() + 5}, creator)
		assert.ErrorIs(t, err, ErrStaleTickets)
		assert.Equal(t, before, f.balance(creator.Address()))

		phase, err := f.program.Phase(f.ctx, raffleAddress)
		require.NoError(t, err)
		assert.Equal(t, Closed, phase)
	})
}

func TestPrizeShare(t *testing.T) {
	assert.Equal(t, uint64(0), PrizeShare(0))
	assert.Equal(t, uint64(0), PrizeShare(1))
	assert.Equal(t, uint64(9), PrizeShare(10))
	assert.Equal(t, uint64(64), PrizeShare(72))
	assert.Equal(t, uint64(16602069666338596453), PrizeShare(math.MaxUint64))
}
