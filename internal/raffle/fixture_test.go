package raffle

import (
	"context"
	"crypto/sha256"
	"path/filepath"
	"testing"

	"raffle-escrow/internal/address"
	"raffle-escrow/internal/auth"
	"raffle-escrow/internal/clock"
	"raffle-escrow/internal/host"
	"raffle-escrow/internal/storage"

	"github.com/stretchr/testify/require"
)

const testStart = int64(1_700_000_000)

var testProgramID = address.Address(sha256.Sum256([]byte("raffle program under test")))

// testRent keeps the retained minimum small (128) so pots of a few hundred
// lamports still leave something to split.
var testRent = host.Rent{LamportsPerByteYear: 1, ExemptionThreshold: 1}

type fixture struct {
	t       *testing.T
	ctx     context.Context
	clock   *clock.Manual
	store   *storage.SqliteStorage
	runtime *host.Runtime
	program *Program
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	store, err := storage.NewSqliteStorage(filepath.Join(t.TempDir(), "persistent.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	c := clock.NewManual(testStart, 250_000)
	runtime := host.NewRuntime(store, c, testRent, testProgramID)

	return &fixture{
		t:       t,
		ctx:     context.Background(),
		clock:   c,
		store:   store,
		runtime: runtime,
		program: NewProgram(runtime),
	}
}

func (f *fixture) signer(lamports uint64) *auth.Signer {
	f.t.Helper()

	signer, err := auth.NewSigner()
	require.NoError(f.t, err)
	if lamports > 0 {
		require.NoError(f.t, f.runtime.Fund(f.ctx, signer.Address(), lamports))
	}
	return signer
}

func (f *fixture) submit(instruction Instruction, signers ...*auth.Signer) (*Result, error) {
	f.t.Helper()

	envelope, err := NewEnvelope(instruction, signers...)
	require.NoError(f.t, err)
	return f.program.Submit(f.ctx, envelope)
}

func (f *fixture) mustSubmit(instruction Instruction, signers ...*auth.Signer) *Result {
	f.t.Helper()

	result, err := f.submit(instruction, signers...)
	require.NoError(f.t, err)
	return result
}

func (f *fixture) balance(a address.Address) uint64 {
	f.t.Helper()

	balance, err := f.program.Balance(f.ctx, a)
	require.NoError(f.t, err)
	return balance
}

func (f *fixture) openRaffle(creator *auth.Signer, ticketPrice uint64, duration int64) address.Address {
	f.t.Helper()

	result := f.mustSubmit(InitializeRaffle{
		Creator:     creator.Address(),
		TicketPrice: ticketPrice,
		EndTs:       f.clock.Now() + duration,
	}, creator)
	return result.Raffle
}

func (f *fixture) buy(raffle address.Address, buyer *auth.Signer) *Result {
	f.t.Helper()
	return f.mustSubmit(BuyTicket{Buyer: buyer.Address(), Raffle: raffle}, buyer)
}

// expectedWinner predicts the draw for the current clock reading.
func (f *fixture) expectedWinner(ticketCount uint32) uint32 {
	return WeakRandom(f.clock.Slot(), f.clock.Now()) % ticketCount
}
