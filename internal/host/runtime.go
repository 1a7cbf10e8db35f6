package host

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"

	"raffle-escrow/internal/address"
	"raffle-escrow/internal/auth"
	"raffle-escrow/internal/clock"
	"raffle-escrow/internal/logger"
	"raffle-escrow/internal/storage"

	"go.uber.org/zap"
)

// Runtime commits operations one at a time. Each invocation runs inside a
// single storage transaction, so either all of its record mutations and
// transfers apply or none do.
type Runtime struct {
	storage   storage.Storage
	clock     clock.Clock
	rent      Rent
	programID address.Address
}

func NewRuntime(s storage.Storage, c clock.Clock, rent Rent, programID address.Address) *Runtime {
	return &Runtime{
		storage:   s,
		clock:     c,
		rent:      rent,
		programID: programID,
	}
}

func (r *Runtime) ProgramID() address.Address {
	return r.programID
}

func (r *Runtime) Rent() Rent {
	return r.rent
}

// Invoke runs fn atomically on behalf of the given signers and journals the
// outcome under name.
func (r *Runtime) Invoke(ctx context.Context, name string, signers auth.SignerSet, fn func(inv *Invocation) error) error {
	return r.invoke(ctx, name, "", signers, fn)
}

// InvokeOnce is Invoke for a signed operation identified by nonce. A nonce is
// consumed whether the operation succeeds or fails; a second submission
// fails with ErrReplayedOperation without running fn.
func (r *Runtime) InvokeOnce(ctx context.Context, name, nonce string, signers auth.SignerSet, fn func(inv *Invocation) error) error {
	if nonce == "" {
		return fmt.Errorf("%w: empty nonce", ErrReplayedOperation)
	}
	return r.invoke(ctx, name, nonce, signers, fn)
}

func (r *Runtime) invoke(ctx context.Context, name, nonce string, signers auth.SignerSet, fn func(inv *Invocation) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	now, slot := r.clock.Now(), r.clock.Slot()
	logger.Debug("invoking operation", zap.String("operation", name), zap.Int64("unix time", now), zap.Uint64("slot", slot))

	err := r.storage.Transaction(func(tx storage.Storage) error {
		if nonce != "" {
			if err := consumeNonce(tx, name, nonce); err != nil {
				return err
			}
		}
		return fn(r.invocation(tx, signers, now, slot))
	})

	// the failed transaction rolled the nonce back with everything else
	if err != nil && nonce != "" && !errors.Is(err, ErrReplayedOperation) {
		if consumeErr := consumeNonce(r.storage, name, nonce); consumeErr != nil {
			logger.Warn("cannot consume nonce of failed operation", zap.String("operation", name), zap.Error(consumeErr))
		}
	}

	entry := &storage.JournalEntry{
		Instruction: name,
		Signers:     joinSigners(signers),
		Slot:        slot,
		UnixTime:    now,
		Success:     err == nil,
		Nonce:       nonce,
	}
	if err != nil {
		entry.Error = err.Error()
		logger.Debug("operation failed", zap.String("operation", name), zap.Error(err))
	}
	if journalErr := r.storage.AppendJournalEntry(entry); journalErr != nil {
		logger.Warn("cannot journal operation", zap.String("operation", name), zap.Error(journalErr))
	}

	return err
}

func consumeNonce(s storage.Storage, name, nonce string) error {
	err := s.ConsumeNonce(&storage.ConsumedNonce{Nonce: nonce, Instruction: name})
	if errors.Is(err, storage.ErrNonceConsumed) {
		return fmt.Errorf("%w: nonce %s", ErrReplayedOperation, nonce)
	}
	return err
}

// View runs fn without signers; fn is expected not to mutate state and any
// mutation is rolled back.
func (r *Runtime) View(ctx context.Context, fn func(inv *Invocation) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	now, slot := r.clock.Now(), r.clock.Slot()
	var result error
	_ = r.storage.Transaction(func(tx storage.Storage) error {
		result = fn(r.invocation(tx, auth.NewSignerSet(), now, slot))
		return errRollback
	})

	return result
}

// Fund credits lamports to an address outside of any program rule.
func (r *Runtime) Fund(ctx context.Context, to address.Address, lamports uint64) error {
	return r.Invoke(ctx, "fund", auth.NewSignerSet(), func(inv *Invocation) error {
		return inv.credit(to, lamports)
	})
}

func (r *Runtime) invocation(tx storage.Storage, signers auth.SignerSet, now int64, slot uint64) *Invocation {
	return &Invocation{
		store:     tx,
		signers:   signers,
		rent:      r.rent,
		programID: r.programID,
		now:       now,
		slot:      slot,
	}
}

type rollback struct{}

func (rollback) Error() string { return "rollback" }

var errRollback error = rollback{}

func joinSigners(signers auth.SignerSet) string {
	addresses := make([]string, 0, len(signers))
	for _, a := range signers.Addresses() {
		addresses = append(addresses, a.String())
	}
	slices.Sort(addresses)
	return strings.Join(addresses, ",")
}
