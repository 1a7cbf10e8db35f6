package host

import (
	"errors"
	"fmt"

	"raffle-escrow/internal/address"
	"raffle-escrow/internal/auth"
	"raffle-escrow/internal/logger"
	"raffle-escrow/internal/storage"

	"go.uber.org/zap"
)

// Invocation is the context of one operation: authenticated signers, the
// clock reading taken when the operation started and transactional access
// to accounts.
type Invocation struct {
	store     storage.Storage
	signers   auth.SignerSet
	rent      Rent
	programID address.Address
	now       int64
	slot      uint64
}

func (inv *Invocation) Now() int64 {
	return inv.now
}

func (inv *Invocation) Slot() uint64 {
	return inv.slot
}

func (inv *Invocation) Rent() Rent {
	return inv.rent
}

func (inv *Invocation) ProgramID() address.Address {
	return inv.programID
}

func (inv *Invocation) IsSigner(a address.Address) bool {
	return inv.signers.Contains(a)
}

func (inv *Invocation) RequireSigner(a address.Address) error {
	if !inv.IsSigner(a) {
		return fmt.Errorf("%w: %s", ErrMissingSignature, a)
	}
	return nil
}

// Derive computes a derived address under the program identity.
func (inv *Invocation) Derive(seeds ...[]byte) (address.Address, address.Proof, error) {
	return address.Derive(inv.programID, seeds...)
}

// Balance returns the lamports held at a; absent accounts hold nothing.
func (inv *Invocation) Balance(a address.Address) (uint64, error) {
	account, err := inv.store.GetAccount(a.String())
	if errors.Is(err, storage.ErrNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return account.Lamports, nil
}

// Exists reports whether any account lives at a.
func (inv *Invocation) Exists(a address.Address) (bool, error) {
	_, err := inv.store.GetAccount(a.String())
	if errors.Is(err, storage.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// Transfer moves lamports between two balances. A signer source must have
// signed the operation; a derived source must be accompanied by the proof of
// its derivation instead.
func (inv *Invocation) Transfer(from, to address.Address, lamports uint64, proof *address.Proof) error {
	if proof != nil {
		if err := proof.Verify(inv.programID, from); err != nil {
			return fmt.Errorf("%w: %s: %v", ErrInvalidDerivationProof, from, err)
		}
	} else if err := inv.RequireSigner(from); err != nil {
		return err
	}

	source, err := inv.store.GetAccount(from.String())
	if errors.Is(err, storage.ErrNotFound) {
		source = &storage.Account{Address: from.String(), Owner: storage.SystemOwner}
	} else if err != nil {
		return err
	}

	if len(source.Data) > 0 {
		return fmt.Errorf("%w: %s", ErrInvalidTransferSource, from)
	}
	if source.Lamports < lamports {
		return fmt.Errorf("%w: %s holds %d, needs %d", ErrInsufficientFunds, from, source.Lamports, lamports)
	}
	if lamports == 0 {
		return nil
	}

	if err := inv.debit(source, lamports); err != nil {
		return err
	}
	if err := inv.credit(to, lamports); err != nil {
		return err
	}

	logger.Debug("transfer", zap.String("from", from.String()), zap.String("to", to.String()), zap.Uint64("lamports", lamports))
	return nil
}

// CreateRecord allocates a program owned record at a. The payer funds the
// storage deposit. A bare balance already sitting at a is absorbed into the
// deposit; any account with data or program ownership means the address is
// in use.
func (inv *Invocation) CreateRecord(a, payer address.Address, data []byte) error {
	deposit := inv.rent.MinimumBalance(len(data))

	existing, err := inv.store.GetAccount(a.String())
	switch {
	case errors.Is(err, storage.ErrNotFound):
		existing = nil
	case err != nil:
		return err
	case len(existing.Data) > 0 || existing.Owner == storage.ProgramOwner:
		return fmt.Errorf("%w: %s", ErrAccountInUse, a)
	}

	var prefunded uint64
	if existing != nil {
		prefunded = existing.Lamports
	}
	if deposit > prefunded {
		if err := inv.Transfer(payer, a, deposit-prefunded, nil); err != nil {
			return err
		}
	}

	account, err := inv.store.GetAccount(a.String())
	if errors.Is(err, storage.ErrNotFound) {
		account = &storage.Account{Address: a.String(), Owner: storage.ProgramOwner, Data: data}
		return inv.store.CreateAccount(account)
	}
	if err != nil {
		return err
	}

	account.Owner = storage.ProgramOwner
	account.Data = append([]byte(nil), data...)
	return inv.store.UpdateAccount(account)
}

// LoadRecord returns a copy of the data of a program owned record.
func (inv *Invocation) LoadRecord(a address.Address) ([]byte, error) {
	account, err := inv.record(a)
	if err != nil {
		return nil, err
	}
	return append([]byte(nil), account.Data...), nil
}

// WriteRecord replaces the data of a record of the same length.
func (inv *Invocation) WriteRecord(a address.Address, data []byte) error {
	account, err := inv.record(a)
	if err != nil {
		return err
	}
	if len(account.Data) != len(data) {
		return fmt.Errorf("host: record %s holds %d bytes, write has %d", a, len(account.Data), len(data))
	}

	account.Data = append([]byte(nil), data...)
	return inv.store.UpdateAccount(account)
}

// ResizeRecord changes the data length of a record, zero-filling growth.
// Growing past the current deposit is topped up by the payer; shrinking
// leaves the deposit where it is.
func (inv *Invocation) ResizeRecord(a, payer address.Address, size int) error {
	account, err := inv.record(a)
	if err != nil {
		return err
	}
	if len(account.Data) == size {
		return nil
	}

	required := inv.rent.MinimumBalance(size)
	if required > account.Lamports {
		if err := inv.Transfer(payer, a, required-account.Lamports, nil); err != nil {
			return err
		}
		if account, err = inv.record(a); err != nil {
			return err
		}
	}

	resized := make([]byte, size)
	copy(resized, account.Data)
	account.Data = resized
	return inv.store.UpdateAccount(account)
}

// CloseRecord destroys a record and returns its whole balance to the
// beneficiary.
func (inv *Invocation) CloseRecord(a, beneficiary address.Address) (uint64, error) {
	account, err := inv.record(a)
	if err != nil {
		return 0, err
	}

	if err := inv.store.DeleteAccount(account.Address); err != nil {
		return 0, err
	}
	if err := inv.credit(beneficiary, account.Lamports); err != nil {
		return 0, err
	}

	return account.Lamports, nil
}

// Records lists every program owned record.
func (inv *Invocation) Records() (map[address.Address][]byte, error) {
	accounts, err := inv.store.GetAccountsByOwner(storage.ProgramOwner)
	if err != nil {
		return nil, err
	}

	records := make(map[address.Address][]byte, len(accounts))
	for _, account := range accounts {
		a, err := address.Parse(account.Address)
		if err != nil {
			return nil, err
		}
		records[a] = account.Data
	}
	return records, nil
}

func (inv *Invocation) record(a address.Address) (*storage.Account, error) {
	account, err := inv.store.GetAccount(a.String())
	if errors.Is(err, storage.ErrNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrAccountNotFound, a)
	}
	if err != nil {
		return nil, err
	}
	if account.Owner != storage.ProgramOwner {
		return nil, fmt.Errorf("%w: %s", ErrNotProgramOwned, a)
	}
	return account, nil
}

// debit removes lamports from a system account; a drained account without
// data ceases to exist.
func (inv *Invocation) debit(account *storage.Account, lamports uint64) error {
	account.Lamports -= lamports
	if account.Lamports == 0 && len(account.Data) == 0 && account.Owner == storage.SystemOwner {
		err := inv.store.DeleteAccount(account.Address)
		if errors.Is(err, storage.ErrNotFound) {
			return nil
		}
		return err
	}
	return inv.store.UpdateAccount(account)
}

// credit adds lamports to a, creating a system account when needed. No
// balance may exceed MaxBalance.
func (inv *Invocation) credit(a address.Address, lamports uint64) error {
	account, err := inv.store.GetAccount(a.String())
	if errors.Is(err, storage.ErrNotFound) {
		if lamports == 0 {
			return nil
		}
		if lamports > MaxBalance {
			return fmt.Errorf("%w: %s", ErrBalanceOverflow, a)
		}
		return inv.store.CreateAccount(&storage.Account{Address: a.String(), Lamports: lamports, Owner: storage.SystemOwner})
	}
	if err != nil {
		return err
	}

	if lamports > MaxBalance-min(account.Lamports, MaxBalance) {
		return fmt.Errorf("%w: %s", ErrBalanceOverflow, a)
	}
	account.Lamports += lamports
	return inv.store.UpdateAccount(account)
}
