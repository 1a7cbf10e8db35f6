package storage

import "errors"

var (
	ErrNotFound      = errors.New("storage: account not found")
	ErrAlreadyExists = errors.New("storage: account already exists")
	ErrNonceConsumed = errors.New("storage: nonce already consumed")
)

type Storage interface {
	// account
	GetAccount(address string) (*Account, error)
	GetAccountsByOwner(owner Owner) ([]*Account, error)
	CreateAccount(account *Account) error
	UpdateAccount(account *Account) error
	DeleteAccount(address string) error

	// journal
	AppendJournalEntry(entry *JournalEntry) error
	GetJournalEntries(limit int) ([]*JournalEntry, error)

	// nonce
	ConsumeNonce(nonce *ConsumedNonce) error

	// Transaction runs fn against a transactional view; any error rolls back
	// every change made through it.
	Transaction(fn func(tx Storage) error) error
}
