package storage

import "time"

type Owner = string

const (
	SystemOwner  Owner = "system"
	ProgramOwner Owner = "program"
)

// Account is a balance with optional typed record data. Plain balances
// (signers, escrow custodians) are system owned and carry no data.
type Account struct {
	Address  string `gorm:"primaryKey"`
	Lamports uint64 `gorm:"not null;default:0"`
	Owner    Owner  `gorm:"index;not null"`
	Data     []byte
}

// JournalEntry records the outcome of one submitted operation.
type JournalEntry struct {
	ID          string    `gorm:"primaryKey"`
	Instruction string    `gorm:"index;not null"`
	Signers     string    `gorm:"not null"`
	Slot        uint64    `gorm:"not null"`
	UnixTime    int64     `gorm:"not null"`
	Success     bool      `gorm:"not null"`
	Error       string    `gorm:"default:''"`
	Nonce       string    `gorm:"index"`
	CreatedAt   time.Time `gorm:"autoCreateTime"`
}

// ConsumedNonce marks a signed operation that was already submitted.
type ConsumedNonce struct {
	Nonce       string    `gorm:"primaryKey"`
	Instruction string    `gorm:"not null"`
	CreatedAt   time.Time `gorm:"autoCreateTime"`
}
