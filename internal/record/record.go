// Package record defines the persisted raffle and ticket layouts. Every
// record starts with an 8-byte discriminator identifying its type, followed
// by little-endian fields in declaration order.
package record

import (
	"bytes"
	"crypto/sha256"
	"errors"
	"fmt"
)

const DiscriminatorSize = 8

type Discriminator [DiscriminatorSize]byte

var (
	RaffleDiscriminator = NewDiscriminator("Raffle")
	TicketDiscriminator = NewDiscriminator("Ticket")
)

var (
	ErrTooShort             = errors.New("record: buffer too short")
	ErrDiscriminator        = errors.New("record: discriminator mismatch")
	ErrInvalidBool          = errors.New("record: invalid bool value")
	ErrInvalidOptionTag     = errors.New("record: invalid option tag")
	ErrMissingDiscriminator = errors.New("record: missing discriminator")
)

// NewDiscriminator derives the type tag from the record type name.
func NewDiscriminator(name string) Discriminator {
	sum := sha256.Sum256([]byte("account:" + name))

	var d Discriminator
	copy(d[:], sum[:DiscriminatorSize])
	return d
}

// Check validates the leading discriminator of data.
func (d Discriminator) Check(data []byte) error {
	if len(data) < DiscriminatorSize {
		return ErrMissingDiscriminator
	}
	if !bytes.Equal(data[:DiscriminatorSize], d[:]) {
		return fmt.Errorf("%w: want %x, got %x", ErrDiscriminator, d[:], data[:DiscriminatorSize])
	}
	return nil
}
