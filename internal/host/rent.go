package host

import "math"

// MaxBalance is the largest balance an account can hold; the store keeps
// balances as signed 64-bit integers.
const MaxBalance = math.MaxInt64

// AccountStorageOverhead is charged for every account on top of its data.
const AccountStorageOverhead = 128

// Rent is the storage deposit schedule. An account is retained only while it
// holds at least MinimumBalance of its data length.
type Rent struct {
	LamportsPerByteYear uint64
	ExemptionThreshold  uint64
}

// DefaultRent charges 890880 lamports for an account without data.
var DefaultRent = Rent{
	LamportsPerByteYear: 3480,
	ExemptionThreshold:  2,
}

func (r Rent) MinimumBalance(dataLen int) uint64 {
	return (AccountStorageOverhead + uint64(dataLen)) * r.LamportsPerByteYear * r.ExemptionThreshold
}
