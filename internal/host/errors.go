package host

import "errors"

var (
	ErrInsufficientFunds      = errors.New("host: insufficient funds")
	ErrAccountInUse           = errors.New("host: account already in use")
	ErrAccountNotFound        = errors.New("host: account not found")
	ErrMissingSignature       = errors.New("host: missing required signature")
	ErrInvalidDerivationProof = errors.New("host: invalid derivation proof")
	ErrInvalidTransferSource  = errors.New("host: transfer source carries data")
	ErrNotProgramOwned        = errors.New("host: account is not owned by the program")
	ErrBalanceOverflow        = errors.New("host: balance overflow")
	ErrReplayedOperation      = errors.New("host: operation already submitted")
)
