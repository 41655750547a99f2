package solana

import "errors"

var (
	// ErrAccountNotFound indicates the queried account does not exist on the
	// ledger. Callers treat this as a zero balance, not a failure.
	ErrAccountNotFound = errors.New("account not found")

	// ErrConfirmationTimeout indicates a submitted transaction did not reach
	// the configured commitment before the deadline. The transaction may
	// still land.
	ErrConfirmationTimeout = errors.New("confirmation timeout")

	// ErrTransactionFailed indicates the cluster executed the transaction and
	// it failed on chain.
	ErrTransactionFailed = errors.New("transaction failed on chain")

	// ErrInvalidAddress indicates a string is not a valid base58 public key.
	ErrInvalidAddress = errors.New("invalid address")
)
