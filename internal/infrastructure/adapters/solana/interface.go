package solana

import (
	"context"

	sol "github.com/gagliardetto/solana-go"
)

// Ledger defines the interface for ledger RPC operations used by the domain
// services. Service packages embed the subset they need.
type Ledger interface {
	// Network returns the configured cluster name
	Network() string

	// GetLamportBalance returns the native balance of an account in lamports
	GetLamportBalance(ctx context.Context, account sol.PublicKey) (uint64, error)

	// GetTokenBalance returns a token account balance in raw base units
	GetTokenBalance(ctx context.Context, tokenAccount sol.PublicKey) (TokenBalance, error)

	// AccountExists reports whether an account exists on the ledger
	AccountExists(ctx context.Context, account sol.PublicKey) (bool, error)

	// GetMintInfo returns the supply state of a token mint
	GetMintInfo(ctx context.Context, mint sol.PublicKey) (MintInfo, error)

	// GetLatestBlockhash fetches a recent blockhash for transaction assembly
	GetLatestBlockhash(ctx context.Context) (sol.Hash, error)

	// SubmitTransaction sends a fully signed transaction, exactly once
	SubmitTransaction(ctx context.Context, tx *sol.Transaction) (sol.Signature, error)

	// ConfirmTransaction waits for the transaction to reach commitment
	ConfirmTransaction(ctx context.Context, sig sol.Signature) error
}

// Ensure Client implements Ledger interface
var _ Ledger = (*Client)(nil)
