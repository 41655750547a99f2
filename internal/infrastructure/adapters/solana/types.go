package solana

import (
	"time"

	"github.com/gagliardetto/solana-go/rpc"
)

const (
	defaultConfirmTimeout = 60 * time.Second
	defaultConfirmPoll    = 500 * time.Millisecond
	maxReadRetries        = 3

	// MaxRequestsPerSecond is the default RPC rate cap for public endpoints.
	MaxRequestsPerSecond = 10
)

// Config represents the ledger RPC client configuration.
type Config struct {
	Endpoint          string
	Network           string // devnet, testnet, mainnet-beta
	Commitment        rpc.CommitmentType
	ConfirmTimeout    time.Duration
	ConfirmPoll       time.Duration
	RequestsPerSecond float64
}

// TokenBalance is a parsed token account balance.
type TokenBalance struct {
	Amount   uint64
	Decimals uint8
}

// MintInfo is the parsed supply state of a token mint.
type MintInfo struct {
	Supply   uint64
	Decimals uint8
}
