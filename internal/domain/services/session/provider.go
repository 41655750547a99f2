package session

import (
	"context"

	"github.com/gagliardetto/solana-go"
)

// EventType identifies an asynchronous wallet provider event.
type EventType string

const (
	// EventAccountChanged fires when the provider switches to a different
	// account, or to none.
	EventAccountChanged EventType = "accountChanged"

	// EventDisconnect fires when the provider drops the connection.
	EventDisconnect EventType = "disconnect"
)

// Event is an asynchronous notification from the wallet provider. Account is
// nil for disconnects and for account changes that deselect the wallet.
type Event struct {
	Type    EventType
	Account *solana.PublicKey
}

// Provider abstracts the external wallet. Implementations deliver their
// events on a single channel consumed by the manager's event loop.
type Provider interface {
	// Connect establishes the wallet connection and returns the active
	// account public key
	Connect(ctx context.Context) (solana.PublicKey, error)

	// Disconnect tears down the provider-side connection
	Disconnect(ctx context.Context) error

	// CanSign reports whether the provider can sign transactions
	CanSign() bool

	// SignTransaction signs a transaction with the active account
	SignTransaction(ctx context.Context, tx *solana.Transaction) (*solana.Transaction, error)

	// Events returns the provider event stream
	Events() <-chan Event
}
