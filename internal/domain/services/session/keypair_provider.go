package session

import (
	"context"
	"fmt"

	"github.com/gagliardetto/solana-go"
)

// KeypairProvider is a wallet provider backed by a local keypair. It never
// rejects and never emits events; it exists so the orchestration stack can be
// driven server-side or from an operator CLI without a browser wallet.
type KeypairProvider struct {
	key    solana.PrivateKey
	events chan Event
}

// NewKeypairProvider creates a provider from a base58-encoded secret key.
func NewKeypairProvider(base58Secret string) (*KeypairProvider, error) {
	key, err := solana.PrivateKeyFromBase58(base58Secret)
	if err != nil {
		return nil, fmt.Errorf("decode keypair: %w", err)
	}
	return &KeypairProvider{
		key:    key,
		events: make(chan Event),
	}, nil
}

// Connect returns the keypair's public key. Local keypairs cannot refuse.
func (p *KeypairProvider) Connect(ctx context.Context) (solana.PublicKey, error) {
	return p.key.PublicKey(), nil
}

// Disconnect is a no-op for a local keypair.
func (p *KeypairProvider) Disconnect(ctx context.Context) error {
	return nil
}

// CanSign always reports true.
func (p *KeypairProvider) CanSign() bool {
	return true
}

// SignTransaction signs the transaction with the local keypair. Partial
// signing leaves room for co-signers such as the issuing authority.
func (p *KeypairProvider) SignTransaction(ctx context.Context, tx *solana.Transaction) (*solana.Transaction, error) {
	_, err := tx.PartialSign(func(key solana.PublicKey) *solana.PrivateKey {
		if key.Equals(p.key.PublicKey()) {
			return &p.key
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("sign transaction: %w", err)
	}
	return tx, nil
}

// Events returns a channel that never fires.
func (p *KeypairProvider) Events() <-chan Event {
	return p.events
}
