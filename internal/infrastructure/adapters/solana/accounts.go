package solana

import (
	"fmt"

	"github.com/gagliardetto/solana-go"
	"github.com/mr-tron/base58"
)

// ParseAddress validates and decodes a base58-encoded public key. Rejects
// strings that decode to the wrong length before handing off to key
// construction, so malformed input never reaches the RPC layer.
func ParseAddress(address string) (solana.PublicKey, error) {
	if address == "" {
		return solana.PublicKey{}, fmt.Errorf("%w: empty", ErrInvalidAddress)
	}
	raw, err := base58.Decode(address)
	if err != nil {
		return solana.PublicKey{}, fmt.Errorf("%w: %v", ErrInvalidAddress, err)
	}
	if len(raw) != solana.PublicKeyLength {
		return solana.PublicKey{}, fmt.Errorf("%w: decoded length %d", ErrInvalidAddress, len(raw))
	}
	return solana.PublicKeyFromBytes(raw), nil
}

// DeriveTokenAccount returns the deterministic associated token account
// address for an owner and mint. Pure derivation, no RPC.
func DeriveTokenAccount(owner, mint solana.PublicKey) (solana.PublicKey, error) {
	ata, _, err := solana.FindAssociatedTokenAddress(owner, mint)
	if err != nil {
		return solana.PublicKey{}, fmt.Errorf("derive token account: %w", err)
	}
	return ata, nil
}

// ExplorerURL builds a block explorer link for a transaction signature on the
// configured network. Mainnet links omit the cluster parameter.
func ExplorerURL(network, signature string) string {
	switch network {
	case "mainnet-beta", "mainnet":
		return fmt.Sprintf("https://explorer.solana.com/tx/%s", signature)
	default:
		return fmt.Sprintf("https://explorer.solana.com/tx/%s?cluster=%s", signature, network)
	}
}
