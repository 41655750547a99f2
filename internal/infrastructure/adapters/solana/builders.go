package solana

import (
	"fmt"

	"github.com/gagliardetto/solana-go"
	associatedtokenaccount "github.com/gagliardetto/solana-go/programs/associated-token-account"
	"github.com/gagliardetto/solana-go/programs/token"
)

// MintParams describes a mint-to operation. Authority must be the mint
// authority and must sign.
type MintParams struct {
	Mint        solana.PublicKey
	Destination solana.PublicKey // token account receiving the minted units
	Authority   solana.PublicKey
	Amount      uint64
	CreateATA   bool             // prepend ATA creation for the recipient
	ATAOwner    solana.PublicKey // recipient wallet, required when CreateATA
	Payer       solana.PublicKey
}

// BurnParams describes a burn from the owner's token account.
type BurnParams struct {
	Mint   solana.PublicKey
	Source solana.PublicKey // token account being debited
	Owner  solana.PublicKey
	Amount uint64
}

// TransferParams describes a token transfer between two token accounts.
type TransferParams struct {
	Source      solana.PublicKey
	Destination solana.PublicKey
	Owner       solana.PublicKey
	Amount      uint64
}

// BuildMintTransaction assembles an unsigned mint-to transaction, optionally
// creating the recipient's associated token account first.
func BuildMintTransaction(params MintParams, blockhash solana.Hash) (*solana.Transaction, error) {
	if params.Amount == 0 {
		return nil, fmt.Errorf("mint amount must be positive")
	}

	var instructions []solana.Instruction
	if params.CreateATA {
		createIx := associatedtokenaccount.NewCreateInstruction(
			params.Payer,
			params.ATAOwner,
			params.Mint,
		).Build()
		instructions = append(instructions, createIx)
	}

	mintIx := token.NewMintToInstruction(
		params.Amount,
		params.Mint,
		params.Destination,
		params.Authority,
		nil,
	).Build()
	instructions = append(instructions, mintIx)

	tx, err := solana.NewTransaction(instructions, blockhash, solana.TransactionPayer(params.Payer))
	if err != nil {
		return nil, fmt.Errorf("build mint transaction: %w", err)
	}
	return tx, nil
}

// BuildBurnTransaction assembles an unsigned burn transaction. The owner pays
// fees and signs.
func BuildBurnTransaction(params BurnParams, blockhash solana.Hash) (*solana.Transaction, error) {
	if params.Amount == 0 {
		return nil, fmt.Errorf("burn amount must be positive")
	}

	burnIx := token.NewBurnInstruction(
		params.Amount,
		params.Source,
		params.Mint,
		params.Owner,
		nil,
	).Build()

	tx, err := solana.NewTransaction(
		[]solana.Instruction{burnIx},
		blockhash,
		solana.TransactionPayer(params.Owner),
	)
	if err != nil {
		return nil, fmt.Errorf("build burn transaction: %w", err)
	}
	return tx, nil
}

// BuildTransferTransaction assembles an unsigned token transfer. The owner
// pays fees and signs.
func BuildTransferTransaction(params TransferParams, blockhash solana.Hash) (*solana.Transaction, error) {
	if params.Amount == 0 {
		return nil, fmt.Errorf("transfer amount must be positive")
	}

	transferIx := token.NewTransferInstruction(
		params.Amount,
		params.Source,
		params.Destination,
		params.Owner,
		nil,
	).Build()

	tx, err := solana.NewTransaction(
		[]solana.Instruction{transferIx},
		blockhash,
		solana.TransactionPayer(params.Owner),
	)
	if err != nil {
		return nil, fmt.Errorf("build transfer transaction: %w", err)
	}
	return tx, nil
}
