package entities

import (
	"fmt"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/google/uuid"
)

// OperationKind identifies the type of token operation being orchestrated.
type OperationKind string

const (
	OperationMint     OperationKind = "mint"
	OperationBurn     OperationKind = "burn"
	OperationTransfer OperationKind = "transfer"
)

// ResourceKind identifies the derived resource a token operation targets.
type ResourceKind string

const (
	ResourceEnergy        ResourceKind = "energy"
	ResourceConnections   ResourceKind = "connections"
	ResourceMetamorphosis ResourceKind = "metamorphosis"
)

// IsValid reports whether the resource kind is one of the known resources.
func (r ResourceKind) IsValid() bool {
	switch r {
	case ResourceEnergy, ResourceConnections, ResourceMetamorphosis:
		return true
	}
	return false
}

// OperationStatus tracks a pending operation through its lifecycle.
// Confirmed and Failed are terminal.
type OperationStatus string

const (
	StatusBuilding          OperationStatus = "building"
	StatusAwaitingSignature OperationStatus = "awaiting_signature"
	StatusSubmitted         OperationStatus = "submitted"
	StatusConfirmed         OperationStatus = "confirmed"
	StatusFailed            OperationStatus = "failed"
)

// WalletSession is the single process-wide wallet connection state. It is
// owned by the session manager; consumers receive copies.
type WalletSession struct {
	Connected bool
	Address   *solana.PublicKey
	CanSign   bool
}

// ShortAddress renders the session address in the abbreviated display form.
func (s WalletSession) ShortAddress() string {
	if s.Address == nil {
		return ""
	}
	addr := s.Address.String()
	return fmt.Sprintf("%s...%s", addr[:4], addr[len(addr)-4:])
}

// TokenAccountRef is the deterministic derivation of a wallet's token storage
// account for a given mint. It has no identity of its own; Exists is a lazy
// snapshot refreshed before any transaction that writes to the account.
type TokenAccountRef struct {
	Owner          solana.PublicKey
	Mint           solana.PublicKey
	DerivedAddress solana.PublicKey
	Exists         bool
}

// BalanceSnapshot holds the last reconciled balances in base units
// (lamports for native, raw token units for utility). Snapshots are replaced
// wholesale on refresh, never merged.
type BalanceSnapshot struct {
	Native    uint64    `json:"native"`
	Utility   uint64    `json:"utility"`
	FetchedAt time.Time `json:"fetched_at"`
}

// IsZero reports whether the snapshot holds no balances.
func (b BalanceSnapshot) IsZero() bool {
	return b.Native == 0 && b.Utility == 0
}

// PendingOperation tracks a single user-initiated token operation from
// creation to its terminal state. Never reused.
type PendingOperation struct {
	ID              uuid.UUID
	Kind            OperationKind
	RequestedAmount uint64
	Resource        ResourceKind
	Status          OperationStatus
	Signature       solana.Signature
	ErrKind         ErrorKind
	CreatedAt       time.Time
}

// NewPendingOperation creates an operation in the Building state.
func NewPendingOperation(kind OperationKind, amount uint64, resource ResourceKind) *PendingOperation {
	return &PendingOperation{
		ID:              uuid.New(),
		Kind:            kind,
		RequestedAmount: amount,
		Resource:        resource,
		Status:          StatusBuilding,
		CreatedAt:       time.Now(),
	}
}

// MarkSubmitted transitions the operation to Submitted. A submitted operation
// must carry its transaction signature.
func (op *PendingOperation) MarkSubmitted(sig solana.Signature) {
	op.Signature = sig
	op.Status = StatusSubmitted
}

// MarkConfirmed transitions the operation to its successful terminal state.
func (op *PendingOperation) MarkConfirmed() {
	op.Status = StatusConfirmed
}

// MarkFailed transitions the operation to its failed terminal state. A failed
// operation must carry the error kind that terminated it.
func (op *PendingOperation) MarkFailed(kind ErrorKind) {
	op.ErrKind = kind
	op.Status = StatusFailed
}

// Terminal reports whether the operation has reached a terminal status.
func (op *PendingOperation) Terminal() bool {
	return op.Status == StatusConfirmed || op.Status == StatusFailed
}

// OperationResult is the immutable outcome returned to the caller of an
// orchestrated operation. The core does not persist results.
type OperationResult struct {
	Signature string    `json:"signature,omitempty"`
	Success   bool      `json:"success"`
	ErrorKind ErrorKind `json:"error_kind,omitempty"`
	Simulated bool      `json:"simulated"`
}

// PurchaseReceipt is the outcome of an authority-signed purchase mint.
// Amount echoes the requested whole-token amount.
type PurchaseReceipt struct {
	Amount                float64 `json:"amount"`
	Recipient             string  `json:"recipient"`
	RecipientTokenAccount string  `json:"recipient_token_account,omitempty"`
	Mint                  string  `json:"mint"`
	Signature             string  `json:"signature"`
	Simulated             bool    `json:"simulated"`
	ExplorerURL           string  `json:"explorer_url,omitempty"`
}
