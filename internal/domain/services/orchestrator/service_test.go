package orchestrator

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/qwami-service/qwami_service/internal/domain/entities"
	"github.com/qwami-service/qwami_service/internal/domain/services/conversion"
	soladapter "github.com/qwami-service/qwami_service/internal/infrastructure/adapters/solana"
)

const (
	testOwner = "9WzDXwBbmkg8ZTbNMqUxvQRAyrZzDsGYdLVL9zYtAWWM"
	testMint  = "So11111111111111111111111111111111111111112"
)

type fakeLedger struct {
	mu          sync.Mutex
	blockhashes int
	submits     int
	confirms    int
	submitErr   error
	confirmErr  error
}

func (l *fakeLedger) GetLatestBlockhash(ctx context.Context) (solana.Hash, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.blockhashes++
	return solana.Hash{}, nil
}

func (l *fakeLedger) SubmitTransaction(ctx context.Context, tx *solana.Transaction) (solana.Signature, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.submits++
	if l.submitErr != nil {
		return solana.Signature{}, l.submitErr
	}
	return solana.Signature{1, 2, 3}, nil
}

func (l *fakeLedger) ConfirmTransaction(ctx context.Context, sig solana.Signature) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.confirms++
	return l.confirmErr
}

func (l *fakeLedger) calls() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.blockhashes + l.submits + l.confirms
}

type fakeSession struct {
	mu      sync.Mutex
	session entities.WalletSession
	signErr error
	reads   int
	later   *entities.WalletSession // returned after the first Session() read
}

func (s *fakeSession) Session() entities.WalletSession {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reads++
	if s.reads > 1 && s.later != nil {
		return *s.later
	}
	return s.session
}

func (s *fakeSession) SignTransaction(ctx context.Context, tx *solana.Transaction) (*solana.Transaction, error) {
	if s.signErr != nil {
		return nil, s.signErr
	}
	return tx, nil
}

type fakeAccounts struct {
	mu        sync.Mutex
	ref       entities.TokenAccountRef
	refErr    error
	refreshes int
	resolves  int
}

func (a *fakeAccounts) TokenAccountFor(ctx context.Context, owner solana.PublicKey) (entities.TokenAccountRef, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.resolves++
	if a.refErr != nil {
		return entities.TokenAccountRef{}, a.refErr
	}
	return a.ref, nil
}

func (a *fakeAccounts) Refresh(ctx context.Context, owner solana.PublicKey) (entities.BalanceSnapshot, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.refreshes++
	return entities.BalanceSnapshot{}, nil
}

func (a *fakeAccounts) refreshCount() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.refreshes
}

type fakeAuthority struct {
	key     solana.PublicKey
	signErr error
}

func (f *fakeAuthority) AuthorityKey() solana.PublicKey { return f.key }

func (f *fakeAuthority) SignAsAuthority(tx *solana.Transaction) error { return f.signErr }

type harness struct {
	svc      *Service
	ledger   *fakeLedger
	session  *fakeSession
	accounts *fakeAccounts
}

func newHarness(t *testing.T, mutate func(cfg *Config, session *fakeSession)) *harness {
	t.Helper()

	owner := solana.MustPublicKeyFromBase58(testOwner)
	mint := solana.MustPublicKeyFromBase58(testMint)
	derived, err := soladapter.DeriveTokenAccount(owner, mint)
	require.NoError(t, err)

	cfg := Config{
		TokenMint:      testMint,
		MintConfigured: true,
		TokenDecimals:  9,
	}
	session := &fakeSession{
		session: entities.WalletSession{Connected: true, Address: &owner, CanSign: true},
	}
	if mutate != nil {
		mutate(&cfg, session)
	}

	ledger := &fakeLedger{}
	accounts := &fakeAccounts{
		ref: entities.TokenAccountRef{Owner: owner, Mint: mint, DerivedAddress: derived, Exists: true},
	}
	authority := &fakeAuthority{key: owner}

	svc, err := NewService(ledger, session, accounts, conversion.NewService(conversion.Config{}), authority, cfg, zap.NewNop())
	require.NoError(t, err)

	return &harness{svc: svc, ledger: ledger, session: session, accounts: accounts}
}

func TestExecuteValidation(t *testing.T) {
	t.Run("non-positive amount fails before any RPC", func(t *testing.T) {
		h := newHarness(t, nil)

		result, err := h.svc.Execute(context.Background(), Request{
			Kind: entities.OperationBurn, Amount: 0, Resource: entities.ResourceEnergy,
		})

		assert.True(t, entities.IsKind(err, entities.ErrKindInvalidAmount))
		assert.False(t, result.Success)
		assert.Equal(t, entities.ErrKindInvalidAmount, result.ErrorKind)
		assert.Equal(t, 0, h.ledger.calls())
		assert.Equal(t, 0, h.accounts.refreshCount())
	})

	t.Run("disconnected wallet fails with NotConnected and zero RPC", func(t *testing.T) {
		h := newHarness(t, func(cfg *Config, session *fakeSession) {
			session.session = entities.WalletSession{}
		})

		result, err := h.svc.Execute(context.Background(), Request{
			Kind: entities.OperationBurn, Amount: 100, Resource: entities.ResourceEnergy,
		})

		assert.True(t, entities.IsKind(err, entities.ErrKindNotConnected))
		assert.False(t, result.Success)
		assert.Equal(t, entities.ErrKindNotConnected, result.ErrorKind)
		assert.Equal(t, 0, h.ledger.calls())
	})

	t.Run("unconfigured mint fails with NotConfigured", func(t *testing.T) {
		h := newHarness(t, func(cfg *Config, session *fakeSession) {
			cfg.MintConfigured = false
			cfg.TokenMint = ""
		})

		_, err := h.svc.Execute(context.Background(), Request{
			Kind: entities.OperationBurn, Amount: 10, Resource: entities.ResourceEnergy,
		})
		assert.True(t, entities.IsKind(err, entities.ErrKindNotConfigured))
	})

	t.Run("read-only wallet fails with SigningUnsupported", func(t *testing.T) {
		h := newHarness(t, func(cfg *Config, session *fakeSession) {
			session.session.CanSign = false
		})

		_, err := h.svc.Execute(context.Background(), Request{
			Kind: entities.OperationBurn, Amount: 10, Resource: entities.ResourceEnergy,
		})
		assert.True(t, entities.IsKind(err, entities.ErrKindSigningUnsupported))
	})

	t.Run("unknown resource fails with InvalidAmount", func(t *testing.T) {
		h := newHarness(t, nil)

		_, err := h.svc.Execute(context.Background(), Request{
			Kind: entities.OperationBurn, Amount: 10, Resource: entities.ResourceKind("mana"),
		})
		assert.True(t, entities.IsKind(err, entities.ErrKindInvalidAmount))
		assert.Equal(t, 0, h.ledger.calls())
	})

	t.Run("transfer to malformed destination fails before any RPC", func(t *testing.T) {
		h := newHarness(t, nil)

		_, err := h.svc.Execute(context.Background(), Request{
			Kind: entities.OperationTransfer, Amount: 10, Resource: entities.ResourceEnergy,
			Destination: "not-an-address",
		})
		assert.True(t, entities.IsKind(err, entities.ErrKindInvalidAddress))
		assert.Equal(t, 0, h.ledger.calls())
	})
}

func TestExecuteSimulation(t *testing.T) {
	h := newHarness(t, func(cfg *Config, session *fakeSession) {
		cfg.Simulation = true
	})

	result, err := h.svc.Execute(context.Background(), Request{
		Kind: entities.OperationBurn, Amount: 100, Resource: entities.ResourceEnergy,
	})

	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.True(t, result.Simulated)
	assert.True(t, strings.HasPrefix(result.Signature, "SIMULATED_TX_"))

	// The submission path is never touched, and exactly one refresh fires.
	assert.Equal(t, 0, h.ledger.calls())
	assert.Equal(t, 1, h.accounts.refreshCount())
}

func TestExecuteLive(t *testing.T) {
	t.Run("burn happy path submits once and refreshes once", func(t *testing.T) {
		h := newHarness(t, nil)

		result, err := h.svc.Execute(context.Background(), Request{
			Kind: entities.OperationBurn, Amount: 100, Resource: entities.ResourceEnergy,
		})

		require.NoError(t, err)
		assert.True(t, result.Success)
		assert.False(t, result.Simulated)
		assert.NotEmpty(t, result.Signature)

		assert.Equal(t, 1, h.ledger.blockhashes)
		assert.Equal(t, 1, h.ledger.submits)
		assert.Equal(t, 1, h.ledger.confirms)
		assert.Equal(t, 1, h.accounts.refreshCount())
	})

	t.Run("mint bundles ATA creation for a fresh recipient", func(t *testing.T) {
		h := newHarness(t, nil)
		h.accounts.ref.Exists = false

		result, err := h.svc.Execute(context.Background(), Request{
			Kind: entities.OperationMint, Amount: 50, Resource: entities.ResourceEnergy,
		})

		require.NoError(t, err)
		assert.True(t, result.Success)
	})

	t.Run("signing rejection aborts before submission", func(t *testing.T) {
		h := newHarness(t, func(cfg *Config, session *fakeSession) {
			session.signErr = entities.NewError(entities.ErrKindUserRejected, "user declined")
		})

		result, err := h.svc.Execute(context.Background(), Request{
			Kind: entities.OperationBurn, Amount: 10, Resource: entities.ResourceEnergy,
		})

		assert.True(t, entities.IsKind(err, entities.ErrKindUserRejected))
		assert.Equal(t, entities.ErrKindUserRejected, result.ErrorKind)
		assert.Equal(t, 0, h.ledger.submits)
		assert.Equal(t, 0, h.accounts.refreshCount())
	})

	t.Run("submission failure surfaces SubmissionFailed without confirm", func(t *testing.T) {
		h := newHarness(t, nil)
		h.ledger.submitErr = errors.New("node rejected")

		result, err := h.svc.Execute(context.Background(), Request{
			Kind: entities.OperationBurn, Amount: 10, Resource: entities.ResourceEnergy,
		})

		assert.True(t, entities.IsKind(err, entities.ErrKindSubmissionFailed))
		assert.Equal(t, entities.ErrKindSubmissionFailed, result.ErrorKind)
		assert.Equal(t, 0, h.ledger.confirms)
	})

	t.Run("confirmation timeout surfaces ConfirmationTimeout", func(t *testing.T) {
		h := newHarness(t, nil)
		h.ledger.confirmErr = soladapter.ErrConfirmationTimeout

		result, err := h.svc.Execute(context.Background(), Request{
			Kind: entities.OperationBurn, Amount: 10, Resource: entities.ResourceEnergy,
		})

		assert.True(t, entities.IsKind(err, entities.ErrKindConfirmationTimeout))
		assert.Equal(t, entities.ErrKindConfirmationTimeout, result.ErrorKind)
		// Submitted transactions are never resubmitted.
		assert.Equal(t, 1, h.ledger.submits)
	})

	t.Run("session nulled after validation still settles with the captured owner", func(t *testing.T) {
		h := newHarness(t, nil)
		// The event loop can disconnect the wallet at any point after the
		// fail-fast checks pass; the operation keeps the owner it validated.
		h.session.later = &entities.WalletSession{}

		result, err := h.svc.Execute(context.Background(), Request{
			Kind: entities.OperationBurn, Amount: 10, Resource: entities.ResourceEnergy,
		})

		require.NoError(t, err)
		assert.True(t, result.Success)
		assert.Equal(t, 1, h.ledger.submits)
		assert.Equal(t, 1, h.ledger.confirms)
	})

	t.Run("on-chain failure surfaces SubmissionFailed", func(t *testing.T) {
		h := newHarness(t, nil)
		h.ledger.confirmErr = soladapter.ErrTransactionFailed

		_, err := h.svc.Execute(context.Background(), Request{
			Kind: entities.OperationBurn, Amount: 10, Resource: entities.ResourceEnergy,
		})
		assert.True(t, entities.IsKind(err, entities.ErrKindSubmissionFailed))
	})
}

func TestTokenToBaseUnits(t *testing.T) {
	assert.Equal(t, uint64(100_000_000_000), tokenToBaseUnits(100, 9))
	assert.Equal(t, uint64(500_000_000), tokenToBaseUnits(0.5, 9))
	assert.Equal(t, uint64(1), tokenToBaseUnits(1, 0))
	assert.Equal(t, uint64(0), tokenToBaseUnits(-1, 9))
}
