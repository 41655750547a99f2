package orchestrator

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/qwami-service/qwami_service/internal/domain/entities"
	soladapter "github.com/qwami-service/qwami_service/internal/infrastructure/adapters/solana"
	"github.com/qwami-service/qwami_service/pkg/metrics"
)

// Ledger is the slice of the RPC client the orchestrator drives. Submission
// and confirmation are single-shot; the orchestrator never retries them.
type Ledger interface {
	GetLatestBlockhash(ctx context.Context) (solana.Hash, error)
	SubmitTransaction(ctx context.Context, tx *solana.Transaction) (solana.Signature, error)
	ConfirmTransaction(ctx context.Context, sig solana.Signature) error
}

// Session is the wallet session surface the orchestrator needs.
type Session interface {
	Session() entities.WalletSession
	SignTransaction(ctx context.Context, tx *solana.Transaction) (*solana.Transaction, error)
}

// Accounts resolves token accounts and refreshes balances after an
// operation settles.
type Accounts interface {
	TokenAccountFor(ctx context.Context, owner solana.PublicKey) (entities.TokenAccountRef, error)
	Refresh(ctx context.Context, owner solana.PublicKey) (entities.BalanceSnapshot, error)
}

// Converter validates the token amount against the resource rate table.
type Converter interface {
	TokenToResource(resource entities.ResourceKind, tokenAmount float64) (float64, error)
}

// AuthoritySigner co-signs mint transactions with the issuing authority.
// Nil when no authority key is deployed; mint operations then fail with
// NotConfigured.
type AuthoritySigner interface {
	AuthorityKey() solana.PublicKey
	SignAsAuthority(tx *solana.Transaction) error
}

// Request describes one token operation to execute.
type Request struct {
	Kind        entities.OperationKind
	Amount      float64 // whole tokens
	Resource    entities.ResourceKind
	Destination string // transfer target wallet, transfers only
}

// Config holds the token deployment parameters the orchestrator reads.
type Config struct {
	TokenMint      string
	MintConfigured bool
	TokenDecimals  int
	Simulation     bool
}

// Service executes token operations end to end: validate, build, sign,
// submit, confirm, refresh. Input and configuration errors are rejected
// before any RPC; a submitted transaction is never cancelled or resubmitted.
type Service struct {
	ledger    Ledger
	session   Session
	accounts  Accounts
	converter Converter
	authority AuthoritySigner
	config    Config
	logger    *zap.Logger
	mint      solana.PublicKey
}

// NewService creates a transaction orchestrator.
func NewService(ledger Ledger, session Session, accounts Accounts, converter Converter, authority AuthoritySigner, cfg Config, logger *zap.Logger) (*Service, error) {
	s := &Service{
		ledger:    ledger,
		session:   session,
		accounts:  accounts,
		converter: converter,
		authority: authority,
		config:    cfg,
		logger:    logger,
	}

	if cfg.MintConfigured {
		mint, err := soladapter.ParseAddress(cfg.TokenMint)
		if err != nil {
			return nil, err
		}
		s.mint = mint
	}
	return s, nil
}

// Execute runs one token operation. The returned result always carries the
// simulated flag; on failure it carries the machine-checkable error kind and
// the error itself is returned alongside.
func (s *Service) Execute(ctx context.Context, req Request) (entities.OperationResult, error) {
	op := entities.NewPendingOperation(req.Kind, 0, req.Resource)

	yield, owner, err := s.validate(req)
	if err != nil {
		return s.fail(op, err)
	}

	baseUnits := tokenToBaseUnits(req.Amount, s.config.TokenDecimals)
	op.RequestedAmount = baseUnits

	s.logger.Debug("Operation validated",
		zap.String("operation_id", op.ID.String()),
		zap.String("kind", string(req.Kind)),
		zap.Float64("amount", req.Amount),
		zap.String("resource", string(req.Resource)),
		zap.Float64("yield", yield))

	if s.config.Simulation {
		return s.simulate(ctx, op)
	}

	return s.executeLive(ctx, op, req, baseUnits, owner)
}

// validate applies the fail-fast checks and captures the session owner once;
// the session can be nulled by the event loop at any time, so later steps
// must not re-read it. Nothing here touches the ledger.
func (s *Service) validate(req Request) (float64, solana.PublicKey, error) {
	if req.Amount <= 0 {
		return 0, solana.PublicKey{}, entities.NewError(entities.ErrKindInvalidAmount, "amount must be positive")
	}

	yield, err := s.converter.TokenToResource(req.Resource, req.Amount)
	if err != nil {
		return 0, solana.PublicKey{}, err
	}

	if !s.config.MintConfigured {
		return 0, solana.PublicKey{}, entities.NewError(entities.ErrKindNotConfigured, "no token mint configured")
	}

	session := s.session.Session()
	if !session.Connected || session.Address == nil {
		return 0, solana.PublicKey{}, entities.NewError(entities.ErrKindNotConnected, "wallet is not connected")
	}
	if !session.CanSign {
		return 0, solana.PublicKey{}, entities.NewError(entities.ErrKindSigningUnsupported, "connected wallet cannot sign transactions")
	}

	if req.Kind == entities.OperationMint && s.authority == nil {
		return 0, solana.PublicKey{}, entities.NewError(entities.ErrKindNotConfigured, "no issuing authority configured")
	}
	if req.Kind == entities.OperationTransfer {
		if _, err := soladapter.ParseAddress(req.Destination); err != nil {
			return 0, solana.PublicKey{}, entities.WrapError(entities.ErrKindInvalidAddress, "invalid transfer destination", err)
		}
	}
	return yield, *session.Address, nil
}

// simulate short-circuits the live protocol: a synthetic signature, no
// submission, and the same single post-operation refresh.
func (s *Service) simulate(ctx context.Context, op *entities.PendingOperation) (entities.OperationResult, error) {
	signature := "SIMULATED_TX_" + strconv.FormatInt(time.Now().UnixMilli(), 10)
	op.MarkConfirmed()

	s.logger.Info("Operation simulated",
		zap.String("operation_id", op.ID.String()),
		zap.String("kind", string(op.Kind)),
		zap.String("signature", signature))
	metrics.OperationsTotal.WithLabelValues(string(op.Kind), "confirmed", "true").Inc()

	s.refreshOnce(ctx)
	return entities.OperationResult{
		Signature: signature,
		Success:   true,
		Simulated: true,
	}, nil
}

func (s *Service) executeLive(ctx context.Context, op *entities.PendingOperation, req Request, baseUnits uint64, owner solana.PublicKey) (entities.OperationResult, error) {
	ref, err := s.accounts.TokenAccountFor(ctx, owner)
	if err != nil {
		return s.fail(op, err)
	}

	blockhash, err := s.ledger.GetLatestBlockhash(ctx)
	if err != nil {
		return s.fail(op, entities.WrapError(entities.ErrKindFetchFailed, "blockhash fetch failed", err))
	}

	tx, err := s.buildTransaction(req, ref, owner, baseUnits, blockhash)
	if err != nil {
		return s.fail(op, err)
	}

	op.Status = entities.StatusAwaitingSignature
	signed, err := s.session.SignTransaction(ctx, tx)
	if err != nil {
		return s.fail(op, err)
	}
	if req.Kind == entities.OperationMint {
		if err := s.authority.SignAsAuthority(signed); err != nil {
			return s.fail(op, entities.WrapError(entities.ErrKindSubmissionFailed, "authority co-sign failed", err))
		}
	}

	sig, err := s.ledger.SubmitTransaction(ctx, signed)
	if err != nil {
		return s.fail(op, entities.WrapError(entities.ErrKindSubmissionFailed, "transaction submission failed", err))
	}
	op.MarkSubmitted(sig)
	s.logger.Info("Transaction submitted",
		zap.String("operation_id", op.ID.String()),
		zap.String("signature", sig.String()))

	if err := s.ledger.ConfirmTransaction(ctx, sig); err != nil {
		return s.fail(op, confirmError(err))
	}
	op.MarkConfirmed()

	s.logger.Info("Transaction confirmed",
		zap.String("operation_id", op.ID.String()),
		zap.String("signature", sig.String()))
	metrics.OperationsTotal.WithLabelValues(string(op.Kind), "confirmed", "false").Inc()

	s.refreshOnce(ctx)
	return entities.OperationResult{
		Signature: sig.String(),
		Success:   true,
	}, nil
}

func (s *Service) buildTransaction(req Request, ref entities.TokenAccountRef, owner solana.PublicKey, baseUnits uint64, blockhash solana.Hash) (*solana.Transaction, error) {
	switch req.Kind {
	case entities.OperationMint:
		tx, err := soladapter.BuildMintTransaction(soladapter.MintParams{
			Mint:        s.mint,
			Destination: ref.DerivedAddress,
			Authority:   s.authority.AuthorityKey(),
			Amount:      baseUnits,
			CreateATA:   !ref.Exists,
			ATAOwner:    owner,
			Payer:       owner,
		}, blockhash)
		if err != nil {
			return nil, entities.WrapError(entities.ErrKindSubmissionFailed, "mint transaction build failed", err)
		}
		return tx, nil

	case entities.OperationBurn:
		tx, err := soladapter.BuildBurnTransaction(soladapter.BurnParams{
			Mint:   s.mint,
			Source: ref.DerivedAddress,
			Owner:  owner,
			Amount: baseUnits,
		}, blockhash)
		if err != nil {
			return nil, entities.WrapError(entities.ErrKindSubmissionFailed, "burn transaction build failed", err)
		}
		return tx, nil

	case entities.OperationTransfer:
		destOwner, err := soladapter.ParseAddress(req.Destination)
		if err != nil {
			return nil, entities.WrapError(entities.ErrKindInvalidAddress, "invalid transfer destination", err)
		}
		destAccount, err := soladapter.DeriveTokenAccount(destOwner, s.mint)
		if err != nil {
			return nil, entities.WrapError(entities.ErrKindInvalidAddress, "destination token account derivation failed", err)
		}
		tx, err := soladapter.BuildTransferTransaction(soladapter.TransferParams{
			Source:      ref.DerivedAddress,
			Destination: destAccount,
			Owner:       owner,
			Amount:      baseUnits,
		}, blockhash)
		if err != nil {
			return nil, entities.WrapError(entities.ErrKindSubmissionFailed, "transfer transaction build failed", err)
		}
		return tx, nil

	default:
		return nil, entities.NewError(entities.ErrKindInvalidAmount, "unknown operation kind: "+string(req.Kind))
	}
}

// fail marks the operation failed and builds the failure result.
func (s *Service) fail(op *entities.PendingOperation, err error) (entities.OperationResult, error) {
	kind := entities.KindOf(err)
	op.MarkFailed(kind)

	s.logger.Warn("Operation failed",
		zap.String("operation_id", op.ID.String()),
		zap.String("kind", string(op.Kind)),
		zap.String("error_kind", string(kind)),
		zap.Error(err))
	metrics.OperationsTotal.WithLabelValues(string(op.Kind), "failed", strconv.FormatBool(s.config.Simulation)).Inc()

	return entities.OperationResult{
		Success:   false,
		ErrorKind: kind,
		Simulated: s.config.Simulation,
	}, err
}

// refreshOnce triggers exactly one balance refresh after a settled
// operation. Best effort; a refresh failure does not fail the operation.
func (s *Service) refreshOnce(ctx context.Context) {
	session := s.session.Session()
	if session.Address == nil {
		return
	}
	if _, err := s.accounts.Refresh(ctx, *session.Address); err != nil {
		s.logger.Warn("Post-operation balance refresh failed", zap.Error(err))
	}
}

func confirmError(err error) error {
	switch {
	case errors.Is(err, soladapter.ErrConfirmationTimeout):
		return entities.WrapError(entities.ErrKindConfirmationTimeout, "transaction confirmation timed out", err)
	case errors.Is(err, soladapter.ErrTransactionFailed):
		return entities.WrapError(entities.ErrKindSubmissionFailed, "transaction failed on chain", err)
	default:
		return entities.WrapError(entities.ErrKindFetchFailed, "confirmation status fetch failed", err)
	}
}

func tokenToBaseUnits(amount float64, decimals int) uint64 {
	units := decimal.NewFromFloat(amount).Shift(int32(decimals)).Floor()
	if units.Sign() < 0 {
		return 0
	}
	return uint64(units.IntPart())
}
