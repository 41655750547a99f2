package treasury

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/qwami-service/qwami_service/internal/domain/entities"
	soladapter "github.com/qwami-service/qwami_service/internal/infrastructure/adapters/solana"
	"github.com/qwami-service/qwami_service/internal/infrastructure/cache"
	"github.com/qwami-service/qwami_service/pkg/metrics"
)

// Ledger is the slice of the RPC client the treasury drives.
type Ledger interface {
	AccountExists(ctx context.Context, account solana.PublicKey) (bool, error)
	GetMintInfo(ctx context.Context, mint solana.PublicKey) (soladapter.MintInfo, error)
	GetLatestBlockhash(ctx context.Context) (solana.Hash, error)
	SubmitTransaction(ctx context.Context, tx *solana.Transaction) (solana.Signature, error)
	ConfirmTransaction(ctx context.Context, sig solana.Signature) error
}

// Config holds the token deployment and pricing parameters.
type Config struct {
	Network             string
	TokenMint           string
	MintConfigured      bool
	AuthorityKey        string // base58 secret key, never logged
	AuthorityConfigured bool
	TokenDecimals       int
	MaxSupply           uint64
	Simulation          bool
	BasePriceUSD        float64
	SolUSDPrice         float64
	StakingEnabled      bool
	DAOEnabled          bool
}

// Service is the trusted backend collaborator holding the issuing authority.
// It performs authority-signed purchase mints and serves token stats. The
// authority key never leaves this package.
type Service struct {
	ledger    Ledger
	cache     *cache.BalanceCache
	config    Config
	logger    *zap.Logger
	mint      solana.PublicKey
	authority *solana.PrivateKey
}

// NewService creates a treasury service. Unconfigured mint or authority is
// valid; purchases then fail with NotConfigured while stats still serve.
func NewService(ledger Ledger, balanceCache *cache.BalanceCache, cfg Config, logger *zap.Logger) (*Service, error) {
	s := &Service{
		ledger: ledger,
		cache:  balanceCache,
		config: cfg,
		logger: logger,
	}

	if cfg.MintConfigured {
		mint, err := soladapter.ParseAddress(cfg.TokenMint)
		if err != nil {
			return nil, fmt.Errorf("token mint: %w", err)
		}
		s.mint = mint
	}
	if cfg.AuthorityConfigured {
		key, err := solana.PrivateKeyFromBase58(cfg.AuthorityKey)
		if err != nil {
			return nil, fmt.Errorf("authority key: %w", err)
		}
		s.authority = &key
	}
	return s, nil
}

// HasAuthority reports whether the issuing authority is deployed.
func (s *Service) HasAuthority() bool {
	return s.authority != nil
}

// AuthorityKey returns the authority public key. Zero when unconfigured.
func (s *Service) AuthorityKey() solana.PublicKey {
	if s.authority == nil {
		return solana.PublicKey{}
	}
	return s.authority.PublicKey()
}

// SignAsAuthority co-signs a transaction with the issuing authority.
func (s *Service) SignAsAuthority(tx *solana.Transaction) error {
	if s.authority == nil {
		return entities.NewError(entities.ErrKindNotConfigured, "no issuing authority configured")
	}
	_, err := tx.PartialSign(func(key solana.PublicKey) *solana.PrivateKey {
		if key.Equals(s.authority.PublicKey()) {
			return s.authority
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("authority sign: %w", err)
	}
	return nil
}

// Purchase mints tokens to a wallet, creating the recipient's token account
// when needed. The authority pays fees and signs. In simulation mode a
// synthetic receipt is returned and nothing is submitted.
func (s *Service) Purchase(ctx context.Context, walletAddress string, amount float64) (entities.PurchaseReceipt, error) {
	if walletAddress == "" {
		return entities.PurchaseReceipt{}, entities.NewError(entities.ErrKindInvalidAddress, "wallet address is required")
	}
	recipient, err := soladapter.ParseAddress(walletAddress)
	if err != nil {
		return entities.PurchaseReceipt{}, entities.WrapError(entities.ErrKindInvalidAddress, "invalid wallet address", err)
	}
	if amount <= 0 {
		return entities.PurchaseReceipt{}, entities.NewError(entities.ErrKindInvalidAmount, "amount must be positive")
	}
	if !s.config.MintConfigured {
		return entities.PurchaseReceipt{}, entities.NewError(entities.ErrKindNotConfigured, "token mint not configured")
	}
	if s.authority == nil {
		return entities.PurchaseReceipt{}, entities.NewError(entities.ErrKindNotConfigured, "authority key not configured")
	}

	if s.config.Simulation {
		signature := "SIMULATED_TX_" + strconv.FormatInt(time.Now().UnixMilli(), 10)
		s.logger.Info("Purchase simulated",
			zap.String("recipient", walletAddress),
			zap.Float64("amount", amount))
		metrics.OperationsTotal.WithLabelValues("purchase", "confirmed", "true").Inc()
		return entities.PurchaseReceipt{
			Amount:    amount,
			Recipient: walletAddress,
			Mint:      s.config.TokenMint,
			Signature: signature,
			Simulated: true,
		}, nil
	}

	return s.mintLive(ctx, recipient, amount)
}

func (s *Service) mintLive(ctx context.Context, recipient solana.PublicKey, amount float64) (entities.PurchaseReceipt, error) {
	baseUnits := tokenToBaseUnits(amount, s.config.TokenDecimals)

	if err := s.checkSupplyHeadroom(ctx, baseUnits); err != nil {
		return entities.PurchaseReceipt{}, err
	}

	tokenAccount, err := soladapter.DeriveTokenAccount(recipient, s.mint)
	if err != nil {
		return entities.PurchaseReceipt{}, entities.WrapError(entities.ErrKindInvalidAddress, "token account derivation failed", err)
	}
	exists, err := s.ledger.AccountExists(ctx, tokenAccount)
	if err != nil {
		return entities.PurchaseReceipt{}, entities.WrapError(entities.ErrKindFetchFailed, "token account lookup failed", err)
	}

	blockhash, err := s.ledger.GetLatestBlockhash(ctx)
	if err != nil {
		return entities.PurchaseReceipt{}, entities.WrapError(entities.ErrKindFetchFailed, "blockhash fetch failed", err)
	}

	tx, err := soladapter.BuildMintTransaction(soladapter.MintParams{
		Mint:        s.mint,
		Destination: tokenAccount,
		Authority:   s.authority.PublicKey(),
		Amount:      baseUnits,
		CreateATA:   !exists,
		ATAOwner:    recipient,
		Payer:       s.authority.PublicKey(),
	}, blockhash)
	if err != nil {
		return entities.PurchaseReceipt{}, entities.WrapError(entities.ErrKindSubmissionFailed, "mint transaction build failed", err)
	}
	if err := s.SignAsAuthority(tx); err != nil {
		return entities.PurchaseReceipt{}, entities.WrapError(entities.ErrKindSubmissionFailed, "mint transaction signing failed", err)
	}

	sig, err := s.ledger.SubmitTransaction(ctx, tx)
	if err != nil {
		metrics.OperationsTotal.WithLabelValues("purchase", "failed", "false").Inc()
		return entities.PurchaseReceipt{}, entities.WrapError(entities.ErrKindSubmissionFailed, "mint submission failed", err)
	}

	if err := s.ledger.ConfirmTransaction(ctx, sig); err != nil {
		metrics.OperationsTotal.WithLabelValues("purchase", "failed", "false").Inc()
		if errors.Is(err, soladapter.ErrConfirmationTimeout) {
			return entities.PurchaseReceipt{}, entities.WrapError(entities.ErrKindConfirmationTimeout, "mint confirmation timed out", err)
		}
		return entities.PurchaseReceipt{}, entities.WrapError(entities.ErrKindSubmissionFailed, "mint confirmation failed", err)
	}

	s.logger.Info("Minted tokens",
		zap.Float64("amount", amount),
		zap.String("recipient", recipient.String()),
		zap.String("signature", sig.String()))
	metrics.OperationsTotal.WithLabelValues("purchase", "confirmed", "false").Inc()

	// Invalidate the recipient's cached snapshot so the next lookup
	// reconciles the minted balance.
	if s.cache != nil {
		if err := s.cache.InvalidateSnapshot(ctx, recipient.String()); err != nil {
			s.logger.Warn("Snapshot invalidation failed", zap.Error(err))
		}
	}

	return entities.PurchaseReceipt{
		Amount:                amount,
		Recipient:             recipient.String(),
		RecipientTokenAccount: tokenAccount.String(),
		Mint:                  s.config.TokenMint,
		Signature:             sig.String(),
		ExplorerURL:           soladapter.ExplorerURL(s.config.Network, sig.String()),
	}, nil
}

// checkSupplyHeadroom rejects mints that would exceed the max supply. The
// supply read is best effort: an unreadable mint degrades to no check, the
// same way the stats surface degrades.
func (s *Service) checkSupplyHeadroom(ctx context.Context, baseUnits uint64) error {
	if s.config.MaxSupply == 0 {
		return nil
	}
	info, err := s.ledger.GetMintInfo(ctx, s.mint)
	if err != nil {
		s.logger.Warn("Supply check skipped, mint info unavailable", zap.Error(err))
		return nil
	}
	if info.Supply+baseUnits > s.config.MaxSupply {
		return entities.NewError(entities.ErrKindInvalidAmount, "mint would exceed max supply")
	}
	return nil
}

// Stats returns the token stats surface. Never fails: on-chain fields are
// nil when the mint is undeployed, simulated, or unreadable.
func (s *Service) Stats(ctx context.Context) entities.TokenStats {
	if s.cache != nil {
		if stats, err := s.cache.GetStats(ctx); err == nil {
			return stats
		}
	}

	stats := entities.TokenStats{
		Symbol:         "QWAMI",
		Name:           "QWAMI Token",
		Mint:           s.config.TokenMint,
		Network:        s.config.Network,
		Decimals:       s.config.TokenDecimals,
		MaxSupply:      s.config.MaxSupply,
		BasePriceUSD:   s.config.BasePriceUSD,
		SolUSDPrice:    s.config.SolUSDPrice,
		StakingEnabled: s.config.StakingEnabled,
		DAOEnabled:     s.config.DAOEnabled,
		Simulated:      s.config.Simulation,
		UpdatedAt:      time.Now(),
	}

	if s.config.MintConfigured && !s.config.Simulation {
		if info, err := s.ledger.GetMintInfo(ctx, s.mint); err == nil {
			supply := info.Supply
			burned := uint64(0)
			if s.config.MaxSupply > supply {
				burned = s.config.MaxSupply - supply
			}
			stats.CirculatingSupply = &supply
			stats.TotalBurned = &burned
		} else {
			s.logger.Warn("Could not fetch on-chain stats", zap.Error(err))
		}
	}

	if s.cache != nil {
		if err := s.cache.SetStats(ctx, stats); err != nil {
			s.logger.Warn("Stats cache write failed", zap.Error(err))
		}
	}
	return stats
}

func tokenToBaseUnits(amount float64, decimals int) uint64 {
	units := decimal.NewFromFloat(amount).Shift(int32(decimals)).Floor()
	if units.Sign() < 0 {
		return 0
	}
	return uint64(units.IntPart())
}
