package balance

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/gagliardetto/solana-go"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/qwami-service/qwami_service/internal/domain/entities"
	soladapter "github.com/qwami-service/qwami_service/internal/infrastructure/adapters/solana"
	"github.com/qwami-service/qwami_service/internal/infrastructure/cache"
	"github.com/qwami-service/qwami_service/pkg/metrics"
)

var timeNow = time.Now

// Ledger is the slice of the RPC client the reconciler needs.
type Ledger interface {
	GetLamportBalance(ctx context.Context, account solana.PublicKey) (uint64, error)
	GetTokenBalance(ctx context.Context, tokenAccount solana.PublicKey) (soladapter.TokenBalance, error)
	AccountExists(ctx context.Context, account solana.PublicKey) (bool, error)
}

// Config holds the token deployment parameters the reconciler reads.
type Config struct {
	TokenMint      string // empty means no utility token configured
	MintConfigured bool
}

// Service reconciles wallet balances against the ledger. Concurrent
// refreshes for the same owner are coalesced into one underlying fetch;
// every caller in the in-flight window observes the identical snapshot.
type Service struct {
	ledger Ledger
	cache  *cache.BalanceCache
	logger *zap.Logger
	mint   *solana.PublicKey

	group singleflight.Group

	mu       sync.RWMutex
	snapshot entities.BalanceSnapshot
	gen      uint64 // bumped by Reset so in-flight refreshes cannot resurrect a snapshot
}

// NewService creates a balance reconciler. An unconfigured mint is valid:
// utility balances then reconcile to an explicit zero.
func NewService(ledger Ledger, balanceCache *cache.BalanceCache, cfg Config, logger *zap.Logger) (*Service, error) {
	s := &Service{
		ledger: ledger,
		cache:  balanceCache,
		logger: logger,
	}

	if cfg.MintConfigured {
		mint, err := soladapter.ParseAddress(cfg.TokenMint)
		if err != nil {
			return nil, err
		}
		s.mint = &mint
	}
	return s, nil
}

// Refresh fetches the owner's balances and replaces the stored snapshot
// wholesale. On fetch failure the previous snapshot is retained and returned
// alongside a FetchFailed error; a missing token account is a legitimate
// zero, not a failure. A Reset issued while the fetch is in flight wins: the
// fetched result is discarded so a disconnected session stays at zero.
func (s *Service) Refresh(ctx context.Context, owner solana.PublicKey) (entities.BalanceSnapshot, error) {
	s.mu.RLock()
	gen := s.gen
	s.mu.RUnlock()

	snapshot, err := s.fetch(ctx, owner)
	if err != nil {
		s.mu.RLock()
		stale := s.snapshot
		s.mu.RUnlock()
		return stale, err
	}

	s.mu.Lock()
	if s.gen != gen {
		stored := s.snapshot
		s.mu.Unlock()
		return stored, nil
	}
	s.snapshot = snapshot
	s.mu.Unlock()

	s.mirror(ctx, owner, snapshot)
	return snapshot, nil
}

// Lookup fetches balances for an arbitrary wallet without touching the
// session snapshot. Served from the cache when fresh.
func (s *Service) Lookup(ctx context.Context, owner solana.PublicKey) (entities.BalanceSnapshot, error) {
	if s.cache != nil {
		if snapshot, err := s.cache.GetSnapshot(ctx, owner.String()); err == nil {
			return snapshot, nil
		} else if !errors.Is(err, cache.ErrCacheMiss) {
			s.logger.Warn("Balance cache read failed", zap.Error(err))
		}
	}

	snapshot, err := s.fetch(ctx, owner)
	if err != nil {
		return entities.BalanceSnapshot{}, err
	}
	s.mirror(ctx, owner, snapshot)
	return snapshot, nil
}

// Snapshot returns the current stored snapshot.
func (s *Service) Snapshot() entities.BalanceSnapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshot
}

// Reset zeroes the stored snapshot and invalidates any refresh currently in
// flight. Called on disconnect.
func (s *Service) Reset() {
	s.mu.Lock()
	s.snapshot = entities.BalanceSnapshot{}
	s.gen++
	s.mu.Unlock()
}

// TokenAccountFor resolves the owner's token account reference, including a
// current existence check. Fails with NotConfigured when no mint is set.
func (s *Service) TokenAccountFor(ctx context.Context, owner solana.PublicKey) (entities.TokenAccountRef, error) {
	if s.mint == nil {
		return entities.TokenAccountRef{}, entities.NewError(entities.ErrKindNotConfigured, "no token mint configured")
	}

	derived, err := soladapter.DeriveTokenAccount(owner, *s.mint)
	if err != nil {
		return entities.TokenAccountRef{}, entities.WrapError(entities.ErrKindInvalidAddress, "token account derivation failed", err)
	}

	exists, err := s.ledger.AccountExists(ctx, derived)
	if err != nil {
		return entities.TokenAccountRef{}, entities.WrapError(entities.ErrKindFetchFailed, "token account existence check failed", err)
	}

	return entities.TokenAccountRef{
		Owner:          owner,
		Mint:           *s.mint,
		DerivedAddress: derived,
		Exists:         exists,
	}, nil
}

// fetch performs one coalesced balance read for the owner.
func (s *Service) fetch(ctx context.Context, owner solana.PublicKey) (entities.BalanceSnapshot, error) {
	result, err, _ := s.group.Do(owner.String(), func() (interface{}, error) {
		return s.fetchOnce(ctx, owner)
	})
	if err != nil {
		metrics.BalanceRefreshesTotal.WithLabelValues("error").Inc()
		return entities.BalanceSnapshot{}, err
	}
	metrics.BalanceRefreshesTotal.WithLabelValues("success").Inc()
	return result.(entities.BalanceSnapshot), nil
}

func (s *Service) fetchOnce(ctx context.Context, owner solana.PublicKey) (entities.BalanceSnapshot, error) {
	native, err := s.ledger.GetLamportBalance(ctx, owner)
	if err != nil {
		return entities.BalanceSnapshot{}, entities.WrapError(entities.ErrKindFetchFailed, "native balance fetch failed", err)
	}

	utility, err := s.fetchUtility(ctx, owner)
	if err != nil {
		return entities.BalanceSnapshot{}, err
	}

	return entities.BalanceSnapshot{
		Native:    native,
		Utility:   utility,
		FetchedAt: timeNow(),
	}, nil
}

func (s *Service) fetchUtility(ctx context.Context, owner solana.PublicKey) (uint64, error) {
	// No mint configured is a graceful zero, not an error.
	if s.mint == nil {
		return 0, nil
	}

	derived, err := soladapter.DeriveTokenAccount(owner, *s.mint)
	if err != nil {
		return 0, entities.WrapError(entities.ErrKindInvalidAddress, "token account derivation failed", err)
	}

	balance, err := s.ledger.GetTokenBalance(ctx, derived)
	if err != nil {
		// An absent token account holds zero by definition.
		if errors.Is(err, soladapter.ErrAccountNotFound) {
			return 0, nil
		}
		return 0, entities.WrapError(entities.ErrKindFetchFailed, "token balance fetch failed", err)
	}
	return balance.Amount, nil
}

func (s *Service) mirror(ctx context.Context, owner solana.PublicKey, snapshot entities.BalanceSnapshot) {
	if s.cache == nil {
		return
	}
	if err := s.cache.SetSnapshot(ctx, owner.String(), snapshot); err != nil {
		s.logger.Warn("Balance cache write failed", zap.Error(err))
	}
}
