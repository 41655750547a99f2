package balance_poller

import (
	"context"
	"time"

	solana "github.com/gagliardetto/solana-go"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/qwami-service/qwami_service/internal/domain/entities"
)

// Refresher re-reconciles on-chain balances for an owner.
type Refresher interface {
	Refresh(ctx context.Context, owner solana.PublicKey) (entities.BalanceSnapshot, error)
}

// SessionReader reports the current operator wallet session. Nil when no
// operator wallet is deployed.
type SessionReader interface {
	Session() entities.WalletSession
}

// StatsWarmer recomputes token stats, refreshing the cache as a side effect.
type StatsWarmer interface {
	Stats(ctx context.Context) entities.TokenStats
}

type Worker struct {
	balances Refresher
	session  SessionReader
	treasury StatsWarmer
	schedule string
	cron     *cron.Cron
	logger   *zap.Logger
}

func NewWorker(
	balances Refresher,
	session SessionReader,
	treasury StatsWarmer,
	schedule string,
	logger *zap.Logger,
) *Worker {
	return &Worker{
		balances: balances,
		session:  session,
		treasury: treasury,
		schedule: schedule,
		cron:     cron.New(),
		logger:   logger,
	}
}

func (w *Worker) Start() error {
	// Keep the connected wallet's snapshot fresh between API-driven refreshes
	_, err := w.cron.AddFunc(w.schedule, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		w.poll(ctx)
	})
	if err != nil {
		return err
	}

	// Warm the stats cache every 5 minutes
	_, err = w.cron.AddFunc("@every 5m", func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		w.treasury.Stats(ctx)
	})
	if err != nil {
		return err
	}

	w.cron.Start()
	w.logger.Info("Balance poller started", zap.String("schedule", w.schedule))
	return nil
}

// Shutdown implements the graceful shutdown contract.
func (w *Worker) Shutdown(timeout time.Duration) error {
	stopped := w.cron.Stop()
	select {
	case <-stopped.Done():
		w.logger.Info("Balance poller stopped")
		return nil
	case <-time.After(timeout):
		return context.DeadlineExceeded
	}
}

func (w *Worker) poll(ctx context.Context) {
	if w.session == nil {
		return
	}
	session := w.session.Session()
	if !session.Connected || session.Address == nil {
		return
	}

	if _, err := w.balances.Refresh(ctx, *session.Address); err != nil {
		w.logger.Warn("Scheduled balance refresh failed",
			zap.String("wallet", session.ShortAddress()),
			zap.Error(err),
		)
	}
}
