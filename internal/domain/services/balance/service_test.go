package balance

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/qwami-service/qwami_service/internal/domain/entities"
	soladapter "github.com/qwami-service/qwami_service/internal/infrastructure/adapters/solana"
)

const (
	testOwner = "9WzDXwBbmkg8ZTbNMqUxvQRAyrZzDsGYdLVL9zYtAWWM"
	testMint  = "So11111111111111111111111111111111111111112"
)

type fakeLedger struct {
	mu           sync.Mutex
	native       uint64
	nativeErr    error
	token        soladapter.TokenBalance
	tokenErr     error
	exists       bool
	fetches      int
	fetchGate    chan struct{} // when set, GetLamportBalance blocks until closed
	fetchEntered chan struct{}
}

func (l *fakeLedger) GetLamportBalance(ctx context.Context, account solana.PublicKey) (uint64, error) {
	l.mu.Lock()
	l.fetches++
	gate := l.fetchGate
	entered := l.fetchEntered
	l.mu.Unlock()

	if entered != nil {
		select {
		case entered <- struct{}{}:
		default:
		}
	}
	if gate != nil {
		<-gate
	}
	if l.nativeErr != nil {
		return 0, l.nativeErr
	}
	return l.native, nil
}

func (l *fakeLedger) GetTokenBalance(ctx context.Context, tokenAccount solana.PublicKey) (soladapter.TokenBalance, error) {
	if l.tokenErr != nil {
		return soladapter.TokenBalance{}, l.tokenErr
	}
	return l.token, nil
}

func (l *fakeLedger) AccountExists(ctx context.Context, account solana.PublicKey) (bool, error) {
	return l.exists, nil
}

func (l *fakeLedger) fetchCount() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.fetches
}

func newService(t *testing.T, ledger *fakeLedger, mintConfigured bool) *Service {
	t.Helper()
	cfg := Config{}
	if mintConfigured {
		cfg = Config{TokenMint: testMint, MintConfigured: true}
	}
	svc, err := NewService(ledger, nil, cfg, zap.NewNop())
	require.NoError(t, err)
	return svc
}

func owner(t *testing.T) solana.PublicKey {
	t.Helper()
	return solana.MustPublicKeyFromBase58(testOwner)
}

func TestRefresh(t *testing.T) {
	t.Run("reconciles native and utility balances", func(t *testing.T) {
		ledger := &fakeLedger{
			native: 5_000_000_000,
			token:  soladapter.TokenBalance{Amount: 123_000_000_000, Decimals: 9},
			exists: true,
		}
		svc := newService(t, ledger, true)

		snapshot, err := svc.Refresh(context.Background(), owner(t))

		require.NoError(t, err)
		assert.Equal(t, uint64(5_000_000_000), snapshot.Native)
		assert.Equal(t, uint64(123_000_000_000), snapshot.Utility)
		assert.False(t, snapshot.FetchedAt.IsZero())
		assert.Equal(t, snapshot, svc.Snapshot())
	})

	t.Run("absent token account reconciles to zero without error", func(t *testing.T) {
		ledger := &fakeLedger{
			native:   1_000,
			tokenErr: soladapter.ErrAccountNotFound,
		}
		svc := newService(t, ledger, true)

		snapshot, err := svc.Refresh(context.Background(), owner(t))

		require.NoError(t, err)
		assert.Equal(t, uint64(1_000), snapshot.Native)
		assert.Equal(t, uint64(0), snapshot.Utility)
	})

	t.Run("unconfigured mint reconciles utility to explicit zero", func(t *testing.T) {
		ledger := &fakeLedger{native: 42}
		svc := newService(t, ledger, false)

		snapshot, err := svc.Refresh(context.Background(), owner(t))

		require.NoError(t, err)
		assert.Equal(t, uint64(42), snapshot.Native)
		assert.Equal(t, uint64(0), snapshot.Utility)
	})

	t.Run("fetch failure retains the stale snapshot", func(t *testing.T) {
		ledger := &fakeLedger{native: 100, exists: true, token: soladapter.TokenBalance{Amount: 7}}
		svc := newService(t, ledger, true)

		first, err := svc.Refresh(context.Background(), owner(t))
		require.NoError(t, err)

		ledger.nativeErr = errors.New("rpc unreachable")
		stale, err := svc.Refresh(context.Background(), owner(t))

		assert.True(t, entities.IsKind(err, entities.ErrKindFetchFailed))
		assert.Equal(t, first, stale)
		assert.Equal(t, first, svc.Snapshot())
	})

	t.Run("token fetch failure surfaces FetchFailed", func(t *testing.T) {
		ledger := &fakeLedger{
			native:   100,
			tokenErr: errors.New("rpc unreachable"),
		}
		svc := newService(t, ledger, true)

		_, err := svc.Refresh(context.Background(), owner(t))
		assert.True(t, entities.IsKind(err, entities.ErrKindFetchFailed))
	})

	t.Run("rejects an invalid configured mint at construction", func(t *testing.T) {
		_, err := NewService(&fakeLedger{}, nil, Config{TokenMint: "bogus", MintConfigured: true}, zap.NewNop())
		assert.Error(t, err)
	})
}

func TestRefreshCoalescing(t *testing.T) {
	ledger := &fakeLedger{
		native:       9,
		fetchGate:    make(chan struct{}),
		fetchEntered: make(chan struct{}, 1),
	}
	svc := newService(t, ledger, false)

	const callers = 5
	var wg sync.WaitGroup
	snapshots := make([]entities.BalanceSnapshot, callers)

	wg.Add(1)
	go func() {
		defer wg.Done()
		snapshots[0], _ = svc.Refresh(context.Background(), owner(t))
	}()

	// Wait until the first fetch is inside the ledger call, then pile on.
	<-ledger.fetchEntered
	for i := 1; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			snapshots[i], _ = svc.Refresh(context.Background(), owner(t))
		}(i)
	}

	// Give the late callers time to join the in-flight fetch.
	time.Sleep(50 * time.Millisecond)
	close(ledger.fetchGate)
	wg.Wait()

	// All coalesced callers observe the identical snapshot from one fetch.
	for i := 1; i < callers; i++ {
		assert.Equal(t, snapshots[0], snapshots[i])
	}
	assert.Equal(t, 1, ledger.fetchCount())
}

func TestReset(t *testing.T) {
	t.Run("zeroes the stored snapshot", func(t *testing.T) {
		ledger := &fakeLedger{native: 100}
		svc := newService(t, ledger, false)

		_, err := svc.Refresh(context.Background(), owner(t))
		require.NoError(t, err)
		require.False(t, svc.Snapshot().IsZero())

		svc.Reset()
		assert.True(t, svc.Snapshot().IsZero())
	})

	t.Run("wins over a refresh in flight", func(t *testing.T) {
		ledger := &fakeLedger{
			native:       500,
			fetchGate:    make(chan struct{}),
			fetchEntered: make(chan struct{}, 1),
		}
		svc := newService(t, ledger, false)

		done := make(chan struct{})
		go func() {
			defer close(done)
			svc.Refresh(context.Background(), owner(t))
		}()

		// Disconnect while the fetch is held inside the ledger call.
		<-ledger.fetchEntered
		svc.Reset()
		close(ledger.fetchGate)
		<-done

		// The landed fetch must not resurrect the old owner's balances.
		assert.True(t, svc.Snapshot().IsZero())
	})
}

func TestTokenAccountFor(t *testing.T) {
	t.Run("resolves the derived account with existence", func(t *testing.T) {
		ledger := &fakeLedger{exists: true}
		svc := newService(t, ledger, true)

		ref, err := svc.TokenAccountFor(context.Background(), owner(t))

		require.NoError(t, err)
		assert.True(t, ref.Exists)
		assert.Equal(t, owner(t), ref.Owner)
		assert.False(t, ref.DerivedAddress.IsZero())
	})

	t.Run("fails with NotConfigured when no mint is set", func(t *testing.T) {
		svc := newService(t, &fakeLedger{}, false)

		_, err := svc.TokenAccountFor(context.Background(), owner(t))
		assert.True(t, entities.IsKind(err, entities.ErrKindNotConfigured))
	})
}
