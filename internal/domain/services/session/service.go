package session

import (
	"context"
	"sync"

	"github.com/gagliardetto/solana-go"
	"go.uber.org/zap"

	"github.com/qwami-service/qwami_service/internal/domain/entities"
)

// BalanceRefresher is the slice of the balance reconciler the session
// manager drives: a refresh after connect and account change, a reset on
// disconnect.
type BalanceRefresher interface {
	Refresh(ctx context.Context, owner solana.PublicKey) (entities.BalanceSnapshot, error)
	Reset()
}

// Manager owns the single wallet session. Connects are serialized: a second
// Connect while one is pending fails fast with AlreadyConnecting rather than
// queuing. Provider events are consumed by one event loop goroutine.
type Manager struct {
	provider Provider
	balances BalanceRefresher
	logger   *zap.Logger

	mu         sync.Mutex
	connecting bool
	session    entities.WalletSession

	stop     chan struct{}
	stopOnce sync.Once
	done     chan struct{}
}

// NewManager creates a session manager. A nil provider is valid: every
// provider-bound operation then fails with ProviderUnavailable, matching a
// deployment where no wallet is installed.
func NewManager(provider Provider, balances BalanceRefresher, logger *zap.Logger) *Manager {
	m := &Manager{
		provider: provider,
		balances: balances,
		logger:   logger,
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}

	if provider != nil {
		go m.eventLoop()
	} else {
		close(m.done)
	}
	return m
}

// Connect establishes the wallet session and triggers a balance refresh.
// Idempotent while connected; fails fast with AlreadyConnecting while
// another Connect is pending.
func (m *Manager) Connect(ctx context.Context) (entities.WalletSession, error) {
	if m.provider == nil {
		return entities.WalletSession{}, entities.NewError(entities.ErrKindProviderUnavailable, "no wallet provider available")
	}

	m.mu.Lock()
	if m.connecting {
		m.mu.Unlock()
		return entities.WalletSession{}, entities.NewError(entities.ErrKindAlreadyConnecting, "a connect attempt is already in flight")
	}
	if m.session.Connected {
		session := m.session
		m.mu.Unlock()
		return session, nil
	}
	m.connecting = true
	m.mu.Unlock()

	account, err := m.provider.Connect(ctx)

	m.mu.Lock()
	m.connecting = false
	if err != nil {
		m.mu.Unlock()
		if entities.KindOf(err) != entities.ErrKindUnknown {
			return entities.WalletSession{}, err
		}
		return entities.WalletSession{}, entities.WrapError(entities.ErrKindUserRejected, "wallet connection rejected", err)
	}

	m.session = entities.WalletSession{
		Connected: true,
		Address:   &account,
		CanSign:   m.provider.CanSign(),
	}
	session := m.session
	m.mu.Unlock()

	m.logger.Info("Wallet connected", zap.String("address", session.ShortAddress()))
	m.refresh(ctx, account)

	return session, nil
}

// Disconnect tears down the session. The local state transition always
// succeeds; a provider-side disconnect failure is logged only. The balance
// snapshot is zeroed regardless of prior state.
func (m *Manager) Disconnect(ctx context.Context) {
	if m.provider != nil {
		if err := m.provider.Disconnect(ctx); err != nil {
			m.logger.Warn("Provider disconnect failed", zap.Error(err))
		}
	}
	m.disconnectLocal()
}

// SignTransaction signs a transaction through the connected provider.
func (m *Manager) SignTransaction(ctx context.Context, tx *solana.Transaction) (*solana.Transaction, error) {
	m.mu.Lock()
	connected := m.session.Connected
	canSign := m.session.CanSign
	m.mu.Unlock()

	if !connected {
		return nil, entities.NewError(entities.ErrKindNotConnected, "wallet is not connected")
	}
	if !canSign {
		return nil, entities.NewError(entities.ErrKindSigningUnsupported, "connected wallet cannot sign transactions")
	}

	signed, err := m.provider.SignTransaction(ctx, tx)
	if err != nil {
		if entities.KindOf(err) != entities.ErrKindUnknown {
			return nil, err
		}
		return nil, entities.WrapError(entities.ErrKindUserRejected, "transaction signing rejected", err)
	}
	return signed, nil
}

// Session returns a copy of the current session state.
func (m *Manager) Session() entities.WalletSession {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.session
}

// Close stops the event loop and waits for it to drain.
func (m *Manager) Close() {
	m.stopOnce.Do(func() { close(m.stop) })
	<-m.done
}

func (m *Manager) eventLoop() {
	defer close(m.done)
	for {
		select {
		case <-m.stop:
			return
		case event, ok := <-m.provider.Events():
			if !ok {
				return
			}
			m.handleEvent(event)
		}
	}
}

func (m *Manager) handleEvent(event Event) {
	switch event.Type {
	case EventAccountChanged:
		if event.Account == nil {
			m.logger.Info("Wallet account deselected")
			m.disconnectLocal()
			return
		}
		account := *event.Account
		m.mu.Lock()
		m.session = entities.WalletSession{
			Connected: true,
			Address:   &account,
			CanSign:   m.provider.CanSign(),
		}
		m.mu.Unlock()
		m.logger.Info("Wallet account changed", zap.String("address", account.String()))
		m.refresh(context.Background(), account)

	case EventDisconnect:
		m.logger.Info("Wallet disconnected by provider")
		m.disconnectLocal()
	}
}

func (m *Manager) disconnectLocal() {
	m.mu.Lock()
	wasConnected := m.session.Connected
	m.session = entities.WalletSession{}
	m.mu.Unlock()

	if m.balances != nil {
		m.balances.Reset()
	}
	if wasConnected {
		m.logger.Info("Wallet session closed")
	}
}

func (m *Manager) refresh(ctx context.Context, owner solana.PublicKey) {
	if m.balances == nil {
		return
	}
	if _, err := m.balances.Refresh(ctx, owner); err != nil {
		m.logger.Warn("Balance refresh after session change failed", zap.Error(err))
	}
}
