package solana

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	"github.com/sony/gobreaker"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/qwami-service/qwami_service/pkg/metrics"
)

// Client wraps the Solana JSON-RPC client with rate limiting, a circuit
// breaker and retry on read paths. Submission and confirmation never retry:
// resubmitting a transaction is not idempotent.
type Client struct {
	rpc            *rpc.Client
	config         Config
	circuitBreaker *gobreaker.CircuitBreaker
	rateLimiter    *rate.Limiter
	logger         *zap.Logger
}

// NewClient creates a ledger RPC client.
func NewClient(config Config, logger *zap.Logger) *Client {
	if config.ConfirmTimeout == 0 {
		config.ConfirmTimeout = defaultConfirmTimeout
	}
	if config.ConfirmPoll == 0 {
		config.ConfirmPoll = defaultConfirmPoll
	}
	if config.RequestsPerSecond == 0 {
		config.RequestsPerSecond = MaxRequestsPerSecond
	}
	if config.Commitment == "" {
		config.Commitment = rpc.CommitmentConfirmed
	}

	cbSettings := gobreaker.Settings{
		Name:        "SolanaRPC",
		MaxRequests: 5,
		Interval:    10 * time.Second,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures > 5
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			logger.Info("Solana circuit breaker state changed",
				zap.String("name", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()))
		},
	}

	return &Client{
		rpc:            rpc.New(config.Endpoint),
		config:         config,
		circuitBreaker: gobreaker.NewCircuitBreaker(cbSettings),
		rateLimiter:    rate.NewLimiter(rate.Limit(config.RequestsPerSecond), 1),
		logger:         logger,
	}
}

// Network returns the configured cluster name.
func (c *Client) Network() string {
	return c.config.Network
}

// GetLamportBalance returns the native balance of an account in lamports.
// A missing account reports zero.
func (c *Client) GetLamportBalance(ctx context.Context, account solana.PublicKey) (uint64, error) {
	var balance uint64
	err := c.readCall(ctx, "getBalance", func() error {
		out, err := c.rpc.GetBalance(ctx, account, c.config.Commitment)
		if err != nil {
			return err
		}
		balance = out.Value
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("get lamport balance: %w", err)
	}
	return balance, nil
}

// GetTokenBalance returns the balance of a token account in raw base units.
// Returns ErrAccountNotFound if the account does not exist yet.
func (c *Client) GetTokenBalance(ctx context.Context, tokenAccount solana.PublicKey) (TokenBalance, error) {
	var balance TokenBalance
	err := c.readCall(ctx, "getTokenAccountBalance", func() error {
		out, err := c.rpc.GetTokenAccountBalance(ctx, tokenAccount, c.config.Commitment)
		if err != nil {
			return err
		}
		amount, err := strconv.ParseUint(out.Value.Amount, 10, 64)
		if err != nil {
			return fmt.Errorf("parse token amount %q: %w", out.Value.Amount, err)
		}
		balance = TokenBalance{Amount: amount, Decimals: out.Value.Decimals}
		return nil
	})
	if err != nil {
		if isNotFound(err) {
			return TokenBalance{}, ErrAccountNotFound
		}
		return TokenBalance{}, fmt.Errorf("get token balance: %w", err)
	}
	return balance, nil
}

// AccountExists reports whether an account exists on the ledger.
func (c *Client) AccountExists(ctx context.Context, account solana.PublicKey) (bool, error) {
	exists := false
	err := c.readCall(ctx, "getAccountInfo", func() error {
		_, err := c.rpc.GetAccountInfoWithOpts(ctx, account, &rpc.GetAccountInfoOpts{
			Commitment: c.config.Commitment,
		})
		if err != nil {
			if isNotFound(err) {
				exists = false
				return nil
			}
			return err
		}
		exists = true
		return nil
	})
	if err != nil {
		return false, fmt.Errorf("account exists: %w", err)
	}
	return exists, nil
}

// GetMintInfo returns the current supply state of a token mint.
func (c *Client) GetMintInfo(ctx context.Context, mint solana.PublicKey) (MintInfo, error) {
	var info MintInfo
	err := c.readCall(ctx, "getTokenSupply", func() error {
		out, err := c.rpc.GetTokenSupply(ctx, mint, c.config.Commitment)
		if err != nil {
			return err
		}
		supply, err := strconv.ParseUint(out.Value.Amount, 10, 64)
		if err != nil {
			return fmt.Errorf("parse supply %q: %w", out.Value.Amount, err)
		}
		info = MintInfo{Supply: supply, Decimals: out.Value.Decimals}
		return nil
	})
	if err != nil {
		if isNotFound(err) {
			return MintInfo{}, ErrAccountNotFound
		}
		return MintInfo{}, fmt.Errorf("get mint info: %w", err)
	}
	return info, nil
}

// GetLatestBlockhash fetches a recent blockhash for transaction assembly.
func (c *Client) GetLatestBlockhash(ctx context.Context) (solana.Hash, error) {
	var hash solana.Hash
	err := c.readCall(ctx, "getLatestBlockhash", func() error {
		out, err := c.rpc.GetLatestBlockhash(ctx, c.config.Commitment)
		if err != nil {
			return err
		}
		hash = out.Value.Blockhash
		return nil
	})
	if err != nil {
		return solana.Hash{}, fmt.Errorf("get latest blockhash: %w", err)
	}
	return hash, nil
}

// SubmitTransaction sends a fully signed transaction to the cluster. Exactly
// one send attempt is made.
func (c *Client) SubmitTransaction(ctx context.Context, tx *solana.Transaction) (solana.Signature, error) {
	if err := c.rateLimiter.Wait(ctx); err != nil {
		return solana.Signature{}, fmt.Errorf("rate limiter: %w", err)
	}

	start := time.Now()
	result, err := c.circuitBreaker.Execute(func() (interface{}, error) {
		return c.rpc.SendTransactionWithOpts(ctx, tx, rpc.TransactionOpts{
			SkipPreflight:       false,
			PreflightCommitment: c.config.Commitment,
		})
	})
	metrics.RPCCallDuration.WithLabelValues("sendTransaction").Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.RPCCallsTotal.WithLabelValues("sendTransaction", "error").Inc()
		return solana.Signature{}, fmt.Errorf("send transaction: %w", err)
	}
	metrics.RPCCallsTotal.WithLabelValues("sendTransaction", "success").Inc()

	sig := result.(solana.Signature)
	c.logger.Debug("Transaction submitted", zap.String("signature", sig.String()))
	return sig, nil
}

// ConfirmTransaction polls signature status until the configured commitment
// is reached, the transaction fails on chain, or the confirmation window
// expires. Returns ErrConfirmationTimeout when the window expires; the
// transaction may still land afterwards.
func (c *Client) ConfirmTransaction(ctx context.Context, sig solana.Signature) error {
	deadline := time.Now().Add(c.config.ConfirmTimeout)
	ticker := time.NewTicker(c.config.ConfirmPoll)
	defer ticker.Stop()

	for {
		if time.Now().After(deadline) {
			return ErrConfirmationTimeout
		}

		reached, err := c.checkSignatureStatus(ctx, sig)
		if err != nil {
			return err
		}
		if reached {
			return nil
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

func (c *Client) checkSignatureStatus(ctx context.Context, sig solana.Signature) (bool, error) {
	if err := c.rateLimiter.Wait(ctx); err != nil {
		return false, fmt.Errorf("rate limiter: %w", err)
	}

	out, err := c.rpc.GetSignatureStatuses(ctx, false, sig)
	if err != nil {
		// Transient status poll failures are absorbed; the deadline bounds us.
		c.logger.Warn("Signature status poll failed", zap.Error(err))
		return false, nil
	}
	if len(out.Value) == 0 || out.Value[0] == nil {
		return false, nil
	}

	status := out.Value[0]
	if status.Err != nil {
		return false, fmt.Errorf("%w: %v", ErrTransactionFailed, status.Err)
	}
	return commitmentReached(status.ConfirmationStatus, c.config.Commitment), nil
}

func commitmentReached(status rpc.ConfirmationStatusType, want rpc.CommitmentType) bool {
	rank := func(s string) int {
		switch s {
		case "processed":
			return 1
		case "confirmed":
			return 2
		case "finalized":
			return 3
		}
		return 0
	}
	return rank(string(status)) >= rank(string(want))
}

// readCall wraps a read-only RPC call with rate limiting, circuit breaking
// and bounded exponential backoff. Not-found results pass through untouched.
func (c *Client) readCall(ctx context.Context, method string, call func() error) error {
	start := time.Now()
	defer func() {
		metrics.RPCCallDuration.WithLabelValues(method).Observe(time.Since(start).Seconds())
	}()

	operation := func() error {
		if err := c.rateLimiter.Wait(ctx); err != nil {
			return backoff.Permanent(err)
		}
		_, err := c.circuitBreaker.Execute(func() (interface{}, error) {
			return nil, call()
		})
		if err != nil {
			if isNotFound(err) || errors.Is(err, gobreaker.ErrOpenState) {
				return backoff.Permanent(err)
			}
			return err
		}
		return nil
	}

	policy := backoff.WithContext(backoff.WithMaxRetries(backoff.NewExponentialBackOff(), maxReadRetries), ctx)
	if err := backoff.Retry(operation, policy); err != nil {
		metrics.RPCCallsTotal.WithLabelValues(method, "error").Inc()
		return err
	}
	metrics.RPCCallsTotal.WithLabelValues(method, "success").Inc()
	return nil
}

func isNotFound(err error) bool {
	if errors.Is(err, rpc.ErrNotFound) {
		return true
	}
	// getTokenAccountBalance reports a missing account as an RPC error rather
	// than a null value.
	return err != nil && strings.Contains(err.Error(), "could not find account")
}
