package handlers

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/qwami-service/qwami_service/internal/domain/entities"
	"github.com/qwami-service/qwami_service/internal/domain/services/orchestrator"
	soladapter "github.com/qwami-service/qwami_service/internal/infrastructure/adapters/solana"

	solana "github.com/gagliardetto/solana-go"
)

// BalanceService is the balance surface consumed by the HTTP layer.
type BalanceService interface {
	Lookup(ctx context.Context, owner solana.PublicKey) (entities.BalanceSnapshot, error)
	TokenAccountFor(ctx context.Context, owner solana.PublicKey) (entities.TokenAccountRef, error)
}

// TreasuryService handles purchase mints and token stats.
type TreasuryService interface {
	Purchase(ctx context.Context, walletAddress string, amount float64) (entities.PurchaseReceipt, error)
	Stats(ctx context.Context) entities.TokenStats
}

// ConversionService quotes token-to-resource conversions.
type ConversionService interface {
	Quote(resource entities.ResourceKind, tokenAmount float64) (*entities.ConversionQuote, error)
}

// OperationService executes wallet-signed token operations. Nil when no
// operator wallet is deployed.
type OperationService interface {
	Execute(ctx context.Context, req orchestrator.Request) (entities.OperationResult, error)
}

// SessionService exposes the operator wallet session. Nil when no operator
// wallet is deployed.
type SessionService interface {
	Connect(ctx context.Context) (entities.WalletSession, error)
	Disconnect(ctx context.Context)
	Session() entities.WalletSession
}

// QwamiHandler serves the QWAMI token API surface.
type QwamiHandler struct {
	balances   BalanceService
	treasury   TreasuryService
	converter  ConversionService
	operations OperationService
	session    SessionService
	decimals   int
	logger     *zap.Logger
}

// NewQwamiHandler creates the token API handler. operations and session may
// be nil; the corresponding endpoints then report the wallet as unavailable.
func NewQwamiHandler(balances BalanceService, treasury TreasuryService, converter ConversionService, operations OperationService, session SessionService, decimals int, logger *zap.Logger) *QwamiHandler {
	return &QwamiHandler{
		balances:   balances,
		treasury:   treasury,
		converter:  converter,
		operations: operations,
		session:    session,
		decimals:   decimals,
		logger:     logger,
	}
}

// GetBalance handles GET /api/v1/qwami/balance?wallet=<address>
func (h *QwamiHandler) GetBalance(c *gin.Context) {
	wallet := c.Query("wallet")
	if wallet == "" {
		SendBadRequest(c, ErrCodeInvalidRequest, "Missing required parameter: wallet")
		return
	}
	h.respondBalance(c, wallet)
}

// LookupBalance handles POST /api/v1/qwami/balance
func (h *QwamiHandler) LookupBalance(c *gin.Context) {
	var req struct {
		Wallet string `json:"wallet" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		SendBadRequest(c, ErrCodeInvalidRequest, MsgInvalidRequest)
		return
	}
	h.respondBalance(c, req.Wallet)
}

func (h *QwamiHandler) respondBalance(c *gin.Context, wallet string) {
	owner, err := soladapter.ParseAddress(wallet)
	if err != nil {
		SendBadRequest(c, ErrCodeInvalidAddress, "Invalid wallet address")
		return
	}

	snapshot, err := h.balances.Lookup(c.Request.Context(), owner)
	if err != nil {
		h.logger.Warn("Balance lookup failed", zap.String("wallet", wallet), zap.Error(err))
		SendDomainError(c, err)
		return
	}

	resp := entities.BalanceResponse{
		Wallet:     wallet,
		Balance:    baseUnitsToTokens(snapshot.Utility, h.decimals),
		RawBalance: snapshot.Utility,
		NativeSOL:  baseUnitsToTokens(snapshot.Native, 9),
		RawNative:  snapshot.Native,
		Decimals:   h.decimals,
		FetchedAt:  snapshot.FetchedAt.Format("2006-01-02T15:04:05Z07:00"),
	}
	if ref, err := h.balances.TokenAccountFor(c.Request.Context(), owner); err == nil {
		resp.TokenAccount = ref.DerivedAddress.String()
	}

	SendSuccess(c, resp)
}

// Purchase handles POST /api/v1/qwami/purchase
func (h *QwamiHandler) Purchase(c *gin.Context) {
	var req entities.PurchaseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		SendBadRequest(c, ErrCodeInvalidRequest, MsgInvalidRequest)
		return
	}

	receipt, err := h.treasury.Purchase(c.Request.Context(), req.Wallet, req.Amount)
	if err != nil {
		h.logger.Warn("Purchase failed", zap.String("wallet", req.Wallet), zap.Error(err))
		SendDomainError(c, err)
		return
	}

	SendSuccess(c, entities.SuccessResponse{Success: true, Data: receipt})
}

// Stats handles GET /api/v1/qwami/stats
func (h *QwamiHandler) Stats(c *gin.Context) {
	SendSuccess(c, h.treasury.Stats(c.Request.Context()))
}

// Quote handles GET /api/v1/qwami/quote?resource=<kind>&amount=<tokens>
func (h *QwamiHandler) Quote(c *gin.Context) {
	resource := entities.ResourceKind(c.Query("resource"))
	amount, err := decimal.NewFromString(c.DefaultQuery("amount", ""))
	if err != nil {
		SendBadRequest(c, ErrCodeInvalidAmount, "Invalid amount parameter")
		return
	}

	quote, err := h.converter.Quote(resource, amount.InexactFloat64())
	if err != nil {
		SendDomainError(c, err)
		return
	}
	SendSuccess(c, quote)
}

// Burn handles POST /api/v1/qwami/burn — an operator-wallet-signed burn that
// converts tokens into a resource.
func (h *QwamiHandler) Burn(c *gin.Context) {
	if h.operations == nil {
		SendServiceUnavailable(c, "No operator wallet deployed")
		return
	}

	var req entities.BurnRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		SendBadRequest(c, ErrCodeInvalidRequest, MsgInvalidRequest)
		return
	}

	result, err := h.operations.Execute(c.Request.Context(), orchestrator.Request{
		Kind:     entities.OperationBurn,
		Amount:   req.Amount,
		Resource: entities.ResourceKind(req.Resource),
	})
	if err != nil {
		SendDomainError(c, err)
		return
	}
	SendSuccess(c, result)
}

// GetSession handles GET /api/v1/qwami/session
func (h *QwamiHandler) GetSession(c *gin.Context) {
	if h.session == nil {
		SendServiceUnavailable(c, "No operator wallet deployed")
		return
	}

	session := h.session.Session()
	SendSuccess(c, gin.H{
		"connected": session.Connected,
		"address":   addressOrEmpty(session.Address),
		"can_sign":  session.CanSign,
	})
}

// Connect handles POST /api/v1/qwami/session
func (h *QwamiHandler) Connect(c *gin.Context) {
	if h.session == nil {
		SendServiceUnavailable(c, "No operator wallet deployed")
		return
	}

	session, err := h.session.Connect(c.Request.Context())
	if err != nil {
		SendDomainError(c, err)
		return
	}
	SendSuccess(c, gin.H{
		"connected": session.Connected,
		"address":   addressOrEmpty(session.Address),
		"can_sign":  session.CanSign,
	})
}

// Disconnect handles DELETE /api/v1/qwami/session
func (h *QwamiHandler) Disconnect(c *gin.Context) {
	if h.session == nil {
		SendServiceUnavailable(c, "No operator wallet deployed")
		return
	}

	h.session.Disconnect(c.Request.Context())
	SendSuccess(c, entities.SuccessResponse{Success: true, Message: "Wallet disconnected"})
}

func addressOrEmpty(address *solana.PublicKey) string {
	if address == nil {
		return ""
	}
	return address.String()
}

func baseUnitsToTokens(units uint64, decimals int) float64 {
	return decimal.NewFromUint64(units).Shift(int32(-decimals)).InexactFloat64()
}
