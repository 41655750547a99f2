package entities

// ErrorResponse is the standard error envelope returned by the API.
type ErrorResponse struct {
	Code    string                 `json:"code"`
	Message string                 `json:"message"`
	Details map[string]interface{} `json:"details,omitempty"`
}

// SuccessResponse is the standard success envelope returned by the API.
type SuccessResponse struct {
	Success bool        `json:"success"`
	Message string      `json:"message,omitempty"`
	Data    interface{} `json:"data,omitempty"`
}

// BalanceResponse reports a wallet's reconciled balances in both raw base
// units and whole-token display form.
type BalanceResponse struct {
	Wallet       string  `json:"wallet"`
	TokenAccount string  `json:"token_account,omitempty"`
	Balance      float64 `json:"balance"`
	RawBalance   uint64  `json:"raw_balance"`
	NativeSOL    float64 `json:"native_sol"`
	RawNative    uint64  `json:"raw_native"`
	Decimals     int     `json:"decimals"`
	FetchedAt    string  `json:"fetched_at"`
}

// PurchaseRequest is the body of the purchase endpoint. Amount is in whole
// tokens; the treasury converts to base units using the configured decimals.
type PurchaseRequest struct {
	Wallet string  `json:"wallet" binding:"required,solana_address"`
	Amount float64 `json:"amount" binding:"required,gt=0"`
}

// BurnRequest is the body of the operator burn endpoint.
type BurnRequest struct {
	Amount   float64 `json:"amount" binding:"required,gt=0"`
	Resource string  `json:"resource" binding:"required"`
}

// ConversionQuote reports the resource yield for a given token spend.
type ConversionQuote struct {
	Resource    string  `json:"resource"`
	TokenAmount float64 `json:"token_amount"`
	Yield       float64 `json:"yield"`
	Rate        float64 `json:"rate"`
	PriceUSD    float64 `json:"price_usd"`
	PriceSOL    float64 `json:"price_sol"`
}
