package entities

import "time"

// TokenStats is the public snapshot of the QWAMI token deployment exposed on
// the stats endpoint and cached between refreshes. On-chain fields are nil
// when the mint is not deployed or the supply fetch fails; that is a
// graceful degradation, not an error.
type TokenStats struct {
	Symbol            string    `json:"symbol"`
	Name              string    `json:"name"`
	Mint              string    `json:"mint,omitempty"`
	Network           string    `json:"network"`
	Decimals          int       `json:"decimals"`
	MaxSupply         uint64    `json:"max_supply"`
	CirculatingSupply *uint64   `json:"circulating_supply"`
	TotalBurned       *uint64   `json:"total_burned"`
	BasePriceUSD      float64   `json:"base_price_usd"`
	SolUSDPrice       float64   `json:"sol_usd_price"`
	StakingEnabled    bool      `json:"staking_enabled"`
	DAOEnabled        bool      `json:"dao_enabled"`
	Simulated         bool      `json:"simulated"`
	UpdatedAt         time.Time `json:"updated_at"`
}
