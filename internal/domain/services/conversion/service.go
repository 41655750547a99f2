package conversion

import (
	"github.com/shopspring/decimal"

	"github.com/qwami-service/qwami_service/internal/domain/entities"
)

// Rate maps tokens to a resource. Discrete resources are floored to whole
// units; continuous resources keep fractional yield.
type Rate struct {
	Rate     decimal.Decimal
	Discrete bool
}

// Config holds the pricing parameters for native-currency conversion.
type Config struct {
	BasePriceUSD float64 // USD price per whole token
	SolUSDPrice  float64 // USD price per SOL
}

// Service is the pure token-to-resource conversion engine. All methods are
// arithmetic only; the sole failure mode is invalid input.
type Service struct {
	rates        map[entities.ResourceKind]Rate
	basePriceUSD decimal.Decimal
	solUSDPrice  decimal.Decimal
}

// NewService creates a conversion engine with the fixed resource rate table.
func NewService(cfg Config) *Service {
	if cfg.BasePriceUSD <= 0 {
		cfg.BasePriceUSD = 0.01
	}
	if cfg.SolUSDPrice <= 0 {
		cfg.SolUSDPrice = 150
	}
	return &Service{
		rates: map[entities.ResourceKind]Rate{
			entities.ResourceEnergy:        {Rate: decimal.NewFromInt(100)},
			entities.ResourceConnections:   {Rate: decimal.RequireFromString("0.004"), Discrete: true},
			entities.ResourceMetamorphosis: {Rate: decimal.RequireFromString("0.001"), Discrete: true},
		},
		basePriceUSD: decimal.NewFromFloat(cfg.BasePriceUSD),
		solUSDPrice:  decimal.NewFromFloat(cfg.SolUSDPrice),
	}
}

// RateFor returns the conversion rate for a resource kind.
func (s *Service) RateFor(resource entities.ResourceKind) (Rate, bool) {
	rate, ok := s.rates[resource]
	return rate, ok
}

// TokenToResource converts a token amount into resource yield. Discrete
// resources floor to whole units.
func (s *Service) TokenToResource(resource entities.ResourceKind, tokenAmount float64) (float64, error) {
	rate, err := s.rateFor(resource)
	if err != nil {
		return 0, err
	}
	if tokenAmount < 0 {
		return 0, entities.NewError(entities.ErrKindInvalidAmount, "token amount cannot be negative")
	}

	yield := decimal.NewFromFloat(tokenAmount).Mul(rate.Rate)
	if rate.Discrete {
		yield = yield.Floor()
	}
	return yield.InexactFloat64(), nil
}

// ResourceToToken converts a desired resource amount back into the token
// spend that produces it.
func (s *Service) ResourceToToken(resource entities.ResourceKind, resourceAmount float64) (float64, error) {
	rate, err := s.rateFor(resource)
	if err != nil {
		return 0, err
	}
	if resourceAmount < 0 {
		return 0, entities.NewError(entities.ErrKindInvalidAmount, "resource amount cannot be negative")
	}

	tokens := decimal.NewFromFloat(resourceAmount).Div(rate.Rate)
	return tokens.InexactFloat64(), nil
}

// TokensForNative converts a native SOL amount into the token amount it buys
// at the configured prices.
func (s *Service) TokensForNative(nativeSOL float64) (float64, error) {
	if nativeSOL < 0 {
		return 0, entities.NewError(entities.ErrKindInvalidAmount, "native amount cannot be negative")
	}
	tokens := decimal.NewFromFloat(nativeSOL).Mul(s.solUSDPrice).Div(s.basePriceUSD)
	return tokens.InexactFloat64(), nil
}

// NativeForTokens converts a token amount into its native SOL price.
func (s *Service) NativeForTokens(tokenAmount float64) (float64, error) {
	if tokenAmount < 0 {
		return 0, entities.NewError(entities.ErrKindInvalidAmount, "token amount cannot be negative")
	}
	native := decimal.NewFromFloat(tokenAmount).Mul(s.basePriceUSD).Div(s.solUSDPrice)
	return native.InexactFloat64(), nil
}

// Quote builds the full conversion quote for a token spend against one
// resource, including USD and SOL pricing.
func (s *Service) Quote(resource entities.ResourceKind, tokenAmount float64) (*entities.ConversionQuote, error) {
	rate, err := s.rateFor(resource)
	if err != nil {
		return nil, err
	}
	yield, err := s.TokenToResource(resource, tokenAmount)
	if err != nil {
		return nil, err
	}
	priceSOL, err := s.NativeForTokens(tokenAmount)
	if err != nil {
		return nil, err
	}

	priceUSD := decimal.NewFromFloat(tokenAmount).Mul(s.basePriceUSD)
	return &entities.ConversionQuote{
		Resource:    string(resource),
		TokenAmount: tokenAmount,
		Yield:       yield,
		Rate:        rate.Rate.InexactFloat64(),
		PriceUSD:    priceUSD.InexactFloat64(),
		PriceSOL:    priceSOL,
	}, nil
}

func (s *Service) rateFor(resource entities.ResourceKind) (Rate, error) {
	rate, ok := s.rates[resource]
	if !ok {
		return Rate{}, entities.NewError(entities.ErrKindInvalidAmount, "unknown resource kind: "+string(resource))
	}
	return rate, nil
}
