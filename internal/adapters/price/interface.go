package price

import "context"

// Quote is a current BTC/USD observation
type Quote struct {
	USD       float64
	Change24h float64
}

// Provider fetches the current Bitcoin price
type Provider interface {
	// GetBTCPrice returns current price in USD with 24h change
	GetBTCPrice(ctx context.Context) (*Quote, error)

	// GetName returns provider name
	GetName() string
}
