package collector

import (
	"context"

	"SignalEngine/internal/model"
)

// Fetcher defines the interface for fetching daily market data.
type Fetcher interface {
	FetchDailyBars(ctx context.Context, symbol string, days int) ([]model.OHLCV, error)
	Name() string
}
