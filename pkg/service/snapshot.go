package service

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/quotefeed/quoteproxy/pkg/upstream"
)

// SnapshotResult combines company metadata and the latest quote for one
// symbol, with convenience top-level fields for compact consumers.
type SnapshotResult struct {
	Symbol       string          `json:"symbol"`
	Info         *upstream.Info  `json:"info"`
	Quote        *upstream.Quote `json:"quote"`
	CurrentPrice *float64        `json:"current_price,omitempty"`
	Currency     string          `json:"currency,omitempty"`
}

// Snapshot composes the info and quote services. Info comes from its cache,
// the quote is always fetched fresh so the price is current. Either failure
// fails the snapshot with that failure's classification.
type Snapshot struct {
	info   *Info
	quotes *Quotes
}

// NewSnapshot creates the snapshot service on top of the info and quote
// services.
func NewSnapshot(info *Info, quotes *Quotes) *Snapshot {
	return &Snapshot{info: info, quotes: quotes}
}

// Get fetches info and a fresh quote concurrently and merges them.
func (s *Snapshot) Get(ctx context.Context, symbol string) (*SnapshotResult, error) {
	symbol, err := NormalizeSymbol(symbol)
	if err != nil {
		return nil, err
	}

	var (
		info  *upstream.Info
		quote *upstream.Quote
	)

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		info, err = s.info.Get(ctx, symbol)
		return err
	})
	g.Go(func() error {
		var err error
		quote, err = s.quotes.Fresh(ctx, symbol)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	return &SnapshotResult{
		Symbol:       symbol,
		Info:         info,
		Quote:        quote,
		CurrentPrice: quote.CurrentPrice,
		Currency:     info.Currency,
	}, nil
}
