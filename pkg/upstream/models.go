package upstream

import "time"

// Quote is the latest market data for a symbol.
type Quote struct {
	Symbol        string   `json:"symbol"`
	CurrentPrice  *float64 `json:"current_price,omitempty"`
	PreviousClose *float64 `json:"previous_close,omitempty"`
	Open          *float64 `json:"open,omitempty"`
	High          *float64 `json:"high,omitempty"`
	Low           *float64 `json:"low,omitempty"`
	Volume        *int64   `json:"volume,omitempty"`
}

// Info is relatively stable company metadata.
type Info struct {
	Symbol            string   `json:"symbol"`
	ShortName         string   `json:"short_name,omitempty"`
	LongName          string   `json:"long_name,omitempty"`
	Exchange          string   `json:"exchange,omitempty"`
	Sector            string   `json:"sector,omitempty"`
	Industry          string   `json:"industry,omitempty"`
	Country           string   `json:"country,omitempty"`
	Website           string   `json:"website,omitempty"`
	Description       string   `json:"description,omitempty"`
	Currency          string   `json:"currency,omitempty"`
	MarketCap         *int64   `json:"market_cap,omitempty"`
	SharesOutstanding *int64   `json:"shares_outstanding,omitempty"`
	DividendYield     *float64 `json:"dividend_yield,omitempty"`
	TrailingPE        *float64 `json:"trailing_pe,omitempty"`
	Beta              *float64 `json:"beta,omitempty"`
}

// NewsItem is a single news article or press release. Items are immutable
// once fetched and are shared across cache index entries by ID.
type NewsItem struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Publisher   string    `json:"publisher,omitempty"`
	Link        string    `json:"link,omitempty"`
	Summary     string    `json:"summary,omitempty"`
	Category    string    `json:"category,omitempty"`
	PublishedAt time.Time `json:"published_at"`
}

// News categories known to the upstream. "all" is a virtual view merged
// from the two concrete categories by the caching layer.
const (
	CategoryNews          = "news"
	CategoryPressReleases = "press-releases"
	CategoryAll           = "all"
)

// Candle is one day of historical price data.
type Candle struct {
	Date   string  `json:"date"`
	Open   float64 `json:"open"`
	High   float64 `json:"high"`
	Low    float64 `json:"low"`
	Close  float64 `json:"close"`
	Volume *int64  `json:"volume,omitempty"`
}

// History is the historical price series for a symbol.
type History struct {
	Symbol string   `json:"symbol"`
	Prices []Candle `json:"prices"`
}

// EarningsRow is a single earnings report.
type EarningsRow struct {
	EarningsDate    string   `json:"earnings_date"`
	ReportedEPS     *float64 `json:"reported_eps,omitempty"`
	EstimatedEPS    *float64 `json:"estimated_eps,omitempty"`
	Surprise        *float64 `json:"surprise,omitempty"`
	SurprisePercent *float64 `json:"surprise_percent,omitempty"`
}

// Split is a single stock split event.
type Split struct {
	Date  string  `json:"date"`
	Ratio float64 `json:"ratio"`
}
