package upstream

// The upstream reports the same figure under different field names depending
// on market state and endpoint version. Each field is extracted by a named
// strategy holding the candidate keys in priority order; the first key that
// yields a usable number wins.

// numField extracts one numeric field from a raw upstream payload.
type numField struct {
	name string
	keys []string
}

// pick returns the first resolvable value for the field, or false when none
// of the candidate keys is present.
func (f numField) pick(payload map[string]any) (float64, bool) {
	for _, key := range f.keys {
		if v, ok := toFloat(payload[key]); ok {
			return v, true
		}
	}
	return 0, false
}

// Quote field strategies in the order the upstream prefers them.
var (
	priceField     = numField{"current_price", []string{"regularMarketPrice", "currentPrice"}}
	prevCloseField = numField{"previous_close", []string{"regularMarketPreviousClose", "previousClose"}}
	openField      = numField{"open", []string{"regularMarketOpen", "open"}}
	highField      = numField{"high", []string{"dayHigh", "regularMarketDayHigh"}}
	lowField       = numField{"low", []string{"dayLow", "regularMarketDayLow"}}
	volumeField    = numField{"volume", []string{"volume", "regularMarketVolume"}}
)

// mapQuote builds a Quote from a raw info payload.
func mapQuote(symbol string, payload map[string]any) *Quote {
	q := &Quote{Symbol: symbol}
	q.CurrentPrice = floatPtr(payload, priceField)
	q.PreviousClose = floatPtr(payload, prevCloseField)
	q.Open = floatPtr(payload, openField)
	q.High = floatPtr(payload, highField)
	q.Low = floatPtr(payload, lowField)
	if v, ok := volumeField.pick(payload); ok {
		n := int64(v)
		q.Volume = &n
	}
	return q
}

// mapInfo builds an Info from a raw info payload.
func mapInfo(symbol string, payload map[string]any) *Info {
	info := &Info{
		Symbol:      symbol,
		ShortName:   str(payload, "shortName"),
		LongName:    str(payload, "longName"),
		Exchange:    str(payload, "exchange"),
		Sector:      str(payload, "sector"),
		Industry:    str(payload, "industry"),
		Country:     str(payload, "country"),
		Website:     str(payload, "website"),
		Description: str(payload, "longBusinessSummary"),
		Currency:    str(payload, "currency"),
	}
	if v, ok := toFloat(payload["marketCap"]); ok {
		n := int64(v)
		info.MarketCap = &n
	}
	if v, ok := toFloat(payload["sharesOutstanding"]); ok {
		n := int64(v)
		info.SharesOutstanding = &n
	}
	if v, ok := toFloat(payload["dividendYield"]); ok {
		info.DividendYield = &v
	}
	if v, ok := toFloat(payload["trailingPE"]); ok {
		info.TrailingPE = &v
	}
	if v, ok := toFloat(payload["beta"]); ok {
		info.Beta = &v
	}
	return info
}

func floatPtr(payload map[string]any, f numField) *float64 {
	if v, ok := f.pick(payload); ok {
		return &v
	}
	return nil
}

// toFloat accepts the numeric shapes a decoded JSON payload can carry.
func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	default:
		return 0, false
	}
}

func str(payload map[string]any, key string) string {
	if s, ok := payload[key].(string); ok {
		return s
	}
	return ""
}
