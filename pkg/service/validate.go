package service

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/quotefeed/quoteproxy/pkg/fetch"
)

// maxSymbolLen bounds ticker symbols after normalization.
const maxSymbolLen = 20

// NormalizeSymbol trims and uppercases a raw ticker symbol and validates it
// against the upstream's symbol grammar. Invalid symbols produce a
// pass-through error carrying status 400.
func NormalizeSymbol(raw string) (string, error) {
	symbol := strings.ToUpper(strings.TrimSpace(raw))
	if symbol == "" {
		return "", fetch.PassThrough(http.StatusBadRequest, "symbol is required")
	}
	if len(symbol) > maxSymbolLen {
		return "", fetch.PassThrough(http.StatusBadRequest, fmt.Sprintf("symbol %q exceeds %d characters", symbol, maxSymbolLen))
	}
	for _, c := range symbol {
		if !validSymbolChar(c) {
			return "", fetch.PassThrough(http.StatusBadRequest, fmt.Sprintf("symbol %q contains invalid characters", symbol))
		}
	}
	return symbol, nil
}

// validSymbolChar reports whether c may appear in a normalized symbol.
// Dots, dashes, carets, and equals signs cover share classes, index symbols,
// and futures notation.
func validSymbolChar(c rune) bool {
	switch {
	case c >= 'A' && c <= 'Z':
		return true
	case c >= '0' && c <= '9':
		return true
	case c == '.' || c == '-' || c == '^' || c == '=':
		return true
	default:
		return false
	}
}

// dateLayout is the wire format for historical range bounds.
const dateLayout = "2006-01-02"

// ValidateDate checks an optional ISO date query parameter. Empty is allowed.
func ValidateDate(name, value string) error {
	if value == "" {
		return nil
	}
	if _, err := time.Parse(dateLayout, value); err != nil {
		return fetch.PassThrough(http.StatusBadRequest, fmt.Sprintf("%s must be an ISO date (YYYY-MM-DD)", name))
	}
	return nil
}
