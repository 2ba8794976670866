package httpapi

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/quotefeed/quoteproxy/pkg/fetch"
	"github.com/quotefeed/quoteproxy/pkg/service"
)

// statusClientClosedRequest is the nginx-convention status for requests the
// client abandoned.
const statusClientClosedRequest = 499

// Pinger checks upstream reachability for the health endpoint.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Handler holds the services behind the REST surface.
type Handler struct {
	quotes   *service.Quotes
	news     *service.News
	info     *service.Info
	history  *service.History
	earnings *service.Earnings
	splits   *service.Splits
	snapshot *service.Snapshot
	pinger   Pinger
}

// NewHandler creates the handler over the given services.
func NewHandler(
	quotes *service.Quotes,
	news *service.News,
	info *service.Info,
	history *service.History,
	earnings *service.Earnings,
	splits *service.Splits,
	snapshot *service.Snapshot,
	pinger Pinger,
) *Handler {
	return &Handler{
		quotes:   quotes,
		news:     news,
		info:     info,
		history:  history,
		earnings: earnings,
		splits:   splits,
		snapshot: snapshot,
		pinger:   pinger,
	}
}

// writeError maps a classified error to its HTTP status and a {"detail": …}
// body.
func writeError(c *gin.Context, err error) {
	status, detail := statusFor(err)
	c.AbortWithStatusJSON(status, gin.H{"detail": detail})
}

// statusFor resolves the response status and message for an error.
func statusFor(err error) (int, string) {
	var fe *fetch.Error
	if errors.As(err, &fe) {
		switch fe.Class {
		case fetch.ClassPassThrough:
			return fe.Status, fe.Message
		case fetch.ClassTransient:
			return http.StatusServiceUnavailable, "Upstream temporarily unavailable"
		case fetch.ClassCancelled:
			return statusClientClosedRequest, "Request cancelled"
		}
		return http.StatusInternalServerError, "Unexpected error"
	}

	switch fetch.ClassOf(err) {
	case fetch.ClassCancelled:
		return statusClientClosedRequest, "Request cancelled"
	case fetch.ClassTransient:
		return http.StatusServiceUnavailable, "Upstream temporarily unavailable"
	default:
		return http.StatusInternalServerError, "Unexpected error"
	}
}

// getQuote handles GET /quote/:symbol.
func (h *Handler) getQuote(c *gin.Context) {
	quote, err := h.quotes.Get(c.Request.Context(), c.Param("symbol"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, quote)
}

// getBulkQuotes handles GET /quote?symbols=a,b,c. Each symbol resolves
// independently; failed symbols appear as {"error", "status_code"} entries.
func (h *Handler) getBulkQuotes(c *gin.Context) {
	symbols, err := parseSymbolList(c.Query("symbols"))
	if err != nil {
		writeError(c, err)
		return
	}

	results, err := h.quotes.GetBulk(c.Request.Context(), symbols)
	if err != nil {
		writeError(c, err)
		return
	}

	body := make(map[string]any, len(results))
	for symbol, result := range results {
		if result.Err != nil {
			status, detail := statusFor(result.Err)
			body[symbol] = gin.H{"error": detail, "status_code": status}
			continue
		}
		body[symbol] = result.Value
	}
	c.JSON(http.StatusOK, body)
}

// parseSymbolList normalizes and deduplicates a comma-separated symbol list,
// keeping first-seen order.
func parseSymbolList(raw string) ([]string, error) {
	parts := strings.Split(raw, ",")
	seen := make(map[string]struct{}, len(parts))
	symbols := make([]string, 0, len(parts))
	for _, part := range parts {
		if strings.TrimSpace(part) == "" {
			continue
		}
		symbol, err := service.NormalizeSymbol(part)
		if err != nil {
			return nil, err
		}
		if _, dup := seen[symbol]; dup {
			continue
		}
		seen[symbol] = struct{}{}
		symbols = append(symbols, symbol)
	}
	if len(symbols) == 0 {
		return nil, fetch.PassThrough(http.StatusBadRequest, "symbols query parameter is required")
	}
	return symbols, nil
}

// getNews handles GET /news/:symbol?count=&tab=.
func (h *Handler) getNews(c *gin.Context) {
	count := 0
	if raw := c.Query("count"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 {
			writeError(c, fetch.PassThrough(http.StatusBadRequest, "count must be a positive integer"))
			return
		}
		count = parsed
	}

	items, err := h.news.Get(c.Request.Context(), c.Param("symbol"), c.Query("tab"), count)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"news": items})
}

// getHistory handles GET /historical/:symbol?start=&end=.
func (h *Handler) getHistory(c *gin.Context) {
	history, err := h.history.Get(c.Request.Context(), c.Param("symbol"), c.Query("start"), c.Query("end"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, history)
}

// getEarnings handles GET /earnings/:symbol.
func (h *Handler) getEarnings(c *gin.Context) {
	rows, err := h.earnings.Get(c.Request.Context(), c.Param("symbol"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"symbol": strings.ToUpper(strings.TrimSpace(c.Param("symbol"))), "earnings": rows})
}

// getInfo handles GET /info/:symbol.
func (h *Handler) getInfo(c *gin.Context) {
	info, err := h.info.Get(c.Request.Context(), c.Param("symbol"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, info)
}

// getSplits handles GET /splits/:symbol.
func (h *Handler) getSplits(c *gin.Context) {
	rows, err := h.splits.Get(c.Request.Context(), c.Param("symbol"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"symbol": strings.ToUpper(strings.TrimSpace(c.Param("symbol"))), "splits": rows})
}

// getSnapshot handles GET /snapshot/:symbol.
func (h *Handler) getSnapshot(c *gin.Context) {
	result, err := h.snapshot.Get(c.Request.Context(), c.Param("symbol"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// health handles GET /health. The upstream check is best-effort and reported
// without failing the endpoint, so orchestrators only restart the proxy when
// the proxy itself is broken.
func (h *Handler) health(c *gin.Context) {
	body := gin.H{"status": "ok"}
	if h.pinger != nil {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
		defer cancel()
		if err := h.pinger.Ping(ctx); err != nil {
			log.Warn().Err(err).Msg("Health check: upstream unreachable")
			body["upstream"] = "unreachable"
		} else {
			body["upstream"] = "ok"
		}
	}
	c.JSON(http.StatusOK, body)
}
