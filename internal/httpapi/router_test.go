package httpapi

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quotefeed/quoteproxy/internal/testutil"
	"github.com/quotefeed/quoteproxy/pkg/fetch"
	"github.com/quotefeed/quoteproxy/pkg/service"
	"github.com/quotefeed/quoteproxy/pkg/upstream"
)

func newTestRouter(t *testing.T, mock *testutil.MockUpstream, cfg RouterConfig) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	client, err := upstream.New(upstream.DefaultConfig(mock.URL()))
	require.NoError(t, err)

	retrier := fetch.NewRetrier(fetch.Config{
		MaxRetries:  1,
		BackoffBase: time.Millisecond,
		BackoffMax:  2 * time.Millisecond,
		Timeout:     5 * time.Second,
	})

	quotes := service.NewQuotes(client, retrier, 16, time.Minute, 4)
	news := service.NewNews(client, retrier, 16, time.Minute, 100)
	info := service.NewInfo(client, retrier, 16, 5*time.Minute)
	history := service.NewHistory(client, retrier, 16, time.Hour)
	earnings := service.NewEarnings(client, retrier, 16, time.Hour)
	splits := service.NewSplits(client, retrier, 16, time.Hour)
	snapshot := service.NewSnapshot(info, quotes)

	handler := NewHandler(quotes, news, info, history, earnings, splits, snapshot, nil)
	return NewRouter(handler, cfg)
}

func doRequest(router *gin.Engine, method, path string, headers map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body
}

func TestRouter_GetQuote(t *testing.T) {
	mock := testutil.NewMockUpstream()
	defer mock.Close()
	mock.SetInfoResponse("AAPL", testutil.NewQuoteResponse(189.5, 187.2))

	router := newTestRouter(t, mock, RouterConfig{})

	w := doRequest(router, http.MethodGet, "/quote/aapl", map[string]string{"Accept-Encoding": "identity"})
	assert.Equal(t, http.StatusOK, w.Code)

	body := decodeBody(t, w)
	assert.Equal(t, "AAPL", body["symbol"])
	assert.Equal(t, 189.5, body["current_price"])
}

func TestRouter_GetQuote_NotFound(t *testing.T) {
	mock := testutil.NewMockUpstream()
	defer mock.Close()
	mock.SetInfoResponse("NOPE", testutil.NewNotFoundResponse())

	router := newTestRouter(t, mock, RouterConfig{})

	w := doRequest(router, http.MethodGet, "/quote/NOPE", map[string]string{"Accept-Encoding": "identity"})
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Contains(t, decodeBody(t, w)["detail"], "NOPE")
}

func TestRouter_GetQuote_UpstreamDownIs503(t *testing.T) {
	mock := testutil.NewMockUpstream()
	mock.Close()

	router := newTestRouter(t, mock, RouterConfig{})

	w := doRequest(router, http.MethodGet, "/quote/AAPL", map[string]string{"Accept-Encoding": "identity"})
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Equal(t, "Upstream temporarily unavailable", decodeBody(t, w)["detail"])
}

func TestRouter_GetQuote_InvalidSymbol(t *testing.T) {
	mock := testutil.NewMockUpstream()
	defer mock.Close()

	router := newTestRouter(t, mock, RouterConfig{})

	w := doRequest(router, http.MethodGet, "/quote/TOOLONGSYMBOLNAME12345", map[string]string{"Accept-Encoding": "identity"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestRouter_BulkQuotes(t *testing.T) {
	mock := testutil.NewMockUpstream()
	defer mock.Close()
	mock.SetInfoResponse("AAPL", testutil.NewQuoteResponse(189.5, 187.2))
	mock.SetInfoResponse("NOPE", testutil.NewNotFoundResponse())

	router := newTestRouter(t, mock, RouterConfig{})

	w := doRequest(router, http.MethodGet, "/quote?symbols=aapl,NOPE,aapl", map[string]string{"Accept-Encoding": "identity"})
	assert.Equal(t, http.StatusOK, w.Code)

	body := decodeBody(t, w)
	require.Len(t, body, 2, "duplicates must collapse")

	good, ok := body["AAPL"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, 189.5, good["current_price"])

	bad, ok := body["NOPE"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, float64(http.StatusNotFound), bad["status_code"])
	assert.NotEmpty(t, bad["error"])
}

func TestRouter_BulkQuotes_MissingSymbols(t *testing.T) {
	mock := testutil.NewMockUpstream()
	defer mock.Close()

	router := newTestRouter(t, mock, RouterConfig{})

	w := doRequest(router, http.MethodGet, "/quote?symbols=", map[string]string{"Accept-Encoding": "identity"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = doRequest(router, http.MethodGet, "/quote", map[string]string{"Accept-Encoding": "identity"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestRouter_GetNews(t *testing.T) {
	mock := testutil.NewMockUpstream()
	defer mock.Close()
	mock.SetNewsResponse("AAPL", testutil.MockResponse{
		StatusCode: http.StatusOK,
		Body:       `[{"id": "n1", "title": "First"}, {"id": "n2", "title": "Second"}]`,
	})

	router := newTestRouter(t, mock, RouterConfig{})

	w := doRequest(router, http.MethodGet, "/news/AAPL?count=2&tab=news", map[string]string{"Accept-Encoding": "identity"})
	assert.Equal(t, http.StatusOK, w.Code)

	body := decodeBody(t, w)
	news, ok := body["news"].([]any)
	require.True(t, ok)
	assert.Len(t, news, 2)
}

func TestRouter_GetNews_BadParams(t *testing.T) {
	mock := testutil.NewMockUpstream()
	defer mock.Close()

	router := newTestRouter(t, mock, RouterConfig{})

	w := doRequest(router, http.MethodGet, "/news/AAPL?count=zero", map[string]string{"Accept-Encoding": "identity"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = doRequest(router, http.MethodGet, "/news/AAPL?tab=opinion", map[string]string{"Accept-Encoding": "identity"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestRouter_GetSnapshot(t *testing.T) {
	mock := testutil.NewMockUpstream()
	defer mock.Close()
	mock.SetInfoResponse("AAPL", testutil.NewQuoteResponse(189.5, 187.2))

	router := newTestRouter(t, mock, RouterConfig{})

	w := doRequest(router, http.MethodGet, "/snapshot/AAPL", map[string]string{"Accept-Encoding": "identity"})
	assert.Equal(t, http.StatusOK, w.Code)

	body := decodeBody(t, w)
	assert.Equal(t, "AAPL", body["symbol"])
	assert.NotNil(t, body["info"])
	assert.NotNil(t, body["quote"])
	assert.Equal(t, "USD", body["currency"])
}

func TestRouter_Health(t *testing.T) {
	mock := testutil.NewMockUpstream()
	defer mock.Close()

	router := newTestRouter(t, mock, RouterConfig{})

	w := doRequest(router, http.MethodGet, "/health", map[string]string{"Accept-Encoding": "identity"})
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "ok", decodeBody(t, w)["status"])
}

func TestRouter_Metrics(t *testing.T) {
	mock := testutil.NewMockUpstream()
	defer mock.Close()

	router := newTestRouter(t, mock, RouterConfig{})

	w := doRequest(router, http.MethodGet, "/metrics", map[string]string{"Accept-Encoding": "identity"})
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "go_goroutines")
}

func TestRouter_RequestIDHeader(t *testing.T) {
	mock := testutil.NewMockUpstream()
	defer mock.Close()

	router := newTestRouter(t, mock, RouterConfig{})

	w := doRequest(router, http.MethodGet, "/health", nil)
	assert.NotEmpty(t, w.Header().Get(RequestIDHeader))

	w = doRequest(router, http.MethodGet, "/health", map[string]string{RequestIDHeader: "fixed-id"})
	assert.Equal(t, "fixed-id", w.Header().Get(RequestIDHeader))
}

func TestRouter_APIKeyAuth(t *testing.T) {
	mock := testutil.NewMockUpstream()
	defer mock.Close()
	mock.SetInfoResponse("AAPL", testutil.NewQuoteResponse(189.5, 187.2))

	router := newTestRouter(t, mock, RouterConfig{APIKey: "secret"})

	w := doRequest(router, http.MethodGet, "/quote/AAPL", map[string]string{"Accept-Encoding": "identity"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = doRequest(router, http.MethodGet, "/quote/AAPL", map[string]string{
		"Accept-Encoding": "identity",
		"X-API-Key":       "wrong",
	})
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = doRequest(router, http.MethodGet, "/quote/AAPL", map[string]string{
		"Accept-Encoding": "identity",
		"X-API-Key":       "secret",
	})
	assert.Equal(t, http.StatusOK, w.Code)

	// Probes and scrapers stay unauthenticated.
	w = doRequest(router, http.MethodGet, "/health", map[string]string{"Accept-Encoding": "identity"})
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestRouter_CORSEnabled(t *testing.T) {
	mock := testutil.NewMockUpstream()
	defer mock.Close()

	router := newTestRouter(t, mock, RouterConfig{
		CORSEnabled:        true,
		CORSAllowedOrigins: []string{"https://example.com"},
	})

	w := doRequest(router, http.MethodGet, "/health", map[string]string{
		"Accept-Encoding": "identity",
		"Origin":          "https://example.com",
	})
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "https://example.com", w.Header().Get("Access-Control-Allow-Origin"))
}
