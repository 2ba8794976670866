package service

import (
	"context"
	"net/http"
	"strconv"
	"testing"
	"time"

	"github.com/quotefeed/quoteproxy/internal/testutil"
	"github.com/quotefeed/quoteproxy/pkg/fetch"
	"github.com/quotefeed/quoteproxy/pkg/upstream"
)

func newsBody(prefix string, n int) string {
	body := `[`
	for i := 0; i < n; i++ {
		if i > 0 {
			body += ","
		}
		id := prefix + strconv.Itoa(i)
		body += `{"id": "` + id + `", "title": "Article ` + id + `"}`
	}
	return body + `]`
}

func TestNormalizeTab(t *testing.T) {
	tests := []struct {
		in    string
		want  string
		valid bool
	}{
		{"", upstream.CategoryNews, true},
		{"news", "news", true},
		{"press-releases", "press-releases", true},
		{"all", "all", true},
		{"opinion", "", false},
		{"NEWS", "", false},
	}

	for _, tt := range tests {
		got, err := NormalizeTab(tt.in)
		if tt.valid {
			if err != nil || got != tt.want {
				t.Errorf("NormalizeTab(%q) = (%q, %v), want (%q, nil)", tt.in, got, err, tt.want)
			}
			continue
		}
		if err == nil {
			t.Errorf("NormalizeTab(%q) should fail", tt.in)
		} else if fetch.StatusOf(err) != http.StatusBadRequest {
			t.Errorf("NormalizeTab(%q) status = %d, want 400", tt.in, fetch.StatusOf(err))
		}
	}
}

func TestNews_GetCachesIndex(t *testing.T) {
	mock := testutil.NewMockUpstream()
	defer mock.Close()
	mock.SetNewsResponse("AAPL", testutil.MockResponse{
		StatusCode: http.StatusOK,
		Body:       newsBody("n", 5),
	})

	news := NewNews(newUpstreamClient(t, mock), newFastRetrier(), 16, time.Minute, 100)

	items, err := news.Get(context.Background(), "AAPL", "news", 5)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if len(items) != 5 {
		t.Fatalf("len(items) = %d, want 5", len(items))
	}

	// Same count from the cache, and a smaller count is still satisfiable.
	if _, err := news.Get(context.Background(), "AAPL", "news", 5); err != nil {
		t.Fatalf("second Get() error = %v", err)
	}
	if _, err := news.Get(context.Background(), "AAPL", "news", 3); err != nil {
		t.Fatalf("smaller Get() error = %v", err)
	}
	if n := mock.GetPathCount("/v1/news/AAPL"); n != 1 {
		t.Errorf("upstream calls = %d, want 1", n)
	}
}

func TestNews_LargerCountRefetches(t *testing.T) {
	mock := testutil.NewMockUpstream()
	defer mock.Close()
	// Serve exactly the requested number of articles, like the real upstream.
	mock.SetHandler("/v1/news/AAPL", func(w http.ResponseWriter, r *http.Request) {
		n, _ := strconv.Atoi(r.URL.Query().Get("count"))
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(newsBody("n", n)))
	})

	news := NewNews(newUpstreamClient(t, mock), newFastRetrier(), 16, time.Minute, 100)

	if _, err := news.Get(context.Background(), "AAPL", "news", 3); err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	items, err := news.Get(context.Background(), "AAPL", "news", 8)
	if err != nil {
		t.Fatalf("larger Get() error = %v", err)
	}
	if len(items) != 8 {
		t.Errorf("len(items) = %d, want 8", len(items))
	}
	if n := mock.GetPathCount("/v1/news/AAPL"); n != 2 {
		t.Errorf("upstream calls = %d, want 2 (count grew past cached index)", n)
	}
}

func TestNews_CountClampedToMaxItems(t *testing.T) {
	mock := testutil.NewMockUpstream()
	defer mock.Close()
	mock.SetNewsResponse("AAPL", testutil.MockResponse{
		StatusCode: http.StatusOK,
		Body:       newsBody("n", 20),
	})

	news := NewNews(newUpstreamClient(t, mock), newFastRetrier(), 16, time.Minute, 20)

	items, err := news.Get(context.Background(), "AAPL", "news", 500)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if len(items) != 20 {
		t.Errorf("len(items) = %d, want clamp to 20", len(items))
	}
	if got := mock.GetLastQuery()["count"]; got != "20" {
		t.Errorf("count query = %q, want clamped 20", got)
	}
}

func TestNews_DefaultCount(t *testing.T) {
	mock := testutil.NewMockUpstream()
	defer mock.Close()
	mock.SetNewsResponse("AAPL", testutil.MockResponse{
		StatusCode: http.StatusOK,
		Body:       newsBody("n", 10),
	})

	news := NewNews(newUpstreamClient(t, mock), newFastRetrier(), 16, time.Minute, 100)

	items, err := news.Get(context.Background(), "AAPL", "", 0)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if len(items) != defaultNewsCount {
		t.Errorf("len(items) = %d, want %d", len(items), defaultNewsCount)
	}
}

func TestNews_VirtualAllIsNeverCached(t *testing.T) {
	mock := testutil.NewMockUpstream()
	defer mock.Close()
	mock.SetNewsResponse("AAPL", testutil.MockResponse{
		StatusCode: http.StatusOK,
		Body:       newsBody("m", 4),
	})

	news := NewNews(newUpstreamClient(t, mock), newFastRetrier(), 16, time.Minute, 100)

	// The merged feed has no concrete index of its own, so with both
	// concrete categories cold every read goes upstream.
	if _, err := news.Get(context.Background(), "AAPL", "all", 4); err != nil {
		t.Fatalf("Get(all) error = %v", err)
	}
	if _, err := news.Get(context.Background(), "AAPL", "all", 4); err != nil {
		t.Fatalf("second Get(all) error = %v", err)
	}
	if n := mock.GetPathCount("/v1/news/AAPL"); n != 2 {
		t.Errorf("upstream calls = %d, want 2 (virtual category is read-only)", n)
	}
}

func TestNews_VirtualAllServedFromConcreteIndexes(t *testing.T) {
	mock := testutil.NewMockUpstream()
	defer mock.Close()
	mock.SetNewsResponse("AAPL", testutil.MockResponse{
		StatusCode: http.StatusOK,
		Body:       newsBody("c", 4),
	})

	news := NewNews(newUpstreamClient(t, mock), newFastRetrier(), 16, time.Minute, 100)

	// Warm both concrete categories, then the merged view resolves without
	// touching the upstream.
	if _, err := news.Get(context.Background(), "AAPL", "news", 4); err != nil {
		t.Fatalf("warm news error = %v", err)
	}
	if _, err := news.Get(context.Background(), "AAPL", "press-releases", 4); err != nil {
		t.Fatalf("warm press-releases error = %v", err)
	}
	before := mock.GetPathCount("/v1/news/AAPL")

	items, err := news.Get(context.Background(), "AAPL", "all", 8)
	if err != nil {
		t.Fatalf("Get(all) error = %v", err)
	}
	if len(items) != 8 {
		t.Errorf("len(items) = %d, want 8 merged", len(items))
	}
	if after := mock.GetPathCount("/v1/news/AAPL"); after != before {
		t.Errorf("upstream calls grew from %d to %d, want merged view served from cache", before, after)
	}
}

func TestNews_UpstreamFailurePropagates(t *testing.T) {
	mock := testutil.NewMockUpstream()
	defer mock.Close()
	mock.SetNewsResponse("AAPL", testutil.NewServerErrorResponse())

	news := NewNews(newUpstreamClient(t, mock), newFastRetrier(), 16, time.Minute, 100)

	_, err := news.Get(context.Background(), "AAPL", "news", 5)
	if fetch.ClassOf(err) != fetch.ClassTransient {
		t.Errorf("ClassOf = %q, want transient", fetch.ClassOf(err))
	}
}
