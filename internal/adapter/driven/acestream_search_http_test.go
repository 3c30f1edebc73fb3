package driven

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newSearchAdapter(url string, cfg SearchConfig) *AceStreamSearchHTTPAdapter {
	cfg.URL = url
	if cfg.RetryDelay == 0 {
		cfg.RetryDelay = time.Millisecond
	}
	return NewAceStreamSearchHTTPAdapter(cfg, nil, discardLogger())
}

func TestNewAceStreamSearchHTTPAdapter(t *testing.T) {
	a := NewAceStreamSearchHTTPAdapter(SearchConfig{URL: "http://engine/search"}, nil, discardLogger())

	if a.cfg.PageSize != defaultPageSize {
		t.Errorf("expected page size %d, got %d", defaultPageSize, a.cfg.PageSize)
	}
	if a.cfg.MaxPages != defaultMaxPages {
		t.Errorf("expected max pages %d, got %d", defaultMaxPages, a.cfg.MaxPages)
	}
	if a.cfg.RetryAttempts != defaultRetryAttempts {
		t.Errorf("expected %d retry attempts, got %d", defaultRetryAttempts, a.cfg.RetryAttempts)
	}
	if a.client.Timeout != defaultSearchTimeout {
		t.Errorf("expected timeout %v, got %v", defaultSearchTimeout, a.client.Timeout)
	}
}

func TestAceStreamSearchHTTPAdapter_FetchAll(t *testing.T) {
	t.Run("walks pages until an empty page", func(t *testing.T) {
		pages := map[string]string{
			"1": `{"result":{"total":3,"results":[
				{"name":"Alpha","channel_id":101,
				 "icons":[{"type":1,"url":"http://logo/other"},{"type":0,"url":"http://logo/main"}],
				 "epg":[{"name":"News at 9"},{"name":"Later"}],
				 "items":[{"infohash":"h1","countries":["RU"],"categories":["Movies"]},
				          {"infohash":"","countries":["ru"]}]},
				{"name":"","items":[{"infohash":"h2","channel_id":"c2","countries":["ua"]}]}
			]}}`,
			"2": `{"result":{"total":3,"results":[{"name":"Gamma","items":[]}]}}`,
			"3": `{"result":{"total":3,"results":[]}}`,
		}

		var mu sync.Mutex
		var requests []string
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			page := r.URL.Query().Get("page")
			mu.Lock()
			requests = append(requests, page)
			mu.Unlock()
			if r.URL.Query().Get("page_size") != "2" {
				t.Errorf("expected page_size=2, got %q", r.URL.Query().Get("page_size"))
			}
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(pages[page]))
		}))
		defer server.Close()

		descriptors, err := newSearchAdapter(server.URL, SearchConfig{PageSize: 2}).FetchAll(context.Background())
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		mu.Lock()
		defer mu.Unlock()
		if fmt.Sprint(requests) != "[1 2 3]" {
			t.Errorf("expected pages [1 2 3], got %v", requests)
		}
		if len(descriptors) != 3 {
			t.Fatalf("expected 3 descriptors, got %d", len(descriptors))
		}

		alpha := descriptors[0]
		if alpha.Name() != "Alpha" {
			t.Errorf("expected name 'Alpha', got %q", alpha.Name())
		}
		if alpha.Logo() != "http://logo/main" {
			t.Errorf("expected type 0 logo, got %q", alpha.Logo())
		}
		if alpha.EPGTitle() != "News at 9" {
			t.Errorf("expected first EPG title, got %q", alpha.EPGTitle())
		}
		if len(alpha.Items()) != 1 {
			t.Fatalf("expected empty infohash to be dropped, got %d items", len(alpha.Items()))
		}
		item := alpha.Items()[0]
		if item.ChannelID() != "101" {
			t.Errorf("expected inherited numeric channel id '101', got %q", item.ChannelID())
		}
		if fmt.Sprint(item.Countries()) != "[ru]" || fmt.Sprint(item.Categories()) != "[movies]" {
			t.Errorf("expected lower-cased tags, got %v %v", item.Countries(), item.Categories())
		}

		if descriptors[1].Name() != "Unknown" {
			t.Errorf("expected blank name to default to 'Unknown', got %q", descriptors[1].Name())
		}
		if descriptors[1].Items()[0].ChannelID() != "c2" {
			t.Errorf("expected item channel id 'c2', got %q", descriptors[1].Items()[0].ChannelID())
		}
		if len(descriptors[2].Items()) != 0 {
			t.Errorf("expected descriptor without items to be kept empty")
		}
	})

	t.Run("total is advisory only", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			page, _ := strconv.Atoi(r.URL.Query().Get("page"))
			if page > 2 {
				_, _ = w.Write([]byte(`{"result":{"total":1,"results":[]}}`))
				return
			}
			fmt.Fprintf(w, `{"result":{"total":1,"results":[{"name":"P%d","items":[{"infohash":"h%d"}]}]}}`, page, page)
		}))
		defer server.Close()

		descriptors, err := newSearchAdapter(server.URL, SearchConfig{}).FetchAll(context.Background())
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(descriptors) != 2 {
			t.Errorf("expected 2 descriptors despite total=1, got %d", len(descriptors))
		}
	})

	t.Run("stops at max pages", func(t *testing.T) {
		var calls atomic.Int32
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			calls.Add(1)
			_, _ = w.Write([]byte(`{"result":{"results":[{"name":"Loop","items":[{"infohash":"h"}]}]}}`))
		}))
		defer server.Close()

		descriptors, err := newSearchAdapter(server.URL, SearchConfig{MaxPages: 3}).FetchAll(context.Background())
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if calls.Load() != 3 || len(descriptors) != 3 {
			t.Errorf("expected 3 pages, got %d calls and %d descriptors", calls.Load(), len(descriptors))
		}
	})

	t.Run("retries transient failures", func(t *testing.T) {
		var calls atomic.Int32
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if calls.Add(1) == 1 {
				w.WriteHeader(http.StatusBadGateway)
				return
			}
			_, _ = w.Write([]byte(`{"result":{"results":[]}}`))
		}))
		defer server.Close()

		_, err := newSearchAdapter(server.URL, SearchConfig{RetryAttempts: 3}).FetchAll(context.Background())
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if calls.Load() != 2 {
			t.Errorf("expected 2 calls, got %d", calls.Load())
		}
	})

	t.Run("fails after exhausting retries", func(t *testing.T) {
		var calls atomic.Int32
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			calls.Add(1)
			w.WriteHeader(http.StatusServiceUnavailable)
		}))
		defer server.Close()

		_, err := newSearchAdapter(server.URL, SearchConfig{RetryAttempts: 2}).FetchAll(context.Background())
		if err == nil {
			t.Fatal("expected error")
		}
		if calls.Load() != 2 {
			t.Errorf("expected 2 calls, got %d", calls.Load())
		}
	})

	t.Run("client errors are not retried", func(t *testing.T) {
		var calls atomic.Int32
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			calls.Add(1)
			w.WriteHeader(http.StatusNotFound)
		}))
		defer server.Close()

		_, err := newSearchAdapter(server.URL, SearchConfig{RetryAttempts: 3}).FetchAll(context.Background())
		if err == nil {
			t.Fatal("expected error")
		}
		if calls.Load() != 1 {
			t.Errorf("expected 1 call, got %d", calls.Load())
		}
	})

	t.Run("malformed JSON fails the fetch", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`{"result":`))
		}))
		defer server.Close()

		_, err := newSearchAdapter(server.URL, SearchConfig{RetryAttempts: 1}).FetchAll(context.Background())
		if err == nil {
			t.Fatal("expected error")
		}
	})

	t.Run("cancelled context", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`{"result":{"results":[]}}`))
		}))
		defer server.Close()

		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		_, err := newSearchAdapter(server.URL, SearchConfig{}).FetchAll(ctx)
		if err == nil {
			t.Fatal("expected error for cancelled context")
		}
	})
}
