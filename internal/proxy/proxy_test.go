package proxy

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/bryanbrinkman/brinkman-nft-catalog/internal/config"
)

func newTestProxy(t *testing.T, upstream *httptest.Server, apiKey string) *Proxy {
	t.Helper()
	return New(config.MarketplaceConfig{
		UpstreamURL: upstream.URL,
		Timeout:     2 * time.Second,
	}, apiKey, nil)
}

func TestHandlePriceForwardsWithAPIKey(t *testing.T) {
	var gotPath, gotKey string
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotKey = r.Header.Get("X-API-KEY")
		w.Write([]byte(`{"image_url": "https://img.example/a.png"}`))
	}))
	defer upstream.Close()

	p := newTestProxy(t, upstream, "secret-key")

	req := httptest.NewRequest(http.MethodGet, "/api/price/0xabc/42", nil)
	rec := httptest.NewRecorder()
	p.HandlePrice(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", rec.Code)
	}
	if gotPath != "/asset/0xabc/42/" {
		t.Errorf("Expected upstream asset path, got %s", gotPath)
	}
	if gotKey != "secret-key" {
		t.Errorf("Expected API key header, got %q", gotKey)
	}

	body, _ := io.ReadAll(rec.Body)
	if !strings.Contains(string(body), "img.example") {
		t.Errorf("Expected upstream JSON passed through, got %s", body)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("Expected JSON content type, got %s", ct)
	}
}

func TestHandleEventsForwardsQueryParams(t *testing.T) {
	var gotQuery string
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.RawQuery
		w.Write([]byte(`{"asset_events": [], "next_cursor": ""}`))
	}))
	defer upstream.Close()

	p := newTestProxy(t, upstream, "")

	req := httptest.NewRequest(http.MethodGet,
		"/api/events/0xabc/42?event_type=successful&occurred_after=1609459200&cursor=abc&ignored=1", nil)
	rec := httptest.NewRecorder()
	p.HandleEvents(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", rec.Code)
	}
	for _, want := range []string{
		"asset_contract_address=0xabc",
		"token_id=42",
		"event_type=successful",
		"occurred_after=1609459200",
		"cursor=abc",
	} {
		if !strings.Contains(gotQuery, want) {
			t.Errorf("Expected query to contain %s, got %s", want, gotQuery)
		}
	}
	if strings.Contains(gotQuery, "ignored") {
		t.Errorf("Unexpected passthrough of unknown parameter: %s", gotQuery)
	}
}

func TestHandleCollectionEvents(t *testing.T) {
	var gotQuery string
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.RawQuery
		w.Write([]byte(`{"asset_events": [], "next_cursor": ""}`))
	}))
	defer upstream.Close()

	p := newTestProxy(t, upstream, "")

	req := httptest.NewRequest(http.MethodGet, "/api/collection-events/0xabc?limit=20", nil)
	rec := httptest.NewRecorder()
	p.HandleCollectionEvents(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", rec.Code)
	}
	if !strings.Contains(gotQuery, "asset_contract_address=0xabc") {
		t.Errorf("Expected contract in query, got %s", gotQuery)
	}
	if !strings.Contains(gotQuery, "limit=20") {
		t.Errorf("Expected limit in query, got %s", gotQuery)
	}
}

func TestUpstreamFailureBecomesGeneric500(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "detailed upstream secret", http.StatusForbidden)
	}))
	defer upstream.Close()

	p := newTestProxy(t, upstream, "")

	req := httptest.NewRequest(http.MethodGet, "/api/price/0xabc/42", nil)
	rec := httptest.NewRecorder()
	p.HandlePrice(rec, req)

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("Expected 500, got %d", rec.Code)
	}

	body, _ := io.ReadAll(rec.Body)
	if strings.Contains(string(body), "secret") {
		t.Errorf("Upstream error details leaked: %s", body)
	}
	if !strings.Contains(string(body), `"error"`) {
		t.Errorf("Expected generic JSON error body, got %s", body)
	}
}

func TestUnreachableUpstreamBecomes500(t *testing.T) {
	p := New(config.MarketplaceConfig{
		UpstreamURL: "http://127.0.0.1:1",
		Timeout:     500 * time.Millisecond,
	}, "", nil)

	req := httptest.NewRequest(http.MethodGet, "/api/price/0xabc/42", nil)
	rec := httptest.NewRecorder()
	p.HandlePrice(rec, req)

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("Expected 500, got %d", rec.Code)
	}
}

func TestInvalidPathRejected(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("Upstream should not be called for invalid paths")
	}))
	defer upstream.Close()

	p := newTestProxy(t, upstream, "")

	req := httptest.NewRequest(http.MethodGet, "/api/price/0xabc", nil)
	rec := httptest.NewRecorder()
	p.HandlePrice(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("Expected 400, got %d", rec.Code)
	}
}

func TestSplitAssetPath(t *testing.T) {
	tests := []struct {
		name     string
		path     string
		contract string
		token    string
		ok       bool
	}{
		{"valid", "/api/price/0xabc/42", "0xabc", "42", true},
		{"trailing slash", "/api/price/0xabc/42/", "0xabc", "42", true},
		{"missing token", "/api/price/0xabc", "", "", false},
		{"extra segment", "/api/price/0xabc/42/extra", "", "", false},
		{"empty", "/api/price/", "", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			contract, token, ok := splitAssetPath(tt.path, "/api/price/")
			if ok != tt.ok || contract != tt.contract || token != tt.token {
				t.Errorf("splitAssetPath(%q) = (%q, %q, %v), want (%q, %q, %v)",
					tt.path, contract, token, ok, tt.contract, tt.token, tt.ok)
			}
		})
	}
}
