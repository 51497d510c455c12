package resolver

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/bryanbrinkman/brinkman-nft-catalog/internal/config"
	"github.com/bryanbrinkman/brinkman-nft-catalog/internal/models"
)

type fakeMetadata struct {
	mu       sync.Mutex
	calls    int
	imageURL string
	err      error
}

func (f *fakeMetadata) TokenImageURL(ctx context.Context, contract, token string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	return f.imageURL, f.err
}

func (f *fakeMetadata) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func testConfig(gateways ...string) config.ResolverConfig {
	return config.ResolverConfig{
		Gateways:       gateways,
		GatewayOrder:   config.OrderFixed,
		GatewayTimeout: 2 * time.Second,
		ProbeTimeout:   2 * time.Second,
		MaxRetries:     3,
		PlaceholderURL: "/static/img/loading.png",
		UnavailableURL: "/static/img/no-image.png",
	}
}

// newProbeServer returns a server that answers every probe with the given
// status and counts requests.
func newProbeServer(t *testing.T, status int) (*httptest.Server, *int) {
	t.Helper()
	hits := 0
	var mu sync.Mutex
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		hits++
		mu.Unlock()
		w.WriteHeader(status)
	}))
	t.Cleanup(server.Close)
	return server, &hits
}

func TestDirectURLTriedFirst(t *testing.T) {
	direct, _ := newProbeServer(t, http.StatusOK)
	metadata := &fakeMetadata{imageURL: "https://example.com/meta.png"}

	res := New(testConfig("https://ipfs.example/ipfs/"), metadata, nil)

	record := &models.CatalogRecord{
		Title:           "Fully Populated",
		ContractAddress: "0xabc",
		TokenID:         "1",
		DirectImageURL:  direct.URL + "/art.png",
		IPFSImageRef:    "ipfs://QmOther",
		ExternalLink:    "https://example.com/art.jpg",
	}

	url := res.Resolve(context.Background(), record)
	if url != direct.URL+"/art.png" {
		t.Errorf("Expected direct URL %s, got %s", direct.URL+"/art.png", url)
	}
	if metadata.callCount() != 0 {
		t.Errorf("Expected metadata source untouched, got %d calls", metadata.callCount())
	}
}

func TestMetadataSkippedWithoutIdentifiers(t *testing.T) {
	metadata := &fakeMetadata{imageURL: "https://example.com/meta.png"}
	res := New(testConfig("https://ipfs.example/ipfs/"), metadata, nil)

	record := &models.CatalogRecord{Title: "No Identifiers"}

	url := res.Resolve(context.Background(), record)
	if url != "/static/img/loading.png" {
		t.Errorf("Expected placeholder, got %s", url)
	}
	if metadata.callCount() != 0 {
		t.Errorf("Expected no metadata calls, got %d", metadata.callCount())
	}
}

func TestMetadataSkippedForExemptContract(t *testing.T) {
	metadata := &fakeMetadata{imageURL: "https://example.com/meta.png"}
	cfg := testConfig("https://ipfs.example/ipfs/")
	cfg.ExemptContracts = []string{"0xABC"}
	res := New(cfg, metadata, nil)

	record := &models.CatalogRecord{
		Title:           "Exempt",
		ContractAddress: "0xabc",
		TokenID:         "7",
	}

	res.Resolve(context.Background(), record)
	if metadata.callCount() != 0 {
		t.Errorf("Expected exempt contract to skip metadata, got %d calls", metadata.callCount())
	}
}

func TestMetadataUsedWhenDirectMissing(t *testing.T) {
	image, _ := newProbeServer(t, http.StatusOK)
	metadata := &fakeMetadata{imageURL: image.URL + "/meta.png"}
	res := New(testConfig("https://ipfs.example/ipfs/"), metadata, nil)

	record := &models.CatalogRecord{
		Title:           "Metadata Backed",
		ContractAddress: "0xabc",
		TokenID:         "1",
	}

	url := res.Resolve(context.Background(), record)
	if url != image.URL+"/meta.png" {
		t.Errorf("Expected metadata image URL, got %s", url)
	}
	if metadata.callCount() != 1 {
		t.Errorf("Expected one metadata call, got %d", metadata.callCount())
	}
}

func TestIPFSNormalization(t *testing.T) {
	var gotPath string
	var mu sync.Mutex
	gateway := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		gotPath = r.URL.Path
		mu.Unlock()
		w.WriteHeader(http.StatusOK)
	}))
	defer gateway.Close()

	res := New(testConfig(gateway.URL+"/ipfs/"), nil, nil)

	record := &models.CatalogRecord{
		Title:        "IPFS Backed",
		IPFSImageRef: "ipfs://Qm123/",
	}

	url := res.Resolve(context.Background(), record)
	if url != gateway.URL+"/ipfs/Qm123" {
		t.Errorf("Expected %s, got %s", gateway.URL+"/ipfs/Qm123", url)
	}
	if gotPath != "/ipfs/Qm123" {
		t.Errorf("Expected gateway path /ipfs/Qm123, got %s", gotPath)
	}
}

func TestIPFSGatewayFixedOrder(t *testing.T) {
	var mu sync.Mutex
	var order []string

	gatewayHandler := func(name string, status int) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			mu.Lock()
			order = append(order, name)
			mu.Unlock()
			w.WriteHeader(status)
		}
	}

	first := httptest.NewServer(gatewayHandler("first", http.StatusBadGateway))
	defer first.Close()
	second := httptest.NewServer(gatewayHandler("second", http.StatusOK))
	defer second.Close()
	third := httptest.NewServer(gatewayHandler("third", http.StatusOK))
	defer third.Close()

	res := New(testConfig(first.URL+"/ipfs/", second.URL+"/ipfs/", third.URL+"/ipfs/"), nil, nil)

	record := &models.CatalogRecord{Title: "Gateway Order", IPFSImageRef: "Qm456"}

	url := res.Resolve(context.Background(), record)
	if url != second.URL+"/ipfs/Qm456" {
		t.Errorf("Expected second gateway to win, got %s", url)
	}
	if len(order) != 2 || order[0] != "first" || order[1] != "second" {
		t.Errorf("Expected probes [first second], got %v", order)
	}
}

func TestIPFSGatewayRandomOrderCoversAll(t *testing.T) {
	var mu sync.Mutex
	hits := make(map[string]int)

	gatewayHandler := func(name string) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			mu.Lock()
			hits[name]++
			mu.Unlock()
			w.WriteHeader(http.StatusBadGateway)
		}
	}

	names := []string{"a", "b", "c"}
	var gateways []string
	for _, name := range names {
		server := httptest.NewServer(gatewayHandler(name))
		defer server.Close()
		gateways = append(gateways, server.URL+"/ipfs/")
	}

	cfg := testConfig(gateways...)
	cfg.GatewayOrder = config.OrderRandom
	res := New(cfg, nil, nil)

	record := &models.CatalogRecord{Title: "Random Order", IPFSImageRef: "ipfs://Qm789"}

	url := res.Resolve(context.Background(), record)
	if url != "/static/img/loading.png" {
		t.Errorf("Expected placeholder after exhausting gateways, got %s", url)
	}
	for _, name := range names {
		if hits[name] != 1 {
			t.Errorf("Expected gateway %s probed exactly once, got %d", name, hits[name])
		}
	}
}

func TestExternalLinkRequiresRasterExtension(t *testing.T) {
	tests := []struct {
		name string
		link string
		want bool
	}{
		{"jpg", "https://example.com/a.jpg", true},
		{"jpeg", "https://example.com/a.jpeg", true},
		{"png uppercase", "https://example.com/A.PNG", true},
		{"gif with query", "https://example.com/a.gif?size=large", true},
		{"html page", "https://example.com/piece", false},
		{"svg", "https://example.com/a.svg", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := hasRasterExtension(tt.link); got != tt.want {
				t.Errorf("hasRasterExtension(%q) = %v, want %v", tt.link, got, tt.want)
			}
		})
	}
}

func TestMarketplacePageLinkReentersMetadata(t *testing.T) {
	image, _ := newProbeServer(t, http.StatusOK)
	metadata := &fakeMetadata{imageURL: image.URL + "/meta.png"}

	res := New(testConfig("https://ipfs.example/ipfs/"), metadata, nil)

	record := &models.CatalogRecord{
		Title:           "Page Link",
		ContractAddress: "0xabc",
		TokenID:         "9",
		ExternalLink:    "https://opensea.io/assets/0xabc/9",
	}

	url := res.Resolve(context.Background(), record)
	if url != image.URL+"/meta.png" {
		t.Errorf("Expected metadata image, got %s", url)
	}
	// Source 2 already ran once in this pass; the page link must not
	// trigger a second metadata attempt.
	if metadata.callCount() != 1 {
		t.Errorf("Expected exactly one metadata call per pass, got %d", metadata.callCount())
	}
}

func TestExhaustedSourcesYieldPlaceholder(t *testing.T) {
	direct, _ := newProbeServer(t, http.StatusNotFound)
	gateway, _ := newProbeServer(t, http.StatusServiceUnavailable)
	metadata := &fakeMetadata{err: context.DeadlineExceeded}

	res := New(testConfig(gateway.URL+"/ipfs/"), metadata, nil)

	record := &models.CatalogRecord{
		Title:           "Everything Fails",
		ContractAddress: "0xabc",
		TokenID:         "2",
		DirectImageURL:  direct.URL + "/gone.png",
		IPFSImageRef:    "ipfs://QmGone",
		ExternalLink:    "https://example.com/page",
	}

	url := res.Resolve(context.Background(), record)
	if url != "/static/img/loading.png" {
		t.Errorf("Expected placeholder, got %s", url)
	}
}

func TestTrustSourcesSkipsProbes(t *testing.T) {
	cfg := testConfig("https://ipfs.example/ipfs/")
	cfg.TrustSources = true
	res := New(cfg, nil, nil)

	// No server exists at this URL; trust mode must not probe it.
	record := &models.CatalogRecord{
		Title:          "Trusted",
		DirectImageURL: "http://127.0.0.1:1/art.png",
	}

	url := res.Resolve(context.Background(), record)
	if url != record.DirectImageURL {
		t.Errorf("Expected trusted direct URL, got %s", url)
	}
}

func TestNormalizeIPFSRef(t *testing.T) {
	tests := []struct {
		name string
		ref  string
		want string
	}{
		{"plain cid", "Qm123", "Qm123"},
		{"scheme prefix", "ipfs://Qm123", "Qm123"},
		{"trailing slash", "ipfs://Qm123/", "Qm123"},
		{"multiple trailing slashes", "Qm123//", "Qm123"},
		{"path prefix", "ipfs/Qm123", "Qm123"},
		{"cid with path", "ipfs://Qm123/image.png", "Qm123/image.png"},
		{"empty", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := NormalizeIPFSRef(tt.ref); got != tt.want {
				t.Errorf("NormalizeIPFSRef(%q) = %q, want %q", tt.ref, got, tt.want)
			}
		})
	}
}
