// Package proxy implements the same-origin marketplace proxy. Each route
// forwards to the upstream marketplace API with the server-held API key
// attached and streams the JSON response back unmodified.
package proxy

import (
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/bryanbrinkman/brinkman-nft-catalog/internal/config"
)

// Recorder receives proxy instrumentation events. Implemented by the
// metrics package.
type Recorder interface {
	ProxyRequest(route string)
	ProxyError(route string)
}

type nopRecorder struct{}

func (nopRecorder) ProxyRequest(string) {}
func (nopRecorder) ProxyError(string)   {}

// Proxy forwards price and event requests to the upstream marketplace API.
type Proxy struct {
	upstreamURL string
	apiKey      string
	httpClient  *http.Client
	recorder    Recorder
}

// New creates a Proxy. apiKey may be empty, in which case no key header is
// attached (upstream rate limits apply).
func New(cfg config.MarketplaceConfig, apiKey string, recorder Recorder) *Proxy {
	if recorder == nil {
		recorder = nopRecorder{}
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &Proxy{
		upstreamURL: strings.TrimRight(cfg.UpstreamURL, "/"),
		apiKey:      apiKey,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		recorder: recorder,
	}
}

// allowed query parameters forwarded to the upstream events endpoint.
var eventQueryParams = []string{"event_type", "occurred_after", "occurred_before", "cursor", "limit"}

// HandlePrice serves GET /api/price/{contractAddress}/{tokenId}.
func (p *Proxy) HandlePrice(w http.ResponseWriter, r *http.Request) {
	p.recorder.ProxyRequest("price")

	contract, token, ok := splitAssetPath(r.URL.Path, "/api/price/")
	if !ok {
		p.writeError(w, "price", http.StatusBadRequest, "invalid path")
		return
	}

	upstream := fmt.Sprintf("%s/asset/%s/%s/", p.upstreamURL,
		url.PathEscape(contract), url.PathEscape(token))
	p.forward(w, r, "price", upstream)
}

// HandleEvents serves GET /api/events/{contractAddress}/{tokenId}.
func (p *Proxy) HandleEvents(w http.ResponseWriter, r *http.Request) {
	p.recorder.ProxyRequest("events")

	contract, token, ok := splitAssetPath(r.URL.Path, "/api/events/")
	if !ok {
		p.writeError(w, "events", http.StatusBadRequest, "invalid path")
		return
	}

	query := url.Values{}
	query.Set("asset_contract_address", contract)
	query.Set("token_id", token)
	copyQueryParams(query, r.URL.Query())

	p.forward(w, r, "events", p.upstreamURL+"/events?"+query.Encode())
}

// HandleCollectionEvents serves GET /api/collection-events/{contractAddress}.
func (p *Proxy) HandleCollectionEvents(w http.ResponseWriter, r *http.Request) {
	p.recorder.ProxyRequest("collection-events")

	contract := strings.Trim(strings.TrimPrefix(r.URL.Path, "/api/collection-events/"), "/")
	if contract == "" || strings.Contains(contract, "/") {
		p.writeError(w, "collection-events", http.StatusBadRequest, "invalid path")
		return
	}

	query := url.Values{}
	query.Set("asset_contract_address", contract)
	copyQueryParams(query, r.URL.Query())

	p.forward(w, r, "collection-events", p.upstreamURL+"/events?"+query.Encode())
}

// forward performs the upstream request and streams the response body back.
// Any upstream failure becomes a 500 with a generic JSON error body.
func (p *Proxy) forward(w http.ResponseWriter, r *http.Request, route, upstreamURL string) {
	req, err := http.NewRequestWithContext(r.Context(), http.MethodGet, upstreamURL, nil)
	if err != nil {
		p.writeError(w, route, http.StatusInternalServerError, "upstream request failed")
		return
	}
	req.Header.Set("Accept", "application/json")
	if p.apiKey != "" {
		req.Header.Set("X-API-KEY", p.apiKey)
	}

	resp, err := p.httpClient.Do(req)
	if err != nil {
		slog.Error("Upstream request failed", "route", route, "error", err)
		p.writeError(w, route, http.StatusInternalServerError, "upstream request failed")
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		slog.Error("Upstream returned non-200", "route", route, "status", resp.StatusCode)
		p.writeError(w, route, http.StatusInternalServerError, "upstream request failed")
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if _, err := io.Copy(w, resp.Body); err != nil {
		slog.Error("Unable to stream upstream response", "route", route, "error", err)
	}
}

func (p *Proxy) writeError(w http.ResponseWriter, route string, code int, message string) {
	p.recorder.ProxyError(route)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	fmt.Fprintf(w, `{"error":%q}`, message)
}

// splitAssetPath extracts {contract}/{token} from a proxy route path.
func splitAssetPath(path, prefix string) (contract, token string, ok bool) {
	rest := strings.Trim(strings.TrimPrefix(path, prefix), "/")
	parts := strings.Split(rest, "/")
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", false
	}
	return parts[0], parts[1], true
}

func copyQueryParams(dst url.Values, src url.Values) {
	for _, name := range eventQueryParams {
		if v := src.Get(name); v != "" {
			dst.Set(name, v)
		}
	}
}
