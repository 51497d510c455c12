// Package resolver picks a displayable image URL for a catalog record by
// probing candidate sources in priority order: direct URL, marketplace
// metadata, IPFS gateways, external link, placeholder.
package resolver

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"net/http"
	"strings"
	"time"

	"github.com/bryanbrinkman/brinkman-nft-catalog/internal/config"
	"github.com/bryanbrinkman/brinkman-nft-catalog/internal/models"
)

// Candidate source names, used for logging and metrics labels.
const (
	SourceDirect      = "direct"
	SourceMetadata    = "metadata"
	SourceIPFS        = "ipfs"
	SourceExternal    = "external"
	SourcePlaceholder = "placeholder"
)

var rasterExtensions = []string{".jpg", ".jpeg", ".png", ".gif"}

// MetadataFetcher resolves a token's embedded image URL from marketplace
// metadata. Implemented by the opensea client.
type MetadataFetcher interface {
	TokenImageURL(ctx context.Context, contractAddress, tokenID string) (string, error)
}

// Recorder receives resolver instrumentation events. Implemented by the
// metrics package; a no-op is substituted when nil is passed to New.
type Recorder interface {
	ProbeAttempt(source string)
	ProbeFailure(source string)
	GatewayWin(gateway string)
}

type nopRecorder struct{}

func (nopRecorder) ProbeAttempt(string) {}
func (nopRecorder) ProbeFailure(string) {}
func (nopRecorder) GatewayWin(string)   {}

// Resolver deterministically picks one displayable URL for a record. It is
// safe for concurrent use; resolution of different records shares no state.
type Resolver struct {
	httpClient *http.Client
	metadata   MetadataFetcher
	recorder   Recorder

	gateways       []string
	gatewayOrder   config.GatewayOrder
	gatewayTimeout time.Duration
	trustSources   bool
	placeholderURL string
	exempt         map[string]struct{}
}

// New creates a Resolver from config. metadata may be nil, in which case the
// marketplace metadata source is skipped entirely.
func New(cfg config.ResolverConfig, metadata MetadataFetcher, recorder Recorder) *Resolver {
	if recorder == nil {
		recorder = nopRecorder{}
	}

	exempt := make(map[string]struct{}, len(cfg.ExemptContracts))
	for _, addr := range cfg.ExemptContracts {
		exempt[strings.ToLower(addr)] = struct{}{}
	}

	gateways := make([]string, len(cfg.Gateways))
	for i, gw := range cfg.Gateways {
		if !strings.HasSuffix(gw, "/") {
			gw += "/"
		}
		gateways[i] = gw
	}

	return &Resolver{
		httpClient: &http.Client{
			Timeout: cfg.ProbeTimeout,
		},
		metadata:       metadata,
		recorder:       recorder,
		gateways:       gateways,
		gatewayOrder:   cfg.GatewayOrder,
		gatewayTimeout: cfg.GatewayTimeout,
		trustSources:   cfg.TrustSources,
		placeholderURL: cfg.PlaceholderURL,
		exempt:         exempt,
	}
}

// Resolve runs one resolution pass over the candidate sources and returns
// the first usable URL. Each source is tried at most once per pass; when
// every source is exhausted the loading placeholder is returned.
func (r *Resolver) Resolve(ctx context.Context, record *models.CatalogRecord) string {
	// Source 1: direct image URL.
	if record.HasDirectImage() {
		if url, ok := r.tryURL(ctx, SourceDirect, record.DirectImageURL); ok {
			return url
		}
	}

	// Source 2: marketplace metadata image.
	metadataTried := false
	if r.metadataEligible(record) {
		metadataTried = true
		if url, ok := r.tryMetadata(ctx, record); ok {
			return url
		}
	}

	// Source 3: IPFS gateways.
	if record.HasIPFSRef() {
		if url, ok := r.tryIPFS(ctx, record.IPFSImageRef); ok {
			return url
		}
	}

	// Source 4: external link, only when it points at a raw raster asset.
	// A marketplace page link re-enters the metadata path rather than being
	// fetched directly, but never within a pass that already tried it.
	if record.HasExternalLink() {
		switch {
		case hasRasterExtension(record.ExternalLink):
			if url, ok := r.tryURL(ctx, SourceExternal, record.ExternalLink); ok {
				return url
			}
		case isMarketplacePage(record.ExternalLink) && !metadataTried && r.metadataEligible(record):
			if url, ok := r.tryMetadata(ctx, record); ok {
				return url
			}
		}
	}

	// Source 5: placeholder sentinel.
	slog.Debug("All image sources exhausted", "title", record.Title)
	return r.placeholderURL
}

// Placeholder returns the loading/no-image sentinel URL.
func (r *Resolver) Placeholder() string {
	return r.placeholderURL
}

func (r *Resolver) metadataEligible(record *models.CatalogRecord) bool {
	if r.metadata == nil || !record.MarketAddressable() {
		return false
	}
	_, exempt := r.exempt[strings.ToLower(record.ContractAddress)]
	return !exempt
}

func (r *Resolver) tryMetadata(ctx context.Context, record *models.CatalogRecord) (string, bool) {
	r.recorder.ProbeAttempt(SourceMetadata)

	url, err := r.metadata.TokenImageURL(ctx, record.ContractAddress, record.TokenID)
	if err != nil {
		r.recorder.ProbeFailure(SourceMetadata)
		slog.Warn("Marketplace metadata lookup failed",
			"title", record.Title, "contract", record.ContractAddress, "token_id", record.TokenID, "error", err)
		return "", false
	}
	if url == "" {
		return "", false
	}
	if r.trustSources {
		return url, true
	}
	if err := r.probe(ctx, url); err != nil {
		r.recorder.ProbeFailure(SourceMetadata)
		slog.Warn("Marketplace metadata image unreachable", "title", record.Title, "url", url, "error", err)
		return "", false
	}
	return url, true
}

func (r *Resolver) tryURL(ctx context.Context, source, url string) (string, bool) {
	r.recorder.ProbeAttempt(source)

	if r.trustSources {
		return url, true
	}
	if err := r.probe(ctx, url); err != nil {
		r.recorder.ProbeFailure(source)
		slog.Warn("Image source probe failed", "source", source, "url", url, "error", err)
		return "", false
	}
	return url, true
}

// tryIPFS strips ipfs:// and trailing slashes from the reference, then
// probes the configured gateways. The first gateway that answers
// successfully wins; each probe carries its own short timeout.
func (r *Resolver) tryIPFS(ctx context.Context, ref string) (string, bool) {
	path := NormalizeIPFSRef(ref)
	if path == "" {
		return "", false
	}

	for _, gateway := range r.gatewayAttemptOrder() {
		r.recorder.ProbeAttempt(SourceIPFS)

		url := gateway + path
		probeCtx, cancel := context.WithTimeout(ctx, r.gatewayTimeout)
		err := r.probe(probeCtx, url)
		cancel()
		if err == nil {
			r.recorder.GatewayWin(gateway)
			return url, true
		}

		r.recorder.ProbeFailure(SourceIPFS)
		slog.Warn("IPFS gateway probe failed", "gateway", gateway, "cid", path, "error", err)
	}

	return "", false
}

// gatewayAttemptOrder returns the gateways to probe. Fixed order is the
// default; random order spreads load across public gateways.
func (r *Resolver) gatewayAttemptOrder() []string {
	order := make([]string, len(r.gateways))
	copy(order, r.gateways)
	if r.gatewayOrder == config.OrderRandom {
		rand.Shuffle(len(order), func(i, j int) {
			order[i], order[j] = order[j], order[i]
		})
	}
	return order
}

// probe checks that a URL is fetchable without downloading the asset: HEAD
// first, falling back to a single-byte ranged GET for servers that reject
// HEAD.
func (r *Resolver) probe(ctx context.Context, url string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, url, nil)
	if err != nil {
		return fmt.Errorf("failed to create probe request: %w", err)
	}

	resp, err := r.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("probe request failed: %w", err)
	}
	resp.Body.Close()

	if resp.StatusCode == http.StatusMethodNotAllowed || resp.StatusCode == http.StatusNotImplemented {
		return r.probeRangedGet(ctx, url)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("probe returned status %d", resp.StatusCode)
	}
	return nil
}

func (r *Resolver) probeRangedGet(ctx context.Context, url string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("failed to create probe request: %w", err)
	}
	req.Header.Set("Range", "bytes=0-0")

	resp, err := r.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("probe request failed: %w", err)
	}
	resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("probe returned status %d", resp.StatusCode)
	}
	return nil
}

// NormalizeIPFSRef strips an ipfs:// scheme prefix and any trailing slashes
// from an IPFS reference, leaving the gateway path suffix.
func NormalizeIPFSRef(ref string) string {
	ref = strings.TrimSpace(ref)
	ref = strings.TrimPrefix(ref, "ipfs://")
	ref = strings.TrimPrefix(ref, "ipfs/")
	return strings.TrimRight(ref, "/")
}

func hasRasterExtension(link string) bool {
	path := strings.ToLower(link)
	if i := strings.IndexAny(path, "?#"); i >= 0 {
		path = path[:i]
	}
	for _, ext := range rasterExtensions {
		if strings.HasSuffix(path, ext) {
			return true
		}
	}
	return false
}

// isMarketplacePage reports whether a link points at a marketplace's
// human-facing asset page rather than a raw asset.
func isMarketplacePage(link string) bool {
	return strings.Contains(strings.ToLower(link), "opensea.io/assets")
}
