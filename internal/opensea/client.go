// Package opensea is the marketplace price/event client. It talks to the
// same-origin proxy rather than the upstream API directly, so no API key is
// needed on this side.
package opensea

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"math/big"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"time"

	"github.com/bryanbrinkman/brinkman-nft-catalog/internal/models"
)

// Client fetches price and event data through the proxy HTTP surface.
type Client struct {
	BaseURL    string
	httpClient *http.Client
}

// NewClient creates a new marketplace client. baseURL is the proxy origin,
// e.g. "http://localhost:3001".
func NewClient(baseURL string) *Client {
	return &Client{
		BaseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 15 * time.Second,
		},
	}
}

// assetResponse is the subset of the upstream asset payload the client
// reads: the embedded image, active listings and the collection floor.
type assetResponse struct {
	ImageURL         string `json:"image_url"`
	SeaportSellOrder []struct {
		CurrentPrice string `json:"current_price"`
	} `json:"seaport_sell_orders"`
	Collection struct {
		Stats struct {
			FloorPrice float64 `json:"floor_price"`
		} `json:"stats"`
	} `json:"collection"`
}

// TokenImageURL fetches token metadata and returns its embedded image URL.
// Used by the image resolver as a candidate source.
func (c *Client) TokenImageURL(ctx context.Context, contractAddress, tokenID string) (string, error) {
	asset, err := c.fetchAsset(ctx, contractAddress, tokenID)
	if err != nil {
		return "", err
	}
	return asset.ImageURL, nil
}

// ListingOrFloorPrice looks up a display price for a token. Unique pieces
// read their own active listing; editions and other multi-mint types read
// the collection floor instead. Failures degrade to the Error variant and
// are never raised to the caller.
func (c *Client) ListingOrFloorPrice(ctx context.Context, contractAddress, tokenID string, isUnique bool) models.PriceResult {
	asset, err := c.fetchAsset(ctx, contractAddress, tokenID)
	if err != nil {
		slog.Warn("Price lookup failed", "contract", contractAddress, "token_id", tokenID, "error", err)
		return models.PriceResult{Kind: models.PriceError}
	}

	if isUnique {
		if len(asset.SeaportSellOrder) == 0 {
			return models.PriceResult{Kind: models.PriceNotListed}
		}
		price, err := weiToEth(asset.SeaportSellOrder[0].CurrentPrice)
		if err != nil {
			slog.Warn("Unparseable listing price", "contract", contractAddress, "token_id", tokenID, "error", err)
			return models.PriceResult{Kind: models.PriceError}
		}
		return models.PriceResult{Kind: models.PriceListed, PriceEth: price}
	}

	if asset.Collection.Stats.FloorPrice <= 0 {
		return models.PriceResult{Kind: models.PriceNotListed}
	}
	return models.PriceResult{Kind: models.PriceFloor, PriceEth: asset.Collection.Stats.FloorPrice}
}

func (c *Client) fetchAsset(ctx context.Context, contractAddress, tokenID string) (*assetResponse, error) {
	reqURL := fmt.Sprintf("%s/api/price/%s/%s", c.BaseURL,
		url.PathEscape(contractAddress), url.PathEscape(tokenID))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch asset: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("asset endpoint returned status %d", resp.StatusCode)
	}

	var asset assetResponse
	if err := json.NewDecoder(resp.Body).Decode(&asset); err != nil {
		return nil, fmt.Errorf("failed to decode asset response: %w", err)
	}

	return &asset, nil
}

// EventFilters narrows an event-history query. Zero values mean no
// constraint.
type EventFilters struct {
	EventType      string
	OccurredAfter  time.Time
	OccurredBefore time.Time
	Cursor         string
	Limit          int
}

// eventsResponse is the paginated upstream event payload shape.
type eventsResponse struct {
	AssetEvents []struct {
		EventType      string `json:"event_type"`
		EventTimestamp string `json:"event_timestamp"`
		TotalPrice     string `json:"total_price"`
		FromAccount    struct {
			Address string `json:"address"`
		} `json:"from_account"`
		ToAccount struct {
			Address string `json:"address"`
		} `json:"to_account"`
		Transaction struct {
			TransactionHash string `json:"transaction_hash"`
		} `json:"transaction"`
	} `json:"asset_events"`
	NextCursor string `json:"next_cursor"`
}

// maxEventPages bounds cursor-following so a bad upstream cursor cannot
// loop forever.
const maxEventPages = 10

// Events fetches market history for a token, or for the whole collection
// when tokenID is empty, newest first. Pagination cursors are followed
// until the limit is satisfied.
func (c *Client) Events(ctx context.Context, contractAddress, tokenID string, filters EventFilters) ([]models.MarketEvent, error) {
	var events []models.MarketEvent
	cursor := filters.Cursor

	for page := 0; page < maxEventPages; page++ {
		resp, err := c.fetchEventPage(ctx, contractAddress, tokenID, filters, cursor)
		if err != nil {
			return nil, err
		}

		for _, raw := range resp.AssetEvents {
			event := models.MarketEvent{
				Kind:      mapEventKind(raw.EventType),
				Timestamp: parseEventTimestamp(raw.EventTimestamp),
				From:      raw.FromAccount.Address,
				To:        raw.ToAccount.Address,
				TxHash:    raw.Transaction.TransactionHash,
			}
			if raw.TotalPrice != "" {
				if price, err := weiToEth(raw.TotalPrice); err == nil {
					event.PriceEth = price
				}
			}
			events = append(events, event)
			if filters.Limit > 0 && len(events) >= filters.Limit {
				break
			}
		}

		if filters.Limit > 0 && len(events) >= filters.Limit {
			break
		}
		if resp.NextCursor == "" {
			break
		}
		cursor = resp.NextCursor
	}

	sort.SliceStable(events, func(i, j int) bool {
		return events[i].Timestamp.After(events[j].Timestamp)
	})

	return events, nil
}

func (c *Client) fetchEventPage(ctx context.Context, contractAddress, tokenID string, filters EventFilters, cursor string) (*eventsResponse, error) {
	var reqURL string
	if tokenID == "" {
		reqURL = fmt.Sprintf("%s/api/collection-events/%s", c.BaseURL, url.PathEscape(contractAddress))
	} else {
		reqURL = fmt.Sprintf("%s/api/events/%s/%s", c.BaseURL,
			url.PathEscape(contractAddress), url.PathEscape(tokenID))
	}

	query := url.Values{}
	if filters.EventType != "" {
		query.Set("event_type", filters.EventType)
	}
	if !filters.OccurredAfter.IsZero() {
		query.Set("occurred_after", strconv.FormatInt(filters.OccurredAfter.Unix(), 10))
	}
	if !filters.OccurredBefore.IsZero() {
		query.Set("occurred_before", strconv.FormatInt(filters.OccurredBefore.Unix(), 10))
	}
	if cursor != "" {
		query.Set("cursor", cursor)
	}
	if filters.Limit > 0 {
		query.Set("limit", strconv.Itoa(filters.Limit))
	}
	if len(query) > 0 {
		reqURL += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch events: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("events endpoint returned status %d", resp.StatusCode)
	}

	var page eventsResponse
	if err := json.NewDecoder(resp.Body).Decode(&page); err != nil {
		return nil, fmt.Errorf("failed to decode events response: %w", err)
	}

	return &page, nil
}

// mapEventKind translates upstream event_type strings to EventKind.
func mapEventKind(eventType string) models.EventKind {
	switch eventType {
	case "created":
		return models.EventListed
	case "successful":
		return models.EventSold
	case "cancelled":
		return models.EventCancelled
	case "offer_entered", "bid_entered":
		return models.EventBidPlaced
	case "offer_withdrawn", "bid_withdrawn":
		return models.EventBidWithdrawn
	case "transfer":
		return models.EventTransferred
	case "approve":
		return models.EventApproved
	default:
		return models.EventUnknown
	}
}

var eventTimestampLayouts = []string{
	"2006-01-02T15:04:05.999999",
	"2006-01-02T15:04:05",
	time.RFC3339,
}

func parseEventTimestamp(s string) time.Time {
	for _, layout := range eventTimestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	return time.Time{}
}

// weiToEth converts a decimal wei string to ETH.
func weiToEth(wei string) (float64, error) {
	value, ok := new(big.Float).SetString(wei)
	if !ok {
		return 0, fmt.Errorf("invalid wei value %q", wei)
	}
	eth := new(big.Float).Quo(value, big.NewFloat(1e18))
	result, _ := eth.Float64()
	return result, nil
}
