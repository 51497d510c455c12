package models

import (
	"strings"
	"time"
)

// ArtworkType classifies how an artwork was issued.
type ArtworkType string

const (
	TypeUnique     ArtworkType = "Unique"
	TypeEdition    ArtworkType = "Edition"
	TypeGenerative ArtworkType = "Generative"
	TypeSeries     ArtworkType = "Series"
	TypeUnknown    ArtworkType = "Unknown"
)

// ParseArtworkType maps a free-text type column value to an ArtworkType.
func ParseArtworkType(s string) ArtworkType {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "unique", "1/1", "1 of 1":
		return TypeUnique
	case "edition", "editions":
		return TypeEdition
	case "generative":
		return TypeGenerative
	case "series":
		return TypeSeries
	default:
		return TypeUnknown
	}
}

// CatalogRecord represents one artwork row from the source dataset.
// Records are immutable once parsed.
type CatalogRecord struct {
	ID              string      `json:"id"`
	Title           string      `json:"title"`
	Type            ArtworkType `json:"type"`
	Platform        string      `json:"platform,omitempty"`
	Collaborator    string      `json:"collaborator,omitempty"`
	MintDate        string      `json:"mint_date,omitempty"`
	EditionSize     string      `json:"edition_size,omitempty"`
	ContractAddress string      `json:"contract_address,omitempty"`
	TokenID         string      `json:"token_id,omitempty"`
	DirectImageURL  string      `json:"direct_image_url,omitempty"`
	IPFSImageRef    string      `json:"ipfs_image_ref,omitempty"`
	ExternalLink    string      `json:"external_link,omitempty"`
}

// MarketAddressable reports whether the record carries both identifiers
// needed for marketplace lookups. All marketplace calls are skipped when
// this is false.
func (r *CatalogRecord) MarketAddressable() bool {
	return r.ContractAddress != "" && r.TokenID != ""
}

// HasDirectImage reports whether a direct image URL is present.
func (r *CatalogRecord) HasDirectImage() bool { return r.DirectImageURL != "" }

// HasIPFSRef reports whether an IPFS content reference is present.
func (r *CatalogRecord) HasIPFSRef() bool { return r.IPFSImageRef != "" }

// HasExternalLink reports whether an external link is present.
func (r *CatalogRecord) HasExternalLink() bool { return r.ExternalLink != "" }

// PriceKind discriminates the outcome of a price lookup.
type PriceKind string

const (
	PriceListed    PriceKind = "Listed"
	PriceFloor     PriceKind = "Floor"
	PriceNotListed PriceKind = "NotListed"
	PriceError     PriceKind = "Error"
)

// PriceResult is the outcome of a listing/floor price lookup. PriceEth is
// only meaningful when Kind is Listed or Floor.
type PriceResult struct {
	Kind     PriceKind `json:"kind"`
	PriceEth float64   `json:"price_eth,omitempty"`
}

// EventKind classifies a marketplace event.
type EventKind string

const (
	EventListed       EventKind = "Listed"
	EventSold         EventKind = "Sold"
	EventCancelled    EventKind = "Cancelled"
	EventBidPlaced    EventKind = "BidPlaced"
	EventBidWithdrawn EventKind = "BidWithdrawn"
	EventTransferred  EventKind = "Transferred"
	EventApproved     EventKind = "Approved"
	EventUnknown      EventKind = "Unknown"
)

// MarketEvent is one entry of a token's or collection's market history,
// ordered newest first by the client.
type MarketEvent struct {
	Kind      EventKind `json:"kind"`
	Timestamp time.Time `json:"timestamp"`
	PriceEth  float64   `json:"price_eth,omitempty"`
	From      string    `json:"from,omitempty"`
	To        string    `json:"to,omitempty"`
	TxHash    string    `json:"tx_hash,omitempty"`
}
