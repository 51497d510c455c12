package catalog

import (
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/bryanbrinkman/brinkman-nft-catalog/internal/models"
)

// SortField names a sortable record field.
type SortField string

const (
	SortTitle       SortField = "title"
	SortType        SortField = "type"
	SortPlatform    SortField = "platform"
	SortMintDate    SortField = "mintDate"
	SortEditionSize SortField = "editionSize"
)

// SortDirection is an ascending or descending sort.
type SortDirection string

const (
	Ascending  SortDirection = "asc"
	Descending SortDirection = "desc"
)

// Filter holds the active facet filters. Empty fields match everything;
// populated fields are combined with AND.
type Filter struct {
	Type         models.ArtworkType
	Platform     string
	Collaborator string
	// Search matches the title as a case-insensitive substring.
	Search string
}

// Predicate builds the record predicate for the filter.
func (f Filter) Predicate() func(*models.CatalogRecord) bool {
	search := strings.ToLower(f.Search)
	return func(r *models.CatalogRecord) bool {
		if f.Type != "" && r.Type != f.Type {
			return false
		}
		if f.Platform != "" && !strings.EqualFold(r.Platform, f.Platform) {
			return false
		}
		if f.Collaborator != "" && !strings.EqualFold(r.Collaborator, f.Collaborator) {
			return false
		}
		if search != "" && !strings.Contains(strings.ToLower(r.Title), search) {
			return false
		}
		return true
	}
}

// Apply returns the records matching the filter, preserving input order.
func (f Filter) Apply(records []models.CatalogRecord) []models.CatalogRecord {
	pred := f.Predicate()
	out := make([]models.CatalogRecord, 0, len(records))
	for i := range records {
		if pred(&records[i]) {
			out = append(out, records[i])
		}
	}
	return out
}

// mintDateLayouts are tried in order when parsing the free-form mint date
// column for chronological sorting.
var mintDateLayouts = []string{
	"2006-01-02",
	"1/2/2006",
	"1/2/06",
	"January 2, 2006",
	"January 2006",
	"Jan 2006",
	"2006",
}

// ParseMintDate opportunistically parses a mint date string. The second
// return is false when no known layout matches; such dates sort as
// equivalent-lowest.
func ParseMintDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range mintDateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// EditionSizeValue parses the edition size column for numeric sorting.
// Non-numeric values count as zero.
func EditionSizeValue(s string) int {
	s = strings.TrimSpace(s)
	end := 0
	for end < len(s) && s[end] >= '0' && s[end] <= '9' {
		end++
	}
	if end == 0 {
		return 0
	}
	n, err := strconv.Atoi(s[:end])
	if err != nil {
		return 0
	}
	return n
}

// Comparator builds a three-way comparison for the sort field. String
// fields compare case-insensitively; edition size compares numerically and
// mint date chronologically with unparseable dates equal and lowest.
func Comparator(field SortField) func(a, b *models.CatalogRecord) int {
	switch field {
	case SortEditionSize:
		return func(a, b *models.CatalogRecord) int {
			return EditionSizeValue(a.EditionSize) - EditionSizeValue(b.EditionSize)
		}
	case SortMintDate:
		return func(a, b *models.CatalogRecord) int {
			ta, okA := ParseMintDate(a.MintDate)
			tb, okB := ParseMintDate(b.MintDate)
			switch {
			case !okA && !okB:
				return 0
			case !okA:
				return -1
			case !okB:
				return 1
			case ta.Before(tb):
				return -1
			case ta.After(tb):
				return 1
			default:
				return 0
			}
		}
	case SortType:
		return func(a, b *models.CatalogRecord) int {
			return compareFold(string(a.Type), string(b.Type))
		}
	case SortPlatform:
		return func(a, b *models.CatalogRecord) int {
			return compareFold(a.Platform, b.Platform)
		}
	default:
		return func(a, b *models.CatalogRecord) int {
			return compareFold(a.Title, b.Title)
		}
	}
}

// Sort orders records in place by the given field and direction. The sort
// is stable so equal keys keep their dataset order.
func Sort(records []models.CatalogRecord, field SortField, dir SortDirection) {
	cmp := Comparator(field)
	sort.SliceStable(records, func(i, j int) bool {
		c := cmp(&records[i], &records[j])
		if dir == Descending {
			return c > 0
		}
		return c < 0
	})
}

func compareFold(a, b string) int {
	return strings.Compare(strings.ToLower(a), strings.ToLower(b))
}
