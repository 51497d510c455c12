package catalog

import (
	"encoding/csv"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/parquet-go/parquet-go"

	"github.com/bryanbrinkman/brinkman-nft-catalog/internal/models"
)

// Loader handles loading of the artwork catalog dataset.
type Loader struct {
	datasetPath string
}

// NewLoader creates a new catalog loader.
func NewLoader(datasetPath string) *Loader {
	return &Loader{
		datasetPath: datasetPath,
	}
}

// parquetRow mirrors one catalog row in Parquet exports of the dataset.
type parquetRow struct {
	Title           string `parquet:"title"`
	Type            string `parquet:"type"`
	Platform        string `parquet:"platform"`
	Collaborator    string `parquet:"collaborator"`
	MintDate        string `parquet:"mint_date"`
	EditionSize     string `parquet:"edition_size"`
	ContractAddress string `parquet:"contract_address"`
	TokenID         string `parquet:"token_id"`
	ImageURL        string `parquet:"image_url"`
	IPFS            string `parquet:"ipfs"`
	Link            string `parquet:"link"`
}

// Load loads records from a dataset file (CSV or Parquet).
func (l *Loader) Load() ([]models.CatalogRecord, error) {
	ext := strings.ToLower(filepath.Ext(l.datasetPath))

	switch ext {
	case ".csv":
		return l.loadCSV()
	case ".parquet":
		return l.loadParquet()
	default:
		return nil, fmt.Errorf("unsupported file format: %s (supported: .csv, .parquet)", ext)
	}
}

// loadCSV loads records from a CSV file. The first column of the header row
// is unnamed and holds the artwork title; the remaining columns are matched
// by normalized header name.
func (l *Loader) loadCSV() ([]models.CatalogRecord, error) {
	slog.Debug("Opening CSV file", "path", l.datasetPath)

	file, err := os.Open(l.datasetPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open dataset file: %w", err)
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.FieldsPerRecord = -1 // tolerate ragged rows

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("failed to read CSV header: %w", err)
	}

	columns := make(map[string]int, len(header))
	for i, name := range header {
		if i == 0 {
			// Leading unnamed column is the title.
			continue
		}
		columns[normalizeHeader(name)] = i
	}

	field := func(row []string, names ...string) string {
		for _, name := range names {
			if idx, ok := columns[name]; ok && idx < len(row) {
				return strings.TrimSpace(row[idx])
			}
		}
		return ""
	}

	var records []models.CatalogRecord
	lineNum := 1
	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to parse CSV at line %d: %w", lineNum+1, err)
		}
		lineNum++

		if len(row) == 0 || strings.TrimSpace(row[0]) == "" {
			slog.Warn("Skipping row without a title", "line", lineNum)
			continue
		}

		record := buildRecord(rowFields{
			Title:           strings.TrimSpace(row[0]),
			Type:            field(row, "type"),
			Platform:        field(row, "platform"),
			Collaborator:    field(row, "collaborator", "collab"),
			MintDate:        field(row, "mintdate", "date"),
			EditionSize:     field(row, "editionsize", "edition"),
			ContractAddress: field(row, "contractaddress", "contract"),
			TokenID:         field(row, "tokenid", "token"),
			ImageURL:        field(row, "imageurl", "image"),
			IPFS:            field(row, "ipfs", "ipfsimage"),
			Link:            field(row, "link", "externallink", "url"),
		})
		records = append(records, record)
	}

	slog.Debug("Finished reading CSV file", "total_records", len(records))

	return records, nil
}

// loadParquet loads records from a Parquet export of the dataset.
func (l *Loader) loadParquet() ([]models.CatalogRecord, error) {
	slog.Debug("Opening Parquet file", "path", l.datasetPath)

	file, err := os.Open(l.datasetPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open parquet file: %w", err)
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		return nil, fmt.Errorf("failed to stat file: %w", err)
	}

	pf, err := parquet.OpenFile(file, info.Size())
	if err != nil {
		return nil, fmt.Errorf("failed to open parquet: %w", err)
	}

	slog.Debug("Parquet file opened", "num_rows", pf.NumRows(), "num_row_groups", len(pf.RowGroups()))

	reader := parquet.NewGenericReader[parquetRow](pf)
	defer reader.Close()

	var records []models.CatalogRecord
	rows := make([]parquetRow, 128)

	for {
		n, err := reader.Read(rows)
		for _, row := range rows[:n] {
			if strings.TrimSpace(row.Title) == "" {
				slog.Warn("Skipping parquet row without a title")
				continue
			}
			records = append(records, buildRecord(rowFields{
				Title:           strings.TrimSpace(row.Title),
				Type:            row.Type,
				Platform:        row.Platform,
				Collaborator:    row.Collaborator,
				MintDate:        row.MintDate,
				EditionSize:     row.EditionSize,
				ContractAddress: row.ContractAddress,
				TokenID:         row.TokenID,
				ImageURL:        row.ImageURL,
				IPFS:            row.IPFS,
				Link:            row.Link,
			}))
		}
		if err != nil {
			break
		}
	}

	slog.Debug("Finished reading Parquet file", "total_records", len(records))

	return records, nil
}

// rowFields carries one raw dataset row before validation.
type rowFields struct {
	Title           string
	Type            string
	Platform        string
	Collaborator    string
	MintDate        string
	EditionSize     string
	ContractAddress string
	TokenID         string
	ImageURL        string
	IPFS            string
	Link            string
}

// buildRecord validates a raw row into a typed CatalogRecord. Contract
// address and token ID are only kept as a pair; a lone value cannot key a
// marketplace lookup.
func buildRecord(raw rowFields) models.CatalogRecord {
	contract := strings.TrimSpace(raw.ContractAddress)
	token := strings.TrimSpace(raw.TokenID)
	if (contract == "") != (token == "") {
		slog.Warn("Dropping unpaired marketplace identifiers",
			"title", raw.Title, "contract", contract, "token_id", token)
		contract, token = "", ""
	}

	return models.CatalogRecord{
		ID:              uuid.NewString(),
		Title:           raw.Title,
		Type:            models.ParseArtworkType(raw.Type),
		Platform:        strings.TrimSpace(raw.Platform),
		Collaborator:    strings.TrimSpace(raw.Collaborator),
		MintDate:        strings.TrimSpace(raw.MintDate),
		EditionSize:     strings.TrimSpace(raw.EditionSize),
		ContractAddress: contract,
		TokenID:         token,
		DirectImageURL:  strings.TrimSpace(raw.ImageURL),
		IPFSImageRef:    strings.TrimSpace(raw.IPFS),
		ExternalLink:    strings.TrimSpace(raw.Link),
	}
}

// normalizeHeader folds a header cell to a comparable key: lowercase with
// spaces, underscores and dashes removed.
func normalizeHeader(name string) string {
	name = strings.ToLower(strings.TrimSpace(name))
	return strings.Map(func(r rune) rune {
		switch r {
		case ' ', '_', '-':
			return -1
		}
		return r
	}, name)
}
