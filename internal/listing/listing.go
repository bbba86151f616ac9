// Package listing extracts partial film records from the highest-grossing films table.
package listing

import (
	"bytes"
	"context"
	"fmt"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"

	"github.com/JakeFAU/grossing-films-crawler/internal/crawler"
	"github.com/JakeFAU/grossing-films-crawler/internal/films"
	"github.com/JakeFAU/grossing-films-crawler/internal/htmltable"
	"github.com/JakeFAU/grossing-films-crawler/internal/metrics"
)

// TableClass marks the data table on the listing page.
const TableClass = "wikitable"

// Column layout of a data row. The title lives in the row's only header cell; the
// remaining columns are data cells (rank, peak, gross, year).
const (
	titleHeaderCell = 0
	grossDataCell   = 2
	yearDataCell    = 3
)

// Extractor fetches the listing page and turns its table into records.
type Extractor struct {
	fetcher crawler.Fetcher
	logger  *zap.Logger
}

// NewExtractor builds an Extractor.
func NewExtractor(fetcher crawler.Fetcher, logger *zap.Logger) *Extractor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Extractor{fetcher: fetcher, logger: logger}
}

// Extract fetches listingURL and parses it. Any failure is fatal for the run.
func (e *Extractor) Extract(ctx context.Context, listingURL string) ([]films.Film, error) {
	resp, err := e.fetcher.Fetch(ctx, crawler.FetchRequest{URL: listingURL})
	if err != nil {
		return nil, fmt.Errorf("fetch listing %s: %w", listingURL, err)
	}
	metrics.ObserveFetch("listing", resp.Duration)

	records, err := Parse(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("parse listing %s: %w", listingURL, err)
	}
	metrics.ObserveListed(len(records))
	e.logger.Info("listing extracted",
		zap.String("url", listingURL),
		zap.Int("films", len(records)),
	)
	return records, nil
}

// Parse reads the first wikitable of body, skipping its header row.
func Parse(body []byte) ([]films.Film, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("read listing html: %w", err)
	}
	table, err := htmltable.FirstTableByClass(doc, TableClass)
	if err != nil {
		return nil, err
	}

	rows := table.Rows()
	if len(rows) == 0 {
		return nil, &htmltable.LayoutError{Where: "listing table", Detail: "no rows"}
	}
	records := make([]films.Film, 0, len(rows)-1)
	for _, row := range rows[1:] {
		rec, err := parseRow(row)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, nil
}

func parseRow(row htmltable.Row) (films.Film, error) {
	header, err := row.HeaderCell(titleHeaderCell)
	if err != nil {
		return films.Film{}, err
	}
	anchor, err := header.FirstAnchor()
	if err != nil {
		return films.Film{}, fmt.Errorf("row %d title: %w", row.Index(), err)
	}
	gross, err := row.DataCell(grossDataCell)
	if err != nil {
		return films.Film{}, err
	}
	year, err := row.DataCell(yearDataCell)
	if err != nil {
		return films.Film{}, err
	}

	rec, err := films.New(anchor.Text, year.Text(), gross.Text(), anchor.Href)
	if err != nil {
		return films.Film{}, &htmltable.LayoutError{
			Where:  fmt.Sprintf("row %d", row.Index()),
			Detail: err.Error(),
		}
	}
	return rec, nil
}
