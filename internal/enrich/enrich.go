// Package enrich follows each film's detail link and fills in country and director.
package enrich

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"

	"github.com/JakeFAU/grossing-films-crawler/internal/crawler"
	"github.com/JakeFAU/grossing-films-crawler/internal/films"
	"github.com/JakeFAU/grossing-films-crawler/internal/metrics"
	"github.com/JakeFAU/grossing-films-crawler/internal/retry"
)

// ExtractFunc pulls one field out of a parsed detail page.
type ExtractFunc func(*goquery.Document) (string, error)

// Enricher fetches detail pages and extracts country and director under a retry policy.
type Enricher struct {
	fetcher crawler.Fetcher
	origin  string
	policy  retry.Policy
	logger  *zap.Logger
}

// NewEnricher builds an Enricher. Detail links are resolved against origin.
func NewEnricher(fetcher crawler.Fetcher, origin string, policy retry.Policy, logger *zap.Logger) *Enricher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Enricher{
		fetcher: fetcher,
		origin:  strings.TrimSuffix(origin, "/"),
		policy:  policy,
		logger:  logger,
	}
}

// Enrich extracts both fields of one film. A failure of one field does not affect the other.
func (e *Enricher) Enrich(ctx context.Context, film films.Film) (country, director films.FieldResult) {
	country = e.field(ctx, film.Href, films.FieldCountry, Country)
	director = e.field(ctx, film.Href, films.FieldDirector, Director)
	return country, director
}

// EnrichAll enriches every record in order. Failed fields are set to films.Sentinel and
// reported; the input slice is left untouched.
func (e *Enricher) EnrichAll(ctx context.Context, records []films.Film) ([]films.Film, []films.Failure) {
	out := make([]films.Film, 0, len(records))
	var failures []films.Failure
	for _, rec := range records {
		country, director := e.Enrich(ctx, rec)

		rec.Country = country.OrSentinel()
		if !country.OK() {
			failures = append(failures, e.fallback(rec.Title, films.FieldCountry, country.Err))
		}
		rec.Director = director.OrSentinel()
		if !director.OK() {
			failures = append(failures, e.fallback(rec.Title, films.FieldDirector, director.Err))
		}
		out = append(out, rec)
	}
	return out, failures
}

func (e *Enricher) fallback(title, field string, err error) films.Failure {
	metrics.ObserveFallback(field)
	e.logger.Warn("failed to get "+field,
		zap.String("title", title),
		zap.String("field", field),
		zap.Error(err),
	)
	return films.Failure{Title: title, Field: field, Err: err}
}

func (e *Enricher) field(ctx context.Context, href, name string, extract ExtractFunc) films.FieldResult {
	value, err := retry.Do(ctx, e.policy, func(ctx context.Context) (string, error) {
		v, err := e.fetchAndExtract(ctx, href, extract)
		metrics.ObserveDetailAttempt(name, err)
		if err != nil {
			e.logger.Debug("detail attempt failed",
				zap.String("href", href),
				zap.String("field", name),
				zap.Error(err),
			)
		}
		return v, err
	})
	return films.FieldResult{Value: value, Err: err}
}

func (e *Enricher) fetchAndExtract(ctx context.Context, href string, extract ExtractFunc) (string, error) {
	resp, err := e.fetcher.Fetch(ctx, crawler.FetchRequest{URL: e.detailURL(href)})
	if err != nil {
		return "", fmt.Errorf("fetch detail: %w", err)
	}
	metrics.ObserveFetch("detail", resp.Duration)

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(resp.Body))
	if err != nil {
		return "", fmt.Errorf("read detail html: %w", err)
	}
	return extract(doc)
}

func (e *Enricher) detailURL(href string) string {
	if strings.HasPrefix(href, "http://") || strings.HasPrefix(href, "https://") {
		return href
	}
	return e.origin + href
}
