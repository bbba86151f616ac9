// Package export publishes the film dataset as a JSON document to one or more blob stores.
package export

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"

	"go.uber.org/zap"

	"github.com/JakeFAU/grossing-films-crawler/internal/crawler"
	"github.com/JakeFAU/grossing-films-crawler/internal/films"
)

const (
	// DefaultName is the object path of the dataset inside each store.
	DefaultName = "films.json"
	contentType = "application/json"
)

// Result describes a completed export.
type Result struct {
	URIs    []string `json:"uris"`
	SHA256  string   `json:"sha256"`
	Records int      `json:"records"`
	Bytes   int      `json:"bytes"`
}

// Exporter writes the same payload to every configured store.
type Exporter struct {
	name   string
	hasher crawler.Hasher
	stores []crawler.BlobStore
	logger *zap.Logger
}

// New builds an Exporter. At least one store is required; stores are written in order.
func New(name string, hasher crawler.Hasher, logger *zap.Logger, stores ...crawler.BlobStore) (*Exporter, error) {
	if name == "" {
		name = DefaultName
	}
	if hasher == nil {
		return nil, fmt.Errorf("hasher is required")
	}
	if len(stores) == 0 {
		return nil, fmt.Errorf("at least one blob store is required")
	}
	for i, s := range stores {
		if s == nil {
			return nil, fmt.Errorf("blob store %d is nil", i)
		}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Exporter{name: name, hasher: hasher, stores: stores, logger: logger}, nil
}

// Encode renders records as a JSON array. A nil slice encodes as [] rather than null.
func Encode(records []films.Film) ([]byte, error) {
	if records == nil {
		records = []films.Film{}
	}
	data, err := json.Marshal(records)
	if err != nil {
		return nil, fmt.Errorf("encode films: %w", err)
	}
	return data, nil
}

// Publish encodes records and overwrites the dataset in every store. The first failing store
// aborts the export.
func (e *Exporter) Publish(ctx context.Context, records []films.Film) (Result, error) {
	data, err := Encode(records)
	if err != nil {
		return Result{}, err
	}
	sum, err := e.hasher.Hash(data)
	if err != nil {
		return Result{}, fmt.Errorf("hash export: %w", err)
	}

	res := Result{SHA256: sum, Records: len(records), Bytes: len(data)}
	for _, store := range e.stores {
		uri, err := store.PutObject(ctx, e.name, contentType, bytes.NewReader(data))
		if err != nil {
			return Result{}, fmt.Errorf("write %s: %w", e.name, err)
		}
		e.logger.Info("films exported", zap.String("uri", uri), zap.Int("records", len(records)))
		res.URIs = append(res.URIs, uri)
	}
	return res, nil
}
