// Package uuid generates run identifiers.
package uuid

import (
	"fmt"

	"github.com/google/uuid"
)

// Generator creates time-ordered UUIDv7 run IDs, so IDs of successive runs sort by start time.
type Generator struct{}

// New creates a new Generator.
func New() *Generator {
	return &Generator{}
}

// NewID returns a UUIDv7 string.
func (Generator) NewID() (string, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return "", fmt.Errorf("generate uuid7: %w", err)
	}
	return id.String(), nil
}

// Static always returns the same ID. Used for reproducible runs and tests.
type Static string

// NewID returns the fixed ID.
func (s Static) NewID() (string, error) {
	if s == "" {
		return "", fmt.Errorf("static run id is empty")
	}
	return string(s), nil
}
