// Package films defines the film record shared by the listing, enrichment, and persistence stages.
package films

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// Sentinel is stored in a field whose automated extraction permanently failed.
const Sentinel = "NONE"

// Field names used when reporting enrichment failures.
const (
	FieldCountry  = "country"
	FieldDirector = "director"
)

// ErrInvalidRecord is returned when a listing row cannot form a record.
var ErrInvalidRecord = errors.New("invalid film record")

// Film is one entry of the highest-grossing list. The JSON layout is what the static
// front end reads, so the keys must stay stable.
type Film struct {
	Year     string `json:"year"`
	Title    string `json:"title"`
	Revenue  int64  `json:"revenue"`
	Href     string `json:"href"`
	Country  string `json:"country"`
	Director string `json:"director"`
}

// New builds a partial record from listing cells. Country and director are filled later.
func New(title, year, revenueText, href string) (Film, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return Film{}, fmt.Errorf("%w: title is required", ErrInvalidRecord)
	}
	if strings.TrimSpace(href) == "" {
		return Film{}, fmt.Errorf("%w: detail link is required for %q", ErrInvalidRecord, title)
	}
	revenue, err := ParseRevenue(revenueText)
	if err != nil {
		return Film{}, fmt.Errorf("%w: revenue for %q: %v", ErrInvalidRecord, title, err)
	}
	return Film{
		Year:    strings.TrimSpace(year),
		Title:   title,
		Revenue: revenue,
		Href:    href,
	}, nil
}

// ParseRevenue keeps every ASCII digit of text and parses the concatenation.
// Digits inside footnote markers ("[1]") are kept too, which inflates the amount;
// callers that need the true figure must strip markers first.
func ParseRevenue(text string) (int64, error) {
	digits := strings.Map(func(r rune) rune {
		if r >= '0' && r <= '9' {
			return r
		}
		return -1
	}, text)
	if digits == "" {
		return 0, fmt.Errorf("no digits in %q", text)
	}
	n, err := strconv.ParseInt(digits, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("parse %q: %w", digits, err)
	}
	return n, nil
}

// FieldResult is the outcome of extracting one optional field.
type FieldResult struct {
	Value string
	Err   error
}

// OK reports whether extraction produced a usable value.
func (r FieldResult) OK() bool {
	return r.Err == nil && r.Value != ""
}

// OrSentinel returns the value, or Sentinel when extraction failed.
func (r FieldResult) OrSentinel() string {
	if !r.OK() {
		return Sentinel
	}
	return r.Value
}

// Failure records a field that fell back to Sentinel.
type Failure struct {
	Title string
	Field string
	Err   error
}

func (f Failure) String() string {
	return fmt.Sprintf("%s: %s", f.Title, f.Field)
}

// Complete reports whether both enrichment fields are set (a value or Sentinel).
func (f Film) Complete() bool {
	return f.Country != "" && f.Director != ""
}
