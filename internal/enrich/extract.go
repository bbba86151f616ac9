package enrich

import (
	"errors"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/JakeFAU/grossing-films-crawler/internal/htmltable"
)

// Info panel labels.
const (
	LabelCountry   = "Country"
	LabelCountries = "Countries"
	LabelDirector  = "Directed by"
)

const listSeparator = ", "

// ErrEmptyValue is returned when a label exists but its value cell holds no text.
var ErrEmptyValue = errors.New("empty value")

// Country reads the country from the info panel. The singular label is taken as plain
// text; the plural label may hold a list, joined with ", ".
func Country(doc *goquery.Document) (string, error) {
	panel, err := htmltable.FindInfoPanel(doc)
	if err != nil {
		return "", err
	}
	if cell, err := panel.Lookup(LabelCountry); err == nil {
		return nonEmpty(LabelCountry, cell.Text())
	}
	cell, err := panel.Lookup(LabelCountries)
	if err != nil {
		return "", err
	}
	return nonEmpty(LabelCountries, listOrText(cell))
}

// Director reads the director(s) from the info panel, joining a list with ", ".
func Director(doc *goquery.Document) (string, error) {
	panel, err := htmltable.FindInfoPanel(doc)
	if err != nil {
		return "", err
	}
	cell, err := panel.Lookup(LabelDirector)
	if err != nil {
		return "", err
	}
	return nonEmpty(LabelDirector, listOrText(cell))
}

func listOrText(cell htmltable.Cell) string {
	if items, ok := cell.ListItems(); ok {
		return strings.Join(items, listSeparator)
	}
	return cell.Text()
}

func nonEmpty(label, value string) (string, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return "", fmt.Errorf("%s: %w", label, ErrEmptyValue)
	}
	return value, nil
}
