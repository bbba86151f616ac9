package htmltable

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// InfoPanel is the key/value table shown at the top of a detail page.
type InfoPanel struct {
	sel *goquery.Selection
}

// FindInfoPanel returns the infobox table, or the first table of the page when no
// infobox class is present.
func FindInfoPanel(doc *goquery.Document) (InfoPanel, error) {
	sel := doc.Find("table.infobox").First()
	if sel.Length() == 0 {
		sel = doc.Find("table").First()
	}
	if sel.Length() == 0 {
		return InfoPanel{}, mismatch("document", "no info panel table")
	}
	return InfoPanel{sel: sel}, nil
}

// Lookup returns the value cell of the row whose header text equals label exactly.
func (p InfoPanel) Lookup(label string) (Cell, error) {
	var header *goquery.Selection
	p.sel.Find("th").EachWithBreak(func(_ int, th *goquery.Selection) bool {
		if strings.TrimSpace(th.Text()) == label {
			header = th
			return false
		}
		return true
	})
	if header == nil {
		return Cell{}, mismatch("info panel", "no label %q", label)
	}
	value := header.NextAllFiltered("td").First()
	if value.Length() == 0 {
		return Cell{}, mismatch("info panel", "label %q has no value cell", label)
	}
	return Cell{sel: value}, nil
}
