// Package htmltable wraps goquery selections in typed table, row, and cell accessors.
// Every structural miss is reported as a *LayoutError so callers can tell a page that
// changed shape apart from a network failure.
package htmltable

import (
	"errors"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// ErrLayoutMismatch is matched by every error this package returns for a missing element.
var ErrLayoutMismatch = errors.New("layout mismatch")

// LayoutError describes where the expected structure was not found.
type LayoutError struct {
	Where  string
	Detail string
}

func (e *LayoutError) Error() string {
	return fmt.Sprintf("layout mismatch at %s: %s", e.Where, e.Detail)
}

// Is reports whether target is ErrLayoutMismatch.
func (e *LayoutError) Is(target error) bool {
	return target == ErrLayoutMismatch
}

func mismatch(where, format string, args ...any) error {
	return &LayoutError{Where: where, Detail: fmt.Sprintf(format, args...)}
}

// Table is a single <table> element.
type Table struct {
	sel *goquery.Selection
}

// FirstTableByClass returns the first table carrying class.
func FirstTableByClass(doc *goquery.Document, class string) (Table, error) {
	sel := doc.Find("table." + class).First()
	if sel.Length() == 0 {
		return Table{}, mismatch("document", "no table with class %q", class)
	}
	return Table{sel: sel}, nil
}

// Rows returns every row of the table in document order, header rows included.
// Rows of nested tables are excluded.
func (t Table) Rows() []Row {
	var rows []Row
	t.sel.Find("tr").Each(func(_ int, s *goquery.Selection) {
		if s.Closest("table").IsSelection(t.sel) {
			rows = append(rows, Row{sel: s, index: len(rows)})
		}
	})
	return rows
}

// Row is a single <tr>.
type Row struct {
	sel   *goquery.Selection
	index int
}

// Index is the zero-based position of the row within its table.
func (r Row) Index() int {
	return r.index
}

// HeaderCell returns the i-th <th> of the row.
func (r Row) HeaderCell(i int) (Cell, error) {
	return r.cell("th", i)
}

// DataCell returns the i-th <td> of the row.
func (r Row) DataCell(i int) (Cell, error) {
	return r.cell("td", i)
}

func (r Row) cell(tag string, i int) (Cell, error) {
	cells := r.sel.ChildrenFiltered(tag)
	if i < 0 || i >= cells.Length() {
		return Cell{}, mismatch(fmt.Sprintf("row %d", r.index), "want %s #%d, row has %d", tag, i, cells.Length())
	}
	return Cell{sel: cells.Eq(i)}, nil
}

// Cell is a single <th> or <td>.
type Cell struct {
	sel *goquery.Selection
}

// Text returns the trimmed text content of the cell.
func (c Cell) Text() string {
	return strings.TrimSpace(c.sel.Text())
}

// Anchor is a link found inside a cell.
type Anchor struct {
	Text string
	Href string
}

// FirstAnchor returns the first <a> inside the cell.
func (c Cell) FirstAnchor() (Anchor, error) {
	a := c.sel.Find("a").First()
	if a.Length() == 0 {
		return Anchor{}, mismatch("cell", "no anchor in %q", c.Text())
	}
	href, ok := a.Attr("href")
	if !ok {
		return Anchor{}, mismatch("cell", "anchor %q has no href", strings.TrimSpace(a.Text()))
	}
	return Anchor{Text: strings.TrimSpace(a.Text()), Href: href}, nil
}

// ListItems returns the trimmed text of each <li> of the first <ul> in the cell.
// The boolean is false when the cell holds no list.
func (c Cell) ListItems() ([]string, bool) {
	ul := c.sel.Find("ul").First()
	if ul.Length() == 0 {
		return nil, false
	}
	var items []string
	ul.Find("li").Each(func(_ int, li *goquery.Selection) {
		items = append(items, strings.TrimSpace(li.Text()))
	})
	return items, true
}
