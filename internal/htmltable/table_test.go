package htmltable

import (
	"errors"
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustDoc(t *testing.T, html string) *goquery.Document {
	t.Helper()
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	require.NoError(t, err)
	return doc
}

const listingHTML = `<html><body>
<table class="other"><tr><td>ignored</td></tr></table>
<table class="wikitable sortable">
<tr><th>Rank</th><th>Peak</th><th>Title</th><th>Worldwide gross</th><th>Year</th></tr>
<tr><td>1</td><td>1</td><th><i><a href="/wiki/Avatar_(2009_film)">Avatar</a></i></th><td>$2,923,710,708</td><td>2009</td></tr>
<tr><td>2</td><td>1</td><th>Untitled</th><td>$1</td><td>2019</td></tr>
</table>
<table class="wikitable"><tr><td>second</td></tr></table>
</body></html>`

func TestFirstTableByClassAndCells(t *testing.T) {
	t.Parallel()

	table, err := FirstTableByClass(mustDoc(t, listingHTML), "wikitable")
	require.NoError(t, err)

	rows := table.Rows()
	require.Len(t, rows, 3)
	assert.Equal(t, 1, rows[1].Index())

	header, err := rows[1].HeaderCell(0)
	require.NoError(t, err)
	anchor, err := header.FirstAnchor()
	require.NoError(t, err)
	assert.Equal(t, Anchor{Text: "Avatar", Href: "/wiki/Avatar_(2009_film)"}, anchor)

	gross, err := rows[1].DataCell(2)
	require.NoError(t, err)
	assert.Equal(t, "$2,923,710,708", gross.Text())

	_, err = rows[1].DataCell(4)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrLayoutMismatch))

	untitled, err := rows[2].HeaderCell(0)
	require.NoError(t, err)
	_, err = untitled.FirstAnchor()
	assert.True(t, errors.Is(err, ErrLayoutMismatch))
}

func TestFirstTableByClassMissing(t *testing.T) {
	t.Parallel()

	_, err := FirstTableByClass(mustDoc(t, `<table class="other"></table>`), "wikitable")
	require.Error(t, err)

	var layoutErr *LayoutError
	require.True(t, errors.As(err, &layoutErr))
	assert.Equal(t, "document", layoutErr.Where)
}

func TestRowsSkipNestedTables(t *testing.T) {
	t.Parallel()

	html := `<table class="wikitable">
<tr><th>h</th></tr>
<tr><td><table><tr><td>nested</td></tr></table></td></tr>
</table>`
	table, err := FirstTableByClass(mustDoc(t, html), "wikitable")
	require.NoError(t, err)
	assert.Len(t, table.Rows(), 2)
}

func TestInfoPanelLookup(t *testing.T) {
	t.Parallel()

	html := `<table class="navbox"><tr><th>Country</th><td>Wrong</td></tr></table>
<table class="infobox vevent">
<tr><th class="infobox-label">Directed by</th><td class="infobox-data"><div class="plainlist"><ul><li> Anthony Russo </li><li>Joe Russo</li></ul></div></td></tr>
<tr><th class="infobox-label">Countries</th><td class="infobox-data">United States</td></tr>
<tr><th>Orphan</th></tr>
</table>`
	panel, err := FindInfoPanel(mustDoc(t, html))
	require.NoError(t, err)

	director, err := panel.Lookup("Directed by")
	require.NoError(t, err)
	items, ok := director.ListItems()
	require.True(t, ok)
	assert.Equal(t, []string{"Anthony Russo", "Joe Russo"}, items)

	countries, err := panel.Lookup("Countries")
	require.NoError(t, err)
	_, ok = countries.ListItems()
	assert.False(t, ok)
	assert.Equal(t, "United States", countries.Text())

	_, err = panel.Lookup("Country")
	assert.True(t, errors.Is(err, ErrLayoutMismatch), "navbox table must not be consulted")

	_, err = panel.Lookup("Orphan")
	assert.True(t, errors.Is(err, ErrLayoutMismatch))
}

func TestFindInfoPanelFallsBackToFirstTable(t *testing.T) {
	t.Parallel()

	panel, err := FindInfoPanel(mustDoc(t, `<table><tr><th>Country</th><td> France </td></tr></table>`))
	require.NoError(t, err)
	cell, err := panel.Lookup("Country")
	require.NoError(t, err)
	assert.Equal(t, "France", cell.Text())

	_, err = FindInfoPanel(mustDoc(t, `<p>no tables</p>`))
	assert.True(t, errors.Is(err, ErrLayoutMismatch))
}
