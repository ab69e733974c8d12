package sources

import (
	"fmt"
	"io"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// ParseHTMLTable reads the first <table> matching selector.
// The header comes from <th> cells (or the first row), data rows from <td> cells.
func ParseHTMLTable(name string, r io.Reader, selector string) (*Table, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, fmt.Errorf("parse %s html: %w", name, err)
	}

	if selector == "" {
		selector = "table"
	}
	table := doc.Find(selector).First()
	if table.Length() == 0 {
		return nil, fmt.Errorf("parse %s html: no element matches %q", name, selector)
	}

	var header []string
	var rows [][]string

	table.Find("tr").Each(func(i int, row *goquery.Selection) {
		if ths := row.Find("th"); ths.Length() > 0 && header == nil {
			header = cellTexts(ths)
			return
		}

		cells := row.Find("td")
		if cells.Length() == 0 {
			return
		}
		if header == nil {
			header = cellTexts(cells)
			return
		}
		rows = append(rows, cellTexts(cells))
	})

	if header == nil {
		return nil, fmt.Errorf("parse %s html: table has no rows", name)
	}

	return NewTable(name, header, rows), nil
}

func cellTexts(cells *goquery.Selection) []string {
	out := make([]string, 0, cells.Length())
	cells.Each(func(_ int, c *goquery.Selection) {
		out = append(out, strings.TrimSpace(c.Text()))
	})
	return out
}
