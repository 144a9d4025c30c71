package ingest

import (
	"fmt"
	"io"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// ReadHTMLTable reads the first <table> of an HTML export. Header cells come from
// <thead>, or from the first row when there is none.
func ReadHTMLTable(name string, r io.Reader) (*Table, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, fmt.Errorf("parse %s html: %w", name, err)
	}
	table := doc.Find("table").First()
	if table.Length() == 0 {
		return nil, fmt.Errorf("parse %s html: no <table> element", name)
	}

	cells := func(tr *goquery.Selection) []string {
		var out []string
		tr.Find("th, td").Each(func(_ int, cell *goquery.Selection) {
			out = append(out, strings.TrimSpace(cell.Text()))
		})
		return out
	}

	t := &Table{Name: name}
	rows := table.Find("tr")
	if head := table.Find("thead tr").First(); head.Length() > 0 {
		t.Header = cells(head)
		rows = table.Find("tbody tr")
		if rows.Length() == 0 {
			rows = table.Find("tr").Not("thead tr")
		}
	} else if rows.Length() > 0 {
		t.Header = cells(rows.First())
		rows = rows.Slice(1, rows.Length())
	}
	if len(t.Header) == 0 {
		return nil, fmt.Errorf("parse %s html: table has no header row", name)
	}
	rows.Each(func(_ int, tr *goquery.Selection) {
		if c := cells(tr); len(c) > 0 {
			t.Rows = append(t.Rows, c)
		}
	})
	return t, nil
}
