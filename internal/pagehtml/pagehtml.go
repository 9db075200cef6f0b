// Package pagehtml reads the portal's office list and slot grid out of rendered markup.
package pagehtml

import (
	"fmt"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/example/cita-scheduler/internal/domain/cita"
)

// ParseOptions returns the <option> entries of the first <select> in markup, in page order.
func ParseOptions(markup string) ([]cita.OfficeOption, error) {
	doc, err := html.Parse(strings.NewReader(markup))
	if err != nil {
		return nil, fmt.Errorf("parse options: %w", err)
	}
	sel := first(doc, func(n *html.Node) bool { return n.DataAtom == atom.Select })
	if sel == nil {
		return nil, fmt.Errorf("no select element")
	}
	var out []cita.OfficeOption
	for _, n := range all(sel, func(n *html.Node) bool { return n.DataAtom == atom.Option }) {
		label := collectText(n)
		value, ok := attr(n, "value")
		if !ok {
			value = label
		}
		out = append(out, cita.OfficeOption{Value: strings.TrimSpace(value), Label: label})
	}
	return out, nil
}

// Grid is the date by time slot table. Dates keep their header order; each
// row has one cell per date column.
type Grid struct {
	Dates []string
	Rows  []Row
}

type Row struct {
	Time string
	// Cells holds the free slot id per column, "" for a taken cell.
	Cells []string
}

// ParseGrid reads a slot table: header cells with a class starting with
// "colFecha" name the date columns, body rows start with a <th> time followed
// by <td> cells which hold an element whose id starts with "HUECO" when free.
func ParseGrid(markup string) (Grid, error) {
	doc, err := html.Parse(strings.NewReader(markup))
	if err != nil {
		return Grid{}, fmt.Errorf("parse grid: %w", err)
	}
	var g Grid
	if thead := first(doc, isAtom(atom.Thead)); thead != nil {
		for _, n := range all(thead, func(n *html.Node) bool {
			c, _ := attr(n, "class")
			return n.Type == html.ElementNode && strings.HasPrefix(c, "colFecha")
		}) {
			g.Dates = append(g.Dates, collectText(n))
		}
	}
	if len(g.Dates) == 0 {
		return Grid{}, fmt.Errorf("no date columns")
	}

	tbody := first(doc, isAtom(atom.Tbody))
	if tbody == nil {
		return g, nil
	}
	for tr := tbody.FirstChild; tr != nil; tr = tr.NextSibling {
		if tr.DataAtom != atom.Tr {
			continue
		}
		var row Row
		for c := tr.FirstChild; c != nil; c = c.NextSibling {
			switch c.DataAtom {
			case atom.Th:
				if row.Time == "" {
					row.Time = collectText(c)
				}
			case atom.Td:
				id := ""
				if h := first(c, func(n *html.Node) bool {
					v, _ := attr(n, "id")
					return strings.HasPrefix(v, "HUECO")
				}); h != nil {
					id, _ = attr(h, "id")
				}
				row.Cells = append(row.Cells, id)
			}
		}
		g.Rows = append(g.Rows, row)
	}
	return g, nil
}

// FirstFree scans rows top to bottom and keeps the first free slot of every
// date column. Rows before tr.Min are skipped and the scan ends at the first
// row after tr.Max or once every column has a slot.
func (g Grid) FirstFree(tr cita.TimeRange) map[string]cita.Slot {
	out := make(map[string]cita.Slot, len(g.Dates))
	for _, row := range g.Rows {
		if tr.TooEarly(row.Time) {
			continue
		}
		if tr.TooLate(row.Time) {
			break
		}
		for i, id := range row.Cells {
			if i >= len(g.Dates) || id == "" {
				continue
			}
			date := g.Dates[i]
			if _, ok := out[date]; ok {
				continue
			}
			out[date] = cita.Slot{Date: date, Time: row.Time, ID: id}
		}
		if len(out) == len(g.Dates) {
			break
		}
	}
	return out
}

func isAtom(a atom.Atom) func(*html.Node) bool {
	return func(n *html.Node) bool { return n.Type == html.ElementNode && n.DataAtom == a }
}

func first(root *html.Node, match func(*html.Node) bool) *html.Node {
	if match(root) {
		return root
	}
	for c := root.FirstChild; c != nil; c = c.NextSibling {
		if n := first(c, match); n != nil {
			return n
		}
	}
	return nil
}

func all(root *html.Node, match func(*html.Node) bool) []*html.Node {
	var out []*html.Node
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if match(n) {
			out = append(out, n)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(root)
	return out
}

func attr(n *html.Node, key string) (string, bool) {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val, true
		}
	}
	return "", false
}

// collectText joins the text nodes below n with single spaces.
func collectText(n *html.Node) string {
	var sb strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			sb.WriteString(n.Data)
			sb.WriteByte(' ')
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return strings.Join(strings.Fields(sb.String()), " ")
}
