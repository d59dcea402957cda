package reader

import (
	"bytes"
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/ledongthuc/pdf"

	"github.com/FACorreiaa/sales-insights/internal/domain/sales/dataset"
)

// pdfCell is a run of text on one line, positioned by its left edge.
type pdfCell struct {
	X    float64
	Text string
}

func parsePDF(data []byte, _ Options) (*dataset.Dataset, error) {
	tables, err := extractPDFTables(data)
	if err != nil {
		return nil, err
	}
	return assembleTables(tables)
}

// extractPDFTables returns every table found on every page. A table is a run of
// consecutive text lines that split into two or more cells.
func extractPDFTables(data []byte) (tables [][][]string, err error) {
	defer func() {
		if r := recover(); r != nil {
			tables, err = nil, fmt.Errorf("read pdf: %v", r)
		}
	}()

	doc, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("open pdf: %w", err)
	}

	for i := 1; i <= doc.NumPage(); i++ {
		page := doc.Page(i)
		if page.V.IsNull() {
			continue
		}

		var current [][]pdfCell
		for _, line := range textLines(page.Content().Text) {
			cells := splitCells(line)
			if len(cells) >= 2 {
				current = append(current, cells)
				continue
			}
			if len(current) > 0 {
				tables = append(tables, alignColumns(current))
				current = nil
			}
		}
		if len(current) > 0 {
			tables = append(tables, alignColumns(current))
		}
	}

	if len(tables) == 0 {
		return nil, ErrNoTables
	}
	return tables, nil
}

// textLines groups glyphs into lines by baseline, top of the page first.
// Glyph order inside a line follows the content stream.
func textLines(texts []pdf.Text) [][]pdf.Text {
	items := make([]pdf.Text, 0, len(texts))
	for _, t := range texts {
		if t.S != "" {
			items = append(items, t)
		}
	}
	sort.SliceStable(items, func(i, j int) bool { return items[i].Y > items[j].Y })

	var lines [][]pdf.Text
	for _, t := range items {
		n := len(lines)
		if n > 0 {
			last := lines[n-1]
			if math.Abs(last[0].Y-t.Y) <= fontSize(t)*0.5 {
				lines[n-1] = append(last, t)
				continue
			}
		}
		lines = append(lines, []pdf.Text{t})
	}
	return lines
}

// splitCells merges the glyphs of one line into cells.
//
// Fonts without a width table report W == 0 and every glyph of a shown string
// shares the string's X, so a change of X starts a new cell. With widths, a gap
// wider than about one and a half characters starts a new cell and a narrower
// one is a word space.
func splitCells(line []pdf.Text) []pdfCell {
	items := append([]pdf.Text(nil), line...)
	sort.SliceStable(items, func(i, j int) bool { return items[i].X < items[j].X })

	var (
		cells []pdfCell
		b     strings.Builder
		start float64
		prev  pdf.Text
	)
	flush := func() {
		if s := strings.Join(strings.Fields(b.String()), " "); s != "" {
			cells = append(cells, pdfCell{X: start, Text: s})
		}
		b.Reset()
	}

	for i, t := range items {
		size := fontSize(t)
		switch {
		case i == 0:
			start = t.X
		case prev.W == 0:
			if t.X-prev.X > 0.5 {
				flush()
				start = t.X
			}
		default:
			gap := t.X - (prev.X + prev.W)
			switch {
			case gap > size*1.5:
				flush()
				start = t.X
			case gap > size*0.15:
				b.WriteByte(' ')
			}
		}
		b.WriteString(t.S)
		prev = t
	}
	flush()
	return cells
}

func fontSize(t pdf.Text) float64 {
	if t.FontSize <= 0 {
		return 10
	}
	return t.FontSize
}

// alignColumns places every cell in the column whose left edge is nearest,
// using the widest line as the column template.
func alignColumns(lines [][]pdfCell) [][]string {
	var anchors []float64
	for _, l := range lines {
		if len(l) > len(anchors) {
			anchors = anchors[:0]
			for _, c := range l {
				anchors = append(anchors, c.X)
			}
		}
	}

	out := make([][]string, len(lines))
	for i, l := range lines {
		row := make([]string, len(anchors))
		for _, c := range l {
			col := nearest(anchors, c.X)
			if row[col] != "" {
				row[col] += " " + c.Text
			} else {
				row[col] = c.Text
			}
		}
		out[i] = row
	}
	return out
}

func nearest(anchors []float64, x float64) int {
	best, dist := 0, math.Inf(1)
	for i, a := range anchors {
		if d := math.Abs(a - x); d < dist {
			best, dist = i, d
		}
	}
	return best
}
