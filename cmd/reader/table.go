package main

import (
	"io"
	"strings"

	"github.com/mattn/go-runewidth"
)

type column struct {
	title string
	width int
}

// table renders fixed-width columns measured in display cells, so wide scripts
// line up in a terminal.
type table struct {
	cols []column
	rows [][]string
}

func newTable(cols ...column) *table {
	return &table{cols: cols}
}

func (t *table) add(cells ...string) {
	t.rows = append(t.rows, cells)
}

func (t *table) render(w io.Writer) error {
	var sb strings.Builder
	header := make([]string, len(t.cols))
	rule := make([]string, len(t.cols))
	for i, c := range t.cols {
		header[i] = c.title
		rule[i] = strings.Repeat("-", c.width)
	}
	t.writeRow(&sb, header)
	t.writeRow(&sb, rule)
	for _, row := range t.rows {
		t.writeRow(&sb, row)
	}
	_, err := io.WriteString(w, sb.String())
	return err
}

func (t *table) writeRow(sb *strings.Builder, cells []string) {
	for i, c := range t.cols {
		cell := ""
		if i < len(cells) {
			cell = strings.Join(strings.Fields(cells[i]), " ")
		}
		cell = runewidth.Truncate(cell, c.width, "…")
		if i < len(t.cols)-1 {
			cell = runewidth.FillRight(cell, c.width) + "  "
		}
		sb.WriteString(cell)
	}
	sb.WriteString("\n")
}
