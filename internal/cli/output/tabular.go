package output

import (
	"io"
	"sort"
	"strings"
	"text/tabwriter"
)

// Table is tabular data with an optional title line.
type Table struct {
	Title   string
	Headers []string
	Rows    [][]string
}

// NewTable creates a table with the given title and headers.
func NewTable(title string, headers ...string) *Table {
	return &Table{Title: title, Headers: headers}
}

func (t *Table) Render(w io.Writer) error {
	return t.RenderWithOptions(w, false)
}

// RenderWithOptions renders the table; noHeaders drops the title and
// header lines for scripting.
func (t *Table) RenderWithOptions(w io.Writer, noHeaders bool) error {
	if !noHeaders && t.Title != "" {
		if _, err := io.WriteString(w, t.Title+"\n"); err != nil {
			return err
		}
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	if !noHeaders && len(t.Headers) > 0 {
		io.WriteString(tw, strings.Join(t.Headers, "\t")+"\n")
	}
	for _, row := range t.Rows {
		io.WriteString(tw, strings.Join(row, "\t")+"\n")
	}
	return tw.Flush()
}

// AddRow appends a row.
func (t *Table) AddRow(cells ...string) {
	t.Rows = append(t.Rows, cells)
}

// SetHeaders replaces the headers.
func (t *Table) SetHeaders(headers ...string) {
	t.Headers = headers
}

// SortBy orders rows by the given column.
func (t *Table) SortBy(col int) {
	sort.SliceStable(t.Rows, func(i, j int) bool {
		if col >= len(t.Rows[i]) || col >= len(t.Rows[j]) {
			return false
		}
		return t.Rows[i][col] < t.Rows[j][col]
	})
}
