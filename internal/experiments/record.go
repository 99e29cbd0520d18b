package experiments

import (
	"fmt"
	"strings"

	"research-rag/internal/ingest"
)

const maxIDLen = 120

// Record is one experiment row rendered as text.
type Record struct {
	ID   string
	Row  int
	Text string
}

// RowError reports a row that could not become a record.
type RowError struct {
	Row    int    `json:"row"`
	Reason string `json:"reason"`
}

func (e RowError) Error() string {
	return fmt.Sprintf("row %d: %s", e.Row, e.Reason)
}

// Build renders every row of table. The identifier joins the sanitized values
// of the first IDColumns columns with "_", skipping missing ones. Rows whose
// identifying cells are all missing are reported instead of rendered.
func Build(table Table, schema Schema) ([]Record, []RowError) {
	idCols := min(schema.IDColumns, len(table.Columns))

	var records []Record
	var rowErrs []RowError
	for _, row := range table.Rows {
		var parts []string
		for _, v := range row.Cells[:idCols] {
			if schema.missing(v) {
				continue
			}
			parts = append(parts, ingest.SanitizeTitle(v, maxIDLen))
		}
		if len(parts) == 0 {
			rowErrs = append(rowErrs, RowError{Row: row.Number, Reason: "identifying columns are empty"})
			continue
		}

		id := strings.Join(parts, "_")
		if len(id) > maxIDLen {
			id = strings.Trim(id[:maxIDLen], "_-")
		}
		records = append(records, Record{
			ID:   id,
			Row:  row.Number,
			Text: render(table.Columns, row.Cells, schema),
		})
	}
	return records, rowErrs
}

// render writes one "column: value" line per non-missing cell.
func render(columns, cells []string, schema Schema) string {
	var b strings.Builder
	for i, col := range columns {
		v := strings.TrimSpace(cells[i])
		if schema.missing(v) {
			continue
		}
		v = strings.Join(strings.Fields(v), " ")
		fmt.Fprintf(&b, "%s: %s\n", col, v)
	}
	return strings.TrimSuffix(b.String(), "\n")
}
