package experiments

import (
	"fmt"
	"strings"

	"github.com/tealeg/xlsx/v2"
)

// Table is a sheet read below its header row. Every row has len(Columns) cells.
type Table struct {
	Columns []string
	Rows    []Row
}

// Row is one data row with its 1-based sheet row number.
type Row struct {
	Number int
	Cells  []string
}

// ReadXLSX reads the sheet selected by schema. Rows with no content are dropped.
func ReadXLSX(path string, schema Schema) (Table, error) {
	if err := schema.Validate(); err != nil {
		return Table{}, err
	}

	f, err := xlsx.OpenFile(path)
	if err != nil {
		return Table{}, fmt.Errorf("failed to open workbook %s: %w", path, err)
	}

	sheet, err := selectSheet(f, schema.Sheet)
	if err != nil {
		return Table{}, err
	}
	if len(sheet.Rows) < schema.HeaderRow {
		return Table{}, fmt.Errorf("sheet %q has no header row %d", sheet.Name, schema.HeaderRow)
	}

	columns := rowToStrings(sheet.Rows[schema.HeaderRow-1])
	for len(columns) > 0 && strings.TrimSpace(columns[len(columns)-1]) == "" {
		columns = columns[:len(columns)-1]
	}
	if len(columns) == 0 {
		return Table{}, fmt.Errorf("sheet %q header row %d is empty", sheet.Name, schema.HeaderRow)
	}
	for i, c := range columns {
		columns[i] = strings.TrimSpace(c)
		if columns[i] == "" {
			columns[i] = fmt.Sprintf("column_%d", i+1)
		}
	}

	table := Table{Columns: columns}
	for i := schema.HeaderRow; i < len(sheet.Rows); i++ {
		if sheet.Rows[i] == nil {
			continue
		}
		cells := make([]string, len(columns))
		copy(cells, rowToStrings(sheet.Rows[i]))
		if blank(cells) {
			continue
		}
		table.Rows = append(table.Rows, Row{Number: i + 1, Cells: cells})
	}
	return table, nil
}

func selectSheet(f *xlsx.File, name string) (*xlsx.Sheet, error) {
	if name != "" {
		sheet, ok := f.Sheet[name]
		if !ok {
			return nil, fmt.Errorf("sheet %q not found", name)
		}
		return sheet, nil
	}
	if len(f.Sheets) == 0 {
		return nil, fmt.Errorf("workbook has no sheets")
	}
	return f.Sheets[0], nil
}

func rowToStrings(row *xlsx.Row) []string {
	if row == nil {
		return nil
	}
	cells := make([]string, len(row.Cells))
	for j, cell := range row.Cells {
		cells[j] = cell.String()
	}
	return cells
}

func blank(cells []string) bool {
	for _, c := range cells {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}
