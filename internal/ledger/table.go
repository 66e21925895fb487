package ledger

import (
	"encoding/csv"
	"errors"
	"io"
	"path/filepath"
	"strings"

	"go-dokan-pos/internal/apperr"

	"github.com/xuri/excelize/v2"
)

// table is an uploaded sheet: a header row mapped to column indexes, then data rows.
type table struct {
	cols map[string]int
	rows [][]string
}

// readTable loads a .csv or .xlsx upload. Header names are matched case-insensitively.
func readTable(filename string, r io.Reader) (*table, error) {
	var (
		all [][]string
		err error
	)
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".xlsx":
		all, err = readXLSX(r)
	case ".csv", "":
		cr := csv.NewReader(r)
		cr.FieldsPerRecord = -1
		cr.TrimLeadingSpace = true
		all, err = cr.ReadAll()
	default:
		return nil, apperr.Validation("file", "unsupported file type %q, use .csv or .xlsx", filepath.Ext(filename))
	}
	if err != nil {
		return nil, apperr.Validation("file", "cannot read upload: %v", err)
	}
	if len(all) == 0 {
		return nil, apperr.Validation("file", "upload is empty")
	}

	t := &table{cols: make(map[string]int), rows: all[1:]}
	for i, h := range all[0] {
		h = strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")))
		if h != "" {
			t.cols[h] = i
		}
	}
	return t, nil
}

func readXLSX(r io.Reader) ([][]string, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, errors.New("workbook has no sheets")
	}
	return f.GetRows(sheets[0])
}

func (t *table) require(names ...string) error {
	var missing []string
	for _, n := range names {
		if _, ok := t.cols[n]; !ok {
			missing = append(missing, n)
		}
	}
	if len(missing) > 0 {
		return apperr.Validation("file", "missing required columns: %s", strings.Join(missing, ", "))
	}
	return nil
}

// get returns the trimmed cell for column name, or "" when the row is short.
func (t *table) get(row []string, name string) string {
	i, ok := t.cols[name]
	if !ok || i >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[i])
}

func blank(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}
