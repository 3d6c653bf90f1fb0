package staging

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"
	"go.uber.org/zap"

	"github.com/goldfish-inc/ebisu/internal/model"
	"github.com/goldfish-inc/ebisu/internal/store"
)

// XLSXOptions selects which sheet of a workbook holds the extraction rows.
type XLSXOptions struct {
	SheetIndex int    // default 0
	SheetName  string // if set, overrides SheetIndex
}

// LoadXLSX parses an extraction-rows XLSX workbook and bulk-inserts it into
// the staging table. The sheet must carry the same columns as the CSV
// loader. Returns the number of rows inserted.
func LoadXLSX(ctx context.Context, st store.Store, path string, opts XLSXOptions) (int64, error) {
	f, err := xlsx.OpenFile(path)
	if err != nil {
		return 0, eris.Wrapf(err, "staging: open xlsx %s", path)
	}

	sheet, err := pickSheet(f, opts)
	if err != nil {
		return 0, err
	}
	if len(sheet.Rows) == 0 {
		return 0, eris.New("staging: xlsx sheet is empty")
	}

	idx, err := headerIndex(rowToStrings(sheet.Rows[0]))
	if err != nil {
		return 0, err
	}

	var total int64
	var batch []model.ExtractionRow
	now := time.Now().UTC()

	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		n, err := st.InsertExtractionRows(ctx, batch)
		total += n
		batch = batch[:0]
		return err
	}

	for i, sheetRow := range sheet.Rows[1:] {
		record := rowToStrings(sheetRow)
		if blankRecord(record) {
			continue
		}
		row, err := rowFromRecord(record, idx, now)
		if err != nil {
			return total, eris.Wrapf(err, "staging: xlsx row %d", i+2)
		}
		batch = append(batch, row)
		if len(batch) >= batchSize {
			if err := flush(); err != nil {
				return total, err
			}
		}
	}
	if err := flush(); err != nil {
		return total, err
	}

	zap.L().Info("staging: xlsx loaded",
		zap.String("path", path),
		zap.Int64("rows", total))
	return total, nil
}

func pickSheet(f *xlsx.File, opts XLSXOptions) (*xlsx.Sheet, error) {
	if opts.SheetName != "" {
		sheet, ok := f.Sheet[opts.SheetName]
		if !ok {
			return nil, eris.Errorf("staging: xlsx sheet %q not found", opts.SheetName)
		}
		return sheet, nil
	}
	if opts.SheetIndex >= len(f.Sheets) {
		return nil, eris.Errorf("staging: xlsx sheet index %d out of range (file has %d sheets)",
			opts.SheetIndex, len(f.Sheets))
	}
	return f.Sheets[opts.SheetIndex], nil
}

func rowToStrings(row *xlsx.Row) []string {
	cells := make([]string, len(row.Cells))
	for j, cell := range row.Cells {
		cells[j] = cell.String()
	}
	return cells
}

func blankRecord(record []string) bool {
	for _, v := range record {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}

// headerIndex maps lowercase column names to positions and verifies the
// required columns are present.
func headerIndex(header []string) (map[string]int, error) {
	idx := make(map[string]int, len(header))
	for i, col := range header {
		idx[strings.ToLower(strings.TrimSpace(col))] = i
	}
	for _, col := range requiredColumns {
		if _, ok := idx[col]; !ok {
			return nil, eris.Errorf("staging: missing required column %q", col)
		}
	}
	return idx, nil
}

// rowFromRecord builds an extraction row from one record. recorded_at is
// optional and falls back to defaultTime.
func rowFromRecord(record []string, idx map[string]int, defaultTime time.Time) (model.ExtractionRow, error) {
	field := func(name string) string {
		i := idx[name]
		if i >= len(record) {
			return ""
		}
		return strings.TrimSpace(record[i])
	}

	confidence, err := strconv.ParseFloat(field("confidence"), 64)
	if err != nil {
		return model.ExtractionRow{}, eris.Wrap(err, "parse confidence")
	}

	row := model.ExtractionRow{
		DocumentID:       field("document_id"),
		DatasetVersionID: field("dataset_version_id"),
		IngestionID:      field("ingestion_id"),
		ColumnName:       field("column_name"),
		CleanedValue:     field("cleaned_value"),
		Confidence:       confidence,
		RecordedAt:       defaultTime,
	}
	if i, ok := idx["recorded_at"]; ok && i < len(record) && strings.TrimSpace(record[i]) != "" {
		ts, err := time.Parse(time.RFC3339, strings.TrimSpace(record[i]))
		if err != nil {
			return model.ExtractionRow{}, eris.Wrap(err, "parse recorded_at")
		}
		row.RecordedAt = ts
	}
	return row, nil
}
