// Package staging loads extraction-row CSVs into the staging table. It is a
// dev/ops convenience: production rows arrive from the extraction subsystem
// writing the staging table directly.
package staging

import (
	"context"
	"encoding/csv"
	"io"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/goldfish-inc/ebisu/internal/model"
	"github.com/goldfish-inc/ebisu/internal/store"
)

// required CSV columns; recorded_at is optional and defaults to load time.
var requiredColumns = []string{
	"document_id", "dataset_version_id", "ingestion_id",
	"column_name", "cleaned_value", "confidence",
}

const batchSize = 5000

// Load parses an extraction-rows CSV and bulk-inserts it into the staging
// table in batches. Returns the number of rows inserted.
func Load(ctx context.Context, st store.Store, r io.Reader) (int64, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		return 0, eris.Wrap(err, "staging: read csv header")
	}
	idx, err := headerIndex(header)
	if err != nil {
		return 0, err
	}

	var total int64
	var batch []model.ExtractionRow
	now := time.Now().UTC()
	line := 1

	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		n, err := st.InsertExtractionRows(ctx, batch)
		total += n
		batch = batch[:0]
		return err
	}

	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return total, eris.Wrapf(err, "staging: read csv line %d", line+1)
		}
		line++

		row, err := rowFromRecord(record, idx, now)
		if err != nil {
			return total, eris.Wrapf(err, "staging: csv line %d", line)
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

	zap.L().Info("staging: csv loaded", zap.Int64("rows", total))
	return total, nil
}
