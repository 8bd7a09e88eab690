package index

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
)

// ctxCheckInterval is how many rows are parsed between context checks.
const ctxCheckInterval = 4096

// ReadCSV builds a Store from a comma-separated index with a header row.
//
// An empty input (no header) is an error; a header without data rows yields
// an empty Store. The first malformed row aborts the load.
func ReadCSV(ctx context.Context, r io.Reader) (*Store, error) {
	cr := csv.NewReader(r)
	cr.ReuseRecord = true
	cr.FieldsPerRecord = -1 // width is checked against the header per row

	columns, err := cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("index: empty csv: %w", ErrNoVectorColumns)
		}
		return nil, fmt.Errorf("index: reading csv header: %w", err)
	}
	header, err := ParseHeader(append([]string(nil), columns...))
	if err != nil {
		return nil, err
	}

	b := NewBuilder(header)
	for {
		if b.rows%ctxCheckInterval == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
		fields, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, &MalformedRowError{Row: b.rows + 1, cause: err}
		}
		if err := b.Add(fields); err != nil {
			return nil, err
		}
	}
	return b.Build(), nil
}
