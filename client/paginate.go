package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"

	"github.com/opteryx-data/opteryx-go/core"
	"github.com/opteryx-data/opteryx-go/core/builders"
)

// paginator retrieves every result page for a completed statement and
// assembles them into a single row stream.
type paginator struct {
	fetch    func(ctx context.Context, handle string, numRows, offset int) (*resultPage, error)
	pageSize int
}

func newPaginator(s *Session, pageSize int) *paginator {
	if pageSize < 1 {
		pageSize = 1
	}
	return &paginator{
		fetch:    s.statementResults,
		pageSize: pageSize,
	}
}

// materialize fetches pages at increasing offsets until exhausted and
// returns the assembled rows as a stream. The column header comes from the
// first page carrying metadata, or is derived from a column-oriented
// payload when no metadata is ever reported.
func (p *paginator) materialize(ctx context.Context, handle string) (core.ResultStream, error) {
	var (
		header    core.Header
		rows      []core.Row
		totalRows *int64
		offset    int
	)

	for {
		page, err := p.fetch(ctx, handle, p.pageSize, offset)
		if err != nil {
			return nil, err
		}

		if totalRows == nil && page.TotalRows != nil {
			totalRows = page.TotalRows
		}

		// first-seen metadata wins, later pages are ignored
		if header == nil && len(page.Columns) > 0 {
			header = headerFromColumns(page.Columns)
		}

		pageRows, derived, err := decodePageData(page.Data)
		if err != nil {
			return nil, err
		}
		if header == nil && derived != nil {
			header = derived
		}
		rows = append(rows, pageRows...)

		// progress guard: a page that gains nothing terminates the loop
		gained := len(rows) - offset
		if gained <= 0 {
			break
		}
		offset += gained

		if totalRows != nil && int64(offset) >= *totalRows {
			break
		}
		if !page.hasNextPage() && (totalRows == nil || int64(offset) >= *totalRows) {
			break
		}
	}

	logger.Debug().Str("handle", handle).Int("rows", len(rows)).Msg("result set materialized")

	if header == nil {
		header = core.Header{}
	}

	next, hasNext := builders.NextRows(rows)
	return builders.NewResultStreamBuilder().
		WithNextFunc(next, hasNext).
		WithHeader(header).
		Build(), nil
}

func headerFromColumns(columns []pageColumn) core.Header {
	header := make(core.Header, len(columns))
	for i, col := range columns {
		if col.Name == "" {
			header[i] = fmt.Sprintf("col%d", i)
			continue
		}
		header[i] = col.Name
	}
	return header
}

// decodePageData decodes the polymorphic data payload of one page. The
// payload is either column-oriented (a list of column records, each holding
// a name and that column's values) or row-oriented (a list of row tuples);
// anything else is an error. For column-oriented payloads the derived header
// is returned alongside the rows.
func decodePageData(data json.RawMessage) (rows []core.Row, derived core.Header, err error) {
	if len(data) == 0 {
		return nil, nil, nil
	}

	var elements []json.RawMessage
	if err := json.Unmarshal(data, &elements); err != nil {
		return nil, nil, core.NewDataError(err, "malformed result payload")
	}
	if len(elements) == 0 {
		return nil, nil, nil
	}

	switch firstJSONByte(elements[0]) {
	case '{':
		return decodeColumnarData(data)
	case '[':
		if err := json.Unmarshal(data, &rows); err != nil {
			return nil, nil, core.NewDataError(err, "malformed row-oriented payload")
		}
		return rows, nil, nil
	default:
		return nil, nil, core.NewDataError(nil, "unrecognized result payload shape")
	}
}

// decodeColumnarData transposes per-column value sequences into row tuples,
// using the shortest observed column length as the page's row count.
func decodeColumnarData(data json.RawMessage) ([]core.Row, core.Header, error) {
	var columns []pageColumn
	if err := json.Unmarshal(data, &columns); err != nil {
		return nil, nil, core.NewDataError(err, "malformed column-oriented payload")
	}

	values := make([][]any, len(columns))
	for i, col := range columns {
		if col.Values == nil {
			return nil, nil, core.NewDataError(nil, "unrecognized result payload shape: column record without values")
		}
		if err := json.Unmarshal(col.Values, &values[i]); err != nil {
			return nil, nil, core.NewDataError(err, "malformed values for column %q", col.Name)
		}
	}

	count := 0
	for i, vals := range values {
		if i == 0 || len(vals) < count {
			count = len(vals)
		}
	}

	rows := make([]core.Row, 0, count)
	for i := 0; i < count; i++ {
		row := make(core.Row, len(values))
		for j := range values {
			row[j] = values[j][i]
		}
		rows = append(rows, row)
	}

	return rows, headerFromColumns(columns), nil
}

func firstJSONByte(raw json.RawMessage) byte {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return 0
	}
	return trimmed[0]
}
