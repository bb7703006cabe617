package driver

import (
	"database/sql/driver"
	"io"

	"github.com/opteryx-data/opteryx-go/client"
	"github.com/opteryx-data/opteryx-go/core"
)

var _ driver.Rows = (*rows)(nil)

type rows struct {
	cursor *client.Cursor
	stream core.ResultStream
}

func (r *rows) Columns() []string {
	return r.stream.Header()
}

func (r *rows) Close() error {
	r.stream.Close()
	r.cursor.Close()
	return nil
}

func (r *rows) Next(dest []driver.Value) error {
	if !r.stream.HasNext() {
		return io.EOF
	}

	row, err := r.stream.Next()
	if err != nil {
		return err
	}
	if row == nil {
		return io.EOF
	}

	for i := range dest {
		if i < len(row) {
			dest[i] = row[i]
			continue
		}
		dest[i] = nil
	}
	return nil
}
