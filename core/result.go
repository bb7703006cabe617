package core

import "fmt"

var ErrInvalidRange = func(from, to int) error { return fmt.Errorf("invalid selection range: %d ... %d", from, to) }

// Result is the materialized form of a statement's result set: the column
// header plus every row assembled from all retrieved pages. It is replaced
// wholesale on each execution and wiped when its owner closes.
type Result struct {
	header Header
	rows   []Row
}

// NewResult drains the given stream into a materialized result.
// The stream is closed on return.
func NewResult(iter ResultStream) (*Result, error) {
	defer iter.Close()

	r := &Result{
		header: iter.Header(),
		rows:   make([]Row, 0),
	}

	for iter.HasNext() {
		row, err := iter.Next()
		if err != nil {
			return nil, err
		}
		r.rows = append(r.rows, row)
	}

	return r, nil
}

func NewResultFromRows(header Header, rows []Row) *Result {
	return &Result{
		header: header,
		rows:   rows,
	}
}

func (r *Result) Wipe() {
	r.header = Header{}
	r.rows = []Row{}
}

func (r *Result) Len() int {
	return len(r.rows)
}

func (r *Result) Header() Header {
	return r.header
}

// Rows returns the row range [from, to). Bounds are clamped to the buffer.
func (r *Result) Rows(from, to int) ([]Row, error) {
	if from < 0 || to < from {
		return nil, ErrInvalidRange(from, to)
	}

	length := len(r.rows)
	if from > length {
		from = length
	}
	if to > length {
		to = length
	}

	return r.rows[from:to], nil
}
