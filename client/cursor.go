package client

import (
	"context"

	"github.com/google/uuid"

	"github.com/opteryx-data/opteryx-go/core"
	"github.com/opteryx-data/opteryx-go/core/builders"
)

// Cursor executes statements on a session and buffers their results. The
// row buffer and description are only ever replaced as a unit, after a
// statement succeeds; fetch operations never touch the network.
//
// A cursor is not safe for concurrent use by multiple goroutines.
type Cursor struct {
	session *Session
	id      string
	poller  *poller

	result    *core.Result
	rowIndex  int
	rowCount  int
	arraySize int
	handle    string
	closed    bool
}

func newCursor(s *Session) *Cursor {
	return &Cursor{
		session:   s,
		id:        uuid.NewString(),
		poller:    newPoller(s),
		rowCount:  -1,
		arraySize: 1,
	}
}

func (c *Cursor) checkClosed() error {
	if c.closed {
		return core.NewProgrammingError("cursor is closed")
	}
	return c.session.checkClosed()
}

// Execute submits the statement with positional arguments bound to
// generated named parameters, polls it to completion and materializes the
// full result set.
func (c *Cursor) Execute(ctx context.Context, query string, args ...any) error {
	query, params := bindPositional(query, args)
	return c.execute(ctx, query, params)
}

// ExecuteNamed submits the statement with the given named parameters passed
// through verbatim.
func (c *Cursor) ExecuteNamed(ctx context.Context, query string, params map[string]any) error {
	return c.execute(ctx, query, params)
}

// ExecuteMany executes the statement once per positional argument set.
func (c *Cursor) ExecuteMany(ctx context.Context, query string, argSets [][]any) error {
	if err := c.checkClosed(); err != nil {
		return err
	}
	for _, args := range argSets {
		if err := c.Execute(ctx, query, args...); err != nil {
			return err
		}
	}
	return nil
}

func (c *Cursor) execute(ctx context.Context, query string, params map[string]any) error {
	if err := c.checkClosed(); err != nil {
		return err
	}

	c.result = nil
	c.rowIndex = 0
	c.rowCount = -1
	c.handle = ""

	handle, err := c.session.submitStatement(ctx, query, params)
	if err != nil {
		return err
	}
	c.handle = handle
	logger.Debug().Str("cursor", c.id).Str("handle", handle).Msg("statement submitted")

	if err := c.poller.wait(ctx, handle); err != nil {
		return err
	}

	stream, err := newPaginator(c.session, c.arraySize).materialize(ctx, handle)
	if err != nil {
		return err
	}
	result, err := core.NewResult(stream)
	if err != nil {
		return err
	}

	c.result = result
	c.rowIndex = 0
	c.rowCount = result.Len()
	return nil
}

// buffered returns the buffered row range without consuming it.
func (c *Cursor) buffered(from, to int) []core.Row {
	if c.result == nil {
		return nil
	}
	rows, err := c.result.Rows(from, to)
	if err != nil {
		return nil
	}
	return rows
}

// FetchOne returns the next buffered row, or a nil row once the result set
// is exhausted. Repeated calls at the end keep returning a nil row.
func (c *Cursor) FetchOne() (core.Row, error) {
	if err := c.checkClosed(); err != nil {
		return nil, err
	}

	rows := c.buffered(c.rowIndex, c.rowIndex+1)
	if len(rows) == 0 {
		return nil, nil
	}
	c.rowIndex++
	return rows[0], nil
}

// FetchMany returns up to size rows from the current position. A size below
// one falls back to the cursor's array size.
func (c *Cursor) FetchMany(size int) ([]core.Row, error) {
	if err := c.checkClosed(); err != nil {
		return nil, err
	}

	if size < 1 {
		size = c.arraySize
	}
	rows := c.buffered(c.rowIndex, c.rowIndex+size)
	c.rowIndex += len(rows)
	return rows, nil
}

// FetchAll returns and consumes all remaining buffered rows.
func (c *Cursor) FetchAll() ([]core.Row, error) {
	if err := c.checkClosed(); err != nil {
		return nil, err
	}

	if c.result == nil {
		return nil, nil
	}
	rows := c.buffered(c.rowIndex, c.result.Len())
	c.rowIndex += len(rows)
	return rows, nil
}

// Rows consumes the remaining buffered rows as a result stream.
func (c *Cursor) Rows() (core.ResultStream, error) {
	rows, err := c.FetchAll()
	if err != nil {
		return nil, err
	}

	next, hasNext := builders.NextRows(rows)
	return builders.NewResultStreamBuilder().
		WithNextFunc(next, hasNext).
		WithHeader(c.Description()).
		Build(), nil
}

// Description returns the ordered column names of the last result set, or
// nil before the first successful execution.
func (c *Cursor) Description() core.Header {
	if c.result == nil {
		return nil
	}
	return c.result.Header()
}

// RowCount returns the number of rows in the last result set, or -1 before
// the first successful execution.
func (c *Cursor) RowCount() int {
	return c.rowCount
}

// ArraySize is the requested page size for result retrieval.
func (c *Cursor) ArraySize() int {
	return c.arraySize
}

func (c *Cursor) SetArraySize(size int) {
	if size < 1 {
		size = 1
	}
	c.arraySize = size
}

// SetInputSizes is a no-op kept for interface parity.
func (c *Cursor) SetInputSizes(sizes ...any) {}

// SetOutputSize is a no-op kept for interface parity.
func (c *Cursor) SetOutputSize(size, column int) {}

// Close tears the cursor down: the buffer and description are cleared and
// every subsequent operation fails with a programming error.
func (c *Cursor) Close() {
	if c.closed {
		return
	}
	c.closed = true
	if c.result != nil {
		c.result.Wipe()
		c.result = nil
	}
}
