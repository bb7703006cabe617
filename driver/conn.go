package driver

import (
	"context"
	"database/sql/driver"

	"github.com/opteryx-data/opteryx-go/client"
	"github.com/opteryx-data/opteryx-go/core"
)

var (
	_ driver.Conn              = (*conn)(nil)
	_ driver.QueryerContext    = (*conn)(nil)
	_ driver.ExecerContext     = (*conn)(nil)
	_ driver.NamedValueChecker = (*conn)(nil)
)

type conn struct {
	session *client.Session
}

func (c *conn) Prepare(query string) (driver.Stmt, error) {
	return &stmt{conn: c, query: query}, nil
}

func (c *conn) Close() error {
	c.session.Close()
	return nil
}

// Begin returns a no-op transaction: the backing service is read-only.
func (c *conn) Begin() (driver.Tx, error) {
	return &tx{session: c.session}, nil
}

// CheckNamedValue accepts every value as-is; parameters are serialized to
// JSON for the wire, not converted to driver.Value types.
func (c *conn) CheckNamedValue(*driver.NamedValue) error {
	return nil
}

func (c *conn) QueryContext(ctx context.Context, query string, args []driver.NamedValue) (driver.Rows, error) {
	cursor, err := c.session.Cursor()
	if err != nil {
		return nil, err
	}

	if err := executeCursor(ctx, cursor, query, args); err != nil {
		cursor.Close()
		return nil, err
	}

	stream, err := cursor.Rows()
	if err != nil {
		cursor.Close()
		return nil, err
	}

	return &rows{cursor: cursor, stream: stream}, nil
}

func (c *conn) ExecContext(ctx context.Context, query string, args []driver.NamedValue) (driver.Result, error) {
	cursor, err := c.session.Cursor()
	if err != nil {
		return nil, err
	}
	defer cursor.Close()

	if err := executeCursor(ctx, cursor, query, args); err != nil {
		return nil, err
	}

	return &result{rowsAffected: int64(cursor.RowCount())}, nil
}

func executeCursor(ctx context.Context, cursor *client.Cursor, query string, args []driver.NamedValue) error {
	named, positional, err := splitArgs(args)
	if err != nil {
		return err
	}
	if named != nil {
		return cursor.ExecuteNamed(ctx, query, named)
	}
	return cursor.Execute(ctx, query, positional...)
}

// splitArgs separates named from positional arguments. Mixing both styles
// in one statement is not supported.
func splitArgs(args []driver.NamedValue) (map[string]any, []any, error) {
	var (
		named      map[string]any
		positional []any
	)

	for _, arg := range args {
		if arg.Name != "" {
			if named == nil {
				named = make(map[string]any, len(args))
			}
			named[arg.Name] = arg.Value
			continue
		}
		positional = append(positional, arg.Value)
	}

	if named != nil && positional != nil {
		return nil, nil, core.NewNotSupportedError("mixing named and positional parameters")
	}

	return named, positional, nil
}

type tx struct {
	session *client.Session
}

func (t *tx) Commit() error {
	return t.session.Commit()
}

func (t *tx) Rollback() error {
	return t.session.Rollback()
}

type result struct {
	rowsAffected int64
}

func (r *result) LastInsertId() (int64, error) {
	return 0, core.NewNotSupportedError("LastInsertId is not supported")
}

func (r *result) RowsAffected() (int64, error) {
	return r.rowsAffected, nil
}
