package database

import (
	"context"
	"database/sql"
	"sync/atomic"
)

// Querier is the read/write contract repos run their statements through.
// Both *sql.DB and *Conn satisfy it.
type Querier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// Conn wraps a *sql.DB and counts every store round trip made through it.
// Handlers create one per request so queries_count in responses is exact.
type Conn struct {
	db *sql.DB
	n  atomic.Int64
}

func NewConn(db *sql.DB) *Conn {
	return &Conn{db: db}
}

func (c *Conn) QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	c.n.Add(1)
	return c.db.QueryContext(ctx, query, args...)
}

func (c *Conn) QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row {
	c.n.Add(1)
	return c.db.QueryRowContext(ctx, query, args...)
}

func (c *Conn) ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error) {
	c.n.Add(1)
	return c.db.ExecContext(ctx, query, args...)
}

// Count reports how many statements have gone through this Conn.
func (c *Conn) Count() int {
	return int(c.n.Load())
}
