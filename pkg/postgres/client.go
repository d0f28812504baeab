package postgres

import (
	"github.com/jackc/pgx/v5/pgxpool"
)

// Client wraps the shared connection pool. Statement preparation is
// left to pgx, which caches prepared statements per connection
// automatically.
type Client struct {
	DB *pgxpool.Pool
}

// NewClient creates a new PostgreSQL client.
func NewClient(db *pgxpool.Pool) *Client {
	return &Client{DB: db}
}
