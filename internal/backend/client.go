// Package backend is the row-oriented data access capability the services
// talk to: table queries and mutations, change subscriptions and object
// uploads.
package backend

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"gorm.io/gorm"
)

var (
	ErrNoFilters   = errors.New("backend: refusing to touch a table without filters")
	ErrInvalidPath = errors.New("backend: invalid object path")
)

// Filters are equality conditions; a slice value means IN.
type Filters map[string]any

type Search struct {
	Columns []string
	Term    string
}

type Query struct {
	Filters Filters
	Search  *Search
	Order   string
	Limit   int
	Offset  int
}

type EventType string

const (
	EventInsert EventType = "INSERT"
	EventUpdate EventType = "UPDATE"
	EventDelete EventType = "DELETE"
)

type Event struct {
	Table string          `json:"table"`
	Type  EventType       `json:"type"`
	Row   json.RawMessage `json:"row"`
	At    time.Time       `json:"at"`
}

func (e Event) Decode(dst any) error {
	return json.Unmarshal(e.Row, dst)
}

type Client interface {
	QueryRows(ctx context.Context, table string, q Query, dest any) error
	CountRows(ctx context.Context, table string, q Query) (int64, error)
	InsertRow(ctx context.Context, table string, row any) error
	// UpdateRow returns the number of rows changed.
	UpdateRow(ctx context.Context, table string, filters Filters, changes map[string]any) (int64, error)
	// DeleteRow needs a model value of the table's row type.
	DeleteRow(ctx context.Context, table string, filters Filters, model any) (int64, error)
	Subscribe(ctx context.Context, table string, events []EventType, fn func(Event)) (unsubscribe func(), err error)
	UploadObject(ctx context.Context, bucket, path string, data []byte) (publicURL string, err error)
	// Transaction runs fn against a client bound to one database
	// transaction. Change events are published only after commit.
	Transaction(ctx context.Context, fn func(tx Client) error) error
}

// Expr lets changes carry a SQL expression, e.g. Expr("stock - ?", 2).
func Expr(sql string, args ...any) any {
	return gorm.Expr(sql, args...)
}
