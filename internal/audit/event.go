// Package audit records table mutations as events on a RabbitMQ queue and
// stores them in the audit_log table from the worker side.
package audit

import (
	"context"
	"time"
)

type Action string

const (
	ActionCreateTable Action = "create_table"
	ActionDropTable   Action = "drop_table"
	ActionInsertRow   Action = "insert_row"
	ActionUpdateRow   Action = "update_row"
	ActionDeleteRow   Action = "delete_row"
)

// Actor is the authenticated user behind a mutation. The zero value means
// the request carried no identity.
type Actor struct {
	UserID   int
	Username string
}

type Event struct {
	Action     Action    `json:"action"`
	Table      string    `json:"table"`
	RowID      *int64    `json:"row_id,omitempty"`
	Username   string    `json:"username"`
	UserID     int       `json:"user_id"`
	OccurredAt time.Time `json:"occurred_at"`
}

func NewEvent(action Action, table string, actor Actor) Event {
	return Event{
		Action:     action,
		Table:      table,
		Username:   actor.Username,
		UserID:     actor.UserID,
		OccurredAt: time.Now().UTC(),
	}
}

// WithRow attaches the affected row id.
func (e Event) WithRow(id int64) Event {
	e.RowID = &id
	return e
}

func (e Event) Valid() bool {
	return e.Action != "" && e.Table != ""
}

type Publisher interface {
	Publish(ctx context.Context, event Event) error
}

// NoopPublisher drops events; used when no broker is configured.
type NoopPublisher struct{}

func (NoopPublisher) Publish(context.Context, Event) error { return nil }
