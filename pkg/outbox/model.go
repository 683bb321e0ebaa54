// Package outbox implements the transactional-outbox half that lives outside
// the database: the relay loop that drains pending event rows and the
// dispatcher that turns them into Kafka messages. Rows are written by the
// order unit of work; see the order postgres package for the store side.
package outbox

import "time"

type Status string

const (
	StatusPending    Status = "pending"
	StatusInProgress Status = "in_progress"
	StatusSent       Status = "sent"
	StatusFailed     Status = "failed"
)

type Event struct {
	ID            int64
	AggregateType string
	AggregateID   string
	Type          string
	Payload       []byte
	Traceparent   string
	CreatedAt     time.Time
	Status        Status
	RetryCount    int
	LastError     *string
}
