package out

import (
	"context"
	"time"
)

// Employee event types
const (
	EventEmployeeCreated = "employee.created"
	EventEmployeeUpdated = "employee.updated"
	EventEmployeeDeleted = "employee.deleted"
)

// EmployeeEvent describes a committed change to an employee record.
type EmployeeEvent struct {
	ID         string    `json:"id"`
	Type       string    `json:"type"`
	RecordID   string    `json:"record_id"`
	EmployeeID string    `json:"employee_id"`
	ActorID    string    `json:"actor_id,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
}

// EventPublisher announces employee changes to downstream consumers.
type EventPublisher interface {
	PublishEmployeeEvent(ctx context.Context, event *EmployeeEvent) error
}
