package models

import "time"

type Ticket struct {
	TicketID           string     `json:"ticket_id"`
	Number             int        `json:"number"`
	Department         string     `json:"department"`
	ServiceID          string     `json:"service_id"`
	WindowID           *string    `json:"window_id,omitempty"`
	CustomerName       string     `json:"customer_name,omitempty"`
	Role               string     `json:"role,omitempty"`
	IsPriority         bool       `json:"is_priority"`
	Status             string     `json:"status"`
	IsCurrentlyServing bool       `json:"is_currently_serving"`
	ProcessedBy        *string    `json:"processed_by,omitempty"`
	QueuedAt           time.Time  `json:"queued_at"`
	CalledAt           *time.Time `json:"called_at,omitempty"`
	ServedAt           *time.Time `json:"served_at,omitempty"`
	CompletedAt        *time.Time `json:"completed_at,omitempty"`
	SkippedAt          *time.Time `json:"skipped_at,omitempty"`
	Rating             *int       `json:"rating,omitempty"`
	Remarks            string     `json:"remarks,omitempty"`
}

const (
	StatusWaiting   = "waiting"
	StatusServing   = "serving"
	StatusCompleted = "completed"
	StatusSkipped   = "skipped"
	StatusCancelled = "cancelled"
)
