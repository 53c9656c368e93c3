package store

import (
	"context"
	"encoding/json"
	"time"

	"deskline/internal/models"
)

type CreateTicketInput struct {
	RequestID    string
	Department   string
	ServiceID    string
	CustomerName string
	Role         string
	IsPriority   bool
	QueuedAt     time.Time
}

type WindowActionInput struct {
	WindowID   string
	StaffID    string
	OccurredAt time.Time
}

type TransferInput struct {
	WindowID   string
	ToWindowID string
	StaffID    string
	OccurredAt time.Time
}

type AnnotateInput struct {
	TicketID string
	Rating   *int
	Remarks  string
}

// CallResult carries the activated ticket together with the window it now
// belongs to, so callers can render feedback without a second read.
type CallResult struct {
	Ticket models.Ticket
	Window models.Window
}

type SkipResult struct {
	Skipped models.Ticket
	// Next is nil when the window had no further waiting ticket.
	Next   *models.Ticket
	Window models.Window
}

type TransferResult struct {
	Ticket     models.Ticket
	FromWindow models.Window
	ToWindow   models.Window
}

type RequeueResult struct {
	Count  int
	Window models.Window
}

type TicketStore interface {
	CreateTicket(ctx context.Context, input CreateTicketInput) (models.Ticket, bool, error)
	GetTicket(ctx context.Context, ticketID string) (models.Ticket, error)
	ListQueue(ctx context.Context, department, serviceID string) ([]models.Ticket, error)
	CountWaiting(ctx context.Context, department string) (int, error)

	CallNext(ctx context.Context, input WindowActionInput) (CallResult, error)
	CurrentServing(ctx context.Context, windowID string) (CallResult, error)
	Previous(ctx context.Context, input WindowActionInput) (CallResult, error)
	Skip(ctx context.Context, input WindowActionInput) (SkipResult, error)
	Transfer(ctx context.Context, input TransferInput) (TransferResult, error)
	RequeueAll(ctx context.Context, input WindowActionInput) (RequeueResult, error)
	Complete(ctx context.Context, input WindowActionInput) (CallResult, error)

	AnnotateTicket(ctx context.Context, input AnnotateInput) (models.Ticket, error)
	ListWindows(ctx context.Context, department string) ([]models.Window, error)
	UpdateWindowState(ctx context.Context, windowID string, isOpen, isServing bool) (models.Window, error)
}

type OutboxEvent struct {
	EventID   string          `json:"event_id"`
	Channel   string          `json:"channel"`
	Type      string          `json:"type"`
	Payload   json.RawMessage `json:"payload"`
	CreatedAt time.Time       `json:"created_at"`
}

type RelayOffset struct {
	LastEventTime time.Time
	LastEventID   string
}

type OutboxStore interface {
	ListOutboxEvents(ctx context.Context, after RelayOffset, limit int) ([]OutboxEvent, error)
	GetRelayOffset(ctx context.Context, name string) (RelayOffset, error)
	UpdateRelayOffset(ctx context.Context, name string, offset RelayOffset) error
}
