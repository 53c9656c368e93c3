// Package queue orchestrates the ticket lifecycle: intake, window serving
// actions, and the fan-out of state changes to admin consoles and the public
// kiosk display.
package queue

import (
	"context"
	"log"
	"time"

	"deskline/internal/models"
	"deskline/internal/store"
)

// Channel names. Admin consoles subscribe per department, kiosk displays
// share one aggregated channel.
const KioskChannel = "kiosk"

func AdminChannel(department string) string {
	return "admin-" + department
}

const (
	EventTicketAdded     = "ticket-added"
	EventNextCalled      = "next-called"
	EventPreviousRecall  = "previous-recalled"
	EventQueueSkipped    = "queue-skipped"
	EventQueueTransfer   = "queue-transferred"
	EventQueueRequeueAll = "queue-requeued-all"
	EventTicketCompleted = "ticket-completed"
	EventWindowUpdated   = "window-updated"
	EventQueueCounts     = "queue-counts"
)

// Event is the structured payload delivered to subscribers.
type Event struct {
	Type          string    `json:"type"`
	Department    string    `json:"department"`
	WindowID      string    `json:"window_id,omitempty"`
	WindowName    string    `json:"window_name,omitempty"`
	TicketID      string    `json:"ticket_id,omitempty"`
	TicketNumber  int       `json:"ticket_number,omitempty"`
	CustomerName  string    `json:"customer_name,omitempty"`
	FromWindowID  string    `json:"from_window_id,omitempty"`
	ToWindowID    string    `json:"to_window_id,omitempty"`
	RequeuedCount int       `json:"requeued_count,omitempty"`
	WaitingCount  int       `json:"waiting_count,omitempty"`
	Timestamp     time.Time `json:"timestamp"`
}

// Publisher delivers events to a channel's subscribers. Implementations must
// not block: delivery is at-most-once and a slow subscriber is the
// subscriber's problem, never the caller's.
type Publisher interface {
	Publish(channel string, event Event)
}

// Announcer triggers the audible/visual call announcement. Fire-and-forget;
// failures are swallowed by the implementation.
type Announcer interface {
	Announce(ticketNumber int, windowName string)
}

type Service struct {
	store     store.TicketStore
	publisher Publisher
	announcer Announcer
}

func NewService(st store.TicketStore, publisher Publisher, announcer Announcer) *Service {
	return &Service{store: st, publisher: publisher, announcer: announcer}
}

// CreateTicket is the intake gateway entry point. The boolean reports whether
// a new ticket was created (false on an idempotent replay).
func (s *Service) CreateTicket(ctx context.Context, input store.CreateTicketInput) (models.Ticket, bool, error) {
	ticket, created, err := s.store.CreateTicket(ctx, input)
	if err != nil {
		return models.Ticket{}, false, err
	}
	if created {
		event := Event{
			Type:         EventTicketAdded,
			Department:   ticket.Department,
			TicketID:     ticket.TicketID,
			TicketNumber: ticket.Number,
			CustomerName: ticket.CustomerName,
			Timestamp:    ticket.QueuedAt,
		}
		s.publisher.Publish(AdminChannel(ticket.Department), event)
		s.publisher.Publish(KioskChannel, event)
		s.publishCounts(ctx, ticket.Department)
	}
	return ticket, created, nil
}

func (s *Service) CallNext(ctx context.Context, input store.WindowActionInput) (store.CallResult, error) {
	result, err := s.store.CallNext(ctx, input)
	if err != nil {
		return store.CallResult{}, err
	}
	s.announcer.Announce(result.Ticket.Number, result.Window.Name)
	s.publisher.Publish(AdminChannel(result.Window.Department), callEvent(EventNextCalled, result))
	s.publishCounts(ctx, result.Window.Department)
	return result, nil
}

// Recall re-announces the window's current ticket. No state changes and no
// persistent event: calling it twice in a row only repeats the announcement.
func (s *Service) Recall(ctx context.Context, windowID string) (store.CallResult, error) {
	result, err := s.store.CurrentServing(ctx, windowID)
	if err != nil {
		return store.CallResult{}, err
	}
	s.announcer.Announce(result.Ticket.Number, result.Window.Name)
	return result, nil
}

func (s *Service) Previous(ctx context.Context, input store.WindowActionInput) (store.CallResult, error) {
	result, err := s.store.Previous(ctx, input)
	if err != nil {
		return store.CallResult{}, err
	}
	s.announcer.Announce(result.Ticket.Number, result.Window.Name)
	s.publisher.Publish(AdminChannel(result.Window.Department), callEvent(EventPreviousRecall, result))
	s.publishCounts(ctx, result.Window.Department)
	return result, nil
}

func (s *Service) Skip(ctx context.Context, input store.WindowActionInput) (store.SkipResult, error) {
	result, err := s.store.Skip(ctx, input)
	if err != nil {
		return store.SkipResult{}, err
	}
	event := Event{
		Type:         EventQueueSkipped,
		Department:   result.Window.Department,
		WindowID:     result.Window.WindowID,
		WindowName:   result.Window.Name,
		TicketID:     result.Skipped.TicketID,
		TicketNumber: result.Skipped.Number,
		CustomerName: result.Skipped.CustomerName,
		Timestamp:    timestampOf(result.Skipped.SkippedAt),
	}
	s.publisher.Publish(AdminChannel(result.Window.Department), event)
	if result.Next != nil {
		s.announcer.Announce(result.Next.Number, result.Window.Name)
		next := callEvent(EventNextCalled, store.CallResult{Ticket: *result.Next, Window: result.Window})
		s.publisher.Publish(AdminChannel(result.Window.Department), next)
	}
	s.publishCounts(ctx, result.Window.Department)
	return result, nil
}

func (s *Service) Transfer(ctx context.Context, input store.TransferInput) (store.TransferResult, error) {
	result, err := s.store.Transfer(ctx, input)
	if err != nil {
		return store.TransferResult{}, err
	}
	s.announcer.Announce(result.Ticket.Number, result.ToWindow.Name)
	event := Event{
		Type:         EventQueueTransfer,
		Department:   result.FromWindow.Department,
		WindowID:     result.ToWindow.WindowID,
		WindowName:   result.ToWindow.Name,
		TicketID:     result.Ticket.TicketID,
		TicketNumber: result.Ticket.Number,
		CustomerName: result.Ticket.CustomerName,
		FromWindowID: result.FromWindow.WindowID,
		ToWindowID:   result.ToWindow.WindowID,
		Timestamp:    time.Now().UTC(),
	}
	s.publisher.Publish(AdminChannel(result.FromWindow.Department), event)
	if result.ToWindow.Department != result.FromWindow.Department {
		dest := event
		dest.Department = result.ToWindow.Department
		s.publisher.Publish(AdminChannel(result.ToWindow.Department), dest)
		s.publishCounts(ctx, result.ToWindow.Department)
	}
	s.publishCounts(ctx, result.FromWindow.Department)
	return result, nil
}

func (s *Service) RequeueAll(ctx context.Context, input store.WindowActionInput) (store.RequeueResult, error) {
	result, err := s.store.RequeueAll(ctx, input)
	if err != nil {
		return store.RequeueResult{}, err
	}
	s.publisher.Publish(AdminChannel(result.Window.Department), Event{
		Type:          EventQueueRequeueAll,
		Department:    result.Window.Department,
		WindowID:      result.Window.WindowID,
		WindowName:    result.Window.Name,
		RequeuedCount: result.Count,
		Timestamp:     time.Now().UTC(),
	})
	s.publishCounts(ctx, result.Window.Department)
	return result, nil
}

func (s *Service) Complete(ctx context.Context, input store.WindowActionInput) (store.CallResult, error) {
	result, err := s.store.Complete(ctx, input)
	if err != nil {
		return store.CallResult{}, err
	}
	s.publisher.Publish(AdminChannel(result.Window.Department), callEvent(EventTicketCompleted, result))
	s.publishCounts(ctx, result.Window.Department)
	return result, nil
}

func (s *Service) UpdateWindowState(ctx context.Context, windowID string, isOpen, isServing bool) (models.Window, error) {
	window, err := s.store.UpdateWindowState(ctx, windowID, isOpen, isServing)
	if err != nil {
		return models.Window{}, err
	}
	s.publisher.Publish(AdminChannel(window.Department), Event{
		Type:       EventWindowUpdated,
		Department: window.Department,
		WindowID:   window.WindowID,
		WindowName: window.Name,
		Timestamp:  time.Now().UTC(),
	})
	return window, nil
}

// CurrentServing is the read-only snapshot of a window's active ticket.
func (s *Service) CurrentServing(ctx context.Context, windowID string) (store.CallResult, error) {
	return s.store.CurrentServing(ctx, windowID)
}

func (s *Service) GetTicket(ctx context.Context, ticketID string) (models.Ticket, error) {
	return s.store.GetTicket(ctx, ticketID)
}

func (s *Service) ListQueue(ctx context.Context, department, serviceID string) ([]models.Ticket, error) {
	return s.store.ListQueue(ctx, department, serviceID)
}

func (s *Service) ListWindows(ctx context.Context, department string) ([]models.Window, error) {
	return s.store.ListWindows(ctx, department)
}

func (s *Service) AnnotateTicket(ctx context.Context, input store.AnnotateInput) (models.Ticket, error) {
	return s.store.AnnotateTicket(ctx, input)
}

// publishCounts pushes the department's waiting count to the kiosk channel.
// Best-effort: the mutation already committed, so a failed read is only
// logged.
func (s *Service) publishCounts(ctx context.Context, department string) {
	count, err := s.store.CountWaiting(ctx, department)
	if err != nil {
		log.Printf("waiting count for %s: %v", department, err)
		return
	}
	s.publisher.Publish(KioskChannel, Event{
		Type:         EventQueueCounts,
		Department:   department,
		WaitingCount: count,
		Timestamp:    time.Now().UTC(),
	})
}

func callEvent(eventType string, result store.CallResult) Event {
	return Event{
		Type:         eventType,
		Department:   result.Window.Department,
		WindowID:     result.Window.WindowID,
		WindowName:   result.Window.Name,
		TicketID:     result.Ticket.TicketID,
		TicketNumber: result.Ticket.Number,
		CustomerName: result.Ticket.CustomerName,
		Timestamp:    timestampOf(result.Ticket.CalledAt),
	}
}

func timestampOf(t *time.Time) time.Time {
	if t == nil {
		return time.Now().UTC()
	}
	return *t
}
