package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"deskline/internal/models"
	"deskline/internal/store"

	"github.com/google/uuid"
)

// Queue is the surface the HTTP layer needs from the orchestrator.
type Queue interface {
	CreateTicket(ctx context.Context, input store.CreateTicketInput) (models.Ticket, bool, error)
	CallNext(ctx context.Context, input store.WindowActionInput) (store.CallResult, error)
	Recall(ctx context.Context, windowID string) (store.CallResult, error)
	Previous(ctx context.Context, input store.WindowActionInput) (store.CallResult, error)
	Skip(ctx context.Context, input store.WindowActionInput) (store.SkipResult, error)
	Transfer(ctx context.Context, input store.TransferInput) (store.TransferResult, error)
	RequeueAll(ctx context.Context, input store.WindowActionInput) (store.RequeueResult, error)
	Complete(ctx context.Context, input store.WindowActionInput) (store.CallResult, error)
	CurrentServing(ctx context.Context, windowID string) (store.CallResult, error)
	UpdateWindowState(ctx context.Context, windowID string, isOpen, isServing bool) (models.Window, error)
	GetTicket(ctx context.Context, ticketID string) (models.Ticket, error)
	ListQueue(ctx context.Context, department, serviceID string) ([]models.Ticket, error)
	ListWindows(ctx context.Context, department string) ([]models.Window, error)
	AnnotateTicket(ctx context.Context, input store.AnnotateInput) (models.Ticket, error)
}

type Handler struct {
	queue Queue
}

func NewHandler(queue Queue) *Handler {
	return &Handler{queue: queue}
}

func (h *Handler) Routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", h.handleHealth)
	mux.HandleFunc("/api/tickets", h.handleTickets)
	mux.HandleFunc("/api/tickets/", h.handleTicketByID)
	mux.HandleFunc("/api/queue", h.handleQueue)
	mux.HandleFunc("/api/windows", h.handleWindows)
	mux.HandleFunc("/api/windows/", h.handleWindowActions)
	return mux
}

func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	w.WriteHeader(http.StatusOK)
}

type createTicketRequest struct {
	RequestID    string `json:"request_id"`
	Department   string `json:"department"`
	ServiceID    string `json:"service_id"`
	CustomerName string `json:"customer_name"`
	Role         string `json:"role"`
	IsPriority   bool   `json:"is_priority"`
}

func (h *Handler) handleTickets(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	var req createTicketRequest
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json", "invalid JSON payload")
		return
	}

	req.RequestID = strings.TrimSpace(req.RequestID)
	req.Department = strings.TrimSpace(req.Department)
	req.ServiceID = strings.TrimSpace(req.ServiceID)
	req.CustomerName = strings.TrimSpace(req.CustomerName)
	req.Role = strings.TrimSpace(req.Role)

	if req.RequestID == "" || req.Department == "" || req.ServiceID == "" {
		writeError(w, http.StatusBadRequest, "invalid_request", "request_id, department, and service_id are required")
		return
	}
	if !isValidUUID(req.RequestID) || !isValidUUID(req.ServiceID) {
		writeError(w, http.StatusBadRequest, "invalid_request", "request_id and service_id must be UUIDs")
		return
	}

	ticket, _, err := h.queue.CreateTicket(r.Context(), store.CreateTicketInput{
		RequestID:    req.RequestID,
		Department:   req.Department,
		ServiceID:    req.ServiceID,
		CustomerName: req.CustomerName,
		Role:         req.Role,
		IsPriority:   req.IsPriority,
		QueuedAt:     time.Now().UTC(),
	})
	if err != nil {
		status, code, msg := mapError(err)
		writeError(w, status, code, msg)
		return
	}
	writeJSON(w, http.StatusOK, ticket)
}

func (h *Handler) handleTicketByID(w http.ResponseWriter, r *http.Request) {
	path := strings.Trim(strings.TrimPrefix(r.URL.Path, "/api/tickets/"), "/")
	parts := strings.Split(path, "/")

	switch {
	case len(parts) == 1 && r.Method == http.MethodGet:
		h.handleGetTicket(w, r, parts[0])
	case len(parts) == 2 && parts[1] == "annotate" && r.Method == http.MethodPost:
		h.handleAnnotate(w, r, parts[0])
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

func (h *Handler) handleGetTicket(w http.ResponseWriter, r *http.Request, ticketID string) {
	if !isValidUUID(ticketID) {
		writeError(w, http.StatusBadRequest, "invalid_request", "ticket_id must be a UUID")
		return
	}
	ticket, err := h.queue.GetTicket(r.Context(), ticketID)
	if err != nil {
		status, code, msg := mapError(err)
		writeError(w, status, code, msg)
		return
	}
	writeJSON(w, http.StatusOK, ticket)
}

type annotateRequest struct {
	Rating  *int   `json:"rating"`
	Remarks string `json:"remarks"`
}

func (h *Handler) handleAnnotate(w http.ResponseWriter, r *http.Request, ticketID string) {
	if !isValidUUID(ticketID) {
		writeError(w, http.StatusBadRequest, "invalid_request", "ticket_id must be a UUID")
		return
	}
	var req annotateRequest
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json", "invalid JSON payload")
		return
	}
	if req.Rating != nil && (*req.Rating < 1 || *req.Rating > 5) {
		writeError(w, http.StatusBadRequest, "invalid_request", "rating must be between 1 and 5")
		return
	}

	ticket, err := h.queue.AnnotateTicket(r.Context(), store.AnnotateInput{
		TicketID: ticketID,
		Rating:   req.Rating,
		Remarks:  strings.TrimSpace(req.Remarks),
	})
	if err != nil {
		status, code, msg := mapError(err)
		writeError(w, status, code, msg)
		return
	}
	writeJSON(w, http.StatusOK, ticket)
}

func (h *Handler) handleQueue(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	department := strings.TrimSpace(r.URL.Query().Get("department"))
	serviceID := strings.TrimSpace(r.URL.Query().Get("service_id"))
	if department == "" {
		writeError(w, http.StatusBadRequest, "invalid_request", "department is required")
		return
	}
	if serviceID != "" && !isValidUUID(serviceID) {
		writeError(w, http.StatusBadRequest, "invalid_request", "service_id must be a UUID when provided")
		return
	}

	tickets, err := h.queue.ListQueue(r.Context(), department, serviceID)
	if err != nil {
		status, code, msg := mapError(err)
		writeError(w, status, code, msg)
		return
	}
	writeJSON(w, http.StatusOK, tickets)
}

func (h *Handler) handleWindows(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	department := strings.TrimSpace(r.URL.Query().Get("department"))
	if department == "" {
		writeError(w, http.StatusBadRequest, "invalid_request", "department is required")
		return
	}

	windows, err := h.queue.ListWindows(r.Context(), department)
	if err != nil {
		status, code, msg := mapError(err)
		writeError(w, status, code, msg)
		return
	}
	writeJSON(w, http.StatusOK, windows)
}

func (h *Handler) handleWindowActions(w http.ResponseWriter, r *http.Request) {
	path := strings.Trim(strings.TrimPrefix(r.URL.Path, "/api/windows/"), "/")
	parts := strings.Split(path, "/")
	if len(parts) == 2 && parts[1] == "serving" && r.Method == http.MethodGet {
		h.handleCurrentServing(w, r, parts[0])
		return
	}
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	if len(parts) == 2 && parts[1] == "state" {
		h.handleWindowState(w, r, parts[0])
		return
	}
	if len(parts) != 3 || parts[1] != "actions" {
		w.WriteHeader(http.StatusNotFound)
		return
	}

	windowID := parts[0]
	if !isValidUUID(windowID) {
		writeError(w, http.StatusBadRequest, "invalid_request", "window_id must be a UUID")
		return
	}

	switch parts[2] {
	case "call-next":
		h.handleCallNext(w, r, windowID)
	case "recall":
		h.handleRecall(w, r, windowID)
	case "previous":
		h.handlePrevious(w, r, windowID)
	case "skip":
		h.handleSkip(w, r, windowID)
	case "transfer":
		h.handleTransfer(w, r, windowID)
	case "requeue-all":
		h.handleRequeueAll(w, r, windowID)
	case "complete":
		h.handleComplete(w, r, windowID)
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

type windowActionRequest struct {
	StaffID string `json:"staff_id"`
}

type transferRequest struct {
	StaffID    string `json:"staff_id"`
	ToWindowID string `json:"to_window_id"`
}

type windowStateRequest struct {
	IsOpen    bool `json:"is_open"`
	IsServing bool `json:"is_serving"`
}

// callResponse is the immediate feedback contract for serving actions: the
// console renders it without waiting for the broadcast path.
type callResponse struct {
	TicketID     string `json:"ticket_id"`
	TicketNumber int    `json:"ticket_number"`
	Department   string `json:"department"`
	WindowName   string `json:"window_name"`
	CustomerName string `json:"customer_name,omitempty"`
	Status       string `json:"status"`
}

type skipResponse struct {
	Skipped callResponse  `json:"skipped"`
	Next    *callResponse `json:"next,omitempty"`
}

type transferResponse struct {
	callResponse
	FromWindowName string `json:"from_window_name"`
}

type requeueResponse struct {
	RequeuedCount int    `json:"requeued_count"`
	WindowName    string `json:"window_name"`
}

func toCallResponse(ticket models.Ticket, window models.Window) callResponse {
	return callResponse{
		TicketID:     ticket.TicketID,
		TicketNumber: ticket.Number,
		Department:   ticket.Department,
		WindowName:   window.Name,
		CustomerName: ticket.CustomerName,
		Status:       ticket.Status,
	}
}

func (h *Handler) handleCallNext(w http.ResponseWriter, r *http.Request, windowID string) {
	input, ok := decodeWindowAction(w, r, windowID)
	if !ok {
		return
	}
	result, err := h.queue.CallNext(r.Context(), input)
	if err != nil {
		status, code, msg := mapError(err)
		writeError(w, status, code, msg)
		return
	}
	writeJSON(w, http.StatusOK, toCallResponse(result.Ticket, result.Window))
}

func (h *Handler) handleRecall(w http.ResponseWriter, r *http.Request, windowID string) {
	result, err := h.queue.Recall(r.Context(), windowID)
	if err != nil {
		status, code, msg := mapError(err)
		writeError(w, status, code, msg)
		return
	}
	writeJSON(w, http.StatusOK, toCallResponse(result.Ticket, result.Window))
}

func (h *Handler) handlePrevious(w http.ResponseWriter, r *http.Request, windowID string) {
	input, ok := decodeWindowAction(w, r, windowID)
	if !ok {
		return
	}
	result, err := h.queue.Previous(r.Context(), input)
	if err != nil {
		status, code, msg := mapError(err)
		writeError(w, status, code, msg)
		return
	}
	writeJSON(w, http.StatusOK, toCallResponse(result.Ticket, result.Window))
}

func (h *Handler) handleSkip(w http.ResponseWriter, r *http.Request, windowID string) {
	input, ok := decodeWindowAction(w, r, windowID)
	if !ok {
		return
	}
	result, err := h.queue.Skip(r.Context(), input)
	if err != nil {
		status, code, msg := mapError(err)
		writeError(w, status, code, msg)
		return
	}
	resp := skipResponse{Skipped: toCallResponse(result.Skipped, result.Window)}
	if result.Next != nil {
		next := toCallResponse(*result.Next, result.Window)
		resp.Next = &next
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) handleTransfer(w http.ResponseWriter, r *http.Request, windowID string) {
	var req transferRequest
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json", "invalid JSON payload")
		return
	}
	req.ToWindowID = strings.TrimSpace(req.ToWindowID)
	req.StaffID = strings.TrimSpace(req.StaffID)
	if req.ToWindowID == "" {
		writeError(w, http.StatusBadRequest, "invalid_request", "to_window_id is required")
		return
	}
	if !isValidUUID(req.ToWindowID) {
		writeError(w, http.StatusBadRequest, "invalid_request", "to_window_id must be a UUID")
		return
	}
	if req.ToWindowID == windowID {
		writeError(w, http.StatusBadRequest, "invalid_request", "cannot transfer a ticket to its own window")
		return
	}
	if req.StaffID != "" && !isValidUUID(req.StaffID) {
		writeError(w, http.StatusBadRequest, "invalid_request", "staff_id must be a UUID when provided")
		return
	}

	result, err := h.queue.Transfer(r.Context(), store.TransferInput{
		WindowID:   windowID,
		ToWindowID: req.ToWindowID,
		StaffID:    req.StaffID,
		OccurredAt: time.Now().UTC(),
	})
	if err != nil {
		status, code, msg := mapError(err)
		writeError(w, status, code, msg)
		return
	}
	writeJSON(w, http.StatusOK, transferResponse{
		callResponse:   toCallResponse(result.Ticket, result.ToWindow),
		FromWindowName: result.FromWindow.Name,
	})
}

func (h *Handler) handleRequeueAll(w http.ResponseWriter, r *http.Request, windowID string) {
	input, ok := decodeWindowAction(w, r, windowID)
	if !ok {
		return
	}
	result, err := h.queue.RequeueAll(r.Context(), input)
	if err != nil {
		status, code, msg := mapError(err)
		writeError(w, status, code, msg)
		return
	}
	writeJSON(w, http.StatusOK, requeueResponse{
		RequeuedCount: result.Count,
		WindowName:    result.Window.Name,
	})
}

func (h *Handler) handleComplete(w http.ResponseWriter, r *http.Request, windowID string) {
	input, ok := decodeWindowAction(w, r, windowID)
	if !ok {
		return
	}
	result, err := h.queue.Complete(r.Context(), input)
	if err != nil {
		status, code, msg := mapError(err)
		writeError(w, status, code, msg)
		return
	}
	writeJSON(w, http.StatusOK, toCallResponse(result.Ticket, result.Window))
}

func (h *Handler) handleCurrentServing(w http.ResponseWriter, r *http.Request, windowID string) {
	if !isValidUUID(windowID) {
		writeError(w, http.StatusBadRequest, "invalid_request", "window_id must be a UUID")
		return
	}
	result, err := h.queue.CurrentServing(r.Context(), windowID)
	if err != nil {
		status, code, msg := mapError(err)
		writeError(w, status, code, msg)
		return
	}
	writeJSON(w, http.StatusOK, toCallResponse(result.Ticket, result.Window))
}

func (h *Handler) handleWindowState(w http.ResponseWriter, r *http.Request, windowID string) {
	if !isValidUUID(windowID) {
		writeError(w, http.StatusBadRequest, "invalid_request", "window_id must be a UUID")
		return
	}
	var req windowStateRequest
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json", "invalid JSON payload")
		return
	}

	window, err := h.queue.UpdateWindowState(r.Context(), windowID, req.IsOpen, req.IsServing)
	if err != nil {
		status, code, msg := mapError(err)
		writeError(w, status, code, msg)
		return
	}
	writeJSON(w, http.StatusOK, window)
}

func decodeWindowAction(w http.ResponseWriter, r *http.Request, windowID string) (store.WindowActionInput, bool) {
	var req windowActionRequest
	if r.Body != nil && r.ContentLength != 0 {
		decoder := json.NewDecoder(r.Body)
		decoder.DisallowUnknownFields()
		if err := decoder.Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_json", "invalid JSON payload")
			return store.WindowActionInput{}, false
		}
	}
	req.StaffID = strings.TrimSpace(req.StaffID)
	if req.StaffID != "" && !isValidUUID(req.StaffID) {
		writeError(w, http.StatusBadRequest, "invalid_request", "staff_id must be a UUID when provided")
		return store.WindowActionInput{}, false
	}
	return store.WindowActionInput{
		WindowID:   windowID,
		StaffID:    req.StaffID,
		OccurredAt: time.Now().UTC(),
	}, true
}

func isValidUUID(value string) bool {
	_, err := uuid.Parse(value)
	return err == nil
}

func mapError(err error) (int, string, string) {
	switch {
	case errors.Is(err, store.ErrDepartmentNotFound):
		return http.StatusNotFound, "department_not_found", "department not found"
	case errors.Is(err, store.ErrServiceNotFound):
		return http.StatusNotFound, "service_not_found", "service not found"
	case errors.Is(err, store.ErrWindowNotFound):
		return http.StatusNotFound, "window_not_found", "window not found"
	case errors.Is(err, store.ErrTicketNotFound):
		return http.StatusNotFound, "ticket_not_found", "ticket not found"
	case errors.Is(err, store.ErrServiceUnavailable):
		return http.StatusConflict, "service_unavailable", "no open window serves this service"
	case errors.Is(err, store.ErrWindowClosed):
		return http.StatusConflict, "window_closed", "window is closed"
	case errors.Is(err, store.ErrWindowPaused):
		return http.StatusConflict, "window_paused", "window is open but not serving"
	case errors.Is(err, store.ErrWindowBusy):
		return http.StatusConflict, "window_busy", "destination window already has a serving ticket"
	case errors.Is(err, store.ErrNoWaitingTicket):
		return http.StatusConflict, "queue_empty", "no queue waiting for this service"
	case errors.Is(err, store.ErrNothingServing):
		return http.StatusConflict, "nothing_serving", "no ticket currently being served at this window"
	case errors.Is(err, store.ErrNoPreviousTicket):
		return http.StatusConflict, "no_previous_ticket", "no previously served ticket for this window"
	case errors.Is(err, store.ErrNoSkippedTickets):
		return http.StatusConflict, "no_skipped_tickets", "no skipped tickets for this window"
	case errors.Is(err, store.ErrInvalidState):
		return http.StatusConflict, "invalid_state", "ticket state does not allow this action"
	default:
		return http.StatusInternalServerError, "internal_error", "internal server error"
	}
}

type errorResponse struct {
	Error responseError `json:"error"`
}

type responseError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, errorResponse{Error: responseError{Code: code, Message: message}})
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload == nil {
		return
	}
	_ = json.NewEncoder(w).Encode(payload)
}
