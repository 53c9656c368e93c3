package store

import "errors"

var (
	ErrDepartmentNotFound = errors.New("department not found")
	ErrServiceNotFound    = errors.New("service not found")
	ErrServiceUnavailable = errors.New("no open window serves this service")
	ErrWindowNotFound     = errors.New("window not found")
	ErrWindowClosed       = errors.New("window is closed")
	ErrWindowPaused       = errors.New("window is not serving")
	ErrWindowBusy         = errors.New("window already has a serving ticket")
	ErrTicketNotFound     = errors.New("ticket not found")
	ErrNoWaitingTicket    = errors.New("no waiting ticket for this window")
	ErrNothingServing     = errors.New("no ticket currently being served")
	ErrNoPreviousTicket   = errors.New("no previously served ticket retained")
	ErrNoSkippedTickets   = errors.New("no skipped tickets for this window")
	ErrInvalidState       = errors.New("invalid ticket state")
)
