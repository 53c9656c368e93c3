package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"deskline/internal/models"
	"deskline/internal/store"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const ticketColumns = `ticket_id, number, department, service_id, window_id, customer_name, role,
	is_priority, status, is_currently_serving, processed_by, queued_at, called_at, served_at,
	completed_at, skipped_at, rating, remarks`

type Store struct {
	pool          *pgxpool.Pool
	loc           *time.Location
	numberCeiling int
}

type Options struct {
	// Timezone fixes the logical day boundary for ticket numbering.
	Timezone      *time.Location
	NumberCeiling int
}

func NewStore(pool *pgxpool.Pool, options Options) *Store {
	loc := options.Timezone
	if loc == nil {
		loc = time.UTC
	}
	ceiling := options.NumberCeiling
	if ceiling <= 0 {
		ceiling = store.DefaultNumberCeiling
	}
	return &Store{pool: pool, loc: loc, numberCeiling: ceiling}
}

func (s *Store) CreateTicket(ctx context.Context, input store.CreateTicketInput) (models.Ticket, bool, error) {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return models.Ticket{}, false, err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
		}
	}()

	existing, found, err := findTicketByRequestID(ctx, tx, input.RequestID)
	if err != nil {
		return models.Ticket{}, false, err
	}
	if found {
		if err = tx.Commit(ctx); err != nil {
			return models.Ticket{}, false, err
		}
		return existing, false, nil
	}

	if err = ensureDepartmentExists(ctx, tx, input.Department); err != nil {
		return models.Ticket{}, false, err
	}
	if err = ensureServiceAvailable(ctx, tx, input.Department, input.ServiceID); err != nil {
		return models.Ticket{}, false, err
	}

	queuedAt := input.QueuedAt
	if queuedAt.IsZero() {
		queuedAt = time.Now().UTC()
	}
	day := store.ServiceDay(queuedAt, s.loc)

	// A duplicate request_id racing past the lookup above loses at the
	// INSERT below after the sequence already advanced; that day skips one
	// display number. Numbers stay within 1..ceiling either way.
	number, err := s.allocateNumber(ctx, tx, input.Department, day)
	if err != nil {
		return models.Ticket{}, false, err
	}

	var ticket models.Ticket
	row := tx.QueryRow(ctx, `
		INSERT INTO tickets (
			ticket_id, request_id, number, department, service_id, customer_name, role,
			is_priority, status, service_day, queued_at
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)
		ON CONFLICT (request_id) DO NOTHING
		RETURNING `+ticketColumns+`
	`, uuid.NewString(), input.RequestID, number, input.Department, input.ServiceID,
		input.CustomerName, input.Role, input.IsPriority, models.StatusWaiting, day, queuedAt)
	if err = scanTicket(row, &ticket); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			// Lost the request_id race; the winner's row is the answer.
			existing, found, err = findTicketByRequestID(ctx, tx, input.RequestID)
			if err != nil {
				return models.Ticket{}, false, err
			}
			if found {
				if err = tx.Commit(ctx); err != nil {
					return models.Ticket{}, false, err
				}
				return existing, false, nil
			}
			err = store.ErrTicketNotFound
		}
		return models.Ticket{}, false, err
	}

	payload := ticketPayload(ticket)
	if err = insertOutboxEvent(ctx, tx, adminChannel(ticket.Department), "ticket-added", payload); err != nil {
		return models.Ticket{}, false, err
	}
	if err = insertOutboxEvent(ctx, tx, "kiosk", "ticket-added", payload); err != nil {
		return models.Ticket{}, false, err
	}

	if err = tx.Commit(ctx); err != nil {
		return models.Ticket{}, false, err
	}
	return ticket, true, nil
}

func (s *Store) GetTicket(ctx context.Context, ticketID string) (models.Ticket, error) {
	var ticket models.Ticket
	row := s.pool.QueryRow(ctx, `SELECT `+ticketColumns+` FROM tickets WHERE ticket_id = $1`, ticketID)
	if err := scanTicket(row, &ticket); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.Ticket{}, store.ErrTicketNotFound
		}
		return models.Ticket{}, err
	}
	return ticket, nil
}

func (s *Store) ListQueue(ctx context.Context, department, serviceID string) ([]models.Ticket, error) {
	query := `SELECT ` + ticketColumns + ` FROM tickets WHERE department = $1 AND status = 'waiting'`
	args := []interface{}{department}
	if serviceID != "" {
		query += " AND service_id = $2"
		args = append(args, serviceID)
	}
	query += " ORDER BY queued_at ASC"

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tickets []models.Ticket
	for rows.Next() {
		var ticket models.Ticket
		if err := scanTicket(rows, &ticket); err != nil {
			return nil, err
		}
		tickets = append(tickets, ticket)
	}
	return tickets, rows.Err()
}

func (s *Store) CountWaiting(ctx context.Context, department string) (int, error) {
	var count int
	row := s.pool.QueryRow(ctx, `
		SELECT COUNT(*) FROM tickets WHERE department = $1 AND status = 'waiting'
	`, department)
	if err := row.Scan(&count); err != nil {
		return 0, err
	}
	return count, nil
}

func (s *Store) CallNext(ctx context.Context, input store.WindowActionInput) (store.CallResult, error) {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return store.CallResult{}, err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
		}
	}()

	window, err := lockWindow(ctx, tx, input.WindowID)
	if err != nil {
		return store.CallResult{}, err
	}
	if !window.IsOpen {
		err = store.ErrWindowClosed
		return store.CallResult{}, err
	}
	if !window.IsServing {
		err = store.ErrWindowPaused
		return store.CallResult{}, err
	}

	now := occurredAt(input)

	// Reserve the candidate before touching the current ticket: an empty
	// queue must leave every ticket untouched.
	candidateID, err := reserveNextWaiting(ctx, tx, window)
	if err != nil {
		return store.CallResult{}, err
	}

	if err = s.finishServing(ctx, tx, window, now); err != nil {
		return store.CallResult{}, err
	}

	ticket, err := activateTicket(ctx, tx, candidateID, window.WindowID, input.StaffID, now)
	if err != nil {
		return store.CallResult{}, err
	}

	if err = insertOutboxEvent(ctx, tx, adminChannel(window.Department), "next-called", callPayload(ticket, window)); err != nil {
		return store.CallResult{}, err
	}

	if err = tx.Commit(ctx); err != nil {
		return store.CallResult{}, err
	}
	return store.CallResult{Ticket: ticket, Window: window}, nil
}

func (s *Store) CurrentServing(ctx context.Context, windowID string) (store.CallResult, error) {
	window, err := getWindow(ctx, s.pool, windowID)
	if err != nil {
		return store.CallResult{}, err
	}

	var ticket models.Ticket
	row := s.pool.QueryRow(ctx, `
		SELECT `+ticketColumns+` FROM tickets
		WHERE window_id = $1 AND is_currently_serving
	`, windowID)
	if err := scanTicket(row, &ticket); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return store.CallResult{}, store.ErrNothingServing
		}
		return store.CallResult{}, err
	}
	return store.CallResult{Ticket: ticket, Window: window}, nil
}

func (s *Store) Previous(ctx context.Context, input store.WindowActionInput) (store.CallResult, error) {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return store.CallResult{}, err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
		}
	}()

	window, err := lockWindow(ctx, tx, input.WindowID)
	if err != nil {
		return store.CallResult{}, err
	}
	if window.PreviousTicketID == nil {
		err = store.ErrNoPreviousTicket
		return store.CallResult{}, err
	}

	// The retained ticket may have left the completed/skipped pool since it
	// was recorded (requeue-all returns skipped tickets to waiting); recall
	// only tickets the transition table allows.
	var prevStatus string
	statusRow := tx.QueryRow(ctx, `
		SELECT status FROM tickets WHERE ticket_id = $1 FOR UPDATE
	`, *window.PreviousTicketID)
	if err = statusRow.Scan(&prevStatus); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			err = store.ErrNoPreviousTicket
		}
		return store.CallResult{}, err
	}
	if !store.ValidTransition("previous", prevStatus) {
		err = store.ErrInvalidState
		return store.CallResult{}, err
	}

	now := occurredAt(input)

	currentID, err := displaceServing(ctx, tx, window.WindowID, now)
	if err != nil {
		return store.CallResult{}, err
	}

	var ticket models.Ticket
	row := tx.QueryRow(ctx, `
		UPDATE tickets
		SET status = $2,
			is_currently_serving = TRUE,
			window_id = $3,
			called_at = $4,
			completed_at = NULL,
			skipped_at = NULL,
			processed_by = COALESCE(NULLIF($5, '')::uuid, processed_by)
		WHERE ticket_id = $1 AND NOT is_currently_serving
		RETURNING `+ticketColumns+`
	`, *window.PreviousTicketID, models.StatusServing, window.WindowID, now, input.StaffID)
	if err = scanTicket(row, &ticket); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			err = store.ErrNoPreviousTicket
		}
		return store.CallResult{}, err
	}

	// The displaced ticket becomes the new "previous" so the operation can
	// toggle between the two most recent tickets.
	if err = setPreviousTicket(ctx, tx, window.WindowID, currentID); err != nil {
		return store.CallResult{}, err
	}

	if err = insertOutboxEvent(ctx, tx, adminChannel(window.Department), "previous-recalled", callPayload(ticket, window)); err != nil {
		return store.CallResult{}, err
	}

	if err = tx.Commit(ctx); err != nil {
		return store.CallResult{}, err
	}
	return store.CallResult{Ticket: ticket, Window: window}, nil
}

func (s *Store) Skip(ctx context.Context, input store.WindowActionInput) (store.SkipResult, error) {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return store.SkipResult{}, err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
		}
	}()

	window, err := lockWindow(ctx, tx, input.WindowID)
	if err != nil {
		return store.SkipResult{}, err
	}

	now := occurredAt(input)

	var skipped models.Ticket
	row := tx.QueryRow(ctx, `
		UPDATE tickets
		SET status = $2,
			is_currently_serving = FALSE,
			skipped_at = $3
		WHERE window_id = $1 AND is_currently_serving
		RETURNING `+ticketColumns+`
	`, window.WindowID, models.StatusSkipped, now)
	if err = scanTicket(row, &skipped); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			err = store.ErrNothingServing
		}
		return store.SkipResult{}, err
	}

	if err = setPreviousTicket(ctx, tx, window.WindowID, &skipped.TicketID); err != nil {
		return store.SkipResult{}, err
	}

	var next *models.Ticket
	if window.IsOpen && window.IsServing {
		candidateID, reserveErr := reserveNextWaiting(ctx, tx, window)
		switch {
		case reserveErr == nil:
			ticket, activateErr := activateTicket(ctx, tx, candidateID, window.WindowID, input.StaffID, now)
			if activateErr != nil {
				err = activateErr
				return store.SkipResult{}, err
			}
			next = &ticket
		case errors.Is(reserveErr, store.ErrNoWaitingTicket):
			// Nothing left to call; the skip alone stands.
		default:
			err = reserveErr
			return store.SkipResult{}, err
		}
	}

	if err = insertOutboxEvent(ctx, tx, adminChannel(window.Department), "queue-skipped", skipPayload(skipped, next, window)); err != nil {
		return store.SkipResult{}, err
	}

	if err = tx.Commit(ctx); err != nil {
		return store.SkipResult{}, err
	}
	return store.SkipResult{Skipped: skipped, Next: next, Window: window}, nil
}

func (s *Store) Transfer(ctx context.Context, input store.TransferInput) (store.TransferResult, error) {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return store.TransferResult{}, err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
		}
	}()

	// Lock both windows in id order so concurrent opposing transfers cannot
	// deadlock.
	first, second := input.WindowID, input.ToWindowID
	if second < first {
		first, second = second, first
	}
	lockedFirst, err := lockWindow(ctx, tx, first)
	if err != nil {
		return store.TransferResult{}, err
	}
	lockedSecond, err := lockWindow(ctx, tx, second)
	if err != nil {
		return store.TransferResult{}, err
	}
	from, to := lockedFirst, lockedSecond
	if from.WindowID != input.WindowID {
		from, to = lockedSecond, lockedFirst
	}

	if !to.IsOpen {
		err = store.ErrWindowClosed
		return store.TransferResult{}, err
	}

	var destBusy bool
	row := tx.QueryRow(ctx, `
		SELECT EXISTS (SELECT 1 FROM tickets WHERE window_id = $1 AND is_currently_serving)
	`, to.WindowID)
	if err = row.Scan(&destBusy); err != nil {
		return store.TransferResult{}, err
	}
	if destBusy {
		err = store.ErrWindowBusy
		return store.TransferResult{}, err
	}

	now := occurredAt(store.WindowActionInput{OccurredAt: input.OccurredAt})

	var ticket models.Ticket
	row = tx.QueryRow(ctx, `
		UPDATE tickets
		SET window_id = $2,
			processed_by = COALESCE(NULLIF($3, '')::uuid, processed_by)
		WHERE window_id = $1 AND is_currently_serving
		RETURNING `+ticketColumns+`
	`, from.WindowID, to.WindowID, input.StaffID)
	if err = scanTicket(row, &ticket); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			err = store.ErrNothingServing
		}
		return store.TransferResult{}, err
	}

	if err = setPreviousTicket(ctx, tx, from.WindowID, &ticket.TicketID); err != nil {
		return store.TransferResult{}, err
	}

	payload := transferPayload(ticket, from, to, now)
	if err = insertOutboxEvent(ctx, tx, adminChannel(from.Department), "queue-transferred", payload); err != nil {
		return store.TransferResult{}, err
	}
	if to.Department != from.Department {
		if err = insertOutboxEvent(ctx, tx, adminChannel(to.Department), "queue-transferred", payload); err != nil {
			return store.TransferResult{}, err
		}
	}

	if err = tx.Commit(ctx); err != nil {
		return store.TransferResult{}, err
	}
	return store.TransferResult{Ticket: ticket, FromWindow: from, ToWindow: to}, nil
}

func (s *Store) RequeueAll(ctx context.Context, input store.WindowActionInput) (store.RequeueResult, error) {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return store.RequeueResult{}, err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
		}
	}()

	window, err := lockWindow(ctx, tx, input.WindowID)
	if err != nil {
		return store.RequeueResult{}, err
	}

	// queued_at is deliberately untouched: re-queued tickets resume their
	// original FIFO position.
	tag, err := tx.Exec(ctx, `
		UPDATE tickets
		SET status = $2,
			skipped_at = NULL
		WHERE window_id = $1 AND status = $3
	`, window.WindowID, models.StatusWaiting, models.StatusSkipped)
	if err != nil {
		return store.RequeueResult{}, err
	}
	count := int(tag.RowsAffected())
	if count == 0 {
		err = store.ErrNoSkippedTickets
		return store.RequeueResult{}, err
	}

	if err = insertOutboxEvent(ctx, tx, adminChannel(window.Department), "queue-requeued-all", requeuePayload(window, count)); err != nil {
		return store.RequeueResult{}, err
	}

	if err = tx.Commit(ctx); err != nil {
		return store.RequeueResult{}, err
	}
	return store.RequeueResult{Count: count, Window: window}, nil
}

func (s *Store) Complete(ctx context.Context, input store.WindowActionInput) (store.CallResult, error) {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return store.CallResult{}, err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
		}
	}()

	window, err := lockWindow(ctx, tx, input.WindowID)
	if err != nil {
		return store.CallResult{}, err
	}

	now := occurredAt(input)

	var ticket models.Ticket
	row := tx.QueryRow(ctx, `
		UPDATE tickets
		SET status = $2,
			is_currently_serving = FALSE,
			completed_at = $3
		WHERE window_id = $1 AND is_currently_serving
		RETURNING `+ticketColumns+`
	`, window.WindowID, models.StatusCompleted, now)
	if err = scanTicket(row, &ticket); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			err = store.ErrNothingServing
		}
		return store.CallResult{}, err
	}

	if err = setPreviousTicket(ctx, tx, window.WindowID, &ticket.TicketID); err != nil {
		return store.CallResult{}, err
	}

	if err = insertOutboxEvent(ctx, tx, adminChannel(window.Department), "ticket-completed", callPayload(ticket, window)); err != nil {
		return store.CallResult{}, err
	}

	if err = tx.Commit(ctx); err != nil {
		return store.CallResult{}, err
	}
	return store.CallResult{Ticket: ticket, Window: window}, nil
}

func (s *Store) AnnotateTicket(ctx context.Context, input store.AnnotateInput) (models.Ticket, error) {
	var ticket models.Ticket
	row := s.pool.QueryRow(ctx, `
		UPDATE tickets
		SET rating = COALESCE($2, rating),
			remarks = CASE WHEN $3 <> '' THEN $3 ELSE remarks END
		WHERE ticket_id = $1
		RETURNING `+ticketColumns+`
	`, input.TicketID, input.Rating, input.Remarks)
	if err := scanTicket(row, &ticket); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.Ticket{}, store.ErrTicketNotFound
		}
		return models.Ticket{}, err
	}
	return ticket, nil
}

func (s *Store) ListWindows(ctx context.Context, department string) ([]models.Window, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT window_id, department, name, is_open, is_serving, previous_ticket_id,
			ARRAY(SELECT ws.service_id::text FROM window_services ws WHERE ws.window_id = w.window_id)
		FROM windows w
		WHERE department = $1
		ORDER BY name ASC
	`, department)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var windows []models.Window
	for rows.Next() {
		var window models.Window
		var prevNull sql.NullString
		if err := rows.Scan(&window.WindowID, &window.Department, &window.Name,
			&window.IsOpen, &window.IsServing, &prevNull, &window.AssignedServices); err != nil {
			return nil, err
		}
		window.PreviousTicketID = nullStringPtr(prevNull)
		windows = append(windows, window)
	}
	return windows, rows.Err()
}

func (s *Store) UpdateWindowState(ctx context.Context, windowID string, isOpen, isServing bool) (models.Window, error) {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return models.Window{}, err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
		}
	}()

	var window models.Window
	var prevNull sql.NullString
	row := tx.QueryRow(ctx, `
		UPDATE windows
		SET is_open = $2, is_serving = $3
		WHERE window_id = $1
		RETURNING window_id, department, name, is_open, is_serving, previous_ticket_id
	`, windowID, isOpen, isServing)
	if err = row.Scan(&window.WindowID, &window.Department, &window.Name,
		&window.IsOpen, &window.IsServing, &prevNull); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			err = store.ErrWindowNotFound
		}
		return models.Window{}, err
	}
	window.PreviousTicketID = nullStringPtr(prevNull)

	if err = insertOutboxEvent(ctx, tx, adminChannel(window.Department), "window-updated", windowPayload(window)); err != nil {
		return models.Window{}, err
	}

	if err = tx.Commit(ctx); err != nil {
		return models.Window{}, err
	}
	return window, nil
}

func (s *Store) allocateNumber(ctx context.Context, tx pgx.Tx, department, day string) (int, error) {
	_, err := tx.Exec(ctx, `
		INSERT INTO ticket_sequences (department, service_day, last_number)
		VALUES ($1, $2, 0)
		ON CONFLICT (department, service_day) DO NOTHING
	`, department, day)
	if err != nil {
		return 0, err
	}

	var last int
	row := tx.QueryRow(ctx, `
		SELECT last_number FROM ticket_sequences
		WHERE department = $1 AND service_day = $2
		FOR UPDATE
	`, department, day)
	if err := row.Scan(&last); err != nil {
		return 0, err
	}

	next := store.NextNumber(last, s.numberCeiling)
	_, err = tx.Exec(ctx, `
		UPDATE ticket_sequences SET last_number = $3
		WHERE department = $1 AND service_day = $2
	`, department, day, next)
	if err != nil {
		return 0, err
	}
	return next, nil
}

// finishServing closes out whichever ticket the window is currently serving
// and records it as the window's previous ticket. Clearing the old flag and
// activating the next ticket happen in the same transaction, so no reader
// observes an intermediate state.
func (s *Store) finishServing(ctx context.Context, tx pgx.Tx, window models.Window, now time.Time) error {
	finishedID, err := displaceServing(ctx, tx, window.WindowID, now)
	if err != nil {
		return err
	}
	if finishedID == nil {
		return nil
	}
	return setPreviousTicket(ctx, tx, window.WindowID, finishedID)
}

func displaceServing(ctx context.Context, tx pgx.Tx, windowID string, now time.Time) (*string, error) {
	var finishedID string
	row := tx.QueryRow(ctx, `
		UPDATE tickets
		SET status = $2,
			is_currently_serving = FALSE,
			completed_at = $3
		WHERE window_id = $1 AND is_currently_serving
		RETURNING ticket_id
	`, windowID, models.StatusCompleted, now)
	if err := row.Scan(&finishedID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &finishedID, nil
}

func reserveNextWaiting(ctx context.Context, tx pgx.Tx, window models.Window) (string, error) {
	var candidateID string
	// Strict FIFO by queued_at; the priority flag is recorded but never
	// reorders the queue. SKIP LOCKED lets windows of the same department
	// race without picking the same ticket.
	row := tx.QueryRow(ctx, `
		SELECT ticket_id FROM tickets
		WHERE department = $1 AND status = $2
			AND service_id IN (SELECT service_id FROM window_services WHERE window_id = $3)
		ORDER BY queued_at ASC
		FOR UPDATE SKIP LOCKED
		LIMIT 1
	`, window.Department, models.StatusWaiting, window.WindowID)
	if err := row.Scan(&candidateID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", store.ErrNoWaitingTicket
		}
		return "", err
	}
	return candidateID, nil
}

func activateTicket(ctx context.Context, tx pgx.Tx, ticketID, windowID, staffID string, now time.Time) (models.Ticket, error) {
	var ticket models.Ticket
	row := tx.QueryRow(ctx, `
		UPDATE tickets
		SET status = $3,
			is_currently_serving = TRUE,
			window_id = $2,
			called_at = $4,
			served_at = $4,
			processed_by = COALESCE(NULLIF($5, '')::uuid, processed_by)
		WHERE ticket_id = $1
		RETURNING `+ticketColumns+`
	`, ticketID, windowID, models.StatusServing, now, staffID)
	if err := scanTicket(row, &ticket); err != nil {
		return models.Ticket{}, err
	}
	return ticket, nil
}

func lockWindow(ctx context.Context, tx pgx.Tx, windowID string) (models.Window, error) {
	var window models.Window
	var prevNull sql.NullString
	row := tx.QueryRow(ctx, `
		SELECT window_id, department, name, is_open, is_serving, previous_ticket_id
		FROM windows
		WHERE window_id = $1
		FOR UPDATE
	`, windowID)
	if err := row.Scan(&window.WindowID, &window.Department, &window.Name,
		&window.IsOpen, &window.IsServing, &prevNull); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.Window{}, store.ErrWindowNotFound
		}
		return models.Window{}, err
	}
	window.PreviousTicketID = nullStringPtr(prevNull)
	return window, nil
}

func getWindow(ctx context.Context, pool *pgxpool.Pool, windowID string) (models.Window, error) {
	var window models.Window
	var prevNull sql.NullString
	row := pool.QueryRow(ctx, `
		SELECT window_id, department, name, is_open, is_serving, previous_ticket_id
		FROM windows
		WHERE window_id = $1
	`, windowID)
	if err := row.Scan(&window.WindowID, &window.Department, &window.Name,
		&window.IsOpen, &window.IsServing, &prevNull); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.Window{}, store.ErrWindowNotFound
		}
		return models.Window{}, err
	}
	window.PreviousTicketID = nullStringPtr(prevNull)
	return window, nil
}

func setPreviousTicket(ctx context.Context, tx pgx.Tx, windowID string, ticketID *string) error {
	_, err := tx.Exec(ctx, `
		UPDATE windows SET previous_ticket_id = $2 WHERE window_id = $1
	`, windowID, ticketID)
	return err
}

func findTicketByRequestID(ctx context.Context, tx pgx.Tx, requestID string) (models.Ticket, bool, error) {
	var ticket models.Ticket
	row := tx.QueryRow(ctx, `SELECT `+ticketColumns+` FROM tickets WHERE request_id = $1`, requestID)
	if err := scanTicket(row, &ticket); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.Ticket{}, false, nil
		}
		return models.Ticket{}, false, err
	}
	return ticket, true, nil
}

func ensureDepartmentExists(ctx context.Context, tx pgx.Tx, department string) error {
	var code string
	row := tx.QueryRow(ctx, `SELECT code FROM departments WHERE code = $1`, department)
	if err := row.Scan(&code); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return store.ErrDepartmentNotFound
		}
		return err
	}
	return nil
}

func ensureServiceAvailable(ctx context.Context, tx pgx.Tx, department, serviceID string) error {
	var active bool
	row := tx.QueryRow(ctx, `
		SELECT active FROM services WHERE service_id = $1 AND department = $2
	`, serviceID, department)
	if err := row.Scan(&active); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return store.ErrServiceNotFound
		}
		return err
	}
	if !active {
		return store.ErrServiceNotFound
	}

	var available bool
	row = tx.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM windows w
			JOIN window_services ws ON ws.window_id = w.window_id
			WHERE ws.service_id = $1 AND w.is_open
		)
	`, serviceID)
	if err := row.Scan(&available); err != nil {
		return err
	}
	if !available {
		return store.ErrServiceUnavailable
	}
	return nil
}

func occurredAt(input store.WindowActionInput) time.Time {
	if input.OccurredAt.IsZero() {
		return time.Now().UTC()
	}
	return input.OccurredAt
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanTicket(row rowScanner, ticket *models.Ticket) error {
	var windowNull, processedNull sql.NullString
	var calledNull, servedNull, completedNull, skippedNull sql.NullTime
	var ratingNull sql.NullInt32
	if err := row.Scan(&ticket.TicketID, &ticket.Number, &ticket.Department, &ticket.ServiceID,
		&windowNull, &ticket.CustomerName, &ticket.Role, &ticket.IsPriority, &ticket.Status,
		&ticket.IsCurrentlyServing, &processedNull, &ticket.QueuedAt, &calledNull, &servedNull,
		&completedNull, &skippedNull, &ratingNull, &ticket.Remarks); err != nil {
		return err
	}
	ticket.WindowID = nullStringPtr(windowNull)
	ticket.ProcessedBy = nullStringPtr(processedNull)
	ticket.CalledAt = nullTimePtr(calledNull)
	ticket.ServedAt = nullTimePtr(servedNull)
	ticket.CompletedAt = nullTimePtr(completedNull)
	ticket.SkippedAt = nullTimePtr(skippedNull)
	if ratingNull.Valid {
		rating := int(ratingNull.Int32)
		ticket.Rating = &rating
	}
	return nil
}

func nullStringPtr(value sql.NullString) *string {
	if !value.Valid {
		return nil
	}
	v := value.String
	return &v
}

func nullTimePtr(value sql.NullTime) *time.Time {
	if !value.Valid {
		return nil
	}
	v := value.Time
	return &v
}

func adminChannel(department string) string {
	return "admin-" + department
}

func insertOutboxEvent(ctx context.Context, tx pgx.Tx, channel, eventType string, payload map[string]interface{}) error {
	payloadJSON, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	_, err = tx.Exec(ctx, `
		INSERT INTO outbox_events (event_id, channel, type, payload_json, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`, uuid.NewString(), channel, eventType, payloadJSON, time.Now().UTC())
	return err
}

func ticketPayload(ticket models.Ticket) map[string]interface{} {
	return map[string]interface{}{
		"ticket_id":     ticket.TicketID,
		"ticket_number": ticket.Number,
		"department":    ticket.Department,
		"service_id":    ticket.ServiceID,
		"customer_name": ticket.CustomerName,
		"status":        ticket.Status,
		"queued_at":     ticket.QueuedAt,
	}
}

func callPayload(ticket models.Ticket, window models.Window) map[string]interface{} {
	payload := ticketPayload(ticket)
	payload["window_id"] = window.WindowID
	payload["window_name"] = window.Name
	payload["called_at"] = ticket.CalledAt
	return payload
}

func skipPayload(skipped models.Ticket, next *models.Ticket, window models.Window) map[string]interface{} {
	payload := callPayload(skipped, window)
	payload["skipped_at"] = skipped.SkippedAt
	if next != nil {
		payload["next_ticket_id"] = next.TicketID
		payload["next_ticket_number"] = next.Number
	}
	return payload
}

func transferPayload(ticket models.Ticket, from, to models.Window, at time.Time) map[string]interface{} {
	payload := ticketPayload(ticket)
	payload["from_window_id"] = from.WindowID
	payload["from_window_name"] = from.Name
	payload["window_id"] = to.WindowID
	payload["window_name"] = to.Name
	payload["transferred_at"] = at
	return payload
}

func requeuePayload(window models.Window, count int) map[string]interface{} {
	return map[string]interface{}{
		"department":  window.Department,
		"window_id":   window.WindowID,
		"window_name": window.Name,
		"count":       count,
	}
}

func windowPayload(window models.Window) map[string]interface{} {
	return map[string]interface{}{
		"department":  window.Department,
		"window_id":   window.WindowID,
		"window_name": window.Name,
		"is_open":     window.IsOpen,
		"is_serving":  window.IsServing,
	}
}
