package postgres

import (
	"context"
	"errors"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"deskline/internal/models"
	"deskline/internal/store"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

func TestNumberingWrapsAtCeiling(t *testing.T) {
	ctx := context.Background()
	st, pool, cleanup := setupTestStore(t, ctx, Options{NumberCeiling: 3})
	t.Cleanup(cleanup)

	f := seedFixture(t, ctx, pool)

	var numbers []int
	for i := 0; i < 7; i++ {
		ticket := createTicket(t, ctx, st, f, uuid.NewString())
		numbers = append(numbers, ticket.Number)
	}

	want := []int{1, 2, 3, 1, 2, 3, 1}
	for i, n := range numbers {
		if n != want[i] {
			t.Fatalf("numbers = %v, want %v", numbers, want)
		}
	}
}

func TestNumberingIsPerDepartment(t *testing.T) {
	ctx := context.Background()
	st, pool, cleanup := setupTestStore(t, ctx, Options{})
	t.Cleanup(cleanup)

	f := seedFixture(t, ctx, pool)
	g := seedFixtureNamed(t, ctx, pool, "bursar")

	first := createTicket(t, ctx, st, f, uuid.NewString())
	second := createTicket(t, ctx, st, f, uuid.NewString())
	other := createTicket(t, ctx, st, g, uuid.NewString())

	if first.Number != 1 || second.Number != 2 {
		t.Fatalf("registrar numbers = %d, %d, want 1, 2", first.Number, second.Number)
	}
	if other.Number != 1 {
		t.Fatalf("bursar number = %d, want 1", other.Number)
	}
}

func TestCreateTicketIdempotency(t *testing.T) {
	ctx := context.Background()
	st, pool, cleanup := setupTestStore(t, ctx, Options{})
	t.Cleanup(cleanup)

	f := seedFixture(t, ctx, pool)

	requestID := uuid.NewString()
	first, createdFirst, err := st.CreateTicket(ctx, createInput(f, requestID))
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	second, createdSecond, err := st.CreateTicket(ctx, createInput(f, requestID))
	if err != nil {
		t.Fatalf("replay: %v", err)
	}

	if !createdFirst || createdSecond {
		t.Fatalf("created flags = %v, %v, want true, false", createdFirst, createdSecond)
	}
	if first.TicketID != second.TicketID || first.Number != second.Number {
		t.Fatal("replay must return the original ticket")
	}

	var count int
	row := pool.QueryRow(ctx, `SELECT COUNT(*) FROM outbox_events WHERE type = 'ticket-added'`)
	if err := row.Scan(&count); err != nil {
		t.Fatalf("count outbox events: %v", err)
	}
	if count != 2 {
		t.Fatalf("ticket-added outbox rows = %d, want 2 (admin + kiosk)", count)
	}
}

func TestCreateTicketNoOpenWindow(t *testing.T) {
	ctx := context.Background()
	st, pool, cleanup := setupTestStore(t, ctx, Options{})
	t.Cleanup(cleanup)

	f := seedFixture(t, ctx, pool)
	if _, err := pool.Exec(ctx, `UPDATE windows SET is_open = FALSE`); err != nil {
		t.Fatalf("close windows: %v", err)
	}

	_, _, err := st.CreateTicket(ctx, createInput(f, uuid.NewString()))
	if !errors.Is(err, store.ErrServiceUnavailable) {
		t.Fatalf("err = %v, want ErrServiceUnavailable", err)
	}
}

func TestCallNextLifecycle(t *testing.T) {
	ctx := context.Background()
	st, pool, cleanup := setupTestStore(t, ctx, Options{})
	t.Cleanup(cleanup)

	f := seedFixture(t, ctx, pool)
	first := createTicket(t, ctx, st, f, uuid.NewString())
	second := createTicket(t, ctx, st, f, uuid.NewString())

	result, err := st.CallNext(ctx, store.WindowActionInput{WindowID: f.windowA})
	if err != nil {
		t.Fatalf("call next: %v", err)
	}
	if result.Ticket.TicketID != first.TicketID {
		t.Fatalf("called %s, want FIFO head %s", result.Ticket.TicketID, first.TicketID)
	}
	if result.Ticket.Status != models.StatusServing || !result.Ticket.IsCurrentlyServing {
		t.Fatalf("called ticket state = %s serving=%v", result.Ticket.Status, result.Ticket.IsCurrentlyServing)
	}

	// Calling again completes the first and serves the second.
	result, err = st.CallNext(ctx, store.WindowActionInput{WindowID: f.windowA})
	if err != nil {
		t.Fatalf("second call next: %v", err)
	}
	if result.Ticket.TicketID != second.TicketID {
		t.Fatalf("called %s, want %s", result.Ticket.TicketID, second.TicketID)
	}

	finished, err := st.GetTicket(ctx, first.TicketID)
	if err != nil {
		t.Fatalf("get finished: %v", err)
	}
	if finished.Status != models.StatusCompleted || finished.IsCurrentlyServing {
		t.Fatalf("displaced ticket state = %s serving=%v, want completed", finished.Status, finished.IsCurrentlyServing)
	}

	// Empty queue: the serving ticket must stay untouched.
	_, err = st.CallNext(ctx, store.WindowActionInput{WindowID: f.windowA})
	if !errors.Is(err, store.ErrNoWaitingTicket) {
		t.Fatalf("err = %v, want ErrNoWaitingTicket", err)
	}
	current, err := st.CurrentServing(ctx, f.windowA)
	if err != nil {
		t.Fatalf("current serving: %v", err)
	}
	if current.Ticket.TicketID != second.TicketID {
		t.Fatal("failed call-next must not displace the serving ticket")
	}
}

func TestCallNextClosedAndPausedWindow(t *testing.T) {
	ctx := context.Background()
	st, pool, cleanup := setupTestStore(t, ctx, Options{})
	t.Cleanup(cleanup)

	f := seedFixture(t, ctx, pool)
	createTicket(t, ctx, st, f, uuid.NewString())

	if _, err := pool.Exec(ctx, `UPDATE windows SET is_serving = FALSE WHERE window_id = $1`, f.windowA); err != nil {
		t.Fatalf("pause window: %v", err)
	}
	if _, err := st.CallNext(ctx, store.WindowActionInput{WindowID: f.windowA}); !errors.Is(err, store.ErrWindowPaused) {
		t.Fatalf("paused err = %v, want ErrWindowPaused", err)
	}

	if _, err := pool.Exec(ctx, `UPDATE windows SET is_open = FALSE WHERE window_id = $1`, f.windowA); err != nil {
		t.Fatalf("close window: %v", err)
	}
	if _, err := st.CallNext(ctx, store.WindowActionInput{WindowID: f.windowA}); !errors.Is(err, store.ErrWindowClosed) {
		t.Fatalf("closed err = %v, want ErrWindowClosed", err)
	}
}

func TestCallNextConcurrencyDistinctTickets(t *testing.T) {
	ctx := context.Background()
	st, pool, cleanup := setupTestStore(t, ctx, Options{})
	t.Cleanup(cleanup)

	f := seedFixture(t, ctx, pool)
	createTicket(t, ctx, st, f, uuid.NewString())
	createTicket(t, ctx, st, f, uuid.NewString())

	var wg sync.WaitGroup
	results := make(chan string, 2)
	for _, windowID := range []string{f.windowA, f.windowB} {
		wg.Add(1)
		go func(id string) {
			defer wg.Done()
			result, err := st.CallNext(ctx, store.WindowActionInput{WindowID: id})
			if err != nil {
				t.Errorf("call next on %s: %v", id, err)
				return
			}
			results <- result.Ticket.TicketID
		}(windowID)
	}
	wg.Wait()
	close(results)

	seen := map[string]bool{}
	for id := range results {
		if seen[id] {
			t.Fatalf("ticket %s served at two windows", id)
		}
		seen[id] = true
	}
	if len(seen) != 2 {
		t.Fatalf("served %d distinct tickets, want 2", len(seen))
	}
}

func TestSkipRequeuePreservesOrder(t *testing.T) {
	ctx := context.Background()
	st, pool, cleanup := setupTestStore(t, ctx, Options{})
	t.Cleanup(cleanup)

	f := seedFixture(t, ctx, pool)
	first := createTicket(t, ctx, st, f, uuid.NewString())
	second := createTicket(t, ctx, st, f, uuid.NewString())
	third := createTicket(t, ctx, st, f, uuid.NewString())

	if _, err := st.CallNext(ctx, store.WindowActionInput{WindowID: f.windowA}); err != nil {
		t.Fatalf("call next: %v", err)
	}

	// Skip auto-advances to the second ticket.
	skipResult, err := st.Skip(ctx, store.WindowActionInput{WindowID: f.windowA})
	if err != nil {
		t.Fatalf("skip: %v", err)
	}
	if skipResult.Skipped.TicketID != first.TicketID {
		t.Fatalf("skipped %s, want %s", skipResult.Skipped.TicketID, first.TicketID)
	}
	if skipResult.Next == nil || skipResult.Next.TicketID != second.TicketID {
		t.Fatalf("auto-advance = %+v, want %s", skipResult.Next, second.TicketID)
	}

	requeue, err := st.RequeueAll(ctx, store.WindowActionInput{WindowID: f.windowA})
	if err != nil {
		t.Fatalf("requeue: %v", err)
	}
	if requeue.Count != 1 {
		t.Fatalf("requeued %d, want 1", requeue.Count)
	}

	// The re-queued first ticket kept its original queued_at, so it goes
	// back ahead of the third.
	waiting, err := st.ListQueue(ctx, f.department, "")
	if err != nil {
		t.Fatalf("list queue: %v", err)
	}
	if len(waiting) != 2 {
		t.Fatalf("waiting = %d tickets, want 2", len(waiting))
	}
	if waiting[0].TicketID != first.TicketID || waiting[1].TicketID != third.TicketID {
		t.Fatalf("order = [%s %s], want [%s %s]", waiting[0].TicketID, waiting[1].TicketID, first.TicketID, third.TicketID)
	}
	if waiting[0].SkippedAt != nil {
		t.Fatal("requeue must clear skipped_at")
	}
}

func TestRequeueAllNothingSkipped(t *testing.T) {
	ctx := context.Background()
	st, pool, cleanup := setupTestStore(t, ctx, Options{})
	t.Cleanup(cleanup)

	f := seedFixture(t, ctx, pool)
	_, err := st.RequeueAll(ctx, store.WindowActionInput{WindowID: f.windowA})
	if !errors.Is(err, store.ErrNoSkippedTickets) {
		t.Fatalf("err = %v, want ErrNoSkippedTickets", err)
	}
}

func TestPreviousSwapsWithCurrent(t *testing.T) {
	ctx := context.Background()
	st, pool, cleanup := setupTestStore(t, ctx, Options{})
	t.Cleanup(cleanup)

	f := seedFixture(t, ctx, pool)
	first := createTicket(t, ctx, st, f, uuid.NewString())
	second := createTicket(t, ctx, st, f, uuid.NewString())

	if _, err := st.CallNext(ctx, store.WindowActionInput{WindowID: f.windowA}); err != nil {
		t.Fatalf("call first: %v", err)
	}
	if _, err := st.CallNext(ctx, store.WindowActionInput{WindowID: f.windowA}); err != nil {
		t.Fatalf("call second: %v", err)
	}

	// Previous brings back the first ticket, displacing the second.
	result, err := st.Previous(ctx, store.WindowActionInput{WindowID: f.windowA})
	if err != nil {
		t.Fatalf("previous: %v", err)
	}
	if result.Ticket.TicketID != first.TicketID {
		t.Fatalf("recalled %s, want %s", result.Ticket.TicketID, first.TicketID)
	}
	if result.Ticket.Status != models.StatusServing || !result.Ticket.IsCurrentlyServing {
		t.Fatalf("recalled state = %s serving=%v", result.Ticket.Status, result.Ticket.IsCurrentlyServing)
	}

	// A second previous toggles back to the second ticket.
	result, err = st.Previous(ctx, store.WindowActionInput{WindowID: f.windowA})
	if err != nil {
		t.Fatalf("previous again: %v", err)
	}
	if result.Ticket.TicketID != second.TicketID {
		t.Fatalf("toggled to %s, want %s", result.Ticket.TicketID, second.TicketID)
	}
}

func TestPreviousRejectsRequeuedTicket(t *testing.T) {
	ctx := context.Background()
	st, pool, cleanup := setupTestStore(t, ctx, Options{})
	t.Cleanup(cleanup)

	f := seedFixture(t, ctx, pool)
	ticket := createTicket(t, ctx, st, f, uuid.NewString())

	if _, err := st.CallNext(ctx, store.WindowActionInput{WindowID: f.windowA}); err != nil {
		t.Fatalf("call next: %v", err)
	}
	if _, err := st.Skip(ctx, store.WindowActionInput{WindowID: f.windowA}); err != nil {
		t.Fatalf("skip: %v", err)
	}
	if _, err := st.RequeueAll(ctx, store.WindowActionInput{WindowID: f.windowA}); err != nil {
		t.Fatalf("requeue: %v", err)
	}

	// The retained previous ticket is back in the waiting pool; recalling it
	// would pull it out of FIFO order.
	_, err := st.Previous(ctx, store.WindowActionInput{WindowID: f.windowA})
	if !errors.Is(err, store.ErrInvalidState) {
		t.Fatalf("err = %v, want ErrInvalidState", err)
	}

	waiting, err := st.GetTicket(ctx, ticket.TicketID)
	if err != nil {
		t.Fatalf("get ticket: %v", err)
	}
	if waiting.Status != models.StatusWaiting || waiting.IsCurrentlyServing {
		t.Fatalf("ticket state = %s serving=%v, want untouched waiting", waiting.Status, waiting.IsCurrentlyServing)
	}
}

func TestPreviousWithoutHistory(t *testing.T) {
	ctx := context.Background()
	st, pool, cleanup := setupTestStore(t, ctx, Options{})
	t.Cleanup(cleanup)

	f := seedFixture(t, ctx, pool)
	_, err := st.Previous(ctx, store.WindowActionInput{WindowID: f.windowA})
	if !errors.Is(err, store.ErrNoPreviousTicket) {
		t.Fatalf("err = %v, want ErrNoPreviousTicket", err)
	}
}

func TestTransferMovesServingTicket(t *testing.T) {
	ctx := context.Background()
	st, pool, cleanup := setupTestStore(t, ctx, Options{})
	t.Cleanup(cleanup)

	f := seedFixture(t, ctx, pool)
	ticket := createTicket(t, ctx, st, f, uuid.NewString())

	if _, err := st.CallNext(ctx, store.WindowActionInput{WindowID: f.windowA}); err != nil {
		t.Fatalf("call next: %v", err)
	}

	result, err := st.Transfer(ctx, store.TransferInput{WindowID: f.windowA, ToWindowID: f.windowB})
	if err != nil {
		t.Fatalf("transfer: %v", err)
	}
	if result.Ticket.TicketID != ticket.TicketID {
		t.Fatalf("moved %s, want %s", result.Ticket.TicketID, ticket.TicketID)
	}
	if result.Ticket.WindowID == nil || *result.Ticket.WindowID != f.windowB {
		t.Fatalf("window after transfer = %v, want %s", result.Ticket.WindowID, f.windowB)
	}

	if _, err := st.CurrentServing(ctx, f.windowA); !errors.Is(err, store.ErrNothingServing) {
		t.Fatal("source window should have nothing serving after transfer")
	}
	current, err := st.CurrentServing(ctx, f.windowB)
	if err != nil {
		t.Fatalf("destination serving: %v", err)
	}
	if current.Ticket.TicketID != ticket.TicketID {
		t.Fatal("destination window should be serving the transferred ticket")
	}
	if current.Ticket.Status != models.StatusServing || !current.Ticket.IsCurrentlyServing {
		t.Fatalf("after transfer state = %s serving=%v, want serving", current.Ticket.Status, current.Ticket.IsCurrentlyServing)
	}

	// Transferring straight back restores the original window with the
	// ticket still serving.
	back, err := st.Transfer(ctx, store.TransferInput{WindowID: f.windowB, ToWindowID: f.windowA})
	if err != nil {
		t.Fatalf("transfer back: %v", err)
	}
	if back.Ticket.WindowID == nil || *back.Ticket.WindowID != f.windowA {
		t.Fatalf("window after round trip = %v, want %s", back.Ticket.WindowID, f.windowA)
	}
	if back.Ticket.Status != models.StatusServing || !back.Ticket.IsCurrentlyServing {
		t.Fatalf("round-trip state = %s serving=%v, want serving", back.Ticket.Status, back.Ticket.IsCurrentlyServing)
	}
	current, err = st.CurrentServing(ctx, f.windowA)
	if err != nil {
		t.Fatalf("original window serving: %v", err)
	}
	if current.Ticket.TicketID != ticket.TicketID {
		t.Fatal("original window should be serving the ticket again")
	}
	if _, err := st.CurrentServing(ctx, f.windowB); !errors.Is(err, store.ErrNothingServing) {
		t.Fatal("second window should have nothing serving after the round trip")
	}
}

func TestTransferToBusyWindow(t *testing.T) {
	ctx := context.Background()
	st, pool, cleanup := setupTestStore(t, ctx, Options{})
	t.Cleanup(cleanup)

	f := seedFixture(t, ctx, pool)
	createTicket(t, ctx, st, f, uuid.NewString())
	createTicket(t, ctx, st, f, uuid.NewString())

	if _, err := st.CallNext(ctx, store.WindowActionInput{WindowID: f.windowA}); err != nil {
		t.Fatalf("call on A: %v", err)
	}
	if _, err := st.CallNext(ctx, store.WindowActionInput{WindowID: f.windowB}); err != nil {
		t.Fatalf("call on B: %v", err)
	}

	_, err := st.Transfer(ctx, store.TransferInput{WindowID: f.windowA, ToWindowID: f.windowB})
	if !errors.Is(err, store.ErrWindowBusy) {
		t.Fatalf("err = %v, want ErrWindowBusy", err)
	}
}

func TestCompleteAndAnnotate(t *testing.T) {
	ctx := context.Background()
	st, pool, cleanup := setupTestStore(t, ctx, Options{})
	t.Cleanup(cleanup)

	f := seedFixture(t, ctx, pool)
	ticket := createTicket(t, ctx, st, f, uuid.NewString())

	if _, err := st.CallNext(ctx, store.WindowActionInput{WindowID: f.windowA}); err != nil {
		t.Fatalf("call next: %v", err)
	}
	result, err := st.Complete(ctx, store.WindowActionInput{WindowID: f.windowA})
	if err != nil {
		t.Fatalf("complete: %v", err)
	}
	if result.Ticket.Status != models.StatusCompleted || result.Ticket.CompletedAt == nil {
		t.Fatalf("completed state = %s at=%v", result.Ticket.Status, result.Ticket.CompletedAt)
	}

	rating := 4
	annotated, err := st.AnnotateTicket(ctx, store.AnnotateInput{
		TicketID: ticket.TicketID,
		Rating:   &rating,
		Remarks:  "all good",
	})
	if err != nil {
		t.Fatalf("annotate: %v", err)
	}
	if annotated.Rating == nil || *annotated.Rating != 4 || annotated.Remarks != "all good" {
		t.Fatalf("annotated = rating=%v remarks=%q", annotated.Rating, annotated.Remarks)
	}
}

func TestOutboxKeysetPagination(t *testing.T) {
	ctx := context.Background()
	st, pool, cleanup := setupTestStore(t, ctx, Options{})
	t.Cleanup(cleanup)

	f := seedFixture(t, ctx, pool)
	for i := 0; i < 3; i++ {
		createTicket(t, ctx, st, f, uuid.NewString())
	}

	offset := store.RelayOffset{
		LastEventTime: time.Unix(0, 0).UTC(),
		LastEventID:   "00000000-0000-0000-0000-000000000000",
	}

	var total int
	for {
		events, err := st.ListOutboxEvents(ctx, offset, 2)
		if err != nil {
			t.Fatalf("list outbox: %v", err)
		}
		if len(events) == 0 {
			break
		}
		total += len(events)
		last := events[len(events)-1]
		offset.LastEventTime = last.CreatedAt
		offset.LastEventID = last.EventID
		if err := st.UpdateRelayOffset(ctx, "test-relay", offset); err != nil {
			t.Fatalf("update offset: %v", err)
		}
	}
	// 3 creations, 2 outbox rows each.
	if total != 6 {
		t.Fatalf("relayed %d events, want 6", total)
	}

	saved, err := st.GetRelayOffset(ctx, "test-relay")
	if err != nil {
		t.Fatalf("get offset: %v", err)
	}
	if saved.LastEventID != offset.LastEventID {
		t.Fatalf("saved offset = %q, want %q", saved.LastEventID, offset.LastEventID)
	}
}

type fixture struct {
	department string
	serviceID  string
	windowA    string
	windowB    string
}

func createInput(f fixture, requestID string) store.CreateTicketInput {
	return store.CreateTicketInput{
		RequestID:    requestID,
		Department:   f.department,
		ServiceID:    f.serviceID,
		CustomerName: "Customer",
	}
}

func createTicket(t *testing.T, ctx context.Context, st *Store, f fixture, requestID string) models.Ticket {
	t.Helper()
	ticket, created, err := st.CreateTicket(ctx, createInput(f, requestID))
	if err != nil {
		t.Fatalf("create ticket: %v", err)
	}
	if !created {
		t.Fatal("expected a new ticket")
	}
	// queued_at has microsecond resolution in Postgres; space the tickets
	// out so FIFO assertions are stable.
	time.Sleep(2 * time.Millisecond)
	return ticket
}

func seedFixture(t *testing.T, ctx context.Context, pool *pgxpool.Pool) fixture {
	return seedFixtureNamed(t, ctx, pool, "registrar")
}

func seedFixtureNamed(t *testing.T, ctx context.Context, pool *pgxpool.Pool, department string) fixture {
	t.Helper()
	f := fixture{
		department: department,
		serviceID:  uuid.NewString(),
		windowA:    uuid.NewString(),
		windowB:    uuid.NewString(),
	}

	if _, err := pool.Exec(ctx, `
		INSERT INTO departments (code, name) VALUES ($1, $2)
	`, f.department, strings.ToUpper(department)); err != nil {
		t.Fatalf("insert department: %v", err)
	}
	if _, err := pool.Exec(ctx, `
		INSERT INTO services (service_id, department, name, active) VALUES ($1, $2, 'Records Request', TRUE)
	`, f.serviceID, f.department); err != nil {
		t.Fatalf("insert service: %v", err)
	}
	for i, windowID := range []string{f.windowA, f.windowB} {
		if _, err := pool.Exec(ctx, `
			INSERT INTO windows (window_id, department, name, is_open, is_serving)
			VALUES ($1, $2, $3, TRUE, TRUE)
		`, windowID, f.department, "Window "+string(rune('A'+i))); err != nil {
			t.Fatalf("insert window: %v", err)
		}
		if _, err := pool.Exec(ctx, `
			INSERT INTO window_services (window_id, service_id) VALUES ($1, $2)
		`, windowID, f.serviceID); err != nil {
			t.Fatalf("map window service: %v", err)
		}
	}
	return f
}

func setupTestStore(t *testing.T, ctx context.Context, options Options) (*Store, *pgxpool.Pool, func()) {
	t.Helper()
	dsn := os.Getenv("TEST_DB_DSN")
	if dsn == "" {
		dsn = os.Getenv("DB_DSN")
	}
	if dsn == "" {
		t.Skip("TEST_DB_DSN or DB_DSN is required for integration tests")
	}

	schemaName := "test_" + strings.ReplaceAll(uuid.NewString(), "-", "")
	if err := createTestSchema(ctx, dsn, schemaName); err != nil {
		t.Fatalf("create schema: %v", err)
	}

	pool, err := newPoolWithSchema(ctx, dsn, schemaName)
	if err != nil {
		t.Fatalf("open pool: %v", err)
	}

	if err := Migrate(ctx, pool); err != nil {
		pool.Close()
		t.Fatalf("migrate: %v", err)
	}

	st := NewStore(pool, options)
	cleanup := func() {
		pool.Close()
		_ = dropTestSchema(context.Background(), dsn, schemaName)
	}
	return st, pool, cleanup
}

func createTestSchema(ctx context.Context, dsn, schemaName string) error {
	conn, err := pgx.Connect(ctx, dsn)
	if err != nil {
		return err
	}
	defer conn.Close(ctx)
	_, err = conn.Exec(ctx, "CREATE SCHEMA "+schemaName)
	return err
}

func dropTestSchema(ctx context.Context, dsn, schemaName string) error {
	conn, err := pgx.Connect(ctx, dsn)
	if err != nil {
		return err
	}
	defer conn.Close(ctx)
	_, err = conn.Exec(ctx, "DROP SCHEMA "+schemaName+" CASCADE")
	return err
}

func newPoolWithSchema(ctx context.Context, dsn, schemaName string) (*pgxpool.Pool, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, err
	}
	cfg.ConnConfig.RuntimeParams["search_path"] = schemaName
	return pgxpool.NewWithConfig(ctx, cfg)
}
