package postgres

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
)

const schema = `
CREATE TABLE IF NOT EXISTS departments (
	code TEXT PRIMARY KEY,
	name TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS services (
	service_id UUID PRIMARY KEY,
	department TEXT NOT NULL REFERENCES departments(code),
	name TEXT NOT NULL,
	active BOOLEAN NOT NULL DEFAULT TRUE
);

CREATE TABLE IF NOT EXISTS windows (
	window_id UUID PRIMARY KEY,
	department TEXT NOT NULL REFERENCES departments(code),
	name TEXT NOT NULL,
	is_open BOOLEAN NOT NULL DEFAULT FALSE,
	is_serving BOOLEAN NOT NULL DEFAULT FALSE,
	previous_ticket_id UUID
);

CREATE TABLE IF NOT EXISTS window_services (
	window_id UUID NOT NULL REFERENCES windows(window_id),
	service_id UUID NOT NULL REFERENCES services(service_id),
	PRIMARY KEY (window_id, service_id)
);

CREATE TABLE IF NOT EXISTS tickets (
	ticket_id UUID PRIMARY KEY,
	request_id UUID NOT NULL UNIQUE,
	number INTEGER NOT NULL,
	department TEXT NOT NULL REFERENCES departments(code),
	service_id UUID NOT NULL REFERENCES services(service_id),
	window_id UUID REFERENCES windows(window_id),
	customer_name TEXT NOT NULL DEFAULT '',
	role TEXT NOT NULL DEFAULT '',
	is_priority BOOLEAN NOT NULL DEFAULT FALSE,
	status TEXT NOT NULL,
	is_currently_serving BOOLEAN NOT NULL DEFAULT FALSE,
	processed_by UUID,
	service_day DATE NOT NULL,
	queued_at TIMESTAMPTZ NOT NULL,
	called_at TIMESTAMPTZ,
	served_at TIMESTAMPTZ,
	completed_at TIMESTAMPTZ,
	skipped_at TIMESTAMPTZ,
	rating INTEGER,
	remarks TEXT NOT NULL DEFAULT ''
);

-- One serving ticket per window. Writers serialize on the window row lock;
-- this index enforces the invariant at the storage layer.
CREATE UNIQUE INDEX IF NOT EXISTS tickets_one_serving_per_window
	ON tickets (window_id) WHERE is_currently_serving;

CREATE INDEX IF NOT EXISTS tickets_department_status_queued
	ON tickets (department, status, queued_at);

CREATE INDEX IF NOT EXISTS tickets_window_status
	ON tickets (window_id, status);

CREATE TABLE IF NOT EXISTS ticket_sequences (
	department TEXT NOT NULL REFERENCES departments(code),
	service_day DATE NOT NULL,
	last_number INTEGER NOT NULL,
	PRIMARY KEY (department, service_day)
);

CREATE TABLE IF NOT EXISTS outbox_events (
	event_id UUID PRIMARY KEY,
	channel TEXT NOT NULL,
	type TEXT NOT NULL,
	payload_json JSONB NOT NULL,
	created_at TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS outbox_events_created
	ON outbox_events (created_at, event_id);

CREATE TABLE IF NOT EXISTS relay_offsets (
	relay_name TEXT PRIMARY KEY,
	last_event_time TIMESTAMPTZ NOT NULL,
	last_event_id UUID NOT NULL
);
`

func Migrate(ctx context.Context, pool *pgxpool.Pool) error {
	_, err := pool.Exec(ctx, schema)
	return err
}
