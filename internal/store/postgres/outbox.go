package postgres

import (
	"context"
	"errors"

	"deskline/internal/store"

	"github.com/jackc/pgx/v5"
)

func (s *Store) ListOutboxEvents(ctx context.Context, after store.RelayOffset, limit int) ([]store.OutboxEvent, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.pool.Query(ctx, `
		SELECT event_id, channel, type, payload_json, created_at
		FROM outbox_events
		WHERE (created_at, event_id) > ($1, $2)
		ORDER BY created_at ASC, event_id ASC
		LIMIT $3
	`, after.LastEventTime, after.LastEventID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []store.OutboxEvent
	for rows.Next() {
		var event store.OutboxEvent
		if err := rows.Scan(&event.EventID, &event.Channel, &event.Type, &event.Payload, &event.CreatedAt); err != nil {
			return nil, err
		}
		events = append(events, event)
	}
	return events, rows.Err()
}

func (s *Store) GetRelayOffset(ctx context.Context, name string) (store.RelayOffset, error) {
	var offset store.RelayOffset
	row := s.pool.QueryRow(ctx, `
		SELECT last_event_time, last_event_id FROM relay_offsets WHERE relay_name = $1
	`, name)
	if err := row.Scan(&offset.LastEventTime, &offset.LastEventID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return store.RelayOffset{}, nil
		}
		return store.RelayOffset{}, err
	}
	return offset, nil
}

func (s *Store) UpdateRelayOffset(ctx context.Context, name string, offset store.RelayOffset) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO relay_offsets (relay_name, last_event_time, last_event_id)
		VALUES ($1, $2, $3)
		ON CONFLICT (relay_name) DO UPDATE
		SET last_event_time = EXCLUDED.last_event_time,
			last_event_id = EXCLUDED.last_event_id
	`, name, offset.LastEventTime, offset.LastEventID)
	return err
}
