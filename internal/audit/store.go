package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const (
	defaultQueryLimit = 100

	eventColumns = `id, event_type, actor_type, actor_id, resource_type, resource_id,
		action, status, ip_address, user_agent, request_id, metadata, error_message, created_at`

	errInsertEventFmt = "failed to insert audit event: %w"
	errQueryEventsFmt = "failed to query audit events: %w"
	errEncodeMetaFmt  = "failed to encode audit metadata: %w"
	errDecodeMetaFmt  = "failed to decode audit metadata: %w"
)

// QueryFilter narrows an activity lookup. Zero fields match everything.
type QueryFilter struct {
	ActorID      *uuid.UUID
	ResourceType ResourceType
	ResourceID   *uuid.UUID
	Since        time.Time
	Limit        int
	Offset       int
}

// where renders the filter as a WHERE clause with positional args.
func (f QueryFilter) where() (string, []any) {
	var (
		conds []string
		args  []any
	)
	add := func(cond string, arg any) {
		args = append(args, arg)
		conds = append(conds, fmt.Sprintf(cond, len(args)))
	}

	if f.ActorID != nil {
		add("actor_id = $%d", *f.ActorID)
	}
	if f.ResourceType != "" {
		add("resource_type = $%d", f.ResourceType)
	}
	if f.ResourceID != nil {
		add("resource_id = $%d", *f.ResourceID)
	}
	if !f.Since.IsZero() {
		add("created_at >= $%d", f.Since)
	}

	if len(conds) == 0 {
		return "", args
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

// PostgresStore writes to the audit_events table.
type PostgresStore struct {
	pool *pgxpool.Pool
}

func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

func (s *PostgresStore) Insert(ctx context.Context, event *Event) error {
	var meta []byte
	if len(event.Metadata) > 0 {
		var err error
		if meta, err = json.Marshal(event.Metadata); err != nil {
			return fmt.Errorf(errEncodeMetaFmt, err)
		}
	}

	_, err := s.pool.Exec(ctx,
		`INSERT INTO audit_events (`+eventColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`,
		event.ID, event.EventType, event.ActorType, event.ActorID, event.ResourceType, event.ResourceID,
		event.Action, event.Status, event.IPAddress, event.UserAgent, event.RequestID, meta,
		event.ErrorMessage, event.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf(errInsertEventFmt, err)
	}
	return nil
}

// Query returns matching events, newest first.
func (s *PostgresStore) Query(ctx context.Context, filter QueryFilter) ([]*Event, error) {
	where, args := filter.where()

	limit := filter.Limit
	if limit <= 0 {
		limit = defaultQueryLimit
	}
	offset := filter.Offset
	if offset < 0 {
		offset = 0
	}
	args = append(args, limit, offset)

	query := `SELECT ` + eventColumns + ` FROM audit_events` + where +
		fmt.Sprintf(" ORDER BY created_at DESC LIMIT $%d OFFSET $%d", len(args)-1, len(args))

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf(errQueryEventsFmt, err)
	}

	events, err := pgx.CollectRows(rows, scanEvent)
	if err != nil {
		return nil, fmt.Errorf(errQueryEventsFmt, err)
	}
	return events, nil
}

func scanEvent(row pgx.CollectableRow) (*Event, error) {
	e := &Event{}
	var meta []byte
	if err := row.Scan(
		&e.ID, &e.EventType, &e.ActorType, &e.ActorID, &e.ResourceType, &e.ResourceID,
		&e.Action, &e.Status, &e.IPAddress, &e.UserAgent, &e.RequestID, &meta,
		&e.ErrorMessage, &e.CreatedAt,
	); err != nil {
		return nil, err
	}

	if len(meta) > 0 {
		if err := json.Unmarshal(meta, &e.Metadata); err != nil {
			return nil, fmt.Errorf(errDecodeMetaFmt, err)
		}
	}
	return e, nil
}
