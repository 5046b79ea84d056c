package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/ganot/forge-registry/internal/domain/activity"
)

// ActivityRepository implements activity.Repository for SQLite
type ActivityRepository struct {
	db *DB
}

// NewActivityRepository creates a new ActivityRepository
func NewActivityRepository(db *DB) *ActivityRepository {
	return &ActivityRepository{db: db}
}

// Log inserts a new audit event
func (r *ActivityRepository) Log(ctx context.Context, event *activity.Event) error {
	createdAt := event.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}

	var data sql.NullString
	if len(event.Data) > 0 {
		encoded, err := json.Marshal(event.Data)
		if err != nil {
			return fmt.Errorf("failed to encode event data: %w", err)
		}
		data = sql.NullString{String: string(encoded), Valid: true}
	}

	var actorID, actorName sql.NullString
	if event.Actor != nil {
		actorID = sql.NullString{String: event.Actor.AccountID, Valid: true}
		actorName = sql.NullString{String: event.Actor.DisplayName, Valid: event.Actor.DisplayName != ""}
	}

	query := `
		INSERT INTO activity_log (
			event_type, actor_id, actor_name, project_id, project_title, data, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?)
	`

	result, err := r.db.ExecContext(ctx, query,
		event.Type,
		actorID,
		actorName,
		event.ProjectID,
		event.ProjectTitle,
		data,
		createdAt.UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("failed to log activity: %w", err)
	}

	id, err := result.LastInsertId()
	if err == nil {
		event.ID = id
	}
	event.CreatedAt = createdAt

	return nil
}

// List returns audit events matching the given filters, newest first
func (r *ActivityRepository) List(ctx context.Context, opts activity.ListOptions) ([]activity.Event, error) {
	query := selectEvents
	args := []interface{}{}
	conditions := []string{}

	if opts.ProjectID != "" {
		conditions = append(conditions, "project_id = ?")
		args = append(args, opts.ProjectID)
	}
	if opts.Type != nil {
		conditions = append(conditions, "event_type = ?")
		args = append(args, *opts.Type)
	}

	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}

	query += " ORDER BY created_at DESC, id DESC"

	if opts.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, opts.Limit)
	} else if opts.Offset > 0 {
		query += " LIMIT -1"
	}
	if opts.Offset > 0 {
		query += " OFFSET ?"
		args = append(args, opts.Offset)
	}

	return r.query(ctx, query, args...)
}

// ListUntitled returns events recorded without a project title
func (r *ActivityRepository) ListUntitled(ctx context.Context, limit int) ([]activity.Event, error) {
	query := selectEvents + " WHERE project_title = '' ORDER BY id"
	args := []interface{}{}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}
	return r.query(ctx, query, args...)
}

// SetTitle records the project title on an event
func (r *ActivityRepository) SetTitle(ctx context.Context, id int64, title string) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE activity_log SET project_title = ? WHERE id = ?`, title, id)
	if err != nil {
		return fmt.Errorf("failed to set title on event %d: %w", id, err)
	}
	return nil
}

const selectEvents = `
	SELECT id, event_type, actor_id, actor_name, project_id, project_title, data, created_at
	FROM activity_log`

func (r *ActivityRepository) query(ctx context.Context, query string, args ...interface{}) ([]activity.Event, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list activity: %w", err)
	}
	defer rows.Close()

	var events []activity.Event
	for rows.Next() {
		var event activity.Event
		var actorID, actorName, data sql.NullString
		var createdAt int64
		if err := rows.Scan(
			&event.ID,
			&event.Type,
			&actorID,
			&actorName,
			&event.ProjectID,
			&event.ProjectTitle,
			&data,
			&createdAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan activity entry: %w", err)
		}
		if actorID.Valid {
			event.Actor = &activity.Actor{AccountID: actorID.String, DisplayName: actorName.String}
		}
		if data.Valid && data.String != "" {
			if err := json.Unmarshal([]byte(data.String), &event.Data); err != nil {
				return nil, fmt.Errorf("failed to decode event %d data: %w", event.ID, err)
			}
		}
		event.CreatedAt = time.UnixMilli(createdAt).UTC()
		events = append(events, event)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating activity rows: %w", err)
	}

	return events, nil
}
