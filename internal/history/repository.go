// Package history persists controller lifecycle transitions and switch
// executions to SQLite for later inspection over the API.
package history

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/motive-automation/motive-core/internal/manager"
)

// Transition is one recorded lifecycle state change.
type Transition struct {
	ID         string    `json:"id"`
	Controller string    `json:"controller"`
	From       string    `json:"from"`
	To         string    `json:"to"`
	Reason     string    `json:"reason"`
	CreatedAt  time.Time `json:"created_at"`
}

// Switch is one recorded switch execution.
type Switch struct {
	ID         string        `json:"id"`
	Started    []string      `json:"started"`
	Stopped    []string      `json:"stopped"`
	Strictness string        `json:"strictness"`
	Error      string        `json:"error,omitempty"`
	Duration   time.Duration `json:"duration"`
	CreatedAt  time.Time     `json:"created_at"`
}

// Filter controls which history rows to return.
type Filter struct {
	Controller string // optional: transitions touching this controller
	Reason     string // optional: filter by transition reason
	Limit      int    // default 50, max 200
	Offset     int    // pagination offset
}

// TransitionList contains paginated transition results.
type TransitionList struct {
	Transitions []Transition `json:"transitions"`
	Total       int          `json:"total"`
	Limit       int          `json:"limit"`
	Offset      int          `json:"offset"`
}

// SwitchList contains paginated switch results.
type SwitchList struct {
	Switches []Switch `json:"switches"`
	Total    int      `json:"total"`
	Limit    int      `json:"limit"`
	Offset   int      `json:"offset"`
}

// Repository defines the interface for history operations. The write
// half satisfies manager.Recorder.
type Repository interface {
	manager.Recorder
	ListTransitions(ctx context.Context, filter Filter) (*TransitionList, error)
	ListSwitches(ctx context.Context, filter Filter) (*SwitchList, error)
}

// SQLiteRepository stores history in SQLite.
type SQLiteRepository struct {
	db *sql.DB
}

// NewSQLiteRepository creates a new history repository.
func NewSQLiteRepository(db *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

// RecordTransition implements manager.Recorder.
func (r *SQLiteRepository) RecordTransition(ctx context.Context, ev manager.TransitionEvent) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO controller_transitions (id, controller, from_state, to_state, reason, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		ev.ID, ev.Controller, ev.From.String(), ev.To.String(), ev.Reason,
		ev.At.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("inserting transition: %w", err)
	}
	return nil
}

// RecordSwitch implements manager.Recorder.
func (r *SQLiteRepository) RecordSwitch(ctx context.Context, ev manager.SwitchEvent) error {
	started, err := json.Marshal(nonNil(ev.Started))
	if err != nil {
		return fmt.Errorf("marshalling started list: %w", err)
	}
	stopped, err := json.Marshal(nonNil(ev.Stopped))
	if err != nil {
		return fmt.Errorf("marshalling stopped list: %w", err)
	}

	_, err = r.db.ExecContext(ctx,
		`INSERT INTO switch_executions (id, started, stopped, strictness, error, duration_us, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		ev.ID, string(started), string(stopped), ev.Strictness,
		nullableString(ev.Error), ev.Duration.Microseconds(),
		ev.At.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("inserting switch execution: %w", err)
	}
	return nil
}

// ListTransitions returns transitions matching the filter, most recent
// first.
func (r *SQLiteRepository) ListTransitions(ctx context.Context, filter Filter) (*TransitionList, error) {
	filter = clamp(filter)

	var conditions []string
	var args []any
	if filter.Controller != "" {
		conditions = append(conditions, "controller = ?")
		args = append(args, filter.Controller)
	}
	if filter.Reason != "" {
		conditions = append(conditions, "reason = ?")
		args = append(args, filter.Reason)
	}
	where := ""
	if len(conditions) > 0 {
		where = "WHERE " + strings.Join(conditions, " AND ")
	}

	var total int
	countQuery := fmt.Sprintf("SELECT COUNT(*) FROM controller_transitions %s", where)
	if err := r.db.QueryRowContext(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, fmt.Errorf("counting transitions: %w", err)
	}

	query := fmt.Sprintf(
		`SELECT id, controller, from_state, to_state, reason, created_at
		 FROM controller_transitions %s
		 ORDER BY created_at DESC LIMIT ? OFFSET ?`, where)
	args = append(args, filter.Limit, filter.Offset)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying transitions: %w", err)
	}
	defer rows.Close()

	transitions := []Transition{}
	for rows.Next() {
		var tr Transition
		var createdAt string
		if err := rows.Scan(&tr.ID, &tr.Controller, &tr.From, &tr.To, &tr.Reason, &createdAt); err != nil {
			return nil, fmt.Errorf("scanning transition: %w", err)
		}
		tr.CreatedAt, err = parseTimestamp(createdAt)
		if err != nil {
			return nil, err
		}
		transitions = append(transitions, tr)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating transitions: %w", err)
	}

	return &TransitionList{
		Transitions: transitions,
		Total:       total,
		Limit:       filter.Limit,
		Offset:      filter.Offset,
	}, nil
}

// ListSwitches returns switch executions, most recent first.
func (r *SQLiteRepository) ListSwitches(ctx context.Context, filter Filter) (*SwitchList, error) {
	filter = clamp(filter)

	var total int
	if err := r.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM switch_executions").Scan(&total); err != nil {
		return nil, fmt.Errorf("counting switch executions: %w", err)
	}

	rows, err := r.db.QueryContext(ctx,
		`SELECT id, started, stopped, strictness, error, duration_us, created_at
		 FROM switch_executions
		 ORDER BY created_at DESC LIMIT ? OFFSET ?`,
		filter.Limit, filter.Offset,
	)
	if err != nil {
		return nil, fmt.Errorf("querying switch executions: %w", err)
	}
	defer rows.Close()

	switches := []Switch{}
	for rows.Next() {
		var sw Switch
		var started, stopped, createdAt string
		var swErr sql.NullString
		var durationUS int64
		if err := rows.Scan(&sw.ID, &started, &stopped, &sw.Strictness, &swErr, &durationUS, &createdAt); err != nil {
			return nil, fmt.Errorf("scanning switch execution: %w", err)
		}
		if err := json.Unmarshal([]byte(started), &sw.Started); err != nil {
			return nil, fmt.Errorf("parsing started list: %w", err)
		}
		if err := json.Unmarshal([]byte(stopped), &sw.Stopped); err != nil {
			return nil, fmt.Errorf("parsing stopped list: %w", err)
		}
		if swErr.Valid {
			sw.Error = swErr.String
		}
		sw.Duration = time.Duration(durationUS) * time.Microsecond
		sw.CreatedAt, err = parseTimestamp(createdAt)
		if err != nil {
			return nil, err
		}
		switches = append(switches, sw)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating switch executions: %w", err)
	}

	return &SwitchList{
		Switches: switches,
		Total:    total,
		Limit:    filter.Limit,
		Offset:   filter.Offset,
	}, nil
}

func clamp(filter Filter) Filter {
	if filter.Limit <= 0 {
		filter.Limit = 50
	}
	if filter.Limit > 200 {
		filter.Limit = 200
	}
	if filter.Offset < 0 {
		filter.Offset = 0
	}
	return filter
}

func parseTimestamp(s string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parsing history timestamp %q: %w", s, err)
	}
	return t, nil
}

// nullableString returns nil for empty strings, for nullable TEXT columns.
func nullableString(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
