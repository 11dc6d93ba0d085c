package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"agentdesk/internal/model"
)

// table maps an interval kind onto its SQL table. Each kind keeps the column
// names the dashboard has always used, so the queries are assembled per kind.
type table struct {
	name     string
	start    string
	end      string
	date     string
	duration string
	extra    []string
}

var tables = map[model.Kind]table{
	model.KindAttendance: {
		name:     "attendance",
		start:    "clock_in",
		end:      "clock_out",
		date:     "clock_date",
		duration: "work_minutes",
	},
	model.KindBreak: {
		name:     "breaks",
		start:    "break_start",
		end:      "break_end",
		date:     "break_date",
		duration: "break_minutes",
		extra:    []string{"attendance_id"},
	},
	model.KindCall: {
		name:     "calls",
		start:    "call_start",
		end:      "call_end",
		date:     "call_date",
		duration: "duration_seconds",
		extra:    []string{"task_type", "notes", "room_id"},
	},
}

func tableFor(kind model.Kind) (table, error) {
	t, ok := tables[kind]
	if !ok {
		return table{}, fmt.Errorf("unknown interval kind %q", kind)
	}
	return t, nil
}

func (t table) columns() string {
	cols := append([]string{"id", "user_id", t.start, t.end, t.duration}, t.extra...)
	return strings.Join(cols, ", ")
}

// IntervalFilter narrows ListIntervals. Zero values mean "no restriction".
type IntervalFilter struct {
	Day        string
	UserID     string
	ClosedOnly bool
}

type IntervalRepository struct {
	db *sql.DB
}

func NewIntervalRepository(db *sql.DB) *IntervalRepository {
	return &IntervalRepository{db: db}
}

// Insert stores a new open interval. A second open interval of the same kind
// for the same user trips the partial unique index and yields ErrConflict.
func (r *IntervalRepository) Insert(ctx context.Context, interval *model.Interval) error {
	t, err := tableFor(interval.Kind)
	if err != nil {
		return err
	}

	cols := []string{"id", "user_id", t.start, t.date}
	args := []interface{}{
		interval.ID,
		interval.UserID,
		interval.Start.UTC().Format(time.RFC3339Nano),
		model.DayOf(interval.Start),
	}
	switch interval.Kind {
	case model.KindBreak:
		cols = append(cols, "attendance_id")
		args = append(args, nullableString(interval.AttendanceID))
	case model.KindCall:
		cols = append(cols, "task_type", "notes", "room_id")
		args = append(args, interval.TaskType, interval.Notes, interval.RoomID)
	}

	query := fmt.Sprintf(
		`INSERT INTO %s (%s) VALUES (%s)`,
		t.name,
		strings.Join(cols, ", "),
		strings.TrimSuffix(strings.Repeat("?, ", len(cols)), ", "),
	)
	_, err = r.db.ExecContext(ctx, query, args...)
	if isUniqueViolation(err) {
		return ErrConflict
	}
	if err != nil {
		return fmt.Errorf("insert %s: %w", t.name, err)
	}
	return nil
}

func (r *IntervalRepository) Get(ctx context.Context, kind model.Kind, id string) (*model.Interval, error) {
	t, err := tableFor(kind)
	if err != nil {
		return nil, err
	}

	row := r.db.QueryRowContext(
		ctx,
		fmt.Sprintf(`SELECT %s FROM %s WHERE id = ?`, t.columns(), t.name),
		id,
	)
	return scanInterval(row, kind)
}

// FindOpen returns the most recent open interval of kind for the user, or nil
// when there is none.
func (r *IntervalRepository) FindOpen(ctx context.Context, kind model.Kind, userID string) (*model.Interval, error) {
	t, err := tableFor(kind)
	if err != nil {
		return nil, err
	}

	row := r.db.QueryRowContext(
		ctx,
		fmt.Sprintf(
			`SELECT %s FROM %s
			 WHERE user_id = ? AND %s IS NULL
			 ORDER BY %s DESC
			 LIMIT 1`,
			t.columns(), t.name, t.end, t.start,
		),
		userID,
	)
	interval, err := scanInterval(row, kind)
	if errors.Is(err, ErrNotFound) {
		return nil, nil
	}
	return interval, err
}

// Close sets end and duration on an interval that is still open. It reports
// false when no row matched, either because the id is unknown or because the
// interval was closed in the meantime.
func (r *IntervalRepository) Close(ctx context.Context, kind model.Kind, id string, end time.Time, duration int) (bool, error) {
	t, err := tableFor(kind)
	if err != nil {
		return false, err
	}

	result, err := r.db.ExecContext(
		ctx,
		fmt.Sprintf(
			`UPDATE %s SET %s = ?, %s = ? WHERE id = ? AND %s IS NULL`,
			t.name, t.end, t.duration, t.end,
		),
		end.UTC().Format(time.RFC3339Nano),
		duration,
		id,
	)
	if err != nil {
		return false, fmt.Errorf("close %s: %w", t.name, err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("close %s rows affected: %w", t.name, err)
	}
	return affected == 1, nil
}

func (r *IntervalRepository) List(ctx context.Context, kind model.Kind, filter IntervalFilter) ([]model.Interval, error) {
	t, err := tableFor(kind)
	if err != nil {
		return nil, err
	}

	var conds []string
	var args []interface{}
	if filter.Day != "" {
		conds = append(conds, t.date+" = ?")
		args = append(args, filter.Day)
	}
	if filter.UserID != "" {
		conds = append(conds, "user_id = ?")
		args = append(args, filter.UserID)
	}
	if filter.ClosedOnly {
		conds = append(conds, t.end+" IS NOT NULL", t.duration+" IS NOT NULL")
	}

	query := fmt.Sprintf(`SELECT %s FROM %s`, t.columns(), t.name)
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	query += fmt.Sprintf(" ORDER BY %s", t.start)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", t.name, err)
	}
	defer rows.Close()

	intervals := make([]model.Interval, 0)
	for rows.Next() {
		interval, scanErr := scanInterval(rows, kind)
		if scanErr != nil {
			return nil, scanErr
		}
		intervals = append(intervals, *interval)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate %s: %w", t.name, err)
	}
	return intervals, nil
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanInterval(s scanner, kind model.Kind) (*model.Interval, error) {
	interval := model.Interval{Kind: kind}
	var start string
	var end sql.NullString
	var duration sql.NullInt64
	var attendanceID sql.NullString

	dest := []interface{}{&interval.ID, &interval.UserID, &start, &end, &duration}
	switch kind {
	case model.KindBreak:
		dest = append(dest, &attendanceID)
	case model.KindCall:
		dest = append(dest, &interval.TaskType, &interval.Notes, &interval.RoomID)
	}

	if err := s.Scan(dest...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("scan %s: %w", kind, err)
	}

	parsedStart, err := parseTime(start)
	if err != nil {
		return nil, fmt.Errorf("parse %s start: %w", kind, err)
	}
	interval.Start = parsedStart

	if end.Valid {
		parsedEnd, parseErr := parseTime(end.String)
		if parseErr != nil {
			return nil, fmt.Errorf("parse %s end: %w", kind, parseErr)
		}
		interval.End = &parsedEnd
	}
	if duration.Valid {
		value := int(duration.Int64)
		interval.Duration = &value
	}
	if attendanceID.Valid {
		value := attendanceID.String
		interval.AttendanceID = &value
	}

	return &interval, nil
}

func nullableString(value *string) interface{} {
	if value == nil {
		return nil
	}
	return *value
}
