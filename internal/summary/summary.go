// Package summary builds the admin end-of-day totals per user.
package summary

import (
	"context"
	"fmt"
	"sort"
	"time"

	"agentdesk/internal/model"
	"agentdesk/internal/repository"
	"agentdesk/internal/timer"
)

type UserLister interface {
	List(ctx context.Context) ([]model.User, error)
}

type IntervalLister interface {
	List(ctx context.Context, kind model.Kind, filter repository.IntervalFilter) ([]model.Interval, error)
}

// Report is a day's raw intervals next to the per-user totals.
type Report struct {
	Date       string             `json:"date"`
	Summary    []model.SummaryRow `json:"summary"`
	Attendance []model.Interval   `json:"attendance"`
	Breaks     []model.Interval   `json:"breaks"`
	Calls      []model.Interval   `json:"calls"`
}

type Engine struct {
	users     UserLister
	intervals IntervalLister
}

func NewEngine(users UserLister, intervals IntervalLister) *Engine {
	return &Engine{users: users, intervals: intervals}
}

// Summarize totals closed intervals started on date (UTC). An empty
// userFilter means every user; users without activity get zero totals.
func (e *Engine) Summarize(ctx context.Context, date time.Time, userFilter string) ([]model.SummaryRow, error) {
	report, err := e.Report(ctx, date, userFilter)
	if err != nil {
		return nil, err
	}
	return report.Summary, nil
}

func (e *Engine) Report(ctx context.Context, date time.Time, userFilter string) (*Report, error) {
	day := model.DayOf(date)

	users, err := e.users.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("summary users: %w: %w", timer.ErrUpstreamUnavailable, err)
	}

	report := &Report{Date: day}
	lists := []struct {
		kind model.Kind
		dst  *[]model.Interval
	}{
		{model.KindAttendance, &report.Attendance},
		{model.KindBreak, &report.Breaks},
		{model.KindCall, &report.Calls},
	}
	for _, l := range lists {
		intervals, err := e.intervals.List(ctx, l.kind, repository.IntervalFilter{Day: day, UserID: userFilter})
		if err != nil {
			return nil, fmt.Errorf("summary %s: %w: %w", l.kind, timer.ErrUpstreamUnavailable, err)
		}
		*l.dst = intervals
	}

	report.Summary = Aggregate(users, userFilter, report.Attendance, report.Breaks, report.Calls)
	return report, nil
}

// Aggregate groups intervals by user and sums their durations. Open intervals
// carry no duration and are skipped.
func Aggregate(users []model.User, userFilter string, attendance, breaks, calls []model.Interval) []model.SummaryRow {
	rows := make(map[string]*model.SummaryRow)
	for _, user := range users {
		if userFilter != "" && user.ID != userFilter {
			continue
		}
		rows[user.ID] = &model.SummaryRow{UserID: user.ID, FullName: user.FullName}
	}

	add := func(intervals []model.Interval, field func(*model.SummaryRow) *int) {
		for _, interval := range intervals {
			if interval.Duration == nil {
				continue
			}
			row, ok := rows[interval.UserID]
			if !ok {
				continue
			}
			*field(row) += *interval.Duration
		}
	}
	add(attendance, func(r *model.SummaryRow) *int { return &r.TotalWorkMinutes })
	add(breaks, func(r *model.SummaryRow) *int { return &r.TotalBreakMinutes })
	add(calls, func(r *model.SummaryRow) *int { return &r.TotalCallSeconds })

	result := make([]model.SummaryRow, 0, len(rows))
	for _, row := range rows {
		result = append(result, *row)
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].FullName != result[j].FullName {
			return result[i].FullName < result[j].FullName
		}
		return result[i].UserID < result[j].UserID
	})
	return result
}
