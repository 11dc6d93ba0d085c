package model

import "time"

type Kind string

const (
	KindAttendance Kind = "attendance"
	KindBreak      Kind = "break"
	KindCall       Kind = "call"
)

func (k Kind) Valid() bool {
	return k == KindAttendance || k == KindBreak || k == KindCall
}

// Unit is the granularity the kind reports its duration in: minutes for
// attendance and breaks, seconds for calls.
func (k Kind) Unit() time.Duration {
	if k == KindCall {
		return time.Second
	}
	return time.Minute
}

const (
	TaskFollowUp = "Follow-up"
	TaskLeadCall = "Lead Call"
	TaskSurvey   = "Survey"
	TaskSupport  = "Support"
	TaskOther    = "Other"
)

var TaskTypes = []string{TaskFollowUp, TaskLeadCall, TaskSurvey, TaskSupport, TaskOther}

func IsValidTaskType(taskType string) bool {
	for _, t := range TaskTypes {
		if t == taskType {
			return true
		}
	}
	return false
}

// Interval is one attendance, break or call record. End and Duration stay nil
// while the interval is open and are set together exactly once on close.
// Duration is expressed in Kind.Unit().
type Interval struct {
	ID       string     `json:"id"`
	Kind     Kind       `json:"kind"`
	UserID   string     `json:"userId"`
	Start    time.Time  `json:"start"`
	End      *time.Time `json:"end,omitempty"`
	Duration *int       `json:"duration,omitempty"`

	AttendanceID *string `json:"attendanceId,omitempty"`
	TaskType     string  `json:"taskType,omitempty"`
	Notes        string  `json:"notes,omitempty"`
	RoomID       string  `json:"roomId,omitempty"`
}

func (i Interval) IsOpen() bool {
	return i.End == nil
}

// DayOf is the UTC calendar day an interval is reported under.
func DayOf(t time.Time) string {
	return t.UTC().Format(DateLayout)
}

const DateLayout = "2006-01-02"
