package domain

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"cloud.google.com/go/civil"
)

var (
	ErrUnknownCategory = errors.New("unknown worker category")
	ErrUnknownRole     = errors.New("unknown pattern role")
)

// WorkerCategory is the employment category used by the planner's ordering and pattern choice.
type WorkerCategory string

const (
	CategoryFullTime WorkerCategory = "full_time"
	CategoryPartTime WorkerCategory = "part_time"
)

// ParseWorkerCategory accepts the canonical names plus the common spellings found in rosters.
func ParseWorkerCategory(s string) (WorkerCategory, error) {
	switch strings.ToLower(strings.TrimSpace(strings.ReplaceAll(s, "-", "_"))) {
	case "full_time", "fulltime", "ft":
		return CategoryFullTime, nil
	case "part_time", "parttime", "pt":
		return CategoryPartTime, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownCategory, s)
}

func (c WorkerCategory) FullTime() bool { return c == CategoryFullTime }

// PatternRole names the slot a catalog pattern fills when the planner picks patterns.
type PatternRole string

const (
	RoleEarly PatternRole = "early"
	RoleLate  PatternRole = "late"
	RolePartA PatternRole = "part_a"
	RolePartB PatternRole = "part_b"
)

// Roles lists every role in planner order.
var Roles = []PatternRole{RoleEarly, RoleLate, RolePartA, RolePartB}

func ParsePatternRole(s string) (PatternRole, error) {
	r := PatternRole(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range Roles {
		if r == known {
			return r, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownRole, s)
}

type Worker struct {
	ID        string         `json:"id"`
	Name      string         `json:"name"`
	Category  WorkerCategory `json:"category" enum:"full_time,part_time"`
	Position  int            `json:"position"`
	CreatedAt string         `json:"created_at" format:"date-time"`
}

type ShiftPattern struct {
	ID           string  `json:"id"`
	Name         string  `json:"name"`
	Start        string  `json:"start"`
	End          string  `json:"end"`
	BreakMinutes int     `json:"break_minutes"`
	WorkHours    float64 `json:"work_hours"`
	CreatedAt    string  `json:"created_at" format:"date-time"`
}

type LeaveRequest struct {
	ID        string     `json:"id"`
	WorkerID  string     `json:"worker_id"`
	Date      civil.Date `json:"date"`
	Reason    string     `json:"reason,omitempty"`
	CreatedAt string     `json:"created_at" format:"date-time"`
}

// Assignment binds a worker to a pattern on one date. Drafts produced by the planner have no ID.
type Assignment struct {
	ID        string     `json:"id,omitempty"`
	WorkerID  string     `json:"worker_id"`
	Date      civil.Date `json:"date"`
	PatternID string     `json:"pattern_id"`
	CreatedAt string     `json:"created_at,omitempty" format:"date-time"`
	UpdatedAt string     `json:"updated_at,omitempty" format:"date-time"`
}

type WarningCode string

const (
	WarnLeaveConflict    WarningCode = "leave_conflict"
	WarnHeadcountCeiling WarningCode = "headcount_ceiling"
	WarnConsecutiveRun   WarningCode = "consecutive_run"
)

// Warning is an advisory constraint finding. It never blocks persistence.
type Warning struct {
	Code    WarningCode `json:"code" enum:"leave_conflict,headcount_ceiling,consecutive_run"`
	Message string      `json:"message"`
}

func (w Warning) String() string { return w.Message }

type WorkloadSummary struct {
	DayCount   int     `json:"day_count"`
	TotalHours float64 `json:"total_hours"`
}

// AverageHours is TotalHours per worked day, 0 when nothing was worked.
func (s WorkloadSummary) AverageHours() float64 {
	if s.DayCount == 0 {
		return 0
	}
	return s.TotalHours / float64(s.DayCount)
}

type Event struct {
	ID         int64  `json:"id"`
	TS         string `json:"ts" format:"date-time"`
	Type       string `json:"type"`
	EntityKind string `json:"entity_kind"`
	EntityID   string `json:"entity_id,omitempty"`
	ActorID    string `json:"actor_id"`
	Payload    string `json:"payload_json"`
}

const clockLayout = "15:04"

// WorkHours returns the paid duration of a start/end window in hours. An end at or before the start wraps
// past midnight.
func WorkHours(start, end string, breakMinutes int) (float64, error) {
	s, err := time.Parse(clockLayout, start)
	if err != nil {
		return 0, fmt.Errorf("invalid start time %q: %w", start, err)
	}
	e, err := time.Parse(clockLayout, end)
	if err != nil {
		return 0, fmt.Errorf("invalid end time %q: %w", end, err)
	}
	if breakMinutes < 0 {
		return 0, fmt.Errorf("break minutes must not be negative")
	}
	d := e.Sub(s)
	if d <= 0 {
		d += 24 * time.Hour
	}
	d -= time.Duration(breakMinutes) * time.Minute
	if d <= 0 {
		return 0, fmt.Errorf("break of %d minutes leaves no working time between %s and %s", breakMinutes, start, end)
	}
	return d.Hours(), nil
}
