package server

import (
	"net/http"
	"sort"

	"cloud.google.com/go/civil"

	"shiftline/internal/config"
	"shiftline/internal/domain"
	"shiftline/internal/engine"
	"shiftline/internal/schedule"
)

// Request payloads

type CreateWorkerRequest struct {
	ID       *string `json:"id,omitempty"`
	Name     string  `json:"name" minLength:"1"`
	Category string  `json:"category" enum:"full_time,part_time"`
}

type UpdateWorkerRequest struct {
	Name     *string `json:"name,omitempty"`
	Category *string `json:"category,omitempty" enum:"full_time,part_time"`
}

type MoveWorkerRequest struct {
	Position int `json:"position" minimum:"0"`
}

type CreatePatternRequest struct {
	ID           *string `json:"id,omitempty"`
	Name         string  `json:"name" minLength:"1"`
	Start        string  `json:"start" pattern:"^[0-2][0-9]:[0-5][0-9]$" example:"07:00"`
	End          string  `json:"end" pattern:"^[0-2][0-9]:[0-5][0-9]$" example:"16:00"`
	BreakMinutes int     `json:"break_minutes,omitempty" minimum:"0"`
}

type UpdatePatternRequest struct {
	Name         *string `json:"name,omitempty" minLength:"1"`
	Start        *string `json:"start,omitempty" pattern:"^[0-2][0-9]:[0-5][0-9]$"`
	End          *string `json:"end,omitempty" pattern:"^[0-2][0-9]:[0-5][0-9]$"`
	BreakMinutes *int    `json:"break_minutes,omitempty" minimum:"0"`
}

type CreateLeaveRequest struct {
	ID       *string `json:"id,omitempty"`
	WorkerID string  `json:"worker_id"`
	Date     string  `json:"date" format:"date"`
	Reason   string  `json:"reason,omitempty"`
}

// UpdateLeaveRequest moves a leave request or rewrites its reason; an empty reason clears it.
type UpdateLeaveRequest struct {
	Date   *string `json:"date,omitempty" format:"date"`
	Reason *string `json:"reason,omitempty"`
}

type CreateAssignmentRequest struct {
	ID        *string `json:"id,omitempty"`
	WorkerID  string  `json:"worker_id"`
	Date      string  `json:"date" format:"date"`
	PatternID string  `json:"pattern_id"`
}

type UpdateAssignmentRequest struct {
	WorkerID  *string `json:"worker_id,omitempty"`
	Date      *string `json:"date,omitempty" format:"date"`
	PatternID *string `json:"pattern_id,omitempty"`
}

type CheckAssignmentRequest struct {
	WorkerID  string `json:"worker_id"`
	Date      string `json:"date" format:"date"`
	PatternID string `json:"pattern_id"`
	ExcludeID string `json:"exclude_id,omitempty"`
}

type UpdateConfigRequest struct {
	YAML string `json:"yaml" doc:"Full scheduling config as YAML"`
}

// Responses

type LeaveRequestResponse struct {
	ID        string `json:"id"`
	WorkerID  string `json:"worker_id"`
	Date      string `json:"date" format:"date"`
	Reason    string `json:"reason,omitempty"`
	CreatedAt string `json:"created_at" format:"date-time"`
}

type AssignmentResponse struct {
	ID        string `json:"id"`
	WorkerID  string `json:"worker_id"`
	Date      string `json:"date" format:"date"`
	PatternID string `json:"pattern_id"`
	CreatedAt string `json:"created_at" format:"date-time"`
	UpdatedAt string `json:"updated_at" format:"date-time"`
}

type AssignmentResultResponse struct {
	Assignment AssignmentResponse `json:"assignment"`
	Warnings   []domain.Warning   `json:"warnings"`
}

type CheckResponse struct {
	Warnings []domain.Warning `json:"warnings"`
}

type WorkerList struct {
	Items []domain.Worker `json:"items"`
}

type PatternList struct {
	Items []domain.ShiftPattern `json:"items"`
}

type LeaveList struct {
	Items []LeaveRequestResponse `json:"items"`
}

type AssignmentList struct {
	Items []AssignmentResponse `json:"items"`
}

type WorkloadResponse struct {
	WorkerID     string  `json:"worker_id"`
	Worker       string  `json:"worker,omitempty"`
	DayCount     int     `json:"day_count"`
	TotalHours   float64 `json:"total_hours"`
	AverageHours float64 `json:"average_hours"`
}

type SummaryResponse struct {
	Month string             `json:"month"`
	Items []WorkloadResponse `json:"items"`
}

type EventResponse struct {
	ID         int64  `json:"id"`
	TS         string `json:"ts" format:"date-time"`
	Type       string `json:"type"`
	EntityKind string `json:"entity_kind"`
	EntityID   string `json:"entity_id,omitempty"`
	ActorID    string `json:"actor_id"`
	Payload    string `json:"payload_json,omitempty"`
}

type paginatedEvents struct {
	Items      []EventResponse `json:"items"`
	NextCursor string          `json:"next_cursor,omitempty"`
}

type StaffingResponse struct {
	Baseline  int            `json:"baseline"`
	Overrides map[string]int `json:"overrides"`
	Closed    []string       `json:"closed"`
}

type PatternSeedResponse struct {
	Name         string `json:"name"`
	Start        string `json:"start"`
	End          string `json:"end"`
	BreakMinutes int    `json:"break_minutes"`
}

type ConfigResponse struct {
	Staffing     StaffingResponse      `json:"staffing"`
	DailyCeiling int                   `json:"daily_ceiling"`
	Roles        map[string]string     `json:"roles"`
	Seed         []PatternSeedResponse `json:"seed"`
	WeekStart    string                `json:"week_start"`
}

type GenerateResponse = engine.GenerateResult

func leaveResponse(lr domain.LeaveRequest) LeaveRequestResponse {
	return LeaveRequestResponse{
		ID:        lr.ID,
		WorkerID:  lr.WorkerID,
		Date:      lr.Date.String(),
		Reason:    lr.Reason,
		CreatedAt: lr.CreatedAt,
	}
}

func assignmentResponse(a domain.Assignment) AssignmentResponse {
	return AssignmentResponse{
		ID:        a.ID,
		WorkerID:  a.WorkerID,
		Date:      a.Date.String(),
		PatternID: a.PatternID,
		CreatedAt: a.CreatedAt,
		UpdatedAt: a.UpdatedAt,
	}
}

func assignmentResult(res engine.AssignmentResult) AssignmentResultResponse {
	warnings := res.Warnings
	if warnings == nil {
		warnings = []domain.Warning{}
	}
	return AssignmentResultResponse{Assignment: assignmentResponse(res.Assignment), Warnings: warnings}
}

func mapAssignments(items []domain.Assignment) []AssignmentResponse {
	res := make([]AssignmentResponse, 0, len(items))
	for _, a := range items {
		res = append(res, assignmentResponse(a))
	}
	return res
}

func mapLeave(items []domain.LeaveRequest) []LeaveRequestResponse {
	res := make([]LeaveRequestResponse, 0, len(items))
	for _, lr := range items {
		res = append(res, leaveResponse(lr))
	}
	return res
}

func eventResponse(evt domain.Event) EventResponse {
	return EventResponse{
		ID:         evt.ID,
		TS:         evt.TS,
		Type:       evt.Type,
		EntityKind: evt.EntityKind,
		EntityID:   evt.EntityID,
		ActorID:    evt.ActorID,
		Payload:    evt.Payload,
	}
}

func configResponse(cfg *config.Config) ConfigResponse {
	res := ConfigResponse{
		Staffing: StaffingResponse{
			Baseline:  cfg.Staffing.Baseline,
			Overrides: map[string]int{},
			Closed:    []string{},
		},
		DailyCeiling: cfg.Rules.DailyCeiling,
		Roles:        map[string]string{},
		Seed:         []PatternSeedResponse{},
		WeekStart:    cfg.WeekStart().String(),
	}
	for k, v := range cfg.Staffing.Overrides {
		res.Staffing.Overrides[k] = v
	}
	res.Staffing.Closed = append(res.Staffing.Closed, cfg.Staffing.Closed...)
	for k, v := range cfg.Patterns.Roles {
		res.Roles[k] = v
	}
	for _, s := range cfg.Patterns.Seed {
		res.Seed = append(res.Seed, PatternSeedResponse{Name: s.Name, Start: s.Start, End: s.End, BreakMinutes: s.BreakMinutes})
	}
	return res
}

// summaryResponse lists workers in roster order, then any id only the assignments know.
func summaryResponse(month schedule.YearMonth, workers []domain.Worker, sums map[string]domain.WorkloadSummary) SummaryResponse {
	res := SummaryResponse{Month: month.String(), Items: []WorkloadResponse{}}
	seen := map[string]bool{}
	for _, w := range workers {
		s, ok := sums[w.ID]
		if !ok {
			continue
		}
		seen[w.ID] = true
		res.Items = append(res.Items, workloadResponse(w.ID, w.Name, s))
	}
	var extra []string
	for id := range sums {
		if !seen[id] {
			extra = append(extra, id)
		}
	}
	sort.Strings(extra)
	for _, id := range extra {
		res.Items = append(res.Items, workloadResponse(id, "", sums[id]))
	}
	return res
}

func workloadResponse(id, name string, s domain.WorkloadSummary) WorkloadResponse {
	return WorkloadResponse{
		WorkerID:     id,
		Worker:       name,
		DayCount:     s.DayCount,
		TotalHours:   s.TotalHours,
		AverageHours: s.AverageHours(),
	}
}

func parseDate(field, s string) (civil.Date, error) {
	d, err := civil.ParseDate(s)
	if err != nil {
		return d, newAPIError(http.StatusBadRequest, "bad_request", field+" must be YYYY-MM-DD", map[string]any{"field": field, "value": s})
	}
	return d, nil
}
