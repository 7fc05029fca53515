package server

import (
	"bytes"
	"context"
	"fmt"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"shiftline/internal/domain"
	"shiftline/internal/engine"
	"shiftline/internal/report"
	"shiftline/internal/repo"
	"shiftline/internal/schedule"
)

type idPath struct {
	ID string `path:"id"`
}

type monthPath struct {
	Month string `path:"month" pattern:"^[0-9]{4}-[0-9]{2}$" example:"2025-06"`
}

func registerWorkers(api huma.API, s *service) {
	huma.Register(api, huma.Operation{
		OperationID: "list-workers",
		Method:      http.MethodGet,
		Path:        "/workers",
		Summary:     "List workers in roster order",
	}, func(ctx context.Context, _ *struct{}) (*struct {
		Body WorkerList `json:"body"`
	}, error) {
		items, err := s.engine().Repo.ListWorkers(ctx)
		if err != nil {
			return nil, handleError(err)
		}
		if items == nil {
			items = []domain.Worker{}
		}
		return &struct {
			Body WorkerList `json:"body"`
		}{Body: WorkerList{Items: items}}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID:   "create-worker",
		Method:        http.MethodPost,
		Path:          "/workers",
		Summary:       "Create worker",
		DefaultStatus: http.StatusCreated,
		Errors:        []int{http.StatusBadRequest, http.StatusConflict},
	}, func(ctx context.Context, input *struct {
		Body CreateWorkerRequest `json:"body"`
	}) (*struct {
		Body domain.Worker `json:"body"`
	}, error) {
		opts := engine.WorkerCreateOptions{Name: input.Body.Name, Category: input.Body.Category, ActorID: actorID(ctx)}
		if input.Body.ID != nil {
			opts.ID = *input.Body.ID
		}
		w, err := s.engine().CreateWorker(ctx, opts)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.Worker `json:"body"`
		}{Body: w}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "get-worker",
		Method:      http.MethodGet,
		Path:        "/workers/{id}",
		Summary:     "Get worker",
		Errors:      []int{http.StatusNotFound},
	}, func(ctx context.Context, input *idPath) (*struct {
		Body domain.Worker `json:"body"`
	}, error) {
		w, err := s.engine().Repo.GetWorker(ctx, input.ID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.Worker `json:"body"`
		}{Body: w}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "update-worker",
		Method:      http.MethodPatch,
		Path:        "/workers/{id}",
		Summary:     "Update worker",
		Errors:      []int{http.StatusBadRequest, http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		ID   string              `path:"id"`
		Body UpdateWorkerRequest `json:"body"`
	}) (*struct {
		Body domain.Worker `json:"body"`
	}, error) {
		w, err := s.engine().UpdateWorker(ctx, engine.WorkerUpdateOptions{
			ID:       input.ID,
			Name:     input.Body.Name,
			Category: input.Body.Category,
			ActorID:  actorID(ctx),
		})
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.Worker `json:"body"`
		}{Body: w}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "move-worker",
		Method:      http.MethodPost,
		Path:        "/workers/{id}/move",
		Summary:     "Move worker within the roster order",
		Errors:      []int{http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		ID   string            `path:"id"`
		Body MoveWorkerRequest `json:"body"`
	}) (*struct {
		Body WorkerList `json:"body"`
	}, error) {
		items, err := s.engine().MoveWorker(ctx, input.ID, input.Body.Position, actorID(ctx))
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body WorkerList `json:"body"`
		}{Body: WorkerList{Items: items}}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID:   "delete-worker",
		Method:        http.MethodDelete,
		Path:          "/workers/{id}",
		Summary:       "Delete worker with their leave requests and assignments",
		DefaultStatus: http.StatusNoContent,
		Errors:        []int{http.StatusNotFound},
	}, func(ctx context.Context, input *idPath) (*struct{}, error) {
		if err := s.engine().DeleteWorker(ctx, input.ID, actorID(ctx)); err != nil {
			return nil, handleError(err)
		}
		return &struct{}{}, nil
	})
}

func registerPatterns(api huma.API, s *service) {
	huma.Register(api, huma.Operation{
		OperationID: "list-patterns",
		Method:      http.MethodGet,
		Path:        "/patterns",
		Summary:     "List shift patterns",
	}, func(ctx context.Context, _ *struct{}) (*struct {
		Body PatternList `json:"body"`
	}, error) {
		items, err := s.engine().Repo.ListPatterns(ctx)
		if err != nil {
			return nil, handleError(err)
		}
		if items == nil {
			items = []domain.ShiftPattern{}
		}
		return &struct {
			Body PatternList `json:"body"`
		}{Body: PatternList{Items: items}}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID:   "create-pattern",
		Method:        http.MethodPost,
		Path:          "/patterns",
		Summary:       "Create shift pattern",
		DefaultStatus: http.StatusCreated,
		Errors:        []int{http.StatusBadRequest, http.StatusConflict},
	}, func(ctx context.Context, input *struct {
		Body CreatePatternRequest `json:"body"`
	}) (*struct {
		Body domain.ShiftPattern `json:"body"`
	}, error) {
		opts := engine.PatternCreateOptions{
			Name:         input.Body.Name,
			Start:        input.Body.Start,
			End:          input.Body.End,
			BreakMinutes: input.Body.BreakMinutes,
			ActorID:      actorID(ctx),
		}
		if input.Body.ID != nil {
			opts.ID = *input.Body.ID
		}
		p, err := s.engine().CreatePattern(ctx, opts)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.ShiftPattern `json:"body"`
		}{Body: p}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "get-pattern",
		Method:      http.MethodGet,
		Path:        "/patterns/{id}",
		Summary:     "Get shift pattern",
		Errors:      []int{http.StatusNotFound},
	}, func(ctx context.Context, input *idPath) (*struct {
		Body domain.ShiftPattern `json:"body"`
	}, error) {
		p, err := s.engine().Repo.GetPattern(ctx, input.ID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.ShiftPattern `json:"body"`
		}{Body: p}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "update-pattern",
		Method:      http.MethodPatch,
		Path:        "/patterns/{id}",
		Summary:     "Edit shift pattern; work hours are recomputed",
		Errors:      []int{http.StatusBadRequest, http.StatusNotFound, http.StatusConflict},
	}, func(ctx context.Context, input *struct {
		ID   string               `path:"id"`
		Body UpdatePatternRequest `json:"body"`
	}) (*struct {
		Body domain.ShiftPattern `json:"body"`
	}, error) {
		p, err := s.engine().UpdatePattern(ctx, engine.PatternUpdateOptions{
			ID:           input.ID,
			Name:         input.Body.Name,
			Start:        input.Body.Start,
			End:          input.Body.End,
			BreakMinutes: input.Body.BreakMinutes,
			ActorID:      actorID(ctx),
		})
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.ShiftPattern `json:"body"`
		}{Body: p}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID:   "delete-pattern",
		Method:        http.MethodDelete,
		Path:          "/patterns/{id}",
		Summary:       "Delete an unused shift pattern",
		DefaultStatus: http.StatusNoContent,
		Errors:        []int{http.StatusNotFound, http.StatusConflict},
	}, func(ctx context.Context, input *idPath) (*struct{}, error) {
		if err := s.engine().DeletePattern(ctx, input.ID, actorID(ctx)); err != nil {
			return nil, handleError(err)
		}
		return &struct{}{}, nil
	})
}

func registerLeave(api huma.API, s *service) {
	huma.Register(api, huma.Operation{
		OperationID: "list-leave-requests",
		Method:      http.MethodGet,
		Path:        "/leave-requests",
		Summary:     "List leave requests",
		Errors:      []int{http.StatusBadRequest},
	}, func(ctx context.Context, input *struct {
		From     string `query:"from" format:"date"`
		To       string `query:"to" format:"date"`
		WorkerID string `query:"worker_id"`
	}) (*struct {
		Body LeaveList `json:"body"`
	}, error) {
		rng, err := dateRange(input.From, input.To)
		if err != nil {
			return nil, err
		}
		items, err := s.engine().Repo.ListLeaveRequests(ctx, repo.LeaveFilters{DateRange: rng, WorkerID: input.WorkerID})
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body LeaveList `json:"body"`
		}{Body: LeaveList{Items: mapLeave(items)}}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID:   "create-leave-request",
		Method:        http.MethodPost,
		Path:          "/leave-requests",
		Summary:       "Record a leave request",
		DefaultStatus: http.StatusCreated,
		Errors:        []int{http.StatusBadRequest, http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		Body CreateLeaveRequest `json:"body"`
	}) (*struct {
		Body LeaveRequestResponse `json:"body"`
	}, error) {
		d, err := parseDate("date", input.Body.Date)
		if err != nil {
			return nil, err
		}
		opts := engine.LeaveCreateOptions{WorkerID: input.Body.WorkerID, Date: d, Reason: input.Body.Reason, ActorID: actorID(ctx)}
		if input.Body.ID != nil {
			opts.ID = *input.Body.ID
		}
		lr, err := s.engine().CreateLeaveRequest(ctx, opts)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body LeaveRequestResponse `json:"body"`
		}{Body: leaveResponse(lr)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "update-leave-request",
		Method:      http.MethodPatch,
		Path:        "/leave-requests/{id}",
		Summary:     "Move a leave request or change its reason",
		Errors:      []int{http.StatusBadRequest, http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		ID   string             `path:"id"`
		Body UpdateLeaveRequest `json:"body"`
	}) (*struct {
		Body LeaveRequestResponse `json:"body"`
	}, error) {
		opts := engine.LeaveUpdateOptions{ID: input.ID, Reason: input.Body.Reason, ActorID: actorID(ctx)}
		if input.Body.Date != nil {
			d, err := parseDate("date", *input.Body.Date)
			if err != nil {
				return nil, err
			}
			opts.Date = &d
		}
		lr, err := s.engine().UpdateLeaveRequest(ctx, opts)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body LeaveRequestResponse `json:"body"`
		}{Body: leaveResponse(lr)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID:   "delete-leave-request",
		Method:        http.MethodDelete,
		Path:          "/leave-requests/{id}",
		Summary:       "Withdraw a leave request",
		DefaultStatus: http.StatusNoContent,
		Errors:        []int{http.StatusNotFound},
	}, func(ctx context.Context, input *idPath) (*struct{}, error) {
		if err := s.engine().DeleteLeaveRequest(ctx, input.ID, actorID(ctx)); err != nil {
			return nil, handleError(err)
		}
		return &struct{}{}, nil
	})
}

func registerAssignments(api huma.API, s *service) {
	huma.Register(api, huma.Operation{
		OperationID: "list-assignments",
		Method:      http.MethodGet,
		Path:        "/assignments",
		Summary:     "List assignments by date",
		Errors:      []int{http.StatusBadRequest},
	}, func(ctx context.Context, input *struct {
		Month    string `query:"month" doc:"YYYY-MM; overrides from/to"`
		From     string `query:"from" format:"date"`
		To       string `query:"to" format:"date"`
		WorkerID string `query:"worker_id"`
	}) (*struct {
		Body AssignmentList `json:"body"`
	}, error) {
		var rng repo.DateRange
		if input.Month != "" {
			m, err := parseMonth(input.Month)
			if err != nil {
				return nil, err
			}
			rng = repo.DateRange{From: m.First(), To: m.Last()}
		} else {
			var err error
			if rng, err = dateRange(input.From, input.To); err != nil {
				return nil, err
			}
		}
		items, err := s.engine().Repo.ListAssignments(ctx, repo.AssignmentFilters{DateRange: rng, WorkerID: input.WorkerID})
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body AssignmentList `json:"body"`
		}{Body: AssignmentList{Items: mapAssignments(items)}}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID:   "create-assignment",
		Method:        http.MethodPost,
		Path:          "/assignments",
		Summary:       "Create a manual assignment; warnings never block it",
		DefaultStatus: http.StatusCreated,
		Errors:        []int{http.StatusBadRequest, http.StatusNotFound, http.StatusConflict},
	}, func(ctx context.Context, input *struct {
		Body CreateAssignmentRequest `json:"body"`
	}) (*struct {
		Body AssignmentResultResponse `json:"body"`
	}, error) {
		d, err := parseDate("date", input.Body.Date)
		if err != nil {
			return nil, err
		}
		opts := engine.AssignmentCreateOptions{
			WorkerID:  input.Body.WorkerID,
			Date:      d,
			PatternID: input.Body.PatternID,
			ActorID:   actorID(ctx),
		}
		if input.Body.ID != nil {
			opts.ID = *input.Body.ID
		}
		res, err := s.engine().AddAssignment(ctx, opts)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body AssignmentResultResponse `json:"body"`
		}{Body: assignmentResult(res)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "check-assignment",
		Method:      http.MethodPost,
		Path:        "/assignments/check",
		Summary:     "Evaluate constraint warnings without saving",
		Errors:      []int{http.StatusBadRequest, http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		Body CheckAssignmentRequest `json:"body"`
	}) (*struct {
		Body CheckResponse `json:"body"`
	}, error) {
		d, err := parseDate("date", input.Body.Date)
		if err != nil {
			return nil, err
		}
		cand := schedule.Candidate{WorkerID: input.Body.WorkerID, Date: d, PatternID: input.Body.PatternID}
		warnings, err := s.engine().CheckAssignment(ctx, cand, input.Body.ExcludeID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body CheckResponse `json:"body"`
		}{Body: CheckResponse{Warnings: warnings}}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "get-assignment",
		Method:      http.MethodGet,
		Path:        "/assignments/{id}",
		Summary:     "Get assignment",
		Errors:      []int{http.StatusNotFound},
	}, func(ctx context.Context, input *idPath) (*struct {
		Body AssignmentResponse `json:"body"`
	}, error) {
		a, err := s.engine().Repo.GetAssignment(ctx, input.ID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body AssignmentResponse `json:"body"`
		}{Body: assignmentResponse(a)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "update-assignment",
		Method:      http.MethodPatch,
		Path:        "/assignments/{id}",
		Summary:     "Edit an assignment; it is excluded from its own checks",
		Errors:      []int{http.StatusBadRequest, http.StatusNotFound, http.StatusConflict},
	}, func(ctx context.Context, input *struct {
		ID   string                  `path:"id"`
		Body UpdateAssignmentRequest `json:"body"`
	}) (*struct {
		Body AssignmentResultResponse `json:"body"`
	}, error) {
		opts := engine.AssignmentUpdateOptions{ID: input.ID, ActorID: actorID(ctx)}
		if input.Body.WorkerID != nil {
			opts.WorkerID = *input.Body.WorkerID
		}
		if input.Body.PatternID != nil {
			opts.PatternID = *input.Body.PatternID
		}
		if input.Body.Date != nil {
			d, err := parseDate("date", *input.Body.Date)
			if err != nil {
				return nil, err
			}
			opts.Date = d
		}
		res, err := s.engine().UpdateAssignment(ctx, opts)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body AssignmentResultResponse `json:"body"`
		}{Body: assignmentResult(res)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID:   "delete-assignment",
		Method:        http.MethodDelete,
		Path:          "/assignments/{id}",
		Summary:       "Delete assignment",
		DefaultStatus: http.StatusNoContent,
		Errors:        []int{http.StatusNotFound},
	}, func(ctx context.Context, input *idPath) (*struct{}, error) {
		if err := s.engine().DeleteAssignment(ctx, input.ID, actorID(ctx)); err != nil {
			return nil, handleError(err)
		}
		return &struct{}{}, nil
	})
}

func registerMonths(api huma.API, s *service) {
	huma.Register(api, huma.Operation{
		OperationID: "generate-month",
		Method:      http.MethodPost,
		Path:        "/months/{month}/generate",
		Summary:     "Replace the month's assignments with a generated plan",
		Errors:      []int{http.StatusBadRequest, http.StatusUnprocessableEntity},
	}, func(ctx context.Context, input *monthPath) (*struct {
		Body GenerateResponse `json:"body"`
	}, error) {
		m, err := parseMonth(input.Month)
		if err != nil {
			return nil, err
		}
		res, err := s.engine().GenerateMonth(ctx, m, actorID(ctx))
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body GenerateResponse `json:"body"`
		}{Body: res}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "month-summary",
		Method:      http.MethodGet,
		Path:        "/months/{month}/summary",
		Summary:     "Workload per worker",
		Errors:      []int{http.StatusBadRequest},
	}, func(ctx context.Context, input *monthPath) (*struct {
		Body SummaryResponse `json:"body"`
	}, error) {
		m, err := parseMonth(input.Month)
		if err != nil {
			return nil, err
		}
		e := s.engine()
		sums, err := e.Summary(ctx, m)
		if err != nil {
			return nil, handleError(err)
		}
		workers, err := e.Repo.ListWorkers(ctx)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body SummaryResponse `json:"body"`
		}{Body: summaryResponse(m, workers, sums)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "month-report",
		Method:      http.MethodGet,
		Path:        "/months/{month}/report",
		Summary:     "Schedule grid, workload and pattern tables",
		Errors:      []int{http.StatusBadRequest},
	}, func(ctx context.Context, input *monthPath) (*struct {
		Body report.MonthReport `json:"body"`
	}, error) {
		m, err := parseMonth(input.Month)
		if err != nil {
			return nil, err
		}
		rep, err := s.engine().Report(ctx, m)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body report.MonthReport `json:"body"`
		}{Body: rep}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "month-export",
		Method:      http.MethodGet,
		Path:        "/months/{month}/export.xlsx",
		Summary:     "Download the month report as a spreadsheet",
		Errors:      []int{http.StatusBadRequest},
	}, func(ctx context.Context, input *monthPath) (*struct {
		ContentType        string `header:"Content-Type"`
		ContentDisposition string `header:"Content-Disposition"`
		Body               []byte
	}, error) {
		m, err := parseMonth(input.Month)
		if err != nil {
			return nil, err
		}
		rep, err := s.engine().Report(ctx, m)
		if err != nil {
			return nil, handleError(err)
		}
		var buf bytes.Buffer
		if err := report.WriteXLSX(&buf, rep); err != nil {
			return nil, handleError(err)
		}
		return &struct {
			ContentType        string `header:"Content-Type"`
			ContentDisposition string `header:"Content-Disposition"`
			Body               []byte
		}{
			ContentType:        "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
			ContentDisposition: fmt.Sprintf("attachment; filename=schedule-%s.xlsx", m),
			Body:               buf.Bytes(),
		}, nil
	})
}

func dateRange(from, to string) (repo.DateRange, error) {
	var rng repo.DateRange
	var err error
	if from != "" {
		if rng.From, err = parseDate("from", from); err != nil {
			return rng, err
		}
	}
	if to != "" {
		if rng.To, err = parseDate("to", to); err != nil {
			return rng, err
		}
	}
	return rng, nil
}
