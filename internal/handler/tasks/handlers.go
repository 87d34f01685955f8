// Package tasks exposes the owner-scoped task REST routes. They share
// the task store and validation rules with the chat tools.
package tasks

import (
	"net/http"
	"time"

	"github.com/taskchat/taskchat/internal/httputil"
	"github.com/taskchat/taskchat/internal/middleware"
	"github.com/taskchat/taskchat/internal/store"
	"github.com/taskchat/taskchat/internal/svc"
	"github.com/taskchat/taskchat/internal/types"
)

// requireOwner enforces the path/token identity match before any store
// access. Mismatches read as NotFound.
func requireOwner(w http.ResponseWriter, r *http.Request, pathUserID string) bool {
	caller := middleware.GetUserID(r.Context())
	if caller == "" || caller != pathUserID {
		httputil.NotFound(w, "")
		return false
	}
	return true
}

func parseDueDate(w http.ResponseWriter, s *string) (*time.Time, bool) {
	if s == nil || *s == "" {
		return nil, true
	}
	t, err := time.Parse(time.RFC3339, *s)
	if err != nil {
		httputil.ErrorWithCode(w, http.StatusBadRequest, "invalid due_date: must be an RFC 3339 timestamp")
		return nil, false
	}
	return &t, true
}

// ListHandler handles GET /api/{userId}/tasks.
func ListHandler(svcCtx *svc.ServiceContext) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req types.ListTasksRequest
		if err := httputil.Parse(r, &req); err != nil {
			httputil.ErrorWithCode(w, http.StatusBadRequest, "invalid request")
			return
		}
		if !requireOwner(w, r, req.UserID) {
			return
		}

		tasks, err := svcCtx.Tasks.List(r.Context(), req.UserID, req.Status)
		if err != nil {
			httputil.WriteError(w, err)
			return
		}
		if tasks == nil {
			tasks = []store.Task{}
		}
		httputil.OkJSON(w, map[string]any{
			"tasks": tasks,
			"count": len(tasks),
		})
	}
}

// CreateHandler handles POST /api/{userId}/tasks.
func CreateHandler(svcCtx *svc.ServiceContext) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req types.CreateTaskRequest
		if err := httputil.Parse(r, &req); err != nil {
			httputil.ErrorWithCode(w, http.StatusBadRequest, "invalid request body")
			return
		}
		if !requireOwner(w, r, req.UserID) {
			return
		}

		due, ok := parseDueDate(w, req.DueDate)
		if !ok {
			return
		}
		task, err := svcCtx.Tasks.Create(r.Context(), req.UserID, store.TaskParams{
			Title:              req.Title,
			Description:        req.Description,
			Priority:           req.Priority,
			DueDate:            due,
			Tags:               req.Tags,
			Recurrence:         req.Recurrence,
			RecurrenceInterval: req.RecurrenceInterval,
		})
		if err != nil {
			httputil.WriteError(w, err)
			return
		}
		httputil.WriteJSON(w, http.StatusCreated, task)
	}
}

// GetHandler handles GET /api/{userId}/tasks/{taskId}.
func GetHandler(svcCtx *svc.ServiceContext) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req types.TaskRequest
		if err := httputil.Parse(r, &req); err != nil {
			httputil.ErrorWithCode(w, http.StatusBadRequest, "invalid request")
			return
		}
		if !requireOwner(w, r, req.UserID) {
			return
		}

		task, err := svcCtx.Tasks.Get(r.Context(), req.UserID, req.TaskID)
		if err != nil {
			httputil.WriteError(w, err)
			return
		}
		httputil.OkJSON(w, task)
	}
}

// UpdateHandler handles PUT /api/{userId}/tasks/{taskId}.
func UpdateHandler(svcCtx *svc.ServiceContext) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req types.UpdateTaskRequest
		if err := httputil.Parse(r, &req); err != nil {
			httputil.ErrorWithCode(w, http.StatusBadRequest, "invalid request body")
			return
		}
		if !requireOwner(w, r, req.UserID) {
			return
		}

		due, ok := parseDueDate(w, req.DueDate)
		if !ok {
			return
		}
		task, err := svcCtx.Tasks.Update(r.Context(), req.UserID, req.TaskID, store.TaskParams{
			Title:              req.Title,
			Description:        req.Description,
			Priority:           req.Priority,
			DueDate:            due,
			Tags:               req.Tags,
			Recurrence:         req.Recurrence,
			RecurrenceInterval: req.RecurrenceInterval,
		})
		if err != nil {
			httputil.WriteError(w, err)
			return
		}
		httputil.OkJSON(w, task)
	}
}

// CompleteHandler handles PATCH /api/{userId}/tasks/{taskId}/complete.
func CompleteHandler(svcCtx *svc.ServiceContext) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req types.TaskRequest
		if err := httputil.Parse(r, &req); err != nil {
			httputil.ErrorWithCode(w, http.StatusBadRequest, "invalid request")
			return
		}
		if !requireOwner(w, r, req.UserID) {
			return
		}

		task, err := svcCtx.Tasks.Complete(r.Context(), req.UserID, req.TaskID)
		if err != nil {
			httputil.WriteError(w, err)
			return
		}
		httputil.OkJSON(w, task)
	}
}

// DeleteHandler handles DELETE /api/{userId}/tasks/{taskId}.
func DeleteHandler(svcCtx *svc.ServiceContext) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req types.TaskRequest
		if err := httputil.Parse(r, &req); err != nil {
			httputil.ErrorWithCode(w, http.StatusBadRequest, "invalid request")
			return
		}
		if !requireOwner(w, r, req.UserID) {
			return
		}

		if err := svcCtx.Tasks.Delete(r.Context(), req.UserID, req.TaskID); err != nil {
			httputil.WriteError(w, err)
			return
		}
		httputil.OkJSON(w, map[string]any{
			"deleted": true,
			"task_id": req.TaskID,
		})
	}
}
