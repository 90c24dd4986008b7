package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gramseva/apiserver/internal/services"
	"github.com/gramseva/apiserver/internal/store"
	"github.com/gramseva/apiserver/types"
	"go.uber.org/zap"
)

const taskNotFoundMessage = "Task not found"

// DateTime accepts both RFC 3339 timestamps and date-only values for task
// due dates. A bare date reads as midnight UTC.
type DateTime struct {
	time.Time
}

func (d *DateTime) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if raw == "" {
		return nil
	}
	parsed, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		parsed, err = time.Parse("2006-01-02", raw)
	}
	if err != nil {
		return err
	}
	d.Time = parsed
	return nil
}

type TaskHandler struct {
	tasks  *services.TaskService
	logger *zap.Logger
	dev    bool
}

func NewTaskHandler(tasks *services.TaskService, logger *zap.Logger, dev bool) *TaskHandler {
	return &TaskHandler{tasks: tasks, logger: logger, dev: dev}
}

func TaskRouter(r chi.Router, handler *TaskHandler) {
	r.Post("/", handler.Create)
	r.Put("/bulk-update", handler.BulkUpdate)
	r.Get("/recent", handler.Recent)
	r.Get("/worker/{workerID}", handler.ListByWorker)
	r.Get("/taluka/{taluka}", handler.ListByTaluka)
	r.Get("/overdue/{taluka}", handler.Overdue)
	r.Get("/priority/{taluka}/{priority}", handler.ListByPriority)
	r.Get("/status/{taluka}/{status}", handler.ListByStatus)
	r.Get("/search/{query}", handler.Search)
	r.Get("/stats/{taluka}", handler.Stats)
	r.Get("/{taskID}", handler.Get)
	r.Put("/{taskID}", handler.Update)
	r.Patch("/{taskID}/status", handler.UpdateStatus)
	r.Delete("/{taskID}", handler.Delete)
}

// CreateTaskRequest is a new task assignment.
type CreateTaskRequest struct {
	Title          string             `json:"title"`
	Description    string             `json:"description"`
	AssignedTo     string             `json:"assignedTo"`
	AssignedToName string             `json:"assignedToName"`
	AssignedBy     string             `json:"assignedBy"`
	DueDate        DateTime           `json:"dueDate"`
	Status         types.TaskStatus   `json:"status"`
	Priority       types.TaskPriority `json:"priority"`
	Taluka         string             `json:"taluka"`
}

func (h *TaskHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateTaskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	task, err := h.tasks.Create(r.Context(), services.CreateTaskInput{
		Title:          req.Title,
		Description:    req.Description,
		AssignedTo:     req.AssignedTo,
		AssignedToName: req.AssignedToName,
		AssignedBy:     req.AssignedBy,
		DueDate:        req.DueDate.Time,
		Status:         req.Status,
		Priority:       req.Priority,
		Taluka:         req.Taluka,
	})
	if err != nil {
		writeServiceError(w, h.logger, h.dev, err, taskNotFoundMessage)
		return
	}
	writeResult(w, http.StatusCreated, "Task created successfully", task)
}

func (h *TaskHandler) Get(w http.ResponseWriter, r *http.Request) {
	task, err := h.tasks.Get(r.Context(), chi.URLParam(r, "taskID"))
	if err != nil {
		writeServiceError(w, h.logger, h.dev, err, taskNotFoundMessage)
		return
	}
	writeData(w, http.StatusOK, task)
}

// UpdateTaskRequest carries the optional fields of a partial update.
type UpdateTaskRequest struct {
	Title          *string             `json:"title"`
	Description    *string             `json:"description"`
	AssignedTo     *string             `json:"assignedTo"`
	AssignedToName *string             `json:"assignedToName"`
	AssignedBy     *string             `json:"assignedBy"`
	DueDate        *DateTime           `json:"dueDate"`
	Status         *types.TaskStatus   `json:"status"`
	Priority       *types.TaskPriority `json:"priority"`
	Taluka         *string             `json:"taluka"`
}

func (req UpdateTaskRequest) patch() store.TaskPatch {
	patch := store.TaskPatch{
		Title:          req.Title,
		Description:    req.Description,
		AssignedTo:     req.AssignedTo,
		AssignedToName: req.AssignedToName,
		AssignedBy:     req.AssignedBy,
		Status:         req.Status,
		Priority:       req.Priority,
		Taluka:         req.Taluka,
	}
	if req.DueDate != nil {
		patch.DueDate = &req.DueDate.Time
	}
	return patch
}

func (h *TaskHandler) Update(w http.ResponseWriter, r *http.Request) {
	var req UpdateTaskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	task, err := h.tasks.Update(r.Context(), chi.URLParam(r, "taskID"), req.patch())
	if err != nil {
		writeServiceError(w, h.logger, h.dev, err, taskNotFoundMessage)
		return
	}
	writeResult(w, http.StatusOK, "Task updated successfully", task)
}

type UpdateTaskStatusRequest struct {
	Status types.TaskStatus `json:"status"`
}

func (h *TaskHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	var req UpdateTaskStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	task, err := h.tasks.UpdateStatus(r.Context(), chi.URLParam(r, "taskID"), req.Status)
	if err != nil {
		writeServiceError(w, h.logger, h.dev, err, taskNotFoundMessage)
		return
	}
	writeResult(w, http.StatusOK, "Task status updated successfully", task)
}

// BulkUpdateTaskRequest applies one patch to several tasks within a taluka.
type BulkUpdateTaskRequest struct {
	TaskIDs []string `json:"taskIds"`
	Taluka  string   `json:"taluka"`
	UpdateTaskRequest
}

func (h *TaskHandler) BulkUpdate(w http.ResponseWriter, r *http.Request) {
	var req BulkUpdateTaskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	modified, err := h.tasks.BulkUpdate(r.Context(), req.TaskIDs, req.Taluka, req.patch())
	if err != nil {
		writeServiceError(w, h.logger, h.dev, err, taskNotFoundMessage)
		return
	}
	writeResult(w, http.StatusOK, "Tasks updated successfully", map[string]int64{"modifiedCount": modified})
}

func (h *TaskHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.tasks.Delete(r.Context(), chi.URLParam(r, "taskID")); err != nil {
		writeServiceError(w, h.logger, h.dev, err, taskNotFoundMessage)
		return
	}
	writeMessage(w, http.StatusOK, "Task deleted successfully")
}

func (h *TaskHandler) listTasks(w http.ResponseWriter, fetch func() ([]types.Task, error)) {
	tasks, err := fetch()
	if err != nil {
		writeServiceError(w, h.logger, h.dev, err, taskNotFoundMessage)
		return
	}
	writeData(w, http.StatusOK, tasks)
}

func (h *TaskHandler) ListByWorker(w http.ResponseWriter, r *http.Request) {
	h.listTasks(w, func() ([]types.Task, error) {
		return h.tasks.ListByWorker(r.Context(), chi.URLParam(r, "workerID"))
	})
}

func (h *TaskHandler) ListByTaluka(w http.ResponseWriter, r *http.Request) {
	h.listTasks(w, func() ([]types.Task, error) {
		return h.tasks.ListByTaluka(r.Context(), chi.URLParam(r, "taluka"))
	})
}

// Recent returns the newest tasks across all talukas. The limit query
// parameter is optional and capped server side.
func (h *TaskHandler) Recent(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid limit")
			return
		}
		limit = parsed
	}
	h.listTasks(w, func() ([]types.Task, error) {
		return h.tasks.Recent(r.Context(), limit)
	})
}

func (h *TaskHandler) Overdue(w http.ResponseWriter, r *http.Request) {
	h.listTasks(w, func() ([]types.Task, error) {
		return h.tasks.Overdue(r.Context(), chi.URLParam(r, "taluka"))
	})
}

func (h *TaskHandler) ListByPriority(w http.ResponseWriter, r *http.Request) {
	h.listTasks(w, func() ([]types.Task, error) {
		return h.tasks.ListByPriority(r.Context(),
			chi.URLParam(r, "taluka"),
			types.TaskPriority(chi.URLParam(r, "priority")))
	})
}

func (h *TaskHandler) ListByStatus(w http.ResponseWriter, r *http.Request) {
	h.listTasks(w, func() ([]types.Task, error) {
		return h.tasks.ListByStatus(r.Context(),
			chi.URLParam(r, "taluka"),
			types.TaskStatus(chi.URLParam(r, "status")))
	})
}

func (h *TaskHandler) Search(w http.ResponseWriter, r *http.Request) {
	h.listTasks(w, func() ([]types.Task, error) {
		return h.tasks.Search(r.Context(), chi.URLParam(r, "query"))
	})
}

func (h *TaskHandler) Stats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.tasks.Stats(r.Context(), chi.URLParam(r, "taluka"))
	if err != nil {
		writeServiceError(w, h.logger, h.dev, err, taskNotFoundMessage)
		return
	}
	writeData(w, http.StatusOK, stats)
}
