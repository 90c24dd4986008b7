package services

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/gramseva/apiserver/internal/store"
	"github.com/gramseva/apiserver/types"
	"go.uber.org/zap"
)

const (
	defaultRecentLimit = 10
	maxRecentLimit     = 100

	taskAssignedChannel      = "task-assigned"
	taskStatusChangedChannel = "task-status-changed"
)

// TaskStore defines persistence operations for tasks.
type TaskStore interface {
	Create(ctx context.Context, task types.Task) (types.Task, error)
	GetByID(ctx context.Context, id string) (types.Task, error)
	Update(ctx context.Context, id string, patch store.TaskPatch) (types.Task, error)
	BulkUpdate(ctx context.Context, ids []string, taluka string, patch store.TaskPatch) (int64, error)
	Delete(ctx context.Context, id string) error
	ListByWorker(ctx context.Context, workerID string) ([]types.Task, error)
	ListByTaluka(ctx context.Context, taluka string) ([]types.Task, error)
	Recent(ctx context.Context, limit int) ([]types.Task, error)
	Overdue(ctx context.Context, taluka string) ([]types.Task, error)
	ListByPriority(ctx context.Context, taluka string, priority types.TaskPriority) ([]types.Task, error)
	ListByStatus(ctx context.Context, taluka string, status types.TaskStatus) ([]types.Task, error)
	Search(ctx context.Context, query string) ([]types.Task, error)
	Stats(ctx context.Context, taluka string) (types.TaskStats, error)
}

// EventPublisher sends task events to the configured broker.
type EventPublisher interface {
	Publish(ctx context.Context, channel string, data []byte, attrs map[string]string) (string, error)
}

// TaskService encapsulates task use-cases. Event publishing is best effort:
// failures are logged, never surfaced to the caller. The service does not
// validate assignee references against the relational store; a task may
// outlive its worker's account.
type TaskService struct {
	repo   TaskStore
	events EventPublisher
	logger *zap.Logger
}

func NewTaskService(repo TaskStore, events EventPublisher, logger *zap.Logger) *TaskService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TaskService{repo: repo, events: events, logger: logger}
}

// TaskEvent is the payload published on task channels.
type TaskEvent struct {
	TaskID         string           `json:"taskId"`
	Title          string           `json:"title"`
	AssignedTo     string           `json:"assignedTo"`
	AssignedToName string           `json:"assignedToName"`
	AssignedBy     string           `json:"assignedBy"`
	Taluka         string           `json:"taluka"`
	Status         types.TaskStatus `json:"status"`
	DueDate        time.Time        `json:"dueDate"`
}

func (s *TaskService) publish(ctx context.Context, channel string, task types.Task) {
	if s.events == nil {
		return
	}
	payload, err := json.Marshal(TaskEvent{
		TaskID:         task.ID.Hex(),
		Title:          task.Title,
		AssignedTo:     task.AssignedTo,
		AssignedToName: task.AssignedToName,
		AssignedBy:     task.AssignedBy,
		Taluka:         task.Taluka,
		Status:         task.Status,
		DueDate:        task.DueDate,
	})
	if err != nil {
		s.logger.Error("marshal task event", zap.Error(err))
		return
	}
	attrs := map[string]string{"taluka": task.Taluka}
	if _, err := s.events.Publish(ctx, channel, payload, attrs); err != nil {
		s.logger.Error("publish task event",
			zap.String("channel", channel),
			zap.String("taskId", task.ID.Hex()),
			zap.Error(err))
	}
}

// CreateInput carries a new task.
type CreateTaskInput struct {
	Title          string
	Description    string
	AssignedTo     string
	AssignedToName string
	AssignedBy     string
	DueDate        time.Time
	Status         types.TaskStatus
	Priority       types.TaskPriority
	Taluka         string
}

func (s *TaskService) Create(ctx context.Context, in CreateTaskInput) (types.Task, error) {
	in.Title = strings.TrimSpace(in.Title)
	if in.Title == "" || strings.TrimSpace(in.Description) == "" ||
		in.AssignedTo == "" || in.AssignedToName == "" || in.AssignedBy == "" ||
		strings.TrimSpace(in.Taluka) == "" || in.DueDate.IsZero() {
		return types.Task{}, validationError("Title, description, assignedTo, assignedToName, assignedBy, dueDate, and taluka are required fields")
	}

	if in.Status == "" {
		in.Status = types.TaskStatusPending
	} else if !in.Status.Valid() {
		return types.Task{}, validationError("Invalid task status")
	}
	if in.Priority == "" {
		in.Priority = types.TaskPriorityMedium
	} else if !in.Priority.Valid() {
		return types.Task{}, validationError("Invalid task priority")
	}

	task, err := s.repo.Create(ctx, types.Task{
		Title:          in.Title,
		Description:    in.Description,
		AssignedTo:     in.AssignedTo,
		AssignedToName: in.AssignedToName,
		AssignedBy:     in.AssignedBy,
		DueDate:        in.DueDate,
		Status:         in.Status,
		Priority:       in.Priority,
		Taluka:         in.Taluka,
	})
	if err != nil {
		return types.Task{}, err
	}

	s.publish(ctx, taskAssignedChannel, task)
	return task, nil
}

func (s *TaskService) Get(ctx context.Context, id string) (types.Task, error) {
	return s.repo.GetByID(ctx, id)
}

// Update applies a partial update and refreshes updatedAt.
func (s *TaskService) Update(ctx context.Context, id string, patch store.TaskPatch) (types.Task, error) {
	if patch.Status != nil && !patch.Status.Valid() {
		return types.Task{}, validationError("Invalid task status")
	}
	if patch.Priority != nil && !patch.Priority.Valid() {
		return types.Task{}, validationError("Invalid task priority")
	}
	return s.repo.Update(ctx, id, patch)
}

// UpdateStatus validates the new status against the enum before applying.
func (s *TaskService) UpdateStatus(ctx context.Context, id string, status types.TaskStatus) (types.Task, error) {
	if !status.Valid() {
		return types.Task{}, validationError("Invalid task status")
	}
	task, err := s.repo.Update(ctx, id, store.TaskPatch{Status: &status})
	if err != nil {
		return types.Task{}, err
	}
	s.publish(ctx, taskStatusChangedChannel, task)
	return task, nil
}

// BulkUpdate applies one patch to every task matching the id set within the
// taluka and reports how many were actually modified.
func (s *TaskService) BulkUpdate(ctx context.Context, ids []string, taluka string, patch store.TaskPatch) (int64, error) {
	if len(ids) == 0 || strings.TrimSpace(taluka) == "" {
		return 0, validationError("Task ids and taluka are required fields")
	}
	if patch.Status != nil && !patch.Status.Valid() {
		return 0, validationError("Invalid task status")
	}
	if patch.Priority != nil && !patch.Priority.Valid() {
		return 0, validationError("Invalid task priority")
	}
	return s.repo.BulkUpdate(ctx, ids, taluka, patch)
}

func (s *TaskService) Delete(ctx context.Context, id string) error {
	return s.repo.Delete(ctx, id)
}

func (s *TaskService) ListByWorker(ctx context.Context, workerID string) ([]types.Task, error) {
	return s.repo.ListByWorker(ctx, workerID)
}

func (s *TaskService) ListByTaluka(ctx context.Context, taluka string) ([]types.Task, error) {
	return s.repo.ListByTaluka(ctx, taluka)
}

func (s *TaskService) Recent(ctx context.Context, limit int) ([]types.Task, error) {
	if limit <= 0 {
		limit = defaultRecentLimit
	}
	if limit > maxRecentLimit {
		limit = maxRecentLimit
	}
	return s.repo.Recent(ctx, limit)
}

func (s *TaskService) Overdue(ctx context.Context, taluka string) ([]types.Task, error) {
	return s.repo.Overdue(ctx, taluka)
}

func (s *TaskService) ListByPriority(ctx context.Context, taluka string, priority types.TaskPriority) ([]types.Task, error) {
	if !priority.Valid() {
		return nil, validationError("Invalid task priority")
	}
	return s.repo.ListByPriority(ctx, taluka, priority)
}

func (s *TaskService) ListByStatus(ctx context.Context, taluka string, status types.TaskStatus) ([]types.Task, error) {
	if !status.Valid() {
		return nil, validationError("Invalid task status")
	}
	return s.repo.ListByStatus(ctx, taluka, status)
}

func (s *TaskService) Search(ctx context.Context, query string) ([]types.Task, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, validationError("Search query is required")
	}
	return s.repo.Search(ctx, query)
}

func (s *TaskService) Stats(ctx context.Context, taluka string) (types.TaskStats, error) {
	return s.repo.Stats(ctx, taluka)
}
