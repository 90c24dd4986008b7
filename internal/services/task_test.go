package services

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/gramseva/apiserver/internal/store"
	"github.com/gramseva/apiserver/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type fakeTaskStore struct {
	created     *types.Task
	updatedWith *store.TaskPatch
	recentLimit int
	bulkIDs     []string
}

func (f *fakeTaskStore) Create(_ context.Context, task types.Task) (types.Task, error) {
	task.ID = primitive.NewObjectID()
	task.CreatedAt = time.Now()
	task.UpdatedAt = task.CreatedAt
	f.created = &task
	return task, nil
}

func (f *fakeTaskStore) GetByID(_ context.Context, id string) (types.Task, error) {
	return types.Task{}, store.ErrNotFound
}

func (f *fakeTaskStore) Update(_ context.Context, id string, patch store.TaskPatch) (types.Task, error) {
	f.updatedWith = &patch
	task := types.Task{Title: "Water survey", Taluka: "Haveli"}
	if patch.Status != nil {
		task.Status = *patch.Status
	}
	return task, nil
}

func (f *fakeTaskStore) BulkUpdate(_ context.Context, ids []string, taluka string, patch store.TaskPatch) (int64, error) {
	f.bulkIDs = ids
	return int64(len(ids)), nil
}

func (f *fakeTaskStore) Delete(_ context.Context, id string) error { return nil }

func (f *fakeTaskStore) ListByWorker(_ context.Context, workerID string) ([]types.Task, error) {
	return nil, nil
}

func (f *fakeTaskStore) ListByTaluka(_ context.Context, taluka string) ([]types.Task, error) {
	return nil, nil
}

func (f *fakeTaskStore) Recent(_ context.Context, limit int) ([]types.Task, error) {
	f.recentLimit = limit
	return nil, nil
}

func (f *fakeTaskStore) Overdue(_ context.Context, taluka string) ([]types.Task, error) {
	return nil, nil
}

func (f *fakeTaskStore) ListByPriority(_ context.Context, taluka string, priority types.TaskPriority) ([]types.Task, error) {
	return nil, nil
}

func (f *fakeTaskStore) ListByStatus(_ context.Context, taluka string, status types.TaskStatus) ([]types.Task, error) {
	return nil, nil
}

func (f *fakeTaskStore) Search(_ context.Context, query string) ([]types.Task, error) {
	return nil, nil
}

func (f *fakeTaskStore) Stats(_ context.Context, taluka string) (types.TaskStats, error) {
	return types.TaskStats{}, nil
}

type fakeEventPublisher struct {
	channels []string
	payloads [][]byte
}

func (f *fakeEventPublisher) Publish(_ context.Context, channel string, data []byte, _ map[string]string) (string, error) {
	f.channels = append(f.channels, channel)
	f.payloads = append(f.payloads, data)
	return "msg-1", nil
}

func validCreateInput() CreateTaskInput {
	return CreateTaskInput{
		Title:          "Water survey",
		Description:    "Survey drinking water sources in the village",
		AssignedTo:     "worker-10",
		AssignedToName: "Ravi Jadhav",
		AssignedBy:     "th@example.com",
		DueDate:        time.Now().Add(72 * time.Hour),
		Taluka:         "Haveli",
	}
}

func TestTaskCreate_DefaultsStatusAndPriority(t *testing.T) {
	repo := &fakeTaskStore{}
	svc := NewTaskService(repo, nil, nil)

	task, err := svc.Create(context.Background(), validCreateInput())

	require.NoError(t, err)
	assert.Equal(t, types.TaskStatusPending, task.Status)
	assert.Equal(t, types.TaskPriorityMedium, task.Priority)
}

func TestTaskCreate_RequiredFields(t *testing.T) {
	repo := &fakeTaskStore{}
	svc := NewTaskService(repo, nil, nil)

	in := validCreateInput()
	in.Taluka = "  "
	_, err := svc.Create(context.Background(), in)

	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Nil(t, repo.created)
}

func TestTaskCreate_RejectsUnknownStatus(t *testing.T) {
	svc := NewTaskService(&fakeTaskStore{}, nil, nil)

	in := validCreateInput()
	in.Status = "Done"
	_, err := svc.Create(context.Background(), in)

	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "Invalid task status", verr.Message)
}

func TestTaskCreate_PublishesAssignedEvent(t *testing.T) {
	events := &fakeEventPublisher{}
	svc := NewTaskService(&fakeTaskStore{}, events, nil)

	task, err := svc.Create(context.Background(), validCreateInput())

	require.NoError(t, err)
	require.Len(t, events.channels, 1)
	assert.Equal(t, "task-assigned", events.channels[0])

	var event TaskEvent
	require.NoError(t, json.Unmarshal(events.payloads[0], &event))
	assert.Equal(t, task.ID.Hex(), event.TaskID)
	assert.Equal(t, "Haveli", event.Taluka)
}

func TestTaskUpdateStatus_PublishesStatusChangedEvent(t *testing.T) {
	events := &fakeEventPublisher{}
	repo := &fakeTaskStore{}
	svc := NewTaskService(repo, events, nil)

	task, err := svc.UpdateStatus(context.Background(), "64f000000000000000000001", types.TaskStatusCompleted)

	require.NoError(t, err)
	assert.Equal(t, types.TaskStatusCompleted, task.Status)
	require.NotNil(t, repo.updatedWith)
	require.NotNil(t, repo.updatedWith.Status)
	require.Len(t, events.channels, 1)
	assert.Equal(t, "task-status-changed", events.channels[0])
}

func TestTaskUpdateStatus_RejectsUnknownStatus(t *testing.T) {
	events := &fakeEventPublisher{}
	svc := NewTaskService(&fakeTaskStore{}, events, nil)

	_, err := svc.UpdateStatus(context.Background(), "64f000000000000000000001", "Archived")

	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Empty(t, events.channels)
}

func TestTaskBulkUpdate_RequiresIDsAndTaluka(t *testing.T) {
	svc := NewTaskService(&fakeTaskStore{}, nil, nil)

	_, err := svc.BulkUpdate(context.Background(), nil, "Haveli", store.TaskPatch{})
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)

	_, err = svc.BulkUpdate(context.Background(), []string{"64f000000000000000000001"}, " ", store.TaskPatch{})
	require.ErrorAs(t, err, &verr)
}

func TestTaskRecent_ClampsLimit(t *testing.T) {
	repo := &fakeTaskStore{}
	svc := NewTaskService(repo, nil, nil)

	_, err := svc.Recent(context.Background(), 0)
	require.NoError(t, err)
	assert.Equal(t, defaultRecentLimit, repo.recentLimit)

	_, err = svc.Recent(context.Background(), 5000)
	require.NoError(t, err)
	assert.Equal(t, maxRecentLimit, repo.recentLimit)
}

func TestTaskSearch_RequiresQuery(t *testing.T) {
	svc := NewTaskService(&fakeTaskStore{}, nil, nil)

	_, err := svc.Search(context.Background(), "   ")

	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
}
