package store

import (
	"context"
	"errors"
	"regexp"
	"time"

	"github.com/gramseva/apiserver/types"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const taskCollection = "tasks"

// TaskRepository handles persistence for tasks in the document store.
// Task operations are single-statement; no explicit transaction is needed.
type TaskRepository struct {
	collection *mongo.Collection
}

func NewTaskRepository(db *mongo.Database) *TaskRepository {
	return &TaskRepository{collection: db.Collection(taskCollection)}
}

func taskObjectID(id string) (primitive.ObjectID, error) {
	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return primitive.NilObjectID, ErrNotFound
	}
	return objectID, nil
}

func (r *TaskRepository) Create(ctx context.Context, task types.Task) (types.Task, error) {
	now := time.Now()
	task.CreatedAt = now
	task.UpdatedAt = now

	result, err := r.collection.InsertOne(ctx, task)
	if err != nil {
		return types.Task{}, err
	}
	task.ID = result.InsertedID.(primitive.ObjectID)
	return task, nil
}

func (r *TaskRepository) GetByID(ctx context.Context, id string) (types.Task, error) {
	objectID, err := taskObjectID(id)
	if err != nil {
		return types.Task{}, err
	}

	var task types.Task
	err = r.collection.FindOne(ctx, bson.M{"_id": objectID}).Decode(&task)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return types.Task{}, ErrNotFound
		}
		return types.Task{}, err
	}
	return task, nil
}

// TaskPatch carries the optional fields of a task update. Nil fields are
// left untouched; updatedAt refreshes on every update regardless.
type TaskPatch struct {
	Title          *string
	Description    *string
	AssignedTo     *string
	AssignedToName *string
	AssignedBy     *string
	DueDate        *time.Time
	Status         *types.TaskStatus
	Priority       *types.TaskPriority
	Taluka         *string
}

func (p TaskPatch) setDocument() bson.M {
	set := bson.M{"updatedAt": time.Now()}
	if p.Title != nil {
		set["title"] = *p.Title
	}
	if p.Description != nil {
		set["description"] = *p.Description
	}
	if p.AssignedTo != nil {
		set["assignedTo"] = *p.AssignedTo
	}
	if p.AssignedToName != nil {
		set["assignedToName"] = *p.AssignedToName
	}
	if p.AssignedBy != nil {
		set["assignedBy"] = *p.AssignedBy
	}
	if p.DueDate != nil {
		set["dueDate"] = *p.DueDate
	}
	if p.Status != nil {
		set["status"] = *p.Status
	}
	if p.Priority != nil {
		set["priority"] = *p.Priority
	}
	if p.Taluka != nil {
		set["taluka"] = *p.Taluka
	}
	return set
}

// Update applies the patch and returns the task as updated.
func (r *TaskRepository) Update(ctx context.Context, id string, patch TaskPatch) (types.Task, error) {
	objectID, err := taskObjectID(id)
	if err != nil {
		return types.Task{}, err
	}

	after := options.After
	opts := options.FindOneAndUpdate().SetReturnDocument(after)

	var task types.Task
	err = r.collection.FindOneAndUpdate(
		ctx,
		bson.M{"_id": objectID},
		bson.M{"$set": patch.setDocument()},
		opts,
	).Decode(&task)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return types.Task{}, ErrNotFound
		}
		return types.Task{}, err
	}
	return task, nil
}

// BulkUpdate applies the same patch to every task matching both the id set
// and the taluka. Returns the number of tasks actually modified.
func (r *TaskRepository) BulkUpdate(ctx context.Context, ids []string, taluka string, patch TaskPatch) (int64, error) {
	objectIDs := make([]primitive.ObjectID, 0, len(ids))
	for _, id := range ids {
		objectID, err := taskObjectID(id)
		if err != nil {
			continue
		}
		objectIDs = append(objectIDs, objectID)
	}

	filter := bson.M{
		"_id":    bson.M{"$in": objectIDs},
		"taluka": taluka,
	}
	result, err := r.collection.UpdateMany(ctx, filter, bson.M{"$set": patch.setDocument()})
	if err != nil {
		return 0, err
	}
	return result.ModifiedCount, nil
}

// Delete is a hard delete.
func (r *TaskRepository) Delete(ctx context.Context, id string) error {
	objectID, err := taskObjectID(id)
	if err != nil {
		return err
	}

	result, err := r.collection.DeleteOne(ctx, bson.M{"_id": objectID})
	if err != nil {
		return err
	}
	if result.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *TaskRepository) find(ctx context.Context, filter bson.M, opts ...*options.FindOptions) ([]types.Task, error) {
	cursor, err := r.collection.Find(ctx, filter, opts...)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	tasks := make([]types.Task, 0)
	if err := cursor.All(ctx, &tasks); err != nil {
		return nil, err
	}
	return tasks, nil
}

func (r *TaskRepository) ListByWorker(ctx context.Context, workerID string) ([]types.Task, error) {
	return r.find(ctx, bson.M{"assignedTo": workerID})
}

func (r *TaskRepository) ListByTaluka(ctx context.Context, taluka string) ([]types.Task, error) {
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}})
	return r.find(ctx, bson.M{"taluka": taluka}, opts)
}

func (r *TaskRepository) Recent(ctx context.Context, limit int) ([]types.Task, error) {
	opts := options.Find().
		SetSort(bson.D{{Key: "createdAt", Value: -1}}).
		SetLimit(int64(limit))
	return r.find(ctx, bson.M{}, opts)
}

// Overdue lists the taluka's tasks past their due date and not yet
// completed, most urgent first.
func (r *TaskRepository) Overdue(ctx context.Context, taluka string) ([]types.Task, error) {
	filter := bson.M{
		"taluka":  taluka,
		"dueDate": bson.M{"$lt": time.Now()},
		"status":  bson.M{"$ne": types.TaskStatusCompleted},
	}
	opts := options.Find().SetSort(bson.D{{Key: "dueDate", Value: 1}})
	return r.find(ctx, filter, opts)
}

func (r *TaskRepository) ListByPriority(ctx context.Context, taluka string, priority types.TaskPriority) ([]types.Task, error) {
	return r.find(ctx, bson.M{"taluka": taluka, "priority": priority})
}

func (r *TaskRepository) ListByStatus(ctx context.Context, taluka string, status types.TaskStatus) ([]types.Task, error) {
	return r.find(ctx, bson.M{"taluka": taluka, "status": status})
}

// Search matches a case-insensitive substring against title, description,
// and the denormalized assignee name.
func (r *TaskRepository) Search(ctx context.Context, query string) ([]types.Task, error) {
	regex := primitive.Regex{Pattern: regexp.QuoteMeta(query), Options: "i"}
	filter := bson.M{"$or": bson.A{
		bson.M{"title": regex},
		bson.M{"description": regex},
		bson.M{"assignedToName": regex},
	}}
	return r.find(ctx, filter)
}

func (r *TaskRepository) Stats(ctx context.Context, taluka string) (types.TaskStats, error) {
	base := bson.M{"taluka": taluka}

	total, err := r.collection.CountDocuments(ctx, base)
	if err != nil {
		return types.TaskStats{}, err
	}

	stats := types.TaskStats{
		Total:      int(total),
		ByStatus:   make(map[types.TaskStatus]int),
		ByPriority: make(map[types.TaskPriority]int),
	}

	for _, status := range []types.TaskStatus{
		types.TaskStatusPending, types.TaskStatusInProgress, types.TaskStatusCompleted,
	} {
		count, err := r.collection.CountDocuments(ctx, bson.M{"taluka": taluka, "status": status})
		if err != nil {
			return types.TaskStats{}, err
		}
		stats.ByStatus[status] = int(count)
	}

	for _, priority := range []types.TaskPriority{
		types.TaskPriorityLow, types.TaskPriorityMedium, types.TaskPriorityHigh,
	} {
		count, err := r.collection.CountDocuments(ctx, bson.M{"taluka": taluka, "priority": priority})
		if err != nil {
			return types.TaskStats{}, err
		}
		stats.ByPriority[priority] = int(count)
	}

	overdue, err := r.collection.CountDocuments(ctx, bson.M{
		"taluka":  taluka,
		"dueDate": bson.M{"$lt": time.Now()},
		"status":  bson.M{"$ne": types.TaskStatusCompleted},
	})
	if err != nil {
		return types.TaskStats{}, err
	}
	stats.Overdue = int(overdue)

	return stats, nil
}

