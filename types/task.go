package types

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// TaskStatus is the lifecycle state of a task.
type TaskStatus string

const (
	TaskStatusPending    TaskStatus = "Pending"
	TaskStatusInProgress TaskStatus = "In Progress"
	TaskStatusCompleted  TaskStatus = "Completed"
)

// Valid reports whether s is one of the known statuses.
func (s TaskStatus) Valid() bool {
	switch s {
	case TaskStatusPending, TaskStatusInProgress, TaskStatusCompleted:
		return true
	}
	return false
}

// TaskPriority orders tasks by urgency.
type TaskPriority string

const (
	TaskPriorityLow    TaskPriority = "Low"
	TaskPriorityMedium TaskPriority = "Medium"
	TaskPriorityHigh   TaskPriority = "High"
)

// Valid reports whether p is one of the known priorities.
func (p TaskPriority) Valid() bool {
	switch p {
	case TaskPriorityLow, TaskPriorityMedium, TaskPriorityHigh:
		return true
	}
	return false
}

// Task is a unit of field work assigned to a Ground Worker, scoped to a
// taluka. Tasks live in the document store; AssignedToName is denormalized
// so task views never join back into the relational store.
type Task struct {
	ID             primitive.ObjectID `json:"id" bson:"_id,omitempty"`
	Title          string             `json:"title" bson:"title"`
	Description    string             `json:"description" bson:"description"`
	AssignedTo     string             `json:"assignedTo" bson:"assignedTo"`
	AssignedToName string             `json:"assignedToName" bson:"assignedToName"`
	AssignedBy     string             `json:"assignedBy" bson:"assignedBy"`
	DueDate        time.Time          `json:"dueDate" bson:"dueDate"`
	Status         TaskStatus         `json:"status" bson:"status"`
	Priority       TaskPriority       `json:"priority" bson:"priority"`
	Taluka         string             `json:"taluka" bson:"taluka"`
	CreatedAt      time.Time          `json:"createdAt" bson:"createdAt"`
	UpdatedAt      time.Time          `json:"updatedAt" bson:"updatedAt"`
}

// TaskStats summarizes one taluka's tasks.
type TaskStats struct {
	Total      int                  `json:"total"`
	ByStatus   map[TaskStatus]int   `json:"byStatus"`
	ByPriority map[TaskPriority]int `json:"byPriority"`
	Overdue    int                  `json:"overdue"`
}
