package models

import "time"

type TaskStatus string

const (
	StatusNotStarted TaskStatus = "not-started"
	StatusInProgress TaskStatus = "in-progress"
	StatusCompleted  TaskStatus = "completed"
)

func (s TaskStatus) Valid() bool {
	switch s {
	case StatusNotStarted, StatusInProgress, StatusCompleted:
		return true
	}
	return false
}

type TaskPriority string

const (
	PriorityLow    TaskPriority = "low"
	PriorityMedium TaskPriority = "medium"
	PriorityHigh   TaskPriority = "high"
)

func (p TaskPriority) Valid() bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh:
		return true
	}
	return false
}

// DeadlineLayout is the calendar-date format deadlines are stored in.
const DeadlineLayout = "2006-01-02"

type Task struct {
	ID          string       `json:"id" bson:"_id"`
	Title       string       `json:"title" bson:"title"`
	Description string       `json:"description" bson:"description"`
	AssignedBy  string       `json:"assignedBy" bson:"assignedBy"`
	AssignedTo  string       `json:"assignedTo" bson:"assignedTo"`
	Deadline    string       `json:"deadline" bson:"deadline"`
	Priority    TaskPriority `json:"priority" bson:"priority"`
	Status      TaskStatus   `json:"status" bson:"status"`
	CreatedAt   time.Time    `json:"createdAt" bson:"createdAt"`
	UpdatedAt   time.Time    `json:"updatedAt" bson:"updatedAt"`
	LastComment *string      `json:"lastComment" bson:"lastComment"`
	Version     int64        `json:"version" bson:"version"`
}
