// Package taskrepo implements the Task Repository (C2): per-user storage
// for tasks and their notes, consumed only by tool handlers (internal/
// toolregistry). Modeled on the teacher repository's in-memory task store
// (server/a2a/task_store.go), adapted from a single global task map to a
// per-user keyspace and from an A2A task-state machine to the flat
// Task/Note records of §3/§4.3.
package taskrepo

import (
	"errors"
	"time"
)

// Sentinel errors returned by Repository implementations.
var (
	ErrTaskNotFound = errors.New("taskrepo: task not found")
	ErrNoteNotFound = errors.New("taskrepo: note not found")
)

// Task is the gateway's task record (§3).
type Task struct {
	ID          string    `yaml:"id" json:"id"`
	UserID      string    `yaml:"userId" json:"userId"`
	Title       string    `yaml:"title" json:"title"`
	Description string    `yaml:"description" json:"description"`
	Completed   bool      `yaml:"completed" json:"completed"`
	CreatedAt   time.Time `yaml:"createdAt" json:"createdAt"`
	UpdatedAt   time.Time `yaml:"updatedAt" json:"updatedAt"`
}

// Note is a task-scoped note record (§3).
type Note struct {
	ID        string    `yaml:"id" json:"id"`
	UserID    string    `yaml:"userId" json:"userId"`
	TaskID    string    `yaml:"taskId" json:"taskId"`
	Content   string    `yaml:"content" json:"content"`
	CreatedAt time.Time `yaml:"createdAt" json:"createdAt"`
}

// TaskPatch carries the optional fields of an updateTask call; a nil
// pointer means "leave unchanged".
type TaskPatch struct {
	Title       *string
	Description *string
	Completed   *bool
}

// Repository is the minimum surface of §4.3, implemented by
// MemoryRepository and FileRepository.
type Repository interface {
	ListTasks(userID string) ([]Task, error)
	GetTask(userID, taskID string) (*Task, error)
	CreateTask(userID string, title, description string, completed bool) (Task, error)
	UpdateTask(userID, taskID string, patch TaskPatch) (*Task, error)
	DeleteTask(userID, taskID string) (bool, error)
	ListNotes(userID, taskID string, limit int) ([]Note, error)
	CreateNote(userID, taskID, content string) (*Note, error)
	DeleteNote(userID, taskID, noteID string) (bool, error)
}
