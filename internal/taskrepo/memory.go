package taskrepo

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryRepository is a concurrency-safe, in-memory Repository. Grounded
// directly on AltairaLabs-PromptKit/server/a2a/task_store.go's
// InMemoryTaskStore: a single mutex guarding a map, read methods taking
// RLock, write methods taking Lock, and deleteTask serializing its
// cascade under the same lock the teacher's store uses for its own
// single-writer invariant.
type MemoryRepository struct {
	mu    sync.RWMutex
	tasks map[string]*Task          // taskID -> task
	notes map[string]map[string]*Note // taskID -> noteID -> note
}

// NewMemoryRepository builds an empty MemoryRepository.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		tasks: make(map[string]*Task),
		notes: make(map[string]map[string]*Note),
	}
}

// ListTasks returns every task owned by userID.
func (r *MemoryRepository) ListTasks(userID string) ([]Task, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []Task
	for _, t := range r.tasks {
		if t.UserID == userID {
			out = append(out, *t)
		}
	}
	return out, nil
}

// GetTask returns a single task, scoped to userID. Returns (nil, nil) if
// absent or owned by a different user — §4.3's "Task?" return shape.
func (r *MemoryRepository) GetTask(userID, taskID string) (*Task, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	t, ok := r.tasks[taskID]
	if !ok || t.UserID != userID {
		return nil, nil
	}
	cp := *t
	return &cp, nil
}

// CreateTask inserts a new task owned by userID.
func (r *MemoryRepository) CreateTask(userID, title, description string, completed bool) (Task, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now().UTC()
	t := &Task{
		ID:          uuid.NewString(),
		UserID:      userID,
		Title:       title,
		Description: description,
		Completed:   completed,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	r.tasks[t.ID] = t
	return *t, nil
}

// UpdateTask applies patch to an existing task owned by userID. Returns
// nil if the task does not exist or belongs to another user.
func (r *MemoryRepository) UpdateTask(userID, taskID string, patch TaskPatch) (*Task, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	t, ok := r.tasks[taskID]
	if !ok || t.UserID != userID {
		return nil, nil
	}
	if patch.Title != nil {
		t.Title = *patch.Title
	}
	if patch.Description != nil {
		t.Description = *patch.Description
	}
	if patch.Completed != nil {
		t.Completed = *patch.Completed
	}
	t.UpdatedAt = time.Now().UTC()
	cp := *t
	return &cp, nil
}

// DeleteTask removes a task and, per §4.3, all of its notes first. The
// cascade is serialized under the same write lock as every other
// mutation, so a concurrent listNotes can never observe the task gone
// but its notes still present or vice versa.
func (r *MemoryRepository) DeleteTask(userID, taskID string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	t, ok := r.tasks[taskID]
	if !ok || t.UserID != userID {
		return false, nil
	}
	delete(r.notes, taskID)
	delete(r.tasks, taskID)
	return true, nil
}

// ListNotes returns up to limit notes for taskID, owned by userID.
func (r *MemoryRepository) ListNotes(userID, taskID string, limit int) ([]Note, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	t, ok := r.tasks[taskID]
	if !ok || t.UserID != userID {
		return nil, ErrTaskNotFound
	}

	var out []Note
	for _, n := range r.notes[taskID] {
		out = append(out, *n)
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out, nil
}

// CreateNote appends a note to taskID. Returns nil if the task does not
// exist or belongs to another user (§4.3).
func (r *MemoryRepository) CreateNote(userID, taskID, content string) (*Note, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	t, ok := r.tasks[taskID]
	if !ok || t.UserID != userID {
		return nil, nil
	}

	n := &Note{
		ID:        uuid.NewString(),
		UserID:    userID,
		TaskID:    t.ID,
		Content:   content,
		CreatedAt: time.Now().UTC(),
	}
	if r.notes[taskID] == nil {
		r.notes[taskID] = make(map[string]*Note)
	}
	r.notes[taskID][n.ID] = n
	return n, nil
}

// DeleteNote removes a single note from taskID.
func (r *MemoryRepository) DeleteNote(userID, taskID, noteID string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	t, ok := r.tasks[taskID]
	if !ok || t.UserID != userID {
		return false, nil
	}
	notes := r.notes[taskID]
	if notes == nil {
		return false, nil
	}
	n, ok := notes[noteID]
	if !ok || n.UserID != userID {
		return false, nil
	}
	delete(notes, noteID)
	return true, nil
}

var _ Repository = (*MemoryRepository)(nil)
