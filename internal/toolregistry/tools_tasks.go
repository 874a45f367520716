package toolregistry

import (
	"encoding/json"
	"fmt"

	"github.com/AltairaLabs/voice-gateway/internal/taskrepo"
)

// Limits enforced inside the handlers themselves, never trusted from the
// schema alone (§4.2).
const (
	maxTitleLen       = 255
	maxDescriptionLen = 1024
	maxNoteContentLen = 1024
	maxNotesLimit     = 100
)

const listTasksSchema = `{"type":"object","additionalProperties":false,"properties":{}}`

const getTaskSchema = `{
  "type": "object",
  "additionalProperties": false,
  "required": ["taskId"],
  "properties": {"taskId": {"type": "string"}}
}`

const createTaskSchema = `{
  "type": "object",
  "additionalProperties": false,
  "required": ["title"],
  "properties": {
    "title": {"type": "string"},
    "description": {"type": "string"},
    "completed": {"type": "boolean"}
  }
}`

const updateTaskSchema = `{
  "type": "object",
  "additionalProperties": false,
  "required": ["taskId"],
  "properties": {
    "taskId": {"type": "string"},
    "title": {"type": "string"},
    "description": {"type": "string"},
    "completed": {"type": "boolean"}
  }
}`

const deleteTaskSchema = getTaskSchema

// RegisterTaskTools registers the task-management tools of §4.2, backed
// by repo.
func RegisterTaskTools(r *Registry, repo taskrepo.Repository) error {
	if err := r.Register("listTasks", "Lists the caller's tasks.", json.RawMessage(listTasksSchema),
		handleListTasks(repo)); err != nil {
		return err
	}
	if err := r.Register("getTask", "Gets a single task by id.", json.RawMessage(getTaskSchema),
		handleGetTask(repo)); err != nil {
		return err
	}
	if err := r.Register("createTask", "Creates a new task.", json.RawMessage(createTaskSchema),
		handleCreateTask(repo)); err != nil {
		return err
	}
	if err := r.Register("updateTask", "Updates an existing task.", json.RawMessage(updateTaskSchema),
		handleUpdateTask(repo)); err != nil {
		return err
	}
	if err := r.Register("deleteTask", "Deletes a task and its notes.", json.RawMessage(deleteTaskSchema),
		handleDeleteTask(repo)); err != nil {
		return err
	}
	return nil
}

func handleListTasks(repo taskrepo.Repository) Handler {
	return func(identity Identity, _ json.RawMessage) (json.RawMessage, error) {
		tasks, err := repo.ListTasks(identity.UserID)
		if err != nil {
			return nil, err
		}
		return json.Marshal(tasks)
	}
}

type taskIDParams struct {
	TaskID string `json:"taskId"`
}

func handleGetTask(repo taskrepo.Repository) Handler {
	return func(identity Identity, params json.RawMessage) (json.RawMessage, error) {
		var p taskIDParams
		if err := json.Unmarshal(params, &p); err != nil {
			return nil, fmt.Errorf("invalid parameters: %w", err)
		}
		task, err := repo.GetTask(identity.UserID, p.TaskID)
		if err != nil {
			return nil, err
		}
		if task == nil {
			return nil, fmt.Errorf("task %q not found", p.TaskID)
		}
		return json.Marshal(task)
	}
}

type createTaskParams struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Completed   bool   `json:"completed"`
}

func handleCreateTask(repo taskrepo.Repository) Handler {
	return func(identity Identity, params json.RawMessage) (json.RawMessage, error) {
		var p createTaskParams
		if err := json.Unmarshal(params, &p); err != nil {
			return nil, fmt.Errorf("invalid parameters: %w", err)
		}
		if p.Title == "" {
			return nil, fmt.Errorf("title is required")
		}
		if len(p.Title) > maxTitleLen {
			return nil, fmt.Errorf("Title must not exceed %d characters", maxTitleLen)
		}
		if len(p.Description) > maxDescriptionLen {
			return nil, fmt.Errorf("Description must not exceed %d characters", maxDescriptionLen)
		}
		task, err := repo.CreateTask(identity.UserID, p.Title, p.Description, p.Completed)
		if err != nil {
			return nil, err
		}
		return json.Marshal(task)
	}
}

type updateTaskParams struct {
	TaskID      string  `json:"taskId"`
	Title       *string `json:"title"`
	Description *string `json:"description"`
	Completed   *bool   `json:"completed"`
}

func handleUpdateTask(repo taskrepo.Repository) Handler {
	return func(identity Identity, params json.RawMessage) (json.RawMessage, error) {
		var p updateTaskParams
		if err := json.Unmarshal(params, &p); err != nil {
			return nil, fmt.Errorf("invalid parameters: %w", err)
		}
		if p.Title != nil && len(*p.Title) > maxTitleLen {
			return nil, fmt.Errorf("Title must not exceed %d characters", maxTitleLen)
		}
		if p.Description != nil && len(*p.Description) > maxDescriptionLen {
			return nil, fmt.Errorf("Description must not exceed %d characters", maxDescriptionLen)
		}
		task, err := repo.UpdateTask(identity.UserID, p.TaskID, taskrepo.TaskPatch{
			Title:       p.Title,
			Description: p.Description,
			Completed:   p.Completed,
		})
		if err != nil {
			return nil, err
		}
		if task == nil {
			return nil, fmt.Errorf("task %q not found", p.TaskID)
		}
		return json.Marshal(task)
	}
}

type deletedResult struct {
	Deleted bool `json:"deleted"`
}

func handleDeleteTask(repo taskrepo.Repository) Handler {
	return func(identity Identity, params json.RawMessage) (json.RawMessage, error) {
		var p taskIDParams
		if err := json.Unmarshal(params, &p); err != nil {
			return nil, fmt.Errorf("invalid parameters: %w", err)
		}
		ok, err := repo.DeleteTask(identity.UserID, p.TaskID)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, fmt.Errorf("task %q not found", p.TaskID)
		}
		return json.Marshal(deletedResult{Deleted: true})
	}
}
