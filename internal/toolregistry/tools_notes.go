package toolregistry

import (
	"encoding/json"
	"fmt"

	"github.com/AltairaLabs/voice-gateway/internal/taskrepo"
)

const listNotesSchema = `{
  "type": "object",
  "additionalProperties": false,
  "required": ["taskId"],
  "properties": {
    "taskId": {"type": "string"},
    "limit": {"type": "integer", "minimum": 1, "maximum": 100}
  }
}`

const createNoteSchema = `{
  "type": "object",
  "additionalProperties": false,
  "required": ["taskId", "content"],
  "properties": {
    "taskId": {"type": "string"},
    "content": {"type": "string"}
  }
}`

const deleteNoteSchema = `{
  "type": "object",
  "additionalProperties": false,
  "required": ["taskId", "noteId"],
  "properties": {
    "taskId": {"type": "string"},
    "noteId": {"type": "string"}
  }
}`

// RegisterNoteTools registers the note-management tools of §4.2, backed
// by repo.
func RegisterNoteTools(r *Registry, repo taskrepo.Repository) error {
	if err := r.Register("listNotes", "Lists notes for a task.", json.RawMessage(listNotesSchema),
		handleListNotes(repo)); err != nil {
		return err
	}
	if err := r.Register("createNote", "Creates a note on a task.", json.RawMessage(createNoteSchema),
		handleCreateNote(repo)); err != nil {
		return err
	}
	if err := r.Register("deleteNote", "Deletes a note from a task.", json.RawMessage(deleteNoteSchema),
		handleDeleteNote(repo)); err != nil {
		return err
	}
	return nil
}

type listNotesParams struct {
	TaskID string `json:"taskId"`
	Limit  int    `json:"limit"`
}

func handleListNotes(repo taskrepo.Repository) Handler {
	return func(identity Identity, params json.RawMessage) (json.RawMessage, error) {
		var p listNotesParams
		if err := json.Unmarshal(params, &p); err != nil {
			return nil, fmt.Errorf("invalid parameters: %w", err)
		}
		limit := p.Limit
		if limit <= 0 || limit > maxNotesLimit {
			limit = maxNotesLimit
		}
		notes, err := repo.ListNotes(identity.UserID, p.TaskID, limit)
		if err != nil {
			if err == taskrepo.ErrTaskNotFound {
				return nil, fmt.Errorf("task %q not found", p.TaskID)
			}
			return nil, err
		}
		return json.Marshal(notes)
	}
}

type createNoteParams struct {
	TaskID  string `json:"taskId"`
	Content string `json:"content"`
}

func handleCreateNote(repo taskrepo.Repository) Handler {
	return func(identity Identity, params json.RawMessage) (json.RawMessage, error) {
		var p createNoteParams
		if err := json.Unmarshal(params, &p); err != nil {
			return nil, fmt.Errorf("invalid parameters: %w", err)
		}
		if len(p.Content) > maxNoteContentLen {
			return nil, fmt.Errorf("Content must not exceed %d characters", maxNoteContentLen)
		}
		note, err := repo.CreateNote(identity.UserID, p.TaskID, p.Content)
		if err != nil {
			return nil, err
		}
		if note == nil {
			return nil, fmt.Errorf("task %q not found", p.TaskID)
		}
		return json.Marshal(note)
	}
}

type deleteNoteParams struct {
	TaskID string `json:"taskId"`
	NoteID string `json:"noteId"`
}

func handleDeleteNote(repo taskrepo.Repository) Handler {
	return func(identity Identity, params json.RawMessage) (json.RawMessage, error) {
		var p deleteNoteParams
		if err := json.Unmarshal(params, &p); err != nil {
			return nil, fmt.Errorf("invalid parameters: %w", err)
		}
		ok, err := repo.DeleteNote(identity.UserID, p.TaskID, p.NoteID)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, fmt.Errorf("note %q not found", p.NoteID)
		}
		return json.Marshal(deletedResult{Deleted: true})
	}
}
