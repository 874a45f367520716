package taskrepo

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"gopkg.in/yaml.v3"
)

const filePerm = 0o644
const dirPerm = 0o755

// fileDocument is the on-disk shape of a FileRepository's single YAML
// document.
type fileDocument struct {
	Tasks []Task `yaml:"tasks"`
	Notes []Note `yaml:"notes"`
}

// FileRepository persists tasks and notes to a single YAML file, saving
// after every mutation. Grounded on
// AltairaLabs-PromptKit/runtime/persistence/yaml's load/marshal-to-disk
// shape (yaml_tool.go), adapted from per-resource files to a single
// document and from the teacher's K8s-manifest envelope to a flat struct,
// since task/note records have no multi-tenant manifest metadata to
// carry. Wraps a MemoryRepository for the in-process read/write logic and
// layers persistence on top, so the cascading-delete invariant lives in
// one place.
type FileRepository struct {
	mu   sync.Mutex
	path string
	mem  *MemoryRepository
}

// NewFileRepository loads path if it exists, or starts empty, and returns
// a Repository that persists every mutation back to path.
func NewFileRepository(path string) (*FileRepository, error) {
	r := &FileRepository{path: path, mem: NewMemoryRepository()}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return r, nil
		}
		return nil, fmt.Errorf("taskrepo: reading %s: %w", path, err)
	}

	var doc fileDocument
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("taskrepo: parsing %s: %w", path, err)
	}

	r.mem.mu.Lock()
	for i := range doc.Tasks {
		t := doc.Tasks[i]
		r.mem.tasks[t.ID] = &t
	}
	for i := range doc.Notes {
		n := doc.Notes[i]
		if r.mem.notes[n.TaskID] == nil {
			r.mem.notes[n.TaskID] = make(map[string]*Note)
		}
		r.mem.notes[n.TaskID][n.ID] = &n
	}
	r.mem.mu.Unlock()

	return r, nil
}

// save serializes the current state to r.path. Called with mu held by
// every mutating method below.
func (r *FileRepository) save() error {
	r.mem.mu.RLock()
	doc := fileDocument{}
	for _, t := range r.mem.tasks {
		doc.Tasks = append(doc.Tasks, *t)
	}
	for _, taskNotes := range r.mem.notes {
		for _, n := range taskNotes {
			doc.Notes = append(doc.Notes, *n)
		}
	}
	r.mem.mu.RUnlock()

	data, err := yaml.Marshal(doc)
	if err != nil {
		return fmt.Errorf("taskrepo: marshaling: %w", err)
	}

	if dir := filepath.Dir(r.path); dir != "." {
		if err := os.MkdirAll(dir, dirPerm); err != nil {
			return fmt.Errorf("taskrepo: creating %s: %w", dir, err)
		}
	}
	if err := os.WriteFile(r.path, data, filePerm); err != nil {
		return fmt.Errorf("taskrepo: writing %s: %w", r.path, err)
	}
	return nil
}

func (r *FileRepository) ListTasks(userID string) ([]Task, error) {
	return r.mem.ListTasks(userID)
}

func (r *FileRepository) GetTask(userID, taskID string) (*Task, error) {
	return r.mem.GetTask(userID, taskID)
}

func (r *FileRepository) CreateTask(userID, title, description string, completed bool) (Task, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	t, err := r.mem.CreateTask(userID, title, description, completed)
	if err != nil {
		return Task{}, err
	}
	return t, r.save()
}

func (r *FileRepository) UpdateTask(userID, taskID string, patch TaskPatch) (*Task, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	t, err := r.mem.UpdateTask(userID, taskID, patch)
	if err != nil || t == nil {
		return t, err
	}
	return t, r.save()
}

func (r *FileRepository) DeleteTask(userID, taskID string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	ok, err := r.mem.DeleteTask(userID, taskID)
	if err != nil || !ok {
		return ok, err
	}
	return ok, r.save()
}

func (r *FileRepository) ListNotes(userID, taskID string, limit int) ([]Note, error) {
	return r.mem.ListNotes(userID, taskID, limit)
}

func (r *FileRepository) CreateNote(userID, taskID, content string) (*Note, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	n, err := r.mem.CreateNote(userID, taskID, content)
	if err != nil || n == nil {
		return n, err
	}
	return n, r.save()
}

func (r *FileRepository) DeleteNote(userID, taskID, noteID string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	ok, err := r.mem.DeleteNote(userID, taskID, noteID)
	if err != nil || !ok {
		return ok, err
	}
	return ok, r.save()
}

var _ Repository = (*FileRepository)(nil)
