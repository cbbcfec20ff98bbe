package storage

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/wesellis/pulse-activity-tracker/pkg/models"
	"gopkg.in/yaml.v3"
)

// TodoStoreManager defines the interface for the todo list kept in
// todos.yaml under the base directory.
type TodoStoreManager interface {
	Accept(s models.Suggestion, now time.Time) (models.Todo, error)
	Add(text string, category models.Category, now time.Time) (models.Todo, error)
	Get(id string) (*models.Todo, error)
	List(includeDone bool) []models.Todo
	FetchTodoList() ([]models.Todo, error)
	MarkCompleted(ids []string, at time.Time) (int, error)
	Reopen(id string) error
	Load() error
	Save() error
}

type todoFile struct {
	Version string        `yaml:"version"`
	Todos   []models.Todo `yaml:"todos"`
}

type fileTodoStore struct {
	basePath string
	data     todoFile
}

// NewTodoStoreManager creates a TodoStoreManager backed by todos.yaml in the
// given base directory.
func NewTodoStoreManager(basePath string) TodoStoreManager {
	return &fileTodoStore{
		basePath: basePath,
		data:     todoFile{Version: "1.0"},
	}
}

func (s *fileTodoStore) filePath() string {
	return filepath.Join(s.basePath, "todos.yaml")
}

func (s *fileTodoStore) lockPath() string {
	return filepath.Join(s.basePath, ".todos.lock")
}

// Accept turns a suggestion into an open todo. Accepting the same pattern
// twice while the first todo is still open returns the existing todo.
func (s *fileTodoStore) Accept(sug models.Suggestion, now time.Time) (models.Todo, error) {
	if strings.TrimSpace(sug.Text) == "" {
		return models.Todo{}, fmt.Errorf("accepting suggestion: text must not be empty")
	}
	for _, t := range s.data.Todos {
		if !t.Done() && t.Signature != "" && t.Signature == sug.Source.Signature && t.Category == sug.Category {
			return t, nil
		}
	}
	todo := models.Todo{
		ID:        uuid.NewString(),
		Text:      sug.Text,
		Category:  sug.Category,
		Signature: sug.Source.Signature,
		CreatedAt: now,
	}
	s.data.Todos = append(s.data.Todos, todo)
	return todo, nil
}

// Add creates a user-authored todo with no source pattern.
func (s *fileTodoStore) Add(text string, category models.Category, now time.Time) (models.Todo, error) {
	if strings.TrimSpace(text) == "" {
		return models.Todo{}, fmt.Errorf("adding todo: text must not be empty")
	}
	if category != "" && !category.Valid() {
		return models.Todo{}, fmt.Errorf("adding todo: unknown category %q", category)
	}
	todo := models.Todo{
		ID:        uuid.NewString(),
		Text:      text,
		Category:  category,
		CreatedAt: now,
	}
	s.data.Todos = append(s.data.Todos, todo)
	return todo, nil
}

// Get returns a copy of the todo with the given ID. A unique ID prefix is
// accepted as well.
func (s *fileTodoStore) Get(id string) (*models.Todo, error) {
	idx, err := s.find(id)
	if err != nil {
		return nil, err
	}
	cp := s.data.Todos[idx]
	return &cp, nil
}

func (s *fileTodoStore) find(id string) (int, error) {
	if id == "" {
		return -1, fmt.Errorf("todo ID must not be empty")
	}
	match := -1
	for i, t := range s.data.Todos {
		if t.ID == id {
			return i, nil
		}
		if strings.HasPrefix(t.ID, id) {
			if match >= 0 {
				return -1, fmt.Errorf("todo ID prefix %q is ambiguous", id)
			}
			match = i
		}
	}
	if match < 0 {
		return -1, fmt.Errorf("todo %s not found", id)
	}
	return match, nil
}

// List returns todos ordered by creation time. Completed todos are omitted
// unless includeDone is set.
func (s *fileTodoStore) List(includeDone bool) []models.Todo {
	var out []models.Todo
	for _, t := range s.data.Todos {
		if t.Done() && !includeDone {
			continue
		}
		out = append(out, t)
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out
}

// FetchTodoList returns the open todos.
func (s *fileTodoStore) FetchTodoList() ([]models.Todo, error) {
	return s.List(false), nil
}

// MarkCompleted stamps the given todos as completed at the given time.
// Unknown and already completed IDs are skipped; the count of newly
// completed todos is returned.
func (s *fileTodoStore) MarkCompleted(ids []string, at time.Time) (int, error) {
	n := 0
	for _, id := range ids {
		idx, err := s.find(id)
		if err != nil {
			continue
		}
		if s.data.Todos[idx].Done() {
			continue
		}
		stamp := at
		s.data.Todos[idx].CompletedAt = &stamp
		n++
	}
	return n, nil
}

// Reopen clears the completion stamp of a todo.
func (s *fileTodoStore) Reopen(id string) error {
	idx, err := s.find(id)
	if err != nil {
		return fmt.Errorf("reopening todo: %w", err)
	}
	s.data.Todos[idx].CompletedAt = nil
	return nil
}

// Load reads todos.yaml. A missing file is treated as an empty list.
func (s *fileTodoStore) Load() error {
	data, err := os.ReadFile(s.filePath())
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("loading todos: %w", err)
	}
	if err := yaml.Unmarshal(data, &s.data); err != nil {
		return fmt.Errorf("parsing todos: %w", err)
	}
	if s.data.Version == "" {
		s.data.Version = "1.0"
	}
	return nil
}

// Save writes todos.yaml under an exclusive lock so concurrent CLI and
// server processes do not interleave writes.
func (s *fileTodoStore) Save() error {
	if err := os.MkdirAll(s.basePath, 0o755); err != nil {
		return fmt.Errorf("saving todos: creating directory: %w", err)
	}
	unlock, err := lockFile(s.lockPath())
	if err != nil {
		return fmt.Errorf("saving todos: %w", err)
	}
	defer func() { _ = unlock() }()

	data, err := yaml.Marshal(&s.data)
	if err != nil {
		return fmt.Errorf("saving todos: %w", err)
	}
	if err := os.WriteFile(s.filePath(), data, 0o600); err != nil {
		return fmt.Errorf("saving todos: %w", err)
	}
	return nil
}

// lockFile acquires an exclusive advisory lock on path and returns the
// function that releases it.
func lockFile(path string) (unlock func() error, err error) {
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0o600)
	if err != nil {
		return nil, fmt.Errorf("opening lock file: %w", err)
	}
	if err := syscall.Flock(int(f.Fd()), syscall.LOCK_EX); err != nil {
		f.Close()
		return nil, fmt.Errorf("acquiring file lock: %w", err)
	}
	return func() error {
		defer f.Close()
		return syscall.Flock(int(f.Fd()), syscall.LOCK_UN)
	}, nil
}
