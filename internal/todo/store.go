// Package todo implements the Todo Plan Store (spec.md §4.5), exposed to the
// LLM as the todo_manager tool. It is in-memory and synchronous; priority
// rank breaks ties by insertion order, and changing an item's priority
// preserves its original insertion order within the new priority bucket.
package todo

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/reactorhq/agent/pkg/models"
)

// TodoStore is the repository boundary the todo_manager tool depends on,
// grounded on the pack's small todo-repository pattern (see
// other_examples fpt-klein-cli and SnapdragonPartners-maestro): an
// in-memory implementation satisfies every spec.md §4.5 operation today,
// and a file-backed implementation could satisfy the same interface
// without the tool or the main loop changing.
type TodoStore interface {
	CreatePlan(inits []models.TodoItemInit) []models.TodoItem
	AddTodo(init models.TodoItemInit) models.TodoItem
	UpdateStatus(id string, status models.TodoStatus) (models.TodoItem, error)
	UpdatePriority(id string, priority models.TodoPriority) (models.TodoItem, error)
	GetNext() (models.TodoItem, bool)
	List() []models.TodoItem
	Clear()
}

// Store is the in-memory TodoStore implementation. Safe for concurrent use.
type Store struct {
	mu      sync.Mutex
	items   map[string]models.TodoItem
	order   []string
	nextSeq int
}

var _ TodoStore = (*Store)(nil)

// New builds an empty in-memory Store.
func New() *Store {
	return &Store{items: make(map[string]models.TodoItem)}
}

// NewInMemoryTodoStore builds an empty Store behind the TodoStore interface,
// for callers that only need the repository boundary.
func NewInMemoryTodoStore() TodoStore {
	return New()
}

// CreatePlan clears any existing plan and seeds it with the given todos, in
// order. The todo_manager tool's create_plan operation calls it; the Planner
// does not, and nothing in the runtime seeds the store from a
// PlanningResponse.
func (s *Store) CreatePlan(inits []models.TodoItemInit) []models.TodoItem {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items = make(map[string]models.TodoItem)
	s.order = nil
	s.nextSeq = 0

	created := make([]models.TodoItem, 0, len(inits))
	for _, init := range inits {
		item := s.addLocked(init)
		created = append(created, item)
	}
	return created
}

// AddTodo inserts one new item with status pending.
func (s *Store) AddTodo(init models.TodoItemInit) models.TodoItem {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.addLocked(init)
}

func (s *Store) addLocked(init models.TodoItemInit) models.TodoItem {
	now := time.Now()
	item := models.TodoItem{
		ID:              uuid.NewString(),
		Title:           init.Title,
		Description:     init.Description,
		Priority:        init.Priority,
		Status:          models.StatusPending,
		EstimatedEffort: init.EstimatedEffort,
		CreatedAt:       now,
		UpdatedAt:       now,
	}.WithInsertionSeq(s.nextSeq)
	s.nextSeq++
	s.items[item.ID] = item
	s.order = append(s.order, item.ID)
	return item
}

// UpdateStatus transitions an item to a new status.
func (s *Store) UpdateStatus(id string, status models.TodoStatus) (models.TodoItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	item, ok := s.items[id]
	if !ok {
		return models.TodoItem{}, fmt.Errorf("todo %q not found", id)
	}
	item.Status = status
	item.UpdatedAt = time.Now()
	s.items[id] = item
	return item, nil
}

// UpdatePriority changes an item's priority while preserving its original
// insertion order within the new priority bucket, per spec.md §4.5.
func (s *Store) UpdatePriority(id string, priority models.TodoPriority) (models.TodoItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	item, ok := s.items[id]
	if !ok {
		return models.TodoItem{}, fmt.Errorf("todo %q not found", id)
	}
	item.Priority = priority
	item.UpdatedAt = time.Now()
	s.items[id] = item
	return item, nil
}

// GetNext returns the first pending item ordered by (priority rank, then
// insertion order) and transitions it to in_progress, or returns false if
// there is none. Per spec.md §8 scenario S2, the first todo becomes
// in_progress on the first get_next call rather than staying pending until
// a separate update_status call.
func (s *Store) GetNext() (models.TodoItem, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	pending := s.sortedLocked(func(it models.TodoItem) bool { return it.Status == models.StatusPending })
	if len(pending) == 0 {
		return models.TodoItem{}, false
	}
	next := pending[0]
	next.Status = models.StatusInProgress
	next.UpdatedAt = time.Now()
	s.items[next.ID] = next
	return next, true
}

// List returns every item ordered by (priority rank, then insertion order).
func (s *Store) List() []models.TodoItem {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sortedLocked(func(models.TodoItem) bool { return true })
}

// Clear removes every item.
func (s *Store) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items = make(map[string]models.TodoItem)
	s.order = nil
	s.nextSeq = 0
}

func (s *Store) sortedLocked(keep func(models.TodoItem) bool) []models.TodoItem {
	out := make([]models.TodoItem, 0, len(s.order))
	for _, id := range s.order {
		item := s.items[id]
		if keep(item) {
			out = append(out, item)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Priority.Rank() < out[j].Priority.Rank()
	})
	return out
}
