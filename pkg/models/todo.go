package models

import "time"

// TodoPriority orders pending items: high before medium before low.
type TodoPriority string

const (
	PriorityHigh   TodoPriority = "high"
	PriorityMedium TodoPriority = "medium"
	PriorityLow    TodoPriority = "low"
)

// rank returns the sort weight for a priority; lower sorts first.
func (p TodoPriority) rank() int {
	switch p {
	case PriorityHigh:
		return 0
	case PriorityMedium:
		return 1
	case PriorityLow:
		return 2
	default:
		return 1
	}
}

// Rank exposes the priority ordering weight (lower runs first).
func (p TodoPriority) Rank() int { return p.rank() }

// TodoStatus is the lifecycle state of a TodoItem.
type TodoStatus string

const (
	StatusPending    TodoStatus = "pending"
	StatusInProgress TodoStatus = "in_progress"
	StatusCompleted  TodoStatus = "completed"
	StatusCancelled  TodoStatus = "cancelled"
)

// TodoItem is one entry in the Todo Plan Store.
type TodoItem struct {
	ID              string       `json:"id"`
	Title           string       `json:"title"`
	Description     string       `json:"description"`
	Priority        TodoPriority `json:"priority"`
	Status          TodoStatus   `json:"status"`
	EstimatedEffort int          `json:"estimated_effort"`
	CreatedAt       time.Time    `json:"created_at"`
	UpdatedAt       time.Time    `json:"updated_at"`

	// insertionSeq preserves insertion order within a priority bucket
	// even across priority edits; unexported so it never round-trips
	// through the todo_manager tool's JSON surface.
	insertionSeq int
}

// InsertionSeq returns the store-assigned insertion sequence number.
func (t TodoItem) InsertionSeq() int { return t.insertionSeq }

// WithInsertionSeq returns a copy of t with the insertion sequence set.
// Used only by the store that owns sequence allocation.
func (t TodoItem) WithInsertionSeq(seq int) TodoItem {
	t.insertionSeq = seq
	return t
}

// TodoItemInit is the caller-supplied subset of TodoItem used to create one.
type TodoItemInit struct {
	Title           string       `json:"title"`
	Description     string       `json:"description"`
	Priority        TodoPriority `json:"priority"`
	EstimatedEffort int          `json:"estimated_effort"`
}

// PlanningResponse is the Planner's one-shot structured output.
type PlanningResponse struct {
	Analysis      string         `json:"analysis"`
	Approach      string         `json:"approach"`
	Todos         []TodoItemInit `json:"todos"`
	NeedsPlanning bool           `json:"needs_planning"`
}
