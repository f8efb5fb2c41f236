package todo

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/reactorhq/agent/pkg/models"
)

func TestStore_GetNext_OrdersByPriorityThenInsertion(t *testing.T) {
	s := New()
	low := s.AddTodo(models.TodoItemInit{Title: "low first", Priority: models.PriorityLow})
	s.AddTodo(models.TodoItemInit{Title: "medium second", Priority: models.PriorityMedium})
	high := s.AddTodo(models.TodoItemInit{Title: "high third", Priority: models.PriorityHigh})

	next, ok := s.GetNext()
	require.True(t, ok)
	assert.Equal(t, high.ID, next.ID)

	_, err := s.UpdateStatus(high.ID, models.StatusCompleted)
	require.NoError(t, err)

	next, ok = s.GetNext()
	require.True(t, ok)
	assert.Equal(t, "medium second", next.Title)

	_, err = s.UpdateStatus(next.ID, models.StatusCompleted)
	require.NoError(t, err)

	next, ok = s.GetNext()
	require.True(t, ok)
	assert.Equal(t, low.ID, next.ID)
}

func TestStore_ChangingPriorityPreservesInsertionOrder(t *testing.T) {
	s := New()
	a := s.AddTodo(models.TodoItemInit{Title: "a", Priority: models.PriorityMedium})
	b := s.AddTodo(models.TodoItemInit{Title: "b", Priority: models.PriorityMedium})

	// Promote b to high; a stays medium. b should now sort first overall,
	// but if both are later promoted to the same bucket, a's earlier
	// insertion must still precede b's.
	_, err := s.UpdatePriority(b.ID, models.PriorityHigh)
	require.NoError(t, err)
	_, err = s.UpdatePriority(b.ID, models.PriorityMedium)
	require.NoError(t, err)

	list := s.List()
	require.Len(t, list, 2)
	assert.Equal(t, a.ID, list[0].ID, "insertion order must survive a round-trip through another priority")
	assert.Equal(t, b.ID, list[1].ID)
}

func TestStore_GetNext_EmptyWhenNoPending(t *testing.T) {
	s := New()
	item := s.AddTodo(models.TodoItemInit{Title: "only", Priority: models.PriorityHigh})
	_, err := s.UpdateStatus(item.ID, models.StatusCompleted)
	require.NoError(t, err)

	_, ok := s.GetNext()
	assert.False(t, ok)
}

func TestStore_CreatePlanReplacesExistingItems(t *testing.T) {
	s := New()
	s.AddTodo(models.TodoItemInit{Title: "stale", Priority: models.PriorityLow})

	created := s.CreatePlan([]models.TodoItemInit{
		{Title: "one", Priority: models.PriorityHigh},
		{Title: "two", Priority: models.PriorityLow},
	})
	require.Len(t, created, 2)
	assert.Len(t, s.List(), 2)
}

func TestStore_UpdateStatus_UnknownIDErrors(t *testing.T) {
	s := New()
	_, err := s.UpdateStatus("nope", models.StatusCompleted)
	require.Error(t, err)
}

func TestStore_Clear(t *testing.T) {
	s := New()
	s.AddTodo(models.TodoItemInit{Title: "x", Priority: models.PriorityHigh})
	s.Clear()
	assert.Empty(t, s.List())
}
