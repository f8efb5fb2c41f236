package todo

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/reactorhq/agent/pkg/models"
)

func TestManagerTool_AddThenGetNext(t *testing.T) {
	store := New()
	tool := NewManagerTool(store)

	_, err := tool.Invoke(context.Background(), json.RawMessage(`{"operation":"add_todo","title":"write tests","priority":"high"}`))
	require.NoError(t, err)

	out, err := tool.Invoke(context.Background(), json.RawMessage(`{"operation":"get_next"}`))
	require.NoError(t, err)
	item, ok := out.(models.TodoItem)
	require.True(t, ok)
	assert.Equal(t, "write tests", item.Title)
}

func TestManagerTool_UnknownOperationErrors(t *testing.T) {
	tool := NewManagerTool(New())
	_, err := tool.Invoke(context.Background(), json.RawMessage(`{"operation":"not_a_real_op"}`))
	require.Error(t, err)
}

func TestManagerTool_ListReturnsAllItems(t *testing.T) {
	store := New()
	tool := NewManagerTool(store)
	_, err := tool.Invoke(context.Background(), json.RawMessage(`{"operation":"add_todo","title":"a","priority":"low"}`))
	require.NoError(t, err)
	_, err = tool.Invoke(context.Background(), json.RawMessage(`{"operation":"add_todo","title":"b","priority":"high"}`))
	require.NoError(t, err)

	out, err := tool.Invoke(context.Background(), json.RawMessage(`{"operation":"list"}`))
	require.NoError(t, err)
	items, ok := out.([]models.TodoItem)
	require.True(t, ok)
	assert.Len(t, items, 2)
	assert.Equal(t, "b", items[0].Title, "high priority sorts first")
}
