package finish

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTool_ReturnsResult(t *testing.T) {
	tool := New()
	out, err := tool.Invoke(context.Background(), json.RawMessage(`{"result":"all done"}`))
	require.NoError(t, err)
	assert.Equal(t, "all done", out)
}

func TestTool_MissingResultErrors(t *testing.T) {
	tool := New()
	_, err := tool.Invoke(context.Background(), json.RawMessage(`{"result":""}`))
	assert.Error(t, err)
}
