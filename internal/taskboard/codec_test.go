package taskboard_test

import (
	"context"
	"testing"

	"studiosync/internal/models/board"
	"studiosync/internal/taskboard"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCodec_RoundTrip(t *testing.T) {
	b := taskboard.New()
	_, err := b.Append(context.Background(), board.ColumnReview, "Order Strings",
		board.WithPriority(board.PriorityHigh), board.WithAssignee("Sam"))
	require.NoError(t, err)

	data, err := taskboard.Marshal(b.Columns())
	require.NoError(t, err)

	decoded, err := taskboard.Unmarshal(data)
	require.NoError(t, err)
	assert.Equal(t, b.Columns(), decoded)
}

func TestCodec_EmptyColumnsSerializeAsLists(t *testing.T) {
	cols := board.DefaultColumns()
	cols[2].Tasks = nil

	data, err := taskboard.Marshal(cols)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"tasks":[]`)
	assert.Nil(t, cols[2].Tasks)
}

func TestCodec_Malformed(t *testing.T) {
	_, err := taskboard.Unmarshal([]byte(`[{`))
	assert.ErrorIs(t, err, taskboard.ErrMalformed)

	_, err = taskboard.Unmarshal([]byte(`[]`))
	assert.ErrorIs(t, err, board.ErrInvalidShape)
}
