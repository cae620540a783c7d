package calltree

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseValidDocument(t *testing.T) {
	raw := []byte(`{
		"call_tree": {
			"react_aggregator": [
				{
					"id": "42",
					"actions": [
						{"name": "find", "start_time": 100, "stop_time": 140,
						 "actions": [{"name": "lookup", "start_time": 110, "stop_time": 130}]}
					]
				},
				{"id": "43", "actions": []}
			]
		}
	}`)

	trees, err := Parse(raw)
	require.NoError(t, err)
	require.Len(t, trees, 2)

	assert.Equal(t, "42", trees[0].ID)
	require.Len(t, trees[0].Actions, 1)
	assert.Equal(t, "find", trees[0].Actions[0].Name)
	assert.Equal(t, 100.0, trees[0].Actions[0].StartTime)
	assert.Equal(t, 140.0, trees[0].Actions[0].StopTime)
	require.Len(t, trees[0].Actions[0].Actions, 1)
	assert.Equal(t, "lookup", trees[0].Actions[0].Actions[0].Name)

	assert.Equal(t, "43", trees[1].ID)
	assert.Empty(t, trees[1].Actions)
}

func TestParseEmptyAggregatorList(t *testing.T) {
	trees, err := Parse([]byte(`{"call_tree": {"react_aggregator": []}}`))
	require.NoError(t, err)
	assert.Empty(t, trees)
}

func TestParseErrors(t *testing.T) {
	cases := []struct {
		name string
		raw  string
	}{
		{"invalid JSON", `{"call_tree": `},
		{"not an object", `[1, 2, 3]`},
		{"missing call_tree", `{"other": {}}`},
		{"call_tree wrong type", `{"call_tree": 7}`},
		{"missing react_aggregator", `{"call_tree": {}}`},
		{"react_aggregator wrong type", `{"call_tree": {"react_aggregator": {}}}`},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			trees, err := Parse([]byte(tc.raw))
			assert.Nil(t, trees)
			require.Error(t, err)

			var perr *ParseError
			assert.True(t, errors.As(err, &perr), "expected *ParseError, got %T", err)
		})
	}
}
