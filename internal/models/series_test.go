package models

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSeriesUnmarshalKeepsOrder(t *testing.T) {
	var s Series
	err := json.Unmarshal([]byte(`{"1/22/20": 1, "1/23/20": 3, "10/1/20": 7, "2/1/20": 9}`), &s)
	require.NoError(t, err)

	assert.Equal(t, []string{"1/22/20", "1/23/20", "10/1/20", "2/1/20"}, s.Dates)
	assert.Equal(t, []int64{1, 3, 7, 9}, s.Values)

	last, ok := s.Last()
	assert.True(t, ok)
	assert.Equal(t, int64(9), last)
}

func TestSeriesUnmarshalNullAndFractions(t *testing.T) {
	var s Series
	err := json.Unmarshal([]byte(`{"a": null, "b": 2.9, "c": 1e3}`), &s)
	require.NoError(t, err)
	assert.Equal(t, []int64{0, 2, 1000}, s.Values)
}

func TestSeriesUnmarshalDuplicateKey(t *testing.T) {
	var s Series
	err := json.Unmarshal([]byte(`{"a": 1, "b": 2, "a": 3}`), &s)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, s.Dates)
	assert.Equal(t, []int64{3, 2}, s.Values)
}

func TestSeriesUnmarshalEmptyObject(t *testing.T) {
	var s Series
	require.NoError(t, json.Unmarshal([]byte(`{}`), &s))
	assert.Equal(t, 0, s.Len())
	_, ok := s.Last()
	assert.False(t, ok)
}

func TestSeriesUnmarshalRejectsNonObjects(t *testing.T) {
	var s Series
	assert.Error(t, json.Unmarshal([]byte(`[1,2,3]`), &s))
	assert.Error(t, json.Unmarshal([]byte(`{"a": "ten"}`), &s))
	assert.Error(t, json.Unmarshal([]byte(`{"a": {"b": 1}}`), &s))
}

func TestSeriesMarshalKeepsOrder(t *testing.T) {
	s := Series{Dates: []string{"z", "a"}, Values: []int64{1, 2}}
	b, err := json.Marshal(s)
	require.NoError(t, err)
	assert.Equal(t, `{"z":1,"a":2}`, string(b))
}
