package blob

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetJSONRoundTrip(t *testing.T) {
	store := newTestBoltStore(t)
	ctx := context.Background()

	type doc struct {
		Name  string `json:"name"`
		Count int    `json:"count"`
	}
	require.NoError(t, PutJSON(ctx, store, "doc", doc{Name: "cluster1", Count: 3}))

	var got doc
	require.NoError(t, GetJSON(ctx, store, "doc", &got))
	assert.Equal(t, doc{Name: "cluster1", Count: 3}, got)
}

func TestGetJSONMissingKeyPassesThroughNotFound(t *testing.T) {
	store := newTestBoltStore(t)

	var got map[string]any
	err := GetJSON(context.Background(), store, "absent", &got)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestGetJSONMalformedBlob(t *testing.T) {
	store := newTestBoltStore(t)
	ctx := context.Background()
	require.NoError(t, store.Put(ctx, "bad", []byte("{oops")))

	var got map[string]any
	err := GetJSON(ctx, store, "bad", &got)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse bad")
}

func TestPutJSONIndentIsEditable(t *testing.T) {
	store := newTestBoltStore(t)
	ctx := context.Background()

	require.NoError(t, PutJSONIndent(ctx, store, "conditions", map[string]any{"services": []string{"ems"}}))

	data, err := store.Get(ctx, "conditions")
	require.NoError(t, err)
	text := string(data)
	assert.True(t, strings.Contains(text, "\n    "), "stored document should be indented, got %q", text)
}
