package memory

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vapi/internal/docstore"
)

func TestStore_MissingCollectionReadsAsEmpty(t *testing.T) {
	s := New()
	ctx := context.Background()

	docs, err := s.Find(ctx, "Shop_Orders", nil)
	require.NoError(t, err)
	assert.NotNil(t, docs)
	assert.Empty(t, docs)

	doc, err := s.FindByID(ctx, "Shop_Orders", "x")
	require.NoError(t, err)
	assert.Nil(t, doc)

	replaced, err := s.Replace(ctx, "Shop_Orders", "x", docstore.Document{"a": 1.0})
	require.NoError(t, err)
	assert.Nil(t, replaced)

	deleted, err := s.Delete(ctx, "Shop_Orders", "x")
	require.NoError(t, err)
	assert.False(t, deleted)

	names, err := s.ListCollections(ctx)
	require.NoError(t, err)
	assert.Empty(t, names)
}

func TestStore_CRUD(t *testing.T) {
	s := New()
	ctx := context.Background()

	input := docstore.Document{"price": 10.5, "tags": []any{"a", "b"}, "meta": map[string]any{"n": 1.0}, "id": "ignored"}
	created, err := s.Insert(ctx, "Shop_Orders", input)
	require.NoError(t, err)
	id, ok := created[docstore.IDField].(string)
	require.True(t, ok)
	assert.NotEqual(t, "ignored", id)
	assert.Equal(t, "ignored", input["id"], "input is not mutated")

	got, err := s.FindByID(ctx, "Shop_Orders", id)
	require.NoError(t, err)
	assert.Equal(t, docstore.Document{"id": id, "price": 10.5, "tags": []any{"a", "b"}, "meta": map[string]any{"n": 1.0}}, got)

	got["tags"].([]any)[0] = "mutated"
	again, err := s.FindByID(ctx, "Shop_Orders", id)
	require.NoError(t, err)
	assert.Equal(t, "a", again["tags"].([]any)[0])

	replaced, err := s.Replace(ctx, "Shop_Orders", id, docstore.Document{"price": 3.0})
	require.NoError(t, err)
	assert.Equal(t, docstore.Document{"id": id, "price": 3.0}, replaced)

	deleted, err := s.Delete(ctx, "Shop_Orders", id)
	require.NoError(t, err)
	assert.True(t, deleted)

	got, err = s.FindByID(ctx, "Shop_Orders", id)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestStore_FindFilter(t *testing.T) {
	s := New()
	ctx := context.Background()

	for _, doc := range []docstore.Document{
		{"status": "open", "qty": 1.0},
		{"status": "closed", "qty": 2.0},
		{"status": "open", "qty": 2.0},
	} {
		_, err := s.Insert(ctx, "c", doc)
		require.NoError(t, err)
	}

	tests := []struct {
		name   string
		filter map[string]any
		want   int
	}{
		{"no filter", nil, 3},
		{"string field", map[string]any{"status": "open"}, 2},
		{"numeric across types", map[string]any{"qty": 2}, 2},
		{"conjunction", map[string]any{"status": "open", "qty": 2.0}, 1},
		{"missing field", map[string]any{"other": "x"}, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			docs, err := s.Find(ctx, "c", tt.filter)
			require.NoError(t, err)
			assert.Len(t, docs, tt.want)
		})
	}

	docs, err := s.Find(ctx, "c", nil)
	require.NoError(t, err)
	assert.Equal(t, "open", docs[0]["status"], "insertion order is kept")
	assert.Equal(t, 1.0, docs[0]["qty"])
}

func TestStore_CollectionLifecycle(t *testing.T) {
	s := New()
	ctx := context.Background()

	created, err := s.EnsureCollection(ctx, "Shop_Orders")
	require.NoError(t, err)
	assert.True(t, created)
	created, err = s.EnsureCollection(ctx, "Shop_Orders")
	require.NoError(t, err)
	assert.False(t, created)

	doc, err := s.Insert(ctx, "Shop_Orders", docstore.Document{"n": 1.0})
	require.NoError(t, err)

	require.NoError(t, s.RenameCollection(ctx, "Shop_Orders", "Store_Orders"))
	assert.ErrorIs(t, s.RenameCollection(ctx, "Shop_Orders", "X"), docstore.ErrNamespaceNotFound)

	_, err = s.EnsureCollection(ctx, "Other")
	require.NoError(t, err)
	assert.ErrorIs(t, s.RenameCollection(ctx, "Store_Orders", "Other"), docstore.ErrNamespaceExists)

	moved, err := s.FindByID(ctx, "Store_Orders", doc["id"].(string))
	require.NoError(t, err)
	assert.Equal(t, doc, moved)

	require.NoError(t, s.DropCollection(ctx, "Other"))
	require.NoError(t, s.DropCollection(ctx, "Other"))

	names, err := s.ListCollections(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"Store_Orders"}, names)
}

func TestStore_MergeCollection(t *testing.T) {
	s := New()
	ctx := context.Background()

	old, err := s.Insert(ctx, "Shop_Orders", docstore.Document{"n": 1.0})
	require.NoError(t, err)
	fresh, err := s.Insert(ctx, "Store_Orders", docstore.Document{"n": 2.0})
	require.NoError(t, err)

	n, err := s.MergeCollection(ctx, "Shop_Orders", "Store_Orders")
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	names, err := s.ListCollections(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"Store_Orders"}, names)

	docs, err := s.Find(ctx, "Store_Orders", nil)
	require.NoError(t, err)
	assert.Equal(t, []docstore.Document{fresh, old}, docs)

	got, err := s.FindByID(ctx, "Store_Orders", old[docstore.IDField].(string))
	require.NoError(t, err)
	assert.Equal(t, old, got, "identifiers survive the merge")

	_, err = s.MergeCollection(ctx, "Shop_Orders", "Store_Orders")
	assert.ErrorIs(t, err, docstore.ErrNamespaceNotFound)
}

func TestStore_CancelledContext(t *testing.T) {
	s := New()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := s.Insert(ctx, "c", docstore.Document{})
	assert.ErrorIs(t, err, context.Canceled)

	names, err := s.ListCollections(context.Background())
	require.NoError(t, err)
	assert.Empty(t, names, "a cancelled insert must not provision anything")
}

func TestStore_ConcurrentInserts(t *testing.T) {
	s := New()
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			_, err := s.Insert(ctx, "c", docstore.Document{"n": float64(n)})
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()

	docs, err := s.Find(ctx, "c", nil)
	require.NoError(t, err)
	assert.Len(t, docs, 50)
}
