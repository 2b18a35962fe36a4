package resource

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vapi/internal/catalog"
	"vapi/internal/docstore"
	"vapi/internal/docstore/memory"
	"vapi/internal/schema"
	"vapi/internal/validation"
)

func resolved(t *testing.T, structure string) validation.Resolution {
	t.Helper()
	entity := &catalog.EntityConfig{Name: "Orders", IsActive: true}
	if structure != "" {
		s, err := schema.Parse([]byte(structure))
		require.NoError(t, err)
		entity.Structure = s
	}
	return validation.Resolution{
		Outcome: validation.Valid,
		Stage:   validation.StageResolved,
		Service: &catalog.ServiceConfig{Name: "Shop", IsActive: true},
		Entity:  entity,
	}
}

func body(t *testing.T, src string) any {
	t.Helper()
	var v any
	require.NoError(t, json.Unmarshal([]byte(src), &v))
	return v
}

func TestGateway_RejectsUnresolved(t *testing.T) {
	g := NewGateway(memory.New())
	ctx := context.Background()
	res := validation.Resolution{Outcome: validation.Invalid, Stage: validation.StageEntity}

	_, err := g.List(ctx, res, nil)
	assert.ErrorIs(t, err, ErrUnresolved)
	_, err = g.GetByID(ctx, res, "x")
	assert.ErrorIs(t, err, ErrUnresolved)
	_, err = g.Create(ctx, res, map[string]any{})
	assert.ErrorIs(t, err, ErrUnresolved)
	_, err = g.Update(ctx, res, "x", map[string]any{})
	assert.ErrorIs(t, err, ErrUnresolved)
	_, err = g.Delete(ctx, res, "x")
	assert.ErrorIs(t, err, ErrUnresolved)
}

func TestGateway_CreateGetRoundTrip(t *testing.T) {
	store := memory.New()
	g := NewGateway(store)
	ctx := context.Background()
	res := resolved(t, "")

	input := body(t, `{"customer":"ada","lines":[{"sku":"A","qty":2}],"paid":false,"note":null}`)
	created, err := g.Create(ctx, res, input)
	require.NoError(t, err)

	id, ok := created[docstore.IDField].(string)
	require.True(t, ok)
	require.NotEmpty(t, id)

	got, err := g.GetByID(ctx, res, id)
	require.NoError(t, err)

	want := map[string]any{docstore.IDField: id}
	for k, v := range input.(map[string]any) {
		want[k] = v
	}
	assert.Equal(t, want, map[string]any(got))

	names, err := store.ListCollections(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"Shop_Orders"}, names)
}

func TestGateway_ListBeforeProvisioning(t *testing.T) {
	g := NewGateway(memory.New())
	docs, err := g.List(context.Background(), resolved(t, ""), nil)
	require.NoError(t, err)
	assert.Empty(t, docs)
}

func TestGateway_WritesAreValidated(t *testing.T) {
	g := NewGateway(memory.New())
	ctx := context.Background()
	res := resolved(t, `{"type":"object","properties":{"price":{"type":"number","minimum":0}},"required":["price"]}`)

	_, err := g.Create(ctx, res, body(t, `{"price":-5}`))
	var vf *ValidationFailedError
	require.True(t, errors.As(err, &vf))
	assert.Equal(t, "Shop_Orders", vf.ResourceID)
	require.Len(t, vf.Violations, 1)
	assert.Equal(t, "price", vf.Violations[0].Path)

	docs, err := g.List(ctx, res, nil)
	require.NoError(t, err)
	assert.Empty(t, docs, "rejected documents are never stored")

	created, err := g.Create(ctx, res, body(t, `{"price":5}`))
	require.NoError(t, err)
	id := created[docstore.IDField].(string)

	_, err = g.Update(ctx, res, id, body(t, `{}`))
	require.True(t, errors.As(err, &vf))

	got, err := g.GetByID(ctx, res, id)
	require.NoError(t, err)
	assert.Equal(t, 5.0, got["price"])
}

func TestGateway_RejectsNonObjectDocuments(t *testing.T) {
	g := NewGateway(memory.New())
	_, err := g.Create(context.Background(), resolved(t, ""), body(t, `[1,2,3]`))
	var vf *ValidationFailedError
	require.True(t, errors.As(err, &vf))
	assert.Contains(t, vf.Error(), "JSON object")
}

func TestGateway_UpdateAndDelete(t *testing.T) {
	g := NewGateway(memory.New())
	ctx := context.Background()
	res := resolved(t, "")

	updated, err := g.Update(ctx, res, "missing", map[string]any{"a": 1.0})
	require.NoError(t, err)
	assert.Nil(t, updated)

	created, err := g.Create(ctx, res, map[string]any{"a": 1.0})
	require.NoError(t, err)
	id := created[docstore.IDField].(string)

	updated, err = g.Update(ctx, res, id, map[string]any{"a": 2.0, "id": "other"})
	require.NoError(t, err)
	assert.Equal(t, docstore.Document{"id": id, "a": 2.0}, updated)

	deleted, err := g.Delete(ctx, res, id)
	require.NoError(t, err)
	assert.True(t, deleted)

	deleted, err = g.Delete(ctx, res, id)
	require.NoError(t, err)
	assert.False(t, deleted)

	got, err := g.GetByID(ctx, res, id)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestGateway_ListFilter(t *testing.T) {
	g := NewGateway(memory.New())
	ctx := context.Background()
	res := resolved(t, "")

	for _, status := range []string{"open", "closed", "open"} {
		_, err := g.Create(ctx, res, map[string]any{"status": status})
		require.NoError(t, err)
	}

	docs, err := g.List(ctx, res, map[string]any{"status": "open"})
	require.NoError(t, err)
	assert.Len(t, docs, 2)
}

func TestGateway_CancelledCreateWritesNothing(t *testing.T) {
	store := memory.New()
	g := NewGateway(store)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := g.Create(ctx, resolved(t, ""), map[string]any{"a": 1.0})
	assert.ErrorIs(t, err, context.Canceled)

	names, err := store.ListCollections(context.Background())
	require.NoError(t, err)
	assert.Empty(t, names)
}
