package hostapi

import (
	"context"
	"testing"

	"github.com/risor-io/risor/object"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPathAPI_NormalizeCollapsesMixedSeparatorsAndDotSegments(t *testing.T) {
	folders := newTestFolders(t)
	path := asMap(t, PathAPI(folders, nil))
	ctx := context.Background()

	normalize := path["normalize"].(*object.Builtin)
	got := normalize.Call(ctx, object.NewString(`./a//\./../b`))
	s, ok := got.(*object.String)
	require.True(t, ok, "normalize returned %v", got)
	assert.Equal(t, "b", s.Value())
}

func TestPathAPI_JoinParts(t *testing.T) {
	folders := newTestFolders(t)
	path := asMap(t, PathAPI(folders, nil))
	ctx := context.Background()

	join := path["join"].(*object.Builtin)
	got := join.Call(ctx, object.NewString("a"), object.NewString("b"), object.NewString("c"))
	assert.Equal(t, "a/b/c", got.(*object.String).Value())

	parts := path["parts"].(*object.Builtin)
	list, ok := parts.Call(ctx, object.NewString("/a/b/c")).(*object.List)
	require.True(t, ok)
	items := list.Value()
	require.Len(t, items, 3)
	assert.Equal(t, "a", items[0].(*object.String).Value())
	assert.Equal(t, "c", items[2].(*object.String).Value())
}
