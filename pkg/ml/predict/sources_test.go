package predict

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSourceSpecShapes(t *testing.T) {
	single := Single(newTestSource("only"))
	assert.Equal(t, ShapeSingle, single.Shape())
	assert.Equal(t, 1, single.NumSources())
	assert.Equal(t, "only", single.SourceName(0))

	list := List(newTestSource("a"), newTestSource("b"))
	assert.Equal(t, ShapeList, list.Shape())
	assert.Equal(t, 2, list.NumSources())
	assert.Equal(t, "b", list.SourceName(1))

	named := Named(
		NamedSource{Name: "train", Source: newTestSource("x")},
		NamedSource{Name: "holdout", Source: newTestSource("y")},
	)
	assert.Equal(t, ShapeNamed, named.Shape())
	assert.Equal(t, "train", named.SourceName(0))
	assert.Equal(t, "holdout", named.SourceName(1))
	assert.Equal(t, "y", named.Source(1).Name())
}

func TestSourceSpecNilSources(t *testing.T) {
	require.Panics(t, func() { Single(nil) })
	require.Panics(t, func() { List(newTestSource("a"), nil) })
	require.Panics(t, func() { Named(NamedSource{Name: "x"}) })
}

func TestNamedRejectsDuplicates(t *testing.T) {
	require.Panics(t, func() {
		Named(
			NamedSource{Name: "train", Source: newTestSource("x")},
			NamedSource{Name: "train", Source: newTestSource("y")},
		)
	})
}

func TestSourceShapeString(t *testing.T) {
	assert.Equal(t, "single", ShapeSingle.String())
	assert.Equal(t, "list", ShapeList.String())
	assert.Equal(t, "named", ShapeNamed.String())
	assert.Equal(t, "unknown", SourceShape(99).String())
}
