package engine

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUUIDv7Generator_ProducesVersion7(t *testing.T) {
	var g UUIDv7Generator

	a, b := g.Generate(), g.Generate()
	assert.NotEqual(t, a, b)

	parsed, err := uuid.Parse(a)
	require.NoError(t, err)
	assert.Equal(t, uuid.Version(7), parsed.Version())
}

func TestFixedGenerator_ReturnsInOrderThenPanics(t *testing.T) {
	g := NewFixedGenerator("inv-1", "inv-2")

	assert.Equal(t, "inv-1", g.Generate())
	assert.Equal(t, "inv-2", g.Generate())
	assert.Panics(t, func() { g.Generate() })
}
