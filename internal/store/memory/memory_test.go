package memory

import (
	"aichat-relay/internal/store"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStore_GetSet(t *testing.T) {
	ctx := context.Background()
	s := New()

	_, err := s.Get(ctx, store.KeyModel)
	assert.ErrorIs(t, err, store.ErrNotFound)

	require.NoError(t, s.Set(ctx, store.KeyModel, "a"))
	require.NoError(t, s.Set(ctx, store.KeyModel, "b"))

	v, err := s.Get(ctx, store.KeyModel)
	require.NoError(t, err)
	assert.Equal(t, "b", v)
	assert.NoError(t, s.Close())
}
