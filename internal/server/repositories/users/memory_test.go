package users

import (
	"context"
	"testing"
	"time"

	"github.com/dmitrijs2005/secdrive/internal/common"
	"github.com/dmitrijs2005/secdrive/internal/server/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryRepository(t *testing.T) {
	ctx := context.Background()
	r := NewMemoryRepository()
	later := created.Add(time.Hour)
	r.now = func() time.Time { return later }

	require.NoError(t, r.Create(ctx, alice()))
	assert.ErrorIs(t, r.Create(ctx, alice()), common.ErrAlreadyExists)

	last := "Hargreaves"
	require.NoError(t, r.Update(ctx, "u1", models.ProfileUpdate{LastName: &last}))

	got, err := r.Get(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, "Alice", got.FirstName)
	assert.Equal(t, "a@x.io", got.Email)
	assert.Equal(t, "Hargreaves", got.LastName)
	assert.Equal(t, later, got.UpdatedAt)
	assert.Equal(t, created, got.CreatedAt)

	_, err = r.Get(ctx, "nobody")
	assert.ErrorIs(t, err, common.ErrorNotFound)
	assert.ErrorIs(t, r.Update(ctx, "nobody", models.ProfileUpdate{LastName: &last}), common.ErrorNotFound)
}
