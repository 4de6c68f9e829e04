package campaign

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/foxzi/leadmail/internal/models"
	"github.com/foxzi/leadmail/internal/store/memstore"
)

func TestResolve(t *testing.T) {
	ctx := context.Background()
	s := memstore.New()

	var ids []string
	for _, e := range []string{"first@example.com", "second@example.com", "third@example.com"} {
		l := &models.Lead{Email: e}
		require.NoError(t, s.Leads().Create(ctx, l))
		ids = append(ids, l.ID)
	}

	t.Run("all leads in insertion order", func(t *testing.T) {
		targets, err := Resolve(ctx, s.Leads(), All())
		require.NoError(t, err)
		require.Len(t, targets, 3)
		assert.Equal(t, "first@example.com", targets[0].Lead.Email)
		assert.Equal(t, "second@example.com", targets[1].Lead.Email)
		assert.Equal(t, "third@example.com", targets[2].Lead.Email)
	})

	t.Run("explicit ids keep given order", func(t *testing.T) {
		targets, err := Resolve(ctx, s.Leads(), Selector{LeadIDs: []string{ids[2], ids[0]}})
		require.NoError(t, err)
		require.Len(t, targets, 2)
		assert.Equal(t, "third@example.com", targets[0].Lead.Email)
		assert.Equal(t, "first@example.com", targets[1].Lead.Email)
	})

	t.Run("unknown id is kept without lead", func(t *testing.T) {
		targets, err := Resolve(ctx, s.Leads(), Selector{LeadIDs: []string{"ghost", ids[1]}})
		require.NoError(t, err)
		require.Len(t, targets, 2)
		assert.Equal(t, "ghost", targets[0].LeadID)
		assert.Nil(t, targets[0].Lead)
		assert.NotNil(t, targets[1].Lead)
	})

	t.Run("empty store", func(t *testing.T) {
		targets, err := Resolve(ctx, memstore.New().Leads(), All())
		require.NoError(t, err)
		assert.Empty(t, targets)
	})
}
