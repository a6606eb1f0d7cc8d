//go:build integration

package claimintegrationtests

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"

	claimdb "github.com/aussie-warriors/awbot/app/modules/claim/infrastructure/repositories"
	"github.com/aussie-warriors/awbot/integration_tests/testutils"
)

func TestClaimInsertAndLookup(t *testing.T) {
	cleanDB(t)
	ctx := testEnv.Ctx
	repo := claimdb.NewRepository(testEnv.DB)
	gen := testutils.NewTestDataGenerator()

	owner := gen.UserID()
	claim := gen.Claim(owner)
	require.NoError(t, repo.Insert(ctx, nil, claim), "seed %d", gen.Seed())

	got, err := repo.GetByTag(ctx, nil, claim.Tag)
	require.NoError(t, err)
	assert.Equal(t, owner, got.UserID)
	assert.Equal(t, claim.IGN, got.IGN)

	byName, err := repo.FindByIGN(ctx, nil, claim.IGN)
	require.NoError(t, err)
	require.Len(t, byName, 1)
	assert.Equal(t, claim.Tag, byName[0].Tag)

	other := gen.Claim(gen.UserID())
	other.Tag = claim.Tag
	assert.ErrorIs(t, repo.Insert(ctx, nil, other), claimdb.ErrAlreadyClaimed)
}

func TestClaimInsertRollsBackInTx(t *testing.T) {
	cleanDB(t)
	ctx := testEnv.Ctx
	repo := claimdb.NewRepository(testEnv.DB)
	gen := testutils.NewTestDataGenerator()

	existing := gen.Claim(gen.UserID())
	require.NoError(t, repo.Insert(ctx, nil, existing))

	dup := gen.Claim(gen.UserID())
	dup.Tag = existing.Tag
	err := testEnv.DB.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		return repo.Insert(ctx, tx, dup)
	})
	assert.ErrorIs(t, err, claimdb.ErrAlreadyClaimed)

	all, err := repo.ListAll(ctx, nil)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, existing.UserID, all[0].UserID)
}

func TestClaimDeleteAndResolve(t *testing.T) {
	cleanDB(t)
	ctx := testEnv.Ctx
	repo := claimdb.NewRepository(testEnv.DB)
	gen := testutils.NewTestDataGenerator()

	user := gen.UserID()
	a, b := gen.Claim(user), gen.Claim(user)
	require.NoError(t, repo.Insert(ctx, nil, a))
	require.NoError(t, repo.Insert(ctx, nil, b))

	owners, err := repo.ResolveTags(ctx, nil, []string{a.Tag, b.Tag, "#NOTCLAIMED"})
	require.NoError(t, err)
	assert.Equal(t, map[string]int64{a.Tag: user, b.Tag: user}, owners)

	removed, err := repo.Delete(ctx, nil, a.Tag)
	require.NoError(t, err)
	assert.Equal(t, a.Tag, removed.Tag)

	_, err = repo.Delete(ctx, nil, a.Tag)
	assert.ErrorIs(t, err, claimdb.ErrNotFound)

	// the tag is free again once deleted
	reclaim := gen.Claim(gen.UserID())
	reclaim.Tag = a.Tag
	require.NoError(t, repo.Insert(ctx, nil, reclaim))
}

func TestClaimExempt(t *testing.T) {
	cleanDB(t)
	ctx := testEnv.Ctx
	repo := claimdb.NewRepository(testEnv.DB)
	gen := testutils.NewTestDataGenerator()

	c := gen.Claim(gen.UserID())
	require.NoError(t, repo.Insert(ctx, nil, c))
	require.NoError(t, repo.SetExempt(ctx, nil, c.Tag, true))

	exempt, err := repo.ListExempt(ctx, nil)
	require.NoError(t, err)
	require.Len(t, exempt, 1)
	assert.True(t, exempt[0].Exempt)

	assert.ErrorIs(t, repo.SetExempt(ctx, nil, "#MISSING", true), claimdb.ErrNotFound)
}
