//go:build integration

package warroleintegrationtests

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"

	warroledb "github.com/aussie-warriors/awbot/app/modules/warrole/infrastructure/repositories"
	"github.com/aussie-warriors/awbot/integration_tests/testutils"
)

const clanTag = "#2PP"

func TestRosterReplaceBumpsVersion(t *testing.T) {
	cleanDB(t)
	ctx := testEnv.Ctx
	repo := warroledb.NewRepository(testEnv.DB)
	gen := testutils.NewTestDataGenerator()

	empty, err := repo.LoadRoster(ctx, nil, clanTag)
	require.NoError(t, err)
	assert.Zero(t, empty.Version)
	assert.Empty(t, empty.Entries)

	entries := []warroledb.LastWar{
		{Tag: gen.PlayerTag(), UserID: gen.UserID()},
		{Tag: gen.PlayerTag(), UserID: gen.UserID()},
	}
	version, err := repo.ReplaceRoster(ctx, nil, clanTag, 0, entries)
	require.NoError(t, err)
	assert.Equal(t, int64(1), version)

	loaded, err := repo.LoadRoster(ctx, nil, clanTag)
	require.NoError(t, err)
	assert.Equal(t, int64(1), loaded.Version)
	assert.ElementsMatch(t, []string{entries[0].Tag, entries[1].Tag}, loaded.Tags())
}

func TestRosterStaleVersionConflicts(t *testing.T) {
	cleanDB(t)
	ctx := testEnv.Ctx
	repo := warroledb.NewRepository(testEnv.DB)
	gen := testutils.NewTestDataGenerator()

	first := []warroledb.LastWar{{Tag: gen.PlayerTag(), UserID: gen.UserID()}}
	_, err := repo.ReplaceRoster(ctx, nil, clanTag, 0, first)
	require.NoError(t, err)

	// a manual edit lands between read and write
	require.NoError(t, repo.AddEntry(ctx, nil, clanTag, warroledb.LastWar{Tag: gen.PlayerTag(), UserID: gen.UserID()}))

	err = testEnv.DB.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		_, err := repo.ReplaceRoster(ctx, tx, clanTag, 1, nil)
		return err
	})
	assert.ErrorIs(t, err, warroledb.ErrRosterConflict)

	loaded, err := repo.LoadRoster(ctx, nil, clanTag)
	require.NoError(t, err)
	assert.Equal(t, int64(2), loaded.Version)
	assert.Len(t, loaded.Entries, 2)
}

func TestRosterConcurrentReplaceOneWins(t *testing.T) {
	cleanDB(t)
	ctx := testEnv.Ctx
	repo := warroledb.NewRepository(testEnv.DB)
	gen := testutils.NewTestDataGenerator()

	const writers = 5
	errs := make([]error, writers)
	var wg sync.WaitGroup
	for i := range writers {
		entry := warroledb.LastWar{Tag: gen.PlayerTag(), UserID: gen.UserID()}
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs[i] = testEnv.DB.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
				_, err := repo.ReplaceRoster(ctx, tx, clanTag, 0, []warroledb.LastWar{entry})
				return err
			})
		}()
	}
	wg.Wait()

	wins := 0
	for _, err := range errs {
		if err == nil {
			wins++
			continue
		}
		assert.ErrorIs(t, err, warroledb.ErrRosterConflict)
	}
	assert.Equal(t, 1, wins)

	loaded, err := repo.LoadRoster(ctx, nil, clanTag)
	require.NoError(t, err)
	assert.Equal(t, int64(1), loaded.Version)
	assert.Len(t, loaded.Entries, 1)
}

func TestRosterRemoveEntry(t *testing.T) {
	cleanDB(t)
	ctx := testEnv.Ctx
	repo := warroledb.NewRepository(testEnv.DB)
	gen := testutils.NewTestDataGenerator()

	entry := warroledb.LastWar{Tag: gen.PlayerTag(), UserID: gen.UserID()}
	require.NoError(t, repo.AddEntry(ctx, nil, clanTag, entry))

	removed, err := repo.RemoveEntry(ctx, nil, clanTag, entry.Tag)
	require.NoError(t, err)
	assert.Equal(t, entry.UserID, removed.UserID)

	_, err = repo.RemoveEntry(ctx, nil, clanTag, entry.Tag)
	assert.ErrorIs(t, err, warroledb.ErrNotFound)
}
