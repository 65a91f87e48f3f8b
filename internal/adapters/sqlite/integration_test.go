package sqlite_test

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/verflow/internal/adapters/sqlite"
	"github.com/example/verflow/internal/apperr"
	"github.com/example/verflow/internal/db"
	"github.com/example/verflow/internal/ports/secondary"
)

// TestConcurrentAppendsProduceGaplessNumbers runs several writers against a
// file-backed database. Writers that lose a race see a conflict and retry
// with the fresh head; the ledger must end up numbered 1..N exactly once.
func TestConcurrentAppendsProduceGaplessNumbers(t *testing.T) {
	ctx := context.Background()
	database, err := db.Open(ctx, filepath.Join(t.TempDir(), "verflow.db"))
	require.NoError(t, err)
	defer database.Close()

	versions := sqlite.NewVersionRepository(database)
	branches := sqlite.NewBranchRepository(database)
	require.NoError(t, branches.Create(ctx, &secondary.BranchRecord{ID: "b1", Name: "main", ContentID: "page-1", IsDefault: true}))

	const writers, perWriter = 6, 5
	var wg sync.WaitGroup
	errs := make(chan error, writers)

	for w := 0; w < writers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < perWriter; i++ {
				for attempt := 0; ; attempt++ {
					head, err := branches.GetByName(ctx, "page-1", "main")
					if err != nil {
						errs <- err
						return
					}
					err = versions.Append(ctx, &secondary.VersionAppend{
						Version: &secondary.VersionRecord{
							ID: uuid.NewString(), ContentID: "page-1", Data: `{}`,
							AuthorID: "writer", BranchName: "main", ParentVersionID: head.HeadVersionID,
						},
						ExpectedHeadID: head.HeadVersionID,
					})
					if err == nil {
						break
					}
					if !errors.Is(err, apperr.ErrConflict) || attempt > 200 {
						errs <- err
						return
					}
				}
			}
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	all, err := versions.List(ctx, "page-1", 0, 0)
	require.NoError(t, err)
	require.Len(t, all, writers*perWriter)
	for i, v := range all {
		assert.Equal(t, writers*perWriter-i, v.VersionNumber)
	}

	// Parents chain back without forks.
	for i := 0; i < len(all)-1; i++ {
		assert.Equal(t, all[i+1].ID, all[i].ParentVersionID)
	}
}
