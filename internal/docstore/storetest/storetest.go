// Package storetest holds the behavioural suite every docstore.Store
// backend must pass.
package storetest

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/suite"

	"github.com/trexinity/another/internal/docstore"
)

// Suite runs the docstore contract against the store returned by NewStore.
// NewStore is called before every test and must return an empty store.
type Suite struct {
	suite.Suite
	NewStore func() docstore.Store

	store docstore.Store
	ctx   context.Context
}

func (s *Suite) SetupTest() {
	s.ctx = context.Background()
	s.store = s.NewStore()
}

func (s *Suite) TestGetMissing() {
	snap, err := s.store.Get(s.ctx, "movies/none")
	s.Require().NoError(err)
	s.False(snap.Exists)
	s.Zero(snap.Version)
	s.Equal("none", snap.Key())
}

func (s *Suite) TestSetThenGet() {
	// Arrange
	s.Require().NoError(s.store.Set(s.ctx, "movies/a", []byte(`{"title":"A"}`)))

	// Act
	snap, err := s.store.Get(s.ctx, "movies/a")

	// Assert
	s.Require().NoError(err)
	s.True(snap.Exists)
	s.NotZero(snap.Version)
	s.JSONEq(`{"title":"A"}`, string(snap.Value))
}

func (s *Suite) TestSetBumpsVersion() {
	s.Require().NoError(s.store.Set(s.ctx, "movies/a", []byte(`1`)))
	first, err := s.store.Get(s.ctx, "movies/a")
	s.Require().NoError(err)

	s.Require().NoError(s.store.Set(s.ctx, "movies/a", []byte(`2`)))
	second, err := s.store.Get(s.ctx, "movies/a")
	s.Require().NoError(err)

	s.Greater(second.Version, first.Version)
}

func (s *Suite) TestChildrenDirectOnlyAndOrdered() {
	s.Require().NoError(s.store.Set(s.ctx, "movies/b", []byte(`{}`)))
	s.Require().NoError(s.store.Set(s.ctx, "movies/a", []byte(`{}`)))
	s.Require().NoError(s.store.Set(s.ctx, "movies/a/episodes/1", []byte(`{}`)))
	s.Require().NoError(s.store.Set(s.ctx, "users/u1", []byte(`{}`)))

	kids, err := s.store.Children(s.ctx, "movies")
	s.Require().NoError(err)
	s.Require().Len(kids, 2)
	s.Equal("a", kids[0].Key())
	s.Equal("b", kids[1].Key())
}

func (s *Suite) TestChildrenOfMissingPathIsEmpty() {
	kids, err := s.store.Children(s.ctx, "movies")
	s.Require().NoError(err)
	s.Empty(kids)
}

func (s *Suite) TestPushAssignsUniqueIDs() {
	seen := map[string]bool{}
	for i := 0; i < 5; i++ {
		id, err := s.store.Push(s.ctx, "movies", []byte(`{}`))
		s.Require().NoError(err)
		s.NotEmpty(id)
		s.False(seen[id], "id reused: %s", id)
		seen[id] = true
	}

	kids, err := s.store.Children(s.ctx, "movies")
	s.Require().NoError(err)
	s.Len(kids, 5)
}

func (s *Suite) TestDeleteRemovesSubtree() {
	s.Require().NoError(s.store.Set(s.ctx, "users/u1", []byte(`{}`)))
	s.Require().NoError(s.store.Set(s.ctx, "users/u1/watchProgress/m1", []byte(`{}`)))
	s.Require().NoError(s.store.Set(s.ctx, "users/u10", []byte(`{}`)))

	s.Require().NoError(s.store.Delete(s.ctx, "users/u1"))

	gone, err := s.store.Get(s.ctx, "users/u1/watchProgress/m1")
	s.Require().NoError(err)
	s.False(gone.Exists)

	sibling, err := s.store.Get(s.ctx, "users/u10")
	s.Require().NoError(err)
	s.True(sibling.Exists, "delete must not touch paths that merely share a prefix")
}

func (s *Suite) TestCompareAndSwapCreate() {
	v, err := s.store.CompareAndSwap(s.ctx, "movies/a", 0, []byte(`1`))
	s.Require().NoError(err)
	s.NotZero(v)

	_, err = s.store.CompareAndSwap(s.ctx, "movies/a", 0, []byte(`2`))
	s.ErrorIs(err, docstore.ErrVersionConflict)
}

func (s *Suite) TestCompareAndSwapStaleVersion() {
	v1, err := s.store.CompareAndSwap(s.ctx, "movies/a", 0, []byte(`1`))
	s.Require().NoError(err)

	v2, err := s.store.CompareAndSwap(s.ctx, "movies/a", v1, []byte(`2`))
	s.Require().NoError(err)
	s.NotEqual(v1, v2)

	_, err = s.store.CompareAndSwap(s.ctx, "movies/a", v1, []byte(`3`))
	s.ErrorIs(err, docstore.ErrVersionConflict)

	snap, err := s.store.Get(s.ctx, "movies/a")
	s.Require().NoError(err)
	s.Equal("2", string(snap.Value))
	s.Equal(v2, snap.Version)
}

// TestCompareAndSwapAfterDeleteRecreate checks that a version read before
// a delete cannot commit against the recreated document.
func (s *Suite) TestCompareAndSwapAfterDeleteRecreate() {
	// Arrange
	s.Require().NoError(s.store.Set(s.ctx, "users/u1/watchlist", []byte(`["a"]`)))
	stale, err := s.store.Get(s.ctx, "users/u1/watchlist")
	s.Require().NoError(err)

	s.Require().NoError(s.store.Delete(s.ctx, "users/u1/watchlist"))
	recreated, err := s.store.CompareAndSwap(s.ctx, "users/u1/watchlist", 0, []byte(`["b"]`))
	s.Require().NoError(err)

	// Act
	_, err = s.store.CompareAndSwap(s.ctx, "users/u1/watchlist", stale.Version, []byte(`["a","c"]`))

	// Assert
	s.ErrorIs(err, docstore.ErrVersionConflict)
	s.NotEqual(stale.Version, recreated)

	snap, err := s.store.Get(s.ctx, "users/u1/watchlist")
	s.Require().NoError(err)
	s.JSONEq(`["b"]`, string(snap.Value))
	s.Equal(recreated, snap.Version)
}

func (s *Suite) TestInvalidPath() {
	_, err := s.store.Get(s.ctx, "movies//a")
	s.ErrorIs(err, docstore.ErrInvalidPath)

	err = s.store.Set(s.ctx, "movies/a.b", []byte(`{}`))
	s.ErrorIs(err, docstore.ErrInvalidPath)
}

// TestConcurrentTransactionsConserveCount checks that N concurrent
// increments through Transact commit exactly N times or report failure.
func (s *Suite) TestConcurrentTransactionsConserveCount() {
	const workers = 8
	var wg sync.WaitGroup
	var committed atomic.Int64

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := docstore.Transact(s.ctx, s.store, "counters/views", func(cur docstore.Snapshot) ([]byte, error) {
				var n int64
				if err := cur.Decode(&n); err != nil {
					return nil, err
				}
				return json.Marshal(n + 1)
			}, docstore.WithAttempts(50), docstore.WithBaseDelay(0))
			if err == nil {
				committed.Add(1)
			}
		}()
	}
	wg.Wait()

	snap, err := s.store.Get(s.ctx, "counters/views")
	s.Require().NoError(err)
	var n int64
	s.Require().NoError(snap.Decode(&n))
	s.Equal(committed.Load(), n)
}
