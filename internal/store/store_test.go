package store

import (
	"errors"
	"fmt"
	"os"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/mesh-intelligence/hbnb/internal/jsonl"
	"github.com/mesh-intelligence/hbnb/internal/sqlstore"
	"github.com/mesh-intelligence/hbnb/pkg/types"
)

func TestMain(m *testing.M) {
	types.PasswordCost = bcrypt.MinCost
	os.Exit(m.Run())
}

// memBackend keeps the last flushed snapshot in memory and can be told to
// fail flushes.
type memBackend struct {
	mu       sync.Mutex
	snap     *types.Snapshot
	flushErr error
	flushes  int
	closed   bool
}

func (b *memBackend) Load() (*types.Snapshot, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.snap == nil {
		return &types.Snapshot{}, nil
	}
	return b.snap, nil
}

func (b *memBackend) Flush(snap *types.Snapshot) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.flushErr != nil {
		return b.flushErr
	}
	b.snap = snap
	b.flushes++
	return nil
}

func (b *memBackend) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.closed = true
	return nil
}

func openMem(t *testing.T, opts ...Option) (*Store, *memBackend) {
	t.Helper()
	b := &memBackend{}
	s := NewStore(b, opts...)
	require.NoError(t, s.Open())
	t.Cleanup(func() { s.Close() })
	return s, b
}

func mustCreate(t *testing.T, s *Store, k types.Kind, attrs map[string]any) string {
	t.Helper()
	e, err := s.Create(k, attrs)
	require.NoError(t, err)
	return e.Meta().ID
}

// fixture is a small connected graph: one of each kind, the place linked to
// the amenity.
type fixture struct {
	state, city, user, place, review, amenity string
}

func seed(t *testing.T, s *Store) fixture {
	t.Helper()
	var f fixture
	f.state = mustCreate(t, s, types.KindState, map[string]any{"name": "California"})
	f.city = mustCreate(t, s, types.KindCity, map[string]any{"name": "San Francisco", "state_id": f.state})
	f.user = mustCreate(t, s, types.KindUser, map[string]any{"email": "betty@hbnb.io", "password": "pwd"})
	f.place = mustCreate(t, s, types.KindPlace, map[string]any{"name": "Loft", "city_id": f.city, "user_id": f.user, "number_rooms": 2.0})
	f.review = mustCreate(t, s, types.KindReview, map[string]any{"text": "Great", "user_id": f.user, "place_id": f.place})
	f.amenity = mustCreate(t, s, types.KindAmenity, map[string]any{"name": "Wifi"})
	_, err := s.AddAmenity(f.place, f.amenity)
	require.NoError(t, err)
	return f
}

func TestOpen_Lifecycle(t *testing.T) {
	b := &memBackend{}
	s := NewStore(b)

	st, err := types.FromAttrs(types.KindState, map[string]any{"name": "Ohio"})
	require.NoError(t, err)
	assert.ErrorIs(t, s.New(st), types.ErrStoreClosed)
	assert.ErrorIs(t, s.Save(), types.ErrStoreClosed)
	_, ok := s.Get(types.KindState, st.Meta().ID)
	assert.False(t, ok)

	require.NoError(t, s.Open())
	assert.ErrorIs(t, s.Open(), types.ErrAlreadyOpen)
	assert.Equal(t, 0, s.Count(""))

	require.NoError(t, s.New(st))
	require.NoError(t, s.Close())
	assert.True(t, b.closed)
	assert.Equal(t, 1, b.flushes, "close performs a final save")
	require.NoError(t, s.Close(), "close is idempotent")

	_, err = s.Create(types.KindState, map[string]any{"name": "Utah"})
	assert.ErrorIs(t, err, types.ErrStoreClosed)
}

func TestNew_GetReturnsCopy(t *testing.T) {
	s, _ := openMem(t)

	e, err := types.FromAttrs(types.KindState, map[string]any{"name": "Nevada"})
	require.NoError(t, err)
	require.NoError(t, s.New(e))

	got, ok := s.Get(types.KindState, e.Meta().ID)
	require.True(t, ok)
	assert.Equal(t, e, got)

	got.(*types.State).Name = "Changed"
	e.(*types.State).Name = "Changed too"
	again, _ := s.Get(types.KindState, e.Meta().ID)
	assert.Equal(t, "Nevada", again.(*types.State).Name)
}

func TestNew_Rejects(t *testing.T) {
	s, _ := openMem(t)
	stateID := mustCreate(t, s, types.KindState, map[string]any{"name": "Texas"})

	dup, ok := s.Get(types.KindState, stateID)
	require.True(t, ok)

	orphan, err := types.FromAttrs(types.KindCity, map[string]any{"name": "Austin", "state_id": "nope"})
	require.NoError(t, err)

	blank := &types.City{Base: types.Base{ID: "c-1"}, StateID: stateID}

	tests := []struct {
		name    string
		entity  types.Entity
		wantErr error
	}{
		{name: "duplicate id", entity: dup, wantErr: types.ErrDuplicateID},
		{name: "dangling foreign key", entity: orphan, wantErr: types.ErrReferential},
		{name: "missing required field", entity: blank, wantErr: types.ErrMissingField},
		{name: "nil entity", entity: nil, wantErr: types.ErrInvalidID},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			before := s.Count("")
			err := s.New(tt.entity)
			assert.ErrorIs(t, err, tt.wantErr)
			assert.Equal(t, before, s.Count(""), "index unchanged on failure")
		})
	}

	var refErr *types.ReferenceError
	require.ErrorAs(t, s.New(orphan), &refErr)
	assert.Equal(t, "state_id", refErr.Field)
	assert.Equal(t, types.KindState, refErr.Target)
}

func TestListAllCount(t *testing.T) {
	s, _ := openMem(t)

	names := []string{"Alabama", "Wyoming", "Colorado", "Delaware"}
	var ids []string
	for _, n := range names {
		ids = append(ids, mustCreate(t, s, types.KindState, map[string]any{"name": n}))
	}
	mustCreate(t, s, types.KindAmenity, map[string]any{"name": "Pool"})

	list := s.List(types.KindState)
	require.Len(t, list, len(names))
	for i, e := range list {
		assert.Equal(t, ids[i], e.Meta().ID, "insertion order")
	}

	all := s.All(types.KindState)
	assert.Len(t, all, 4)
	assert.Contains(t, all, ids[0])

	every := s.AllKinds()
	assert.Len(t, every, 5)
	assert.Contains(t, every, "State."+ids[1])

	assert.Equal(t, 4, s.Count(types.KindState))
	assert.Equal(t, 1, s.Count(types.KindAmenity))
	assert.Equal(t, 0, s.Count(types.KindReview))
	assert.Equal(t, 5, s.Count(""))
}

func TestUpdate(t *testing.T) {
	s, _ := openMem(t)
	f := seed(t, s)
	other := mustCreate(t, s, types.KindState, map[string]any{"name": "Oregon"})

	t.Run("fields change and timestamps behave", func(t *testing.T) {
		before, _ := s.Get(types.KindCity, f.city)
		got, err := s.Edit(types.KindCity, f.city, map[string]any{"name": "Oakland", "id": "x"})
		require.NoError(t, err)
		c := got.(*types.City)
		assert.Equal(t, "Oakland", c.Name)
		assert.Equal(t, f.city, c.ID)
		assert.Equal(t, before.Meta().CreatedAt, c.CreatedAt)
		assert.False(t, c.UpdatedAt.Before(before.Meta().UpdatedAt))
	})

	t.Run("foreign key may move to an existing parent", func(t *testing.T) {
		got, err := s.Edit(types.KindCity, f.city, map[string]any{"state_id": other})
		require.NoError(t, err)
		assert.Equal(t, other, got.(*types.City).StateID)
	})

	t.Run("foreign key to a missing parent is rejected", func(t *testing.T) {
		_, err := s.Edit(types.KindCity, f.city, map[string]any{"state_id": "ghost", "name": "Nowhere"})
		assert.ErrorIs(t, err, types.ErrReferential)
		c, _ := s.Get(types.KindCity, f.city)
		assert.Equal(t, other, c.(*types.City).StateID)
		assert.Equal(t, "Oakland", c.(*types.City).Name)
	})

	t.Run("absent entity", func(t *testing.T) {
		_, err := s.Update(types.KindCity, "ghost", map[string]any{"name": "x"})
		assert.ErrorIs(t, err, types.ErrNotFound)
	})

	t.Run("update with dangling parent keeps working", func(t *testing.T) {
		// Default policy leaves the city pointing at a deleted state; unrelated
		// edits must still succeed.
		require.NoError(t, s.Remove(types.KindState, other))
		_, err := s.Edit(types.KindCity, f.city, map[string]any{"name": "Berkeley"})
		assert.NoError(t, err)
	})
}

func TestDelete_Policies(t *testing.T) {
	tests := []struct {
		name    string
		policy  string
		wantErr error
		check   func(t *testing.T, s *Store, f fixture)
	}{
		{
			name:   "none leaves children in place",
			policy: types.DeleteNone,
			check: func(t *testing.T, s *Store, f fixture) {
				_, ok := s.Get(types.KindPlace, f.place)
				assert.True(t, ok)
				_, ok = s.Get(types.KindReview, f.review)
				assert.True(t, ok)
			},
		},
		{
			name:    "restrict refuses while children exist",
			policy:  types.DeleteRestrict,
			wantErr: types.ErrHasDependents,
			check: func(t *testing.T, s *Store, f fixture) {
				_, ok := s.Get(types.KindUser, f.user)
				assert.True(t, ok)
			},
		},
		{
			name:   "cascade removes every descendant",
			policy: types.DeleteCascade,
			check: func(t *testing.T, s *Store, f fixture) {
				_, ok := s.Get(types.KindPlace, f.place)
				assert.False(t, ok)
				_, ok = s.Get(types.KindReview, f.review)
				assert.False(t, ok)
				_, ok = s.Get(types.KindAmenity, f.amenity)
				assert.True(t, ok, "amenities are not children")
				places, err := s.AmenityPlaces(f.amenity)
				require.NoError(t, err)
				assert.Empty(t, places)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, _ := openMem(t, WithDeletePolicy(tt.policy))
			f := seed(t, s)

			err := s.Remove(types.KindUser, f.user)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				var depErr *types.DependentsError
				require.ErrorAs(t, err, &depErr)
				assert.Equal(t, types.KindPlace, depErr.Child)
			} else {
				require.NoError(t, err)
				_, ok := s.Get(types.KindUser, f.user)
				assert.False(t, ok)
			}
			tt.check(t, s, f)
		})
	}
}

func TestDelete_AbsentAndUnknown(t *testing.T) {
	s, b := openMem(t)
	require.NoError(t, s.Delete(types.KindState, "ghost"))
	require.NoError(t, s.Remove(types.KindState, "ghost"))
	assert.Equal(t, 0, b.flushes, "removing nothing writes nothing")
	assert.ErrorIs(t, s.Delete(types.Kind("BaseModel"), "x"), types.ErrUnknownKind)
}

func TestDelete_PrunesAssociations(t *testing.T) {
	s, _ := openMem(t)
	f := seed(t, s)
	pool := mustCreate(t, s, types.KindAmenity, map[string]any{"name": "Pool"})
	_, err := s.AddAmenity(f.place, pool)
	require.NoError(t, err)

	require.NoError(t, s.Remove(types.KindAmenity, f.amenity))

	amenities, err := s.Amenities(f.place)
	require.NoError(t, err)
	require.Len(t, amenities, 1)
	assert.Equal(t, pool, amenities[0].ID)

	require.NoError(t, s.Save())
	require.NoError(t, s.Reload())
	amenities, err = s.Amenities(f.place)
	require.NoError(t, err)
	assert.Len(t, amenities, 1)
}

func TestRelations(t *testing.T) {
	s, _ := openMem(t)
	f := seed(t, s)
	second := mustCreate(t, s, types.KindCity, map[string]any{"name": "Fresno", "state_id": f.state})

	cities, err := s.Cities(f.state)
	require.NoError(t, err)
	require.Len(t, cities, 2)
	assert.Equal(t, f.city, cities[0].ID)
	assert.Equal(t, second, cities[1].ID)

	places, err := s.Places(f.city)
	require.NoError(t, err)
	require.Len(t, places, 1)
	assert.Equal(t, 2, places[0].NumberRooms)

	places, err = s.Places(second)
	require.NoError(t, err)
	assert.Empty(t, places)
	assert.NotNil(t, places)

	owned, err := s.UserPlaces(f.user)
	require.NoError(t, err)
	assert.Len(t, owned, 1)

	written, err := s.UserReviews(f.user)
	require.NoError(t, err)
	assert.Len(t, written, 1)

	reviews, err := s.Reviews(f.place)
	require.NoError(t, err)
	require.Len(t, reviews, 1)
	assert.Equal(t, "Great", reviews[0].Text)

	amenities, err := s.Amenities(f.place)
	require.NoError(t, err)
	require.Len(t, amenities, 1)
	assert.Equal(t, "Wifi", amenities[0].Name)

	linked, err := s.AmenityPlaces(f.amenity)
	require.NoError(t, err)
	assert.Len(t, linked, 1)

	// Results follow mutations immediately.
	_, err = s.Edit(types.KindCity, second, map[string]any{"name": "Fresno City"})
	require.NoError(t, err)
	cities, err = s.Cities(f.state)
	require.NoError(t, err)
	assert.Equal(t, "Fresno City", cities[1].Name)

	for name, call := range map[string]func() error{
		"cities":         func() error { _, err := s.Cities("ghost"); return err },
		"places":         func() error { _, err := s.Places("ghost"); return err },
		"user places":    func() error { _, err := s.UserPlaces("ghost"); return err },
		"user reviews":   func() error { _, err := s.UserReviews("ghost"); return err },
		"reviews":        func() error { _, err := s.Reviews("ghost"); return err },
		"amenities":      func() error { _, err := s.Amenities("ghost"); return err },
		"amenity places": func() error { _, err := s.AmenityPlaces("ghost"); return err },
	} {
		t.Run(name+" of missing parent", func(t *testing.T) {
			assert.ErrorIs(t, call(), types.ErrNotFound)
		})
	}
}

func TestLinkUnlink(t *testing.T) {
	s, b := openMem(t)
	f := seed(t, s)
	flushes := b.flushes

	created, err := s.AddAmenity(f.place, f.amenity)
	require.NoError(t, err)
	assert.False(t, created, "pair already linked")
	assert.Equal(t, flushes, b.flushes, "no-op link writes nothing")

	_, err = s.AddAmenity(f.place, "ghost")
	assert.ErrorIs(t, err, types.ErrNotFound)
	_, err = s.Link("ghost", f.amenity)
	assert.ErrorIs(t, err, types.ErrNotFound)

	removed, err := s.RemoveAmenity(f.place, f.amenity)
	require.NoError(t, err)
	assert.True(t, removed)
	removed, err = s.Unlink(f.place, f.amenity)
	require.NoError(t, err)
	assert.False(t, removed)

	amenities, err := s.Amenities(f.place)
	require.NoError(t, err)
	assert.Empty(t, amenities)
}

func TestCommit_RollbackOnSaveFailure(t *testing.T) {
	s, b := openMem(t)
	f := seed(t, s)
	b.flushErr = errors.New("disk full")

	_, err := s.Create(types.KindState, map[string]any{"name": "Maine"})
	require.ErrorIs(t, err, types.ErrPersistence)
	assert.Equal(t, 1, s.Count(types.KindState))

	_, err = s.Edit(types.KindState, f.state, map[string]any{"name": "Renamed"})
	require.ErrorIs(t, err, types.ErrPersistence)
	st, _ := s.Get(types.KindState, f.state)
	assert.Equal(t, "California", st.(*types.State).Name)

	err = s.Remove(types.KindPlace, f.place)
	require.ErrorIs(t, err, types.ErrPersistence)
	_, ok := s.Get(types.KindPlace, f.place)
	assert.True(t, ok)
	amenities, err := s.Amenities(f.place)
	require.NoError(t, err)
	assert.Len(t, amenities, 1, "pruned pairs come back too")

	_, err = s.RemoveAmenity(f.place, f.amenity)
	require.ErrorIs(t, err, types.ErrPersistence)

	b.flushErr = nil
	_, err = s.Create(types.KindState, map[string]any{"name": "Maine"})
	require.NoError(t, err)
	assert.Equal(t, 2, s.Count(types.KindState))
}

func TestCommit_RollbackOnCallbackError(t *testing.T) {
	s, b := openMem(t)
	f := seed(t, s)
	flushes := b.flushes
	boom := errors.New("boom")

	err := s.Commit(func(tx *Tx) error {
		if _, err := tx.Update(types.KindState, f.state, map[string]any{"name": "Gone"}); err != nil {
			return err
		}
		if err := tx.Delete(types.KindAmenity, f.amenity); err != nil {
			return err
		}
		return boom
	})
	require.ErrorIs(t, err, boom)
	assert.Equal(t, flushes, b.flushes)

	st, _ := s.Get(types.KindState, f.state)
	assert.Equal(t, "California", st.(*types.State).Name)
	_, ok := s.Get(types.KindAmenity, f.amenity)
	assert.True(t, ok)
}

func TestCommit_ReadsSeeOwnWrites(t *testing.T) {
	s, _ := openMem(t)
	err := s.Commit(func(tx *Tx) error {
		st, err := types.FromAttrs(types.KindState, map[string]any{"name": "Idaho"})
		if err != nil {
			return err
		}
		if err := tx.New(st); err != nil {
			return err
		}
		city, err := types.FromAttrs(types.KindCity, map[string]any{"name": "Boise", "state_id": st.Meta().ID})
		if err != nil {
			return err
		}
		if _, ok := tx.Get(types.KindState, st.Meta().ID); !ok {
			return fmt.Errorf("state not visible")
		}
		return tx.New(city)
	})
	require.NoError(t, err)
	assert.Equal(t, 2, s.Count(""))
}

func TestSaveFailure_KeepsPendingChanges(t *testing.T) {
	s, b := openMem(t)
	e, err := types.FromAttrs(types.KindAmenity, map[string]any{"name": "Sauna"})
	require.NoError(t, err)
	require.NoError(t, s.New(e))

	b.flushErr = errors.New("read-only file system")
	require.ErrorIs(t, s.Save(), types.ErrPersistence)
	_, ok := s.Get(types.KindAmenity, e.Meta().ID)
	assert.True(t, ok, "a failed save does not discard the index")

	b.flushErr = nil
	require.NoError(t, s.Save())
}

func TestReload_RejectsCorruptSnapshot(t *testing.T) {
	b := &memBackend{snap: &types.Snapshot{Records: []map[string]any{
		{types.ClassKey: "State", "id": "s1", "name": "A"},
		{types.ClassKey: "State", "id": "s1", "name": "B"},
	}}}
	s := NewStore(b)
	err := s.Open()
	assert.ErrorIs(t, err, types.ErrPersistence)
	assert.ErrorIs(t, err, types.ErrDuplicateID)

	b.snap = &types.Snapshot{Records: []map[string]any{{types.ClassKey: "Spaceship", "id": "x"}}}
	assert.ErrorIs(t, s.Open(), types.ErrUnknownKind)
}

func TestReload_DiscardsUnsavedChanges(t *testing.T) {
	s, _ := openMem(t)
	mustCreate(t, s, types.KindState, map[string]any{"name": "Kansas"})

	e, err := types.FromAttrs(types.KindState, map[string]any{"name": "Unsaved"})
	require.NoError(t, err)
	require.NoError(t, s.New(e))
	require.NoError(t, s.Reload())

	_, ok := s.Get(types.KindState, e.Meta().ID)
	assert.False(t, ok)
	assert.Equal(t, 1, s.Count(types.KindState))
}

func TestSaveReload_Backends(t *testing.T) {
	backends := map[string]func(t *testing.T, dir string) Backend{
		"jsonl": func(t *testing.T, dir string) Backend {
			b, err := jsonl.New(dir)
			require.NoError(t, err)
			return b
		},
		"sqlite": func(t *testing.T, dir string) Backend {
			b, err := sqlstore.OpenSQLite(dir)
			require.NoError(t, err)
			return b
		},
	}

	for name, open := range backends {
		t.Run(name, func(t *testing.T) {
			dir := t.TempDir()

			s := NewStore(open(t, dir))
			require.NoError(t, s.Open())
			f := seed(t, s)
			_, err := s.Edit(types.KindPlace, f.place, map[string]any{"latitude": 37.77, "wifi_speed": 300.5})
			require.NoError(t, err)
			want := s.AllKinds()
			require.NoError(t, s.Close())

			reopened := NewStore(open(t, dir))
			require.NoError(t, reopened.Open())
			defer reopened.Close()

			assert.Equal(t, want, reopened.AllKinds())
			amenities, err := reopened.Amenities(f.place)
			require.NoError(t, err)
			require.Len(t, amenities, 1)
			assert.Equal(t, f.amenity, amenities[0].ID)

			u, ok := reopened.Get(types.KindUser, f.user)
			require.True(t, ok)
			assert.True(t, u.(*types.User).CheckPassword("pwd"))
		})
	}
}

func TestConcurrentMutations(t *testing.T) {
	s, _ := openMem(t)
	stateID := mustCreate(t, s, types.KindState, map[string]any{"name": "Florida"})

	const workers = 16
	const perWorker = 10
	var wg sync.WaitGroup
	errs := make(chan error, workers*perWorker)
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < perWorker; i++ {
				if _, err := s.Create(types.KindCity, map[string]any{
					"name":     fmt.Sprintf("city-%d-%d", w, i),
					"state_id": stateID,
				}); err != nil {
					errs <- err
				}
				s.List(types.KindCity)
				if _, err := s.Cities(stateID); err != nil {
					errs <- err
				}
			}
		}(w)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	assert.Equal(t, workers*perWorker, s.Count(types.KindCity))
	require.NoError(t, s.Reload())
	assert.Equal(t, workers*perWorker, s.Count(types.KindCity))
}
