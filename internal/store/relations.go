package store

import (
	"fmt"

	"github.com/mesh-intelligence/hbnb/pkg/types"
)

// Relationship accessors are computed from the index on every call, so they
// always reflect the latest mutations. Results are copies in insertion
// order.

// Cities returns the cities of a state.
func (s *Store) Cities(stateID string) ([]*types.City, error) {
	return children[*types.City](s, types.KindState, stateID, types.Dependent{Kind: types.KindCity, Field: "state_id"})
}

// Places returns the places of a city.
func (s *Store) Places(cityID string) ([]*types.Place, error) {
	return children[*types.Place](s, types.KindCity, cityID, types.Dependent{Kind: types.KindPlace, Field: "city_id"})
}

// UserPlaces returns the places owned by a user.
func (s *Store) UserPlaces(userID string) ([]*types.Place, error) {
	return children[*types.Place](s, types.KindUser, userID, types.Dependent{Kind: types.KindPlace, Field: "user_id"})
}

// UserReviews returns the reviews written by a user.
func (s *Store) UserReviews(userID string) ([]*types.Review, error) {
	return children[*types.Review](s, types.KindUser, userID, types.Dependent{Kind: types.KindReview, Field: "user_id"})
}

// Reviews returns the reviews of a place.
func (s *Store) Reviews(placeID string) ([]*types.Review, error) {
	return children[*types.Review](s, types.KindPlace, placeID, types.Dependent{Kind: types.KindReview, Field: "place_id"})
}

// Amenities returns the amenities linked to a place, in link order. Pairs
// naming an amenity that is no longer indexed are skipped.
func (s *Store) Amenities(placeID string) ([]*types.Amenity, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if _, ok := s.idx.get(types.KindPlace, placeID); !ok {
		return nil, notFound(types.KindPlace, placeID)
	}
	out := []*types.Amenity{}
	for _, l := range s.idx.links {
		if l.PlaceID != placeID {
			continue
		}
		if e, ok := s.idx.get(types.KindAmenity, l.AmenityID); ok {
			out = append(out, types.Clone(e).(*types.Amenity))
		}
	}
	return out, nil
}

// AmenityPlaces returns the places an amenity is linked to, in link order.
func (s *Store) AmenityPlaces(amenityID string) ([]*types.Place, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if _, ok := s.idx.get(types.KindAmenity, amenityID); !ok {
		return nil, notFound(types.KindAmenity, amenityID)
	}
	out := []*types.Place{}
	for _, l := range s.idx.links {
		if l.AmenityID != amenityID {
			continue
		}
		if e, ok := s.idx.get(types.KindPlace, l.PlaceID); ok {
			out = append(out, types.Clone(e).(*types.Place))
		}
	}
	return out, nil
}

// Link adds the pair to the association set. Both ends must be indexed.
// Does not persist.
func (s *Store) Link(placeID, amenityID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.open {
		return false, types.ErrStoreClosed
	}
	return s.linkLocked(placeID, amenityID)
}

// Unlink removes the pair from the association set. Does not persist.
func (s *Store) Unlink(placeID, amenityID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.open {
		return false, types.ErrStoreClosed
	}
	return s.unlinkLocked(placeID, amenityID)
}

func (s *Store) linkLocked(placeID, amenityID string) (bool, error) {
	if err := s.checkPair(placeID, amenityID); err != nil {
		return false, err
	}
	l := types.Link{PlaceID: placeID, AmenityID: amenityID}
	if s.idx.linkPos(l) >= 0 {
		return false, nil
	}
	s.idx.links = append(s.idx.links, l)
	return true, nil
}

func (s *Store) unlinkLocked(placeID, amenityID string) (bool, error) {
	if err := s.checkPair(placeID, amenityID); err != nil {
		return false, err
	}
	i := s.idx.linkPos(types.Link{PlaceID: placeID, AmenityID: amenityID})
	if i < 0 {
		return false, nil
	}
	s.idx.links = append(s.idx.links[:i], s.idx.links[i+1:]...)
	return true, nil
}

func (s *Store) checkPair(placeID, amenityID string) error {
	if _, ok := s.idx.get(types.KindPlace, placeID); !ok {
		return notFound(types.KindPlace, placeID)
	}
	if _, ok := s.idx.get(types.KindAmenity, amenityID); !ok {
		return notFound(types.KindAmenity, amenityID)
	}
	return nil
}

// children returns copies of the dep.Kind entities whose dep.Field names
// parentID, or ErrNotFound when the parent is not indexed.
func children[T types.Entity](s *Store, parent types.Kind, parentID string, dep types.Dependent) ([]T, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if _, ok := s.idx.get(parent, parentID); !ok {
		return nil, notFound(parent, parentID)
	}
	entries := s.idx.childrenOf(dep, parentID)
	out := make([]T, 0, len(entries))
	for _, en := range entries {
		out = append(out, types.Clone(en.entity).(T))
	}
	return out, nil
}

func notFound(k types.Kind, id string) error {
	return fmt.Errorf("%s %q: %w", k, id, types.ErrNotFound)
}
