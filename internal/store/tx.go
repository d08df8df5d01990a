package store

import (
	"github.com/mesh-intelligence/hbnb/pkg/types"
)

// Tx is a view of the store valid only inside a Commit callback. Its
// methods mutate the index directly; Commit decides whether they stick.
type Tx struct {
	s     *Store
	dirty bool
}

// Get returns a copy of the entity.
func (tx *Tx) Get(k types.Kind, id string) (types.Entity, bool) {
	e, ok := tx.s.idx.get(k, id)
	if !ok {
		return nil, false
	}
	return types.Clone(e), true
}

// New registers e.
func (tx *Tx) New(e types.Entity) error {
	if err := tx.s.newLocked(e); err != nil {
		return err
	}
	tx.dirty = true
	return nil
}

// Update applies attrs to the entity.
func (tx *Tx) Update(k types.Kind, id string, attrs map[string]any) (types.Entity, error) {
	e, err := tx.s.updateLocked(k, id, attrs)
	if err != nil {
		return nil, err
	}
	tx.dirty = true
	return e, nil
}

// Delete removes the entity according to the store's delete policy.
func (tx *Tx) Delete(k types.Kind, id string) error {
	_, existed := tx.s.idx.get(k, id)
	if err := tx.s.deleteLocked(k, id); err != nil {
		return err
	}
	tx.dirty = tx.dirty || existed
	return nil
}

// Link adds a Place-Amenity pair.
func (tx *Tx) Link(placeID, amenityID string) (bool, error) {
	created, err := tx.s.linkLocked(placeID, amenityID)
	if created {
		tx.dirty = true
	}
	return created, err
}

// Unlink removes a Place-Amenity pair.
func (tx *Tx) Unlink(placeID, amenityID string) (bool, error) {
	removed, err := tx.s.unlinkLocked(placeID, amenityID)
	if removed {
		tx.dirty = true
	}
	return removed, err
}

// Commit runs fn against the index under the write lock and saves the
// result. If fn returns an error, or the save fails, the index is restored
// to its state before Commit and the error returned. Nothing is written when
// fn made no change.
func (s *Store) Commit(fn func(tx *Tx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.open {
		return types.ErrStoreClosed
	}

	checkpoint := s.idx.clone()
	tx := &Tx{s: s}
	if err := fn(tx); err != nil {
		s.idx = checkpoint
		return err
	}
	if !tx.dirty {
		return nil
	}
	if err := s.flushLocked(); err != nil {
		s.idx = checkpoint
		return err
	}
	return nil
}

// Create constructs an entity of kind k from attrs, indexes it, and saves.
func (s *Store) Create(k types.Kind, attrs map[string]any) (types.Entity, error) {
	e, err := types.FromAttrs(k, attrs)
	if err != nil {
		return nil, err
	}
	err = s.Commit(func(tx *Tx) error {
		return tx.New(e)
	})
	if err != nil {
		return nil, err
	}
	return e, nil
}

// Edit updates the entity and saves.
func (s *Store) Edit(k types.Kind, id string, attrs map[string]any) (types.Entity, error) {
	var out types.Entity
	err := s.Commit(func(tx *Tx) error {
		e, err := tx.Update(k, id, attrs)
		out = e
		return err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Remove deletes the entity and saves. Removing an absent entity succeeds
// without writing.
func (s *Store) Remove(k types.Kind, id string) error {
	return s.Commit(func(tx *Tx) error {
		return tx.Delete(k, id)
	})
}

// AddAmenity links the pair and saves.
func (s *Store) AddAmenity(placeID, amenityID string) (bool, error) {
	var created bool
	err := s.Commit(func(tx *Tx) error {
		var err error
		created, err = tx.Link(placeID, amenityID)
		return err
	})
	if err != nil {
		return false, err
	}
	return created, nil
}

// RemoveAmenity unlinks the pair and saves.
func (s *Store) RemoveAmenity(placeID, amenityID string) (bool, error) {
	var removed bool
	err := s.Commit(func(tx *Tx) error {
		var err error
		removed, err = tx.Unlink(placeID, amenityID)
		return err
	})
	if err != nil {
		return false, err
	}
	return removed, nil
}
