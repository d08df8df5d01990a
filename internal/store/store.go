// Package store implements the storage engine: an in-memory index of typed
// entities keyed by (kind, id), serialized behind one RWMutex, flushed to a
// durable Backend on Save and repopulated from it on Reload.
package store

import (
	"fmt"
	"sort"
	"sync"

	"github.com/mesh-intelligence/hbnb/pkg/types"
)

// Backend is the durable representation behind a Store. Flush must be atomic:
// after a failed Flush, Load returns the previous contents.
type Backend interface {
	Load() (*types.Snapshot, error)
	Flush(snap *types.Snapshot) error
	Close() error
}

var _ types.Storage = (*Store)(nil)

// Store is the single source of truth for entities. The zero value is not
// usable; call NewStore then Open.
type Store struct {
	mu      sync.RWMutex
	backend Backend
	policy  string
	open    bool
	idx     *index
}

// Option configures a Store.
type Option func(*Store)

// WithDeletePolicy sets how Delete treats children of the deleted entity:
// types.DeleteNone (default), types.DeleteRestrict, or types.DeleteCascade.
func WithDeletePolicy(policy string) Option {
	return func(s *Store) {
		if policy != "" {
			s.policy = policy
		}
	}
}

// NewStore creates a closed store over backend.
func NewStore(backend Backend, opts ...Option) *Store {
	s := &Store{
		backend: backend,
		policy:  types.DeleteNone,
		idx:     newIndex(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Open loads the durable contents into the index. An empty or missing
// backing store yields an empty index. Returns ErrAlreadyOpen if called
// twice.
func (s *Store) Open() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.open {
		return types.ErrAlreadyOpen
	}
	if err := s.reloadLocked(); err != nil {
		return err
	}
	s.open = true
	return nil
}

// Close saves the index one last time and releases the backend. Close is
// idempotent. When the final save fails the backend is still released and
// the save error returned.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.open {
		return nil
	}
	saveErr := s.flushLocked()
	closeErr := s.backend.Close()
	s.open = false
	s.idx = newIndex()
	if saveErr != nil {
		return saveErr
	}
	if closeErr != nil {
		return fmt.Errorf("closing backend: %w", closeErr)
	}
	return nil
}

// Get returns a copy of the entity, or false when it is not indexed.
func (s *Store) Get(k types.Kind, id string) (types.Entity, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.idx.get(k, id)
	if !ok {
		return nil, false
	}
	return types.Clone(e), true
}

// All returns copies of every entity of kind k keyed by id.
func (s *Store) All(k types.Kind) map[string]types.Entity {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make(map[string]types.Entity, len(s.idx.byKind[k]))
	for id, en := range s.idx.byKind[k] {
		out[id] = types.Clone(en.entity)
	}
	return out
}

// AllKinds returns copies of every indexed entity keyed by "<Kind>.<id>".
func (s *Store) AllKinds() map[string]types.Entity {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make(map[string]types.Entity)
	for k, m := range s.idx.byKind {
		for id, en := range m {
			out[string(k)+"."+id] = types.Clone(en.entity)
		}
	}
	return out
}

// List returns copies of every entity of kind k in insertion order.
func (s *Store) List(k types.Kind) []types.Entity {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entries := s.idx.ordered(k)
	out := make([]types.Entity, len(entries))
	for i, en := range entries {
		out[i] = types.Clone(en.entity)
	}
	return out
}

// Count returns the number of entities of kind k, or of every kind when k is
// empty.
func (s *Store) Count(k types.Kind) int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if k == "" {
		n := 0
		for _, m := range s.idx.byKind {
			n += len(m)
		}
		return n
	}
	return len(s.idx.byKind[k])
}

// New registers e in the index. Required fields and foreign keys are checked
// first; on failure the index is unchanged. New does not persist.
func (s *Store) New(e types.Entity) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.open {
		return types.ErrStoreClosed
	}
	return s.newLocked(e)
}

// Update applies attrs to the indexed entity and returns a copy of the
// result. Update does not persist.
func (s *Store) Update(k types.Kind, id string, attrs map[string]any) (types.Entity, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.open {
		return nil, types.ErrStoreClosed
	}
	return s.updateLocked(k, id, attrs)
}

// Delete removes the entity according to the delete policy. Deleting an
// absent entity succeeds. Delete does not persist.
func (s *Store) Delete(k types.Kind, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.open {
		return types.ErrStoreClosed
	}
	return s.deleteLocked(k, id)
}

// Save flushes the whole index to the backend. Failures wrap
// types.ErrPersistence.
func (s *Store) Save() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.open {
		return types.ErrStoreClosed
	}
	return s.flushLocked()
}

// Reload replaces the index with the backend contents. On failure the
// current index is kept.
func (s *Store) Reload() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.open {
		return types.ErrStoreClosed
	}
	return s.reloadLocked()
}

// Locked helpers. The caller holds s.mu for writing.

func (s *Store) newLocked(e types.Entity) error {
	if e == nil {
		return types.ErrInvalidID
	}
	k := e.Kind()
	if !k.Valid() {
		return types.ErrUnknownKind
	}
	if err := types.Validate(e); err != nil {
		return err
	}
	if err := s.checkReferences(e, types.References(k)); err != nil {
		return err
	}
	id := e.Meta().ID
	if _, ok := s.idx.get(k, id); ok {
		return fmt.Errorf("%s %q: %w", k, id, types.ErrDuplicateID)
	}
	s.idx.put(types.Clone(e))
	return nil
}

func (s *Store) updateLocked(k types.Kind, id string, attrs map[string]any) (types.Entity, error) {
	en, ok := s.idx.byKind[k][id]
	if !ok {
		return nil, notFound(k, id)
	}
	next := types.Clone(en.entity)
	applied, err := types.Apply(next, attrs)
	if err != nil {
		return nil, err
	}
	if err := s.checkReferences(next, touchedReferences(k, applied)); err != nil {
		return nil, err
	}
	s.idx.replace(next)
	return types.Clone(next), nil
}

func (s *Store) deleteLocked(k types.Kind, id string) error {
	if !k.Valid() {
		return types.ErrUnknownKind
	}
	if _, ok := s.idx.get(k, id); !ok {
		return nil
	}

	switch s.policy {
	case types.DeleteRestrict:
		for _, dep := range types.Dependents(k) {
			if n := len(s.idx.childrenOf(dep, id)); n > 0 {
				return &types.DependentsError{Kind: k, ID: id, Child: dep.Kind, Count: n}
			}
		}
	case types.DeleteCascade:
		for _, dep := range types.Dependents(k) {
			for _, child := range s.idx.childrenOf(dep, id) {
				if err := s.deleteLocked(dep.Kind, child.entity.Meta().ID); err != nil {
					return err
				}
			}
		}
	}

	s.idx.remove(k, id)
	return nil
}

// checkReferences verifies that each listed foreign key of e names an
// indexed parent.
func (s *Store) checkReferences(e types.Entity, refs []types.Reference) error {
	for _, ref := range refs {
		fk := types.ForeignKey(e, ref.Field)
		if _, ok := s.idx.get(ref.Target, fk); !ok {
			return &types.ReferenceError{Kind: e.Kind(), Field: ref.Field, Target: ref.Target, ID: fk}
		}
	}
	return nil
}

func (s *Store) flushLocked() error {
	if err := s.backend.Flush(s.idx.snapshot()); err != nil {
		return fmt.Errorf("save: %w: %w", types.ErrPersistence, err)
	}
	return nil
}

func (s *Store) reloadLocked() error {
	snap, err := s.backend.Load()
	if err != nil {
		return fmt.Errorf("reload: %w: %w", types.ErrPersistence, err)
	}
	idx, err := indexFromSnapshot(snap)
	if err != nil {
		return fmt.Errorf("reload: %w: %w", types.ErrPersistence, err)
	}
	s.idx = idx
	return nil
}

// touchedReferences returns the references of kind k whose field is in
// applied.
func touchedReferences(k types.Kind, applied []string) []types.Reference {
	var refs []types.Reference
	for _, ref := range types.References(k) {
		for _, key := range applied {
			if key == ref.Field {
				refs = append(refs, ref)
				break
			}
		}
	}
	return refs
}

// entry is an indexed entity and its insertion sequence number.
type entry struct {
	entity types.Entity
	seq    uint64
}

// index is the in-memory state. Entities stored here are never mutated in
// place; updates swap in a modified copy, so a shallow clone of the maps is
// a complete checkpoint.
type index struct {
	byKind map[types.Kind]map[string]entry
	links  []types.Link
	seq    uint64
}

func newIndex() *index {
	return &index{byKind: make(map[types.Kind]map[string]entry)}
}

func indexFromSnapshot(snap *types.Snapshot) (*index, error) {
	idx := newIndex()
	for i, rec := range snap.Records {
		e, err := types.FromDict(rec)
		if err != nil {
			return nil, fmt.Errorf("record %d: %w", i+1, err)
		}
		if _, dup := idx.get(e.Kind(), e.Meta().ID); dup {
			return nil, fmt.Errorf("record %d: %s %q: %w", i+1, e.Kind(), e.Meta().ID, types.ErrDuplicateID)
		}
		idx.put(e)
	}
	for _, l := range snap.Links {
		if idx.linkPos(l) < 0 {
			idx.links = append(idx.links, l)
		}
	}
	return idx, nil
}

func (ix *index) get(k types.Kind, id string) (types.Entity, bool) {
	en, ok := ix.byKind[k][id]
	if !ok {
		return nil, false
	}
	return en.entity, true
}

func (ix *index) put(e types.Entity) {
	k := e.Kind()
	m, ok := ix.byKind[k]
	if !ok {
		m = make(map[string]entry)
		ix.byKind[k] = m
	}
	ix.seq++
	m[e.Meta().ID] = entry{entity: e, seq: ix.seq}
}

// replace swaps the entity keeping its insertion position.
func (ix *index) replace(e types.Entity) {
	m := ix.byKind[e.Kind()]
	en := m[e.Meta().ID]
	en.entity = e
	m[e.Meta().ID] = en
}

// remove deletes the entity and every association pair naming it.
func (ix *index) remove(k types.Kind, id string) {
	delete(ix.byKind[k], id)
	if k != types.KindPlace && k != types.KindAmenity {
		return
	}
	kept := ix.links[:0]
	for _, l := range ix.links {
		if (k == types.KindPlace && l.PlaceID == id) || (k == types.KindAmenity && l.AmenityID == id) {
			continue
		}
		kept = append(kept, l)
	}
	ix.links = kept
}

// ordered returns the entries of kind k sorted by insertion sequence.
func (ix *index) ordered(k types.Kind) []entry {
	m := ix.byKind[k]
	out := make([]entry, 0, len(m))
	for _, en := range m {
		out = append(out, en)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].seq < out[j].seq })
	return out
}

// childrenOf returns, in insertion order, the entries of dep.Kind whose
// dep.Field equals parentID.
func (ix *index) childrenOf(dep types.Dependent, parentID string) []entry {
	var out []entry
	for _, en := range ix.ordered(dep.Kind) {
		if types.ForeignKey(en.entity, dep.Field) == parentID {
			out = append(out, en)
		}
	}
	return out
}

func (ix *index) linkPos(l types.Link) int {
	for i, v := range ix.links {
		if v == l {
			return i
		}
	}
	return -1
}

// clone returns a checkpoint of the index for rollback.
func (ix *index) clone() *index {
	c := &index{
		byKind: make(map[types.Kind]map[string]entry, len(ix.byKind)),
		links:  append([]types.Link(nil), ix.links...),
		seq:    ix.seq,
	}
	for k, m := range ix.byKind {
		cm := make(map[string]entry, len(m))
		for id, en := range m {
			cm[id] = en
		}
		c.byKind[k] = cm
	}
	return c
}

// snapshot renders the index in global insertion order.
func (ix *index) snapshot() *types.Snapshot {
	var all []entry
	for _, m := range ix.byKind {
		for _, en := range m {
			all = append(all, en)
		}
	}
	sort.Slice(all, func(i, j int) bool { return all[i].seq < all[j].seq })

	snap := &types.Snapshot{
		Records: make([]map[string]any, len(all)),
		Links:   append([]types.Link(nil), ix.links...),
	}
	for i, en := range all {
		snap.Records[i] = types.ToDict(en.entity)
	}
	return snap
}
