package types

// Storage is the object store every view depends on. Implementations
// serialize all mutations; entities returned by reads are copies, so callers
// change state only through the methods below.
type Storage interface {
	// Get returns the entity of kind k with the given id. The boolean is
	// false when no such entity is indexed; absence is not an error.
	Get(k Kind, id string) (Entity, bool)

	// All returns every entity of kind k keyed by id.
	All(k Kind) map[string]Entity

	// AllKinds returns every indexed entity keyed by "<Kind>.<id>".
	AllKinds() map[string]Entity

	// List returns every entity of kind k in insertion order.
	List(k Kind) []Entity

	// Count returns the number of entities of kind k, or of all kinds when
	// k is empty.
	Count(k Kind) int

	// New registers a constructed entity in the index after checking its
	// required fields and foreign keys. It does not persist.
	New(e Entity) error

	// Update applies attrs to the entity (see Apply) without persisting.
	Update(k Kind, id string, attrs map[string]any) (Entity, error)

	// Delete removes the entity from the index. Deleting an absent entity
	// succeeds. It does not persist.
	Delete(k Kind, id string) error

	// Save flushes the whole index to durable storage atomically.
	Save() error

	// Reload replaces the index with the durable contents.
	Reload() error

	// Close performs a final Save and releases the backend.
	Close() error

	// Create, Edit, and Remove mutate and save as one step. When the save
	// fails the index is restored and the error returned.
	Create(k Kind, attrs map[string]any) (Entity, error)
	Edit(k Kind, id string, attrs map[string]any) (Entity, error)
	Remove(k Kind, id string) error

	Resolver
}

// Resolver derives relationships from the current index on every call.
// Each accessor returns ErrNotFound when the parent entity is absent.
type Resolver interface {
	Cities(stateID string) ([]*City, error)
	Places(cityID string) ([]*Place, error)
	UserPlaces(userID string) ([]*Place, error)
	UserReviews(userID string) ([]*Review, error)
	Reviews(placeID string) ([]*Review, error)
	Amenities(placeID string) ([]*Amenity, error)
	AmenityPlaces(amenityID string) ([]*Place, error)

	// Link adds the pair to the association set. created is false when the
	// pair already existed. Does not persist.
	Link(placeID, amenityID string) (created bool, err error)

	// Unlink removes the pair. removed is false when the pair was absent.
	// Does not persist.
	Unlink(placeID, amenityID string) (removed bool, err error)

	// AddAmenity and RemoveAmenity are Link and Unlink followed by Save as
	// one step.
	AddAmenity(placeID, amenityID string) (created bool, err error)
	RemoveAmenity(placeID, amenityID string) (removed bool, err error)
}
