package types

// LinkClass is the discriminant of a persisted Place-Amenity association.
const LinkClass = "PlaceAmenity"

// Link is one Place-Amenity association pair. The pair is its own identity;
// an association set never holds the same pair twice.
type Link struct {
	PlaceID   string `json:"place_id"`
	AmenityID string `json:"amenity_id"`
}

// Snapshot is the durable form of the index: every entity's dictionary (see
// ToDict) and every association pair, each in insertion order.
type Snapshot struct {
	Records []map[string]any
	Links   []Link
}
