package types

import "strings"

// Kind names an entity type. The value doubles as the discriminant written to
// the ClassKey field of every serialized entity.
type Kind string

// Entity kinds.
const (
	KindState   Kind = "State"
	KindCity    Kind = "City"
	KindPlace   Kind = "Place"
	KindUser    Kind = "User"
	KindReview  Kind = "Review"
	KindAmenity Kind = "Amenity"
)

// Kinds lists every entity kind in dependency order: a kind only references
// kinds that appear before it.
var Kinds = []Kind{
	KindState,
	KindUser,
	KindAmenity,
	KindCity,
	KindPlace,
	KindReview,
}

// kindAliases maps lowercase class names and plural collection names to kinds.
var kindAliases = map[string]Kind{
	"state":     KindState,
	"states":    KindState,
	"city":      KindCity,
	"cities":    KindCity,
	"place":     KindPlace,
	"places":    KindPlace,
	"user":      KindUser,
	"users":     KindUser,
	"review":    KindReview,
	"reviews":   KindReview,
	"amenity":   KindAmenity,
	"amenities": KindAmenity,
}

// ParseKind resolves a class name ("City") or collection name ("cities") to a
// Kind. Matching is case-insensitive. Returns ErrUnknownKind otherwise.
func ParseKind(name string) (Kind, error) {
	if k, ok := kindAliases[strings.ToLower(strings.TrimSpace(name))]; ok {
		return k, nil
	}
	return "", ErrUnknownKind
}

// Valid reports whether k is one of the six entity kinds.
func (k Kind) Valid() bool {
	for _, v := range Kinds {
		if v == k {
			return true
		}
	}
	return false
}

// Plural returns the collection name used in routes and CLI arguments.
func (k Kind) Plural() string {
	switch k {
	case KindCity:
		return "cities"
	case KindAmenity:
		return "amenities"
	default:
		return strings.ToLower(string(k)) + "s"
	}
}

// Reference describes a foreign-key field on a child kind.
type Reference struct {
	Field  string // Foreign-key attribute name (e.g. "state_id").
	Target Kind   // Kind the field must reference.
}

// references lists the foreign keys of each kind.
var references = map[Kind][]Reference{
	KindCity:   {{Field: "state_id", Target: KindState}},
	KindPlace:  {{Field: "city_id", Target: KindCity}, {Field: "user_id", Target: KindUser}},
	KindReview: {{Field: "user_id", Target: KindUser}, {Field: "place_id", Target: KindPlace}},
}

// References returns the foreign keys declared by kind k. The result must not
// be modified.
func References(k Kind) []Reference {
	return references[k]
}

// Dependents returns the child references that point at kind k: every
// (child kind, field) pair whose Target is k.
func Dependents(k Kind) []Dependent {
	var deps []Dependent
	for _, child := range Kinds {
		for _, ref := range references[child] {
			if ref.Target == k {
				deps = append(deps, Dependent{Kind: child, Field: ref.Field})
			}
		}
	}
	return deps
}

// Dependent is a child kind and the field it uses to reference its parent.
type Dependent struct {
	Kind  Kind
	Field string
}
