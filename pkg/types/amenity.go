package types

// Amenity is a feature a place can offer. Places and amenities are linked
// many-to-many through Link pairs.
type Amenity struct {
	Base
	Name string
}

func (*Amenity) Kind() Kind { return KindAmenity }

func (a *Amenity) fields() map[string]any {
	return map[string]any{"name": a.Name}
}

func (a *Amenity) setField(key string, v any) (bool, error) {
	if key == "name" {
		return true, assignString(&a.Name, KindAmenity, key, v)
	}
	return false, nil
}

func (*Amenity) required() []string { return []string{"name"} }

func (a *Amenity) clone() Entity {
	c := *a
	c.Base = cloneBase(a.Base)
	return &c
}
