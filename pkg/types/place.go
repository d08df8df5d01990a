package types

// Place is a rentable listing in a city, owned by a user.
type Place struct {
	Base
	Name           string
	CityID         string
	UserID         string
	Description    string
	NumberRooms    int
	NumberBathroom int
	MaxGuest       int
	PriceByNight   int
	Latitude       float64
	Longitude      float64
}

func (*Place) Kind() Kind { return KindPlace }

func (p *Place) fields() map[string]any {
	return map[string]any{
		"name":             p.Name,
		"city_id":          p.CityID,
		"user_id":          p.UserID,
		"description":      p.Description,
		"number_rooms":     p.NumberRooms,
		"number_bathrooms": p.NumberBathroom,
		"max_guest":        p.MaxGuest,
		"price_by_night":   p.PriceByNight,
		"latitude":         p.Latitude,
		"longitude":        p.Longitude,
	}
}

func (p *Place) setField(key string, v any) (bool, error) {
	switch key {
	case "name":
		return true, assignString(&p.Name, KindPlace, key, v)
	case "city_id":
		return true, assignString(&p.CityID, KindPlace, key, v)
	case "user_id":
		return true, assignString(&p.UserID, KindPlace, key, v)
	case "description":
		return true, assignString(&p.Description, KindPlace, key, v)
	case "number_rooms":
		return true, assignInt(&p.NumberRooms, KindPlace, key, v)
	case "number_bathrooms":
		return true, assignInt(&p.NumberBathroom, KindPlace, key, v)
	case "max_guest":
		return true, assignInt(&p.MaxGuest, KindPlace, key, v)
	case "price_by_night":
		return true, assignInt(&p.PriceByNight, KindPlace, key, v)
	case "latitude":
		return true, assignFloat(&p.Latitude, KindPlace, key, v)
	case "longitude":
		return true, assignFloat(&p.Longitude, KindPlace, key, v)
	}
	return false, nil
}

func (*Place) required() []string { return []string{"name", "city_id", "user_id"} }

func (p *Place) clone() Entity {
	c := *p
	c.Base = cloneBase(p.Base)
	return &c
}
