package types

// Review is a user's text about a place. PlaceID is assigned by the caller
// from the route and is never taken from a request body.
type Review struct {
	Base
	Text    string
	UserID  string
	PlaceID string
}

func (*Review) Kind() Kind { return KindReview }

func (r *Review) fields() map[string]any {
	return map[string]any{
		"text":     r.Text,
		"user_id":  r.UserID,
		"place_id": r.PlaceID,
	}
}

func (r *Review) setField(key string, v any) (bool, error) {
	switch key {
	case "text":
		return true, assignString(&r.Text, KindReview, key, v)
	case "user_id":
		return true, assignString(&r.UserID, KindReview, key, v)
	case "place_id":
		return true, assignString(&r.PlaceID, KindReview, key, v)
	}
	return false, nil
}

func (*Review) required() []string { return []string{"text", "user_id", "place_id"} }

func (r *Review) clone() Entity {
	c := *r
	c.Base = cloneBase(r.Base)
	return &c
}
