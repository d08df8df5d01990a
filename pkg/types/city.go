package types

// City belongs to a State and owns places through city_id.
type City struct {
	Base
	Name    string
	StateID string
}

func (*City) Kind() Kind { return KindCity }

func (c *City) fields() map[string]any {
	return map[string]any{
		"name":     c.Name,
		"state_id": c.StateID,
	}
}

func (c *City) setField(key string, v any) (bool, error) {
	switch key {
	case "name":
		return true, assignString(&c.Name, KindCity, key, v)
	case "state_id":
		return true, assignString(&c.StateID, KindCity, key, v)
	}
	return false, nil
}

func (*City) required() []string { return []string{"name", "state_id"} }

func (c *City) clone() Entity {
	cp := *c
	cp.Base = cloneBase(c.Base)
	return &cp
}
