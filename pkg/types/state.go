package types

// State is a top-level region. Cities reference it through state_id.
type State struct {
	Base
	Name string
}

func (*State) Kind() Kind { return KindState }

func (s *State) fields() map[string]any {
	return map[string]any{"name": s.Name}
}

func (s *State) setField(key string, v any) (bool, error) {
	if key == "name" {
		return true, assignString(&s.Name, KindState, key, v)
	}
	return false, nil
}

func (*State) required() []string { return []string{"name"} }

func (s *State) clone() Entity {
	c := *s
	c.Base = cloneBase(s.Base)
	return &c
}
