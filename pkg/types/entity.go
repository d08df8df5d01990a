package types

import (
	"encoding/json"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
)

// TimeFormat is the canonical textual form of created_at and updated_at.
// Timestamps are UTC with microsecond precision.
const TimeFormat = "2006-01-02T15:04:05.000000"

// ClassKey is the discriminant attribute naming an entity's kind in its
// dictionary form.
const ClassKey = "__class__"

// Base holds the identity and timestamps shared by every entity, plus the
// side table of attributes that have no typed field.
type Base struct {
	ID        string         // UUID v7, generated on creation; immutable.
	CreatedAt time.Time      // Creation time; immutable.
	UpdatedAt time.Time      // Last modification; never moves backwards.
	Extra     map[string]any // Untyped attributes stored verbatim.
}

// Meta returns the shared base record.
func (b *Base) Meta() *Base { return b }

// Touch bumps UpdatedAt to the current time. UpdatedAt never decreases, even
// if the wall clock steps back.
func (b *Base) Touch() {
	now := Now()
	if now.After(b.UpdatedAt) {
		b.UpdatedAt = now
	}
}

// Entity is implemented by the six record types. The unexported methods give
// the generic construction, update, and serialization helpers typed access
// to each record.
type Entity interface {
	Kind() Kind
	Meta() *Base

	fields() map[string]any
	setField(key string, value any) (known bool, err error)
	required() []string
	clone() Entity
}

// Now returns the current time as stored on entities: UTC, truncated to
// microseconds so the canonical text form round-trips exactly.
var Now = func() time.Time {
	return time.Now().UTC().Truncate(time.Microsecond)
}

// NewID generates a new entity ID (UUID v7, falling back to v4).
func NewID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.New().String()
	}
	return id.String()
}

// baseKeys are handled by FromAttrs itself and never reach setField.
var baseKeys = map[string]bool{
	"id":         true,
	"created_at": true,
	"updated_at": true,
	ClassKey:     true,
}

// derivedKeys name relationship accessors. They are computed by the store and
// are never accepted as attributes.
var derivedKeys = map[string]bool{
	"cities":      true,
	"places":      true,
	"reviews":     true,
	"amenities":   true,
	"amenity_ids": true,
	"state":       true,
	"city":        true,
	"place":       true,
	"user":        true,
}

// updateDenied lists, per kind, the attributes Apply refuses to change in
// addition to the base keys.
var updateDenied = map[Kind][]string{
	KindUser:   {"email"},
	KindPlace:  {"user_id", "city_id"},
	KindReview: {"user_id", "place_id"},
}

// UpdateDenied returns every attribute an update of kind k ignores.
func UpdateDenied(k Kind) []string {
	keys := []string{"id", "created_at", "updated_at"}
	return append(keys, updateDenied[k]...)
}

func isUpdateDenied(k Kind, key string) bool {
	if baseKeys[key] || derivedKeys[key] {
		return true
	}
	for _, d := range updateDenied[k] {
		if d == key {
			return true
		}
	}
	return false
}

// Zero returns an empty entity of kind k.
func Zero(k Kind) (Entity, error) {
	switch k {
	case KindState:
		return &State{}, nil
	case KindCity:
		return &City{}, nil
	case KindPlace:
		return &Place{}, nil
	case KindUser:
		return &User{}, nil
	case KindReview:
		return &Review{}, nil
	case KindAmenity:
		return &Amenity{}, nil
	default:
		return nil, ErrUnknownKind
	}
}

// FromAttrs constructs an entity of kind k from a field mapping. An id is
// generated when absent and timestamps default to now; supplied timestamps
// later than now are clamped to now. Known keys are assigned to typed fields;
// unknown keys are kept in Extra; relationship names and the class
// discriminant are dropped. Returns a *FieldError when a required field is
// missing or a value has the wrong type.
func FromAttrs(k Kind, attrs map[string]any) (Entity, error) {
	e, err := build(k, attrs)
	if err != nil {
		return nil, err
	}
	b := e.Meta()
	now := Now()
	if b.CreatedAt.After(now) {
		b.CreatedAt = now
	}
	if b.UpdatedAt.After(now) {
		b.UpdatedAt = now
	}
	if b.UpdatedAt.Before(b.CreatedAt) {
		b.UpdatedAt = b.CreatedAt
	}
	return e, nil
}

func build(k Kind, attrs map[string]any) (Entity, error) {
	e, err := Zero(k)
	if err != nil {
		return nil, err
	}
	b := e.Meta()

	if v, ok := attrs["id"]; ok && v != nil {
		id, ok := v.(string)
		if !ok {
			return nil, &FieldError{Kind: k, Field: "id", Err: ErrTypeMismatch}
		}
		b.ID = id
	}
	for _, key := range []string{"created_at", "updated_at"} {
		v, ok := attrs[key]
		if !ok || v == nil {
			continue
		}
		ts, err := parseTime(v)
		if err != nil {
			return nil, &FieldError{Kind: k, Field: key, Err: err}
		}
		if key == "created_at" {
			b.CreatedAt = ts
		} else {
			b.UpdatedAt = ts
		}
	}

	for key, value := range attrs {
		if baseKeys[key] || derivedKeys[key] {
			continue
		}
		known, err := e.setField(key, value)
		if err != nil {
			return nil, err
		}
		if !known {
			if b.Extra == nil {
				b.Extra = make(map[string]any)
			}
			b.Extra[key] = cloneValue(value)
		}
	}

	if b.ID == "" {
		b.ID = NewID()
	}
	now := Now()
	if b.CreatedAt.IsZero() {
		b.CreatedAt = now
	}
	if b.UpdatedAt.IsZero() {
		b.UpdatedAt = b.CreatedAt
	}

	if err := Validate(e); err != nil {
		return nil, err
	}
	return e, nil
}

// FromDict rebuilds an entity from its dictionary form, reading the kind
// from ClassKey. Stored timestamps are kept as they are.
func FromDict(d map[string]any) (Entity, error) {
	class, _ := d[ClassKey].(string)
	k := Kind(class)
	if !k.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrUnknownKind, class)
	}
	return build(k, d)
}

// Validate checks that every required field of e is set and that the base
// identity is present.
func Validate(e Entity) error {
	if e.Meta().ID == "" {
		return &FieldError{Kind: e.Kind(), Field: "id", Err: ErrMissingField}
	}
	f := e.fields()
	for _, name := range e.required() {
		if s, _ := f[name].(string); s == "" {
			return &FieldError{Kind: e.Kind(), Field: name, Err: ErrMissingField}
		}
	}
	return nil
}

// ToDict renders every attribute of e: extras, typed fields, id, timestamps in
// TimeFormat, and the ClassKey discriminant.
func ToDict(e Entity) map[string]any {
	b := e.Meta()
	f := e.fields()
	d := make(map[string]any, len(b.Extra)+len(f)+4)
	for k, v := range b.Extra {
		d[k] = cloneValue(v)
	}
	for k, v := range f {
		d[k] = v
	}
	d["id"] = b.ID
	d["created_at"] = b.CreatedAt.Format(TimeFormat)
	d["updated_at"] = b.UpdatedAt.Format(TimeFormat)
	d[ClassKey] = string(e.Kind())
	return d
}

// secretKeys lists, per kind, attributes that PublicDict leaves out.
var secretKeys = map[Kind][]string{
	KindUser: {"password"},
}

// PublicDict is ToDict without secret attributes such as the password hash.
func PublicDict(e Entity) map[string]any {
	d := ToDict(e)
	for _, k := range secretKeys[e.Kind()] {
		delete(d, k)
	}
	return d
}

// Apply updates e from attrs, skipping the base keys, relationship names, and
// the kind's deny list (see UpdateDenied). UpdatedAt is bumped. Returns the
// keys that were applied. On error e may be partially modified, so callers
// apply to a clone.
func Apply(e Entity, attrs map[string]any) ([]string, error) {
	k := e.Kind()
	b := e.Meta()
	var applied []string
	for key, value := range attrs {
		if isUpdateDenied(k, key) {
			continue
		}
		known, err := e.setField(key, value)
		if err != nil {
			return nil, err
		}
		if !known {
			if b.Extra == nil {
				b.Extra = make(map[string]any)
			}
			b.Extra[key] = cloneValue(value)
		}
		applied = append(applied, key)
	}
	if err := Validate(e); err != nil {
		return nil, err
	}
	b.Touch()
	return applied, nil
}

// Clone returns a copy of e that shares no mutable state with it.
func Clone(e Entity) Entity {
	return e.clone()
}

// Field returns the value of a typed field or extra attribute by name.
func Field(e Entity, name string) (any, bool) {
	if v, ok := e.fields()[name]; ok {
		return v, true
	}
	v, ok := e.Meta().Extra[name]
	return v, ok
}

// ForeignKey returns the string value of a foreign-key field, or "".
func ForeignKey(e Entity, field string) string {
	s, _ := e.fields()[field].(string)
	return s
}

func cloneBase(b Base) Base {
	c := b
	if b.Extra != nil {
		c.Extra = make(map[string]any, len(b.Extra))
		for k, v := range b.Extra {
			c.Extra[k] = cloneValue(v)
		}
	}
	return c
}

// cloneValue copies the JSON container types so extras never alias caller
// data.
func cloneValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		m := make(map[string]any, len(t))
		for k, vv := range t {
			m[k] = cloneValue(vv)
		}
		return m
	case []any:
		s := make([]any, len(t))
		for i, vv := range t {
			s[i] = cloneValue(vv)
		}
		return s
	default:
		return v
	}
}

func parseTime(v any) (time.Time, error) {
	switch t := v.(type) {
	case time.Time:
		return t.UTC().Truncate(time.Microsecond), nil
	case string:
		if ts, err := time.Parse(TimeFormat, t); err == nil {
			return ts.UTC(), nil
		}
		ts, err := time.Parse(time.RFC3339Nano, t)
		if err != nil {
			return time.Time{}, fmt.Errorf("%w: %q is not a timestamp", ErrTypeMismatch, t)
		}
		return ts.UTC().Truncate(time.Microsecond), nil
	default:
		return time.Time{}, ErrTypeMismatch
	}
}

// Field assignment helpers. A nil value resets the field to its zero value.

func assignString(dst *string, k Kind, key string, v any) error {
	switch t := v.(type) {
	case nil:
		*dst = ""
	case string:
		*dst = t
	default:
		return &FieldError{Kind: k, Field: key, Err: ErrTypeMismatch}
	}
	return nil
}

func assignInt(dst *int, k Kind, key string, v any) error {
	switch t := v.(type) {
	case nil:
		*dst = 0
	case int:
		*dst = t
	case int64:
		*dst = int(t)
	case float64:
		if t != math.Trunc(t) {
			return &FieldError{Kind: k, Field: key, Err: ErrTypeMismatch}
		}
		*dst = int(t)
	case json.Number:
		n, err := t.Int64()
		if err != nil {
			return &FieldError{Kind: k, Field: key, Err: ErrTypeMismatch}
		}
		*dst = int(n)
	default:
		return &FieldError{Kind: k, Field: key, Err: ErrTypeMismatch}
	}
	return nil
}

func assignFloat(dst *float64, k Kind, key string, v any) error {
	switch t := v.(type) {
	case nil:
		*dst = 0
	case float64:
		*dst = t
	case float32:
		*dst = float64(t)
	case int:
		*dst = float64(t)
	case int64:
		*dst = float64(t)
	case json.Number:
		f, err := t.Float64()
		if err != nil {
			return &FieldError{Kind: k, Field: key, Err: ErrTypeMismatch}
		}
		*dst = f
	default:
		return &FieldError{Kind: k, Field: key, Err: ErrTypeMismatch}
	}
	return nil
}
