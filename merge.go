package core

import (
	"reflect"
	"time"

	goerrors "github.com/goliatone/go-errors"
)

// Payload is the loosely typed bag of named fields carried by update
// requests. Key presence means the field was sent; a nil value means null.
type Payload map[string]any

// Field describes one mergeable field of an entity: its wire name, whether
// null is an assignable value, and the coerce-compare-assign closure built by
// FieldOf or NullableFieldOf. Declaring fields explicitly turns a typo into a
// compile or test failure instead of a silently ignored payload key.
type Field[T any] struct {
	Name     string
	Nullable bool

	get   func(T) any
	apply func(T, any) (bool, error)
}

// Value returns the field's current value on target.
func (f Field[T]) Value(target T) any {
	return f.get(target)
}

// FieldOf builds a descriptor for a non-nullable field.
func FieldOf[T any, V comparable](name string, get func(T) V, set func(T, V)) Field[T] {
	return Field[T]{
		Name: name,
		get:  func(t T) any { return get(t) },
		apply: func(t T, raw any) (bool, error) {
			v, err := coerce[V](name, raw)
			if err != nil {
				return false, err
			}
			if get(t) == v {
				return false, nil
			}
			set(t, v)
			return true, nil
		},
	}
}

// NullableFieldOf builds a descriptor for a field that may be nulled out by a
// full update.
func NullableFieldOf[T any, V comparable](name string, get func(T) *V, set func(T, *V)) Field[T] {
	return Field[T]{
		Name:     name,
		Nullable: true,
		get: func(t T) any {
			cur := get(t)
			if cur == nil {
				return nil
			}
			return *cur
		},
		apply: func(t T, raw any) (bool, error) {
			if raw == nil {
				if get(t) == nil {
					return false, nil
				}
				set(t, nil)
				return true, nil
			}

			v, err := coerce[V](name, raw)
			if err != nil {
				return false, err
			}

			cur := get(t)
			if cur != nil && *cur == v {
				return false, nil
			}
			set(t, &v)
			return true, nil
		},
	}
}

// Schema is the ordered field-descriptor table for one entity type.
type Schema[T Entity] struct {
	fields []Field[T]
}

func NewSchema[T Entity](fields ...Field[T]) *Schema[T] {
	return &Schema[T]{fields: fields}
}

// Fields exposes the descriptor table, mostly for tests and documentation.
func (s *Schema[T]) Fields() []Field[T] {
	return s.fields
}

// Merge applies patch onto target under PATCH (partial=true) or PUT
// (partial=false) rules and returns the number of fields that changed.
//
// Skip rules, in order:
//   - the field was not sent;
//   - null on a partial update (don't touch what wasn't sent);
//   - null on a full update against a non-nullable field (a full update does
//     not guarantee replacement of non-nullable fields lacking payload data);
//   - the new value equals the current value (a no-op is not a change).
//
// Payload keys without a descriptor are ignored. Merge never touches
// timestamps; that is the caller's job, and only when the count is positive.
func (s *Schema[T]) Merge(target T, patch Payload, partial bool) (int, error) {
	changes := 0

	for _, f := range s.fields {
		raw, sent := patch[f.Name]
		if !sent {
			continue
		}

		if raw == nil {
			if partial {
				continue
			}
			if !f.Nullable {
				continue
			}
		}

		changed, err := f.apply(target, raw)
		if err != nil {
			return changes, err
		}
		if changed {
			changes++
		}
	}

	return changes, nil
}

// coerce converts a JSON-decoded payload value to the field's static type.
// Numbers arrive as float64 and times as RFC3339 strings.
func coerce[V comparable](field string, raw any) (V, error) {
	var zero V

	if v, ok := raw.(V); ok {
		return v, nil
	}

	if _, wantTime := any(zero).(time.Time); wantTime {
		if s, ok := raw.(string); ok {
			if ts, err := time.Parse(time.RFC3339, s); err == nil {
				return any(ts).(V), nil
			}
		}
	}

	rv := reflect.ValueOf(raw)
	vt := reflect.TypeOf(zero)
	if rv.IsValid() && vt != nil && isNumericKind(rv.Kind()) && isNumericKind(vt.Kind()) {
		return rv.Convert(vt).Interface().(V), nil
	}

	return zero, goerrors.New("invalid value for field "+field, goerrors.CategoryBadInput)
}

func isNumericKind(k reflect.Kind) bool {
	switch k {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		return true
	default:
		return false
	}
}

// UserSchema lists the user fields an update payload may touch. Username
// changes are allowed; password and id are deliberately absent, they move
// through dedicated operations only.
var UserSchema = NewSchema(
	FieldOf("username",
		func(u *User) string { return u.Username },
		func(u *User, v string) { u.Username = v }),
	FieldOf("email",
		func(u *User) string { return u.Email },
		func(u *User, v string) { u.Email = v }),
	FieldOf("first_name",
		func(u *User) string { return u.FirstName },
		func(u *User, v string) { u.FirstName = v }),
	FieldOf("last_name",
		func(u *User) string { return u.LastName },
		func(u *User, v string) { u.LastName = v }),
	FieldOf("role",
		func(u *User) Role { return u.Role },
		func(u *User, v Role) { u.Role = v }),
)

// ApiKeySchema lists the API key fields an update payload may touch. The key
// secret itself is not mergeable.
var ApiKeySchema = NewSchema(
	FieldOf("enabled",
		func(k *ApiKey) bool { return k.Enabled },
		func(k *ApiKey, v bool) { k.Enabled = v }),
	FieldOf("role",
		func(k *ApiKey) Role { return k.Role },
		func(k *ApiKey, v Role) { k.Role = v }),
	FieldOf("contact",
		func(k *ApiKey) string { return k.Contact },
		func(k *ApiKey, v string) { k.Contact = v }),
	FieldOf("email",
		func(k *ApiKey) string { return k.Email },
		func(k *ApiKey, v string) { k.Email = v }),
)
