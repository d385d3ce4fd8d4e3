/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package entitysync

// Field is a named, statically typed accessor over one field of T. Descriptors
// list every mutable field of an entity type so that merging and diffing need
// no reflection over T.
type Field[T any] struct {
	Name string
	// Get returns the field value and whether it is set. Unset fields of an
	// update payload mean "leave unchanged".
	Get func(entity T) (any, bool)
	// Set copies the field from src onto dst.
	Set func(dst *T, src T)
}

// PointerField describes a field encoded as *V, where nil means unset.
//
//	entitysync.PointerField("Name", func(u *User) **string { return &u.Name })
func PointerField[T any, V any](name string, ref func(*T) **V) Field[T] {
	return Field[T]{
		Name: name,
		Get: func(entity T) (any, bool) {
			p := *ref(&entity)
			if p == nil {
				return nil, false
			}
			return *p, true
		},
		Set: func(dst *T, src T) {
			p := *ref(&src)
			if p == nil {
				*ref(dst) = nil
				return
			}
			v := *p
			*ref(dst) = &v
		},
	}
}

// ValueField describes a plain field, where the zero value of V means unset.
// A payload built from such fields cannot reset a value to zero.
func ValueField[T any, V comparable](name string, ref func(*T) *V) Field[T] {
	return Field[T]{
		Name: name,
		Get: func(entity T) (any, bool) {
			var zero V
			v := *ref(&entity)
			if v == zero {
				return nil, false
			}
			return v, true
		},
		Set: func(dst *T, src T) {
			*ref(dst) = *ref(&src)
		},
	}
}
