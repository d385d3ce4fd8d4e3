/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package entitysync

import (
	"reflect"
)

// Merge returns the after-images of an update: a copy of every before-image
// with the set fields of payload written over it. Unset payload fields keep
// the stored value.
func Merge[T any](fields []Field[T], payload T, before []T) []T {
	after := make([]T, 0, len(before))
	for _, b := range before {
		a := b
		for _, f := range fields {
			if _, ok := f.Get(payload); ok {
				f.Set(&a, payload)
			}
		}
		after = append(after, a)
	}
	return after
}

// ModifiedFields returns, in declaration order, the names of the payload
// fields that are set and differ from the stored value in at least one
// before-image. The result describes the batch as a whole: a field that
// changes for one record is reported for all of them.
func ModifiedFields[T any](fields []Field[T], payload T, before []T) []string {
	modified := make([]string, 0, len(fields))
	for _, f := range fields {
		want, ok := f.Get(payload)
		if !ok {
			continue
		}
		for _, b := range before {
			got, set := f.Get(b)
			if !set || !reflect.DeepEqual(got, want) {
				modified = append(modified, f.Name)
				break
			}
		}
	}
	return modified
}
