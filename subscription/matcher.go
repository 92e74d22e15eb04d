// Package subscription matches processed data points against consumer
// subscriptions.
package subscription

import (
	"reflect"

	"github.com/gapilongo/OPiN/types"
)

// Match returns the subscriptions the point should be delivered to, in the
// same order they appear in the input.
//
// Match is pure: it never mutates the point or the subscriptions, and equal
// inputs always produce equal output. A subscription matches when it is
// active, its category equals the point's, and every entry of its filter map
// agrees with the point. An empty filter map matches every point of the
// category.
func Match(point *types.DataPoint, subs []*types.Subscription) []*types.Subscription {
	var matched []*types.Subscription
	for _, sub := range subs {
		if Matches(point, sub) {
			matched = append(matched, sub)
		}
	}
	return matched
}

// Matches reports whether a single subscription matches the point.
func Matches(point *types.DataPoint, sub *types.Subscription) bool {
	if !sub.Active || sub.Category != point.Category {
		return false
	}
	for key, want := range sub.Filters {
		if !pointHasField(point, key, want) {
			return false
		}
	}
	return true
}

// pointHasField looks for an equal value under the key in the structured
// value or the metadata. Comparison is deep: filter values coming off the
// wire can be nested maps or arrays, which == would panic on.
func pointHasField(point *types.DataPoint, key string, want any) bool {
	if record, ok := point.Value.Structured(); ok {
		if got, present := record[key]; present && reflect.DeepEqual(got, want) {
			return true
		}
	}
	if got, present := point.Metadata[key]; present && reflect.DeepEqual(got, want) {
		return true
	}
	return false
}
