// Package dataloader aligns batch store results with the keys that were
// requested. Stores answer a multi-key read in whatever order suits them;
// callers such as Graph.Hydrate need the answer back in key order, with a
// per-key error for ids the store did not return.
//
//	recs, _ := store.Nodes(ctx, ids)
//	ordered, errs := dataloader.OrderByKeys(ids, recs, func(r relmap.NodeRecord) relmap.NativeID { return r.ID })
package dataloader

import "errors"

// ErrNotFound is returned for a key missing from a batch result.
var ErrNotFound = errors.New("dataloader: entity not found")

// KeyFunc extracts a key from a value.
type KeyFunc[K comparable, V any] func(V) K

// OrderByKeys reorders values to match the order of keys. The result has one
// slot per key; missing values are zero with ErrNotFound in the error slice.
func OrderByKeys[K comparable, V any](keys []K, values []V, keyFn KeyFunc[K, V]) ([]V, []error) {
	lookup := make(map[K]V, len(values))
	for _, v := range values {
		lookup[keyFn(v)] = v
	}
	result := make([]V, len(keys))
	errs := make([]error, len(keys))
	for i, key := range keys {
		if v, ok := lookup[key]; ok {
			result[i] = v
		} else {
			errs[i] = ErrNotFound
		}
	}
	return result, errs
}
