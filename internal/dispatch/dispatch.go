// Package dispatch selects a kernel's compute routine at configure time.
//
// A Table maps a small discrete key, typically the tuple of data types a
// kernel is configured with, to the routines implementing it. Several
// routines may share a key: each declares the ISA features it requires and a
// priority, and Select returns the highest priority routine the host
// supports. Registering a portable routine under the key of a specialised
// one is how a key aliases to a fallback, such as F16 arithmetic promoted to
// F32 on hosts without vector FP16.
package dispatch

import (
	"errors"
	"fmt"
	"reflect"
	"slices"

	"github.com/born-ml/compute/internal/cpuinfo"
	"github.com/born-ml/compute/internal/logutil"
)

// ErrNotFound is returned by Select when no routine serves a key.
var ErrNotFound = errors.New("no matching implementation")

// Entry is one routine of a Table.
type Entry[K comparable, F any] struct {
	Name     string
	Key      K
	Requires cpuinfo.Feature
	Priority int
	Fn       F
}

// Table is an immutable list of routines. It is safe for concurrent use.
type Table[K comparable, F any] struct {
	name    string
	entries []Entry[K, F]
}

// NewTable returns a table named after the kernel it serves.
func NewTable[K comparable, F any](name string, entries ...Entry[K, F]) *Table[K, F] {
	for _, e := range entries {
		if v := reflect.ValueOf(e.Fn); !v.IsValid() || (v.Kind() == reflect.Func && v.IsNil()) {
			panic(fmt.Sprintf("dispatch %s: entry %q has no function", name, e.Name))
		}
	}
	return &Table[K, F]{name: name, entries: entries}
}

// Select returns the highest priority entry for key whose requirements are
// satisfied by features. Entries of equal priority keep registration order.
func (t *Table[K, F]) Select(key K, features cpuinfo.Feature) (Entry[K, F], error) {
	var (
		best  Entry[K, F]
		found bool
	)
	for _, e := range t.entries {
		if e.Key != key || !features.Has(e.Requires) {
			continue
		}
		if !found || e.Priority > best.Priority {
			best, found = e, true
		}
	}
	if !found {
		return best, fmt.Errorf("%s: %w for %v on %v", t.name, ErrNotFound, key, features)
	}
	logutil.Trace("dispatch selected", "kernel", t.name, "key", key, "routine", best.Name, "features", features)
	return best, nil
}

// Supports reports whether some routine serves key on a host with features.
func (t *Table[K, F]) Supports(key K, features cpuinfo.Feature) bool {
	_, err := t.Select(key, features)
	return err == nil
}

// Keys returns the distinct keys of the table in registration order.
func (t *Table[K, F]) Keys() []K {
	var keys []K
	for _, e := range t.entries {
		if !slices.Contains(keys, e.Key) {
			keys = append(keys, e.Key)
		}
	}
	return keys
}

// Names returns the routine names registered for key.
func (t *Table[K, F]) Names(key K) []string {
	var names []string
	for _, e := range t.entries {
		if e.Key == key {
			names = append(names, e.Name)
		}
	}
	return names
}
