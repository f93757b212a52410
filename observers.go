package stocked

import (
	"slices"

	"github.com/goliatone/go-stocked/pkg/keypath"
	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"
)

// ObserverKey identifies a single registration.
type ObserverKey uuid.UUID

func (k ObserverKey) String() string {
	return uuid.UUID(k).String()
}

func newObserverKey() ObserverKey {
	return ObserverKey(uuid.New())
}

type observerEntry[F any] struct {
	key ObserverKey
	fn  F
}

type observerBucket struct {
	path    keypath.Path
	entries []observerEntry[Observer]
}

// Observers keeps per-path observer buckets plus the batch update channel. A
// bucket exists only while it holds at least one observer. Observers is not
// safe for concurrent use; the owning Stock serialises access.
type Observers[T any] struct {
	buckets map[keypath.Key]*observerBucket
	order   []keypath.Key
	batch   []observerEntry[func(BatchUpdate[T])]
}

// NewObservers constructs an empty registry.
func NewObservers[T any]() *Observers[T] {
	return &Observers[T]{
		buckets: make(map[keypath.Key]*observerBucket),
	}
}

// Observe registers observer at path and returns its key.
func (o *Observers[T]) Observe(path keypath.Path, observer Observer) ObserverKey {
	key := path.Key()
	bucket, ok := o.buckets[key]
	if !ok {
		bucket = &observerBucket{path: path}
		o.buckets[key] = bucket
		o.order = append(o.order, key)
	}
	entry := observerEntry[Observer]{key: newObserverKey(), fn: observer}
	bucket.entries = append(bucket.entries, entry)
	return entry.key
}

// Unwatch removes the registration identified by key at path.
func (o *Observers[T]) Unwatch(path keypath.Path, key ObserverKey) error {
	bucketKey := path.Key()
	bucket, ok := o.buckets[bucketKey]
	if !ok {
		return &UnregisteredObserverError{Path: path, Key: key}
	}
	idx := slices.IndexFunc(bucket.entries, func(e observerEntry[Observer]) bool { return e.key == key })
	if idx < 0 {
		return &UnregisteredObserverError{Path: path, Key: key}
	}
	// Replace rather than edit in place: notification passes hold the old slice.
	bucket.entries = slices.Delete(slices.Clone(bucket.entries), idx, idx+1)
	if len(bucket.entries) == 0 {
		delete(o.buckets, bucketKey)
		o.order = slices.DeleteFunc(slices.Clone(o.order), func(k keypath.Key) bool { return k == bucketKey })
	}
	return nil
}

// Watch registers observer at path. The returned cleanup removes exactly this
// registration and is safe to call more than once.
func (o *Observers[T]) Watch(path keypath.Path, observer Observer) func() {
	if observer == nil {
		return func() {}
	}
	key := o.Observe(path, observer)
	done := false
	return func() {
		if done {
			return
		}
		done = true
		_ = o.Unwatch(path, key)
	}
}

// WatchAll registers observer for the whole tree.
func (o *Observers[T]) WatchAll(observer func(T)) func() {
	if observer == nil {
		return func() {}
	}
	return o.Watch(keypath.Root(), func(value any) {
		typed, _ := value.(T)
		observer(typed)
	})
}

// WatchBatchUpdates registers observer on the batch update channel.
func (o *Observers[T]) WatchBatchUpdates(observer func(BatchUpdate[T])) func() {
	if observer == nil {
		return func() {}
	}
	entry := observerEntry[func(BatchUpdate[T])]{key: newObserverKey(), fn: observer}
	o.batch = append(o.batch, entry)
	done := false
	return func() {
		if done {
			return
		}
		done = true
		o.batch = slices.DeleteFunc(slices.Clone(o.batch), func(e observerEntry[func(BatchUpdate[T])]) bool {
			return e.key == entry.key
		})
	}
}

// IsObserved reports whether an observer is registered at exactly path.
func (o *Observers[T]) IsObserved(path keypath.Path) bool {
	_, ok := o.buckets[path.Key()]
	return ok
}

// Paths returns the observed paths in bucket creation order.
func (o *Observers[T]) Paths() []keypath.Path {
	out := make([]keypath.Path, 0, len(o.order))
	for _, key := range o.order {
		out = append(out, o.buckets[key].path)
	}
	return out
}

// NotifySubTree notifies every observer whose path equals path, lies under it
// or contains it, then emits one batch update.
func (o *Observers[T]) NotifySubTree(path keypath.Path, values T) {
	o.notifySubTree(path, values)
}

// NotifyAll notifies every registered observer.
func (o *Observers[T]) NotifyAll(values T) {
	o.notifyAll(values)
}

type notifyStats struct {
	id        ulid.ULID
	paths     []keypath.Path
	observers int
	batch     int
}

func (o *Observers[T]) notifySubTree(path keypath.Path, values T) notifyStats {
	var affected []keypath.Path
	for _, key := range o.order {
		candidate := o.buckets[key].path
		if keypath.Related(path, candidate) {
			affected = append(affected, candidate)
		}
	}
	return o.notifyPaths(affected, values)
}

func (o *Observers[T]) notifyAll(values T) notifyStats {
	return o.notifyPaths(o.Paths(), values)
}

func (o *Observers[T]) notifyPaths(paths []keypath.Path, values T) notifyStats {
	type pending struct {
		path    keypath.Path
		entries []observerEntry[Observer]
	}
	// Snapshot everything before the first callback runs so observers that
	// subscribe or unsubscribe only affect later passes.
	queue := make([]pending, 0, len(paths))
	stats := notifyStats{paths: paths, batch: len(o.batch)}
	for _, path := range paths {
		bucket, ok := o.buckets[path.Key()]
		if !ok {
			continue
		}
		queue = append(queue, pending{path: path, entries: bucket.entries})
		stats.observers += len(bucket.entries)
	}
	batch := o.batch

	update := BatchUpdate[T]{
		ID:     ulid.Make(),
		Paths:  slices.Clone(paths),
		Values: values,
	}
	stats.id = update.ID
	for _, entry := range batch {
		entry.fn(update)
	}

	for _, item := range queue {
		value := keypath.Lookup(values, item.path)
		for _, entry := range item.entries {
			entry.fn(value)
		}
	}
	return stats
}
