package stocked

import (
	"context"
	"fmt"
	"reflect"
	"time"

	"github.com/goliatone/go-stocked/layering"
	"github.com/goliatone/go-stocked/pkg/activity"
	"github.com/goliatone/go-stocked/pkg/keypath"
)

// Stock owns a value tree and the observers watching it. Writes never mutate
// a tree that was already handed out: every mutation builds new containers
// along the written path and publishes the result as the new tree.
//
// Stock is not safe for concurrent use.
type Stock[T any] struct {
	cfg       stockConfig
	initial   T
	values    T
	observers *Observers[T]
	emitter   *activity.Emitter
	evaluator Evaluator
}

// New creates a stock holding a deep copy of initial.
func New[T any](initial T, opts ...Option) *Stock[T] {
	cfg := applyOptions(opts)
	snapshot := layering.Clone(initial)
	s := &Stock[T]{
		cfg:       cfg,
		initial:   snapshot,
		values:    layering.Clone(snapshot),
		observers: NewObservers[T](),
		emitter:   activity.NewEmitter(cfg.activityHooks, cfg.activityConfig),
		evaluator: cfg.evaluator,
	}
	for _, err := range cfg.optionErrs {
		s.log(LogEvent{Level: LogLevelWarn, Operation: "stock.options", Err: err})
	}
	return s
}

// NewWithDefaults creates a stock whose initial tree is initial layered over
// defaults. Values present in initial win; missing branches come from
// defaults.
func NewWithDefaults[T any](initial, defaults T, opts ...Option) *Stock[T] {
	return New(layering.MergeLayers(initial, defaults), opts...)
}

// Name returns the label used in logs and activity events.
func (s *Stock[T]) Name() string {
	return s.cfg.name
}

// GetValue returns the value stored at path, or nil when nothing is stored
// there.
func (s *Stock[T]) GetValue(path keypath.Path) any {
	return keypath.Lookup(s.values, canonical(path))
}

// GetValues returns the current tree. Callers must treat it as read-only.
func (s *Stock[T]) GetValues() T {
	return s.values
}

// SetValue writes value at path and notifies the affected observers. An
// Updater or func(any) any value is applied to the current value instead of
// being stored.
func (s *Stock[T]) SetValue(path keypath.Path, value any) error {
	if fn, ok := asUpdater(value); ok {
		return s.Update(path, fn)
	}
	return s.write(path, value)
}

// Update replaces the value at path with fn(current).
func (s *Stock[T]) Update(path keypath.Path, fn Updater) error {
	if fn == nil {
		return fmt.Errorf("stocked: update %q: updater is nil", canonical(path).String())
	}
	return s.write(path, fn(keypath.Lookup(s.values, canonical(path))))
}

func (s *Stock[T]) write(path keypath.Path, value any) error {
	path = canonical(path)
	start := time.Now()
	previous := keypath.Lookup(s.values, path)

	next, err := keypath.Set(s.values, path, value)
	if err == nil {
		if tree, ok := toTree[T](next); ok {
			if err = s.checkTree(tree); err == nil {
				s.values = tree
			}
		} else {
			err = fmt.Errorf("%w: %T is not %s", ErrInvalidRootValue, next, treeTypeName[T]())
		}
	}
	if err != nil {
		s.log(LogEvent{
			Level:     LogLevelError,
			Operation: "stock.set_value",
			Path:      path.String(),
			Duration:  time.Since(start),
			Err:       err,
		})
		return err
	}

	stats := s.observers.notifySubTree(path, s.values)
	s.log(LogEvent{
		Level:     LogLevelDebug,
		Operation: "stock.set_value",
		Path:      path.String(),
		Paths:     pathStrings(stats.paths),
		Observers: stats.observers,
		Duration:  time.Since(start),
	})
	s.emit(activity.BuildValueSetEvent(activity.StockEventInput{
		Path:     path.String(),
		Paths:    pathStrings(stats.paths),
		OldValue: previous,
		NewValue: value,
		Stock:    s.stockContext(stats),
	}))
	return nil
}

// SetValues replaces the whole tree and notifies every observer. With
// WithValidation an invalid tree is rejected and nothing is published.
func (s *Stock[T]) SetValues(values T) error {
	start := time.Now()
	if err := s.checkTree(values); err != nil {
		s.log(LogEvent{
			Level:     LogLevelError,
			Operation: "stock.set_values",
			Duration:  time.Since(start),
			Err:       err,
		})
		return err
	}
	s.values = values
	stats := s.observers.notifyAll(s.values)
	s.log(LogEvent{
		Level:     LogLevelDebug,
		Operation: "stock.set_values",
		Paths:     pathStrings(stats.paths),
		Observers: stats.observers,
		Duration:  time.Since(start),
	})
	s.emit(activity.BuildValuesSetEvent(activity.StockEventInput{
		Paths: pathStrings(stats.paths),
		Stock: s.stockContext(stats),
	}))
	return nil
}

// ResetValues restores an independent copy of the initial tree and notifies
// every observer. With WithValidation an invalid initial tree is rejected
// like any other write.
func (s *Stock[T]) ResetValues() error {
	start := time.Now()
	reset := layering.Clone(s.initial)
	if err := s.checkTree(reset); err != nil {
		s.log(LogEvent{
			Level:     LogLevelError,
			Operation: "stock.reset_values",
			Duration:  time.Since(start),
			Err:       err,
		})
		return err
	}
	s.values = reset
	stats := s.observers.notifyAll(s.values)
	s.log(LogEvent{
		Level:     LogLevelDebug,
		Operation: "stock.reset_values",
		Paths:     pathStrings(stats.paths),
		Observers: stats.observers,
		Duration:  time.Since(start),
	})
	s.emit(activity.BuildValuesResetEvent(activity.StockEventInput{
		Paths: pathStrings(stats.paths),
		Stock: s.stockContext(stats),
	}))
	return nil
}

// Watch calls observer with the value at path after every write that touches
// path, an ancestor of it or a descendant of it. The returned cleanup is
// idempotent.
func (s *Stock[T]) Watch(path keypath.Path, observer Observer) func() {
	return s.observers.Watch(canonical(path), observer)
}

// WatchAll calls observer with the full tree after every write.
func (s *Stock[T]) WatchAll(observer func(T)) func() {
	return s.observers.WatchAll(observer)
}

// WatchBatchUpdates calls observer once per write with the full tree and the
// notified paths.
func (s *Stock[T]) WatchBatchUpdates(observer func(BatchUpdate[T])) func() {
	return s.observers.WatchBatchUpdates(observer)
}

// IsObserved reports whether any observer is registered at exactly path.
func (s *Stock[T]) IsObserved(path keypath.Path) bool {
	return s.observers.IsObserved(canonical(path))
}

// Unwatch removes a registration by key. It fails with
// *UnregisteredObserverError when nothing matches.
func (s *Stock[T]) Unwatch(path keypath.Path, key ObserverKey) error {
	return s.observers.Unwatch(canonical(path), key)
}

// Observe registers observer at path and returns its key for Unwatch.
func (s *Stock[T]) Observe(path keypath.Path, observer Observer) (ObserverKey, error) {
	if observer == nil {
		return ObserverKey{}, ErrNilObserver
	}
	return s.observers.Observe(canonical(path), observer), nil
}

// ObservedPaths lists the paths with at least one observer.
func (s *Stock[T]) ObservedPaths() []keypath.Path {
	return s.observers.Paths()
}

// Source exposes the stock through the Source interface used by proxies and
// views.
func (s *Stock[T]) Source() Source {
	return stockSource[T]{stock: s}
}

func (s *Stock[T]) log(event LogEvent) {
	event.Stock = s.cfg.name
	s.cfg.loggerOrNoop().LogEvent(event)
}

func (s *Stock[T]) emit(event activity.Event) {
	if !s.emitter.Enabled() {
		return
	}
	event.OccurredAt = time.Now()
	if err := s.emitter.Emit(context.Background(), event); err != nil {
		s.log(LogEvent{
			Level:     LogLevelWarn,
			Operation: "stock.activity",
			Path:      event.ObjectID,
			Err:       err,
		})
	}
}

func (s *Stock[T]) stockContext(stats notifyStats) activity.StockContext {
	return activity.StockContext{Name: s.cfg.name, BatchID: stats.id.String()}
}

// canonical maps the empty path onto Root so both address the same bucket.
func canonical(path keypath.Path) keypath.Path {
	if path.IsEmpty() {
		return keypath.Root()
	}
	return path
}

func asUpdater(value any) (Updater, bool) {
	switch fn := value.(type) {
	case Updater:
		return fn, fn != nil
	case func(any) any:
		return fn, fn != nil
	}
	return nil, false
}

// toTree converts a root value back to the tree type. nil is accepted for
// tree types that can hold it.
func toTree[T any](value any) (T, bool) {
	if typed, ok := value.(T); ok {
		return typed, true
	}
	var zero T
	if value == nil {
		switch reflect.TypeOf(&zero).Elem().Kind() {
		case reflect.Interface, reflect.Map, reflect.Slice, reflect.Pointer:
			return zero, true
		}
	}
	return zero, false
}

func treeTypeName[T any]() string {
	var zero T
	return reflect.TypeOf(&zero).Elem().String()
}

func pathStrings(paths []keypath.Path) []string {
	if len(paths) == 0 {
		return nil
	}
	out := make([]string, len(paths))
	for i, path := range paths {
		out[i] = path.String()
	}
	return out
}

type stockSource[T any] struct {
	stock *Stock[T]
}

func (s stockSource[T]) GetValue(path keypath.Path) (any, error) {
	return s.stock.GetValue(path), nil
}

func (s stockSource[T]) SetValue(path keypath.Path, value any) error {
	return s.stock.SetValue(path, value)
}

func (s stockSource[T]) Watch(path keypath.Path, observer Observer) (func(), error) {
	if observer == nil {
		return nil, ErrNilObserver
	}
	return s.stock.Watch(path, observer), nil
}
