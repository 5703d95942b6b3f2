package binding

import (
	"reflect"
	"sort"
	"sync"

	"go.uber.org/zap"

	crosswalk "github.com/crosswalk-project/crosswalk-sub003"
	"github.com/crosswalk-project/crosswalk-sub003/errors"
)

// Store holds the live binding objects of one extension instance, keyed by
// the object ids the script side mints.
type Store struct {
	objects    map[string]Object
	contextFor ContextFunc
	observers  []Observer
	mu         sync.RWMutex
	obsMu      sync.RWMutex
	closed     bool
}

// NewStore creates an empty store. contextFor may be nil, in which case bound
// objects get no notification context.
func NewStore(contextFor ContextFunc) *Store {
	return &Store{
		objects:    make(map[string]Object),
		contextFor: contextFor,
	}
}

// Register binds obj under id. It returns false, keeping any existing
// binding, when obj or its base is nil, when id is taken, when obj is
// already bound, when obj was released earlier, or when the store is closed.
func (s *Store) Register(id string, obj Object) bool {
	if IsNil(obj) {
		return false
	}
	base := obj.Binding()
	if base == nil {
		Logger().Warn("binding object has no base", zap.String("id", id))
		return false
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		Logger().Warn("store closed, rejecting binding", zap.String("id", id))
		return false
	}
	if _, exists := s.objects[id]; exists {
		s.mu.Unlock()
		Logger().Warn("existing binding object", zap.String("id", id))
		return false
	}
	switch base.state {
	case stateBound:
		s.mu.Unlock()
		Logger().Warn("object already bound", zap.String("id", id), zap.Error(errors.AlreadyBound(base.id)))
		return false
	case stateReleased:
		s.mu.Unlock()
		Logger().Warn("released object cannot be rebound", zap.String("id", id))
		return false
	}
	base.id = id
	base.state = stateBound
	if s.contextFor != nil {
		base.ctx = s.contextFor(id, obj)
	}
	s.objects[id] = obj
	s.mu.Unlock()

	if h, ok := obj.(Hooks); ok {
		h.OnBound()
	}
	s.notify(Event{Type: EventBound, ID: id, Value: obj})
	return true
}

// Get retrieves an object by id.
func (s *Store) Get(id string) (Object, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	obj, ok := s.objects[id]
	return obj, ok
}

// Unregister removes the object bound under id. OnUnbound runs before the
// object leaves the store. Unknown ids are ignored.
func (s *Store) Unregister(id string) (Object, bool) {
	obj, ok := s.Get(id)
	if !ok {
		return nil, false
	}
	if h, ok := obj.(Hooks); ok {
		h.OnUnbound()
	}

	s.mu.Lock()
	if cur, ok := s.objects[id]; !ok || cur != obj {
		s.mu.Unlock()
		return nil, false
	}
	delete(s.objects, id)
	obj.Binding().state = stateReleased
	s.mu.Unlock()

	s.notify(Event{Type: EventUnbound, ID: id, Value: obj})
	return obj, true
}

// Len returns the number of bound objects.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.objects)
}

// IDs returns the bound ids in sorted order.
func (s *Store) IDs() []string {
	s.mu.RLock()
	ids := make([]string, 0, len(s.objects))
	for id := range s.objects {
		ids = append(ids, id)
	}
	s.mu.RUnlock()
	sort.Strings(ids)
	return ids
}

// Each calls fn for every bound object until fn returns false.
func (s *Store) Each(fn func(id string, obj Object) bool) {
	for _, id := range s.IDs() {
		obj, ok := s.Get(id)
		if !ok {
			continue
		}
		if !fn(id, obj) {
			return
		}
	}
}

// Broadcast delivers a lifecycle transition to every bound object that
// implements crosswalk.Lifecycle. Objects removed during the broadcast are
// skipped.
func (s *Store) Broadcast(e crosswalk.LifecycleEvent) {
	s.Each(func(_ string, obj Object) bool {
		if l, ok := obj.(crosswalk.Lifecycle); ok {
			e.Deliver(l)
		}
		return true
	})
}

// Subscribe adds an observer for lifecycle events.
func (s *Store) Subscribe(o Observer) {
	s.obsMu.Lock()
	defer s.obsMu.Unlock()
	s.observers = append(s.observers, o)
}

// Unsubscribe removes an observer.
func (s *Store) Unsubscribe(o Observer) {
	s.obsMu.Lock()
	defer s.obsMu.Unlock()
	for i, obs := range s.observers {
		if obs == o {
			s.observers = append(s.observers[:i], s.observers[i+1:]...)
			return
		}
	}
}

// Clear unbinds every object.
func (s *Store) Clear() {
	for _, id := range s.IDs() {
		s.Unregister(id)
	}
}

// Close unbinds every object and stops accepting registrations.
func (s *Store) Close() error {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()

	s.Clear()
	return nil
}

func (s *Store) notify(e Event) {
	s.obsMu.RLock()
	defer s.obsMu.RUnlock()
	for _, o := range s.observers {
		o.OnBindingEvent(e)
	}
}

// IsNil reports whether obj is nil or a nil pointer.
func IsNil(obj Object) bool {
	if obj == nil {
		return true
	}
	rv := reflect.ValueOf(obj)
	return rv.Kind() == reflect.Pointer && rv.IsNil()
}
