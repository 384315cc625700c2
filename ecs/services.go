package ecs

import (
	"reflect"
	"sync"

	"github.com/rotisserie/eris"
)

type serviceEntry struct {
	name  string
	typ   reflect.Type
	once  sync.Once
	value any
	ctor  func() any
}

// services is the world's registry of shared singletons, keyed by type and name.
type services struct {
	mu     sync.Mutex
	byType map[reflect.Type]*serviceEntry
	byName map[string]*serviceEntry
}

func newServices() *services {
	return &services{
		byType: make(map[reflect.Type]*serviceEntry),
		byName: make(map[string]*serviceEntry),
	}
}

func (s *services) put(entry *serviceEntry) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if old, ok := s.byType[entry.typ]; ok {
		delete(s.byName, old.name)
	}
	s.byType[entry.typ] = entry
	s.byName[entry.name] = entry
}

// resolve runs a provided constructor on first use. It is called without s.mu held
// so constructors may look up the services they depend on.
func (entry *serviceEntry) resolve() any {
	entry.once.Do(func() {
		if entry.ctor != nil {
			entry.value = entry.ctor()
			entry.ctor = nil
		}
	})
	return entry.value
}

func (s *services) lookup(t reflect.Type) (*serviceEntry, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry, ok := s.byType[t]
	return entry, ok
}

func (s *services) byGoType(t reflect.Type) (any, bool) {
	entry, ok := s.lookup(t)
	if !ok {
		return nil, false
	}
	return entry.resolve(), true
}

func serviceName(t reflect.Type) string {
	if t.Kind() == reflect.Ptr && t.Name() == "" {
		t = t.Elem()
	}
	if t.Name() != "" {
		return t.Name()
	}
	return t.String()
}

// RegisterService makes svc available to systems under its type name. Registering
// a type again replaces the previous service.
func RegisterService[T any](w *World, svc T) {
	t := reflect.TypeFor[T]()
	RegisterNamedService(w, serviceName(t), svc)
}

// RegisterNamedService makes svc available under an explicit name.
func RegisterNamedService[T any](w *World, name string, svc T) {
	w.services.put(&serviceEntry{
		name:  name,
		typ:   reflect.TypeFor[T](),
		value: svc,
	})
}

// ProvideService registers a default constructor for T. It runs on the first lookup.
func ProvideService[T any](w *World, ctor func() T) {
	t := reflect.TypeFor[T]()
	w.services.put(&serviceEntry{
		name: serviceName(t),
		typ:  t,
		ctor: func() any { return ctor() },
	})
}

// Service returns the service registered for T.
func Service[T any](w *World) (T, error) {
	svc, ok := TryService[T](w)
	if !ok {
		return svc, eris.Wrapf(ErrServiceNotFound, "%s", reflect.TypeFor[T]())
	}
	return svc, nil
}

// TryService returns the service registered for T, or false.
func TryService[T any](w *World) (T, bool) {
	v, ok := w.services.byGoType(reflect.TypeFor[T]())
	if !ok {
		var zero T
		return zero, false
	}
	return v.(T), true
}

// ServiceByName returns the service registered under name.
func (w *World) ServiceByName(name string) (any, error) {
	w.services.mu.Lock()
	entry, ok := w.services.byName[name]
	w.services.mu.Unlock()
	if !ok {
		return nil, eris.Wrapf(ErrServiceNotFound, "%q", name)
	}
	return entry.resolve(), nil
}

// ServiceRef is a system field giving cached access to a service. World.AddSystem
// binds it; the service is looked up on the first Get and cached.
type ServiceRef[T any] struct {
	world    *World
	value    T
	resolved bool
}

// Bind attaches the ref to w. It is called by World.AddSystem.
func (r *ServiceRef[T]) Bind(w *World) {
	if r.world != w {
		r.world = w
		r.resolved = false
	}
}

// Get returns the service, panicking with ErrServiceNotFound if none is registered.
func (r *ServiceRef[T]) Get() T {
	v, ok := r.TryGet()
	if !ok {
		panic(eris.Wrapf(ErrServiceNotFound, "%s", reflect.TypeFor[T]()))
	}
	return v
}

// TryGet returns the service, or false if none is registered yet.
func (r *ServiceRef[T]) TryGet() (T, bool) {
	if r.resolved {
		return r.value, true
	}
	if r.world == nil {
		return r.value, false
	}
	v, ok := TryService[T](r.world)
	if !ok {
		return v, false
	}
	r.value = v
	r.resolved = true
	return v, true
}
