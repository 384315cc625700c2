package ecs

import (
	"reflect"

	"github.com/rotisserie/eris"
)

// ComponentType is the small integer id of a registered component type.
type ComponentType uint8

// MessageType is the id of a registered message type.
type MessageType uint16

type componentInfo struct {
	typ     reflect.Type
	name    string
	newPool func() componentPool
}

// ComponentRegistry holds the component and message schema. It carries no entity
// data, so one registry can back any number of worlds; each World instantiates its
// own pools from the registered factories.
type ComponentRegistry struct {
	components []componentInfo
	byType     map[reflect.Type]ComponentType
	byName     map[string]ComponentType

	messages      []reflect.Type
	messageNames  []string
	messageByType map[reflect.Type]MessageType
	messageByName map[string]MessageType
}

// NewComponentRegistry creates a new component registry.
func NewComponentRegistry() *ComponentRegistry {
	return &ComponentRegistry{
		byType:        make(map[reflect.Type]ComponentType),
		byName:        make(map[string]ComponentType),
		messageByType: make(map[reflect.Type]MessageType),
		messageByName: make(map[string]MessageType),
	}
}

// RegisterComponent registers T under its type name and returns its id. Registering
// the same type twice returns the existing id.
func RegisterComponent[T any](r *ComponentRegistry) ComponentType {
	t := reflect.TypeFor[T]()
	return RegisterComponentNamed[T](r, t.Name())
}

// RegisterComponentNamed registers T under an explicit name. The name is the key
// used by serialization.
func RegisterComponentNamed[T any](r *ComponentRegistry, name string) ComponentType {
	t := reflect.TypeFor[T]()
	if ct, ok := r.byType[t]; ok {
		return ct
	}

	// Components can be structs or primitives (int, string, etc.)
	// But not pointers, maps, channels, or functions (those aren't value types)
	switch t.Kind() {
	case reflect.Ptr, reflect.Map, reflect.Chan, reflect.Func, reflect.Interface:
		panic("components cannot be pointers, maps, channels, functions or interfaces: " + t.String())
	}
	if name == "" {
		name = t.String()
	}
	if _, taken := r.byName[name]; taken {
		panic("component name " + name + " already registered")
	}
	if len(r.components) >= MaxComponentTypes {
		panic(eris.Wrapf(ErrComponentSpaceExhausted, "registering %s", t))
	}

	ct := ComponentType(len(r.components))
	r.components = append(r.components, componentInfo{
		typ:  t,
		name: name,
		newPool: func() componentPool {
			return &blockPool[T]{}
		},
	})
	r.byType[t] = ct
	r.byName[name] = ct
	return ct
}

// ComponentTypeOf returns the id registered for T.
func ComponentTypeOf[T any](r *ComponentRegistry) (ComponentType, bool) {
	ct, ok := r.byType[reflect.TypeFor[T]()]
	return ct, ok
}

// TypeOf returns the id for a component value given either as T or *T.
func (r *ComponentRegistry) TypeOf(value any) (ComponentType, bool) {
	t := reflect.TypeOf(value)
	if t == nil {
		return 0, false
	}
	if t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	ct, ok := r.byType[t]
	return ct, ok
}

func (r *ComponentRegistry) typeFor(t reflect.Type) (ComponentType, bool) {
	ct, ok := r.byType[t]
	return ct, ok
}

// Lookup returns the id registered under name.
func (r *ComponentRegistry) Lookup(name string) (ComponentType, bool) {
	ct, ok := r.byName[name]
	return ct, ok
}

// Name returns the registered name of a component type.
func (r *ComponentRegistry) Name(ct ComponentType) string {
	if int(ct) >= len(r.components) {
		return ""
	}
	return r.components[ct].name
}

// Type returns the Go type of a component type.
func (r *ComponentRegistry) Type(ct ComponentType) reflect.Type {
	if int(ct) >= len(r.components) {
		return nil
	}
	return r.components[ct].typ
}

// Len returns the number of registered component types.
func (r *ComponentRegistry) Len() int {
	return len(r.components)
}

// Names returns the names of the component types in the mask.
func (r *ComponentRegistry) Names(m Mask) []string {
	types := m.Types()
	names := make([]string, len(types))
	for i, ct := range types {
		names[i] = r.Name(ct)
	}
	return names
}

// RegisterMessage registers T as a message type and returns its id.
func RegisterMessage[T any](r *ComponentRegistry) MessageType {
	t := reflect.TypeFor[T]()
	if mt, ok := r.messageByType[t]; ok {
		return mt
	}
	name := t.Name()
	if name == "" {
		name = t.String()
	}
	if _, taken := r.messageByName[name]; taken {
		panic("message name " + name + " already registered")
	}

	mt := MessageType(len(r.messages))
	r.messages = append(r.messages, t)
	r.messageNames = append(r.messageNames, name)
	r.messageByType[t] = mt
	r.messageByName[name] = mt
	return mt
}

// MessageTypeOf returns the id registered for the dynamic type of msg.
func (r *ComponentRegistry) MessageTypeOf(msg any) (MessageType, bool) {
	t := reflect.TypeOf(msg)
	if t == nil {
		return 0, false
	}
	mt, ok := r.messageByType[t]
	return mt, ok
}

// LookupMessage returns the message id registered under name.
func (r *ComponentRegistry) LookupMessage(name string) (MessageType, bool) {
	mt, ok := r.messageByName[name]
	return mt, ok
}

// MessageName returns the registered name of a message type.
func (r *ComponentRegistry) MessageName(mt MessageType) string {
	if int(mt) >= len(r.messageNames) {
		return ""
	}
	return r.messageNames[mt]
}

// MessageGoType returns the Go type of a message type.
func (r *ComponentRegistry) MessageGoType(mt MessageType) reflect.Type {
	if int(mt) >= len(r.messages) {
		return nil
	}
	return r.messages[mt]
}
