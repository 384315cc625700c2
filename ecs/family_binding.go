package ecs

import (
	"iter"
	"reflect"
	"strings"
	"unsafe"

	"github.com/rotisserie/eris"
)

type bindingField struct {
	offset uintptr
	ct     ComponentType
	col    int
}

// FamilyBinding is a system's typed view over one Family.
//
// T must be a struct of component pointers. Embedded fields are required; named
// fields are required unless tagged `ecs:"optional"`. Adding `read` to the tag
// (`ecs:"read"` or `ecs:"optional,read"`) declares read-only access. A field of type
// EntityId receives the record's entity id.
//
//	type Movers struct {
//		*Position
//		Velocity *Velocity `ecs:"read"`
//		Sprite   *Sprite   `ecs:"optional"`
//		ID       ecs.EntityId
//	}
//
// Systems declare bindings as fields; World.AddSystem binds them.
type FamilyBinding[T any] struct {
	world  *World
	fam    *Family
	fields []bindingField

	idOffset uintptr
	hasID    bool
}

// NewFamilyBinding binds T to its family in w, creating the family on first request.
func NewFamilyBinding[T any](w *World) *FamilyBinding[T] {
	b := &FamilyBinding[T]{}
	b.Bind(w)
	return b
}

// Bind resolves the family for T in w. It is called by World.AddSystem for binding
// fields and is a no-op when already bound to w.
func (b *FamilyBinding[T]) Bind(w *World) {
	if b.world == w && b.fam != nil {
		return
	}

	structType := reflect.TypeFor[T]()
	if structType.Kind() != reflect.Struct {
		panic("FamilyBinding type parameter must be a struct")
	}

	var include, optional, read Mask
	fields := make([]bindingField, 0, structType.NumField())
	b.hasID = false

	for i := 0; i < structType.NumField(); i++ {
		field := structType.Field(i)

		if field.Type == reflect.TypeFor[EntityId]() {
			b.idOffset = field.Offset
			b.hasID = true
			continue
		}
		if field.Type.Kind() != reflect.Ptr {
			panic("FamilyBinding struct fields must be pointer types: " + field.Name)
		}

		ct, ok := w.registry.typeFor(field.Type.Elem())
		if !ok {
			panic(eris.Wrapf(ErrUnknownComponent, "%s in %s", field.Type.Elem(), structType))
		}

		isOptional, isRead := parseBindingTag(field)
		if isOptional {
			optional = optional.With(ct)
		} else {
			include = include.With(ct)
		}
		if isRead {
			read = read.With(ct)
		}
		fields = append(fields, bindingField{offset: field.Offset, ct: ct})
	}

	if include.IsEmpty() {
		panic(eris.Wrapf(ErrEmptyFamily, "%s", structType))
	}

	write := include.Or(optional)
	for _, ct := range read.Types() {
		write = write.Without(ct)
	}

	b.world = w
	b.fam = w.getFamily(include, write, optional)
	for i := range fields {
		fields[i].col = b.fam.Column(fields[i].ct)
	}
	b.fields = fields
}

func parseBindingTag(field reflect.StructField) (optional, read bool) {
	tag := field.Tag.Get("ecs")
	if tag == "" {
		return false, false
	}
	for _, opt := range strings.Split(tag, ",") {
		switch opt {
		case "optional":
			// Embedded fields are always required
			if field.Anonymous {
				panic("embedded field " + field.Name + " cannot be optional")
			}
			optional = true
		case "read":
			read = true
		default:
			panic("invalid ecs tag value: \"" + opt + "\" (only \"optional\" and \"read\" are supported)")
		}
	}
	return optional, read
}

// Family returns the bound family.
func (b *FamilyBinding[T]) Family() *Family {
	return b.fam
}

func (b *FamilyBinding[T]) family() *Family {
	return b.fam
}

// Len returns the number of records in the family.
func (b *FamilyBinding[T]) Len() int {
	if b.fam == nil {
		return 0
	}
	return b.fam.Count()
}

// Fill populates out with record i. Missing optional components are set to nil.
func (b *FamilyBinding[T]) Fill(i int, out *T) {
	structPtr := unsafe.Pointer(out)
	for _, f := range b.fields {
		fieldPtr := unsafe.Add(structPtr, f.offset)
		*(*unsafe.Pointer)(fieldPtr) = b.fam.Component(i, f.col)
	}
	if b.hasID {
		*(*EntityId)(unsafe.Add(structPtr, b.idOffset)) = b.fam.EntityID(i)
	}
}

// At returns record i.
func (b *FamilyBinding[T]) At(i int) T {
	var result T
	b.Fill(i, &result)
	return result
}

// ID returns the entity id of record i.
func (b *FamilyBinding[T]) ID(i int) EntityId {
	return b.fam.EntityID(i)
}

// Entity returns the entity of record i.
func (b *FamilyBinding[T]) Entity(i int) *Entity {
	return b.world.arena.get(b.fam.EntityID(i))
}

// Get returns the record for id, or false if the entity is not a member.
func (b *FamilyBinding[T]) Get(id EntityId) (T, bool) {
	var result T
	if b.fam == nil {
		return result, false
	}
	i, ok := b.fam.Index(id)
	if !ok {
		return result, false
	}
	b.Fill(i, &result)
	return result, true
}

// Iter returns an iterator over (record index, record) pairs.
func (b *FamilyBinding[T]) Iter() iter.Seq2[int, T] {
	return func(yield func(int, T) bool) {
		if b.fam == nil {
			return
		}
		var result T
		for i := 0; i < b.fam.Count(); i++ {
			b.Fill(i, &result)
			if !yield(i, result) {
				return
			}
		}
	}
}

// Values returns an iterator over just the records.
func (b *FamilyBinding[T]) Values() iter.Seq[T] {
	return func(yield func(T) bool) {
		for _, value := range b.Iter() {
			if !yield(value) {
				return
			}
		}
	}
}
