package debugui

import (
	"reflect"
	"sync"

	"github.com/plus3/famecs/ecs"
)

// FieldKind tells the component inspector how to draw a field.
type FieldKind uint8

const (
	FieldScalar     FieldKind = iota // editable in place
	FieldStruct                      // expanded as a tree node
	FieldPointer                     // shown read-only through the pointer
	FieldCollection                  // slice, array or map; only the length is shown
	FieldOther
)

// Field is one exported field of a component struct. Index is the step a
// SetField path takes to reach it.
type Field struct {
	Name    string
	Index   int
	Type    reflect.Type
	Kind    FieldKind
	Purpose ecs.Purpose
}

// FieldLayouts caches the inspectable fields of component types.
type FieldLayouts struct {
	layouts sync.Map // reflect.Type -> []Field
}

func NewFieldLayouts() *FieldLayouts {
	return &FieldLayouts{}
}

// Fields returns the exported fields of t in declaration order. Non-struct
// types have none.
func (l *FieldLayouts) Fields(t reflect.Type) []Field {
	if cached, ok := l.layouts.Load(t); ok {
		return cached.([]Field)
	}

	var fields []Field
	if t.Kind() == reflect.Struct {
		for i := 0; i < t.NumField(); i++ {
			sf := t.Field(i)
			if !sf.IsExported() {
				continue
			}
			purpose, err := ecs.ParsePurpose(sf.Tag.Get("purpose"))
			if err != nil {
				purpose = ecs.PurposeAll
			}
			fields = append(fields, Field{
				Name:    sf.Name,
				Index:   i,
				Type:    sf.Type,
				Kind:    kindOf(sf.Type),
				Purpose: purpose,
			})
		}
	}

	actual, _ := l.layouts.LoadOrStore(t, fields)
	return actual.([]Field)
}

func kindOf(t reflect.Type) FieldKind {
	switch t.Kind() {
	case reflect.Bool, reflect.String,
		reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		return FieldScalar
	case reflect.Struct:
		return FieldStruct
	case reflect.Ptr:
		return FieldPointer
	case reflect.Slice, reflect.Array, reflect.Map:
		return FieldCollection
	}
	return FieldOther
}

var inspectorLayouts = NewFieldLayouts()
