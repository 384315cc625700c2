package ecs

import (
	"reflect"
	"slices"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"
)

// Purpose selects which component fields a serialization carries.
type Purpose uint8

const (
	PurposeSave Purpose = 1 << iota
	PurposeNetwork
	PurposePrefab

	PurposeAll = PurposeSave | PurposeNetwork | PurposePrefab
)

func (p Purpose) String() string {
	var parts []string
	if p&PurposeSave != 0 {
		parts = append(parts, "save")
	}
	if p&PurposeNetwork != 0 {
		parts = append(parts, "network")
	}
	if p&PurposePrefab != 0 {
		parts = append(parts, "prefab")
	}
	if len(parts) == 0 {
		return "none"
	}
	return strings.Join(parts, ",")
}

// ParsePurpose parses a `purpose` struct tag value. An empty tag means every
// purpose; "-" means none.
func ParsePurpose(tag string) (Purpose, error) {
	switch tag {
	case "":
		return PurposeAll, nil
	case "-":
		return 0, nil
	}
	var p Purpose
	for _, part := range strings.Split(tag, ",") {
		switch strings.TrimSpace(part) {
		case "save":
			p |= PurposeSave
		case "network":
			p |= PurposeNetwork
		case "prefab":
			p |= PurposePrefab
		default:
			return 0, eris.Errorf("unknown purpose %q", part)
		}
	}
	return p, nil
}

type fieldPurpose struct {
	key     string
	purpose Purpose
	typ     reflect.Type
	rest    bool // inline map catching keys no other field claims
}

var fieldPurposeCache sync.Map // reflect.Type -> []fieldPurpose

func fieldPurposes(t reflect.Type) []fieldPurpose {
	if cached, ok := fieldPurposeCache.Load(t); ok {
		return cached.([]fieldPurpose)
	}
	fields := appendFieldPurposes(nil, t, PurposeAll)
	fieldPurposeCache.Store(t, fields)
	return fields
}

// appendFieldPurposes lists the mapping keys t encodes to. Inline fields are
// flattened into the parent, narrowed by the inline field's own purpose.
func appendFieldPurposes(fields []fieldPurpose, t reflect.Type, within Purpose) []fieldPurpose {
	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		if !field.IsExported() {
			continue
		}
		key := strings.ToLower(field.Name)
		inline := false
		if tag := field.Tag.Get("yaml"); tag != "" {
			name, opts, _ := strings.Cut(tag, ",")
			if name == "-" {
				continue
			}
			if name != "" {
				key = name
			}
			inline = slices.Contains(strings.Split(opts, ","), "inline")
		}
		purpose, err := ParsePurpose(field.Tag.Get("purpose"))
		if err != nil {
			panic(eris.Wrapf(err, "%s.%s", t, field.Name))
		}
		purpose &= within

		if inline {
			ft := field.Type
			for ft.Kind() == reflect.Ptr {
				ft = ft.Elem()
			}
			switch ft.Kind() {
			case reflect.Struct:
				fields = appendFieldPurposes(fields, ft, purpose)
				continue
			case reflect.Map:
				fields = append(fields, fieldPurpose{purpose: purpose, typ: ft.Elem(), rest: true})
				continue
			}
		}
		fields = append(fields, fieldPurpose{key: key, purpose: purpose, typ: field.Type})
	}
	return fields
}

// Sanitize strips from node every field of t that does not belong to purpose,
// recursing into nested structs, slices and maps.
func Sanitize(node *yaml.Node, t reflect.Type, purpose Purpose) {
	if node == nil || t == nil {
		return
	}
	if node.Kind == yaml.DocumentNode && len(node.Content) > 0 {
		node = node.Content[0]
	}
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}

	switch t.Kind() {
	case reflect.Struct:
		if node.Kind != yaml.MappingNode {
			return
		}
		fields := fieldPurposes(t)
		kept := node.Content[:0]
		for i := 0; i+1 < len(node.Content); i += 2 {
			key, value := node.Content[i], node.Content[i+1]
			idx := slices.IndexFunc(fields, func(f fieldPurpose) bool { return !f.rest && f.key == key.Value })
			if idx < 0 {
				idx = slices.IndexFunc(fields, func(f fieldPurpose) bool { return f.rest })
			}
			if idx < 0 || fields[idx].purpose&purpose == 0 {
				continue
			}
			Sanitize(value, fields[idx].typ, purpose)
			kept = append(kept, key, value)
		}
		clear(node.Content[len(kept):])
		node.Content = kept
	case reflect.Slice, reflect.Array:
		if node.Kind != yaml.SequenceNode {
			return
		}
		for _, item := range node.Content {
			Sanitize(item, t.Elem(), purpose)
		}
	case reflect.Map:
		if node.Kind != yaml.MappingNode {
			return
		}
		for i := 1; i < len(node.Content); i += 2 {
			Sanitize(node.Content[i], t.Elem(), purpose)
		}
	}
}

// cloneNode deep-copies n so sanitizing never touches a caller's document.
func cloneNode(n *yaml.Node) *yaml.Node {
	if n == nil {
		return nil
	}
	c := *n
	if len(n.Content) > 0 {
		c.Content = make([]*yaml.Node, len(n.Content))
		for i, child := range n.Content {
			c.Content[i] = cloneNode(child)
		}
	}
	return &c
}

func scalarNode(tag, value string) *yaml.Node {
	return &yaml.Node{Kind: yaml.ScalarNode, Tag: tag, Value: value}
}

// Serialize encodes e and its children as a mapping node:
//
//	uuid: <instance>
//	name: <name>
//	enabled: <bool>
//	components: {<ComponentName>: {<field>: <value>}}
//	children: [<entity>, ...]
func (w *World) Serialize(e *Entity, purpose Purpose) (*yaml.Node, error) {
	if !e.alive {
		return nil, eris.Wrapf(ErrEntityDestroyed, "serialize %s", e.id)
	}

	root := &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}
	root.Content = append(root.Content,
		scalarNode("!!str", "uuid"), scalarNode("!!str", e.instance.String()))
	if e.name != "" {
		root.Content = append(root.Content,
			scalarNode("!!str", "name"), scalarNode("!!str", e.name))
	}
	enabled := "true"
	if !e.enabled {
		enabled = "false"
	}
	root.Content = append(root.Content,
		scalarNode("!!str", "enabled"), scalarNode("!!bool", enabled))

	components := &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}
	types := e.ComponentTypes()
	slices.Sort(types)
	for _, ct := range types {
		value := &yaml.Node{}
		if err := value.Encode(e.ComponentValue(ct)); err != nil {
			return nil, eris.Wrapf(err, "encode %s", w.registry.Name(ct))
		}
		Sanitize(value, w.registry.Type(ct), purpose)
		components.Content = append(components.Content, scalarNode("!!str", w.registry.Name(ct)), value)
	}
	root.Content = append(root.Content, scalarNode("!!str", "components"), components)

	if len(e.children) > 0 {
		children := &yaml.Node{Kind: yaml.SequenceNode, Tag: "!!seq"}
		for _, id := range e.children {
			child := w.TryEntity(id)
			if child == nil {
				continue
			}
			node, err := w.Serialize(child, purpose)
			if err != nil {
				return nil, err
			}
			children.Content = append(children.Content, node)
		}
		root.Content = append(root.Content, scalarNode("!!str", "children"), children)
	}

	return root, nil
}

type entityDocument struct {
	UUID       string      `yaml:"uuid"`
	Name       string      `yaml:"name"`
	Enabled    *bool       `yaml:"enabled"`
	Components yaml.Node   `yaml:"components"`
	Children   []yaml.Node `yaml:"children"`
}

// Deserialize creates pending entities from a node produced by Serialize. The
// network purpose creates replicas; the prefab purpose always assigns fresh
// instance ids. On error nothing is left behind.
func (w *World) Deserialize(node *yaml.Node, purpose Purpose) (*Entity, error) {
	e, err := w.deserialize(node, purpose)
	if err != nil && e != nil {
		e.destroy()
		return nil, err
	}
	return e, err
}

func (w *World) deserialize(node *yaml.Node, purpose Purpose) (*Entity, error) {
	var doc entityDocument
	if err := node.Decode(&doc); err != nil {
		return nil, eris.Wrap(err, "decode entity")
	}

	instance := uuid.New()
	if doc.UUID != "" && purpose&PurposePrefab == 0 {
		parsed, err := uuid.Parse(doc.UUID)
		if err != nil {
			return nil, eris.Wrapf(err, "entity uuid %q", doc.UUID)
		}
		instance = parsed
	}
	if _, taken := w.identity[instance]; taken {
		return nil, eris.Wrapf(ErrDuplicateInstance, "%s", instance)
	}

	components := doc.Components
	if components.Kind != 0 && components.Kind != yaml.MappingNode {
		return nil, eris.New("entity components must be a mapping")
	}
	for i := 0; i+1 < len(components.Content); i += 2 {
		if _, ok := w.registry.Lookup(components.Content[i].Value); !ok {
			return nil, eris.Wrapf(ErrUnknownComponent, "%q", components.Content[i].Value)
		}
	}

	e := w.createEntity(instance)
	e.replicated = purpose&PurposeNetwork != 0
	e.name = doc.Name
	if doc.Enabled != nil {
		e.enabled = *doc.Enabled
	}

	for i := 0; i+1 < len(components.Content); i += 2 {
		name, value := components.Content[i].Value, components.Content[i+1]
		ct, _ := w.registry.Lookup(name)
		ptr, err := e.addComponent(ct, nil)
		if err != nil {
			return e, err
		}
		value = cloneNode(value)
		Sanitize(value, w.registry.Type(ct), purpose)
		if err := value.Decode(w.pool(ct).boxed(ptr)); err != nil {
			return e, eris.Wrapf(err, "decode %s", name)
		}
	}

	for i := range doc.Children {
		child, err := w.deserialize(&doc.Children[i], purpose)
		if err != nil {
			if child != nil {
				child.destroy()
			}
			return e, err
		}
		if err := child.SetParent(e); err != nil {
			child.destroy()
			return e, err
		}
	}

	return e, nil
}

// MarshalEntity serializes e to YAML.
func (w *World) MarshalEntity(e *Entity, purpose Purpose) ([]byte, error) {
	node, err := w.Serialize(e, purpose)
	if err != nil {
		return nil, err
	}
	return yaml.Marshal(node)
}

// UnmarshalEntity creates pending entities from YAML produced by MarshalEntity.
func (w *World) UnmarshalEntity(data []byte, purpose Purpose) (*Entity, error) {
	var node yaml.Node
	if err := yaml.Unmarshal(data, &node); err != nil {
		return nil, eris.Wrap(err, "parse entity")
	}
	if node.Kind == yaml.DocumentNode && len(node.Content) > 0 {
		return w.Deserialize(node.Content[0], purpose)
	}
	return w.Deserialize(&node, purpose)
}
