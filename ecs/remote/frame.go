package remote

import (
	"reflect"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/plus3/famecs/ecs"
	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"
)

// Kind selects what a Frame does to the world.
type Kind string

const (
	// KindSpawn creates a replica from Frame.Entity.
	KindSpawn Kind = "spawn"
	// KindDestroy destroys the replica whose uuid is Frame.Target.
	KindDestroy Kind = "destroy"
	// KindMessage posts Frame.Payload to the entity whose uuid is Frame.Target.
	KindMessage Kind = "message"
	// KindSystem posts Frame.Payload to the system named Frame.Target.
	KindSystem Kind = "system"
)

// Frame is one JSON document on the wire.
type Frame struct {
	Kind    Kind            `json:"kind"`
	Target  string          `json:"target,omitempty"`
	Message string          `json:"message,omitempty"`
	Payload json.RawMessage `json:"payload,omitempty"`
	// Entity is a YAML entity document as produced by World.MarshalEntity.
	Entity string `json:"entity,omitempty"`
}

var (
	ErrUnknownKind  = eris.New("unknown frame kind")
	ErrInvalidFrame = eris.New("invalid frame")
)

// EncodeSpawn builds the spawn frame replicating e with its children. It reads the
// world and must run on the update goroutine.
func EncodeSpawn(w *ecs.World, e *ecs.Entity) (Frame, error) {
	doc, err := w.MarshalEntity(e, ecs.PurposeNetwork)
	if err != nil {
		return Frame{}, err
	}
	return Frame{Kind: KindSpawn, Entity: string(doc)}, nil
}

// EncodeMessage builds a message frame for the entity with the given instance id.
func EncodeMessage(registry *ecs.ComponentRegistry, target uuid.UUID, msg any) (Frame, error) {
	name, payload, err := encodePayload(registry, msg)
	if err != nil {
		return Frame{}, err
	}
	return Frame{Kind: KindMessage, Target: target.String(), Message: name, Payload: payload}, nil
}

// EncodeSystemMessage builds a message frame for the named system.
func EncodeSystemMessage(registry *ecs.ComponentRegistry, system string, msg any) (Frame, error) {
	name, payload, err := encodePayload(registry, msg)
	if err != nil {
		return Frame{}, err
	}
	return Frame{Kind: KindSystem, Target: system, Message: name, Payload: payload}, nil
}

func encodePayload(registry *ecs.ComponentRegistry, msg any) (string, json.RawMessage, error) {
	mt, ok := registry.MessageTypeOf(msg)
	if !ok {
		return "", nil, eris.Wrapf(ecs.ErrUnknownMessage, "%T", msg)
	}
	payload, err := json.Marshal(msg)
	if err != nil {
		return "", nil, eris.Wrapf(err, "encode %s", registry.MessageName(mt))
	}
	return registry.MessageName(mt), payload, nil
}

func decodePayload(registry *ecs.ComponentRegistry, f *Frame) (any, error) {
	mt, ok := registry.LookupMessage(f.Message)
	if !ok {
		return nil, eris.Wrapf(ecs.ErrUnknownMessage, "%q", f.Message)
	}
	ptr := reflect.New(registry.MessageGoType(mt))
	if len(f.Payload) > 0 {
		if err := json.Unmarshal(f.Payload, ptr.Interface()); err != nil {
			return nil, eris.Wrapf(ErrInvalidFrame, "payload of %s: %v", f.Message, err)
		}
	}
	return ptr.Elem().Interface(), nil
}

// queue validates f and turns it into a world command.
func queue(w *ecs.World, f *Frame) error {
	cmds := w.Commands()

	switch f.Kind {
	case KindSpawn:
		var node yaml.Node
		if err := yaml.Unmarshal([]byte(f.Entity), &node); err != nil {
			return eris.Wrapf(ErrInvalidFrame, "entity document: %v", err)
		}
		if node.Kind == yaml.DocumentNode && len(node.Content) > 0 {
			node = *node.Content[0]
		}
		if node.Kind != yaml.MappingNode {
			return eris.Wrap(ErrInvalidFrame, "entity document must be a mapping")
		}
		cmds.Exec(func(w *ecs.World) error {
			_, err := w.Deserialize(&node, ecs.PurposeNetwork)
			return err
		})

	case KindDestroy:
		id, err := uuid.Parse(f.Target)
		if err != nil {
			return eris.Wrapf(ErrInvalidFrame, "target %q: %v", f.Target, err)
		}
		cmds.DestroyReplica(id)

	case KindMessage:
		id, err := uuid.Parse(f.Target)
		if err != nil {
			return eris.Wrapf(ErrInvalidFrame, "target %q: %v", f.Target, err)
		}
		msg, err := decodePayload(w.Registry(), f)
		if err != nil {
			return err
		}
		cmds.PostInstance(id, msg)

	case KindSystem:
		if f.Target == "" {
			return eris.Wrap(ErrInvalidFrame, "system frame without target")
		}
		msg, err := decodePayload(w.Registry(), f)
		if err != nil {
			return err
		}
		cmds.PostSystem(f.Target, msg)

	default:
		return eris.Wrapf(ErrUnknownKind, "%q", f.Kind)
	}
	return nil
}
