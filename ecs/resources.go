package ecs

import (
	"context"
	"errors"
	"io/fs"
	"path"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"
)

// ResourcePrefabs is the resource kind holding entity prefabs.
const ResourcePrefabs = "prefabs"

// ResourceRequest names a resource by kind and name.
type ResourceRequest struct {
	Kind string
	Name string
}

// Resources provides deserialized data definitions. The world only calls it while
// constructing entities, never from steady-state iteration.
type Resources interface {
	Load(ctx context.Context, req ResourceRequest) (*yaml.Node, error)
}

// FSResources loads <kind>/<name>.yaml files from a file system.
type FSResources struct {
	fsys fs.FS
}

// NewFSResources creates a provider reading from fsys.
func NewFSResources(fsys fs.FS) *FSResources {
	return &FSResources{fsys: fsys}
}

func (r *FSResources) Load(ctx context.Context, req ResourceRequest) (*yaml.Node, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	name := path.Join(req.Kind, req.Name+".yaml")
	data, err := fs.ReadFile(r.fsys, name)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, eris.Wrapf(ErrResourceNotFound, "%s", name)
	}
	if err != nil {
		return nil, eris.Wrapf(err, "read %s", name)
	}

	var node yaml.Node
	if err := yaml.Unmarshal(data, &node); err != nil {
		return nil, eris.Wrapf(err, "parse %s", name)
	}
	if node.Kind == yaml.DocumentNode && len(node.Content) > 0 {
		return node.Content[0], nil
	}
	return &node, nil
}

// SpawnPrefab instantiates the named prefab as pending entities with fresh
// instance ids.
func (w *World) SpawnPrefab(ctx context.Context, name string) (*Entity, error) {
	if w.resources == nil {
		return nil, eris.Wrapf(ErrResourceNotFound, "prefab %q: no resources configured", name)
	}
	node, err := w.resources.Load(ctx, ResourceRequest{Kind: ResourcePrefabs, Name: name})
	if err != nil {
		return nil, err
	}
	return w.Deserialize(node, PurposePrefab)
}
