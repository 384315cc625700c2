package ecs_test

import (
	"testing"

	"github.com/plus3/famecs/ecs"
	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetParent(t *testing.T) {
	w := newTestWorld()
	parent := spawn(t, w, Position{})
	child := spawn(t, w, Position{})

	version := w.HierarchyVersion()
	require.NoError(t, child.SetParent(parent))
	assert.Equal(t, parent, child.Parent())
	assert.Equal(t, []ecs.EntityId{child.ID()}, parent.Children())
	assert.Greater(t, w.HierarchyVersion(), version)

	// Reattaching to the same parent changes nothing.
	version = w.HierarchyVersion()
	require.NoError(t, child.SetParent(parent))
	assert.Equal(t, version, w.HierarchyVersion())
	assert.Len(t, parent.Children(), 1)

	require.NoError(t, child.SetParent(nil))
	assert.Nil(t, child.Parent())
	assert.Empty(t, parent.Children())
}

func TestReparentMovesChild(t *testing.T) {
	w := newTestWorld()
	a := spawn(t, w)
	b := spawn(t, w)
	child := spawn(t, w)

	require.NoError(t, child.SetParent(a))
	require.NoError(t, child.SetParent(b))
	assert.Empty(t, a.Children())
	assert.Equal(t, []ecs.EntityId{child.ID()}, b.Children())
}

func TestSetParentRejectsCycles(t *testing.T) {
	w := newTestWorld()
	grandparent := spawn(t, w)
	parent := spawn(t, w)
	child := spawn(t, w)
	require.NoError(t, parent.SetParent(grandparent))
	require.NoError(t, child.SetParent(parent))

	err := grandparent.SetParent(grandparent)
	assert.True(t, eris.Is(err, ecs.ErrInvalidParent))

	err = parent.SetParent(child)
	assert.True(t, eris.Is(err, ecs.ErrCyclicParent), "direct inversion")

	err = grandparent.SetParent(child)
	assert.True(t, eris.Is(err, ecs.ErrCyclicParent), "grandparent under grandchild")

	assert.Equal(t, grandparent, parent.Parent())
	assert.Nil(t, grandparent.Parent())
}

func TestSetParentRejectsForeignAndDead(t *testing.T) {
	w := newTestWorld()
	other := newTestWorld()
	e := spawn(t, w)
	foreign := spawn(t, other)

	err := e.SetParent(foreign)
	assert.True(t, eris.Is(err, ecs.ErrInvalidParent))

	dead := spawn(t, w)
	require.NoError(t, dead.Destroy())
	err = e.SetParent(dead)
	assert.True(t, eris.Is(err, ecs.ErrEntityDestroyed))
}

func TestDestroyCascadesToChildren(t *testing.T) {
	w := newTestWorld()
	root := spawn(t, w, Position{})
	child := spawn(t, w, Position{})
	grandchild := spawn(t, w, Position{})
	sibling := spawn(t, w, Position{})
	require.NoError(t, child.SetParent(root))
	require.NoError(t, grandchild.SetParent(child))

	b := ecs.NewFamilyBinding[struct{ *Position }](w)
	require.Equal(t, 4, b.Len())

	rootID, childID, grandchildID := root.ID(), child.ID(), grandchild.ID()
	require.NoError(t, root.Destroy())
	assert.False(t, child.IsAlive())
	assert.False(t, grandchild.IsAlive())
	assert.True(t, sibling.IsAlive())

	w.UpdateEntities()
	assert.Equal(t, 1, b.Len())
	assert.Equal(t, sibling.ID(), b.ID(0))
	for _, id := range []ecs.EntityId{rootID, childID, grandchildID} {
		assert.Nil(t, w.TryEntity(id))
	}
}

func TestDestroyChildUnlinksFromParent(t *testing.T) {
	w := newTestWorld()
	parent := spawn(t, w)
	child := spawn(t, w)
	require.NoError(t, child.SetParent(parent))

	require.NoError(t, child.Destroy())
	assert.Empty(t, parent.Children())
	assert.True(t, parent.IsAlive())
}

func TestEnabledPropagatesToSubtree(t *testing.T) {
	w := newTestWorld()
	root := spawn(t, w, Position{})
	child := spawn(t, w, Position{})
	grandchild := spawn(t, w, Position{})
	require.NoError(t, child.SetParent(root))
	require.NoError(t, grandchild.SetParent(child))

	b := ecs.NewFamilyBinding[struct{ *Position }](w)
	require.Equal(t, 3, b.Len())

	root.SetEnabled(false)
	assert.False(t, child.IsEnabled())
	assert.False(t, grandchild.IsEnabled())
	w.UpdateEntities()
	assert.Equal(t, 0, b.Len(), "disabled subtrees leave every family")

	root.SetEnabled(true)
	w.UpdateEntities()
	assert.Equal(t, 3, b.Len())

	// A disabled child stays disabled when its parent is re-enabled.
	child.SetEnabled(false)
	root.SetEnabled(false)
	root.SetEnabled(true)
	w.UpdateEntities()
	assert.Equal(t, 1, b.Len())
	assert.False(t, grandchild.IsEnabled())
}

func TestReparentUnderDisabledParent(t *testing.T) {
	w := newTestWorld()
	disabled := spawn(t, w)
	disabled.SetEnabled(false)
	e := spawn(t, w, Position{})

	require.NoError(t, e.SetParent(disabled))
	assert.False(t, e.IsEnabled())

	require.NoError(t, e.SetParent(nil))
	assert.True(t, e.IsEnabled())
}

func TestPartitionPropagates(t *testing.T) {
	w := newTestWorld()
	root := spawn(t, w)
	child := spawn(t, w)
	grandchild := spawn(t, w)
	require.NoError(t, child.SetParent(root))
	require.NoError(t, grandchild.SetParent(child))

	root.SetPartition(7)
	assert.Equal(t, uint32(7), child.Partition())
	assert.Equal(t, uint32(7), grandchild.Partition())

	other := spawn(t, w)
	other.SetPartition(3)
	require.NoError(t, child.SetParent(other))
	assert.Equal(t, uint32(3), grandchild.Partition(), "reparenting adopts the new parent's partition")
	assert.Equal(t, uint32(7), root.Partition())
}

func TestChildVersion(t *testing.T) {
	w := newTestWorld()
	parent := spawn(t, w)
	child := spawn(t, w, Position{})
	require.NoError(t, child.SetParent(parent))

	version := parent.ChildVersion()
	require.NoError(t, child.AddComponent(Velocity{}))
	w.UpdateEntities()
	assert.Greater(t, parent.ChildVersion(), version)
}
