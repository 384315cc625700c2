package ecs

import "reflect"

// FrameData is the double-buffered snapshot shared between update and render. The
// update path publishes into the back buffer; render reads the front one.
type FrameData struct {
	Step      uint64
	DeltaTime float64
	// Alpha is the fraction of a fixed step left in the accumulator.
	Alpha float64

	values map[reflect.Type]any
}

func newFrameData() *FrameData {
	return &FrameData{values: make(map[reflect.Type]any)}
}

// Publish stores v as the frame's snapshot of type T.
func Publish[T any](fd *FrameData, v T) {
	fd.values[reflect.TypeFor[T]()] = v
}

// Snapshot returns the frame's snapshot of type T.
func Snapshot[T any](fd *FrameData) (T, bool) {
	v, ok := fd.values[reflect.TypeFor[T]()]
	if !ok {
		var zero T
		return zero, false
	}
	return v.(T), true
}

// Len returns the number of published snapshots.
func (fd *FrameData) Len() int {
	return len(fd.values)
}

func (fd *FrameData) reset(step uint64) {
	fd.Step = step
	fd.DeltaTime = 0
	fd.Alpha = 0
	clear(fd.values)
}
