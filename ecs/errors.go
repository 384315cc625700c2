package ecs

import (
	"fmt"

	"github.com/rotisserie/eris"
)

// Programmer errors. Continuing past one of these would corrupt family membership,
// so the operation that reports it leaves the world untouched.
var (
	ErrDuplicateComponent = eris.New("component already attached")
	ErrTooManyComponents  = eris.New("too many components on entity")
	ErrUnknownComponent   = eris.New("component type not registered")
	ErrUnknownMessage     = eris.New("message type not registered")
	ErrEntityDestroyed    = eris.New("entity is destroyed")
	ErrReplicaAuthority   = eris.New("replicated entity cannot be destroyed locally")
	ErrInvalidParent      = eris.New("invalid parent")
	ErrCyclicParent       = eris.New("parenting would create a cycle")
	ErrInvalidSystem      = eris.New("invalid system")
	ErrDuplicateSystem    = eris.New("system already registered")
	ErrEmptyFamily        = eris.New("family requires at least one component")
	ErrWorldClosed        = eris.New("world is closed")
	ErrDuplicateInstance  = eris.New("entity instance already exists")
)

// Not-found errors. Each lookup returning one of these has a Try variant.
var (
	ErrEntityNotFound   = eris.New("entity not found")
	ErrSystemNotFound   = eris.New("system not found")
	ErrServiceNotFound  = eris.New("service not found")
	ErrResourceNotFound = eris.New("resource not found")
)

// Resource exhaustion. These are always raised as panics: the pools are bounded and
// running out means something leaks.
var (
	ErrPoolExhausted           = eris.New("entity pool exhausted")
	ErrMaskSpaceExhausted      = eris.New("mask index space exhausted")
	ErrComponentSpaceExhausted = eris.New("component type space exhausted")
)

// SystemError is handed to the UncaughtHandler when a system fails during a frame.
type SystemError struct {
	Timeline Timeline
	System   string
	Err      error
}

func (e *SystemError) Error() string {
	return fmt.Sprintf("%s system %q: %v", e.Timeline, e.System, e.Err)
}

func (e *SystemError) Unwrap() error {
	return e.Err
}

// UncaughtHandler receives failures escaping a single system's update or render call.
type UncaughtHandler func(err *SystemError)
