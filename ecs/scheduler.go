package ecs

import (
	"reflect"
	"sync"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/multierr"
	"go.uber.org/zap"
)

// SchedulerStats provides statistics about scheduler execution.
type SchedulerStats struct {
	SystemCount     int
	TotalExecutions int64
	TotalFailures   int64
	Systems         []SystemStats
}

// SystemStats provides execution statistics for a single system.
type SystemStats struct {
	ID             SystemId
	Name           string
	Timeline       Timeline
	ExecutionCount int64
	MinDuration    time.Duration
	MaxDuration    time.Duration
	AvgDuration    time.Duration
	LastDuration   time.Duration
	TotalDuration  time.Duration
	Failures       int64
	FailureStreak  int
	LastError      string
}

type systemStatsInternal struct {
	executionCount int64
	minDuration    time.Duration
	maxDuration    time.Duration
	totalDuration  time.Duration
	lastDuration   time.Duration
	failures       int64
	streak         int
	lastError      error
}

type systemEntry struct {
	id       SystemId
	name     string
	timeline Timeline
	sys      System
	updater  Updater
	renderer Renderer
	mailbox  *Mailbox
	stats    systemStatsInternal
}

type mailboxOwner interface {
	mailbox() *Mailbox
}

// binder is implemented by system fields that need the world: FamilyBinding and
// ServiceRef.
type binder interface {
	Bind(w *World)
}

// scheduler owns the systems of a World, partitioned by timeline in registration
// order.
type scheduler struct {
	timelines [timelineCount][]*systemEntry
	all       []*systemEntry
	byName    map[string]*systemEntry

	// statsMu guards stats, which the render goroutine and debug tools read.
	statsMu sync.Mutex
}

func newScheduler() *scheduler {
	return &scheduler{byName: make(map[string]*systemEntry)}
}

func systemName(system System) string {
	if n, ok := system.(Namer); ok {
		return n.SystemName()
	}
	systemType := reflect.TypeOf(system)
	if systemType.Kind() == reflect.Ptr {
		systemType = systemType.Elem()
	}
	return systemType.Name()
}

// AddSystem registers a system on its timeline. Binding fields are initialized, an
// embedded Mailbox is attached, and Init runs if the system implements Initializer.
// Systems must be pointers so their fields can be bound.
func (w *World) AddSystem(system System) error {
	if w.closed {
		return ErrWorldClosed
	}
	if system == nil || reflect.TypeOf(system).Kind() != reflect.Ptr {
		return eris.Wrapf(ErrInvalidSystem, "%T must be a non-nil pointer", system)
	}

	timeline := system.Timeline()
	entry := &systemEntry{
		name:     systemName(system),
		timeline: timeline,
		sys:      system,
	}
	entry.stats.minDuration = time.Duration(1<<63 - 1)

	switch timeline {
	case FixedUpdate, VariableUpdate:
		u, ok := system.(Updater)
		if !ok {
			return eris.Wrapf(ErrInvalidSystem, "%s on %s timeline does not implement Updater", entry.name, timeline)
		}
		entry.updater = u
	case Render:
		r, ok := system.(Renderer)
		if !ok {
			return eris.Wrapf(ErrInvalidSystem, "%s does not implement Renderer", entry.name)
		}
		entry.renderer = r
	default:
		return eris.Wrapf(ErrInvalidSystem, "%s has unknown timeline %d", entry.name, timeline)
	}

	s := w.scheduler
	if _, taken := s.byName[entry.name]; taken {
		return eris.Wrapf(ErrDuplicateSystem, "%s", entry.name)
	}

	entry.id = SystemId(len(s.all) + 1)
	if owner, ok := system.(mailboxOwner); ok {
		entry.mailbox = owner.mailbox()
		entry.mailbox.bind(w, entry.id)
	}
	w.bindFields(system)

	if init, ok := system.(Initializer); ok {
		if err := init.Init(w); err != nil {
			return eris.Wrapf(err, "init %s", entry.name)
		}
	}

	s.timelines[timeline] = append(s.timelines[timeline], entry)
	s.all = append(s.all, entry)
	s.byName[entry.name] = entry
	w.logger.Debug("system added",
		zap.String("system", entry.name),
		zap.Uint32("id", uint32(entry.id)),
		zap.Stringer("timeline", timeline))
	return nil
}

// MustAddSystem is AddSystem that panics on error.
func (w *World) MustAddSystem(system System) {
	if err := w.AddSystem(system); err != nil {
		panic(err)
	}
}

func (w *World) bindFields(system any) {
	systemValue := reflect.ValueOf(system)
	if systemValue.Kind() == reflect.Ptr {
		systemValue = systemValue.Elem()
	}

	if systemValue.Kind() != reflect.Struct {
		return
	}

	for i := 0; i < systemValue.NumField(); i++ {
		field := systemValue.Field(i)

		if !field.CanSet() {
			continue
		}

		switch field.Kind() {
		case reflect.Struct:
			if b, ok := field.Addr().Interface().(binder); ok {
				b.Bind(w)
			}
		case reflect.Ptr:
			if !field.IsNil() {
				if b, ok := field.Interface().(binder); ok {
					b.Bind(w)
				}
				continue
			}
			// Nil binding pointers are allocated
			v := reflect.New(field.Type().Elem())
			if b, ok := v.Interface().(binder); ok {
				b.Bind(w)
				field.Set(v)
			}
		}
	}
}

// System returns the system registered under name.
func (w *World) System(name string) (System, error) {
	if s := w.TrySystem(name); s != nil {
		return s, nil
	}
	return nil, eris.Wrapf(ErrSystemNotFound, "%q", name)
}

// TrySystem returns the system registered under name, or nil.
func (w *World) TrySystem(name string) System {
	if entry, ok := w.scheduler.byName[name]; ok {
		return entry.sys
	}
	return nil
}

// Systems returns the systems of a timeline in execution order.
func (w *World) Systems(timeline Timeline) []System {
	if timeline >= timelineCount {
		return nil
	}
	entries := w.scheduler.timelines[timeline]
	systems := make([]System, len(entries))
	for i, entry := range entries {
		systems[i] = entry.sys
	}
	return systems
}

// UpdateSystems runs every system of an update timeline once, in registration
// order. Failures are reported per system and never stop the others.
func (w *World) UpdateSystems(timeline Timeline, dt float64) {
	if timeline != FixedUpdate && timeline != VariableUpdate {
		return
	}
	frame := &UpdateFrame{
		DeltaTime: dt,
		Step:      w.step,
		Timeline:  timeline,
		World:     w,
		Data:      w.back,
	}
	for _, entry := range w.scheduler.timelines[timeline] {
		w.runSystem(entry, func() error {
			return w.updateSystem(entry, frame)
		})
	}
}

func (w *World) updateSystem(entry *systemEntry, frame *UpdateFrame) error {
	var err error
	if mb := entry.mailbox; mb != nil {
		mb.purgeOnce()
		err = mb.process(frame)
	}
	return multierr.Append(err, entry.updater.Update(frame))
}

// Render runs every Render system against the front frame-data buffer. With
// concurrent set, the call overlaps the next Step and systems must read only
// frame data.
func (w *World) Render(painter Painter, concurrent bool) error {
	if w.closed {
		return ErrWorldClosed
	}
	frame := &RenderFrame{
		Painter:    painter,
		Data:       w.front,
		Alpha:      w.front.Alpha,
		World:      w,
		Step:       w.front.Step,
		Concurrent: concurrent,
	}
	for _, entry := range w.scheduler.timelines[Render] {
		w.runSystem(entry, func() error {
			return entry.renderer.Render(frame)
		})
	}
	return nil
}

// runSystem calls fn, converting a panic into an error, and records the outcome.
func (w *World) runSystem(entry *systemEntry, fn func() error) {
	start := time.Now()
	err := callSafely(fn)
	duration := time.Since(start)

	s := w.scheduler
	s.statsMu.Lock()
	stats := &entry.stats
	stats.executionCount++
	stats.lastDuration = duration
	stats.totalDuration += duration
	if duration < stats.minDuration {
		stats.minDuration = duration
	}
	if duration > stats.maxDuration {
		stats.maxDuration = duration
	}
	if err == nil {
		stats.streak = 0
		s.statsMu.Unlock()
		return
	}
	stats.failures++
	stats.streak++
	stats.lastError = err
	streak := stats.streak
	s.statsMu.Unlock()

	sysErr := &SystemError{Timeline: entry.timeline, System: entry.name, Err: err}
	if streak == w.cfg.FailureThreshold {
		w.logger.Error("system failing every frame",
			zap.Stringer("timeline", entry.timeline),
			zap.String("system", entry.name),
			zap.Int("frames", streak),
			zap.Error(err))
	}
	w.uncaught(sysErr)
}

func callSafely(fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			if rerr, ok := r.(error); ok {
				err = eris.Wrap(rerr, "panic")
			} else {
				err = eris.Errorf("panic: %v", r)
			}
		}
	}()
	return fn()
}

// SchedulerStats returns statistics about system execution.
func (w *World) SchedulerStats() *SchedulerStats {
	s := w.scheduler
	s.statsMu.Lock()
	defer s.statsMu.Unlock()

	stats := &SchedulerStats{
		SystemCount: len(s.all),
		Systems:     make([]SystemStats, len(s.all)),
	}

	for i, entry := range s.all {
		internal := &entry.stats
		avgDuration := time.Duration(0)
		minDuration := internal.minDuration
		if internal.executionCount > 0 {
			avgDuration = internal.totalDuration / time.Duration(internal.executionCount)
		} else {
			minDuration = 0
		}
		lastError := ""
		if internal.lastError != nil {
			lastError = internal.lastError.Error()
		}

		stats.Systems[i] = SystemStats{
			ID:             entry.id,
			Name:           entry.name,
			Timeline:       entry.timeline,
			ExecutionCount: internal.executionCount,
			MinDuration:    minDuration,
			MaxDuration:    internal.maxDuration,
			AvgDuration:    avgDuration,
			LastDuration:   internal.lastDuration,
			TotalDuration:  internal.totalDuration,
			Failures:       internal.failures,
			FailureStreak:  internal.streak,
			LastError:      lastError,
		}
		stats.TotalExecutions += internal.executionCount
		stats.TotalFailures += internal.failures
	}

	return stats
}

// closeSystems closes systems in reverse registration order.
func (s *scheduler) closeSystems(logger *zap.Logger) []error {
	var errs []error
	for i := len(s.all) - 1; i >= 0; i-- {
		entry := s.all[i]
		c, ok := entry.sys.(Closer)
		if !ok {
			continue
		}
		if err := callSafely(c.Close); err != nil {
			logger.Warn("system close failed", zap.String("system", entry.name), zap.Error(err))
			errs = append(errs, eris.Wrapf(err, "close %s", entry.name))
		}
	}
	return errs
}
