// Package loop drives a World frame by frame, optionally rendering the previous
// frame while the next one updates.
package loop

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/plus3/famecs/ecs"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Driver runs Step, SwapFrames and Render on a World.
type Driver struct {
	world   *ecs.World
	painter ecs.Painter
	overlap bool
	logger  *zap.Logger
	frames  atomic.Uint64
}

// Option configures a Driver.
type Option func(*Driver)

// WithOverlap overrides Config.OverlapRender.
func WithOverlap(overlap bool) Option {
	return func(d *Driver) {
		d.overlap = overlap
	}
}

// WithLogger sets the driver's logger. The default is the world's.
func WithLogger(logger *zap.Logger) Option {
	return func(d *Driver) {
		if logger != nil {
			d.logger = logger
		}
	}
}

// New creates a driver rendering into painter.
func New(world *ecs.World, painter ecs.Painter, opts ...Option) *Driver {
	d := &Driver{
		world:   world,
		painter: painter,
		overlap: world.Config().OverlapRender,
		logger:  world.Logger(),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Overlapped reports whether render runs concurrently with update.
func (d *Driver) Overlapped() bool { return d.overlap }

// Frames returns the number of completed frames.
func (d *Driver) Frames() uint64 { return d.frames.Load() }

// Frame advances the world by dt and renders.
//
// Serially, the frame just updated is rendered. With overlap, the previous frame is
// rendered from the front buffer while the update writes the back buffer, so
// output lags one frame behind simulation.
func (d *Driver) Frame(ctx context.Context, dt float64) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	if !d.overlap {
		if err := d.world.Step(dt); err != nil {
			return err
		}
		d.world.SwapFrames()
		if err := d.world.Render(d.painter, false); err != nil {
			return err
		}
		d.frames.Add(1)
		return nil
	}

	g := new(errgroup.Group)
	g.Go(func() error {
		return d.world.Render(d.painter, true)
	})
	g.Go(func() error {
		return d.world.Step(dt)
	})
	if err := g.Wait(); err != nil {
		return err
	}
	d.world.SwapFrames()
	d.frames.Add(1)
	return nil
}

// Run calls Frame at the given interval until ctx is cancelled or a frame fails.
// The measured wall-clock delta is passed as dt.
func (d *Driver) Run(ctx context.Context, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	d.logger.Info("frame loop started",
		zap.Duration("interval", interval),
		zap.Bool("overlap", d.overlap))

	lastTime := time.Now()

	for {
		select {
		case <-ctx.Done():
			d.logger.Info("frame loop stopped", zap.Uint64("frames", d.Frames()))
			return nil
		case now := <-ticker.C:
			dt := now.Sub(lastTime).Seconds()
			lastTime = now
			if err := d.Frame(ctx, dt); err != nil {
				if ctx.Err() != nil {
					return nil
				}
				d.logger.Error("frame failed", zap.Uint64("frames", d.Frames()), zap.Error(err))
				return err
			}
		}
	}
}
