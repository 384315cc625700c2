package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"runtime"
	"time"

	"github.com/plus3/famecs/ecs"
	"github.com/plus3/famecs/ecs/loop"
	"go.uber.org/zap"
)

func main() {
	duration := flag.Duration("duration", 10*time.Second, "The total duration the test should run for.")
	entityCount := flag.Int("entities", 10000, "The initial number of entities to create.")
	churn := flag.Float64("churn", 0.01, "Fraction of entities touched by churn and combat every frame.")
	overlap := flag.Bool("overlap", false, "Render the previous frame concurrently with the next update.")
	configPath := flag.String("config", "", "Optional YAML world config; ECS_* environment variables override it.")
	logLevel := flag.String("log-level", "error", "Log level for the run.")
	seed := flag.Int64("seed", time.Now().UnixNano(), "Random seed.")
	gcPauseMetrics := flag.Bool("gc-pause-metrics", false, "Enable detailed GC pause metrics in the report.")
	flag.Parse()

	cfg, err := loadConfig(*configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	cfg.LogLevel = *logLevel
	cfg.MaxEntities = max(cfg.MaxEntities, *entityCount*2)

	logger, err := cfg.NewLogger()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer logger.Sync()

	report, err := run(cfg, logger, options{
		duration: *duration,
		entities: *entityCount,
		churn:    *churn,
		overlap:  *overlap,
		seed:     *seed,
	})
	if err != nil {
		logger.Fatal("stress test failed", zap.Error(err))
	}
	report.GCPauseMetrics = *gcPauseMetrics

	fmt.Println("\n\n--- Stress Test Report ---")
	if err := report.Generate(os.Stdout); err != nil {
		logger.Fatal("failed to generate report", zap.Error(err))
	}
	fmt.Println("--- End of Report ---")
}

func loadConfig(path string) (ecs.Config, error) {
	if path == "" {
		return ecs.LoadConfig()
	}
	return ecs.LoadConfigFile(path)
}

type options struct {
	duration time.Duration
	entities int
	churn    float64
	overlap  bool
	seed     int64
}

func run(cfg ecs.Config, logger *zap.Logger, opts options) (*Report, error) {
	world := ecs.NewWorld(newRegistry(), ecs.WithConfig(cfg), ecs.WithLogger(logger))

	sim, err := newSimulation(world, opts.seed, opts.entities, opts.churn)
	if err != nil {
		return nil, err
	}
	driver := loop.New(world, nil, loop.WithOverlap(opts.overlap))

	report := &Report{
		Duration:   opts.duration,
		Entities:   opts.entities,
		Components: world.Registry().Len(),
		Systems:    len(world.SchedulerStats().Systems),
		Churn:      opts.churn,
		Overlap:    driver.Overlapped(),
	}
	runtime.ReadMemStats(&report.MemStatsStart)

	logger.Info("running simulation",
		zap.Duration("duration", opts.duration),
		zap.Int("entities", opts.entities),
		zap.Bool("overlap", driver.Overlapped()))

	ctx, cancel := context.WithTimeout(context.Background(), opts.duration)
	defer cancel()

	startTime := time.Now()
	lastFrameTime := startTime
	for ctx.Err() == nil {
		deltaTime := time.Since(lastFrameTime)
		lastFrameTime = time.Now()

		frameStart := time.Now()
		if err := driver.Frame(ctx, deltaTime.Seconds()); err != nil {
			if ctx.Err() != nil {
				break
			}
			return nil, err
		}
		report.UpdateTime.Samples = append(report.UpdateTime.Samples, time.Since(frameStart))
	}

	report.TotalTime = time.Since(startTime)
	report.TotalUpdates = int64(driver.Frames())
	report.UpdateTime.Finalize()
	report.World = world.CollectStats()
	report.Scheduler = world.SchedulerStats()
	report.Expired = sim.lifetime.Expired
	report.Killed = sim.wounds.Killed
	report.Added = sim.churn.Added
	report.Removed = sim.churn.Removed
	report.Spawned = sim.churn.Spawned
	report.Rendered = sim.render.Frames
	runtime.ReadMemStats(&report.MemStatsEnd)

	if err := world.Close(); err != nil {
		return nil, err
	}
	logger.Info("simulation finished", zap.Int64("frames", report.TotalUpdates))
	return report, nil
}
