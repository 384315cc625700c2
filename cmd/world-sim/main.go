package main

import (
	"context"
	"embed"
	"flag"
	"fmt"
	"math/rand/v2"
	"os"

	ebitenbackend "github.com/AllenDang/cimgui-go/backend/ebiten-backend"
	"github.com/AllenDang/cimgui-go/imgui"
	"github.com/hajimehoshi/ebiten/v2"
	"github.com/plus3/famecs/ecs"
	"github.com/plus3/famecs/ecs/debugui"
	debugui_ebiten "github.com/plus3/famecs/ecs/debugui/ebiten"
	"go.uber.org/zap"
)

const (
	ScreenWidth  = 1280
	ScreenHeight = 720
)

//go:embed prefabs/*.yaml
var prefabs embed.FS

func main() {
	creatures := flag.Int("creatures", 60, "Initial creature count.")
	bushes := flag.Int("bushes", 40, "Initial bush count.")
	configPath := flag.String("config", "", "Optional YAML world config.")
	flag.Parse()

	cfg, err := ecs.LoadConfig()
	if *configPath != "" {
		cfg, err = ecs.LoadConfigFile(*configPath)
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	logger, err := cfg.NewLogger()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer logger.Sync()

	world, err := newWorld(cfg, logger, rand.Uint64(), *creatures, *bushes)
	if err != nil {
		logger.Fatal("world setup failed", zap.Error(err))
	}
	defer world.Close()

	ebiten.SetWindowSize(ScreenWidth, ScreenHeight)
	ebiten.SetWindowTitle("World Simulator - ECS Example")
	ebiten.SetWindowResizingMode(ebiten.WindowResizingModeEnabled)

	backend := ebitenbackend.NewEbitenBackend()
	backend.CreateWindow("World Simulator - ECS Example", ScreenWidth, ScreenHeight)
	imgui.CurrentIO().SetIniFilename("")

	for _, sys := range []ecs.System{&CameraControlSystem{}, &SceneSystem{}, &RenderSystem{}} {
		world.MustAddSystem(sys)
	}
	if err := debugui.InstallDebugUI(world, debugui.DefaultOptions()); err != nil {
		logger.Fatal("debug ui setup failed", zap.Error(err))
	}
	if _, err := debugui.SpawnWindow(world, "census", censusWindow); err != nil {
		logger.Fatal("census window", zap.Error(err))
	}

	if err := ebiten.RunGame(debugui_ebiten.NewHost(world, backend)); err != nil {
		logger.Fatal("game stopped", zap.Error(err))
	}
}

// newWorld builds the headless simulation: services, systems and the starting
// population spawned from the embedded prefabs.
func newWorld(cfg ecs.Config, logger *zap.Logger, seed uint64, creatures, bushes int) (*ecs.World, error) {
	registry := newRegistry()
	debugui.RegisterDebugUIComponents(registry)
	world := ecs.NewWorld(registry,
		ecs.WithConfig(cfg),
		ecs.WithLogger(logger),
		ecs.WithResources(ecs.NewFSResources(prefabs)))

	sim := defaultSimConfig()
	ecs.RegisterService(world, sim)
	ecs.RegisterService(world, &Camera{X: sim.Width / 2, Y: sim.Height / 2, Zoom: 1})

	r := rand.New(rand.NewPCG(seed, seed>>1|1))
	if _, err := addSimulationSystems(world, r); err != nil {
		world.Close()
		return nil, err
	}
	if err := populate(context.Background(), world, r, creatures, bushes); err != nil {
		world.Close()
		return nil, err
	}
	return world, nil
}
