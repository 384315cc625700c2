// Package ebiten provides Dear ImGui backend integration for the Ebiten game engine.
package ebiten

import (
	ebitenbackend "github.com/AllenDang/cimgui-go/backend/ebiten-backend"
	"github.com/hajimehoshi/ebiten/v2"
	"github.com/plus3/famecs/ecs"
	"go.uber.org/zap"
)

// ImguiBackend wraps the Ebiten-specific Dear ImGui backend implementation.
// Host registers it as a world service so systems can reach it.
type ImguiBackend struct {
	*ebitenbackend.EbitenBackend
}

// Host implements ebiten.Game around a World. Update steps the world at Ebiten's
// tick rate; Draw runs the Render timeline inside an ImGui frame with the screen
// image as the Painter.
type Host struct {
	world   *ecs.World
	backend ImguiBackend
	logger  *zap.Logger
}

// NewHost registers backend as a service on world and returns the game.
func NewHost(world *ecs.World, backend *ebitenbackend.EbitenBackend) *Host {
	h := &Host{
		world:   world,
		backend: ImguiBackend{EbitenBackend: backend},
		logger:  world.Logger().With(zap.String("component", "ebiten")),
	}
	ecs.RegisterService(world, h.backend)
	return h
}

func (h *Host) Update() error {
	if err := h.world.Step(1.0 / float64(ebiten.TPS())); err != nil {
		return err
	}
	h.world.SwapFrames()
	return nil
}

func (h *Host) Draw(screen *ebiten.Image) {
	h.backend.BeginFrame()
	if err := h.world.Render(screen, false); err != nil {
		h.logger.Warn("render skipped", zap.Error(err))
	}
	h.backend.EndFrame()

	h.backend.Draw(screen)
}

func (h *Host) Layout(outsideWidth, outsideHeight int) (int, int) {
	h.backend.Layout(outsideWidth, outsideHeight)
	return outsideWidth, outsideHeight
}
