package main

import (
	"fmt"
	"image/color"

	"github.com/AllenDang/cimgui-go/imgui"
	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/vector"
	"github.com/plus3/famecs/ecs"
	"github.com/plus3/famecs/ecs/debugui"
)

const cellSize = 8

// Camera is a world service moved by CameraControlSystem.
type Camera struct {
	X, Y float32
	Zoom float32
}

type inputState struct {
	dragging       bool
	prevMouseLeft  bool
	dragX, dragY   float32
	lastMX, lastMY int
}

// CameraControlSystem pans with the left mouse button and zooms with the wheel
// unless ImGui has the mouse.
type CameraControlSystem struct {
	Camera     ecs.ServiceRef[*Camera]
	ImguiInput ecs.ServiceRef[*debugui.ImguiInputState]

	input inputState
}

func (*CameraControlSystem) Timeline() ecs.Timeline { return ecs.VariableUpdate }

func (s *CameraControlSystem) Update(*ecs.UpdateFrame) error {
	if state, ok := s.ImguiInput.TryGet(); ok && state.WantCaptureMouse() {
		return nil
	}
	camera := s.Camera.Get()
	input := &s.input

	mx, my := ebiten.CursorPosition()
	mouseLeft := ebiten.IsMouseButtonPressed(ebiten.MouseButtonLeft)
	if mouseLeft && !input.prevMouseLeft {
		input.dragging = true
		input.dragX, input.dragY = camera.X, camera.Y
		input.lastMX, input.lastMY = mx, my
	}
	if !mouseLeft {
		input.dragging = false
	}
	if input.dragging {
		camera.X = input.dragX - float32(mx-input.lastMX)/(camera.Zoom*cellSize)
		camera.Y = input.dragY - float32(my-input.lastMY)/(camera.Zoom*cellSize)
	}
	input.prevMouseLeft = mouseLeft

	if _, dy := ebiten.Wheel(); dy != 0 {
		camera.Zoom = clamp(camera.Zoom+float32(dy)*0.2, 0.5, 4)
	}
	return nil
}

// Scene is the draw list published for RenderSystem.
type Scene struct {
	Camera  Camera
	Sprites []SpriteInstance
}

type SpriteInstance struct {
	X, Y   float32
	Radius float32
	Color  color.RGBA
}

// SceneSystem copies everything drawable into the frame data.
type SceneSystem struct {
	Drawables *ecs.FamilyBinding[struct {
		Position *Position `ecs:"read"`
		Sprite   *Sprite   `ecs:"read"`
	}]
	Camera ecs.ServiceRef[*Camera]

	sprites []SpriteInstance
}

func (*SceneSystem) Timeline() ecs.Timeline { return ecs.VariableUpdate }

func (s *SceneSystem) Update(frame *ecs.UpdateFrame) error {
	// An overlapped render may still hold the previous slice.
	s.sprites = make([]SpriteInstance, 0, s.Drawables.Len())
	for d := range s.Drawables.Values() {
		s.sprites = append(s.sprites, SpriteInstance{
			X:      d.Position.X,
			Y:      d.Position.Y,
			Radius: d.Sprite.Scale * cellSize / 2,
			Color:  color.RGBA{d.Sprite.Color[0], d.Sprite.Color[1], d.Sprite.Color[2], 255},
		})
	}
	ecs.Publish(frame.Data, Scene{Camera: *s.Camera.Get(), Sprites: s.sprites})
	return nil
}

// RenderSystem draws the published Scene onto the *ebiten.Image painter.
type RenderSystem struct{}

func (*RenderSystem) Timeline() ecs.Timeline { return ecs.Render }

func (*RenderSystem) Render(frame *ecs.RenderFrame) error {
	screen, ok := frame.Painter.(*ebiten.Image)
	if !ok {
		return nil
	}
	screen.Fill(color.RGBA{245, 245, 240, 255})

	scene, _ := ecs.Snapshot[Scene](frame.Data)
	cam := scene.Camera
	w, h := float32(screen.Bounds().Dx()), float32(screen.Bounds().Dy())
	for _, sprite := range scene.Sprites {
		sx := (sprite.X-cam.X)*cam.Zoom*cellSize + w/2
		sy := (sprite.Y-cam.Y)*cam.Zoom*cellSize + h/2
		vector.DrawFilledCircle(screen, sx, sy, sprite.Radius*cam.Zoom, sprite.Color, false)
	}
	return nil
}

func censusWindow(frame *ecs.RenderFrame) {
	census, ok := ecs.Snapshot[Census](frame.Data)
	if !ok {
		return
	}
	if imgui.Begin("Census") {
		imgui.Text(fmt.Sprintf("Day %d", census.Day))
		imgui.Text(fmt.Sprintf("Creatures: %d", census.Creatures))
		imgui.Text(fmt.Sprintf("Bushes: %d (food %d)", census.Bushes, census.Food))
		imgui.Text(fmt.Sprintf("Births: %d  Deaths: %d", census.Births, census.Deaths))
	}
	imgui.End()
}
