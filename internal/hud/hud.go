// Package hud renders a small status image of the tracked camera.
package hud

import (
	"fmt"
	"image"
	"image/color"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"

	"github.com/relabs-tech/vr_controls/internal/orientation"
	"github.com/relabs-tech/vr_controls/internal/scene"
)

const (
	Width  = 256
	Height = 64

	lineHeight = 14
)

// Status is what the HUD shows.
type Status struct {
	DisplayName string
	Camera      scene.State
	Standing    bool
}

// Render draws status as white text on a black grayscale image.
func Render(s Status) *image.Gray {
	img := image.NewGray(image.Rect(0, 0, Width, Height))

	name := s.DisplayName
	if name == "" {
		name = "(no display)"
	}
	mode := "sit"
	if s.Standing {
		mode = "stand"
	}

	roll, pitch, yaw := orientation.ToEuler(s.Camera.Orientation)
	p := s.Camera.Position

	drawLines(img, []string{
		fmt.Sprintf("%s [%s]", name, mode),
		fmt.Sprintf("R%6.1f P%6.1f Y%6.1f", roll, pitch, yaw),
		fmt.Sprintf("X%6.2f Y%6.2f Z%6.2f", p[0], p[1], p[2]),
		fmt.Sprintf("scale %.2f", s.Camera.Scale),
	})
	return img
}

func drawLines(img *image.Gray, lines []string) {
	d := &font.Drawer{
		Dst:  img,
		Src:  image.NewUniform(color.Gray{Y: 255}),
		Face: basicfont.Face7x13,
	}
	for i, line := range lines {
		d.Dot = fixed.P(2, (i+1)*lineHeight)
		d.DrawString(line)
	}
}

