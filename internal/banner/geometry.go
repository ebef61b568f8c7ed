package banner

import (
	"image"
	"image/color"
)

// Canvas and palette of the rendered banner.
const (
	CanvasWidth  = 2560
	CanvasHeight = 1440

	headlineSize   = 100
	captionSize    = 50
	headlineCenter = 600
	captionGap     = 20
)

var (
	backgroundColor = color.RGBA{R: 50, G: 50, B: 50, A: 255}
	textColor       = color.RGBA{R: 255, G: 255, B: 255, A: 255}
	barColor        = color.RGBA{R: 150, G: 150, B: 150, A: 255}
	barBorderColor  = color.RGBA{R: 255, G: 255, B: 255, A: 255}
	barFillColor    = color.RGBA{R: 0, G: 255, B: 0, A: 255}
)

// BarGeometry positions the progress bar on the canvas.
type BarGeometry struct {
	X, Y          int
	Width, Height int
}

// DefaultBar is the 1000x50 bar centered horizontally at y=720.
func DefaultBar() BarGeometry {
	const width, height = 1000, 50
	return BarGeometry{
		X:      (CanvasWidth - width) / 2,
		Y:      720,
		Width:  width,
		Height: height,
	}
}

// FilledWidth truncates Width*ratio; ratio is expected in [0,1].
func (b BarGeometry) FilledWidth(ratio float64) int {
	if ratio <= 0 {
		return 0
	}
	if ratio >= 1 {
		return b.Width
	}
	return int(float64(b.Width) * ratio)
}

// Outline covers the inclusive box [X, Y, X+Width, Y+Height], border included.
func (b BarGeometry) Outline() image.Rectangle {
	return image.Rect(b.X, b.Y, b.X+b.Width+1, b.Y+b.Height+1)
}

// Filled is the green part starting at the bar's left edge.
func (b BarGeometry) Filled(ratio float64) image.Rectangle {
	w := b.FilledWidth(ratio)
	if w == 0 {
		return image.Rectangle{}
	}
	return image.Rect(b.X, b.Y, b.X+w, b.Y+b.Height+1)
}

// Bottom is the last row covered by the bar.
func (b BarGeometry) Bottom() int {
	return b.Y + b.Height
}
