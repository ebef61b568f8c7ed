package banner

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"log/slog"

	"golang.org/x/image/font"
	"golang.org/x/image/math/fixed"

	"ChannelBanner/internal/domain"
	"ChannelBanner/internal/ports"
)

// Fonts names the font files tried for each label, preferred first.
type Fonts struct {
	Preferred string
	Fallback  string
}

// Label is a piece of text with its resolved pen position and ink box.
type Label struct {
	Text string
	Dot  image.Point
	Box  image.Rectangle
}

// Layout is the full placement of one banner.
type Layout struct {
	Headline Label
	Caption  Label
	Bar      BarGeometry
	Filled   image.Rectangle
}

// Renderer draws progress banners. Output is byte-identical for the same metric and font files.
type Renderer struct {
	fonts  Fonts
	bar    BarGeometry
	logger *slog.Logger
}

var _ ports.Renderer = (*Renderer)(nil)

// NewRenderer binds font files; fonts are read on every Render so a missing file fails the run.
func NewRenderer(fonts Fonts, logger *slog.Logger) *Renderer {
	return &Renderer{fonts: fonts, bar: DefaultBar(), logger: logger}
}

// RenderCounts validates raw values and renders them.
func (r *Renderer) RenderCounts(count, goal int) ([]byte, error) {
	metric, err := domain.NewProgressMetric(count, goal)
	if err != nil {
		return nil, err
	}
	return r.Render(metric)
}

// Render composes the banner and encodes it as PNG.
func (r *Renderer) Render(metric domain.ProgressMetric) ([]byte, error) {
	if metric.Goal <= 0 {
		return nil, fmt.Errorf("%w: goal must be positive, got %d", domain.ErrInvalidArgument, metric.Goal)
	}

	headlineFace, err := r.face(headlineSize, r.fonts.Preferred, r.fonts.Fallback)
	if err != nil {
		return nil, err
	}
	defer headlineFace.Close()

	captionFace, err := r.face(captionSize, r.fonts.Fallback, r.fonts.Preferred)
	if err != nil {
		return nil, err
	}
	defer captionFace.Close()

	layout := r.layout(metric, headlineFace, captionFace)

	canvas := image.NewRGBA(image.Rect(0, 0, CanvasWidth, CanvasHeight))
	fill(canvas, canvas.Bounds(), backgroundColor)

	drawLabel(canvas, headlineFace, layout.Headline)

	fill(canvas, layout.Bar.Outline(), barBorderColor)
	fill(canvas, layout.Bar.Outline().Inset(1), barColor)
	if !layout.Filled.Empty() {
		fill(canvas, layout.Filled, barFillColor)
	}

	drawLabel(canvas, captionFace, layout.Caption)

	var buf bytes.Buffer
	if err := png.Encode(&buf, canvas); err != nil {
		return nil, fmt.Errorf("encode png: %w", err)
	}

	r.debug("banner rendered",
		"count", metric.Count,
		"goal", metric.Goal,
		"ratio", metric.Ratio(),
		"filled_width", layout.Bar.FilledWidth(metric.Ratio()),
		"bytes", buf.Len())

	return buf.Bytes(), nil
}

func (r *Renderer) layout(metric domain.ProgressMetric, headlineFace, captionFace font.Face) Layout {
	headline := placeLabel(headlineFace, metric.CountLabel(), CanvasWidth/2, func(height int) int {
		return headlineCenter - height/2
	})
	caption := placeLabel(captionFace, metric.PercentageLabel(), CanvasWidth/2, func(int) int {
		return r.bar.Bottom() + captionGap
	})

	return Layout{
		Headline: headline,
		Caption:  caption,
		Bar:      r.bar,
		Filled:   r.bar.Filled(metric.Ratio()),
	}
}

func (r *Renderer) face(size float64, paths ...string) (font.Face, error) {
	f, path, err := loadFont(paths...)
	if err != nil {
		return nil, err
	}
	if path != paths[0] {
		r.debug("font fallback", "wanted", paths[0], "using", path, "size", size)
	}
	return newFace(f, size)
}

func (r *Renderer) debug(msg string, args ...interface{}) {
	if r.logger != nil {
		r.logger.Debug(msg, args...)
	}
}

// placeLabel centers text horizontally on centerX. The layout box starts at the
// ascender line, so top(height) positions the box and the ink keeps its bearings.
func placeLabel(face font.Face, text string, centerX int, top func(height int) int) Label {
	bounds, _ := font.BoundString(face, text)
	ascent := face.Metrics().Ascent.Ceil()

	left := bounds.Min.X.Floor()
	right := bounds.Max.X.Ceil()
	inkTop := ascent + bounds.Min.Y.Floor()
	inkBottom := ascent + bounds.Max.Y.Ceil()

	width := right - left
	height := inkBottom - inkTop

	x := centerX - width/2
	y := top(height)

	return Label{
		Text: text,
		Dot:  image.Pt(x, y+ascent),
		Box:  image.Rect(x+left, y+inkTop, x+right, y+inkBottom),
	}
}

func drawLabel(dst draw.Image, face font.Face, label Label) {
	d := &font.Drawer{
		Dst:  dst,
		Src:  image.NewUniform(textColor),
		Face: face,
		Dot:  fixed.P(label.Dot.X, label.Dot.Y),
	}
	d.DrawString(label.Text)
}

func fill(dst draw.Image, rect image.Rectangle, c color.Color) {
	draw.Draw(dst, rect, image.NewUniform(c), image.Point{}, draw.Src)
}
