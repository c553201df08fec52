package mapview

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"io"
	"math"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

const (
	tileSize   = 256
	maxMercLat = 85.05112878
	ringWidth  = 2.0
)

var (
	canvasColor  = color.RGBA{R: 0xf2, G: 0xf2, B: 0xf2, A: 0xff}
	captionColor = color.RGBA{R: 0x20, G: 0x20, B: 0x20, A: 0xff}

	markerColors = map[string]color.RGBA{
		"blue":  {R: 0x00, G: 0x00, B: 0xff, A: 0xff},
		"red":   {R: 0xff, G: 0x00, B: 0x00, A: 0xff},
		"green": {R: 0x00, G: 0x80, B: 0x00, A: 0xff},
		"black": {R: 0x00, G: 0x00, B: 0x00, A: 0xff},
	}
)

// RenderPNG writes an offline snapshot of the map: markers projected with
// Web Mercator at the map's zoom onto a plain canvas, with a caption. No
// tiles are fetched.
func (m *Map) RenderPNG(w io.Writer, width, height int) error {
	if width <= 0 || height <= 0 {
		return fmt.Errorf("render map png: invalid size %dx%d", width, height)
	}

	img := image.NewRGBA(image.Rect(0, 0, width, height))
	draw.Draw(img, img.Bounds(), &image.Uniform{C: canvasColor}, image.Point{}, draw.Src)

	cx, cy := project(m.Center.Lat, m.Center.Lon, m.Zoom)
	for _, mk := range m.Markers {
		px, py := project(mk.Location.Lat, mk.Location.Lon, m.Zoom)
		x := px - cx + float64(width)/2
		y := py - cy + float64(height)/2
		c, ok := markerColors[mk.Color]
		if !ok {
			c = markerColors[MarkerColor]
		}
		drawRing(img, x, y, float64(mk.Radius), c)
	}

	d := font.Drawer{
		Dst:  img,
		Src:  image.NewUniform(captionColor),
		Face: basicfont.Face7x13,
		Dot:  fixed.P(6, height-6),
	}
	d.DrawString(fmt.Sprintf("%d points  z%d  center %.5f,%.5f",
		len(m.Markers), m.Zoom, m.Center.Lat, m.Center.Lon))

	if err := png.Encode(w, img); err != nil {
		return fmt.Errorf("render map png: %w", err)
	}
	return nil
}

// project converts a coordinate to global Web Mercator pixel space.
func project(lat, lon float64, zoom int) (x, y float64) {
	lat = math.Max(-maxMercLat, math.Min(maxMercLat, lat))
	scale := tileSize * math.Exp2(float64(zoom))
	sinLat := math.Sin(lat * math.Pi / 180)

	x = (lon + 180) / 360 * scale
	y = (0.5 - math.Log((1+sinLat)/(1-sinLat))/(4*math.Pi)) * scale
	return x, y
}

func drawRing(img *image.RGBA, cx, cy, r float64, c color.RGBA) {
	b := img.Bounds()
	outer := r + ringWidth/2
	inner := r - ringWidth/2
	x0, x1 := int(math.Floor(cx-outer)), int(math.Ceil(cx+outer))
	y0, y1 := int(math.Floor(cy-outer)), int(math.Ceil(cy+outer))
	for y := y0; y <= y1; y++ {
		for x := x0; x <= x1; x++ {
			if !(image.Point{X: x, Y: y}).In(b) {
				continue
			}
			d := math.Hypot(float64(x)+0.5-cx, float64(y)+0.5-cy)
			if d >= inner && d <= outer {
				img.SetRGBA(x, y, c)
			}
		}
	}
}
