// Package annotate renders bounding boxes, labels, and status text
// onto raw BGR frame buffers. Grounded on
// original_source/backend/app/utils/detection_manager.py's
// _annotate_frame (3px rectangle, "{class} {confidence:.2f}" label,
// top-left timestamp) reimplemented with golang.org/x/image instead of
// hand-rolled pixel loops, giving that pack dependency a genuine
// consumer.
package annotate

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"

	"github.com/SpherCodes/nexguard-surveillance/internal/model"
)

// BGR wraps a raw BGR byte buffer as a draw.Image so stdlib/x/image
// drawing primitives can operate on it in place.
type BGR struct {
	Pix           []byte
	Width, Height int
}

func (b *BGR) ColorModel() color.Model { return color.RGBAModel }
func (b *BGR) Bounds() image.Rectangle { return image.Rect(0, 0, b.Width, b.Height) }

func (b *BGR) At(x, y int) color.Color {
	if x < 0 || y < 0 || x >= b.Width || y >= b.Height {
		return color.RGBA{}
	}
	off := (y*b.Width + x) * 3
	return color.RGBA{R: b.Pix[off+2], G: b.Pix[off+1], B: b.Pix[off], A: 255}
}

func (b *BGR) Set(x, y int, c color.Color) {
	if x < 0 || y < 0 || x >= b.Width || y >= b.Height {
		return
	}
	r, g, bl, _ := c.RGBA()
	off := (y*b.Width + x) * 3
	b.Pix[off] = byte(bl >> 8)
	b.Pix[off+1] = byte(g >> 8)
	b.Pix[off+2] = byte(r >> 8)
}

// Box draws a thickness-px rectangle outline in the given color.
func Box(img *BGR, x1, y1, x2, y2, thickness int, c color.RGBA) {
	for t := 0; t < thickness; t++ {
		drawHLine(img, x1-t, x2+t, y1-t, c)
		drawHLine(img, x1-t, x2+t, y2+t, c)
		drawVLine(img, x1-t, y1-t, y2+t, c)
		drawVLine(img, x2+t, y1-t, y2+t, c)
	}
}

func drawHLine(img *BGR, x1, x2, y int, c color.RGBA) {
	for x := x1; x <= x2; x++ {
		img.Set(x, y, c)
	}
}

func drawVLine(img *BGR, x, y1, y2 int, c color.RGBA) {
	for y := y1; y <= y2; y++ {
		img.Set(x, y, c)
	}
}

// Text draws a string at (x, y) baseline using the stdlib basic bitmap font.
func Text(img *BGR, x, y int, s string, c color.RGBA) {
	d := &font.Drawer{
		Dst:  img,
		Src:  image.NewUniform(c),
		Face: basicfont.Face7x13,
		Dot:  fixed.Point26_6{X: fixed.I(x), Y: fixed.I(y)},
	}
	d.DrawString(s)
}

var (
	green = color.RGBA{0, 255, 0, 255}
	red   = color.RGBA{255, 0, 0, 255}
	white = color.RGBA{255, 255, 255, 255}
)

// Frame draws every detection's box + label plus a human-readable
// timestamp in the top-left, matching _annotate_frame's layout exactly.
func Frame(pixels []byte, width, height int, detections []model.BoundingBoxDetection, timestamp string) []byte {
	out := make([]byte, len(pixels))
	copy(out, pixels)
	img := &BGR{Pix: out, Width: width, Height: height}

	for _, d := range detections {
		Box(img, d.X1, d.Y1, d.X2, d.Y2, 3, green)
		label := fmt.Sprintf("%s %.2f", d.ClassName, d.Confidence)
		Text(img, d.X1, maxInt(d.Y1-5, 12), label, green)
	}
	Text(img, 5, 15, timestamp, white)
	return out
}

// Overlay adds the WebRTC status line ("Camera: {id}" plus
// "| HUMAN DETECTED" in red when any detection is a person), matching
// the live-view burn-in the track source feeds to viewers.
func Overlay(pixels []byte, width, height int, cameraID int, detections []model.BoundingBoxDetection) []byte {
	out := make([]byte, len(pixels))
	copy(out, pixels)
	img := &BGR{Pix: out, Width: width, Height: height}

	hasPerson := false
	for _, d := range detections {
		Box(img, d.X1, d.Y1, d.X2, d.Y2, 2, green)
		Text(img, d.X1, maxInt(d.Y1-5, 12), fmt.Sprintf("%s %.2f", d.ClassName, d.Confidence), green)
		if d.ClassName == "person" {
			hasPerson = true
		}
	}

	status := fmt.Sprintf("Camera: %d", cameraID)
	Text(img, 5, height-8, status, white)
	if hasPerson {
		Text(img, len(status)*7+15, height-8, "| HUMAN DETECTED", red)
	}
	return out
}

// NoSignal renders a black frame with centered white "No Signal" text.
func NoSignal(width, height int) []byte {
	pixels := make([]byte, width*height*3)
	img := &BGR{Pix: pixels, Width: width, Height: height}
	msg := "No Signal"
	textWidth := len(msg) * 7
	Text(img, maxInt((width-textWidth)/2, 0), height/2, msg, white)
	return pixels
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}

var _ draw.Image = (*BGR)(nil)
