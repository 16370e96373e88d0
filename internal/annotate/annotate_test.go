package annotate

import (
	"image/color"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/SpherCodes/nexguard-surveillance/internal/model"
)

func TestBGRSetAndAtRoundTrip(t *testing.T) {
	img := &BGR{Pix: make([]byte, 4*4*3), Width: 4, Height: 4}
	img.Set(1, 1, color.RGBA{R: 10, G: 20, B: 30, A: 255})

	got := img.At(1, 1)
	r, g, b, _ := got.RGBA()
	assert.Equal(t, uint32(10*257), r)
	assert.Equal(t, uint32(20*257), g)
	assert.Equal(t, uint32(30*257), b)
}

func TestBGRAtOutOfBoundsReturnsZeroValue(t *testing.T) {
	img := &BGR{Pix: make([]byte, 2*2*3), Width: 2, Height: 2}
	assert.Equal(t, color.RGBA{}, img.At(-1, 0))
	assert.Equal(t, color.RGBA{}, img.At(5, 5))
}

func TestBoxDrawsOutlineWithoutPanicking(t *testing.T) {
	img := &BGR{Pix: make([]byte, 10*10*3), Width: 10, Height: 10}
	assert.NotPanics(t, func() {
		Box(img, 2, 2, 6, 6, 2, color.RGBA{G: 255, A: 255})
	})
	// at least one pixel on the boundary turned green.
	r, g, b, _ := img.At(2, 2).RGBA()
	assert.Equal(t, uint32(0), r)
	assert.NotEqual(t, uint32(0), g)
	assert.Equal(t, uint32(0), b)
}

func TestFrameReturnsCopyLeavingSourceUntouched(t *testing.T) {
	src := make([]byte, 20*20*3)
	dets := []model.BoundingBoxDetection{{ClassName: "person", Confidence: 0.91, X1: 2, Y1: 2, X2: 10, Y2: 10}}

	out := Frame(src, 20, 20, dets, "12:00:00")

	assert.Len(t, out, len(src))
	assert.NotEqual(t, src, out)
	for _, p := range src {
		assert.Equal(t, byte(0), p)
	}
}

func TestOverlayPreservesFrameSize(t *testing.T) {
	src := make([]byte, 40*40*3)
	dets := []model.BoundingBoxDetection{{ClassName: "person", Confidence: 0.8, X1: 1, Y1: 1, X2: 5, Y2: 5}}

	out := Overlay(src, 40, 40, 7, dets)
	assert.Len(t, out, len(src))
}

func TestNoSignalFillsFrameSize(t *testing.T) {
	out := NoSignal(16, 8)
	assert.Len(t, out, 16*8*3)
}
