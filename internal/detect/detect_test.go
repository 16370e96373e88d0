package detect

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/SpherCodes/nexguard-surveillance/internal/nexerr"
)

func TestInferWithoutLoadedModelFails(t *testing.T) {
	d := NewONNXDetector()
	_, err := d.Infer(make([]byte, 3), 1, 1, 0.5)
	assert.Error(t, err)
	kind, ok := nexerr.KindOf(err)
	assert.True(t, ok)
	assert.Equal(t, nexerr.InferenceFailed, kind)
}

func TestClampInt(t *testing.T) {
	assert.Equal(t, 0, clampInt(-5, 0, 10))
	assert.Equal(t, 10, clampInt(15, 0, 10))
	assert.Equal(t, 4, clampInt(4, 0, 10))
}

func TestLetterboxOverwritesGrayWhereImageLands(t *testing.T) {
	src := make([]byte, 2*2*3)
	dst := make([]float32, 3*4*4)
	letterbox(src, 2, 2, dst, 4, 4)

	// corner pixel of the scaled image should not stay neutral gray.
	plane := 4 * 4
	assert.NotEqual(t, float32(0.5), dst[0*plane+0])
}

func TestDecodeYOLOOutputFiltersLowConfidenceAndUnknownClasses(t *testing.T) {
	const numAnchors = 8400
	out := make([]float32, 84*numAnchors)

	// anchor 0: confident "person" (class 0) detection, full-frame box.
	out[0*numAnchors+0] = 320 // cx
	out[1*numAnchors+0] = 320 // cy
	out[2*numAnchors+0] = 640 // w
	out[3*numAnchors+0] = 640 // h
	out[(4+0)*numAnchors+0] = 0.9

	// anchor 1: high score but an unmapped COCO class (e.g. 4 = airplane).
	out[(4+4)*numAnchors+1] = 0.95

	dets := decodeYOLOOutput(out, 640, 640, 640, 640, 0.5)

	if assert.Len(t, dets, 1) {
		assert.Equal(t, "person", dets[0].ClassName)
		assert.InDelta(t, 0.9, dets[0].Confidence, 1e-6)
	}
}
