package capture

// resizeNearest resizes a raw BGR buffer using nearest-neighbor
// sampling. Grounded on video_capture.py's cv2.resize call at the
// point where a decoded frame's dimensions differ from the camera's
// configured resolution; no third-party image-resize library appears
// in the example pack for byte buffers of this shape, so this is a
// small stdlib-only helper (see DESIGN.md).
func resizeNearest(src []byte, srcW, srcH, dstW, dstH int) []byte {
	if srcW == dstW && srcH == dstH {
		return src
	}
	dst := make([]byte, dstW*dstH*3)
	for y := 0; y < dstH; y++ {
		srcY := y * srcH / dstH
		for x := 0; x < dstW; x++ {
			srcX := x * srcW / dstW
			srcOff := (srcY*srcW + srcX) * 3
			dstOff := (y*dstW + x) * 3
			if srcOff+2 < len(src) {
				dst[dstOff] = src[srcOff]
				dst[dstOff+1] = src[srcOff+1]
				dst[dstOff+2] = src[srcOff+2]
			}
		}
	}
	return dst
}
