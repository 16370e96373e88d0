package capture

import "testing"

func TestIsLocalDeviceIndex(t *testing.T) {
	cases := map[string]bool{
		"":                         false,
		"0":                        true,
		"2":                        true,
		"rtsp://cam1/stream":       false,
		"/dev/video0":              false,
		"/var/media/sample.mp4":    false,
		"http://host/stream.m3u8":  false,
	}
	for url, want := range cases {
		if got := IsLocalDeviceIndex(url); got != want {
			t.Errorf("IsLocalDeviceIndex(%q) = %v, want %v", url, got, want)
		}
	}
}

func TestDefaultOpenerAppliesDimensionFallbacks(t *testing.T) {
	src, err := DefaultOpener("0", 0, 0)
	if err != nil {
		t.Fatalf("DefaultOpener: %v", err)
	}
	defer src.Close()

	pixels, w, h, err := src.Read()
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if w != 640 || h != 480 {
		t.Fatalf("got %dx%d, want 640x480 default", w, h)
	}
	if len(pixels) != 640*480*3 {
		t.Fatalf("got %d pixel bytes, want %d", len(pixels), 640*480*3)
	}
}

func TestSyntheticSourceFramesAnimate(t *testing.T) {
	src, err := DefaultOpener("0", 8, 8)
	if err != nil {
		t.Fatalf("DefaultOpener: %v", err)
	}
	defer src.Close()

	first, _, _, err := src.Read()
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	second, _, _, err := src.Read()
	if err != nil {
		t.Fatalf("Read: %v", err)
	}

	same := true
	for i := range first {
		if first[i] != second[i] {
			same = false
			break
		}
	}
	if same {
		t.Fatal("expected consecutive synthetic frames to differ")
	}
}
