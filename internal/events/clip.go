package events

import (
	"fmt"
	"image/jpeg"
	"os"
	"os/exec"
	"path/filepath"

	"github.com/SpherCodes/nexguard-surveillance/internal/annotate"
)

type clipFrame struct {
	pixels        []byte
	width, height int
}

// writeJPEG encodes a BGR pixel buffer as JPEG to absPath, creating
// parent directories on demand, and returns the written size in bytes.
func writeJPEG(absPath string, pixels []byte, width, height int) (int64, error) {
	if err := os.MkdirAll(filepath.Dir(absPath), 0750); err != nil {
		return 0, fmt.Errorf("mkdir: %w", err)
	}

	f, err := os.Create(absPath)
	if err != nil {
		return 0, fmt.Errorf("create: %w", err)
	}
	defer f.Close()

	img := &annotate.BGR{Pix: pixels, Width: width, Height: height}
	if err := jpeg.Encode(f, img, &jpeg.Options{Quality: 90}); err != nil {
		return 0, fmt.Errorf("encode jpeg: %w", err)
	}

	info, err := f.Stat()
	if err != nil {
		return 0, err
	}
	return info.Size(), nil
}

// encodeClip writes frames as a sequence of JPEGs into a temp
// directory and shells out to ffmpeg with the exact flags the Python
// original used (detection_manager.py _save_video_clip): H.264,
// yuv420p, baseline profile, +faststart, fps=20, and the AAC audio
// codec flag, which adds no audio track because the JPEG input has no
// audio stream. Width/height are forced even by one-pixel trim.
func encodeClip(outputPath string, frames []clipFrame, fps int) (duration float64, sizeBytes int64, err error) {
	if len(frames) == 0 {
		return 0, 0, fmt.Errorf("no frames to encode")
	}

	tmpDir, err := os.MkdirTemp("", "nexguard-clip-*")
	if err != nil {
		return 0, 0, err
	}
	defer os.RemoveAll(tmpDir)

	width := frames[0].width - frames[0].width%2
	height := frames[0].height - frames[0].height%2

	for i, f := range frames {
		framePath := filepath.Join(tmpDir, fmt.Sprintf("frame_%06d.jpg", i))
		if _, err := writeJPEG(framePath, f.pixels, f.width, f.height); err != nil {
			return 0, 0, fmt.Errorf("write frame %d: %w", i, err)
		}
	}

	if err := os.MkdirAll(filepath.Dir(outputPath), 0750); err != nil {
		return 0, 0, fmt.Errorf("mkdir output dir: %w", err)
	}

	cmd := exec.Command("ffmpeg",
		"-y",
		"-framerate", fmt.Sprintf("%d", fps),
		"-i", filepath.Join(tmpDir, "frame_%06d.jpg"),
		"-vf", fmt.Sprintf("crop=%d:%d:0:0", width, height),
		"-c:v", "libx264",
		"-pix_fmt", "yuv420p",
		"-preset", "fast",
		"-crf", "23",
		"-movflags", "+faststart",
		"-profile:v", "baseline",
		"-level", "3.0",
		"-c:a", "aac",
		"-shortest",
		outputPath,
	)
	if out, runErr := cmd.CombinedOutput(); runErr != nil {
		return 0, 0, fmt.Errorf("ffmpeg: %w: %s", runErr, string(out))
	}

	info, err := os.Stat(outputPath)
	if err != nil {
		return 0, 0, err
	}

	duration = float64(len(frames)) / float64(fps)
	return duration, info.Size(), nil
}
