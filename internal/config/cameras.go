package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/SpherCodes/nexguard-surveillance/internal/model"
)

// cameraFile is the on-disk shape of a camera-list config file. The
// core never owns camera CRUD (that lives in the external relational
// layer), but operators running the reference server without a Store
// still need a way to seed cameras, matching the teacher's YAML
// license-config loading convention in cmd/server/main.go.
type cameraFile struct {
	Cameras []model.CameraConfig `yaml:"cameras"`
}

// LoadCameraList reads a YAML file of camera definitions, applying the
// package defaults for any field the operator left zero-valued.
func LoadCameraList(path string, cfg *Config) ([]model.CameraConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read camera list %s: %w", path, err)
	}

	var parsed cameraFile
	if err := yaml.Unmarshal(data, &parsed); err != nil {
		return nil, fmt.Errorf("parse camera list %s: %w", path, err)
	}

	for i := range parsed.Cameras {
		c := &parsed.Cameras[i]
		if c.FPSTarget <= 0 {
			c.FPSTarget = cfg.DefaultFPS
		}
		if c.Width <= 0 {
			c.Width = cfg.DefaultWidth
		}
		if c.Height <= 0 {
			c.Height = cfg.DefaultHeight
		}
		if c.BufferSize <= 0 {
			c.BufferSize = cfg.DefaultBufferSize
		}
		if c.DisplayName == "" {
			c.DisplayName = fmt.Sprintf("Cam%d", c.CameraID)
		}
	}

	return parsed.Cameras, nil
}
