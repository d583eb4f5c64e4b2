// Package config holds the demo settings, read from an optional config.toml
// served next to the page.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/esimov/facecam-gl/camera"
	"github.com/esimov/facecam-gl/detector"
	"github.com/esimov/facecam-gl/log"
	"github.com/pelletier/go-toml/v2"
)

// Render sources.
const (
	// SourcePlaceholder draws the placeholder image on every detection result.
	SourcePlaceholder = "placeholder"
	// SourceCamera draws the camera frame the result was computed from.
	SourceCamera = "camera"
)

// Config is the complete demo configuration.
type Config struct {
	Camera   Camera           `toml:"camera"`
	Detector detector.Options `toml:"detector"`
	Render   Render           `toml:"render"`
	LogLevel string           `toml:"log_level"`
}

// Camera holds the capture resolution.
type Camera struct {
	Width  int `toml:"width"`
	Height int `toml:"height"`
}

// Render selects what the detection result handler draws.
type Render struct {
	Source      string `toml:"source"`
	Placeholder string `toml:"placeholder"`
	CascadeURL  string `toml:"cascade_url"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Camera: Camera{
			Width:  camera.DefaultWidth,
			Height: camera.DefaultHeight,
		},
		Detector: detector.DefaultOptions(),
		Render: Render{
			Source:      SourcePlaceholder,
			Placeholder: "./images/d.jpeg",
			CascadeURL:  "./cascade/",
		},
		LogLevel: "info",
	}
}

// Decode reads a TOML document on top of the defaults. Unknown keys are
// rejected.
func Decode(r io.Reader) (Config, error) {
	cfg := Default()

	data, err := io.ReadAll(r)
	if err != nil {
		return cfg, fmt.Errorf("config: read: %w", err)
	}
	dec := toml.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&cfg); err != nil {
		var strict *toml.StrictMissingError
		if errors.As(err, &strict) {
			return cfg, fmt.Errorf("config: %s", strict.String())
		}
		return cfg, fmt.Errorf("config: decode: %w", err)
	}
	return cfg, cfg.Validate()
}

// Validate checks every section.
func (c Config) Validate() error {
	if c.Camera.Width <= 0 || c.Camera.Height <= 0 {
		return fmt.Errorf("config: invalid camera size %dx%d", c.Camera.Width, c.Camera.Height)
	}
	if err := c.Detector.Validate(); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	switch c.Render.Source {
	case SourcePlaceholder, SourceCamera:
	default:
		return fmt.Errorf("config: unknown render source %q", c.Render.Source)
	}
	if strings.TrimSpace(c.Render.Placeholder) == "" {
		return errors.New("config: missing placeholder image")
	}
	if _, err := log.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	return nil
}

// Encode writes the configuration as TOML.
func (c Config) Encode(w io.Writer) error {
	return toml.NewEncoder(w).Encode(c)
}
