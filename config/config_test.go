package config

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())

	assert.Equal(t, 1280, cfg.Camera.Width)
	assert.Equal(t, 720, cfg.Camera.Height)
	assert.Equal(t, 1, cfg.Detector.MaxNumFaces)
	assert.True(t, cfg.Detector.RefineLandmarks)
	assert.Equal(t, 0.5, cfg.Detector.MinDetectionConfidence)
	assert.Equal(t, 0.5, cfg.Detector.MinTrackingConfidence)
	assert.Equal(t, SourcePlaceholder, cfg.Render.Source)
}

func TestDecodeOverridesDefaults(t *testing.T) {
	cfg, err := Decode(strings.NewReader(`
log_level = "debug"

[camera]
width = 640
height = 480

[detector]
max_num_faces = 2
min_detection_confidence = 0.7

[render]
source = "camera"
`))
	require.NoError(t, err)

	assert.Equal(t, 640, cfg.Camera.Width)
	assert.Equal(t, 480, cfg.Camera.Height)
	assert.Equal(t, 2, cfg.Detector.MaxNumFaces)
	assert.Equal(t, 0.7, cfg.Detector.MinDetectionConfidence)
	assert.Equal(t, 0.5, cfg.Detector.MinTrackingConfidence)
	assert.Equal(t, SourceCamera, cfg.Render.Source)
	assert.Equal(t, "./images/d.jpeg", cfg.Render.Placeholder)
	assert.Equal(t, "debug", cfg.LogLevel)
}

func TestDecodeRejectsInvalid(t *testing.T) {
	for name, doc := range map[string]string{
		"unknown key":    "[camera]\nfps = 30\n",
		"bad source":     "[render]\nsource = \"video\"\n",
		"confidence":     "[detector]\nmin_tracking_confidence = 2.0\n",
		"size":           "[camera]\nwidth = 0\n",
		"log level":      "log_level = \"loud\"\n",
		"syntax":         "[camera\n",
		"no placeholder": "[render]\nplaceholder = \"\"\n",
	} {
		_, err := Decode(strings.NewReader(doc))
		assert.Error(t, err, name)
	}
}

func TestEncodeRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Default().Encode(&buf))

	cfg, err := Decode(&buf)
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}
