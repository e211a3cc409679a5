package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "vr_config.txt")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, "# only comments\n\n"))
	require.NoError(t, err)

	assert.Equal(t, SourceMock, cfg.DisplaySource)
	assert.Equal(t, 1.0, cfg.ControlsScale)
	assert.False(t, cfg.ControlsStanding)
	assert.Equal(t, 1.6, cfg.ControlsUserHeight)
	assert.Equal(t, 1.0, cfg.CameraScale)
	assert.Equal(t, 16, cfg.FrameInterval)
}

func TestLoadValues(t *testing.T) {
	cfg, err := Load(writeConfig(t, `
DISPLAY_SOURCE=serial
SERIAL_PORTS = /dev/ttyUSB0, /dev/ttyUSB1 ,
SERIAL_BAUD_RATE=57600
CONTROLS_STANDING=true
CONTROLS_USER_HEIGHT=1.75
CAMERA_SCALE=2.5
STAGE_HEIGHT=1.2
FRAME_INTERVAL=11
`))
	require.NoError(t, err)

	assert.Equal(t, SourceSerial, cfg.DisplaySource)
	assert.Equal(t, []string{"/dev/ttyUSB0", "/dev/ttyUSB1"}, cfg.SerialPorts)
	assert.Equal(t, 57600, cfg.SerialBaudRate)
	assert.True(t, cfg.ControlsStanding)
	assert.Equal(t, 1.75, cfg.ControlsUserHeight)
	assert.Equal(t, 2.5, cfg.CameraScale)
	assert.Equal(t, 1.2, cfg.StageHeight)
	assert.Equal(t, 11, cfg.FrameInterval)
}

func TestLoadErrors(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{"unknown key", "NOPE=1\n", `unknown config key: "NOPE"`},
		{"missing equals", "DISPLAY_SOURCE\n", "invalid config line 1"},
		{"bad source", "DISPLAY_SOURCE=usb\n", "DISPLAY_SOURCE must be one of"},
		{"bad bool", "CONTROLS_STANDING=maybe\n", "invalid CONTROLS_STANDING"},
		{"negative height", "CONTROLS_USER_HEIGHT=-1\n", "CONTROLS_USER_HEIGHT must be >= 0"},
		{"mqtt needs broker", "DISPLAY_SOURCE=mqtt\n", "MQTT_BROKER is required"},
		{"imu needs device", "DISPLAY_SOURCE=imu\n", "IMU_SPI_DEVICE is required"},
		{"serial needs ports", "DISPLAY_SOURCE=serial\n", "SERIAL_PORTS is required"},
		{"zero frame interval", "FRAME_INTERVAL=0\n", "FRAME_INTERVAL must be > 0"},
		{"zero console interval", "CONSOLE_LOG_INTERVAL=0\n", "CONSOLE_LOG_INTERVAL must be > 0"},
		{"negative console interval", "CONSOLE_LOG_INTERVAL=-5\n", "CONSOLE_LOG_INTERVAL must be > 0"},
		{"zero enumerate timeout", "ENUMERATE_TIMEOUT=0\n", "ENUMERATE_TIMEOUT must be > 0"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.body))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.txt"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to open config file")
}
