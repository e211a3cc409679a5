// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package config

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"
	"sync"
)

// Display sources understood by app.NewProvider.
const (
	SourceMock   = "mock"
	SourceMQTT   = "mqtt"
	SourceSerial = "serial"
	SourceIMU    = "imu"
)

// Config holds all application configuration values.
type Config struct {
	// Display source: "mock", "mqtt", "serial" or "imu"
	DisplaySource string

	// MQTT
	MQTTBroker           string
	MQTTClientIDViewer   string
	MQTTClientIDProducer string

	// Topics
	TopicDisplays string // retained list of announced displays
	TopicFrame    string // prefix, display name is appended
	TopicReset    string // prefix, display name is appended

	// Serial trackers (comma separated list of ports)
	SerialPorts    []string
	SerialBaudRate int

	// IMU Hardware
	IMUSPIDevice string
	IMUCSPin     string

	// Controls
	ControlsScale      float64
	ControlsStanding   bool
	ControlsUserHeight float64
	CameraScale        float64

	// Name announced by the pose producer
	ProducerDisplayName string

	// Sitting-to-standing height for sources without a stage of their own
	// (mock, imu). Zero means the display reports no stage parameters.
	StageHeight float64

	// Timing
	FrameInterval      int // milliseconds
	ConsoleLogInterval int // milliseconds
	EnumerateTimeout   int // milliseconds

	// Web Server
	WebServerPort int
}

var (
	globalConfig *Config
	configOnce   sync.Once
	configMu     sync.RWMutex
)

// Default returns a Config populated with the values used when a key is
// absent from the configuration file.
func Default() *Config {
	return &Config{
		DisplaySource:        SourceMock,
		MQTTClientIDViewer:   "vr-controls-viewer",
		MQTTClientIDProducer: "vr-controls-producer",
		TopicDisplays:        "vr/displays",
		TopicFrame:           "vr/frame",
		TopicReset:           "vr/reset",
		SerialBaudRate:       115200,
		ControlsScale:        1,
		ControlsUserHeight:   1.6,
		CameraScale:          1,
		ProducerDisplayName:  "hmd0",
		FrameInterval:        16,
		ConsoleLogInterval:   500,
		EnumerateTimeout:     2000,
		WebServerPort:        8080,
	}
}

// Load reads the configuration file and returns a Config struct.
func Load(configPath string) (*Config, error) {
	file, err := os.Open(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open config file: %w", err)
	}
	defer file.Close()

	cfg := Default()
	scanner := bufio.NewScanner(file)
	lineNum := 0

	for scanner.Scan() {
		lineNum++
		line := strings.TrimSpace(scanner.Text())

		// Skip empty lines and comments
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		// Parse KEY=VALUE
		parts := strings.SplitN(line, "=", 2)
		if len(parts) != 2 {
			return nil, fmt.Errorf("invalid config line %d: %q", lineNum, line)
		}

		key := strings.TrimSpace(parts[0])
		value := strings.TrimSpace(parts[1])

		if err := cfg.setValue(key, value); err != nil {
			return nil, fmt.Errorf("config line %d: %w", lineNum, err)
		}
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// setValue sets a config value based on the key.
func (c *Config) setValue(key, value string) error {
	switch key {
	case "DISPLAY_SOURCE":
		switch value {
		case SourceMock, SourceMQTT, SourceSerial, SourceIMU:
			c.DisplaySource = value
		default:
			return fmt.Errorf("DISPLAY_SOURCE must be one of mock, mqtt, serial, imu, got %q", value)
		}

	// MQTT
	case "MQTT_BROKER":
		c.MQTTBroker = value
	case "MQTT_CLIENT_ID_VIEWER":
		c.MQTTClientIDViewer = value
	case "MQTT_CLIENT_ID_PRODUCER":
		c.MQTTClientIDProducer = value

	// Topics
	case "TOPIC_DISPLAYS":
		c.TopicDisplays = value
	case "TOPIC_FRAME":
		c.TopicFrame = value
	case "TOPIC_RESET":
		c.TopicReset = value

	// Serial
	case "SERIAL_PORTS":
		c.SerialPorts = nil
		for _, p := range strings.Split(value, ",") {
			if p = strings.TrimSpace(p); p != "" {
				c.SerialPorts = append(c.SerialPorts, p)
			}
		}
	case "SERIAL_BAUD_RATE":
		rate, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid SERIAL_BAUD_RATE %q: %w", value, err)
		}
		c.SerialBaudRate = rate

	// IMU Hardware
	case "IMU_SPI_DEVICE":
		c.IMUSPIDevice = value
	case "IMU_CS_PIN":
		c.IMUCSPin = value

	// Controls
	case "CONTROLS_SCALE":
		f, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return fmt.Errorf("invalid CONTROLS_SCALE %q: %w", value, err)
		}
		c.ControlsScale = f
	case "CONTROLS_STANDING":
		b, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("invalid CONTROLS_STANDING %q: %w", value, err)
		}
		c.ControlsStanding = b
	case "CONTROLS_USER_HEIGHT":
		f, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return fmt.Errorf("invalid CONTROLS_USER_HEIGHT %q: %w", value, err)
		}
		if f < 0 {
			return fmt.Errorf("CONTROLS_USER_HEIGHT must be >= 0, got %g", f)
		}
		c.ControlsUserHeight = f
	case "CAMERA_SCALE":
		f, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return fmt.Errorf("invalid CAMERA_SCALE %q: %w", value, err)
		}
		c.CameraScale = f
	case "PRODUCER_DISPLAY_NAME":
		c.ProducerDisplayName = value
	case "STAGE_HEIGHT":
		f, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return fmt.Errorf("invalid STAGE_HEIGHT %q: %w", value, err)
		}
		c.StageHeight = f

	// Timing
	case "FRAME_INTERVAL":
		interval, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid FRAME_INTERVAL %q: %w", value, err)
		}
		c.FrameInterval = interval
	case "CONSOLE_LOG_INTERVAL":
		interval, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid CONSOLE_LOG_INTERVAL %q: %w", value, err)
		}
		c.ConsoleLogInterval = interval
	case "ENUMERATE_TIMEOUT":
		ms, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid ENUMERATE_TIMEOUT %q: %w", value, err)
		}
		c.EnumerateTimeout = ms

	// Web Server
	case "WEB_SERVER_PORT":
		port, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid WEB_SERVER_PORT %q: %w", value, err)
		}
		c.WebServerPort = port

	default:
		return fmt.Errorf("unknown config key: %q", key)
	}

	return nil
}

// validate checks that the fields required by the selected display source are set.
func (c *Config) validate() error {
	if c.FrameInterval <= 0 {
		return fmt.Errorf("FRAME_INTERVAL must be > 0")
	}
	if c.ConsoleLogInterval <= 0 {
		return fmt.Errorf("CONSOLE_LOG_INTERVAL must be > 0")
	}
	if c.EnumerateTimeout <= 0 {
		return fmt.Errorf("ENUMERATE_TIMEOUT must be > 0")
	}
	switch c.DisplaySource {
	case SourceMQTT:
		if c.MQTTBroker == "" {
			return fmt.Errorf("MQTT_BROKER is required for DISPLAY_SOURCE=mqtt")
		}
	case SourceSerial:
		if len(c.SerialPorts) == 0 {
			return fmt.Errorf("SERIAL_PORTS is required for DISPLAY_SOURCE=serial")
		}
		if c.SerialBaudRate == 0 {
			return fmt.Errorf("SERIAL_BAUD_RATE is required for DISPLAY_SOURCE=serial")
		}
	case SourceIMU:
		if c.IMUSPIDevice == "" {
			return fmt.Errorf("IMU_SPI_DEVICE is required for DISPLAY_SOURCE=imu")
		}
		if c.IMUCSPin == "" {
			return fmt.Errorf("IMU_CS_PIN is required for DISPLAY_SOURCE=imu")
		}
	}
	return nil
}

// InitGlobal initializes the global configuration from file.
// Only the first call loads the file.
func InitGlobal(configPath string) error {
	var err error
	configOnce.Do(func() {
		configMu.Lock()
		defer configMu.Unlock()
		globalConfig, err = Load(configPath)
	})
	return err
}

// Get returns the global configuration instance.
// InitGlobal must be called first, or this will return nil.
func Get() *Config {
	configMu.RLock()
	defer configMu.RUnlock()
	return globalConfig
}
