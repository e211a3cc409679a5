package app

import (
	"fmt"
	"log"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/relabs-tech/vr_controls/internal/config"
	"github.com/relabs-tech/vr_controls/internal/display"
	"github.com/relabs-tech/vr_controls/internal/orientation"
)

// NewProvider builds the display provider selected by DISPLAY_SOURCE.
// The returned close function releases ports and connections.
func NewProvider(cfg *config.Config) (display.Provider, func(), error) {
	switch cfg.DisplaySource {
	case config.SourceMock:
		log.Println("using mock display")
		d := display.NewSourceDisplay("mock", orientation.NewMockSource(), stageFor(cfg))
		return display.StaticProvider{d}, func() {}, nil

	case config.SourceIMU:
		src, err := orientation.NewIMUSource(cfg.IMUSPIDevice, cfg.IMUCSPin)
		if err != nil {
			return nil, nil, fmt.Errorf("IMU display: %w", err)
		}
		log.Printf("using IMU display on %s", cfg.IMUSPIDevice)
		d := display.NewSourceDisplay("imu", src, stageFor(cfg))
		return display.StaticProvider{d}, func() {}, nil

	case config.SourceSerial:
		p := display.NewSerialProvider(cfg.SerialPorts, cfg.SerialBaudRate)
		return p, func() {
			if err := p.Close(); err != nil {
				log.Printf("serial close error: %v", err)
			}
		}, nil

	case config.SourceMQTT:
		opts := mqtt.NewClientOptions().
			AddBroker(cfg.MQTTBroker).
			SetClientID(cfg.MQTTClientIDViewer)

		client := mqtt.NewClient(opts)
		if token := client.Connect(); token.Wait() && token.Error() != nil {
			return nil, nil, fmt.Errorf("MQTT connect: %w", token.Error())
		}
		log.Printf("connected to MQTT broker at %s", cfg.MQTTBroker)
		return display.NewMQTTProvider(client, topics(cfg)), func() { client.Disconnect(250) }, nil
	}
	return nil, nil, fmt.Errorf("unknown display source %q", cfg.DisplaySource)
}

func stageFor(cfg *config.Config) *display.StageParameters {
	if cfg.StageHeight == 0 {
		return nil
	}
	return display.StandingStage(cfg.StageHeight)
}

func topics(cfg *config.Config) display.MQTTTopics {
	return display.MQTTTopics{
		Displays: cfg.TopicDisplays,
		Frame:    cfg.TopicFrame,
		Reset:    cfg.TopicReset,
	}
}
