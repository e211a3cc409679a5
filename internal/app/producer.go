package app

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/relabs-tech/vr_controls/internal/config"
	"github.com/relabs-tech/vr_controls/internal/display"
	"github.com/relabs-tech/vr_controls/internal/orientation"
)

// RunPoseProducer reads poses from the mock or IMU source and publishes
// them as display frames, so a viewer with DISPLAY_SOURCE=mqtt can use
// this process as its display.
func RunPoseProducer() error {
	log.Println("starting vr-controls pose producer")

	cfg := config.Get()
	if cfg.MQTTBroker == "" {
		return fmt.Errorf("MQTT_BROKER is required for the pose producer")
	}

	// --- Choose pose source (mock vs real IMU) ---
	var src orientation.Source
	if cfg.DisplaySource == config.SourceIMU {
		var err error
		src, err = orientation.NewIMUSource(cfg.IMUSPIDevice, cfg.IMUCSPin)
		if err != nil {
			return fmt.Errorf("IMU source: %w", err)
		}
		log.Printf("using IMU on %s for poses", cfg.IMUSPIDevice)
	} else {
		log.Println("using mock pose source")
		src = orientation.NewMockSource()
	}

	// --- connect to MQTT ---
	opts := mqtt.NewClientOptions().
		AddBroker(cfg.MQTTBroker).
		SetClientID(cfg.MQTTClientIDProducer)

	client := mqtt.NewClient(opts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		return fmt.Errorf("MQTT connect: %w", token.Error())
	}
	defer client.Disconnect(250)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	p := &poseProducer{
		client: client,
		topics: topics(cfg),
		name:   cfg.ProducerDisplayName,
		stage:  stageFor(cfg),
		src:    src,
		start:  time.Now(),
	}
	if err := p.announce(); err != nil {
		return err
	}
	if err := p.subscribeReset(); err != nil {
		return err
	}
	log.Println("connected to MQTT, starting publish loop")

	err := p.run(ctx, time.Duration(cfg.FrameInterval)*time.Millisecond, time.Duration(cfg.ConsoleLogInterval)*time.Millisecond)

	// Withdraw the display so viewers see it disconnect.
	if werr := p.withdraw(); werr != nil {
		log.Printf("withdraw error: %v", werr)
	}
	return err
}

type poseProducer struct {
	client mqtt.Client
	topics display.MQTTTopics
	name   string
	stage  *display.StageParameters
	src    orientation.Source
	start  time.Time
}

func (p *poseProducer) announce() error {
	return p.publishAnnouncements([]display.Announcement{{Name: p.name, Stage: p.stage}})
}

func (p *poseProducer) withdraw() error {
	return p.publishAnnouncements([]display.Announcement{})
}

func (p *poseProducer) publishAnnouncements(list []display.Announcement) error {
	payload, err := json.Marshal(list)
	if err != nil {
		return fmt.Errorf("json marshal error (announcement): %w", err)
	}
	if token := p.client.Publish(p.topics.Displays, 0, true, payload); token.Wait() && token.Error() != nil {
		return fmt.Errorf("MQTT publish error (announcement): %w", token.Error())
	}
	return nil
}

func (p *poseProducer) subscribeReset() error {
	topic := p.topics.ResetTopic(p.name)
	token := p.client.Subscribe(topic, 0, func(_ mqtt.Client, _ mqtt.Message) {
		if r, ok := p.src.(orientation.Resetter); ok {
			r.Reset()
			log.Println("pose reset requested")
		}
	})
	if token.Wait() && token.Error() != nil {
		return fmt.Errorf("subscribe %s: %w", topic, token.Error())
	}
	log.Printf("subscribed to MQTT topic %s", topic)
	return nil
}

// publishFrame reads one pose and publishes it on the display's frame topic.
func (p *poseProducer) publishFrame(t time.Time) (orientation.Pose, error) {
	pose, err := p.src.Next()
	if err != nil {
		return orientation.Pose{}, fmt.Errorf("pose source: %w", err)
	}

	fd := display.FrameData{
		Timestamp: float64(t.Sub(p.start).Microseconds()) / 1000,
		Pose:      pose,
	}
	payload, err := json.Marshal(fd)
	if err != nil {
		return pose, fmt.Errorf("json marshal error (frame): %w", err)
	}
	if token := p.client.Publish(p.topics.FrameTopic(p.name), 0, false, payload); token.Wait() && token.Error() != nil {
		return pose, fmt.Errorf("MQTT publish error (frame): %w", token.Error())
	}
	return pose, nil
}

func (p *poseProducer) run(ctx context.Context, frame, logEvery time.Duration) error {
	ticker := time.NewTicker(frame)
	defer ticker.Stop()

	var lastLog time.Time
	for {
		select {
		case <-ctx.Done():
			return nil
		case t := <-ticker.C:
			pose, err := p.publishFrame(t)
			if err != nil {
				log.Printf("%v", err)
				continue
			}
			if t.Sub(lastLog) >= logEvery && pose.Orientation != nil {
				lastLog = t
				roll, pitch, yaw := orientation.ToEuler(*pose.Orientation)
				log.Printf("%s published pose: R=%.2f P=%.2f Y=%.2f", t.Format(time.RFC3339), roll, pitch, yaw)
			}
		}
	}
}
