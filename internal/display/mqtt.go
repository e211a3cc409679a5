package display

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"sync"

	mqtt "github.com/eclipse/paho.mqtt.golang"
)

// MQTTTopics names the topics shared by the MQTT provider and the pose producer.
type MQTTTopics struct {
	Displays string // retained JSON list of Announcement
	Frame    string // prefix; frames for a display go to Frame + "/" + name
	Reset    string // prefix; reset requests go to Reset + "/" + name
}

// FrameTopic returns the topic carrying FrameData for the named display.
func (t MQTTTopics) FrameTopic(name string) string { return t.Frame + "/" + name }

// ResetTopic returns the topic the named display listens on for pose resets.
func (t MQTTTopics) ResetTopic(name string) string { return t.Reset + "/" + name }

// Announcement describes one display published on MQTTTopics.Displays.
type Announcement struct {
	Name  string           `json:"name"`
	Stage *StageParameters `json:"stage,omitempty"`
}

// MQTTProvider enumerates displays announced over MQTT. Displays stay
// connected while they remain in the announced list.
type MQTTProvider struct {
	client mqtt.Client
	topics MQTTTopics

	mu       sync.Mutex
	displays map[string]*mqttDisplay
}

// NewMQTTProvider returns a provider using an already connected client.
func NewMQTTProvider(client mqtt.Client, topics MQTTTopics) *MQTTProvider {
	return &MQTTProvider{
		client:   client,
		topics:   topics,
		displays: make(map[string]*mqttDisplay),
	}
}

// GetDisplays waits for the announced display list. If nothing has been
// announced when ctx expires the list is empty.
func (p *MQTTProvider) GetDisplays(ctx context.Context) ([]Display, error) {
	first := make(chan []Announcement, 1)

	token := p.client.Subscribe(p.topics.Displays, 0, func(_ mqtt.Client, msg mqtt.Message) {
		var list []Announcement
		if err := json.Unmarshal(msg.Payload(), &list); err != nil {
			log.Printf("display: announcement unmarshal error: %v", err)
			return
		}
		p.handleAnnouncements(list)
		select {
		case first <- list:
		default:
		}
	})
	if token.Wait() && token.Error() != nil {
		return nil, fmt.Errorf("subscribe %s: %w", p.topics.Displays, token.Error())
	}

	var list []Announcement
	select {
	case list = <-first:
	case <-ctx.Done():
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			// The announcement subscription stays: displays returned by an
			// earlier call still need their online flag kept current.
			log.Printf("display: no displays announced on %s", p.topics.Displays)
			return nil, nil
		}
		return nil, ctx.Err()
	}

	out := make([]Display, 0, len(list))
	for _, a := range list {
		d := p.display(a.Name)
		frameTopic := p.topics.FrameTopic(a.Name)
		token := p.client.Subscribe(frameTopic, 0, d.handleFrame)
		if token.Wait() && token.Error() != nil {
			return nil, fmt.Errorf("subscribe %s: %w", frameTopic, token.Error())
		}
		log.Printf("display: subscribed to %s", frameTopic)
		out = append(out, d)
	}
	return out, nil
}

func (p *MQTTProvider) display(name string) *mqttDisplay {
	p.mu.Lock()
	defer p.mu.Unlock()
	d, ok := p.displays[name]
	if !ok {
		d = &mqttDisplay{name: name, client: p.client, resetTopic: p.topics.ResetTopic(name)}
		p.displays[name] = d
	}
	return d
}

// handleAnnouncements refreshes stage parameters and the online flag of
// every known display. Names seen for the first time are recorded so the
// next GetDisplays hands out the same display values.
func (p *MQTTProvider) handleAnnouncements(list []Announcement) {
	announced := make(map[string]*StageParameters, len(list))
	for _, a := range list {
		announced[a.Name] = a.Stage
	}

	for _, a := range list {
		p.display(a.Name)
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	for name, d := range p.displays {
		stage, ok := announced[name]
		d.setAnnounced(ok, stage)
	}
}

type mqttDisplay struct {
	name       string
	client     mqtt.Client
	resetTopic string

	mu        sync.RWMutex
	online    bool
	stage     *StageParameters
	frame     FrameData
	haveFrame bool
}

func (d *mqttDisplay) DisplayName() string { return d.name }

func (d *mqttDisplay) StageParameters() *StageParameters {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.stage
}

func (d *mqttDisplay) IsConnected() bool {
	d.mu.RLock()
	online := d.online
	d.mu.RUnlock()
	return online && d.client.IsConnectionOpen()
}

// GetFrameData copies the latest received frame into fd. It reports
// false and leaves fd untouched until a first frame has arrived.
func (d *mqttDisplay) GetFrameData(fd *FrameData) bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if !d.haveFrame {
		return false
	}
	*fd = d.frame
	return true
}

func (d *mqttDisplay) ResetPose() {
	token := d.client.Publish(d.resetTopic, 0, false, []byte("{}"))
	if token.Wait() && token.Error() != nil {
		log.Printf("display %s: MQTT publish error (reset): %v", d.name, token.Error())
	}
}

func (d *mqttDisplay) handleFrame(_ mqtt.Client, msg mqtt.Message) {
	var fd FrameData
	if err := json.Unmarshal(msg.Payload(), &fd); err != nil {
		log.Printf("display %s: frame unmarshal error: %v", d.name, err)
		return
	}
	d.mu.Lock()
	d.frame = fd
	d.haveFrame = true
	d.mu.Unlock()
}

func (d *mqttDisplay) setAnnounced(online bool, stage *StageParameters) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.online = online
	if online {
		d.stage = stage
	}
}
