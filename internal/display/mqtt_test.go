package display

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type doneToken struct{}

func (doneToken) Wait() bool                     { return true }
func (doneToken) WaitTimeout(time.Duration) bool { return true }
func (doneToken) Done() <-chan struct{} {
	ch := make(chan struct{})
	close(ch)
	return ch
}
func (doneToken) Error() error { return nil }

type fakeMessage struct {
	topic   string
	payload []byte
}

func (m fakeMessage) Duplicate() bool   { return false }
func (m fakeMessage) Qos() byte         { return 0 }
func (m fakeMessage) Retained() bool    { return false }
func (m fakeMessage) Topic() string     { return m.topic }
func (m fakeMessage) MessageID() uint16 { return 0 }
func (m fakeMessage) Payload() []byte   { return m.payload }
func (m fakeMessage) Ack()              {}

// fakeClient is an in-memory broker for a single client. Retained
// payloads are delivered on subscribe.
type fakeClient struct {
	mqtt.Client

	mu        sync.Mutex
	handlers  map[string]mqtt.MessageHandler
	retained  map[string][]byte
	published []fakeMessage
}

func newFakeClient() *fakeClient {
	return &fakeClient{
		handlers: make(map[string]mqtt.MessageHandler),
		retained: make(map[string][]byte),
	}
}

func (c *fakeClient) IsConnectionOpen() bool { return true }

func (c *fakeClient) Subscribe(topic string, _ byte, cb mqtt.MessageHandler) mqtt.Token {
	c.mu.Lock()
	c.handlers[topic] = cb
	payload, ok := c.retained[topic]
	c.mu.Unlock()
	if ok {
		cb(c, fakeMessage{topic: topic, payload: payload})
	}
	return doneToken{}
}

func (c *fakeClient) Publish(topic string, _ byte, retained bool, payload interface{}) mqtt.Token {
	b := payload.([]byte)
	c.mu.Lock()
	c.published = append(c.published, fakeMessage{topic: topic, payload: b})
	if retained {
		c.retained[topic] = b
	}
	cb := c.handlers[topic]
	c.mu.Unlock()
	if cb != nil {
		cb(c, fakeMessage{topic: topic, payload: b})
	}
	return doneToken{}
}

var testTopics = MQTTTopics{Displays: "vr/displays", Frame: "vr/frame", Reset: "vr/reset"}

func publishJSON(t *testing.T, c *fakeClient, topic string, retained bool, v interface{}) {
	t.Helper()
	b, err := json.Marshal(v)
	require.NoError(t, err)
	c.Publish(topic, 0, retained, b)
}

func TestMQTTProviderEnumeratesAnnouncedDisplays(t *testing.T) {
	c := newFakeClient()
	publishJSON(t, c, testTopics.Displays, true, []Announcement{
		{Name: "left", Stage: StandingStage(1.5)},
		{Name: "right"},
	})

	displays, err := NewMQTTProvider(c, testTopics).GetDisplays(context.Background())
	require.NoError(t, err)
	require.Len(t, displays, 2)
	assert.Equal(t, "left", displays[0].DisplayName())
	assert.Equal(t, "right", displays[1].DisplayName())
	assert.NotNil(t, displays[0].StageParameters())
	assert.Nil(t, displays[1].StageParameters())
	assert.True(t, displays[0].IsConnected())
}

func TestMQTTProviderTimesOutToEmptyList(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	displays, err := NewMQTTProvider(newFakeClient(), testTopics).GetDisplays(ctx)
	require.NoError(t, err)
	assert.Empty(t, displays)
}

func TestMQTTDisplayFrames(t *testing.T) {
	c := newFakeClient()
	publishJSON(t, c, testTopics.Displays, true, []Announcement{{Name: "hmd"}})

	displays, err := NewMQTTProvider(c, testTopics).GetDisplays(context.Background())
	require.NoError(t, err)
	reader, ok := displays[0].(FrameDataReader)
	require.True(t, ok)

	var fd FrameData
	assert.False(t, reader.GetFrameData(&fd), "no frame received yet")

	q := [4]float64{0, 0, 0, 1}
	p := [3]float64{0.1, 1.7, -0.2}
	publishJSON(t, c, testTopics.FrameTopic("hmd"), false, FrameData{Timestamp: 42})
	c.Publish(testTopics.FrameTopic("hmd"), 0, false, []byte("not json"))
	publishJSON(t, c, testTopics.FrameTopic("hmd"), false, FrameData{Timestamp: 43})
	publishJSON(t, c, testTopics.FrameTopic("hmd"), false, map[string]interface{}{
		"timestamp": 44,
		"pose":      map[string]interface{}{"orientation": q, "position": p},
	})

	require.True(t, reader.GetFrameData(&fd))
	assert.Equal(t, 44.0, fd.Timestamp)
	require.NotNil(t, fd.Pose.Orientation)
	require.NotNil(t, fd.Pose.Position)
	assert.Equal(t, p, *fd.Pose.Position)
}

func TestMQTTDisplayResetPublishes(t *testing.T) {
	c := newFakeClient()
	publishJSON(t, c, testTopics.Displays, true, []Announcement{{Name: "hmd"}})
	displays, err := NewMQTTProvider(c, testTopics).GetDisplays(context.Background())
	require.NoError(t, err)

	displays[0].ResetPose()

	last := c.published[len(c.published)-1]
	assert.Equal(t, "vr/reset/hmd", last.topic)
}

func TestMQTTDisplayGoesOfflineWhenUnannounced(t *testing.T) {
	c := newFakeClient()
	publishJSON(t, c, testTopics.Displays, true, []Announcement{{Name: "hmd"}})
	displays, err := NewMQTTProvider(c, testTopics).GetDisplays(context.Background())
	require.NoError(t, err)
	require.True(t, displays[0].IsConnected())

	publishJSON(t, c, testTopics.Displays, true, []Announcement{})
	assert.False(t, displays[0].IsConnected())

	publishJSON(t, c, testTopics.Displays, true, []Announcement{{Name: "hmd"}})
	assert.True(t, displays[0].IsConnected())
}

func TestMQTTDisplayTracksAnnouncementsAfterTimedOutRescan(t *testing.T) {
	c := newFakeClient()
	publishJSON(t, c, testTopics.Displays, true, []Announcement{{Name: "hmd"}})
	provider := NewMQTTProvider(c, testTopics)
	displays, err := provider.GetDisplays(context.Background())
	require.NoError(t, err)
	hmd := displays[0]

	publishJSON(t, c, testTopics.Displays, true, []Announcement{})
	require.False(t, hmd.IsConnected())

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	c.mu.Lock()
	delete(c.retained, testTopics.Displays)
	c.mu.Unlock()
	again, err := provider.GetDisplays(ctx)
	require.NoError(t, err)
	assert.Empty(t, again)

	publishJSON(t, c, testTopics.Displays, true, []Announcement{{Name: "hmd"}, {Name: "spare"}})
	assert.True(t, hmd.IsConnected(), "earlier display still follows announcements")

	displays, err = provider.GetDisplays(context.Background())
	require.NoError(t, err)
	require.Len(t, displays, 2)
	assert.Same(t, hmd, displays[0])
	assert.Equal(t, "spare", displays[1].DisplayName())
}
