package app

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/relabs-tech/vr_controls/internal/config"
	"github.com/relabs-tech/vr_controls/internal/controls"
	"github.com/relabs-tech/vr_controls/internal/display"
	"github.com/relabs-tech/vr_controls/internal/hud"
	"github.com/relabs-tech/vr_controls/internal/scene"
)

// Tracker owns the camera and its controls and runs the frame loop.
// Update is only ever called from Tick, so the camera has a single writer.
type Tracker struct {
	controls         *controls.Controls
	enumerateTimeout time.Duration

	mu     sync.RWMutex
	camera *scene.Camera
	status hud.Status
}

// NewTracker creates the camera and starts display enumeration.
func NewTracker(ctx context.Context, cfg *config.Config, provider display.Provider) *Tracker {
	cam := scene.NewCamera()
	cam.SetScale(cfg.CameraScale)

	timeout := time.Duration(cfg.EnumerateTimeout) * time.Millisecond
	ectx, cancel := context.WithTimeout(ctx, timeout)
	c := controls.New(ectx, provider, cam, func(msg string) {
		log.Printf("controls: %s", msg)
	})
	c.Scale = cfg.ControlsScale
	c.Standing = cfg.ControlsStanding
	c.UserHeight = cfg.ControlsUserHeight

	go func() {
		<-c.Ready()
		cancel()
		if d := c.Display(); d != nil {
			log.Printf("controls: using display %s (%d found)", d.DisplayName(), len(c.Displays()))
		}
	}()

	t := &Tracker{controls: c, enumerateTimeout: timeout, camera: cam}
	t.status = hud.Status{Camera: cam.Snapshot(), Standing: c.Standing}
	return t
}

// Ready is closed once the initial enumeration has resolved.
func (t *Tracker) Ready() <-chan struct{} {
	return t.controls.Ready()
}

// Tick runs one frame: update the camera and refresh the status snapshot.
func (t *Tracker) Tick() {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.controls.Update()

	name := ""
	if d := t.controls.Display(); d != nil {
		name = d.DisplayName()
	}
	t.status = hud.Status{
		DisplayName: name,
		Camera:      t.camera.Snapshot(),
		Standing:    t.controls.Standing,
	}
}

// Status returns the snapshot taken on the last tick.
func (t *Tracker) Status() hud.Status {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.status
}

func (t *Tracker) ResetPose() {
	t.controls.ResetPose()
}

// Rescan looks for displays again, e.g. after a disconnect.
func (t *Tracker) Rescan(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, t.enumerateTimeout)
	defer cancel()
	t.controls.Rescan(ctx)
}

// Run ticks every interval until ctx is done.
func (t *Tracker) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			t.Tick()
		}
	}
}

// Close drops the active display.
func (t *Tracker) Close() {
	t.controls.Dispose()
}
