// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package controls drives a scene camera from the head pose reported by
// a VR display.
package controls

import (
	"context"
	"log"
	"sync"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/relabs-tech/vr_controls/internal/display"
	"github.com/relabs-tech/vr_controls/internal/orientation"
)

// Messages passed to the error callback.
const (
	NotAvailableMessage = "VR input not available."
	DisconnectedMessage = "VR display disconnected."
)

// Camera is the scene camera written by Update.
type Camera interface {
	SetQuaternion(q mgl64.Quat)
	Position() mgl64.Vec3
	SetPosition(p mgl64.Vec3)
	SetY(y float64)
	// UpdateMatrix syncs the local matrix from orientation and position.
	UpdateMatrix()
	// ApplyMatrix premultiplies the local matrix and decomposes it back.
	ApplyMatrix(m mgl64.Mat4)
	Scale() float64
}

// Controls copies the pose of the first available display onto a camera
// once per Update call.
type Controls struct {
	// Scale converts device meters to scene units. It is not read by
	// Update, which multiplies the position by the camera's own scale.
	Scale float64
	// Standing selects standing space: y=0 is the floor and x=0, z=0 the
	// center of the room.
	Standing bool
	// UserHeight is the eye height in meters used when Standing is set but
	// the display has no stage parameters.
	UserHeight float64

	camera   Camera
	onError  func(msg string)
	provider display.Provider
	ready    chan struct{}

	mu             sync.Mutex
	log            *log.Logger
	display        display.Display
	displays       []display.Display
	standingMatrix mgl64.Mat4
	frameData      display.FrameData
}

// Option configures Controls before enumeration starts.
type Option func(*Controls)

// WithLogger sends warnings to l instead of log.Default().
func WithLogger(l *log.Logger) Option {
	return func(c *Controls) {
		c.log = l
	}
}

// New creates controls for camera. When provider is non-nil display
// enumeration starts in the background; onError, which may be nil, is
// called if it yields no display.
func New(ctx context.Context, provider display.Provider, camera Camera, onError func(msg string), opts ...Option) *Controls {
	c := &Controls{
		Scale:          1,
		Standing:       false,
		UserHeight:     1.6,
		log:            log.Default(),
		camera:         camera,
		onError:        onError,
		provider:       provider,
		ready:          make(chan struct{}),
		standingMatrix: mgl64.Ident4(),
	}
	for _, opt := range opts {
		opt(c)
	}

	if provider == nil {
		close(c.ready)
		return c
	}

	go func() {
		defer close(c.ready)
		c.enumerate(ctx)
	}()
	return c
}

// Ready is closed once the initial enumeration has resolved.
func (c *Controls) Ready() <-chan struct{} {
	return c.ready
}

// Rescan enumerates displays again and blocks until the result has been
// applied. It is the way back to an active display after Dispose or a
// disconnect.
func (c *Controls) Rescan(ctx context.Context) {
	if c.provider == nil {
		return
	}
	c.enumerate(ctx)
}

func (c *Controls) enumerate(ctx context.Context) {
	displays, err := c.provider.GetDisplays(ctx)
	if err != nil {
		c.logger().Printf("controls: display enumeration failed: %v", err)
		displays = nil
	}
	c.gotDisplays(displays)
}

func (c *Controls) gotDisplays(displays []display.Display) {
	c.mu.Lock()
	c.displays = displays
	found := len(displays) > 0
	if found {
		c.display = displays[0]
	}
	c.mu.Unlock()

	if !found {
		c.reportError(NotAvailableMessage)
	}
}

// Display returns the active display, or nil.
func (c *Controls) Display() display.Display {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.display
}

// Displays returns the last enumerated displays in their original order.
func (c *Controls) Displays() []display.Display {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.displays == nil {
		return nil
	}
	out := make([]display.Display, len(c.displays))
	copy(out, c.displays)
	return out
}

// StandingMatrix returns the sitting-to-standing transform applied on the
// last standing update with stage parameters.
func (c *Controls) StandingMatrix() mgl64.Mat4 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.standingMatrix
}

// Update writes the current pose of the active display onto the camera.
// It does nothing while no display is active.
func (c *Controls) Update() {
	c.mu.Lock()
	d := c.display
	if d == nil {
		c.mu.Unlock()
		return
	}
	if !d.IsConnected() {
		c.display = nil
		c.mu.Unlock()
		c.logger().Printf("controls: display %s disconnected", d.DisplayName())
		c.reportError(DisconnectedMessage)
		return
	}
	defer c.mu.Unlock()

	pose, ok := c.readPose(d)
	if !ok {
		return
	}

	if pose.Orientation != nil {
		c.camera.SetQuaternion(orientation.QuatFromArray(*pose.Orientation))
	}

	if pose.Position != nil {
		c.camera.SetPosition(mgl64.Vec3(*pose.Position))
	} else {
		c.camera.SetPosition(mgl64.Vec3{})
	}

	if c.Standing {
		if stage := d.StageParameters(); stage != nil {
			c.camera.UpdateMatrix()
			c.standingMatrix = stage.Matrix()
			c.camera.ApplyMatrix(c.standingMatrix)
		} else {
			c.camera.SetY(c.camera.Position().Y() + c.UserHeight)
		}
	}

	c.camera.SetPosition(c.camera.Position().Mul(c.camera.Scale()))
}

// readPose prefers the frame data path and falls back to the pose object
// path. It reports false when the display supports neither.
func (c *Controls) readPose(d display.Display) (orientation.Pose, bool) {
	switch r := d.(type) {
	case display.FrameDataReader:
		r.GetFrameData(&c.frameData)
		return c.frameData.Pose, true
	case display.PoseReader:
		return r.GetPose(), true
	default:
		return orientation.Pose{}, false
	}
}

// ResetPose asks the active display to re-zero its pose reference.
func (c *Controls) ResetPose() {
	if d := c.Display(); d != nil {
		d.ResetPose()
	}
}

// Dispose drops the active display. The display list, callback and
// settings are kept.
func (c *Controls) Dispose() {
	c.mu.Lock()
	c.display = nil
	c.mu.Unlock()
}

func (c *Controls) reportError(msg string) {
	if c.onError != nil {
		c.onError(msg)
	}
}

// SetLogger replaces the warning logger. A nil logger restores
// log.Default().
func (c *Controls) SetLogger(l *log.Logger) {
	c.mu.Lock()
	c.log = l
	c.mu.Unlock()
}

// logger must not be called with c.mu held.
func (c *Controls) logger() *log.Logger {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.log == nil {
		return log.Default()
	}
	return c.log
}
