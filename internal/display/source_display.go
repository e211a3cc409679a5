package display

import (
	"log"
	"sync"

	"github.com/relabs-tech/vr_controls/internal/orientation"
)

// sourceDisplay exposes an orientation.Source through the pose-object
// read path.
type sourceDisplay struct {
	name  string
	src   orientation.Source
	stage *StageParameters

	mu   sync.Mutex
	last orientation.Pose
}

// NewSourceDisplay wraps src as a Display. stage may be nil.
func NewSourceDisplay(name string, src orientation.Source, stage *StageParameters) Display {
	return &sourceDisplay{name: name, src: src, stage: stage}
}

func (d *sourceDisplay) DisplayName() string { return d.name }

func (d *sourceDisplay) StageParameters() *StageParameters { return d.stage }

func (d *sourceDisplay) IsConnected() bool { return true }

// GetPose returns the next pose from the source. A source error is logged
// and the previous pose is repeated.
func (d *sourceDisplay) GetPose() orientation.Pose {
	d.mu.Lock()
	defer d.mu.Unlock()

	pose, err := d.src.Next()
	if err != nil {
		log.Printf("display %s: source error: %v", d.name, err)
		return d.last
	}
	d.last = pose
	return pose
}

func (d *sourceDisplay) ResetPose() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if r, ok := d.src.(orientation.Resetter); ok {
		r.Reset()
	}
}
