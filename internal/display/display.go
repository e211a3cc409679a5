// Package display defines the pose-reporting devices consumed by the VR
// controls and the providers that enumerate them.
package display

import (
	"context"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/relabs-tech/vr_controls/internal/orientation"
)

// Display is a pose-reporting device. A display serves poses through
// FrameDataReader or PoseReader; callers probe for either.
type Display interface {
	DisplayName() string
	// StageParameters returns nil when the device has no play area.
	StageParameters() *StageParameters
	// ResetPose re-zeros the device's internal pose reference.
	ResetPose()
	IsConnected() bool
}

// FrameDataReader fills a caller-owned FrameData.
type FrameDataReader interface {
	GetFrameData(fd *FrameData) bool
}

// PoseReader returns a fresh pose object.
type PoseReader interface {
	GetPose() orientation.Pose
}

// Provider enumerates the displays available in the environment.
type Provider interface {
	GetDisplays(ctx context.Context) ([]Display, error)
}

// FrameData is the reusable per-frame buffer for FrameDataReader.
type FrameData struct {
	Timestamp float64          `json:"timestamp"` // milliseconds
	Pose      orientation.Pose `json:"pose"`
}

// StageParameters describe the physical play area of a display.
type StageParameters struct {
	// SittingToStanding is a column-major 4x4 transform from sitting
	// space into standing space.
	SittingToStanding [16]float64 `json:"sitting_to_standing"`
	SizeX             float64     `json:"size_x"` // meters
	SizeZ             float64     `json:"size_z"` // meters
}

// Matrix returns SittingToStanding as a matrix.
func (s *StageParameters) Matrix() mgl64.Mat4 {
	return mgl64.Mat4(s.SittingToStanding)
}

// StandingStage returns stage parameters whose sitting-to-standing
// transform lifts the eyes by height meters.
func StandingStage(height float64) *StageParameters {
	return &StageParameters{SittingToStanding: [16]float64(mgl64.Translate3D(0, height, 0))}
}

// StaticProvider returns a fixed list of displays.
type StaticProvider []Display

func (p StaticProvider) GetDisplays(ctx context.Context) ([]Display, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	out := make([]Display, len(p))
	copy(out, p)
	return out, nil
}
