package orientation

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// Pose is a single head pose sample as reported by a display.
// Orientation is a rotation quaternion (x, y, z, w) and Position a
// vector in meters. A nil field means the device did not report it
// for this frame.
type Pose struct {
	Orientation *[4]float64 `json:"orientation"`
	Position    *[3]float64 `json:"position"`
}

// Source is anything that can provide poses over time.
type Source interface {
	Next() (Pose, error)
}

// Resetter is implemented by sources that can re-zero their pose reference.
type Resetter interface {
	Reset()
}

// FromEuler builds an orientation quaternion (x, y, z, w) from roll, pitch
// and yaw in degrees. The scene is Y up: yaw turns about Y, pitch about X
// and roll about Z, applied in yaw-pitch-roll order.
func FromEuler(rollDeg, pitchDeg, yawDeg float64) [4]float64 {
	qYaw := mgl64.QuatRotate(mgl64.DegToRad(yawDeg), mgl64.Vec3{0, 1, 0})
	qPitch := mgl64.QuatRotate(mgl64.DegToRad(pitchDeg), mgl64.Vec3{1, 0, 0})
	qRoll := mgl64.QuatRotate(mgl64.DegToRad(rollDeg), mgl64.Vec3{0, 0, 1})

	q := qYaw.Mul(qPitch).Mul(qRoll).Normalize()
	return QuatToArray(q)
}

// ToEuler is the inverse of FromEuler. Near ±90° pitch roll is folded
// into yaw.
func ToEuler(q [4]float64) (rollDeg, pitchDeg, yawDeg float64) {
	m := QuatFromArray(q).Normalize().Mat4()

	pitch := math.Asin(-mgl64.Clamp(m.At(1, 2), -1, 1))
	var yaw, roll float64
	if math.Abs(m.At(1, 2)) < 0.9999999 {
		yaw = math.Atan2(m.At(0, 2), m.At(2, 2))
		roll = math.Atan2(m.At(1, 0), m.At(1, 1))
	} else {
		yaw = math.Atan2(-m.At(2, 0), m.At(0, 0))
	}
	return mgl64.RadToDeg(roll), mgl64.RadToDeg(pitch), mgl64.RadToDeg(yaw)
}

// QuatToArray converts a quaternion into the (x, y, z, w) layout used by Pose.
func QuatToArray(q mgl64.Quat) [4]float64 {
	return [4]float64{q.V[0], q.V[1], q.V[2], q.W}
}

// QuatFromArray converts an (x, y, z, w) array into a quaternion.
func QuatFromArray(a [4]float64) mgl64.Quat {
	return mgl64.Quat{W: a[3], V: mgl64.Vec3{a[0], a[1], a[2]}}
}

// TiltFromAccel computes roll and pitch (degrees) from accelerometer
// data only, in any unit:
//
//	roll  = atan2(ay, az)
//	pitch = atan2(-ax, sqrt(ay² + az²))
func TiltFromAccel(ax, ay, az float64) (rollDeg, pitchDeg float64) {
	rollRad := math.Atan2(ay, az)
	pitchRad := math.Atan2(-ax, math.Sqrt(ay*ay+az*az))

	return rollRad * 180.0 / math.Pi, pitchRad * 180.0 / math.Pi
}

// ComputePoseFromIMU combines accelerometer tilt with an externally
// integrated yaw. IMUs have no absolute position, so Position is nil.
func ComputePoseFromIMU(ax, ay, az, yawDeg float64) Pose {
	roll, pitch := TiltFromAccel(ax, ay, az)
	q := FromEuler(roll, pitch, yawDeg)
	return Pose{Orientation: &q}
}
