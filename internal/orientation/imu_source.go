package orientation

import (
	"fmt"
	"sync"
	"time"

	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/devices/v3/mpu9250"
	"periph.io/x/host/v3"
)

// gyroCountsPerDPS is the MPU9250 gyro sensitivity at the default ±250°/s range.
const gyroCountsPerDPS = 131.0

type imuSource struct {
	imu *mpu9250.MPU9250

	mu  sync.Mutex
	yaw yawIntegrator
	now func() time.Time
}

// NewIMUSource initializes an MPU9250 over SPI and returns a Source that
// reports orientation only: roll/pitch from the accelerometer and yaw
// integrated from the gyro Z axis. Reset zeroes the integrated yaw.
func NewIMUSource(spiDev, csPin string) (Source, error) {
	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("periph host init: %w", err)
	}

	cs := gpioreg.ByName(csPin)
	if cs == nil {
		return nil, fmt.Errorf("IMU CS pin %q not found", csPin)
	}

	tr, err := mpu9250.NewSpiTransport(spiDev, cs)
	if err != nil {
		return nil, fmt.Errorf("IMU SPI transport (%s): %w", spiDev, err)
	}

	imu, err := mpu9250.New(tr)
	if err != nil {
		return nil, fmt.Errorf("IMU new device: %w", err)
	}

	if err := imu.Init(); err != nil {
		return nil, fmt.Errorf("IMU init: %w", err)
	}

	if err := imu.Calibrate(); err != nil {
		return nil, fmt.Errorf("IMU calibrate: %w", err)
	}

	return &imuSource{imu: imu, now: time.Now}, nil
}

func (s *imuSource) Next() (Pose, error) {
	ax, err := s.imu.GetAccelerationX()
	if err != nil {
		return Pose{}, fmt.Errorf("IMU acc X: %w", err)
	}
	ay, err := s.imu.GetAccelerationY()
	if err != nil {
		return Pose{}, fmt.Errorf("IMU acc Y: %w", err)
	}
	az, err := s.imu.GetAccelerationZ()
	if err != nil {
		return Pose{}, fmt.Errorf("IMU acc Z: %w", err)
	}
	gz, err := s.imu.GetRotationZ()
	if err != nil {
		return Pose{}, fmt.Errorf("IMU gyro Z: %w", err)
	}

	s.mu.Lock()
	yaw := s.yaw.add(float64(gz)/gyroCountsPerDPS, s.now())
	s.mu.Unlock()

	return ComputePoseFromIMU(float64(ax), float64(ay), float64(az), yaw), nil
}

func (s *imuSource) Reset() {
	s.mu.Lock()
	s.yaw = yawIntegrator{}
	s.mu.Unlock()
}

// yawIntegrator accumulates a gyro rate (deg/s) into a heading in [0, 360).
type yawIntegrator struct {
	yaw  float64
	last time.Time
}

func (y *yawIntegrator) add(rateDPS float64, t time.Time) float64 {
	if !y.last.IsZero() {
		y.yaw += rateDPS * t.Sub(y.last).Seconds()
		for y.yaw < 0 {
			y.yaw += 360
		}
		for y.yaw >= 360 {
			y.yaw -= 360
		}
	}
	y.last = t
	return y.yaw
}
