// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package orientation

import (
	"math"
	"sync"
	"time"
)

type mockSource struct {
	now func() time.Time

	mu    sync.Mutex
	start time.Time
}

// NewMockSource creates a mock pose source that generates a smoothly
// swaying head: orientation plus a few centimeters of position.
func NewMockSource() Source {
	return newMockSource(time.Now)
}

func newMockSource(now func() time.Time) *mockSource {
	return &mockSource{now: now, start: now()}
}

func (m *mockSource) Next() (Pose, error) {
	m.mu.Lock()
	elapsed := m.now().Sub(m.start).Seconds()
	m.mu.Unlock()

	q := FromEuler(
		5*math.Sin(elapsed),
		10*math.Cos(elapsed*0.7),
		math.Mod(elapsed*30, 360),
	)
	p := [3]float64{
		0.05 * math.Sin(elapsed),
		0.02 * math.Sin(elapsed*2),
		0.03 * math.Cos(elapsed),
	}
	return Pose{Orientation: &q, Position: &p}, nil
}

// Reset restarts the synthetic motion from its origin.
func (m *mockSource) Reset() {
	m.mu.Lock()
	m.start = m.now()
	m.mu.Unlock()
}
