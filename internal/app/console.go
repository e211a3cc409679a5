// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/relabs-tech/vr_controls/internal/config"
	"github.com/relabs-tech/vr_controls/internal/orientation"
)

// RunConsole drives the camera at the frame rate and prints its pose
// every CONSOLE_LOG_INTERVAL.
func RunConsole() error {
	cfg := config.Get()

	provider, closeProvider, err := NewProvider(cfg)
	if err != nil {
		return err
	}
	defer closeProvider()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	tracker := NewTracker(ctx, cfg, provider)
	defer tracker.Close()
	go tracker.Run(ctx, time.Duration(cfg.FrameInterval)*time.Millisecond)

	ticker := time.NewTicker(time.Duration(cfg.ConsoleLogInterval) * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Println("console: shutting down")
			return nil
		case <-ticker.C:
			s := tracker.Status()
			roll, pitch, yaw := orientation.ToEuler(s.Camera.Orientation)
			p := s.Camera.Position
			fmt.Printf(
				"[%s] ROLL=%6.2f  PITCH=%6.2f  YAW=%6.2f  X=%6.3f Y=%6.3f Z=%6.3f\n",
				s.DisplayName, roll, pitch, yaw, p[0], p[1], p[2],
			)
		}
	}
}
