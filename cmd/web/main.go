// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package main

import (
	"flag"
	"log"

	"github.com/relabs-tech/vr_controls/internal/app"
	"github.com/relabs-tech/vr_controls/internal/config"
)

func main() {
	configPath := flag.String("config", "./vr_config.txt", "path to configuration file")
	flag.Parse()

	log.Println("starting vr-controls web viewer")

	// Load configuration
	if err := config.InitGlobal(*configPath); err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	if config.Get().DisplaySource == config.SourceMQTT {
		log.Println("Note: the MQTT display requires the pose producer to be running (./pose_producer)")
	}

	if err := app.RunViewer(); err != nil {
		log.Fatalf("fatal: %v", err)
	}
}
