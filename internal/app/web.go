// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"context"
	"encoding/json"
	"fmt"
	"image/png"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/websocket"

	"github.com/relabs-tech/vr_controls/internal/config"
	"github.com/relabs-tech/vr_controls/internal/hud"
	"github.com/relabs-tech/vr_controls/internal/scene"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow all origins for local development
	},
}

// cameraResponse is the JSON shape of /api/camera and /ws/camera frames.
type cameraResponse struct {
	Display  string      `json:"display"`
	Standing bool        `json:"standing"`
	Camera   scene.State `json:"camera"`
}

// wsCommand is a message sent by a websocket client.
type wsCommand struct {
	Type string `json:"type"` // "reset" or "rescan"
}

func toResponse(s hud.Status) cameraResponse {
	return cameraResponse{Display: s.DisplayName, Standing: s.Standing, Camera: s.Camera}
}

// RunViewer runs the frame loop and serves the camera pose over HTTP.
func RunViewer() error {
	cfg := config.Get()

	provider, closeProvider, err := NewProvider(cfg)
	if err != nil {
		return err
	}
	defer closeProvider()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	frame := time.Duration(cfg.FrameInterval) * time.Millisecond
	tracker := NewTracker(ctx, cfg, provider)
	defer tracker.Close()
	go tracker.Run(ctx, frame)

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.WebServerPort),
		Handler: newViewerMux(ctx, tracker, frame),
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx)
	}()

	log.Printf("web server listening on %s", srv.Addr)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	log.Println("viewer: shutting down")
	return nil
}

func newViewerMux(ctx context.Context, tracker *Tracker, frame time.Duration) *http.ServeMux {
	mux := http.NewServeMux()

	// latest camera pose
	mux.HandleFunc("/api/camera", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(toResponse(tracker.Status())); err != nil {
			log.Printf("json encode error: %v", err)
		}
	})

	mux.HandleFunc("/api/hud.png", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "image/png")
		if err := png.Encode(w, hud.Render(tracker.Status())); err != nil {
			log.Printf("png encode error: %v", err)
		}
	})

	mux.HandleFunc("/api/reset", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		tracker.ResetPose()
		w.WriteHeader(http.StatusNoContent)
	})

	mux.HandleFunc("/api/rescan", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		tracker.Rescan(r.Context())
		w.WriteHeader(http.StatusNoContent)
	})

	mux.HandleFunc("/ws/camera", func(w http.ResponseWriter, r *http.Request) {
		handleCameraWS(ctx, tracker, frame, w, r)
	})

	// Static files from ./web as the root
	mux.Handle("/", http.FileServer(http.Dir("web")))
	return mux
}

// handleCameraWS streams the camera pose once per frame and accepts
// reset/rescan commands from the client.
func handleCameraWS(ctx context.Context, tracker *Tracker, frame time.Duration, w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("viewer: websocket upgrade error: %v", err)
		return
	}
	defer conn.Close()

	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			var cmd wsCommand
			if err := conn.ReadJSON(&cmd); err != nil {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
					log.Printf("viewer: websocket error: %v", err)
				}
				return
			}
			switch cmd.Type {
			case "reset":
				tracker.ResetPose()
			case "rescan":
				tracker.Rescan(ctx)
			default:
				log.Printf("viewer: unknown websocket command %q", cmd.Type)
			}
		}
	}()

	ticker := time.NewTicker(frame)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-closed:
			return
		case <-ticker.C:
			if err := conn.WriteJSON(toResponse(tracker.Status())); err != nil {
				log.Printf("viewer: websocket write error: %v", err)
				return
			}
		}
	}
}
