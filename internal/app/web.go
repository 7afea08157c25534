// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/relabs-tech/inertial_ahrs/internal/config"
	"github.com/relabs-tech/inertial_ahrs/internal/orientation"
)

// clientBuffer is the number of AHRS states queued per websocket client
// before new ones are dropped for it.
const clientBuffer = 16

const writeTimeout = 5 * time.Second

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow all origins for local development
	},
}

// WSResponse is a message sent to websocket clients.
type WSResponse struct {
	Type  string             `json:"type"` // state
	State *orientation.State `json:"state,omitempty"`
}

// webStore keeps the latest pose and AHRS state and fans states out to
// websocket clients.
type webStore struct {
	mu        sync.RWMutex
	pose      orientation.Pose
	havePose  bool
	state     orientation.State
	haveState bool

	clients map[chan orientation.State]struct{}
	logger  *slog.Logger
}

func newWebStore(logger *slog.Logger) *webStore {
	return &webStore{
		clients: make(map[chan orientation.State]struct{}),
		logger:  logger,
	}
}

func (s *webStore) setPose(p orientation.Pose) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pose = p
	s.havePose = true
}

func (s *webStore) setState(st orientation.State) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = st
	s.haveState = true
	for ch := range s.clients {
		select {
		case ch <- st:
		default:
			// slow client; it catches up with the next state
		}
	}
}

func (s *webStore) subscribe() chan orientation.State {
	ch := make(chan orientation.State, clientBuffer)
	s.mu.Lock()
	defer s.mu.Unlock()
	s.clients[ch] = struct{}{}
	if s.haveState {
		ch <- s.state
	}
	return ch
}

func (s *webStore) unsubscribe(ch chan orientation.State) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.clients, ch)
}

func writeJSON(w http.ResponseWriter, v any, logger *slog.Logger) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Warn("json encode error", "error", err)
	}
}

func (s *webStore) handleOrientation(w http.ResponseWriter, r *http.Request) {
	s.mu.RLock()
	pose, ok := s.pose, s.havePose
	s.mu.RUnlock()
	if !ok {
		http.Error(w, "no data yet", http.StatusServiceUnavailable)
		return
	}
	writeJSON(w, pose, s.logger)
}

func (s *webStore) handleAHRS(w http.ResponseWriter, r *http.Request) {
	s.mu.RLock()
	state, ok := s.state, s.haveState
	s.mu.RUnlock()
	if !ok {
		http.Error(w, "no data yet", http.StatusServiceUnavailable)
		return
	}
	writeJSON(w, state, s.logger)
}

// handleAHRSWS streams every AHRS state to the client until it disconnects.
func (s *webStore) handleAHRSWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("websocket upgrade error", "error", err)
		return
	}
	defer conn.Close()

	states := s.subscribe()
	defer s.unsubscribe(states)

	// the reader only detects the close; clients send nothing
	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case <-closed:
			return
		case <-r.Context().Done():
			return
		case st := <-states:
			_ = conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := conn.WriteJSON(WSResponse{Type: "state", State: &st}); err != nil {
				s.logger.Debug("websocket write error", "error", err)
				return
			}
		}
	}
}

// handler routes the JSON API, the websocket and the static files in
// staticDir.
func (s *webStore) handler(staticDir string) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/orientation", s.handleOrientation)
	mux.HandleFunc("GET /api/ahrs", s.handleAHRS)
	mux.HandleFunc("GET /ws/ahrs", s.handleAHRSWS)
	mux.Handle("/", http.FileServer(http.Dir(staticDir)))
	return mux
}

// RunWeb subscribes to the fused pose and AHRS topics and serves them over
// HTTP until ctx is cancelled.
func RunWeb(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	store := newWebStore(logger)

	client, err := connectMQTT(cfg.MQTTBroker, cfg.MQTTClientIDWeb, logger)
	if err != nil {
		return err
	}
	defer client.Disconnect(disconnectQuiesce)

	if err := subscribeJSON(client, cfg.TopicPoseFused, logger, func(p orientation.Pose, _ []byte) {
		store.setPose(p)
	}); err != nil {
		return err
	}
	if err := subscribeJSON(client, cfg.TopicAHRS, logger, func(st orientation.State, _ []byte) {
		store.setState(st)
	}); err != nil {
		return err
	}

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.WebServerPort),
		Handler:           store.handler("web"),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("web server listening", "addr", srv.Addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	logger.Info("web server stopped")
	return nil
}
