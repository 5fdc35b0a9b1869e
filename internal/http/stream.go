package http

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"
)

const (
	writeWait     = 5 * time.Second
	maxReplayRate = 1000.0
)

// handleStream handles GET /runs/{id}/stream?speed=N. Records are replayed
// as one JSON text message each, at N records per second.
func (s *Server) handleStream(w http.ResponseWriter, r *http.Request) {
	speed := s.config.ReplayRate
	if raw := r.URL.Query().Get("speed"); raw != "" {
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil || !(v > 0) || v > maxReplayRate {
			s.writeError(w, r, http.StatusBadRequest, "invalid_speed", "speed must be a positive number of records per second")
			return
		}
		speed = v
	}

	run, ok := s.lookupRun(w, r)
	if !ok {
		return
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Warn().Err(err).Str("request_id", RequestID(r.Context())).Msg("WebSocket upgrade failed")
		return
	}
	defer conn.Close()

	if s.metrics != nil {
		s.metrics.StreamConns.Inc()
		defer s.metrics.StreamConns.Dec()
	}

	// Drain control frames so a client close is noticed
	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	limiter := rate.NewLimiter(rate.Limit(speed), 1)
	ctx := r.Context()
	sent := 0

	for _, rec := range run.Records {
		if err := limiter.Wait(ctx); err != nil {
			break
		}
		select {
		case <-closed:
			log.Debug().Str("run_id", run.ID.String()).Int("sent", sent).Msg("Stream client went away")
			return
		default:
		}

		conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := conn.WriteJSON(rec); err != nil {
			log.Debug().Err(err).Str("run_id", run.ID.String()).Msg("Stream write failed")
			return
		}
		sent++
	}

	conn.SetWriteDeadline(time.Now().Add(writeWait))
	conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, "replay complete"))

	log.Info().
		Str("run_id", run.ID.String()).
		Int("records", sent).
		Float64("speed", speed).
		Msg("Replay finished")
}
