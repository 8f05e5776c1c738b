package http

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"flowledger/internal/log"
	"flowledger/internal/store"
	"flowledger/internal/views"
)

const (
	streamWriteTimeout = 10 * time.Second
	streamPingInterval = 30 * time.Second
)

// dashboardPayload is one push on the stream: the full record set plus
// every derived view, recomputed server-side on each store event.
type dashboardPayload struct {
	Mode       store.Mode             `json:"mode"`
	Records    []transactionView      `json:"records"`
	Summary    views.Summary          `json:"summary"`
	Formatted  formattedTotals        `json:"formatted"`
	Breakdown  []views.CategoryAmount `json:"breakdown"`
	Shares     []views.CategoryShare  `json:"shares"`
	Categories []string               `json:"categories"`
	Error      string                 `json:"error,omitempty"`
}

func buildPayload(mode store.Mode, snap store.Snapshot) dashboardPayload {
	payload := dashboardPayload{
		Mode:       mode,
		Records:    toViews(snap.Records),
		Summary:    views.Summarize(snap.Records),
		Breakdown:  views.Breakdown(snap.Records),
		Categories: views.Categories(snap.Records),
	}
	payload.Formatted = formatTotals(payload.Summary)
	payload.Shares = views.Shares(payload.Breakdown, payload.Summary.Expense)
	if snap.Err != nil {
		payload.Error = "Could not load your transactions. Changes may not be saved."
	}
	return payload
}

// handleStream upgrades the connection and mirrors the owner's store
// subscription onto it until either side goes away.
func (s *Server) handleStream(w http.ResponseWriter, r *http.Request) {
	logger := s.logger.WithComponent(log.ComponentStream)

	identity, err := s.resolveOwner(r)
	if err != nil {
		writeError(w, http.StatusUnauthorized, "invalid credential")
		return
	}

	st, mode, err := s.resolver.ForOwner(r.Context(), identity.UID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "storage unavailable")
		return
	}

	sub, err := st.Subscribe(r.Context(), identity.UID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to subscribe")
		return
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		sub.Cancel()
		logger.WarnContext(r.Context(), "Websocket upgrade failed",
			log.FieldError, err.Error())
		return
	}
	defer conn.Close()
	defer sub.Cancel()

	logger.InfoContext(r.Context(), "Stream opened",
		log.FieldOwnerID, identity.UID,
		log.FieldMode, string(mode))

	// Reader goroutine: we never expect client messages, but reading is
	// what surfaces the close frame.
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ping := time.NewTicker(streamPingInterval)
	defer ping.Stop()

	for {
		select {
		case snap, ok := <-sub.Events():
			if !ok {
				return
			}
			conn.SetWriteDeadline(time.Now().Add(streamWriteTimeout))
			if err := conn.WriteJSON(buildPayload(mode, snap)); err != nil {
				logger.DebugContext(r.Context(), "Stream write failed",
					log.FieldOwnerID, identity.UID,
					log.FieldError, err.Error())
				return
			}
		case <-ping.C:
			conn.SetWriteDeadline(time.Now().Add(streamWriteTimeout))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-done:
			return
		case <-r.Context().Done():
			return
		}
	}
}
