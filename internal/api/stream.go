package api

import (
	"context"
	"net/http"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"

	"vapi/internal/events"
	"vapi/pkg/logging"
)

const (
	streamBuffer       = 64
	streamWriteTimeout = 5 * time.Second
)

// streamEvents upgrades to a websocket and forwards broker events until the
// client goes away or falls too far behind.
func (s *Server) streamEvents(w http.ResponseWriter, r *http.Request) {
	if s.deps.Broker == nil {
		WriteError(w, http.StatusServiceUnavailable, APIError{Code: ErrCodeInternalError, Message: "event stream unavailable"})
		return
	}
	conn, err := websocket.Accept(w, r, nil)
	if err != nil {
		logging.Debug("API", "Websocket upgrade failed: %v", err)
		return
	}
	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	sub := s.deps.Broker.Subscribe(streamBuffer)
	defer s.deps.Broker.Unsubscribe(sub)
	logging.Debug("API", "Admin client connected from %s", r.RemoteAddr)

	hello := events.NewEvent(events.ReasonReady, "")
	if names, err := s.deps.Services.ListNames(ctx); err == nil {
		hello.Services = names
	}
	if err := wsjson.Write(ctx, conn, hello); err != nil {
		_ = conn.Close(websocket.StatusInternalError, "write_failed")
		return
	}

	readErr := make(chan error, 1)
	go func() {
		for {
			if _, _, err := conn.Read(ctx); err != nil {
				readErr <- err
				return
			}
		}
	}()

	for {
		select {
		case <-ctx.Done():
			_ = conn.Close(websocket.StatusGoingAway, "closed")
			return
		case <-readErr:
			_ = conn.Close(websocket.StatusNormalClosure, "closed")
			return
		case evt, ok := <-sub:
			if !ok {
				_ = conn.Close(websocket.StatusPolicyViolation, "too slow")
				return
			}
			writeCtx, cancelWrite := context.WithTimeout(ctx, streamWriteTimeout)
			err := wsjson.Write(writeCtx, conn, evt)
			cancelWrite()
			if err != nil {
				_ = conn.Close(websocket.StatusNormalClosure, "write_failed")
				return
			}
		}
	}
}
