package server

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"github.com/ashiqtasdid/pegasus-sub000/internal/fixer"
	"github.com/ashiqtasdid/pegasus-sub000/internal/types"
)

const (
	wsWriteWait = 10 * time.Second
	wsPongWait  = 60 * time.Second
	wsPingEvery = (wsPongWait * 9) / 10
)

type wsOutbound struct {
	Type      string      `json:"type"`
	Project   string      `json:"project,omitempty"`
	SessionID string      `json:"sessionId,omitempty"`
	From      fixer.State `json:"from,omitempty"`
	State     fixer.State `json:"state,omitempty"`
	Iteration int         `json:"iteration,omitempty"`
	Detail    string      `json:"detail,omitempty"`
	Terminal  bool        `json:"terminal,omitempty"`
	At        *time.Time  `json:"at,omitempty"`
	Message   string      `json:"message,omitempty"`
}

// HandleSessionsWS streams fix session transitions of ?project=<user>/<plugin>.
func (h *Handler) HandleSessionsWS(w http.ResponseWriter, r *http.Request) {
	key, err := projectKey(r.URL.Query().Get("project"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": err.Error()})
		return
	}

	upgrader := websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     originAllowed(h.allowedOrigins),
	}
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	if err := conn.SetReadDeadline(time.Now().Add(wsPongWait)); err != nil {
		h.logger.Warn("session ws set read deadline failed", "err", err)
		return
	}
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(wsPongWait))
	})

	events := h.svc.Hub().Subscribe(ctx, key)
	writerDone := make(chan struct{})
	go func() {
		defer close(writerDone)
		defer cancel()
		ticker := time.NewTicker(wsPingEvery)
		defer ticker.Stop()

		if err := writeWS(conn, wsOutbound{Type: "subscribed", Project: key}); err != nil {
			return
		}
		for {
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-events:
				if !ok {
					return
				}
				at := ev.Transition.At
				out := wsOutbound{
					Type:      "transition",
					Project:   ev.ProjectKey,
					SessionID: ev.SessionID,
					From:      ev.Transition.From,
					State:     ev.Transition.To,
					Iteration: ev.Transition.Iteration,
					Detail:    ev.Transition.Detail,
					Terminal:  ev.Transition.To.Terminal(),
					At:        &at,
				}
				if err := writeWS(conn, out); err != nil {
					return
				}
			case <-ticker.C:
				if err := conn.SetWriteDeadline(time.Now().Add(wsWriteWait)); err != nil {
					return
				}
				if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
					return
				}
			}
		}
	}()

	// Inbound frames are only read to service pongs and notice disconnects.
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			cancel()
			<-writerDone
			return
		}
	}
}

func writeWS(conn *websocket.Conn, out wsOutbound) error {
	if err := conn.SetWriteDeadline(time.Now().Add(wsWriteWait)); err != nil {
		return err
	}
	return conn.WriteJSON(out)
}

func projectKey(raw string) (string, error) {
	user, plugin, _ := strings.Cut(strings.TrimSpace(raw), "/")
	req, err := types.GenerationRequest{UserID: user, PluginName: plugin}.Normalize()
	if err != nil {
		return "", err
	}
	return req.ProjectKey(), nil
}
