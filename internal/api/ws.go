package api

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/websocket"

	"github.com/sprite-ai/prlens/internal/pipeline"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024 * 64,
	WriteBufferSize: 1024 * 64,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// WebSocket message types from client.
const (
	wsMsgAnalyze = "analyze"
)

// WebSocket message types to client. Pipeline events are forwarded with
// their kind as the type.
const (
	wsMsgReport = "report"
	wsMsgError  = "error"
)

// wsMessage is the envelope for WebSocket messages in both directions.
type wsMessage struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Warn().Err(err).Msg("websocket upgrade")
		return
	}
	defer conn.Close()

	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				s.log.Warn().Err(err).Msg("websocket read")
			}
			return
		}

		var msg wsMessage
		if err := json.Unmarshal(raw, &msg); err != nil {
			s.sendWSError(conn, "invalid message format")
			continue
		}

		switch msg.Type {
		case wsMsgAnalyze:
			s.handleWSAnalyze(conn, r, msg.Data)
		default:
			s.sendWSError(conn, "unknown message type: "+msg.Type)
		}
	}
}

// handleWSAnalyze runs one pipeline, streaming its events before the
// report.
func (s *Server) handleWSAnalyze(conn *websocket.Conn, r *http.Request, data json.RawMessage) {
	var req analyzeRequest
	if err := json.Unmarshal(data, &req); err != nil {
		s.sendWSError(conn, "invalid analyze data")
		return
	}
	cs, err := req.changeSet(s.cfg.Pipeline.MaxPatchBytes)
	if err != nil {
		s.sendWSError(conn, err.Error())
		return
	}

	observe := pipeline.WithObserver(func(ev pipeline.Event) {
		s.sendWSMessage(conn, string(ev.Kind), ev)
	})
	opts := append(append([]pipeline.Option(nil), s.opts...), observe)
	orch := pipeline.New(s.cfg, s.log, opts...)

	rep, err := orch.Run(r.Context(), pipeline.Static(cs))
	if rep != nil {
		s.sendWSMessage(conn, wsMsgReport, rep)
	}
	if err != nil {
		s.sendWSError(conn, err.Error())
	}
}

func (s *Server) sendWSMessage(conn *websocket.Conn, msgType string, data any) {
	raw, err := json.Marshal(data)
	if err != nil {
		s.log.Error().Err(err).Msg("ws marshal")
		return
	}
	msg := wsMessage{Type: msgType, Data: raw}
	if err := conn.WriteJSON(msg); err != nil {
		s.log.Warn().Err(err).Msg("ws write")
	}
}

func (s *Server) sendWSError(conn *websocket.Conn, errMsg string) {
	s.sendWSMessage(conn, wsMsgError, map[string]string{"message": errMsg})
}
