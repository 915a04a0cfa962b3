package routes

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/hlog"

	"github.com/briangreenhill/voicept/internal/narration"
	"github.com/briangreenhill/voicept/internal/notify"
	"github.com/briangreenhill/voicept/internal/session"
)

const (
	guideWSReadLimit  = 4 << 10
	guideWSPongWait   = 60 * time.Second
	guideWSPingPeriod = guideWSPongWait * 9 / 10
	guideWSWriteWait  = 10 * time.Second
)

var guideWSUpgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 16 << 10,
}

// guideWSInMessage is a control command sent by the client.
type guideWSInMessage struct {
	Type string `json:"type"`
}

// guideWSOutMessage is the JSON shape sent to the client. Audio data follows
// an "audio" message as binary frames.
type guideWSOutMessage struct {
	Type      string            `json:"type"`
	State     *stateResponse    `json:"state,omitempty"`
	Notice    *narration.Notice `json:"notice,omitempty"`
	Utterance string            `json:"utterance,omitempty"`
	MIMEType  string            `json:"mimeType,omitempty"`
}

// handleGuideWS streams phase changes, notices and audio for the caller's
// session, and accepts play/pause/close commands.
func (s *Server) handleGuideWS(w http.ResponseWriter, r *http.Request) {
	h, ok := s.host(w, r)
	if !ok {
		return
	}
	log := hlog.FromRequest(r).With().Str("session_id", h.ID()).Logger()

	conn, err := guideWSUpgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Warn().Err(err).Msg("guide ws upgrade failed")
		return
	}
	defer conn.Close()

	sub := h.Subscribe()
	if sub == nil {
		return
	}
	defer sub.Unsubscribe()

	go readGuideCommands(conn, h, sub, func() { s.Sessions.Touch(h.ID()) }, log)

	st := newStateResponse(h.Snapshot())
	if err := writeWSJSON(conn, guideWSOutMessage{Type: notify.TypePhase, State: &st}); err != nil {
		return
	}

	ping := time.NewTicker(guideWSPingPeriod)
	defer ping.Stop()

	var utterance string
	for {
		select {
		case m, open := <-sub.C:
			if !open {
				_ = conn.WriteControl(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseGoingAway, "session ended"),
					time.Now().Add(guideWSWriteWait))
				return
			}
			if err := writeGuideMessage(conn, m, &utterance); err != nil {
				log.Debug().Err(err).Msg("guide ws write")
				return
			}
		case <-ping.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(guideWSWriteWait)); err != nil {
				return
			}
		}
	}
}

func writeGuideMessage(conn *websocket.Conn, m notify.Message, utterance *string) error {
	switch m.Type {
	case notify.TypeAudio:
		if m.Utterance != *utterance {
			*utterance = m.Utterance
			err := writeWSJSON(conn, guideWSOutMessage{Type: notify.TypeAudio, Utterance: m.Utterance, MIMEType: m.MIMEType})
			if err != nil {
				return err
			}
		}
		_ = conn.SetWriteDeadline(time.Now().Add(guideWSWriteWait))
		return conn.WriteMessage(websocket.BinaryMessage, m.Audio)
	case notify.TypePhase:
		st := newStateResponse(*m.State)
		return writeWSJSON(conn, guideWSOutMessage{Type: m.Type, State: &st})
	default:
		return writeWSJSON(conn, guideWSOutMessage{Type: m.Type, Notice: m.Notice})
	}
}

// readGuideCommands applies client commands until the connection drops, then
// ends the subscription so the writer exits. Every command and pong calls
// touch to keep the session alive.
func readGuideCommands(conn *websocket.Conn, h *session.Host, sub *notify.Subscription, touch func(), log zerolog.Logger) {
	defer sub.Unsubscribe()

	conn.SetReadLimit(guideWSReadLimit)
	_ = conn.SetReadDeadline(time.Now().Add(guideWSPongWait))
	conn.SetPongHandler(func(string) error {
		touch()
		return conn.SetReadDeadline(time.Now().Add(guideWSPongWait))
	})

	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				log.Debug().Err(err).Msg("guide ws read")
			}
			return
		}
		_ = conn.SetReadDeadline(time.Now().Add(guideWSPongWait))
		touch()

		var in guideWSInMessage
		if err := json.Unmarshal(raw, &in); err != nil {
			log.Debug().Err(err).Msg("guide ws bad command")
			continue
		}
		switch in.Type {
		case "play":
			_, err = h.Play()
		case "pause":
			_, err = h.Pause()
		case "close":
			_, err = h.Close()
		default:
			log.Debug().Str("type", in.Type).Msg("guide ws unknown command")
			continue
		}
		if err != nil {
			log.Warn().Err(err).Str("command", in.Type).Msg("guide ws command failed")
			return
		}
	}
}

func writeWSJSON(conn *websocket.Conn, v interface{}) error {
	_ = conn.SetWriteDeadline(time.Now().Add(guideWSWriteWait))
	return conn.WriteJSON(v)
}
