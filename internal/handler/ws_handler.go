package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/khaliqhussainn/certexam-engine/internal/middleware"
	"github.com/khaliqhussainn/certexam-engine/internal/model"
	"github.com/khaliqhussainn/certexam-engine/internal/service"
	ws "github.com/khaliqhussainn/certexam-engine/internal/websocket"
)

// buildUpgrader creates a WebSocket upgrader with origin validation.
// An empty allowedOrigins slice permits all origins (development mode).
func buildUpgrader(allowedOrigins []string) websocket.Upgrader {
	return websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			if len(allowedOrigins) == 0 {
				return true
			}
			origin := r.Header.Get("Origin")
			for _, allowed := range allowedOrigins {
				if strings.EqualFold(allowed, origin) {
					return true
				}
			}
			return false
		},
	}
}

// WSHandler streams the exam session over a WebSocket: answers, heartbeats,
// integrity signals, and trust assertions ride one connection instead of
// individual HTTP calls. Every message goes through the same SessionService
// paths as REST, so the state machine and escalation rules are identical.
type WSHandler struct {
	sessions *service.SessionService
	log      zerolog.Logger
	upgrader websocket.Upgrader
}

// NewWSHandler creates a new WSHandler.
func NewWSHandler(sessions *service.SessionService, log zerolog.Logger, allowedOrigins []string) *WSHandler {
	return &WSHandler{
		sessions: sessions,
		log:      log.With().Str("component", "ws_handler").Logger(),
		upgrader: buildUpgrader(allowedOrigins),
	}
}

// SessionStream godoc
// WS /ws/v1/sessions/:id/stream
func (h *WSHandler) SessionStream(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	sessionID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid session ID"})
		return
	}

	// Ownership check before upgrading: a foreign session id fails fast.
	if _, err := h.sessions.GetSession(c.Request.Context(), sessionID, claims.UserID); err != nil {
		c.JSON(http.StatusForbidden, gin.H{"error": "no such session"})
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.Error().Err(err).Msg("WebSocket upgrade failed")
		return
	}
	defer conn.Close()

	wsLog := h.log.With().
		Int("user_id", claims.UserID).
		Str("session_id", sessionID.String()).
		Logger()

	wsLog.Info().Msg("Candidate connected")

	for {
		var envelope ws.RequestEnvelope
		raw, err := readRaw(conn, &envelope)
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				wsLog.Warn().Err(err).Msg("Unexpected close")
			} else {
				wsLog.Debug().Msg("Connection closed")
			}
			break
		}

		done := false
		switch envelope.Action {
		case ws.ActionAnswer:
			h.handleAnswer(conn, wsLog, sessionID, claims.UserID, raw)
		case ws.ActionHeartbeat:
			done = h.handleHeartbeat(conn, wsLog, sessionID, claims.UserID)
		case ws.ActionSignal:
			done = h.handleSignal(conn, wsLog, sessionID, claims.UserID, raw)
		case ws.ActionTrust:
			h.handleTrust(conn, wsLog, sessionID, claims.UserID, raw)
		case ws.ActionSubmit:
			done = h.handleSubmit(conn, wsLog, sessionID, claims.UserID)
		case ws.ActionPing:
			ws.WriteTyped(conn, ws.PongResponse{Event: ws.EventPong})
		default:
			wsLog.Warn().Str("action", string(envelope.Action)).Msg("Unknown action")
			ws.WriteError(conn, "unknown action: "+string(envelope.Action))
		}
		if done {
			break
		}
	}
}

func (h *WSHandler) handleAnswer(conn *websocket.Conn, wsLog zerolog.Logger, sessionID uuid.UUID, userID int, raw []byte) {
	var msg ws.AnswerRequest
	if err := decodeRaw(raw, &msg); err != nil {
		ws.WriteError(conn, "malformed answer payload")
		return
	}
	qid, err := uuid.Parse(msg.QuestionID)
	if err != nil {
		ws.WriteError(conn, "invalid question_id format")
		return
	}

	result, err := h.sessions.SubmitAnswer(context.Background(), sessionID, userID, model.SubmitAnswerRequest{
		QuestionID:       qid,
		SelectedOption:   msg.SelectedOption,
		TimeSpentSeconds: msg.TimeSpentSeconds,
	})
	if err != nil {
		if errors.Is(err, service.ErrSessionExpired) {
			h.writeGraded(conn, result)
			return
		}
		ws.WriteError(conn, wsErrString(err))
		return
	}

	ws.WriteTyped(conn, ws.SavedResponse{Event: ws.EventSaved, Status: "saved"})
}

func (h *WSHandler) handleHeartbeat(conn *websocket.Conn, wsLog zerolog.Logger, sessionID uuid.UUID, userID int) bool {
	resp, err := h.sessions.Heartbeat(context.Background(), sessionID, userID)
	if err != nil {
		ws.WriteError(conn, wsErrString(err))
		return false
	}

	if resp.Result != nil {
		h.writeGraded(conn, resp.Result)
		return true
	}

	ws.WriteTyped(conn, ws.HeartbeatResponse{
		Event:            ws.EventHeartbeat,
		State:            string(resp.State),
		RemainingSeconds: resp.RemainingSeconds,
		TrustRecheckDue:  resp.TrustRecheckDue,
	})
	return false
}

func (h *WSHandler) handleSignal(conn *websocket.Conn, wsLog zerolog.Logger, sessionID uuid.UUID, userID int, raw []byte) bool {
	var msg ws.SignalRequest
	if err := decodeRaw(raw, &msg); err != nil {
		ws.WriteError(conn, "malformed signal payload")
		return false
	}

	resp, err := h.sessions.RecordViolation(context.Background(), sessionID, userID,
		model.SignalKind(msg.Kind), msg.Detail)
	if err != nil {
		if errors.Is(err, service.ErrSessionExpired) && resp != nil {
			h.writeGraded(conn, resp.Result)
			return true
		}
		ws.WriteError(conn, wsErrString(err))
		return false
	}

	if resp.Result != nil {
		h.writeGraded(conn, resp.Result)
		return true
	}

	ws.WriteTyped(conn, ws.ActionResponse{Event: ws.EventAction, Action: string(resp.Action)})
	return false
}

func (h *WSHandler) handleTrust(conn *websocket.Conn, wsLog zerolog.Logger, sessionID uuid.UUID, userID int, raw []byte) {
	var msg ws.TrustRequest
	if err := decodeRaw(raw, &msg); err != nil {
		ws.WriteError(conn, "malformed trust payload")
		return
	}

	resp, err := h.sessions.VerifyTrust(context.Background(), sessionID, userID, msg.ConfigKey, msg.BrowserExamKey)
	if err != nil {
		ws.WriteError(conn, wsErrString(err))
		return
	}

	ws.WriteTyped(conn, ws.TrustResponse{
		Event:         ws.EventTrust,
		Verified:      resp.Verified,
		Discrepancies: resp.Discrepancies,
	})
}

func (h *WSHandler) handleSubmit(conn *websocket.Conn, wsLog zerolog.Logger, sessionID uuid.UUID, userID int) bool {
	result, err := h.sessions.Finalize(context.Background(), sessionID, userID, model.ReasonUserSubmit)
	if err != nil {
		ws.WriteError(conn, wsErrString(err))
		return false
	}

	wsLog.Info().
		Float64("score", result.ScorePercent).
		Bool("passed", result.Passed).
		Msg("Session submitted over stream")

	h.writeGraded(conn, result)
	return true
}

func (h *WSHandler) writeGraded(conn *websocket.Conn, result *model.ExamResult) {
	if result == nil {
		ws.WriteError(conn, "session closed")
		return
	}
	ws.WriteTyped(conn, ws.GradedResponse{
		Event:        ws.EventGraded,
		Status:       string(result.Reason.TerminalState()),
		Reason:       string(result.Reason),
		ScorePercent: result.ScorePercent,
		Passed:       result.Passed,
	})
}

// readRaw reads one message, peeks the action envelope, and returns the raw
// bytes so the caller can decode the full typed payload from the same frame.
func readRaw(conn *websocket.Conn, envelope *ws.RequestEnvelope) ([]byte, error) {
	conn.SetReadDeadline(time.Now().Add(ws.ReadWait))
	_, raw, err := conn.ReadMessage()
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(raw, envelope); err != nil {
		return nil, err
	}
	return raw, nil
}

func decodeRaw(raw []byte, v interface{}) error {
	return json.Unmarshal(raw, v)
}

func wsErrString(err error) string {
	switch {
	case errors.Is(err, service.ErrSessionNotActive):
		return "session is not active"
	case errors.Is(err, service.ErrInvalidAnswer):
		return "answer does not match the session's question set"
	case errors.Is(err, service.ErrUnknownSignal):
		return "unknown signal kind"
	default:
		return "request failed"
	}
}
