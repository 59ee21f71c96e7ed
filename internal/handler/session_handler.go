package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/khaliqhussainn/certexam-engine/internal/middleware"
	"github.com/khaliqhussainn/certexam-engine/internal/model"
	"github.com/khaliqhussainn/certexam-engine/internal/response"
	"github.com/khaliqhussainn/certexam-engine/internal/seb"
	"github.com/khaliqhussainn/certexam-engine/internal/service"
	"github.com/khaliqhussainn/certexam-engine/internal/validator"
)

// SessionHandler exposes the exam session lifecycle over REST.
type SessionHandler struct {
	sessions *service.SessionService
}

// NewSessionHandler creates a new SessionHandler.
func NewSessionHandler(sessions *service.SessionService) *SessionHandler {
	return &SessionHandler{sessions: sessions}
}

// CreateSession godoc
// POST /api/v1/sessions
// Creates a session in CREATED state after the entitlement check. The timer
// does not run until start.
func (h *SessionHandler) CreateSession(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	var req model.CreateSessionRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	session, err := h.sessions.CreateSession(c.Request.Context(), claims.UserID, req.CourseID)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrNotEntitled):
			response.Fail(c, http.StatusForbidden, response.ErrNotEntitled)
		case errors.Is(err, pgx.ErrNoRows):
			response.Fail(c, http.StatusNotFound, response.ErrNotFound)
		default:
			response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		}
		return
	}

	response.Success(c, http.StatusCreated, gin.H{"session": session})
}

// GetActiveSession godoc
// GET /api/v1/sessions/active
// Points a reconnecting client at its in-flight session, if any.
func (h *SessionHandler) GetActiveSession(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	id, err := h.sessions.GetActiveSessionID(c.Request.Context(), claims.UserID)
	if err != nil {
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}
	if id == nil {
		response.Fail(c, http.StatusNotFound, response.ErrNotFound)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"session_id": id})
}

// GetSession godoc
// GET /api/v1/sessions/:id
func (h *SessionHandler) GetSession(c *gin.Context) {
	claims, sessionID, ok := h.sessionParams(c)
	if !ok {
		return
	}

	session, err := h.sessions.GetSession(c.Request.Context(), sessionID, claims.UserID)
	if err != nil {
		h.failFromError(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"session": session})
}

// StartSession godoc
// POST /api/v1/sessions/:id/start
// Stamps the deadline and activates the session. Repeated calls fail with
// SESSION_ALREADY_STARTED; the deadline never moves.
func (h *SessionHandler) StartSession(c *gin.Context) {
	claims, sessionID, ok := h.sessionParams(c)
	if !ok {
		return
	}

	var req model.StartSessionRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	result, err := h.sessions.StartSession(c.Request.Context(), sessionID, claims.UserID, req.ClientEnvironment)
	if err != nil {
		h.failFromError(c, err)
		return
	}

	response.Success(c, http.StatusOK, result)
}

// SubmitAnswer godoc
// POST /api/v1/sessions/:id/answers
// Records one answer; the last write per question wins. An elapsed deadline
// finalizes the session and returns the result instead.
func (h *SessionHandler) SubmitAnswer(c *gin.Context) {
	claims, sessionID, ok := h.sessionParams(c)
	if !ok {
		return
	}

	var req model.SubmitAnswerRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	result, err := h.sessions.SubmitAnswer(c.Request.Context(), sessionID, claims.UserID, req)
	if err != nil {
		if errors.Is(err, service.ErrSessionExpired) {
			response.FailWithData(c, http.StatusOK, response.ErrSessionExpired, gin.H{"result": result})
			return
		}
		h.failFromError(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"status": "saved"})
}

// Heartbeat godoc
// POST /api/v1/sessions/:id/heartbeat
// Liveness report. Returns the authoritative remaining time; on an elapsed
// deadline the session is finalized and the result included.
func (h *SessionHandler) Heartbeat(c *gin.Context) {
	claims, sessionID, ok := h.sessionParams(c)
	if !ok {
		return
	}

	resp, err := h.sessions.Heartbeat(c.Request.Context(), sessionID, claims.UserID)
	if err != nil {
		h.failFromError(c, err)
		return
	}

	response.Success(c, http.StatusOK, resp)
}

// RecordViolation godoc
// POST /api/v1/sessions/:id/violations
// Reports one integrity signal and returns the escalation decision.
func (h *SessionHandler) RecordViolation(c *gin.Context) {
	claims, sessionID, ok := h.sessionParams(c)
	if !ok {
		return
	}

	var req model.RecordViolationRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	resp, err := h.sessions.RecordViolation(c.Request.Context(), sessionID, claims.UserID, req.Kind, req.Detail)
	if err != nil {
		if errors.Is(err, service.ErrSessionExpired) && resp != nil {
			response.FailWithData(c, http.StatusOK, response.ErrSessionExpired, gin.H{"result": resp.Result})
			return
		}
		h.failFromError(c, err)
		return
	}

	response.Success(c, http.StatusOK, resp)
}

// VerifyTrust godoc
// POST /api/v1/sessions/:id/trust
// Verifies the secure browser's key assertion. A mismatch is recorded as a
// violation and reported back; the request itself still succeeds.
func (h *SessionHandler) VerifyTrust(c *gin.Context) {
	claims, sessionID, ok := h.sessionParams(c)
	if !ok {
		return
	}

	var req model.VerifyTrustRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	resp, err := h.sessions.VerifyTrust(c.Request.Context(), sessionID, claims.UserID, req.ConfigKey, req.BrowserExamKey)
	if err != nil {
		h.failFromError(c, err)
		return
	}

	response.Success(c, http.StatusOK, resp)
}

// GetSEBConfig godoc
// GET /api/v1/sessions/:id/seb-config
// Returns the exported secure-browser configuration document for download.
func (h *SessionHandler) GetSEBConfig(c *gin.Context) {
	claims, sessionID, ok := h.sessionParams(c)
	if !ok {
		return
	}

	doc, err := h.sessions.GetSEBConfig(c.Request.Context(), sessionID, claims.UserID)
	if err != nil {
		h.failFromError(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"config": doc})
}

// Quit godoc
// POST /api/v1/sessions/:id/quit
// Verifies the secure browser's quit password before it unlocks its exit.
func (h *SessionHandler) Quit(c *gin.Context) {
	claims, sessionID, ok := h.sessionParams(c)
	if !ok {
		return
	}

	var req model.QuitSessionRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	if err := h.sessions.Quit(c.Request.Context(), sessionID, claims.UserID, req.QuitPassword); err != nil {
		if errors.Is(err, seb.ErrQuitPasswordMismatch) {
			response.Fail(c, http.StatusForbidden, response.ErrQuitDenied)
			return
		}
		h.failFromError(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"status": "quit allowed"})
}

// Finalize godoc
// POST /api/v1/sessions/:id/finalize
// Scores the session and returns the result. Idempotent: repeated calls
// return the stored result unchanged.
func (h *SessionHandler) Finalize(c *gin.Context) {
	claims, sessionID, ok := h.sessionParams(c)
	if !ok {
		return
	}

	var req model.FinalizeRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	result, err := h.sessions.Finalize(c.Request.Context(), sessionID, claims.UserID, req.Reason)
	if err != nil {
		h.failFromError(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"result": result})
}

// GetResult godoc
// GET /api/v1/sessions/:id/result
func (h *SessionHandler) GetResult(c *gin.Context) {
	claims, sessionID, ok := h.sessionParams(c)
	if !ok {
		return
	}

	result, err := h.sessions.GetResult(c.Request.Context(), sessionID, claims.UserID)
	if err != nil {
		if errors.Is(err, service.ErrNotFinalized) {
			response.Fail(c, http.StatusConflict, response.ErrNotFinalized)
			return
		}
		h.failFromError(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"result": result})
}

func (h *SessionHandler) sessionParams(c *gin.Context) (*service.Claims, uuid.UUID, bool) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return nil, uuid.Nil, false
	}

	sessionID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return nil, uuid.Nil, false
	}
	return claims, sessionID, true
}

// failFromError maps service sentinels onto the wire error taxonomy.
func (h *SessionHandler) failFromError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, pgx.ErrNoRows):
		response.Fail(c, http.StatusNotFound, response.ErrNotFound)
	case errors.Is(err, service.ErrNotSessionOwner):
		response.Fail(c, http.StatusForbidden, response.ErrNotSessionOwner)
	case errors.Is(err, service.ErrNotEntitled):
		response.Fail(c, http.StatusForbidden, response.ErrNotEntitled)
	case errors.Is(err, service.ErrAlreadyStarted):
		response.Fail(c, http.StatusConflict, response.ErrAlreadyStarted)
	case errors.Is(err, service.ErrSessionExpired):
		response.Fail(c, http.StatusConflict, response.ErrSessionExpired)
	case errors.Is(err, service.ErrSessionNotActive):
		response.Fail(c, http.StatusConflict, response.ErrSessionNotActive)
	case errors.Is(err, service.ErrInvalidAnswer):
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidAnswer)
	case errors.Is(err, service.ErrUnknownSignal):
		response.Fail(c, http.StatusBadRequest, response.ErrUnknownSignal)
	default:
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
	}
}
