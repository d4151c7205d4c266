package httpapi

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/hirebot-dev/hirebot/pkg/chat/coordinator"
	apperrors "github.com/hirebot-dev/hirebot/pkg/chat/errors"
	"github.com/hirebot-dev/hirebot/pkg/chat/models"
)

type contextKey string

const userIDKey contextKey = "userID"

// requireUser pulls the caller's identity off the X-User-ID header. Who
// issues that header is an upstream concern; requests without it are 401.
func (s *Server) requireUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userID := r.Header.Get("X-User-ID")
		if userID == "" {
			writeError(w, apperrors.New(apperrors.ErrCodeNotAuthenticated, "missing X-User-ID header", nil))
			return
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), userIDKey, userID)))
	})
}

func userID(r *http.Request) string {
	id, _ := r.Context().Value(userIDKey).(string)
	return id
}

type providerStatus struct {
	Name       string   `json:"name"`
	Configured bool     `json:"configured"`
	Models     []string `json:"models,omitempty"`
}

func (s *Server) handleListProviders(w http.ResponseWriter, _ *http.Request) {
	statuses := make([]providerStatus, 0, len(s.registry.List()))
	for _, name := range s.registry.List() {
		st := providerStatus{Name: name, Configured: s.creds.IsConfigured(name)}
		if p, err := s.registry.Get(name); err == nil {
			st.Models = p.SupportedModels()
		}
		statuses = append(statuses, st)
	}
	writeJSON(w, http.StatusOK, statuses)
}

type createSessionRequest struct {
	EmployeeID string `json:"employee_id"`
	Provider   string `json:"provider"`
}

func (s *Server) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	var req createSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, apperrors.New(apperrors.ErrCodeInvalidInput, "invalid request body", err))
		return
	}
	if req.Provider == "" {
		writeError(w, apperrors.New(apperrors.ErrCodeInvalidInput, "provider is required", nil))
		return
	}

	sess, err := s.store.CreateSession(r.Context(), userID(r), req.EmployeeID, req.Provider)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, sess)
}

func (s *Server) handleListSessions(w http.ResponseWriter, r *http.Request) {
	sessions, err := s.store.ListSessions(r.Context(), userID(r))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sessions)
}

// ownedSession loads the session and verifies the caller owns it. Foreign
// sessions read as NOT_FOUND so ids do not leak across users.
func (s *Server) ownedSession(r *http.Request) (*models.Session, error) {
	id := mux.Vars(r)["id"]
	sess, err := s.store.GetSession(r.Context(), id)
	if err != nil {
		return nil, err
	}
	if sess.UserID != userID(r) {
		return nil, apperrors.New(apperrors.ErrCodeNotFound, "session not found: "+id, nil)
	}
	return sess, nil
}

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	sess, err := s.ownedSession(r)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sess)
}

func (s *Server) handleDeleteSession(w http.ResponseWriter, r *http.Request) {
	sess, err := s.ownedSession(r)
	if err != nil {
		writeError(w, err)
		return
	}
	if err := s.store.DeleteSession(r.Context(), sess.ID); err != nil {
		writeError(w, err)
		return
	}
	s.coordinator.ReleaseSession(sess.ID)
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleListMessages(w http.ResponseWriter, r *http.Request) {
	sess, err := s.ownedSession(r)
	if err != nil {
		writeError(w, err)
		return
	}
	msgs, err := s.store.ListMessages(r.Context(), sess.ID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, msgs)
}

type sendMessageRequest struct {
	Text string `json:"text"`
}

type sendMessageResponse struct {
	UserMessage      *models.Message   `json:"user_message"`
	AssistantMessage *models.Message   `json:"assistant_message,omitempty"`
	ToolResults      []*models.Message `json:"tool_results,omitempty"`
	Truncated        bool              `json:"truncated,omitempty"`
	Error            *errorBody        `json:"error,omitempty"`
}

// handleSendMessage runs a full exchange. Failures after the user message was
// persisted still return the partial outcome so the client can render what
// made it into history.
func (s *Server) handleSendMessage(w http.ResponseWriter, r *http.Request) {
	sess, err := s.ownedSession(r)
	if err != nil {
		writeError(w, err)
		return
	}

	var req sendMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, apperrors.New(apperrors.ErrCodeInvalidInput, "invalid request body", err))
		return
	}

	outcome, err := s.coordinator.SendUserMessage(r.Context(), sess.ID, req.Text, coordinator.Options{})
	if err != nil && (outcome == nil || outcome.UserMessage == nil) {
		writeError(w, err)
		return
	}

	resp := sendMessageResponse{
		UserMessage:      outcome.UserMessage,
		AssistantMessage: outcome.AssistantMessage,
		ToolResults:      outcome.ToolResults,
		Truncated:        outcome.Truncated,
	}
	status := http.StatusOK
	if err != nil {
		resp.Error = &errorBody{Code: apperrors.CodeOf(err), Message: err.Error()}
		status = statusFor(apperrors.CodeOf(err))
	}
	writeJSON(w, status, resp)
}

type errorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type errorResponse struct {
	Error errorBody `json:"error"`
}

func statusFor(code string) int {
	switch code {
	case apperrors.ErrCodeInvalidInput:
		return http.StatusBadRequest
	case apperrors.ErrCodeNotAuthenticated:
		return http.StatusUnauthorized
	case apperrors.ErrCodeNotFound:
		return http.StatusNotFound
	case apperrors.ErrCodeProviderNotConfigured:
		return http.StatusConflict
	case apperrors.ErrCodeProviderError:
		return http.StatusBadGateway
	case apperrors.ErrCodeRateLimited:
		return http.StatusTooManyRequests
	case apperrors.ErrCodeUnknownTool, apperrors.ErrCodeToolExecution:
		return http.StatusInternalServerError
	default:
		return http.StatusInternalServerError
	}
}

func writeError(w http.ResponseWriter, err error) {
	code := apperrors.CodeOf(err)
	if code == "" {
		code = apperrors.ErrCodeStoreFailed
	}
	writeJSON(w, statusFor(code), errorResponse{Error: errorBody{Code: code, Message: err.Error()}})
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}
