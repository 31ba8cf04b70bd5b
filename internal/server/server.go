// Package server exposes the provisioning operations over HTTP: the chat
// webhook, the chatbot intent endpoint, and the direct SCIM glue endpoints
// consumed by the CAP frontend.
package server

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"github.com/samber/oops"

	"github.com/scimbridge/scimbridge/internal/intent"
	"github.com/scimbridge/scimbridge/internal/provision"
	"github.com/scimbridge/scimbridge/pkg/clients/scim"
	"github.com/scimbridge/scimbridge/pkg/utils/httpclient"
)

const maxRequestBody = 1 << 20

var errOps = oops.In("provisioning service")

const (
	IntentAssign = "assign"
	IntentRevoke = "revoke"
)

type Server struct {
	router       *mux.Router
	orchestrator *provision.Orchestrator
	provisioner  *provision.Provisioner
	extractor    intent.Extractor
	logger       *slog.Logger
}

func New(
	orchestrator *provision.Orchestrator,
	provisioner *provision.Provisioner,
	extractor intent.Extractor,
	logger *slog.Logger,
) *Server {
	s := &Server{
		router:       mux.NewRouter(),
		orchestrator: orchestrator,
		provisioner:  provisioner,
		extractor:    extractor,
		logger:       logger,
	}

	s.router.HandleFunc("/webhook/messages", s.handleWebhookMessage).Methods(http.MethodPost)
	s.router.HandleFunc("/chatbot", s.handleChatbotInput).Methods(http.MethodPost)
	s.router.HandleFunc("/groups/assign", s.handleAssignGroup).Methods(http.MethodPost)
	s.router.HandleFunc("/users", s.handleListUsers).Methods(http.MethodGet)
	s.router.HandleFunc("/users", s.handleCreateUsers).Methods(http.MethodPost)

	return s
}

// Handler returns the fully wrapped HTTP handler.
func (s *Server) Handler() http.Handler {
	recovery := handlers.RecoveryHandler(handlers.PrintRecoveryStack(false))

	return recovery(s.requestID(s.router))
}

// requestID tags every request with a correlation ID for logging.
func (s *Server) requestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := uuid.NewString()
		w.Header().Set("X-Request-Id", id)
		s.logger.Debug("incoming request", "id", id, "method", r.Method, "path", r.URL.Path)
		next.ServeHTTP(w, r)
	})
}

// handleWebhookMessage echoes the incoming chat prompt back to the channel.
// The webhook sender posts plain text and expects a JSON message reply.
func (s *Server) handleWebhookMessage(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxRequestBody))
	if err != nil {
		s.writeError(w, http.StatusBadRequest, errOps.Wrapf(err, "failed to read webhook body"))
		return
	}

	input := string(body)
	s.logger.Info("received webhook prompt", "length", len(input))

	s.writeJSON(w, http.StatusOK, map[string]string{
		"type": "message",
		"text": "Prompt received: " + input,
	})
}

type chatbotRequest struct {
	Input string `json:"input"`
}

type statusMessage struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

// handleChatbotInput extracts intent from free-form text and routes it to
// the orchestrator. Insufficient extraction is an error result, not an HTTP
// failure.
func (s *Server) handleChatbotInput(w http.ResponseWriter, r *http.Request) {
	request := chatbotRequest{}
	if !s.decodeJSON(w, r, &request) {
		return
	}

	extraction, err := s.extractor.ExtractIntent(r.Context(), request.Input)
	if err != nil {
		s.writeError(w, http.StatusBadGateway, errOps.Wrapf(err, "intent extraction failed"))
		return
	}

	if extraction.Empty() {
		s.writeJSON(w, http.StatusOK, statusMessage{
			Status:  "error",
			Message: "could not extract enough info from input",
		})

		return
	}

	s.logger.Info("parsed chat intent",
		"intent", extraction.Intent, "email", extraction.Email, "groups", len(extraction.Groups))

	var result *provision.Result

	switch extraction.Intent {
	case IntentAssign:
		result, err = s.orchestrator.AssignGroupsToUser(r.Context(), extraction.Email, extraction.Groups)
	case IntentRevoke:
		result, err = s.orchestrator.RevokeGroupsFromUser(r.Context(), extraction.Email, extraction.Groups)
	default:
		s.writeJSON(w, http.StatusOK, statusMessage{
			Status:  "error",
			Message: "unrecognized intent: " + extraction.Intent,
		})

		return
	}

	if err != nil {
		s.writeMembershipError(w, err)
		return
	}

	s.writeJSON(w, http.StatusOK, result)
}

type assignGroupRequest struct {
	GroupID string   `json:"groupId"`
	UserIDs []string `json:"userIds,omitempty"`
	Emails  []string `json:"emails,omitempty"`
}

// handleAssignGroup assigns users to one group by ID. Callers pass resolved
// user IDs, or emails to be resolved concurrently first.
func (s *Server) handleAssignGroup(w http.ResponseWriter, r *http.Request) {
	request := assignGroupRequest{}
	if !s.decodeJSON(w, r, &request) {
		return
	}

	if request.GroupID == "" {
		s.writeError(w, http.StatusBadRequest, errOps.New("groupId is required"))
		return
	}

	userIDs := request.UserIDs

	if len(userIDs) == 0 && len(request.Emails) > 0 {
		resolved, err := s.orchestrator.ResolveUserIDs(r.Context(), request.Emails)
		if err != nil {
			s.writeMembershipError(w, err)
			return
		}

		userIDs = resolved
	}

	if len(userIDs) == 0 {
		s.writeJSON(w, http.StatusOK, statusMessage{
			Status:  "warning",
			Message: "no users to assign; nothing was submitted",
		})

		return
	}

	response, err := s.orchestrator.AssignUsersToGroup(r.Context(), request.GroupID, userIDs)
	if err != nil {
		s.writeMembershipError(w, err)
		return
	}

	s.writeJSON(w, http.StatusOK, map[string]any{
		"status": "success",
		"result": response,
	})
}

func (s *Server) handleListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := s.orchestrator.ListUsers(r.Context())
	if err != nil {
		s.writeMembershipError(w, err)
		return
	}

	s.writeJSON(w, http.StatusOK, map[string]any{
		"status": "success",
		"users":  users,
	})
}

type createUsersRequest struct {
	Users []scim.UserAttributes `json:"users"`
}

func (s *Server) handleCreateUsers(w http.ResponseWriter, r *http.Request) {
	request := createUsersRequest{}
	if !s.decodeJSON(w, r, &request) {
		return
	}

	result, err := s.provisioner.CreateUsers(r.Context(), request.Users)
	if err != nil {
		s.writeMembershipError(w, err)
		return
	}

	s.writeJSON(w, http.StatusOK, result)
}

func (s *Server) decodeJSON(w http.ResponseWriter, r *http.Request, target any) bool {
	err := json.NewDecoder(io.LimitReader(r.Body, maxRequestBody)).Decode(target)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, errOps.Wrapf(err, "invalid request body"))
		return false
	}

	return true
}

// writeMembershipError maps orchestration failures onto HTTP statuses: a
// missing user is the caller's problem, upstream statuses pass through as a
// gateway error.
func (s *Server) writeMembershipError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError

	statusErr := &httpclient.StatusError{}

	switch {
	case errors.Is(err, provision.ErrUserNotFound):
		status = http.StatusNotFound
	case errors.As(err, &statusErr):
		status = http.StatusBadGateway
	}

	s.writeError(w, status, errOps.Wrap(err))
}

func (s *Server) writeError(w http.ResponseWriter, status int, err error) {
	s.logger.Error("request failed", "status", status, "error", err)
	s.writeJSON(w, status, statusMessage{Status: "error", Message: err.Error()})
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	err := json.NewEncoder(w).Encode(payload)
	if err != nil {
		s.logger.Error("failed to encode response", "error", err)
	}
}
