package http

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"expenseview/internal/core"
	"expenseview/internal/log"
	"expenseview/internal/session"
)

type sessionResponse struct {
	LoggedIn bool         `json:"loggedIn"`
	Admin    bool         `json:"admin"`
	Person   *core.Person `json:"person,omitempty"`
}

type saveSessionRequest struct {
	ID    int64  `json:"id"`
	Role  string `json:"role"`
	Token string `json:"token"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// currentSession describes the store without exposing the bearer token.
func (s *Server) currentSession() sessionResponse {
	p, ok := s.session.CurrentPerson()
	if !ok {
		return sessionResponse{}
	}
	p.Token = ""
	return sessionResponse{LoggedIn: true, Admin: s.session.IsAdmin(), Person: &p}
}

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	NewJSONResponse().Body(s.currentSession()).Write(w)
}

// handleSaveSession stores an identity obtained elsewhere.
func (s *Server) handleSaveSession(w http.ResponseWriter, r *http.Request) {
	var req saveSessionRequest
	if err := decodeJSON(w, r, &req); err != nil {
		BadRequestError(err.Error()).Write(w)
		return
	}
	p := core.Person{
		ID:    req.ID,
		Role:  core.Role(strings.ToUpper(sanitizeInput(req.Role))),
		Token: strings.TrimSpace(req.Token),
	}
	if err := s.session.Save(p); err != nil {
		UnprocessableEntityError(err.Error()).Write(w)
		return
	}
	log.FromContext(r.Context()).InfoContext(r.Context(), "Session saved", log.FieldPersonID, p.ID)
	NewJSONResponse().
		Event(EventSessionChanged, nil).
		Body(s.currentSession()).
		Write(w)
}

// handleLogin authenticates against the backend and saves the returned
// identity.
func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	if s.auth == nil {
		ErrorResponse(http.StatusNotImplemented, "Login is not available for this backend.").Write(w)
		return
	}
	var req loginRequest
	if err := decodeJSON(w, r, &req); err != nil {
		BadRequestError(err.Error()).Write(w)
		return
	}
	email := sanitizeInput(req.Email)
	if email == "" || req.Password == "" {
		UnprocessableEntityError("Email and password are required.").Write(w)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), remoteTimeout)
	defer cancel()
	p, err := s.auth.Authenticate(ctx, email, req.Password)
	if err != nil {
		var um interface{ UserMessage() string }
		if errors.As(err, &um) && um.UserMessage() != "" {
			UnauthorizedError(um.UserMessage()).Write(w)
			return
		}
		s.writeViewError(w, r, err, "Login failed. Please try again.")
		return
	}
	if err := s.session.Save(p); err != nil {
		BadGatewayError("The expense service returned no identity.").Write(w)
		return
	}

	log.FromContext(r.Context()).InfoContext(r.Context(), "Logged in", log.FieldPersonID, p.ID)
	NewJSONResponse().
		Event(EventSessionChanged, nil).
		Body(s.currentSession()).
		Write(w)
}

func (s *Server) handleLogoff(w http.ResponseWriter, r *http.Request) {
	if _, err := session.Require(s.session); err == nil {
		log.FromContext(r.Context()).InfoContext(r.Context(), "Logged off")
	}
	s.session.Clear()
	NewJSONResponse().
		Status(http.StatusNoContent).
		Event(EventSessionChanged, nil).
		Write(w)
}
