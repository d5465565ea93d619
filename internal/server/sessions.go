package server

import (
	"crypto/subtle"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/naseaoi/IceTV/internal/auth"
	"github.com/naseaoi/IceTV/internal/models"
	"github.com/naseaoi/IceTV/internal/permission"
)

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErr(w, http.StatusBadRequest, fmt.Errorf("invalid JSON: %w", err))
		return
	}
	if req.Username == "" || req.Password == "" {
		writeErr(w, http.StatusBadRequest, fmt.Errorf("username and password are required"))
		return
	}

	cfg, err := s.admin.Config(r.Context())
	if err != nil {
		writeErr(w, http.StatusInternalServerError, err)
		return
	}

	role := models.RoleUser
	if req.Username == s.auth.OwnerUsername() {
		if subtle.ConstantTimeCompare([]byte(req.Password), []byte(s.cfg.OwnerPassword)) != 1 {
			writeErr(w, http.StatusUnauthorized, fmt.Errorf("invalid username or password"))
			return
		}
		role = models.RoleOwner
	} else {
		if err := s.store.VerifyUser(r.Context(), req.Username, req.Password); err != nil {
			// Unknown user, wrong password and no-account storage all look
			// the same to the caller.
			writeErr(w, http.StatusUnauthorized, fmt.Errorf("invalid username or password"))
			return
		}
		for _, u := range cfg.UserConfig.Users {
			if u.Username != req.Username {
				continue
			}
			if u.Banned {
				writeErr(w, http.StatusForbidden, fmt.Errorf("account is banned"))
				return
			}
			role = u.Role
			break
		}
	}

	for _, c := range s.auth.Issue(req.Username, role, auth.IsSecureRequest(r)) {
		http.SetCookie(w, c)
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true, "role": role})
}

// handleLogout clears the session cookies. Idempotent: logging out
// without a session still succeeds.
func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	for _, c := range s.auth.Clear(auth.IsSecureRequest(r)) {
		http.SetCookie(w, c)
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErr(w, http.StatusBadRequest, fmt.Errorf("invalid JSON: %w", err))
		return
	}
	if err := s.admin.Register(r.Context(), req.Username, req.Password); err != nil {
		writeErr(w, errStatus(err), err)
		return
	}
	for _, c := range s.auth.Issue(req.Username, models.RoleUser, auth.IsSecureRequest(r)) {
		http.SetCookie(w, c)
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true, "role": models.RoleUser})
}

type changePasswordRequest struct {
	NewPassword string `json:"newPassword"`
}

func (s *Server) handleChangePassword(w http.ResponseWriter, r *http.Request) {
	id, err := s.auth.Verify(r)
	if err != nil {
		writeErr(w, http.StatusUnauthorized, err)
		return
	}
	var req changePasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErr(w, http.StatusBadRequest, fmt.Errorf("invalid JSON: %w", err))
		return
	}
	if req.NewPassword == "" {
		writeErr(w, http.StatusBadRequest, fmt.Errorf("newPassword is required"))
		return
	}
	// The owner password lives in the environment, not the store.
	if id.Username == s.auth.OwnerUsername() {
		writeErr(w, http.StatusBadRequest, fmt.Errorf("the owner password is managed by the deployment"))
		return
	}
	if err := s.store.ChangePassword(r.Context(), id.Username, req.NewPassword); err != nil {
		writeErr(w, errStatus(err), err)
		return
	}
	writeOK(w)
}

// adminActor verifies the session and resolves the actor's current role
// from the document. Only admins and the owner get through.
func (s *Server) adminActor(r *http.Request) (permission.Context, *models.AdminConfig, int, error) {
	id, err := s.auth.Verify(r)
	if err != nil {
		return permission.Context{}, nil, http.StatusUnauthorized, err
	}
	cfg, err := s.admin.Config(r.Context())
	if err != nil {
		return permission.Context{}, nil, http.StatusInternalServerError, err
	}
	role, err := s.auth.EffectiveRole(id, cfg)
	if err != nil {
		if errors.Is(err, auth.ErrNoSession) {
			return permission.Context{}, nil, http.StatusUnauthorized, err
		}
		return permission.Context{}, nil, http.StatusInternalServerError, err
	}
	if role != models.RoleOwner && role != models.RoleAdmin {
		return permission.Context{}, nil, http.StatusForbidden, fmt.Errorf("administrator access required")
	}
	return permission.Context{Role: role, Username: id.Username}, cfg, 0, nil
}
