package server

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/naseaoi/IceTV/internal/admin"
	"github.com/naseaoi/IceTV/internal/models"
)

// handleGetConfig returns the authoritative document together with the
// caller's resolved role. Every successful mutation is followed by a
// refetch of this endpoint on the client side.
func (s *Server) handleGetConfig(w http.ResponseWriter, r *http.Request) {
	actor, cfg, status, err := s.adminActor(r)
	if err != nil {
		writeErr(w, status, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"role":   actor.Role,
		"config": cfg,
	})
}

// handleReset restores the document to its bootstrap state. Owner only.
func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	actor, _, status, err := s.adminActor(r)
	if err != nil {
		writeErr(w, status, err)
		return
	}
	if actor.Role != models.RoleOwner {
		writeErr(w, http.StatusForbidden, fmt.Errorf("only the owner can reset the configuration"))
		return
	}
	if err := s.admin.Reset(r.Context()); err != nil {
		writeErr(w, errStatus(err), err)
		return
	}
	writeOK(w)
}

func (s *Server) handleSourceAction(w http.ResponseWriter, r *http.Request) {
	s.applySourceAction(w, r, admin.VideoSources)
}

func (s *Server) handleLiveAction(w http.ResponseWriter, r *http.Request) {
	s.applySourceAction(w, r, admin.LiveSources)
}

func (s *Server) applySourceAction(w http.ResponseWriter, r *http.Request, kind admin.ListKind) {
	_, _, status, err := s.adminActor(r)
	if err != nil {
		writeErr(w, status, err)
		return
	}
	var req admin.SourceActionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErr(w, http.StatusBadRequest, fmt.Errorf("invalid JSON: %w", err))
		return
	}
	if err := s.admin.ApplySourceAction(r.Context(), kind, req); err != nil {
		writeErr(w, errStatus(err), err)
		return
	}
	writeOK(w)
}

func (s *Server) handleCategoryAction(w http.ResponseWriter, r *http.Request) {
	_, _, status, err := s.adminActor(r)
	if err != nil {
		writeErr(w, status, err)
		return
	}
	var req admin.CategoryActionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErr(w, http.StatusBadRequest, fmt.Errorf("invalid JSON: %w", err))
		return
	}
	if err := s.admin.ApplyCategoryAction(r.Context(), req); err != nil {
		writeErr(w, errStatus(err), err)
		return
	}
	writeOK(w)
}

func (s *Server) handleUserAction(w http.ResponseWriter, r *http.Request) {
	actor, _, status, err := s.adminActor(r)
	if err != nil {
		writeErr(w, status, err)
		return
	}
	var req admin.UserActionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErr(w, http.StatusBadRequest, fmt.Errorf("invalid JSON: %w", err))
		return
	}
	if err := s.admin.ApplyUserAction(r.Context(), actor, req); err != nil {
		writeErr(w, errStatus(err), err)
		return
	}
	writeOK(w)
}

// handleSiteAction replaces the site settings block as one unit.
func (s *Server) handleSiteAction(w http.ResponseWriter, r *http.Request) {
	_, _, status, err := s.adminActor(r)
	if err != nil {
		writeErr(w, status, err)
		return
	}
	var site models.SiteConfig
	if err := json.NewDecoder(r.Body).Decode(&site); err != nil {
		writeErr(w, http.StatusBadRequest, fmt.Errorf("invalid JSON: %w", err))
		return
	}
	if err := s.admin.SetSiteConfig(r.Context(), site); err != nil {
		writeErr(w, errStatus(err), err)
		return
	}
	writeOK(w)
}

type configFileRequest struct {
	ConfigFile string `json:"configFile"`
}

// handleConfigFile replaces the raw subscription JSON and reseeds the
// config-origin entries from it. Owner only.
func (s *Server) handleConfigFile(w http.ResponseWriter, r *http.Request) {
	actor, _, status, err := s.adminActor(r)
	if err != nil {
		writeErr(w, status, err)
		return
	}
	if actor.Role != models.RoleOwner {
		writeErr(w, http.StatusForbidden, fmt.Errorf("only the owner can replace the config file"))
		return
	}
	var req configFileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErr(w, http.StatusBadRequest, fmt.Errorf("invalid JSON: %w", err))
		return
	}
	if err := s.admin.SetConfigFile(r.Context(), req.ConfigFile); err != nil {
		writeErr(w, errStatus(err), err)
		return
	}
	writeOK(w)
}
