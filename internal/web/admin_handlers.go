package web

import (
	"net/http"

	"github.com/edvart/arena-inhouse/internal/game"
)

// requireAdminToken guards admin routes with the shared token passed as
// ?token=. An empty configured token leaves them open, the dev default.
func (s *Server) requireAdminToken(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.adminToken != "" && r.URL.Query().Get("token") != s.adminToken {
			respondJSON(w, http.StatusForbidden, apiError{Error: "forbidden"})
			return
		}
		next.ServeHTTP(w, r)
	})
}

// adminConfigResponse is the tunable set plus the full catalogs, so the
// admin UI can render pickers without a second request.
type adminConfigResponse struct {
	Points          game.Points        `json:"points"`
	StreakBonus     map[string]float64 `json:"streak_bonus"`
	Maps            []string           `json:"maps"`
	Champions       []string           `json:"champions"`
	ActiveMaps      []string           `json:"active_maps"`
	ActiveChampions []string           `json:"active_champions"`
}

func adminConfigView(cfg game.Config) adminConfigResponse {
	return adminConfigResponse{
		Points:          cfg.Points,
		StreakBonus:     cfg.StreakBonus,
		Maps:            game.Maps,
		Champions:       game.Champions,
		ActiveMaps:      cfg.ActiveMaps,
		ActiveChampions: cfg.ActiveChampions,
	}
}

func (s *Server) handleAdminGetConfig(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, adminConfigView(s.engine.Config()))
}

// handleAdminSetConfig replaces the whole tunable set. Partial updates
// are rejected by validation, there is no merge.
func (s *Server) handleAdminSetConfig(w http.ResponseWriter, r *http.Request) {
	var cfg game.Config
	if err := decodeJSON(r, &cfg); err != nil {
		respondJSON(w, http.StatusBadRequest, apiError{Error: "invalid_request"})
		return
	}
	if err := s.engine.SetConfig(r.Context(), cfg); err != nil {
		s.respondError(w, err)
		return
	}
	s.log.Info("Admin replaced game config")
	respondJSON(w, http.StatusOK, adminConfigView(s.engine.Config()))
}

// handleAdminFixOpenMatches auto-drafts and finalizes every live match,
// for clearing abandoned game nights.
func (s *Server) handleAdminFixOpenMatches(w http.ResponseWriter, r *http.Request) {
	fixed := s.engine.FixOpenMatches(r.Context())
	if fixed == nil {
		fixed = []string{}
	}
	s.log.Infof("Force-finalized %d open matches", len(fixed))
	respondJSON(w, http.StatusOK, map[string][]string{"fixed": fixed})
}
