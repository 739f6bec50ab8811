package web

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"unicode/utf8"

	"github.com/go-chi/chi/v5"

	"github.com/edvart/arena-inhouse/internal/engine"
)

// botNames are the fixed identities the dev seed endpoint registers.
var botNames = []string{"BOT1", "BOT2", "BOT3", "BOT4", "BOT5"}

// statusByErr maps engine error codes to HTTP statuses. Anything not
// listed here is a 500.
var statusByErr = []struct {
	err    error
	status int
}{
	{engine.ErrUserNotFound, http.StatusNotFound},
	{engine.ErrMatchNotFound, http.StatusNotFound},
	{engine.ErrUserNotInMatch, http.StatusNotFound},

	{engine.ErrAlreadyQueued, http.StatusConflict},
	{engine.ErrAlreadyInMatch, http.StatusConflict},
	{engine.ErrAlreadyFinalized, http.StatusConflict},
	{engine.ErrDuplicateBet, http.StatusConflict},
	{engine.ErrChampionTaken, http.StatusConflict},
	{engine.ErrNotInDraft, http.StatusConflict},
	{engine.ErrNotYourTurn, http.StatusConflict},
	{engine.ErrNotInProgress, http.StatusConflict},
	{engine.ErrBetWindowClosed, http.StatusConflict},

	{engine.ErrInvalidChampion, http.StatusBadRequest},
	{engine.ErrInvalidRound, http.StatusBadRequest},
	{engine.ErrInvalidTeam, http.StatusBadRequest},
	{engine.ErrInvalidWinner, http.StatusBadRequest},
	{engine.ErrInvalidConfig, http.StatusBadRequest},
}

type apiError struct {
	Error string `json:"error"`
}

func respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// respondError translates an engine error into its wire code. The code
// is the sentinel's message, so clients can match on it directly.
func (s *Server) respondError(w http.ResponseWriter, err error) {
	for _, m := range statusByErr {
		if errors.Is(err, m.err) {
			respondJSON(w, m.status, apiError{Error: m.err.Error()})
			return
		}
	}
	s.log.Errorf("Unhandled API error: %v", err)
	respondJSON(w, http.StatusInternalServerError, apiError{Error: "internal_error"})
}

func decodeJSON(r *http.Request, v any) error {
	return json.NewDecoder(r.Body).Decode(v)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

type userResponse struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

func (s *Server) handleUpsertUser(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name string `json:"name"`
	}
	if err := decodeJSON(r, &req); err != nil {
		respondJSON(w, http.StatusBadRequest, apiError{Error: "invalid_request"})
		return
	}
	name := strings.TrimSpace(req.Name)
	if n := utf8.RuneCountInString(name); n < 2 || n > 32 {
		respondJSON(w, http.StatusBadRequest, apiError{Error: "invalid_name"})
		return
	}
	user, created, err := s.store.UpsertUserByName(r.Context(), name)
	if err != nil {
		s.respondError(w, err)
		return
	}
	if created {
		s.log.Infof("Registered player %s", user.Name)
	}
	respondJSON(w, http.StatusOK, userResponse{ID: user.ID, Name: user.Name})
}

func (s *Server) handleListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := s.store.ListUsers(r.Context())
	if err != nil {
		s.respondError(w, err)
		return
	}
	out := make([]userResponse, 0, len(users))
	for _, u := range users {
		out = append(out, userResponse{ID: u.ID, Name: u.Name})
	}
	respondJSON(w, http.StatusOK, out)
}

type profileResponse struct {
	User  userResponse `json:"user"`
	Stats struct {
		Played        int     `json:"played"`
		Wins          int     `json:"wins"`
		Losses        int     `json:"losses"`
		CurrentStreak int     `json:"current_streak"`
		MaxStreak     int     `json:"max_streak"`
		StreaksBroken int     `json:"streaks_broken"`
		CorrectBets   int     `json:"correct_bets"`
		Score         float64 `json:"score"`
	} `json:"stats"`
	Champions []championStatsResponse `json:"champions"`
}

type championStatsResponse struct {
	Champion      string `json:"champion"`
	Played        int    `json:"played"`
	Wins          int    `json:"wins"`
	StreaksBroken int    `json:"streaks_broken"`
}

func (s *Server) handleProfile(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")
	user, err := s.store.GetUser(r.Context(), userID)
	if err != nil {
		s.respondError(w, err)
		return
	}
	if user == nil {
		s.respondError(w, engine.ErrUserNotFound)
		return
	}
	stats, err := s.store.GetPlayerStats(r.Context(), userID)
	if err != nil {
		s.respondError(w, err)
		return
	}
	champs, err := s.store.GetChampionStats(r.Context(), userID)
	if err != nil {
		s.respondError(w, err)
		return
	}

	resp := profileResponse{
		User:      userResponse{ID: user.ID, Name: user.Name},
		Champions: make([]championStatsResponse, 0, len(champs)),
	}
	resp.Stats.Played = stats.Played
	resp.Stats.Wins = stats.Wins
	resp.Stats.Losses = stats.Losses
	resp.Stats.CurrentStreak = stats.CurrentStreak
	resp.Stats.MaxStreak = stats.MaxStreak
	resp.Stats.StreaksBroken = stats.StreaksBroken
	resp.Stats.CorrectBets = stats.CorrectBets
	resp.Stats.Score = stats.Score
	for _, c := range champs {
		resp.Champions = append(resp.Champions, championStatsResponse{
			Champion:      c.Champion,
			Played:        c.Played,
			Wins:          c.Wins,
			StreaksBroken: c.StreaksBroken,
		})
	}
	respondJSON(w, http.StatusOK, resp)
}

func (s *Server) handleSeedBots(w http.ResponseWriter, r *http.Request) {
	created := 0
	for _, name := range botNames {
		_, isNew, err := s.store.UpsertUserByName(r.Context(), name)
		if err != nil {
			s.respondError(w, err)
			return
		}
		if isNew {
			created++
		}
	}
	total, err := s.store.CountUsers(r.Context())
	if err != nil {
		s.respondError(w, err)
		return
	}
	s.log.Infof("Seeded test bots, %d new", created)
	respondJSON(w, http.StatusOK, map[string]int{"created": created, "total": total})
}

type queueRequest struct {
	UserID string `json:"user_id"`
}

func (s *Server) handleQueueEnter(w http.ResponseWriter, r *http.Request) {
	var req queueRequest
	if err := decodeJSON(r, &req); err != nil {
		respondJSON(w, http.StatusBadRequest, apiError{Error: "invalid_request"})
		return
	}
	status, err := s.engine.Enter(r.Context(), req.UserID)
	if err != nil {
		s.respondError(w, err)
		return
	}
	s.metrics.QueuePlayers.Set(float64(status.Count))
	if status.MatchID != "" {
		s.metrics.MatchesCreated.Inc()
	}
	respondJSON(w, http.StatusOK, status)
}

func (s *Server) handleQueueLeave(w http.ResponseWriter, r *http.Request) {
	var req queueRequest
	if err := decodeJSON(r, &req); err != nil {
		respondJSON(w, http.StatusBadRequest, apiError{Error: "invalid_request"})
		return
	}
	status := s.engine.Leave(req.UserID)
	s.metrics.QueuePlayers.Set(float64(status.Count))
	respondJSON(w, http.StatusOK, status)
}

func (s *Server) handleQueueStatus(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, s.engine.QueueStatusFor(r.URL.Query().Get("user_id")))
}

func (s *Server) handleQueueMembers(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, s.engine.QueueMembers())
}

func (s *Server) handleListMatches(w http.ResponseWriter, r *http.Request) {
	viewer := r.URL.Query().Get("user_id")
	status := engine.Status(r.URL.Query().Get("status"))
	matches, err := s.engine.ListMatches(r.Context(), viewer, status)
	if err != nil {
		s.respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, matches)
}

func (s *Server) handleGetMatch(w http.ResponseWriter, r *http.Request) {
	matchID := chi.URLParam(r, "matchID")
	viewer := r.URL.Query().Get("user_id")
	view, err := s.engine.GetMatch(r.Context(), matchID, viewer)
	if err != nil {
		s.respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, view)
}

func (s *Server) handleFinalize(w http.ResponseWriter, r *http.Request) {
	var req struct {
		MatchID    string `json:"match_id"`
		WinnerTeam int    `json:"winner_team"`
	}
	if err := decodeJSON(r, &req); err != nil {
		respondJSON(w, http.StatusBadRequest, apiError{Error: "invalid_request"})
		return
	}
	view, err := s.engine.Finalize(r.Context(), req.MatchID, req.WinnerTeam)
	if err != nil {
		s.respondError(w, err)
		return
	}
	s.metrics.MatchesFinalized.Inc()
	s.log.Infof("Match %s finalized, team %d wins", view.DisplayID, req.WinnerTeam)
	respondJSON(w, http.StatusOK, view)
}

func (s *Server) handleDraftPick(w http.ResponseWriter, r *http.Request) {
	var req struct {
		MatchID    string `json:"match_id"`
		UserID     string `json:"user_id"`
		ChampionID string `json:"champion_id"`
	}
	if err := decodeJSON(r, &req); err != nil {
		respondJSON(w, http.StatusBadRequest, apiError{Error: "invalid_request"})
		return
	}
	view, err := s.engine.Pick(r.Context(), req.MatchID, req.UserID, req.ChampionID)
	if err != nil {
		s.respondError(w, err)
		return
	}
	s.metrics.DraftPicks.Inc()
	respondJSON(w, http.StatusOK, view)
}

func (s *Server) handleDraftAutoCurrent(w http.ResponseWriter, r *http.Request) {
	view, err := s.engine.AutoPickCurrent(r.Context(), r.URL.Query().Get("match_id"))
	if err != nil {
		s.respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, view)
}

func (s *Server) handlePlaceBet(w http.ResponseWriter, r *http.Request) {
	var req struct {
		MatchID string `json:"match_id"`
		UserID  string `json:"user_id"`
		Team    int    `json:"team"`
	}
	if err := decodeJSON(r, &req); err != nil {
		respondJSON(w, http.StatusBadRequest, apiError{Error: "invalid_request"})
		return
	}
	if err := s.engine.PlaceBet(r.Context(), req.MatchID, req.UserID, req.Team); err != nil {
		s.respondError(w, err)
		return
	}
	s.metrics.BetsPlaced.Inc()
	respondJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

func (s *Server) handleBetsCount(w http.ResponseWriter, r *http.Request) {
	team1, team2, err := s.engine.BetCounts(r.Context(), r.URL.Query().Get("match_id"))
	if err != nil {
		s.respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]int{"team1": team1, "team2": team2})
}

type leaderboardRow struct {
	UserID string  `json:"user_id"`
	Name   string  `json:"name"`
	Score  float64 `json:"score"`
	Wins   int     `json:"wins"`
	Losses int     `json:"losses"`
	Played int     `json:"played"`
}

func (s *Server) handleLeaderboard(w http.ResponseWriter, r *http.Request) {
	rows, err := s.store.Leaderboard(r.Context())
	if err != nil {
		s.respondError(w, err)
		return
	}
	out := make([]leaderboardRow, 0, len(rows))
	for _, row := range rows {
		out = append(out, leaderboardRow{
			UserID: row.UserID,
			Name:   row.Name,
			Score:  row.Score,
			Wins:   row.Wins,
			Losses: row.Losses,
			Played: row.Played,
		})
	}
	respondJSON(w, http.StatusOK, out)
}

func (s *Server) handleSSE(w http.ResponseWriter, r *http.Request) {
	s.sse.HandleConnection(w, r)
}
