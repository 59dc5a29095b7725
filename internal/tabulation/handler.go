// internal/tabulation/handler.go
package tabulation

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

type Handler struct {
	service *Service
	logger  *zap.Logger
}

func NewHandler(service *Service, logger *zap.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// Register mounts the tabulation routes on router.
func (h *Handler) Register(router *mux.Router) {
	games := router.PathPrefix("/api/games/{gameID:[0-9]+}").Subrouter()
	games.HandleFunc("/tally", h.GetTally).Methods(http.MethodGet)
	games.HandleFunc("/leaderboard", h.GetLeaderboard).Methods(http.MethodGet)
	games.HandleFunc("/tabulate", h.Tabulate).Methods(http.MethodPost, http.MethodOptions)
}

type tabulateRequest struct {
	Corrections map[string]map[string]string `json:"corrections"`
}

func (h *Handler) GetTally(w http.ResponseWriter, r *http.Request) {
	gameID, ok := gameIDFromPath(w, r)
	if !ok {
		return
	}
	refresh, _ := strconv.ParseBool(r.URL.Query().Get("refresh"))

	tally, err := h.service.AnswerTally(r.Context(), gameID, refresh)
	if err != nil {
		h.fail(w, gameID, err)
		return
	}
	writeJSON(w, http.StatusOK, tally)
}

func (h *Handler) GetLeaderboard(w http.ResponseWriter, r *http.Request) {
	gameID, ok := gameIDFromPath(w, r)
	if !ok {
		return
	}

	filter, err := parseFilter(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	page, err := h.service.FilteredLeaderboard(r.Context(), gameID, filter)
	if err != nil {
		h.fail(w, gameID, err)
		return
	}
	writeJSON(w, http.StatusOK, page)
}

func (h *Handler) Tabulate(w http.ResponseWriter, r *http.Request) {
	gameID, ok := gameIDFromPath(w, r)
	if !ok {
		return
	}

	var req tabulateRequest
	// An empty body tabulates with no corrections.
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	corrections, err := NewCorrectionMap(req.Corrections)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	result, err := h.service.Tabulate(r.Context(), gameID, corrections)
	if err != nil {
		h.fail(w, gameID, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (h *Handler) fail(w http.ResponseWriter, gameID uint, err error) {
	if errors.Is(err, ErrGameNotFound) {
		http.Error(w, "Game not found", http.StatusNotFound)
		return
	}
	h.logger.Error("Tabulation request failed", zap.Uint("game_id", gameID), zap.Error(err))
	http.Error(w, "Tabulation failed, please try again", http.StatusInternalServerError)
}

func gameIDFromPath(w http.ResponseWriter, r *http.Request) (uint, bool) {
	gameID, err := ParseID(mux.Vars(r)["gameID"])
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return 0, false
	}
	return gameID, true
}

func parseFilter(r *http.Request) (LeaderboardFilter, error) {
	q := r.URL.Query()
	filter := LeaderboardFilter{Search: q.Get("search")}

	if ids := q.Get("ids"); ids != "" {
		for _, part := range strings.Split(ids, ",") {
			id, err := ParseID(strings.TrimSpace(part))
			if err != nil {
				return filter, err
			}
			filter.PlayerIDs = append(filter.PlayerIDs, id)
		}
	}
	if team := q.Get("team"); team != "" {
		id, err := ParseID(team)
		if err != nil {
			return filter, err
		}
		filter.TeamID = id
	}
	if page := q.Get("page"); page != "" {
		n, err := strconv.Atoi(page)
		if err != nil || n < 1 {
			return filter, errors.New("invalid page " + strconv.Quote(page))
		}
		filter.Page = n
	}
	return filter, nil
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
