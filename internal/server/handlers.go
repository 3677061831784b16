package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/KasraH/fpl-combos/pkg/catalog"
	"github.com/KasraH/fpl-combos/pkg/fetch"
	"github.com/KasraH/fpl-combos/pkg/fpl"
	"github.com/KasraH/fpl-combos/pkg/league"
	"github.com/KasraH/fpl-combos/pkg/query"
	"github.com/KasraH/fpl-combos/pkg/roster"
	"github.com/KasraH/fpl-combos/pkg/store"
)

const maxBodyBytes = 1 << 20

// flexibleID accepts a JSON number or a numeric string.
type flexibleID struct {
	value int64
	set   bool
	err   error
}

func (f *flexibleID) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		return nil
	}
	f.set = true
	raw := string(b)
	if s, err := strconv.Unquote(raw); err == nil {
		raw = strings.TrimSpace(s)
		if raw == "" {
			f.set = false
			return nil
		}
	}
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		f.err = err
		return nil
	}
	f.value = v
	return nil
}

type loadLeagueRequest struct {
	LeagueID flexibleID `json:"league_id"`
	Gameweek int        `json:"gameweek,omitempty"`
	Profile  string     `json:"profile,omitempty"`
	Refresh  bool       `json:"refresh,omitempty"`
}

type loadLeagueResponse struct {
	Success bool `json:"success"`
	*league.LoadResult
	Warning string `json:"warning,omitempty"`
}

type searchRequest struct {
	Query string `json:"query"`
	Limit int    `json:"limit,omitempty"`
}

type searchResponse struct {
	Players []catalog.Item `json:"players"`
}

type analyzeRequest struct {
	PlayerNames []string `json:"player_names"`
}

type analyzeResponse struct {
	Success bool `json:"success"`
	*league.Analysis
}

type cacheFile struct {
	LeagueID      roster.GroupID `json:"league_id"`
	Gameweek      roster.Version `json:"gameweek"`
	ManagerCount  int            `json:"manager_count"`
	CachedAt      time.Time      `json:"cached_at"`
	TotalManagers int            `json:"total_managers"`
	LeagueName    string         `json:"league_name,omitempty"`
}

type cacheInfoResponse struct {
	CacheFiles []cacheFile `json:"cache_files"`
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleLoadLeague(w http.ResponseWriter, r *http.Request) {
	var req loadLeagueRequest
	if err := decodeBody(r, &req); err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	switch {
	case !req.LeagueID.set:
		s.writeError(w, http.StatusBadRequest, "League ID is required")
		return
	case req.LeagueID.err != nil:
		s.writeError(w, http.StatusBadRequest, "League ID must be a number")
		return
	case req.LeagueID.value <= 0:
		s.writeError(w, http.StatusBadRequest, "League ID must be positive")
		return
	}

	opts := league.LoadOptions{Version: roster.Version(req.Gameweek), Refresh: req.Refresh}
	if req.Profile != "" {
		p, err := fetch.ProfileByName(req.Profile)
		if err != nil {
			s.writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		opts.Profile = &p
	}

	// Loads run to completion even if the client disconnects.
	ctx := context.WithoutCancel(r.Context())
	res, err := s.svc.LoadLeague(ctx, roster.GroupID(req.LeagueID.value), opts)
	if err != nil {
		if res != nil && errors.Is(err, store.ErrCacheWrite) {
			s.logger.Warn().Err(err).Int64("group_id", req.LeagueID.value).Msg("League loaded but not persisted")
			s.writeJSON(w, http.StatusOK, loadLeagueResponse{
				Success:    true,
				LoadResult: res,
				Warning:    "League loaded but could not be saved to the cache",
			})
			return
		}
		status, msg := loadErrorStatus(err)
		s.logger.Error().Err(err).Int64("group_id", req.LeagueID.value).Msg("League load failed")
		s.writeError(w, status, msg)
		return
	}

	s.writeJSON(w, http.StatusOK, loadLeagueResponse{Success: true, LoadResult: res})
}

func loadErrorStatus(err error) (int, string) {
	var apiErr *fpl.APIError
	switch {
	case errors.As(err, &apiErr) && apiErr.Class == fpl.ErrorClassClient:
		return http.StatusBadRequest, "Failed to load league data. Please check the league ID."
	case errors.Is(err, fetch.ErrFetchRunFailed):
		return http.StatusBadGateway, fmt.Sprintf("Error fetching manager squads: %v", err)
	default:
		return http.StatusInternalServerError, fmt.Sprintf("An error occurred: %v", err)
	}
}

func (s *Server) handleSearchPlayers(w http.ResponseWriter, r *http.Request) {
	var req searchRequest
	if err := decodeBody(r, &req); err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if strings.TrimSpace(req.Query) == "" {
		s.writeJSON(w, http.StatusOK, searchResponse{Players: []catalog.Item{}})
		return
	}

	items, err := s.svc.SearchItems(r.Context(), req.Query, req.Limit)
	if err != nil {
		s.logger.Error().Err(err).Msg("Player search failed")
		s.writeError(w, http.StatusInternalServerError, "Failed to initialize player data")
		return
	}
	if items == nil {
		items = []catalog.Item{}
	}
	s.writeJSON(w, http.StatusOK, searchResponse{Players: items})
}

func (s *Server) handleAnalyzeCombination(w http.ResponseWriter, r *http.Request) {
	var req analyzeRequest
	if err := decodeBody(r, &req); err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	names := make([]string, 0, len(req.PlayerNames))
	for _, n := range req.PlayerNames {
		if n = strings.TrimSpace(n); n != "" {
			names = append(names, n)
		}
	}

	a, err := s.svc.AnalyzeCombination(r.Context(), names)
	if err != nil {
		var notFound *query.ItemNotFoundError
		switch {
		case errors.Is(err, query.ErrNoItems):
			s.writeError(w, http.StatusBadRequest, "At least one player name is required")
		case errors.Is(err, league.ErrNoLeagueLoaded):
			s.writeError(w, http.StatusBadRequest, "No league data loaded. Please load a league first.")
		case errors.As(err, &notFound):
			s.writeError(w, http.StatusBadRequest,
				fmt.Sprintf("Player '%s' not found. Try using the exact name from the search suggestions.", notFound.Name))
		default:
			s.logger.Error().Err(err).Msg("Combination analysis failed")
			s.writeError(w, http.StatusInternalServerError, fmt.Sprintf("An error occurred: %v", err))
		}
		return
	}

	s.writeJSON(w, http.StatusOK, analyzeResponse{Success: true, Analysis: a})
}

func (s *Server) handleLeagueInfo(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, s.svc.LeagueInfo())
}

func (s *Server) handleCacheInfo(w http.ResponseWriter, _ *http.Request) {
	metas, err := s.svc.CacheInfo()
	if err != nil {
		s.logger.Error().Err(err).Msg("Listing cache failed")
		s.writeError(w, http.StatusInternalServerError, fmt.Sprintf("An error occurred: %v", err))
		return
	}

	files := make([]cacheFile, 0, len(metas))
	for _, m := range metas {
		files = append(files, cacheFile{
			LeagueID:      m.GroupID,
			Gameweek:      m.Version,
			ManagerCount:  m.EntityCount,
			CachedAt:      m.CreatedAt,
			TotalManagers: m.TotalMembers,
			LeagueName:    m.GroupName,
		})
	}
	s.writeJSON(w, http.StatusOK, cacheInfoResponse{CacheFiles: files})
}

func decodeBody(r *http.Request, dst any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return errors.New("request body is required")
		}
		return fmt.Errorf("invalid JSON body: %w", err)
	}
	return nil
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.logger.Debug().Err(err).Msg("Failed to write response")
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, map[string]string{"error": message})
}
