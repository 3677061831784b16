// Package testutil provides an in-process stand-in for the provider API.
package testutil

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"
	"time"

	"github.com/KasraH/fpl-combos/pkg/roster"
)

// MockResponse defines a canned response for one path.
type MockResponse struct {
	StatusCode int
	Body       string
	Headers    map[string]string
	Delay      time.Duration
}

type mockLeague struct {
	name     string
	members  []roster.Member
	pageSize int
}

// MockFPL is a configurable provider server. Leagues and rosters are
// registered up front; per-path overrides and failure injection take
// precedence over the registered data.
type MockFPL struct {
	server *httptest.Server

	mu        sync.RWMutex
	handlers  map[string]http.HandlerFunc
	failures  map[string][]int
	leagues   map[roster.GroupID]mockLeague
	rosters   map[string]string
	bootstrap string
	requests  map[string]int

	RequestCount      int
	LastRequestHeader http.Header
}

// NewMockFPL starts the server. Callers must Close it.
func NewMockFPL() *MockFPL {
	mock := &MockFPL{
		handlers: make(map[string]http.HandlerFunc),
		failures: make(map[string][]int),
		leagues:  make(map[roster.GroupID]mockLeague),
		rosters:  make(map[string]string),
		requests: make(map[string]int),
	}

	mock.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mock.mu.Lock()
		mock.RequestCount++
		mock.requests[r.URL.Path]++
		mock.LastRequestHeader = r.Header.Clone()

		var injected int
		if queue := mock.failures[r.URL.Path]; len(queue) > 0 {
			injected = queue[0]
			mock.failures[r.URL.Path] = queue[1:]
		}
		handler, exists := mock.handlers[r.URL.Path]
		mock.mu.Unlock()

		if injected != 0 {
			w.WriteHeader(injected)
			return
		}
		if exists {
			handler(w, r)
			return
		}
		mock.defaultHandler(w, r)
	}))

	return mock
}

// URL returns the server root, suitable as a client base URL.
func (m *MockFPL) URL() string {
	return m.server.URL
}

// Close shuts down the server.
func (m *MockFPL) Close() {
	m.server.Close()
}

// SetHandler overrides a single path.
func (m *MockFPL) SetHandler(path string, handler http.HandlerFunc) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.handlers[path] = handler
}

// SetResponse serves a fixed response for a path.
func (m *MockFPL) SetResponse(path string, resp MockResponse) {
	m.SetHandler(path, func(w http.ResponseWriter, r *http.Request) {
		if resp.Delay > 0 {
			select {
			case <-r.Context().Done():
				return
			case <-time.After(resp.Delay):
			}
		}
		for key, value := range resp.Headers {
			w.Header().Set(key, value)
		}
		w.WriteHeader(resp.StatusCode)
		if resp.Body != "" {
			_, _ = w.Write([]byte(resp.Body))
		}
	})
}

// FailNext makes the next len(statuses) requests to path answer with the
// given status codes, in order, before normal handling resumes.
func (m *MockFPL) FailNext(path string, statuses ...int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failures[path] = append(m.failures[path], statuses...)
}

// SetBootstrap sets the bootstrap-static body.
func (m *MockFPL) SetBootstrap(body string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.bootstrap = body
}

// SetLeague registers a league whose standings are served pageSize rows per page.
func (m *MockFPL) SetLeague(groupID roster.GroupID, name string, members []roster.Member, pageSize int) {
	if pageSize <= 0 {
		pageSize = 50
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.leagues[groupID] = mockLeague{name: name, members: members, pageSize: pageSize}
}

// SetRoster registers a squad payload for a member and gameweek.
func (m *MockFPL) SetRoster(memberID roster.MemberID, version roster.Version, r roster.Roster) {
	body, err := json.Marshal(r)
	if err != nil {
		panic(err)
	}
	m.SetRosterBody(memberID, version, string(body))
}

// SetRosterBody registers a raw squad body, for malformed payload cases.
func (m *MockFPL) SetRosterBody(memberID roster.MemberID, version roster.Version, body string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rosters[RosterPath(memberID, version)] = body
}

// RosterPath returns the squad endpoint path.
func RosterPath(memberID roster.MemberID, version roster.Version) string {
	return fmt.Sprintf("/entry/%d/event/%d/picks/", memberID, version)
}

// StandingsPath returns the standings endpoint path.
func StandingsPath(groupID roster.GroupID) string {
	return fmt.Sprintf("/leagues-classic/%d/standings/", groupID)
}

// GetRequestCount returns the total number of requests served.
func (m *MockFPL) GetRequestCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.RequestCount
}

// PathCount returns the number of requests seen for one path.
func (m *MockFPL) PathCount(path string) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.requests[path]
}

func (m *MockFPL) defaultHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")

	m.mu.RLock()
	bootstrap := m.bootstrap
	body, isRoster := m.rosters[r.URL.Path]
	leagues := m.leagues
	m.mu.RUnlock()

	if r.URL.Path == "/bootstrap-static/" && bootstrap != "" {
		_, _ = w.Write([]byte(bootstrap))
		return
	}
	if isRoster {
		_, _ = w.Write([]byte(body))
		return
	}

	var groupID int64
	if _, err := fmt.Sscanf(r.URL.Path, "/leagues-classic/%d/standings/", &groupID); err == nil {
		m.mu.RLock()
		league, ok := leagues[roster.GroupID(groupID)]
		m.mu.RUnlock()
		if ok {
			writeStandings(w, r, roster.GroupID(groupID), league)
			return
		}
	}

	w.WriteHeader(http.StatusNotFound)
	_, _ = w.Write([]byte(`{"detail":"Not found."}`))
}

func writeStandings(w http.ResponseWriter, r *http.Request, groupID roster.GroupID, league mockLeague) {
	page, err := strconv.Atoi(r.URL.Query().Get("page_standings"))
	if err != nil || page < 1 {
		page = 1
	}

	start := (page - 1) * league.pageSize
	end := start + league.pageSize
	if start > len(league.members) {
		start = len(league.members)
	}
	if end > len(league.members) {
		end = len(league.members)
	}

	payload := map[string]any{
		"league": map[string]any{"id": groupID, "name": league.name},
		"standings": map[string]any{
			"has_next": end < len(league.members),
			"page":     page,
			"results":  league.members[start:end],
		},
	}
	_ = json.NewEncoder(w).Encode(payload)
}

// NewHealthyResponse creates a 200 response with a JSON body.
func NewHealthyResponse(data string) MockResponse {
	return MockResponse{
		StatusCode: http.StatusOK,
		Body:       data,
		Headers: map[string]string{
			"Cache-Control": "max-age=300",
			"Content-Type":  "application/json; charset=utf-8",
		},
	}
}

// NewRateLimitResponse creates a 429 response.
func NewRateLimitResponse() MockResponse {
	return MockResponse{
		StatusCode: http.StatusTooManyRequests,
		Body:       `{"error": "Rate limit exceeded"}`,
	}
}

// NewServerErrorResponse creates a 500 response.
func NewServerErrorResponse() MockResponse {
	return MockResponse{
		StatusCode: http.StatusInternalServerError,
		Body:       `{"error": "Internal server error"}`,
	}
}
