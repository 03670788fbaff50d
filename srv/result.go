package srv

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"slices"
	"strconv"
	"sync"

	"shiritori.exe.dev/db/dbgen"
	"shiritori.exe.dev/game"
	"shiritori.exe.dev/strategy"
)

const (
	defaultResultLimit = 20
	maxResultLimit     = 100
)

// ErrResultNotFound is returned when no result has the requested ID.
var ErrResultNotFound = errors.New("result not found")

// ResultStore archives finished games. Only completed sessions are saved.
type ResultStore interface {
	Save(ctx context.Context, r game.GameResult) error
	Get(ctx context.Context, id string) (game.GameResult, error)
	// List returns up to limit results, most recently ended first.
	List(ctx context.Context, limit int) ([]game.GameResult, error)
}

// MemoryResults keeps results for the life of the process.
type MemoryResults struct {
	mu      sync.RWMutex
	results []game.GameResult
}

// NewMemoryResults returns an empty in-memory archive.
func NewMemoryResults() *MemoryResults {
	return &MemoryResults{}
}

func (m *MemoryResults) Save(_ context.Context, r game.GameResult) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.results = append(m.results, r)
	return nil
}

func (m *MemoryResults) Get(_ context.Context, id string) (game.GameResult, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, r := range m.results {
		if r.ID == id {
			return r, nil
		}
	}
	return game.GameResult{}, ErrResultNotFound
}

func (m *MemoryResults) List(_ context.Context, limit int) ([]game.GameResult, error) {
	m.mu.RLock()
	out := slices.Clone(m.results)
	m.mu.RUnlock()

	slices.Reverse(out)
	slices.SortStableFunc(out, func(a, b game.GameResult) int {
		return b.EndedAt.Compare(a.EndedAt)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// SQLResults stores results in the game_results table.
type SQLResults struct {
	q *dbgen.Queries
}

// NewSQLResults returns an archive backed by sqlDB. The schema must already
// be migrated.
func NewSQLResults(sqlDB *sql.DB) *SQLResults {
	return &SQLResults{q: dbgen.New(sqlDB)}
}

func (s *SQLResults) Save(ctx context.Context, r game.GameResult) error {
	counts, err := json.Marshal(r.WordCounts)
	if err != nil {
		return fmt.Errorf("encode word counts: %w", err)
	}
	history, err := json.Marshal(r.History)
	if err != nil {
		return fmt.Errorf("encode history: %w", err)
	}
	err = s.q.InsertGameResult(ctx, dbgen.InsertGameResultParams{
		ID:             r.ID,
		SessionID:      r.SessionID,
		Mode:           string(r.Mode),
		Difficulty:     string(r.Difficulty),
		Winner:         r.Winner,
		Loser:          r.Loser,
		Reason:         string(r.Reason),
		TotalWords:     int64(r.TotalWords),
		WordCountsJson: string(counts),
		HistoryJson:    string(history),
		EndedAt:        r.EndedAt.UTC(),
	})
	if err != nil {
		return fmt.Errorf("insert result %s: %w", r.ID, err)
	}
	return nil
}

func (s *SQLResults) Get(ctx context.Context, id string) (game.GameResult, error) {
	row, err := s.q.GetGameResult(ctx, id)
	if errors.Is(err, sql.ErrNoRows) {
		return game.GameResult{}, ErrResultNotFound
	}
	if err != nil {
		return game.GameResult{}, fmt.Errorf("get result %s: %w", id, err)
	}
	return fromRow(row)
}

func (s *SQLResults) List(ctx context.Context, limit int) ([]game.GameResult, error) {
	if limit <= 0 {
		limit = maxResultLimit
	}
	rows, err := s.q.ListGameResults(ctx, int64(limit))
	if err != nil {
		return nil, fmt.Errorf("list results: %w", err)
	}
	out := make([]game.GameResult, 0, len(rows))
	for _, row := range rows {
		r, err := fromRow(row)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, nil
}

func fromRow(row dbgen.GameResult) (game.GameResult, error) {
	r := game.GameResult{
		ID:         row.ID,
		SessionID:  row.SessionID,
		Mode:       game.Mode(row.Mode),
		Difficulty: strategy.Difficulty(row.Difficulty),
		Winner:     row.Winner,
		Loser:      row.Loser,
		Reason:     game.Reason(row.Reason),
		TotalWords: int(row.TotalWords),
		EndedAt:    row.EndedAt,
	}
	if err := json.Unmarshal([]byte(row.WordCountsJson), &r.WordCounts); err != nil {
		return game.GameResult{}, fmt.Errorf("decode word counts of %s: %w", row.ID, err)
	}
	if err := json.Unmarshal([]byte(row.HistoryJson), &r.History); err != nil {
		return game.GameResult{}, fmt.Errorf("decode history of %s: %w", row.ID, err)
	}
	return r, nil
}

// HandleListResults returns archived results, newest first.
func (s *Server) HandleListResults(w http.ResponseWriter, r *http.Request) {
	limit := defaultResultLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			http.Error(w, "invalid limit", http.StatusBadRequest)
			return
		}
		limit = min(n, maxResultLimit)
	}
	results, err := s.Results.List(r.Context(), limit)
	if err != nil {
		s.Logger.Error("list results", "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	if results == nil {
		results = []game.GameResult{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"results": results})
}

// HandleGetResult returns one archived result.
func (s *Server) HandleGetResult(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	result, err := s.Results.Get(r.Context(), id)
	if errors.Is(err, ErrResultNotFound) {
		http.NotFound(w, r)
		return
	}
	if err != nil {
		s.Logger.Error("get result", "id", id, "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// saveResult archives a finished game. Failures are logged; the game itself
// is already over.
func (s *Server) saveResult(r game.GameResult) {
	ctx, cancel := context.WithTimeout(context.Background(), saveTimeout)
	defer cancel()
	if err := s.Results.Save(ctx, r); err != nil {
		s.Logger.Error("save result", "id", r.ID, "sessionId", r.SessionID, "error", err)
		return
	}
	s.Logger.Info("result saved", "id", r.ID, "winner", r.Winner, "reason", r.Reason, "words", r.TotalWords)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Warn("write json", "error", err)
	}
}
