package srv

import (
	"context"
	"log/slog"
	"sort"
	"sync"
	"time"

	"golang.org/x/text/language"

	"shiritori.exe.dev/game"
)

// snapshotTimeout bounds how long a listing waits on one busy table.
const snapshotTimeout = time.Second

// TableInfo is a summary of an active table for listing.
type TableInfo struct {
	ID         string    `json:"id"`
	Language   string    `json:"language"`
	Phase      string    `json:"phase"`
	Mode       string    `json:"mode,omitempty"`
	Difficulty string    `json:"difficulty,omitempty"`
	Players    []string  `json:"players"`
	Words      int       `json:"words"`
	CreatedAt  time.Time `json:"createdAt"`
	LastActive time.Time `json:"lastActive"`
}

type tableEntry struct {
	table     *game.Table
	lang      language.Tag
	createdAt time.Time
}

// TableManager tracks the tables of all connected players.
type TableManager struct {
	mu     sync.RWMutex
	tables map[string]*tableEntry
	logger *slog.Logger
	now    func() time.Time

	// done stops the cleanup goroutine.
	done     chan struct{}
	stopOnce sync.Once
}

// NewTableManager creates an empty TableManager.
func NewTableManager(logger *slog.Logger) *TableManager {
	return &TableManager{
		tables: make(map[string]*tableEntry),
		logger: logger,
		now:    time.Now,
		done:   make(chan struct{}),
	}
}

// Add registers a table.
func (tm *TableManager) Add(t *game.Table, lang language.Tag) {
	tm.mu.Lock()
	defer tm.mu.Unlock()
	tm.tables[t.ID] = &tableEntry{table: t, lang: lang, createdAt: tm.now()}
}

// Get returns a table by ID, or nil.
func (tm *TableManager) Get(id string) *game.Table {
	tm.mu.RLock()
	defer tm.mu.RUnlock()
	if e, ok := tm.tables[id]; ok {
		return e.table
	}
	return nil
}

// Len returns the number of active tables.
func (tm *TableManager) Len() int {
	tm.mu.RLock()
	defer tm.mu.RUnlock()
	return len(tm.tables)
}

// Remove closes a table and forgets it.
func (tm *TableManager) Remove(id string) {
	tm.mu.Lock()
	e, ok := tm.tables[id]
	delete(tm.tables, id)
	tm.mu.Unlock()
	if ok {
		e.table.Close()
	}
}

// List returns a summary of every table, oldest first.
func (tm *TableManager) List(ctx context.Context) []TableInfo {
	tm.mu.RLock()
	entries := make([]*tableEntry, 0, len(tm.tables))
	for _, e := range tm.tables {
		entries = append(entries, e)
	}
	tm.mu.RUnlock()

	list := make([]TableInfo, 0, len(entries))
	for _, e := range entries {
		sctx, cancel := context.WithTimeout(ctx, snapshotTimeout)
		s, err := e.table.Snapshot(sctx)
		cancel()
		if err != nil {
			continue
		}
		list = append(list, TableInfo{
			ID:         e.table.ID,
			Language:   e.lang.String(),
			Phase:      string(s.Phase),
			Mode:       string(s.Mode),
			Difficulty: string(s.Difficulty),
			Players:    s.Names(),
			Words:      len(s.History),
			CreatedAt:  e.createdAt,
			LastActive: e.table.LastActive(),
		})
	}
	sort.Slice(list, func(i, j int) bool {
		if list[i].CreatedAt.Equal(list[j].CreatedAt) {
			return list[i].ID < list[j].ID
		}
		return list[i].CreatedAt.Before(list[j].CreatedAt)
	})
	return list
}

// StartCleanup starts a background goroutine that periodically closes
// tables idle for longer than maxIdle.
func (tm *TableManager) StartCleanup(interval, maxIdle time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-tm.done:
				return
			case <-ticker.C:
				tm.cleanupIdleTables(maxIdle)
			}
		}
	}()
}

// StopCleanup stops the background cleanup goroutine.
func (tm *TableManager) StopCleanup() {
	tm.stopOnce.Do(func() { close(tm.done) })
}

// CloseAll closes every table.
func (tm *TableManager) CloseAll() {
	tm.mu.Lock()
	entries := tm.tables
	tm.tables = make(map[string]*tableEntry)
	tm.mu.Unlock()
	for _, e := range entries {
		e.table.Close()
	}
}

// cleanupIdleTables closes tables with no player action for longer than maxAge.
func (tm *TableManager) cleanupIdleTables(maxAge time.Duration) int {
	now := tm.now()
	var stale []*tableEntry
	tm.mu.Lock()
	for id, e := range tm.tables {
		if now.Sub(e.table.LastActive()) > maxAge {
			delete(tm.tables, id)
			stale = append(stale, e)
		}
	}
	tm.mu.Unlock()

	for _, e := range stale {
		e.table.Close()
		tm.logger.Info("table cleaned up (idle timeout)", "table", e.table.ID)
	}
	return len(stale)
}
