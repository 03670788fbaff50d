package srv

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"golang.org/x/text/language"

	"shiritori.exe.dev/config"
	"shiritori.exe.dev/db"
	"shiritori.exe.dev/game"
	"shiritori.exe.dev/wordbank"
)

const (
	saveTimeout     = 5 * time.Second
	shutdownTimeout = 10 * time.Second
)

// Server holds shared state for the HTTP/WebSocket server.
type Server struct {
	DB      *sql.DB
	Tables  *TableManager
	Results ResultStore
	Logger  *slog.Logger

	// Scheduler drives countdowns and opponent deliberation.
	Scheduler game.Scheduler
	TimeUnit  time.Duration

	cfg         config.Config
	defaultLang language.Tag
	engines     map[language.Tag]*game.Engine
}

// New creates a Server. Results go to SQLite at cfg.DBPath unless the
// configuration asks for the in-memory archive.
func New(cfg config.Config, bank *wordbank.Bank, logger *slog.Logger) (*Server, error) {
	if logger == nil {
		logger = slog.Default()
	}
	srv := &Server{
		Tables:      NewTableManager(logger),
		Logger:      logger,
		Scheduler:   game.SystemScheduler{},
		TimeUnit:    cfg.TimeUnit,
		cfg:         cfg,
		defaultLang: game.MatchLanguage(cfg.Language),
		engines:     make(map[language.Tag]*game.Engine),
	}
	for _, tag := range game.Languages() {
		srv.engines[tag] = game.NewEngine(
			game.WithBank(bank),
			game.WithBudget(cfg.TurnBudget),
			game.WithLanguage(tag),
			game.WithLogger(logger),
		)
	}
	if cfg.MemoryResults() {
		srv.Results = NewMemoryResults()
		return srv, nil
	}
	if err := srv.setUpDatabase(cfg.DBPath); err != nil {
		return nil, err
	}
	srv.Results = NewSQLResults(srv.DB)
	return srv, nil
}

// setUpDatabase initializes the database connection and runs migrations.
func (s *Server) setUpDatabase(dbPath string) error {
	wdb, err := db.Open(dbPath)
	if err != nil {
		return fmt.Errorf("failed to open db: %w", err)
	}
	s.DB = wdb
	if err := db.RunMigrations(wdb); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	return nil
}

// engineFor returns the engine that speaks tag.
func (s *Server) engineFor(tag language.Tag) *game.Engine {
	if e, ok := s.engines[tag]; ok {
		return e
	}
	return s.engines[s.defaultLang]
}

// requestLanguage picks the message language from ?lang=, then
// Accept-Language, then the configured default.
func (s *Server) requestLanguage(r *http.Request) language.Tag {
	return game.MatchLanguage(r.URL.Query().Get("lang"), r.Header.Get("Accept-Language"), s.defaultLang.String())
}

// HandleHealth reports that the server is up.
func (s *Server) HandleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status": "ok",
		"tables": s.Tables.Len(),
	})
}

// HandleListTables returns a summary of every active table.
func (s *Server) HandleListTables(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"tables": s.Tables.List(r.Context())})
}

// Handler returns the server's routes.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /ws", s.HandleWS)
	mux.HandleFunc("GET /api/results", s.HandleListResults)
	mux.HandleFunc("GET /api/results/{id}", s.HandleGetResult)
	mux.HandleFunc("GET /api/tables", s.HandleListTables)
	mux.HandleFunc("GET /healthz", s.HandleHealth)
	return mux
}

// Serve listens on addr until ctx is cancelled, then shuts down gracefully.
func (s *Server) Serve(ctx context.Context, addr string) error {
	s.Tables.StartCleanup(s.cfg.CleanupInterval, s.cfg.TableIdleTimeout)
	defer s.Tables.StopCleanup()

	hs := &http.Server{Addr: addr, Handler: s.Handler()}
	errc := make(chan error, 1)
	go func() {
		s.Logger.Info("starting server", "addr", addr)
		errc <- hs.ListenAndServe()
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}

	s.Logger.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	// Tables first, so open websockets see their table close.
	s.Tables.CloseAll()
	if err := hs.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	if err := <-errc; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Close releases the server's tables and database.
func (s *Server) Close() error {
	s.Tables.StopCleanup()
	s.Tables.CloseAll()
	if s.DB != nil {
		return s.DB.Close()
	}
	return nil
}
