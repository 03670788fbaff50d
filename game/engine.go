// Package game is the shiritori turn engine: session setup, word
// submission, the opponent's moves, the countdown, and game results.
package game

import (
	"log/slog"
	"math/rand/v2"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/text/language"

	"shiritori.exe.dev/kana"
	"shiritori.exe.dev/strategy"
	"shiritori.exe.dev/wordbank"
)

// DefaultBudget is the number of time units a human has to play a word.
const DefaultBudget = 30

// Engine applies the rules to sessions. It holds no per-session state and is
// safe for concurrent use across sessions.
type Engine struct {
	bank        *wordbank.Bank
	budget      int
	rng         *rand.Rand
	now         func() time.Time
	newID       func() string
	msgs        *Messages
	logger      *slog.Logger
	strategists map[strategy.Difficulty]strategy.Strategist
}

// Option configures an Engine.
type Option func(*Engine)

// WithBank sets the opponent's word bank.
func WithBank(b *wordbank.Bank) Option {
	return func(e *Engine) { e.bank = b }
}

// WithBudget sets the per-turn countdown budget.
func WithBudget(units int) Option {
	return func(e *Engine) {
		if units > 0 {
			e.budget = units
		}
	}
}

// WithRandSource seeds the engine's randomness.
func WithRandSource(src rand.Source) Option {
	return func(e *Engine) { e.rng = rand.New(&lockedSource{src: src}) }
}

// WithClock sets the clock used for history timestamps.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// WithIDs sets the session ID generator.
func WithIDs(newID func() string) Option {
	return func(e *Engine) { e.newID = newID }
}

// WithLanguage sets the language of reply messages.
func WithLanguage(tag language.Tag) Option {
	return func(e *Engine) { e.msgs = NewMessages(tag) }
}

// WithLogger sets the engine's logger.
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) { e.logger = l }
}

// NewEngine creates an Engine with the embedded word bank and a 30-unit budget.
func NewEngine(opts ...Option) *Engine {
	seed := uint64(time.Now().UnixNano())
	e := &Engine{
		bank:   wordbank.Default(),
		budget: DefaultBudget,
		rng:    rand.New(&lockedSource{src: rand.NewPCG(seed, seed>>1)}),
		now:    time.Now,
		newID:  uuid.NewString,
		msgs:   NewMessages(language.Japanese),
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	e.strategists = make(map[strategy.Difficulty]strategy.Strategist, len(strategy.Difficulties))
	for _, d := range strategy.Difficulties {
		s, err := strategy.New(d, e.bank, e.rng)
		if err != nil {
			panic(err)
		}
		e.strategists[d] = s
	}
	return e
}

// Budget returns the per-turn countdown budget.
func (e *Engine) Budget() int {
	return e.budget
}

// Messages returns the engine's message renderer.
func (e *Engine) Messages() *Messages {
	return e.msgs
}

// Reply is the outcome of a submission.
type Reply struct {
	Accepted bool
	// Word is the accepted word, after trimming.
	Word string
	// Err is the rejection, nil when Accepted.
	Err error
	// Message is the user-facing text for the reply.
	Message string
}

// Start opens a session. Human-vs-human needs two names; human-vs-computer
// needs the player's name and a difficulty.
func (e *Engine) Start(mode Mode, names []string, difficulty strategy.Difficulty) (Session, error) {
	trimmed := make([]string, 0, len(names))
	for _, n := range names {
		trimmed = append(trimmed, strings.TrimSpace(n))
	}

	var participants []Participant
	switch mode {
	case HumanVsHuman:
		if len(trimmed) < 2 || trimmed[0] == "" || trimmed[1] == "" {
			return Session{}, ErrIncompleteSetup
		}
		participants = []Participant{{Name: trimmed[0]}, {Name: trimmed[1]}}
		difficulty = ""
	case HumanVsComputer:
		if len(trimmed) < 1 || trimmed[0] == "" {
			return Session{}, ErrIncompleteSetup
		}
		if !difficulty.Valid() {
			return Session{}, ErrUnknownDifficulty
		}
		participants = []Participant{{Name: trimmed[0]}, {Name: e.msgs.ComputerName(), Computer: true}}
	default:
		return Session{}, ErrUnknownMode
	}

	s := e.open(mode, participants, difficulty)
	e.logger.Info("session started", "sessionId", s.ID, "mode", mode, "players", s.Names(), "difficulty", difficulty)
	return s, nil
}

func (e *Engine) open(mode Mode, participants []Participant, difficulty strategy.Difficulty) Session {
	return Session{
		ID:           e.newID(),
		Mode:         mode,
		Difficulty:   difficulty,
		Participants: participants,
		Phase:        PhasePlaying,
		Turn:         0,
		History:      []WordEntry{},
		TimeLeft:     e.budget,
		Running:      true,
	}
}

// Submit validates a word from the human holding the turn and applies it.
// A rejected word leaves the session unchanged.
func (e *Engine) Submit(s Session, raw string) (Session, Reply) {
	if err := e.check(s, raw); err != nil {
		return s, Reply{Err: err, Message: e.msgs.Error(err)}
	}
	word := strings.TrimSpace(raw)
	next := e.apply(s, word)
	return next, Reply{Accepted: true, Word: word, Message: e.msgs.Status(next)}
}

// check returns the reason raw cannot be played now, or nil.
func (e *Engine) check(s Session, raw string) error {
	if s.Phase != PhasePlaying {
		return ErrNotPlaying
	}
	if s.TurnHolder().Computer || s.Thinking {
		return ErrOpponentTurn
	}
	word := strings.TrimSpace(raw)
	if word == "" {
		return ErrEmptyInput
	}
	if !kana.IsValidInput(word) {
		return ErrInvalidCharacterSet
	}
	if s.Used.Contains(word) {
		return ErrDuplicateWord
	}
	if s.LastWord != "" {
		last := kana.LastChar(s.LastWord)
		if !kana.Match(last, kana.FirstChar(word)) {
			return &Error{Code: CodeChainMismatch, Char: kana.Normalize(last)}
		}
	}
	return nil
}

// apply records an accepted word and hands the turn over, or ends the game
// when the word ends with ん.
func (e *Engine) apply(s Session, word string) Session {
	player := s.TurnHolder()
	s.Used = s.Used.With(word)
	s.LastWord = word
	s.History = append(slices.Clip(s.History), WordEntry{
		Word:   word,
		Player: player.Name,
		Seat:   s.Turn,
		Time:   e.now(),
	})
	e.logger.Debug("word accepted", "sessionId", s.ID, "player", player.Name, "word", word)

	if kana.EndsWithTerminal(word) {
		return e.finish(s, Outcome{Winner: s.other(s.Turn), Loser: s.Turn, Reason: ReasonTerminalWord})
	}

	s.Turn = s.other(s.Turn)
	s.TimeLeft = e.budget
	s.Running = !s.TurnHolder().Computer
	s.Thinking = false
	return s
}

func (e *Engine) finish(s Session, o Outcome) Session {
	s.Phase = PhaseGameOver
	s.Outcome = &o
	s.Running = false
	s.Thinking = false
	e.logger.Info("game over",
		"sessionId", s.ID,
		"winner", s.Participants[o.Winner].Name,
		"reason", o.Reason,
		"words", len(s.History),
	)
	return s
}

// BeginThinking marks the computer's deliberation as in flight.
func (e *Engine) BeginThinking(s Session) Session {
	if !s.ComputerTurn() {
		return s
	}
	s.Thinking = true
	s.Running = false
	return s
}

// ThinkUnits returns a random deliberation delay between one and two time units.
func (e *Engine) ThinkUnits() float64 {
	return 1 + e.rng.Float64()
}

// OpponentMove plays the computer's turn. The selected word is trusted and
// applied without validation. When no word is available the human wins.
func (e *Engine) OpponentMove(s Session) (Session, Reply) {
	if !s.ComputerTurn() {
		return s, Reply{Err: ErrNotPlaying, Message: e.msgs.Error(ErrNotPlaying)}
	}
	strat, ok := e.strategists[s.Difficulty]
	if !ok {
		return s, Reply{Err: ErrUnknownDifficulty, Message: e.msgs.Error(ErrUnknownDifficulty)}
	}

	word, ok := strat.SelectWord(s.LastWord, s.Used)
	if !ok {
		next := e.finish(s, Outcome{Winner: s.other(s.Turn), Loser: s.Turn, Reason: ReasonNoLegalMove})
		return next, Reply{Message: e.msgs.Status(next)}
	}
	e.logger.Debug("opponent selected word", "sessionId", s.ID, "difficulty", s.Difficulty, "word", word)
	next := e.apply(s, word)
	return next, Reply{Accepted: true, Word: word, Message: e.msgs.Status(next)}
}

// Tick advances the countdown by one time unit. When it reaches zero the
// turn holder loses.
func (e *Engine) Tick(s Session) Session {
	if s.Phase != PhasePlaying || !s.Running || s.TurnHolder().Computer {
		return s
	}
	s.TimeLeft--
	if s.TimeLeft > 0 {
		return s
	}
	s.TimeLeft = 0
	return e.finish(s, Outcome{Winner: s.other(s.Turn), Loser: s.Turn, Reason: ReasonTimeUp})
}

// PlayAgain starts a fresh game with the same participants, mode and
// difficulty. Only a finished game can be played again.
func (e *Engine) PlayAgain(s Session) (Session, error) {
	switch {
	case s.Phase == PhasePlaying:
		return s, ErrGameInProgress
	case s.Phase != PhaseGameOver || len(s.Participants) == 0:
		return s, ErrNotPlaying
	}
	participants := slices.Clone(s.Participants)
	next := e.open(s.Mode, participants, s.Difficulty)
	e.logger.Info("session restarted", "sessionId", next.ID, "previous", s.ID, "mode", s.Mode)
	return next, nil
}

// Reset discards the session and returns to setup.
func (e *Engine) Reset(Session) Session {
	return Session{Phase: PhaseSetup}
}

// lockedSource serializes a rand.Source shared by concurrent sessions.
type lockedSource struct {
	mu  sync.Mutex
	src rand.Source
}

func (l *lockedSource) Uint64() uint64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.src.Uint64()
}
