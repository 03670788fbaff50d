package game

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"shiritori.exe.dev/strategy"
)

// ErrTableClosed is returned by Table operations after Close.
var ErrTableClosed = errors.New("table closed")

// EventKind names what changed on a table.
type EventKind string

const (
	EventStarted  EventKind = "started"
	EventRejected EventKind = "rejected"
	EventAccepted EventKind = "accepted"
	EventTick     EventKind = "tick"
	EventThinking EventKind = "thinking"
	EventGameOver EventKind = "game_over"
	EventReset    EventKind = "reset"
)

// Change is delivered to a table's Listener after each state change.
type Change struct {
	Kind    EventKind
	Session Session
	// Reply is set for EventAccepted and EventRejected.
	Reply Reply
	// Result is set for EventGameOver.
	Result *GameResult
}

// Listener observes table changes. It runs on the table's goroutine and must
// not call back into the table.
type Listener func(Change)

// TableOption configures a Table.
type TableOption func(*Table)

// WithScheduler replaces the system scheduler, mainly for tests.
func WithScheduler(s Scheduler) TableOption {
	return func(t *Table) { t.sched = s }
}

// WithTimeUnit sets the length of one countdown tick.
func WithTimeUnit(d time.Duration) TableOption {
	return func(t *Table) {
		if d > 0 {
			t.unit = d
		}
	}
}

// WithListener sets the table's change listener.
func WithListener(l Listener) TableOption {
	return func(t *Table) { t.listener = l }
}

// WithTableLogger sets the table's logger.
func WithTableLogger(l *slog.Logger) TableOption {
	return func(t *Table) { t.logger = l }
}

// Table runs one session on a single goroutine. Submissions, countdown ticks
// and the opponent's deliberation are all serialized through Run, so the
// session is never touched by two events at once.
type Table struct {
	ID string

	engine   *Engine
	sched    Scheduler
	unit     time.Duration
	listener Listener
	logger   *slog.Logger

	events    chan func()
	done      chan struct{}
	stopped   chan struct{}
	closeOnce sync.Once
	running   atomic.Bool

	lastActive atomic.Int64

	// Owned by the Run goroutine.
	session   Session
	countdown *Countdown
	think     Handle
	thinkGen  uint64
}

// NewTable creates a table in the setup phase. Call Run to start it.
func NewTable(id string, engine *Engine, opts ...TableOption) *Table {
	t := &Table{
		ID:       id,
		engine:   engine,
		sched:    SystemScheduler{},
		unit:     time.Second,
		listener: func(Change) {},
		logger:   slog.Default(),
		events:   make(chan func(), 16),
		done:     make(chan struct{}),
		stopped:  make(chan struct{}),
		session:  Session{Phase: PhaseSetup},
	}
	for _, opt := range opts {
		opt(t)
	}
	t.countdown = NewCountdown(t.sched, t.unit, func(gen uint64) {
		t.post(func() { t.tick(gen) })
	})
	t.touch()
	return t
}

// Run processes events until ctx is cancelled or the table is closed. All
// pending callbacks are cancelled before it returns.
func (t *Table) Run(ctx context.Context) {
	t.running.Store(true)
	defer close(t.stopped)
	defer t.cancelTimers()
	defer t.closeOnce.Do(func() { close(t.done) })
	for {
		select {
		case <-t.done:
			return
		default:
		}
		select {
		case <-ctx.Done():
			return
		case <-t.done:
			return
		case fn := <-t.events:
			fn()
		}
	}
}

// Close stops the table and waits for Run to return.
func (t *Table) Close() {
	t.closeOnce.Do(func() { close(t.done) })
	if t.running.Load() {
		<-t.stopped
	}
}

// Done is closed once the table has stopped running.
func (t *Table) Done() <-chan struct{} {
	return t.stopped
}

// LastActive returns the time of the last player action.
func (t *Table) LastActive() time.Time {
	return time.Unix(0, t.lastActive.Load())
}

// Start begins a new session, abandoning any session in progress.
func (t *Table) Start(ctx context.Context, mode Mode, names []string, difficulty strategy.Difficulty) (Session, error) {
	var (
		s   Session
		err error
	)
	doErr := t.do(ctx, func() {
		t.touch()
		s, err = t.engine.Start(mode, names, difficulty)
		if err != nil {
			return
		}
		t.cancelThinking()
		t.commit(s, Change{Kind: EventStarted})
		t.settle(true)
		s = t.session
	})
	if doErr != nil {
		return Session{}, doErr
	}
	return s, err
}

// Submit plays a word for the human holding the turn. A ctx error means the
// word was never queued; once queued, Submit waits for the reply.
func (t *Table) Submit(ctx context.Context, word string) (Reply, error) {
	var reply Reply
	err := t.do(ctx, func() {
		t.touch()
		var next Session
		next, reply = t.engine.Submit(t.session, word)
		if !reply.Accepted {
			t.emit(Change{Kind: EventRejected, Session: t.session, Reply: reply})
			return
		}
		t.commit(next, Change{Kind: EventAccepted, Reply: reply})
		t.settle(true)
	})
	return reply, err
}

// PlayAgain restarts the game with the same participants.
func (t *Table) PlayAgain(ctx context.Context) (Session, error) {
	var (
		s   Session
		err error
	)
	doErr := t.do(ctx, func() {
		t.touch()
		s, err = t.engine.PlayAgain(t.session)
		if err != nil {
			return
		}
		t.cancelThinking()
		t.commit(s, Change{Kind: EventStarted})
		t.settle(true)
		s = t.session
	})
	if doErr != nil {
		return Session{}, doErr
	}
	return s, err
}

// Reset abandons the session and returns to setup.
func (t *Table) Reset(ctx context.Context) error {
	return t.do(ctx, func() {
		t.touch()
		t.cancelThinking()
		t.countdown.Stop()
		t.session = t.engine.Reset(t.session)
		t.emit(Change{Kind: EventReset, Session: t.session})
	})
}

// Snapshot returns the current session.
func (t *Table) Snapshot(ctx context.Context) (Session, error) {
	var s Session
	err := t.do(ctx, func() { s = t.session })
	return s, err
}

// do runs fn on the table goroutine and waits for it to finish. ctx only
// bounds the wait to queue fn: once queued, fn will run, so do waits for it
// and never reports a ctx error for an applied event.
func (t *Table) do(ctx context.Context, fn func()) error {
	ran := make(chan struct{})
	select {
	case t.events <- func() { fn(); close(ran) }:
	case <-t.done:
		return ErrTableClosed
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case <-ran:
		return nil
	case <-t.done:
		return ErrTableClosed
	}
}

// post queues fn from a scheduler callback. It is dropped once the table
// is closed.
func (t *Table) post(fn func()) {
	select {
	case t.events <- fn:
	case <-t.done:
	}
}

func (t *Table) touch() {
	t.lastActive.Store(time.Now().UnixNano())
}

func (t *Table) tick(gen uint64) {
	if !t.countdown.Current(gen) {
		return
	}
	next := t.engine.Tick(t.session)
	if next.Phase == PhasePlaying {
		t.session = next
		t.emit(Change{Kind: EventTick, Session: next})
		t.countdown.Continue(gen)
		return
	}
	t.logger.Info("turn timed out", "table", t.ID, "sessionId", next.ID)
	t.commit(next, Change{Kind: EventTick})
	t.settle(false)
}

func (t *Table) opponent(gen uint64) {
	if gen != t.thinkGen || !t.session.Thinking {
		return
	}
	t.think = nil
	next, reply := t.engine.OpponentMove(t.session)
	if reply.Err != nil {
		t.logger.Error("opponent move failed", "table", t.ID, "error", reply.Err)
		return
	}
	t.commit(next, Change{Kind: EventAccepted, Reply: reply})
	t.settle(true)
}

// commit installs next and notifies the listener, followed by a game-over
// change when next ends the session.
func (t *Table) commit(next Session, c Change) {
	ended := t.session.Phase == PhasePlaying && next.Phase == PhaseGameOver
	t.session = next
	if c.Kind != EventAccepted || c.Reply.Accepted {
		c.Session = next
		t.emit(c)
	}
	if !ended {
		return
	}
	if res, ok := t.engine.End(next); ok {
		t.emit(Change{Kind: EventGameOver, Session: next, Result: &res})
	}
}

// settle brings the scheduled callbacks in line with the session: the
// countdown runs only on a human's running turn, and the opponent deliberates
// only on its own turn with no deliberation already pending.
func (t *Table) settle(restart bool) {
	s := t.session
	if s.Phase != PhasePlaying || !s.Running || s.TurnHolder().Computer {
		t.countdown.Stop()
	} else if restart || !t.countdown.Armed() {
		t.countdown.Restart()
	}

	if s.Phase != PhasePlaying {
		t.cancelThinking()
		return
	}
	if s.ComputerTurn() && !s.Thinking {
		t.deliberate()
	}
}

func (t *Table) deliberate() {
	t.session = t.engine.BeginThinking(t.session)
	t.thinkGen++
	gen := t.thinkGen
	delay := time.Duration(t.engine.ThinkUnits() * float64(t.unit))
	t.think = t.sched.AfterFunc(delay, func() {
		t.post(func() { t.opponent(gen) })
	})
	t.emit(Change{Kind: EventThinking, Session: t.session})
}

func (t *Table) cancelThinking() {
	if t.think != nil {
		t.think.Stop()
		t.think = nil
	}
	t.thinkGen++
}

func (t *Table) cancelTimers() {
	t.countdown.Stop()
	t.cancelThinking()
}

func (t *Table) emit(c Change) {
	t.listener(c)
}
