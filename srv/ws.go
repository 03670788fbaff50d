package srv

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"shiritori.exe.dev/game"
	"shiritori.exe.dev/strategy"
)

const (
	sendBuffer   = 64
	writeTimeout = 5 * time.Second
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow all origins for development
	},
}

// WSMessage is the envelope for client messages.
type WSMessage struct {
	Type       string   `json:"type"`
	Mode       string   `json:"mode,omitempty"`
	Names      []string `json:"names,omitempty"`
	Difficulty string   `json:"difficulty,omitempty"`
	Word       string   `json:"word,omitempty"`
}

// SessionView is the client's picture of a session.
type SessionView struct {
	ID           string              `json:"id,omitempty"`
	Mode         game.Mode           `json:"mode,omitempty"`
	Difficulty   strategy.Difficulty `json:"difficulty,omitempty"`
	Phase        game.Phase          `json:"phase"`
	Participants []game.Participant  `json:"participants"`
	Turn         int                 `json:"turn"`
	CurrentTurn  string              `json:"currentTurn,omitempty"`
	LastWord     string              `json:"lastWord,omitempty"`
	NextChar     string              `json:"nextChar,omitempty"`
	UsedWords    []string            `json:"usedWords"`
	History      []game.WordEntry    `json:"history"`
	TimeLeft     int                 `json:"timeLeft"`
	Running      bool                `json:"running"`
	Thinking     bool                `json:"thinking"`
	Outcome      *game.Outcome       `json:"outcome,omitempty"`
	Winner       string              `json:"winner,omitempty"`
	Message      string              `json:"message"`
}

func newSessionView(s game.Session, msgs *game.Messages) SessionView {
	v := SessionView{
		ID:           s.ID,
		Mode:         s.Mode,
		Difficulty:   s.Difficulty,
		Phase:        s.Phase,
		Participants: s.Participants,
		Turn:         s.Turn,
		LastWord:     s.LastWord,
		UsedWords:    s.Used.Words(),
		History:      s.History,
		TimeLeft:     s.TimeLeft,
		Running:      s.Running,
		Thinking:     s.Thinking,
		Outcome:      s.Outcome,
		Winner:       s.Winner(),
		Message:      msgs.Status(s),
	}
	if v.Participants == nil {
		v.Participants = []game.Participant{}
	}
	if v.History == nil {
		v.History = []game.WordEntry{}
	}
	if v.UsedWords == nil {
		v.UsedWords = []string{}
	}
	if s.Phase == game.PhasePlaying {
		v.CurrentTurn = s.TurnHolder().Name
	}
	if r := s.NextChar(); r != 0 {
		v.NextChar = string(r)
	}
	return v
}

// mustMarshal marshals v to JSON or panics.
func mustMarshal(v any) []byte {
	b, err := json.Marshal(v)
	if err != nil {
		panic(fmt.Sprintf("json marshal: %v", err))
	}
	return b
}

// client is the outbound side of one connection.
type client struct {
	mu     sync.Mutex
	send   chan []byte
	closed bool
}

// push queues a message, dropping it if the client is slow or gone.
func (c *client) push(v any) {
	data := mustMarshal(v)
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	select {
	case c.send <- data:
	default:
		// drop if channel full
	}
}

func (c *client) close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.closed {
		c.closed = true
		close(c.send)
	}
}

// HandleWS handles WebSocket connections. Each connection owns one table,
// which is closed when the connection ends.
func (s *Server) HandleWS(w http.ResponseWriter, r *http.Request) {
	lang := s.requestLanguage(r)
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.Logger.Error("websocket upgrade", "error", err)
		return
	}

	engine := s.engineFor(lang)
	msgs := engine.Messages()
	c := &client{send: make(chan []byte, sendBuffer)}
	id := uuid.NewString()
	logger := s.Logger.With("table", id)

	table := game.NewTable(id, engine,
		game.WithScheduler(s.Scheduler),
		game.WithTimeUnit(s.TimeUnit),
		game.WithTableLogger(logger),
		game.WithListener(s.listener(c, msgs)),
	)
	s.Tables.Add(table, lang)
	ctx, cancel := context.WithCancel(context.Background())
	go table.Run(ctx)

	writerDone := make(chan struct{})
	go func() {
		defer close(writerDone)
		writePump(conn, c)
	}()
	go func() {
		select {
		case <-table.Done():
			// Closed by the idle sweep or shutdown.
			deadline := time.Now().Add(writeTimeout)
			conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseGoingAway, "table closed"), deadline)
			conn.Close()
		case <-writerDone:
		}
	}()

	logger.Info("table opened", "language", lang.String())
	defer func() {
		cancel()
		s.Tables.Remove(id)
		c.close()
		<-writerDone
		conn.Close()
		logger.Info("table closed")
	}()

	c.push(map[string]any{
		"type":     "session_state",
		"tableId":  id,
		"language": lang.String(),
		"session":  newSessionView(game.Session{Phase: game.PhaseSetup}, msgs),
	})

	limiter := NewConnectionRateLimiter()
	for {
		var msg WSMessage
		if err := conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				logger.Warn("websocket read", "error", err)
			}
			return
		}

		allowed, disconnect := limiter.Allow(msg.Type)
		if disconnect {
			logger.Warn("rate limit exceeded, disconnecting", "type", msg.Type)
			return
		}
		if !allowed {
			c.push(map[string]any{"type": "error", "code": "rate_limited", "message": "rate limited"})
			continue
		}

		if err := s.dispatch(ctx, table, c, msgs, msg); err != nil {
			if errors.Is(err, game.ErrTableClosed) || errors.Is(err, context.Canceled) {
				return
			}
			logger.Error("handle message", "type", msg.Type, "error", err)
		}
	}
}

// dispatch applies one client message to the table. State changes reach
// the client through the table listener; dispatch only reports failures the
// listener does not see.
func (s *Server) dispatch(ctx context.Context, table *game.Table, c *client, msgs *game.Messages, msg WSMessage) error {
	sendErr := func(err error) {
		c.push(map[string]any{
			"type":    "error",
			"code":    game.CodeOf(err),
			"message": msgs.Error(err),
		})
	}

	switch msg.Type {
	case "start":
		mode, err := game.ParseMode(msg.Mode)
		if err != nil {
			sendErr(err)
			return nil
		}
		var difficulty strategy.Difficulty
		if mode == game.HumanVsComputer {
			difficulty, err = strategy.ParseDifficulty(msg.Difficulty)
			if err != nil {
				sendErr(game.ErrUnknownDifficulty)
				return nil
			}
		}
		if _, err := table.Start(ctx, mode, msg.Names, difficulty); err != nil {
			if game.CodeOf(err) == "" {
				return err
			}
			sendErr(err)
		}

	case "answer":
		if _, err := table.Submit(ctx, msg.Word); err != nil {
			return err
		}

	case "play_again":
		if _, err := table.PlayAgain(ctx); err != nil {
			if game.CodeOf(err) == "" {
				return err
			}
			sendErr(err)
		}

	case "reset":
		return table.Reset(ctx)

	case "ping":
		c.push(map[string]any{"type": "pong"})

	default:
		c.push(map[string]any{
			"type":    "error",
			"code":    "unknown_message",
			"message": fmt.Sprintf("unknown message type %q", strings.TrimSpace(msg.Type)),
		})
	}
	return nil
}

// listener turns table changes into server messages for c.
func (s *Server) listener(c *client, msgs *game.Messages) game.Listener {
	return func(ch game.Change) {
		switch ch.Kind {
		case game.EventStarted, game.EventReset:
			c.push(map[string]any{
				"type":    "session_state",
				"session": newSessionView(ch.Session, msgs),
			})

		case game.EventRejected:
			c.push(map[string]any{
				"type":    "answer_rejected",
				"code":    game.CodeOf(ch.Reply.Err),
				"message": ch.Reply.Message,
			})

		case game.EventAccepted:
			last := ch.Session.History[len(ch.Session.History)-1]
			c.push(map[string]any{
				"type":    "word_accepted",
				"word":    ch.Reply.Word,
				"player":  last.Player,
				"seat":    last.Seat,
				"session": newSessionView(ch.Session, msgs),
			})

		case game.EventTick:
			c.push(map[string]any{
				"type":     "tick",
				"timeLeft": ch.Session.TimeLeft,
			})

		case game.EventThinking:
			c.push(map[string]any{
				"type":    "opponent_thinking",
				"message": msgs.Status(ch.Session),
			})

		case game.EventGameOver:
			if ch.Result == nil {
				return
			}
			s.saveResult(*ch.Result)
			c.push(map[string]any{
				"type":    "game_over",
				"result":  ch.Result,
				"message": msgs.Status(ch.Session),
				"session": newSessionView(ch.Session, msgs),
			})

		default:
			slog.Warn("unhandled table change", "kind", ch.Kind)
		}
	}
}

// writePump pumps messages from the client's send channel to the WebSocket.
func writePump(conn *websocket.Conn, c *client) {
	for msg := range c.send {
		conn.SetWriteDeadline(time.Now().Add(writeTimeout))
		if err := conn.WriteMessage(websocket.TextMessage, msg); err != nil {
			return
		}
	}
}
