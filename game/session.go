package game

import (
	"fmt"
	"maps"
	"slices"
	"strings"
	"time"

	"shiritori.exe.dev/kana"
	"shiritori.exe.dev/strategy"
)

// Mode selects who plays against whom.
type Mode string

const (
	HumanVsHuman    Mode = "human-vs-human"
	HumanVsComputer Mode = "human-vs-computer"
)

// ParseMode parses a mode name.
func ParseMode(s string) (Mode, error) {
	switch m := Mode(strings.ToLower(strings.TrimSpace(s))); m {
	case HumanVsHuman, HumanVsComputer:
		return m, nil
	}
	return "", &Error{Code: CodeUnknownMode}
}

// Phase is the session's top-level state.
type Phase string

const (
	PhaseSetup    Phase = "setup"
	PhasePlaying  Phase = "playing"
	PhaseGameOver Phase = "game_over"
)

// Reason explains why a session ended.
type Reason string

const (
	ReasonTerminalWord Reason = "terminal_word" // the loser played a word ending in ん
	ReasonNoLegalMove  Reason = "no_legal_move" // the computer found no word
	ReasonTimeUp       Reason = "time_up"       // the loser's countdown reached zero
)

// Participant is one seat at the table.
type Participant struct {
	Name     string `json:"name"`
	Computer bool   `json:"computer,omitempty"`
}

// WordEntry records a word played in the game.
type WordEntry struct {
	Word   string    `json:"word"`
	Player string    `json:"player"`
	Seat   int       `json:"seat"`
	Time   time.Time `json:"time"`
}

// Outcome is the terminal result of a session. Seats index Participants.
type Outcome struct {
	Winner int    `json:"winner"`
	Loser  int    `json:"loser"`
	Reason Reason `json:"reason"`
}

// UsedWordSet holds the literal words played so far. It is insertion-only;
// With returns a new set and leaves the receiver untouched.
type UsedWordSet struct {
	words map[string]struct{}
}

// Contains reports whether word was already played, comparing exact strings.
func (u UsedWordSet) Contains(word string) bool {
	_, ok := u.words[word]
	return ok
}

// Len returns the number of words in the set.
func (u UsedWordSet) Len() int {
	return len(u.words)
}

// With returns a copy of u that also holds word.
func (u UsedWordSet) With(word string) UsedWordSet {
	words := make(map[string]struct{}, len(u.words)+1)
	maps.Copy(words, u.words)
	words[word] = struct{}{}
	return UsedWordSet{words: words}
}

// Words returns the played words in sorted order.
func (u UsedWordSet) Words() []string {
	return slices.Sorted(maps.Keys(u.words))
}

// Session is the whole state of one game. Engine operations take a Session
// and return the next one; a Session is never mutated in place.
type Session struct {
	ID           string
	Mode         Mode
	Difficulty   strategy.Difficulty
	Participants []Participant
	Phase        Phase
	Turn         int
	LastWord     string
	Used         UsedWordSet
	History      []WordEntry
	TimeLeft     int
	Running      bool
	Thinking     bool
	Outcome      *Outcome
}

// TurnHolder returns the participant expected to play next.
func (s Session) TurnHolder() Participant {
	if s.Turn < 0 || s.Turn >= len(s.Participants) {
		return Participant{}
	}
	return s.Participants[s.Turn]
}

// ComputerTurn reports whether the computer holds the turn of a running game.
func (s Session) ComputerTurn() bool {
	return s.Phase == PhasePlaying && s.TurnHolder().Computer
}

// NextChar returns the character the next word must chain from, or 0 before
// the first word.
func (s Session) NextChar() rune {
	if s.LastWord == "" {
		return 0
	}
	return kana.Normalize(kana.LastChar(s.LastWord))
}

// Winner returns the winning participant's name, or "" while undecided.
func (s Session) Winner() string {
	if s.Outcome == nil {
		return ""
	}
	return s.Participants[s.Outcome.Winner].Name
}

// Names returns the participant names in seat order.
func (s Session) Names() []string {
	names := make([]string, len(s.Participants))
	for i, p := range s.Participants {
		names[i] = p.Name
	}
	return names
}

// WordCount returns how many words seat has played.
func (s Session) WordCount(seat int) int {
	n := 0
	for _, h := range s.History {
		if h.Seat == seat {
			n++
		}
	}
	return n
}

func (s Session) other(seat int) int {
	return (seat + 1) % len(s.Participants)
}

func (s Session) String() string {
	return fmt.Sprintf("session %s (%s, %s, turn=%d, words=%d)", s.ID, s.Mode, s.Phase, s.Turn, len(s.History))
}
