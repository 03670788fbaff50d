package game

import (
	"time"

	"shiritori.exe.dev/strategy"
)

// ParticipantCount is the number of words one participant played.
type ParticipantCount struct {
	Name  string `json:"name"`
	Words int    `json:"words"`
}

// GameResult is the archived summary of a finished session.
type GameResult struct {
	ID         string              `json:"id"`
	SessionID  string              `json:"sessionId"`
	Mode       Mode                `json:"mode"`
	Difficulty strategy.Difficulty `json:"difficulty,omitempty"`
	Winner     string              `json:"winner"`
	Loser      string              `json:"loser"`
	Reason     Reason              `json:"reason"`
	TotalWords int                 `json:"totalWords"`
	WordCounts []ParticipantCount  `json:"perParticipantWordCounts"`
	History    []WordEntry         `json:"history"`
	EndedAt    time.Time           `json:"endedAt"`
}

// End summarizes a finished session. ok is false while the session is
// still in progress.
func (e *Engine) End(s Session) (GameResult, bool) {
	if s.Phase != PhaseGameOver || s.Outcome == nil {
		return GameResult{}, false
	}
	counts := make([]ParticipantCount, len(s.Participants))
	for i, p := range s.Participants {
		counts[i] = ParticipantCount{Name: p.Name, Words: s.WordCount(i)}
	}
	history := make([]WordEntry, len(s.History))
	copy(history, s.History)
	return GameResult{
		ID:         e.newID(),
		SessionID:  s.ID,
		Mode:       s.Mode,
		Difficulty: s.Difficulty,
		Winner:     s.Participants[s.Outcome.Winner].Name,
		Loser:      s.Participants[s.Outcome.Loser].Name,
		Reason:     s.Outcome.Reason,
		TotalWords: len(s.History),
		WordCounts: counts,
		History:    history,
		EndedAt:    e.now(),
	}, true
}
