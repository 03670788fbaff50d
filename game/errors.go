package game

import (
	"errors"
	"fmt"
)

// Code identifies a rejection reason.
type Code string

const (
	CodeEmptyInput          Code = "empty_input"
	CodeInvalidCharacterSet Code = "invalid_character_set"
	CodeDuplicateWord       Code = "duplicate_word"
	CodeChainMismatch       Code = "chain_mismatch"
	CodeIncompleteSetup     Code = "incomplete_setup"
	CodeNotPlaying          Code = "not_playing"
	CodeOpponentTurn        Code = "opponent_turn"
	CodeUnknownMode         Code = "unknown_mode"
	CodeUnknownDifficulty   Code = "unknown_difficulty"
	CodeGameInProgress      Code = "game_in_progress"
)

// Error is a rejected setup or submission. The session is left unchanged
// and the same participant may try again.
type Error struct {
	Code Code
	// Char is the character a word had to start with, for CodeChainMismatch.
	Char rune
}

func (e *Error) Error() string {
	if e.Char != 0 {
		return fmt.Sprintf("%s: must start with %q", e.Code, string(e.Char))
	}
	return string(e.Code)
}

// Is matches any *Error with the same code, so errors.Is works against the
// sentinels below regardless of Char.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Code == e.Code
}

var (
	ErrEmptyInput          = &Error{Code: CodeEmptyInput}
	ErrInvalidCharacterSet = &Error{Code: CodeInvalidCharacterSet}
	ErrDuplicateWord       = &Error{Code: CodeDuplicateWord}
	ErrChainMismatch       = &Error{Code: CodeChainMismatch}
	ErrIncompleteSetup     = &Error{Code: CodeIncompleteSetup}
	ErrNotPlaying          = &Error{Code: CodeNotPlaying}
	ErrOpponentTurn        = &Error{Code: CodeOpponentTurn}
	ErrUnknownMode         = &Error{Code: CodeUnknownMode}
	ErrUnknownDifficulty   = &Error{Code: CodeUnknownDifficulty}
	ErrGameInProgress      = &Error{Code: CodeGameInProgress}
)

// CodeOf returns err's code, or "" when err is not an *Error.
func CodeOf(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}
