// Package strategy picks the computer opponent's words.
//
// Every difficulty implements Strategist. They share one candidate search
// over the word bank and differ in how they open the game and how they
// choose among the surviving candidates.
package strategy

import (
	"fmt"
	"math/rand/v2"
	"strings"
	"time"

	"shiritori.exe.dev/wordbank"
)

// Difficulty is the opponent's skill tier.
type Difficulty string

const (
	Easy   Difficulty = "easy"
	Medium Difficulty = "medium"
	Hard   Difficulty = "hard"
	Expert Difficulty = "expert"
)

// Difficulties lists every tier from weakest to strongest.
var Difficulties = []Difficulty{Easy, Medium, Hard, Expert}

// ParseDifficulty parses a tier name, case-insensitively.
func ParseDifficulty(s string) (Difficulty, error) {
	d := Difficulty(strings.ToLower(strings.TrimSpace(s)))
	if !d.Valid() {
		return "", fmt.Errorf("unknown difficulty %q", s)
	}
	return d, nil
}

// Valid reports whether d is a known tier.
func (d Difficulty) Valid() bool {
	switch d {
	case Easy, Medium, Hard, Expert:
		return true
	}
	return false
}

func (d Difficulty) String() string {
	return string(d)
}

// Used reports whether a word has already been played this game.
type Used interface {
	Contains(word string) bool
}

// Strategist selects the opponent's next word.
type Strategist interface {
	// SelectWord returns the next word to play after lastWord. An empty
	// lastWord means the opponent opens the game. ok is false when no legal
	// word remains, which loses the game for the opponent.
	SelectWord(lastWord string, used Used) (word string, ok bool)
	Difficulty() Difficulty
}

// New returns the Strategist for d. A nil rng is replaced by a time-seeded one.
func New(d Difficulty, bank *wordbank.Bank, rng *rand.Rand) (Strategist, error) {
	if bank == nil {
		bank = wordbank.Default()
	}
	if rng == nil {
		seed := uint64(time.Now().UnixNano())
		rng = rand.New(rand.NewPCG(seed, seed>>1))
	}
	s := search{bank: bank, rng: rng}
	switch d {
	case Easy:
		return &easy{s}, nil
	case Medium:
		return &medium{s}, nil
	case Hard:
		return &hard{s}, nil
	case Expert:
		return &expert{s}, nil
	}
	return nil, fmt.Errorf("unknown difficulty %q", d)
}

type noneUsed struct{}

func (noneUsed) Contains(string) bool { return false }
