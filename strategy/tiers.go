package strategy

import (
	"cmp"
	"slices"

	"shiritori.exe.dev/kana"
)

const (
	hardTop       = 3
	hardTopProb   = 0.7
	mediumTop     = 5
	mediumTopProb = 0.4

	lengthWeight    = 10
	deadEndBonus    = 50
	narrowBonus     = 20
	narrowLimit     = 2
	terminalPenalty = 1000
)

// easy plays any legal word at random.
type easy struct{ search }

func (e *easy) Difficulty() Difficulty { return Easy }

func (e *easy) SelectWord(lastWord string, used Used) (string, bool) {
	if used == nil {
		used = noneUsed{}
	}
	var pool []string
	if lastWord == "" {
		pool = e.randomOpening(used)
	} else {
		pool = e.candidates(lastWord, used)
	}
	if len(pool) == 0 {
		return "", false
	}
	return e.pickAny(pool), true
}

// medium leans toward long words but often settles for a shorter one.
type medium struct{ search }

func (m *medium) Difficulty() Difficulty { return Medium }

func (m *medium) SelectWord(lastWord string, used Used) (string, bool) {
	if used == nil {
		used = noneUsed{}
	}
	var pool []string
	if lastWord == "" {
		pool = m.randomOpening(used)
	} else {
		pool = m.candidates(lastWord, used)
	}
	if len(pool) == 0 {
		return "", false
	}
	return m.pickLong(pool, mediumTop, mediumTopProb), true
}

// hard usually plays the longest word and opens from a well-stocked bucket.
type hard struct{ search }

func (h *hard) Difficulty() Difficulty { return Hard }

func (h *hard) SelectWord(lastWord string, used Used) (string, bool) {
	if used == nil {
		used = noneUsed{}
	}
	var pool []string
	if lastWord == "" {
		pool = h.opening(used)
	} else {
		pool = h.candidates(lastWord, used)
	}
	if len(pool) == 0 {
		return "", false
	}
	return h.pickLong(pool, hardTop, hardTopProb), true
}

// opening ranks buckets by playable word count and picks one of the top three.
func (h *hard) opening(used Used) []string {
	type bucket struct {
		words []string
	}
	var ranked []bucket
	for _, k := range h.openingKeys() {
		if words := h.playableIn(k, used); len(words) > 0 {
			ranked = append(ranked, bucket{words})
		}
	}
	if len(ranked) == 0 {
		return nil
	}
	slices.SortStableFunc(ranked, func(a, b bucket) int {
		return cmp.Compare(len(b.words), len(a.words))
	})
	return ranked[h.rng.IntN(min(hardTop, len(ranked)))].words
}

// expert scores every candidate and tries to leave the human without a reply.
type expert struct{ search }

func (x *expert) Difficulty() Difficulty { return Expert }

func (x *expert) SelectWord(lastWord string, used Used) (string, bool) {
	if used == nil {
		used = noneUsed{}
	}
	var pool []string
	if lastWord == "" {
		pool = x.opening(used)
	} else {
		pool = x.candidates(lastWord, used)
		if len(pool) == 0 {
			pool = x.lookahead(lastWord, used)
		}
	}
	if len(pool) == 0 {
		return "", false
	}

	best, bestScore := "", 0
	for i, w := range pool {
		if score := x.score(w, used); i == 0 || score > bestScore {
			best, bestScore = w, score
		}
	}
	return best, true
}

// score favors long words and words that strand the next player.
func (x *expert) score(w string, used Used) int {
	score := kana.Len(w) * lengthWeight
	if kana.EndsWithTerminal(w) {
		return score - terminalPenalty
	}
	switch n := x.continuations(w, used); {
	case n == 0:
		score += deadEndBonus
	case n <= narrowLimit:
		score += narrowBonus
	}
	return score
}

// opening picks the bucket with the highest length-weighted word count.
func (x *expert) opening(used Used) []string {
	var best []string
	bestWeight := 0
	for _, k := range x.openingKeys() {
		words := x.playableIn(k, used)
		weight := 0
		for _, w := range words {
			weight += 2 + kana.Len(w)
		}
		if weight > bestWeight {
			best, bestWeight = words, weight
		}
	}
	return best
}
