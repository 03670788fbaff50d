package strategy

import (
	"cmp"
	"math/rand/v2"
	"slices"

	"shiritori.exe.dev/kana"
	"shiritori.exe.dev/wordbank"
)

// search is the candidate lookup shared by all tiers.
type search struct {
	bank *wordbank.Bank
	rng  *rand.Rand
}

// playable reports whether w is unused and does not end the game for its player.
func playable(w string, used Used) bool {
	return !used.Contains(w) && !kana.EndsWithTerminal(w)
}

func (s search) playableIn(key rune, used Used) []string {
	var out []string
	for _, w := range s.bank.Words(key) {
		if playable(w, used) {
			out = append(out, w)
		}
	}
	return out
}

// openingKeys returns every bucket key except the terminal character.
func (s search) openingKeys() []rune {
	keys := s.bank.Keys()
	return slices.DeleteFunc(keys, func(k rune) bool { return k == kana.Terminal })
}

// candidates returns the pool of legal replies to lastWord. It tries the
// target character's bucket, then the literal last character's bucket, then
// the first matching bucket in bank order.
func (s search) candidates(lastWord string, used Used) []string {
	last := kana.Normalize(kana.LastChar(lastWord))
	target := kana.TargetCharacter(last)

	pool := s.playableIn(target, used)
	if len(pool) == 0 && target != last {
		pool = s.playableIn(last, used)
	}
	if len(pool) == 0 {
		for _, key := range s.bank.Keys() {
			if !kana.Match(last, key) {
				continue
			}
			if words := s.playableIn(key, used); len(words) > 0 {
				pool = words
				break
			}
		}
	}
	return legal(pool, last)
}

// lookahead scans every word of every bucket, regardless of its key, for a
// legal reply that leaves the next player at least one continuation. The
// first bucket holding such a word wins.
func (s search) lookahead(lastWord string, used Used) []string {
	last := kana.Normalize(kana.LastChar(lastWord))
	for _, key := range s.bank.Keys() {
		var pool []string
		for _, w := range s.bank.Words(key) {
			if !playable(w, used) || !kana.Match(last, kana.FirstChar(w)) {
				continue
			}
			if s.continuations(w, used) > 0 {
				pool = append(pool, w)
			}
		}
		if len(pool) > 0 {
			return pool
		}
	}
	return nil
}

// continuations counts the playable replies to w once w itself is used.
func (s search) continuations(w string, used Used) int {
	last := kana.LastChar(w)
	n := 0
	for _, key := range s.bank.Keys() {
		if !kana.Match(last, key) {
			continue
		}
		for _, c := range s.bank.Words(key) {
			if c != w && playable(c, used) && kana.Match(last, kana.FirstChar(c)) {
				n++
			}
		}
	}
	return n
}

// legal keeps the words whose first character chains from last.
func legal(pool []string, last rune) []string {
	out := pool[:0:0]
	for _, w := range pool {
		if kana.Match(last, kana.FirstChar(w)) {
			out = append(out, w)
		}
	}
	return out
}

// byLength returns a copy of pool ordered longest first. Ties keep bank order.
func byLength(pool []string) []string {
	sorted := slices.Clone(pool)
	slices.SortStableFunc(sorted, func(a, b string) int {
		return cmp.Compare(kana.Len(b), kana.Len(a))
	})
	return sorted
}

// pickLong picks the longest word with probability pTop, otherwise a uniform
// choice among the top n longest words.
func (s search) pickLong(pool []string, n int, pTop float64) string {
	sorted := byLength(pool)
	if len(sorted) == 1 || s.rng.Float64() < pTop {
		return sorted[0]
	}
	return sorted[s.rng.IntN(min(n, len(sorted)))]
}

func (s search) pickAny(pool []string) string {
	return pool[s.rng.IntN(len(pool))]
}

// randomOpening returns the playable words of a random non-terminal bucket,
// trying the other buckets in random order when the first one is exhausted.
func (s search) randomOpening(used Used) []string {
	keys := s.openingKeys()
	s.rng.Shuffle(len(keys), func(i, j int) { keys[i], keys[j] = keys[j], keys[i] })
	for _, k := range keys {
		if pool := s.playableIn(k, used); len(pool) > 0 {
			return pool
		}
	}
	return nil
}
