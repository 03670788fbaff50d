// Package kana holds the character rules of shiritori: script folding,
// chaining equivalences between kana, and input validation.
package kana

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
)

// Terminal is the character that loses the game when a word ends with it.
const Terminal = 'ん'

// smallToFull maps the small vowel digraphs that chain with their full-size kana.
var smallToFull = map[rune]rune{
	'ゃ': 'や', 'ゅ': 'ゆ', 'ょ': 'よ',
}

// voicedToUnvoiced maps voiced and half-voiced kana to the unvoiced kana
// they chain with. Both ば and ぱ reduce to は, so the relation is many-to-one.
var voicedToUnvoiced = map[rune]rune{
	'が': 'か', 'ざ': 'さ', 'だ': 'た', 'ば': 'は', 'ぱ': 'は',
	'ぎ': 'き', 'じ': 'し', 'ぢ': 'ち', 'び': 'ひ', 'ぴ': 'ひ',
	'ぐ': 'く', 'ず': 'す', 'づ': 'つ', 'ぶ': 'ふ', 'ぷ': 'ふ',
	'げ': 'け', 'ぜ': 'せ', 'で': 'て', 'べ': 'へ', 'ぺ': 'へ',
	'ご': 'こ', 'ぞ': 'そ', 'ど': 'と', 'ぼ': 'ほ', 'ぽ': 'ほ',
}

// Block is the hiragana and katakana Unicode blocks accepted as input.
var Block = &unicode.RangeTable{
	R16: []unicode.Range16{
		{Lo: 0x3040, Hi: 0x309F, Stride: 1},
		{Lo: 0x30A0, Hi: 0x30FF, Stride: 1},
	},
}

// Normalize converts a katakana rune to hiragana.
// Runes outside the convertible katakana range are returned unchanged.
func Normalize(r rune) rune {
	// ァ (0x30A1) .. ヶ (0x30F6) sit exactly 0x60 above their hiragana.
	if r >= 0x30A1 && r <= 0x30F6 {
		return r - 0x60
	}
	return r
}

// ToHiragana folds every katakana rune of s to hiragana.
func ToHiragana(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		b.WriteRune(Normalize(r))
	}
	return b.String()
}

// Match reports whether b may follow a under the chaining rules.
// The relation is symmetric.
func Match(a, b rune) bool {
	a, b = Normalize(a), Normalize(b)
	if a == b {
		return true
	}
	if full, ok := smallToFull[a]; ok && full == b {
		return true
	}
	if full, ok := smallToFull[b]; ok && full == a {
		return true
	}
	if base, ok := voicedToUnvoiced[a]; ok && base == b {
		return true
	}
	if base, ok := voicedToUnvoiced[b]; ok && base == a {
		return true
	}
	return false
}

// TargetCharacter returns the preferred first character for a word that
// follows lastChar. It is idempotent.
func TargetCharacter(lastChar rune) rune {
	n := Normalize(lastChar)
	if full, ok := smallToFull[n]; ok {
		return full
	}
	if base, ok := voicedToUnvoiced[n]; ok {
		return base
	}
	return n
}

// InBlock reports whether r is a hiragana or katakana code point.
func InBlock(r rune) bool {
	return unicode.Is(Block, r)
}

// IsValidInput reports whether text is non-empty and made only of
// hiragana and katakana.
func IsValidInput(text string) bool {
	if utf8.RuneCountInString(text) == 0 {
		return false
	}
	for _, r := range text {
		if !InBlock(r) {
			return false
		}
	}
	return true
}

// FilterToValid drops every rune outside the kana blocks, keeping order.
func FilterToValid(text string) string {
	out, _, err := transform.String(runes.Remove(runes.NotIn(Block)), text)
	if err != nil {
		return ""
	}
	return out
}

// FirstChar returns the first rune of word, or 0 for an empty word.
func FirstChar(word string) rune {
	r, size := utf8.DecodeRuneInString(word)
	if size == 0 {
		return 0
	}
	return r
}

// LastChar returns the character the next word must chain from: the final
// character as written, so コーヒー chains from ー.
func LastChar(word string) rune {
	r, size := utf8.DecodeLastRuneInString(word)
	if size == 0 {
		return 0
	}
	return r
}

// EndsWithTerminal reports whether word ends with ん or ン.
func EndsWithTerminal(word string) bool {
	r, size := utf8.DecodeLastRuneInString(word)
	if size == 0 {
		return false
	}
	return Normalize(r) == Terminal
}

// Len returns the number of characters in word.
func Len(word string) int {
	return utf8.RuneCountInString(word)
}
