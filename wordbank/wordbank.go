// Package wordbank provides the opponent's dictionary: candidate words
// bucketed by their leading kana.
package wordbank

import (
	"bufio"
	_ "embed"
	"fmt"
	"os"
	"strings"
	"unicode/utf8"

	"shiritori.exe.dev/kana"
)

//go:embed wordlists/bank.txt
var defaultTxt string

var defaultBank = mustParse(defaultTxt)

// Bank maps a leading kana to an ordered list of candidate words.
// A Bank is immutable after construction and safe for concurrent use.
type Bank struct {
	keys    []rune
	buckets map[rune][]string
}

// Default returns the embedded bank.
func Default() *Bank {
	return defaultBank
}

// Load reads a bank file from disk.
func Load(path string) (*Bank, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read word bank: %w", err)
	}
	b, err := Parse(string(data))
	if err != nil {
		return nil, fmt.Errorf("parse word bank %s: %w", path, err)
	}
	return b, nil
}

// Parse reads newline-delimited "key: word word ..." entries.
// Blank lines and lines starting with # are skipped. Repeated keys append to
// the same bucket and repeated words within a bucket are kept once.
func Parse(data string) (*Bank, error) {
	b := &Bank{buckets: make(map[rune][]string)}
	seen := make(map[rune]map[string]bool)

	scanner := bufio.NewScanner(strings.NewReader(data))
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		rawKey, rawWords, ok := strings.Cut(line, ":")
		if !ok {
			return nil, fmt.Errorf("line %d: missing ':'", lineNo)
		}
		rawKey = strings.TrimSpace(rawKey)
		if utf8.RuneCountInString(rawKey) != 1 {
			return nil, fmt.Errorf("line %d: key %q must be a single character", lineNo, rawKey)
		}
		key := kana.Normalize([]rune(rawKey)[0])
		if !kana.InBlock(key) {
			return nil, fmt.Errorf("line %d: key %q is not kana", lineNo, rawKey)
		}

		if _, exists := b.buckets[key]; !exists {
			b.keys = append(b.keys, key)
			b.buckets[key] = nil
			seen[key] = make(map[string]bool)
		}
		for _, w := range strings.Fields(rawWords) {
			if !kana.IsValidInput(w) {
				return nil, fmt.Errorf("line %d: word %q is not kana", lineNo, w)
			}
			if seen[key][w] {
				continue
			}
			seen[key][w] = true
			b.buckets[key] = append(b.buckets[key], w)
		}
		if len(b.buckets[key]) == 0 {
			return nil, fmt.Errorf("line %d: key %q has no words", lineNo, rawKey)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	if len(b.keys) == 0 {
		return nil, fmt.Errorf("no entries")
	}
	return b, nil
}

func mustParse(data string) *Bank {
	b, err := Parse(data)
	if err != nil {
		panic(fmt.Sprintf("embedded word bank: %v", err))
	}
	return b
}

// Keys returns the bucket keys in file order.
func (b *Bank) Keys() []rune {
	keys := make([]rune, len(b.keys))
	copy(keys, b.keys)
	return keys
}

// Words returns the bucket for key. The returned slice must not be modified.
func (b *Bank) Words(key rune) []string {
	return b.buckets[kana.Normalize(key)]
}

// Has reports whether key has a bucket.
func (b *Bank) Has(key rune) bool {
	_, ok := b.buckets[kana.Normalize(key)]
	return ok
}

// Len returns the number of buckets.
func (b *Bank) Len() int {
	return len(b.keys)
}

// Size returns the total number of distinct words across buckets.
func (b *Bank) Size() int {
	n := 0
	for _, words := range b.buckets {
		n += len(words)
	}
	return n
}
