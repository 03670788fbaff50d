package wordbank

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefaultBank(t *testing.T) {
	b := Default()
	if b.Len() != 46 {
		t.Errorf("expected 46 buckets, got %d", b.Len())
	}
	keys := b.Keys()
	if keys[0] != 'あ' {
		t.Errorf("expected first key あ, got %q", string(keys[0]))
	}
	if !b.Has('ん') {
		t.Error("expected a bucket for ん")
	}
	for _, k := range keys {
		if len(b.Words(k)) == 0 {
			t.Errorf("bucket %q is empty", string(k))
		}
	}
}

func TestDefaultBankCollapsesRepeats(t *testing.T) {
	b := Default()
	if got := b.Words('さ'); len(got) != 2 {
		t.Errorf("expected さ bucket to hold 2 distinct words, got %v", got)
	}
	if got := b.Words('て'); len(got) != 1 || got[0] != "て" {
		t.Errorf("expected て bucket to be [て], got %v", got)
	}
	if got := b.Words('か'); len(got) != 7 {
		t.Errorf("expected か bucket to hold 7 distinct words, got %v", got)
	}
}

func TestWordsNormalizesKey(t *testing.T) {
	b := Default()
	if len(b.Words('サ')) == 0 {
		t.Error("expected katakana key to resolve to the hiragana bucket")
	}
	if b.Words('x') != nil {
		t.Error("expected no bucket for x")
	}
}

func TestParse(t *testing.T) {
	data := `
# comment
か: かめ かさ かめ
カ: かに
き: きつね
`
	b, err := Parse(data)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if b.Len() != 2 {
		t.Fatalf("expected 2 buckets, got %d", b.Len())
	}
	got := b.Words('か')
	want := []string{"かめ", "かさ", "かに"}
	if len(got) != len(want) {
		t.Fatalf("Words(か) = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Words(か)[%d] = %q, want %q", i, got[i], want[i])
		}
	}
	if b.Size() != 4 {
		t.Errorf("expected size 4, got %d", b.Size())
	}
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{"empty", ""},
		{"missing colon", "か かめ"},
		{"long key", "かか: かめ"},
		{"non-kana key", "k: かめ"},
		{"non-kana word", "か: kame"},
		{"no words", "か:"},
	}
	for _, tt := range tests {
		if _, err := Parse(tt.data); err == nil {
			t.Errorf("%s: expected error", tt.name)
		}
	}
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bank.txt")
	if err := os.WriteFile(path, []byte("ね: ねこ ねずみ\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	b, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(b.Words('ね')) != 2 {
		t.Errorf("expected 2 words, got %v", b.Words('ね'))
	}

	if _, err := Load(filepath.Join(t.TempDir(), "missing.txt")); err == nil {
		t.Error("expected error for missing file")
	}
}
