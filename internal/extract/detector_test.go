package extract

import (
	"strings"
	"testing"
)

func mustRegistry(t *testing.T, mine, competitors []string) *Registry {
	t.Helper()
	r, err := NewRegistry(mine, competitors)
	if err != nil {
		t.Fatalf("NewRegistry: %v", err)
	}
	return r
}

func TestDetectMentionsBasic(t *testing.T) {
	r := mustRegistry(t, []string{"Acme"}, []string{"Globex"})
	text := "Many teams pick Acme, though Globex is cheaper."

	mentions := DetectMentions(text, r)
	if len(mentions) != 2 {
		t.Fatalf("got %d mentions, want 2", len(mentions))
	}
	if mentions[0].NormalizedName != "acme" || !mentions[0].IsMine {
		t.Errorf("first mention = %+v", mentions[0])
	}
	if mentions[1].NormalizedName != "globex" || mentions[1].IsMine {
		t.Errorf("second mention = %+v", mentions[1])
	}
}

func TestDetectMentionsCaseInsensitiveCollapse(t *testing.T) {
	r := mustRegistry(t, []string{"Acme"}, nil)
	text := "ACME is popular. Some prefer acme anyway. Acme wins."

	mentions := DetectMentions(text, r)
	if len(mentions) != 1 {
		t.Fatalf("got %d mentions, want 1 collapsed mention", len(mentions))
	}
	m := mentions[0]
	if len(m.Offsets) != 3 {
		t.Errorf("got %d occurrences, want 3", len(m.Offsets))
	}
	// BrandName keeps the first form seen in the text.
	if m.BrandName != "ACME" {
		t.Errorf("BrandName = %q, want ACME", m.BrandName)
	}
}

func TestDetectMentionsWholeWord(t *testing.T) {
	r := mustRegistry(t, []string{"Acme"}, nil)
	tests := []struct {
		name string
		text string
		want int
	}{
		{"embedded in word", "The Acmeify plugin is unrelated.", 0},
		{"prefix of word", "Consider MegaAcme instead.", 0},
		{"punctuation boundary", "Try Acme. It works.", 1},
		{"parenthesized", "(Acme)", 1},
		{"possessive", "Acme's pricing is fair.", 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := len(DetectMentions(tt.text, r)); got != tt.want {
				t.Errorf("got %d mentions, want %d", got, tt.want)
			}
		})
	}
}

func TestDetectMentionsLongestMatchWins(t *testing.T) {
	r := mustRegistry(t, []string{"Sales"}, []string{"Salesforce"})
	text := "Salesforce dominates, but Sales teams love it."

	mentions := DetectMentions(text, r)
	if len(mentions) != 2 {
		t.Fatalf("got %d mentions, want 2", len(mentions))
	}
	// "Salesforce" claims its span; the standalone "Sales" later still hits.
	if mentions[0].NormalizedName != "salesforce" {
		t.Errorf("first = %q, want salesforce", mentions[0].NormalizedName)
	}
	if mentions[1].NormalizedName != "sales" {
		t.Errorf("second = %q, want sales", mentions[1].NormalizedName)
	}
	if got := mentions[1].Offsets[0]; got != strings.Index(text, "Sales teams") {
		t.Errorf("standalone Sales offset = %d", got)
	}
}

func TestDetectMentionsEmptyInputs(t *testing.T) {
	r := mustRegistry(t, []string{"Acme"}, nil)
	if got := DetectMentions("", r); len(got) != 0 {
		t.Errorf("empty text: got %d mentions", len(got))
	}
	if got := DetectMentions("No brands here at all.", r); len(got) != 0 {
		t.Errorf("brand-free text: got %d mentions", len(got))
	}
}

func TestDetectMentionsSnippet(t *testing.T) {
	r := mustRegistry(t, []string{"Acme"}, nil)
	text := strings.Repeat("x", 100) + " Acme " + strings.Repeat("y", 100)

	mentions := DetectMentions(text, r)
	if len(mentions) != 1 {
		t.Fatalf("got %d mentions", len(mentions))
	}
	snippet := mentions[0].ContextSnippet
	if !strings.Contains(snippet, "Acme") {
		t.Errorf("snippet %q does not contain the match", snippet)
	}
	// Window is the match plus at most snippetRadius bytes either side.
	if len(snippet) > len("Acme")+2*snippetRadius {
		t.Errorf("snippet too wide: %d bytes", len(snippet))
	}
}

func TestDetectMentionsSnippetUTF8Safe(t *testing.T) {
	r := mustRegistry(t, []string{"Acme"}, nil)
	text := strings.Repeat("é", 60) + "Acme, then more" + strings.Repeat("ü", 60)

	mentions := DetectMentions(text, r)
	if len(mentions) != 1 {
		t.Fatalf("got %d mentions", len(mentions))
	}
	for _, ru := range mentions[0].ContextSnippet {
		if ru == '�' {
			t.Fatal("snippet split a UTF-8 sequence")
		}
	}
}

func TestDetectMentionsIdempotent(t *testing.T) {
	r := mustRegistry(t, []string{"Acme"}, []string{"Globex", "Initech"})
	text := "1. Acme\n2. Globex\n3. Initech\n"

	first := DetectMentions(text, r)
	second := DetectMentions(text, r)
	if len(first) != len(second) {
		t.Fatalf("runs differ in length: %d vs %d", len(first), len(second))
	}
	for i := range first {
		if first[i].NormalizedName != second[i].NormalizedName ||
			first[i].Offsets[0] != second[i].Offsets[0] {
			t.Errorf("run mismatch at %d: %+v vs %+v", i, first[i], second[i])
		}
	}
}
