package token

import "testing"

// TestKeywordBoundary covers spec.md §8 scenario S4.
func TestKeywordBoundary(t *testing.T) {
	toks, err := Tokenize("micro Agent")
	if err != nil {
		t.Fatalf("Tokenize: %v", err)
	}
	want := []Token{
		{Kind: KindKeyword, Keyword: Micro},
		{Kind: KindIdentifier, Text: "Agent"},
		{Kind: KindEOF},
	}
	assertKinds(t, toks, want)
	if toks[0].Keyword != Micro {
		t.Errorf("got keyword %v, want Micro", toks[0].Keyword)
	}
	if toks[1].Text != "Agent" {
		t.Errorf("got identifier %q, want Agent", toks[1].Text)
	}

	toks, err = Tokenize("microservice")
	if err != nil {
		t.Fatalf("Tokenize: %v", err)
	}
	if len(toks) != 2 || toks[0].Kind != KindIdentifier || toks[0].Text != "microservice" {
		t.Fatalf("got %+v, want a single Identifier(microservice)", toks)
	}
}

func TestTokenizeLiterals(t *testing.T) {
	toks, err := Tokenize(`42 3.14 "hello\nworld" true false`)
	if err != nil {
		t.Fatalf("Tokenize: %v", err)
	}
	if toks[0].Kind != KindInt || toks[0].Int != 42 {
		t.Errorf("got %+v, want Int(42)", toks[0])
	}
	if toks[1].Kind != KindFloat || toks[1].Float != 3.14 {
		t.Errorf("got %+v, want Float(3.14)", toks[1])
	}
	if toks[2].Kind != KindString || toks[2].Text != "hello\nworld" {
		t.Errorf("got %+v, want String(hello\\nworld)", toks[2])
	}
	if toks[3].Kind != KindBool || !toks[3].Bool {
		t.Errorf("got %+v, want Bool(true)", toks[3])
	}
	if toks[4].Kind != KindBool || toks[4].Bool {
		t.Errorf("got %+v, want Bool(false)", toks[4])
	}
}

func TestTokenizeSymbolsLongestMatch(t *testing.T) {
	toks, err := Tokenize("a == b && c != d")
	if err != nil {
		t.Fatalf("Tokenize: %v", err)
	}
	var syms []string
	for _, tk := range toks {
		if tk.Kind == KindSymbol {
			syms = append(syms, tk.Text)
		}
	}
	want := []string{"==", "&&", "!="}
	if len(syms) != len(want) {
		t.Fatalf("got symbols %v, want %v", syms, want)
	}
	for i := range want {
		if syms[i] != want[i] {
			t.Errorf("symbol %d: got %q, want %q", i, syms[i], want[i])
		}
	}
}

func TestTokenizeCommentsIgnored(t *testing.T) {
	toks, err := Tokenize("micro // this is Agent\n Agent")
	if err != nil {
		t.Fatalf("Tokenize: %v", err)
	}
	assertKinds(t, toks, []Token{
		{Kind: KindKeyword},
		{Kind: KindIdentifier},
		{Kind: KindEOF},
	})
}

func TestUnterminatedString(t *testing.T) {
	_, err := Tokenize(`"unterminated`)
	if _, ok := err.(UnterminatedString); !ok {
		t.Fatalf("expected UnterminatedString, got %v", err)
	}
}

func TestUnexpectedChar(t *testing.T) {
	_, err := Tokenize("micro $ Agent")
	if _, ok := err.(UnexpectedChar); !ok {
		t.Fatalf("expected UnexpectedChar, got %v", err)
	}
}

func TestAllKeywordsRecognized(t *testing.T) {
	for text, kw := range Keywords {
		toks, err := Tokenize(text + " x")
		if err != nil {
			t.Fatalf("Tokenize(%q): %v", text, err)
		}
		if toks[0].Kind != KindKeyword || toks[0].Keyword != kw {
			t.Errorf("%q: got %+v, want Keyword(%v)", text, toks[0], kw)
		}
	}
}

func assertKinds(t *testing.T, got []Token, want []Token) {
	t.Helper()
	if len(got) != len(want) {
		t.Fatalf("got %d tokens %+v, want %d", len(got), got, len(want))
	}
	for i := range want {
		if got[i].Kind != want[i].Kind {
			t.Errorf("token %d: got kind %v, want %v", i, got[i].Kind, want[i].Kind)
		}
	}
}
