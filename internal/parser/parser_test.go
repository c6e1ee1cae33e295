package parser

import "testing"

func TestParse_Simple(t *testing.T) {
	p := New(GrammarSimple)

	tests := []struct {
		name   string
		input  string
		amount int
		desc   string
	}{
		{"with currency and description", "記録:500円 コーヒー", 500, "コーヒー"},
		{"fullwidth colon", "記録：500円 コーヒー", 500, "コーヒー"},
		{"no currency unit", "記録:500 コーヒー", 500, "コーヒー"},
		{"no description", "記録:500円", 500, DefaultDescription},
		{"no space before description", "記録:500円コーヒー", 500, "コーヒー"},
		{"space after colon", "記録: 1200円 本", 1200, "本"},
		{"multi-word description", "記録:3000円 飲み会 二次会", 3000, "飲み会 二次会"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := p.Parse(tt.input)
			if rec == nil {
				t.Fatalf("Parse(%q) = nil, want record", tt.input)
			}
			if rec.Amount != tt.amount {
				t.Errorf("amount = %d, want %d", rec.Amount, tt.amount)
			}
			if rec.Description != tt.desc {
				t.Errorf("description = %q, want %q", rec.Description, tt.desc)
			}
			if rec.Category != "" {
				t.Errorf("simple grammar should not set category, got %q", rec.Category)
			}
		})
	}
}

func TestParse_Simple_Failures(t *testing.T) {
	p := New(GrammarSimple)

	for _, input := range []string{
		"記録:abc",         // no digit run
		"記録:",            // empty body
		"記録: -500円 コーヒー", // negative amounts unsupported
		"今日のランチは500円だった",  // no marker
		"コーヒー買っていい?",
		"",
	} {
		if rec := p.Parse(input); rec != nil {
			t.Errorf("Parse(%q) = %+v, want nil", input, rec)
		}
	}
}

func TestParse_Structured(t *testing.T) {
	p := New(GrammarStructured)

	rec := p.Parse("記録: 1500円 昼食 ラーメン")
	if rec == nil {
		t.Fatal("expected record")
	}
	if rec.Amount != 1500 || rec.Category != "昼食" || rec.Description != "ラーメン" {
		t.Errorf("got %+v", rec)
	}
}

func TestParse_Structured_RequiresCategoryAndDescription(t *testing.T) {
	p := New(GrammarStructured)

	// Partial matches must fall through to the generation path, never
	// produce a half-filled record.
	for _, input := range []string{
		"記録:500円",        // amount only
		"記録:500円 コーヒー",   // missing description
		"記録:abc 昼食 ラーメン", // no digit run
		"相談: 1500円 昼食 ラーメン",
	} {
		if rec := p.Parse(input); rec != nil {
			t.Errorf("Parse(%q) = %+v, want nil", input, rec)
		}
	}
}

func TestParse_Structured_MultiWordDescription(t *testing.T) {
	p := New(GrammarStructured)
	rec := p.Parse("記録:980円 書籍 技術書 中古")
	if rec == nil {
		t.Fatal("expected record")
	}
	if rec.Category != "書籍" || rec.Description != "技術書 中古" {
		t.Errorf("got %+v", rec)
	}
}

func TestIsCommand(t *testing.T) {
	p := New(GrammarSimple)
	if !p.IsCommand("記録:abc") {
		t.Error("marker with bad body is still a command attempt")
	}
	if p.IsCommand("今日の記録:500円") {
		t.Error("marker must be a prefix")
	}
}

func TestNew_DefaultGrammar(t *testing.T) {
	if g := New("").Grammar(); g != GrammarSimple {
		t.Errorf("default grammar = %q, want simple", g)
	}
}
