package text

import "testing"

func TestSeparate(t *testing.T) {
	t.Run("reference block detected", func(t *testing.T) {
		got := Separate("first paragraph\n\na 1:2 some reference")
		if got.MainText != "first paragraph" {
			t.Errorf("MainText = %q", got.MainText)
		}
		if got.References != "a 1:2 some reference" {
			t.Errorf("References = %q", got.References)
		}
		if !got.HasReferences {
			t.Error("HasReferences = false, want true")
		}
	})

	t.Run("single section has no references", func(t *testing.T) {
		got := Separate("just one paragraph")
		if got.HasReferences || got.MainText != "just one paragraph" {
			t.Errorf("unexpected block %+v", got)
		}
	})

	t.Run("last section without pattern stays in body", func(t *testing.T) {
		got := Separate("один\n\nдва звичайних абзаци")
		if got.HasReferences {
			t.Error("HasReferences = true for plain final paragraph")
		}
		if got.MainText != "один\n\nдва звичайних абзаци" {
			t.Errorf("MainText = %q", got.MainText)
		}
	})

	t.Run("uppercase marker is not a reference", func(t *testing.T) {
		if got := Separate("текст\n\nA 1:2 not lowercase"); got.HasReferences {
			t.Error("HasReferences = true for uppercase marker")
		}
	})

	t.Run("empty input", func(t *testing.T) {
		if got := Separate(""); got.HasReferences || len(got.MainText) != 0 {
			t.Errorf("unexpected block %+v", got)
		}
	})
}

func TestStripInlineMarkers(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"square brackets", "звільнити [Ісусом] Варавву", "звільнити Варавву"},
		{"parentheses", `Раввуні (що перекладається: вчителю)`, "Раввуні"},
		{"whitespace collapsed", "один \t  два", "один два"},
		{"newline runs collapsed", "один\n\n\n\nдва", "один\n\nдва"},
		{"empty", "", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := StripInlineMarkers(tt.in); got != tt.want {
				t.Errorf("StripInlineMarkers(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestStripInlineMarkers_Idempotent(t *testing.T) {
	inputs := []string{
		"звільнити [Ісусом] Варавву (розбійника)\n\n\nкінець",
		"чистий текст без маркерів",
		"",
	}
	for _, in := range inputs {
		once := StripInlineMarkers(in)
		if twice := StripInlineMarkers(once); twice != once {
			t.Errorf("not idempotent for %q: %q != %q", in, once, twice)
		}
	}
}

func TestFormatReferences(t *testing.T) {
	got := FormatReferences("a 27:2 Намісник\n\nпродовження\nb 27:9 Єремія")
	want := "**a 27:2 Намісник**\nпродовження\n**b 27:9 Єремія**"
	if got != want {
		t.Errorf("FormatReferences() = %q, want %q", got, want)
	}
	if FormatReferences("") != "" {
		t.Error("FormatReferences(empty) != empty")
	}
}

func TestProcessContent(t *testing.T) {
	full := "Розділ 27\n1 Вірш [маркер] один.\n\na 27:2 Намісник"

	t.Run("clean with references", func(t *testing.T) {
		p := ProcessContent(full, Options{IncludeReferences: true, CleanInline: true})
		if !p.HasReferences {
			t.Fatal("HasReferences = false")
		}
		if p.MainText != "Розділ 27\n1 Вірш один." {
			t.Errorf("MainText = %q", p.MainText)
		}
		if p.References != "**a 27:2 Намісник**" {
			t.Errorf("References = %q", p.References)
		}
		if p.FullText != p.MainText+"\n\n"+p.References {
			t.Errorf("FullText = %q", p.FullText)
		}
	})

	t.Run("clean main text available when raw requested", func(t *testing.T) {
		p := ProcessContent(full, Options{IncludeReferences: true, CleanInline: false})
		if p.MainText != "Розділ 27\n1 Вірш [маркер] один." {
			t.Errorf("MainText = %q, want raw markers kept", p.MainText)
		}
		if p.CleanMainText != "Розділ 27\n1 Вірш один." {
			t.Errorf("CleanMainText = %q, want inline-cleaned", p.CleanMainText)
		}
	})

	t.Run("references excluded", func(t *testing.T) {
		p := ProcessContent(full, Options{IncludeReferences: false, CleanInline: true})
		if p.FullText != p.MainText {
			t.Errorf("FullText = %q, want main text only", p.FullText)
		}
		if !p.HasReferences {
			t.Error("HasReferences should still report detection")
		}
	})
}
