package bot

import (
	"strings"
	"testing"

	"zavit/nav"
)

func TestSplitMessageShort(t *testing.T) {
	got := splitMessage("короткий текст", messageLimit)
	if len(got) != 1 || got[0] != "короткий текст" {
		t.Errorf("splitMessage() = %v", got)
	}
}

func TestSplitMessageParagraphs(t *testing.T) {
	paras := []string{
		strings.Repeat("а", 40),
		strings.Repeat("б", 40),
		strings.Repeat("в", 40),
	}
	text := strings.Join(paras, "\n\n")

	got := splitMessage(text, 100)
	if len(got) != 2 {
		t.Fatalf("splitMessage() produced %d chunks: %v", len(got), got)
	}
	// first two paragraphs fit together, third goes alone
	if !strings.Contains(got[0], paras[0]) || !strings.Contains(got[0], paras[1]) {
		t.Errorf("first chunk: %q", got[0])
	}
	if got[1] != paras[2] {
		t.Errorf("second chunk: %q", got[1])
	}
	for i, c := range got {
		if len([]rune(c)) > 100 {
			t.Errorf("chunk %d exceeds limit: %d runes", i, len([]rune(c)))
		}
	}
}

func TestSplitMessageLongParagraph(t *testing.T) {
	lines := []string{
		strings.Repeat("а", 60),
		strings.Repeat("б", 60),
		strings.Repeat("в", 60),
	}
	text := strings.Join(lines, "\n")

	got := splitMessage(text, 100)
	if len(got) < 2 {
		t.Fatalf("splitMessage() produced %d chunks: %v", len(got), got)
	}
	for i, c := range got {
		if len([]rune(c)) > 100 {
			t.Errorf("chunk %d exceeds limit: %d runes", i, len([]rune(c)))
		}
	}
	joined := strings.ReplaceAll(strings.Join(got, "\n"), "\n", "")
	if joined != strings.ReplaceAll(text, "\n", "") {
		t.Error("splitting lost content")
	}
}

func TestSplitMessageHardCut(t *testing.T) {
	text := strings.Repeat("г", 250)
	got := splitMessage(text, 100)
	if len(got) != 3 {
		t.Fatalf("splitMessage() produced %d chunks", len(got))
	}
	if strings.Join(got, "") != text {
		t.Error("hard cut lost content")
	}
}

func TestBuildKeyboard(t *testing.T) {
	view := nav.View{
		ButtonRows: [][]nav.Button{
			{{Label: "1", Payload: "verse_2_1"}, {Label: "2", Payload: "verse_2_2"}},
			{{Label: "🏠 Головне меню", Payload: "main_menu"}},
		},
	}
	kb := buildKeyboard(view)
	if kb == nil {
		t.Fatal("buildKeyboard() returned nil")
	}
	if len(kb.InlineKeyboard) != 2 {
		t.Fatalf("rows = %d, want 2", len(kb.InlineKeyboard))
	}
	if len(kb.InlineKeyboard[0]) != 2 || len(kb.InlineKeyboard[1]) != 1 {
		t.Errorf("row sizes: %d, %d", len(kb.InlineKeyboard[0]), len(kb.InlineKeyboard[1]))
	}
	btn := kb.InlineKeyboard[0][0]
	if btn.Text != "1" || btn.CallbackData == nil || *btn.CallbackData != "verse_2_1" {
		t.Errorf("button: %+v", btn)
	}
}

func TestBuildKeyboardEmpty(t *testing.T) {
	if kb := buildKeyboard(nav.View{Text: "text"}); kb != nil {
		t.Error("expected nil keyboard for a view without buttons")
	}
}
