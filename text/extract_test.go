package text

import (
	"reflect"
	"strings"
	"testing"
)

func TestHTMLToText(t *testing.T) {
	tests := []struct {
		name string
		html string
		want string
	}{
		{
			name: "paragraphs become line breaks",
			html: "<p>Розділ 1</p><p>1 Перший вірш.</p>",
			want: "Розділ 1\n1 Перший вірш.",
		},
		{
			name: "br variants",
			html: "один<br>два<br/>три<br />чотири",
			want: "один\nдва\nтри\nчотири",
		},
		{
			name: "tags stripped",
			html: `<div class="c"><span>текст</span> <em>курсив</em></div>`,
			want: "текст курсив",
		},
		{
			name: "newline runs collapsed",
			html: "<p>один</p><p></p><p></p><p>два</p>",
			want: "один\n\nдва",
		},
		{
			name: "empty input",
			html: "",
			want: "",
		},
		{
			name: "malformed markup is survivable",
			html: "<p>текст<unclosed",
			want: "текст",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := HTMLToText(tt.html); got != tt.want {
				t.Errorf("HTMLToText() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestParseHTML_Scenario(t *testing.T) {
	ch := ParseHTML("<p>Розділ 1</p><p>1 Перший вірш.</p><p>2 Другий вірш.</p>")

	if ch.Title != "Розділ 1" {
		t.Errorf("Title = %q, want %q", ch.Title, "Розділ 1")
	}
	want := []string{"1 Перший вірш.", "2 Другий вірш."}
	if !reflect.DeepEqual(ch.Verses, want) {
		t.Errorf("Verses = %q, want %q", ch.Verses, want)
	}
	if !ch.HasContent {
		t.Error("HasContent = false, want true")
	}
}

func TestParseChapter(t *testing.T) {
	t.Run("subtitle detected", func(t *testing.T) {
		ch := ParseChapter("Розділ 3\nПроповідь Іоанна Хрестителя\n1 У ті дні приходить Іоанн.\n2 І каже.")
		if ch.Title != "Розділ 3" {
			t.Errorf("Title = %q", ch.Title)
		}
		if ch.Subtitle != "Проповідь Іоанна Хрестителя" {
			t.Errorf("Subtitle = %q", ch.Subtitle)
		}
		if ch.VerseCount() != 2 {
			t.Errorf("VerseCount() = %d, want 2", ch.VerseCount())
		}
		if got := ch.FullTitle(); got != "Розділ 3\nПроповідь Іоанна Хрестителя" {
			t.Errorf("FullTitle() = %q", got)
		}
	})

	t.Run("verse number line is not a subtitle", func(t *testing.T) {
		ch := ParseChapter("Розділ 1\n1 Вірш один.\n2 Вірш два.")
		if len(ch.Subtitle) != 0 {
			t.Errorf("Subtitle = %q, want empty", ch.Subtitle)
		}
		if ch.VerseCount() != 2 {
			t.Errorf("VerseCount() = %d, want 2", ch.VerseCount())
		}
	})

	t.Run("wrapped verse lines are rejoined", func(t *testing.T) {
		ch := ParseChapter("Розділ 2\n1 Початок вірша,\nщо переноситься.\n2 Другий.")
		want := "1 Початок вірша, що переноситься."
		if ch.Verses[0] != want {
			t.Errorf("Verses[0] = %q, want %q", ch.Verses[0], want)
		}
	})

	t.Run("marker later in text overrides first-line fallback", func(t *testing.T) {
		ch := ParseChapter("ЄВАНГЕЛІЄ ВІД МАТФЕЯ\nРозділ 1\n1 Вірш.")
		if ch.Title != "Розділ 1" {
			t.Errorf("Title = %q, want marker line", ch.Title)
		}
	})

	t.Run("no marker falls back to first line", func(t *testing.T) {
		ch := ParseChapter("ПЕРЕДМОВА\nДо видання.")
		if ch.Title != "ПЕРЕДМОВА" {
			t.Errorf("Title = %q, want first line", ch.Title)
		}
		if ch.HasContent {
			t.Error("HasContent = true for chapter without verses")
		}
	})

	t.Run("title only yields no content without error", func(t *testing.T) {
		ch := ParseChapter("Розділ 5")
		if ch.Title != "Розділ 5" || ch.HasContent || ch.VerseCount() != 0 {
			t.Errorf("unexpected chapter %+v", ch)
		}
	})

	t.Run("empty input yields sentinel", func(t *testing.T) {
		ch := ParseChapter("")
		if ch.HasContent || len(ch.Title) > 0 {
			t.Errorf("unexpected chapter %+v", ch)
		}
	})

	t.Run("leading verse numbers are kept", func(t *testing.T) {
		ch := ParseChapter("Розділ 1\n12 Текст вірша.")
		if !strings.HasPrefix(ch.Verses[0], "12 ") {
			t.Errorf("Verses[0] = %q, want leading number kept", ch.Verses[0])
		}
	})
}
