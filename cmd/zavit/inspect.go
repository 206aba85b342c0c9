package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	cli "github.com/urfave/cli/v3"

	"zavit/epub"
	"zavit/state"
	"zavit/text"
)

// runInspect prints the book's navigation structure and flags chapters the
// built-in book table does not cover. Useful when the edition file changes.
func runInspect(ctx context.Context, _ *cli.Command) error {
	env := state.EnvFromContext(ctx)

	if err := openResources(env); err != nil {
		return err
	}

	total := env.Book.TotalChapters()
	fmt.Fprintf(os.Stdout, "book: %s\nspine entries: %d\nbooks in table: %d\n\n", env.Cfg.Bot.BookPath, total, env.Index.Count())

	fmt.Fprintln(os.Stdout, "navigation:")
	printNav(env.Book.NavPoints(), 1)

	fmt.Fprintln(os.Stdout, "\nchapters:")
	var unmapped, empty int
	for i := range total {
		loc, ok := env.Index.FindBook(i)

		var owner string
		if ok {
			owner = fmt.Sprintf("%s %d", loc.Book.Title, loc.ChapterInBook)
		} else {
			owner = "-"
			unmapped++
		}

		raw, err := env.Book.ChapterHTML(i)
		if err != nil {
			fmt.Fprintf(os.Stdout, "  %3d  %-40s  ERROR: %v\n", i, owner, err)
			continue
		}
		ch := text.ParseChapter(text.HTMLToText(raw))
		if !ch.HasContent {
			empty++
		}
		fmt.Fprintf(os.Stdout, "  %3d  %-40s  %q  %d verses\n", i, owner, ch.Title, ch.VerseCount())
	}

	fmt.Fprintf(os.Stdout, "\nunmapped chapters: %d (front matter and book title pages)\nempty chapters: %d\n", unmapped, empty)
	return nil
}

func printNav(points []epub.NavPoint, depth int) {
	for _, np := range points {
		fmt.Fprintf(os.Stdout, "%s%s\n", strings.Repeat("  ", depth), np.Title)
		printNav(np.Children, depth+1)
	}
}
