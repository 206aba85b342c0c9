// Package mailing sends subscribers a small random reading: three
// consecutive verses from a random chapter, on a configured schedule.
package mailing

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"strings"
	"text/template"
	"time"

	sprig "github.com/go-task/slim-sprig/v3"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"zavit/book"
	"zavit/config"
	"zavit/paginate"
	"zavit/store"
	"zavit/text"
)

const pickAttempts = 10

// Sender delivers one rendered message to one chat.
type Sender interface {
	SendMarkdown(ctx context.Context, chatID int64, text string) error
}

// Source produces raw chapter HTML by flat spine position.
type Source interface {
	ChapterHTML(index int) (string, error)
}

// Mailer composes and fans out scheduled readings.
type Mailer struct {
	conf  config.MailingConfig
	books *book.Index
	src   Source
	store *store.Store
	send  Sender
	tmpl  *template.Template
	log   *zap.Logger

	intn func(n int) int
}

func New(conf config.MailingConfig, books *book.Index, src Source, st *store.Store, send Sender, log *zap.Logger) (*Mailer, error) {
	tmpl, err := template.New("mailing").Funcs(sprig.FuncMap()).Parse(conf.MessageTemplate)
	if err != nil {
		return nil, fmt.Errorf("unable to parse mailing message template: %w", err)
	}
	return &Mailer{
		conf:  conf,
		books: books,
		src:   src,
		store: st,
		send:  send,
		tmpl:  tmpl,
		log:   log,
		intn:  rand.IntN,
	}, nil
}

// Selection is one picked reading.
type Selection struct {
	Book         book.Range
	ChapterIndex int
	Chapter      text.Chapter
	VerseStart   int // 1-based
	Verses       []string
}

// pick chooses a random book, a random chapter in it and a random run of up
// to three consecutive verses. Chapters that parse to no verses are retried.
func (m *Mailer) pick() (Selection, error) {
	var lastErr error
	for range pickAttempts {
		b, ok := m.books.ByOrdinal(1 + m.intn(m.books.Count()))
		if !ok {
			continue
		}
		chapterIndex := b.StartIndex + m.intn(b.ChapterCount)

		raw, err := m.src.ChapterHTML(chapterIndex)
		if err != nil {
			lastErr = err
			continue
		}
		processed := text.ProcessContent(text.HTMLToText(raw), text.Options{CleanInline: true})
		ch := text.ParseChapter(processed.CleanMainText)
		if !ch.HasContent || ch.VerseCount() == 0 {
			lastErr = fmt.Errorf("chapter %d has no verses", chapterIndex)
			continue
		}

		count := ch.VerseCount()
		take := min(paginate.WindowSize, count)
		start := 1 + m.intn(count-take+1)

		return Selection{
			Book:         b,
			ChapterIndex: chapterIndex,
			Chapter:      ch,
			VerseStart:   start,
			Verses:       ch.Verses[start-1 : start-1+take],
		}, nil
	}
	if lastErr == nil {
		lastErr = errors.New("no readable chapter found")
	}
	return Selection{}, fmt.Errorf("unable to pick a reading: %w", lastErr)
}

type messageData struct {
	BookTitle    string
	ChapterTitle string
	VerseStart   int
	VerseEnd     int
	Verses       string
}

// Compose picks a reading and renders the configured message template.
func (m *Mailer) Compose() (Selection, string, error) {
	sel, err := m.pick()
	if err != nil {
		return Selection{}, "", err
	}

	var b strings.Builder
	err = m.tmpl.Execute(&b, messageData{
		BookTitle:    sel.Book.Title,
		ChapterTitle: sel.Chapter.FullTitle(),
		VerseStart:   sel.VerseStart,
		VerseEnd:     sel.VerseStart + len(sel.Verses) - 1,
		Verses:       strings.Join(sel.Verses, "\n"),
	})
	if err != nil {
		return Selection{}, "", fmt.Errorf("unable to render mailing message: %w", err)
	}
	return sel, strings.TrimSpace(b.String()), nil
}

// Run sends one mailing to every subscriber and records the iteration.
// Delivery failures are counted, not fatal.
func (m *Mailer) Run(ctx context.Context) (store.MailingIteration, error) {
	sel, message, err := m.Compose()
	if err != nil {
		return store.MailingIteration{}, err
	}

	subscribers, err := m.store.Subscribers(ctx)
	if err != nil {
		return store.MailingIteration{}, fmt.Errorf("unable to list subscribers: %w", err)
	}

	it := store.MailingIteration{
		ID:           uuid.NewString(),
		StartedAt:    time.Now(),
		ChapterIndex: sel.ChapterIndex,
		VerseStart:   sel.VerseStart,
	}

	for _, chatID := range subscribers {
		if err := ctx.Err(); err != nil {
			return it, err
		}
		if err := m.send.SendMarkdown(ctx, chatID, message); err != nil {
			it.Failed++
			m.log.Warn("Unable to deliver mailing", zap.Int64("chat", chatID), zap.Error(err))
			continue
		}
		it.Sent++
	}

	if err := m.store.RecordMailing(ctx, it); err != nil {
		return it, err
	}
	m.log.Info("Mailing finished",
		zap.String("id", it.ID),
		zap.String("book", sel.Book.Title),
		zap.Int("chapter", it.ChapterIndex),
		zap.Int("sent", it.Sent),
		zap.Int("failed", it.Failed))
	return it, nil
}
