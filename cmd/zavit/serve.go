package main

import (
	"context"
	"errors"
	"fmt"

	cli "github.com/urfave/cli/v3"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"zavit/ai"
	"zavit/book"
	"zavit/bot"
	"zavit/epub"
	"zavit/mailing"
	"zavit/nav"
	"zavit/state"
	"zavit/store"
)

// openResources opens the book, the book table and the database into env.
// They are closed by destroyAppContext.
func openResources(env *state.LocalEnv) error {
	var err error

	if env.Index, err = book.Load(); err != nil {
		return fmt.Errorf("unable to load book table: %w", err)
	}
	if env.Book, err = epub.Open(env.Cfg.Bot.BookPath, env.Log); err != nil {
		return fmt.Errorf("unable to open book: %w", err)
	}
	if env.Store, err = store.Open(env.Cfg.Store.Path, env.Log); err != nil {
		return err
	}

	if env.Rpt != nil {
		env.Rpt.Store("zavit.db", env.Cfg.Store.Path)
	}
	return nil
}

func runServe(ctx context.Context, _ *cli.Command) error {
	env := state.EnvFromContext(ctx)

	if err := openResources(env); err != nil {
		return err
	}

	router := nav.NewRouter(env.Book, env.Book, env.Index, env.Log)
	assistant := ai.NewClient(env.Cfg.AI, env.Store, env.Log)

	b, err := bot.New(env.Cfg, router, env.Book, env.Store, assistant, env.Log)
	if err != nil {
		return err
	}

	mailer, err := mailing.New(env.Cfg.Mailing, env.Index, env.Book, env.Store, b, env.Log)
	if err != nil {
		return err
	}

	env.Log.Info("Serving",
		zap.String("book", env.Cfg.Bot.BookPath),
		zap.Int("chapters", env.Book.TotalChapters()),
		zap.Bool("mailing", env.Cfg.Mailing.Enable),
		zap.Bool("assistant", env.Cfg.AI.Enable))

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return b.Run(gctx, env.Cfg.Bot.PollTimeout)
	})
	g.Go(func() error {
		return mailer.Schedule(gctx)
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	env.Log.Info("Shut down cleanly")
	return nil
}

func runMail(ctx context.Context, _ *cli.Command) error {
	env := state.EnvFromContext(ctx)

	if err := openResources(env); err != nil {
		return err
	}

	router := nav.NewRouter(env.Book, env.Book, env.Index, env.Log)
	assistant := ai.NewClient(env.Cfg.AI, env.Store, env.Log)

	b, err := bot.New(env.Cfg, router, env.Book, env.Store, assistant, env.Log)
	if err != nil {
		return err
	}

	mailer, err := mailing.New(env.Cfg.Mailing, env.Index, env.Book, env.Store, b, env.Log)
	if err != nil {
		return err
	}

	it, err := mailer.Run(ctx)
	if err != nil {
		return err
	}
	env.Log.Info("Mailing sent", zap.String("id", it.ID), zap.Int("sent", it.Sent), zap.Int("failed", it.Failed))
	return nil
}
