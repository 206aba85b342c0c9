package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "test.db"), zap.NewNop())
	if err != nil {
		t.Fatalf("Open() error: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestSubscribers(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	added, err := s.Subscribe(ctx, 100)
	if err != nil {
		t.Fatalf("Subscribe() error: %v", err)
	}
	if !added {
		t.Error("first Subscribe() must report a new subscription")
	}

	added, err = s.Subscribe(ctx, 100)
	if err != nil {
		t.Fatalf("repeated Subscribe() error: %v", err)
	}
	if added {
		t.Error("repeated Subscribe() must not report a new subscription")
	}

	if _, err := s.Subscribe(ctx, 200); err != nil {
		t.Fatal(err)
	}

	ok, err := s.IsSubscribed(ctx, 100)
	if err != nil || !ok {
		t.Errorf("IsSubscribed(100) = %v, %v", ok, err)
	}
	ok, err = s.IsSubscribed(ctx, 300)
	if err != nil || ok {
		t.Errorf("IsSubscribed(300) = %v, %v", ok, err)
	}

	subs, err := s.Subscribers(ctx)
	if err != nil {
		t.Fatalf("Subscribers() error: %v", err)
	}
	if len(subs) != 2 {
		t.Fatalf("Subscribers() = %v, want 2 entries", subs)
	}

	removed, err := s.Unsubscribe(ctx, 100)
	if err != nil || !removed {
		t.Errorf("Unsubscribe(100) = %v, %v", removed, err)
	}
	removed, err = s.Unsubscribe(ctx, 100)
	if err != nil {
		t.Fatal(err)
	}
	if removed {
		t.Error("repeated Unsubscribe() must report nothing removed")
	}

	subs, err = s.Subscribers(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(subs) != 1 || subs[0] != 200 {
		t.Errorf("Subscribers() = %v, want [200]", subs)
	}
}

func TestMailingIterations(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	if _, found, err := s.LastMailing(ctx); err != nil || found {
		t.Fatalf("LastMailing() on empty store = found %v, err %v", found, err)
	}

	first := MailingIteration{
		ID:           uuid.NewString(),
		StartedAt:    time.Date(2026, 8, 26, 8, 0, 0, 0, time.UTC),
		ChapterIndex: 12,
		VerseStart:   4,
		Sent:         10,
		Failed:       1,
	}
	second := MailingIteration{
		ID:           uuid.NewString(),
		StartedAt:    time.Date(2026, 8, 28, 8, 0, 0, 0, time.UTC),
		ChapterIndex: 40,
		VerseStart:   1,
		Sent:         11,
	}

	if err := s.RecordMailing(ctx, first); err != nil {
		t.Fatalf("RecordMailing() error: %v", err)
	}
	if err := s.RecordMailing(ctx, second); err != nil {
		t.Fatalf("RecordMailing() error: %v", err)
	}

	got, found, err := s.LastMailing(ctx)
	if err != nil {
		t.Fatalf("LastMailing() error: %v", err)
	}
	if !found {
		t.Fatal("LastMailing() found nothing")
	}
	if got.ID != second.ID || got.ChapterIndex != 40 || got.Sent != 11 {
		t.Errorf("LastMailing() = %+v, want the later run", got)
	}
	if !got.StartedAt.Equal(second.StartedAt) {
		t.Errorf("StartedAt = %v, want %v", got.StartedAt, second.StartedAt)
	}
}

func TestSessions(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	if _, found, err := s.LoadSession(ctx, 5); err != nil || found {
		t.Fatalf("LoadSession() on empty store = found %v, err %v", found, err)
	}

	if err := s.SaveSession(ctx, 5, 12); err != nil {
		t.Fatalf("SaveSession() error: %v", err)
	}
	if err := s.SaveSession(ctx, 5, 30); err != nil {
		t.Fatalf("SaveSession() overwrite error: %v", err)
	}

	chapter, found, err := s.LoadSession(ctx, 5)
	if err != nil {
		t.Fatal(err)
	}
	if !found || chapter != 30 {
		t.Errorf("LoadSession() = %d, %v, want 30, true", chapter, found)
	}
}

func TestAIRequestCounter(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	n, err := s.AIRequestCount(ctx, 7, "2026-08-30")
	if err != nil || n != 0 {
		t.Fatalf("AIRequestCount() on empty store = %d, %v", n, err)
	}

	for i := 0; i < 3; i++ {
		if err := s.RecordAIRequest(ctx, 7, "2026-08-30"); err != nil {
			t.Fatalf("RecordAIRequest() error: %v", err)
		}
	}
	if err := s.RecordAIRequest(ctx, 8, "2026-08-30"); err != nil {
		t.Fatal(err)
	}
	if err := s.RecordAIRequest(ctx, 7, "2026-08-31"); err != nil {
		t.Fatal(err)
	}

	n, err = s.AIRequestCount(ctx, 7, "2026-08-30")
	if err != nil || n != 3 {
		t.Errorf("AIRequestCount(7, 2026-08-30) = %d, %v, want 3", n, err)
	}
	n, err = s.AIRequestCount(ctx, 8, "2026-08-30")
	if err != nil || n != 1 {
		t.Errorf("AIRequestCount(8, 2026-08-30) = %d, %v, want 1", n, err)
	}

	// the next day starts over
	n, err = s.AIRequestCount(ctx, 7, "2026-08-31")
	if err != nil || n != 1 {
		t.Errorf("AIRequestCount(7, 2026-08-31) = %d, %v, want 1", n, err)
	}
}

func TestAIResponseCache(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	if _, found, err := s.CachedAIResponse(ctx, "shcho-take-prytcha"); err != nil || found {
		t.Fatalf("cache miss = found %v, err %v", found, err)
	}

	if err := s.SaveAIResponse(ctx, "shcho-take-prytcha", "gemini-1.5-flash", "Притча - це..."); err != nil {
		t.Fatalf("SaveAIResponse() error: %v", err)
	}

	resp, found, err := s.CachedAIResponse(ctx, "shcho-take-prytcha")
	if err != nil {
		t.Fatal(err)
	}
	if !found || resp != "Притча - це..." {
		t.Errorf("CachedAIResponse() = %q, %v", resp, found)
	}

	// replacing is allowed
	if err := s.SaveAIResponse(ctx, "shcho-take-prytcha", "gemini-1.5-flash", "updated"); err != nil {
		t.Fatalf("SaveAIResponse() replace error: %v", err)
	}
	resp, _, err = s.CachedAIResponse(ctx, "shcho-take-prytcha")
	if err != nil {
		t.Fatal(err)
	}
	if resp != "updated" {
		t.Errorf("CachedAIResponse() after replace = %q", resp)
	}
}
